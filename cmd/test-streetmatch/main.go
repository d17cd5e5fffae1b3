package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/lampmap/server/internal/cache"
	"github.com/lampmap/server/internal/clients/streetlist"
	"github.com/lampmap/server/internal/lib/gazetteer"
	"github.com/lampmap/server/internal/lib/geo"
	"github.com/lampmap/server/internal/lib/streetname"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "normalize":
		handleNormalize()
	case "match":
		handleMatch()
	case "buffer":
		handleBuffer()
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleNormalize() {
	fs := flag.NewFlagSet("normalize", flag.ExitOnError)
	input := fs.String("input", "", "Street name to normalize")

	fs.Parse(os.Args[2:])

	if *input == "" {
		fmt.Println("Example usage:")
		fmt.Println("  test-streetmatch normalize --input \"  STUDENOHORSKÁ \"")
		os.Exit(1)
	}

	normalized := streetname.Normalize(*input)
	fmt.Printf("Input:      %q\n", *input)
	fmt.Printf("Normalized: %q\n", normalized)
	fmt.Printf("Folded:     %q\n", streetname.Fold(normalized))
	fmt.Printf("Diacritics: %v\n", streetname.HasDiacritics(*input))
}

func handleMatch() {
	fs := flag.NewFlagSet("match", flag.ExitOnError)
	input := fs.String("input", "", "Street name to match")
	area := fs.String("area", "Bratislava", "Administrative area to fetch streets for")

	fs.Parse(os.Args[2:])

	if *input == "" {
		fmt.Println("Example usage:")
		fmt.Println("  test-streetmatch match --input \"Studeno Horska\" --area Bratislava")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client := streetlist.NewClient(streetlist.Config{Area: *area})
	streets := gazetteer.New(client, cache.NewCache(), 24*time.Hour, nil)

	entries := streets.Streets(ctx)
	fmt.Printf("Gazetteer: %d streets in %s\n\n", len(entries), *area)

	matches := streets.FindBestMatch(ctx, *input)
	if len(matches) == 0 {
		fmt.Printf("No match for %q\n", *input)
		return
	}

	fmt.Printf("Matches for %q:\n", *input)
	for i, m := range matches {
		fmt.Printf("  %d. %s\n", i+1, m.Name)
	}
}

func handleBuffer() {
	fs := flag.NewFlagSet("buffer", flag.ExitOnError)
	lat := fs.Float64("lat", 0, "Latitude of center point")
	lng := fs.Float64("lng", 0, "Longitude of center point")
	radius := fs.Float64("radius", 150, "Buffer radius in meters")
	points := fs.Int("points", 32, "Number of polygon vertices")

	fs.Parse(os.Args[2:])

	if *lat == 0 && *lng == 0 {
		fmt.Println("Example usage:")
		fmt.Println("  test-streetmatch buffer --lat 48.1482 --lng 17.1067 --radius 150")
		os.Exit(1)
	}

	geoUtils := geo.NewGeoUtils()
	center := geo.Point{Latitude: *lat, Longitude: *lng}

	polygon, err := geoUtils.BufferPolygon(center, *radius, *points)
	if err != nil {
		log.Fatalf("Error building buffer polygon: %v", err)
	}

	ring := polygon[0]
	fmt.Printf("Buffer polygon around (%.6f, %.6f), radius %.0fm:\n", *lat, *lng, *radius)
	fmt.Printf("  Vertices: %d (closed ring)\n", len(ring))

	var maxDist float64
	for _, p := range ring {
		d, err := geoUtils.DistanceFromCoords(*lat, *lng, p.Lat(), p.Lon())
		if err != nil {
			log.Fatalf("Error measuring vertex distance: %v", err)
		}
		if d > maxDist {
			maxDist = d
		}
	}
	fmt.Printf("  Max vertex distance: %.2fm\n", maxDist)
}

func printUsage() {
	fmt.Printf(`Street Name Matching Test Tool

Exercises street-name normalization, gazetteer matching and the spatial
buffer against live data.

Usage:
  test-streetmatch <command> [flags]

Commands:
  normalize    Normalize and fold a street name
  match        Match a street name against an area's live street list
  buffer       Build a buffer polygon and verify its radius
  help         Show this help

Examples:
  test-streetmatch normalize --input "Studeno Horska"
  test-streetmatch match --input "Mitna" --area Bratislava
  test-streetmatch buffer --lat 48.1482 --lng 17.1067 --radius 150
`)
}
