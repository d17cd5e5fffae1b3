package arcgis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Field describes a single layer field from the service metadata
type Field struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Alias string `json:"alias,omitempty"`
}

// LayerInfo holds the layer metadata relevant to schema discovery
type LayerInfo struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// ValueKind tags the scalar type of an attribute value
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueString
	ValueNumber
)

// Value is a tagged scalar attribute value (string | number | null). Feature
// attributes are modelled this way instead of an open interface{} bag so the
// rest of the pipeline stays type safe.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
}

// StringValue constructs a string-kind Value
func StringValue(s string) Value {
	return Value{Kind: ValueString, Str: s}
}

// NumberValue constructs a number-kind Value
func NumberValue(n float64) Value {
	return Value{Kind: ValueNumber, Num: n}
}

// Display returns the human-readable form of the value, empty for null
func (v Value) Display() string {
	switch v.Kind {
	case ValueString:
		return v.Str
	case ValueNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return ""
	}
}

// IsEmpty reports whether the value is null or a blank string
func (v Value) IsEmpty() bool {
	return v.Kind == ValueNull || (v.Kind == ValueString && v.Str == "")
}

// UnmarshalJSON folds arbitrary JSON scalars into the tagged form. Booleans
// and nested values are carried as their string rendering.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*v = Value{Kind: ValueNull}
		return nil
	}

	var num float64
	if err := json.Unmarshal(trimmed, &num); err == nil {
		*v = Value{Kind: ValueNumber, Num: num}
		return nil
	}

	var str string
	if err := json.Unmarshal(trimmed, &str); err == nil {
		*v = Value{Kind: ValueString, Str: str}
		return nil
	}

	*v = Value{Kind: ValueString, Str: string(trimmed)}
	return nil
}

// MarshalJSON renders the tagged value back to its JSON scalar
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueString:
		return json.Marshal(v.Str)
	case ValueNumber:
		return json.Marshal(v.Num)
	default:
		return []byte("null"), nil
	}
}

// Geometry is the wire geometry of a feature: either a point (x/y) or a
// polygon-like shape (rings)
type Geometry struct {
	X     *float64      `json:"x,omitempty"`
	Y     *float64      `json:"y,omitempty"`
	Rings [][][]float64 `json:"rings,omitempty"`
}

// IsPoint reports whether the geometry carries point coordinates
func (g *Geometry) IsPoint() bool {
	return g != nil && g.X != nil && g.Y != nil
}

// Feature is a single geospatial record returned by a query
type Feature struct {
	Attributes map[string]Value `json:"attributes"`
	Geometry   *Geometry        `json:"geometry,omitempty"`
}

// FeaturePage is one page of query results
type FeaturePage struct {
	Features              []Feature `json:"features"`
	ExceededTransferLimit bool      `json:"exceededTransferLimit"`
}

// QueryParams describes a single feature query
type QueryParams struct {
	Where          string
	Geometry       string // ArcGIS JSON geometry, set by PolygonGeometry
	GeometryType   string
	SpatialRel     string
	Offset         int
	Limit          int
	OutFields      string
	ReturnGeometry bool
}

// ValidationError marks a bad-request class response from the service.
// Retrying a malformed query cannot succeed, so these surface immediately.
type ValidationError struct {
	Code    int
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("query rejected by feature service (code %d): %s", e.Code, e.Message)
}
