package streetlist

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchStreetNames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Contains(t, r.PostForm.Get("data"), `area[name="Bratislava"]`)
		fmt.Fprint(w, "Ružinovská\nStudenohorská\n\nMýtna\nRužinovská\n")
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Area: "Bratislava"})

	names, err := client.FetchStreetNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Ružinovská", "Studenohorská", "Mýtna", "Ružinovská"}, names,
		"blank lines dropped, duplicates preserved")
}

func TestFetchStreetNames_SourceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Area: "Bratislava"})

	_, err := client.FetchStreetNames(context.Background())
	assert.Error(t, err)
}
