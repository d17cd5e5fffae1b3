package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestCache_SetGet(t *testing.T) {
	c := NewCache()

	require.NoError(t, c.Set("schema:fields", payload{Name: "ulica", Count: 2}, time.Minute, "schema"))

	var got payload
	found, err := c.Get("schema:fields", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "ulica", got.Name)
	assert.Equal(t, 2, got.Count)
}

func TestCache_GetMiss(t *testing.T) {
	c := NewCache()

	var got payload
	found, err := c.Get("missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_StaleEntryNotReturnedByGet(t *testing.T) {
	c := NewCache()

	require.NoError(t, c.Set("gazetteer:streets", payload{Name: "stale"}, -time.Second, "gazetteer"))

	var got payload
	found, err := c.Get("gazetteer:streets", &got)
	require.NoError(t, err)
	assert.False(t, found, "expired entry must not be served as fresh")
	assert.True(t, c.IsStale("gazetteer:streets"))
}

func TestCache_GetStaleServesExpiredEntry(t *testing.T) {
	c := NewCache()

	require.NoError(t, c.Set("gazetteer:streets", payload{Name: "stale", Count: 7}, -time.Second, "gazetteer"))

	var got payload
	entry, found, err := c.GetStale("gazetteer:streets", &got)
	require.NoError(t, err)
	assert.True(t, found)
	require.NotNil(t, entry)
	assert.Equal(t, 7, got.Count)
	assert.Equal(t, "gazetteer", entry.Source)
}

func TestCache_SetReplacesWholesale(t *testing.T) {
	c := NewCache()

	require.NoError(t, c.Set("k", payload{Name: "first"}, time.Minute, "test"))
	require.NoError(t, c.Set("k", payload{Name: "second"}, time.Minute, "test"))

	var got payload
	found, err := c.Get("k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "second", got.Name)
}

func TestCache_DeleteAndKeys(t *testing.T) {
	c := NewCache()

	require.NoError(t, c.Set("a", payload{}, time.Minute, "test"))
	require.NoError(t, c.Set("b", payload{}, time.Minute, "test"))
	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())

	c.Delete("a")
	assert.ElementsMatch(t, []string{"b"}, c.Keys())

	c.Clear()
	assert.Empty(t, c.Keys())
}
