package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almadar-io/orbital/internal/expr"
)

func TestRegistryLazyCreate(t *testing.T) {
	r := NewRegistry()

	state := r.Get("tasks")
	require.NotNil(t, state)

	// Same name yields the same state
	state.SetSearch("x")
	assert.Equal(t, "x", r.Get("tasks").Search())
}

func TestRegistryLookupNoSideEffect(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Lookup("ghost")
	assert.False(t, ok)
	assert.Empty(t, r.Names())
}

func TestRegistryReset(t *testing.T) {
	r := NewRegistry()
	r.Get("a").SetSearch("x")
	r.Get("b")

	r.Reset()

	assert.Empty(t, r.Names())
	assert.Equal(t, "", r.Get("a").Search())
}

func TestStateFilters(t *testing.T) {
	s := NewRegistry().Get("q")

	s.SetFilter("status", expr.String("open"))
	s.SetFilter("status", expr.String("closed")) // keys are unique
	s.SetFilter("owner", expr.String("ada"))

	assert.Equal(t, expr.String("closed"), s.Filter("status"))
	assert.Len(t, s.Filters(), 2)

	s.RemoveFilter("status")
	assert.Nil(t, s.Filter("status"))

	// Removing an absent key is a no-op
	s.RemoveFilter("never-set")
	assert.Len(t, s.Filters(), 1)
}

func TestStateSort(t *testing.T) {
	s := NewRegistry().Get("q")
	s.SetSort("createdAt", "desc")

	field, direction := s.Sort()
	assert.Equal(t, "createdAt", field)
	assert.Equal(t, "desc", direction)
}

func TestStateClear(t *testing.T) {
	s := NewRegistry().Get("q")
	s.SetSearch("text")
	s.SetFilter("k", expr.Number(1))
	s.SetSort("f", "asc")

	s.Clear()

	assert.Equal(t, "", s.Search())
	assert.Empty(t, s.Filters())
	field, direction := s.Sort()
	assert.Equal(t, "", field)
	assert.Equal(t, "", direction)
}

func TestStateValue(t *testing.T) {
	s := NewRegistry().Get("q")
	s.SetSearch("urgent")
	s.SetFilter("status", expr.String("open"))
	s.SetSort("title", "asc")

	v := s.Value()

	assert.Equal(t, expr.String("urgent"), v["search"])
	assert.Equal(t, expr.String("title"), v["sortField"])
	assert.Equal(t, expr.String("asc"), v["sortDirection"])

	filters, ok := v["filters"].(expr.Object)
	require.True(t, ok)
	assert.Equal(t, expr.String("open"), filters["status"])
}
