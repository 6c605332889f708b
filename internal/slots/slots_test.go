package slots

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almadar-io/orbital/internal/expr"
)

func TestSetAndGet(t *testing.T) {
	s := NewStore()
	s.Set("sidebar", Content{Pattern: "task-list", Props: expr.Object{"limit": expr.Number(5)}})

	content, ok := s.Get("sidebar")
	require.True(t, ok)
	assert.Equal(t, "sidebar", content.ID)
	assert.Equal(t, "task-list", content.Pattern)
	assert.Equal(t, expr.Number(5), content.Props["limit"])
}

func TestSetReplacesEntirely(t *testing.T) {
	s := NewStore()
	prio := 3.0
	s.Set("sidebar", Content{Pattern: "a", Props: expr.Object{"x": expr.Number(1)}, Priority: &prio})
	s.Set("sidebar", Content{Pattern: "b"})

	content, _ := s.Get("sidebar")
	assert.Equal(t, "b", content.Pattern)
	// Full replacement, no merge: old props and priority are gone
	assert.Nil(t, content.Props)
	assert.Nil(t, content.Priority)
}

func TestLastWriteWinsRegardlessOfPriority(t *testing.T) {
	s := NewStore()
	high, low := 10.0, 1.0

	s.Set("sidebar", Content{Pattern: "important", Priority: &high})
	s.Set("sidebar", Content{Pattern: "casual", Priority: &low})

	content, _ := s.Get("sidebar")
	assert.Equal(t, "casual", content.Pattern)
}

func TestGetEmpty(t *testing.T) {
	s := NewStore()
	_, ok := s.Get("nothing")
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	s := NewStore()
	s.Set("sidebar", Content{Pattern: "x"})
	s.Clear("sidebar")

	_, ok := s.Get("sidebar")
	assert.False(t, ok)
	assert.Empty(t, s.Slots())
}

func TestSubscribeNotifiedOnSet(t *testing.T) {
	s := NewStore()
	var gotID string
	var gotContent *Content

	s.Subscribe(func(id string, content *Content) {
		gotID = id
		gotContent = content
	})
	s.Set("sidebar", Content{Pattern: "x"})

	assert.Equal(t, "sidebar", gotID)
	require.NotNil(t, gotContent)
	assert.Equal(t, "x", gotContent.Pattern)
}

func TestSubscribeNotifiedOnClear(t *testing.T) {
	s := NewStore()
	calls := 0
	var last *Content

	s.Subscribe(func(id string, content *Content) {
		calls++
		last = content
	})

	// Clearing an already empty slot still notifies
	s.Clear("sidebar")
	assert.Equal(t, 1, calls)
	assert.Nil(t, last)
}

func TestNotifyAfterCommit(t *testing.T) {
	s := NewStore()
	var seen string

	// The store must already hold the new content when listeners run
	s.Subscribe(func(id string, content *Content) {
		current, ok := s.Get(id)
		if ok {
			seen = current.Pattern
		}
	})
	s.Set("sidebar", Content{Pattern: "fresh"})

	assert.Equal(t, "fresh", seen)
}

func TestUnsubscribe(t *testing.T) {
	s := NewStore()
	calls := 0

	off := s.Subscribe(func(string, *Content) { calls++ })
	s.Set("a", Content{Pattern: "x"})
	off()
	s.Set("a", Content{Pattern: "y"})

	assert.Equal(t, 1, calls)
}

func TestListenersInRegistrationOrder(t *testing.T) {
	s := NewStore()
	var order []string

	s.Subscribe(func(string, *Content) { order = append(order, "first") })
	s.Subscribe(func(string, *Content) { order = append(order, "second") })
	s.Set("a", Content{Pattern: "x"})

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestSlots(t *testing.T) {
	s := NewStore()
	s.Set("a", Content{Pattern: "x"})
	s.Set("b", Content{Pattern: "y"})

	assert.ElementsMatch(t, []string{"a", "b"}, s.Slots())
}
