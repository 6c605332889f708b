package bus

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almadar-io/orbital/internal/expr"
)

func TestEmitDeliversInOrder(t *testing.T) {
	b := New()
	var order []string

	b.On("ev", func(expr.Value) { order = append(order, "first") })
	b.On("ev", func(expr.Value) { order = append(order, "second") })
	b.On("other", func(expr.Value) { order = append(order, "wrong") })

	b.Emit("ev", nil)

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestEmitPayload(t *testing.T) {
	b := New()
	var got expr.Value

	b.On("ev", func(payload expr.Value) { got = payload })
	b.Emit("ev", expr.Object{"id": expr.String("x")})

	obj, ok := got.(expr.Object)
	require.True(t, ok)
	assert.Equal(t, expr.String("x"), obj["id"])
}

func TestEmitNoSubscribers(t *testing.T) {
	b := New()
	// Emitting with nobody listening must not panic
	b.Emit("silence", nil)
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	calls := 0

	off := b.On("ev", func(expr.Value) { calls++ })
	b.Emit("ev", nil)
	off()
	b.Emit("ev", nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, b.SubscriberCount("ev"))
}

func TestUnsubscribeIdempotent(t *testing.T) {
	b := New()
	b.On("ev", func(expr.Value) {})
	off := b.On("ev", func(expr.Value) {})

	off()
	off()

	assert.Equal(t, 1, b.SubscriberCount("ev"))
}

func TestUnsubscribeTargetsOneRegistration(t *testing.T) {
	b := New()
	calls := 0
	handler := func(expr.Value) { calls++ }

	// The same handler func registered twice unsubscribes independently
	off1 := b.On("ev", handler)
	b.On("ev", handler)

	off1()
	b.Emit("ev", nil)

	assert.Equal(t, 1, calls)
}

func TestOnceDeliversOnce(t *testing.T) {
	b := New()
	calls := 0

	b.Once("ev", func(expr.Value) { calls++ })
	b.Emit("ev", nil)
	b.Emit("ev", nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, b.SubscriberCount("ev"))
}

func TestOnceCancelBeforeDelivery(t *testing.T) {
	b := New()
	calls := 0

	off := b.Once("ev", func(expr.Value) { calls++ })
	off()
	b.Emit("ev", nil)

	assert.Equal(t, 0, calls)
}

func TestOnceReentrantEmit(t *testing.T) {
	b := New()
	calls := 0

	b.Once("ev", func(expr.Value) {
		calls++
		// Re-emitting from inside the handler must not re-trigger the
		// once subscription
		b.Emit("ev", nil)
	})
	b.Emit("ev", nil)

	assert.Equal(t, 1, calls)
}

func TestSubscribeDuringEmitSkippedThisPass(t *testing.T) {
	b := New()
	var order []string

	b.On("ev", func(expr.Value) {
		order = append(order, "outer")
		b.On("ev", func(expr.Value) { order = append(order, "inner") })
	})

	b.Emit("ev", nil)
	assert.Equal(t, []string{"outer"}, order)

	b.Emit("ev", nil)
	assert.Equal(t, []string{"outer", "outer", "inner"}, order)
}

func TestUnsubscribeDuringEmitKeepsSnapshot(t *testing.T) {
	b := New()
	var order []string
	var offSecond func()

	b.On("ev", func(expr.Value) {
		order = append(order, "first")
		offSecond()
	})
	offSecond = b.On("ev", func(expr.Value) { order = append(order, "second") })

	// The in-flight pass delivers to its snapshot; the removal takes
	// effect for the next emit
	b.Emit("ev", nil)
	assert.Equal(t, []string{"first", "second"}, order)

	b.Emit("ev", nil)
	assert.Equal(t, []string{"first", "second", "first"}, order)
}

func TestPanickingHandlerSkipped(t *testing.T) {
	var buf bytes.Buffer
	b := New(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	calls := 0

	b.On("ev", func(expr.Value) { panic("boom") })
	b.On("ev", func(expr.Value) { calls++ })

	b.Emit("ev", nil)

	assert.Equal(t, 1, calls)
	assert.Contains(t, buf.String(), "event handler panicked")
}

func TestClear(t *testing.T) {
	b := New()
	b.On("a", func(expr.Value) {})
	b.On("b", func(expr.Value) {})

	b.Clear("a")
	assert.Equal(t, 0, b.SubscriberCount("a"))
	assert.Equal(t, 1, b.SubscriberCount("b"))

	b.Clear("")
	assert.Equal(t, 0, b.SubscriberCount("b"))
}
