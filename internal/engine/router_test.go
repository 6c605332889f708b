package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almadar-io/orbital/internal/engine"
	"github.com/almadar-io/orbital/internal/expr"
	"github.com/almadar-io/orbital/internal/program"
	"github.com/almadar-io/orbital/internal/testutil"
)

const taskProgram = `{
	"name": "task-card",
	"on": {
		"UI:COMPLETE": [
			{
				"when": ["not", "@entity.done"],
				"do": [
					["set", "@entity.done", true],
					["emit", "task:completed", {"id": "@payload.id"}]
				]
			},
			{
				"when": "@entity.done",
				"do": [["notify", "already done", "warning"]]
			}
		],
		"UI:BUMP": [
			["increment", "@entity.count"]
		]
	}
}`

func loadTaskProgram(t *testing.T) *program.Program {
	t.Helper()
	prog, err := program.ParseJSON([]byte(taskProgram))
	require.NoError(t, err)
	return prog
}

func TestDispatchGuardedRule(t *testing.T) {
	prog := loadTaskProgram(t)
	rec := testutil.NewRecorder()

	resp := engine.Dispatch(prog, engine.Request{
		Event:    "UI:COMPLETE",
		Payload:  expr.Object{"id": expr.String("t-1")},
		EntityID: "t-1",
	}, engine.Context{
		Entity: expr.Object{"done": expr.Bool(false)},
		Caps:   rec.Capabilities(),
		Logger: testutil.DiscardLogger(),
	})

	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Matched)

	require.Len(t, rec.Mutations, 1)
	assert.Equal(t, expr.Bool(true), rec.Mutations[0]["done"])
	require.Len(t, rec.Events, 1)
	assert.Equal(t, "task:completed", rec.Events[0].Event)
	assert.Empty(t, rec.Notifications)

	// Effects appear in the response trace in execution order
	require.Len(t, resp.Effects, 2)
	assert.Equal(t, "set", resp.Effects[0].Kind)
	assert.Equal(t, "emit", resp.Effects[1].Kind)
}

func TestDispatchSecondRule(t *testing.T) {
	prog := loadTaskProgram(t)
	rec := testutil.NewRecorder()

	resp := engine.Dispatch(prog, engine.Request{Event: "UI:COMPLETE"}, engine.Context{
		Entity: expr.Object{"done": expr.Bool(true)},
		Caps:   rec.Capabilities(),
		Logger: testutil.DiscardLogger(),
	})

	assert.Equal(t, 1, resp.Matched)
	assert.Empty(t, rec.Mutations)
	require.Len(t, rec.Notifications, 1)
	assert.Equal(t, "already done", rec.Notifications[0].Message)
}

func TestDispatchBareRuleShorthand(t *testing.T) {
	prog := loadTaskProgram(t)
	rec := testutil.NewRecorder()

	resp := engine.Dispatch(prog, engine.Request{Event: "UI:BUMP"}, engine.Context{
		Entity: expr.Object{"count": expr.Number(2)},
		Caps:   rec.Capabilities(),
		Logger: testutil.DiscardLogger(),
	})

	assert.Equal(t, 1, resp.Matched)
	require.Len(t, rec.Mutations, 1)
	assert.Equal(t, expr.Number(3), rec.Mutations[0]["count"])
}

func TestDispatchUnknownEvent(t *testing.T) {
	prog := loadTaskProgram(t)

	resp := engine.Dispatch(prog, engine.Request{Event: "UI:NOPE"}, engine.Context{
		Logger: testutil.DiscardLogger(),
	})

	assert.True(t, resp.Success)
	assert.Equal(t, 0, resp.Matched)
	assert.Empty(t, resp.Effects)
}

func TestDispatchStampsSourceTrait(t *testing.T) {
	prog, err := program.ParseJSON([]byte(`{
		"name": "badge",
		"on": {"GO": [["render-ui", "corner", "badge-icon"]]}
	}`))
	require.NoError(t, err)

	rec := testutil.NewRecorder()
	resp := engine.Dispatch(prog, engine.Request{Event: "GO"}, engine.Context{
		Caps:   rec.Capabilities(),
		Logger: testutil.DiscardLogger(),
	})

	assert.True(t, resp.Success)
	require.Len(t, rec.Renders, 1)
	assert.Equal(t, "badge", rec.Renders[0].Content.SourceTrait)
}

func TestDispatchEvalErrorStops(t *testing.T) {
	prog, err := program.ParseJSON([]byte(`{
		"name": "broken",
		"on": {"GO": [{"do": [
			["emit", "first"],
			["frobnicate"],
			["emit", "never"]
		]}]}
	}`))
	require.NoError(t, err)

	rec := testutil.NewRecorder()
	resp := engine.Dispatch(prog, engine.Request{Event: "GO"}, engine.Context{
		Caps:   rec.Capabilities(),
		Logger: testutil.DiscardLogger(),
	})

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "UNKNOWN_OPERATOR")

	// Effects before the failure executed and stay recorded
	require.Len(t, rec.Events, 1)
	assert.Equal(t, "first", rec.Events[0].Event)
	require.Len(t, resp.Effects, 1)
}

func TestDispatchDoesNotMutateBaseContext(t *testing.T) {
	prog := loadTaskProgram(t)

	base := engine.Context{
		Entity: expr.Object{"done": expr.Bool(false)},
		Logger: testutil.DiscardLogger(),
	}
	engine.Dispatch(prog, engine.Request{
		Event:    "UI:COMPLETE",
		Payload:  expr.Object{"id": expr.String("x")},
		EntityID: "t-9",
	}, base)

	assert.Nil(t, base.Payload)
	assert.Empty(t, base.EntityID)
	assert.Nil(t, base.Trace)
}

func TestDispatchSharedTraceAcrossEvents(t *testing.T) {
	prog := loadTaskProgram(t)
	trace := engine.NewTrace()
	rec := testutil.NewRecorder()

	base := engine.Context{
		Entity: expr.Object{"count": expr.Number(0)},
		Caps:   rec.Capabilities(),
		Trace:  trace,
		Logger: testutil.DiscardLogger(),
	}

	engine.Dispatch(prog, engine.Request{Event: "UI:BUMP"}, base)
	engine.Dispatch(prog, engine.Request{Event: "UI:BUMP"}, base)

	require.Equal(t, 2, trace.Len())
	assert.Equal(t, int64(1), trace.Records()[0].Seq)
	assert.Equal(t, int64(2), trace.Records()[1].Seq)
}
