package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almadar-io/orbital/internal/expr"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	s.SetIDGenerator(NewFixedGenerator("ent"))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "task", expr.Object{
		"title": expr.String("Buy milk"),
		"done":  expr.Bool(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "ent-1", created.ID)
	assert.Equal(t, "task", created.Kind)

	got, err := s.Get(ctx, "ent-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Kind, got.Kind)
	assert.True(t, expr.Equal(created.Props, got.Props))
}

func TestCreateNilProps(t *testing.T) {
	s := newTestStore(t)

	created, err := s.Create(context.Background(), "task", nil)
	require.NoError(t, err)

	got, err := s.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, expr.Equal(expr.Object{}, got.Props))
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateMergesDotPaths(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "task", expr.Object{
		"title": expr.String("Buy milk"),
		"meta": expr.Object{
			"owner": expr.String("ali"),
			"rank":  expr.Number(1),
		},
	})
	require.NoError(t, err)

	updated, err := s.Update(ctx, "ent-1", map[string]expr.Value{
		"meta.rank": expr.Number(2),
		"done":      expr.Bool(true),
	})
	require.NoError(t, err)

	want := expr.Object{
		"title": expr.String("Buy milk"),
		"done":  expr.Bool(true),
		"meta": expr.Object{
			"owner": expr.String("ali"),
			"rank":  expr.Number(2),
		},
	}
	assert.True(t, expr.Equal(want, updated.Props))

	got, err := s.Get(ctx, "ent-1")
	require.NoError(t, err)
	assert.True(t, expr.Equal(want, got.Props))
}

func TestUpdateMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Update(context.Background(), "nope", map[string]expr.Value{
		"done": expr.Bool(true),
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteIsSoftAndIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "task", nil)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, created.ID))

	_, err = s.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again, or deleting an id that never existed, stays quiet.
	assert.NoError(t, s.Delete(ctx, created.ID))
	assert.NoError(t, s.Delete(ctx, "never-existed"))
}

func TestListOrderFollowsWriteCounter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c"} {
		_, err := s.Create(ctx, "task", expr.Object{"title": expr.String(title)})
		require.NoError(t, err)
	}

	ents, err := s.List(ctx, "task")
	require.NoError(t, err)
	require.Len(t, ents, 3)
	assert.Equal(t, "ent-1", ents[0].ID)
	assert.Equal(t, "ent-3", ents[2].ID)

	// An update bumps the entity's write counter, moving it to the end.
	_, err = s.Update(ctx, "ent-1", map[string]expr.Value{"title": expr.String("a2")})
	require.NoError(t, err)

	ents, err = s.List(ctx, "task")
	require.NoError(t, err)
	require.Len(t, ents, 3)
	assert.Equal(t, "ent-2", ents[0].ID)
	assert.Equal(t, "ent-1", ents[2].ID)
}

func TestReopenContinuesWriteCounter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	s.SetIDGenerator(NewFixedGenerator("run1"))
	for _, title := range []string{"a", "b"} {
		_, err := s.Create(ctx, "task", expr.Object{"title": expr.String(title)})
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())

	// A fresh process on the same database must not reuse old counter
	// values, or its writes would sort before existing rows.
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	s.SetIDGenerator(NewFixedGenerator("run2"))
	_, err = s.Create(ctx, "task", expr.Object{"title": expr.String("c")})
	require.NoError(t, err)

	ents, err := s.List(ctx, "task")
	require.NoError(t, err)
	require.Len(t, ents, 3)
	assert.Equal(t, "run1-1", ents[0].ID)
	assert.Equal(t, "run1-2", ents[1].ID)
	assert.Equal(t, "run2-1", ents[2].ID)
}

func TestListFiltersKindAndDeleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task, err := s.Create(ctx, "task", nil)
	require.NoError(t, err)
	_, err = s.Create(ctx, "note", nil)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, task.ID))

	ents, err := s.List(ctx, "task")
	require.NoError(t, err)
	assert.Empty(t, ents)

	ents, err = s.List(ctx, "note")
	require.NoError(t, err)
	assert.Len(t, ents, 1)
}

func TestFixedGeneratorSequence(t *testing.T) {
	gen := NewFixedGenerator("x")
	assert.Equal(t, "x-1", gen.Generate())
	assert.Equal(t, "x-2", gen.Generate())
	assert.Equal(t, "x-3", gen.Generate())
}

func TestUUIDv7Generator(t *testing.T) {
	id, err := uuid.Parse(UUIDv7Generator{}.Generate())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}
