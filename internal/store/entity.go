package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/almadar-io/orbital/internal/expr"
)

// Entity is one stored domain object.
type Entity struct {
	ID    string      `json:"id"`
	Kind  string      `json:"kind"`
	Props expr.Object `json:"props"`
}

// ErrNotFound is returned when an entity id does not exist (or was
// despawned).
var ErrNotFound = errors.New("entity not found")

// Create inserts a new entity and returns it with its generated id.
func (s *Store) Create(ctx context.Context, kind string, props expr.Object) (Entity, error) {
	if props == nil {
		props = expr.Object{}
	}
	propsJSON, err := expr.MarshalCanonical(props)
	if err != nil {
		return Entity{}, fmt.Errorf("create entity: %w", err)
	}

	ent := Entity{ID: s.gen.Generate(), Kind: kind, Props: props}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entities (id, kind, props, seq) VALUES (?, ?, ?, ?)
	`, ent.ID, ent.Kind, string(propsJSON), s.nextSeq())
	if err != nil {
		return Entity{}, fmt.Errorf("create entity: %w", err)
	}
	return ent, nil
}

// Get returns one entity by id.
func (s *Store) Get(ctx context.Context, id string) (Entity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, props FROM entities WHERE id = ? AND deleted = 0
	`, id)
	return scanEntity(row)
}

// Update merges field values into an entity's props. Keys are dot
// paths, matching the mutation keys the set effect produces.
func (s *Store) Update(ctx context.Context, id string, fields map[string]expr.Value) (Entity, error) {
	ent, err := s.Get(ctx, id)
	if err != nil {
		return Entity{}, err
	}

	props := make(expr.Object, len(ent.Props)+len(fields))
	for k, v := range ent.Props {
		props[k] = v
	}
	expr.ApplyFields(props, fields)

	propsJSON, err := expr.MarshalCanonical(props)
	if err != nil {
		return Entity{}, fmt.Errorf("update entity: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE entities SET props = ?, seq = ? WHERE id = ? AND deleted = 0
	`, string(propsJSON), s.nextSeq(), id)
	if err != nil {
		return Entity{}, fmt.Errorf("update entity: %w", err)
	}
	ent.Props = props
	return ent, nil
}

// Delete soft-deletes an entity. Deleting an unknown id is a no-op so
// despawn stays idempotent.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE entities SET deleted = 1, seq = ? WHERE id = ?
	`, s.nextSeq(), id)
	if err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	return nil
}

// List returns all live entities of a kind, ordered by logical write
// counter then id for deterministic results.
func (s *Store) List(ctx context.Context, kind string) ([]Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, props FROM entities
		WHERE kind = ? AND deleted = 0
		ORDER BY seq ASC, id ASC
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		ent, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ent)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (Entity, error) {
	var ent Entity
	var propsJSON string
	if err := row.Scan(&ent.ID, &ent.Kind, &propsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entity{}, ErrNotFound
		}
		return Entity{}, fmt.Errorf("scan entity: %w", err)
	}

	val, err := expr.UnmarshalValue([]byte(propsJSON))
	if err != nil {
		return Entity{}, fmt.Errorf("decode entity props: %w", err)
	}
	props, ok := val.(expr.Object)
	if !ok {
		return Entity{}, fmt.Errorf("entity props must be an object, got %s", expr.TypeName(val))
	}
	ent.Props = props
	return ent, nil
}
