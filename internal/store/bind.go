package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/almadar-io/orbital/internal/engine"
	"github.com/almadar-io/orbital/internal/expr"
)

// DefaultKind is the entity kind used when a persist/spawn document
// does not name one.
const DefaultKind = "entity"

// Bind wires the repository into a handler bag as the persist, spawn
// and despawn capabilities. Other capabilities are left untouched; the
// host layers them separately.
//
// Persist data documents may carry a "kind" field naming the entity
// kind; the remaining fields are the entity props. For update, fields
// merge into the focused entity's props under their dot paths.
func (s *Store) Bind(caps *engine.Capabilities, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	caps.Persist = func(ctx context.Context, action, entityID string, data expr.Value) error {
		return s.persist(ctx, action, entityID, data)
	}

	caps.Spawn = func(kind string, props expr.Value) {
		if kind == "" {
			kind = DefaultKind
		}
		propsObj, _ := props.(expr.Object)
		ent, err := s.Create(context.Background(), kind, propsObj)
		if err != nil {
			logger.Error("spawn failed", "kind", kind, "error", err)
			return
		}
		logger.Info("entity spawned", "kind", kind, "id", ent.ID)
	}

	caps.Despawn = func(id string) {
		if err := s.Delete(context.Background(), id); err != nil {
			logger.Error("despawn failed", "id", id, "error", err)
		}
	}
}

func (s *Store) persist(ctx context.Context, action, entityID string, data expr.Value) error {
	doc, _ := data.(expr.Object)

	switch action {
	case "create":
		kind := DefaultKind
		props := make(expr.Object, len(doc))
		for k, v := range doc {
			if k == "kind" {
				kind = expr.ToString(v)
				continue
			}
			props[k] = v
		}
		_, err := s.Create(ctx, kind, props)
		return err

	case "update":
		id := entityID
		if fromDoc := expr.ToString(doc.Field("id")); fromDoc != "" {
			id = fromDoc
		}
		if id == "" {
			return fmt.Errorf("persist update: no entity id")
		}
		fields := make(map[string]expr.Value, len(doc))
		for k, v := range doc {
			if k == "id" || k == "kind" {
				continue
			}
			fields[k] = v
		}
		_, err := s.Update(ctx, id, fields)
		return err

	case "delete":
		id := entityID
		if fromDoc := expr.ToString(doc.Field("id")); fromDoc != "" {
			id = fromDoc
		}
		if id == "" {
			return fmt.Errorf("persist delete: no entity id")
		}
		return s.Delete(ctx, id)

	default:
		return fmt.Errorf("persist: unknown action %q", action)
	}
}
