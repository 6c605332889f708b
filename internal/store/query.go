package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/almadar-io/orbital/internal/expr"
	"github.com/almadar-io/orbital/internal/query"
)

// Materialize runs a query state against all live entities of a kind
// and returns the matching entities.
//
// Every compiled statement carries an ORDER BY with a seq/id tiebreaker
// so results are deterministic, and every value travels as a bound
// parameter, never interpolated.
func (s *Store) Materialize(ctx context.Context, kind string, state *query.State) ([]Entity, error) {
	sqlText, params, err := compileQuery(kind, state)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("materialize query: %w", err)
	}
	defer rows.Close()

	var entities []Entity
	for rows.Next() {
		ent, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, ent)
	}
	return entities, rows.Err()
}

// compileQuery builds the SQL for a query state.
func compileQuery(kind string, state *query.State) (string, []any, error) {
	var where []string
	var params []any

	where = append(where, "deleted = 0", "kind = ?")
	params = append(params, kind)

	if state != nil {
		if search := state.Search(); search != "" {
			// Substring match over the serialized props, case folded.
			where = append(where, "instr(lower(props), lower(?)) > 0")
			params = append(params, search)
		}

		filterSQL, filterParams, err := compileFilters(state.Filters())
		if err != nil {
			return "", nil, err
		}
		where = append(where, filterSQL...)
		params = append(params, filterParams...)
	}

	orderBy, orderParams, err := compileOrder(state)
	if err != nil {
		return "", nil, err
	}

	sqlText := fmt.Sprintf(
		"SELECT id, kind, props FROM entities WHERE %s ORDER BY %s",
		strings.Join(where, " AND "),
		orderBy)

	// ORDER BY parameters bind after WHERE parameters.
	params = append(params, orderParams...)

	return sqlText, params, nil
}

// compileFilters converts filter values to json_extract equality
// predicates. Keys are sorted so the compiled SQL is stable.
func compileFilters(filters map[string]expr.Value) ([]string, []any, error) {
	if len(filters) == 0 {
		return nil, nil, nil
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var clauses []string
	var params []any
	for _, key := range keys {
		param, err := valueParam(filters[key])
		if err != nil {
			return nil, nil, fmt.Errorf("filter %q: %w", key, err)
		}
		if param == nil {
			clauses = append(clauses, "json_extract(props, ?) IS NULL")
			params = append(params, jsonPath(key))
			continue
		}
		clauses = append(clauses, "json_extract(props, ?) = ?")
		params = append(params, jsonPath(key), param)
	}
	return clauses, params, nil
}

// compileOrder builds the ORDER BY clause. The sort direction is
// validated against a whitelist since SQL keywords cannot be bound.
func compileOrder(state *query.State) (string, []any, error) {
	tiebreaker := "seq ASC, id ASC COLLATE BINARY"

	if state == nil {
		return tiebreaker, nil, nil
	}
	field, direction := state.Sort()
	if field == "" {
		return tiebreaker, nil, nil
	}

	dir := "ASC"
	switch strings.ToLower(direction) {
	case "", "asc":
	case "desc":
		dir = "DESC"
	default:
		return "", nil, fmt.Errorf("invalid sort direction %q", direction)
	}

	return fmt.Sprintf("json_extract(props, ?) %s, %s", dir, tiebreaker),
		[]any{jsonPath(field)}, nil
}

// jsonPath turns a dot path into a SQLite JSON path expression.
func jsonPath(field string) string {
	return "$." + field
}

// valueParam converts a value to a Go native type usable as a SQL
// parameter. Lists and objects have no scalar SQL form.
func valueParam(v expr.Value) (any, error) {
	switch val := v.(type) {
	case nil, expr.Null:
		return nil, nil
	case expr.String:
		return string(val), nil
	case expr.Number:
		return float64(val), nil
	case expr.Bool:
		return bool(val), nil
	case expr.List:
		return nil, fmt.Errorf("list cannot be used as SQL parameter")
	case expr.Object:
		return nil, fmt.Errorf("object cannot be used as SQL parameter")
	default:
		return nil, fmt.Errorf("unsupported value type %T for SQL parameter", v)
	}
}
