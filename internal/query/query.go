// Package query provides named query-singleton state: the search,
// filter and sort state shared by every UI component looking at the
// same logical query.
//
// The registry is an explicit object constructed and owned by the host
// and injected into evaluation contexts - there is no process-global
// lookup. Reset exists for test isolation.
package query

import "github.com/almadar-io/orbital/internal/expr"

// State is the mutable state of one logical query. It is mutated only
// through its setters and read by the binding resolver via Value().
type State struct {
	search        string
	filters       map[string]expr.Value
	sortField     string
	sortDirection string
}

func newState() *State {
	return &State{filters: make(map[string]expr.Value)}
}

// Search returns the current search text.
func (s *State) Search() string { return s.search }

// SetSearch replaces the search text.
func (s *State) SetSearch(text string) { s.search = text }

// SetFilter sets one filter value. Filter keys are unique; setting an
// existing key replaces it.
func (s *State) SetFilter(key string, value expr.Value) {
	s.filters[key] = value
}

// RemoveFilter deletes a filter key. Removing an absent key is a no-op.
func (s *State) RemoveFilter(key string) {
	delete(s.filters, key)
}

// Filter returns one filter value, or undefined when unset.
func (s *State) Filter(key string) expr.Value {
	return s.filters[key]
}

// Filters returns a copy of all filter values.
func (s *State) Filters() map[string]expr.Value {
	out := make(map[string]expr.Value, len(s.filters))
	for k, v := range s.filters {
		out[k] = v
	}
	return out
}

// Sort returns the sort field and direction.
func (s *State) Sort() (field, direction string) {
	return s.sortField, s.sortDirection
}

// SetSort replaces the sort field and direction.
func (s *State) SetSort(field, direction string) {
	s.sortField = field
	s.sortDirection = direction
}

// Clear resets the state to its zero form.
func (s *State) Clear() {
	s.search = ""
	s.filters = make(map[string]expr.Value)
	s.sortField = ""
	s.sortDirection = ""
}

// Value renders the state as an object for binding resolution:
// @query:<name>.search, @query:<name>.filters.<key>,
// @query:<name>.sortField, @query:<name>.sortDirection.
func (s *State) Value() expr.Object {
	filters := make(expr.Object, len(s.filters))
	for k, v := range s.filters {
		filters[k] = v
	}
	return expr.Object{
		"search":        expr.String(s.search),
		"filters":       filters,
		"sortField":     expr.String(s.sortField),
		"sortDirection": expr.String(s.sortDirection),
	}
}

// Registry holds query states by name. States are created lazily on
// first reference and live until Reset.
type Registry struct {
	states map[string]*State
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{states: make(map[string]*State)}
}

// Get returns the state for a query name, creating it on first use.
func (r *Registry) Get(name string) *State {
	state, ok := r.states[name]
	if !ok {
		state = newState()
		r.states[name] = state
	}
	return state
}

// Lookup returns the state for a query name without creating it.
// The binding resolver uses this so that reading @query:x does not
// materialize x as a side effect.
func (r *Registry) Lookup(name string) (*State, bool) {
	state, ok := r.states[name]
	return state, ok
}

// Names returns the names of all materialized queries, unordered.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.states))
	for name := range r.states {
		names = append(names, name)
	}
	return names
}

// Reset drops all query states. Intended for test isolation and host
// teardown.
func (r *Registry) Reset() {
	r.states = make(map[string]*State)
}
