package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: an initial entity, a
// trait program, a sequence of events, and assertions over the
// resulting effect trace, entity and slot state.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Program is the path to the trait program file (JSON or CUE),
	// relative to the scenario file location.
	Program string `yaml:"program"`

	// Entity is the initial focused entity state.
	Entity map[string]any `yaml:"entity,omitempty"`

	// EntityID is the focused entity id. Defaults to "test-entity" for
	// deterministic golden output.
	EntityID string `yaml:"entity_id,omitempty"`

	// Steps are the events to dispatch, in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one dispatched event.
type Step struct {
	// Event is the event key (e.g. "UI:SAVE").
	Event string `yaml:"event"`

	// Payload is the event payload.
	Payload map[string]any `yaml:"payload,omitempty"`
}

// Assertion validates the outcome of a scenario run.
//
// Supported types:
//   - trace_contains: an effect of Kind with Detail as a subset match
//   - trace_count: exactly Count effects of Kind (all effects when
//     Kind is empty)
//   - entity_field: the entity Field (dot path) equals Value
//   - slot_content: the slot holds content with Pattern
//   - slot_empty: the slot holds nothing
//   - persisted_count: the repository holds exactly Count live entities
//     of Kind, checked after in-flight persist effects have drained
type Assertion struct {
	Type    string         `yaml:"type"`
	Kind    string         `yaml:"kind,omitempty"`
	Detail  map[string]any `yaml:"detail,omitempty"`
	Count   *int           `yaml:"count,omitempty"`
	Field   string         `yaml:"field,omitempty"`
	Value   any            `yaml:"value,omitempty"`
	Slot    string         `yaml:"slot,omitempty"`
	Pattern string         `yaml:"pattern,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. The returned
// base directory resolves the scenario's relative program path.
func LoadScenario(path string) (*Scenario, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read scenario: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return scenario, filepath.Dir(path), nil
}

// ParseScenario parses scenario YAML. Unknown fields are rejected so a
// typoed assertion key fails loudly instead of silently never running.
func ParseScenario(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var scenario Scenario
	if err := dec.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if scenario.Name == "" {
		return nil, fmt.Errorf("scenario must have a name")
	}
	if scenario.Program == "" {
		return nil, fmt.Errorf("scenario %q must reference a program", scenario.Name)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q must have at least one step", scenario.Name)
	}
	if scenario.EntityID == "" {
		scenario.EntityID = "test-entity"
	}
	return &scenario, nil
}
