// Package program loads trait program documents: the expression
// programs an external trait/state-machine engine produces in response
// to events.
//
// A program document maps event keys to ordered rule lists. Each rule
// carries an optional guard expression and the effect expressions to
// run when the guard holds. Programs can be authored in JSON or CUE;
// both decode into the same Program form. The trait engine itself -
// state tracking, transitions, authoring tooling - is out of scope
// here; this package only carries its output across the boundary.
package program

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/almadar-io/orbital/internal/expr"
)

// Program is a compiled trait program: event key -> rules in
// declaration order. Rule order is preserved; dispatch evaluates rules
// top to bottom.
type Program struct {
	// Name identifies the trait that produced the program.
	Name string

	// Rules maps event keys (e.g. "UI:SAVE") to their rules.
	Rules map[string][]Rule

	// order preserves the event keys' declaration order for
	// deterministic validation output.
	order []string
}

// Rule is one guarded effect list.
type Rule struct {
	// When is the guard expression; a nil guard always holds.
	When expr.Expr

	// Do holds the effect expressions to evaluate in order.
	Do []expr.Expr
}

// Events returns the program's event keys in declaration order.
func (p *Program) Events() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// RulesFor returns the rules for an event key, in declaration order.
// An unknown event yields nil: an event with no rules is not an error.
func (p *Program) RulesFor(event string) []Rule {
	return p.Rules[event]
}

// document is the raw wire shape of a program file.
type document struct {
	Name string                       `json:"name"`
	On   map[string][]json.RawMessage `json:"on"`

	// onOrder is filled by decodeDocument from the raw key order.
	onOrder []string
}

// ruleDoc is the raw wire shape of one rule. A rule may also be written
// as a bare expression array, shorthand for an unguarded single effect.
type ruleDoc struct {
	When json.RawMessage   `json:"when"`
	Do   []json.RawMessage `json:"do"`
}

// ParseJSON compiles a JSON program document.
func ParseJSON(data []byte) (*Program, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse program document: %w", err)
	}
	if err := decodeKeyOrder(data, &doc); err != nil {
		return nil, err
	}
	return compile(&doc)
}

// Load reads and compiles a program file. The format is chosen by
// extension: .cue compiles through the CUE API, everything else is
// treated as JSON.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}

	if filepath.Ext(path) == ".cue" {
		return ParseCUE(path, data)
	}
	return ParseJSON(data)
}

func compile(doc *document) (*Program, error) {
	prog := &Program{
		Name:  doc.Name,
		Rules: make(map[string][]Rule, len(doc.On)),
		order: doc.onOrder,
	}

	for event, rawRules := range doc.On {
		rules := make([]Rule, 0, len(rawRules))
		for i, raw := range rawRules {
			rule, err := compileRule(raw)
			if err != nil {
				return nil, fmt.Errorf("event %q rule %d: %w", event, i, err)
			}
			rules = append(rules, rule)
		}
		prog.Rules[event] = rules
	}
	return prog, nil
}

func compileRule(raw json.RawMessage) (Rule, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		// Bare expression shorthand: an unguarded single effect.
		e, err := expr.ParseExpr(raw)
		if err != nil {
			return Rule{}, err
		}
		return Rule{Do: []expr.Expr{e}}, nil
	}

	var doc ruleDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Rule{}, err
	}

	rule := Rule{}
	if len(doc.When) > 0 {
		guard, err := expr.ParseExpr(doc.When)
		if err != nil {
			return Rule{}, fmt.Errorf("when: %w", err)
		}
		rule.When = guard
	}
	for i, rawDo := range doc.Do {
		e, err := expr.ParseExpr(rawDo)
		if err != nil {
			return Rule{}, fmt.Errorf("do[%d]: %w", i, err)
		}
		rule.Do = append(rule.Do, e)
	}
	return rule, nil
}

// decodeKeyOrder re-reads the "on" object to preserve its key order,
// which encoding/json's map decoding discards.
func decodeKeyOrder(data []byte, doc *document) error {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(data, &outer); err != nil {
		return fmt.Errorf("parse program document: %w", err)
	}
	raw, ok := outer["on"]
	if !ok {
		return nil
	}

	dec := json.NewDecoder(strings.NewReader(string(raw)))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("parse program events: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("program \"on\" must be an object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("parse program events: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("program event key must be a string")
		}
		doc.onOrder = append(doc.onOrder, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return fmt.Errorf("parse program event %q: %w", key, err)
		}
	}
	return nil
}

// Validate walks every expression in the program and reports authoring
// errors that would otherwise surface at dispatch time: operator names
// the engine does not know. isKnown is the engine's operator predicate,
// passed in so this package stays independent of the evaluator.
func (p *Program) Validate(isKnown func(string) bool) []error {
	var errs []error

	// Programs built in code have no recorded key order, so fall back
	// to sorted event names to keep error order deterministic.
	events := p.order
	if len(events) == 0 {
		for event := range p.Rules {
			events = append(events, event)
		}
		sort.Strings(events)
	}

	for _, event := range events {
		for i, rule := range p.Rules[event] {
			if rule.When != nil {
				errs = append(errs, validateExpr(rule.When, isKnown, fmt.Sprintf("%s rule %d when", event, i))...)
			}
			for j, e := range rule.Do {
				errs = append(errs, validateExpr(e, isKnown, fmt.Sprintf("%s rule %d do[%d]", event, i, j))...)
			}
		}
	}
	return errs
}

func validateExpr(e expr.Expr, isKnown func(string) bool, at string) []error {
	call, ok := e.(expr.Call)
	if !ok {
		return nil
	}

	var errs []error
	if !isKnown(call.Op) {
		errs = append(errs, fmt.Errorf("%s: unknown operator %q", at, call.Op))
	}
	for _, arg := range call.Args {
		errs = append(errs, validateExpr(arg, isKnown, at)...)
	}
	return errs
}
