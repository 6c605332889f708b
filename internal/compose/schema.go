package compose

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/almadar-io/orbital/internal/expr"
	"github.com/almadar-io/orbital/internal/slots"
)

//go:embed schemas
var schemaFS embed.FS

// SchemaError is a single validation error against the slot-content
// wire schema.
type SchemaError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e SchemaError) String() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Validator checks slot content wire documents against the embedded
// JSON Schema before they are decoded into typed content. This is the
// parse-once boundary: documents validated here never need re-checking
// during composition.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the embedded slot-content schema.
func NewValidator() (*Validator, error) {
	data, err := schemaFS.ReadFile("schemas/slot-content.json")
	if err != nil {
		return nil, fmt.Errorf("read embedded schema: %w", err)
	}

	var schemaDoc any
	if err := json.Unmarshal(data, &schemaDoc); err != nil {
		return nil, fmt.Errorf("parse embedded schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("slot-content.json", schemaDoc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	schema, err := c.Compile("slot-content.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// ValidateDocument validates an already-parsed JSON document.
func (v *Validator) ValidateDocument(doc any) []SchemaError {
	err := v.schema.Validate(doc)
	if err == nil {
		return nil
	}

	validationErr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []SchemaError{{Message: err.Error()}}
	}

	return collectErrors(validationErr)
}

// DecodeContent validates a raw wire document and decodes it into
// typed slot content. A null pattern decodes as the clear signal
// (nil content, no error).
func (v *Validator) DecodeContent(data []byte) (*slots.Content, []SchemaError) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, []SchemaError{{Message: fmt.Sprintf("parse JSON: %v", err)}}
	}

	if errs := v.ValidateDocument(doc); len(errs) > 0 {
		return nil, errs
	}

	obj, _ := expr.FromGo(doc).(expr.Object)
	if _, isNull := obj.Field("pattern").(expr.Null); isNull {
		return nil, nil
	}

	content := &slots.Content{
		ID:          expr.ToString(obj.Field("id")),
		Pattern:     expr.ToString(obj.Field("pattern")),
		SourceTrait: expr.ToString(obj.Field("source_trait")),
	}
	if props, ok := obj.Field("props").(expr.Object); ok {
		content.Props = props
	}
	if prio, ok := obj.Field("priority").(expr.Number); ok {
		p := float64(prio)
		content.Priority = &p
	}
	return content, nil
}

// collectErrors recursively collects leaf validation errors.
func collectErrors(ve *jsonschema.ValidationError) []SchemaError {
	var errs []SchemaError

	instancePath := "/" + strings.Join(ve.InstanceLocation, "/")
	if len(ve.InstanceLocation) == 0 {
		instancePath = ""
	}

	if len(ve.Causes) == 0 {
		msg := ve.Error()
		if msg != "" {
			errs = append(errs, SchemaError{Path: instancePath, Message: msg})
		}
	} else {
		for _, cause := range ve.Causes {
			errs = append(errs, collectErrors(cause)...)
		}
	}

	return errs
}
