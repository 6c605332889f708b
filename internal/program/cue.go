package program

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError reports a program document that failed to compile, with
// source position when the CUE evaluator provides one.
type CompileError struct {
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", e.Pos, e.Message)
	}
	return e.Message
}

// ParseCUE compiles a CUE program document. The document must evaluate
// to the same shape as the JSON form:
//
//	name: "cart"
//	on: "UI:SAVE": [{when: [...], do: [[...]]}]
//
// Uses the CUE SDK's Go API directly (not a CLI subprocess). The
// evaluated value is exported to JSON and fed through the JSON
// compiler, so constraints, references and interpolation all work.
func ParseCUE(filename string, data []byte) (*Program, error) {
	ctx := cuecontext.New()

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	jsonData, err := v.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}

	return ParseJSON(jsonData)
}

// formatCUEError extracts the first positioned error from a CUE error
// list for a readable diagnostic.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return &CompileError{Message: firstErr.Error()}
}
