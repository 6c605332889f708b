package engine

import (
	"errors"
	"fmt"
)

// EvalError represents a fatal evaluation error: a malformed or unknown
// construct in an authored expression program. These are authoring
// errors, distinct from the effect layer's logged-and-swallowed runtime
// degradation.
type EvalError struct {
	// Code identifies the error category.
	Code EvalErrorCode

	// Op is the operator being evaluated, when applicable.
	Op string

	// Message is a human-readable description.
	Message string
}

// EvalErrorCode categorizes evaluation errors.
type EvalErrorCode string

const (
	// ErrCodeUnknownOperator indicates an operator name with no pure or
	// effect implementation.
	ErrCodeUnknownOperator EvalErrorCode = "UNKNOWN_OPERATOR"

	// ErrCodeBadArity indicates an operator call with too few arguments.
	ErrCodeBadArity EvalErrorCode = "BAD_ARITY"

	// ErrCodeBadTarget indicates a mutation form whose target is not an
	// @entity binding.
	ErrCodeBadTarget EvalErrorCode = "BAD_TARGET"

	// ErrCodeBadShape indicates an expression whose shape is invalid
	// for its position (e.g. a non-string operation name).
	ErrCodeBadShape EvalErrorCode = "BAD_SHAPE"
)

// Error implements the error interface.
func (e *EvalError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewUnknownOperatorError creates an EvalError for an unrecognized
// operator name.
func NewUnknownOperatorError(op string) *EvalError {
	return &EvalError{
		Code:    ErrCodeUnknownOperator,
		Op:      op,
		Message: "no such operator",
	}
}

// NewArityError creates an EvalError for an operator called with fewer
// arguments than it requires.
func NewArityError(op string, want, got int) *EvalError {
	return &EvalError{
		Code:    ErrCodeBadArity,
		Op:      op,
		Message: fmt.Sprintf("needs at least %d args, got %d", want, got),
	}
}

// NewTargetError creates an EvalError for a mutation target outside the
// entity namespace.
func NewTargetError(op, target string) *EvalError {
	return &EvalError{
		Code:    ErrCodeBadTarget,
		Op:      op,
		Message: fmt.Sprintf("target must be an @entity binding, got %q", target),
	}
}

// IsEvalError reports whether err is (or wraps) an *EvalError and
// returns it.
func IsEvalError(err error) (*EvalError, bool) {
	var evalErr *EvalError
	if errors.As(err, &evalErr) {
		return evalErr, true
	}
	return nil, false
}
