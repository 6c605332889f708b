// Package expr provides the value and expression model for the Orbital
// effect core.
//
// This package contains type definitions and codecs only. All other
// internal packages import expr; expr imports nothing internal. This
// keeps it the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Values are a sealed tagged union: null, string, number, bool,
//     list, object. All numbers are float64.
//   - Undefined (a missing value) is the nil Value, distinct from Null.
//     Undefined never crosses the wire; it exists only in memory.
//   - Expressions are immutable trees: literal, binding path ("@" form),
//     or operator call. Evaluation lives in internal/engine.
//   - Numeric and boolean coercion is total - never an error, never NaN.
package expr
