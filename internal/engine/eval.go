package engine

import (
	"math"

	"github.com/almadar-io/orbital/internal/expr"
)

// Evaluate resolves an expression against a context.
//
// Dispatch by shape:
//   - literal: yields its value unchanged
//   - binding: delegates to Resolve (undefined on any failure)
//   - operator call: short-circuit form, pure operator, or effect form
//
// The only errors Evaluate returns are *EvalError authoring errors:
// unknown operator, bad arity, bad mutation target. Everything else -
// missing bindings, type mismatches, degraded effect execution - is
// absorbed by total coercions and the effect layer's logging policy.
func Evaluate(e expr.Expr, ctx *Context) (expr.Value, error) {
	switch node := e.(type) {
	case expr.Lit:
		return node.Val, nil
	case expr.Binding:
		return Resolve(node.Path(), ctx), nil
	case expr.Call:
		return evaluateCall(node, ctx)
	default:
		return nil, &EvalError{Code: ErrCodeBadShape, Message: "nil or unknown expression"}
	}
}

func evaluateCall(call expr.Call, ctx *Context) (expr.Value, error) {
	// Short-circuit forms evaluate their own arguments: sub-expressions
	// in an untaken branch must not execute, because they may nest
	// effects.
	if fn, ok := lazyOps[call.Op]; ok {
		return fn(call.Args, ctx)
	}

	if fn, ok := pureOps[call.Op]; ok {
		args, err := evaluateArgs(call.Op, call.Args, ctx)
		if err != nil {
			return nil, err
		}
		return fn(args), nil
	}

	if fn, ok := effectOps[call.Op]; ok {
		return fn(call.Args, ctx)
	}

	return nil, NewUnknownOperatorError(call.Op)
}

func evaluateArgs(op string, args []expr.Expr, ctx *Context) ([]expr.Value, error) {
	vals := make([]expr.Value, len(args))
	for i, arg := range args {
		v, err := Evaluate(arg, ctx)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

// KnownOperator reports whether name is a recognized operator (pure,
// short-circuit or effect form). Used by program validation to surface
// authoring errors before dispatch time.
func KnownOperator(name string) bool {
	if _, ok := lazyOps[name]; ok {
		return true
	}
	if _, ok := pureOps[name]; ok {
		return true
	}
	_, ok := effectOps[name]
	return ok
}

// lazyOps receive unevaluated argument expressions.
type lazyOp func(args []expr.Expr, ctx *Context) (expr.Value, error)

var lazyOps map[string]lazyOp

func init() {
	// Populated here rather than in the declaration to break the
	// compile-time initialization cycle through Evaluate.
	lazyOps = map[string]lazyOp{
		"if":   opIf,
		"cond": opCond,
		"and":  opAnd,
		"or":   opOr,
	}
}

// opIf evaluates the condition, then only the selected branch.
// ["if", cond, then] or ["if", cond, then, else]; a missing else
// yields undefined.
func opIf(args []expr.Expr, ctx *Context) (expr.Value, error) {
	if len(args) < 2 {
		return nil, NewArityError("if", 2, len(args))
	}

	cond, err := Evaluate(args[0], ctx)
	if err != nil {
		return nil, err
	}

	if expr.ToBool(cond) {
		return Evaluate(args[1], ctx)
	}
	if len(args) > 2 {
		return Evaluate(args[2], ctx)
	}
	return nil, nil
}

// opCond is the multi-branch conditional: ["cond", test1, result1,
// test2, result2, ..., default?]. Tests evaluate in order and only the
// first holding branch's result runs; a trailing odd argument is the
// default. No branch and no default yields undefined.
func opCond(args []expr.Expr, ctx *Context) (expr.Value, error) {
	if len(args) < 2 {
		return nil, NewArityError("cond", 2, len(args))
	}

	i := 0
	for ; i+1 < len(args); i += 2 {
		test, err := Evaluate(args[i], ctx)
		if err != nil {
			return nil, err
		}
		if expr.ToBool(test) {
			return Evaluate(args[i+1], ctx)
		}
	}
	if i < len(args) {
		return Evaluate(args[i], ctx)
	}
	return nil, nil
}

// opAnd short-circuits on the first falsy argument.
func opAnd(args []expr.Expr, ctx *Context) (expr.Value, error) {
	for _, arg := range args {
		v, err := Evaluate(arg, ctx)
		if err != nil {
			return nil, err
		}
		if !expr.ToBool(v) {
			return expr.Bool(false), nil
		}
	}
	return expr.Bool(true), nil
}

// opOr short-circuits on the first truthy argument.
func opOr(args []expr.Expr, ctx *Context) (expr.Value, error) {
	for _, arg := range args {
		v, err := Evaluate(arg, ctx)
		if err != nil {
			return nil, err
		}
		if expr.ToBool(v) {
			return expr.Bool(true), nil
		}
	}
	return expr.Bool(false), nil
}

// pureOps receive evaluated arguments. All are total: missing arguments
// read as undefined and flow through the coercions.
type pureOp func(args []expr.Value) expr.Value

var pureOps = map[string]pureOp{
	"eq":  func(args []expr.Value) expr.Value { return expr.Bool(expr.Equal(arg(args, 0), arg(args, 1))) },
	"neq": func(args []expr.Value) expr.Value { return expr.Bool(!expr.Equal(arg(args, 0), arg(args, 1))) },
	"gt":  comparison(func(a, b float64) bool { return a > b }),
	"gte": comparison(func(a, b float64) bool { return a >= b }),
	"lt":  comparison(func(a, b float64) bool { return a < b }),
	"lte": comparison(func(a, b float64) bool { return a <= b }),
	"not": func(args []expr.Value) expr.Value { return expr.Bool(!expr.ToBool(arg(args, 0))) },

	"add":      arithmetic(func(a, b float64) float64 { return a + b }),
	"subtract": arithmetic(func(a, b float64) float64 { return a - b }),
	"multiply": arithmetic(func(a, b float64) float64 { return a * b }),
	"divide":   arithmetic(safeDivide),
	"mod":      arithmetic(safeMod),
}

func init() {
	// Symbol aliases for the arithmetic and comparison names.
	for alias, name := range map[string]string{
		"+": "add", "-": "subtract", "*": "multiply", "/": "divide", "%": "mod",
		"==": "eq", "!=": "neq", ">": "gt", ">=": "gte", "<": "lt", "<=": "lte",
	} {
		pureOps[alias] = pureOps[name]
	}
}

// arg returns the i-th argument or undefined, so operators stay total
// under short argument lists.
func arg(args []expr.Value, i int) expr.Value {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func comparison(cmp func(a, b float64) bool) pureOp {
	return func(args []expr.Value) expr.Value {
		return expr.Bool(cmp(expr.ToNumber(arg(args, 0)), expr.ToNumber(arg(args, 1))))
	}
}

// arithmetic folds all arguments left to right, so ["add", 1, 2, 3]
// works as expected. A single argument folds against the identity
// behavior of coercion: ["subtract", 5] is 5.
func arithmetic(apply func(a, b float64) float64) pureOp {
	return func(args []expr.Value) expr.Value {
		if len(args) == 0 {
			return expr.Number(0)
		}
		acc := expr.ToNumber(args[0])
		for _, v := range args[1:] {
			acc = apply(acc, expr.ToNumber(v))
		}
		if math.IsNaN(acc) || math.IsInf(acc, 0) {
			return expr.Number(0)
		}
		return expr.Number(acc)
	}
}

// safeDivide falls back to 0 on division by zero: numeric results are
// total, never NaN or an infinity.
func safeDivide(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func safeMod(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return math.Mod(a, b)
}
