package engine

import (
	"context"
	"strings"

	"github.com/almadar-io/orbital/internal/expr"
	"github.com/almadar-io/orbital/internal/slots"
)

// effectOps maps side-effecting operator names to their executors.
// Effects receive unevaluated argument expressions: mutation targets
// are inspected as bindings, and everything else is evaluated on use.
var effectOps map[string]lazyOp

func init() {
	// Populated here rather than in the declaration to break the
	// compile-time initialization cycle through Evaluate.
	effectOps = map[string]lazyOp{
		"set":          effectSet,
		"set-dynamic":  effectSetDynamic,
		"increment":    effectIncrement,
		"decrement":    effectDecrement,
		"emit":         effectEmit,
		"persist":      effectPersist,
		"navigate":     effectNavigate,
		"notify":       effectNotify,
		"spawn":        effectSpawn,
		"despawn":      effectDespawn,
		"call-service": effectCallService,
		"render-ui":    effectRenderUI,
	}
}

// entityTarget validates that a mutation target is an @entity binding
// and returns the field path relative to the entity root. Only entity
// mutation is supported through set; any other target is an authoring
// error.
func entityTarget(op string, target expr.Expr) (string, error) {
	binding, ok := target.(expr.Binding)
	if !ok {
		return "", NewTargetError(op, "non-binding expression")
	}
	field, ok := strings.CutPrefix(binding.Path(), "entity.")
	if !ok || field == "" {
		return "", NewTargetError(op, "@"+binding.Path())
	}
	return field, nil
}

// effectSet implements ["set", binding, value, operation?].
//
// Without an operation the value is written verbatim. With one of
// increment/decrement/multiply the current value is read through the
// resolver, both operands coerced with ToNumber, and the result
// written. append produces a new list with the value appended (or a
// singleton list when the current value is not a list); remove filters
// elements equal to the value (or yields an empty list).
func effectSet(args []expr.Expr, ctx *Context) (expr.Value, error) {
	if len(args) < 2 {
		return nil, NewArityError("set", 2, len(args))
	}

	field, err := entityTarget("set", args[0])
	if err != nil {
		return nil, err
	}

	value, err := Evaluate(args[1], ctx)
	if err != nil {
		return nil, err
	}

	operation := ""
	if len(args) > 2 {
		opVal, err := Evaluate(args[2], ctx)
		if err != nil {
			return nil, err
		}
		operation = expr.ToString(opVal)
	}

	return applyMutation(ctx, field, value, operation)
}

// effectSetDynamic implements ["set-dynamic", pathExpr, value]. The
// path expression evaluates to a runtime-computed dot path used
// directly as the mutation key, for field names not known at authoring
// time.
func effectSetDynamic(args []expr.Expr, ctx *Context) (expr.Value, error) {
	if len(args) < 2 {
		return nil, NewArityError("set-dynamic", 2, len(args))
	}

	pathVal, err := Evaluate(args[0], ctx)
	if err != nil {
		return nil, err
	}
	field := expr.ToString(pathVal)
	if field == "" {
		return nil, NewTargetError("set-dynamic", "empty path")
	}

	value, err := Evaluate(args[1], ctx)
	if err != nil {
		return nil, err
	}

	return applyMutation(ctx, field, value, "")
}

// effectIncrement implements ["increment", binding, amount?], a
// shorthand for set with the increment operation. The amount defaults
// to 1.
func effectIncrement(args []expr.Expr, ctx *Context) (expr.Value, error) {
	return incrementBy(args, ctx, "increment")
}

// effectDecrement is the decrement shorthand.
func effectDecrement(args []expr.Expr, ctx *Context) (expr.Value, error) {
	return incrementBy(args, ctx, "decrement")
}

func incrementBy(args []expr.Expr, ctx *Context, operation string) (expr.Value, error) {
	if len(args) < 1 {
		return nil, NewArityError(operation, 1, len(args))
	}

	field, err := entityTarget(operation, args[0])
	if err != nil {
		return nil, err
	}

	amount := expr.Value(expr.Number(1))
	if len(args) > 1 {
		amount, err = Evaluate(args[1], ctx)
		if err != nil {
			return nil, err
		}
	}

	return applyMutation(ctx, field, amount, operation)
}

// applyMutation computes the final field value for an operation and
// forwards it to the MutateEntity capability.
func applyMutation(ctx *Context, field string, value expr.Value, operation string) (expr.Value, error) {
	final := value

	switch operation {
	case "":
		// Verbatim write.
	case "increment":
		final = expr.Number(currentNumber(ctx, field) + expr.ToNumber(value))
	case "decrement":
		final = expr.Number(currentNumber(ctx, field) - expr.ToNumber(value))
	case "multiply":
		final = expr.Number(currentNumber(ctx, field) * expr.ToNumber(value))
	case "append":
		if current, ok := Resolve("entity."+field, ctx).(expr.List); ok {
			next := make(expr.List, 0, len(current)+1)
			next = append(next, current...)
			final = append(next, value)
		} else {
			final = expr.List{value}
		}
	case "remove":
		next := expr.List{}
		if current, ok := Resolve("entity."+field, ctx).(expr.List); ok {
			for _, elem := range current {
				if !expr.Equal(elem, value) {
					next = append(next, elem)
				}
			}
		}
		final = next
	default:
		return nil, &EvalError{
			Code:    ErrCodeBadShape,
			Op:      "set",
			Message: "unknown operation " + operation,
		}
	}

	ctx.record("set", expr.Object{
		"field":     expr.String(field),
		"value":     final,
		"operation": expr.String(operation),
	})

	if ctx.Caps.MutateEntity == nil {
		ctx.warnMissing("set", "MutateEntity")
		return nil, nil
	}
	guard(ctx, "set", func() {
		ctx.Caps.MutateEntity(map[string]expr.Value{field: final})
	})
	return nil, nil
}

func currentNumber(ctx *Context, field string) float64 {
	return expr.ToNumber(Resolve("entity."+field, ctx))
}

// effectEmit implements ["emit", eventKey, payload?]. The key is
// forwarded prefixless - any "UI:" namespacing convention belongs to
// the caller.
func effectEmit(args []expr.Expr, ctx *Context) (expr.Value, error) {
	if len(args) < 1 {
		return nil, NewArityError("emit", 1, len(args))
	}

	keyVal, err := Evaluate(args[0], ctx)
	if err != nil {
		return nil, err
	}
	event := expr.ToString(keyVal)

	var payload expr.Value
	if len(args) > 1 {
		payload, err = Evaluate(args[1], ctx)
		if err != nil {
			return nil, err
		}
		payload = ResolveDeep(payload, ctx)
	}

	ctx.record("emit", expr.Object{
		"event":   expr.String(event),
		"payload": payload,
	})

	if ctx.Caps.Emit == nil {
		ctx.warnMissing("emit", "Emit")
		return nil, nil
	}
	guard(ctx, "emit", func() {
		ctx.Caps.Emit(event, payload)
	})
	return nil, nil
}

// effectPersist implements ["persist", action, data?], with action one
// of create/update/delete. Data defaults to the ambient payload.
// Fire-and-forget: the call is launched on its own goroutine and not
// awaited; failures are logged, never propagated.
func effectPersist(args []expr.Expr, ctx *Context) (expr.Value, error) {
	if len(args) < 1 {
		return nil, NewArityError("persist", 1, len(args))
	}

	actionVal, err := Evaluate(args[0], ctx)
	if err != nil {
		return nil, err
	}
	action := expr.ToString(actionVal)

	data := ctx.Payload
	if len(args) > 1 {
		data, err = Evaluate(args[1], ctx)
		if err != nil {
			return nil, err
		}
	}
	data = ResolveDeep(data, ctx)

	ctx.record("persist", expr.Object{
		"action": expr.String(action),
		"data":   data,
	})

	if ctx.Caps.Persist == nil {
		ctx.warnMissing("persist", "Persist")
		return nil, nil
	}

	persist := ctx.Caps.Persist
	entityID := ctx.EntityID
	fireAndForget(ctx, "persist", func(bg context.Context) error {
		return persist(bg, action, entityID, data)
	})
	return nil, nil
}

// effectNavigate implements ["navigate", route, params?].
func effectNavigate(args []expr.Expr, ctx *Context) (expr.Value, error) {
	if len(args) < 1 {
		return nil, NewArityError("navigate", 1, len(args))
	}

	routeVal, err := Evaluate(args[0], ctx)
	if err != nil {
		return nil, err
	}
	route := expr.ToString(routeVal)

	var params expr.Value
	if len(args) > 1 {
		params, err = Evaluate(args[1], ctx)
		if err != nil {
			return nil, err
		}
		params = ResolveDeep(params, ctx)
	}

	ctx.record("navigate", expr.Object{
		"route":  expr.String(route),
		"params": params,
	})

	if ctx.Caps.Navigate == nil {
		ctx.warnMissing("navigate", "Navigate")
		return nil, nil
	}
	guard(ctx, "navigate", func() {
		ctx.Caps.Navigate(route, params)
	})
	return nil, nil
}

// effectNotify implements ["notify", message, severity?].
func effectNotify(args []expr.Expr, ctx *Context) (expr.Value, error) {
	if len(args) < 1 {
		return nil, NewArityError("notify", 1, len(args))
	}

	msgVal, err := Evaluate(args[0], ctx)
	if err != nil {
		return nil, err
	}
	message := expr.ToString(msgVal)

	severity := "info"
	if len(args) > 1 {
		sevVal, err := Evaluate(args[1], ctx)
		if err != nil {
			return nil, err
		}
		if s := expr.ToString(sevVal); s != "" {
			severity = s
		}
	}

	ctx.record("notify", expr.Object{
		"message":  expr.String(message),
		"severity": expr.String(severity),
	})

	if ctx.Caps.Notify == nil {
		ctx.warnMissing("notify", "Notify")
		return nil, nil
	}
	guard(ctx, "notify", func() {
		ctx.Caps.Notify(message, severity)
	})
	return nil, nil
}

// effectSpawn implements ["spawn", entityType, props?].
func effectSpawn(args []expr.Expr, ctx *Context) (expr.Value, error) {
	if len(args) < 1 {
		return nil, NewArityError("spawn", 1, len(args))
	}

	kindVal, err := Evaluate(args[0], ctx)
	if err != nil {
		return nil, err
	}
	kind := expr.ToString(kindVal)

	var props expr.Value
	if len(args) > 1 {
		props, err = Evaluate(args[1], ctx)
		if err != nil {
			return nil, err
		}
		props = ResolveDeep(props, ctx)
	}

	ctx.record("spawn", expr.Object{
		"kind":  expr.String(kind),
		"props": props,
	})

	if ctx.Caps.Spawn == nil {
		ctx.warnMissing("spawn", "Spawn")
		return nil, nil
	}
	guard(ctx, "spawn", func() {
		ctx.Caps.Spawn(kind, props)
	})
	return nil, nil
}

// effectDespawn implements ["despawn", entityId?]. The id defaults to
// the ambient focused entity.
func effectDespawn(args []expr.Expr, ctx *Context) (expr.Value, error) {
	id := ctx.EntityID
	if len(args) > 0 {
		idVal, err := Evaluate(args[0], ctx)
		if err != nil {
			return nil, err
		}
		if s := expr.ToString(idVal); s != "" {
			id = s
		}
	}

	ctx.record("despawn", expr.Object{
		"id": expr.String(id),
	})

	if ctx.Caps.Despawn == nil {
		ctx.warnMissing("despawn", "Despawn")
		return nil, nil
	}
	guard(ctx, "despawn", func() {
		ctx.Caps.Despawn(id)
	})
	return nil, nil
}

// effectCallService implements ["call-service", service, method,
// params?]. Fire-and-forget like persist.
func effectCallService(args []expr.Expr, ctx *Context) (expr.Value, error) {
	if len(args) < 2 {
		return nil, NewArityError("call-service", 2, len(args))
	}

	serviceVal, err := Evaluate(args[0], ctx)
	if err != nil {
		return nil, err
	}
	methodVal, err := Evaluate(args[1], ctx)
	if err != nil {
		return nil, err
	}
	service := expr.ToString(serviceVal)
	method := expr.ToString(methodVal)

	var params expr.Value
	if len(args) > 2 {
		params, err = Evaluate(args[2], ctx)
		if err != nil {
			return nil, err
		}
		params = ResolveDeep(params, ctx)
	}

	ctx.record("call-service", expr.Object{
		"service": expr.String(service),
		"method":  expr.String(method),
		"params":  params,
	})

	if ctx.Caps.CallService == nil {
		ctx.warnMissing("call-service", "CallService")
		return nil, nil
	}

	call := ctx.Caps.CallService
	fireAndForget(ctx, "call-service", func(bg context.Context) error {
		return call(bg, service, method, params)
	})
	return nil, nil
}

// effectRenderUI implements ["render-ui", slot, pattern, props?,
// priority?]. An evaluated pattern of null or undefined is the
// clear-slot signal, forwarded as a nil content rather than a value.
func effectRenderUI(args []expr.Expr, ctx *Context) (expr.Value, error) {
	if len(args) < 2 {
		return nil, NewArityError("render-ui", 2, len(args))
	}

	slotVal, err := Evaluate(args[0], ctx)
	if err != nil {
		return nil, err
	}
	slot := expr.ToString(slotVal)

	patternVal, err := Evaluate(args[1], ctx)
	if err != nil {
		return nil, err
	}

	if isClear(patternVal) {
		ctx.record("render-ui", expr.Object{
			"slot":  expr.String(slot),
			"clear": expr.Bool(true),
		})
		if ctx.Caps.RenderUI == nil {
			ctx.warnMissing("render-ui", "RenderUI")
			return nil, nil
		}
		guard(ctx, "render-ui", func() {
			ctx.Caps.RenderUI(slot, nil)
		})
		return nil, nil
	}

	pattern := expr.ToString(patternVal)

	var props expr.Object
	if len(args) > 2 {
		propsVal, err := Evaluate(args[2], ctx)
		if err != nil {
			return nil, err
		}
		props, _ = ResolveDeep(propsVal, ctx).(expr.Object)
	}

	var priority *float64
	if len(args) > 3 {
		prioVal, err := Evaluate(args[3], ctx)
		if err != nil {
			return nil, err
		}
		if prioVal != nil {
			p := expr.ToNumber(prioVal)
			priority = &p
		}
	}

	content := &slots.Content{
		ID:          slot,
		Pattern:     pattern,
		Props:       props,
		Priority:    priority,
		SourceTrait: ctx.SourceTrait,
	}

	detail := expr.Object{
		"slot":    expr.String(slot),
		"pattern": expr.String(pattern),
		"props":   props,
	}
	if priority != nil {
		detail["priority"] = expr.Number(*priority)
	}
	ctx.record("render-ui", detail)

	if ctx.Caps.RenderUI == nil {
		ctx.warnMissing("render-ui", "RenderUI")
		return nil, nil
	}
	guard(ctx, "render-ui", func() {
		ctx.Caps.RenderUI(slot, content)
	})
	return nil, nil
}

func isClear(v expr.Value) bool {
	if v == nil {
		return true
	}
	_, isNull := v.(expr.Null)
	return isNull
}

// guard runs a synchronous handler, converting a panic into a logged
// error. The interpreter must survive a throwing host.
func guard(ctx *Context, effect string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			ctx.logger().Error("effect handler failed",
				"effect", effect,
				"panic", r)
		}
	}()
	fn()
}

// fireAndForget launches an async handler and returns immediately. The
// caller observes the synchronous return with no guarantee the effect
// has started, succeeded or failed; a failure surfaces only as a log
// line. There is no cancellation and no timeout.
func fireAndForget(ctx *Context, effect string, fn func(context.Context) error) {
	logger := ctx.logger()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("async effect handler panicked",
					"effect", effect,
					"panic", r)
			}
		}()
		if err := fn(context.Background()); err != nil {
			logger.Error("async effect failed",
				"effect", effect,
				"error", err)
		}
	}()
}
