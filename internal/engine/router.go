package engine

import (
	"github.com/almadar-io/orbital/internal/expr"
	"github.com/almadar-io/orbital/internal/program"
)

// Request is an incoming event to dispatch through a trait program.
type Request struct {
	// Event is the event key (e.g. "UI:SAVE").
	Event string

	// Payload is the event payload, resolved via @payload during
	// evaluation.
	Payload expr.Value

	// EntityID identifies the focused entity, when any.
	EntityID string
}

// Response is the outcome of dispatching one event.
type Response struct {
	// Success is false only for fatal evaluation errors - authoring
	// errors in the program. Degraded effect execution still succeeds.
	Success bool `json:"success"`

	// Matched counts the rules whose guard held.
	Matched int `json:"matched"`

	// Effects is the recorded effect trace for this dispatch.
	Effects []Record `json:"effects"`

	// Error carries the evaluation error message when Success is
	// false.
	Error string `json:"error,omitempty"`
}

// Dispatch runs every rule a program declares for an event: guards are
// evaluated in declaration order, and each holding rule's effect
// expressions execute through the context's handler bag.
//
// The base context supplies the layers and capabilities; Dispatch
// stamps the request's payload, entity id and trace onto a copy, so
// the caller's context is not mutated. The copy shares a trace with
// the response: effects recorded by nested evaluation all land in
// Response.Effects in execution order.
//
// An evaluation error stops the dispatch at the failing expression;
// effects already executed are not rolled back (there are no
// transactions in this core).
func Dispatch(prog *program.Program, req Request, base Context) Response {
	ctx := base
	ctx.Payload = req.Payload
	if req.EntityID != "" {
		ctx.EntityID = req.EntityID
	}
	if ctx.SourceTrait == "" {
		ctx.SourceTrait = prog.Name
	}
	if ctx.Trace == nil {
		ctx.Trace = NewTrace()
	}

	resp := Response{Success: true}

	for _, rule := range prog.RulesFor(req.Event) {
		hold := true
		if rule.When != nil {
			guard, err := Evaluate(rule.When, &ctx)
			if err != nil {
				return failed(resp, &ctx, err)
			}
			hold = expr.ToBool(guard)
		}
		if !hold {
			continue
		}
		resp.Matched++

		for _, e := range rule.Do {
			if _, err := Evaluate(e, &ctx); err != nil {
				return failed(resp, &ctx, err)
			}
		}
	}

	resp.Effects = ctx.Trace.Records()
	return resp
}

func failed(resp Response, ctx *Context, err error) Response {
	ctx.logger().Error("event dispatch failed", "error", err)
	resp.Success = false
	resp.Error = err.Error()
	resp.Effects = ctx.Trace.Records()
	return resp
}
