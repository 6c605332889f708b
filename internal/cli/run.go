package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/almadar-io/orbital/internal/bus"
	"github.com/almadar-io/orbital/internal/engine"
	"github.com/almadar-io/orbital/internal/expr"
	"github.com/almadar-io/orbital/internal/program"
	"github.com/almadar-io/orbital/internal/query"
	"github.com/almadar-io/orbital/internal/slots"
	"github.com/almadar-io/orbital/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	EntityID string
	Payload  string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <program-file> <event>",
		Short: "Dispatch one event through a program",
		Long: `Load a program, dispatch a single event, and print the effect trace.

The entity comes from the SQLite database when --entity is given;
otherwise the event runs against an empty entity. Persisted mutations
are written back to the database.

Examples:
  orbital run ./programs/tasks.json task:complete --db ./app.db --entity task-7
  orbital run ./programs/tasks.cue task:create --payload '{"title":"ship it"}'`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvent(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (defaults to in-memory)")
	cmd.Flags().StringVar(&opts.EntityID, "entity", "", "entity id to load from the database")
	cmd.Flags().StringVar(&opts.Payload, "payload", "", "event payload as JSON")

	return cmd
}

// RunResult holds the outcome of a dispatched event.
type RunResult struct {
	Matched int             `json:"matched"`
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Entity  json.RawMessage `json:"entity,omitempty"`
	Trace   json.RawMessage `json:"trace"`
}

func runEvent(opts *RunOptions, programFile, event string, cmd *cobra.Command) error {
	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))

	prog, err := program.Load(programFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load program", err)
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = ":memory:"
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	entity := expr.Object{}
	if opts.EntityID != "" {
		ent, err := st.Get(context.Background(), opts.EntityID)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("entity %q", opts.EntityID), err)
		}
		entity = ent.Props
	}

	var payload expr.Value
	if opts.Payload != "" {
		v, err := expr.UnmarshalValue([]byte(opts.Payload))
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --payload JSON", err)
		}
		payload = v
	}

	events := bus.New(bus.WithLogger(logger))
	slotStore := slots.NewStore()
	out := cmd.OutOrStdout()

	base := engine.Context{
		Entity:  entity,
		Queries: query.NewRegistry(),
		Trace:   engine.NewTrace(),
		Logger:  logger,
	}
	base.Caps = engine.Capabilities{
		MutateEntity: func(fields map[string]expr.Value) {
			expr.ApplyFields(entity, fields)
			if opts.EntityID != "" {
				if _, err := st.Update(context.Background(), opts.EntityID, fields); err != nil {
					logger.Error("entity update failed", "entity_id", opts.EntityID, "error", err)
				}
			}
		},
		Emit: events.Emit,
		Navigate: func(route string, params expr.Value) {
			logger.Info("navigate", "route", route, "params", expr.Format(params))
		},
		Notify: func(message, severity string) {
			if opts.Format != "json" {
				fmt.Fprintf(out, "[%s] %s\n", severity, message)
			}
		},
		RenderUI: func(slot string, content *slots.Content) {
			if content == nil {
				slotStore.Clear(slot)
				return
			}
			slotStore.Set(slot, *content)
		},
	}
	st.Bind(&base.Caps, logger)

	resp := engine.Dispatch(prog, engine.Request{
		Event:    event,
		Payload:  payload,
		EntityID: opts.EntityID,
	}, base)

	return outputRunResult(opts, cmd, resp, entity, base.Trace)
}

func outputRunResult(opts *RunOptions, cmd *cobra.Command, resp engine.Response, entity expr.Object, trace *engine.Trace) error {
	traceJSON, err := expr.MarshalCanonical(trace.Value())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to marshal trace", err)
	}

	if opts.Format == "json" {
		result := RunResult{
			Matched: resp.Matched,
			Success: resp.Success,
			Trace:   traceJSON,
		}
		if resp.Error != "" {
			result.Error = resp.Error
		}
		if entityJSON, err := expr.MarshalValue(entity); err == nil {
			result.Entity = entityJSON
		}

		status := "ok"
		response := CLIResponse{Status: status, Data: result}
		if !resp.Success {
			response.Status = "error"
			response.Error = &CLIError{Code: "E_DISPATCH", Message: resp.Error}
		}

		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		if !resp.Success {
			return NewExitError(ExitFailure, resp.Error)
		}
		return nil
	}

	w := cmd.OutOrStdout()
	if resp.Matched == 0 {
		fmt.Fprintln(w, "No rules matched.")
		return nil
	}
	if !resp.Success {
		fmt.Fprintf(w, "✗ Dispatch failed: %s\n", resp.Error)
		return NewExitError(ExitFailure, resp.Error)
	}

	fmt.Fprintf(w, "✓ Dispatched (%d effect(s))\n", trace.Len())
	for _, rec := range trace.Records() {
		fmt.Fprintf(w, "  %d. %s %s\n", rec.Seq, rec.Kind, expr.Format(dropUndefinedDetail(rec.Detail)))
	}
	return nil
}

func dropUndefinedDetail(detail expr.Object) expr.Object {
	out := make(expr.Object, len(detail))
	for k, v := range detail {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}
