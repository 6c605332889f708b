package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/almadar-io/orbital/internal/engine"
	"github.com/almadar-io/orbital/internal/expr"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	ContextFile string
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate an expression against a context",
		Long: `Evaluate a single expression and print the result.

The expression is JSON: a literal, an "@path" binding, or an operator
form like ["add", 1, 2]. The optional context file supplies the layers
bindings resolve against.

Examples:
  orbital eval '["add", 1, 2]'
  orbital eval '"@entity.count"' --context ctx.json
  orbital eval '["if", ["gt", "@entity.count", 10], "high", "low"]' --context ctx.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ContextFile, "context", "", "JSON file with entity/user/form/global/payload layers")

	return cmd
}

func runEval(opts *EvalOptions, source string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	e, err := expr.ParseExpr([]byte(source))
	if err != nil {
		_ = formatter.Error("E_PARSE", err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid expression", err)
	}

	ctx, err := loadEvalContext(opts.ContextFile)
	if err != nil {
		_ = formatter.Error("E_CONTEXT", err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid context file", err)
	}

	result, err := engine.Evaluate(e, ctx)
	if err != nil {
		_ = formatter.Error("E_EVAL", err.Error(), nil)
		return WrapExitError(ExitFailure, "evaluation failed", err)
	}

	if opts.Format == "json" {
		data, err := expr.MarshalValue(result)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to marshal result", err)
		}
		return formatter.Success(json.RawMessage(data))
	}

	fmt.Fprintln(cmd.OutOrStdout(), expr.Format(result))
	return nil
}

// loadEvalContext builds an evaluation context from an optional JSON
// file with top-level entity/user/form/global/payload keys.
func loadEvalContext(path string) (*engine.Context, error) {
	ctx := &engine.Context{}
	if path == "" {
		return ctx, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Entity  map[string]any `json:"entity"`
		User    map[string]any `json:"user"`
		Form    map[string]any `json:"form"`
		Global  map[string]any `json:"global"`
		Payload any            `json:"payload"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	ctx.Entity = toObject(doc.Entity)
	ctx.User = toObject(doc.User)
	ctx.FormValues = toObject(doc.Form)
	ctx.Globals = toObject(doc.Global)
	if doc.Payload != nil {
		ctx.Payload = expr.FromGo(doc.Payload)
	}
	return ctx, nil
}

func toObject(m map[string]any) expr.Object {
	if m == nil {
		return nil
	}
	obj, _ := expr.FromGo(m).(expr.Object)
	return obj
}
