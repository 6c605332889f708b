package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/almadar-io/orbital/internal/compose"
	"github.com/almadar-io/orbital/internal/engine"
	"github.com/almadar-io/orbital/internal/program"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Slot bool // treat the file as a slot-content document
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a program or slot-content document",
		Long: `Validate an effect program without running it.

Programs may be JSON or CUE (by extension). Every operator referenced
by a rule must be known to the evaluator. With --slot the file is
checked against the slot-content schema instead.

Examples:
  orbital validate ./programs/tasks.json
  orbital validate ./programs/tasks.cue
  orbital validate ./fixtures/sidebar.json --slot`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Slot, "slot", false, "validate a slot-content document instead of a program")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var messages []string
	var err error
	if opts.Slot {
		messages, err = validateSlotContent(path)
	} else {
		messages, err = validateProgram(path, formatter)
	}
	if err != nil {
		_ = formatter.Error("E_LOAD", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load "+path, err)
	}

	if len(messages) > 0 {
		return outputValidationErrors(formatter, messages)
	}
	return outputValidateSuccess(formatter)
}

func validateProgram(path string, formatter *OutputFormatter) ([]string, error) {
	prog, err := program.Load(path)
	if err != nil {
		return nil, err
	}

	formatter.VerboseLog("Loaded program %q with %d event(s)", prog.Name, len(prog.Events()))

	var messages []string
	for _, err := range prog.Validate(engine.KnownOperator) {
		messages = append(messages, err.Error())
	}
	return messages, nil
}

func validateSlotContent(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	validator, err := compose.NewValidator()
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	var messages []string
	for _, schemaErr := range validator.ValidateDocument(doc) {
		messages = append(messages, schemaErr.String())
	}
	return messages, nil
}

func outputValidateSuccess(formatter *OutputFormatter) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}

	fmt.Fprintln(formatter.Writer, "✓ Valid")
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, messages []string) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: messages},
			Error: &CLIError{
				Code:    "E_VALIDATE",
				Message: messages[0],
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(messages)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, msg := range messages {
		fmt.Fprintf(formatter.Writer, "  %s\n", msg)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(messages)))
}
