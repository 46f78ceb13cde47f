package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/walletstore/internal/codec"
	"github.com/roach88/walletstore/internal/schema"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool           `json:"valid"`
	Kind   string         `json:"kind,omitempty"`
	Errors []schema.Issue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file|->",
		Short: "Check a wallet document without storing it",
		Long: `Check a wallet document without touching the store.

Reports structural problems (missing or mistyped fields, malformed JSON)
and schema violations (negative counters, malformed DIDs, empty ciphertext).
Unrecognized fields are allowed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, input string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	data, err := readInput(cmd, input)
	if err != nil {
		return failInput(formatter, input, err)
	}

	w, err := codec.New().Decode(data)
	if err != nil {
		var de *codec.DecodeError
		if !errors.As(err, &de) {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to decode input", err)
		}
		return outputValidationErrors(formatter, ErrCodeDecode, ValidationResult{
			Errors: []schema.Issue{{Path: de.Field, Message: decodeMessage(de)}},
		})
	}
	formatter.VerboseLog("Decoded %s wallet, schema version %d", w.Kind(), w.SchemaVersion())

	validator, err := schema.New()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to load wallet schema", err)
	}
	if err := validator.Validate(data); err != nil {
		var ve *schema.ValidationError
		if !errors.As(err, &ve) {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "validation failed", err)
		}
		return outputValidationErrors(formatter, ErrCodeValidation, ValidationResult{
			Kind:   w.Kind().String(),
			Errors: ve.Issues,
		})
	}

	return outputValidateSuccess(formatter, w.Kind().String())
}

func decodeMessage(de *codec.DecodeError) string {
	if de.Err != nil {
		return fmt.Sprintf("%s: %v", de.Message, de.Err)
	}
	return de.Message
}

// outputValidateSuccess outputs successful validation result.
func outputValidateSuccess(formatter *OutputFormatter, kind string) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Kind: kind})
	}

	fmt.Fprintf(formatter.Writer, "✓ Valid %s wallet\n", kind)
	return nil
}

// outputValidationErrors outputs every issue and returns an ExitFailure.
func outputValidationErrors(formatter *OutputFormatter, code string, result ValidationResult) error {
	message := fmt.Sprintf("%d problem(s) found", len(result.Errors))

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    code,
				Message: message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
	} else {
		fmt.Fprintf(formatter.Writer, "✗ Invalid wallet: %s\n", message)
		for _, issue := range result.Errors {
			fmt.Fprintf(formatter.Writer, "  [%s] %s\n", code, issue)
		}
	}

	return NewExitError(ExitFailure, fmt.Sprintf("%s: %s: %s", code, message, joinIssues(result.Errors)))
}

func joinIssues(issues []schema.Issue) string {
	parts := make([]string, len(issues))
	for i, issue := range issues {
		parts[i] = issue.String()
	}
	return strings.Join(parts, "; ")
}
