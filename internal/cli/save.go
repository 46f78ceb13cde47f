package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/walletstore/internal/codec"
	"github.com/roach88/walletstore/internal/schema"
)

// SaveOptions holds flags for the save command.
type SaveOptions struct {
	*RootOptions
	Overwrite    bool
	SkipValidate bool
}

// SaveResult is the payload of a successful save.
type SaveResult struct {
	Saved   bool   `json:"saved"`
	Kind    string `json:"kind"`
	Backend string `json:"backend"`
	Digest  string `json:"digest"`
}

func (r SaveResult) String() string {
	return fmt.Sprintf("✓ Saved %s wallet to %s backend (digest %s)", r.Kind, r.Backend, r.Digest)
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SaveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "save <file|->",
		Short: "Store a wallet document",
		Long: `Read a wallet document from a file (or stdin with "-") and store it.

The document is decoded, checked against the wallet schema and written to
the configured backend. An existing wallet is only replaced with --overwrite.

Example:
  walletstore save ./wallet.json
  cat wallet.json | walletstore save - --overwrite --backend sqlite`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "replace an existing wallet")
	cmd.Flags().BoolVar(&opts.SkipValidate, "no-validate", false, "skip schema validation")

	return cmd
}

func runSave(opts *SaveOptions, input string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	data, err := readInput(cmd, input)
	if err != nil {
		return failInput(formatter, input, err)
	}

	w, err := codec.New().Decode(data)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeDecode, "input is not a wallet document", err)
	}

	if !opts.SkipValidate {
		validator, err := schema.New()
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to load wallet schema", err)
		}
		if err := validator.Validate(data); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeValidation, "wallet violates schema", err)
		}
	}

	st, err := opts.openStore()
	if err != nil {
		return formatter.failStore("open", err)
	}
	defer st.Close()

	saved, err := st.Save(w, opts.Overwrite)
	if err != nil {
		return formatter.failStore("save", err)
	}
	if !saved {
		return formatter.Fail(ExitFailure, ErrCodeExists,
			"wallet already exists (use --overwrite to replace it)", nil)
	}

	digest, err := codec.Digest(w)
	if err != nil {
		return formatter.failStore("digest", err)
	}
	opts.Logger.Info("wallet saved", "backend", st.Kind(), "kind", w.Kind(), "overwrite", opts.Overwrite)

	return formatter.Success(SaveResult{
		Saved:   true,
		Kind:    w.Kind().String(),
		Backend: string(st.Kind()),
		Digest:  digest,
	})
}

// readInput reads a document from a path, or from stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func failInput(formatter *OutputFormatter, path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("input not found: %s", path), nil)
	}
	return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("failed to read %s", path), err)
}
