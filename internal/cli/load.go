package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/roach88/walletstore/internal/codec"
)

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Print the stored wallet",
		Long: `Load the stored wallet and print it.

Text output is the wallet document itself, encoded with the configured
indentation, so "walletstore load > backup.json" makes a restorable copy.
With --format json the document is wrapped in the standard response.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(rootOpts, cmd)
		},
	}

	return cmd
}

func runLoad(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.openStore()
	if err != nil {
		return formatter.failStore("open", err)
	}
	defer st.Close()

	w, ok, err := st.Load()
	if err != nil {
		return formatter.failStore("load", err)
	}
	if !ok {
		return formatter.Fail(ExitFailure, ErrCodeNoWallet, "no wallet stored", nil)
	}
	formatter.VerboseLog("Loaded %s wallet from %s backend", w.Kind(), st.Kind())

	if formatter.Format == "json" {
		data, err := codec.New(codec.WithIndent("")).Encode(w)
		if err != nil {
			return formatter.failStore("load", err)
		}
		return formatter.Success(json.RawMessage(data))
	}

	data, err := opts.Config.Codec().Encode(w)
	if err != nil {
		return formatter.failStore("load", err)
	}
	if _, err := formatter.Writer.Write(data); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	return nil
}
