package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/walletstore/internal/config"
	"github.com/roach88/walletstore/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Backend    string
	Dir        string
	File       string

	// Config is resolved in PersistentPreRunE from defaults, the config
	// file, the environment and the flags above.
	Config config.Config

	// Logger writes diagnostics to the command's stderr.
	Logger *slog.Logger

	// OpenStore builds the backend. Tests may replace it.
	OpenStore func(store.Config) (store.Backend, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the walletstore CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{OpenStore: store.Open})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "walletstore",
		Short: "walletstore - durable storage for identity wallets",
		Long: `Save, load and inspect a single identity wallet document.

The wallet lives in one of several backends (file, sqlite, badger)
selected by --backend, the WALLET_BACKEND environment variable or the
config file. Unrecognized fields in a wallet are preserved on every save.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.resolve(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "storage backend (file|sqlite|badger)")
	cmd.PersistentFlags().StringVar(&opts.Dir, "dir", "", "wallet directory (default ~/.walletstore)")
	cmd.PersistentFlags().StringVar(&opts.File, "file", "", "wallet file name (default wallet.json)")

	// Add subcommands
	cmd.AddCommand(NewSaveCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// resolve loads the configuration, applies flag overrides and builds the
// logger. Flags win over the environment, which wins over the file.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return o.formatter(cmd).Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = o.Backend
	}
	if flags.Changed("dir") {
		cfg.Dir = o.Dir
	}
	if flags.Changed("file") {
		cfg.File = o.File
	}
	if err := cfg.Validate(); err != nil {
		return o.formatter(cmd).Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	// Each invocation is its own process, so a memory store would drop the
	// wallet on exit.
	if kind, _ := store.ParseKind(cfg.Backend); kind == store.KindMemory {
		return o.formatter(cmd).Fail(ExitCommandError, ErrCodeConfig,
			"the memory backend does not persist between commands; use file, sqlite or badger", nil)
	}
	o.Config = cfg

	level, _ := cfg.Level()
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.Logger = newLogger(cmd.ErrOrStderr(), level)
	o.Logger.Debug("config resolved",
		"backend", cfg.Backend, "dir", cfg.Dir, "file", cfg.File, "canonical", cfg.Canonical)
	return nil
}

// openStore builds the configured backend.
func (o *RootOptions) openStore() (store.Backend, error) {
	open := o.OpenStore
	if open == nil {
		open = store.Open
	}
	return open(o.Config.StoreConfig(o.Logger))
}

// formatter builds the OutputFormatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
