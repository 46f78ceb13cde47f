// Package config resolves walletstore settings from, in increasing order of
// precedence: built-in defaults, a YAML file, and WALLET_* environment
// variables. Command-line flags are applied on top by the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/roach88/walletstore/internal/codec"
	"github.com/roach88/walletstore/internal/store"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "WALLET"

// Defaults.
const (
	DefaultBackend  = "file"
	DefaultFile     = "wallet.json"
	DefaultIndent   = 2
	DefaultLogLevel = "info"
	defaultDirName  = ".walletstore"
	maxIndent       = 8
)

// Config holds every setting that selects and shapes the wallet store.
//
// Fields carry no envconfig defaults: Default fills them first, so an unset
// variable never clobbers a value from the YAML file.
type Config struct {
	// Backend is one of file, memory, sqlite, badger.
	Backend string `yaml:"backend" envconfig:"BACKEND"`

	// Dir holds the wallet. A leading "~/" expands to the home directory.
	Dir string `yaml:"dir" envconfig:"DIR"`

	// File is the wallet file name inside Dir.
	File string `yaml:"file" envconfig:"FILE"`

	// Indent is the number of spaces per level in stored documents;
	// 0 writes compact single-line JSON.
	Indent int `yaml:"indent" envconfig:"INDENT"`

	// Canonical stores RFC 8785 canonical JSON instead; Indent is ignored.
	Canonical bool `yaml:"canonical" envconfig:"CANONICAL"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Backend:  DefaultBackend,
		Dir:      defaultDir(),
		File:     DefaultFile,
		Indent:   DefaultIndent,
		LogLevel: DefaultLogLevel,
	}
}

// Load resolves the configuration. path may be empty, in which case only
// defaults and the environment apply. A path that does not exist is an
// error: an explicitly named file is never silently ignored.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process environment: %w", err)
	}

	cfg.Dir = expandHome(cfg.Dir)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// decodeYAML overlays data onto cfg. Unknown keys are rejected to catch
// typos such as "backnd:".
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := store.ParseKind(c.Backend); err != nil {
		return err
	}
	if c.Dir == "" {
		return errors.New("dir is empty")
	}
	if c.File == "" {
		return errors.New("file is empty")
	}
	if filepath.Base(c.File) != c.File || c.File == "." || c.File == ".." {
		return fmt.Errorf("file %q must be a plain file name, not a path", c.File)
	}
	if c.Indent < 0 || c.Indent > maxIndent {
		return fmt.Errorf("indent %d out of range 0..%d", c.Indent, maxIndent)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Codec builds the codec the settings describe.
func (c Config) Codec() *codec.Codec {
	if c.Canonical {
		return codec.New(codec.WithCanonical())
	}
	return codec.New(codec.WithIndent(strings.Repeat(" ", c.Indent)))
}

// StoreConfig converts the settings into a store.Config. Call Validate
// first; an invalid backend name becomes an empty Kind here.
func (c Config) StoreConfig(logger *slog.Logger) store.Config {
	kind, _ := store.ParseKind(c.Backend)
	return store.Config{
		Backend: kind,
		Dir:     c.Dir,
		File:    c.File,
		Codec:   c.Codec(),
		Logger:  logger,
	}
}

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultDirName
	}
	return filepath.Join(home, defaultDirName)
}

func expandHome(dir string) string {
	if dir != "~" && !strings.HasPrefix(dir, "~/") {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return dir
	}
	return filepath.Join(home, strings.TrimPrefix(dir, "~"))
}
