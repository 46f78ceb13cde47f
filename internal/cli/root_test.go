package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/walletstore/internal/store"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "walletstore", cmd.Use)
	assert.Contains(t, cmd.Long, "Unrecognized fields")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"save", "load", "inspect", "validate"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "backend", "dir", "file"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing --%s", name)
	}
}

func TestSaveCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	saveCmd, _, err := cmd.Find([]string{"save"})
	require.NoError(t, err)

	overwriteFlag := saveCmd.Flags().Lookup("overwrite")
	require.NotNil(t, overwriteFlag)
	assert.Equal(t, "false", overwriteFlag.DefValue)

	require.NotNil(t, saveCmd.Flags().Lookup("no-validate"))
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "load", "--format", "yaml", "--dir", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestInvalidBackendFlag(t *testing.T) {
	stdout, _, err := execute(t, "load", "--backend", "etcd", "--dir", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, ErrCodeConfig)
}

func TestMemoryBackendRejected(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(input, []byte(`{"version":1,"seed":{},"counter":0,"identities":{}}`), 0o600))

	stdout, _, err := execute(t, "save", input, "--backend", "memory", "--dir", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, ErrCodeConfig)
	assert.Contains(t, stdout, "does not persist")

	// Also when selected through the environment.
	t.Setenv("WALLET_BACKEND", "memory")
	cmd := newRootCommand(&RootOptions{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"load", "--dir", dir})
	err = cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestConfigFilePrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "walletstore.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("backend: sqlite\ndir: "+dir+"\nfile: fromconfig.json\n"), 0o600))

	var got store.Config
	opts := &RootOptions{OpenStore: func(cfg store.Config) (store.Backend, error) {
		got = cfg
		return store.NewMemoryBackend(cfg.Codec), nil
	}}

	// The --file flag wins over the config file; backend comes from the file.
	_, _, err := executeWith(t, opts, "load", "--config", cfgPath, "--file", "fromflag.json")
	require.Error(t, err) // memory backend is empty
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Equal(t, store.KindSQLite, got.Backend)
	assert.Equal(t, dir, got.Dir)
	assert.Equal(t, "fromflag.json", got.File)
}

func TestMissingConfigFile(t *testing.T) {
	_, _, err := execute(t, "load", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestVerboseLogsToStderr(t *testing.T) {
	stdout, stderr, err := execute(t, "load", "--verbose", "--format", "json", "--dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, stderr, "config resolved")
	assert.NotContains(t, stdout, "config resolved")
}

// execute runs the root command with args and captures its output.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return executeWith(t, &RootOptions{OpenStore: store.Open}, args...)
}

func executeWith(t *testing.T, opts *RootOptions, args ...string) (string, string, error) {
	t.Helper()
	clearWalletEnv(t)

	cmd := newRootCommand(opts)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// clearWalletEnv keeps the developer's WALLET_* settings out of tests.
func clearWalletEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"BACKEND", "DIR", "FILE", "INDENT", "CANONICAL", "LOG_LEVEL"} {
		key := "WALLET_" + name
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}
