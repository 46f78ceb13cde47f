package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/walletstore/internal/codec"
	"github.com/roach88/walletstore/internal/wallet"
)

// FileBackend stores the wallet as a single JSON document at <dir>/<name>.
//
// Writes go to a temp file in the same directory, are fsynced and then
// renamed over the target, so a reader or a crash sees either the old
// document or the new one. No lock or sidecar files are created.
//
// Across processes, overwrite=true is last-writer-wins and overwrite=false
// has a narrow check-then-write race. Use the SQLite or Badger backend when
// several processes share a wallet.
type FileBackend struct {
	dir    string
	name   string
	path   string
	codec  *codec.Codec
	logger *slog.Logger
	names  NameGenerator

	// rename is os.Rename; tests replace it to simulate platforms that
	// refuse to rename over an existing file.
	rename func(oldpath, newpath string) error
}

// NewFileBackend returns a file store for <dir>/<name>. Nothing is created
// on disk until the first successful Save.
func NewFileBackend(dir, name string, c *codec.Codec, logger *slog.Logger, opts ...FileOption) *FileBackend {
	f := &FileBackend{
		dir:    dir,
		name:   name,
		path:   filepath.Join(dir, name),
		codec:  orDefaultCodec(c),
		logger: orDefaultLogger(logger),
		names:  UUIDv7Names{},
		rename: os.Rename,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Kind returns KindFile.
func (f *FileBackend) Kind() Kind { return KindFile }

// Path returns the location of the wallet document.
func (f *FileBackend) Path() string { return f.path }

// Save implements Store.
func (f *FileBackend) Save(w wallet.Wallet, overwrite bool) (bool, error) {
	if isNil(w) {
		return false, ErrNilWallet
	}
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return false, ioFailure("save", f.dir, err)
	}

	exists, err := f.exists()
	if err != nil {
		return false, ioFailure("save", f.path, err)
	}
	if exists && !overwrite {
		f.logger.Debug("wallet exists, overwrite not requested", "path", f.path)
		return false, nil
	}

	data, err := f.codec.Encode(w)
	if err != nil {
		return false, err
	}
	if err := f.writeAtomic(data); err != nil {
		return false, ioFailure("save", f.path, err)
	}

	f.logger.Debug("wallet saved", "path", f.path, "bytes", len(data), "replaced", exists)
	return true, nil
}

// Load implements Store. A missing file is reported as absent and nothing is
// created.
func (f *FileBackend) Load() (wallet.Wallet, bool, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, ioFailure("load", f.path, err)
	}

	w, err := f.codec.Decode(data)
	if err != nil {
		return nil, false, decodeFailure("load", f.path, err)
	}
	return w, true, nil
}

// Close is a no-op; the backend holds no open handles between calls.
func (f *FileBackend) Close() error { return nil }

func (f *FileBackend) exists() (bool, error) {
	_, err := os.Stat(f.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// writeAtomic writes data via a temp file, then replaces the target.
func (f *FileBackend) writeAtomic(data []byte) error {
	tmp := filepath.Join(f.dir, "."+f.name+".tmp-"+f.names.Generate())
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	// Best-effort cleanup if anything fails before the rename lands.
	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(tmp)
		}
	}()

	if _, err := out.Write(data); err != nil {
		_ = out.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := f.replace(tmp); err != nil {
		return err
	}
	renamed = true

	syncDir(f.dir)
	return nil
}

// replace renames tmp over the target. Only when the platform refuses to
// replace an existing file does it remove the target first; between the
// remove and the rename no wallet file exists.
func (f *FileBackend) replace(tmp string) error {
	err := f.rename(tmp, f.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("rename temp file: %w", err)
	}

	f.logger.Warn("rename over existing wallet refused, removing target first",
		"path", f.path, "error", err)
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove existing wallet: %w", err)
	}
	if err := f.rename(tmp, f.path); err != nil {
		return fmt.Errorf("rename temp file after remove: %w", err)
	}
	return nil
}

// syncDir flushes the directory entry for the rename. Some platforms cannot
// open a directory for syncing; that is ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
