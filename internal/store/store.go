package store

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/roach88/walletstore/internal/codec"
	"github.com/roach88/walletstore/internal/wallet"
)

// Store persists a single wallet.
type Store interface {
	// Save persists w. If a wallet is already stored and overwrite is false,
	// nothing changes and Save returns false. Otherwise it returns true once
	// the new wallet is durable. A failed Save never leaves a partial write.
	Save(w wallet.Wallet, overwrite bool) (bool, error)

	// Load returns the stored wallet. ok is false, with a nil error, when
	// nothing has been saved yet.
	Load() (w wallet.Wallet, ok bool, err error)
}

// Backend is a Store bound to a concrete medium.
type Backend interface {
	Store
	io.Closer

	// Kind names the medium.
	Kind() Kind
}

// Kind selects a backend.
type Kind string

const (
	KindFile   Kind = "file"
	KindMemory Kind = "memory"
	KindSQLite Kind = "sqlite"
	KindBadger Kind = "badger"
)

// Kinds lists every supported backend in display order.
var Kinds = []Kind{KindFile, KindMemory, KindSQLite, KindBadger}

// ParseKind validates a backend name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown backend %q (want one of file, memory, sqlite, badger)", s)
}

// Config describes the backend Open builds.
type Config struct {
	// Backend selects the medium. Empty means KindFile.
	Backend Kind

	// Dir holds the artifact. It is created on first save.
	Dir string

	// File is the artifact name inside Dir, e.g. "wallet.json". The
	// SQLite and Badger backends derive their own names from its stem.
	File string

	// Codec encodes and decodes wallets. Nil means codec.New().
	Codec *codec.Codec

	// Logger receives debug and warning records. Nil means slog.Default().
	Logger *slog.Logger

	// InMemory keeps the Badger backend off disk.
	InMemory bool
}

// Open builds the backend cfg describes.
func Open(cfg Config) (Backend, error) {
	kind := cfg.Backend
	if kind == "" {
		kind = KindFile
	}
	if kind != KindMemory && cfg.File == "" {
		return nil, fmt.Errorf("open %s backend: file name is empty", kind)
	}

	switch kind {
	case KindFile:
		return NewFileBackend(cfg.Dir, cfg.File, cfg.Codec, cfg.Logger), nil
	case KindMemory:
		return NewMemoryBackend(cfg.Codec), nil
	case KindSQLite:
		return OpenSQLite(SQLitePath(cfg.Dir, cfg.File), cfg.Codec, cfg.Logger)
	case KindBadger:
		return OpenBadger(BadgerPath(cfg.Dir, cfg.File), cfg.InMemory, cfg.Codec, cfg.Logger)
	default:
		return nil, fmt.Errorf("open: unknown backend %q", kind)
	}
}

// SQLitePath is the database file the SQLite backend uses for dir/file.
func SQLitePath(dir, file string) string {
	return filepath.Join(dir, stem(file)+".db")
}

// BadgerPath is the directory the Badger backend uses for dir/file.
func BadgerPath(dir, file string) string {
	return filepath.Join(dir, stem(file)+".badger")
}

func stem(file string) string {
	return strings.TrimSuffix(file, filepath.Ext(file))
}

func orDefaultCodec(c *codec.Codec) *codec.Codec {
	if c == nil {
		return codec.New()
	}
	return c
}

func orDefaultLogger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// isNil reports whether w is nil or a typed nil pointer.
func isNil(w wallet.Wallet) bool {
	switch v := w.(type) {
	case nil:
		return true
	case *wallet.PlainWallet:
		return v == nil
	case *wallet.EncryptedWallet:
		return v == nil
	default:
		return false
	}
}
