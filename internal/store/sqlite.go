package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/walletstore/internal/codec"
	"github.com/roach88/walletstore/internal/wallet"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (id, kind, document)
// 1 - Added digest column, verified on load
const currentSchemaVersion = 1

// SQLiteBackend stores the wallet as a single row in a SQLite database.
// The overwrite check and the write are one statement, so concurrent
// processes cannot both win a Save(w, false).
type SQLiteBackend struct {
	db     *sql.DB
	path   string
	codec  *codec.Codec
	logger *slog.Logger
}

// OpenSQLite creates or opens the database at path, creating its directory
// if needed. Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - FULL synchronous mode, since a saved wallet must survive power loss
//   - 5-second busy timeout for lock contention
func OpenSQLite(path string, c *codec.Codec, logger *slog.Logger) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, ioFailure("open", path, err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, ioFailure("open", path, fmt.Errorf("failed to open database: %w", err))
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, ioFailure("open", path, fmt.Errorf("failed to connect to database: %w", err))
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, ioFailure("open", path, fmt.Errorf("failed to apply pragmas: %w", err))
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, ioFailure("open", path, fmt.Errorf("failed to apply schema: %w", err))
	}

	return &SQLiteBackend{
		db:     db,
		path:   path,
		codec:  orDefaultCodec(c),
		logger: orDefaultLogger(logger),
	}, nil
}

// Kind returns KindSQLite.
func (s *SQLiteBackend) Kind() Kind { return KindSQLite }

// Path returns the database file.
func (s *SQLiteBackend) Path() string { return s.path }

// Close closes the database connection.
func (s *SQLiteBackend) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save implements Store.
func (s *SQLiteBackend) Save(w wallet.Wallet, overwrite bool) (bool, error) {
	if isNil(w) {
		return false, ErrNilWallet
	}
	data, err := s.codec.Encode(w)
	if err != nil {
		return false, err
	}
	digest, err := codec.Digest(w)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO wallet (id, kind, document, digest)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`
	if overwrite {
		query = `
			INSERT INTO wallet (id, kind, document, digest)
			VALUES (1, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				kind = excluded.kind,
				document = excluded.document,
				digest = excluded.digest
		`
	}

	res, err := s.db.ExecContext(context.Background(), query, w.Kind().String(), data, digest)
	if err != nil {
		return false, ioFailure("save", s.path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, ioFailure("save", s.path, err)
	}
	if n == 0 {
		s.logger.Debug("wallet exists, overwrite not requested", "path", s.path)
		return false, nil
	}

	s.logger.Debug("wallet saved", "path", s.path, "bytes", len(data), "digest", digest)
	return true, nil
}

// Load implements Store. A stored digest that does not match the decoded
// wallet is reported as a decode failure.
func (s *SQLiteBackend) Load() (wallet.Wallet, bool, error) {
	var (
		data   []byte
		digest string
	)
	err := s.db.QueryRowContext(context.Background(),
		`SELECT document, digest FROM wallet WHERE id = 1`).Scan(&data, &digest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, ioFailure("load", s.path, err)
	}

	w, err := s.codec.Decode(data)
	if err != nil {
		return nil, false, decodeFailure("load", s.path, err)
	}

	// Rows written before the digest column existed carry an empty digest.
	if digest != "" {
		got, err := codec.Digest(w)
		if err != nil {
			return nil, false, decodeFailure("load", s.path, err)
		}
		if got != digest {
			return nil, false, decodeFailure("load", s.path,
				fmt.Errorf("digest mismatch: stored %s, computed %s", digest, got))
		}
	}
	return w, true, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 adds the digest column.
func migrateToV1(db *sql.DB) error {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('wallet') WHERE name = 'digest'`).Scan(&n)
	if err != nil {
		return fmt.Errorf("migration v1: inspect columns: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.Exec(`ALTER TABLE wallet ADD COLUMN digest TEXT NOT NULL DEFAULT ''`); err != nil {
		return fmt.Errorf("migration v1: add digest column: %w", err)
	}
	return nil
}
