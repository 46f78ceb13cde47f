package store

import "github.com/google/uuid"

// NameGenerator produces the unique suffix of a temp file name.
// Implemented by UUIDv7Names (production) and fixed generators in tests.
type NameGenerator interface {
	Generate() string
}

// UUIDv7Names generates time-sortable UUIDv7 suffixes, so leftover temp
// files from a crash list in the order they were written.
//
// Thread-safety: UUIDv7Names is stateless and safe for concurrent use.
type UUIDv7Names struct{}

// Generate returns a new hyphenated UUIDv7.
func (UUIDv7Names) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FileOption configures a FileBackend.
type FileOption func(*FileBackend)

// WithTempNames replaces the temp file suffix generator.
func WithTempNames(g NameGenerator) FileOption {
	return func(f *FileBackend) {
		f.names = g
	}
}
