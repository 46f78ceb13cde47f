package store

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/roach88/walletstore/internal/codec"
	"github.com/roach88/walletstore/internal/wallet"
)

// createTestFileBackend creates a file backend rooted in a fresh temp dir.
func createTestFileBackend(t *testing.T) *FileBackend {
	t.Helper()
	return NewFileBackend(t.TempDir(), "wallet.json", codec.New(), discardLogger())
}

// createTestWallet creates a plain wallet with one identity and an
// extension entry.
func createTestWallet(counter int) *wallet.PlainWallet {
	w := &wallet.PlainWallet{
		Version: 1,
		Seed:    wallet.Seed{Mnemonic: wallet.StringPtr("test mnemonic")},
		Counter: counter,
		Identities: map[string]wallet.Identity{
			"main": {DID: "did:key:z6MkMain", Account: 0, Index: 0},
		},
		Current: wallet.StringPtr("main"),
	}
	w.Extension.Set("note", wallet.String("kept"))
	return w
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingHandler collects log records for assertions.
type recordingHandler struct {
	records []slog.Record
}

func (h *recordingHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.records = append(h.records, r)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) hasLevel(level slog.Level) bool {
	for _, r := range h.records {
		if r.Level == level {
			return true
		}
	}
	return false
}
