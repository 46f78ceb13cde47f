package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/roach88/walletstore/internal/codec"
	"github.com/roach88/walletstore/internal/wallet"
)

func TestFileBackend_LoadMissingCreatesNothing(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "not", "yet")
	b := NewFileBackend(dir, "wallet.json", codec.New(), discardLogger())

	w, ok, err := b.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if ok || w != nil {
		t.Fatalf("Load() = (%v, %v), want absent", w, ok)
	}
	if _, err := os.Stat(filepath.Join(root, "not")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load() created directories: stat err = %v", err)
	}
}

func TestFileBackend_SaveCreatesDirectoriesAndOneArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	b := NewFileBackend(dir, "wallet.json", codec.New(), discardLogger())

	for i, overwrite := range []bool{false, true, true} {
		if _, err := b.Save(createTestWallet(i), overwrite); err != nil {
			t.Fatalf("Save() #%d failed: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "wallet.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contents = %v, want [wallet.json]", names)
	}
}

func TestFileBackend_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	b := createTestFileBackend(t)
	if _, err := b.Save(createTestWallet(0), false); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	info, err := os.Stat(b.Path())
	if err != nil {
		t.Fatalf("Stat() failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("wallet permissions = %o, want 600", perm)
	}
}

func TestFileBackend_WritesCodecOutput(t *testing.T) {
	b := createTestFileBackend(t)
	w := createTestWallet(5)
	if _, err := b.Save(w, false); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	got, err := os.ReadFile(b.Path())
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	want, err := codec.New().Encode(w)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("file contents:\n%s\nwant:\n%s", got, want)
	}
}

func TestFileBackend_OverwriteDeniedLeavesFileUntouched(t *testing.T) {
	b := createTestFileBackend(t)
	if _, err := b.Save(createTestWallet(1), false); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	before, _ := os.ReadFile(b.Path())

	saved, err := b.Save(createTestWallet(2), false)
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if saved {
		t.Fatal("Save(overwrite=false) over existing wallet returned true")
	}

	after, _ := os.ReadFile(b.Path())
	if string(before) != string(after) {
		t.Error("file changed although overwrite was denied")
	}
}

func TestFileBackend_RenameFallback(t *testing.T) {
	h := &recordingHandler{}
	b := NewFileBackend(t.TempDir(), "wallet.json", codec.New(), slog.New(h))
	if _, err := b.Save(createTestWallet(1), false); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	// Simulate a platform where rename refuses to replace an existing file.
	calls := 0
	b.rename = func(oldpath, newpath string) error {
		calls++
		if _, err := os.Stat(newpath); err == nil {
			return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: fs.ErrExist}
		}
		return os.Rename(oldpath, newpath)
	}

	saved, err := b.Save(createTestWallet(2), true)
	if err != nil {
		t.Fatalf("Save() with fallback failed: %v", err)
	}
	if !saved {
		t.Fatal("Save(overwrite=true) returned false")
	}
	if calls != 2 {
		t.Errorf("rename called %d times, want 2", calls)
	}
	if !h.hasLevel(slog.LevelWarn) {
		t.Error("fallback was not logged at warn level")
	}

	got, ok, err := b.Load()
	if err != nil || !ok {
		t.Fatalf("Load() = (%v, %v, %v)", got, ok, err)
	}
	if c := got.(*wallet.PlainWallet).Counter; c != 2 {
		t.Errorf("counter = %d, want 2", c)
	}
	assertNoTempFiles(t, filepath.Dir(b.Path()))
}

func TestFileBackend_RenameFailureIsIOFailure(t *testing.T) {
	b := createTestFileBackend(t)
	b.rename = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: fs.ErrPermission}
	}

	saved, err := b.Save(createTestWallet(1), false)
	if saved || err == nil {
		t.Fatalf("Save() = (%v, %v), want failure", saved, err)
	}
	if !IsIOFailure(err) {
		t.Errorf("expected IO failure, got %v", err)
	}
	if _, err := os.Stat(b.Path()); !errors.Is(err, fs.ErrNotExist) {
		t.Error("failed save left a wallet file behind")
	}
	assertNoTempFiles(t, filepath.Dir(b.Path()))
}

func TestFileBackend_DecodeFailure(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"truncated", `{"version": 1, "seed": {`},
		{"wrong type", `{"version": "one", "seed": {}, "counter": 0, "identities": {}}`},
		{"unknown variant", `{"version": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := createTestFileBackend(t)
			if err := os.WriteFile(b.Path(), []byte(tt.content), 0o600); err != nil {
				t.Fatalf("WriteFile() failed: %v", err)
			}

			_, ok, err := b.Load()
			if ok {
				t.Fatal("Load() reported a wallet for corrupt content")
			}
			if !IsDecodeFailure(err) {
				t.Fatalf("expected decode failure, got %v", err)
			}
			if IsIOFailure(err) {
				t.Error("decode failure also classified as IO failure")
			}
		})
	}
}

func TestFileBackend_ReadFailureIsIOFailure(t *testing.T) {
	b := createTestFileBackend(t)
	// A directory where the file should be cannot be read as a file.
	if err := os.Mkdir(b.Path(), 0o700); err != nil {
		t.Fatalf("Mkdir() failed: %v", err)
	}

	_, _, err := b.Load()
	if !IsIOFailure(err) {
		t.Errorf("expected IO failure, got %v", err)
	}
}

func TestFileBackend_ToleratesBOM(t *testing.T) {
	b := createTestFileBackend(t)
	doc := "\xEF\xBB\xBF" + `{"version": 1, "seed": {}, "counter": 7, "identities": {}}`
	if err := os.WriteFile(b.Path(), []byte(doc), 0o600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	w, ok, err := b.Load()
	if err != nil || !ok {
		t.Fatalf("Load() = (%v, %v, %v)", w, ok, err)
	}
	if c := w.(*wallet.PlainWallet).Counter; c != 7 {
		t.Errorf("counter = %d, want 7", c)
	}
}

func TestFileBackend_EncodeFailureTouchesNothing(t *testing.T) {
	b := createTestFileBackend(t)
	w := createTestWallet(0)
	w.Extension.Set("version", wallet.Int(2))

	_, err := b.Save(w, true)
	if !codec.IsEncodeError(err) {
		t.Fatalf("expected encode error, got %v", err)
	}
	if _, err := os.Stat(b.Path()); !errors.Is(err, fs.ErrNotExist) {
		t.Error("encode failure created a wallet file")
	}
	assertNoTempFiles(t, filepath.Dir(b.Path()))
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() failed: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func ExampleFileBackend() {
	dir, _ := os.MkdirTemp("", "walletstore-example")
	defer os.RemoveAll(dir)

	s := NewFileBackend(dir, "wallet.json", codec.New(), discardLogger())
	saved, _ := s.Save(&wallet.PlainWallet{Version: 1, Counter: 0}, false)
	again, _ := s.Save(&wallet.PlainWallet{Version: 1, Counter: 2}, false)
	w, ok, _ := s.Load()

	fmt.Println(saved, again, ok, w.(*wallet.PlainWallet).Counter)
	// Output: true false true 0
}
