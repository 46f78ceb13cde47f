// Package store persists a single wallet behind a small Save/Load contract.
//
// Every backend satisfies the same Store interface:
//   - Save(w, overwrite): writes w unless a wallet exists and overwrite is false
//   - Load(): returns the wallet, or ok=false when nothing was saved
//
// Backends hold encoded bytes only. A saved wallet is never retained by
// reference and every Load decodes a fresh value.
//
// # Backends
//
//   - FileBackend: one JSON document, temp file + fsync + rename
//   - MemoryBackend: one immutable snapshot behind a RWMutex
//   - SQLiteBackend: one row, WAL mode, digest verified on load
//   - BadgerBackend: one key, check and set in one transaction
//
// Open builds the backend named in a Config so callers pick the medium at
// startup and depend only on Backend.
//
// # Failures
//
// Absent is not an error. A medium that cannot be read or written yields an
// *Error with ErrCodeIO; bytes that exist but do not decode yield ErrCodeDecode
// wrapping the *codec.DecodeError. A wallet the codec refuses to encode is
// returned as the *codec.EncodeError itself.
//
// # File replacement
//
// On platforms where rename cannot replace an existing file, FileBackend
// removes the target and renames again. That fallback is logged at warn
// level; between the two steps no wallet file exists.
package store
