package store

import (
	"errors"
	"fmt"
)

// ErrNilWallet is returned by Save when called with a nil wallet.
var ErrNilWallet = errors.New("store: nil wallet")

// ErrorCode categorizes storage failures.
type ErrorCode string

const (
	// ErrCodeIO indicates the storage medium could not be read or written.
	ErrCodeIO ErrorCode = "IO_FAILURE"

	// ErrCodeDecode indicates stored bytes exist but do not form a valid wallet.
	ErrCodeDecode ErrorCode = "DECODE_FAILURE"
)

// Error is the failure type returned by every backend.
//
// Callers distinguish a broken medium from a corrupt artifact with
// IsIOFailure and IsDecodeFailure. An absent wallet is not an error.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the operation that failed ("save", "load", "open").
	Op string

	// Path locates the artifact: a file path, database path or key.
	Path string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s %s: %v", e.Code, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsIOFailure returns true if err is a storage medium failure.
// Uses errors.As to handle wrapped errors.
func IsIOFailure(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == ErrCodeIO
	}
	return false
}

// IsDecodeFailure returns true if err reports a stored artifact that could
// not be decoded.
func IsDecodeFailure(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == ErrCodeDecode
	}
	return false
}

func ioFailure(op, path string, err error) *Error {
	return &Error{Code: ErrCodeIO, Op: op, Path: path, Err: err}
}

func decodeFailure(op, path string, err error) *Error {
	return &Error{Code: ErrCodeDecode, Op: op, Path: path, Err: err}
}
