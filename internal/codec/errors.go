package codec

import (
	"errors"
	"fmt"
)

// DecodeError reports stored bytes that do not satisfy the wallet schema.
type DecodeError struct {
	// Field is the dotted path of the offending field, empty for
	// document-level problems (malformed JSON, unknown variant).
	Field string

	// Message is a human-readable description.
	Message string

	// Err is the underlying parser error, if any.
	Err error
}

func (e *DecodeError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("field %q: %s", e.Field, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("decode wallet: %s: %v", msg, e.Err)
	}
	return "decode wallet: " + msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError reports a wallet value that cannot be represented, such as an
// extension key that shadows a schema field or a malformed Number literal.
type EncodeError struct {
	Field   string
	Message string
}

func (e *EncodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("encode wallet: field %q: %s", e.Field, e.Message)
	}
	return "encode wallet: " + e.Message
}

// IsDecodeError returns true if err is or wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// IsEncodeError returns true if err is or wraps an *EncodeError.
func IsEncodeError(err error) bool {
	var ee *EncodeError
	return errors.As(err, &ee)
}

func fieldError(field, format string, args ...any) *DecodeError {
	return &DecodeError{Field: field, Message: fmt.Sprintf(format, args...)}
}
