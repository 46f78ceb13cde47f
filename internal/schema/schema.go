// Package schema checks wallet documents against semantic constraints
// written in CUE: value ranges, DID format, non-empty ciphertext fields.
//
// The codec decides whether a document can be read at all. The schema
// decides whether what was read is sensible. A document may decode cleanly
// and still fail validation, e.g. a negative counter.
package schema

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/roach88/walletstore/internal/codec"
	"github.com/roach88/walletstore/internal/wallet"
)

//go:embed wallet.cue
var walletCUE []byte

// Issue is one violated constraint.
type Issue struct {
	// Path is the dotted location of the offending value, empty for the
	// document root.
	Path string `json:"path"`

	// Message describes the violation.
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// ValidationError lists every constraint a document violates.
type ValidationError struct {
	Kind   wallet.Kind
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("%s wallet invalid: %s", e.Kind, strings.Join(parts, "; "))
}

// Validator holds the compiled schema. CUE values are not safe for
// concurrent use, so neither is a Validator; build one per goroutine.
type Validator struct {
	ctx       *cue.Context
	plain     cue.Value
	encrypted cue.Value
}

// New compiles the embedded wallet schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	root := ctx.CompileBytes(walletCUE, cue.Filename("wallet.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile wallet schema: %w", err)
	}

	v := &Validator{
		ctx:       ctx,
		plain:     root.LookupPath(cue.ParsePath("#PlainWallet")),
		encrypted: root.LookupPath(cue.ParsePath("#EncryptedWallet")),
	}
	if !v.plain.Exists() || !v.encrypted.Exists() {
		return nil, fmt.Errorf("compile wallet schema: missing wallet definitions")
	}
	return v, nil
}

// Validate checks an encoded wallet document. The variant is selected the
// same way the codec selects it, so data must already decode.
func (v *Validator) Validate(data []byte) error {
	w, err := codec.New().Decode(data)
	if err != nil {
		return err
	}

	expr, err := cuejson.Extract("wallet.json", data)
	if err != nil {
		return fmt.Errorf("parse wallet document: %w", err)
	}
	doc := v.ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("build wallet document: %w", err)
	}

	def := v.plain
	if w.Kind() == wallet.KindEncrypted {
		def = v.encrypted
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Kind: w.Kind(), Issues: issues(err)}
	}
	return nil
}

// ValidateWallet encodes w and validates the result.
func (v *Validator) ValidateWallet(w wallet.Wallet) error {
	data, err := codec.New(codec.WithIndent("")).Encode(w)
	if err != nil {
		return err
	}
	return v.Validate(data)
}

// issues flattens a CUE error list, dropping duplicates that CUE reports
// once per disjunct.
func issues(err error) []Issue {
	var out []Issue
	seen := make(map[string]bool)
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		issue := Issue{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		}
		if seen[issue.String()] {
			continue
		}
		seen[issue.String()] = true
		out = append(out, issue)
	}
	return out
}
