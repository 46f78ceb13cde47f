package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/walletstore/internal/wallet"
)

// DefaultIndent is the indentation used by New when no option overrides it.
const DefaultIndent = "  "

// Codec converts wallets to and from their textual form.
//
// A Codec is immutable once built and safe for concurrent use. Build one at
// startup and hand it to every store that needs it.
type Codec struct {
	indent    string
	canonical bool
}

// Option configures a Codec at construction.
type Option func(*Codec)

// WithIndent sets the indentation for encoded documents. An empty indent
// produces compact single-line output.
func WithIndent(indent string) Option {
	return func(c *Codec) {
		c.indent = indent
	}
}

// WithCanonical switches the codec to RFC 8785 output: compact, with the keys
// of every object (including the top level) sorted by UTF-16 code units.
// Canonical output is what Digest hashes.
func WithCanonical() Option {
	return func(c *Codec) {
		c.canonical = true
	}
}

// New builds a Codec.
func New(opts ...Option) *Codec {
	c := &Codec{indent: DefaultIndent}
	for _, opt := range opts {
		opt(c)
	}
	if c.canonical {
		c.indent = ""
	}
	return c
}

// Canonical reports whether c produces RFC 8785 output.
func (c *Codec) Canonical() bool {
	return c.canonical
}

// Encode produces the textual form of w.
//
// Schema fields come first in fixed order, followed by every extension-bag
// entry in bag order. Identities are always emitted sorted by name so the
// output is deterministic. In canonical mode all keys are sorted instead.
func (c *Codec) Encode(w wallet.Wallet) ([]byte, error) {
	doc, err := toDocument(w)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := writeValue(&buf, doc, c.canonical); err != nil {
		return nil, err
	}
	if c.indent == "" {
		return buf.Bytes(), nil
	}

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", c.indent); err != nil {
		return nil, fmt.Errorf("indent wallet: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// Decode parses a document produced by Encode (or by any other writer of the
// same schema). Unrecognized keys are kept in the extension bags; only
// structural violations of the schema fail, with a *DecodeError.
func (c *Codec) Decode(data []byte) (wallet.Wallet, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return nil, err
	}
	return fromDocument(doc)
}
