package testutil

import (
	"io"
	"log/slog"

	"github.com/roach88/walletstore/internal/wallet"
)

// UnknownFieldsDocument is a plain wallet written by a newer schema: it has
// unrecognized keys at the top level, inside the seed and inside an identity.
const UnknownFieldsDocument = `{
  "version": 3,
  "seed": {
    "mnemonic": "legal winner thank year wave sausage worth useful legal winner thank yellow",
    "hdkey": {"xpriv": "xprv9s21ZrQH143K", "xpub": "xpub661MyMwAqRbc"},
    "derivation": "m/44'/0'"
  },
  "counter": 4,
  "identities": {
    "work": {
      "did": "did:key:z6MkWork",
      "account": 0,
      "index": 3,
      "held": ["urn:uuid:cred-1"],
      "owned": [],
      "label": "Work profile",
      "services": [{"type": "LinkedDomains", "endpoint": "https://example.com"}]
    }
  },
  "current": "work",
  "recovery": {"threshold": 2, "shares": 3},
  "createdAt": "2024-05-01T10:00:00Z",
  "flags": [true, null, 1.25e3]
}
`

// PlainWallet returns a fully populated plain wallet. Each call returns a
// new value the caller may mutate.
func PlainWallet() *wallet.PlainWallet {
	w := &wallet.PlainWallet{
		Version: 1,
		Seed: wallet.Seed{
			Mnemonic: wallet.StringPtr("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"),
			HDKey: wallet.NewObject(
				wallet.P("xpriv", wallet.String("xprv9s21ZrQH143K")),
				wallet.P("xpub", wallet.String("xpub661MyMwAqRbc")),
			),
		},
		Counter: 2,
		Identities: map[string]wallet.Identity{
			"alice": {
				DID:     "did:key:z6MkAlice",
				Account: 0,
				Index:   0,
				Held:    []string{"urn:uuid:cred-1", "urn:uuid:cred-2"},
				Owned:   []string{},
			},
			"bob": {
				DID:     "did:key:z6MkBob",
				Account: 0,
				Index:   1,
			},
		},
		Current: wallet.StringPtr("alice"),
	}
	w.Identities["bob"] = withExtension(w.Identities["bob"], "label", wallet.String("Bob"))
	w.Extension.Set("network", wallet.String("testnet"))
	w.Extension.Set("limits", wallet.NewObject(
		wallet.P("daily", wallet.Number("1000.50")),
		wallet.P("enabled", wallet.Bool(true)),
	))
	return w
}

// EncryptedWallet returns an encrypted wallet that also carries a cleartext
// seed and an extension entry.
func EncryptedWallet() *wallet.EncryptedWallet {
	w := &wallet.EncryptedWallet{
		Version: 1,
		Seed: &wallet.Seed{
			HDKey: wallet.NewObject(wallet.P("xpub", wallet.String("xpub661MyMwAqRbc"))),
		},
		Enc:  "aes-256-gcm",
		Salt: "c2FsdHNhbHRzYWx0",
		IV:   "aXZpdml2aXZpdml2",
		Data: "Y2lwaGVydGV4dA==",
	}
	w.Extension.Set("kdf", wallet.NewObject(
		wallet.P("name", wallet.String("scrypt")),
		wallet.P("n", wallet.Int(32768)),
	))
	return w
}

// MinimalPlainWallet returns {version: 1, counter: counter, seed: {},
// identities: {}}.
func MinimalPlainWallet(counter int) *wallet.PlainWallet {
	return &wallet.PlainWallet{
		Version:    1,
		Counter:    counter,
		Identities: map[string]wallet.Identity{},
	}
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func withExtension(id wallet.Identity, key string, v wallet.Value) wallet.Identity {
	id.Extension.Set(key, v)
	return id
}
