package codec_test

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/walletstore/internal/codec"
	"github.com/roach88/walletstore/internal/wallet"
)

func samplePlain() *wallet.PlainWallet {
	return &wallet.PlainWallet{
		Version: 1,
		Seed: wallet.Seed{
			Mnemonic: wallet.StringPtr("abandon ability able"),
			HDKey: wallet.NewObject(
				wallet.P("xpriv", wallet.String("xprv9s21")),
				wallet.P("xpub", wallet.String("xpub661M")),
			),
		},
		Counter: 2,
		Identities: map[string]wallet.Identity{
			"bob":   {DID: "did:test:bob", Account: 1, Index: 0},
			"alice": {DID: "did:test:alice", Held: []string{"did:test:cred1"}, Owned: []string{}},
		},
		Current: wallet.StringPtr("alice"),
		Extension: *wallet.NewObject(
			wallet.P("names", wallet.NewObject(wallet.P("vc", wallet.String("did:test:vc")))),
			wallet.P("ratio", wallet.Number("0.75")),
		),
	}
}

func sampleEncrypted() *wallet.EncryptedWallet {
	return &wallet.EncryptedWallet{
		Version: 1,
		Seed: &wallet.Seed{
			HDKey: wallet.NewObject(wallet.P("xpub", wallet.String("xpub661M"))),
		},
		Enc:       "AES-GCM",
		Salt:      "c2FsdA==",
		IV:        "aXY=",
		Data:      "ZGF0YQ==",
		Extension: *wallet.NewObject(wallet.P("backup", wallet.Bool(true))),
	}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestEncode_PlainGolden(t *testing.T) {
	data, err := codec.New().Encode(samplePlain())
	require.NoError(t, err)
	newGoldie(t).Assert(t, "plain_wallet", data)
}

func TestEncode_EncryptedGolden(t *testing.T) {
	data, err := codec.New().Encode(sampleEncrypted())
	require.NoError(t, err)
	newGoldie(t).Assert(t, "encrypted_wallet", data)
}

func TestEncode_CanonicalGolden(t *testing.T) {
	data, err := codec.New(codec.WithCanonical()).Encode(samplePlain())
	require.NoError(t, err)
	newGoldie(t).Assert(t, "plain_wallet_canonical", data)
}

func TestEncode_CompactWithoutIndent(t *testing.T) {
	data, err := codec.New(codec.WithIndent("")).Encode(sampleEncrypted())
	require.NoError(t, err)
	assert.Equal(t,
		`{"version":1,"seed":{"hdkey":{"xpub":"xpub661M"}},"enc":"AES-GCM","salt":"c2FsdA==","iv":"aXY=","data":"ZGF0YQ==","backup":true}`,
		string(data))
}

func TestRoundTrip(t *testing.T) {
	codecs := map[string]*codec.Codec{
		"indented":  codec.New(),
		"compact":   codec.New(codec.WithIndent("")),
		"canonical": codec.New(codec.WithCanonical()),
	}
	wallets := map[string]wallet.Wallet{
		"plain":     samplePlain(),
		"encrypted": sampleEncrypted(),
	}

	for cname, c := range codecs {
		for wname, w := range wallets {
			t.Run(cname+"/"+wname, func(t *testing.T) {
				first, err := c.Encode(w)
				require.NoError(t, err)

				decoded, err := c.Decode(first)
				require.NoError(t, err)

				second, err := c.Encode(decoded)
				require.NoError(t, err)
				assert.Equal(t, string(first), string(second))

				again, err := c.Decode(second)
				require.NoError(t, err)
				assert.True(t, wallet.Equal(decoded, again))
			})
		}
	}
}

func TestRoundTrip_PreservesValueEquality(t *testing.T) {
	c := codec.New()
	for _, w := range []wallet.Wallet{samplePlain(), sampleEncrypted()} {
		data, err := c.Encode(w)
		require.NoError(t, err)
		got, err := c.Decode(data)
		require.NoError(t, err)
		assert.True(t, wallet.Equal(w, got), "decoded wallet differs from %#v", w)
	}
}

func TestDecode_UnknownFieldsPreserved(t *testing.T) {
	doc := `{
		"version": 2,
		"zeta": {"nested": [1, 2.5, null, {"deep": true}]},
		"seed": {"mnemonic": "m", "entropyBits": 128},
		"counter": 1,
		"identities": {
			"alice": {"did": "did:test:alice", "account": 0, "index": 3, "label": "work", "vcs": []}
		},
		"alpha": 1e400,
		"big": 123456789012345678901234567890,
		"nothing": null
	}`

	c := codec.New()
	w, err := c.Decode([]byte(doc))
	require.NoError(t, err)

	pw, ok := w.(*wallet.PlainWallet)
	require.True(t, ok)
	assert.Equal(t, 2, pw.Version)
	assert.Equal(t, []string{"zeta", "alpha", "big", "nothing"}, pw.Extension.Keys())

	big, _ := pw.Extension.Get("big")
	assert.Equal(t, wallet.Number("123456789012345678901234567890"), big)
	alpha, _ := pw.Extension.Get("alpha")
	assert.Equal(t, wallet.Number("1e400"), alpha)
	nothing, _ := pw.Extension.Get("nothing")
	assert.Equal(t, wallet.Null{}, nothing)

	bits, ok := pw.Seed.Extension.Get("entropyBits")
	require.True(t, ok)
	assert.Equal(t, wallet.Number("128"), bits)

	alice := pw.Identities["alice"]
	assert.Equal(t, 3, alice.Index)
	assert.Equal(t, []string{"label", "vcs"}, alice.Extension.Keys())

	// Re-encode and decode again: every unknown field survives unchanged.
	data, err := c.Encode(w)
	require.NoError(t, err)
	again, err := c.Decode(data)
	require.NoError(t, err)
	assert.True(t, wallet.Equal(w, again))
	assert.Contains(t, string(data), `"big": 123456789012345678901234567890`)
	assert.Contains(t, string(data), `2.5`)
}

func TestDecode_VariantSelection(t *testing.T) {
	c := codec.New()

	w, err := c.Decode([]byte(`{"version":1,"seed":{},"counter":0,"identities":{}}`))
	require.NoError(t, err)
	assert.Equal(t, wallet.KindPlain, w.Kind())

	w, err = c.Decode([]byte(`{"version":1,"enc":"e","salt":"s","iv":"i","data":"d"}`))
	require.NoError(t, err)
	assert.Equal(t, wallet.KindEncrypted, w.Kind())
	assert.Nil(t, w.(*wallet.EncryptedWallet).Seed)

	// Ciphertext fields win; stray plain fields are kept as extension.
	w, err = c.Decode([]byte(`{"version":1,"enc":"e","salt":"s","iv":"i","data":"d","counter":4}`))
	require.NoError(t, err)
	ew := w.(*wallet.EncryptedWallet)
	counter, ok := ew.Extension.Get("counter")
	require.True(t, ok)
	assert.Equal(t, wallet.Number("4"), counter)

	// A stray ciphertext key on a plain document is just an extension entry.
	w, err = c.Decode([]byte(`{"version":1,"seed":{},"counter":0,"identities":{},"iv":"x"}`))
	require.NoError(t, err)
	pw := w.(*wallet.PlainWallet)
	iv, ok := pw.Extension.Get("iv")
	require.True(t, ok)
	assert.Equal(t, wallet.String("x"), iv)

	w, err = c.Decode([]byte(`{"version":1,"seed":{},"counter":0,"identities":{},"enc":"e","salt":"s","data":"d"}`))
	require.NoError(t, err)
	assert.Equal(t, wallet.KindPlain, w.Kind())
	assert.Equal(t, []string{"enc", "salt", "data"}, w.Extra().Keys())
}

func TestEncode_PlainWithCiphertextExtension(t *testing.T) {
	c := codec.New()

	// Some ciphertext keys in the bag still decode as the same plain wallet.
	partial := &wallet.PlainWallet{Version: 1, Identities: map[string]wallet.Identity{}}
	partial.Extension.Set("data", wallet.String("app-payload"))
	data, err := c.Encode(partial)
	require.NoError(t, err)
	got, err := c.Decode(data)
	require.NoError(t, err)
	assert.True(t, wallet.Equal(partial, got))

	// All four would turn the document into an encrypted wallet.
	full := &wallet.PlainWallet{Version: 1, Identities: map[string]wallet.Identity{}}
	for _, k := range []string{"enc", "salt", "iv", "data"} {
		full.Extension.Set(k, wallet.String("x"))
	}
	_, err = c.Encode(full)
	require.Error(t, err)
	assert.True(t, codec.IsEncodeError(err))
}

func TestDecode_EncryptedKeepsSeedAndCiphertext(t *testing.T) {
	c := codec.New()
	w, err := c.Decode([]byte(`{"version":1,"seed":{"mnemonic":"clear words"},"enc":"e","salt":"s","iv":"i","data":"d"}`))
	require.NoError(t, err)

	ew := w.(*wallet.EncryptedWallet)
	require.NotNil(t, ew.Seed)
	require.NotNil(t, ew.Seed.Mnemonic)
	assert.Equal(t, "clear words", *ew.Seed.Mnemonic)
	assert.Equal(t, "d", ew.Data)
}

func TestDecode_StructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"empty", ``, ""},
		{"whitespace", "  \n", ""},
		{"malformed", `{"version":`, ""},
		{"not an object", `[1,2]`, ""},
		{"trailing data", `{"version":1,"seed":{},"counter":0,"identities":{}} {}`, ""},
		{"unknown variant", `{"version":1,"seed":{}}`, ""},
		{"missing version", `{"seed":{},"counter":0,"identities":{}}`, "version"},
		{"float version", `{"version":1.5,"seed":{},"counter":0,"identities":{}}`, "version"},
		{"missing seed", `{"version":1,"counter":0,"identities":{}}`, "seed"},
		{"seed not object", `{"version":1,"seed":"x","counter":0,"identities":{}}`, "seed"},
		{"counter string", `{"version":1,"seed":{},"counter":"0","identities":{}}`, "counter"},
		{"identities array", `{"version":1,"seed":{},"counter":0,"identities":[]}`, "identities"},
		{"missing identities", `{"version":1,"seed":{},"counter":0}`, "identities"},
		{"identity missing did", `{"version":1,"seed":{},"counter":0,"identities":{"a":{"account":0,"index":0}}}`, "identities.a.did"},
		{"held not strings", `{"version":1,"seed":{},"counter":0,"identities":{"a":{"did":"d","account":0,"index":0,"held":[1]}}}`, "identities.a.held[0]"},
		{"current number", `{"version":1,"seed":{},"counter":0,"identities":{},"current":3}`, "current"},
		{"mnemonic number", `{"version":1,"seed":{"mnemonic":3},"counter":0,"identities":{}}`, "seed.mnemonic"},
		{"missing iv", `{"version":1,"enc":"e","salt":"s","data":"d"}`, "iv"},
		{"data not string", `{"version":1,"enc":"e","salt":"s","iv":"i","data":{}}`, "data"},
		{"counter beyond int64", `{"version":1,"seed":{},"counter":9223372036854775808,"identities":{}}`, "counter"},
		{"duplicate key", `{"version":1,"version":2,"seed":{},"counter":0,"identities":{}}`, "version"},
	}

	c := codec.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode([]byte(tt.doc))
			require.Error(t, err)
			require.True(t, codec.IsDecodeError(err), "expected DecodeError, got %T: %v", err, err)

			var de *codec.DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.field, de.Field)
		})
	}
}

func TestDecode_ToleratesBOM(t *testing.T) {
	doc := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"version":1,"seed":{},"counter":0,"identities":{}}`)...)
	w, err := codec.New().Decode(doc)
	require.NoError(t, err)
	assert.Equal(t, 1, w.SchemaVersion())
}

func TestEncode_RejectsShadowingExtension(t *testing.T) {
	w := samplePlain()
	w.Extension.Set("counter", wallet.Int(9))

	_, err := codec.New().Encode(w)
	require.Error(t, err)
	assert.True(t, codec.IsEncodeError(err))
	assert.Contains(t, err.Error(), "counter")

	id := wallet.Identity{DID: "did:test:x"}
	id.Extension.Set("did", wallet.String("other"))
	w = samplePlain()
	w.Identities["x"] = id
	_, err = codec.New().Encode(w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identities.x.did")
}

func TestEncode_RejectsInvalidValues(t *testing.T) {
	w := samplePlain()
	w.Extension.Set("bad", wallet.Number("01"))
	_, err := codec.New().Encode(w)
	require.Error(t, err)
	assert.True(t, codec.IsEncodeError(err))

	w = samplePlain()
	w.Extension.Set("list", wallet.Array{wallet.String("ok"), nil})
	_, err = codec.New().Encode(w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list[1]")

	_, err = codec.New().Encode((*wallet.PlainWallet)(nil))
	require.Error(t, err)
}

func TestEncode_NoHTMLEscaping(t *testing.T) {
	w := samplePlain()
	w.Extension.Set("note", wallet.String("<a&b>\u2028line\u2029sep"))

	data, err := codec.New().Encode(w)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<a&b>\u2028line\u2029sep")
	assert.NotContains(t, string(data), `\u003c`)
	assert.NotContains(t, string(data), `\u2028`)

	got, err := codec.New().Decode(data)
	require.NoError(t, err)
	assert.True(t, wallet.Equal(w, got))
}

func TestEncode_IndentedEndsWithNewline(t *testing.T) {
	data, err := codec.New().Encode(sampleEncrypted())
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(data, []byte("}\n")))
	assert.True(t, codec.New(codec.WithCanonical()).Canonical())
	assert.False(t, codec.New().Canonical())
}
