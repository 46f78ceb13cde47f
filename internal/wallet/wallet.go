package wallet

import (
	"maps"
	"slices"
)

// Kind identifies the wallet variant.
type Kind int

const (
	// KindPlain is a wallet whose identities and counter are stored in clear.
	KindPlain Kind = iota
	// KindEncrypted is a wallet whose body is an opaque ciphertext.
	KindEncrypted
)

// String returns the string form of the kind.
func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindEncrypted:
		return "encrypted"
	default:
		return "unknown"
	}
}

// Wallet is a sealed sum type over *PlainWallet and *EncryptedWallet.
type Wallet interface {
	Kind() Kind
	// SchemaVersion returns the document's version field.
	SchemaVersion() int
	// Extra returns the top-level extension bag.
	Extra() *Extension

	wallet() // Sealed
}

// Seed is root key material. Depending on lifecycle stage the mnemonic is
// stored in clear, encrypted (MnemonicEncrypted), or only as a derived key.
// HDKey and MnemonicEncrypted are opaque to the store; nil means absent.
type Seed struct {
	Mnemonic          *string
	HDKey             Value
	MnemonicEncrypted Value
	Extension         Extension
}

// Identity is one managed decentralized identity.
//
// Held and Owned distinguish absent (nil) from present-but-empty.
type Identity struct {
	DID       string
	Account   int
	Index     int
	Held      []string
	Owned     []string
	Extension Extension
}

// PlainWallet is the cleartext wallet document.
type PlainWallet struct {
	Version    int
	Seed       Seed
	Counter    int
	Identities map[string]Identity
	Current    *string
	Extension  Extension
}

// EncryptedWallet carries the wallet body as ciphertext plus the parameters
// needed to decrypt it. Seed is kept independently of the ciphertext; the
// store makes no assumption about how the two relate.
type EncryptedWallet struct {
	Version   int
	Seed      *Seed
	Enc       string
	Salt      string
	IV        string
	Data      string
	Extension Extension
}

func (*PlainWallet) wallet()     {}
func (*EncryptedWallet) wallet() {}

// Kind implements Wallet.
func (*PlainWallet) Kind() Kind { return KindPlain }

// Kind implements Wallet.
func (*EncryptedWallet) Kind() Kind { return KindEncrypted }

// SchemaVersion implements Wallet.
func (w *PlainWallet) SchemaVersion() int { return w.Version }

// SchemaVersion implements Wallet.
func (w *EncryptedWallet) SchemaVersion() int { return w.Version }

// Extra implements Wallet.
func (w *PlainWallet) Extra() *Extension { return &w.Extension }

// Extra implements Wallet.
func (w *EncryptedWallet) Extra() *Extension { return &w.Extension }

// StringPtr returns a pointer to s, for optional string fields.
func StringPtr(s string) *string {
	return &s
}

// Clone returns a deep copy of w that shares no memory with it.
func Clone(w Wallet) Wallet {
	switch v := w.(type) {
	case *PlainWallet:
		out := &PlainWallet{
			Version:   v.Version,
			Seed:      v.Seed.Clone(),
			Counter:   v.Counter,
			Current:   clonePtr(v.Current),
			Extension: *v.Extension.Clone(),
		}
		if v.Identities != nil {
			out.Identities = make(map[string]Identity, len(v.Identities))
			for name, id := range v.Identities {
				out.Identities[name] = id.Clone()
			}
		}
		return out
	case *EncryptedWallet:
		out := &EncryptedWallet{
			Version:   v.Version,
			Enc:       v.Enc,
			Salt:      v.Salt,
			IV:        v.IV,
			Data:      v.Data,
			Extension: *v.Extension.Clone(),
		}
		if v.Seed != nil {
			seed := v.Seed.Clone()
			out.Seed = &seed
		}
		return out
	default:
		return nil
	}
}

// Clone returns a deep copy of s.
func (s Seed) Clone() Seed {
	return Seed{
		Mnemonic:          clonePtr(s.Mnemonic),
		HDKey:             CloneValue(s.HDKey),
		MnemonicEncrypted: CloneValue(s.MnemonicEncrypted),
		Extension:         *s.Extension.Clone(),
	}
}

// Clone returns a deep copy of id.
func (id Identity) Clone() Identity {
	return Identity{
		DID:       id.DID,
		Account:   id.Account,
		Index:     id.Index,
		Held:      slices.Clone(id.Held),
		Owned:     slices.Clone(id.Owned),
		Extension: *id.Extension.Clone(),
	}
}

// Equal reports whether a and b are structurally equal, including every
// extension-bag entry. A nil Identities map equals an empty one.
func Equal(a, b Wallet) bool {
	switch av := a.(type) {
	case *PlainWallet:
		bv, ok := b.(*PlainWallet)
		if !ok || av == nil || bv == nil {
			return ok && av == bv
		}
		return av.Version == bv.Version &&
			av.Seed.Equal(bv.Seed) &&
			av.Counter == bv.Counter &&
			maps.EqualFunc(av.Identities, bv.Identities, Identity.Equal) &&
			equalPtr(av.Current, bv.Current) &&
			av.Extension.Equal(&bv.Extension)
	case *EncryptedWallet:
		bv, ok := b.(*EncryptedWallet)
		if !ok || av == nil || bv == nil {
			return ok && av == bv
		}
		if (av.Seed == nil) != (bv.Seed == nil) {
			return false
		}
		if av.Seed != nil && !av.Seed.Equal(*bv.Seed) {
			return false
		}
		return av.Version == bv.Version &&
			av.Enc == bv.Enc &&
			av.Salt == bv.Salt &&
			av.IV == bv.IV &&
			av.Data == bv.Data &&
			av.Extension.Equal(&bv.Extension)
	default:
		return a == nil && b == nil
	}
}

// Equal reports whether s and other hold the same key material.
func (s Seed) Equal(other Seed) bool {
	return equalPtr(s.Mnemonic, other.Mnemonic) &&
		EqualValues(s.HDKey, other.HDKey) &&
		EqualValues(s.MnemonicEncrypted, other.MnemonicEncrypted) &&
		s.Extension.Equal(&other.Extension)
}

// Equal reports whether id and other describe the same identity.
func (id Identity) Equal(other Identity) bool {
	return id.DID == other.DID &&
		id.Account == other.Account &&
		id.Index == other.Index &&
		equalList(id.Held, other.Held) &&
		equalList(id.Owned, other.Owned) &&
		id.Extension.Equal(&other.Extension)
}

func equalList(a, b []string) bool {
	return (a == nil) == (b == nil) && slices.Equal(a, b)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
