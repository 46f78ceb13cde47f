package codec

import (
	"fmt"
	"slices"

	"github.com/roach88/walletstore/internal/wallet"
)

// Schema field names. Extension bags may not reuse them at the same level.
const (
	fieldVersion    = "version"
	fieldSeed       = "seed"
	fieldCounter    = "counter"
	fieldIdentities = "identities"
	fieldCurrent    = "current"
	fieldEnc        = "enc"
	fieldSalt       = "salt"
	fieldIV         = "iv"
	fieldData       = "data"

	fieldMnemonic          = "mnemonic"
	fieldHDKey             = "hdkey"
	fieldMnemonicEncrypted = "mnemonicEncrypted"

	fieldDID     = "did"
	fieldAccount = "account"
	fieldIndex   = "index"
	fieldHeld    = "held"
	fieldOwned   = "owned"
)

var (
	plainFields     = []string{fieldVersion, fieldSeed, fieldCounter, fieldIdentities, fieldCurrent}
	encryptedFields = []string{fieldVersion, fieldSeed, fieldEnc, fieldSalt, fieldIV, fieldData}
	seedFields      = []string{fieldMnemonic, fieldHDKey, fieldMnemonicEncrypted}
	identityFields  = []string{fieldDID, fieldAccount, fieldIndex, fieldHeld, fieldOwned}

	// cipherFields together mark a document as encrypted.
	cipherFields = []string{fieldEnc, fieldSalt, fieldIV, fieldData}
)

// toDocument lays w out as an ordered object: schema fields first, then the
// extension bag.
func toDocument(w wallet.Wallet) (*wallet.Object, error) {
	doc := &wallet.Object{}

	switch v := w.(type) {
	case *wallet.PlainWallet:
		if v == nil {
			return nil, &EncodeError{Message: "nil wallet"}
		}
		doc.Set(fieldVersion, wallet.Int(int64(v.Version)))
		seed, err := seedDocument(v.Seed)
		if err != nil {
			return nil, prefixEncodeError(fieldSeed, err)
		}
		doc.Set(fieldSeed, seed)
		doc.Set(fieldCounter, wallet.Int(int64(v.Counter)))
		ids, err := identitiesDocument(v.Identities)
		if err != nil {
			return nil, prefixEncodeError(fieldIdentities, err)
		}
		doc.Set(fieldIdentities, ids)
		if v.Current != nil {
			doc.Set(fieldCurrent, wallet.String(*v.Current))
		}
		if err := mergeExtension(doc, &v.Extension, plainFields); err != nil {
			return nil, err
		}
		if hasAll(doc, cipherFields...) {
			return nil, &EncodeError{
				Field:   fieldData,
				Message: "extension carries enc, salt, iv and data; the document would decode as an encrypted wallet",
			}
		}

	case *wallet.EncryptedWallet:
		if v == nil {
			return nil, &EncodeError{Message: "nil wallet"}
		}
		doc.Set(fieldVersion, wallet.Int(int64(v.Version)))
		if v.Seed != nil {
			seed, err := seedDocument(*v.Seed)
			if err != nil {
				return nil, prefixEncodeError(fieldSeed, err)
			}
			doc.Set(fieldSeed, seed)
		}
		doc.Set(fieldEnc, wallet.String(v.Enc))
		doc.Set(fieldSalt, wallet.String(v.Salt))
		doc.Set(fieldIV, wallet.String(v.IV))
		doc.Set(fieldData, wallet.String(v.Data))
		if err := mergeExtension(doc, &v.Extension, encryptedFields); err != nil {
			return nil, err
		}

	default:
		return nil, &EncodeError{Message: fmt.Sprintf("unsupported wallet type %T", w)}
	}

	return doc, nil
}

func seedDocument(s wallet.Seed) (*wallet.Object, error) {
	obj := &wallet.Object{}
	if s.Mnemonic != nil {
		obj.Set(fieldMnemonic, wallet.String(*s.Mnemonic))
	}
	if s.HDKey != nil {
		obj.Set(fieldHDKey, s.HDKey)
	}
	if s.MnemonicEncrypted != nil {
		obj.Set(fieldMnemonicEncrypted, s.MnemonicEncrypted)
	}
	if err := mergeExtension(obj, &s.Extension, seedFields); err != nil {
		return nil, err
	}
	return obj, nil
}

// identitiesDocument emits identities sorted by name; Go maps carry no order.
func identitiesDocument(ids map[string]wallet.Identity) (*wallet.Object, error) {
	names := make([]string, 0, len(ids))
	for name := range ids {
		names = append(names, name)
	}
	slices.SortFunc(names, wallet.CompareKeys)

	obj := &wallet.Object{}
	for _, name := range names {
		id := ids[name]
		entry := &wallet.Object{}
		entry.Set(fieldDID, wallet.String(id.DID))
		entry.Set(fieldAccount, wallet.Int(int64(id.Account)))
		entry.Set(fieldIndex, wallet.Int(int64(id.Index)))
		if id.Held != nil {
			entry.Set(fieldHeld, stringArray(id.Held))
		}
		if id.Owned != nil {
			entry.Set(fieldOwned, stringArray(id.Owned))
		}
		if err := mergeExtension(entry, &id.Extension, identityFields); err != nil {
			return nil, prefixEncodeError(name, err)
		}
		obj.Set(name, entry)
	}
	return obj, nil
}

// mergeExtension appends every bag entry to obj. A bag key that collides
// with a schema field would produce a duplicate key, so it is rejected.
func mergeExtension(obj *wallet.Object, ext *wallet.Extension, reserved []string) error {
	var err error
	ext.Range(func(k string, v wallet.Value) bool {
		if slices.Contains(reserved, k) {
			err = &EncodeError{Field: k, Message: "extension key shadows a schema field"}
			return false
		}
		obj.Set(k, v)
		return true
	})
	return err
}

func stringArray(items []string) wallet.Array {
	arr := make(wallet.Array, len(items))
	for i, s := range items {
		arr[i] = wallet.String(s)
	}
	return arr
}
