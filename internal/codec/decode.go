package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/roach88/walletstore/internal/wallet"
)

// utf8BOM is tolerated in front of a document; some editors on Windows add it.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// parseDocument reads exactly one JSON object, keeping key order.
func parseDocument(data []byte) (*wallet.Object, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &DecodeError{Message: "empty document"}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := parseValue(dec, "")
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			return nil, de
		}
		return nil, &DecodeError{Message: "malformed JSON", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &DecodeError{Message: "unexpected data after wallet object"}
	}

	doc, ok := v.(*wallet.Object)
	if !ok {
		return nil, &DecodeError{Message: "document is not a JSON object"}
	}
	return doc, nil
}

// parseValue consumes one JSON value from dec. Objects become *wallet.Object
// so key order is preserved; numbers keep their literal text.
func parseValue(dec *json.Decoder, path string) (wallet.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := &wallet.Object{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, not string", keyTok)
				}
				childPath := joinPath(path, key)
				if obj.Has(key) {
					return nil, fieldError(childPath, "duplicate key")
				}
				val, err := parseValue(dec, childPath)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // '}'
				return nil, err
			}
			return obj, nil
		case '[':
			arr := wallet.Array{}
			for i := 0; dec.More(); i++ {
				val, err := parseValue(dec, fmt.Sprintf("%s[%d]", path, i))
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil { // ']'
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	case string:
		return wallet.String(t), nil
	case json.Number:
		return wallet.Number(t), nil
	case bool:
		return wallet.Bool(t), nil
	case nil:
		return wallet.Null{}, nil
	default:
		return nil, fmt.Errorf("unexpected token %T", tok)
	}
}

// fromDocument binds a parsed document to the wallet variant its fields
// indicate. Ciphertext fields select the encrypted variant even if plain
// fields are also present; those then land in the extension bag.
func fromDocument(doc *wallet.Object) (wallet.Wallet, error) {
	switch {
	case hasAll(doc, cipherFields...):
		return decodeEncrypted(doc)
	case hasAny(doc, fieldCounter, fieldIdentities):
		return decodePlain(doc)
	case hasAny(doc, cipherFields...):
		// Incomplete ciphertext and no plain fields: report what is missing.
		return decodeEncrypted(doc)
	default:
		return nil, &DecodeError{Message: "unknown wallet variant: expected enc/salt/iv/data or counter/identities"}
	}
}

func decodePlain(doc *wallet.Object) (*wallet.PlainWallet, error) {
	w := &wallet.PlainWallet{}
	var err error

	if w.Version, err = requireInt(doc, fieldVersion, ""); err != nil {
		return nil, err
	}
	seedVal, ok := doc.Get(fieldSeed)
	if !ok {
		return nil, fieldError(fieldSeed, "required field missing")
	}
	if w.Seed, err = decodeSeed(seedVal, fieldSeed); err != nil {
		return nil, err
	}
	if w.Counter, err = requireInt(doc, fieldCounter, ""); err != nil {
		return nil, err
	}
	if w.Identities, err = decodeIdentities(doc); err != nil {
		return nil, err
	}
	if w.Current, err = optionalString(doc, fieldCurrent, ""); err != nil {
		return nil, err
	}

	collectExtension(&w.Extension, doc, plainFields)
	return w, nil
}

func decodeEncrypted(doc *wallet.Object) (*wallet.EncryptedWallet, error) {
	w := &wallet.EncryptedWallet{}
	var err error

	if w.Version, err = requireInt(doc, fieldVersion, ""); err != nil {
		return nil, err
	}
	if seedVal, ok := doc.Get(fieldSeed); ok {
		if _, isNull := seedVal.(wallet.Null); !isNull {
			seed, err := decodeSeed(seedVal, fieldSeed)
			if err != nil {
				return nil, err
			}
			w.Seed = &seed
		}
	}
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{fieldEnc, &w.Enc},
		{fieldSalt, &w.Salt},
		{fieldIV, &w.IV},
		{fieldData, &w.Data},
	} {
		if *f.dst, err = requireString(doc, f.name, ""); err != nil {
			return nil, err
		}
	}

	collectExtension(&w.Extension, doc, encryptedFields)
	return w, nil
}

func decodeSeed(v wallet.Value, path string) (wallet.Seed, error) {
	obj, ok := v.(*wallet.Object)
	if !ok {
		return wallet.Seed{}, fieldError(path, "expected object, got %s", typeName(v))
	}

	var (
		seed wallet.Seed
		err  error
	)
	if seed.Mnemonic, err = optionalString(obj, fieldMnemonic, path); err != nil {
		return wallet.Seed{}, err
	}
	// Key material is opaque: kept as-is, including an explicit null.
	if hd, ok := obj.Get(fieldHDKey); ok {
		seed.HDKey = hd
	}
	if me, ok := obj.Get(fieldMnemonicEncrypted); ok {
		seed.MnemonicEncrypted = me
	}

	collectExtension(&seed.Extension, obj, seedFields)
	return seed, nil
}

func decodeIdentities(doc *wallet.Object) (map[string]wallet.Identity, error) {
	v, ok := doc.Get(fieldIdentities)
	if !ok {
		return nil, fieldError(fieldIdentities, "required field missing")
	}
	obj, ok := v.(*wallet.Object)
	if !ok {
		return nil, fieldError(fieldIdentities, "expected object, got %s", typeName(v))
	}

	ids := make(map[string]wallet.Identity, obj.Len())
	var err error
	obj.Range(func(name string, entry wallet.Value) bool {
		var id wallet.Identity
		id, err = decodeIdentity(entry, joinPath(fieldIdentities, name))
		if err != nil {
			return false
		}
		ids[name] = id
		return true
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func decodeIdentity(v wallet.Value, path string) (wallet.Identity, error) {
	obj, ok := v.(*wallet.Object)
	if !ok {
		return wallet.Identity{}, fieldError(path, "expected object, got %s", typeName(v))
	}

	var (
		id  wallet.Identity
		err error
	)
	if id.DID, err = requireString(obj, fieldDID, path); err != nil {
		return wallet.Identity{}, err
	}
	if id.Account, err = requireInt(obj, fieldAccount, path); err != nil {
		return wallet.Identity{}, err
	}
	if id.Index, err = requireInt(obj, fieldIndex, path); err != nil {
		return wallet.Identity{}, err
	}
	if id.Held, err = optionalStrings(obj, fieldHeld, path); err != nil {
		return wallet.Identity{}, err
	}
	if id.Owned, err = optionalStrings(obj, fieldOwned, path); err != nil {
		return wallet.Identity{}, err
	}

	collectExtension(&id.Extension, obj, identityFields)
	return id, nil
}

// collectExtension copies every key of obj that is not a schema field into
// ext, in document order, without interpreting the value.
func collectExtension(ext *wallet.Extension, obj *wallet.Object, known []string) {
	obj.Range(func(k string, v wallet.Value) bool {
		if !slices.Contains(known, k) {
			ext.Set(k, v)
		}
		return true
	})
}

func requireInt(obj *wallet.Object, key, path string) (int, error) {
	field := joinPath(path, key)
	v, ok := obj.Get(key)
	if !ok {
		return 0, fieldError(field, "required field missing")
	}
	n, ok := v.(wallet.Number)
	if !ok {
		return 0, fieldError(field, "expected integer, got %s", typeName(v))
	}
	i, err := n.Int64()
	if err != nil {
		return 0, fieldError(field, "expected integer, got %s", string(n))
	}
	if !inRange(i, math.MinInt, math.MaxInt) {
		return 0, fieldError(field, "integer %s out of range", string(n))
	}
	return int(i), nil
}

func requireString(obj *wallet.Object, key, path string) (string, error) {
	field := joinPath(path, key)
	v, ok := obj.Get(key)
	if !ok {
		return "", fieldError(field, "required field missing")
	}
	s, ok := v.(wallet.String)
	if !ok {
		return "", fieldError(field, "expected string, got %s", typeName(v))
	}
	return string(s), nil
}

// optionalString treats a missing key and an explicit null alike.
func optionalString(obj *wallet.Object, key, path string) (*string, error) {
	v, ok := obj.Get(key)
	if !ok {
		return nil, nil
	}
	switch s := v.(type) {
	case wallet.Null:
		return nil, nil
	case wallet.String:
		str := string(s)
		return &str, nil
	default:
		return nil, fieldError(joinPath(path, key), "expected string, got %s", typeName(v))
	}
}

func optionalStrings(obj *wallet.Object, key, path string) ([]string, error) {
	field := joinPath(path, key)
	v, ok := obj.Get(key)
	if !ok {
		return nil, nil
	}
	if _, isNull := v.(wallet.Null); isNull {
		return nil, nil
	}
	arr, ok := v.(wallet.Array)
	if !ok {
		return nil, fieldError(field, "expected array of strings, got %s", typeName(v))
	}
	out := make([]string, len(arr))
	for i, elem := range arr {
		s, ok := elem.(wallet.String)
		if !ok {
			return nil, fieldError(fmt.Sprintf("%s[%d]", field, i), "expected string, got %s", typeName(elem))
		}
		out[i] = string(s)
	}
	return out, nil
}

// inRange reports whether lo <= i <= hi. requireInt passes the bounds of int,
// which is 32 bits wide on some platforms.
func inRange(i, lo, hi int64) bool {
	return i >= lo && i <= hi
}

func hasAll(obj *wallet.Object, keys ...string) bool {
	for _, k := range keys {
		if !obj.Has(k) {
			return false
		}
	}
	return true
}

func hasAny(obj *wallet.Object, keys ...string) bool {
	for _, k := range keys {
		if obj.Has(k) {
			return true
		}
	}
	return false
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func typeName(v wallet.Value) string {
	switch v.(type) {
	case wallet.Null:
		return "null"
	case wallet.String:
		return "string"
	case wallet.Number:
		return "number"
	case wallet.Bool:
		return "bool"
	case wallet.Array:
		return "array"
	case *wallet.Object:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
