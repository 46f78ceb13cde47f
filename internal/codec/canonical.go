package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/roach88/walletstore/internal/wallet"
)

// jsonNumber matches the RFC 8259 number grammar.
var jsonNumber = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// writeValue serializes v as compact JSON. With sortKeys set, object keys
// are written in RFC 8785 order; otherwise in insertion order.
func writeValue(buf *bytes.Buffer, v wallet.Value, sortKeys bool) error {
	switch val := v.(type) {
	case nil:
		return &EncodeError{Message: "nil value (use wallet.Null for null)"}
	case wallet.Null:
		buf.WriteString("null")
	case wallet.String:
		return writeString(buf, string(val))
	case wallet.Number:
		if !jsonNumber.MatchString(string(val)) {
			return &EncodeError{Message: fmt.Sprintf("invalid number literal %q", string(val))}
		}
		buf.WriteString(string(val))
	case wallet.Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case wallet.Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, elem, sortKeys); err != nil {
				return prefixEncodeError(fmt.Sprintf("[%d]", i), err)
			}
		}
		buf.WriteByte(']')
	case *wallet.Object:
		return writeObject(buf, val, sortKeys)
	default:
		return &EncodeError{Message: fmt.Sprintf("unsupported value type %T", v)}
	}
	return nil
}

func writeObject(buf *bytes.Buffer, obj *wallet.Object, sortKeys bool) error {
	keys := obj.Keys()
	if sortKeys {
		keys = obj.SortedKeys()
	}

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		v, _ := obj.Get(k)
		if err := writeValue(buf, v, sortKeys); err != nil {
			return prefixEncodeError(k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// writeString writes s as a JSON string.
//
// Only quote, backslash and control characters are escaped: no HTML
// escaping, and U+2028/U+2029 are written literally (RFC 8785). Strings are
// not normalized so opaque data survives unchanged.
func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return &EncodeError{Message: err.Error()}
	}
	// json.Encoder adds a trailing newline.
	out := bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'})
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes produced by
// encoding/json back into literal characters. An escaped backslash followed
// by "u2028" is literal text and is left alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}
		if data[i+1] == 'u' && i+6 <= len(data) {
			switch string(data[i+2 : i+6]) {
			case "2028":
				out = append(out, "\u2028"...)
				i += 5
				continue
			case "2029":
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		// Any other escape: copy both bytes so the second is never
		// mistaken for the start of a new escape.
		out = append(out, data[i], data[i+1])
		i++
	}
	return out
}

func prefixEncodeError(segment string, err error) error {
	ee, ok := err.(*EncodeError)
	if !ok {
		return err
	}
	field := segment
	if ee.Field != "" {
		if ee.Field[0] == '[' {
			field = segment + ee.Field
		} else {
			field = segment + "." + ee.Field
		}
	}
	return &EncodeError{Field: field, Message: ee.Message}
}
