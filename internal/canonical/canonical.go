// Package canonical produces the deterministic byte representation that
// every STAT7 hash is computed over.
//
// The serializer is the single point all hashing routes through. Two
// independent implementations fed the same logical value must emit
// byte-identical output, so every rule here is load-bearing:
//
//   - object keys sorted by case-sensitive ASCII (byte) order at every depth
//   - floats normalized to 8-decimal fixed form (see NormalizeFloat)
//   - timestamps rendered as ISO-8601 UTC with millisecond precision
//   - strings NFC normalized, minimal JSON escaping, no HTML escaping
//   - minified output, no extraneous whitespace
//
// Array order is preserved as given: semantic ordering (adjacency sets
// sorted, entanglement links sorted by target id, event logs in insertion
// order) is applied by the caller before serialization.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Mapper is implemented by domain types that serialize through an explicit
// map form. Keeping the conversion on the type avoids reflection and makes
// the hash input of each record auditable in one place.
type Mapper interface {
	CanonicalMap() map[string]any
}

// Marshal produces canonical bytes for v.
//
// Supported leaf types: nil, bool, string, int, int32, int64, float32,
// float64, json.Number, time.Time. Composites: []any, []string,
// map[string]any, and any Mapper. Anything else is a SchemaViolation.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshal(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshal(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case string:
		return marshalString(buf, val)
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
		return nil
	case int32:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
		return nil
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
		return nil
	case float32:
		return marshalFloat(buf, float64(val))
	case float64:
		return marshalFloat(buf, val)
	case json.Number:
		return marshalNumber(buf, val)
	case time.Time:
		return marshalString(buf, FormatTimestamp(val))
	case []string:
		arr := make([]any, len(val))
		for i, s := range val {
			arr[i] = s
		}
		return marshalArray(buf, arr)
	case []any:
		return marshalArray(buf, val)
	case map[string]any:
		return marshalObject(buf, val)
	case Mapper:
		return marshalObject(buf, val.CanonicalMap())
	default:
		return Violation("", "unsupported type for canonical serialization: %T", v)
	}
}

// marshalFloat emits the normalized decimal form as a bare number token.
func marshalFloat(buf *bytes.Buffer, v float64) error {
	s, err := NormalizeFloat(v)
	if err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

// marshalNumber handles json.Number from decoded canonical bytes: integer
// tokens pass through verbatim, fractional tokens re-normalize. This keeps
// decode-then-reserialize byte-stable for integers, which float64 decoding
// would silently widen.
func marshalNumber(buf *bytes.Buffer, n json.Number) error {
	s := string(n)
	if !strings.ContainsAny(s, ".eE") {
		if _, err := n.Int64(); err != nil {
			return Violation("", "integer out of int64 range: %s", s)
		}
		buf.WriteString(s)
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return Violation("", "invalid number: %s", s)
	}
	return marshalFloat(buf, f)
}

func marshalArray(buf *bytes.Buffer, arr []any) error {
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshal(buf, elem); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

// marshalObject emits keys in case-sensitive ASCII byte order at every
// nesting depth. Byte order and not UTF-16 order: the convention is fixed
// once for the whole system and never mixed with any other ordering.
func marshalObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshalString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.WriteByte(':')
		if err := marshal(buf, obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

const hexDigits = "0123456789abcdef"

// marshalString writes s as a JSON string with NFC normalization and
// minimal escaping. Only backslash, quote, and control characters below
// U+0020 are escaped; <, >, &, U+2028, and U+2029 stay literal.
func marshalString(buf *bytes.Buffer, s string) error {
	s = norm.NFC.String(s)
	if !utf8.ValidString(s) {
		return Violation("", "invalid UTF-8 in string")
	}

	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[byte(r)>>4])
				buf.WriteByte(hexDigits[byte(r)&0xF])
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
	return nil
}

// Decode parses canonical bytes back into the generic value domain
// (map[string]any / []any / json.Number / string / bool / nil).
//
// Numbers decode as json.Number so that Marshal(Decode(x)) == x holds for
// all valid canonical byte strings.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, Violation("", "invalid canonical JSON: %v", err)
	}
	if dec.More() {
		return nil, Violation("", "trailing data after canonical JSON value")
	}
	return v, nil
}
