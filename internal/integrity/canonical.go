package integrity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedJSON is returned when stored JSON text cannot be re-read.
var ErrMalformedJSON = errors.New("integrity: malformed JSON")

// Canonical encodes v as compact JSON without HTML escaping. Struct fields
// keep declaration order and map keys are sorted, so two encodings of equal
// values are byte-identical.
func Canonical(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// CanonicalizeJSON rewrites arbitrary JSON text into canonical form: objects
// become key-sorted maps, whitespace is removed and numbers are kept verbatim.
func CanonicalizeJSON(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrMalformedJSON)
	}
	return Canonical(v)
}

// CanonicalDiff turns an audit diff of any JSON-encodable shape into the
// canonical text that is stored and hashed. A nil diff becomes "{}".
func CanonicalDiff(diff interface{}) ([]byte, error) {
	if diff == nil {
		return []byte("{}"), nil
	}
	first, err := Canonical(diff)
	if err != nil {
		return nil, err
	}
	if bytes.Equal(first, []byte("null")) {
		return []byte("{}"), nil
	}
	return CanonicalizeJSON(first)
}
