package graph

import (
	"bytes"
	"encoding/json"

	"golang.org/x/xerrors"
)

// GunValue is the tagged union of values a vertex can carry on the wire:
// null, booleans, 32-bit floats, text, links to other vertices, and maps of
// child values. The concrete types below are the only implementations.
type GunValue interface {
	json.Marshaler

	isGunValue()
}

// Null is the explicit null value.
type Null struct{}

// Bit is a boolean value.
type Bit bool

// Number is a 32-bit floating point value.
type Number float32

// Text is a string value.
type Text string

// Link is a reference-only child value carrying the target vertex id.
type Link int

// Children is a mapping from key to value, synthesized for interior
// vertices. Serialization orders keys lexicographically.
type Children map[string]GunValue

func (Null) isGunValue()     {}
func (Bit) isGunValue()      {}
func (Number) isGunValue()   {}
func (Text) isGunValue()     {}
func (Link) isGunValue()     {}
func (Children) isGunValue() {}

// MarshalJSON implements json.Marshaler.
func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// MarshalJSON implements json.Marshaler.
func (b Bit) MarshalJSON() ([]byte, error) { return json.Marshal(bool(b)) }

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) { return json.Marshal(float32(n)) }

// MarshalJSON implements json.Marshaler.
func (t Text) MarshalJSON() ([]byte, error) { return json.Marshal(string(t)) }

// MarshalJSON implements json.Marshaler.
func (l Link) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]int{"#": int(l)})
}

// MarshalJSON implements json.Marshaler.
func (c Children) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]GunValue(c))
}

// DecodeValue decodes an arbitrary JSON value into the GunValue variant it
// represents. Objects recurse into Children; an object whose only key is
// "#" decodes to a Link when that value is an integer and is rejected with
// ErrInvalidValue otherwise.
func DecodeValue(data []byte) (GunValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, xerrors.Errorf("decode value: %w", err)
	}
	return valueFromJSON(raw)
}

func valueFromJSON(raw interface{}) (GunValue, error) {
	switch v := raw.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bit(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, xerrors.Errorf("decode value: non-numeric number %q: %w", v.String(), ErrInvalidValue)
		}
		return Number(float32(f)), nil
	case string:
		return Text(v), nil
	case map[string]interface{}:
		if soul, isLink := v["#"]; isLink && len(v) == 1 {
			num, ok := soul.(json.Number)
			if !ok {
				// Path-addressed back-references are resolved by the merge
				// engine, not representable as a value.
				return nil, xerrors.Errorf("decode value: link soul is not numeric: %w", ErrInvalidValue)
			}
			id, err := num.Int64()
			if err != nil {
				return nil, xerrors.Errorf("decode value: link soul is not an integer: %w", ErrInvalidValue)
			}
			return Link(int(id)), nil
		}
		children := make(Children, len(v))
		for key, childRaw := range v {
			child, err := valueFromJSON(childRaw)
			if err != nil {
				return nil, err
			}
			children[key] = child
		}
		return children, nil
	}
	return nil, xerrors.Errorf("decode value: unsupported JSON shape %T: %w", raw, ErrInvalidValue)
}
