package tlv

import (
	"encoding/binary"
	"fmt"
	"time"
	"unicode/utf8"
)

// DecodeBytes returns the raw value of the first record matching tag.
func DecodeBytes(ts Tlvs, tag Tag) ([]byte, error) {
	t, ok := ts.First(tag)
	if !ok {
		return nil, newMissingTagError(tag)
	}
	return t.Value, nil
}

// DecodeOptionalBytes is DecodeBytes with an absent tag reported through the
// boolean instead of an error.
func DecodeOptionalBytes(ts Tlvs, tag Tag) ([]byte, bool) {
	t, ok := ts.First(tag)
	if !ok {
		return nil, false
	}
	return t.Value, true
}

// DecodeAllBytes returns the values of every record matching tag in wire
// order. No matches is an empty slice, not an error.
func DecodeAllBytes(ts Tlvs, tag Tag) [][]byte {
	matches := ts.All(tag)
	out := make([][]byte, 0, len(matches))
	for _, t := range matches {
		out = append(out, t.Value)
	}
	return out
}

// DecodeString converts the first matching record to a UTF-8 string.
func DecodeString(ts Tlvs, tag Tag) (string, error) {
	t, ok := ts.First(tag)
	if !ok {
		return "", newMissingTagError(tag)
	}
	if !utf8.Valid(t.Value) {
		return "", newTypeMismatchError(tag, "not valid utf-8")
	}
	return string(t.Value), nil
}

// DecodeOptionalString is DecodeString with an absent tag reported through
// the boolean instead of an error. An invalid value still errors.
func DecodeOptionalString(ts Tlvs, tag Tag) (string, bool, error) {
	if _, ok := ts.First(tag); !ok {
		return "", false, nil
	}
	s, err := DecodeString(ts, tag)
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

// DecodeByte converts the first matching record to a single byte. The record
// must be exactly one byte long.
func DecodeByte(ts Tlvs, tag Tag) (byte, error) {
	t, ok := ts.First(tag)
	if !ok {
		return 0, newMissingTagError(tag)
	}
	if len(t.Value) != 1 {
		return 0, newTypeMismatchError(tag, fmt.Sprintf("expected 1 byte, got %d", len(t.Value)))
	}
	return t.Value[0], nil
}

// DecodeInt reconstructs a big-endian integer from any trimmed width up to
// 8 bytes. The empty value decodes to zero.
func DecodeInt(ts Tlvs, tag Tag) (int64, error) {
	t, ok := ts.First(tag)
	if !ok {
		return 0, newMissingTagError(tag)
	}
	return intFromBytes(tag, t.Value)
}

// DecodeOptionalInt is DecodeInt with an absent tag reported through the
// boolean. A present but malformed record still fails.
func DecodeOptionalInt(ts Tlvs, tag Tag) (int64, bool, error) {
	t, ok := ts.First(tag)
	if !ok {
		return 0, false, nil
	}
	v, err := intFromBytes(tag, t.Value)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func intFromBytes(tag Tag, raw []byte) (int64, error) {
	if len(raw) > maxIntWidth {
		return 0, newTypeMismatchError(tag, fmt.Sprintf("integer wider than %d bytes", maxIntWidth))
	}

	var full [8]byte
	copy(full[8-len(raw):], raw)
	v := binary.BigEndian.Uint64(full[:])
	if v > uint64(1)<<63-1 {
		return 0, newTypeMismatchError(tag, "integer overflows int64")
	}

	return int64(v), nil
}

// DecodeBool converts the first matching record to a boolean. A zero-length
// value decodes to false, a single byte to its truth value.
func DecodeBool(ts Tlvs, tag Tag) (bool, error) {
	t, ok := ts.First(tag)
	if !ok {
		return false, newMissingTagError(tag)
	}
	switch len(t.Value) {
	case 0:
		return false, nil
	case 1:
		return t.Value[0] != 0, nil
	}
	return false, newTypeMismatchError(tag, fmt.Sprintf("expected at most 1 byte, got %d", len(t.Value)))
}

// DecodeDate converts the fixed 4-byte date form back into a time.Time in UTC.
func DecodeDate(ts Tlvs, tag Tag) (time.Time, error) {
	t, ok := ts.First(tag)
	if !ok {
		return time.Time{}, newMissingTagError(tag)
	}
	if len(t.Value) != 4 {
		return time.Time{}, newTypeMismatchError(tag, fmt.Sprintf("expected 4 bytes, got %d", len(t.Value)))
	}

	year := int(binary.BigEndian.Uint16(t.Value[:2]))
	month := time.Month(t.Value[2])
	day := int(t.Value[3])
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, newTypeMismatchError(tag, "date out of range")
	}

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}

// DecodeTlvs parses the first matching record's value as a nested sequence.
func DecodeTlvs(ts Tlvs, tag Tag) (Tlvs, error) {
	t, ok := ts.First(tag)
	if !ok {
		return nil, newMissingTagError(tag)
	}
	nested, err := Deserialize(t.Value)
	if err != nil {
		return nil, newTypeMismatchError(tag, "malformed nested sequence")
	}
	return nested, nil
}

// DecodeAllTlvs parses every matching record as a nested sequence, in wire
// order.
func DecodeAllTlvs(ts Tlvs, tag Tag) ([]Tlvs, error) {
	matches := ts.All(tag)
	out := make([]Tlvs, 0, len(matches))
	for _, t := range matches {
		nested, err := Deserialize(t.Value)
		if err != nil {
			return nil, newTypeMismatchError(tag, "malformed nested sequence")
		}
		out = append(out, nested)
	}
	return out, nil
}
