package tlv

import (
	"encoding/binary"
	"fmt"
	"time"
	"unicode/utf8"
)

// maxIntWidth bounds integer values to what an int64 can reconstruct.
const maxIntWidth = 8

// Encode converts a typed value into a record, checking the value's shape
// against the declared kind of the tag.
func Encode(tag Tag, value interface{}) (Tlv, error) {
	switch KindOf(tag) {
	case KindBytes:
		return encodeBytes(tag, value)
	case KindByte, KindCode:
		return encodeByte(tag, value)
	case KindInt:
		return encodeInt(tag, value)
	case KindString:
		return encodeString(tag, value)
	case KindBool:
		return encodeBool(tag, value)
	case KindDate:
		return encodeDate(tag, value)
	case KindTlvs:
		return encodeTlvs(tag, value)
	}

	return Tlv{}, newEncodingError(tag, "unknown kind")
}

func encodeBytes(tag Tag, value interface{}) (Tlv, error) {
	b, ok := value.([]byte)
	if !ok {
		return Tlv{}, newEncodingError(tag, fmt.Sprintf("expected []byte, got %T", value))
	}
	return NewTlv(tag, b), nil
}

func encodeByte(tag Tag, value interface{}) (Tlv, error) {
	b, ok := value.(byte)
	if !ok {
		return Tlv{}, newEncodingError(tag, fmt.Sprintf("expected byte, got %T", value))
	}
	return NewTlv(tag, []byte{b}), nil
}

// encodeInt writes the minimal big-endian form with no leading zero byte.
// Zero encodes as the empty value.
func encodeInt(tag Tag, value interface{}) (Tlv, error) {
	v, ok := value.(int64)
	if !ok {
		return Tlv{}, newEncodingError(tag, fmt.Sprintf("expected int64, got %T", value))
	}
	if v < 0 {
		return Tlv{}, newEncodingError(tag, "negative integer")
	}

	var full [8]byte
	binary.BigEndian.PutUint64(full[:], uint64(v))
	trimmed := full[:]
	for len(trimmed) > 0 && trimmed[0] == 0 {
		trimmed = trimmed[1:]
	}

	out := make([]byte, len(trimmed))
	copy(out, trimmed)

	return NewTlv(tag, out), nil
}

func encodeString(tag Tag, value interface{}) (Tlv, error) {
	s, ok := value.(string)
	if !ok {
		return Tlv{}, newEncodingError(tag, fmt.Sprintf("expected string, got %T", value))
	}
	if !utf8.ValidString(s) {
		return Tlv{}, newEncodingError(tag, "not valid utf-8")
	}
	return NewTlv(tag, []byte(s)), nil
}

func encodeBool(tag Tag, value interface{}) (Tlv, error) {
	b, ok := value.(bool)
	if !ok {
		return Tlv{}, newEncodingError(tag, fmt.Sprintf("expected bool, got %T", value))
	}
	if b {
		return NewTlv(tag, []byte{0x01}), nil
	}
	return NewTlv(tag, []byte{0x00}), nil
}

// encodeDate uses a fixed 4-byte form: 2-byte big-endian year, month, day.
func encodeDate(tag Tag, value interface{}) (Tlv, error) {
	d, ok := value.(time.Time)
	if !ok {
		return Tlv{}, newEncodingError(tag, fmt.Sprintf("expected time.Time, got %T", value))
	}

	out := make([]byte, 4)
	binary.BigEndian.PutUint16(out[:2], uint16(d.Year()))
	out[2] = byte(d.Month())
	out[3] = byte(d.Day())

	return NewTlv(tag, out), nil
}

func encodeTlvs(tag Tag, value interface{}) (Tlv, error) {
	nested, ok := value.(Tlvs)
	if !ok {
		return Tlv{}, newEncodingError(tag, fmt.Sprintf("expected tlv.Tlvs, got %T", value))
	}

	raw, err := nested.Serialize()
	if err != nil {
		return Tlv{}, err
	}

	return NewTlv(tag, raw), nil
}
