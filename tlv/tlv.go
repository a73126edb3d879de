package tlv

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// extendedLengthMarker prefixes a 2-byte big-endian length for values that do
// not fit in the single-byte short form.
const extendedLengthMarker = 0xFF

// maxValueLength is the largest value the 2-byte extended length form can carry.
const maxValueLength = 0xFFFF

// Tlv is a single tag-length-value record. The length field is implicit:
// it always equals len(Value).
type Tlv struct {
	Tag   Tag
	Value []byte
}

// NewTlv builds a raw record without any type checking.
func NewTlv(tag Tag, value []byte) Tlv {
	return Tlv{Tag: tag, Value: value}
}

// Tlvs is an ordered sequence of records. Order is insignificant for
// decoding but preserved on encode for wire compatibility.
type Tlvs []Tlv

// Serialize writes the record in wire form: tag byte, 1-byte length for
// lengths below 0xFF, or the 0xFF marker followed by a 2-byte big-endian
// length for larger values.
func (t Tlv) Serialize() ([]byte, error) {
	if len(t.Value) > maxValueLength {
		return nil, newEncodingError(t.Tag, fmt.Sprintf("value length %d exceeds maximum %d", len(t.Value), maxValueLength))
	}

	buf := new(bytes.Buffer)
	buf.WriteByte(byte(t.Tag))
	if len(t.Value) < extendedLengthMarker {
		buf.WriteByte(byte(len(t.Value)))
	} else {
		buf.WriteByte(extendedLengthMarker)
		var ext [2]byte
		binary.BigEndian.PutUint16(ext[:], uint16(len(t.Value)))
		buf.Write(ext[:])
	}
	buf.Write(t.Value)

	return buf.Bytes(), nil
}

// Serialize concatenates the wire form of every record in sequence order.
func (ts Tlvs) Serialize() ([]byte, error) {
	buf := new(bytes.Buffer)
	for _, t := range ts {
		raw, err := t.Serialize()
		if err != nil {
			return nil, err
		}
		buf.Write(raw)
	}

	return buf.Bytes(), nil
}

// Deserialize parses a full wire buffer into a record sequence. Both length
// forms round-trip. A truncated record fails the whole parse.
func Deserialize(raw []byte) (Tlvs, error) {
	buf := bytes.NewBuffer(raw)
	tlvs := make(Tlvs, 0)

	for {
		tag, err := buf.ReadByte()
		if err == io.EOF {
			return tlvs, nil
		}

		length, err := buf.ReadByte()
		if err != nil {
			return nil, newTypeMismatchError(Tag(tag), "truncated length field")
		}

		var valueLen int
		if length == extendedLengthMarker {
			var ext [2]byte
			if _, err := io.ReadFull(buf, ext[:]); err != nil {
				return nil, newTypeMismatchError(Tag(tag), "truncated extended length field")
			}
			valueLen = int(binary.BigEndian.Uint16(ext[:]))
		} else {
			valueLen = int(length)
		}

		value := make([]byte, valueLen)
		if _, err := io.ReadFull(buf, value); err != nil {
			return nil, newTypeMismatchError(Tag(tag), fmt.Sprintf("truncated value, expected %d bytes", valueLen))
		}

		tlvs = append(tlvs, Tlv{Tag: Tag(tag), Value: value})
	}
}

// First returns the first record matching tag, in wire order.
func (ts Tlvs) First(tag Tag) (Tlv, bool) {
	for _, t := range ts {
		if t.Tag == tag {
			return t, true
		}
	}
	return Tlv{}, false
}

// All returns every record matching tag, in wire order. The result is empty,
// never nil checked as an error, when no record matches.
func (ts Tlvs) All(tag Tag) Tlvs {
	out := make(Tlvs, 0)
	for _, t := range ts {
		if t.Tag == tag {
			out = append(out, t)
		}
	}
	return out
}

// Contains reports whether at least one record matches tag.
func (ts Tlvs) Contains(tag Tag) bool {
	_, ok := ts.First(tag)
	return ok
}
