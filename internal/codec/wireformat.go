// Package codec implements C1: the Confluent-framed wire contract between
// Test-Probe and every Kafka topic it touches — magic byte, schema id,
// and (for protobuf) the message-index array — backed by a Schema Registry
// client and a bounded subject/id cache.
package codec

import (
	"encoding/binary"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
)

const (
	magicByte     byte = 0x00
	wireHeaderLen      = 5 // magic byte + 4-byte big-endian schema id
)

// encodeHeader prepends the Confluent wire header to payload: magic byte,
// then the schema id as 4 bytes big-endian.
func encodeHeader(schemaID int, payload []byte) []byte {
	out := make([]byte, wireHeaderLen+len(payload))
	out[0] = magicByte
	binary.BigEndian.PutUint32(out[1:5], uint32(schemaID))
	copy(out[5:], payload)
	return out
}

// decodeHeader splits the Confluent wire header off the front of raw,
// returning the schema id and the remaining bytes (message-index array and
// payload still attached for protobuf; just payload otherwise).
func decodeHeader(raw []byte) (schemaID int, rest []byte, err error) {
	if len(raw) < wireHeaderLen {
		return 0, nil, domain.ErrWireFormatTooShort
	}
	if raw[0] != magicByte {
		return 0, nil, domain.ErrWireFormatMagic
	}
	id := int(binary.BigEndian.Uint32(raw[1:5]))
	if id <= 0 {
		return 0, nil, domain.ErrWireFormatSchemaID
	}
	return id, raw[5:], nil
}

// encodeMessageIndexArray encodes the protobuf message-index array. For a
// single-message schema (the only shape Test-Probe's payloads use) this is
// the single zero-valued varint, per spec.
func encodeMessageIndexArray() []byte {
	return []byte{0x00}
}

// decodeMessageIndexArray reads and discards a protobuf message-index
// array from the front of raw, returning what follows it. Each varint is
// a standard protobuf-style variable-length zigzag-free unsigned integer;
// the array is prefixed by its element count, except the single-message
// shorthand of a lone zero byte (meaning "index [0]").
func decodeMessageIndexArray(raw []byte) (rest []byte, err error) {
	count, n, err := readVarint(raw)
	if err != nil {
		return nil, domain.ErrWireFormatTooShort
	}
	if count == 0 {
		// Shorthand: a single message, index [0]; nothing further to skip.
		return raw[n:], nil
	}
	pos := n
	for i := int64(0); i < count; i++ {
		_, consumed, err := readVarint(raw[pos:])
		if err != nil {
			return nil, domain.ErrWireFormatTooShort
		}
		pos += consumed
	}
	return raw[pos:], nil
}

func readVarint(buf []byte) (value int64, n int, err error) {
	var shift uint
	for n < len(buf) {
		b := buf[n]
		value |= int64(b&0x7f) << shift
		n++
		if b&0x80 == 0 {
			return value, n, nil
		}
		shift += 7
	}
	return 0, 0, domain.ErrWireFormatTooShort
}
