package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// RecordType classifies a record's payload.
type RecordType uint8

const (
	// RecordHandshake carries one encoded handshake message.
	RecordHandshake RecordType = 1

	// RecordAlert carries a single alert code byte.
	RecordAlert RecordType = 2
)

// Record framing constants.
const (
	// RecordHeaderLen is the record header size: 1-byte type plus 4-byte
	// big-endian payload length.
	RecordHeaderLen = 5

	// MaxRecordPayload bounds a record payload. Handshake messages fit
	// comfortably; anything larger is a protocol violation.
	MaxRecordPayload = 1 << 18
)

// Record framing errors.
var (
	ErrRecordTooLarge = errors.New("wire: record payload too large")
	ErrBadRecordType  = errors.New("wire: unknown record type")
)

// String returns the record type name.
func (t RecordType) String() string {
	switch t {
	case RecordHandshake:
		return "HANDSHAKE"
	case RecordAlert:
		return "ALERT"
	default:
		return "UNKNOWN"
	}
}

// PutRecordHeader writes a record header for a payload of length n into
// hdr, which must be at least RecordHeaderLen bytes.
func PutRecordHeader(hdr []byte, typ RecordType, n int) {
	hdr[0] = byte(typ)
	binary.BigEndian.PutUint32(hdr[1:RecordHeaderLen], uint32(n))
}

// ParseRecordHeader validates a record header and returns the record type
// and payload length.
func ParseRecordHeader(hdr []byte) (RecordType, int, error) {
	typ := RecordType(hdr[0])
	if typ != RecordHandshake && typ != RecordAlert {
		return 0, 0, fmt.Errorf("%w: %d", ErrBadRecordType, hdr[0])
	}
	n := int(binary.BigEndian.Uint32(hdr[1:RecordHeaderLen]))
	if n > MaxRecordPayload {
		return 0, 0, fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, n)
	}
	return typ, n, nil
}
