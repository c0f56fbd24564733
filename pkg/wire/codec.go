package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder mode for VEIL messages.
// Configured for deterministic encoding with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for VEIL messages.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Encode serializes a handshake message. The message must be one of the
// pointer message types defined in this package with its MsgType set.
func Encode(msg any) ([]byte, error) {
	if MessageType(msg) == 0 {
		return nil, fmt.Errorf("%w: %T", ErrInvalidMessage, msg)
	}
	return Marshal(msg)
}

// Decode deserializes CBOR bytes into the appropriate handshake message
// type based on the embedded message type tag.
func Decode(data []byte) (any, error) {
	var header struct {
		MsgType uint8 `cbor:"1,keyasint"`
	}
	if err := Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	switch header.MsgType {
	case MsgClientHello:
		var msg ClientHello
		if err := Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return &msg, nil

	case MsgServerHello:
		var msg ServerHello
		if err := Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return &msg, nil

	case MsgCertificateRequest:
		var msg CertificateRequest
		if err := Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return &msg, nil

	case MsgCertificate:
		var msg Certificate
		if err := Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return &msg, nil

	case MsgCertificateVerify:
		var msg CertificateVerify
		if err := Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return &msg, nil

	case MsgFinished:
		var msg Finished
		if err := Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("%w: unknown message type %d", ErrInvalidMessage, header.MsgType)
	}
}

// MessageType returns the message type tag from a decoded message, or 0
// for an unrecognized value.
func MessageType(msg any) uint8 {
	switch m := msg.(type) {
	case *ClientHello:
		return m.MsgType
	case *ServerHello:
		return m.MsgType
	case *CertificateRequest:
		return m.MsgType
	case *Certificate:
		return m.MsgType
	case *CertificateVerify:
		return m.MsgType
	case *Finished:
		return m.MsgType
	default:
		return 0
	}
}
