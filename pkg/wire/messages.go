package wire

import "errors"

// Handshake message types.
const (
	// MsgClientHello opens the handshake: client random, offered suites,
	// ECDHE key share.
	MsgClientHello uint8 = 1

	// MsgServerHello answers with the selected suite and the server's
	// key share.
	MsgServerHello uint8 = 2

	// MsgCertificateRequest asks the client for a certificate. Sent only
	// when the server's resolved trust policy requests one.
	MsgCertificateRequest uint8 = 3

	// MsgCertificate carries a certificate chain (DER entries). An empty
	// chain from a client is an explicit decline.
	MsgCertificate uint8 = 4

	// MsgCertificateVerify proves possession of the certificate's private
	// key with a signature over the transcript hash.
	MsgCertificateVerify uint8 = 5

	// MsgFinished carries the transcript MAC keyed with the sender's
	// finished key.
	MsgFinished uint8 = 6
)

// Message errors.
var (
	ErrInvalidMessage = errors.New("wire: invalid handshake message")
)

// RandomSize is the size of the hello random values in bytes.
const RandomSize = 32

// ClientHello is the client's opening message.
// CBOR: { 1: msgType, 2: random, 3: suites, 4: keyShare }
type ClientHello struct {
	MsgType  uint8    `cbor:"1,keyasint"`
	Random   []byte   `cbor:"2,keyasint"`
	Suites   []uint16 `cbor:"3,keyasint"`
	KeyShare []byte   `cbor:"4,keyasint"` // uncompressed ECDH public point
}

// ServerHello is the server's reply selecting the suite.
// CBOR: { 1: msgType, 2: random, 3: suite, 4: keyShare }
type ServerHello struct {
	MsgType  uint8  `cbor:"1,keyasint"`
	Random   []byte `cbor:"2,keyasint"`
	Suite    uint16 `cbor:"3,keyasint"`
	KeyShare []byte `cbor:"4,keyasint"`
}

// CertificateRequest asks the peer to authenticate.
// CBOR: { 1: msgType, 2: required }
type CertificateRequest struct {
	MsgType uint8 `cbor:"1,keyasint"`

	// Required distinguishes a mandated certificate (Required policy)
	// from a merely requested one (Optional policy).
	Required bool `cbor:"2,keyasint"`
}

// Certificate carries a certificate chain, leaf first.
// CBOR: { 1: msgType, 2: chain }
type Certificate struct {
	MsgType uint8    `cbor:"1,keyasint"`
	Chain   [][]byte `cbor:"2,keyasint"` // DER-encoded X.509, leaf first
}

// CertificateVerify proves key possession.
// CBOR: { 1: msgType, 2: signature }
type CertificateVerify struct {
	MsgType   uint8  `cbor:"1,keyasint"`
	Signature []byte `cbor:"2,keyasint"` // ASN.1 ECDSA signature
}

// Finished closes a side's flight with a transcript MAC.
// CBOR: { 1: msgType, 2: verifyData }
type Finished struct {
	MsgType    uint8  `cbor:"1,keyasint"`
	VerifyData []byte `cbor:"2,keyasint"`
}

// MessageName returns a human-readable name for a message type tag.
func MessageName(t uint8) string {
	switch t {
	case MsgClientHello:
		return "ClientHello"
	case MsgServerHello:
		return "ServerHello"
	case MsgCertificateRequest:
		return "CertificateRequest"
	case MsgCertificate:
		return "Certificate"
	case MsgCertificateVerify:
		return "CertificateVerify"
	case MsgFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}
