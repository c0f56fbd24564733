package handshake

import (
	"errors"

	"github.com/veil-protocol/veil-go/pkg/wire"
)

// Handshake errors.
var (
	// ErrConfigRequired indicates a nil configuration.
	ErrConfigRequired = errors.New("handshake: configuration required")

	// ErrVerifierRequired indicates the configuration lacks a peer
	// verification callback the resolved policy needs.
	ErrVerifierRequired = errors.New("handshake: peer verification callback required")

	// ErrNegotiationStarted indicates a setter was called after the first
	// Negotiate call.
	ErrNegotiationStarted = errors.New("handshake: negotiation already started")

	// ErrConnClosed indicates the connection was torn down before the
	// handshake completed.
	ErrConnClosed = errors.New("handshake: connection closed")

	// ErrPeerClosed indicates the peer closed the transport mid-handshake.
	ErrPeerClosed = errors.New("handshake: peer closed transport")

	// ErrNoCommonSuite indicates client and server share no usable cipher
	// suite.
	ErrNoCommonSuite = errors.New("handshake: no mutually supported cipher suite")

	// ErrClientAuthRefused indicates the local policy declines a client
	// certificate the server mandates.
	ErrClientAuthRefused = errors.New("handshake: local policy refuses mandated client certificate")

	// ErrCertificateRequired indicates a mandated client certificate was
	// absent.
	ErrCertificateRequired = errors.New("handshake: client certificate required but not presented")

	// ErrBadSignature indicates a certificate-verify signature did not
	// check out against the transcript.
	ErrBadSignature = errors.New("handshake: certificate verify signature invalid")

	// ErrBadFinished indicates a finished MAC did not match the expected
	// transcript MAC.
	ErrBadFinished = errors.New("handshake: finished verification failed")

	// ErrUnexpectedMessage indicates a message arrived out of protocol
	// order.
	ErrUnexpectedMessage = errors.New("handshake: unexpected message")

	// ErrIllegalParameter indicates a malformed or out-of-range message
	// field.
	ErrIllegalParameter = errors.New("handshake: illegal message parameter")

	// ErrUnsupportedKey indicates a peer certificate carries a public key
	// type the engine cannot verify.
	ErrUnsupportedKey = errors.New("handshake: unsupported peer public key type")

	// ErrDecrypt indicates record protection failed on an incoming record.
	ErrDecrypt = errors.New("handshake: record decryption failed")
)

// alertFor maps a fatal local error to the alert code sent to the peer.
// Zero means no alert: the peer already knows (it sent the alert or
// closed the transport).
func alertFor(err error) wire.AlertCode {
	var alert *wire.AlertError
	switch {
	case errors.As(err, &alert) && alert.Remote:
		return 0
	case errors.Is(err, ErrPeerClosed):
		return 0
	case errors.Is(err, ErrDecrypt), errors.Is(err, ErrBadFinished):
		return wire.AlertDecryptError
	case errors.Is(err, ErrBadSignature):
		return wire.AlertDecryptError
	case errors.Is(err, ErrUnexpectedMessage):
		return wire.AlertUnexpectedMessage
	case errors.Is(err, ErrClientAuthRefused), errors.Is(err, ErrCertificateRequired):
		return wire.AlertCertificateRequired
	case errors.Is(err, ErrNoCommonSuite):
		return wire.AlertHandshakeFailure
	case errors.Is(err, ErrIllegalParameter),
		errors.Is(err, wire.ErrInvalidMessage),
		errors.Is(err, wire.ErrBadRecordType),
		errors.Is(err, wire.ErrRecordTooLarge):
		return wire.AlertIllegalParameter
	default:
		return wire.AlertInternalError
	}
}
