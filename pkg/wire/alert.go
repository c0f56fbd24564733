package wire

import "fmt"

// AlertCode identifies a fatal handshake failure communicated to the peer.
// Values follow the TLS alert registry where an equivalent exists.
type AlertCode uint8

const (
	// AlertCloseNotify announces an orderly shutdown.
	AlertCloseNotify AlertCode = 0

	// AlertUnexpectedMessage signals a protocol-ordering violation.
	AlertUnexpectedMessage AlertCode = 10

	// AlertDecryptError signals record protection failure, including a
	// Finished MAC that does not verify.
	AlertDecryptError AlertCode = 51

	// AlertHandshakeFailure signals that no acceptable set of parameters
	// could be negotiated.
	AlertHandshakeFailure AlertCode = 40

	// AlertBadCertificate signals that a presented certificate chain was
	// rejected by verification.
	AlertBadCertificate AlertCode = 42

	// AlertIllegalParameter signals a malformed or out-of-range field.
	AlertIllegalParameter AlertCode = 47

	// AlertInternalError signals a local failure unrelated to the peer.
	AlertInternalError AlertCode = 80

	// AlertCertificateRequired signals that a mandated client certificate
	// was absent or declined.
	AlertCertificateRequired AlertCode = 116
)

// String returns the alert name.
func (c AlertCode) String() string {
	switch c {
	case AlertCloseNotify:
		return "close_notify"
	case AlertUnexpectedMessage:
		return "unexpected_message"
	case AlertDecryptError:
		return "decrypt_error"
	case AlertHandshakeFailure:
		return "handshake_failure"
	case AlertBadCertificate:
		return "bad_certificate"
	case AlertIllegalParameter:
		return "illegal_parameter"
	case AlertInternalError:
		return "internal_error"
	case AlertCertificateRequired:
		return "certificate_required"
	default:
		return fmt.Sprintf("alert(%d)", uint8(c))
	}
}

// AlertError is the error reported when a fatal alert is received from
// the peer or raised locally.
type AlertError struct {
	Code AlertCode

	// Remote is true when the alert was received from the peer rather
	// than raised locally.
	Remote bool
}

// Error implements the error interface.
func (e *AlertError) Error() string {
	side := "local"
	if e.Remote {
		side = "remote"
	}
	return fmt.Sprintf("wire: %s alert: %s", side, e.Code)
}
