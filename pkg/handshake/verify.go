package handshake

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/veil-protocol/veil-go/pkg/wire"
)

// buildCertVerify signs the current transcript hash under the given role
// label with the local identity key.
func (c *Conn) buildCertVerify(label string) (any, error) {
	digest := signedDigest(c.suite, label, c.transcriptHash())
	sig, err := ecdsa.SignASN1(c.config.rand(), c.config.Identity.Key, digest)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transcript: %w", err)
	}
	return &wire.CertificateVerify{MsgType: wire.MsgCertificateVerify, Signature: sig}, nil
}

// verifyPeerSignature checks a certificate-verify signature against the
// current transcript hash using the peer's leaf public key.
func (c *Conn) verifyPeerSignature(label string, sig []byte) error {
	pub, ok := c.peerCerts[0].PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedKey, c.peerCerts[0].PublicKey)
	}
	digest := signedDigest(c.suite, label, c.transcriptHash())
	if !ecdsa.VerifyASN1(pub, digest, sig) {
		return ErrBadSignature
	}
	return nil
}

// unexpected wraps a protocol-ordering violation with the offending
// message name.
func unexpected(msg any) error {
	return fmt.Errorf("%w: %s", ErrUnexpectedMessage, wire.MessageName(wire.MessageType(msg)))
}
