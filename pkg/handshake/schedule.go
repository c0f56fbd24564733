package handshake

import (
	"crypto/hmac"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/veil-protocol/veil-go/pkg/suite"
)

// Key schedule labels. The version prefix pins derived keys to this
// revision of the handshake.
const (
	extractSalt = "veil1 handshake"

	clientSecretLabel = "c hs"
	serverSecretLabel = "s hs"
	keyLabel          = "key"
	ivLabel           = "iv"
	finishedLabel     = "finished"

	serverVerifyLabel = "VEIL server CertificateVerify"
	clientVerifyLabel = "VEIL client CertificateVerify"
)

// trafficKeys is one direction's record protection material.
type trafficKeys struct {
	key []byte
	iv  []byte
}

// sessionKeys is the full output of the key schedule: per-direction
// traffic keys plus the finished MAC keys.
type sessionKeys struct {
	client trafficKeys
	server trafficKeys

	clientFinished []byte
	serverFinished []byte
}

// deriveSessionKeys runs the HKDF schedule over the ECDHE shared secret
// and the transcript hash taken after the hello exchange. Both sides
// compute it at the same transcript point, so the outputs agree.
func deriveSessionKeys(s *suite.Suite, shared, transcriptHash []byte) (*sessionKeys, error) {
	prk := hkdf.Extract(s.Hash, shared, []byte(extractSalt))

	clientSecret, err := expandLabel(s, prk, clientSecretLabel, transcriptHash, s.HashLen)
	if err != nil {
		return nil, err
	}
	serverSecret, err := expandLabel(s, prk, serverSecretLabel, transcriptHash, s.HashLen)
	if err != nil {
		return nil, err
	}

	keys := &sessionKeys{}
	if keys.client, err = deriveTraffic(s, clientSecret); err != nil {
		return nil, err
	}
	if keys.server, err = deriveTraffic(s, serverSecret); err != nil {
		return nil, err
	}
	if keys.clientFinished, err = expandLabel(s, clientSecret, finishedLabel, nil, s.HashLen); err != nil {
		return nil, err
	}
	if keys.serverFinished, err = expandLabel(s, serverSecret, finishedLabel, nil, s.HashLen); err != nil {
		return nil, err
	}

	wipeBytes(clientSecret)
	wipeBytes(serverSecret)
	wipeBytes(prk)
	return keys, nil
}

// deriveTraffic expands one direction's secret into its AEAD key and IV.
func deriveTraffic(s *suite.Suite, secret []byte) (trafficKeys, error) {
	key, err := expandLabel(s, secret, keyLabel, nil, s.KeyLen)
	if err != nil {
		return trafficKeys{}, err
	}
	iv, err := expandLabel(s, secret, ivLabel, nil, suite.NonceSize)
	if err != nil {
		return trafficKeys{}, err
	}
	return trafficKeys{key: key, iv: iv}, nil
}

// expandLabel is HKDF-Expand with a version-prefixed label and optional
// context bound into the info input.
func expandLabel(s *suite.Suite, secret []byte, label string, context []byte, length int) ([]byte, error) {
	info := make([]byte, 0, 6+len(label)+len(context))
	info = append(info, "veil1 "...)
	info = append(info, label...)
	info = append(info, context...)

	out := make([]byte, length)
	if _, err := io.ReadFull(hkdf.Expand(s.Hash, secret, info), out); err != nil {
		return nil, fmt.Errorf("key derivation failed for %q: %w", label, err)
	}
	return out, nil
}

// finishedMAC computes a finished message's verify data: an HMAC over
// the transcript hash keyed with the sender's finished key.
func finishedMAC(s *suite.Suite, key, transcriptHash []byte) []byte {
	mac := hmac.New(s.Hash, key)
	mac.Write(transcriptHash)
	return mac.Sum(nil)
}

// signedDigest binds a certificate-verify signature to its role via a
// label hashed in front of the transcript hash.
func signedDigest(s *suite.Suite, label string, transcriptHash []byte) []byte {
	h := s.NewHash()
	h.Write([]byte(label))
	h.Write(transcriptHash)
	return h.Sum(nil)
}

// nonceFor XORs the record sequence number into the trailing bytes of
// the static IV, per direction.
func nonceFor(iv []byte, seq uint64) []byte {
	nonce := make([]byte, len(iv))
	copy(nonce, iv)
	for i := 0; i < 8; i++ {
		nonce[len(nonce)-1-i] ^= byte(seq >> (8 * i))
	}
	return nonce
}

// wipeBytes zeroes secret material.
func wipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
