package handshake

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veil-protocol/veil-go/pkg/suite"
)

func mustSuite(t *testing.T, id suite.ID) *suite.Suite {
	t.Helper()
	s, ok := suite.ByID(id)
	require.True(t, ok)
	return s
}

func TestDeriveSessionKeysAgree(t *testing.T) {
	s := mustSuite(t, suite.AES128GCMSHA256)
	shared := bytes.Repeat([]byte{0x42}, 32)
	transcript := bytes.Repeat([]byte{0x07}, s.HashLen)

	a, err := deriveSessionKeys(s, append([]byte(nil), shared...), transcript)
	require.NoError(t, err)
	b, err := deriveSessionKeys(s, append([]byte(nil), shared...), transcript)
	require.NoError(t, err)

	assert.Equal(t, a.client.key, b.client.key)
	assert.Equal(t, a.server.iv, b.server.iv)
	assert.Equal(t, a.clientFinished, b.clientFinished)
	assert.Equal(t, a.serverFinished, b.serverFinished)
}

func TestDeriveSessionKeysSeparateDirections(t *testing.T) {
	s := mustSuite(t, suite.AES256GCMSHA384)
	shared := bytes.Repeat([]byte{0x42}, 32)
	transcript := bytes.Repeat([]byte{0x07}, s.HashLen)

	keys, err := deriveSessionKeys(s, shared, transcript)
	require.NoError(t, err)

	assert.Len(t, keys.client.key, s.KeyLen)
	assert.Len(t, keys.server.key, s.KeyLen)
	assert.Len(t, keys.client.iv, suite.NonceSize)
	assert.Len(t, keys.clientFinished, s.HashLen)

	assert.NotEqual(t, keys.client.key, keys.server.key)
	assert.NotEqual(t, keys.client.iv, keys.server.iv)
	assert.NotEqual(t, keys.clientFinished, keys.serverFinished)
}

func TestDeriveSessionKeysBindTranscript(t *testing.T) {
	s := mustSuite(t, suite.CHACHA20POLY1305SHA256)
	shared := bytes.Repeat([]byte{0x42}, 32)

	a, err := deriveSessionKeys(s, append([]byte(nil), shared...), bytes.Repeat([]byte{1}, s.HashLen))
	require.NoError(t, err)
	b, err := deriveSessionKeys(s, append([]byte(nil), shared...), bytes.Repeat([]byte{2}, s.HashLen))
	require.NoError(t, err)

	assert.NotEqual(t, a.client.key, b.client.key)
	assert.NotEqual(t, a.serverFinished, b.serverFinished)
}

func TestNonceForXorsSequence(t *testing.T) {
	iv := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}

	n0 := nonceFor(iv, 0)
	assert.Equal(t, iv, n0)

	n1 := nonceFor(iv, 1)
	assert.Equal(t, iv[:11], n1[:11])
	assert.Equal(t, iv[11]^1, n1[11])

	// Distinct sequence numbers never repeat a nonce.
	assert.NotEqual(t, n0, n1)
	assert.NotEqual(t, n1, nonceFor(iv, 2))

	// The static IV itself is untouched.
	assert.Equal(t, byte(11), iv[11])
}

func TestFinishedMACKeySeparation(t *testing.T) {
	s := mustSuite(t, suite.AES128GCMSHA256)
	transcript := bytes.Repeat([]byte{0xAB}, s.HashLen)

	a := finishedMAC(s, []byte("key-a"), transcript)
	b := finishedMAC(s, []byte("key-b"), transcript)
	again := finishedMAC(s, []byte("key-a"), transcript)

	assert.Len(t, a, s.HashLen)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, again)
}

func TestSignedDigestLabelSeparation(t *testing.T) {
	s := mustSuite(t, suite.AES128GCMSHA256)
	transcript := bytes.Repeat([]byte{0xCD}, s.HashLen)

	client := signedDigest(s, clientVerifyLabel, transcript)
	server := signedDigest(s, serverVerifyLabel, transcript)

	assert.Len(t, client, s.HashLen)
	assert.NotEqual(t, client, server)
}
