// Package wire defines the VEIL handshake message model and its encoding.
//
// Handshake messages are CBOR maps with integer keys (deterministic
// encoding, compact on the wire). Messages travel inside records: a 5-byte
// header (1-byte record type, 4-byte big-endian payload length) followed by
// the payload, which is AEAD-protected once the handshake keys are
// installed.
//
// The byte-level record grammar lives here; the state machine that decides
// which message is legal when lives in pkg/handshake.
package wire
