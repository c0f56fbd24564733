package handshake

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veil-protocol/veil-go/pkg/log"
	"github.com/veil-protocol/veil-go/pkg/suite"
	"github.com/veil-protocol/veil-go/pkg/transport"
	"github.com/veil-protocol/veil-go/pkg/wire"
)

// recordPair wires two bare connections over an in-memory pipe, without
// any handshake state, to exercise the record layer in isolation.
func recordPair() (*Conn, *Conn, *transport.Pipe) {
	pipe := transport.NewPipe()
	sender := &Conn{adapter: pipe.Client, logger: log.NoopLogger{}}
	receiver := &Conn{adapter: pipe.Server, logger: log.NoopLogger{}}
	return sender, receiver, pipe
}

// protect arms both directions of a record pair with the same key
// material, sender write side against receiver read side.
func protect(t *testing.T, sender, receiver *Conn, id suite.ID) {
	t.Helper()
	s := mustSuite(t, id)
	key := bytes.Repeat([]byte{0x11}, s.KeyLen)
	iv := bytes.Repeat([]byte{0x22}, suite.NonceSize)

	wa, err := s.NewAEAD(key)
	require.NoError(t, err)
	ra, err := s.NewAEAD(key)
	require.NoError(t, err)

	sender.writeAEAD, sender.writeIV = wa, iv
	receiver.readAEAD, receiver.readIV = ra, iv
}

func TestPlaintextRecordRoundTrip(t *testing.T) {
	sender, receiver, _ := recordPair()

	payload := []byte("hello record layer")
	require.NoError(t, sender.queueRecord(wire.RecordHandshake, payload))
	done, err := sender.flush()
	require.NoError(t, err)
	require.True(t, done)

	typ, got, blocked, err := receiver.readRecord()
	require.NoError(t, err)
	require.False(t, blocked)
	assert.Equal(t, wire.RecordHandshake, typ)
	assert.Equal(t, payload, got)
}

func TestReadRecordBlocksUntilComplete(t *testing.T) {
	sender, receiver, pipe := recordPair()
	pipe.SetMaxChunk(2)

	require.NoError(t, sender.queueRecord(wire.RecordAlert, []byte{byte(wire.AlertCloseNotify)}))
	done, err := sender.flush()
	require.NoError(t, err)
	require.True(t, done)

	// Drain the delivering buffer two bytes at a time; intermediate reads
	// must report blocked, not fail.
	for {
		typ, payload, blocked, err := receiver.readRecord()
		require.NoError(t, err)
		if blocked {
			continue
		}
		assert.Equal(t, wire.RecordAlert, typ)
		assert.Equal(t, []byte{byte(wire.AlertCloseNotify)}, payload)
		break
	}
}

func TestProtectedRecordRoundTrip(t *testing.T) {
	sender, receiver, pipe := recordPair()
	protect(t, sender, receiver, suite.AES128GCMSHA256)

	payloads := [][]byte{
		[]byte("first"),
		[]byte("second"),
		[]byte("third"),
	}
	for _, p := range payloads {
		require.NoError(t, sender.queueRecord(wire.RecordHandshake, p))
	}
	done, err := sender.flush()
	require.NoError(t, err)
	require.True(t, done)

	// Ciphertext on the wire, never the plaintext.
	assert.NotContains(t, string(peekBuffer(pipe.ClientToServer)), "second")

	for _, want := range payloads {
		_, got, blocked, err := receiver.readRecord()
		require.NoError(t, err)
		require.False(t, blocked)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, uint64(3), sender.writeSeq)
	assert.Equal(t, uint64(3), receiver.readSeq)
}

func TestProtectedRecordSequenceMismatch(t *testing.T) {
	sender, receiver, _ := recordPair()
	protect(t, sender, receiver, suite.CHACHA20POLY1305SHA256)

	require.NoError(t, sender.queueRecord(wire.RecordHandshake, []byte("payload")))
	done, err := sender.flush()
	require.NoError(t, err)
	require.True(t, done)

	// A receiver whose sequence has drifted opens with the wrong nonce.
	receiver.readSeq = 1
	_, _, _, err = receiver.readRecord()
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestQueueRecordRejectsOversizedPayload(t *testing.T) {
	sender, _, _ := recordPair()
	err := sender.queueRecord(wire.RecordHandshake, make([]byte, wire.MaxRecordPayload+1))
	assert.ErrorIs(t, err, wire.ErrRecordTooLarge)
}

func TestFlushResumesAfterPartialWrite(t *testing.T) {
	pipe := transport.NewPipe()
	sender := &Conn{adapter: pipe.Client, logger: log.NoopLogger{}}

	blockNow := true
	sender.adapter = &transport.Adapter{
		Recv: pipe.Client.Recv, RecvCtx: pipe.Client.RecvCtx,
		Send: func(_ any, p []byte) (int, error) {
			if blockNow {
				blockNow = false
				return 0, transport.ErrWouldBlock
			}
			if len(p) > 3 {
				p = p[:3]
			}
			blockNow = true
			return pipe.ClientToServer.Write(p)
		},
	}

	payload := []byte("resumable payload bytes")
	require.NoError(t, sender.queueRecord(wire.RecordHandshake, payload))

	for {
		done, err := sender.flush()
		require.NoError(t, err)
		if done {
			break
		}
	}

	receiver := &Conn{adapter: pipe.Server, logger: log.NoopLogger{}}
	typ, got, blocked, err := receiver.readRecord()
	require.NoError(t, err)
	require.False(t, blocked)
	assert.Equal(t, wire.RecordHandshake, typ)
	assert.Equal(t, payload, got)
}

// peekBuffer drains a buffer through its read side and refills it,
// returning a copy of the bytes in flight.
func peekBuffer(b *transport.Buffer) []byte {
	data := make([]byte, b.Len())
	n, err := b.Read(data)
	if err != nil {
		return nil
	}
	data = data[:n]
	b.Write(data)
	return data
}
