package handshake

import (
	"errors"
	"fmt"
	"io"

	"github.com/veil-protocol/veil-go/pkg/log"
	"github.com/veil-protocol/veil-go/pkg/wire"
)

// queueRecord frames a payload into the outgoing buffer. Once record
// protection is armed the payload is sealed with the record header as
// associated data, and the header carries the ciphertext length.
func (c *Conn) queueRecord(typ wire.RecordType, payload []byte) error {
	var hdr [wire.RecordHeaderLen]byte

	if c.writeAEAD == nil {
		if len(payload) > wire.MaxRecordPayload {
			return wire.ErrRecordTooLarge
		}
		wire.PutRecordHeader(hdr[:], typ, len(payload))
		c.sendBuf = append(c.sendBuf, hdr[:]...)
		c.sendBuf = append(c.sendBuf, payload...)
		return nil
	}

	ctLen := len(payload) + c.writeAEAD.Overhead()
	if ctLen > wire.MaxRecordPayload {
		return wire.ErrRecordTooLarge
	}
	wire.PutRecordHeader(hdr[:], typ, ctLen)

	nonce := nonceFor(c.writeIV, c.writeSeq)
	sealed := c.writeAEAD.Seal(nil, nonce, payload, hdr[:])
	c.writeSeq++

	c.sendBuf = append(c.sendBuf, hdr[:]...)
	c.sendBuf = append(c.sendBuf, sealed...)
	return nil
}

// flush pushes buffered outgoing bytes through the send callback until
// the buffer drains or the transport blocks. The write cursor survives a
// block, so a resumed flush never re-sends bytes the transport already
// accepted.
func (c *Conn) flush() (bool, error) {
	for c.sendOff < len(c.sendBuf) {
		n, err := c.adapter.Write(c.sendBuf[c.sendOff:])
		if err != nil {
			if isWouldBlock(err) {
				return false, nil
			}
			return false, fmt.Errorf("transport write failed: %w", err)
		}
		if n <= 0 {
			return false, fmt.Errorf("transport write failed: accepted %d bytes", n)
		}
		c.sendOff += n
	}
	c.sendBuf = c.sendBuf[:0]
	c.sendOff = 0
	return true, nil
}

// fill reads up to need bytes from the transport into the receive
// buffer. blocked=true means no bytes were available right now.
func (c *Conn) fill(need int) (blocked bool, err error) {
	buf := make([]byte, need)
	n, err := c.adapter.Read(buf)
	if err != nil {
		if isWouldBlock(err) {
			return true, nil
		}
		if errors.Is(err, io.EOF) {
			return false, ErrPeerClosed
		}
		return false, fmt.Errorf("transport read failed: %w", err)
	}
	if n == 0 {
		return false, ErrPeerClosed
	}
	c.recvBuf = append(c.recvBuf, buf[:n]...)
	return false, nil
}

// readRecord assembles exactly one record from the transport, reading
// only the bytes that record needs. Partial records persist in the
// receive buffer across blocked attempts.
func (c *Conn) readRecord() (wire.RecordType, []byte, bool, error) {
	for len(c.recvBuf) < wire.RecordHeaderLen {
		blocked, err := c.fill(wire.RecordHeaderLen - len(c.recvBuf))
		if blocked || err != nil {
			return 0, nil, blocked, err
		}
	}

	typ, n, err := wire.ParseRecordHeader(c.recvBuf[:wire.RecordHeaderLen])
	if err != nil {
		return 0, nil, false, err
	}

	total := wire.RecordHeaderLen + n
	for len(c.recvBuf) < total {
		blocked, err := c.fill(total - len(c.recvBuf))
		if blocked || err != nil {
			return 0, nil, blocked, err
		}
	}

	payload := c.recvBuf[wire.RecordHeaderLen:total]
	if c.readAEAD != nil {
		nonce := nonceFor(c.readIV, c.readSeq)
		plain, err := c.readAEAD.Open(nil, nonce, payload, c.recvBuf[:wire.RecordHeaderLen])
		if err != nil {
			return 0, nil, false, fmt.Errorf("%w: %v", ErrDecrypt, err)
		}
		c.readSeq++
		payload = plain
	} else {
		payload = append([]byte(nil), payload...)
	}

	c.recvBuf = c.recvBuf[:0]
	return typ, payload, false, nil
}

// recvStep reads and decodes one handshake message. A received alert
// surfaces as a fatal AlertError. The raw message bytes are returned for
// transcript accounting; the caller decides when to fold them in.
func (c *Conn) recvStep() (msg any, raw []byte, blocked bool, err error) {
	typ, payload, blocked, err := c.readRecord()
	if blocked || err != nil {
		return nil, nil, blocked, err
	}

	switch typ {
	case wire.RecordAlert:
		if len(payload) != 1 {
			return nil, nil, false, fmt.Errorf("%w: alert record with %d bytes", wire.ErrInvalidMessage, len(payload))
		}
		code := wire.AlertCode(payload[0])
		c.logRecord(log.DirectionIn, typ, code.String(), len(payload))
		return nil, nil, false, remoteAlert(code)

	case wire.RecordHandshake:
		m, err := wire.Decode(payload)
		if err != nil {
			return nil, nil, false, err
		}
		c.logRecord(log.DirectionIn, typ, wire.MessageName(wire.MessageType(m)), len(payload))
		return m, payload, false, nil

	default:
		return nil, nil, false, fmt.Errorf("%w: %d", wire.ErrBadRecordType, typ)
	}
}

// queueMessage encodes a handshake message, folds it into the
// transcript, and frames it for sending.
func (c *Conn) queueMessage(msg any) error {
	data, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	c.appendTranscript(data)
	c.logRecord(log.DirectionOut, wire.RecordHandshake, wire.MessageName(wire.MessageType(msg)), len(data))
	return c.queueRecord(wire.RecordHandshake, data)
}

// sendStep drives one send state. On first entry it builds and queues
// the state's message (running after, when set, once the message is
// queued); every entry then flushes. done=true means the record is fully
// on the wire and the state can advance.
func (c *Conn) sendStep(build func() (any, error), after func() error) (done bool, err error) {
	if !c.queued {
		msg, err := build()
		if err != nil {
			return false, err
		}
		if err := c.queueMessage(msg); err != nil {
			return false, err
		}
		if after != nil {
			if err := after(); err != nil {
				return false, err
			}
		}
		c.queued = true
	}
	return c.flush()
}
