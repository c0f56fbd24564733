package transport

import "io"

// Buffer is a growable in-memory byte queue with non-blocking semantics.
// Reading from an empty buffer returns ErrWouldBlock (or io.EOF once the
// buffer has been closed by the writer). It is the in-memory stand-in for
// a network socket during tests and in-process handshakes.
//
// Buffer is not safe for concurrent use; the negotiation model is
// single-threaded per connection.
type Buffer struct {
	data   []byte
	closed bool

	// MaxChunk, when positive, caps how many bytes a single Read or Write
	// call transfers. Tests use small values to exercise partial-progress
	// resumption in the record layer.
	MaxChunk int
}

// NewBuffer creates an empty growable buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Len returns the number of buffered, unread bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Write appends p to the buffer. It never fails with would-block (the
// buffer grows as needed) but honors MaxChunk by accepting a partial write.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.closed {
		return 0, io.ErrClosedPipe
	}
	n := len(p)
	if b.MaxChunk > 0 && n > b.MaxChunk {
		n = b.MaxChunk
	}
	if n == 0 && len(p) > 0 {
		return 0, ErrWouldBlock
	}
	b.data = append(b.data, p[:n]...)
	return n, nil
}

// Read copies buffered bytes into p, consuming them. An empty buffer
// yields ErrWouldBlock, or io.EOF after Close.
func (b *Buffer) Read(p []byte) (int, error) {
	if len(b.data) == 0 {
		if b.closed {
			return 0, io.EOF
		}
		return 0, ErrWouldBlock
	}
	max := len(p)
	if b.MaxChunk > 0 && max > b.MaxChunk {
		max = b.MaxChunk
	}
	n := copy(p[:max], b.data)
	b.data = b.data[n:]
	return n, nil
}

// Close marks the buffer closed. Buffered bytes remain readable; once
// drained, readers see io.EOF.
func (b *Buffer) Close() {
	b.closed = true
}

// Wipe zeroes and discards all buffered bytes. Used during connection
// teardown to release plaintext still sitting in an in-memory transport.
func (b *Buffer) Wipe() {
	for i := range b.data {
		b.data[i] = 0
	}
	b.data = b.data[:0]
}

// bufferRecv and bufferSend adapt a Buffer to the callback signatures.
func bufferRecv(ctx any, buf []byte) (int, error) {
	return ctx.(*Buffer).Read(buf)
}

func bufferSend(ctx any, buf []byte) (int, error) {
	return ctx.(*Buffer).Write(buf)
}

// NewBufferAdapter builds an Adapter that reads from in and writes to out.
func NewBufferAdapter(in, out *Buffer) *Adapter {
	return &Adapter{
		Recv:    bufferRecv,
		Send:    bufferSend,
		RecvCtx: in,
		SendCtx: out,
	}
}
