// Package transport provides the non-blocking byte transport the VEIL
// handshake engine runs over.
//
// The engine never owns a socket. Instead the application supplies a pair of
// send/receive callbacks plus opaque per-connection I/O contexts, wrapped in
// an Adapter. Callbacks report either a byte count or ErrWouldBlock; the
// engine converts would-block into a resumable "blocked" status rather than
// waiting.
//
// # Callback contract
//
//   - Receive must return the number of bytes copied into the buffer,
//     ErrWouldBlock when no bytes are currently available, or io.EOF when
//     the peer has closed. A zero count without an error is never valid.
//   - Send may accept fewer bytes than offered (partial writes are legal)
//     and must return ErrWouldBlock when it cannot accept any byte at all.
//     The engine resumes with the remainder on a later call.
//
// Buffer is a growable in-memory byte queue implementing both callbacks,
// and Pipe wires two buffers crosswise so that a client and a server
// connection can handshake entirely in memory. Both are used by the test
// suite and by event-loop style applications that shuttle bytes themselves.
package transport
