package transport

import "errors"

// Transport errors.
var (
	// ErrWouldBlock indicates the operation cannot make progress with the
	// bytes or buffer space currently available. Retry later; this is not
	// a failure.
	ErrWouldBlock = errors.New("transport: operation would block")

	// ErrNoCallback indicates the adapter is missing a send or receive
	// callback.
	ErrNoCallback = errors.New("transport: send and receive callbacks required")
)

// RecvFunc reads up to len(buf) bytes from the underlying transport into buf.
// ctx is the opaque receive context supplied by the application.
type RecvFunc func(ctx any, buf []byte) (int, error)

// SendFunc writes up to len(buf) bytes from buf to the underlying transport.
// ctx is the opaque send context supplied by the application.
type SendFunc func(ctx any, buf []byte) (int, error)

// Adapter binds a connection to its I/O callbacks and their contexts.
// The send and receive sides are independent: they may target different
// underlying objects (as they do for two endpoints sharing a buffer pair).
type Adapter struct {
	Recv    RecvFunc
	Send    SendFunc
	RecvCtx any
	SendCtx any
}

// Read reads up to len(buf) bytes through the receive callback.
func (a *Adapter) Read(buf []byte) (int, error) {
	if a == nil || a.Recv == nil {
		return 0, ErrNoCallback
	}
	return a.Recv(a.RecvCtx, buf)
}

// Write writes up to len(buf) bytes through the send callback.
func (a *Adapter) Write(buf []byte) (int, error) {
	if a == nil || a.Send == nil {
		return 0, ErrNoCallback
	}
	return a.Send(a.SendCtx, buf)
}

// Valid reports whether both callbacks are set.
func (a *Adapter) Valid() bool {
	return a != nil && a.Recv != nil && a.Send != nil
}
