package handshake

import "errors"

// DefaultMaxSteps bounds the alternating retry loop in Drive. Generous:
// a handshake over a transport that never blocks needs about a dozen
// rounds.
const DefaultMaxSteps = 100

// ErrStalled indicates neither endpoint reached a terminal state within
// the step budget.
var ErrStalled = errors.New("handshake: negotiation stalled before completion")

// Drive alternates Negotiate calls between two endpoints sharing a
// transport until both reach a terminal state or the step budget runs
// out. maxSteps <= 0 means DefaultMaxSteps. It returns nil only when
// both endpoints established; endpoint failures come back joined.
func Drive(client, server *Conn, maxSteps int) error {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	var clientErr, serverErr error
	for i := 0; i < maxSteps; i++ {
		if !client.State().Terminal() {
			_, clientErr = client.Negotiate()
		}
		if !server.State().Terminal() {
			_, serverErr = server.Negotiate()
		}
		if client.State().Terminal() && server.State().Terminal() {
			return errors.Join(clientErr, serverErr)
		}
	}
	return ErrStalled
}
