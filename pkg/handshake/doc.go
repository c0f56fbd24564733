// Package handshake implements the VEIL mutual-authentication handshake
// state machine.
//
// A Conn drives one endpoint (client or server) of a handshake over an
// abstract non-blocking transport. The engine never owns a socket: all I/O
// goes through the callbacks bound in a transport.Adapter, and every
// operation that cannot complete with the bytes currently available
// returns a Blocked status instead of waiting. Callers retry Negotiate
// until the connection reaches the Established or Failed state.
//
// A Conn is not safe for concurrent use; one goroutine drives the
// negotiation and reads the post-handshake queries.
package handshake
