// Package log provides structured event logging for VEIL handshakes.
//
// The engine emits an Event for every record sent or received, every state
// transition, and every fatal error, through a small Logger interface the
// application implements. Events carry integer-keyed CBOR tags so they can
// be captured to compact binary logs and decoded later.
//
// A nil logger disables logging; NoopLogger is the explicit equivalent.
// MemoryLogger collects events for inspection in tests, MultiLogger fans
// out to several sinks, and SlogAdapter bridges to log/slog for console
// output during development.
package log
