// Package suite provides the VEIL cipher suite catalog.
//
// The catalog is an ordered, immutable, process-wide registry built once on
// first use. Each entry carries an availability flag probed against the
// linked cryptographic backend at build time: a suite whose AEAD cannot be
// constructed is marked unavailable and is skipped during negotiation,
// never attempted and never counted as a failure.
//
// A suite bundles the symmetric AEAD, the transcript/key-schedule hash, and
// a flag stating whether the suite's authentication algorithms are
// compatible with client-certificate authentication.
package suite
