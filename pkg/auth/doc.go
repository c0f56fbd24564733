// Package auth defines the client-authentication trust policy for VEIL
// handshakes.
//
// A policy Mode states whether the server requests a client certificate
// (None), requests but does not require one (Optional), or mandates one
// (Required). On the client side the same Mode governs whether the
// connection complies with a certificate request.
//
// Policies resolve in two tiers: a configuration-level default applies to
// every connection built from that configuration, and an optional
// connection-level override takes precedence for that connection only.
// Resolution happens once, when negotiation starts, and is immutable for
// the rest of the handshake.
package auth
