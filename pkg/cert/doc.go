// Package cert handles the certificate and key material a VEIL endpoint
// authenticates with.
//
// An Identity bundles a leaf-first DER certificate chain with its ECDSA
// private key. Identities are loaded from PEM (production) or generated on
// the fly, self-signed or issued by a throwaway CA (tests, demos).
//
// Chain validation is pluggable: the handshake engine calls a VerifyFunc
// and treats its verdict as opaque. VerifyAgainstRoots builds the standard
// callback from a root pool; AcceptAll is for tests only.
package cert
