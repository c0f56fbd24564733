package handshake

import (
	"crypto/ecdh"
	"crypto/rand"
	"io"

	"github.com/veil-protocol/veil-go/pkg/auth"
	"github.com/veil-protocol/veil-go/pkg/cert"
	"github.com/veil-protocol/veil-go/pkg/log"
	"github.com/veil-protocol/veil-go/pkg/suite"
)

// Config holds the long-lived handshake parameters shared by every
// connection built from it. A Config is read-only once connections use
// it; per-connection variation goes through Conn setters such as
// SetClientAuth.
type Config struct {
	// Identity is the certificate chain and key this endpoint presents.
	// Mandatory for servers. Optional for clients: a client without an
	// identity declines certificate requests.
	Identity *cert.Identity

	// VerifyPeer decides whether a peer certificate chain is trusted.
	// Mandatory for clients, and for servers whose policy requests a
	// client certificate.
	VerifyPeer cert.VerifyFunc

	// ClientAuth is the configuration-level client-authentication policy.
	ClientAuth auth.Mode

	// Suites is the cipher suite preference list, most preferred first.
	// Empty means every available catalog suite in catalog order.
	Suites []suite.ID

	// Curve is the ECDHE group. Defaults to P-256.
	Curve ecdh.Curve

	// Rand is the entropy source. Defaults to crypto/rand.Reader.
	Rand io.Reader

	// Logger receives handshake events. Defaults to log.NoopLogger.
	Logger log.Logger
}

func (c *Config) curve() ecdh.Curve {
	if c.Curve != nil {
		return c.Curve
	}
	return ecdh.P256()
}

func (c *Config) rand() io.Reader {
	if c.Rand != nil {
		return c.Rand
	}
	return rand.Reader
}

func (c *Config) logger() log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.NoopLogger{}
}
