package cert

import (
	"crypto/x509"
	"fmt"
	"time"
)

// VerifyFunc decides whether a peer's candidate certificate chain (leaf
// first, already parsed) is trusted. The handshake engine calls it exactly
// once per received non-empty chain and treats any error as a rejection.
type VerifyFunc func(chain []*x509.Certificate) error

// VerifyAgainstRoots builds the standard verification callback: the leaf
// must chain to one of the given roots, with the remaining chain entries
// used as intermediates.
func VerifyAgainstRoots(roots *x509.CertPool) VerifyFunc {
	return func(chain []*x509.Certificate) error {
		if len(chain) == 0 {
			return ErrEmptyChain
		}

		intermediates := x509.NewCertPool()
		for _, c := range chain[1:] {
			intermediates.AddCert(c)
		}

		opts := x509.VerifyOptions{
			Roots:         roots,
			Intermediates: intermediates,
			CurrentTime:   time.Now(),
			KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		}
		if _, err := chain[0].Verify(opts); err != nil {
			return fmt.Errorf("certificate chain verification failed: %w", err)
		}
		return nil
	}
}

// AcceptAll trusts every non-empty chain. Test harnesses only.
func AcceptAll() VerifyFunc {
	return func(chain []*x509.Certificate) error {
		if len(chain) == 0 {
			return ErrEmptyChain
		}
		return nil
	}
}

// RejectAll distrusts every chain. Test harnesses only.
func RejectAll() VerifyFunc {
	return func([]*x509.Certificate) error {
		return ErrInvalidCert
	}
}

// ParseChain parses a leaf-first DER chain.
func ParseChain(chain [][]byte) ([]*x509.Certificate, error) {
	certs := make([]*x509.Certificate, len(chain))
	for i, der := range chain {
		c, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrInvalidCert, i, err)
		}
		certs[i] = c
	}
	return certs, nil
}
