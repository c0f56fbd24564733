package cert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// Identity errors.
var (
	ErrInvalidCert  = errors.New("cert: invalid certificate")
	ErrNoPrivateKey = errors.New("cert: missing private key")
	ErrEmptyChain   = errors.New("cert: empty certificate chain")
)

// DefaultValidity is the validity period for generated certificates.
const DefaultValidity = 365 * 24 * time.Hour

// Identity is the certificate chain and private key an endpoint presents
// during the handshake.
type Identity struct {
	// Chain is the DER-encoded certificate chain, leaf first.
	Chain [][]byte

	// Leaf is the parsed leaf certificate.
	Leaf *x509.Certificate

	// Key is the leaf's ECDSA private key.
	Key *ecdsa.PrivateKey
}

// Validate checks that the identity is usable for authentication.
func (id *Identity) Validate() error {
	if id == nil || len(id.Chain) == 0 || id.Leaf == nil {
		return ErrEmptyChain
	}
	if id.Key == nil {
		return ErrNoPrivateKey
	}
	return nil
}

// Wipe zeroes the private key scalar. The identity is unusable afterwards.
func (id *Identity) Wipe() {
	if id != nil && id.Key != nil {
		id.Key.D.SetInt64(0)
		id.Key = nil
	}
}

// CA is a throwaway certificate authority for tests and demos.
type CA struct {
	Cert *x509.Certificate
	Key  *ecdsa.PrivateKey
}

// NewCA generates an ECDSA P-256 CA with the given common name.
func NewCA(commonName string) (*CA, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CA key: %w", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber:          newSerial(),
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(DefaultValidity),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create CA certificate: %w", err)
	}
	parsed, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CA certificate: %w", err)
	}

	return &CA{Cert: parsed, Key: key}, nil
}

// Issue creates an endpoint identity signed by the CA.
func (ca *CA) Issue(commonName string) (*Identity, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber: newSerial(),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(DefaultValidity),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, ca.Cert, &key.PublicKey, ca.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	parsed, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	return &Identity{
		Chain: [][]byte{der, ca.Cert.Raw},
		Leaf:  parsed,
		Key:   key,
	}, nil
}

// Pool returns a root pool containing only this CA.
func (ca *CA) Pool() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(ca.Cert)
	return pool
}

// NewSelfSigned generates a self-signed endpoint identity.
func NewSelfSigned(commonName string) (*Identity, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber:          newSerial(),
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(DefaultValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	parsed, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	return &Identity{
		Chain: [][]byte{der},
		Leaf:  parsed,
		Key:   key,
	}, nil
}

// newSerial draws a random 128-bit certificate serial.
func newSerial() *big.Int {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, limit)
	if err != nil {
		panic(fmt.Sprintf("failed to generate serial: %v", err))
	}
	return serial
}
