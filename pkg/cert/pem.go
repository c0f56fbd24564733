package cert

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// PEM encoding/decoding errors.
var (
	ErrInvalidPEM = errors.New("cert: invalid PEM data")
)

// EncodeChainPEM encodes a DER chain as concatenated CERTIFICATE blocks.
func EncodeChainPEM(chain [][]byte) []byte {
	var out []byte
	for _, der := range chain {
		out = append(out, pem.EncodeToMemory(&pem.Block{
			Type:  "CERTIFICATE",
			Bytes: der,
		})...)
	}
	return out
}

// DecodeChainPEM decodes concatenated CERTIFICATE blocks into a DER chain.
func DecodeChainPEM(data []byte) ([][]byte, error) {
	var chain [][]byte
	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		chain = append(chain, block.Bytes)
	}
	if len(chain) == 0 {
		return nil, ErrInvalidPEM
	}
	return chain, nil
}

// EncodeKeyPEM encodes an identity's ECDSA private key to PEM.
func EncodeKeyPEM(id *Identity) ([]byte, error) {
	if id == nil || id.Key == nil {
		return nil, ErrNoPrivateKey
	}
	der, err := x509.MarshalECPrivateKey(id.Key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{
		Type:  "EC PRIVATE KEY",
		Bytes: der,
	}), nil
}

// LoadIdentity builds an Identity from PEM-encoded chain and key data.
func LoadIdentity(chainPEM, keyPEM []byte) (*Identity, error) {
	chain, err := DecodeChainPEM(chainPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to decode certificate chain: %w", err)
	}

	block, _ := pem.Decode(keyPEM)
	if block == nil || block.Type != "EC PRIVATE KEY" {
		return nil, ErrInvalidPEM
	}
	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	leaf, err := x509.ParseCertificate(chain[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCert, err)
	}

	return &Identity{Chain: chain, Leaf: leaf, Key: key}, nil
}

// LoadIdentityFiles reads an identity from PEM files on disk.
func LoadIdentityFiles(chainPath, keyPath string) (*Identity, error) {
	chainPEM, err := os.ReadFile(chainPath)
	if err != nil {
		return nil, err
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}
	return LoadIdentity(chainPEM, keyPEM)
}
