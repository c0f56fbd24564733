package suite

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"hash"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// ID identifies a cipher suite on the wire.
type ID uint16

// VEIL cipher suite identifiers.
const (
	AES128GCMSHA256        ID = 0x0101
	AES256GCMSHA384        ID = 0x0102
	CHACHA20POLY1305SHA256 ID = 0x0103
	AES128CCMSHA256        ID = 0x0104
)

// NonceSize is the AEAD nonce size shared by all suites.
const NonceSize = 12

// Suite errors.
var (
	ErrUnknownSuite       = errors.New("suite: unknown cipher suite")
	ErrUnavailable        = errors.New("suite: cipher suite unavailable in this build")
	ErrBackendUnsupported = errors.New("suite: backend does not support this algorithm")
)

// Suite describes one catalog entry. Entries are immutable after the
// catalog is built.
type Suite struct {
	// ID is the wire identifier.
	ID ID

	// Name is the human-readable suite name.
	Name string

	// Available reports whether the linked crypto backend can supply this
	// suite. Probed once at catalog build time.
	Available bool

	// ClientAuthCapable reports whether the suite's authentication
	// algorithms support client-certificate authentication.
	ClientAuthCapable bool

	// KeyLen is the AEAD key length in bytes.
	KeyLen int

	// Hash constructs the transcript and key-schedule hash.
	Hash func() hash.Hash

	// HashLen is the output size of Hash in bytes.
	HashLen int

	newAEAD func(key []byte) (cipher.AEAD, error)
}

// NewHash returns a fresh hash instance for transcripts and HKDF.
func (s *Suite) NewHash() hash.Hash {
	return s.Hash()
}

// NewAEAD constructs the suite's AEAD with the given key.
func (s *Suite) NewAEAD(key []byte) (cipher.AEAD, error) {
	if !s.Available {
		return nil, ErrUnavailable
	}
	return s.newAEAD(key)
}

// String returns the suite name.
func (s *Suite) String() string {
	return s.Name
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func newCCM(key []byte) (cipher.AEAD, error) {
	// The Go crypto backend has no CCM mode; the probe marks this suite
	// unavailable and selection skips it.
	return nil, ErrBackendUnsupported
}

var (
	buildOnce sync.Once
	catalog   []*Suite
	byID      map[ID]*Suite
)

// build constructs the catalog and probes backend availability once.
func build() {
	catalog = []*Suite{
		{
			ID:                AES128GCMSHA256,
			Name:              "VEIL_AES_128_GCM_SHA256",
			ClientAuthCapable: true,
			KeyLen:            16,
			Hash:              sha256.New,
			HashLen:           sha256.Size,
			newAEAD:           newGCM,
		},
		{
			ID:                AES256GCMSHA384,
			Name:              "VEIL_AES_256_GCM_SHA384",
			ClientAuthCapable: true,
			KeyLen:            32,
			Hash:              sha512.New384,
			HashLen:           sha512.Size384,
			newAEAD:           newGCM,
		},
		{
			ID:                CHACHA20POLY1305SHA256,
			Name:              "VEIL_CHACHA20_POLY1305_SHA256",
			ClientAuthCapable: true,
			KeyLen:            chacha20poly1305.KeySize,
			Hash:              sha256.New,
			HashLen:           sha256.Size,
			newAEAD:           chacha20poly1305.New,
		},
		{
			ID:                AES128CCMSHA256,
			Name:              "VEIL_AES_128_CCM_SHA256",
			ClientAuthCapable: true,
			KeyLen:            16,
			Hash:              sha256.New,
			HashLen:           sha256.Size,
			newAEAD:           newCCM,
		},
	}

	byID = make(map[ID]*Suite, len(catalog))
	for _, s := range catalog {
		s.Available = probe(s)
		byID[s.ID] = s
	}
}

// probe checks whether the backend can construct the suite's AEAD.
func probe(s *Suite) bool {
	key := make([]byte, s.KeyLen)
	_, err := s.newAEAD(key)
	return err == nil
}

// Catalog returns the ordered cipher suite catalog. The returned slice is
// shared; callers must not modify it.
func Catalog() []*Suite {
	buildOnce.Do(build)
	return catalog
}

// ByID looks up a suite by wire identifier.
func ByID(id ID) (*Suite, bool) {
	buildOnce.Do(build)
	s, ok := byID[id]
	return s, ok
}

// DefaultIDs returns the identifiers of all available suites in catalog
// preference order.
func DefaultIDs() []ID {
	var ids []ID
	for _, s := range Catalog() {
		if s.Available {
			ids = append(ids, s.ID)
		}
	}
	return ids
}
