package handshake

import (
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/x509"
	"errors"
	"fmt"
	"hash"
	"time"

	"github.com/google/uuid"

	"github.com/veil-protocol/veil-go/pkg/auth"
	"github.com/veil-protocol/veil-go/pkg/log"
	"github.com/veil-protocol/veil-go/pkg/suite"
	"github.com/veil-protocol/veil-go/pkg/transport"
	"github.com/veil-protocol/veil-go/pkg/wire"
)

// Conn is one endpoint of a handshake in progress. Create it with Client
// or Server, bind per-connection settings before the first Negotiate
// call, then call Negotiate until the connection reaches a terminal
// state.
type Conn struct {
	id      string
	role    Role
	config  *Config
	adapter *transport.Adapter
	logger  log.Logger

	state    State
	started  bool
	queued   bool
	fatalErr error

	authOverride *auth.Mode
	policy       auth.Mode

	prefs []*suite.Suite
	suite *suite.Suite

	// Ephemeral key exchange state, dropped once keys are derived.
	ecdhKey   *ecdh.PrivateKey
	peerShare *ecdh.PublicKey

	// Transcript. Messages buffered in pending until the suite (and
	// therefore the hash) is known.
	transcript hash.Hash
	pending    [][]byte

	// Record layer.
	sendBuf   []byte
	sendOff   int
	recvBuf   []byte
	readSeq   uint64
	writeSeq  uint64
	readAEAD  cipher.AEAD
	writeAEAD cipher.AEAD
	readIV    []byte
	writeIV   []byte

	clientFinKey []byte
	serverFinKey []byte

	// Client-authentication progress.
	certRequested  bool
	certRequired   bool
	sentCert       bool
	clientCertUsed bool
	peerCerts      []*x509.Certificate
}

// Client creates the initiating endpoint of a handshake over the given
// transport adapter.
func Client(config *Config, adapter *transport.Adapter) (*Conn, error) {
	return newConn(RoleClient, config, adapter)
}

// Server creates the answering endpoint of a handshake over the given
// transport adapter.
func Server(config *Config, adapter *transport.Adapter) (*Conn, error) {
	return newConn(RoleServer, config, adapter)
}

func newConn(role Role, config *Config, adapter *transport.Adapter) (*Conn, error) {
	if config == nil {
		return nil, ErrConfigRequired
	}
	if !adapter.Valid() {
		return nil, transport.ErrNoCallback
	}

	prefs, err := suite.Resolve(config.Suites)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cipher suites: %w", err)
	}

	if role == RoleServer {
		if err := config.Identity.Validate(); err != nil {
			return nil, fmt.Errorf("server identity unusable: %w", err)
		}
	} else if config.Identity != nil {
		if err := config.Identity.Validate(); err != nil {
			return nil, fmt.Errorf("client identity unusable: %w", err)
		}
	}

	initial := StateSendClientHello
	if role == RoleServer {
		initial = StateWaitClientHello
	}

	return &Conn{
		id:      uuid.NewString(),
		role:    role,
		config:  config,
		adapter: adapter,
		logger:  config.logger(),
		state:   initial,
		prefs:   prefs,
	}, nil
}

// SetClientAuth overrides the configuration-level client-authentication
// policy for this connection only. Valid until the first Negotiate call.
func (c *Conn) SetClientAuth(mode auth.Mode) error {
	if c.started {
		return ErrNegotiationStarted
	}
	m := mode
	c.authOverride = &m
	return nil
}

// Negotiate advances the handshake by one bounded unit of work. It
// returns the blocked status and a fatal error, if any. On an
// Established connection it is a no-op success; on a Failed connection
// it returns the original fatal error unchanged.
func (c *Conn) Negotiate() (Blocked, error) {
	switch c.state {
	case StateEstablished:
		return NotBlocked, nil
	case StateFailed:
		return NotBlocked, c.fatalErr
	}

	if !c.started {
		if err := c.start(); err != nil {
			return NotBlocked, c.fail(err, 0)
		}
	}

	if c.role == RoleClient {
		return c.clientStep()
	}
	return c.serverStep()
}

// start freezes the per-connection settings and checks the configuration
// against the resolved policy. Runs once, on the first Negotiate call.
func (c *Conn) start() error {
	c.policy = auth.Setting{Default: c.config.ClientAuth, Override: c.authOverride}.Resolve()

	if c.role == RoleClient && c.config.VerifyPeer == nil {
		return ErrVerifierRequired
	}
	if c.role == RoleServer && c.policy.RequestsCert() && c.config.VerifyPeer == nil {
		return ErrVerifierRequired
	}
	if c.role == RoleClient && c.policy == auth.ModeRequired {
		if err := c.config.Identity.Validate(); err != nil {
			return fmt.Errorf("client certificate mandated by policy but unusable: %w", err)
		}
	}

	c.started = true
	return nil
}

// Close tears the connection down and releases secret material. A
// mid-handshake close makes the connection Failed with ErrConnClosed;
// closing a terminal connection only wipes.
func (c *Conn) Close() error {
	if !c.state.Terminal() {
		if c.started && c.sendOff == 0 {
			// Best effort; the peer may never read it.
			if err := c.queueRecord(wire.RecordAlert, []byte{byte(wire.AlertCloseNotify)}); err == nil {
				_, _ = c.flush()
			}
		}
		c.fatalErr = ErrConnClosed
		c.transition(StateFailed)
	}
	c.wipe()
	return nil
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() string { return c.id }

// Role returns the connection's handshake role.
func (c *Conn) Role() Role { return c.role }

// State returns the current handshake state.
func (c *Conn) State() State { return c.state }

// Established reports whether the handshake completed successfully.
func (c *Conn) Established() bool { return c.state == StateEstablished }

// Failed reports whether the handshake failed.
func (c *Conn) Failed() bool { return c.state == StateFailed }

// Suite returns the negotiated cipher suite, or nil before the hello
// exchange settles one.
func (c *Conn) Suite() *suite.Suite { return c.suite }

// ClientCertUsed reports whether a client certificate was presented and
// accepted during the handshake. It is meaningful on both endpoints once
// the connection is Established.
func (c *Conn) ClientCertUsed() bool { return c.clientCertUsed }

// PeerCertificates returns the peer's verified certificate chain, leaf
// first, or nil when the peer did not authenticate.
func (c *Conn) PeerCertificates() []*x509.Certificate {
	if c.peerCerts == nil {
		return nil
	}
	out := make([]*x509.Certificate, len(c.peerCerts))
	copy(out, c.peerCerts)
	return out
}

// transition moves the state machine and resets per-state send progress.
func (c *Conn) transition(next State) {
	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Role:         c.role.String(),
		Category:     log.CategoryState,
		State:        &log.StateEvent{From: c.state.String(), To: next.String()},
	})
	c.state = next
	c.queued = false
}

// fail latches the fatal error, best-effort notifies the peer, and wipes
// secret material. Every later Negotiate call returns the same error.
func (c *Conn) fail(err error, code wire.AlertCode) error {
	if c.state == StateFailed {
		return c.fatalErr
	}

	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Role:         c.role.String(),
		Category:     log.CategoryError,
		Error:        &log.ErrorEvent{Alert: uint8(code), Message: err.Error()},
	})

	c.fatalErr = err
	c.transition(StateFailed)

	// A half-written record cannot be abandoned without corrupting the
	// peer's framing; in that case the retry budget is the backstop.
	if code != 0 && c.sendOff == 0 {
		c.sendBuf = c.sendBuf[:0]
		if qerr := c.queueRecord(wire.RecordAlert, []byte{byte(code)}); qerr == nil {
			_, _ = c.flush()
		}
	}

	c.wipe()
	return err
}

// wipe releases key material and buffered handshake state. The latched
// error, terminal state, and outcome flags survive.
func (c *Conn) wipe() {
	wipeBytes(c.clientFinKey)
	wipeBytes(c.serverFinKey)
	wipeBytes(c.readIV)
	wipeBytes(c.writeIV)
	wipeBytes(c.sendBuf)
	wipeBytes(c.recvBuf)
	c.clientFinKey = nil
	c.serverFinKey = nil
	c.readIV = nil
	c.writeIV = nil
	c.readAEAD = nil
	c.writeAEAD = nil
	c.sendBuf = nil
	c.sendOff = 0
	c.recvBuf = nil
	c.ecdhKey = nil
	c.peerShare = nil
	c.transcript = nil
	c.pending = nil
}

// appendTranscript folds handshake message bytes into the transcript.
// Before the suite is known the bytes are buffered.
func (c *Conn) appendTranscript(data []byte) {
	if c.transcript == nil {
		c.pending = append(c.pending, append([]byte(nil), data...))
		return
	}
	c.transcript.Write(data)
}

// initTranscript creates the transcript hash for the negotiated suite
// and replays the buffered messages into it.
func (c *Conn) initTranscript() {
	c.transcript = c.suite.NewHash()
	for _, m := range c.pending {
		c.transcript.Write(m)
	}
	c.pending = nil
}

// transcriptHash returns the running transcript digest without
// disturbing the hash state.
func (c *Conn) transcriptHash() []byte {
	return c.transcript.Sum(nil)
}

// installKeys runs the key schedule over the shared secret at the
// current transcript point and arms record protection in both
// directions. The shared secret is consumed.
func (c *Conn) installKeys(shared []byte) error {
	keys, err := deriveSessionKeys(c.suite, shared, c.transcriptHash())
	wipeBytes(shared)
	if err != nil {
		return err
	}

	clientAEAD, err := c.suite.NewAEAD(keys.client.key)
	if err != nil {
		return err
	}
	serverAEAD, err := c.suite.NewAEAD(keys.server.key)
	if err != nil {
		return err
	}
	wipeBytes(keys.client.key)
	wipeBytes(keys.server.key)

	if c.role == RoleClient {
		c.writeAEAD, c.writeIV = clientAEAD, keys.client.iv
		c.readAEAD, c.readIV = serverAEAD, keys.server.iv
	} else {
		c.writeAEAD, c.writeIV = serverAEAD, keys.server.iv
		c.readAEAD, c.readIV = clientAEAD, keys.client.iv
	}
	c.clientFinKey = keys.clientFinished
	c.serverFinKey = keys.serverFinished
	c.readSeq = 0
	c.writeSeq = 0
	return nil
}

// logRecord emits a record-level log event.
func (c *Conn) logRecord(dir log.Direction, typ wire.RecordType, message string, size int) {
	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Role:         c.role.String(),
		Direction:    dir,
		Category:     log.CategoryRecord,
		Record:       &log.RecordEvent{RecordType: uint8(typ), Message: message, Size: size},
	})
}

// remoteAlert wraps a peer alert code as the connection's fatal error.
func remoteAlert(code wire.AlertCode) error {
	return &wire.AlertError{Code: code, Remote: true}
}

// isWouldBlock reports whether a transport error is the retryable
// would-block signal.
func isWouldBlock(err error) bool {
	return errors.Is(err, transport.ErrWouldBlock)
}
