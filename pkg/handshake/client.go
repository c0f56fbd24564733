package handshake

import (
	"crypto/hmac"
	"fmt"
	"io"

	"github.com/veil-protocol/veil-go/pkg/auth"
	"github.com/veil-protocol/veil-go/pkg/cert"
	"github.com/veil-protocol/veil-go/pkg/suite"
	"github.com/veil-protocol/veil-go/pkg/wire"
)

// clientStep executes one unit of client-side work.
func (c *Conn) clientStep() (Blocked, error) {
	switch c.state {
	case StateSendClientHello:
		done, err := c.sendStep(c.buildClientHello, nil)
		if err != nil {
			return NotBlocked, c.fail(err, wire.AlertInternalError)
		}
		if !done {
			return BlockedOnWrite, nil
		}
		c.transition(StateWaitServerHello)
		return NotBlocked, nil

	case StateWaitServerHello:
		msg, raw, blocked, err := c.recvStep()
		if blocked {
			return BlockedOnRead, nil
		}
		if err != nil {
			return NotBlocked, c.fail(err, alertFor(err))
		}
		sh, ok := msg.(*wire.ServerHello)
		if !ok {
			return NotBlocked, c.fail(unexpected(msg), wire.AlertUnexpectedMessage)
		}
		if err := c.processServerHello(sh, raw); err != nil {
			return NotBlocked, c.fail(err, alertFor(err))
		}
		c.transition(StateWaitServerCert)
		return NotBlocked, nil

	case StateWaitServerCert:
		msg, raw, blocked, err := c.recvStep()
		if blocked {
			return BlockedOnRead, nil
		}
		if err != nil {
			return NotBlocked, c.fail(err, alertFor(err))
		}
		switch m := msg.(type) {
		case *wire.CertificateRequest:
			if c.certRequested {
				return NotBlocked, c.fail(unexpected(msg), wire.AlertUnexpectedMessage)
			}
			c.certRequested = true
			c.certRequired = m.Required
			c.appendTranscript(raw)
			// A mandated certificate this endpoint's policy refuses dooms
			// both sides; fail here instead of completing a flight the
			// server must reject.
			if m.Required && c.policy == auth.ModeNone {
				return NotBlocked, c.fail(ErrClientAuthRefused, wire.AlertCertificateRequired)
			}
			return NotBlocked, nil

		case *wire.Certificate:
			c.appendTranscript(raw)
			if err := c.processServerCert(m); err != nil {
				return NotBlocked, c.fail(err, wire.AlertBadCertificate)
			}
			c.transition(StateWaitServerVerify)
			return NotBlocked, nil

		default:
			return NotBlocked, c.fail(unexpected(msg), wire.AlertUnexpectedMessage)
		}

	case StateWaitServerVerify:
		msg, raw, blocked, err := c.recvStep()
		if blocked {
			return BlockedOnRead, nil
		}
		if err != nil {
			return NotBlocked, c.fail(err, alertFor(err))
		}
		cv, ok := msg.(*wire.CertificateVerify)
		if !ok {
			return NotBlocked, c.fail(unexpected(msg), wire.AlertUnexpectedMessage)
		}
		if err := c.verifyPeerSignature(serverVerifyLabel, cv.Signature); err != nil {
			return NotBlocked, c.fail(err, alertFor(err))
		}
		c.appendTranscript(raw)
		next := StateSendClientFinished
		if c.certRequested {
			next = StateSendClientCert
		}
		c.transition(next)
		return NotBlocked, nil

	case StateSendClientCert:
		done, err := c.sendStep(c.buildClientCert, nil)
		if err != nil {
			return NotBlocked, c.fail(err, alertFor(err))
		}
		if !done {
			return BlockedOnWrite, nil
		}
		next := StateSendClientFinished
		if c.sentCert {
			next = StateSendClientVerify
		}
		c.transition(next)
		return NotBlocked, nil

	case StateSendClientVerify:
		done, err := c.sendStep(func() (any, error) {
			return c.buildCertVerify(clientVerifyLabel)
		}, nil)
		if err != nil {
			return NotBlocked, c.fail(err, wire.AlertInternalError)
		}
		if !done {
			return BlockedOnWrite, nil
		}
		c.transition(StateSendClientFinished)
		return NotBlocked, nil

	case StateSendClientFinished:
		done, err := c.sendStep(func() (any, error) {
			return &wire.Finished{
				MsgType:    wire.MsgFinished,
				VerifyData: finishedMAC(c.suite, c.clientFinKey, c.transcriptHash()),
			}, nil
		}, nil)
		if err != nil {
			return NotBlocked, c.fail(err, wire.AlertInternalError)
		}
		if !done {
			return BlockedOnWrite, nil
		}
		c.transition(StateWaitServerFinished)
		return NotBlocked, nil

	case StateWaitServerFinished:
		msg, raw, blocked, err := c.recvStep()
		if blocked {
			return BlockedOnRead, nil
		}
		if err != nil {
			return NotBlocked, c.fail(err, alertFor(err))
		}
		fin, ok := msg.(*wire.Finished)
		if !ok {
			return NotBlocked, c.fail(unexpected(msg), wire.AlertUnexpectedMessage)
		}
		expected := finishedMAC(c.suite, c.serverFinKey, c.transcriptHash())
		if !hmac.Equal(expected, fin.VerifyData) {
			return NotBlocked, c.fail(ErrBadFinished, wire.AlertDecryptError)
		}
		c.appendTranscript(raw)
		// The server finishing means it accepted the whole client flight,
		// certificate included.
		c.clientCertUsed = c.sentCert
		c.transition(StateEstablished)
		c.wipe()
		return NotBlocked, nil

	default:
		err := fmt.Errorf("handshake: invalid client state %s", c.state)
		return NotBlocked, c.fail(err, wire.AlertInternalError)
	}
}

// buildClientHello draws the client random and ephemeral key share and
// offers the resolved suite preference list.
func (c *Conn) buildClientHello() (any, error) {
	key, err := c.config.curve().GenerateKey(c.config.rand())
	if err != nil {
		return nil, fmt.Errorf("failed to generate key share: %w", err)
	}
	c.ecdhKey = key

	random := make([]byte, wire.RandomSize)
	if _, err := io.ReadFull(c.config.rand(), random); err != nil {
		return nil, fmt.Errorf("failed to draw client random: %w", err)
	}

	ids := make([]uint16, len(c.prefs))
	for i, s := range c.prefs {
		ids[i] = uint16(s.ID)
	}

	return &wire.ClientHello{
		MsgType:  wire.MsgClientHello,
		Random:   random,
		Suites:   ids,
		KeyShare: key.PublicKey().Bytes(),
	}, nil
}

// processServerHello validates the server's selection, pins the suite,
// and arms record protection for everything after the hello exchange.
func (c *Conn) processServerHello(sh *wire.ServerHello, raw []byte) error {
	if len(sh.Random) != wire.RandomSize {
		return fmt.Errorf("%w: server random is %d bytes", ErrIllegalParameter, len(sh.Random))
	}

	var chosen *suite.Suite
	for _, s := range c.prefs {
		if uint16(s.ID) == sh.Suite {
			chosen = s
			break
		}
	}
	if chosen == nil {
		return fmt.Errorf("%w: suite 0x%04x was not offered", ErrIllegalParameter, sh.Suite)
	}
	c.suite = chosen
	c.initTranscript()
	c.appendTranscript(raw)

	peerPub, err := c.config.curve().NewPublicKey(sh.KeyShare)
	if err != nil {
		return fmt.Errorf("%w: bad server key share: %v", ErrIllegalParameter, err)
	}
	shared, err := c.ecdhKey.ECDH(peerPub)
	if err != nil {
		return fmt.Errorf("%w: key agreement failed: %v", ErrIllegalParameter, err)
	}
	c.ecdhKey = nil
	return c.installKeys(shared)
}

// processServerCert parses and verifies the server's chain. The server
// always authenticates; an empty chain is fatal.
func (c *Conn) processServerCert(crt *wire.Certificate) error {
	if len(crt.Chain) == 0 {
		return fmt.Errorf("server presented no certificate: %w", cert.ErrEmptyChain)
	}
	chain, err := cert.ParseChain(crt.Chain)
	if err != nil {
		return err
	}
	if err := c.config.VerifyPeer(chain); err != nil {
		return fmt.Errorf("server certificate rejected: %w", err)
	}
	c.peerCerts = chain
	return nil
}

// buildClientCert answers a certificate request: the identity chain when
// policy and material allow, an explicit empty chain otherwise.
func (c *Conn) buildClientCert() (any, error) {
	chain := [][]byte{}
	if c.policy != auth.ModeNone && c.config.Identity.Validate() == nil {
		chain = c.config.Identity.Chain
		c.sentCert = true
	}
	if c.certRequired && !c.sentCert {
		return nil, ErrCertificateRequired
	}
	return &wire.Certificate{MsgType: wire.MsgCertificate, Chain: chain}, nil
}
