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

// serverStep executes one unit of server-side work.
func (c *Conn) serverStep() (Blocked, error) {
	switch c.state {
	case StateWaitClientHello:
		msg, raw, blocked, err := c.recvStep()
		if blocked {
			return BlockedOnRead, nil
		}
		if err != nil {
			return NotBlocked, c.fail(err, alertFor(err))
		}
		ch, ok := msg.(*wire.ClientHello)
		if !ok {
			return NotBlocked, c.fail(unexpected(msg), wire.AlertUnexpectedMessage)
		}
		if err := c.processClientHello(ch, raw); err != nil {
			return NotBlocked, c.fail(err, alertFor(err))
		}
		c.transition(StateSendServerHello)
		return NotBlocked, nil

	case StateSendServerHello:
		done, err := c.sendStep(c.buildServerHello, c.armRecordProtection)
		if err != nil {
			return NotBlocked, c.fail(err, wire.AlertInternalError)
		}
		if !done {
			return BlockedOnWrite, nil
		}
		next := StateSendServerCert
		if c.policy.RequestsCert() {
			next = StateSendCertRequest
		}
		c.transition(next)
		return NotBlocked, nil

	case StateSendCertRequest:
		done, err := c.sendStep(func() (any, error) {
			return &wire.CertificateRequest{
				MsgType:  wire.MsgCertificateRequest,
				Required: c.policy == auth.ModeRequired,
			}, nil
		}, nil)
		if err != nil {
			return NotBlocked, c.fail(err, wire.AlertInternalError)
		}
		if !done {
			return BlockedOnWrite, nil
		}
		c.transition(StateSendServerCert)
		return NotBlocked, nil

	case StateSendServerCert:
		done, err := c.sendStep(func() (any, error) {
			return &wire.Certificate{
				MsgType: wire.MsgCertificate,
				Chain:   c.config.Identity.Chain,
			}, nil
		}, nil)
		if err != nil {
			return NotBlocked, c.fail(err, wire.AlertInternalError)
		}
		if !done {
			return BlockedOnWrite, nil
		}
		c.transition(StateSendServerVerify)
		return NotBlocked, nil

	case StateSendServerVerify:
		done, err := c.sendStep(func() (any, error) {
			return c.buildCertVerify(serverVerifyLabel)
		}, nil)
		if err != nil {
			return NotBlocked, c.fail(err, wire.AlertInternalError)
		}
		if !done {
			return BlockedOnWrite, nil
		}
		next := StateWaitClientFinished
		if c.policy.RequestsCert() {
			next = StateWaitClientCert
		}
		c.transition(next)
		return NotBlocked, nil

	case StateWaitClientCert:
		msg, raw, blocked, err := c.recvStep()
		if blocked {
			return BlockedOnRead, nil
		}
		if err != nil {
			return NotBlocked, c.fail(err, alertFor(err))
		}
		crt, ok := msg.(*wire.Certificate)
		if !ok {
			return NotBlocked, c.fail(unexpected(msg), wire.AlertUnexpectedMessage)
		}
		c.appendTranscript(raw)
		if len(crt.Chain) == 0 {
			// An explicit decline. Tolerable under Optional, fatal under
			// Required.
			if c.policy == auth.ModeRequired {
				return NotBlocked, c.fail(ErrCertificateRequired, wire.AlertCertificateRequired)
			}
			c.transition(StateWaitClientFinished)
			return NotBlocked, nil
		}
		chain, err := cert.ParseChain(crt.Chain)
		if err != nil {
			return NotBlocked, c.fail(err, wire.AlertBadCertificate)
		}
		if err := c.config.VerifyPeer(chain); err != nil {
			return NotBlocked, c.fail(fmt.Errorf("client certificate rejected: %w", err), wire.AlertBadCertificate)
		}
		c.peerCerts = chain
		c.transition(StateWaitClientVerify)
		return NotBlocked, nil

	case StateWaitClientVerify:
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
		if err := c.verifyPeerSignature(clientVerifyLabel, cv.Signature); err != nil {
			return NotBlocked, c.fail(err, alertFor(err))
		}
		c.appendTranscript(raw)
		c.clientCertUsed = true
		c.transition(StateWaitClientFinished)
		return NotBlocked, nil

	case StateWaitClientFinished:
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
		expected := finishedMAC(c.suite, c.clientFinKey, c.transcriptHash())
		if !hmac.Equal(expected, fin.VerifyData) {
			return NotBlocked, c.fail(ErrBadFinished, wire.AlertDecryptError)
		}
		c.appendTranscript(raw)
		c.transition(StateSendServerFinished)
		return NotBlocked, nil

	case StateSendServerFinished:
		done, err := c.sendStep(func() (any, error) {
			return &wire.Finished{
				MsgType:    wire.MsgFinished,
				VerifyData: finishedMAC(c.suite, c.serverFinKey, c.transcriptHash()),
			}, nil
		}, nil)
		if err != nil {
			return NotBlocked, c.fail(err, wire.AlertInternalError)
		}
		if !done {
			return BlockedOnWrite, nil
		}
		c.transition(StateEstablished)
		c.wipe()
		return NotBlocked, nil

	default:
		err := fmt.Errorf("handshake: invalid server state %s", c.state)
		return NotBlocked, c.fail(err, wire.AlertInternalError)
	}
}

// processClientHello selects the cipher suite against local preferences
// and parses the client's key share.
func (c *Conn) processClientHello(ch *wire.ClientHello, raw []byte) error {
	if len(ch.Random) != wire.RandomSize {
		return fmt.Errorf("%w: client random is %d bytes", ErrIllegalParameter, len(ch.Random))
	}

	offered := make([]suite.ID, len(ch.Suites))
	for i, id := range ch.Suites {
		offered[i] = suite.ID(id)
	}
	chosen := suite.Select(offered, c.prefs, c.policy.RequestsCert())
	if chosen == nil {
		return ErrNoCommonSuite
	}

	peerPub, err := c.config.curve().NewPublicKey(ch.KeyShare)
	if err != nil {
		return fmt.Errorf("%w: bad client key share: %v", ErrIllegalParameter, err)
	}

	c.suite = chosen
	c.peerShare = peerPub
	c.initTranscript()
	c.appendTranscript(raw)
	return nil
}

// buildServerHello draws the server random and key share and announces
// the selected suite.
func (c *Conn) buildServerHello() (any, error) {
	key, err := c.config.curve().GenerateKey(c.config.rand())
	if err != nil {
		return nil, fmt.Errorf("failed to generate key share: %w", err)
	}
	c.ecdhKey = key

	random := make([]byte, wire.RandomSize)
	if _, err := io.ReadFull(c.config.rand(), random); err != nil {
		return nil, fmt.Errorf("failed to draw server random: %w", err)
	}

	return &wire.ServerHello{
		MsgType:  wire.MsgServerHello,
		Random:   random,
		Suite:    uint16(c.suite.ID),
		KeyShare: key.PublicKey().Bytes(),
	}, nil
}

// armRecordProtection completes key agreement and installs record keys.
// Runs once the ServerHello is queued, so the hello itself goes out in
// the clear and everything after it is protected.
func (c *Conn) armRecordProtection() error {
	shared, err := c.ecdhKey.ECDH(c.peerShare)
	if err != nil {
		return fmt.Errorf("key agreement failed: %w", err)
	}
	c.ecdhKey = nil
	c.peerShare = nil
	return c.installKeys(shared)
}
