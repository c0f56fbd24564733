package handshake

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veil-protocol/veil-go/pkg/auth"
	"github.com/veil-protocol/veil-go/pkg/cert"
	"github.com/veil-protocol/veil-go/pkg/log"
	"github.com/veil-protocol/veil-go/pkg/suite"
	"github.com/veil-protocol/veil-go/pkg/transport"
	"github.com/veil-protocol/veil-go/pkg/wire"
)

// testEnv bundles a throwaway CA, one identity per endpoint, and an
// in-memory transport pair.
type testEnv struct {
	ca       *cert.CA
	clientID *cert.Identity
	serverID *cert.Identity
	pipe     *transport.Pipe
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	ca, err := cert.NewCA("veil test ca")
	require.NoError(t, err)
	clientID, err := ca.Issue("test client")
	require.NoError(t, err)
	serverID, err := ca.Issue("test server")
	require.NoError(t, err)
	return &testEnv{ca: ca, clientID: clientID, serverID: serverID, pipe: transport.NewPipe()}
}

// configs builds matching client and server configs with the given
// default client-auth policy on both sides.
func (e *testEnv) configs(mode auth.Mode) (*Config, *Config) {
	verify := cert.VerifyAgainstRoots(e.ca.Pool())
	clientCfg := &Config{Identity: e.clientID, VerifyPeer: verify, ClientAuth: mode}
	serverCfg := &Config{Identity: e.serverID, VerifyPeer: verify, ClientAuth: mode}
	return clientCfg, serverCfg
}

func (e *testEnv) pair(t *testing.T, clientCfg, serverCfg *Config) (*Conn, *Conn) {
	t.Helper()
	client, err := Client(clientCfg, e.pipe.Client)
	require.NoError(t, err)
	server, err := Server(serverCfg, e.pipe.Server)
	require.NoError(t, err)
	return client, server
}

// pairMode is the common case: both sides on default configs with the
// same policy.
func (e *testEnv) pairMode(t *testing.T, mode auth.Mode) (*Conn, *Conn) {
	t.Helper()
	clientCfg, serverCfg := e.configs(mode)
	return e.pair(t, clientCfg, serverCfg)
}

func TestMutualAuthPerSuite(t *testing.T) {
	for _, s := range suite.Catalog() {
		if !s.Available {
			continue
		}
		t.Run(s.Name, func(t *testing.T) {
			env := newEnv(t)
			clientCfg, serverCfg := env.configs(auth.ModeRequired)
			clientCfg.Suites = []suite.ID{s.ID}
			serverCfg.Suites = []suite.ID{s.ID}
			client, server := env.pair(t, clientCfg, serverCfg)

			require.NoError(t, Drive(client, server, 0))

			assert.True(t, client.Established())
			assert.True(t, server.Established())
			assert.Equal(t, s.ID, client.Suite().ID)
			assert.Equal(t, s.ID, server.Suite().ID)

			assert.True(t, client.ClientCertUsed())
			assert.True(t, server.ClientCertUsed())

			require.NotEmpty(t, server.PeerCertificates())
			assert.Equal(t, "test client", server.PeerCertificates()[0].Subject.CommonName)
			require.NotEmpty(t, client.PeerCertificates())
			assert.Equal(t, "test server", client.PeerCertificates()[0].Subject.CommonName)
		})
	}
}

func TestNoClientAuth(t *testing.T) {
	env := newEnv(t)
	client, server := env.pairMode(t, auth.ModeNone)

	require.NoError(t, Drive(client, server, 0))

	assert.True(t, client.Established())
	assert.True(t, server.Established())

	// The server still authenticated, but no client certificate changed
	// hands.
	assert.False(t, client.ClientCertUsed())
	assert.False(t, server.ClientCertUsed())
	assert.NotEmpty(t, client.PeerCertificates())
	assert.Empty(t, server.PeerCertificates())
}

func TestOptionalAuthDeclined(t *testing.T) {
	env := newEnv(t)
	clientCfg, serverCfg := env.configs(auth.ModeOptional)
	// A client with no certificate material declines the optional request.
	clientCfg.Identity = nil
	client, server := env.pair(t, clientCfg, serverCfg)

	require.NoError(t, Drive(client, server, 0))

	assert.True(t, client.Established())
	assert.True(t, server.Established())
	assert.False(t, client.ClientCertUsed())
	assert.False(t, server.ClientCertUsed())
}

func TestOptionalAuthPresented(t *testing.T) {
	env := newEnv(t)
	client, server := env.pairMode(t, auth.ModeOptional)

	require.NoError(t, Drive(client, server, 0))

	assert.True(t, client.ClientCertUsed())
	assert.True(t, server.ClientCertUsed())
}

func TestPolicyMismatchFailsBothSides(t *testing.T) {
	env := newEnv(t)
	clientCfg, serverCfg := env.configs(auth.ModeNone)
	serverCfg.ClientAuth = auth.ModeRequired
	client, server := env.pair(t, clientCfg, serverCfg)

	err := Drive(client, server, 0)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrStalled)

	assert.True(t, client.Failed())
	assert.True(t, server.Failed())
	assert.False(t, client.ClientCertUsed())
	assert.False(t, server.ClientCertUsed())

	// The refusing client fails locally; the server learns of it from the
	// alert.
	_, clientErr := client.Negotiate()
	assert.ErrorIs(t, clientErr, ErrClientAuthRefused)

	_, serverErr := server.Negotiate()
	var alert *wire.AlertError
	require.ErrorAs(t, serverErr, &alert)
	assert.True(t, alert.Remote)
	assert.Equal(t, wire.AlertCertificateRequired, alert.Code)
}

func TestConnectionOverridesConfigPolicy(t *testing.T) {
	env := newEnv(t)
	client, server := env.pairMode(t, auth.ModeNone)
	require.NoError(t, client.SetClientAuth(auth.ModeRequired))
	require.NoError(t, server.SetClientAuth(auth.ModeRequired))

	require.NoError(t, Drive(client, server, 0))

	assert.True(t, client.ClientCertUsed())
	assert.True(t, server.ClientCertUsed())
}

func TestSetClientAuthAfterStart(t *testing.T) {
	env := newEnv(t)
	client, _ := env.pairMode(t, auth.ModeNone)

	_, err := client.Negotiate()
	require.NoError(t, err)

	assert.ErrorIs(t, client.SetClientAuth(auth.ModeRequired), ErrNegotiationStarted)
}

func TestNegotiateIsIdempotentInTerminalStates(t *testing.T) {
	env := newEnv(t)
	client, server := env.pairMode(t, auth.ModeNone)
	require.NoError(t, Drive(client, server, 0))

	// Established: repeated calls are no-op successes.
	for i := 0; i < 3; i++ {
		blocked, err := client.Negotiate()
		assert.Equal(t, NotBlocked, blocked)
		assert.NoError(t, err)
	}
	assert.Equal(t, StateEstablished, client.State())
}

func TestFailedConnLatchesError(t *testing.T) {
	env := newEnv(t)
	clientCfg, _ := env.configs(auth.ModeNone)
	clientCfg.VerifyPeer = nil
	client, err := Client(clientCfg, env.pipe.Client)
	require.NoError(t, err)

	_, first := client.Negotiate()
	require.ErrorIs(t, first, ErrVerifierRequired)
	assert.True(t, client.Failed())

	for i := 0; i < 3; i++ {
		_, again := client.Negotiate()
		assert.Equal(t, first, again)
	}
}

func TestSmallTransportChunks(t *testing.T) {
	for _, chunk := range []int{1, 3, 7} {
		env := newEnv(t)
		env.pipe.SetMaxChunk(chunk)
		client, server := env.pairMode(t, auth.ModeRequired)

		require.NoError(t, Drive(client, server, 0), "chunk size %d", chunk)
		assert.True(t, client.ClientCertUsed())
		assert.True(t, server.ClientCertUsed())
	}
}

// stingySender refuses every other write and caps accepted bytes,
// forcing the record layer to resume partially written records across
// Negotiate calls.
type stingySender struct {
	out   *transport.Buffer
	calls int
}

func (s *stingySender) send(_ any, p []byte) (int, error) {
	s.calls++
	if s.calls%2 == 1 {
		return 0, transport.ErrWouldBlock
	}
	if len(p) > 5 {
		p = p[:5]
	}
	return s.out.Write(p)
}

func TestBlockedWriteResumes(t *testing.T) {
	env := newEnv(t)
	sender := &stingySender{out: env.pipe.ClientToServer}
	clientAdapter := &transport.Adapter{
		Recv:    env.pipe.Client.Recv,
		RecvCtx: env.pipe.Client.RecvCtx,
		Send:    sender.send,
	}

	clientCfg, serverCfg := env.configs(auth.ModeRequired)
	client, err := Client(clientCfg, clientAdapter)
	require.NoError(t, err)
	server, err := Server(serverCfg, env.pipe.Server)
	require.NoError(t, err)

	sawBlockedWrite := false
	for i := 0; i < 5000; i++ {
		if client.State().Terminal() && server.State().Terminal() {
			break
		}
		if !client.State().Terminal() {
			blocked, err := client.Negotiate()
			require.NoError(t, err)
			if blocked == BlockedOnWrite {
				sawBlockedWrite = true
			}
		}
		if !server.State().Terminal() {
			_, err := server.Negotiate()
			require.NoError(t, err)
		}
	}

	assert.True(t, sawBlockedWrite)
	assert.True(t, client.Established())
	assert.True(t, server.Established())
	assert.True(t, server.ClientCertUsed())
}

func TestUnavailableSuiteRejectedInConfig(t *testing.T) {
	env := newEnv(t)
	clientCfg, _ := env.configs(auth.ModeNone)
	clientCfg.Suites = []suite.ID{suite.AES128CCMSHA256}

	_, err := Client(clientCfg, env.pipe.Client)
	assert.ErrorIs(t, err, suite.ErrUnavailable)

	clientCfg.Suites = []suite.ID{0x9999}
	_, err = Client(clientCfg, env.pipe.Client)
	assert.ErrorIs(t, err, suite.ErrUnknownSuite)
}

func TestDefaultConfigSkipsUnavailableSuite(t *testing.T) {
	env := newEnv(t)
	client, server := env.pairMode(t, auth.ModeNone)
	require.NoError(t, Drive(client, server, 0))

	require.NotNil(t, client.Suite())
	assert.True(t, client.Suite().Available)
	assert.NotEqual(t, suite.AES128CCMSHA256, client.Suite().ID)
	assert.Equal(t, client.Suite().ID, server.Suite().ID)
}

func TestServerPreferenceOrderWins(t *testing.T) {
	env := newEnv(t)
	clientCfg, serverCfg := env.configs(auth.ModeNone)
	clientCfg.Suites = []suite.ID{suite.AES128GCMSHA256, suite.CHACHA20POLY1305SHA256}
	serverCfg.Suites = []suite.ID{suite.CHACHA20POLY1305SHA256, suite.AES128GCMSHA256}
	client, server := env.pair(t, clientCfg, serverCfg)

	require.NoError(t, Drive(client, server, 0))
	assert.Equal(t, suite.CHACHA20POLY1305SHA256, client.Suite().ID)
	assert.Equal(t, suite.CHACHA20POLY1305SHA256, server.Suite().ID)
}

func TestRejectedServerCertPropagates(t *testing.T) {
	env := newEnv(t)
	clientCfg, serverCfg := env.configs(auth.ModeRequired)
	clientCfg.VerifyPeer = cert.RejectAll()
	client, server := env.pair(t, clientCfg, serverCfg)

	err := Drive(client, server, 0)
	require.Error(t, err)

	_, clientErr := client.Negotiate()
	assert.ErrorIs(t, clientErr, cert.ErrInvalidCert)

	_, serverErr := server.Negotiate()
	var alert *wire.AlertError
	require.ErrorAs(t, serverErr, &alert)
	assert.True(t, alert.Remote)
	assert.Equal(t, wire.AlertBadCertificate, alert.Code)
}

func TestRejectedClientCertPropagates(t *testing.T) {
	env := newEnv(t)
	clientCfg, serverCfg := env.configs(auth.ModeRequired)
	serverCfg.VerifyPeer = cert.RejectAll()
	client, server := env.pair(t, clientCfg, serverCfg)

	err := Drive(client, server, 0)
	require.Error(t, err)

	_, serverErr := server.Negotiate()
	assert.ErrorIs(t, serverErr, cert.ErrInvalidCert)
	assert.False(t, server.ClientCertUsed())

	_, clientErr := client.Negotiate()
	var alert *wire.AlertError
	require.ErrorAs(t, clientErr, &alert)
	assert.True(t, alert.Remote)
	assert.Equal(t, wire.AlertBadCertificate, alert.Code)
}

func TestPeerClosedTransport(t *testing.T) {
	env := newEnv(t)
	_, server := env.pairMode(t, auth.ModeNone)

	env.pipe.Close()
	_, err := server.Negotiate()
	assert.ErrorIs(t, err, ErrPeerClosed)
	assert.True(t, server.Failed())
}

func TestCloseMidHandshake(t *testing.T) {
	env := newEnv(t)
	client, _ := env.pairMode(t, auth.ModeNone)

	_, err := client.Negotiate()
	require.NoError(t, err)

	require.NoError(t, client.Close())
	assert.True(t, client.Failed())

	_, err = client.Negotiate()
	assert.ErrorIs(t, err, ErrConnClosed)
}

func TestClientRequiredPolicyWithoutIdentity(t *testing.T) {
	env := newEnv(t)
	clientCfg, _ := env.configs(auth.ModeRequired)
	clientCfg.Identity = nil
	client, err := Client(clientCfg, env.pipe.Client)
	require.NoError(t, err)

	_, err = client.Negotiate()
	assert.ErrorIs(t, err, cert.ErrEmptyChain)
	assert.True(t, client.Failed())
}

func TestConstructorValidation(t *testing.T) {
	env := newEnv(t)
	clientCfg, serverCfg := env.configs(auth.ModeNone)

	_, err := Client(nil, env.pipe.Client)
	assert.ErrorIs(t, err, ErrConfigRequired)

	_, err = Client(clientCfg, &transport.Adapter{})
	assert.ErrorIs(t, err, transport.ErrNoCallback)

	serverCfg.Identity = nil
	_, err = Server(serverCfg, env.pipe.Server)
	assert.ErrorIs(t, err, cert.ErrEmptyChain)
}

func TestDriveStallsOnDeadTransport(t *testing.T) {
	env := newEnv(t)
	stuck := &transport.Adapter{
		Recv: func(any, []byte) (int, error) { return 0, transport.ErrWouldBlock },
		Send: func(any, []byte) (int, error) { return 0, transport.ErrWouldBlock },
	}

	clientCfg, serverCfg := env.configs(auth.ModeNone)
	client, err := Client(clientCfg, stuck)
	require.NoError(t, err)
	server, err := Server(serverCfg, env.pipe.Server)
	require.NoError(t, err)

	assert.ErrorIs(t, Drive(client, server, 10), ErrStalled)
	assert.False(t, client.State().Terminal())
}

func TestLoggerSeesNegotiation(t *testing.T) {
	env := newEnv(t)
	mem := log.NewMemoryLogger()
	clientCfg, serverCfg := env.configs(auth.ModeRequired)
	clientCfg.Logger = mem
	client, server := env.pair(t, clientCfg, serverCfg)

	require.NoError(t, Drive(client, server, 0))

	var sawEstablished, sawHelloOut, sawHelloIn bool
	for _, ev := range mem.Events() {
		assert.Equal(t, client.ID(), ev.ConnectionID)
		assert.Equal(t, "client", ev.Role)
		switch {
		case ev.State != nil && ev.State.To == StateEstablished.String():
			sawEstablished = true
		case ev.Record != nil && ev.Record.Message == "ClientHello" && ev.Direction == log.DirectionOut:
			sawHelloOut = true
		case ev.Record != nil && ev.Record.Message == "ServerHello" && ev.Direction == log.DirectionIn:
			sawHelloIn = true
		}
	}
	assert.True(t, sawEstablished)
	assert.True(t, sawHelloOut)
	assert.True(t, sawHelloIn)
}

func TestRoleAndStateStrings(t *testing.T) {
	assert.Equal(t, "client", RoleClient.String())
	assert.Equal(t, "server", RoleServer.String())
	assert.Equal(t, "BlockedOnRead", BlockedOnRead.String())
	assert.Equal(t, "Established", StateEstablished.String())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateWaitServerHello.Terminal())
}

func TestDriveJoinsNothingOnSuccess(t *testing.T) {
	env := newEnv(t)
	client, server := env.pairMode(t, auth.ModeNone)
	err := Drive(client, server, DefaultMaxSteps)
	assert.NoError(t, err)
	assert.False(t, errors.Is(err, ErrStalled))
}
