package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/veil-protocol/veil-go/pkg/auth"
	"github.com/veil-protocol/veil-go/pkg/cert"
	"github.com/veil-protocol/veil-go/pkg/handshake"
	vlog "github.com/veil-protocol/veil-go/pkg/log"
	"github.com/veil-protocol/veil-go/pkg/suite"
	"github.com/veil-protocol/veil-go/pkg/transport"
)

// Options selects how a demo session is assembled.
type Options struct {
	ClientAuth auth.Mode
	ServerAuth auth.Mode
	Suites     []suite.ID
	Chunk      int
	MaxSteps   int
}

// Session owns one client/server pair handshaking over an in-memory
// pipe, with a shared event log for inspection.
type Session struct {
	opts   Options
	slog   *slog.Logger
	Pipe   *transport.Pipe
	Client *handshake.Conn
	Server *handshake.Conn
	Events *vlog.MemoryLogger
}

// NewSession mints a throwaway CA and two identities, then wires both
// endpoints over a fresh pipe.
func NewSession(opts Options, slogger *slog.Logger) (*Session, error) {
	s := &Session{opts: opts, slog: slogger}
	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset rebuilds the pipe and both connections from scratch, discarding
// any negotiation in progress.
func (s *Session) Reset() error {
	ca, err := cert.NewCA("veil-demo ca")
	if err != nil {
		return fmt.Errorf("failed to create CA: %w", err)
	}
	clientID, err := ca.Issue("veil-demo client")
	if err != nil {
		return fmt.Errorf("failed to issue client identity: %w", err)
	}
	serverID, err := ca.Issue("veil-demo server")
	if err != nil {
		return fmt.Errorf("failed to issue server identity: %w", err)
	}

	s.Events = vlog.NewMemoryLogger()
	var logger vlog.Logger = s.Events
	if s.slog != nil {
		logger = vlog.NewMultiLogger(s.Events, vlog.NewSlogAdapter(s.slog))
	}

	verify := cert.VerifyAgainstRoots(ca.Pool())
	clientCfg := &handshake.Config{
		Identity:   clientID,
		VerifyPeer: verify,
		ClientAuth: s.opts.ClientAuth,
		Suites:     s.opts.Suites,
		Logger:     logger,
	}
	serverCfg := &handshake.Config{
		Identity:   serverID,
		VerifyPeer: verify,
		ClientAuth: s.opts.ServerAuth,
		Suites:     s.opts.Suites,
		Logger:     logger,
	}

	s.Pipe = transport.NewPipe()
	if s.opts.Chunk > 0 {
		s.Pipe.SetMaxChunk(s.opts.Chunk)
	}

	if s.Client, err = handshake.Client(clientCfg, s.Pipe.Client); err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	if s.Server, err = handshake.Server(serverCfg, s.Pipe.Server); err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return nil
}

// Run drives both endpoints to a terminal state.
func (s *Session) Run() error {
	return handshake.Drive(s.Client, s.Server, s.opts.MaxSteps)
}

// Summary renders the post-negotiation outcome of both endpoints.
func (s *Session) Summary() string {
	var b strings.Builder
	for _, conn := range []*handshake.Conn{s.Client, s.Server} {
		fmt.Fprintf(&b, "%-6s  state=%s", conn.Role(), conn.State())
		if cs := conn.Suite(); cs != nil {
			fmt.Fprintf(&b, "  suite=%s", cs.Name)
		}
		fmt.Fprintf(&b, "  client_cert_used=%v", conn.ClientCertUsed())
		if peers := conn.PeerCertificates(); len(peers) > 0 {
			fmt.Fprintf(&b, "  peer=%q", peers[0].Subject.CommonName)
		}
		b.WriteString("\n")
	}
	return b.String()
}
