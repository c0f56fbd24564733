package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/veil-protocol/veil-go/pkg/handshake"
)

// Shell is the interactive single-stepping interface.
type Shell struct {
	session *Session
	rl      *readline.Instance
}

// NewShell creates the readline-backed command loop over a session.
func NewShell(session *Session) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "veil> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Shell{session: session, rl: rl}, nil
}

// Stdout returns a writer that coordinates with the readline prompt.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Run starts the interactive command loop and returns when the user
// exits.
func (s *Shell) Run() {
	defer s.rl.Close()

	s.printHelp()

	for {
		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()

		case "step", "s":
			s.cmdStep(args)

		case "run":
			s.cmdRun()

		case "state", "st":
			fmt.Fprint(s.rl.Stdout(), s.session.Summary())

		case "buffers", "b":
			s.cmdBuffers()

		case "events", "e":
			s.cmdEvents(args)

		case "reset":
			if err := s.session.Reset(); err != nil {
				fmt.Fprintf(s.rl.Stdout(), "Reset failed: %v\n", err)
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Session reset")

		case "quit", "q", "exit":
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			return

		default:
			fmt.Fprintf(s.rl.Stdout(), "Unknown command: %s (try 'help')\n", cmd)
		}
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.rl.Stdout(), `Commands:
  step [client|server]  - One negotiation step (both sides when omitted)
  run                   - Drive negotiation to completion
  state                 - Show both endpoints' state
  buffers               - Show bytes in flight per direction
  events [n]            - Show the last n logged events (default 10)
  reset                 - Rebuild the session from scratch
  quit                  - Exit`)
}

func (s *Shell) cmdStep(args []string) {
	step := func(conn *handshake.Conn) {
		if conn.State().Terminal() {
			fmt.Fprintf(s.rl.Stdout(), "%-6s  %s (terminal)\n", conn.Role(), conn.State())
			return
		}
		blocked, err := conn.Negotiate()
		if err != nil {
			fmt.Fprintf(s.rl.Stdout(), "%-6s  %s  error: %v\n", conn.Role(), conn.State(), err)
			return
		}
		fmt.Fprintf(s.rl.Stdout(), "%-6s  %s  blocked=%s\n", conn.Role(), conn.State(), blocked)
	}

	if len(args) == 0 {
		step(s.session.Client)
		step(s.session.Server)
		return
	}
	switch strings.ToLower(args[0]) {
	case "client", "c":
		step(s.session.Client)
	case "server", "s":
		step(s.session.Server)
	default:
		fmt.Fprintf(s.rl.Stdout(), "Unknown endpoint: %s\n", args[0])
	}
}

func (s *Shell) cmdRun() {
	err := s.session.Run()
	fmt.Fprint(s.rl.Stdout(), s.session.Summary())
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Negotiation failed: %v\n", err)
	}
}

func (s *Shell) cmdBuffers() {
	fmt.Fprintf(s.rl.Stdout(), "client->server: %d bytes\n", s.session.Pipe.ClientToServer.Len())
	fmt.Fprintf(s.rl.Stdout(), "server->client: %d bytes\n", s.session.Pipe.ServerToClient.Len())
}

func (s *Shell) cmdEvents(args []string) {
	n := 10
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed <= 0 {
			fmt.Fprintf(s.rl.Stdout(), "Invalid count: %s\n", args[0])
			return
		}
		n = parsed
	}

	events := s.session.Events.Events()
	if len(events) > n {
		events = events[len(events)-n:]
	}
	for _, ev := range events {
		switch {
		case ev.Record != nil:
			fmt.Fprintf(s.rl.Stdout(), "%s %-6s %s %s (%d bytes)\n",
				ev.Timestamp.Format("15:04:05.000"), ev.Role, ev.Direction, ev.Record.Message, ev.Record.Size)
		case ev.State != nil:
			fmt.Fprintf(s.rl.Stdout(), "%s %-6s %s -> %s\n",
				ev.Timestamp.Format("15:04:05.000"), ev.Role, ev.State.From, ev.State.To)
		case ev.Error != nil:
			fmt.Fprintf(s.rl.Stdout(), "%s %-6s ERROR %s (alert %d)\n",
				ev.Timestamp.Format("15:04:05.000"), ev.Role, ev.Error.Message, ev.Error.Alert)
		}
	}
}
