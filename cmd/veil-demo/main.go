// Command veil-demo runs a VEIL mutual-authentication handshake between
// an in-process client and server.
//
// This command demonstrates the handshake engine end to end:
//   - CLI argument parsing
//   - Configuration file support
//   - Throwaway CA and per-endpoint identities
//   - In-memory non-blocking transport with optional chunk caps
//   - Interactive single-stepping through the state machines
//   - Comprehensive logging
//
// Usage:
//
//	veil-demo [flags]
//
// Flags:
//
//	-config string       YAML configuration file path
//	-client-auth string  Client-side policy: none, optional, required (default "required")
//	-server-auth string  Server-side policy (defaults to -client-auth)
//	-suite string        Restrict negotiation to one cipher suite by name
//	-chunk int           Cap transport transfers to N bytes per call (0 = unlimited)
//	-max-steps int       Negotiation step budget (default 100)
//	-log-level string    Log level: debug, info, warn, error (default "info")
//	-interactive         Enable interactive single-stepping mode
//
// Examples:
//
//	# Mutual authentication with defaults
//	veil-demo
//
//	# Policy mismatch: watch both sides fail
//	veil-demo -client-auth none -server-auth required -log-level debug
//
//	# One byte at a time, stepped by hand
//	veil-demo -chunk 1 -interactive
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
)

// cliConfig holds the parsed command line.
type cliConfig struct {
	ConfigFile  string
	ClientAuth  string
	ServerAuth  string
	Suite       string
	Chunk       int
	MaxSteps    int
	LogLevel    string
	Interactive bool
}

var config cliConfig

func init() {
	flag.StringVar(&config.ConfigFile, "config", "", "YAML configuration file path")
	flag.StringVar(&config.ClientAuth, "client-auth", "required", "Client-side policy: none, optional, required")
	flag.StringVar(&config.ServerAuth, "server-auth", "", "Server-side policy (defaults to -client-auth)")
	flag.StringVar(&config.Suite, "suite", "", "Restrict negotiation to one cipher suite by name")
	flag.IntVar(&config.Chunk, "chunk", 0, "Cap transport transfers to N bytes per call (0 = unlimited)")
	flag.IntVar(&config.MaxSteps, "max-steps", 0, "Negotiation step budget (0 = default)")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.BoolVar(&config.Interactive, "interactive", false, "Enable interactive single-stepping mode")
}

func main() {
	flag.Parse()

	if err := applyConfigFile(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	opts, err := buildOptions()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.SetFlags(log.Ltime | log.Lmicroseconds)
	log.Println("VEIL Handshake Demo")
	log.Printf("Client policy: %s, server policy: %s", opts.ClientAuth, opts.ServerAuth)
	if opts.Chunk > 0 {
		log.Printf("Transport chunk cap: %d bytes", opts.Chunk)
	}

	session, err := NewSession(opts, buildSlog(config.LogLevel))
	if err != nil {
		log.Fatalf("Failed to build session: %v", err)
	}

	if config.Interactive {
		shell, err := NewShell(session)
		if err != nil {
			log.Fatalf("Failed to start interactive mode: %v", err)
		}
		// Redirect log output through readline to avoid interfering with
		// the prompt.
		log.SetOutput(shell.Stdout())
		shell.Run()
		return
	}

	err = session.Run()
	fmt.Print(session.Summary())
	if err != nil {
		log.Fatalf("Negotiation failed: %v", err)
	}
	log.Printf("Handshake established in %d logged events", len(session.Events.Events()))
}

// applyConfigFile folds file values under flags: flags set explicitly on
// the command line keep their values.
func applyConfigFile() error {
	if config.ConfigFile == "" {
		return nil
	}
	fc, err := loadConfigFile(config.ConfigFile)
	if err != nil {
		return err
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if !set["client-auth"] && fc.ClientAuth != "" {
		config.ClientAuth = fc.ClientAuth
	}
	if !set["server-auth"] && fc.ServerAuth != "" {
		config.ServerAuth = fc.ServerAuth
	}
	if !set["suite"] && len(fc.Suites) == 1 {
		config.Suite = fc.Suites[0]
	}
	if !set["chunk"] && fc.Chunk > 0 {
		config.Chunk = fc.Chunk
	}
	if !set["max-steps"] && fc.MaxSteps > 0 {
		config.MaxSteps = fc.MaxSteps
	}
	if !set["log-level"] && fc.LogLevel != "" {
		config.LogLevel = fc.LogLevel
	}
	return nil
}

func buildOptions() (Options, error) {
	var opts Options
	var err error

	if opts.ClientAuth, err = parseMode(config.ClientAuth); err != nil {
		return opts, err
	}
	serverAuth := config.ServerAuth
	if serverAuth == "" {
		serverAuth = config.ClientAuth
	}
	if opts.ServerAuth, err = parseMode(serverAuth); err != nil {
		return opts, err
	}

	if config.Suite != "" {
		if opts.Suites, err = parseSuites([]string{config.Suite}); err != nil {
			return opts, err
		}
	}

	opts.Chunk = config.Chunk
	opts.MaxSteps = config.MaxSteps
	return opts, nil
}

// buildSlog returns a console logger for handshake events, or nil when
// the level filters them all out (events are Debug level).
func buildSlog(level string) *slog.Logger {
	if !strings.EqualFold(level, "debug") {
		return nil
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler)
}
