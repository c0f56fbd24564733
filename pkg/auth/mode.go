package auth

// Mode is a client-authentication policy value.
type Mode uint8

const (
	// ModeNone means the server will not request a client certificate,
	// and a client will decline to present one even when requested.
	ModeNone Mode = iota

	// ModeOptional means the server requests a client certificate but
	// tolerates its absence.
	ModeOptional

	// ModeRequired means the server requests a client certificate and a
	// missing or rejected certificate is fatal.
	ModeRequired
)

// String returns a human-readable policy name.
func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "NONE"
	case ModeOptional:
		return "OPTIONAL"
	case ModeRequired:
		return "REQUIRED"
	default:
		return "UNKNOWN"
	}
}

// RequestsCert reports whether a server with this policy sends a
// certificate request at all.
func (m Mode) RequestsCert() bool {
	return m != ModeNone
}

// Setting layers an optional connection-level override over a mandatory
// configuration-level default.
type Setting struct {
	// Default is the configuration-level policy shared by every
	// connection built from the configuration.
	Default Mode

	// Override, when non-nil, replaces Default for one connection.
	Override *Mode
}

// Resolve returns the single policy value governing a connection:
// the override when present, otherwise the default.
func (s Setting) Resolve() Mode {
	if s.Override != nil {
		return *s.Override
	}
	return s.Default
}
