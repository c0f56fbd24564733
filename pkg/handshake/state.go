package handshake

// Role identifies which side of the handshake a connection plays.
type Role uint8

const (
	// RoleClient initiates the handshake.
	RoleClient Role = iota

	// RoleServer answers it.
	RoleServer
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleServer:
		return "server"
	default:
		return "unknown"
	}
}

// Blocked reports why a negotiation step could not complete. It is a
// status, not an error: the caller retries once the transport can make
// progress in the indicated direction.
type Blocked uint8

const (
	// NotBlocked means the step completed its unit of work.
	NotBlocked Blocked = iota

	// BlockedOnRead means the step needs more incoming bytes.
	BlockedOnRead

	// BlockedOnWrite means the step could not write all outgoing bytes.
	BlockedOnWrite
)

// String returns the blocked status name.
func (b Blocked) String() string {
	switch b {
	case NotBlocked:
		return "NotBlocked"
	case BlockedOnRead:
		return "BlockedOnRead"
	case BlockedOnWrite:
		return "BlockedOnWrite"
	default:
		return "Unknown"
	}
}

// State is a handshake state machine position. Client and server walk
// disjoint paths through the same space; both end in Established or
// Failed.
type State uint8

const (
	// StateStart is the zero value; connections are created directly in
	// their role's first working state.
	StateStart State = iota

	// Client path.
	StateSendClientHello
	StateWaitServerHello
	StateWaitServerCert
	StateWaitServerVerify
	StateSendClientCert
	StateSendClientVerify
	StateSendClientFinished
	StateWaitServerFinished

	// Server path.
	StateWaitClientHello
	StateSendServerHello
	StateSendCertRequest
	StateSendServerCert
	StateSendServerVerify
	StateWaitClientCert
	StateWaitClientVerify
	StateWaitClientFinished
	StateSendServerFinished

	// Terminal states.
	StateEstablished
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStart:
		return "Start"
	case StateSendClientHello:
		return "SendClientHello"
	case StateWaitServerHello:
		return "WaitServerHello"
	case StateWaitServerCert:
		return "WaitServerCert"
	case StateWaitServerVerify:
		return "WaitServerVerify"
	case StateSendClientCert:
		return "SendClientCert"
	case StateSendClientVerify:
		return "SendClientVerify"
	case StateSendClientFinished:
		return "SendClientFinished"
	case StateWaitServerFinished:
		return "WaitServerFinished"
	case StateWaitClientHello:
		return "WaitClientHello"
	case StateSendServerHello:
		return "SendServerHello"
	case StateSendCertRequest:
		return "SendCertRequest"
	case StateSendServerCert:
		return "SendServerCert"
	case StateSendServerVerify:
		return "SendServerVerify"
	case StateWaitClientCert:
		return "WaitClientCert"
	case StateWaitClientVerify:
		return "WaitClientVerify"
	case StateWaitClientFinished:
		return "WaitClientFinished"
	case StateSendServerFinished:
		return "SendServerFinished"
	case StateEstablished:
		return "Established"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the state is Established or Failed.
func (s State) Terminal() bool {
	return s == StateEstablished || s == StateFailed
}
