package log

import "time"

// Event represents a handshake log event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred.
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Role is the local endpoint role ("client" or "server").
	Role string `cbor:"3,keyasint"`

	// Direction indicates record flow for record events.
	Direction Direction `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Type-specific payload (one of these will be set).
	Record *RecordEvent `cbor:"10,keyasint,omitempty"`
	State  *StateEvent  `cbor:"11,keyasint,omitempty"`
	Error  *ErrorEvent  `cbor:"12,keyasint,omitempty"`
}

// RecordEvent describes a record crossing the transport boundary.
type RecordEvent struct {
	// RecordType is the wire record type (handshake or alert).
	RecordType uint8 `cbor:"1,keyasint"`

	// Message is the handshake message name, when known.
	Message string `cbor:"2,keyasint,omitempty"`

	// Size is the record payload size in bytes.
	Size int `cbor:"3,keyasint"`
}

// StateEvent describes a state machine transition.
type StateEvent struct {
	From string `cbor:"1,keyasint"`
	To   string `cbor:"2,keyasint"`
}

// ErrorEvent describes a fatal handshake failure.
type ErrorEvent struct {
	// Alert is the alert code associated with the failure, if any.
	Alert uint8 `cbor:"1,keyasint,omitempty"`

	// Message is the error text.
	Message string `cbor:"2,keyasint"`
}

// Direction indicates the direction of record flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming record.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing record.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryRecord indicates a record was sent or received.
	CategoryRecord Category = 0
	// CategoryState indicates a state machine transition.
	CategoryState Category = 1
	// CategoryError indicates a fatal failure.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryRecord:
		return "RECORD"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
