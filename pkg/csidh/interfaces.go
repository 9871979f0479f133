package csidh

import (
	"errors"
	"fmt"
)

// Errors returned by the key exchange.
var (
	ErrDegenerateCurve      = errors.New("degenerate curve")
	ErrInvalidTorsionOrder  = errors.New("invalid torsion order")
	ErrUnsupportedDirection = errors.New("unsupported walk direction")
	ErrUnsupportedDegree    = errors.New("unsupported isogeny degree")
	ErrConversionFailure    = errors.New("curve model conversion failed")
	ErrRootExtraction       = errors.New("radical root extraction failed")
	ErrUnsupportedExtension = errors.New("unsupported extension degree")
	ErrInvalidKey           = errors.New("invalid private key")
	ErrInvalidPublicKey     = errors.New("invalid public key")

	// ErrSamplingExhausted is returned when no point of the requested order
	// was found within the retry budget. It matches ErrInvalidTorsionOrder.
	ErrSamplingExhausted = fmt.Errorf("%w: sampling retries exhausted", ErrInvalidTorsionOrder)
)

// Errors returned by the interactive exchange protocol.
var (
	ErrRoundTimeout = errors.New("protocol round timeout")
	ErrInvalidMsg   = errors.New("invalid message received")
	ErrProtocolDone = errors.New("protocol already finished")
)

// PartyID represents a participant in an exchange session.
// It must be unique within a session.
type PartyID interface {
	// ID returns the unique string identifier for the party.
	ID() string

	// Moniker returns a human-readable name for the party (optional).
	Moniker() string

	// Key returns the identity key bytes of the party.
	Key() []byte
}

// Message is the generic interface for all protocol messages.
type Message interface {
	// Type returns a string identifier for the message type.
	Type() string

	// From returns the sender's PartyID.
	From() PartyID

	// To returns the intended recipients.
	// If nil or empty, the message is treated as a broadcast message.
	To() []PartyID

	// IsBroadcast returns true if the message is intended for all parties.
	IsBroadcast() bool

	// Payload returns the serialized data of the message.
	Payload() []byte

	// RoundNumber returns the protocol round this message belongs to.
	RoundNumber() uint32
}

// StateMachine drives a round based protocol.
type StateMachine interface {
	// Update applies an incoming message to the current state.
	// It returns:
	// - next: The new state machine (nil if protocol finished or failed).
	// - out: A slice of messages to be sent to other parties.
	// - err: An error if the transition failed.
	Update(msg Message) (next StateMachine, out []Message, err error)

	// Result returns the final output of the protocol.
	// Returns nil if the protocol is not yet finished.
	Result() interface{}

	// Details returns metadata about the current state (e.g., "Exchange Round 2").
	Details() string
}

// Session holds the configuration for an exchange session.
type Session struct {
	PartyID   PartyID   // The identity of the local party
	Parties   []PartyID // List of all participants (sorted)
	ParamSet  string    // Name of the isogeny parameter set
	SessionID []byte    // Unique session identifier to prevent replay attacks

	// OneRound skips the commitment round and broadcasts public curves
	// directly.
	OneRound bool
}

// ProtocolInitializer defines the function signature for starting a new protocol.
type ProtocolInitializer func(session *Session) (StateMachine, []Message, error)
