package exchange

import (
	"github.com/smallyu/go-csidh/internal/crypto/curves"
	"github.com/smallyu/go-csidh/pkg/csidh"
)

const (
	TypeCommit = "ExchangeRound1_Commit"
	TypeReveal = "ExchangeRound2_Reveal"
	TypeDirect = "ExchangeRound1_Direct"
)

// Result is the output of a finished exchange for the local party.
type Result struct {
	LocalPartyID csidh.PartyID

	// Our public curve
	Public *curves.Montgomery

	// Public curves of the peers, by PartyID.ID()
	Peers map[string]*curves.Montgomery

	// Curve shared with each peer: our key applied to their public curve
	Shared map[string]*curves.Montgomery
}

// SharedJ returns the j-invariant of the curve shared with peer, or nil.
func (r *Result) SharedJ(peer string) []byte {
	c, ok := r.Shared[peer]
	if !ok {
		return nil
	}
	return c.F.Bytes(c.JInvariant())
}

// ExchangeMessage is a concrete implementation of csidh.Message.
type ExchangeMessage struct {
	FromParty  csidh.PartyID
	ToParties  []csidh.PartyID
	IsBcast    bool
	Data       []byte
	TypeString string
	RoundNum   uint32
}

func (m *ExchangeMessage) Type() string {
	return m.TypeString
}

func (m *ExchangeMessage) From() csidh.PartyID {
	return m.FromParty
}

func (m *ExchangeMessage) To() []csidh.PartyID {
	return m.ToParties
}

func (m *ExchangeMessage) IsBroadcast() bool {
	return m.IsBcast
}

func (m *ExchangeMessage) Payload() []byte {
	return m.Data
}

func (m *ExchangeMessage) RoundNumber() uint32 {
	return m.RoundNum
}

// Wire payloads, CBOR encoded.

type commitPayload struct {
	Commitment []byte
}

type revealPayload struct {
	Salt  []byte
	Curve []byte
}

type directPayload struct {
	Curve []byte
}
