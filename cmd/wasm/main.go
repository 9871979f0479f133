//go:build js && wasm

package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"syscall/js"

	"github.com/google/uuid"

	"github.com/smallyu/go-csidh/internal/crypto/curves"
	"github.com/smallyu/go-csidh/internal/isogeny"
	"github.com/smallyu/go-csidh/internal/params"
	"github.com/smallyu/go-csidh/internal/protocol/exchange"
	"github.com/smallyu/go-csidh/internal/protocol/keygen"
	"github.com/smallyu/go-csidh/pkg/csidh"
)

// Active exchange sessions by handle
var sessions = make(map[string]csidh.StateMachine)

func main() {
	c := make(chan struct{})

	fmt.Println("Go CSIDH WASM Initialized")

	js.Global().Set("GoCSIDH", map[string]interface{}{
		"GenerateKey":  js.FuncOf(GenerateKey),
		"NewSessionID": js.FuncOf(NewSessionID),
		"PublicKey":    js.FuncOf(PublicKey),
		"DeriveSecret": js.FuncOf(DeriveSecret),
		"Walk":         js.FuncOf(Walk),
		"NewExchange":  js.FuncOf(NewExchange),
		"Update":       js.FuncOf(Update),
		"Result":       js.FuncOf(Result),
	})

	<-c
}

func errorf(format string, a ...interface{}) string {
	return "error: " + fmt.Sprintf(format, a...)
}

func loadKey(ps *params.Params, s string) (*keygen.Key, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return keygen.UnmarshalKey(ps, b)
}

// NewSessionID returns a fresh random session ID to hand to every party.
func NewSessionID(this js.Value, args []js.Value) interface{} {
	return uuid.NewString()
}

// GenerateKey returns a hex encoded private key.
// Arguments:
// 0: parameter set name
func GenerateKey(this js.Value, args []js.Value) interface{} {
	if len(args) != 1 {
		return errorf("expected 1 argument (params)")
	}
	ps, err := params.ByName(args[0].String())
	if err != nil {
		return errorf("%v", err)
	}
	k, err := keygen.GenerateKey(ps, nil)
	if err != nil {
		return errorf("%v", err)
	}
	b, err := keygen.MarshalKey(k)
	if err != nil {
		return errorf("%v", err)
	}
	return hex.EncodeToString(b)
}

// PublicKey returns the hex encoded public curve of a private key.
// Arguments:
// 0: parameter set name
// 1: hex private key
func PublicKey(this js.Value, args []js.Value) interface{} {
	if len(args) != 2 {
		return errorf("expected 2 arguments (params, key)")
	}
	ps, err := params.ByName(args[0].String())
	if err != nil {
		return errorf("%v", err)
	}
	k, err := loadKey(ps, args[1].String())
	if err != nil {
		return errorf("invalid key: %v", err)
	}
	pub, err := keygen.PublicKey(ps, k, nil, nil)
	if err != nil {
		return errorf("%v", err)
	}
	return hex.EncodeToString(keygen.MarshalCurve(pub))
}

// DeriveSecret applies a private key to a peer's public curve and returns
// the hex encoded shared secret.
// Arguments:
// 0: parameter set name
// 1: hex private key
// 2: hex public curve of the peer
func DeriveSecret(this js.Value, args []js.Value) interface{} {
	if len(args) != 3 {
		return errorf("expected 3 arguments (params, key, peer)")
	}
	ps, err := params.ByName(args[0].String())
	if err != nil {
		return errorf("%v", err)
	}
	k, err := loadKey(ps, args[1].String())
	if err != nil {
		return errorf("invalid key: %v", err)
	}
	raw, err := hex.DecodeString(args[2].String())
	if err != nil {
		return errorf("invalid hex: %v", err)
	}
	peer, err := keygen.DecodePublicKey(ps, raw, nil)
	if err != nil {
		return errorf("%v", err)
	}
	shared, err := keygen.ApplyKey(ps, peer, k, nil, nil)
	if err != nil {
		return errorf("%v", err)
	}
	secret, err := keygen.SharedSecret(shared, nil, []byte("CSIDH-"+ps.Name))
	if err != nil {
		return errorf("%v", err)
	}
	return hex.EncodeToString(secret)
}

// Walk takes k steps of degree l from the curve with coefficient A and
// returns the decimal A of the canonical result.
// Arguments:
// 0: parameter set name
// 1: decimal A
// 2: l
// 3: k
func Walk(this js.Value, args []js.Value) interface{} {
	if len(args) != 4 {
		return errorf("expected 4 arguments (params, A, l, k)")
	}
	ps, err := params.ByName(args[0].String())
	if err != nil {
		return errorf("%v", err)
	}
	a, ok := new(big.Int).SetString(args[1].String(), 10)
	if !ok {
		return errorf("invalid A")
	}
	c, err := curves.NewMontgomery(ps.F, a, big.NewInt(1))
	if err != nil {
		return errorf("%v", err)
	}
	out, err := isogeny.WalkCurve(ps, c, args[2].Int(), int64(args[3].Int()))
	if err != nil {
		return errorf("%v", err)
	}
	return out.A.String()
}

// NewExchange starts an exchange session.
// Arguments:
// 0: JSON string of parameters
// Returns:
// JSON object { sessionID, messages }
func NewExchange(this js.Value, args []js.Value) interface{} {
	if len(args) != 1 {
		return errorf("expected 1 argument (jsonParams)")
	}

	type ParamsInput struct {
		PartyID    string   `json:"partyID"`
		AllParties []string `json:"allParties"`
		ParamSet   string   `json:"paramSet"`
		Key        string   `json:"key"`
		SessionID  string   `json:"sessionID"`
		OneRound   bool     `json:"oneRound"`
	}

	var input ParamsInput
	if err := json.Unmarshal([]byte(args[0].String()), &input); err != nil {
		return errorf("invalid json: %v", err)
	}
	ps, err := params.ByName(input.ParamSet)
	if err != nil {
		return errorf("%v", err)
	}
	k, err := loadKey(ps, input.Key)
	if err != nil {
		return errorf("invalid key: %v", err)
	}

	parties := make([]csidh.PartyID, len(input.AllParties))
	var localParty csidh.PartyID
	for i, pid := range input.AllParties {
		p := &SimplePartyID{IDVal: pid, MonikerVal: pid}
		parties[i] = p
		if pid == input.PartyID {
			localParty = p
		}
	}
	if localParty == nil {
		return errorf("local party ID not found in allParties")
	}
	if input.SessionID == "" {
		return errorf("sessionID is required; share one from NewSessionID")
	}

	session := &csidh.Session{
		PartyID:   localParty,
		Parties:   parties,
		ParamSet:  ps.Name,
		SessionID: []byte(input.SessionID),
		OneRound:  input.OneRound,
	}
	sm, outMsgs, err := exchange.NewStateMachine(session, &exchange.Config{Params: ps, Key: k})
	if err != nil {
		return errorf("failed to create state machine: %v", err)
	}

	handle := fmt.Sprintf("%s-%s", input.PartyID, input.SessionID)
	sessions[handle] = sm

	resp := map[string]interface{}{
		"sessionID": handle,
		"messages":  encodeMessages(outMsgs),
	}
	respBytes, _ := json.Marshal(resp)
	return string(respBytes)
}

// Update processes an incoming message.
// Arguments:
// 0: Session ID (string)
// 1: JSON string of message
// Returns:
// JSON string of output messages (array)
func Update(this js.Value, args []js.Value) interface{} {
	if len(args) != 2 {
		return errorf("expected 2 arguments (sessionID, jsonMsg)")
	}
	handle := args[0].String()
	sm, ok := sessions[handle]
	if !ok {
		return errorf("session not found")
	}

	type MessageDTO struct {
		From        string   `json:"from"`
		To          []string `json:"to"`
		IsBroadcast bool     `json:"isBroadcast"`
		Data        string   `json:"data"` // Hex encoded
		Type        string   `json:"type"`
		Round       uint32   `json:"round"`
	}

	var dto MessageDTO
	if err := json.Unmarshal([]byte(args[1].String()), &dto); err != nil {
		return errorf("invalid message dto: %v", err)
	}
	data, err := hex.DecodeString(dto.Data)
	if err != nil {
		return errorf("invalid hex data: %v", err)
	}

	var to []csidh.PartyID
	for _, t := range dto.To {
		to = append(to, &SimplePartyID{IDVal: t, MonikerVal: t})
	}
	msg := &exchange.ExchangeMessage{
		FromParty:  &SimplePartyID{IDVal: dto.From, MonikerVal: dto.From},
		ToParties:  to,
		IsBcast:    dto.IsBroadcast,
		Data:       data,
		TypeString: dto.Type,
		RoundNum:   dto.Round,
	}

	next, outMsgs, err := sm.Update(msg)
	if err != nil {
		return errorf("update failed: %v", err)
	}
	sessions[handle] = next

	return marshalMessages(outMsgs)
}

// Result returns the shared secrets by peer once the exchange finished.
// Arguments:
// 0: Session ID (string)
// Returns:
// JSON object { peerID: hexSecret } or null
func Result(this js.Value, args []js.Value) interface{} {
	if len(args) != 1 {
		return errorf("expected 1 argument (sessionID)")
	}
	sm, ok := sessions[args[0].String()]
	if !ok {
		return errorf("session not found")
	}
	res, ok := sm.Result().(*exchange.Result)
	if !ok || res == nil {
		return nil // Not finished
	}

	out := make(map[string]string, len(res.Shared))
	for peer := range res.Shared {
		out[peer] = hex.EncodeToString(res.SharedJ(peer))
	}
	b, err := json.Marshal(out)
	if err != nil {
		return errorf("marshal result failed: %v", err)
	}
	return string(b)
}

// Helpers

type SimplePartyID struct {
	IDVal      string
	MonikerVal string
}

func (p *SimplePartyID) ID() string      { return p.IDVal }
func (p *SimplePartyID) Moniker() string { return p.MonikerVal }
func (p *SimplePartyID) Key() []byte     { return []byte(p.IDVal) }

func encodeMessages(msgs []csidh.Message) []interface{} {
	var out []interface{} // JS array
	for _, m := range msgs {
		var to []string
		for _, p := range m.To() {
			to = append(to, p.ID())
		}
		out = append(out, map[string]interface{}{
			"from":        m.From().ID(),
			"to":          to,
			"isBroadcast": m.IsBroadcast(),
			"data":        hex.EncodeToString(m.Payload()),
			"type":        m.Type(),
			"round":       m.RoundNumber(),
		})
	}
	return out
}

func marshalMessages(msgs []csidh.Message) string {
	b, _ := json.Marshal(encodeMessages(msgs))
	return string(b)
}
