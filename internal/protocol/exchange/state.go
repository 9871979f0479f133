// Package exchange runs an interactive exchange of public curves between
// the parties of a session. Every party publishes the curve reached by its
// private key and applies its key to every peer's curve.
//
// By default the curves are first committed to and then revealed, so that
// no party can choose its curve after seeing the others. With
// Session.OneRound the curves are broadcast directly.
package exchange

import (
	"fmt"
	"io"

	"gopkg.in/op/go-logging.v1"

	"github.com/smallyu/go-csidh/internal/crypto/curves"
	"github.com/smallyu/go-csidh/internal/log"
	"github.com/smallyu/go-csidh/internal/params"
	"github.com/smallyu/go-csidh/internal/protocol/keygen"
	"github.com/smallyu/go-csidh/pkg/csidh"
)

// Config carries the local secrets and collaborators of a session.
type Config struct {
	Params *params.Params
	Key    *keygen.Key
	Rand   io.Reader
	Log    *logging.Logger
}

type state struct {
	session *csidh.Session
	cfg     *Config
	log     *logging.Logger

	// Current round number (1-based)
	round int

	public      *curves.Montgomery
	publicBytes []byte
	decommit    []byte

	// Round 1 commitments of the peers, by PartyID.ID()
	peerCommitments map[string][]byte

	// Messages received in the current round
	// Map: PartyID.ID() -> Message
	receivedMsgs map[string]csidh.Message
}

// NewInitializer binds cfg to a csidh.ProtocolInitializer.
func NewInitializer(cfg *Config) csidh.ProtocolInitializer {
	return func(session *csidh.Session) (csidh.StateMachine, []csidh.Message, error) {
		return NewStateMachine(session, cfg)
	}
}

// NewStateMachine initializes a new exchange state machine.
// It immediately executes Round 1 logic to generate the first messages.
func NewStateMachine(session *csidh.Session, cfg *Config) (csidh.StateMachine, []csidh.Message, error) {
	if len(session.Parties) < 2 {
		return nil, nil, fmt.Errorf("exchange needs at least 2 parties, got %d", len(session.Parties))
	}
	if !contains(session.Parties, session.PartyID) {
		return nil, nil, fmt.Errorf("local party %s is not in the session", session.PartyID.ID())
	}
	if session.ParamSet != "" && session.ParamSet != cfg.Params.Name {
		return nil, nil, fmt.Errorf("session uses %q, configured for %q", session.ParamSet, cfg.Params.Name)
	}
	logger := cfg.Log
	if logger == nil {
		logger = log.Discard("exchange")
	}
	s := &state{
		session:         session,
		cfg:             cfg,
		log:             logger,
		round:           1,
		peerCommitments: make(map[string][]byte),
		receivedMsgs:    make(map[string]csidh.Message),
	}

	if session.OneRound {
		return s.round1Direct()
	}
	return s.round1()
}

func contains(parties []csidh.PartyID, p csidh.PartyID) bool {
	for _, q := range parties {
		if q.ID() == p.ID() {
			return true
		}
	}
	return false
}

func (s *state) Update(msg csidh.Message) (csidh.StateMachine, []csidh.Message, error) {
	// Validate message round
	if msg.RoundNumber() != uint32(s.round) {
		return nil, nil, fmt.Errorf("%w: message for round %d, expected %d", csidh.ErrInvalidMsg, msg.RoundNumber(), s.round)
	}

	// Validate sender
	senderID := msg.From().ID()
	if senderID == s.session.PartyID.ID() {
		return s, nil, nil // Ignore own messages if looped back
	}
	if !contains(s.session.Parties, msg.From()) {
		return nil, nil, fmt.Errorf("%w: unknown party %s", csidh.ErrInvalidMsg, senderID)
	}
	if _, exists := s.receivedMsgs[senderID]; exists {
		return nil, nil, fmt.Errorf("%w: duplicate message from party %s", csidh.ErrInvalidMsg, senderID)
	}
	s.receivedMsgs[senderID] = msg

	// Total parties = n, we need n-1 messages
	if len(s.receivedMsgs) == len(s.session.Parties)-1 {
		return s.nextRound()
	}

	return s, nil, nil
}

func (s *state) nextRound() (csidh.StateMachine, []csidh.Message, error) {
	switch {
	case s.session.OneRound && s.round == 1:
		return s.finishDirect()
	case s.round == 1:
		return s.round2()
	case s.round == 2:
		return s.finish()
	default:
		return nil, nil, fmt.Errorf("unknown round %d", s.round)
	}
}

func (s *state) Result() interface{} {
	return nil
}

func (s *state) Details() string {
	return fmt.Sprintf("Exchange Round %d", s.round)
}

// finishedState is the terminal state holding the result.
type finishedState struct {
	result *Result
}

func (f *finishedState) Update(msg csidh.Message) (csidh.StateMachine, []csidh.Message, error) {
	return nil, nil, csidh.ErrProtocolDone
}

func (f *finishedState) Result() interface{} {
	return f.result
}

func (f *finishedState) Details() string {
	return "Exchange finished"
}
