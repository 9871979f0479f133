package exchange

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/smallyu/go-csidh/internal/crypto/commitment"
	"github.com/smallyu/go-csidh/internal/crypto/curves"
	"github.com/smallyu/go-csidh/internal/protocol/keygen"
	"github.com/smallyu/go-csidh/pkg/csidh"
)

func (s *state) computePublic() error {
	pub, err := keygen.PublicKey(s.cfg.Params, s.cfg.Key, s.cfg.Rand, s.log)
	if err != nil {
		return fmt.Errorf("failed to compute public curve: %w", err)
	}
	s.public = pub
	s.publicBytes = keygen.MarshalCurve(pub)
	return nil
}

func (s *state) broadcast(typ string, round uint32, v interface{}) ([]csidh.Message, error) {
	data, err := cbor.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", typ, err)
	}
	return []csidh.Message{&ExchangeMessage{
		FromParty:  s.session.PartyID,
		IsBcast:    true,
		Data:       data,
		TypeString: typ,
		RoundNum:   round,
	}}, nil
}

// round1 commits to our public curve.
func (s *state) round1() (csidh.StateMachine, []csidh.Message, error) {
	if err := s.computePublic(); err != nil {
		return nil, nil, err
	}
	comm, err := commitment.New(s.cfg.Rand, s.session.SessionID, s.publicBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create commitment: %w", err)
	}
	s.decommit = comm.D

	out, err := s.broadcast(TypeCommit, 1, &commitPayload{Commitment: comm.C})
	if err != nil {
		return nil, nil, err
	}
	return s, out, nil
}

// round2 stores the peer commitments and reveals our curve.
func (s *state) round2() (csidh.StateMachine, []csidh.Message, error) {
	for id, msg := range s.receivedMsgs {
		var p commitPayload
		if err := cbor.Unmarshal(msg.Payload(), &p); err != nil {
			return nil, nil, csidh.NewBlame(msg.From(), "malformed commitment", err)
		}
		if len(p.Commitment) != commitment.Size {
			return nil, nil, csidh.NewBlame(msg.From(), "malformed commitment", csidh.ErrInvalidMsg)
		}
		s.peerCommitments[id] = p.Commitment
	}

	out, err := s.broadcast(TypeReveal, 2, &revealPayload{Salt: s.decommit, Curve: s.publicBytes})
	if err != nil {
		return nil, nil, err
	}

	newState := &state{
		session:         s.session,
		cfg:             s.cfg,
		log:             s.log,
		round:           2,
		public:          s.public,
		publicBytes:     s.publicBytes,
		decommit:        s.decommit,
		peerCommitments: s.peerCommitments,
		receivedMsgs:    make(map[string]csidh.Message), // Clear for next round
	}
	return newState, out, nil
}

// finish opens the peer commitments and derives the shared curves.
func (s *state) finish() (csidh.StateMachine, []csidh.Message, error) {
	peers := make(map[string]*curves.Montgomery)
	for id, msg := range s.receivedMsgs {
		var p revealPayload
		if err := cbor.Unmarshal(msg.Payload(), &p); err != nil {
			return nil, nil, csidh.NewBlame(msg.From(), "malformed reveal", err)
		}
		c, ok := s.peerCommitments[id]
		if !ok {
			return nil, nil, csidh.NewBlame(msg.From(), "reveal without commitment", csidh.ErrInvalidMsg)
		}
		if !commitment.Verify(c, p.Salt, s.session.SessionID, p.Curve) {
			return nil, nil, csidh.NewBlame(msg.From(), "commitment mismatch", csidh.ErrInvalidMsg)
		}
		pub, err := keygen.DecodePublicKey(s.cfg.Params, p.Curve, s.cfg.Rand)
		if err != nil {
			return nil, nil, csidh.NewBlame(msg.From(), "invalid public curve", err)
		}
		peers[id] = pub
	}
	return s.derive(peers)
}

// round1Direct broadcasts our public curve without a commitment.
func (s *state) round1Direct() (csidh.StateMachine, []csidh.Message, error) {
	if err := s.computePublic(); err != nil {
		return nil, nil, err
	}
	out, err := s.broadcast(TypeDirect, 1, &directPayload{Curve: s.publicBytes})
	if err != nil {
		return nil, nil, err
	}
	return s, out, nil
}

func (s *state) finishDirect() (csidh.StateMachine, []csidh.Message, error) {
	peers := make(map[string]*curves.Montgomery)
	for id, msg := range s.receivedMsgs {
		var p directPayload
		if err := cbor.Unmarshal(msg.Payload(), &p); err != nil {
			return nil, nil, csidh.NewBlame(msg.From(), "malformed curve", err)
		}
		pub, err := keygen.DecodePublicKey(s.cfg.Params, p.Curve, s.cfg.Rand)
		if err != nil {
			return nil, nil, csidh.NewBlame(msg.From(), "invalid public curve", err)
		}
		peers[id] = pub
	}
	return s.derive(peers)
}

func (s *state) derive(peers map[string]*curves.Montgomery) (csidh.StateMachine, []csidh.Message, error) {
	res := &Result{
		LocalPartyID: s.session.PartyID,
		Public:       s.public,
		Peers:        peers,
		Shared:       make(map[string]*curves.Montgomery, len(peers)),
	}
	for id, pub := range peers {
		shared, err := keygen.ApplyKey(s.cfg.Params, pub, s.cfg.Key, s.cfg.Rand, s.log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to apply key to the curve of %s: %w", id, err)
		}
		res.Shared[id] = shared
		s.log.Debugf("shared curve with %s: %s", id, shared)
	}
	return &finishedState{result: res}, nil, nil
}
