package csidh

import "fmt"

// Blame represents an error caused by a specific party.
// It allows the protocol to identify and exclude faulty parties.
type Blame struct {
	PartyID PartyID
	Reason  string
	Err     error
}

func (b *Blame) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("blame party %s: %s: %v", b.PartyID.ID(), b.Reason, b.Err)
	}
	return fmt.Sprintf("blame party %s: %s", b.PartyID.ID(), b.Reason)
}

func (b *Blame) Unwrap() error {
	return b.Err
}

// NewBlame creates a new Blame error.
func NewBlame(party PartyID, reason string, err error) *Blame {
	return &Blame{
		PartyID: party,
		Reason:  reason,
		Err:     err,
	}
}

// WalkError reports the prime whose walk failed while applying a key.
// No partial result accompanies it.
type WalkError struct {
	Index int   // position of the prime in the parameter set
	Prime int   // the prime l itself
	Steps int64 // signed step count requested for that prime
	Err   error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("walk %d (l=%d, steps=%d): %v", e.Index, e.Prime, e.Steps, e.Err)
}

func (e *WalkError) Unwrap() error {
	return e.Err
}

// NewWalkError creates a new WalkError.
func NewWalkError(index, prime int, steps int64, err error) *WalkError {
	return &WalkError{
		Index: index,
		Prime: prime,
		Steps: steps,
		Err:   err,
	}
}
