// Package commitment implements hash commitments with BLAKE2b.
package commitment

import (
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/katzenpost/hpqc/rand"
	"golang.org/x/crypto/blake2b"
)

// Size is the length of both the commitment and the decommitment.
const Size = 32

// Commitment represents the output of a commitment scheme.
// C = BLAKE2b-256 keyed with D over (context, data).
type Commitment struct {
	C []byte // The commitment value (hash)
	D []byte // The decommitment value (salt)
}

func digest(salt, context, data []byte) []byte {
	h, err := blake2b.New256(salt)
	if err != nil {
		// only reachable with a key longer than 64 bytes
		panic(err)
	}
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(context)))
	h.Write(n[:])
	h.Write(context)
	h.Write(data)
	return h.Sum(nil)
}

// New commits to data under context using a fresh random salt read from
// rng, or from the system RNG when rng is nil.
func New(rng io.Reader, context, data []byte) (*Commitment, error) {
	if rng == nil {
		rng = rand.Reader
	}
	salt := make([]byte, Size)
	if _, err := io.ReadFull(rng, salt); err != nil {
		return nil, fmt.Errorf("failed to read salt: %w", err)
	}
	return &Commitment{
		C: digest(salt, context, data),
		D: salt,
	}, nil
}

// Verify checks if the commitment c opens to data under context with
// decommitment d.
func Verify(c, d, context, data []byte) bool {
	if len(c) != Size || len(d) != Size {
		return false
	}
	return subtle.ConstantTimeCompare(digest(d, context, data), c) == 1
}

// join length-prefixes every part so that different splits of the same
// bytes commit to different values.
func join(parts [][]byte) []byte {
	var data []byte
	var n [4]byte
	for _, p := range parts {
		binary.BigEndian.PutUint32(n[:], uint32(len(p)))
		data = append(data, n[:]...)
		data = append(data, p...)
	}
	return data
}

// NewComplex commits to a list of byte strings.
func NewComplex(rng io.Reader, context []byte, parts ...[]byte) (*Commitment, error) {
	return New(rng, context, join(parts))
}

// VerifyComplex verifies a commitment against a list of parts.
func VerifyComplex(c, d, context []byte, parts ...[]byte) bool {
	return Verify(c, d, context, join(parts))
}
