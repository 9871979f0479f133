package keygen

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/smallyu/go-csidh/internal/crypto/curves"
	"github.com/smallyu/go-csidh/internal/params"
	"github.com/smallyu/go-csidh/pkg/csidh"
)

// publicKeyChecks is the number of random points whose order is checked by
// ValidatePublicKey.
const publicKeyChecks = 2

// KeySize returns the encoded size of a private key: two bytes per prime.
func KeySize(ps *params.Params) int {
	return 2 * len(ps.Primes)
}

// MarshalKey encodes k as big-endian two's-complement int16 values.
func MarshalKey(k *Key) ([]byte, error) {
	out := make([]byte, 2*len(k.Steps))
	for i, s := range k.Steps {
		if s < math.MinInt16 || s > math.MaxInt16 {
			return nil, fmt.Errorf("%w: step %d does not fit in 16 bits", csidh.ErrInvalidKey, s)
		}
		binary.BigEndian.PutUint16(out[2*i:], uint16(int16(s)))
	}
	return out, nil
}

// UnmarshalKey decodes and validates a private key.
func UnmarshalKey(ps *params.Params, b []byte) (*Key, error) {
	if len(b) != KeySize(ps) {
		return nil, fmt.Errorf("%w: %d bytes, want %d", csidh.ErrInvalidKey, len(b), KeySize(ps))
	}
	k := &Key{Steps: make([]int64, len(ps.Primes))}
	for i := range k.Steps {
		k.Steps[i] = int64(int16(binary.BigEndian.Uint16(b[2*i:])))
	}
	if err := k.Validate(ps); err != nil {
		return nil, err
	}
	return k, nil
}

// CurveSize returns the encoded size of a curve: A then B, each as a
// fixed-width field element.
func CurveSize(ps *params.Params) int {
	return 2 * ps.F.ByteLen()
}

// MarshalCurve encodes the canonical representative of c.
func MarshalCurve(c *curves.Montgomery) []byte {
	can := c.Canonical()
	out := make([]byte, 0, 2*c.F.ByteLen())
	out = append(out, c.F.Bytes(can.A)...)
	return append(out, c.F.Bytes(can.B)...)
}

// UnmarshalCurve decodes a curve and checks that it is nonsingular and in
// canonical form. It does not check that the curve belongs to the isogeny
// class of ps; see ValidatePublicKey.
func UnmarshalCurve(ps *params.Params, b []byte) (*curves.Montgomery, error) {
	n := ps.F.ByteLen()
	if len(b) != 2*n {
		return nil, fmt.Errorf("%w: %d bytes, want %d", csidh.ErrInvalidPublicKey, len(b), 2*n)
	}
	a, err := ps.F.SetBytes(b[:n])
	if err != nil {
		return nil, fmt.Errorf("%w: A: %v", csidh.ErrInvalidPublicKey, err)
	}
	bb, err := ps.F.SetBytes(b[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: B: %v", csidh.ErrInvalidPublicKey, err)
	}
	c, err := curves.NewMontgomery(ps.F, a, bb)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", csidh.ErrInvalidPublicKey, err)
	}
	can := c.Canonical()
	if can.A.Cmp(c.A) != 0 || can.B.Cmp(c.B) != 0 {
		return nil, fmt.Errorf("%w: not in canonical form", csidh.ErrInvalidPublicKey)
	}
	return c, nil
}

// ValidatePublicKey checks that random points of c are killed by the group
// order p+1-t of the isogeny class. A curve outside the class fails with
// overwhelming probability.
func ValidatePublicKey(ps *params.Params, c *curves.Montgomery, rng io.Reader) error {
	card := ps.Cardinality(1)
	for checked, tries := 0, 0; checked < publicKeyChecks; tries++ {
		if tries >= ps.MaxSamplingRetries {
			return fmt.Errorf("%w: no point found to check", csidh.ErrInvalidPublicKey)
		}
		x, err := c.F.Random(rng)
		if err != nil {
			return fmt.Errorf("failed to sample point: %w", err)
		}
		if c.PointClass(x) != 1 {
			continue
		}
		if !c.ScalarMul(card, curves.NewPoint(x)).IsIdentity() {
			return fmt.Errorf("%w: curve is not in the isogeny class", csidh.ErrInvalidPublicKey)
		}
		checked++
	}
	return nil
}

// DecodePublicKey is UnmarshalCurve followed by ValidatePublicKey.
func DecodePublicKey(ps *params.Params, b []byte, rng io.Reader) (*curves.Montgomery, error) {
	c, err := UnmarshalCurve(ps, b)
	if err != nil {
		return nil, err
	}
	if err := ValidatePublicKey(ps, c, rng); err != nil {
		return nil, err
	}
	return c, nil
}
