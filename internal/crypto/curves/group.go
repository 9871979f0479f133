package curves

import (
	"errors"
	"io"
	"math/big"
)

var (
	ErrInvalidScalar  = errors.New("curves: invalid scalar")
	ErrInvalidElement = errors.New("curves: invalid group element")
)

// Element represents an element of a classical prime order group.
// It abstracts away the underlying coordinate system (Jacobian, Edwards).
type Element interface {
	// Bytes returns the compressed serialization of the element.
	Bytes() []byte

	// ScalarMult multiplies this element by a scalar.
	ScalarMult(s Scalar) Element

	// IsIdentity reports whether the element is the neutral element.
	IsIdentity() bool
}

// Scalar represents a scalar value in the group's scalar field.
type Scalar interface {
	// Bytes returns the fixed-width serialization of the scalar.
	Bytes() []byte

	// BigInt returns the scalar as a big integer.
	BigInt() *big.Int
}

// Group is a classical Diffie-Hellman group. Hybrid key exchange combines
// one of these with the isogeny walk.
type Group interface {
	// Name returns the name of the group.
	Name() string

	// ScalarSize is the length of a serialized scalar.
	ScalarSize() int

	// ElementSize is the length of a serialized element.
	ElementSize() int

	// NewScalar generates a random non-zero scalar.
	NewScalar(rng io.Reader) (Scalar, error)

	// NewScalarFromBytes decodes a scalar.
	NewScalarFromBytes(b []byte) (Scalar, error)

	// NewElementFromBytes deserializes an element.
	NewElementFromBytes(b []byte) (Element, error)

	// BasePoint returns the generator G.
	BasePoint() Element

	// Order returns the order of the base point (group order).
	Order() *big.Int
}

// SharedElement computes priv * pub and rejects the identity.
func SharedElement(priv Scalar, pub Element) ([]byte, error) {
	s := pub.ScalarMult(priv)
	if s.IsIdentity() {
		return nil, ErrInvalidElement
	}
	return s.Bytes(), nil
}
