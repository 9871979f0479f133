package curves

import (
	"io"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Secp256k1 is the secp256k1 group backed by the decred implementation.
type Secp256k1 struct{}

// NewSecp256k1 returns a new instance of the Secp256k1 group wrapper
func NewSecp256k1() Group {
	return &Secp256k1{}
}

func (c *Secp256k1) Name() string {
	return "secp256k1"
}

func (c *Secp256k1) ScalarSize() int  { return 32 }
func (c *Secp256k1) ElementSize() int { return 33 }

func (c *Secp256k1) Order() *big.Int {
	return new(big.Int).Set(secp256k1.S256().Params().N)
}

func (c *Secp256k1) NewScalar(rng io.Reader) (Scalar, error) {
	priv, err := secp256k1.GeneratePrivateKeyFromRand(rng)
	if err != nil {
		return nil, err
	}
	return &secpScalar{s: priv.Key}, nil
}

func (c *Secp256k1) NewScalarFromBytes(b []byte) (Scalar, error) {
	if len(b) != 32 {
		return nil, ErrInvalidScalar
	}
	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(b); overflow || s.IsZero() {
		return nil, ErrInvalidScalar
	}
	return &secpScalar{s: s}, nil
}

func (c *Secp256k1) NewElementFromBytes(b []byte) (Element, error) {
	pub, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, ErrInvalidElement
	}
	e := &secpElement{}
	pub.AsJacobian(&e.p)
	return e, nil
}

func (c *Secp256k1) BasePoint() Element {
	var one secp256k1.ModNScalar
	one.SetInt(1)
	e := &secpElement{}
	secp256k1.ScalarBaseMultNonConst(&one, &e.p)
	e.p.ToAffine()
	return e
}

type secpScalar struct {
	s secp256k1.ModNScalar
}

func (s *secpScalar) Bytes() []byte {
	b := s.s.Bytes()
	return b[:]
}

func (s *secpScalar) BigInt() *big.Int {
	return new(big.Int).SetBytes(s.Bytes())
}

type secpElement struct {
	p secp256k1.JacobianPoint
}

func (e *secpElement) IsIdentity() bool {
	return (e.p.X.IsZero() && e.p.Y.IsZero()) || e.p.Z.IsZero()
}

func (e *secpElement) Bytes() []byte {
	if e.IsIdentity() {
		return make([]byte, 33)
	}
	return secp256k1.NewPublicKey(&e.p.X, &e.p.Y).SerializeCompressed()
}

func (e *secpElement) ScalarMult(scalar Scalar) Element {
	s, ok := scalar.(*secpScalar)
	if !ok {
		panic("type mismatch")
	}
	res := &secpElement{}
	secp256k1.ScalarMultNonConst(&s.s, &e.p, &res.p)
	res.p.ToAffine()
	return res
}
