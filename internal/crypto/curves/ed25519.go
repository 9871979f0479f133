package curves

import (
	"io"
	"math/big"

	"filippo.io/edwards25519"
)

// Ed25519Curve is the prime order subgroup of edwards25519.
type Ed25519Curve struct{}

// NewEd25519 returns the edwards25519 group wrapper.
func NewEd25519() Group {
	return &Ed25519Curve{}
}

func (c *Ed25519Curve) Name() string {
	return "edwards25519"
}

func (c *Ed25519Curve) ScalarSize() int  { return 32 }
func (c *Ed25519Curve) ElementSize() int { return 32 }

func (c *Ed25519Curve) Order() *big.Int {
	// l = 2^252 + 27742317777372353535851937790883648493
	s, _ := new(big.Int).SetString("72370055773322622139731865630429942408571163593799076060019509382854542509893", 10)
	return s
}

func (c *Ed25519Curve) NewScalar(rng io.Reader) (Scalar, error) {
	var b [64]byte
	if _, err := io.ReadFull(rng, b[:]); err != nil {
		return nil, err
	}
	s, err := edwards25519.NewScalar().SetUniformBytes(b[:])
	if err != nil {
		return nil, err
	}
	return &Ed25519Scalar{s: s}, nil
}

func (c *Ed25519Curve) NewScalarFromBytes(b []byte) (Scalar, error) {
	s, err := edwards25519.NewScalar().SetCanonicalBytes(b)
	if err != nil {
		return nil, ErrInvalidScalar
	}
	if s.Equal(edwards25519.NewScalar()) == 1 {
		return nil, ErrInvalidScalar
	}
	return &Ed25519Scalar{s: s}, nil
}

// NewScalarFromBigInt reduces n modulo the group order.
func (c *Ed25519Curve) NewScalarFromBigInt(n *big.Int) Scalar {
	// edwards25519 uses little-endian, big.Int.Bytes() is big-endian.
	n = new(big.Int).Mod(n, c.Order())
	bytes := n.Bytes()

	var buf [32]byte
	for i := 0; i < len(bytes); i++ {
		buf[len(bytes)-1-i] = bytes[i]
	}

	s, _ := edwards25519.NewScalar().SetCanonicalBytes(buf[:])
	return &Ed25519Scalar{s: s}
}

func (c *Ed25519Curve) BasePoint() Element {
	return &Ed25519Point{p: edwards25519.NewGeneratorPoint()}
}

// NewElementFromBytes decodes a point and rejects points of small order.
func (c *Ed25519Curve) NewElementFromBytes(b []byte) (Element, error) {
	p, err := edwards25519.NewIdentityPoint().SetBytes(b)
	if err != nil {
		return nil, ErrInvalidElement
	}
	if new(edwards25519.Point).MultByCofactor(p).Equal(edwards25519.NewIdentityPoint()) == 1 {
		return nil, ErrInvalidElement
	}
	return &Ed25519Point{p: p}, nil
}

// Ed25519Scalar implements Scalar
type Ed25519Scalar struct {
	s *edwards25519.Scalar
}

func (s *Ed25519Scalar) Bytes() []byte {
	return s.s.Bytes()
}

func (s *Ed25519Scalar) BigInt() *big.Int {
	b := s.s.Bytes()
	// Convert little-endian bytes to big.Int (big-endian)
	var buf []byte
	for i := len(b) - 1; i >= 0; i-- {
		buf = append(buf, b[i])
	}
	return new(big.Int).SetBytes(buf)
}

// Ed25519Point implements Element
type Ed25519Point struct {
	p *edwards25519.Point
}

func (p *Ed25519Point) Bytes() []byte {
	return p.p.Bytes()
}

func (p *Ed25519Point) IsIdentity() bool {
	return p.p.Equal(edwards25519.NewIdentityPoint()) == 1
}

func (p *Ed25519Point) ScalarMult(scalar Scalar) Element {
	s, ok := scalar.(*Ed25519Scalar)
	if !ok {
		panic("type mismatch")
	}
	res := edwards25519.NewIdentityPoint().ScalarMult(s.s, p.p)
	return &Ed25519Point{p: res}
}
