// Package field implements arithmetic in a prime field F_p.
//
// Elements are *big.Int values in [0, p). Every method returns a freshly
// allocated result and never modifies its arguments.
package field

import (
	cryptorand "crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/katzenpost/hpqc/rand"
)

var (
	ErrNotPrime      = errors.New("field: modulus is not an odd prime")
	ErrElementLength = errors.New("field: invalid element length")
	ErrElementRange  = errors.New("field: element is not reduced")
)

var (
	one = big.NewInt(1)
	two = big.NewInt(2)
)

// Field is the prime field F_p.
type Field struct {
	p          *big.Int
	pMinus2    *big.Int
	halfOrder  *big.Int // (p-1)/2
	byteLen    int
	nonResidue *big.Int
}

// New returns the field of integers modulo p.
func New(p *big.Int) (*Field, error) {
	if p == nil || p.Cmp(big.NewInt(3)) <= 0 || p.Bit(0) == 0 || !p.ProbablyPrime(20) {
		return nil, ErrNotPrime
	}
	f := &Field{
		p:         new(big.Int).Set(p),
		pMinus2:   new(big.Int).Sub(p, two),
		halfOrder: new(big.Int).Rsh(p, 1),
		byteLen:   (p.BitLen() + 7) / 8,
	}
	for n := int64(2); ; n++ {
		c := big.NewInt(n)
		if !f.IsSquare(c) {
			f.nonResidue = c
			break
		}
	}
	return f, nil
}

// MustNew is like New but panics on error. It is meant for built-in constants.
func MustNew(p *big.Int) *Field {
	f, err := New(p)
	if err != nil {
		panic(err)
	}
	return f
}

// Modulus returns a copy of p.
func (f *Field) Modulus() *big.Int {
	return new(big.Int).Set(f.p)
}

// ByteLen is the fixed width of an encoded element.
func (f *Field) ByteLen() int {
	return f.byteLen
}

// String implements fmt.Stringer.
func (f *Field) String() string {
	return fmt.Sprintf("F_%s", f.p.String())
}

// Elem reduces a small integer into the field.
func (f *Field) Elem(x int64) *big.Int {
	return f.Reduce(big.NewInt(x))
}

// Reduce maps an arbitrary integer into [0, p).
func (f *Field) Reduce(x *big.Int) *big.Int {
	return new(big.Int).Mod(x, f.p)
}

func (f *Field) Zero() *big.Int { return new(big.Int) }
func (f *Field) One() *big.Int  { return big.NewInt(1) }

func (f *Field) Add(a, b *big.Int) *big.Int {
	r := new(big.Int).Add(a, b)
	return r.Mod(r, f.p)
}

func (f *Field) Sub(a, b *big.Int) *big.Int {
	r := new(big.Int).Sub(a, b)
	return r.Mod(r, f.p)
}

func (f *Field) Mul(a, b *big.Int) *big.Int {
	r := new(big.Int).Mul(a, b)
	return r.Mod(r, f.p)
}

func (f *Field) Sqr(a *big.Int) *big.Int {
	return f.Mul(a, a)
}

func (f *Field) Neg(a *big.Int) *big.Int {
	r := new(big.Int).Neg(a)
	return r.Mod(r, f.p)
}

// MulInt multiplies by a small constant.
func (f *Field) MulInt(a *big.Int, c int64) *big.Int {
	return f.Mul(a, big.NewInt(c))
}

// Inv returns 1/a, or 0 when a is 0.
func (f *Field) Inv(a *big.Int) *big.Int {
	return new(big.Int).Exp(a, f.pMinus2, f.p)
}

// Div returns a/b, or 0 when b is 0.
func (f *Field) Div(a, b *big.Int) *big.Int {
	return f.Mul(a, f.Inv(b))
}

// Exp returns a^e for e >= 0.
func (f *Field) Exp(a, e *big.Int) *big.Int {
	return new(big.Int).Exp(f.Reduce(a), e, f.p)
}

// ExpInt returns a^e for a small non-negative exponent.
func (f *Field) ExpInt(a *big.Int, e int64) *big.Int {
	return f.Exp(a, big.NewInt(e))
}

func (f *Field) IsZero(a *big.Int) bool {
	return new(big.Int).Mod(a, f.p).Sign() == 0
}

func (f *Field) IsOne(a *big.Int) bool {
	return new(big.Int).Mod(a, f.p).Cmp(one) == 0
}

func (f *Field) Equal(a, b *big.Int) bool {
	return f.Sub(a, b).Sign() == 0
}

// Legendre returns the quadratic character of a: 0, 1 or -1.
func (f *Field) Legendre(a *big.Int) int {
	r := f.Exp(a, f.halfOrder)
	switch {
	case r.Sign() == 0:
		return 0
	case r.Cmp(one) == 0:
		return 1
	default:
		return -1
	}
}

// IsSquare reports whether a is a square in F_p. Zero is a square.
func (f *Field) IsSquare(a *big.Int) bool {
	return f.Legendre(a) >= 0
}

// Sqrt returns a square root of a, or false when a is not a square.
func (f *Field) Sqrt(a *big.Int) (*big.Int, bool) {
	r := new(big.Int).ModSqrt(f.Reduce(a), f.p)
	if r == nil {
		return nil, false
	}
	return r, true
}

// NonResidue returns the smallest integer n >= 2 that is not a square mod p.
func (f *Field) NonResidue() *big.Int {
	return new(big.Int).Set(f.nonResidue)
}

// RadicalRoot returns alpha = rho^((p+1)/(2l)), negated when needed so that
// alpha^l = rho. It reports false if no such root is found, which happens
// when 2l does not divide p+1.
func (f *Field) RadicalRoot(rho *big.Int, l int) (*big.Int, bool) {
	twoL := big.NewInt(int64(2 * l))
	e := new(big.Int).Add(f.p, one)
	if new(big.Int).Mod(e, twoL).Sign() != 0 {
		return nil, false
	}
	e.Div(e, twoL)
	alpha := f.Exp(rho, e)
	target := f.Reduce(rho)
	if f.Equal(f.ExpInt(alpha, int64(l)), target) {
		return alpha, true
	}
	alpha = f.Neg(alpha)
	if f.Equal(f.ExpInt(alpha, int64(l)), target) {
		return alpha, true
	}
	return nil, false
}

// Random returns a uniform element of F_p.
func (f *Field) Random(rng io.Reader) (*big.Int, error) {
	if rng == nil {
		rng = rand.Reader
	}
	return cryptorand.Int(rng, f.p)
}

// Bytes encodes a as a fixed-width big-endian string.
func (f *Field) Bytes(a *big.Int) []byte {
	return f.Reduce(a).FillBytes(make([]byte, f.byteLen))
}

// SetBytes decodes a fixed-width big-endian element.
func (f *Field) SetBytes(b []byte) (*big.Int, error) {
	if len(b) != f.byteLen {
		return nil, ErrElementLength
	}
	a := new(big.Int).SetBytes(b)
	if a.Cmp(f.p) >= 0 {
		return nil, ErrElementRange
	}
	return a, nil
}
