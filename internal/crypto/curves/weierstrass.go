package curves

import (
	"fmt"
	"math/big"

	"github.com/smallyu/go-csidh/internal/crypto/field"
	"github.com/smallyu/go-csidh/pkg/csidh"
)

// Weierstrass is the general curve
// y^2 + a1*x*y + a3*y = x^3 + a2*x^2 + a4*x + a6.
//
// It supports validity checks, the j-invariant and a plain affine group law.
// The group law is only used to cross-check the x-only arithmetic.
type Weierstrass struct {
	F                  *field.Field
	A1, A2, A3, A4, A6 *big.Int
}

// AffinePoint is a point on a Weierstrass curve; Inf marks the identity.
type AffinePoint struct {
	X, Y *big.Int
	Inf  bool
}

// NewWeierstrass returns the curve with the given coefficients.
func NewWeierstrass(f *field.Field, a1, a2, a3, a4, a6 *big.Int) *Weierstrass {
	return &Weierstrass{
		F:  f,
		A1: f.Reduce(a1),
		A2: f.Reduce(a2),
		A3: f.Reduce(a3),
		A4: f.Reduce(a4),
		A6: f.Reduce(a6),
	}
}

func (w *Weierstrass) String() string {
	return fmt.Sprintf("Weierstrass[%s, %s, %s, %s, %s]", w.A1, w.A2, w.A3, w.A4, w.A6)
}

// invariants returns b2, b4, b6, b8.
func (w *Weierstrass) invariants() (b2, b4, b6, b8 *big.Int) {
	f := w.F
	b2 = f.Add(f.Sqr(w.A1), f.MulInt(w.A2, 4))
	b4 = f.Add(f.Mul(w.A1, w.A3), f.MulInt(w.A4, 2))
	b6 = f.Add(f.Sqr(w.A3), f.MulInt(w.A6, 4))
	// b8 = a1^2 a6 + 4 a2 a6 - a1 a3 a4 + a2 a3^2 - a4^2
	b8 = f.Mul(f.Sqr(w.A1), w.A6)
	b8 = f.Add(b8, f.MulInt(f.Mul(w.A2, w.A6), 4))
	b8 = f.Sub(b8, f.Mul(f.Mul(w.A1, w.A3), w.A4))
	b8 = f.Add(b8, f.Mul(w.A2, f.Sqr(w.A3)))
	b8 = f.Sub(b8, f.Sqr(w.A4))
	return
}

// Discriminant returns -b2^2 b8 - 8 b4^3 - 27 b6^2 + 9 b2 b4 b6.
func (w *Weierstrass) Discriminant() *big.Int {
	f := w.F
	b2, b4, b6, b8 := w.invariants()
	d := f.Neg(f.Mul(f.Sqr(b2), b8))
	d = f.Sub(d, f.MulInt(f.ExpInt(b4, 3), 8))
	d = f.Sub(d, f.MulInt(f.Sqr(b6), 27))
	d = f.Add(d, f.MulInt(f.Mul(f.Mul(b2, b4), b6), 9))
	return d
}

// IsNonsingular reports whether the discriminant is nonzero.
func (w *Weierstrass) IsNonsingular() bool {
	return !w.F.IsZero(w.Discriminant())
}

// JInvariant returns c4^3 / discriminant. It fails for singular curves.
func (w *Weierstrass) JInvariant() (*big.Int, error) {
	f := w.F
	disc := w.Discriminant()
	if f.IsZero(disc) {
		return nil, csidh.ErrDegenerateCurve
	}
	b2, b4, _, _ := w.invariants()
	c4 := f.Sub(f.Sqr(b2), f.MulInt(b4, 24))
	return f.Div(f.ExpInt(c4, 3), disc), nil
}

// IsOnCurve reports whether p satisfies the curve equation.
func (w *Weierstrass) IsOnCurve(p AffinePoint) bool {
	if p.Inf {
		return true
	}
	f := w.F
	lhs := f.Add(f.Sqr(p.Y), f.Mul(f.Add(f.Mul(w.A1, p.X), w.A3), p.Y))
	rhs := f.Add(f.Mul(f.Sqr(p.X), f.Add(p.X, w.A2)), f.Add(f.Mul(w.A4, p.X), w.A6))
	return f.Equal(lhs, rhs)
}

// Neg returns -p.
func (w *Weierstrass) Neg(p AffinePoint) AffinePoint {
	if p.Inf {
		return p
	}
	f := w.F
	return AffinePoint{X: p.X, Y: f.Sub(f.Neg(p.Y), f.Add(f.Mul(w.A1, p.X), w.A3))}
}

// Add returns p + q.
func (w *Weierstrass) Add(p, q AffinePoint) AffinePoint {
	if p.Inf {
		return q
	}
	if q.Inf {
		return p
	}
	f := w.F
	var lambda *big.Int
	if f.Equal(p.X, q.X) {
		den := f.Add(f.Add(f.MulInt(p.Y, 2), f.Mul(w.A1, p.X)), w.A3)
		if f.IsZero(den) || !f.Equal(p.Y, q.Y) {
			return AffinePoint{Inf: true}
		}
		num := f.Add(f.MulInt(f.Sqr(p.X), 3), f.MulInt(f.Mul(w.A2, p.X), 2))
		num = f.Sub(f.Add(num, w.A4), f.Mul(w.A1, p.Y))
		lambda = f.Div(num, den)
	} else {
		lambda = f.Div(f.Sub(q.Y, p.Y), f.Sub(q.X, p.X))
	}
	nu := f.Sub(p.Y, f.Mul(lambda, p.X))
	x3 := f.Sub(f.Sub(f.Add(f.Sqr(lambda), f.Mul(w.A1, lambda)), w.A2), f.Add(p.X, q.X))
	y3 := f.Sub(f.Neg(f.Mul(f.Add(lambda, w.A1), x3)), f.Add(nu, w.A3))
	return AffinePoint{X: x3, Y: y3}
}

// ScalarMul returns [k]p by double-and-add, k >= 0.
func (w *Weierstrass) ScalarMul(k *big.Int, p AffinePoint) AffinePoint {
	r := AffinePoint{Inf: true}
	for i := k.BitLen() - 1; i >= 0; i-- {
		r = w.Add(r, r)
		if k.Bit(i) == 1 {
			r = w.Add(r, p)
		}
	}
	return r
}

// MontgomeryToWeierstrass returns the model (0, A/B, 0, 1/B^2, 0) of c and
// maps (x, y) to (x/B, y/B).
func MontgomeryToWeierstrass(c *Montgomery, x, y *big.Int) (*Weierstrass, AffinePoint) {
	f := c.F
	ib := f.Inv(c.B)
	zero := new(big.Int)
	w := NewWeierstrass(f, zero, f.Mul(c.A, ib), zero, f.Sqr(ib), zero)
	return w, AffinePoint{X: f.Mul(x, ib), Y: f.Mul(y, ib)}
}
