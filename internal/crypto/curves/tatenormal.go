package curves

import (
	"fmt"
	"math/big"

	"github.com/smallyu/go-csidh/internal/crypto/field"
	"github.com/smallyu/go-csidh/internal/crypto/polynomial"
	"github.com/smallyu/go-csidh/pkg/csidh"
)

// TateNormal is the curve y^2 + (1-c)xy - by = x^3 - bx^2 with marked point
// (0, 0) of order L. For L = 3 the x^2 term is dropped:
// y^2 + (1-c)xy - by = x^3.
type TateNormal struct {
	F *field.Field
	L int
	B *big.Int
	C *big.Int
}

func (t *TateNormal) String() string {
	return fmt.Sprintf("TateNormal(l=%d, b=%s, c=%s)", t.L, t.B, t.C)
}

// Weierstrass returns the general model (1-c, -b, -b, 0, 0), or
// (1-c, 0, -b, 0, 0) when L = 3.
func (t *TateNormal) Weierstrass() *Weierstrass {
	f := t.F
	a2 := f.Neg(t.B)
	if t.L == 3 {
		a2 = new(big.Int)
	}
	zero := new(big.Int)
	return NewWeierstrass(f, f.Sub(big.NewInt(1), t.C), a2, f.Neg(t.B), zero, zero)
}

// Validate checks that the parameters describe a nonsingular curve of the
// shape required for L: b = c when L = 5, and b = d^3 - d^2, c = d^2 - d
// with d = b/c when L = 7.
func (t *TateNormal) Validate() error {
	f := t.F
	switch t.L {
	case 5:
		if !f.Equal(t.B, t.C) {
			return fmt.Errorf("%w: b != c for l=5", csidh.ErrConversionFailure)
		}
	case 7:
		if f.IsZero(t.C) {
			return fmt.Errorf("%w: c = 0 for l=7", csidh.ErrDegenerateCurve)
		}
		d := f.Div(t.B, t.C)
		d2 := f.Sqr(d)
		if !f.Equal(t.B, f.Sub(f.Mul(d2, d), d2)) || !f.Equal(t.C, f.Sub(d2, d)) {
			return fmt.Errorf("%w: parameters are not on the l=7 family", csidh.ErrConversionFailure)
		}
	}
	if !t.Weierstrass().IsNonsingular() {
		return fmt.Errorf("%w: singular Tate normal form", csidh.ErrDegenerateCurve)
	}
	return nil
}

// ToTateNormal moves the point (x, y) of order l on c to (0, 0) and brings
// the curve into Tate normal form.
func ToTateNormal(c *Montgomery, x, y *big.Int, l int) (*TateNormal, error) {
	f := c.F
	if f.IsZero(y) {
		return nil, fmt.Errorf("%w: point has order 2", csidh.ErrConversionFailure)
	}
	w, pt := MontgomeryToWeierstrass(c, x, y)
	x0, y0 := pt.X, pt.Y

	// translate (x0, y0) to the origin:
	// a4 + 2 a2 x0 + 3 x0^2 - a1 y0, a3 + a1 x0 + 2 y0, a2 + 3 x0
	a4 := f.Add(f.Add(w.A4, f.MulInt(f.Mul(w.A2, x0), 2)), f.MulInt(f.Sqr(x0), 3))
	a4 = f.Sub(a4, f.Mul(w.A1, y0))
	a3 := f.Add(f.Add(w.A3, f.Mul(w.A1, x0)), f.MulInt(y0, 2))
	a2 := f.Add(w.A2, f.MulInt(x0, 3))
	a1 := w.A1
	if f.IsZero(a3) {
		return nil, fmt.Errorf("%w: vertical tangent at marked point", csidh.ErrConversionFailure)
	}

	// y -> y + s x makes the tangent at the origin horizontal
	s := f.Div(a4, a3)
	a1 = f.Add(a1, f.MulInt(s, 2))
	a2 = f.Sub(f.Sub(a2, f.Sqr(s)), f.Mul(w.A1, s))

	tn := &TateNormal{F: f, L: l}
	if f.IsZero(a2) {
		// the origin is a flex, so it has order 3
		if l != 3 {
			return nil, fmt.Errorf("%w: point has order 3, expected %d", csidh.ErrConversionFailure, l)
		}
		tn.B = f.Neg(a3)
		tn.C = f.Sub(big.NewInt(1), a1)
		if err := tn.Validate(); err != nil {
			return nil, err
		}
		return tn, nil
	}
	if l == 3 {
		return nil, fmt.Errorf("%w: point does not have order 3", csidh.ErrConversionFailure)
	}

	// scale (x, y) -> (u^2 x, u^3 y) to make a2 = a3
	u := f.Div(a3, a2)
	a1 = f.Div(a1, u)
	a3 = f.Div(a3, f.ExpInt(u, 3))
	tn.B = f.Neg(a3)
	tn.C = f.Sub(big.NewInt(1), a1)
	if err := tn.Validate(); err != nil {
		return nil, err
	}
	return tn, nil
}

// FromTateNormal returns a Montgomery curve F_p-isomorphic to t. It fails
// with csidh.ErrConversionFailure when no rational 2-torsion point gives a
// Montgomery model.
func FromTateNormal(t *TateNormal) (*Montgomery, error) {
	f := t.F
	w := t.Weierstrass()
	b2, b4, b6, _ := w.invariants()

	// completing the square gives y^2 = x^3 + c2 x^2 + c1 x + c0
	c2 := f.Div(b2, big.NewInt(4))
	c1 := f.Div(b4, big.NewInt(2))
	c0 := f.Div(b6, big.NewInt(4))
	cubic := polynomial.New(f, c0, c1, c2, big.NewInt(1))
	roots, err := polynomial.Roots(cubic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", csidh.ErrConversionFailure, err)
	}
	for _, x0 := range roots {
		// move the root to 0: y^2 = x^3 + a2 x^2 + a4 x
		a2 := f.Add(f.MulInt(x0, 3), c2)
		a4 := f.Add(f.Add(f.MulInt(f.Sqr(x0), 3), f.MulInt(f.Mul(c2, x0), 2)), c1)
		if f.IsZero(a4) {
			continue
		}
		u, ok := f.Sqrt(a4)
		if !ok {
			continue
		}
		c, err := NewMontgomery(f, f.Div(a2, u), f.Inv(f.ExpInt(u, 3)))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", csidh.ErrConversionFailure, err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: no suitable 2-torsion point", csidh.ErrConversionFailure)
}
