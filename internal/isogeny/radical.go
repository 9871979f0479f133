// Package isogeny computes isogenies of small prime degree between
// Montgomery curves and walks the isogeny graph.
//
// Degrees 3, 5 and 7 use radical isogenies on Tate normal forms: one l-th
// root per step, and the codomain comes out again in Tate normal form with
// a marked point that continues the walk in the same direction. Larger
// degrees use the square-root Velu formulas on x-only Montgomery points.
package isogeny

import (
	"fmt"
	"math/big"

	"github.com/smallyu/go-csidh/internal/crypto/curves"
	"github.com/smallyu/go-csidh/pkg/csidh"
)

// RadicalStep returns the codomain of the l-isogeny with kernel generated by
// the marked point (0, 0) of tn, again in Tate normal form.
func RadicalStep(tn *curves.TateNormal) (*curves.TateNormal, error) {
	var (
		next *curves.TateNormal
		err  error
	)
	switch tn.L {
	case 3:
		next, err = radical3(tn)
	case 5:
		next, err = radical5(tn)
	case 7:
		next, err = radical7(tn)
	default:
		return nil, fmt.Errorf("%w: no radical formula for l=%d", csidh.ErrUnsupportedDegree, tn.L)
	}
	if err != nil {
		return nil, err
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	return next, nil
}

// RadicalSteps applies RadicalStep k times.
func RadicalSteps(tn *curves.TateNormal, k int64) (*curves.TateNormal, error) {
	var err error
	for i := int64(0); i < k; i++ {
		tn, err = RadicalStep(tn)
		if err != nil {
			return nil, fmt.Errorf("radical step %d: %w", i+1, err)
		}
	}
	return tn, nil
}

func root(tn *curves.TateNormal, rho *big.Int) (*big.Int, error) {
	if tn.F.IsZero(rho) {
		return nil, fmt.Errorf("%w: zero radicand for l=%d", csidh.ErrDegenerateCurve, tn.L)
	}
	alpha, ok := tn.F.RadicalRoot(rho, tn.L)
	if !ok {
		return nil, fmt.Errorf("%w: l=%d", csidh.ErrRootExtraction, tn.L)
	}
	return alpha, nil
}

// radical3 works on y^2 + a1 xy + a3 y = x^3 with a1 = 1-c, a3 = -b:
// a1' = a1 - 6 alpha, a3' = 3 a1 alpha^2 - a1^2 alpha + 9 a3, alpha^3 = -a3.
func radical3(tn *curves.TateNormal) (*curves.TateNormal, error) {
	f := tn.F
	a1 := f.Sub(big.NewInt(1), tn.C)
	a3 := f.Neg(tn.B)
	alpha, err := root(tn, tn.B)
	if err != nil {
		return nil, err
	}
	na1 := f.Sub(a1, f.MulInt(alpha, 6))
	na3 := f.MulInt(f.Mul(a1, f.Sqr(alpha)), 3)
	na3 = f.Sub(na3, f.Mul(f.Sqr(a1), alpha))
	na3 = f.Add(na3, f.MulInt(a3, 9))
	return &curves.TateNormal{
		F: f,
		L: 3,
		B: f.Neg(na3),
		C: f.Sub(big.NewInt(1), na1),
	}, nil
}

// radical5 works on the family b = c, with alpha^5 = b:
//
//	b' = alpha (alpha^4 + 3alpha^3 + 4alpha^2 + 2alpha + 1) / (alpha^4 - 2alpha^3 + 4alpha^2 - 3alpha + 1)
func radical5(tn *curves.TateNormal) (*curves.TateNormal, error) {
	f := tn.F
	alpha, err := root(tn, tn.B)
	if err != nil {
		return nil, err
	}
	num := horner(tn, alpha, 1, 2, 4, 3, 1)
	den := horner(tn, alpha, 1, -3, 4, -2, 1)
	if f.IsZero(den) {
		return nil, fmt.Errorf("%w: vanishing denominator for l=5", csidh.ErrDegenerateCurve)
	}
	b := f.Div(f.Mul(alpha, num), den)
	return &curves.TateNormal{F: f, L: 5, B: b, C: new(big.Int).Set(b)}, nil
}

// radical7 works on the family b = d^3 - d^2, c = d^2 - d. With
// alpha^7 = d (d-1)^2 the next parameter is d' = N(alpha) / D(alpha) where
// the coefficients of N and D are polynomials in d.
func radical7(tn *curves.TateNormal) (*curves.TateNormal, error) {
	f := tn.F
	if f.IsZero(tn.C) {
		return nil, fmt.Errorf("%w: c = 0 for l=7", csidh.ErrDegenerateCurve)
	}
	d := f.Div(tn.B, tn.C)
	dm1 := f.Sub(d, big.NewInt(1))
	if f.IsZero(d) || f.IsZero(dm1) {
		return nil, fmt.Errorf("%w: d in {0, 1} for l=7", csidh.ErrDegenerateCurve)
	}
	alpha, err := root(tn, f.Mul(d, f.Sqr(dm1)))
	if err != nil {
		return nil, err
	}

	d2 := f.Sqr(d)
	quad := func(c0, c1, c2 int64) *big.Int {
		// = c0 + c1 d + c2 d^2
		return f.Add(f.Add(f.Elem(c0), f.MulInt(d, c1)), f.MulInt(d2, c2))
	}
	numCoeffs := []*big.Int{
		quad(0, 7, -7),
		quad(4, 5, -9),
		quad(3, -5, 2),
		quad(4, -5, 0),
		quad(-2, 6, 0),
	}
	denCoeffs := []*big.Int{
		quad(4, -2, -2),
		quad(-5, 13, -8),
		quad(14, -14, 0),
		quad(-10, 9, 0),
		quad(11, 2, 0),
	}
	num := evalAt(tn, alpha, numCoeffs)
	den := evalAt(tn, alpha, denCoeffs)
	if f.IsZero(den) {
		return nil, fmt.Errorf("%w: vanishing denominator for l=7", csidh.ErrDegenerateCurve)
	}
	nd := f.Div(num, den)
	nd2 := f.Sqr(nd)
	return &curves.TateNormal{
		F: f,
		L: 7,
		B: f.Sub(f.Mul(nd2, nd), nd2),
		C: f.Sub(nd2, nd),
	}, nil
}

// horner evaluates sum c_i x^i for small integer coefficients, lowest first.
func horner(tn *curves.TateNormal, x *big.Int, coeffs ...int64) *big.Int {
	c := make([]*big.Int, len(coeffs))
	for i, v := range coeffs {
		c[i] = tn.F.Elem(v)
	}
	return evalAt(tn, x, c)
}

func evalAt(tn *curves.TateNormal, x *big.Int, coeffs []*big.Int) *big.Int {
	f := tn.F
	r := new(big.Int)
	for i := len(coeffs) - 1; i >= 0; i-- {
		r = f.Add(f.Mul(r, x), coeffs[i])
	}
	return r
}
