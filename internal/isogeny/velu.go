package isogeny

import (
	"fmt"
	"math/big"

	"github.com/smallyu/go-csidh/internal/crypto/curves"
	"github.com/smallyu/go-csidh/internal/crypto/polynomial"
	"github.com/smallyu/go-csidh/pkg/csidh"
)

// Isogeny is an odd-degree isogeny between Montgomery curves computed with
// the square-root Velu formulas.
type Isogeny struct {
	Domain   *curves.Montgomery
	Codomain *curves.Montgomery
	Degree   int

	// affine x-coordinates of the kernel baby steps, giant steps and
	// leftover multiples
	I, J, K []*big.Int
	tree    *polynomial.Tree
}

// KernelPoints splits the nonzero kernel multiples of p into the index sets
// I = {2b(2i+1)P}, J = {(2j+1)P} and K = {2P, 4P, ...}, b = floor(sqrt(l-1))/2,
// so that the sums and differences of I and J together with K cover every
// x([k]P), 1 <= k <= (l-1)/2, exactly once. Only xDBL and xADD are used.
func KernelPoints(c *curves.Montgomery, p curves.Point, l int) (I, J, K []curves.Point) {
	n := l - 1
	s := 1
	for (s+1)*(s+1) <= n {
		s++
	}
	b := s / 2
	bp := 0
	if b > 0 {
		bp = n / (4 * b)
	}
	p2 := c.XDBL(p)

	if b > 0 {
		J = append(J, p)
		if b > 1 {
			J = append(J, c.XADD(p2, p, p))
		}
		for j := 2; j < b; j++ {
			J = append(J, c.XADD(J[j-1], p2, J[j-2]))
		}

		// G = 2bP
		var g curves.Point
		if (b-1)%2 == 0 {
			g = c.XDBL(J[(b-1)/2])
		} else {
			g = c.XADD(J[b/2], J[b/2-1], p2)
		}
		g2 := c.XDBL(g)
		I = append(I, g)
		if bp > 1 {
			I = append(I, c.XADD(g2, g, g))
		}
		for i := 2; i < bp; i++ {
			I = append(I, c.XADD(I[i-1], g2, I[i-2]))
		}
	}

	nk := (n - 4*b*bp) / 2
	if nk > 0 {
		K = append(K, p2)
		if nk > 1 {
			K = append(K, c.XDBL(p2))
		}
		for k := 2; k < nk; k++ {
			K = append(K, c.XADD(K[k-1], p2, K[k-2]))
		}
	}
	return I, J, K
}

// ComputeIsogeny returns the l-isogeny with kernel generated by p.
func ComputeIsogeny(c *curves.Montgomery, p curves.Point, l int) (*Isogeny, error) {
	if l < 3 || l%2 == 0 || !big.NewInt(int64(l)).ProbablyPrime(10) {
		return nil, fmt.Errorf("%w: l=%d is not an odd prime", csidh.ErrUnsupportedDegree, l)
	}
	if !c.HasOrder(p, l) {
		return nil, fmt.Errorf("%w: kernel point %s does not have order %d", csidh.ErrInvalidTorsionOrder, p, l)
	}

	I, J, K := KernelPoints(c, p, l)
	iso := &Isogeny{Domain: c, Degree: l}
	var err error
	if iso.I, err = affine(c, I); err != nil {
		return nil, err
	}
	if iso.J, err = affine(c, J); err != nil {
		return nil, err
	}
	if iso.K, err = affine(c, K); err != nil {
		return nil, err
	}
	iso.tree = polynomial.BuildTree(c.F, iso.I)

	f := c.F
	hp := iso.kernelAt(f.One())
	hm := iso.kernelAt(f.Elem(-1))
	ap := f.Mul(f.ExpInt(f.Add(c.A, big.NewInt(2)), int64(l)), f.ExpInt(hm, 8))
	dp := f.Mul(f.ExpInt(f.Sub(c.A, big.NewInt(2)), int64(l)), f.ExpInt(hp, 8))
	den := f.Sub(ap, dp)
	if f.IsZero(den) {
		return nil, fmt.Errorf("%w: codomain of degree %d", csidh.ErrDegenerateCurve, l)
	}
	a := f.Div(f.MulInt(f.Add(ap, dp), 2), den)
	if iso.Codomain, err = curves.NewMontgomery(f, a, c.B); err != nil {
		return nil, err
	}
	return iso, nil
}

func affine(c *curves.Montgomery, ps []curves.Point) ([]*big.Int, error) {
	xs := make([]*big.Int, len(ps))
	for i, p := range ps {
		x, ok := c.Normalize(p)
		if !ok {
			return nil, fmt.Errorf("%w: kernel multiple %d is the identity", csidh.ErrInvalidTorsionOrder, i)
		}
		xs[i] = x
	}
	return xs, nil
}

// kernelAt evaluates the kernel polynomial prod (alpha - x_k) over the
// nonzero kernel multiples up to the constant Res(h_I, prod_J (Z - x_j)^2),
// which is the same for every alpha and cancels in every ratio taken here.
func (iso *Isogeny) kernelAt(alpha *big.Int) *big.Int {
	f := iso.Domain.F
	r := f.One()
	if len(iso.I) > 0 {
		a2 := f.Sqr(alpha)
		ej := polynomial.Constant(f, f.One())
		for _, xj := range iso.J {
			ej = ej.Mul(iso.biquadratic(alpha, a2, xj))
		}
		r = polynomial.ProductAt(ej, iso.tree)
	}
	for _, xk := range iso.K {
		r = f.Mul(r, f.Sub(alpha, xk))
	}
	return r
}

// biquadratic returns F0(Z, x) alpha^2 + F1(Z, x) alpha + F2(Z, x) as a
// polynomial in Z, where
//
//	F0 = (Z - x)^2
//	F1 = -2 [(Zx + 1)(Z + x) + 2AZx]
//	F2 = (Zx - 1)^2
func (iso *Isogeny) biquadratic(alpha, alpha2, x *big.Int) *polynomial.Polynomial {
	f := iso.Domain.F
	x2 := f.Sqr(x)
	m2x := f.MulInt(x, -2)
	mid := f.MulInt(f.Add(f.Add(x2, f.One()), f.MulInt(f.Mul(iso.Domain.A, x), 2)), -2)

	f0 := []*big.Int{x2, m2x, f.One()}
	f1 := []*big.Int{m2x, mid, m2x}
	f2 := []*big.Int{f.One(), m2x, x2}
	coeffs := make([]*big.Int, 3)
	for i := range coeffs {
		coeffs[i] = f.Add(f.Add(f.Mul(f0[i], alpha2), f.Mul(f1[i], alpha)), f2[i])
	}
	return polynomial.New(f, coeffs...)
}

// Eval maps a point of the domain to the codomain:
// x' = x (x^n h(1/x))^2 / h(x)^2 with n = (l-1)/2.
func (iso *Isogeny) Eval(p curves.Point) curves.Point {
	x, ok := iso.Domain.Normalize(p)
	if !ok {
		return curves.Identity()
	}
	f := iso.Domain.F
	if f.IsZero(x) {
		return curves.NewPoint(f.Zero())
	}
	hx := iso.kernelAt(x)
	if f.IsZero(hx) {
		return curves.Identity()
	}
	n := int64(iso.Degree-1) / 2
	hr := f.Mul(f.ExpInt(x, n), iso.kernelAt(f.Inv(x)))
	return curves.NewPoint(f.Div(f.Mul(x, f.Sqr(hr)), f.Sqr(hx)))
}
