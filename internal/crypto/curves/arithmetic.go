package curves

import (
	"math/big"
)

// XDBL returns x(2P).
func (c *Montgomery) XDBL(p Point) Point {
	if p.IsIdentity() {
		return Identity()
	}
	f := c.F
	s := f.Sqr(f.Add(p.X, p.Z)) // = (X+Z)^2
	d := f.Sqr(f.Sub(p.X, p.Z)) // = (X-Z)^2
	t := f.Sub(s, d)            // = 4XZ
	x2 := f.Mul(s, d)
	z2 := f.Mul(t, f.Add(d, f.Mul(c.a24, t)))
	if z2.Sign() == 0 {
		return Identity()
	}
	return Point{X: x2, Z: z2}
}

// XADD returns x(P+Q) given x(P), x(Q) and the difference x(P-Q).
func (c *Montgomery) XADD(p, q, diff Point) Point {
	switch {
	case p.IsIdentity():
		return q
	case q.IsIdentity():
		return p
	case diff.IsIdentity():
		// P = Q
		return c.XDBL(p)
	case diff.X.Sign() == 0:
		// P - Q = (0,0), so P + Q = 2Q + (0,0), whose x is 1/x(2Q).
		r := c.XDBL(q)
		if r.IsIdentity() {
			return Identity()
		}
		return Point{X: r.Z, Z: r.X}
	}
	f := c.F
	a := f.Mul(f.Sub(p.X, p.Z), f.Add(q.X, q.Z)) // = (XP-ZP)(XQ+ZQ)
	b := f.Mul(f.Add(p.X, p.Z), f.Sub(q.X, q.Z)) // = (XP+ZP)(XQ-ZQ)
	x := f.Mul(diff.Z, f.Sqr(f.Add(a, b)))
	z := f.Mul(diff.X, f.Sqr(f.Sub(a, b)))
	if z.Sign() == 0 {
		// P = -Q
		return Identity()
	}
	return Point{X: x, Z: z}
}

// ScalarMul returns x([|k|]P) with an iterative Montgomery ladder. The
// ladder keeps R1 = R0 + P after every bit.
func (c *Montgomery) ScalarMul(k *big.Int, p Point) Point {
	if k.Sign() == 0 || p.IsIdentity() {
		return Identity()
	}
	e := new(big.Int).Abs(k)
	r0 := Identity()
	r1 := p
	for i := e.BitLen() - 1; i >= 0; i-- {
		if e.Bit(i) == 0 {
			r1 = c.XADD(r0, r1, p)
			r0 = c.XDBL(r0)
		} else {
			r0 = c.XADD(r0, r1, p)
			r1 = c.XDBL(r1)
		}
	}
	return r0
}

// ScalarMulInt is ScalarMul for a machine-sized scalar.
func (c *Montgomery) ScalarMulInt(k int64, p Point) Point {
	return c.ScalarMul(big.NewInt(k), p)
}
