package curves

import (
	"fmt"
	"io"
	"math/big"

	"github.com/smallyu/go-csidh/pkg/csidh"
)

// DefaultMaxRetries bounds the number of candidate x-coordinates tried by
// SampleTorsion.
const DefaultMaxRetries = 1000

// Cardinality returns #E(F_{q^r}) = q^r + 1 - s_r for a curve with
// Frobenius trace t over F_q, where s_0 = 2, s_1 = t and
// s_n = t*s_{n-1} - q*s_{n-2}.
func Cardinality(q, t *big.Int, r int) *big.Int {
	if r < 1 {
		panic("curves: extension degree must be positive")
	}
	prev := big.NewInt(2)
	cur := new(big.Int).Set(t)
	tmp := new(big.Int)
	for i := 2; i <= r; i++ {
		next := new(big.Int).Mul(t, cur)
		next.Sub(next, tmp.Mul(q, prev))
		prev, cur = cur, next
	}
	n := new(big.Int).Exp(q, big.NewInt(int64(r)), nil)
	n.Add(n, big.NewInt(1))
	return n.Sub(n, cur)
}

// Valuation splits n as l^v * m with l not dividing m.
func Valuation(n *big.Int, l int) (int, *big.Int) {
	m := new(big.Int).Set(n)
	bl := big.NewInt(int64(l))
	q, r := new(big.Int), new(big.Int)
	v := 0
	for m.Sign() != 0 {
		q.QuoRem(m, bl, r)
		if r.Sign() != 0 {
			break
		}
		m.Set(q)
		v++
	}
	return v, m
}

// SampleTorsion returns a point of exact order l whose x-coordinate lies in
// F_p. With ext = 1 the point is in E(F_p); with ext = 2 it is in
// E(F_{p^2}) but not in E(F_p), that is, a point of the quadratic twist.
// card must be a multiple of the order of every point of the requested
// class, such as Cardinality(p, t, ext).
func SampleTorsion(c *Montgomery, l int, card *big.Int, ext int, rng io.Reader, maxRetries int) (Point, error) {
	if ext != 1 && ext != 2 {
		return Point{}, fmt.Errorf("%w: %d", csidh.ErrUnsupportedExtension, ext)
	}
	v, cofactor := Valuation(card, l)
	if v == 0 {
		return Point{}, fmt.Errorf("%w: %d does not divide %s", csidh.ErrInvalidTorsionOrder, l, card)
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	bl := big.NewInt(int64(l))
	for i := 0; i < maxRetries; i++ {
		x, err := c.F.Random(rng)
		if err != nil {
			return Point{}, fmt.Errorf("failed to sample x-coordinate: %w", err)
		}
		if c.PointClass(x) != ext {
			continue
		}
		q := c.ScalarMul(cofactor, NewPoint(x))
		if q.IsIdentity() {
			continue
		}
		// q has order l^j for some 1 <= j <= v
		for j := 1; j < v; j++ {
			next := c.ScalarMul(bl, q)
			if next.IsIdentity() {
				break
			}
			q = next
		}
		if !c.ScalarMul(bl, q).IsIdentity() {
			return Point{}, fmt.Errorf("%w: %s is not a multiple of the point order", csidh.ErrInvalidTorsionOrder, card)
		}
		return q, nil
	}
	return Point{}, fmt.Errorf("%w after %d attempts (l=%d)", csidh.ErrSamplingExhausted, maxRetries, l)
}

// HasOrder reports whether p has exact order l, for l prime.
func (c *Montgomery) HasOrder(p Point, l int) bool {
	return !p.IsIdentity() && c.ScalarMulInt(int64(l), p).IsIdentity()
}
