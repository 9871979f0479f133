package polynomial

import (
	"errors"
	"math/big"
	"sort"
)

// ErrSplittingFailed is returned when equal-degree splitting runs out of
// shifts without factoring.
var ErrSplittingFailed = errors.New("polynomial: root splitting failed")

// Roots returns the distinct roots of p in F_p, sorted ascending.
//
// The rational part gcd(p, X^q - X) is split by Cantor-Zassenhaus using the
// deterministic shifts X + 0, X + 1, ... so the result does not depend on
// any randomness.
func Roots(p *Polynomial) ([]*big.Int, error) {
	if p.IsZero() {
		return nil, ErrDivisionByZero
	}
	if p.Degree() < 1 {
		return nil, nil
	}
	f := p.Field
	m := p.Monic()
	x := NewInt(f, 0, 1)
	xq, err := x.PowMod(f.Modulus(), m)
	if err != nil {
		return nil, err
	}
	g := Gcd(m, xq.Sub(x))

	var out []*big.Int
	half := new(big.Int).Rsh(f.Modulus(), 1)
	one := NewInt(f, 1)

	var split func(g *Polynomial) error
	split = func(g *Polynomial) error {
		switch g.Degree() {
		case 0:
			return nil
		case 1:
			out = append(out, f.Neg(g.Coeff(0)))
			return nil
		}
		// Each trial splits with probability about 1/2; cap the scan well
		// beyond what random behaviour needs.
		for delta := int64(0); delta < 256; delta++ {
			h, err := NewInt(f, delta, 1).PowMod(half, g)
			if err != nil {
				return err
			}
			s := Gcd(g, h.Sub(one))
			if s.Degree() > 0 && s.Degree() < g.Degree() {
				q, _, err := g.DivMod(s)
				if err != nil {
					return err
				}
				if err := split(s); err != nil {
					return err
				}
				return split(q.Monic())
			}
		}
		return ErrSplittingFailed
	}
	if err := split(g); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out, nil
}
