package polynomial

import (
	"errors"
	"math/big"
	"strings"

	"github.com/smallyu/go-csidh/internal/crypto/field"
)

// ErrDivisionByZero is returned when dividing by the zero polynomial.
var ErrDivisionByZero = errors.New("polynomial: division by zero")

// Polynomial represents a polynomial f(x) = a_0 + a_1*x + ... + a_t*x^t
// over a prime field. The zero polynomial has no coefficients.
type Polynomial struct {
	Coefficients []*big.Int
	Field        *field.Field
}

// New builds a polynomial from coefficients given lowest degree first.
func New(f *field.Field, coeffs ...*big.Int) *Polynomial {
	c := make([]*big.Int, len(coeffs))
	for i, a := range coeffs {
		c[i] = f.Reduce(a)
	}
	return (&Polynomial{Coefficients: c, Field: f}).trim()
}

// NewInt is like New with small integer coefficients.
func NewInt(f *field.Field, coeffs ...int64) *Polynomial {
	c := make([]*big.Int, len(coeffs))
	for i, a := range coeffs {
		c[i] = big.NewInt(a)
	}
	return New(f, c...)
}

// Constant returns the constant polynomial c.
func Constant(f *field.Field, c *big.Int) *Polynomial {
	return New(f, c)
}

// Linear returns X - v.
func Linear(f *field.Field, v *big.Int) *Polynomial {
	return New(f, f.Neg(v), big.NewInt(1))
}

func (p *Polynomial) trim() *Polynomial {
	n := len(p.Coefficients)
	for n > 0 && p.Coefficients[n-1].Sign() == 0 {
		n--
	}
	p.Coefficients = p.Coefficients[:n]
	return p
}

// Degree returns the degree, or -1 for the zero polynomial.
func (p *Polynomial) Degree() int {
	return len(p.Coefficients) - 1
}

func (p *Polynomial) IsZero() bool {
	return len(p.Coefficients) == 0
}

// Coeff returns the coefficient of x^i.
func (p *Polynomial) Coeff(i int) *big.Int {
	if i < 0 || i >= len(p.Coefficients) {
		return new(big.Int)
	}
	return new(big.Int).Set(p.Coefficients[i])
}

// Lead returns the leading coefficient, zero for the zero polynomial.
func (p *Polynomial) Lead() *big.Int {
	return p.Coeff(p.Degree())
}

func (p *Polynomial) Equal(q *Polynomial) bool {
	if len(p.Coefficients) != len(q.Coefficients) {
		return false
	}
	for i := range p.Coefficients {
		if p.Coefficients[i].Cmp(q.Coefficients[i]) != 0 {
			return false
		}
	}
	return true
}

func (p *Polynomial) String() string {
	if p.IsZero() {
		return "0"
	}
	var terms []string
	for i := p.Degree(); i >= 0; i-- {
		c := p.Coefficients[i]
		if c.Sign() == 0 {
			continue
		}
		switch i {
		case 0:
			terms = append(terms, c.String())
		case 1:
			terms = append(terms, c.String()+"*x")
		default:
			terms = append(terms, c.String()+"*x^"+big.NewInt(int64(i)).String())
		}
	}
	return strings.Join(terms, " + ")
}

// Evaluate calculates f(x) mod p
func (p *Polynomial) Evaluate(x *big.Int) *big.Int {
	// Horner's method
	// result = a_t
	// for i = t-1 down to 0:
	//   result = result * x + a_i
	f := p.Field
	result := new(big.Int)
	for i := p.Degree(); i >= 0; i-- {
		result = f.Add(f.Mul(result, x), p.Coefficients[i])
	}
	return result
}

// EvaluateMulti calculates f(x) for multiple x values with a remainder tree.
func (p *Polynomial) EvaluateMulti(xs []*big.Int) []*big.Int {
	if len(xs) == 0 {
		return nil
	}
	return MultiEvaluate(p, BuildTree(p.Field, xs))
}

func (p *Polynomial) Add(q *Polynomial) *Polynomial {
	n := max(len(p.Coefficients), len(q.Coefficients))
	c := make([]*big.Int, n)
	for i := range c {
		c[i] = p.Field.Add(p.Coeff(i), q.Coeff(i))
	}
	return (&Polynomial{Coefficients: c, Field: p.Field}).trim()
}

func (p *Polynomial) Sub(q *Polynomial) *Polynomial {
	n := max(len(p.Coefficients), len(q.Coefficients))
	c := make([]*big.Int, n)
	for i := range c {
		c[i] = p.Field.Sub(p.Coeff(i), q.Coeff(i))
	}
	return (&Polynomial{Coefficients: c, Field: p.Field}).trim()
}

// Scale multiplies every coefficient by s.
func (p *Polynomial) Scale(s *big.Int) *Polynomial {
	c := make([]*big.Int, len(p.Coefficients))
	for i, a := range p.Coefficients {
		c[i] = p.Field.Mul(a, s)
	}
	return (&Polynomial{Coefficients: c, Field: p.Field}).trim()
}

func (p *Polynomial) Mul(q *Polynomial) *Polynomial {
	if p.IsZero() || q.IsZero() {
		return &Polynomial{Field: p.Field}
	}
	acc := make([]*big.Int, len(p.Coefficients)+len(q.Coefficients)-1)
	for i := range acc {
		acc[i] = new(big.Int)
	}
	tmp := new(big.Int)
	for i, a := range p.Coefficients {
		if a.Sign() == 0 {
			continue
		}
		for j, b := range q.Coefficients {
			acc[i+j].Add(acc[i+j], tmp.Mul(a, b))
		}
	}
	mod := p.Field.Modulus()
	for _, a := range acc {
		a.Mod(a, mod)
	}
	return (&Polynomial{Coefficients: acc, Field: p.Field}).trim()
}

// DivMod returns the quotient and remainder of p by d.
func (p *Polynomial) DivMod(d *Polynomial) (*Polynomial, *Polynomial, error) {
	if d.IsZero() {
		return nil, nil, ErrDivisionByZero
	}
	f := p.Field
	r := make([]*big.Int, len(p.Coefficients))
	for i, a := range p.Coefficients {
		r[i] = new(big.Int).Set(a)
	}
	dd := d.Degree()
	if len(r)-1 < dd {
		return &Polynomial{Field: f}, (&Polynomial{Coefficients: r, Field: f}).trim(), nil
	}
	q := make([]*big.Int, len(r)-dd)
	inv := f.Inv(d.Lead())
	for n := len(r) - 1; n >= dd; n-- {
		c := f.Mul(r[n], inv)
		s := n - dd
		q[s] = c
		if c.Sign() == 0 {
			continue
		}
		for i, b := range d.Coefficients {
			r[s+i] = f.Sub(r[s+i], f.Mul(c, b))
		}
	}
	quo := (&Polynomial{Coefficients: q, Field: f}).trim()
	rem := (&Polynomial{Coefficients: r[:dd], Field: f}).trim()
	return quo, rem, nil
}

// Mod returns p mod d.
func (p *Polynomial) Mod(d *Polynomial) (*Polynomial, error) {
	_, r, err := p.DivMod(d)
	return r, err
}

// Monic divides by the leading coefficient.
func (p *Polynomial) Monic() *Polynomial {
	if p.IsZero() {
		return p
	}
	return p.Scale(p.Field.Inv(p.Lead()))
}

// Derivative returns the formal derivative.
func (p *Polynomial) Derivative() *Polynomial {
	if p.Degree() < 1 {
		return &Polynomial{Field: p.Field}
	}
	c := make([]*big.Int, p.Degree())
	for i := range c {
		c[i] = p.Field.MulInt(p.Coefficients[i+1], int64(i+1))
	}
	return (&Polynomial{Coefficients: c, Field: p.Field}).trim()
}

// Gcd returns the monic greatest common divisor of p and q.
func Gcd(p, q *Polynomial) *Polynomial {
	a, b := p, q
	for !b.IsZero() {
		r, _ := a.Mod(b)
		a, b = b, r
	}
	return a.Monic()
}

// PowMod computes p^e mod m for e >= 0.
func (p *Polynomial) PowMod(e *big.Int, m *Polynomial) (*Polynomial, error) {
	base, err := p.Mod(m)
	if err != nil {
		return nil, err
	}
	result, err := Constant(p.Field, big.NewInt(1)).Mod(m)
	if err != nil {
		return nil, err
	}
	for i := e.BitLen() - 1; i >= 0; i-- {
		result, _ = result.Mul(result).Mod(m)
		if e.Bit(i) == 1 {
			result, _ = result.Mul(base).Mod(m)
		}
	}
	return result, nil
}

// Product multiplies all the given polynomials.
func Product(f *field.Field, ps []*Polynomial) *Polynomial {
	acc := Constant(f, big.NewInt(1))
	for _, p := range ps {
		acc = acc.Mul(p)
	}
	return acc
}
