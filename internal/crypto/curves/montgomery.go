package curves

import (
	"fmt"
	"math/big"

	"github.com/smallyu/go-csidh/internal/crypto/field"
	"github.com/smallyu/go-csidh/pkg/csidh"
)

// Montgomery is the curve B*y^2 = x^3 + A*x^2 + x over F_p.
// Values are immutable once constructed.
type Montgomery struct {
	F   *field.Field
	A   *big.Int
	B   *big.Int
	a24 *big.Int // (A+2)/4
}

// NewMontgomery returns the curve with coefficients A and B. It fails with
// csidh.ErrDegenerateCurve when B*(A^2-4) = 0.
func NewMontgomery(f *field.Field, a, b *big.Int) (*Montgomery, error) {
	a = f.Reduce(a)
	b = f.Reduce(b)
	disc := f.Mul(b, f.Sub(f.Sqr(a), big.NewInt(4)))
	if f.IsZero(disc) {
		return nil, fmt.Errorf("%w: A=%s B=%s", csidh.ErrDegenerateCurve, a, b)
	}
	return &Montgomery{
		F:   f,
		A:   a,
		B:   b,
		a24: f.Div(f.Add(a, big.NewInt(2)), big.NewInt(4)),
	}, nil
}

// MustMontgomery is like NewMontgomery but panics on error.
func MustMontgomery(f *field.Field, a, b *big.Int) *Montgomery {
	c, err := NewMontgomery(f, a, b)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Montgomery) String() string {
	return fmt.Sprintf("Montgomery(A=%s, B=%s)", c.A, c.B)
}

// JInvariant returns 256*(A^2-3)^3 / (A^2-4).
func (c *Montgomery) JInvariant() *big.Int {
	f := c.F
	a2 := f.Sqr(c.A)
	num := f.ExpInt(f.Sub(a2, big.NewInt(3)), 3)
	num = f.MulInt(num, 256)
	return f.Div(num, f.Sub(a2, big.NewInt(4)))
}

// Twist returns the quadratic twist (A, B*n) with n the field's fixed
// non-residue.
func (c *Montgomery) Twist() *Montgomery {
	return MustMontgomery(c.F, c.A, c.F.Mul(c.B, c.F.NonResidue()))
}

// Untwist inverts Twist.
func (c *Montgomery) Untwist() *Montgomery {
	return MustMontgomery(c.F, c.A, c.F.Div(c.B, c.F.NonResidue()))
}

// Canonical returns the representative of the F_p-isomorphism class of c
// with B in {1, n}, n the fixed non-residue. (A, B) ~ (A, B*u^2) and
// (A, B) ~ (-A, -B); when -1 is a square the smaller of A and -A is chosen.
func (c *Montgomery) Canonical() *Montgomery {
	f := c.F
	a := c.A
	b := c.B
	minusOneSquare := f.IsSquare(f.Elem(-1))
	if !minusOneSquare && !f.IsSquare(b) {
		a = f.Neg(a)
		b = f.Neg(b)
	}
	if minusOneSquare {
		if na := f.Neg(a); na.Cmp(a) < 0 {
			a = na
		}
	}
	nb := big.NewInt(1)
	if !f.IsSquare(b) {
		nb = f.NonResidue()
	}
	return MustMontgomery(f, a, nb)
}

// Isomorphic reports whether c and d are isomorphic over F_p, which is
// finer than j-invariant equality: a curve and its twist share j.
func (c *Montgomery) Isomorphic(d *Montgomery) bool {
	x, y := c.Canonical(), d.Canonical()
	return x.A.Cmp(y.A) == 0 && x.B.Cmp(y.B) == 0
}

// Rhs returns x^3 + A*x^2 + x.
func (c *Montgomery) Rhs(x *big.Int) *big.Int {
	f := c.F
	x2 := f.Sqr(x)
	return f.Add(f.Mul(x2, f.Add(x, c.A)), x)
}

// PointClass reports where the points above x live: 1 when they are in
// E(F_p), 2 when they are in E(F_{p^2}) but not E(F_p), and 0 when x is
// the x-coordinate of a 2-torsion point.
func (c *Montgomery) PointClass(x *big.Int) int {
	v := c.F.Div(c.Rhs(x), c.B)
	switch c.F.Legendre(v) {
	case 0:
		return 0
	case 1:
		return 1
	default:
		return 2
	}
}

// LiftY returns y with B*y^2 = x^3 + A*x^2 + x, if it exists in F_p.
func (c *Montgomery) LiftY(x *big.Int) (*big.Int, bool) {
	return c.F.Sqrt(c.F.Div(c.Rhs(x), c.B))
}

// Point is a projective x-only point (X : Z). Any point with Z = 0 is the
// identity; the canonical identity is (1 : 0). Points carry no curve; the
// curve is passed to every operation.
type Point struct {
	X *big.Int
	Z *big.Int
}

// Identity returns (1 : 0).
func Identity() Point {
	return Point{X: big.NewInt(1), Z: new(big.Int)}
}

// NewPoint returns the point (x : 1).
func NewPoint(x *big.Int) Point {
	return Point{X: new(big.Int).Set(x), Z: big.NewInt(1)}
}

func (p Point) IsIdentity() bool {
	return p.Z.Sign() == 0
}

func (p Point) String() string {
	return fmt.Sprintf("(%s : %s)", p.X, p.Z)
}

// Normalize returns the affine x-coordinate X/Z. It reports false for the
// identity.
func (c *Montgomery) Normalize(p Point) (*big.Int, bool) {
	if p.IsIdentity() {
		return nil, false
	}
	return c.F.Div(p.X, p.Z), true
}

// EqualX reports whether p and q have the same x-coordinate.
func (c *Montgomery) EqualX(p, q Point) bool {
	if p.IsIdentity() || q.IsIdentity() {
		return p.IsIdentity() == q.IsIdentity()
	}
	return c.F.Equal(c.F.Mul(p.X, q.Z), c.F.Mul(p.Z, q.X))
}
