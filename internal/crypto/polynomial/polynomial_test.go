package polynomial

import (
	"math/big"
	"testing"

	"github.com/smallyu/go-csidh/internal/crypto/field"
)

var testField = field.MustNew(big.NewInt(419))

func TestNew(t *testing.T) {
	t.Run("trims leading zeros", func(t *testing.T) {
		poly := NewInt(testField, 1, 2, 0, 0)
		if poly.Degree() != 1 {
			t.Errorf("Expected degree 1, got %d", poly.Degree())
		}
	})

	t.Run("reduces coefficients", func(t *testing.T) {
		poly := NewInt(testField, -1, 420)
		if poly.Coeff(0).Int64() != 418 || poly.Coeff(1).Int64() != 1 {
			t.Errorf("Unexpected coefficients %s", poly)
		}
	})

	t.Run("zero polynomial", func(t *testing.T) {
		poly := NewInt(testField, 0, 419)
		if !poly.IsZero() || poly.Degree() != -1 {
			t.Errorf("Expected zero polynomial, got %s", poly)
		}
	})
}

func TestEvaluate(t *testing.T) {
	t.Run("constant polynomial", func(t *testing.T) {
		// f(x) = 5
		poly := NewInt(testField, 5)

		result := poly.Evaluate(big.NewInt(0))
		if result.Cmp(big.NewInt(5)) != 0 {
			t.Errorf("f(0) = %s, expected 5", result)
		}

		result = poly.Evaluate(big.NewInt(100))
		if result.Cmp(big.NewInt(5)) != 0 {
			t.Errorf("f(100) = %s, expected 5", result)
		}
	})

	t.Run("quadratic polynomial", func(t *testing.T) {
		// f(x) = 1 + 2x + 3x^2
		poly := NewInt(testField, 1, 2, 3)

		for _, tc := range []struct{ x, want int64 }{{0, 1}, {1, 6}, {2, 17}, {3, 34}} {
			result := poly.Evaluate(big.NewInt(tc.x))
			if result.Int64() != tc.want {
				t.Errorf("f(%d) = %s, expected %d", tc.x, result, tc.want)
			}
		}
	})

	t.Run("modular reduction", func(t *testing.T) {
		// f(x) = (p-1) + 2x wraps around
		poly := NewInt(testField, 418, 2)

		// f(1) = p+1 mod p = 1
		result := poly.Evaluate(big.NewInt(1))
		if result.Cmp(big.NewInt(1)) != 0 {
			t.Errorf("f(1) = %s, expected 1 (after mod p)", result)
		}
	})
}

func TestEvaluateMulti(t *testing.T) {
	// f(x) = 5 + 3x + x^4
	poly := NewInt(testField, 5, 3, 0, 0, 1)

	xs := make([]*big.Int, 0, 13)
	for i := int64(0); i < 13; i++ {
		xs = append(xs, big.NewInt(i*31))
	}

	results := poly.EvaluateMulti(xs)
	if len(results) != len(xs) {
		t.Fatalf("Expected %d results, got %d", len(xs), len(results))
	}
	for i, r := range results {
		if want := poly.Evaluate(xs[i]); r.Cmp(want) != 0 {
			t.Errorf("f(%s) = %s, expected %s", xs[i], r, want)
		}
	}

	if got := poly.EvaluateMulti(nil); len(got) != 0 {
		t.Errorf("Expected no results for empty input, got %d", len(got))
	}
}

func TestDivMod(t *testing.T) {
	a := NewInt(testField, 7, 0, 5, 1, 9, 3)
	b := NewInt(testField, 2, 11, 1)

	q, r, err := a.DivMod(b)
	if err != nil {
		t.Fatalf("DivMod failed: %v", err)
	}
	if r.Degree() >= b.Degree() {
		t.Errorf("Remainder degree %d not below divisor degree %d", r.Degree(), b.Degree())
	}
	if !q.Mul(b).Add(r).Equal(a) {
		t.Errorf("q*b + r != a")
	}

	if _, _, err := a.DivMod(NewInt(testField)); err != ErrDivisionByZero {
		t.Errorf("Expected ErrDivisionByZero, got %v", err)
	}

	// dividing a low degree polynomial returns it as the remainder
	q, r, _ = b.DivMod(a)
	if !q.IsZero() || !r.Equal(b) {
		t.Errorf("Expected zero quotient, got q=%s r=%s", q, r)
	}
}

func TestGcdAndDerivative(t *testing.T) {
	// (x-1)(x-2) and (x-2)(x-3)
	a := Linear(testField, big.NewInt(1)).Mul(Linear(testField, big.NewInt(2)))
	b := Linear(testField, big.NewInt(2)).Mul(Linear(testField, big.NewInt(3)))
	g := Gcd(a, b)
	if !g.Equal(Linear(testField, big.NewInt(2))) {
		t.Errorf("gcd = %s, expected x - 2", g)
	}

	// d/dx (x^3 + 2x) = 3x^2 + 2
	d := NewInt(testField, 0, 2, 0, 1).Derivative()
	if !d.Equal(NewInt(testField, 2, 0, 3)) {
		t.Errorf("derivative = %s", d)
	}
}

func TestTree(t *testing.T) {
	values := []*big.Int{big.NewInt(3), big.NewInt(10), big.NewInt(400), big.NewInt(77), big.NewInt(5)}
	tree := BuildTree(testField, values)

	if tree.Poly.Degree() != len(values) {
		t.Fatalf("Root degree %d, expected %d", tree.Poly.Degree(), len(values))
	}
	for _, v := range values {
		if tree.Poly.Evaluate(v).Sign() != 0 {
			t.Errorf("Root product does not vanish at %s", v)
		}
	}

	empty := BuildTree(testField, nil)
	if !empty.Poly.Equal(NewInt(testField, 1)) {
		t.Errorf("Empty tree should hold the constant 1, got %s", empty.Poly)
	}
	if got := MultiEvaluate(NewInt(testField, 1, 1), empty); len(got) != 0 {
		t.Errorf("Empty tree should evaluate nothing, got %d values", len(got))
	}

	poly := NewInt(testField, 9, 8, 7)
	want := big.NewInt(1)
	for _, v := range values {
		want = testField.Mul(want, poly.Evaluate(v))
	}
	if got := ProductAt(poly, tree); got.Cmp(want) != 0 {
		t.Errorf("ProductAt = %s, expected %s", got, want)
	}
}

func TestRoots(t *testing.T) {
	t.Run("split cubic", func(t *testing.T) {
		// (x-5)(x-17)(x-300)
		poly := Product(testField, []*Polynomial{
			Linear(testField, big.NewInt(300)),
			Linear(testField, big.NewInt(5)),
			Linear(testField, big.NewInt(17)),
		})
		roots, err := Roots(poly)
		if err != nil {
			t.Fatalf("Roots failed: %v", err)
		}
		want := []int64{5, 17, 300}
		if len(roots) != len(want) {
			t.Fatalf("Expected %d roots, got %d", len(want), len(roots))
		}
		for i, r := range roots {
			if r.Int64() != want[i] {
				t.Errorf("root %d = %s, expected %d", i, r, want[i])
			}
		}
	})

	t.Run("irreducible quadratic factor", func(t *testing.T) {
		// (x^2 - 2)(x - 9); 2 is not a square mod 419
		poly := NewInt(testField, -2, 0, 1).Mul(Linear(testField, big.NewInt(9)))
		roots, err := Roots(poly)
		if err != nil {
			t.Fatalf("Roots failed: %v", err)
		}
		if len(roots) != 1 || roots[0].Int64() != 9 {
			t.Errorf("Expected single root 9, got %v", roots)
		}
	})

	t.Run("repeated root", func(t *testing.T) {
		poly := Linear(testField, big.NewInt(4)).Mul(Linear(testField, big.NewInt(4)))
		roots, err := Roots(poly.Scale(big.NewInt(7)))
		if err != nil {
			t.Fatalf("Roots failed: %v", err)
		}
		if len(roots) != 1 || roots[0].Int64() != 4 {
			t.Errorf("Expected single root 4, got %v", roots)
		}
	})
}
