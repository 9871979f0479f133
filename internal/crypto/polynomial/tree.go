package polynomial

import (
	"math/big"

	"github.com/smallyu/go-csidh/internal/crypto/field"
)

// Tree is a product tree over a list of evaluation points. Each node holds
// the product of X - v over the points below it; leaves hold a single
// linear factor.
type Tree struct {
	Poly  *Polynomial
	Left  *Tree
	Right *Tree
}

// BuildTree builds the product tree of values, splitting at the midpoint.
// An empty list yields the constant 1.
func BuildTree(f *field.Field, values []*big.Int) *Tree {
	switch len(values) {
	case 0:
		return &Tree{Poly: Constant(f, big.NewInt(1))}
	case 1:
		return &Tree{Poly: Linear(f, values[0])}
	}
	h := len(values) / 2
	left := BuildTree(f, values[:h])
	right := BuildTree(f, values[h:])
	return &Tree{
		Poly:  left.Poly.Mul(right.Poly),
		Left:  left,
		Right: right,
	}
}

// IsLeaf reports whether the node has no children.
func (t *Tree) IsLeaf() bool {
	return t.Left == nil && t.Right == nil
}

// MultiEvaluate returns poly evaluated at every leaf point of the tree, in
// the order the points were given to BuildTree.
func MultiEvaluate(poly *Polynomial, tree *Tree) []*big.Int {
	var out []*big.Int
	var walk func(g *Polynomial, t *Tree)
	walk = func(g *Polynomial, t *Tree) {
		r, _ := g.Mod(t.Poly)
		if t.IsLeaf() {
			if t.Poly.Degree() == 1 {
				out = append(out, r.Coeff(0))
			}
			return
		}
		walk(r, t.Left)
		walk(r, t.Right)
	}
	walk(poly, tree)
	return out
}

// ProductAt returns the product of poly over all tree points, which equals
// the resultant Res(prod(X - v), poly) up to sign.
func ProductAt(poly *Polynomial, tree *Tree) *big.Int {
	f := poly.Field
	acc := big.NewInt(1)
	for _, v := range MultiEvaluate(poly, tree) {
		acc = f.Mul(acc, v)
	}
	return acc
}
