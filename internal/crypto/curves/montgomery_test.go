package curves

import (
	"io"
	"math/big"
	"testing"

	"github.com/katzenpost/hpqc/rand"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/smallyu/go-csidh/internal/crypto/field"
	"github.com/smallyu/go-csidh/pkg/csidh"
)

var f419 = field.MustNew(big.NewInt(419))

func testRNG(t testing.TB, seed string) io.Reader {
	key := blake2b.Sum256([]byte(seed))
	rng, err := rand.NewDeterministicRandReader(key[:])
	require.NoError(t, err)
	return rng
}

// randomPoint returns an affine point of E(F_p) with y != 0.
func randomPoint(t testing.TB, c *Montgomery, rng io.Reader) (*big.Int, *big.Int) {
	for i := 0; i < 1000; i++ {
		x, err := c.F.Random(rng)
		require.NoError(t, err)
		if c.PointClass(x) != 1 {
			continue
		}
		y, ok := c.LiftY(x)
		require.True(t, ok)
		return x, y
	}
	t.Fatal("no point found")
	return nil, nil
}

func TestNewMontgomery(t *testing.T) {
	t.Run("singular", func(t *testing.T) {
		for _, a := range []int64{2, -2, 417} {
			_, err := NewMontgomery(f419, big.NewInt(a), big.NewInt(1))
			assert.ErrorIs(t, err, csidh.ErrDegenerateCurve, "A=%d", a)
		}
		_, err := NewMontgomery(f419, big.NewInt(0), big.NewInt(0))
		assert.ErrorIs(t, err, csidh.ErrDegenerateCurve)
	})

	t.Run("A = 2 is singular for any p", func(t *testing.T) {
		f19 := field.MustNew(big.NewInt(19))
		_, err := NewMontgomery(f19, big.NewInt(2), big.NewInt(1))
		assert.ErrorIs(t, err, csidh.ErrDegenerateCurve)
	})

	t.Run("reduces coefficients", func(t *testing.T) {
		c := MustMontgomery(f419, big.NewInt(-1), big.NewInt(420))
		assert.Equal(t, int64(418), c.A.Int64())
		assert.Equal(t, int64(1), c.B.Int64())
	})
}

func TestJInvariant(t *testing.T) {
	e0 := MustMontgomery(f419, big.NewInt(0), big.NewInt(1))
	assert.Equal(t, int64(1728%419), e0.JInvariant().Int64())

	e1 := MustMontgomery(f419, big.NewInt(158), big.NewInt(1))
	assert.Equal(t, int64(356), e1.JInvariant().Int64())

	t.Run("agrees with the Weierstrass model", func(t *testing.T) {
		for a := int64(0); a < 419; a += 13 {
			c, err := NewMontgomery(f419, big.NewInt(a), big.NewInt(5))
			if err != nil {
				continue
			}
			w, _ := MontgomeryToWeierstrass(c, big.NewInt(0), big.NewInt(0))
			j, err := w.JInvariant()
			require.NoError(t, err)
			assert.Equal(t, 0, c.JInvariant().Cmp(j), "A=%d", a)
		}
	})

	t.Run("independent of B", func(t *testing.T) {
		c := MustMontgomery(f419, big.NewInt(77), big.NewInt(3))
		assert.Equal(t, 0, c.JInvariant().Cmp(c.Twist().JInvariant()))
	})
}

func TestCanonical(t *testing.T) {
	c := MustMontgomery(f419, big.NewInt(158), big.NewInt(1))

	t.Run("scaling B by a square", func(t *testing.T) {
		d := MustMontgomery(f419, c.A, big.NewInt(9))
		assert.True(t, c.Isomorphic(d))
	})

	t.Run("twist flips A when -1 is not a square", func(t *testing.T) {
		tw := c.Twist()
		can := tw.Canonical()
		assert.Equal(t, int64(419-158), can.A.Int64())
		assert.Equal(t, int64(1), can.B.Int64())
		assert.False(t, c.Isomorphic(tw))
		assert.True(t, c.Isomorphic(tw.Untwist()))
	})

	t.Run("untwist inverts twist", func(t *testing.T) {
		for _, b := range []int64{1, 3, 9} {
			d := MustMontgomery(f419, c.A, big.NewInt(b))
			back := d.Twist().Untwist()
			assert.Equal(t, 0, back.A.Cmp(d.A))
			assert.Equal(t, 0, back.B.Cmp(d.B), "B=%d", b)
			assert.True(t, d.Twist().Twist().Isomorphic(d))
		}
	})

	t.Run("p = 1 mod 4 keeps the twist class in B", func(t *testing.T) {
		f13 := field.MustNew(big.NewInt(13))
		c := MustMontgomery(f13, big.NewInt(3), big.NewInt(1))
		can := c.Twist().Canonical()
		assert.Equal(t, 0, can.B.Cmp(f13.NonResidue()))
		assert.Equal(t, int64(3), can.A.Int64())
		assert.Equal(t, int64(3), MustMontgomery(f13, big.NewInt(10), big.NewInt(1)).Canonical().A.Int64())
	})
}

func TestPointClass(t *testing.T) {
	c := MustMontgomery(f419, big.NewInt(158), big.NewInt(1))
	assert.Equal(t, 0, c.PointClass(big.NewInt(0)))

	rng := testRNG(t, "point class")
	seen := map[int]int{}
	for i := 0; i < 200; i++ {
		x, err := f419.Random(rng)
		require.NoError(t, err)
		cls := c.PointClass(x)
		seen[cls]++
		if cls == 1 {
			y, ok := c.LiftY(x)
			require.True(t, ok)
			assert.True(t, f419.Equal(f419.Mul(c.B, f419.Sqr(y)), c.Rhs(x)))
		}
		if cls == 2 {
			_, ok := c.LiftY(x)
			assert.False(t, ok)
			assert.Equal(t, 1, c.Twist().PointClass(x))
		}
	}
	assert.Greater(t, seen[1], 0)
	assert.Greater(t, seen[2], 0)
}
