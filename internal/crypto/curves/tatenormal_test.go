package curves

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallyu/go-csidh/pkg/csidh"
)

func TestTateNormalRoundTrip(t *testing.T) {
	q := big.NewInt(419)
	card := Cardinality(q, big.NewInt(0), 1)

	for _, a := range []int64{0, 158, 199, 75} {
		c := MustMontgomery(f419, big.NewInt(a), big.NewInt(1))
		for _, l := range []int{3, 5, 7} {
			rng := testRNG(t, "tate normal")
			p, err := SampleTorsion(c, l, card, 1, rng, DefaultMaxRetries)
			require.NoError(t, err)
			x, _ := c.Normalize(p)
			y, ok := c.LiftY(x)
			require.True(t, ok)

			tn, err := ToTateNormal(c, x, y, l)
			require.NoError(t, err, "A=%d l=%d", a, l)

			w := tn.Weierstrass()
			origin := AffinePoint{X: big.NewInt(0), Y: big.NewInt(0)}
			assert.True(t, w.IsOnCurve(origin))
			assert.True(t, w.ScalarMul(big.NewInt(int64(l)), origin).Inf, "A=%d l=%d", a, l)
			assert.False(t, w.ScalarMul(big.NewInt(1), origin).Inf)

			j, err := w.JInvariant()
			require.NoError(t, err)
			assert.Equal(t, 0, c.JInvariant().Cmp(j), "A=%d l=%d", a, l)

			back, err := FromTateNormal(tn)
			require.NoError(t, err, "A=%d l=%d", a, l)
			assert.True(t, back.Isomorphic(c), "A=%d l=%d: got %s", a, l, back)
		}
	}
}

func TestToTateNormalErrors(t *testing.T) {
	c := MustMontgomery(f419, big.NewInt(158), big.NewInt(1))

	t.Run("2-torsion point", func(t *testing.T) {
		_, err := ToTateNormal(c, big.NewInt(0), big.NewInt(0), 5)
		assert.ErrorIs(t, err, csidh.ErrConversionFailure)
	})

	t.Run("wrong order", func(t *testing.T) {
		rng := testRNG(t, "wrong order")
		p, err := SampleTorsion(c, 3, big.NewInt(420), 1, rng, DefaultMaxRetries)
		require.NoError(t, err)
		x, _ := c.Normalize(p)
		y, _ := c.LiftY(x)

		_, err = ToTateNormal(c, x, y, 5)
		assert.ErrorIs(t, err, csidh.ErrConversionFailure)

		p, err = SampleTorsion(c, 5, big.NewInt(420), 1, rng, DefaultMaxRetries)
		require.NoError(t, err)
		x, _ = c.Normalize(p)
		y, _ = c.LiftY(x)
		_, err = ToTateNormal(c, x, y, 3)
		assert.ErrorIs(t, err, csidh.ErrConversionFailure)
	})
}

func TestTateNormalValidate(t *testing.T) {
	t.Run("l=5 needs b = c", func(t *testing.T) {
		tn := &TateNormal{F: f419, L: 5, B: big.NewInt(3), C: big.NewInt(4)}
		assert.ErrorIs(t, tn.Validate(), csidh.ErrConversionFailure)
	})

	t.Run("l=7 family", func(t *testing.T) {
		// d = 3: b = 27 - 9 = 18, c = 9 - 3 = 6
		tn := &TateNormal{F: f419, L: 7, B: big.NewInt(18), C: big.NewInt(6)}
		assert.NoError(t, tn.Validate())
		tn.C = big.NewInt(7)
		assert.ErrorIs(t, tn.Validate(), csidh.ErrConversionFailure)
	})

	t.Run("singular", func(t *testing.T) {
		tn := &TateNormal{F: f419, L: 5, B: big.NewInt(0), C: big.NewInt(0)}
		assert.ErrorIs(t, tn.Validate(), csidh.ErrDegenerateCurve)
	})
}
