package field

import (
	"math/big"
	"testing"

	"github.com/katzenpost/hpqc/rand"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("rejects composite", func(t *testing.T) {
		_, err := New(big.NewInt(421 * 3))
		assert.ErrorIs(t, err, ErrNotPrime)
	})

	t.Run("rejects small and even", func(t *testing.T) {
		for _, p := range []int64{2, 3, 4} {
			_, err := New(big.NewInt(p))
			assert.ErrorIs(t, err, ErrNotPrime)
		}
	})

	t.Run("non-residue", func(t *testing.T) {
		f := MustNew(big.NewInt(419))
		// 419 = 3 mod 8, so 2 is not a square
		assert.Equal(t, int64(2), f.NonResidue().Int64())
		assert.Equal(t, 2, f.ByteLen())
	})
}

func TestArithmetic(t *testing.T) {
	f := MustNew(big.NewInt(419))

	t.Run("basic", func(t *testing.T) {
		assert.Equal(t, int64(1), f.Add(big.NewInt(418), big.NewInt(2)).Int64())
		assert.Equal(t, int64(417), f.Sub(big.NewInt(1), big.NewInt(3)).Int64())
		assert.Equal(t, int64(0), f.Neg(big.NewInt(0)).Int64())
		assert.Equal(t, int64(419-5), f.Neg(big.NewInt(5)).Int64())
		assert.Equal(t, int64(100*200%419), f.Mul(big.NewInt(100), big.NewInt(200)).Int64())
	})

	t.Run("inverse", func(t *testing.T) {
		for i := int64(1); i < 419; i++ {
			a := big.NewInt(i)
			require.True(t, f.IsOne(f.Mul(a, f.Inv(a))), "a=%d", i)
		}
		assert.True(t, f.IsZero(f.Inv(big.NewInt(0))))
	})

	t.Run("inputs untouched", func(t *testing.T) {
		a := big.NewInt(7)
		b := big.NewInt(9)
		f.Add(a, b)
		f.Mul(a, b)
		f.Inv(a)
		assert.Equal(t, int64(7), a.Int64())
		assert.Equal(t, int64(9), b.Int64())
	})
}

func TestSquares(t *testing.T) {
	for _, p := range []int64{419, 1021019, 13, 17} {
		f := MustNew(big.NewInt(p))
		squares := 0
		for i := int64(1); i < p && i < 500; i++ {
			a := big.NewInt(i)
			r, ok := f.Sqrt(a)
			assert.Equal(t, f.IsSquare(a), ok)
			if ok {
				squares++
				assert.True(t, f.Equal(f.Sqr(r), a))
			}
		}
		assert.Greater(t, squares, 0)
		assert.Equal(t, -1, f.Legendre(f.NonResidue()))
		assert.Equal(t, 0, f.Legendre(big.NewInt(0)))
	}
}

func TestRadicalRoot(t *testing.T) {
	f := MustNew(big.NewInt(419))

	for _, l := range []int{3, 5, 7} {
		for i := int64(1); i < 419; i += 7 {
			rho := big.NewInt(i)
			alpha, ok := f.RadicalRoot(rho, l)
			require.True(t, ok, "l=%d rho=%d", l, i)
			assert.True(t, f.Equal(f.ExpInt(alpha, int64(l)), rho))
		}
	}

	// 2*11 does not divide 420
	_, ok := f.RadicalRoot(big.NewInt(5), 11)
	assert.False(t, ok)
}

func TestEncoding(t *testing.T) {
	f := MustNew(big.NewInt(1021019))
	seed := make([]byte, 32)
	copy(seed, "field encoding")
	rng, err := rand.NewDeterministicRandReader(seed)
	require.NoError(t, err)

	for i := 0; i < 32; i++ {
		a, err := f.Random(rng)
		require.NoError(t, err)
		b := f.Bytes(a)
		assert.Len(t, b, 3)
		got, err := f.SetBytes(b)
		require.NoError(t, err)
		assert.Equal(t, 0, a.Cmp(got))
	}

	t.Run("default reader", func(t *testing.T) {
		for i := 0; i < 8; i++ {
			a, err := f.Random(nil)
			require.NoError(t, err)
			assert.True(t, a.Sign() >= 0 && a.Cmp(f.Modulus()) < 0)
		}
	})

	_, err = f.SetBytes([]byte{1, 2})
	assert.ErrorIs(t, err, ErrElementLength)
	_, err = f.SetBytes([]byte{0xff, 0xff, 0xff})
	assert.ErrorIs(t, err, ErrElementRange)
}
