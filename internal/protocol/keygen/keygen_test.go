package keygen

import (
	"context"
	"errors"
	"io"
	"math/big"
	"testing"

	"github.com/katzenpost/hpqc/rand"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/smallyu/go-csidh/internal/crypto/curves"
	"github.com/smallyu/go-csidh/internal/params"
	"github.com/smallyu/go-csidh/pkg/csidh"
)

func testRNG(t testing.TB, seed string) io.Reader {
	key := blake2b.Sum256([]byte(seed))
	rng, err := rand.NewDeterministicRandReader(key[:])
	require.NoError(t, err)
	return rng
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("entropy source closed") }

func TestGenerateKey(t *testing.T) {
	ps := params.Toy419()
	rng := testRNG(t, "generate")

	var neg, pos bool
	for i := 0; i < 100; i++ {
		k, err := GenerateKey(ps, rng)
		if err != nil {
			t.Fatalf("GenerateKey failed: %v", err)
		}
		if len(k.Steps) != len(ps.Primes) {
			t.Fatalf("expected %d steps, got %d", len(ps.Primes), len(k.Steps))
		}
		if err := k.Validate(ps); err != nil {
			t.Errorf("generated key %s does not validate: %v", k, err)
		}
		for _, s := range k.Steps {
			neg = neg || s < 0
			pos = pos || s > 0
		}
	}
	if !neg || !pos {
		t.Errorf("expected both directions, got neg=%v pos=%v", neg, pos)
	}

	t.Run("forward only", func(t *testing.T) {
		fwd, err := params.New("fwd", big.NewInt(419), big.NewInt(0), big.NewInt(1), big.NewInt(0), []params.Prime{
			{L: 3, Kind: params.Radical, UpperBound: 3},
			{L: 7, Kind: params.Radical, LowerBound: 1, UpperBound: 4, Backward: true},
		}, 0)
		require.NoError(t, err)
		for i := 0; i < 50; i++ {
			k, err := GenerateKey(fwd, rng)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, k.Steps[0], int64(0))
			assert.LessOrEqual(t, k.Steps[0], int64(3))
			assert.GreaterOrEqual(t, k.Steps[1], int64(-4))
			assert.LessOrEqual(t, k.Steps[1], int64(4))
		}
	})

	t.Run("entropy failure", func(t *testing.T) {
		_, err := GenerateKey(ps, errReader{})
		assert.Error(t, err)
	})
}

func TestKeyValidate(t *testing.T) {
	ps, err := params.New("mixed", big.NewInt(419), big.NewInt(0), big.NewInt(1), big.NewInt(0), []params.Prime{
		{L: 3, Kind: params.Radical, UpperBound: 3},
		{L: 5, Kind: params.Radical, LowerBound: 2, UpperBound: 3, Backward: true},
	}, 0)
	require.NoError(t, err)

	for _, tc := range []struct {
		name  string
		steps []int64
		ok    bool
	}{
		{"valid", []int64{3, -2}, true},
		{"zero", []int64{0, 0}, true},
		{"too few", []int64{1}, false},
		{"above upper bound", []int64{4, 0}, false},
		{"backward on forward-only prime", []int64{-1, 0}, false},
		{"below the negated upper bound", []int64{0, -4}, false},
		{"backward past the lower bound", []int64{0, -3}, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := (&Key{Steps: tc.steps}).Validate(ps)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, csidh.ErrInvalidKey)
			}
		})
	}
}

func TestApplyKeyAgreement(t *testing.T) {
	for _, ps := range []*params.Params{params.Toy419(), params.Toy1021019()} {
		t.Run(ps.Name, func(t *testing.T) {
			rng := testRNG(t, "agreement "+ps.Name)
			alice, err := GenerateKey(ps, rng)
			require.NoError(t, err)
			bob, err := GenerateKey(ps, rng)
			require.NoError(t, err)

			pubA, err := PublicKey(ps, alice, rng, nil)
			require.NoError(t, err)
			pubB, err := PublicKey(ps, bob, rng, nil)
			require.NoError(t, err)

			sharedA, err := ApplyKey(ps, pubB, alice, rng, nil)
			require.NoError(t, err)
			sharedB, err := ApplyKey(ps, pubA, bob, rng, nil)
			require.NoError(t, err)

			assert.True(t, SameCurve(sharedA, sharedB), "alice %s bob %s", alice, bob)
			assert.True(t, sharedA.Isomorphic(sharedB))
		})
	}
}

func TestApplyKey(t *testing.T) {
	ps := params.Toy419()

	t.Run("zero key", func(t *testing.T) {
		c, err := PublicKey(ps, &Key{Steps: []int64{0, 0, 0}}, nil, nil)
		require.NoError(t, err)
		assert.True(t, c.Isomorphic(ps.Base))
	})

	t.Run("known curve", func(t *testing.T) {
		c, err := PublicKey(ps, &Key{Steps: []int64{1, 1, 0}}, testRNG(t, "known"), nil)
		require.NoError(t, err)
		assert.Equal(t, int64(390), c.A.Int64())
	})

	t.Run("inverse key", func(t *testing.T) {
		rng := testRNG(t, "inverse")
		k := &Key{Steps: []int64{2, -3, 1}}
		c, err := PublicKey(ps, k, rng, nil)
		require.NoError(t, err)
		back, err := ApplyKey(ps, c, &Key{Steps: []int64{-2, 3, -1}}, rng, nil)
		require.NoError(t, err)
		assert.True(t, back.Isomorphic(ps.Base))
	})

	t.Run("reports the failing prime", func(t *testing.T) {
		_, err := ApplyKey(ps, ps.Base, &Key{Steps: []int64{0, 2, 1}}, errReader{}, nil)
		var we *csidh.WalkError
		require.True(t, errors.As(err, &we), "got %v", err)
		assert.Equal(t, 1, we.Index)
		assert.Equal(t, 5, we.Prime)
		assert.Equal(t, int64(2), we.Steps)
	})

	t.Run("invalid key", func(t *testing.T) {
		c, err := ApplyKey(ps, ps.Base, &Key{Steps: []int64{1}}, nil, nil)
		assert.ErrorIs(t, err, csidh.ErrInvalidKey)
		assert.Nil(t, c)
	})
}

func TestSameCurve(t *testing.T) {
	ps := params.Toy419()
	if !SameCurve(ps.Base, ps.Base.Twist()) {
		t.Error("a curve and its twist share the j-invariant")
	}
	other := curves.MustMontgomery(ps.F, big.NewInt(158), big.NewInt(1))
	if SameCurve(ps.Base, other) {
		t.Error("expected different j-invariants")
	}
}

func TestKeyEncoding(t *testing.T) {
	ps := params.Toy419()
	k := &Key{Steps: []int64{-5, 0, 4}}
	b, err := MarshalKey(k)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xfb, 0x00, 0x00, 0x00, 0x04}, b)

	got, err := UnmarshalKey(ps, b)
	require.NoError(t, err)
	assert.Equal(t, k.Steps, got.Steps)

	_, err = UnmarshalKey(ps, b[:4])
	assert.ErrorIs(t, err, csidh.ErrInvalidKey)

	// 6 exceeds the toy bound
	_, err = UnmarshalKey(ps, []byte{0, 6, 0, 0, 0, 0})
	assert.ErrorIs(t, err, csidh.ErrInvalidKey)

	_, err = MarshalKey(&Key{Steps: []int64{40000}})
	assert.ErrorIs(t, err, csidh.ErrInvalidKey)

	k.Reset()
	assert.True(t, k.IsZero())
}

func TestCurveEncoding(t *testing.T) {
	ps := params.Toy419()
	rng := testRNG(t, "curve encoding")

	pub, err := PublicKey(ps, &Key{Steps: []int64{2, -1, 3}}, rng, nil)
	require.NoError(t, err)
	b := MarshalCurve(pub)
	assert.Len(t, b, CurveSize(ps))

	got, err := DecodePublicKey(ps, b, rng)
	require.NoError(t, err)
	assert.True(t, got.Isomorphic(pub))

	t.Run("twist encodes canonically", func(t *testing.T) {
		assert.Equal(t, MarshalCurve(pub), MarshalCurve(curves.MustMontgomery(ps.F, pub.A, big.NewInt(9))))
	})

	t.Run("rejects", func(t *testing.T) {
		_, err := UnmarshalCurve(ps, b[1:])
		assert.ErrorIs(t, err, csidh.ErrInvalidPublicKey)

		// A = 2 is singular
		_, err = UnmarshalCurve(ps, []byte{0, 2, 0, 1})
		assert.ErrorIs(t, err, csidh.ErrInvalidPublicKey)

		// B = 9 is a square other than 1
		_, err = UnmarshalCurve(ps, []byte{0, 158, 0, 9})
		assert.ErrorIs(t, err, csidh.ErrInvalidPublicKey)

		// 419 is out of range
		_, err = UnmarshalCurve(ps, []byte{0x01, 0xa3, 0, 1})
		assert.ErrorIs(t, err, csidh.ErrInvalidPublicKey)
	})

	t.Run("curve outside the class", func(t *testing.T) {
		found := false
		for a := int64(3); a < 419 && !found; a++ {
			c, err := curves.NewMontgomery(ps.F, big.NewInt(a), big.NewInt(1))
			if err != nil {
				continue
			}
			if ValidatePublicKey(ps, c, rng) != nil {
				found = true
			}
		}
		assert.True(t, found, "expected an ordinary curve to be rejected")
		assert.NoError(t, ValidatePublicKey(ps, ps.Base, rng))
	})
}

func TestPrecomputePublicKeys(t *testing.T) {
	ps := params.Toy419()
	rng := testRNG(t, "precompute")
	keys := make([]*Key, 6)
	for i := range keys {
		k, err := GenerateKey(ps, rng)
		require.NoError(t, err)
		keys[i] = k
	}

	pubs, err := PrecomputePublicKeys(context.Background(), ps, keys, 2, nil)
	require.NoError(t, err)
	require.Len(t, pubs, len(keys))
	for i, k := range keys {
		want, err := PublicKey(ps, k, rng, nil)
		require.NoError(t, err)
		assert.True(t, want.Isomorphic(pubs[i]), "key %d", i)
	}

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := PrecomputePublicKeys(ctx, ps, keys, 0, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSharedSecret(t *testing.T) {
	ps := params.Toy419()
	c := curves.MustMontgomery(ps.F, big.NewInt(158), big.NewInt(1))

	s1, err := SharedSecret(c, []byte("salt"), []byte("info"))
	require.NoError(t, err)
	assert.Len(t, s1, SecretSize)

	// the twist has the same j-invariant
	s2, err := SharedSecret(c.Twist(), []byte("salt"), []byte("info"))
	require.NoError(t, err)
	assert.Equal(t, s1, s2)

	s3, err := SharedSecret(c, []byte("salt"), []byte("other"))
	require.NoError(t, err)
	assert.NotEqual(t, s1, s3)

	s4, err := SharedSecret(ps.Base, []byte("salt"), []byte("info"))
	require.NoError(t, err)
	assert.NotEqual(t, s1, s4)
}
