package scheme

import (
	"io"
	"testing"

	"github.com/katzenpost/hpqc/nike"
	"github.com/katzenpost/hpqc/rand"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/smallyu/go-csidh/internal/params"
	"github.com/smallyu/go-csidh/internal/protocol/keygen"
)

func testRNG(t testing.TB, seed string) io.Reader {
	key := blake2b.Sum256([]byte(seed))
	rng, err := rand.NewDeterministicRandReader(key[:])
	require.NoError(t, err)
	return rng
}

func testSchemes() []nike.Scheme {
	ps := params.Toy419()
	return []nike.Scheme{
		NewScheme(ps, nil),
		Secp256k1Scheme(nil),
		Edwards25519Scheme(nil),
		X25519Hybrid(ps),
		Secp256k1Hybrid(ps),
	}
}

func TestNIKE(t *testing.T) {
	for _, s := range testSchemes() {
		t.Run(s.Name(), func(t *testing.T) {
			require := require.New(t)
			assert := assert.New(t)
			rng := testRNG(t, s.Name())

			alicePub, alicePriv, err := s.GenerateKeyPairFromEntropy(rng)
			require.NoError(err)
			bobPub, bobPriv, err := s.GenerateKeyPairFromEntropy(rng)
			require.NoError(err)

			assert.Len(alicePub.Bytes(), s.PublicKeySize())
			assert.Len(alicePriv.Bytes(), s.PrivateKeySize())

			ss1 := s.DeriveSecret(alicePriv, bobPub)
			ss2 := s.DeriveSecret(bobPriv, alicePub)
			assert.Equal(ss1, ss2)
			assert.NotEmpty(ss1)

			assert.Equal(alicePub.Bytes(), s.DerivePublicKey(alicePriv).Bytes())
			assert.Equal(alicePub.Bytes(), alicePriv.Public().Bytes())

			pub2, err := s.UnmarshalBinaryPublicKey(alicePub.Bytes())
			require.NoError(err)
			assert.Equal(alicePub.Bytes(), pub2.Bytes())

			priv2, err := s.UnmarshalBinaryPrivateKey(alicePriv.Bytes())
			require.NoError(err)
			assert.Equal(ss1, s.DeriveSecret(priv2, bobPub))

			text, err := alicePub.MarshalText()
			require.NoError(err)
			pub3 := s.NewEmptyPublicKey()
			require.NoError(pub3.UnmarshalText(text))
			assert.Equal(alicePub.Bytes(), pub3.Bytes())

			text, err = bobPriv.MarshalText()
			require.NoError(err)
			priv3 := s.NewEmptyPrivateKey()
			require.NoError(priv3.UnmarshalText(text))
			assert.Equal(bobPriv.Bytes(), priv3.Bytes())

			_, err = s.UnmarshalBinaryPublicKey(alicePub.Bytes()[1:])
			assert.Error(err)
		})
	}
}

func TestBlind(t *testing.T) {
	for _, s := range testSchemes() {
		t.Run(s.Name(), func(t *testing.T) {
			rng := testRNG(t, "blind "+s.Name())
			pub, _, err := s.GenerateKeyPairFromEntropy(rng)
			require.NoError(t, err)
			a := s.GeneratePrivateKey(rng)
			b := s.GeneratePrivateKey(rng)

			ab := s.Blind(s.Blind(pub, a), b)
			ba := s.Blind(s.Blind(pub, b), a)
			assert.Equal(t, ab.Bytes(), ba.Bytes())

			// in place
			inPlace, err := s.UnmarshalBinaryPublicKey(pub.Bytes())
			require.NoError(t, err)
			require.NoError(t, inPlace.Blind(a))
			require.NoError(t, inPlace.Blind(b))
			assert.Equal(t, ab.Bytes(), inPlace.Bytes())
		})
	}
}

func TestCSIDHScheme(t *testing.T) {
	ps := params.Toy419()
	s := NewScheme(ps, testRNG(t, "csidh"))
	assert.Equal(t, "CSIDH-toy419", s.Name())
	assert.Equal(t, 4, s.PublicKeySize())
	assert.Equal(t, 6, s.PrivateKeySize())

	t.Run("known curve", func(t *testing.T) {
		priv, err := s.UnmarshalBinaryPrivateKey([]byte{0, 1, 0, 1, 0, 0})
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 1, 0}, priv.(*PrivateKey).Key().Steps)
		pub := priv.Public().(*PublicKey)
		assert.Equal(t, int64(390), pub.Curve().A.Int64())
		assert.Equal(t, []byte{0x01, 0x86, 0, 1}, pub.Bytes())
	})

	t.Run("empty and reset", func(t *testing.T) {
		pub := s.NewEmptyPublicKey()
		assert.Equal(t, make([]byte, 4), pub.Bytes())
		priv := s.NewEmptyPrivateKey()
		assert.Equal(t, make([]byte, 6), priv.Bytes())
		assert.Equal(t, keygen.MarshalCurve(ps.Base), priv.Public().Bytes())

		k := s.GeneratePrivateKey(testRNG(t, "reset"))
		k.Reset()
		assert.True(t, k.(*PrivateKey).Key().IsZero())
	})

	t.Run("rejects", func(t *testing.T) {
		// step 6 exceeds the bound
		_, err := s.UnmarshalBinaryPrivateKey([]byte{0, 6, 0, 0, 0, 0})
		assert.Error(t, err)
		_, err = s.UnmarshalBinaryPublicKey([]byte{0, 2, 0, 1})
		assert.Error(t, err)

		other := NewScheme(params.Toy1021019(), nil)
		assert.Panics(t, func() {
			s.DeriveSecret(s.NewEmptyPrivateKey(), other.NewEmptyPublicKey())
		})
		assert.Panics(t, func() {
			s.DeriveSecret(s.NewEmptyPrivateKey(), s.NewEmptyPublicKey())
		})
	})
}

func TestByName(t *testing.T) {
	names := Names()
	assert.Contains(t, names, "CSIDH-toy419")
	assert.Contains(t, names, "CSIDH-dks512-X25519")
	assert.Contains(t, names, "secp256k1")
	assert.Contains(t, names, "edwards25519")
	assert.Contains(t, names, "x25519")

	s, err := ByName("csidh-TOY419")
	require.NoError(t, err)
	assert.Equal(t, "CSIDH-toy419", s.Name())

	h, err := ByName("CSIDH-toy419-X25519")
	require.NoError(t, err)
	assert.Equal(t, 32+4, h.PublicKeySize())
	assert.Equal(t, "x25519", h.(*Hybrid).First().Name())
	assert.Equal(t, "CSIDH-toy419", h.(*Hybrid).Second().Name())

	_, err = ByName("rsa")
	assert.Error(t, err)
}
