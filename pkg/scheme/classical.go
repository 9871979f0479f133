package scheme

import (
	"encoding/base64"
	"errors"
	"io"

	"github.com/katzenpost/hpqc/nike"
	"github.com/katzenpost/hpqc/rand"
	"golang.org/x/crypto/blake2b"

	"github.com/smallyu/go-csidh/internal/crypto/curves"
)

var errEmptyKey = errors.New("group: empty key")

var _ nike.PrivateKey = (*groupPrivateKey)(nil)
var _ nike.PublicKey = (*groupPublicKey)(nil)
var _ nike.Scheme = (*GroupScheme)(nil)

// GroupScheme is Diffie-Hellman over a classical prime order group. The
// shared secret is the BLAKE2b-256 hash of the shared element.
type GroupScheme struct {
	group curves.Group
	rng   io.Reader
}

// NewGroupScheme wraps g as a NIKE. A nil rng selects the system entropy
// source.
func NewGroupScheme(g curves.Group, rng io.Reader) *GroupScheme {
	if rng == nil {
		rng = rand.Reader
	}
	return &GroupScheme{group: g, rng: rng}
}

// Secp256k1Scheme is the NIKE over secp256k1.
func Secp256k1Scheme(rng io.Reader) *GroupScheme {
	return NewGroupScheme(curves.NewSecp256k1(), rng)
}

// Edwards25519Scheme is the NIKE over the prime order subgroup of
// edwards25519.
func Edwards25519Scheme(rng io.Reader) *GroupScheme {
	return NewGroupScheme(curves.NewEd25519(), rng)
}

func (s *GroupScheme) Name() string {
	return s.group.Name()
}

func (s *GroupScheme) PublicKeySize() int {
	return s.group.ElementSize()
}

func (s *GroupScheme) PrivateKeySize() int {
	return s.group.ScalarSize()
}

func (s *GroupScheme) newPrivateKey(rng io.Reader) (*groupPrivateKey, error) {
	k, err := s.group.NewScalar(rng)
	if err != nil {
		return nil, err
	}
	return &groupPrivateKey{scheme: s, scalar: k}, nil
}

func (s *GroupScheme) GeneratePrivateKey(rng io.Reader) nike.PrivateKey {
	k, err := s.newPrivateKey(rng)
	if err != nil {
		panic(err)
	}
	return k
}

func (s *GroupScheme) GenerateKeyPairFromEntropy(rng io.Reader) (nike.PublicKey, nike.PrivateKey, error) {
	k, err := s.newPrivateKey(rng)
	if err != nil {
		return nil, nil, err
	}
	return k.Public(), k, nil
}

func (s *GroupScheme) GenerateKeyPair() (nike.PublicKey, nike.PrivateKey, error) {
	return s.GenerateKeyPairFromEntropy(s.rng)
}

// DeriveSecret panics if the shared element is the identity.
func (s *GroupScheme) DeriveSecret(privKey nike.PrivateKey, pubKey nike.PublicKey) []byte {
	shared, err := curves.SharedElement(privKey.(*groupPrivateKey).scalar, pubKey.(*groupPublicKey).element)
	if err != nil {
		panic(err)
	}
	h := blake2b.Sum256(shared)
	return h[:]
}

func (s *GroupScheme) DerivePublicKey(privKey nike.PrivateKey) nike.PublicKey {
	k := privKey.(*groupPrivateKey)
	return &groupPublicKey{scheme: s, element: s.group.BasePoint().ScalarMult(k.scalar)}
}

func (s *GroupScheme) Blind(groupMember nike.PublicKey, blindingFactor nike.PrivateKey) nike.PublicKey {
	pub := &groupPublicKey{scheme: s, element: groupMember.(*groupPublicKey).element}
	if err := pub.Blind(blindingFactor); err != nil {
		panic(err)
	}
	return pub
}

func (s *GroupScheme) NewEmptyPublicKey() nike.PublicKey {
	return &groupPublicKey{scheme: s}
}

func (s *GroupScheme) NewEmptyPrivateKey() nike.PrivateKey {
	return &groupPrivateKey{scheme: s}
}

func (s *GroupScheme) UnmarshalBinaryPublicKey(b []byte) (nike.PublicKey, error) {
	pub := &groupPublicKey{scheme: s}
	if err := pub.FromBytes(b); err != nil {
		return nil, err
	}
	return pub, nil
}

func (s *GroupScheme) UnmarshalBinaryPrivateKey(b []byte) (nike.PrivateKey, error) {
	priv := &groupPrivateKey{scheme: s}
	if err := priv.FromBytes(b); err != nil {
		return nil, err
	}
	return priv, nil
}

type groupPrivateKey struct {
	scheme *GroupScheme
	scalar curves.Scalar
}

func (p *groupPrivateKey) Public() nike.PublicKey {
	return p.scheme.DerivePublicKey(p)
}

func (p *groupPrivateKey) Reset() {
	p.scalar = nil
}

func (p *groupPrivateKey) Bytes() []byte {
	if p.scalar == nil {
		return make([]byte, p.scheme.PrivateKeySize())
	}
	return p.scalar.Bytes()
}

func (p *groupPrivateKey) FromBytes(data []byte) error {
	s, err := p.scheme.group.NewScalarFromBytes(data)
	if err != nil {
		return err
	}
	p.scalar = s
	return nil
}

func (p *groupPrivateKey) MarshalBinary() ([]byte, error) {
	return p.Bytes(), nil
}

func (p *groupPrivateKey) MarshalText() ([]byte, error) {
	return []byte(base64.StdEncoding.EncodeToString(p.Bytes())), nil
}

func (p *groupPrivateKey) UnmarshalBinary(data []byte) error {
	return p.FromBytes(data)
}

func (p *groupPrivateKey) UnmarshalText(data []byte) error {
	raw, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return err
	}
	return p.FromBytes(raw)
}

type groupPublicKey struct {
	scheme  *GroupScheme
	element curves.Element
}

func (p *groupPublicKey) Blind(blindingFactor nike.PrivateKey) error {
	k, ok := blindingFactor.(*groupPrivateKey)
	if !ok || k.scalar == nil || p.element == nil {
		return errEmptyKey
	}
	p.element = p.element.ScalarMult(k.scalar)
	return nil
}

func (p *groupPublicKey) Reset() {
	p.element = nil
}

func (p *groupPublicKey) Bytes() []byte {
	if p.element == nil {
		return make([]byte, p.scheme.PublicKeySize())
	}
	return p.element.Bytes()
}

func (p *groupPublicKey) FromBytes(data []byte) error {
	e, err := p.scheme.group.NewElementFromBytes(data)
	if err != nil {
		return err
	}
	p.element = e
	return nil
}

func (p *groupPublicKey) MarshalBinary() ([]byte, error) {
	return p.Bytes(), nil
}

func (p *groupPublicKey) MarshalText() ([]byte, error) {
	return []byte(base64.StdEncoding.EncodeToString(p.Bytes())), nil
}

func (p *groupPublicKey) UnmarshalBinary(data []byte) error {
	return p.FromBytes(data)
}

func (p *groupPublicKey) UnmarshalText(data []byte) error {
	raw, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return err
	}
	return p.FromBytes(raw)
}
