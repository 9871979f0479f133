package scheme

import (
	"encoding/base64"
	"errors"
	"io"

	"github.com/katzenpost/hpqc/nike"
)

var errHybridSize = errors.New("hybrid: invalid key size")

var _ nike.PrivateKey = (*hybridPrivateKey)(nil)
var _ nike.PublicKey = (*hybridPublicKey)(nil)
var _ nike.Scheme = (*Hybrid)(nil)

// Hybrid combines two NIKEs. Keys are the concatenation of the component
// keys and the shared secret is the concatenation of both secrets.
type Hybrid struct {
	name   string
	first  nike.Scheme
	second nike.Scheme
}

// NewHybrid returns the combination of first and second.
func NewHybrid(name string, first, second nike.Scheme) *Hybrid {
	return &Hybrid{name: name, first: first, second: second}
}

func (s *Hybrid) First() nike.Scheme {
	return s.first
}

func (s *Hybrid) Second() nike.Scheme {
	return s.second
}

func (s *Hybrid) Name() string {
	return s.name
}

func (s *Hybrid) PublicKeySize() int {
	return s.first.PublicKeySize() + s.second.PublicKeySize()
}

func (s *Hybrid) PrivateKeySize() int {
	return s.first.PrivateKeySize() + s.second.PrivateKeySize()
}

func (s *Hybrid) GeneratePrivateKey(rng io.Reader) nike.PrivateKey {
	return &hybridPrivateKey{
		scheme: s,
		first:  s.first.GeneratePrivateKey(rng),
		second: s.second.GeneratePrivateKey(rng),
	}
}

func (s *Hybrid) GenerateKeyPairFromEntropy(rng io.Reader) (nike.PublicKey, nike.PrivateKey, error) {
	pub1, priv1, err := s.first.GenerateKeyPairFromEntropy(rng)
	if err != nil {
		return nil, nil, err
	}
	pub2, priv2, err := s.second.GenerateKeyPairFromEntropy(rng)
	if err != nil {
		return nil, nil, err
	}
	return &hybridPublicKey{scheme: s, first: pub1, second: pub2},
		&hybridPrivateKey{scheme: s, first: priv1, second: priv2}, nil
}

func (s *Hybrid) GenerateKeyPair() (nike.PublicKey, nike.PrivateKey, error) {
	pub1, priv1, err := s.first.GenerateKeyPair()
	if err != nil {
		return nil, nil, err
	}
	pub2, priv2, err := s.second.GenerateKeyPair()
	if err != nil {
		return nil, nil, err
	}
	return &hybridPublicKey{scheme: s, first: pub1, second: pub2},
		&hybridPrivateKey{scheme: s, first: priv1, second: priv2}, nil
}

func (s *Hybrid) DeriveSecret(privKey nike.PrivateKey, pubKey nike.PublicKey) []byte {
	priv := privKey.(*hybridPrivateKey)
	pub := pubKey.(*hybridPublicKey)
	return append(s.first.DeriveSecret(priv.first, pub.first), s.second.DeriveSecret(priv.second, pub.second)...)
}

func (s *Hybrid) DerivePublicKey(privKey nike.PrivateKey) nike.PublicKey {
	priv := privKey.(*hybridPrivateKey)
	return &hybridPublicKey{
		scheme: s,
		first:  s.first.DerivePublicKey(priv.first),
		second: s.second.DerivePublicKey(priv.second),
	}
}

func (s *Hybrid) Blind(groupMember nike.PublicKey, blindingFactor nike.PrivateKey) nike.PublicKey {
	pub := groupMember.(*hybridPublicKey)
	priv := blindingFactor.(*hybridPrivateKey)
	return &hybridPublicKey{
		scheme: s,
		first:  s.first.Blind(pub.first, priv.first),
		second: s.second.Blind(pub.second, priv.second),
	}
}

func (s *Hybrid) NewEmptyPublicKey() nike.PublicKey {
	return &hybridPublicKey{
		scheme: s,
		first:  s.first.NewEmptyPublicKey(),
		second: s.second.NewEmptyPublicKey(),
	}
}

func (s *Hybrid) NewEmptyPrivateKey() nike.PrivateKey {
	return &hybridPrivateKey{
		scheme: s,
		first:  s.first.NewEmptyPrivateKey(),
		second: s.second.NewEmptyPrivateKey(),
	}
}

func (s *Hybrid) UnmarshalBinaryPublicKey(b []byte) (nike.PublicKey, error) {
	pub := s.NewEmptyPublicKey()
	if err := pub.FromBytes(b); err != nil {
		return nil, err
	}
	return pub, nil
}

func (s *Hybrid) UnmarshalBinaryPrivateKey(b []byte) (nike.PrivateKey, error) {
	priv := s.NewEmptyPrivateKey()
	if err := priv.FromBytes(b); err != nil {
		return nil, err
	}
	return priv, nil
}

type hybridPrivateKey struct {
	scheme *Hybrid
	first  nike.PrivateKey
	second nike.PrivateKey
}

func (p *hybridPrivateKey) Public() nike.PublicKey {
	return p.scheme.DerivePublicKey(p)
}

func (p *hybridPrivateKey) Reset() {
	p.first.Reset()
	p.second.Reset()
}

func (p *hybridPrivateKey) Bytes() []byte {
	return append(p.first.Bytes(), p.second.Bytes()...)
}

func (p *hybridPrivateKey) FromBytes(data []byte) error {
	n := p.scheme.first.PrivateKeySize()
	if len(data) != p.scheme.PrivateKeySize() {
		return errHybridSize
	}
	if err := p.first.FromBytes(data[:n]); err != nil {
		return err
	}
	return p.second.FromBytes(data[n:])
}

func (p *hybridPrivateKey) MarshalBinary() ([]byte, error) {
	return p.Bytes(), nil
}

func (p *hybridPrivateKey) MarshalText() ([]byte, error) {
	return []byte(base64.StdEncoding.EncodeToString(p.Bytes())), nil
}

func (p *hybridPrivateKey) UnmarshalBinary(data []byte) error {
	return p.FromBytes(data)
}

func (p *hybridPrivateKey) UnmarshalText(data []byte) error {
	raw, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return err
	}
	return p.FromBytes(raw)
}

type hybridPublicKey struct {
	scheme *Hybrid
	first  nike.PublicKey
	second nike.PublicKey
}

func (p *hybridPublicKey) Blind(blindingFactor nike.PrivateKey) error {
	priv, ok := blindingFactor.(*hybridPrivateKey)
	if !ok {
		return errHybridSize
	}
	if err := p.first.Blind(priv.first); err != nil {
		return err
	}
	return p.second.Blind(priv.second)
}

func (p *hybridPublicKey) Reset() {
	p.first.Reset()
	p.second.Reset()
}

func (p *hybridPublicKey) Bytes() []byte {
	return append(p.first.Bytes(), p.second.Bytes()...)
}

func (p *hybridPublicKey) FromBytes(data []byte) error {
	n := p.scheme.first.PublicKeySize()
	if len(data) != p.scheme.PublicKeySize() {
		return errHybridSize
	}
	if err := p.first.FromBytes(data[:n]); err != nil {
		return err
	}
	return p.second.FromBytes(data[n:])
}

func (p *hybridPublicKey) MarshalBinary() ([]byte, error) {
	return p.Bytes(), nil
}

func (p *hybridPublicKey) MarshalText() ([]byte, error) {
	return []byte(base64.StdEncoding.EncodeToString(p.Bytes())), nil
}

func (p *hybridPublicKey) UnmarshalBinary(data []byte) error {
	return p.FromBytes(data)
}

func (p *hybridPublicKey) UnmarshalText(data []byte) error {
	raw, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return err
	}
	return p.FromBytes(raw)
}
