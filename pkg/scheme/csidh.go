// Package scheme exposes the isogeny key exchange as a hpqc nike.Scheme, next
// to classical Diffie-Hellman adapters and a hybrid combiner.
package scheme

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/katzenpost/hpqc/nike"
	"github.com/katzenpost/hpqc/rand"
	"gopkg.in/op/go-logging.v1"

	"github.com/smallyu/go-csidh/internal/crypto/curves"
	"github.com/smallyu/go-csidh/internal/log"
	"github.com/smallyu/go-csidh/internal/params"
	"github.com/smallyu/go-csidh/internal/protocol/keygen"
)

var (
	errInvalidKey  = errors.New("csidh: invalid key")
	errWrongScheme = errors.New("csidh: key belongs to another scheme")
)

var _ nike.PrivateKey = (*PrivateKey)(nil)
var _ nike.PublicKey = (*PublicKey)(nil)
var _ nike.Scheme = (*Scheme)(nil)

// Scheme is the key exchange over one parameter set.
type Scheme struct {
	params *params.Params
	rng    io.Reader
	log    *logging.Logger
}

// NewScheme returns the scheme for ps. rng is used by GenerateKeyPair and
// for torsion sampling; nil selects the system entropy source.
func NewScheme(ps *params.Params, rng io.Reader) *Scheme {
	if rng == nil {
		rng = rand.Reader
	}
	return &Scheme{params: ps, rng: rng, log: log.Discard("scheme")}
}

// SetLogger directs walk logging to l.
func (s *Scheme) SetLogger(l *logging.Logger) {
	s.log = l
}

// Params returns the parameter set of the scheme.
func (s *Scheme) Params() *params.Params {
	return s.params
}

func (s *Scheme) Name() string {
	return "CSIDH-" + s.params.Name
}

// PublicKeySize returns the size in bytes of the public key.
func (s *Scheme) PublicKeySize() int {
	return keygen.CurveSize(s.params)
}

// PrivateKeySize returns the size in bytes of the private key.
func (s *Scheme) PrivateKeySize() int {
	return keygen.KeySize(s.params)
}

func (s *Scheme) GeneratePrivateKey(rng io.Reader) nike.PrivateKey {
	k, err := keygen.GenerateKey(s.params, rng)
	if err != nil {
		panic(err)
	}
	return &PrivateKey{scheme: s, key: k}
}

func (s *Scheme) GenerateKeyPairFromEntropy(rng io.Reader) (nike.PublicKey, nike.PrivateKey, error) {
	k, err := keygen.GenerateKey(s.params, rng)
	if err != nil {
		return nil, nil, err
	}
	priv := &PrivateKey{scheme: s, key: k}
	pub, err := priv.publicKey()
	if err != nil {
		return nil, nil, err
	}
	return pub, priv, nil
}

func (s *Scheme) GenerateKeyPair() (nike.PublicKey, nike.PrivateKey, error) {
	return s.GenerateKeyPairFromEntropy(s.rng)
}

// DeriveSecret applies privKey to pubKey and hashes the j-invariant of the
// shared curve. It panics if the walk fails.
func (s *Scheme) DeriveSecret(privKey nike.PrivateKey, pubKey nike.PublicKey) []byte {
	shared, err := s.sharedCurve(privKey, pubKey)
	if err != nil {
		panic(err)
	}
	secret, err := keygen.SharedSecret(shared, nil, []byte(s.Name()))
	if err != nil {
		panic(err)
	}
	return secret
}

func (s *Scheme) sharedCurve(privKey nike.PrivateKey, pubKey nike.PublicKey) (*curves.Montgomery, error) {
	priv, ok := privKey.(*PrivateKey)
	if !ok || priv.scheme.params.Name != s.params.Name {
		return nil, errWrongScheme
	}
	pub, ok := pubKey.(*PublicKey)
	if !ok || pub.scheme.params.Name != s.params.Name {
		return nil, errWrongScheme
	}
	if pub.curve == nil {
		return nil, errInvalidKey
	}
	return keygen.ApplyKey(s.params, pub.curve, priv.key, s.rng, s.log)
}

// DerivePublicKey derives a public key given a private key.
func (s *Scheme) DerivePublicKey(privKey nike.PrivateKey) nike.PublicKey {
	pub, err := privKey.(*PrivateKey).publicKey()
	if err != nil {
		panic(err)
	}
	return pub
}

// Blind applies blindingFactor to groupMember.
func (s *Scheme) Blind(groupMember nike.PublicKey, blindingFactor nike.PrivateKey) nike.PublicKey {
	shared, err := s.sharedCurve(blindingFactor, groupMember)
	if err != nil {
		panic(err)
	}
	return &PublicKey{scheme: s, curve: shared}
}

func (s *Scheme) NewEmptyPublicKey() nike.PublicKey {
	return &PublicKey{scheme: s}
}

func (s *Scheme) NewEmptyPrivateKey() nike.PrivateKey {
	return &PrivateKey{scheme: s, key: &keygen.Key{Steps: make([]int64, len(s.params.Primes))}}
}

// UnmarshalBinaryPublicKey decodes and validates a public key.
func (s *Scheme) UnmarshalBinaryPublicKey(b []byte) (nike.PublicKey, error) {
	pub := &PublicKey{scheme: s}
	if err := pub.FromBytes(b); err != nil {
		return nil, err
	}
	return pub, nil
}

// UnmarshalBinaryPrivateKey decodes and validates a private key.
func (s *Scheme) UnmarshalBinaryPrivateKey(b []byte) (nike.PrivateKey, error) {
	priv := &PrivateKey{scheme: s}
	if err := priv.FromBytes(b); err != nil {
		return nil, err
	}
	return priv, nil
}

// PrivateKey holds one signed step count per prime.
type PrivateKey struct {
	sync.Mutex

	scheme *Scheme
	key    *keygen.Key
	pub    *PublicKey
}

// Key returns the underlying step vector.
func (p *PrivateKey) Key() *keygen.Key {
	return p.key
}

func (p *PrivateKey) publicKey() (*PublicKey, error) {
	p.Lock()
	defer p.Unlock()
	if p.pub == nil {
		c, err := keygen.PublicKey(p.scheme.params, p.key, p.scheme.rng, p.scheme.log)
		if err != nil {
			return nil, err
		}
		p.pub = &PublicKey{scheme: p.scheme, curve: c}
	}
	return &PublicKey{scheme: p.scheme, curve: p.pub.curve}, nil
}

func (p *PrivateKey) Public() nike.PublicKey {
	return p.scheme.DerivePublicKey(p)
}

func (p *PrivateKey) Reset() {
	p.Lock()
	defer p.Unlock()
	p.key.Reset()
	p.pub = nil
}

func (p *PrivateKey) Bytes() []byte {
	b, err := keygen.MarshalKey(p.key)
	if err != nil {
		panic(err)
	}
	return b
}

func (p *PrivateKey) FromBytes(data []byte) error {
	k, err := keygen.UnmarshalKey(p.scheme.params, data)
	if err != nil {
		return err
	}
	p.Lock()
	defer p.Unlock()
	p.key = k
	p.pub = nil
	return nil
}

func (p *PrivateKey) MarshalBinary() ([]byte, error) {
	return keygen.MarshalKey(p.key)
}

func (p *PrivateKey) MarshalText() ([]byte, error) {
	return []byte(base64.StdEncoding.EncodeToString(p.Bytes())), nil
}

func (p *PrivateKey) UnmarshalBinary(data []byte) error {
	return p.FromBytes(data)
}

func (p *PrivateKey) UnmarshalText(data []byte) error {
	raw, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return err
	}
	return p.FromBytes(raw)
}

// PublicKey is a curve of the isogeny class, stored in canonical form.
type PublicKey struct {
	scheme *Scheme
	curve  *curves.Montgomery
}

// Curve returns the public curve, or nil for an empty key.
func (p *PublicKey) Curve() *curves.Montgomery {
	return p.curve
}

// Blind applies blindingFactor to the key in place.
func (p *PublicKey) Blind(blindingFactor nike.PrivateKey) error {
	shared, err := p.scheme.sharedCurve(blindingFactor, p)
	if err != nil {
		return fmt.Errorf("failed to blind: %w", err)
	}
	p.curve = shared
	return nil
}

func (p *PublicKey) Reset() {
	p.curve = nil
}

func (p *PublicKey) Bytes() []byte {
	if p.curve == nil {
		return make([]byte, p.scheme.PublicKeySize())
	}
	return keygen.MarshalCurve(p.curve)
}

func (p *PublicKey) FromBytes(data []byte) error {
	c, err := keygen.DecodePublicKey(p.scheme.params, data, p.scheme.rng)
	if err != nil {
		return err
	}
	p.curve = c
	return nil
}

func (p *PublicKey) MarshalBinary() ([]byte, error) {
	return p.Bytes(), nil
}

func (p *PublicKey) MarshalText() ([]byte, error) {
	return []byte(base64.StdEncoding.EncodeToString(p.Bytes())), nil
}

func (p *PublicKey) UnmarshalBinary(data []byte) error {
	return p.FromBytes(data)
}

func (p *PublicKey) UnmarshalText(data []byte) error {
	raw, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return err
	}
	return p.FromBytes(raw)
}
