// Package keygen generates private keys and applies them to curves.
//
// A private key holds one signed step count per configured prime. Applying
// it walks the curve prime by prime in configuration order; because the
// walks commute, two parties applying their keys in either order reach
// isomorphic curves.
package keygen

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"

	hpqcrand "github.com/katzenpost/hpqc/rand"
	"golang.org/x/sync/errgroup"
	"gopkg.in/op/go-logging.v1"

	"github.com/smallyu/go-csidh/internal/crypto/curves"
	"github.com/smallyu/go-csidh/internal/instrument"
	"github.com/smallyu/go-csidh/internal/isogeny"
	"github.com/smallyu/go-csidh/internal/log"
	"github.com/smallyu/go-csidh/internal/params"
	"github.com/smallyu/go-csidh/pkg/csidh"
)

// Key is a private key: Steps[i] steps of degree Primes[i].L.
type Key struct {
	Steps []int64
}

func (k *Key) String() string {
	parts := make([]string, len(k.Steps))
	for i, s := range k.Steps {
		parts[i] = fmt.Sprintf("%+d", s)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// IsZero reports whether every step count is zero. Such a key maps every
// curve to itself.
func (k *Key) IsZero() bool {
	for _, s := range k.Steps {
		if s != 0 {
			return false
		}
	}
	return true
}

// Reset zeroes the key.
func (k *Key) Reset() {
	for i := range k.Steps {
		k.Steps[i] = 0
	}
}

// Validate checks k against the prime list of ps.
func (k *Key) Validate(ps *params.Params) error {
	if len(k.Steps) != len(ps.Primes) {
		return fmt.Errorf("%w: %d steps for %d primes", csidh.ErrInvalidKey, len(k.Steps), len(ps.Primes))
	}
	for i, s := range k.Steps {
		pr := ps.Primes[i]
		switch {
		case s > pr.UpperBound:
			return fmt.Errorf("%w: step %d for l=%d exceeds %d", csidh.ErrInvalidKey, s, pr.L, pr.UpperBound)
		case s < 0 && !pr.Backward:
			return fmt.Errorf("%w: l=%d only walks forward", csidh.ErrInvalidKey, pr.L)
		case s < -pr.UpperBound:
			return fmt.Errorf("%w: step %d for l=%d below -%d", csidh.ErrInvalidKey, s, pr.L, pr.UpperBound)
		}
	}
	return nil
}

// GenerateKey samples a private key. For every prime the number of steps
// is uniform in [0, UpperBound], negated with probability 1/2 when backward
// steps are allowed.
func GenerateKey(ps *params.Params, rng io.Reader) (*Key, error) {
	if rng == nil {
		rng = hpqcrand.Reader
	}
	key := &Key{Steps: make([]int64, len(ps.Primes))}
	var sign [1]byte
	for i, pr := range ps.Primes {
		backward := false
		if pr.Backward {
			if _, err := io.ReadFull(rng, sign[:]); err != nil {
				return nil, fmt.Errorf("failed to sample direction: %w", err)
			}
			backward = sign[0]&1 == 1
		}
		n, err := rand.Int(rng, big.NewInt(pr.UpperBound+1))
		if err != nil {
			return nil, fmt.Errorf("failed to sample step count: %w", err)
		}
		key.Steps[i] = n.Int64()
		if backward {
			key.Steps[i] = -key.Steps[i]
		}
	}
	return key, nil
}

// ApplyKey walks c by every step count of key, in configuration order. On
// failure the error is a *csidh.WalkError naming the prime, and no curve is
// returned. A nil rng uses the system RNG; a nil logger discards output.
// Running time depends on the key.
func ApplyKey(ps *params.Params, c *curves.Montgomery, key *Key, rng io.Reader, logger *logging.Logger) (*curves.Montgomery, error) {
	if err := key.Validate(ps); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Discard("keygen")
	}
	wk := isogeny.NewWalker(ps, rng, logger)
	acc := c
	for i, pr := range ps.Primes {
		k := key.Steps[i]
		next, err := wk.Walk(acc, pr.L, k)
		if err != nil {
			return nil, csidh.NewWalkError(i, pr.L, k, err)
		}
		if k != 0 {
			logger.Infof("l=%d: %+d steps, j=%s", pr.L, k, next.JInvariant())
		}
		acc = next
	}
	instrument.KeyApplied()
	return acc.Canonical(), nil
}

// PublicKey applies key to the base curve of ps.
func PublicKey(ps *params.Params, key *Key, rng io.Reader, logger *logging.Logger) (*curves.Montgomery, error) {
	return ApplyKey(ps, ps.Base, key, rng, logger)
}

// SameCurve reports whether a and b have the same j-invariant.
func SameCurve(a, b *curves.Montgomery) bool {
	return a.F.Equal(a.JInvariant(), b.JInvariant())
}

// PrecomputePublicKeys computes the public keys of many private keys
// concurrently, at most limit at a time (no limit when limit <= 0). Each
// key application is sequential; only independent keys run in parallel.
// The system RNG is used since it is safe for concurrent use.
func PrecomputePublicKeys(ctx context.Context, ps *params.Params, keys []*Key, limit int, logger *logging.Logger) ([]*curves.Montgomery, error) {
	out := make([]*curves.Montgomery, len(keys))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pub, err := PublicKey(ps, key, nil, logger)
			if err != nil {
				return fmt.Errorf("key %d: %w", i, err)
			}
			out[i] = pub
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
