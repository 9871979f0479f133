package params

import (
	"fmt"
	"math/big"

	"github.com/smallyu/go-csidh/internal/config"
)

// FromConfig builds the parameter set selected by a validated Parameters
// section.
func FromConfig(cfg *config.Parameters) (*Params, error) {
	if !cfg.Custom() {
		ps, err := ByName(cfg.Name)
		if err != nil {
			return nil, err
		}
		if cfg.MaxSamplingRetries > 0 {
			ps.MaxSamplingRetries = cfg.MaxSamplingRetries
		}
		return ps, nil
	}

	ints := make([]*big.Int, 0, 4)
	for _, s := range []struct{ name, v string }{
		{"P", cfg.P}, {"A", cfg.A}, {"B", cfg.B}, {"Trace", cfg.Trace},
	} {
		n, ok := new(big.Int).SetString(s.v, 10)
		if !ok {
			return nil, fmt.Errorf("params: %s is not a decimal integer: %q", s.name, s.v)
		}
		ints = append(ints, n)
	}

	primes := make([]Prime, 0, len(cfg.Primes))
	for _, e := range cfg.Primes {
		kind, err := ParseKind(e.Kind)
		if err != nil {
			return nil, err
		}
		primes = append(primes, Prime{
			L:          e.L,
			Kind:       kind,
			LowerBound: e.LowerBound,
			UpperBound: e.UpperBound,
			Backward:   e.Backward,
		})
	}
	return New(cfg.Name, ints[0], ints[1], ints[2], ints[3], primes, cfg.MaxSamplingRetries)
}
