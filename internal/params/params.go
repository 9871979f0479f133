// Package params defines the parameter sets of the key exchange: the base
// field and curve, the Frobenius trace of its isogeny class and the primes
// used for walking.
package params

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/katzenpost/hpqc/rand"

	"github.com/smallyu/go-csidh/internal/crypto/curves"
	"github.com/smallyu/go-csidh/internal/crypto/field"
	"github.com/smallyu/go-csidh/pkg/csidh"
)

var (
	ErrUnknownParams = errors.New("params: unknown parameter set")
	ErrInvalidPrime  = errors.New("params: invalid prime configuration")
	ErrInvalidTrace  = errors.New("params: base curve does not match the trace")
)

// MaxStepCount is the largest bound a private key encoding can carry.
const MaxStepCount = math.MaxInt16

const baseCurveChecks = 4

// Kind selects how steps of a given degree are computed.
type Kind int

const (
	// Radical steps chain l-th roots on a Tate normal form (l = 3, 5, 7).
	Radical Kind = iota
	// Velu steps evaluate the kernel polynomial with the square-root
	// Velu formulas and resample a kernel point for every step.
	Velu
)

func (k Kind) String() string {
	switch k {
	case Radical:
		return "radical"
	case Velu:
		return "velu"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind parses "radical" or "velu".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "radical":
		return Radical, nil
	case "velu":
		return Velu, nil
	default:
		return 0, fmt.Errorf("params: unknown isogeny kind %q", s)
	}
}

// Prime configures the walk for one degree l.
type Prime struct {
	L          int
	Kind       Kind
	LowerBound int64 // informational, at most UpperBound
	UpperBound int64 // largest step count in either direction
	Backward   bool
}

func (p Prime) String() string {
	if p.Backward {
		return fmt.Sprintf("l=%d %s [-%d, %d] both", p.L, p.Kind, p.UpperBound, p.UpperBound)
	}
	return fmt.Sprintf("l=%d %s [0, %d] forward", p.L, p.Kind, p.UpperBound)
}

// Params is an immutable parameter set. Build one with New or a built-in
// constructor; it is safe for concurrent use.
type Params struct {
	Name               string
	F                  *field.Field
	Base               *curves.Montgomery
	Trace              *big.Int
	Primes             []Prime
	MaxSamplingRetries int
}

// New assembles and validates a parameter set.
func New(name string, p, a, b, trace *big.Int, primes []Prime, maxRetries int) (*Params, error) {
	f, err := field.New(p)
	if err != nil {
		return nil, err
	}
	base, err := curves.NewMontgomery(f, a, b)
	if err != nil {
		return nil, fmt.Errorf("failed to build base curve: %w", err)
	}
	if maxRetries <= 0 {
		maxRetries = curves.DefaultMaxRetries
	}
	ps := &Params{
		Name:               name,
		F:                  f,
		Base:               base,
		Trace:              new(big.Int).Set(trace),
		Primes:             append([]Prime(nil), primes...),
		MaxSamplingRetries: maxRetries,
	}
	if err := ps.Validate(); err != nil {
		return nil, err
	}
	return ps, nil
}

// Cardinality returns #E(F_{p^ext}) for the curves of the isogeny class.
func (ps *Params) Cardinality(ext int) *big.Int {
	return curves.Cardinality(ps.F.Modulus(), ps.Trace, ext)
}

// TwistCardinality returns the order p + 1 + t of the quadratic twists.
func (ps *Params) TwistCardinality() *big.Int {
	n := ps.F.Modulus()
	n.Add(n, big.NewInt(1))
	return n.Add(n, ps.Trace)
}

// Validate checks the prime list against the field and the class orders.
func (ps *Params) Validate() error {
	if len(ps.Primes) == 0 {
		return fmt.Errorf("%w: no primes configured", ErrInvalidPrime)
	}
	p := ps.F.Modulus()
	pPlus1 := new(big.Int).Add(p, big.NewInt(1))
	card := ps.Cardinality(1)
	twist := ps.TwistCardinality()

	seen := make(map[int]bool)
	for i, pr := range ps.Primes {
		bl := big.NewInt(int64(pr.L))
		switch {
		case pr.L < 3 || !bl.ProbablyPrime(10):
			return fmt.Errorf("%w: entry %d: %d is not an odd prime", ErrInvalidPrime, i, pr.L)
		case seen[pr.L]:
			return fmt.Errorf("%w: entry %d: duplicate prime %d", ErrInvalidPrime, i, pr.L)
		case pr.LowerBound < 0 || pr.UpperBound < 0:
			return fmt.Errorf("%w: entry %d: negative bound", ErrInvalidPrime, i)
		case pr.UpperBound > MaxStepCount:
			return fmt.Errorf("%w: entry %d: bound %d exceeds %d", ErrInvalidPrime, i, pr.UpperBound, MaxStepCount)
		case pr.LowerBound > pr.UpperBound:
			return fmt.Errorf("%w: entry %d: lower bound %d exceeds upper bound %d", ErrInvalidPrime, i, pr.LowerBound, pr.UpperBound)
		case pr.Kind != Radical && pr.Kind != Velu:
			return fmt.Errorf("%w: entry %d: %v", ErrInvalidPrime, i, pr.Kind)
		}
		seen[pr.L] = true

		if pr.Kind == Radical {
			if pr.L != 3 && pr.L != 5 && pr.L != 7 {
				return fmt.Errorf("%w: radical steps for l=%d", csidh.ErrUnsupportedDegree, pr.L)
			}
			if new(big.Int).Mod(pPlus1, big.NewInt(int64(2*pr.L))).Sign() != 0 {
				return fmt.Errorf("%w: entry %d: 2l does not divide p+1 for l=%d", ErrInvalidPrime, i, pr.L)
			}
		}
		if new(big.Int).Mod(card, bl).Sign() != 0 {
			return fmt.Errorf("%w: entry %d: %d does not divide #E(F_p)", ErrInvalidPrime, i, pr.L)
		}
		if pr.Backward && new(big.Int).Mod(twist, bl).Sign() != 0 {
			return fmt.Errorf("%w: entry %d: %d does not divide the twist order", ErrInvalidPrime, i, pr.L)
		}
	}
	return ps.checkBase(card)
}

// checkBase samples points of the base curve and requires p+1-t to kill them.
func (ps *Params) checkBase(card *big.Int) error {
	for checked, tries := 0, 0; checked < baseCurveChecks; tries++ {
		if tries >= ps.MaxSamplingRetries {
			return fmt.Errorf("%w: no point found to check", ErrInvalidTrace)
		}
		x, err := ps.F.Random(rand.Reader)
		if err != nil {
			return fmt.Errorf("failed to sample point: %w", err)
		}
		if ps.Base.PointClass(x) != 1 {
			continue
		}
		if !ps.Base.ScalarMul(card, curves.NewPoint(x)).IsIdentity() {
			return fmt.Errorf("%w: trace %s", ErrInvalidTrace, ps.Trace)
		}
		checked++
	}
	return nil
}

// Index returns the position of l in the prime list, or -1.
func (ps *Params) Index(l int) int {
	for i, pr := range ps.Primes {
		if pr.L == l {
			return i
		}
	}
	return -1
}

func (ps *Params) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: p=%s (%d bits)\n", ps.Name, ps.F.Modulus(), ps.F.Modulus().BitLen())
	fmt.Fprintf(&b, "  base %s\n", ps.Base)
	fmt.Fprintf(&b, "  trace %s\n", ps.Trace)
	for _, pr := range ps.Primes {
		fmt.Fprintf(&b, "  %s\n", pr)
	}
	return b.String()
}
