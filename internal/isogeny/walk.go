package isogeny

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/katzenpost/hpqc/rand"
	"gopkg.in/op/go-logging.v1"

	"github.com/smallyu/go-csidh/internal/crypto/curves"
	"github.com/smallyu/go-csidh/internal/instrument"
	"github.com/smallyu/go-csidh/internal/log"
	"github.com/smallyu/go-csidh/internal/params"
	"github.com/smallyu/go-csidh/pkg/csidh"
)

// State is the position of a Walk in its state machine.
type State int

const (
	StateStart State = iota
	StateSampled
	StateNormalized
	StateStepped
	StateRecovered
	StateDone
	StateFail
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateSampled:
		return "sampled"
	case StateNormalized:
		return "normalized"
	case StateStepped:
		return "stepped"
	case StateRecovered:
		return "recovered"
	case StateDone:
		return "done"
	case StateFail:
		return "fail"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrWalkFinished is returned by Next once the walk is in a terminal state.
var ErrWalkFinished = errors.New("isogeny: walk already finished")

// Walker runs walks over one parameter set. The zero Rand and Log fields
// fall back to the system RNG and a discarding logger.
type Walker struct {
	Params *params.Params
	Rand   io.Reader
	Log    *logging.Logger
}

// NewWalker returns a Walker for ps.
func NewWalker(ps *params.Params, rng io.Reader, logger *logging.Logger) *Walker {
	return &Walker{Params: ps, Rand: rng, Log: logger}
}

func (wk *Walker) rng() io.Reader {
	if wk.Rand == nil {
		return rand.Reader
	}
	return wk.Rand
}

func (wk *Walker) logger() *logging.Logger {
	if wk.Log == nil {
		return log.Discard("walk")
	}
	return wk.Log
}

// Walk takes k steps of degree l from c: forward for k > 0, backward for
// k < 0. k = 0 returns c unchanged.
func (wk *Walker) Walk(c *curves.Montgomery, l int, k int64) (*curves.Montgomery, error) {
	return wk.Start(c, l, k).Run()
}

// Start returns the state machine of a walk without advancing it.
func (wk *Walker) Start(c *curves.Montgomery, l int, k int64) *Walk {
	return &Walk{
		walker: wk,
		log:    wk.logger(),
		input:  c,
		l:      l,
		k:      k,
		state:  StateStart,
	}
}

// Walk is one single-prime walk. Every call to Next performs exactly one
// transition:
//
//	Start -> Sampled -> Normalized -> Stepped (x|k|) -> Recovered -> Done
//
// Velu primes have no Tate normal form to go through, so they move from
// Sampled straight to Stepped and resample before every further step.
// Any failure moves the walk to Fail.
type Walk struct {
	walker *Walker
	log    *logging.Logger

	input *curves.Montgomery
	l     int
	k     int64

	prime params.Prime
	ext   int
	n     int64 // |k|
	taken int64
	card  *big.Int

	curve  *curves.Montgomery // model carrying the sampled points
	kernel curves.Point
	tn     *curves.TateNormal
	result *curves.Montgomery

	state   State
	err     error
	started time.Time
}

// State returns the current state.
func (w *Walk) State() State {
	return w.state
}

// Taken returns the number of isogeny steps completed so far.
func (w *Walk) Taken() int64 {
	return w.taken
}

// Result returns the final curve once the walk is Done, or the failure.
func (w *Walk) Result() (*curves.Montgomery, error) {
	switch w.state {
	case StateDone:
		return w.result, nil
	case StateFail:
		return nil, w.err
	default:
		return nil, fmt.Errorf("isogeny: walk is in state %s", w.state)
	}
}

// Run advances the walk until it terminates.
func (w *Walk) Run() (*curves.Montgomery, error) {
	for w.state != StateDone && w.state != StateFail {
		if _, err := w.Next(); err != nil {
			return nil, err
		}
	}
	return w.Result()
}

// Next performs one transition and returns the new state.
func (w *Walk) Next() (State, error) {
	var err error
	switch w.state {
	case StateStart:
		err = w.start()
	case StateSampled:
		err = w.sampled()
	case StateNormalized:
		err = w.step()
	case StateStepped:
		err = w.stepped()
	case StateRecovered:
		w.finish(w.result)
	default:
		return w.state, ErrWalkFinished
	}
	if err != nil {
		w.fail(err)
		return w.state, w.err
	}
	return w.state, nil
}

func (w *Walk) enter(s State) {
	w.log.Debugf("l=%d k=%d: %s -> %s", w.l, w.k, w.state, s)
	w.state = s
}

func (w *Walk) fail(err error) {
	w.log.Warningf("l=%d k=%d: walk failed in state %s after %d steps: %v", w.l, w.k, w.state, w.taken, err)
	instrument.WalkFailed(w.l, err)
	w.err = err
	w.state = StateFail
}

func (w *Walk) finish(c *curves.Montgomery) {
	w.result = c
	w.enter(StateDone)
	if !w.started.IsZero() {
		instrument.WalkDuration(w.prime.Kind.String(), time.Since(w.started).Seconds())
	}
}

func (w *Walk) start() error {
	if w.k == 0 {
		w.finish(w.input)
		return nil
	}
	ps := w.walker.Params
	i := ps.Index(w.l)
	if i < 0 {
		return fmt.Errorf("%w: l=%d is not configured", csidh.ErrUnsupportedDegree, w.l)
	}
	w.prime = ps.Primes[i]
	w.started = time.Now()

	w.ext = 1
	w.n = w.k
	w.curve = w.input
	if w.k < 0 {
		if !w.prime.Backward {
			return fmt.Errorf("%w: l=%d only walks forward", csidh.ErrUnsupportedDirection, w.l)
		}
		// points of the twist have x in F_p and live on (A, B*n)
		w.ext = 2
		w.n = -w.k
		w.curve = w.input.Twist()
	}
	w.card = ps.Cardinality(w.ext)
	return w.sample()
}

// sample draws a fresh kernel point of order l. x-only arithmetic does not
// depend on B, so the point is drawn against the input class and reused on
// the twisted model.
func (w *Walk) sample() error {
	src := w.curve
	if w.ext == 2 {
		src = w.curve.Untwist()
	}
	p, err := curves.SampleTorsion(src, w.l, w.card, w.ext, w.walker.rng(), w.walker.Params.MaxSamplingRetries)
	if err != nil {
		return fmt.Errorf("failed to sample kernel point: %w", err)
	}
	instrument.Sample(w.l)
	w.kernel = p
	w.enter(StateSampled)
	return nil
}

func (w *Walk) sampled() error {
	if w.prime.Kind == params.Velu {
		return w.step()
	}
	x, ok := w.curve.Normalize(w.kernel)
	if !ok {
		return fmt.Errorf("%w: sampled the identity", csidh.ErrInvalidTorsionOrder)
	}
	y, ok := w.curve.LiftY(x)
	if !ok {
		return fmt.Errorf("%w: kernel point is not rational on %s", csidh.ErrConversionFailure, w.curve)
	}
	tn, err := curves.ToTateNormal(w.curve, x, y, w.l)
	if err != nil {
		return fmt.Errorf("failed to convert to Tate normal form: %w", err)
	}
	w.tn = tn
	w.enter(StateNormalized)
	return nil
}

func (w *Walk) step() error {
	switch w.prime.Kind {
	case params.Radical:
		next, err := RadicalStep(w.tn)
		if err != nil {
			return fmt.Errorf("radical step %d: %w", w.taken+1, err)
		}
		w.tn = next
	case params.Velu:
		iso, err := ComputeIsogeny(w.curve, w.kernel, w.l)
		if err != nil {
			return fmt.Errorf("velu step %d: %w", w.taken+1, err)
		}
		w.curve = iso.Codomain
	}
	w.taken++
	instrument.Step(w.l, w.k < 0)
	w.enter(StateStepped)
	return nil
}

func (w *Walk) stepped() error {
	if w.taken < w.n {
		if w.prime.Kind == params.Velu {
			return w.sample()
		}
		return w.step()
	}

	c := w.curve
	if w.prime.Kind == params.Radical {
		var err error
		if c, err = curves.FromTateNormal(w.tn); err != nil {
			return fmt.Errorf("failed to recover Montgomery form: %w", err)
		}
	}
	if w.ext == 2 {
		c = c.Untwist()
	}
	w.result = c.Canonical()
	w.log.Debugf("l=%d k=%d: reached %s", w.l, w.k, w.result)
	w.enter(StateRecovered)
	return nil
}

// WalkCurve is a convenience wrapper for a single walk with default
// randomness and no logging.
func WalkCurve(ps *params.Params, c *curves.Montgomery, l int, k int64) (*curves.Montgomery, error) {
	return NewWalker(ps, nil, nil).Walk(c, l, k)
}
