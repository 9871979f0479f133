// Package instrument exposes Prometheus collectors for isogeny walks and
// the exchange service.
package instrument

import (
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smallyu/go-csidh/pkg/csidh"
)

var (
	walkSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csidh_walk_steps_total",
			Help: "Number of isogeny steps taken",
		},
		[]string{"prime", "direction"},
	)
	torsionSamples = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csidh_torsion_samples_total",
			Help: "Number of torsion points sampled",
		},
		[]string{"prime"},
	)
	walkFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csidh_walk_failures_total",
			Help: "Number of failed walks",
		},
		[]string{"prime", "reason"},
	)
	walkDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "csidh_walk_duration_seconds",
			Help:    "Time spent walking a single prime",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		},
		[]string{"kind"},
	)
	keyApplications = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "csidh_key_applications_total",
			Help: "Number of private keys applied to a curve",
		},
	)
	exchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csidh_exchanges_total",
			Help: "Number of key exchanges served",
		},
		[]string{"result"},
	)
)

var once sync.Once

// Init registers the collectors with the default registry.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(walkSteps)
		prometheus.MustRegister(torsionSamples)
		prometheus.MustRegister(walkFailures)
		prometheus.MustRegister(walkDuration)
		prometheus.MustRegister(keyApplications)
		prometheus.MustRegister(exchanges)
	})
}

// Handler serves the registered metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// Step counts one isogeny step of degree l.
func Step(l int, backward bool) {
	dir := "forward"
	if backward {
		dir = "backward"
	}
	walkSteps.WithLabelValues(strconv.Itoa(l), dir).Inc()
}

// Sample counts one sampled torsion point for l.
func Sample(l int) {
	torsionSamples.WithLabelValues(strconv.Itoa(l)).Inc()
}

// WalkFailed counts a failed walk, labelled by the error class.
func WalkFailed(l int, err error) {
	walkFailures.WithLabelValues(strconv.Itoa(l), Reason(err)).Inc()
}

// WalkDuration observes the wall time of a single-prime walk.
func WalkDuration(kind string, seconds float64) {
	walkDuration.WithLabelValues(kind).Observe(seconds)
}

// KeyApplied counts one private key application.
func KeyApplied() {
	keyApplications.Inc()
}

// Exchange counts an exchange served with the given result label.
func Exchange(result string) {
	exchanges.WithLabelValues(result).Inc()
}

// Reason maps an error to a short metric label.
func Reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, csidh.ErrSamplingExhausted):
		return "sampling_exhausted"
	case errors.Is(err, csidh.ErrInvalidTorsionOrder):
		return "torsion_order"
	case errors.Is(err, csidh.ErrDegenerateCurve):
		return "degenerate"
	case errors.Is(err, csidh.ErrUnsupportedDirection):
		return "direction"
	case errors.Is(err, csidh.ErrUnsupportedDegree):
		return "degree"
	case errors.Is(err, csidh.ErrConversionFailure):
		return "conversion"
	case errors.Is(err, csidh.ErrRootExtraction):
		return "root_extraction"
	default:
		return "other"
	}
}
