// Package server serves key exchanges over HTTP. Clients POST their public
// curve as CBOR and receive the server's public curve together with a key
// confirmation tag bound to both curves.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	goLog "log"
	"net"
	"net/http"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/semaphore"
	"gopkg.in/op/go-logging.v1"

	"github.com/smallyu/go-csidh/internal/crypto/curves"
	"github.com/smallyu/go-csidh/internal/instrument"
	"github.com/smallyu/go-csidh/internal/log"
	"github.com/smallyu/go-csidh/internal/params"
	"github.com/smallyu/go-csidh/internal/protocol/keygen"
)

const (
	PathExchange = "/v1/exchange"
	PathPublic   = "/v1/public"
	PathMetrics  = "/metrics"

	contentType    = "application/cbor"
	maxRequestSize = 4096

	defaultRequestTimeout = 30 * time.Second
)

var confirmInfo = []byte("csidh exchange confirm")

// ExchangeRequest is the body of a POST to PathExchange.
type ExchangeRequest struct {
	Params string
	Public []byte
}

// ExchangeResponse carries the server's public curve and a confirmation tag
// keyed with the shared secret.
type ExchangeResponse struct {
	Params  string
	Public  []byte
	Confirm []byte
	Error   string
}

// PublicResponse is the body returned by PathPublic.
type PublicResponse struct {
	Params string
	Public []byte
}

// Config configures a Server.
type Config struct {
	Params      *params.Params
	Key         *keygen.Key
	Address     string
	ReadTimeout time.Duration
	Workers     int

	// RequestTimeout bounds the handling of one request; 0 selects 30s.
	RequestTimeout time.Duration

	// RateLimit is the number of exchanges a client may start per minute;
	// 0 disables limiting.
	RateLimit int

	Log      *logging.Logger
	ErrorLog *goLog.Logger
}

// Server answers exchange requests with a fixed private key.
type Server struct {
	cfg         *Config
	log         *logging.Logger
	public      *curves.Montgomery
	publicBytes []byte
	sem         *semaphore.Weighted
	limiter     *rateLimiter
}

// New computes the server's public curve and returns a Server.
func New(cfg *Config) (*Server, error) {
	if cfg.Params == nil || cfg.Key == nil {
		return nil, errors.New("server: Params and Key are required")
	}
	logger := cfg.Log
	if logger == nil {
		logger = log.Discard("server")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	pub, err := keygen.PublicKey(cfg.Params, cfg.Key, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to compute public curve: %w", err)
	}
	s := &Server{
		cfg:         cfg,
		log:         logger,
		public:      pub,
		publicBytes: keygen.MarshalCurve(pub),
		sem:         semaphore.NewWeighted(int64(workers)),
	}
	if cfg.RateLimit > 0 {
		s.limiter = newRateLimiter(cfg.RateLimit, time.Minute)
	}
	return s, nil
}

// Public returns the server's public curve.
func (s *Server) Public() *curves.Montgomery {
	return s.public
}

// Handler returns the HTTP handler of the service.
func (s *Server) Handler() http.Handler {
	timeout := s.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get(PathPublic, s.handlePublic)
	r.Method(http.MethodGet, PathMetrics, instrument.Handler())
	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.middleware)
		}
		r.Post(PathExchange, s.handleExchange)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debugf("[%s] %s %s from %s: %d in %v", middleware.GetReqID(r.Context()),
			r.Method, r.URL.Path, r.RemoteAddr, ww.Status(), time.Since(start))
	})
}

// ListenAndServe serves on cfg.Address until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: s.cfg.ReadTimeout,
		ErrorLog:    s.cfg.ErrorLog,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.log.Noticef("Listening on %s (%s)", ln.Addr(), s.cfg.Params.Name)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) handlePublic(w http.ResponseWriter, r *http.Request) {
	s.writeCBOR(w, http.StatusOK, &PublicResponse{Params: s.cfg.Params.Name, Public: s.publicBytes})
}

func (s *Server) handleExchange(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize+1))
	if err != nil || len(body) > maxRequestSize {
		s.fail(w, http.StatusBadRequest, "unreadable request")
		return
	}
	var req ExchangeRequest
	if err := cbor.Unmarshal(body, &req); err != nil {
		s.fail(w, http.StatusBadRequest, "malformed request")
		return
	}
	if req.Params != s.cfg.Params.Name {
		s.fail(w, http.StatusBadRequest, fmt.Sprintf("parameter set %q not served", req.Params))
		return
	}

	if err := s.sem.Acquire(r.Context(), 1); err != nil {
		s.fail(w, http.StatusServiceUnavailable, "request cancelled")
		return
	}
	defer s.sem.Release(1)

	peer, err := keygen.DecodePublicKey(s.cfg.Params, req.Public, nil)
	if err != nil {
		s.log.Debugf("Rejected public curve from %s: %v", r.RemoteAddr, err)
		s.fail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	shared, err := keygen.ApplyKey(s.cfg.Params, peer, s.cfg.Key, nil, s.log)
	if err != nil {
		s.log.Warningf("Exchange with %s failed: %v", r.RemoteAddr, err)
		s.fail(w, http.StatusInternalServerError, "exchange failed")
		return
	}
	tag, err := Confirm(shared, req.Public, s.publicBytes)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "exchange failed")
		return
	}

	instrument.Exchange("ok")
	s.log.Infof("Exchange with %s done", r.RemoteAddr)
	s.writeCBOR(w, http.StatusOK, &ExchangeResponse{
		Params:  s.cfg.Params.Name,
		Public:  s.publicBytes,
		Confirm: tag,
	})
}

func (s *Server) fail(w http.ResponseWriter, status int, msg string) {
	instrument.Exchange("error")
	s.writeCBOR(w, status, &ExchangeResponse{Params: s.cfg.Params.Name, Error: msg})
}

func (s *Server) writeCBOR(w http.ResponseWriter, status int, v interface{}) {
	b, err := cbor.Marshal(v)
	if err != nil {
		s.log.Errorf("Failed to encode response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	w.Write(b)
}

// Confirm computes the key confirmation tag over the initiator and responder
// public curves, keyed with the secret derived from the shared curve.
func Confirm(shared *curves.Montgomery, initiator, responder []byte) ([]byte, error) {
	key, err := keygen.SharedSecret(shared, nil, confirmInfo)
	if err != nil {
		return nil, err
	}
	h, err := blake2b.New256(key)
	if err != nil {
		return nil, err
	}
	h.Write(initiator)
	h.Write(responder)
	return h.Sum(nil), nil
}
