package server

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallyu/go-csidh/internal/params"
	"github.com/smallyu/go-csidh/internal/protocol/keygen"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	ps := params.Toy419()
	srv, err := New(&Config{
		Params:  ps,
		Key:     &keygen.Key{Steps: []int64{1, -2, 3}},
		Workers: 2,
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func post(t *testing.T, url string, v interface{}) (*http.Response, *ExchangeResponse) {
	body, err := cbor.Marshal(v)
	require.NoError(t, err)
	resp, err := http.Post(url+PathExchange, contentType, bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var er ExchangeResponse
	require.NoError(t, cbor.Unmarshal(raw, &er))
	return resp, &er
}

func TestExchange(t *testing.T) {
	srv, ts := newTestServer(t)
	ps := params.Toy419()

	c := &Client{URL: ts.URL, Params: ps, Key: &keygen.Key{Steps: []int64{-1, 0, 2}}}
	res, err := c.Exchange(context.Background())
	require.NoError(t, err)
	assert.True(t, res.ServerPublic.Isomorphic(srv.Public()))

	// the server reaches the same curve from the client's side
	clientPub, err := keygen.PublicKey(ps, c.Key, nil, nil)
	require.NoError(t, err)
	serverShared, err := keygen.ApplyKey(ps, clientPub, srv.cfg.Key, nil, nil)
	require.NoError(t, err)
	assert.True(t, keygen.SameCurve(res.Shared, serverShared))

	pub, err := c.FetchPublic(context.Background())
	require.NoError(t, err)
	assert.True(t, pub.Isomorphic(srv.Public()))
}

func TestExchangeRejects(t *testing.T) {
	_, ts := newTestServer(t)
	ps := params.Toy419()

	t.Run("wrong parameter set", func(t *testing.T) {
		resp, er := post(t, ts.URL, &ExchangeRequest{Params: "dks512"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, er.Error, "dks512")
	})

	t.Run("singular curve", func(t *testing.T) {
		resp, er := post(t, ts.URL, &ExchangeRequest{Params: ps.Name, Public: []byte{0, 2, 0, 1}})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.NotEmpty(t, er.Error)
		assert.Nil(t, er.Confirm)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, err := http.Post(ts.URL+PathExchange, contentType, bytes.NewReader([]byte{0xff}))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("method", func(t *testing.T) {
		resp, err := http.Get(ts.URL + PathExchange)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("client parameter mismatch", func(t *testing.T) {
		other := params.Toy1021019()
		c := &Client{URL: ts.URL, Params: other, Key: &keygen.Key{Steps: make([]int64, len(other.Primes))}}
		_, err := c.Exchange(context.Background())
		assert.Error(t, err)
		_, err = c.FetchPublic(context.Background())
		assert.Error(t, err)
	})
}

func TestConfirm(t *testing.T) {
	ps := params.Toy419()
	a, err := Confirm(ps.Base, []byte("a"), []byte("b"))
	require.NoError(t, err)
	b, err := Confirm(ps.Base.Twist(), []byte("a"), []byte("b"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	c, err := Confirm(ps.Base, []byte("b"), []byte("a"))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestMetrics(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + PathMetrics)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServe(t *testing.T) {
	srv, err := New(&Config{Params: params.Toy419(), Key: &keygen.Key{Steps: []int64{0, 0, 0}}})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	c := &Client{URL: "http://" + ln.Addr().String(), Params: params.Toy419(), Key: &keygen.Key{Steps: []int64{1, 0, 0}}}
	res, err := c.Exchange(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(158), res.Shared.Canonical().A.Int64())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRateLimit(t *testing.T) {
	srv, err := New(&Config{
		Params:    params.Toy419(),
		Key:       &keygen.Key{Steps: []int64{0, 0, 0}},
		RateLimit: 2,
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	for i := 0; i < 2; i++ {
		resp, _ := post(t, ts.URL, &ExchangeRequest{Params: "other"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}
	body, err := cbor.Marshal(&ExchangeRequest{Params: "other"})
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+PathExchange, contentType, bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// only exchanges are limited
	resp, err = http.Get(ts.URL + PathPublic)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimiter(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := newRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("a"))
	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
	assert.True(t, rl.allow("b"))

	now = now.Add(31 * time.Second)
	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))

	now = now.Add(2 * time.Minute)
	rl.allow("c")
	rl.mu.Lock()
	assert.Len(t, rl.visitors, 1)
	rl.mu.Unlock()
}
