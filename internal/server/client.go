package server

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/op/go-logging.v1"

	"github.com/smallyu/go-csidh/internal/crypto/curves"
	"github.com/smallyu/go-csidh/internal/log"
	"github.com/smallyu/go-csidh/internal/params"
	"github.com/smallyu/go-csidh/internal/protocol/keygen"
)

// ErrConfirmation is returned when the server's confirmation tag does not
// match the locally derived shared curve.
var ErrConfirmation = errors.New("server: key confirmation failed")

// Client runs exchanges against a Server.
type Client struct {
	URL    string
	HTTP   *http.Client
	Params *params.Params
	Key    *keygen.Key
	Log    *logging.Logger
}

// Result is the outcome of a client exchange.
type Result struct {
	ServerPublic *curves.Montgomery
	Shared       *curves.Montgomery
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}

func (c *Client) logger() *logging.Logger {
	if c.Log == nil {
		return log.Discard("client")
	}
	return c.Log
}

// Exchange sends the public curve of c.Key, derives the shared curve from
// the server's answer and checks the confirmation tag.
func (c *Client) Exchange(ctx context.Context) (*Result, error) {
	pub, err := keygen.PublicKey(c.Params, c.Key, nil, c.logger())
	if err != nil {
		return nil, fmt.Errorf("failed to compute public curve: %w", err)
	}
	pubBytes := keygen.MarshalCurve(pub)

	body, err := cbor.Marshal(&ExchangeRequest{Params: c.Params.Name, Public: pubBytes})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL+PathExchange, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRequestSize))
	if err != nil {
		return nil, err
	}
	var er ExchangeResponse
	if err := cbor.Unmarshal(raw, &er); err != nil {
		return nil, fmt.Errorf("server: malformed response (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server: HTTP %d: %s", resp.StatusCode, er.Error)
	}

	srvPub, err := keygen.DecodePublicKey(c.Params, er.Public, nil)
	if err != nil {
		return nil, fmt.Errorf("server sent an invalid curve: %w", err)
	}
	shared, err := keygen.ApplyKey(c.Params, srvPub, c.Key, nil, c.logger())
	if err != nil {
		return nil, err
	}
	tag, err := Confirm(shared, pubBytes, er.Public)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(tag, er.Confirm) != 1 {
		return nil, ErrConfirmation
	}
	c.logger().Debugf("Exchange confirmed, shared curve %s", shared)
	return &Result{ServerPublic: srvPub, Shared: shared}, nil
}

// FetchPublic returns the server's public curve.
func (c *Client) FetchPublic(ctx context.Context) (*curves.Montgomery, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL+PathPublic, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server: HTTP %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRequestSize))
	if err != nil {
		return nil, err
	}
	var pr PublicResponse
	if err := cbor.Unmarshal(raw, &pr); err != nil {
		return nil, err
	}
	if pr.Params != c.Params.Name {
		return nil, fmt.Errorf("server uses parameter set %q", pr.Params)
	}
	return keygen.DecodePublicKey(c.Params, pr.Public, nil)
}
