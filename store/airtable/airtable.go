// Package airtable provides an [anystore.Store] over the Airtable REST API.
//
// Addresses have up to four segments: base ID, table ID or name, record ID
// and field name. Bases, tables and records can be listed; records and
// fields hold values. A record's value is the JSON object of its fields and
// a field's value is the JSON encoding of that one cell.
//
// Every HTTP request goes through a [ratelimit.Limiter], 5 requests per
// second by default, so listings that span several pages and batched
// inserts each pay for every request they make.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ryhazerus/anystore"
	"github.com/ryhazerus/anystore/ratelimit"
	"go.uber.org/zap"
)

const backend = "airtable"

// DefaultBaseURL is the Airtable API endpoint.
const DefaultBaseURL = "https://api.airtable.com/v0"

// DefaultQuota is the per-base request rate Airtable publishes.
var DefaultQuota = ratelimit.Quota{
	Name:   backend,
	Limit:  5,
	Window: ratelimit.PerSecond,
}

// ErrNotFound is returned by record operations when Airtable answers 404.
var ErrNotFound = errors.New("airtable: not found")

// APIError is a non-success response from the Airtable API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("airtable: %d %s", e.StatusCode, e.Type)
	}
	return fmt.Sprintf("airtable: %d %s: %s", e.StatusCode, e.Type, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client talks to the Airtable API and implements anystore.Store.
type Client struct {
	token       string
	baseURL     string
	http        *http.Client
	limiter     *ratelimit.Limiter
	ownsLimiter bool
	quota       ratelimit.Quota
	logger      *zap.Logger
}

// Compile-time interface checks.
var (
	_ anystore.Store = (*Client)(nil)
	_ io.Closer      = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets the HTTP client. Its transport is wrapped by the
// limiter; the client itself is not modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithQuota replaces DefaultQuota.
func WithQuota(q ratelimit.Quota) Option {
	return func(c *Client) {
		c.quota = q
	}
}

// WithLimiter makes the client share l instead of creating its own. The
// client does not close a shared limiter.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithLogger sets the logger used for request traces.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// Open creates a rate limited client authenticated with token.
func Open(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("anystore/airtable: empty token")
	}
	c := &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		quota:   DefaultQuota,
		logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	if _, err := url.Parse(c.baseURL); err != nil {
		return nil, fmt.Errorf("anystore/airtable: base url: %w", err)
	}
	c.logger = c.logger.With(zap.String("store", backend))

	if c.limiter == nil {
		c.limiter = ratelimit.New(c.quota, ratelimit.WithLogger(c.logger))
		c.ownsLimiter = true
	}

	hc := http.Client{}
	if c.http != nil {
		hc = *c.http
	}
	hc.Transport = c.limiter.Transport(hc.Transport)
	c.http = &hc
	return c, nil
}

// Limiter returns the limiter every request goes through.
func (c *Client) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// Close closes the limiter unless it is shared. Callers still waiting for
// a permit fail with ratelimit.ErrClosed.
func (c *Client) Close() error {
	if c.ownsLimiter {
		return c.limiter.Close()
	}
	return nil
}

func (c *Client) endpoint(parts []string, q url.Values) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(p))
	}
	if len(q) > 0 {
		b.WriteByte('?')
		b.WriteString(q.Encode())
	}
	return b.String()
}

// do sends one request and decodes a JSON response into out when it is
// not nil.
func (c *Client) do(ctx context.Context, method string, parts []string, q url.Values, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(parts, q), rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) && limiterError(ue.Err) {
			return ue.Err
		}
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("request",
		zap.String("method", method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, err = io.Copy(io.Discard, resp.Body)
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func limiterError(err error) bool {
	return errors.Is(err, ratelimit.ErrLimitExceeded) || errors.Is(err, ratelimit.ErrClosed)
}

// decodeAPIError reads both error shapes Airtable uses:
// {"error":"NOT_FOUND"} and {"error":{"type":...,"message":...}}.
func decodeAPIError(resp *http.Response) error {
	e := &APIError{StatusCode: resp.StatusCode, Type: http.StatusText(resp.StatusCode)}

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&envelope); err != nil || len(envelope.Error) == 0 {
		return e
	}
	var typ string
	if json.Unmarshal(envelope.Error, &typ) == nil {
		e.Type = typ
		return e
	}
	var detail struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if json.Unmarshal(envelope.Error, &detail) == nil {
		if detail.Type != "" {
			e.Type = detail.Type
		}
		e.Message = detail.Message
	}
	return e
}

// wrap turns a failure into a BackendError. Limiter errors pass through
// so callers can match them directly.
func wrap(op string, addr anystore.Address, err error) error {
	if err == nil || limiterError(err) {
		return err
	}
	return anystore.NewBackendError(backend, op, addr, err)
}
