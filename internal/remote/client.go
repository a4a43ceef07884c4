// Package remote is the REST client for the remote catalog and order
// service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/medsupply-storefront/pkg/httpmiddleware"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// TokenSource supplies the bearer token of the current session. An empty
// token means no session and no Authorization header.
type TokenSource interface {
	Token() string
}

// StatusError is a non-2xx response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: %s", http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("remote: %d: %s", e.StatusCode, e.Message)
}

// ServerMessage returns the message the server sent, if any.
func (e *StatusError) ServerMessage() string { return e.Message }

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its transport is used
// as is, without instrumentation.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(cl *Client) { cl.tokens = ts }
}

// WithLogger sets the logger.
func WithLogger(lg *zap.Logger) Option {
	return func(cl *Client) { cl.lg = lg }
}

// WithTracerProvider sets the tracer provider for the default transport.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cl *Client) { cl.otel = append(cl.otel, otelhttp.WithTracerProvider(tp)) }
}

// WithMeterProvider sets the meter provider for the default transport.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cl *Client) { cl.otel = append(cl.otel, otelhttp.WithMeterProvider(mp)) }
}

// Client talks to the remote service.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenSource
	lg     *zap.Logger
	otel   []otelhttp.Option
}

// New creates a Client for baseURL, e.g. "https://shop.example.com".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{base: u, lg: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		c.http = &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport, c.otel...),
		}
	}
	return c, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends a request and decodes a 2xx JSON body into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), rd)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	reqID := httpmiddleware.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
	}
	req.Header.Set(httpmiddleware.HeaderRequestID, reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		serr := &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
		c.lg.Debug("Remote request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("request_id", reqID),
		)
		return serr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s %s", method, path)
	}
	return nil
}

// errorMessage extracts "message" (or "error") from a JSON error payload.
func errorMessage(raw []byte) string {
	var msg, alt string
	d := jx.DecodeBytes(raw)
	if d.Next() != jx.Object {
		return strings.TrimSpace(string(raw))
	}
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "message", "error":
			if d.Next() != jx.String {
				return d.Skip()
			}
			s, err := d.Str()
			if err != nil {
				return err
			}
			if string(key) == "message" {
				msg = s
			} else {
				alt = s
			}
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return ""
	}
	if msg == "" {
		return alt
	}
	return msg
}

// encodeField encodes a single-field object such as {"code":"SAVE20"}.
func encodeField(name, value string) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart(name)
	e.Str(value)
	e.ObjEnd()
	return e.Bytes()
}
