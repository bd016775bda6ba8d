// Package storeclient talks to the order and ticket stores over HTTP. It is
// the only place that knows the wire envelope and its quirks.
package storeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
	"github.com/angelmondragon/taskrent-backend/pkg/types"
	"github.com/google/uuid"
)

const (
	defaultTimeout      = 10 * time.Second
	responseReadLimit   = 4 << 20
	idempotencyKeyHdr   = "Idempotency-Key"
	rejectedFallbackMsg = "request rejected"
)

var errBaseURLRequired = errors.New("store base url is required")

// Client implements the order, ticket, attachment and wallet collaborators.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	newKey     func() string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithTimeout replaces the default HTTP client with one using timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithIdempotencyKeys overrides how mutation keys are generated.
func WithIdempotencyKeys(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newKey = fn
		}
	}
}

// NewClient builds a store client rooted at baseURL (scheme and host, the
// /api/v1 prefix is added per request).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	client := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    trimmed,
		newKey:     uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	idempotent  bool
}

func jsonRequest(method, path string, payload any) (request, error) {
	req := request{method: method, path: path}
	if payload == nil {
		return req, nil
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return req, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
	}
	req.body = bytes.NewReader(encoded)
	req.contentType = "application/json"
	return req, nil
}

// do executes the request and decodes the envelope's data into out. Any
// envelope without a success flag is a rejection, whatever the HTTP status.
// Failures to reach the store or to read its answer are transport errors.
func (c *Client) do(ctx context.Context, req request, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+"/api/v1"+req.path, req.body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build store request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	if req.idempotent {
		httpReq.Header.Set(idempotencyKeyHdr, c.newKey())
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "store unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "read store response")
	}

	var env types.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, fmt.Errorf("status %d: %w", resp.StatusCode, err), "decode store response")
	}
	if !env.Success.Bool() {
		return rejection(resp.StatusCode, env)
	}
	if out == nil || len(env.Data) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "decode store payload")
	}
	return nil
}

func rejection(status int, env types.Envelope) error {
	msg := strings.TrimSpace(env.Message)
	details := map[string]any{"status": status}
	if env.Error != nil {
		if msg == "" {
			msg = strings.TrimSpace(env.Error.Message)
		}
		if env.Error.Code != "" {
			details["code"] = env.Error.Code
		}
		if env.Error.Details != nil {
			details["details"] = env.Error.Details
		}
	}
	if msg == "" {
		msg = rejectedFallbackMsg
	}
	return pkgerrors.New(pkgerrors.CodeRejected, msg).WithDetails(details)
}
