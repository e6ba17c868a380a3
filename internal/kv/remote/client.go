// Package remote talks to the per-user key-value service over HTTP.
//
//	GET    {base}/kv/{key}  -> 200 {"value": <json>} | 404
//	POST   {base}/kv/{key}  <- {"value": <json>}  -> {"success": true}
//	DELETE {base}/kv/{key}  -> {"success": true}
//
// Every request carries the session's bearer credential.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fintrack/internal/kv"
)

// maxBody caps how much of a response is read.
const maxBody = 8 << 20

var ErrMissingBaseURL = errors.New("remote kv: base URL is required")

type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the pooled default client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New returns a client for baseURL. A zero timeout disables the per-request deadline.
func New(baseURL, token string, timeout time.Duration, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrMissingBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported base URL scheme %q", u.Scheme)
	}

	c := &Client{
		baseURL: u,
		token:   token,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type envelope struct {
	Value json.RawMessage `json:"value"`
}

type result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Get returns the stored value, or kv.ErrNotFound when the service answers 404.
func (c *Client) Get(ctx context.Context, key string) (json.RawMessage, error) {
	body, status, err := c.do(ctx, http.MethodGet, key, nil)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("get %q: %w", key, kv.ErrNotFound)
	case status < 200 || status > 299:
		return nil, &kv.StatusError{Op: "get", Key: key, Status: status, Body: snippet(body)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("get %q: decode response: %w: %w", key, kv.ErrUnavailable, err)
	}
	if len(env.Value) == 0 || string(env.Value) == "null" {
		return nil, fmt.Errorf("get %q: %w", key, kv.ErrNotFound)
	}
	return env.Value, nil
}

// Set overwrites the value stored under key.
func (c *Client) Set(ctx context.Context, key string, value json.RawMessage) error {
	payload, err := json.Marshal(envelope{Value: value})
	if err != nil {
		return fmt.Errorf("set %q: encode request: %w", key, err)
	}
	body, status, err := c.do(ctx, http.MethodPost, key, payload)
	if err != nil {
		return err
	}
	return checkResult("set", key, status, body)
}

func (c *Client) Delete(ctx context.Context, key string) error {
	body, status, err := c.do(ctx, http.MethodDelete, key, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return nil
	}
	return checkResult("delete", key, status, body)
}

func (c *Client) do(ctx context.Context, method, key string, payload []byte) ([]byte, int, error) {
	if err := kv.ValidateKey(key); err != nil {
		return nil, 0, err
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.keyURL(key), reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %q: %w: %w", strings.ToLower(method), key, kv.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%s %q: read response: %w: %w", strings.ToLower(method), key, kv.ErrUnavailable, err)
	}

	slog.DebugContext(ctx, "KV request completed",
		"method", method,
		"key", key,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	return body, resp.StatusCode, nil
}

func (c *Client) keyURL(key string) string {
	return c.baseURL.String() + "/kv/" + url.PathEscape(key)
}

func checkResult(op, key string, status int, body []byte) error {
	if status < 200 || status > 299 {
		return &kv.StatusError{Op: op, Key: key, Status: status, Body: snippet(body)}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var res result
	if err := json.Unmarshal(body, &res); err != nil {
		return fmt.Errorf("%s %q: decode response: %w: %w", op, key, kv.ErrUnavailable, err)
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "service reported failure"
		}
		return fmt.Errorf("%s %q: %w: %s", op, key, kv.ErrUnavailable, msg)
	}
	return nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
