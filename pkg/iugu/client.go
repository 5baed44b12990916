package iugu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config holds gateway client configuration.
type Config struct {
	APIKey        string        `env:"IUGU_API_KEY,required"`                          // APIKey authenticates every request via HTTP basic auth.
	BaseURL       string        `env:"IUGU_BASE_URL" envDefault:"https://api.iugu.com/v1"` // BaseURL is the gateway API root, overridable for sandboxes and tests.
	Timeout       time.Duration `env:"IUGU_HTTP_TIMEOUT" envDefault:"30s"`             // Timeout bounds a single HTTP round trip.
	RetryAttempts int           `env:"IUGU_RETRY_ATTEMPTS" envDefault:"3"`             // RetryAttempts is the total number of tries for transient failures.
}

// Client talks to the Iugu HTTP API.
type Client struct {
	baseURL       string
	apiKey        string
	httpClient    *http.Client
	backoff       BackoffStrategy
	breaker       *CircuitBreaker
	retryAttempts int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithBackoffStrategy replaces the retry delay strategy.
func WithBackoffStrategy(s BackoffStrategy) Option {
	return func(client *Client) {
		if s != nil {
			client.backoff = s
		}
	}
}

// WithCircuitBreaker replaces the default circuit breaker.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(client *Client) {
		if cb != nil {
			client.breaker = cb
		}
	}
}

// New creates a gateway client from config.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.iugu.com/v1"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	retryAttempts := cfg.RetryAttempts
	if retryAttempts <= 0 {
		retryAttempts = 1
	}

	c := &Client{
		baseURL:       baseURL,
		apiKey:        cfg.APIKey,
		httpClient:    &http.Client{Timeout: timeout},
		backoff:       DefaultBackoffStrategy(),
		breaker:       NewCircuitBreaker(0, 0, 0),
		retryAttempts: retryAttempts,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// do performs a request against the gateway, retrying transient failures and
// decoding the response into out when it is non-nil. Gateway rejections are
// returned as *APIError; the breaker only counts availability failures, a 4xx
// rejection is a healthy gateway saying no.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if !c.breaker.Allow() {
		return ErrCircuitOpen
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return errors.Join(ErrRequestFailed, err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return errors.Join(ErrRequestFailed, ctx.Err())
			case <-time.After(c.backoff.NextInterval(attempt - 1)):
			}
		}

		status, respBody, err := c.send(ctx, method, path, payload)
		if err != nil {
			lastErr = err
			continue
		}
		if status >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("gateway returned status %d", status)
			continue
		}

		c.breaker.RecordSuccess()

		switch {
		case status == http.StatusNotFound:
			return ErrNotFound
		case status >= http.StatusBadRequest:
			return newAPIError(status, respBody)
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return errors.Join(ErrInvalidBody, err)
			}
		}
		return nil
	}

	c.breaker.RecordFailure()
	return errors.Join(ErrRequestFailed, lastErr)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	return resp.StatusCode, respBody, nil
}
