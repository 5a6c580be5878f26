package payment

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

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseBytes = 1 << 20

type BreakerSettings struct {
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before letting a probe through.
	OpenTimeout time.Duration
}

type ClientOptions struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Breaker BreakerSettings
}

// providerError is a 4xx answer from the provider: the request reached it and was refused.
type providerError struct {
	Status  int
	Message string
}

func (e *providerError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.Status, e.Message)
}

func (e *providerError) Is(target error) bool {
	if e.Status == http.StatusNotFound {
		return target == ErrOrderNotFound
	}
	return target == ErrDeclined
}

// client is the JSON transport shared by both provider kinds. Every call goes through the breaker.
type client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[[]byte]
	log     zerolog.Logger
}

func newClient(name string, opts ClientOptions, log zerolog.Logger) *client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Breaker.MaxFailures == 0 {
		opts.Breaker.MaxFailures = 5
	}
	if opts.Breaker.OpenTimeout <= 0 {
		opts.Breaker.OpenTimeout = 30 * time.Second
	}
	log = log.With().Str("provider", name).Logger()

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     opts.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.Breaker.MaxFailures
		},
		// a refusal means the provider is healthy
		IsSuccessful: func(err error) bool {
			var pe *providerError
			return err == nil || errors.As(err, &pe)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("payment circuit breaker state changed")
		},
	}

	return &client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cb:  gobreaker.NewCircuitBreaker[[]byte](settings),
		log: log,
	}
}

func (c *client) post(ctx context.Context, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal provider request: %w", err)
		}
	}

	data, err := c.cb.Execute(func() ([]byte, error) {
		return c.do(ctx, path, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}

func (c *client) do(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	switch {
	case resp.StatusCode >= 500:
		c.log.Error().Int("status", resp.StatusCode).Str("path", path).Msg("payment provider error")
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		var msg struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &msg)
		return nil, &providerError{Status: resp.StatusCode, Message: msg.Error}
	}
	return data, nil
}

// RedirectClient talks to a hosted-checkout provider.
type RedirectClient struct {
	c *client
}

func NewRedirectClient(opts ClientOptions, log zerolog.Logger) *RedirectClient {
	return &RedirectClient{c: newClient("redirect", opts, log)}
}

func (r *RedirectClient) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	var session Session
	if err := r.c.post(ctx, "/v1/sessions", req, &session); err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	if session.RedirectURL == "" {
		return nil, fmt.Errorf("failed to create checkout session: empty redirect url")
	}
	return &session, nil
}

// OrderClient talks to an order-then-capture provider.
type OrderClient struct {
	c *client
}

func NewOrderClient(opts ClientOptions, log zerolog.Logger) *OrderClient {
	return &OrderClient{c: newClient("orders", opts, log)}
}

func (o *OrderClient) CreateOrder(ctx context.Context, charge Charge) (*Order, error) {
	var order Order
	if err := o.c.post(ctx, "/v1/orders", charge, &order); err != nil {
		return nil, fmt.Errorf("failed to create provider order: %w", err)
	}
	return &order, nil
}

func (o *OrderClient) CaptureOrder(ctx context.Context, orderID string) (*Capture, error) {
	var capture Capture
	if err := o.c.post(ctx, "/v1/orders/"+orderID+"/capture", nil, &capture); err != nil {
		return nil, fmt.Errorf("failed to capture provider order: %w", err)
	}
	return &capture, nil
}
