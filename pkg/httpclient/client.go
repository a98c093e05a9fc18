package httpclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/safarhub/ride-booking/pkg/breaker"
)

// DefaultTimeout is the hard per-call timeout applied to every request.
const DefaultTimeout = 3500 * time.Millisecond

// Doer is the minimal transport interface (satisfied by *http.Client)
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config contains resilient client configuration
type Config struct {
	// Timeout is the per-call timeout (default: 3.5s)
	Timeout time.Duration
	// Breaker guards the wrapped transport; a default breaker is created
	// when nil
	Breaker *breaker.Breaker
	// Transport is the inner transport (default: http.Client with Timeout)
	Transport Doer
}

// Client wraps an HTTP transport with a per-call timeout and a circuit
// breaker. It never retries; retry policy belongs to callers. Breaker-open
// and remote errors surface identically as a non-nil error.
type Client struct {
	transport Doer
	breaker   *breaker.Breaker
}

// New creates a resilient HTTP client
func New(cfg *Config) *Client {
	if cfg == nil {
		cfg = &Config{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	b := cfg.Breaker
	if b == nil {
		b = breaker.New(breaker.DefaultConfig())
	}
	transport := cfg.Transport
	if transport == nil {
		transport = &http.Client{Timeout: timeout}
	}
	return &Client{transport: transport, breaker: b}
}

// Do executes the request through the breaker. Responses with status >= 500
// count as failures against the breaker but are still returned to the caller.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := c.breaker.Allow(); err != nil {
		return nil, fmt.Errorf("call to %s rejected: %w", req.URL.Host, err)
	}

	resp, err := c.transport.Do(req)
	if err != nil {
		c.breaker.Failure()
		return nil, err
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.breaker.Failure()
	} else {
		c.breaker.Success()
	}

	return resp, nil
}
