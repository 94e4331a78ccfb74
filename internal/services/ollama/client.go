// Package ollama calls a local Ollama inference service to summarize
// transcripts.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"murmur/internal/services"
)

const defaultTimeout = 120 * time.Second

// Config captures the runtime settings required to talk to the service.
type Config struct {
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client wraps the Ollama generate API.
type Client struct {
	cfg        Config
	timeout    time.Duration
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (used in tests).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs an Ollama client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:   strings.TrimSpace(cfg.Model),
		},
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate issues a single non-streaming generation request and returns the
// model's response text. Failures are classified into distinct error kinds:
// connect failure, timeout, non-2xx status (with body), and empty response.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	url := c.cfg.BaseURL + "/api/generate"
	payload, err := json.Marshal(generateRequest{Model: c.cfg.Model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", services.Wrap(services.ErrFormat, "ollama", "generate", "encode request", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", services.Wrap(services.ErrNetwork, "ollama", "generate", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportError(err, url, c.timeout)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", services.Wrap(services.ErrNetwork, "ollama", "generate",
			fmt.Sprintf("http %d from %s: %s", resp.StatusCode, url, strings.TrimSpace(string(body))), nil)
	}
	if readErr != nil {
		return "", services.Wrap(services.ErrNetwork, "ollama", "generate", "read response", readErr)
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", services.Wrap(services.ErrFormat, "ollama", "generate", "invalid response body", err)
	}
	if strings.TrimSpace(decoded.Response) == "" {
		return "", services.Wrap(services.ErrFormat, "ollama", "generate",
			fmt.Sprintf("empty response from model %s", c.cfg.Model), nil)
	}
	return decoded.Response, nil
}

func classifyTransportError(err error, url string, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "ollama", "generate",
			fmt.Sprintf("no response within %s from %s", timeout, url), err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.Wrap(services.ErrTimeout, "ollama", "generate",
			fmt.Sprintf("no response within %s from %s", timeout, url), err)
	}
	return services.Wrap(services.ErrNetwork, "ollama", "generate",
		fmt.Sprintf("service not reachable at %s (is Ollama running?)", url), err)
}
