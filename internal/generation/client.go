// Package generation calls the language model that writes the final answer from the
// assembled retrieval context.
package generation

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

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const anthropicVersion = "2023-06-01"

var (
	// ErrTimeout is returned when the model does not answer within the configured timeout.
	ErrTimeout = errors.New("generation timed out")
	// ErrUnavailable is returned when the model call fails or the breaker is open.
	ErrUnavailable = errors.New("generation unavailable")
	// ErrInvalidResponse is returned when the model output holds no answer object.
	ErrInvalidResponse = errors.New("invalid generation response")
)

// Client calls the Anthropic Messages API. Calls are never retried; repeated failures open a
// circuit breaker so callers fail fast while the API is down.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	system      string
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker[*Answer]
	logger      *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithSystemPrompt replaces the assistant system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(c *Client) {
		c.system = prompt
	}
}

// NewClient creates a Client. cfg zero values are replaced with defaults.
func NewClient(cfg Config, apiKey string, opts ...Option) *Client {
	cfg.ApplyDefaults()
	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      apiKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		system:      SystemPrompt,
		httpClient:  &http.Client{},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	failures := cfg.BreakerFailures
	c.breaker = gobreaker.NewCircuitBreaker[*Answer](gobreaker.Settings{
		Name:    "generation",
		Timeout: cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// A reachable model that answers badly is not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrInvalidResponse)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

// Generate sends prompt and parses the answer object. The call is bounded by the configured
// timeout whatever ctx allows.
func (c *Client) Generate(ctx context.Context, prompt string) (*Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	answer, err := c.breaker.Execute(func() (*Answer, error) {
		text, err := c.complete(ctx, prompt)
		if err != nil {
			return nil, err
		}
		return ParseAnswer(text)
	})
	if err == nil {
		return answer, nil
	}
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	case errors.Is(err, ErrInvalidResponse), errors.Is(err, ErrTimeout), errors.Is(err, ErrUnavailable):
		return nil, err
	case isTimeout(ctx, err):
		return nil, fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	request := messagesRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		System:      c.system,
		Messages:    []message{{Role: "user", Content: prompt}},
	}
	var response messagesResponse
	if err := c.postJSON(ctx, "/v1/messages", request, &response); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, part := range response.Content {
		if part.Type == "" || part.Type == "text" {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: empty model response", ErrInvalidResponse)
	}
	c.logger.Debug("generation completed",
		zap.String("stop_reason", response.StopReason),
		zap.Int("chars", b.Len()))
	return b.String(), nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal messages request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create messages request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("messages request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return formatHTTPError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(ctx, err) {
			return err
		}
		return fmt.Errorf("%w: decode messages response: %v", ErrInvalidResponse, err)
	}
	return nil
}

func formatHTTPError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("messages status: %s", resp.Status)
	}
	return fmt.Errorf("messages status: %s: %s", resp.Status, msg)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
