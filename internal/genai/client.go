package genai

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

	"github.com/geocoder89/statementhub/internal/observability"
)

// Typed failures the workflow maps onto GenerationFailed.
var (
	ErrAuth              = errors.New("generation service rejected credentials")
	ErrRateLimited       = errors.New("generation service rate limited")
	ErrUnavailable       = errors.New("generation service unavailable")
	ErrMalformedResponse = errors.New("malformed generation service response")
)

const responseBodyLimit = 4 << 20 // upstream bodies are small; cap defends the decoder

type Config struct {
	APIKey          string
	BaseURL         string // e.g. https://api.groq.com/openai
	Model           string
	Timeout         time.Duration
	MaxOutputTokens int
	Temperature     float64
}

// Client calls the Groq chat-completions API (OpenAI wire format).
// One outbound call per Generate invocation, no internal retries.
type Client struct {
	cfg   Config
	http  *http.Client
	stats *observability.GenStats
}

func New(cfg Config, stats *observability.GenStats) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai"
	}
	if cfg.Model == "" {
		cfg.Model = "llama-3.3-70b-versatile"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 2048
	}
	if stats == nil {
		stats = observability.NewGenStats()
	}

	return &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.Timeout},
		stats: stats,
	}
}

func (c *Client) Stats() *observability.GenStats {
	return c.stats
}

func (c *Client) Model() string {
	return c.cfg.Model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate sends one chat-completions request and returns the generated text.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	c.stats.IncAttempt()

	text, err := c.generate(ctx, systemPrompt, userPrompt)

	c.stats.ObserveDuration(time.Since(start))
	if err != nil {
		c.stats.IncFailed()
		return "", err
	}
	c.stats.IncSucceeded()
	return text, nil
}

func (c *Client) generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxOutputTokens,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// timeouts and transport failures are indistinguishable from an
		// unreachable service as far as the caller is concerned
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, responseBodyLimit))
		return "", err
	}

	var parsed chatResponse

	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyLimit)).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrMalformedResponse)
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)

	if text == "" {
		return "", fmt.Errorf("%w: empty generated text", ErrMalformedResponse)
	}

	return text, nil
}

func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuth, status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, status)
	case status >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, status)
	default:
		// unexpected 3xx/4xx: the service answered but not with anything usable
		return fmt.Errorf("%w: unexpected status %d", ErrMalformedResponse, status)
	}
}
