// Package openrouter sends chat completion requests to an OpenAI compatible API.
package openrouter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"movieweb/proj/internal/clients"
	"movieweb/proj/internal/metrics"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
)

const breakerName = "openrouter-api"

var (
	ErrNotConfigured = errors.New("ai provider api key is not configured")
	ErrUnauthorized  = errors.New("ai provider rejected the api key or the quota is exceeded")
	ErrEmptyResponse = errors.New("ai provider returned no content")
)

type Client struct {
	log     *slog.Logger
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[string]
}

func New(log *slog.Logger, baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		log:     log,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		cb:      clients.NewBreaker[string](log, breakerName, time.Minute, ErrEmptyResponse),
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends prompt as a single user message and returns the trimmed
// content of the first choice.
func (c *Client) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	const op = "openrouter.Client.Complete"
	log := c.log.With("op", op, "model", c.model, "temperature", temperature)
	if c.apiKey == "" {
		log.Error("api key is not configured")
		return "", ErrNotConfigured
	}
	payload, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    []message{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	start := time.Now()
	content, err := c.cb.Execute(func() (string, error) {
		return c.do(ctx, payload)
	})
	metrics.RecordExternalRequest(breakerName, err, time.Since(start))
	if err != nil {
		err = clients.BreakerError(err)
		log.Error("completion failed", "errMsg", err.Error())
		return "", err
	}
	log.Debug("completion received", "length", len(content))
	return content, nil
}

func (c *Client) do(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	res, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai request failed: %w", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading ai response: %w", err)
	}
	switch {
	case res.StatusCode == http.StatusUnauthorized, res.StatusCode == http.StatusForbidden, res.StatusCode == http.StatusPaymentRequired:
		return "", ErrUnauthorized
	case res.StatusCode != http.StatusOK:
		return "", fmt.Errorf("ai provider responded with status %d", res.StatusCode)
	}
	var completion completionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("decoding ai response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("ai provider error: %s", completion.Error.Message)
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
