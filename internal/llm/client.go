// Package llm is the narrative oracle: an Anthropic Messages API client plus
// the quest, dilemma, decision and narration generators that sit on top of it.
// Every generator degrades to a labelled fallback record when the model is
// unavailable or answers with something unparseable.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
	model      = "claude-haiku-4-5-20251001"

	maxResponseBytes = 1 << 20
)

// ErrDisabled is returned by a client without an API key.
var ErrDisabled = errors.New("LLM client not configured")

// Completer turns a system and user prompt into generated text.
type Completer interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// Client calls the Anthropic Messages API under a per-minute call budget.
type Client struct {
	apiKey string
	url    string
	http   *http.Client

	// PerMinute caps oracle calls; zero disables the cap.
	PerMinute int

	mu      sync.Mutex
	used    int
	resetAt time.Time
}

// NewClient returns nil when apiKey is empty, leaving the oracle on
// fallbacks only.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey:    apiKey,
		url:       apiURL,
		http:      &http.Client{Timeout: 30 * time.Second},
		PerMinute: 20,
	}
}

// Enabled reports whether the client can reach the API at all.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// text joins every text block of the reply.
func (r messagesResponse) text() string {
	var b strings.Builder
	for _, c := range r.Content {
		if c.Type == "" || c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	return b.String()
}

func (c *Client) allow() bool {
	if c.PerMinute <= 0 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if now := time.Now(); now.After(c.resetAt) {
		c.used = 0
		c.resetAt = now.Add(time.Minute)
	}
	if c.used >= c.PerMinute {
		return false
	}
	c.used++
	return true
}

// Complete sends one user turn with an optional system prompt and returns
// the model's text.
func (c *Client) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	if !c.allow() {
		return "", fmt.Errorf("oracle budget spent (%d calls/min)", c.PerMinute)
	}

	payload, err := json.Marshal(messagesRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []message{{Role: "user", Content: user}},
	})
	if err != nil {
		return "", fmt.Errorf("encode messages request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build messages request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call messages API: %w", err)
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxResponseBytes)
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(body)
		return "", fmt.Errorf("messages API status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out messagesResponse
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode messages response: %w", err)
	}
	text := out.text()
	if text == "" {
		return "", errors.New("messages API returned no text")
	}

	slog.Debug("oracle call",
		"input_tokens", out.Usage.InputTokens,
		"output_tokens", out.Usage.OutputTokens,
		"stop_reason", out.StopReason,
	)
	return text, nil
}
