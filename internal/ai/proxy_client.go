package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Completer turns a prompt into raw model text
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

// ProxyClient calls an HTTP completion proxy that fronts the actual model
type ProxyClient struct {
	url    string
	secret string
	model  string
	http   *http.Client
}

// NewProxyClient creates a proxy client with the given request timeout
func NewProxyClient(url, secret, model string, timeout time.Duration) *ProxyClient {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &ProxyClient{
		url:    url,
		secret: secret,
		model:  model,
		http:   &http.Client{Timeout: timeout},
	}
}

// Name identifies the backend in edit logs
func (c *ProxyClient) Name() string {
	if c.model != "" {
		return "proxy:" + c.model
	}
	return "proxy"
}

type proxyRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
}

// proxyResponse accepts the shapes proxies commonly return
type proxyResponse struct {
	Text    string `json:"text"`
	Content string `json:"content"`
	Result  string `json:"result"`
	Error   string `json:"error"`
	Choices []struct {
		Text    string `json:"text"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (r *proxyResponse) text() string {
	switch {
	case r.Text != "":
		return r.Text
	case r.Content != "":
		return r.Content
	case r.Result != "":
		return r.Result
	}
	for _, ch := range r.Choices {
		if ch.Message.Content != "" {
			return ch.Message.Content
		}
		if ch.Text != "" {
			return ch.Text
		}
	}
	return ""
}

// Complete posts the prompt and returns the model text
func (c *ProxyClient) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(proxyRequest{Prompt: prompt, Model: c.model})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build proxy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai proxy request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("read ai proxy response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai proxy returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var out proxyResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		// Plain-text proxies
		return string(raw), nil
	}
	if out.Error != "" {
		return "", fmt.Errorf("ai proxy error: %s", out.Error)
	}
	if text := out.text(); text != "" {
		return text, nil
	}
	return string(raw), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
