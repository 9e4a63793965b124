// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/gioia-engine/pkg/types"
)

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

const claudeAPIVersion = "2023-06-01"

// defaultClaudeMaxTokens is sent when a request carries no budget; the
// Messages API requires one.
const defaultClaudeMaxTokens = 1024

// Claude talks to the Anthropic Messages API.
type Claude struct {
	APIKey string
	Model  string
	Client *http.Client

	// Endpoint overrides claudeAPIURL (proxy or self-hosted gateway).
	Endpoint string

	// Headers are extra headers sent with every request.
	Headers map[string]string
}

// NewClaude returns a Claude gateway for cfg.
func NewClaude(cfg types.LLMConfig, hc *http.Client) *Claude {
	c := &Claude{APIKey: cfg.APIKey, Model: cfg.Model, Client: hc}
	switch {
	case cfg.UsesProxy():
		c.Endpoint = strings.TrimRight(cfg.ProxyEndpoint, "/") + "/v1/messages"
		c.Headers = map[string]string{heliconeAuthHeader: "Bearer " + cfg.ProxyKey}
	case cfg.BaseURL != "":
		c.Endpoint = strings.TrimRight(cfg.BaseURL, "/") + "/v1/messages"
	}
	return c
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []claudeMessage `json:"messages"`
	Stream    bool            `json:"stream,omitempty"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

// claudeContent is a content block in the Claude API response.
type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// claudeEvent is one server-sent event payload of a streaming response.
type claudeEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete calls the Messages API once and returns the concatenated text blocks.
func (c *Claude) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := c.post(ctx, claudeRequest{
		Model:     c.Model,
		MaxTokens: budget(req.MaxTokens),
		System:    systemWithSchema(req),
		Messages:  []claudeMessage{{Role: "user", Content: req.User}},
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", &ProviderError{Provider: "claude", Err: fmt.Errorf("decoding response: %w", err)}
	}

	var b strings.Builder
	for _, block := range cResp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", &ProviderError{Provider: "claude", Err: errors.New("no text content in response")}
	}
	return b.String(), nil
}

// Stream calls the Messages API with streaming enabled and forwards each
// text delta to onToken.
func (c *Claude) Stream(ctx context.Context, prompt string, maxTokens int, onToken func(string)) error {
	resp, err := c.post(ctx, claudeRequest{
		Model:     c.Model,
		MaxTokens: budget(maxTokens),
		Messages:  []claudeMessage{{Role: "user", Content: prompt}},
		Stream:    true,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		var ev claudeEvent
		if err := json.Unmarshal([]byte(strings.TrimSpace(data)), &ev); err != nil {
			continue
		}
		switch ev.Type {
		case "content_block_delta":
			if ev.Delta.Text != "" {
				onToken(ev.Delta.Text)
			}
		case "error":
			return &ProviderError{Provider: "claude", Err: fmt.Errorf("%s: %s", ev.Error.Type, ev.Error.Message)}
		case "message_stop":
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return &ProviderError{Provider: "claude", Err: fmt.Errorf("reading stream: %w", err)}
	}
	return nil
}

func (c *Claude) post(ctx context.Context, body claudeRequest) (*http.Response, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = claudeAPIURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", claudeAPIVersion)
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: "claude", Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, ErrUnauthenticated
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &ProviderError{Provider: "claude", Status: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(msg)))}
	}
	return resp, nil
}

func budget(n int) int {
	if n <= 0 {
		return defaultClaudeMaxTokens
	}
	return n
}
