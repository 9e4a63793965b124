// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/pdiddy/gioia-engine/pkg/types"
)

// heliconeAuthHeader carries the proxy credential when requests are routed
// through Helicone.
const heliconeAuthHeader = "Helicone-Auth"

// OpenAI talks to the OpenAI chat completions API (or any endpoint speaking
// the same protocol).
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAIClient builds an SDK client from the gateway configuration. The
// SDK's own retries are disabled; re-attempts are left to the user.
func NewOpenAIClient(cfg types.LLMConfig, hc *http.Client) openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	switch {
	case cfg.UsesProxy():
		opts = append(opts,
			option.WithBaseURL(cfg.ProxyEndpoint),
			option.WithHeader(heliconeAuthHeader, "Bearer "+cfg.ProxyKey),
		)
	case cfg.BaseURL != "":
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if hc != nil {
		opts = append(opts, option.WithHTTPClient(hc))
	}
	return openai.NewClient(opts...)
}

// NewOpenAI returns an OpenAI gateway for cfg.
func NewOpenAI(cfg types.LLMConfig, hc *http.Client) *OpenAI {
	return &OpenAI{client: NewOpenAIClient(cfg, hc), model: cfg.Model}
}

// Complete issues one chat completion. Requests with a schema ask for a
// JSON object response.
func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemWithSchema(req)),
			openai.UserMessage(req.User),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Schema != "" {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyOpenAI(err)
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{Provider: "openai", Err: errors.New("response has no choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream issues a streaming chat completion with prompt as the only user
// message.
func (o *OpenAI) Stream(ctx context.Context, prompt string, maxTokens int, onToken func(string)) error {
	params := openai.ChatCompletionNewParams{
		Model:    o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	stream := o.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				onToken(choice.Delta.Content)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return classifyOpenAI(err)
	}
	return nil
}

// classifyOpenAI maps SDK errors onto the gateway error taxonomy.
func classifyOpenAI(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			return ErrUnauthenticated
		}
		return &ProviderError{Provider: "openai", Status: apiErr.StatusCode, Err: err}
	}
	return &ProviderError{Provider: "openai", Err: err}
}
