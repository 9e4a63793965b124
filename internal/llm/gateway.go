// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm is the gateway between the analysis stages and a text
// generation provider. It offers two call shapes, a structured completion
// returning a JSON string and a streaming completion delivering tokens to a
// callback, plus the single validating decoder every stage uses to turn
// untrusted model output into typed values.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/gioia-engine/pkg/types"
)

// Request is a structured completion request.
type Request struct {
	// System is the stage instruction.
	System string

	// User is the payload the instruction operates on.
	User string

	// MaxTokens caps the response length.
	MaxTokens int

	// Schema describes the expected JSON object. When set the provider is
	// asked for JSON output and the description is appended to System.
	Schema string
}

// Gateway is implemented by every provider backend.
type Gateway interface {
	// Complete sends one request and returns the raw model text. The text
	// is untrusted; decode it with Decode.
	Complete(ctx context.Context, req Request) (string, error)

	// Stream sends prompt and calls onToken for every generated token, in
	// generation order, on the calling goroutine.
	Stream(ctx context.Context, prompt string, maxTokens int, onToken func(string)) error
}

// systemWithSchema appends the schema hint to the stage instruction.
func systemWithSchema(req Request) string {
	if req.Schema == "" {
		return req.System
	}
	return req.System + "\n\nRespond only with a JSON object of this shape:\n" + req.Schema
}

// bounded decorates a Gateway with a per-call timeout and an optional
// token-bucket throttle.
type bounded struct {
	next    Gateway
	timeout time.Duration
	limiter *rate.Limiter
}

// Bound wraps g so each call is throttled by limiter (nil disables) and
// cancelled after timeout (zero disables). A provider that hangs past the
// timeout fails with a ProviderError wrapping context.DeadlineExceeded.
func Bound(g Gateway, timeout time.Duration, limiter *rate.Limiter) Gateway {
	return &bounded{next: g, timeout: timeout, limiter: limiter}
}

func (b *bounded) begin(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, nil, &ProviderError{Provider: "throttle", Err: err}
		}
	}
	if b.timeout <= 0 {
		ctx, cancel := context.WithCancel(ctx)
		return ctx, cancel, nil
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	return ctx, cancel, nil
}

func (b *bounded) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel, err := b.begin(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()
	return b.next.Complete(ctx, req)
}

func (b *bounded) Stream(ctx context.Context, prompt string, maxTokens int, onToken func(string)) error {
	ctx, cancel, err := b.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	return b.next.Stream(ctx, prompt, maxTokens, onToken)
}

// NewGateway builds the configured provider backend, bounded by the
// configured timeout and throttle. An empty API key fails with
// ErrUnauthenticated.
func NewGateway(cfg types.LLMConfig, client *http.Client) (Gateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s gateway: %w", cfg.Provider, ErrUnauthenticated)
	}

	var g Gateway
	switch cfg.Provider {
	case types.ProviderOpenAI, "":
		g = NewOpenAI(cfg, client)
	case types.ProviderAnthropic:
		g = NewClaude(cfg, client)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q: use openai or anthropic", cfg.Provider)
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return Bound(g, cfg.Timeout, limiter), nil
}
