// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llmtest provides an in-memory Gateway for tests of the analysis
// stages.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"github.com/pdiddy/gioia-engine/internal/llm"
)

// Responder produces the raw model output for one request.
type Responder func(req llm.Request) (string, error)

// Fake is a Gateway whose answers come from a Responder. It records every
// request and is safe for concurrent use.
type Fake struct {
	Respond Responder

	// Tokens are emitted by Stream in order. StreamErr is returned after
	// they have been delivered.
	Tokens    []string
	StreamErr error

	mu       sync.Mutex
	requests []llm.Request
	prompts  []string
}

// Reply returns a Fake answering every request with out.
func Reply(out string) *Fake {
	return &Fake{Respond: func(llm.Request) (string, error) { return out, nil }}
}

// Fail returns a Fake failing every request with err.
func Fail(err error) *Fake {
	return &Fake{
		Respond:   func(llm.Request) (string, error) { return "", err },
		StreamErr: err,
	}
}

// Complete records req and returns the responder's answer.
func (f *Fake) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.Respond == nil {
		return "", nil
	}
	return f.Respond(req)
}

// Stream records prompt and emits the configured tokens.
func (f *Fake) Stream(ctx context.Context, prompt string, _ int, onToken func(string)) error {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	for _, tok := range f.Tokens {
		if err := ctx.Err(); err != nil {
			return err
		}
		onToken(tok)
	}
	return f.StreamErr
}

// Calls returns the number of completed Complete calls.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// Requests returns a copy of the recorded requests.
func (f *Fake) Requests() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.requests...)
}

// Prompts returns a copy of the recorded stream prompts.
func (f *Fake) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// Route dispatches on the request's system instruction: a route whose key
// appears in the instruction answers. Keys must not overlap. Unmatched
// requests get fallback.
func Route(routes map[string]string, fallback string) Responder {
	return func(req llm.Request) (string, error) {
		for key, out := range routes {
			if strings.Contains(req.System, key) {
				return out, nil
			}
		}
		return fallback, nil
	}
}
