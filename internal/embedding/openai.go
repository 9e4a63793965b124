// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"

	"github.com/pdiddy/gioia-engine/internal/llm"
)

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = "text-embedding-3-small"

// OpenAIEmbedder computes embeddings with the OpenAI embeddings endpoint.
// All texts of one Embed call go out in a single request.
type OpenAIEmbedder struct {
	Client openai.Client
	Model  string
}

// NewOpenAIEmbedder returns an embedder sharing the client settings of the
// LLM gateway (credential, endpoint, proxy headers).
func NewOpenAIEmbedder(client openai.Client, model string) *OpenAIEmbedder {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIEmbedder{Client: client, Model: model}
}

// Embed returns one vector per text in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.Client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: e.Model,
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("embeddings: %w", llm.ErrUnauthenticated)
		}
		return nil, &llm.ProviderError{Provider: "openai-embeddings", Err: err}
	}
	if len(resp.Data) != len(texts) {
		return nil, &llm.ProviderError{
			Provider: "openai-embeddings",
			Err:      fmt.Errorf("got %d embeddings for %d texts", len(resp.Data), len(texts)),
		}
	}

	out := make([][]float32, len(texts))
	for i, d := range resp.Data {
		idx := int(d.Index)
		if idx < 0 || idx >= len(out) {
			idx = i
		}
		v := make([]float32, len(d.Embedding))
		for j, x := range d.Embedding {
			v[j] = float32(x)
		}
		out[idx] = v
	}
	return out, nil
}
