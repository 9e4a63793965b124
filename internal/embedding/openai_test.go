// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/gioia-engine/internal/llm"
	"github.com/pdiddy/gioia-engine/pkg/types"
)

func testEmbedder(t *testing.T, h http.HandlerFunc) *OpenAIEmbedder {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	client := llm.NewOpenAIClient(types.LLMConfig{APIKey: "sk-test", BaseURL: ts.URL + "/v1"}, ts.Client())
	return NewOpenAIEmbedder(client, "")
}

func TestOpenAIEmbedderOrdersByIndex(t *testing.T) {
	var req struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	e := testEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"), r.URL.Path)
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		// Out of order on purpose.
		fmt.Fprint(w, `{"object":"list","model":"text-embedding-3-small","data":[
			{"object":"embedding","index":1,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0]}
		],"usage":{"prompt_tokens":2,"total_tokens":2}}`)
	})

	got, err := e.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, req.Input)
	assert.Equal(t, DefaultModel, req.Model)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, got)
}

func TestOpenAIEmbedderErrors(t *testing.T) {
	e := testEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	})
	_, err := e.Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, llm.ErrUnauthenticated)

	e = testEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[],"model":"m","usage":{"prompt_tokens":0,"total_tokens":0}}`)
	})
	_, err = e.Embed(context.Background(), []string{"x"})
	var pe *llm.ProviderError
	assert.True(t, errors.As(err, &pe))
}

func TestOpenAIEmbedderEmptyInput(t *testing.T) {
	e := NewOpenAIEmbedder(llm.NewOpenAIClient(types.LLMConfig{APIKey: "k"}, nil), "m")
	got, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}
