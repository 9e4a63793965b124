// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package coding

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/gioia-engine/internal/chunk"
	"github.com/pdiddy/gioia-engine/internal/llm"
	"github.com/pdiddy/gioia-engine/internal/llm/llmtest"
	"github.com/pdiddy/gioia-engine/pkg/types"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestCoder(g llm.Gateway) *Coder {
	return NewCoder(g, llm.DefaultPrompts(), types.StageConfig{}, quiet)
}

func TestCodeDocumentAccumulatesAcrossChunks(t *testing.T) {
	n := 0
	fake := &llmtest.Fake{Respond: func(req llm.Request) (string, error) {
		n++
		if n == 1 {
			return `{"codes": ["trust", "autonomy"]}`, nil
		}
		return `{"codes": ["autonomy"]}`, nil
	}}
	c := newTestCoder(fake)
	c.Chunker = chunk.New(20, 0)

	doc := types.Document{ID: "d1", FullText: "remote work increases autonomy of employees"}
	codes, err := c.CodeDocument(context.Background(), doc, "")
	require.NoError(t, err)

	calls := len(c.Chunker.Split(doc.FullText))
	require.Greater(t, calls, 1)
	assert.Equal(t, calls, fake.Calls())
	assert.Equal(t, "autonomy", codes[len(codes)-1])
	assert.Len(t, codes, 2+(calls-1), "duplicates across chunks are kept")

	req := fake.Requests()[0]
	assert.Equal(t, llm.SchemaCodes, req.Schema)
	assert.Contains(t, doc.FullText, req.User)
}

func TestCodeDocumentRemarksReachPrompt(t *testing.T) {
	fake := llmtest.Reply(`{"codes": []}`)
	c := newTestCoder(fake)
	_, err := c.CodeDocument(context.Background(), types.Document{ID: "d", Abstract: "text"}, "focus on trust")
	require.NoError(t, err)
	assert.Contains(t, fake.Requests()[0].System, "focus on trust")
}

func TestCodeDocumentParseFailureContributesNothing(t *testing.T) {
	c := newTestCoder(llmtest.Reply("I could not find any codes, sorry."))
	codes, err := c.CodeDocument(context.Background(), types.Document{ID: "d", FullText: "some text"}, "")
	require.NoError(t, err)
	assert.NotNil(t, codes)
	assert.Empty(t, codes)
}

func TestCodeDocumentProviderErrorStops(t *testing.T) {
	fake := llmtest.Fail(&llm.ProviderError{Provider: "test", Status: 500, Err: errors.New("boom")})
	c := newTestCoder(fake)
	c.Chunker = chunk.New(5, 0)
	_, err := c.CodeDocument(context.Background(), types.Document{ID: "d", FullText: "one two three four"}, "")
	var pe *llm.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 1, fake.Calls())
}

func TestCodeCorpusGlobalCodesDedup(t *testing.T) {
	fake := &llmtest.Fake{Respond: func(req llm.Request) (string, error) {
		if strings.Contains(req.User, "first") {
			return `{"codes": ["A", "B"]}`, nil
		}
		return `{"codes": ["B", "C"]}`, nil
	}}
	c := newTestCoder(fake)
	res, err := c.CodeCorpus(context.Background(), []types.Document{
		{ID: "1", FullText: "first paper"},
		{ID: "2", FullText: "second paper"},
	}, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, res.GlobalCodes)
	assert.Equal(t, []string{"A", "B"}, res.Documents[0].Codes)
	assert.Equal(t, []string{"B", "C"}, res.Documents[1].Codes)
	assert.Empty(t, res.Failures)
}

func TestCodeCorpusIsIdempotent(t *testing.T) {
	fake := llmtest.Reply(`{"codes": ["remote work", "autonomy"]}`)
	c := newTestCoder(fake)
	docs := []types.Document{
		{ID: "1", FullText: "remote work increases autonomy"},
		{ID: "2", FullText: "remote work increases autonomy, again"},
	}

	first, err := c.CodeCorpus(context.Background(), docs, "")
	require.NoError(t, err)
	calls := fake.Calls()
	assert.Equal(t, 2, calls)

	second, err := c.CodeCorpus(context.Background(), first.Documents, "")
	require.NoError(t, err)
	assert.Equal(t, calls, fake.Calls(), "cached documents must not be recoded")
	assert.Equal(t, first.GlobalCodes, second.GlobalCodes)
}

func TestCodeCorpusIsolatesFailures(t *testing.T) {
	fake := &llmtest.Fake{Respond: func(req llm.Request) (string, error) {
		if strings.Contains(req.User, "broken") {
			return "", &llm.ProviderError{Provider: "test", Status: 503, Err: errors.New("unavailable")}
		}
		return `{"codes": ["autonomy"]}`, nil
	}}
	c := newTestCoder(fake)
	res, err := c.CodeCorpus(context.Background(), []types.Document{
		{ID: "ok", FullText: "remote work increases autonomy"},
		{ID: "bad", FullText: "broken document"},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"autonomy"}, res.Documents[0].Codes)
	assert.Nil(t, res.Documents[1].Codes, "failed document stays uncoded")
	require.Contains(t, res.Failures, "bad")
	assert.Equal(t, []string{"autonomy"}, res.GlobalCodes)

	// The next run codes only the failed document.
	retry := llmtest.Reply(`{"codes": ["breakdown"]}`)
	res, err = newTestCoder(retry).CodeCorpus(context.Background(), res.Documents, "")
	require.NoError(t, err)
	assert.Equal(t, 1, retry.Calls())
	assert.Equal(t, []string{"breakdown"}, res.Documents[1].Codes)
	assert.Empty(t, res.Failures)
	assert.Equal(t, []string{"autonomy", "breakdown"}, res.GlobalCodes)
}

func TestCodeCorpusAllUnauthenticated(t *testing.T) {
	c := newTestCoder(llmtest.Fail(llm.ErrUnauthenticated))
	_, err := c.CodeCorpus(context.Background(), []types.Document{
		{ID: "1", FullText: "a"}, {ID: "2", FullText: "b"},
	}, "")
	assert.ErrorIs(t, err, llm.ErrUnauthenticated)
}

func TestCodeCorpusRemoteWorkScenario(t *testing.T) {
	fake := &llmtest.Fake{Respond: func(req llm.Request) (string, error) {
		if strings.Contains(req.User, "remote work increases autonomy") {
			return "```json\n{\"codes\": [\"remote work autonomy\", \"flexibility\"]}\n```", nil
		}
		return `{"codes": []}`, nil
	}}
	c := newTestCoder(fake)
	res, err := c.CodeCorpus(context.Background(), []types.Document{
		{ID: "a", FullText: "Our survey shows remote work increases autonomy."},
		{ID: "b", FullText: "Interviews confirm remote work increases autonomy for engineers."},
	}, "")
	require.NoError(t, err)
	for _, d := range res.Documents {
		assert.NotEmpty(t, d.Codes, d.ID)
	}
	assert.ElementsMatch(t, []string{"remote work autonomy", "flexibility"}, res.GlobalCodes)
}
