// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package review

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/gioia-engine/internal/llm"
	"github.com/pdiddy/gioia-engine/internal/llm/llmtest"
	"github.com/pdiddy/gioia-engine/pkg/types"
)

func newTestReviewer(g llm.Gateway) *Reviewer {
	return NewReviewer(g, llm.DefaultPrompts(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func papers() []types.Document {
	return []types.Document{
		{ID: "1", Title: "Working from Home", Authors: []string{"Bloom", "Liang"}, Year: 2015, Abstract: "A randomized\n experiment."},
		{ID: "2", Title: "Remote Autonomy", Authors: []string{"Smith"}, Abstract: "Autonomy rises."},
	}
}

func TestPaperLine(t *testing.T) {
	assert.Equal(t, "Bloom, Liang, 2015, Working from Home write: A randomized experiment.", PaperLine(papers()[0]))
	assert.Equal(t, "Smith, , Remote Autonomy write: Autonomy rises.", PaperLine(papers()[1]))
}

func TestPaperListingIsCapped(t *testing.T) {
	var docs []types.Document
	for i := 0; i < 100; i++ {
		docs = append(docs, types.Document{Title: "T", Abstract: strings.Repeat("word ", 50)})
	}
	assert.Len(t, []rune(PaperListing(docs)), MaxPayload)
}

func TestLiteratureReviewStreams(t *testing.T) {
	fake := &llmtest.Fake{Tokens: []string{"Bloom et al. (2015)", " show", " gains."}}
	r := newTestReviewer(fake)

	var got []string
	full, err := r.LiteratureReview(context.Background(), "Does remote work pay off?", papers(), func(tok string) {
		got = append(got, tok)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bloom et al. (2015)", " show", " gains."}, got)
	assert.Equal(t, "Bloom et al. (2015) show gains.", full)

	prompt := fake.Prompts()[0]
	assert.Contains(t, prompt, "Bloom, Liang, 2015, Working from Home write:")
	assert.Contains(t, prompt, `"Does remote work pay off?"`)
	assert.Contains(t, prompt, "APA7")
}

func TestLiteratureReviewStreamError(t *testing.T) {
	fake := &llmtest.Fake{Tokens: []string{"partial"}, StreamErr: &llm.ProviderError{Provider: "test", Err: errors.New("reset")}}
	r := newTestReviewer(fake)
	full, err := r.LiteratureReview(context.Background(), "q", papers(), nil)
	var pe *llm.ProviderError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, "partial", full)
}

func TestLiteratureReviewNeedsDocuments(t *testing.T) {
	fake := &llmtest.Fake{}
	_, err := newTestReviewer(fake).LiteratureReview(context.Background(), "q", nil, nil)
	assert.ErrorIs(t, err, llm.ErrEmptyResult)
	assert.Empty(t, fake.Prompts())
}

func TestResearchQuestions(t *testing.T) {
	fake := llmtest.Reply(`{"researchQuestions": ["How does autonomy affect trust?", "", "How does autonomy affect trust?"]}`)
	r := newTestReviewer(fake)
	got, err := r.ResearchQuestions(context.Background(), "remote work", papers())
	require.NoError(t, err)
	assert.Equal(t, []string{"How does autonomy affect trust?"}, got)

	req := fake.Requests()[0]
	assert.Contains(t, req.System, `"remote work"`)
	assert.Equal(t, llm.SchemaResearchQuestions, req.Schema)
}

func TestDetailStoresText(t *testing.T) {
	var sawPending bool
	doc := papers()[0]
	fake := &llmtest.Fake{Respond: func(req llm.Request) (string, error) {
		v, ok := doc.Detail("Key Findings")
		sawPending = ok && v.IsPending()
		return " Productivity rose 13%. ", nil
	}}
	r := newTestReviewer(fake)

	v, err := r.Detail(context.Background(), &doc, "Key Findings")
	require.NoError(t, err)
	assert.True(t, sawPending, "column must read as pending during the call")
	assert.Equal(t, types.TextDetail("Productivity rose 13%."), v)
	stored, ok := doc.Detail("Key Findings")
	require.True(t, ok)
	assert.Equal(t, "Productivity rose 13%.", stored.String())
	assert.Contains(t, fake.Requests()[0].System, "What is the Key Findings of the paper?")
}

func TestDetailStructuredAnswer(t *testing.T) {
	doc := papers()[0]
	r := newTestReviewer(llmtest.Reply(`{"sample": "16000 employees", "method": "RCT"}`))
	v, err := r.Detail(context.Background(), &doc, "Methodology")
	require.NoError(t, err)
	assert.Equal(t, types.DetailStructured, v.Kind)
	assert.Equal(t, "method: RCT; sample: 16000 employees", v.String())
}

func TestDetailFailureClearsPending(t *testing.T) {
	doc := papers()[0]
	r := newTestReviewer(llmtest.Fail(&llm.ProviderError{Provider: "test", Err: errors.New("down")}))
	_, err := r.Detail(context.Background(), &doc, "Key Findings")
	require.Error(t, err)
	_, ok := doc.Detail("Key Findings")
	assert.False(t, ok)
}

func TestDetailAllSkipsComputed(t *testing.T) {
	docs := papers()
	docs[0].SetDetail("Key Findings", types.TextDetail("already known"))
	fake := llmtest.Reply("Autonomy rises.")
	r := newTestReviewer(fake)

	failures := r.DetailAll(context.Background(), docs, "Key Findings")
	assert.Empty(t, failures)
	assert.Equal(t, 1, fake.Calls())
	v, _ := docs[0].Detail("Key Findings")
	assert.Equal(t, "already known", v.Text)
	v, _ = docs[1].Detail("Key Findings")
	assert.Equal(t, "Autonomy rises.", v.Text)
}
