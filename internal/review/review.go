// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package review produces the literature-facing outputs of a session: a
// streamed literature review, tentative research questions, and custom
// detail columns extracted per document.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/iter"

	"github.com/pdiddy/gioia-engine/internal/chunk"
	"github.com/pdiddy/gioia-engine/internal/llm"
	"github.com/pdiddy/gioia-engine/pkg/types"
)

const (
	// MaxPayload caps, in runes, the paper listing sent with a review or
	// research question request and the document text sent for a detail.
	MaxPayload = 6000

	reviewMaxTokens    = 800
	questionsMaxTokens = 800
	detailMaxTokens    = 300
)

// Reviewer runs the review stages.
type Reviewer struct {
	Gateway llm.Gateway
	Prompts llm.Prompts
	Logger  *slog.Logger
}

// NewReviewer returns a Reviewer. A nil logger uses slog.Default.
func NewReviewer(g llm.Gateway, prompts llm.Prompts, logger *slog.Logger) *Reviewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reviewer{Gateway: g, Prompts: prompts, Logger: logger}
}

// PaperLine formats a document the way the review prompt lists papers:
// "<authors>, <year>, <title> write: <abstract>".
func PaperLine(d types.Document) string {
	year := ""
	if d.Year > 0 {
		year = strconv.Itoa(d.Year)
	}
	abstract := d.Abstract
	if abstract == "" {
		abstract = d.FullText
	}
	return fmt.Sprintf("%s, %s, %s write: %s", d.AuthorLine(), year, d.Title, strings.Join(strings.Fields(abstract), " "))
}

// PaperListing joins the paper lines of docs and caps the result at
// MaxPayload runes.
func PaperListing(docs []types.Document) string {
	lines := make([]string, len(docs))
	for i, d := range docs {
		lines[i] = PaperLine(d)
	}
	return truncate(strings.Join(lines, "\n"), MaxPayload)
}

// LiteratureReview streams a short literature review of docs answering
// query. Every token is passed to onToken as it arrives; the complete text
// is returned.
func (r *Reviewer) LiteratureReview(ctx context.Context, query string, docs []types.Document, onToken func(string)) (string, error) {
	if len(docs) == 0 {
		return "", fmt.Errorf("literature review: no documents: %w", llm.ErrEmptyResult)
	}
	prompt, err := llm.Render(r.Prompts.LiteratureReview, struct{ Papers, Query string }{PaperListing(docs), query})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	err = r.Gateway.Stream(ctx, prompt, reviewMaxTokens, func(tok string) {
		b.WriteString(tok)
		if onToken != nil {
			onToken(tok)
		}
	})
	if err != nil {
		return b.String(), fmt.Errorf("literature review: %w", err)
	}
	return b.String(), nil
}

type questionsResponse struct {
	ResearchQuestions []string `json:"researchQuestions"`
}

// ResearchQuestions suggests research questions addressing gaps in the
// literature found for query.
func (r *Reviewer) ResearchQuestions(ctx context.Context, query string, docs []types.Document) ([]string, error) {
	system, err := llm.Render(r.Prompts.ResearchQuestions, struct{ Query string }{query})
	if err != nil {
		return nil, err
	}
	raw, err := r.Gateway.Complete(ctx, llm.Request{
		System:    system,
		User:      PaperListing(docs),
		MaxTokens: questionsMaxTokens,
		Schema:    llm.SchemaResearchQuestions,
	})
	if err != nil {
		return nil, fmt.Errorf("research questions: %w", err)
	}
	resp, err := llm.Decode[questionsResponse](raw)
	if err != nil {
		r.Logger.Warn("discarding unparsable research questions", "error", err)
		return []string{}, fmt.Errorf("research questions: %w: %w", llm.ErrEmptyResult, err)
	}
	questions := types.UnionLabels(nil, resp.ResearchQuestions)
	if len(questions) == 0 {
		return []string{}, fmt.Errorf("research questions: %w", llm.ErrEmptyResult)
	}
	return questions, nil
}

// Detail extracts the custom column from doc and stores it on the document.
// The column reads as pending while the call runs. On failure the column is
// removed so a later call can retry it.
func (r *Reviewer) Detail(ctx context.Context, doc *types.Document, column string) (types.DetailValue, error) {
	column = strings.TrimSpace(column)
	if column == "" {
		return types.DetailValue{}, errors.New("detail: empty column name")
	}
	doc.SetDetail(column, types.PendingDetail())

	v, err := r.extract(ctx, *doc, column)
	if err != nil {
		delete(doc.Details, column)
		return types.DetailValue{}, fmt.Errorf("detail %q of %s: %w", column, doc.ID, err)
	}
	doc.SetDetail(column, v)
	return v, nil
}

func (r *Reviewer) extract(ctx context.Context, doc types.Document, column string) (types.DetailValue, error) {
	system, err := llm.Render(r.Prompts.Detail, struct{ Column string }{column})
	if err != nil {
		return types.DetailValue{}, err
	}
	text := ""
	for c := range chunk.New(MaxPayload, 0).Chunks(doc.Text()) {
		text = c
		break
	}
	if text == "" {
		return types.DetailValue{}, llm.ErrEmptyResult
	}
	raw, err := r.Gateway.Complete(ctx, llm.Request{System: system, User: text, MaxTokens: detailMaxTokens})
	if err != nil {
		return types.DetailValue{}, err
	}
	answer := strings.TrimSpace(raw)
	if answer == "" {
		return types.DetailValue{}, llm.ErrEmptyResult
	}
	if strings.HasPrefix(answer, "{") {
		if m, err := llm.Decode[map[string]any](answer); err == nil && len(m) > 0 {
			return types.StructuredDetail(m), nil
		}
	}
	return types.TextDetail(answer), nil
}

// DetailAll extracts column from every document concurrently. Documents
// that already hold a computed value are skipped. Failures are returned
// keyed by document ID; successful documents keep their value regardless.
func (r *Reviewer) DetailAll(ctx context.Context, docs []types.Document, column string) map[string]error {
	var mu sync.Mutex
	failures := map[string]error{}
	iter.ForEach(docs, func(d *types.Document) {
		if v, ok := d.Detail(column); ok && !v.IsPending() {
			return
		}
		if _, err := r.Detail(ctx, d, column); err != nil {
			r.Logger.Warn("detail extraction failed", "document", d.ID, "column", column, "error", err)
			mu.Lock()
			failures[d.ID] = err
			mu.Unlock()
		}
	})
	return failures
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
