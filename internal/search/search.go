// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries academic APIs and returns unified, deduplicated
// results that can be added to a session as documents.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/sourcegraph/conc/pool"

	"github.com/pdiddy/gioia-engine/pkg/types"
)

// Backend searches a single academic API.
type Backend interface {
	Name() string
	Search(ctx context.Context, query Query, cfg types.SearchConfig) ([]types.SearchResult, error)
}

// Query holds the search parameters.
type Query struct {
	FreeText string
	Author   string
	Keywords []string
	DateFrom time.Time
	DateTo   time.Time
}

// IsEmpty reports whether the query contains no searchable terms.
func (q Query) IsEmpty() bool {
	return q.FreeText == "" && q.Author == "" && len(q.Keywords) == 0
}

// Text joins the query fields into one search string.
func (q Query) Text() string {
	var parts []string
	if q.FreeText != "" {
		parts = append(parts, q.FreeText)
	}
	if q.Author != "" {
		parts = append(parts, q.Author)
	}
	parts = append(parts, q.Keywords...)
	return strings.Join(parts, " ")
}

// ErrEmptyQuery is returned when a query has no searchable terms.
var ErrEmptyQuery = errors.New("query is empty: provide a research question or structured parameters")

// SearchOutput holds the results and dedup statistics.
type SearchOutput struct {
	Results       []types.SearchResult
	DupsRemoved   int
	BackendErrors []string
}

// Documents converts the results to pipeline documents in rank order.
func (o SearchOutput) Documents() []types.Document {
	docs := make([]types.Document, len(o.Results))
	for i, r := range o.Results {
		docs[i] = r.Document()
	}
	return docs
}

type backendResult struct {
	name    string
	results []types.SearchResult
	err     error
}

// Search fans out the query to all backends concurrently, deduplicates
// results, ranks them, and returns the top N. A failing backend is
// reported and skipped; Search fails only when every backend fails.
func Search(ctx context.Context, query Query, backends []Backend, cfg types.SearchConfig, recencyBias bool, w io.Writer) (SearchOutput, error) {
	if query.IsEmpty() {
		return SearchOutput{}, ErrEmptyQuery
	}
	if len(backends) == 0 {
		return SearchOutput{}, fmt.Errorf("no search backends configured")
	}

	p := pool.NewWithResults[backendResult]()
	for i, b := range backends {
		delay := time.Duration(i) * cfg.InterBackendDelay
		p.Go(func() backendResult {
			if delay > 0 {
				select {
				case <-ctx.Done():
					return backendResult{name: b.Name(), err: ctx.Err()}
				case <-time.After(delay):
				}
			}
			results, err := b.Search(ctx, query, cfg)
			return backendResult{name: b.Name(), results: results, err: err}
		})
	}

	var (
		all           []types.SearchResult
		backendErrors []string
		errs          []error
	)
	for _, br := range p.Wait() {
		if br.err != nil {
			backendErrors = append(backendErrors, fmt.Sprintf("%s: %v", br.name, br.err))
			errs = append(errs, fmt.Errorf("%s: %w", br.name, br.err))
			fmt.Fprintf(w, "warning: backend %s failed: %v\n", br.name, br.err)
			continue
		}
		all = append(all, br.results...)
	}
	if len(errs) == len(backends) {
		return SearchOutput{BackendErrors: backendErrors}, fmt.Errorf("all search backends failed: %w", errors.Join(errs...))
	}

	deduped, removed := deduplicate(all)

	if recencyBias && cfg.RecencyBiasWindow > 0 {
		applyRecencyBias(deduped, cfg.RecencyBiasWindow, time.Now())
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].RelevanceScore > deduped[j].RelevanceScore
	})

	if cfg.MaxResults > 0 && len(deduped) > cfg.MaxResults {
		deduped = deduped[:cfg.MaxResults]
	}

	return SearchOutput{
		Results:       deduped,
		DupsRemoved:   removed,
		BackendErrors: backendErrors,
	}, nil
}

// deduplicate merges results that share an identifier, a DOI, or a
// normalized title.
func deduplicate(results []types.SearchResult) ([]types.SearchResult, int) {
	seen := make(map[string]int) // dedup key → index in deduped
	var deduped []types.SearchResult
	removed := 0

	for _, r := range results {
		keys := dedupKeys(r)
		idx, dup := -1, false
		for _, k := range keys {
			if i, ok := seen[k]; ok {
				idx, dup = i, true
				break
			}
		}
		if dup {
			mergeInto(&deduped[idx], r)
			removed++
		} else {
			idx = len(deduped)
			deduped = append(deduped, r)
		}
		for _, k := range dedupKeys(deduped[idx]) {
			if _, ok := seen[k]; !ok {
				seen[k] = idx
			}
		}
	}
	return deduped, removed
}

func dedupKeys(r types.SearchResult) []string {
	var keys []string
	if r.Identifier != "" {
		keys = append(keys, "id:"+r.Identifier)
	}
	if r.DOI != "" {
		keys = append(keys, "doi:"+strings.ToLower(r.DOI))
	}
	if t := normalizeTitle(r.Title); t != "" {
		keys = append(keys, "title:"+t)
	}
	return keys
}

// mergeInto fills empty fields of dst from src and keeps the higher score.
func mergeInto(dst *types.SearchResult, src types.SearchResult) {
	if dst.Title == "" && src.Title != "" {
		dst.Title = src.Title
	}
	if len(dst.Authors) == 0 && len(src.Authors) > 0 {
		dst.Authors = src.Authors
	}
	if dst.Abstract == "" && src.Abstract != "" {
		dst.Abstract = src.Abstract
	}
	if dst.DOI == "" && src.DOI != "" {
		dst.DOI = src.DOI
	}
	if dst.URL == "" && src.URL != "" {
		dst.URL = src.URL
	}
	if dst.Date.IsZero() && !src.Date.IsZero() {
		dst.Date = src.Date
	}
	if src.RelevanceScore > dst.RelevanceScore {
		dst.RelevanceScore = src.RelevanceScore
	}
	if dst.Source != src.Source && !strings.Contains(dst.Source, src.Source) {
		dst.Source = dst.Source + "," + src.Source
	}
}

// normalizeTitle returns a lowercased, punctuation-stripped version of the title.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// applyRecencyBias boosts scores for papers published within the window.
func applyRecencyBias(results []types.SearchResult, window time.Duration, now time.Time) {
	for i := range results {
		if results[i].Date.IsZero() {
			continue
		}
		age := now.Sub(results[i].Date)
		if age <= window {
			boost := 0.2 * (1.0 - float64(age)/float64(window))
			results[i].RelevanceScore = math.Min(1.0, results[i].RelevanceScore+boost)
		}
	}
}

// positionScore scores the i-th of total results linearly from 1.0 down
// to 0.1, for backends that return results sorted by relevance.
func positionScore(i, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - float64(i)/float64(total-1)*0.9
}

// FormatTable writes results as a human-readable table to w.
func FormatTable(out SearchOutput, w io.Writer) {
	if len(out.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-4s  %-6s  %s\n",
		"Rank", "Title", "Authors", "Year", "Score", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for i, r := range out.Results {
		year := ""
		if !r.Date.IsZero() {
			year = fmt.Sprintf("%d", r.Date.Year())
		}
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-4s  %-6.2f  %s\n",
			i+1, truncate(r.Title, 60), formatAuthors(r.Authors), year, r.RelevanceScore, r.Source)
	}

	fmt.Fprintf(w, "\n%d results", len(out.Results))
	if out.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", out.DupsRemoved)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes results as indented JSON to w.
func FormatJSON(out SearchOutput, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out.Results)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
