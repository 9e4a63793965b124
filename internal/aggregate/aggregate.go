// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate implements the second-order phases of the Gioia method:
// grouping first-order codes into focus codes and distilling focus codes
// into aggregate dimensions.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pdiddy/gioia-engine/internal/chunk"
	"github.com/pdiddy/gioia-engine/internal/llm"
	"github.com/pdiddy/gioia-engine/pkg/types"
)

const (
	// DefaultThreshold is the serialized code-list length, in runes, above
	// which focus coding is split over several calls.
	DefaultThreshold = 10000

	// DefaultMaxBuckets caps the focus codes requested per call.
	DefaultMaxBuckets = 10

	// MinDimensions and MaxDimensions bound the aggregate dimensions asked for.
	MinDimensions = 5
	MaxDimensions = 7

	aggregateMaxTokens = 2000
)

// Aggregator runs the focus coding and aggregate dimension stages.
type Aggregator struct {
	Gateway    llm.Gateway
	Prompts    llm.Prompts
	Threshold  int
	MaxBuckets int
	Logger     *slog.Logger
}

// NewAggregator returns an Aggregator tuned by cfg.
func NewAggregator(g llm.Gateway, prompts llm.Prompts, cfg types.StageConfig, logger *slog.Logger) *Aggregator {
	a := &Aggregator{
		Gateway:    g,
		Prompts:    prompts,
		Threshold:  cfg.FocusThreshold,
		MaxBuckets: cfg.MaxFocusBuckets,
		Logger:     logger,
	}
	if a.Threshold <= 0 {
		a.Threshold = DefaultThreshold
	}
	if a.MaxBuckets <= 0 {
		a.MaxBuckets = DefaultMaxBuckets
	}
	if a.Logger == nil {
		a.Logger = slog.Default()
	}
	return a
}

// SecondOrderCoding groups codes into focus codes. The codes are serialized
// one per line; a list longer than the threshold is split at line ends and
// each part is sent in its own call, one after another. Buckets with the
// same label are merged by set union, so a focus code collects members from
// every part. Members the model invents are dropped.
//
// A part whose output does not parse contributes nothing; when no part
// parses the empty map comes with an error wrapping llm.ErrEmptyResult. A
// provider error is returned and the partial map discarded.
func (a *Aggregator) SecondOrderCoding(ctx context.Context, codes []string) (types.FocusCodeMap, error) {
	codes = types.UnionLabels(nil, codes)
	if len(codes) == 0 {
		return types.FocusCodeMap{}, nil
	}
	known := make(map[string]bool, len(codes))
	for _, c := range codes {
		known[c] = true
	}

	system, err := llm.Render(a.Prompts.FocusCoding, struct{ MaxBuckets int }{a.MaxBuckets})
	if err != nil {
		return nil, err
	}

	serialized := strings.Join(codes, "\n")
	parts := []string{serialized}
	if len([]rune(serialized)) > a.Threshold {
		parts = chunk.New(a.Threshold, 0, chunk.WithBreaks(chunk.Newlines)).Split(serialized)
	}

	merged := map[string][]string{}
	var parseErr error
	for i, part := range parts {
		raw, err := a.Gateway.Complete(ctx, llm.Request{
			System:    system,
			User:      part,
			MaxTokens: aggregateMaxTokens,
			Schema:    llm.SchemaFocusCodes,
		})
		if err != nil {
			return nil, fmt.Errorf("focus coding part %d of %d: %w", i+1, len(parts), err)
		}
		buckets, err := llm.Decode[map[string][]string](raw)
		if err != nil {
			a.Logger.Warn("discarding unparsable focus codes", "part", i+1, "error", err)
			parseErr = err
			continue
		}
		merged = types.MergeLabelMap(merged, filterMembers(buckets, known))
	}
	a.Logger.Debug("focus coding done", "parts", len(parts), "focus_codes", len(merged))
	if len(merged) == 0 && parseErr != nil {
		return types.FocusCodeMap{}, fmt.Errorf("focus coding: %w", errors.Join(llm.ErrEmptyResult, parseErr))
	}
	return types.FocusCodeMap(merged), nil
}

// AggregateDimensions distills the focus code labels, without their
// members, into a handful of aggregate dimensions. Output that does not
// parse yields an empty map and an error wrapping both llm.ErrEmptyResult and
// the SchemaParseError.
func (a *Aggregator) AggregateDimensions(ctx context.Context, focus types.FocusCodeMap) (types.AggregateDimensionMap, error) {
	keys := focus.Keys()
	if len(keys) == 0 {
		return types.AggregateDimensionMap{}, fmt.Errorf("aggregate dimensions: no focus codes: %w", llm.ErrEmptyResult)
	}
	known := make(map[string]bool, len(keys))
	for _, k := range keys {
		known[types.NormalizeLabel(k)] = true
	}

	system, err := llm.Render(a.Prompts.AggregateDimensions, struct{ Min, Max int }{MinDimensions, MaxDimensions})
	if err != nil {
		return nil, err
	}
	raw, err := a.Gateway.Complete(ctx, llm.Request{
		System:    system,
		User:      strings.Join(keys, "\n"),
		MaxTokens: aggregateMaxTokens,
		Schema:    llm.SchemaDimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate dimensions: %w", err)
	}
	dims, err := llm.Decode[map[string][]string](raw)
	if err != nil {
		a.Logger.Warn("discarding unparsable aggregate dimensions", "error", err)
		return types.AggregateDimensionMap{}, fmt.Errorf("aggregate dimensions: %w", errors.Join(llm.ErrEmptyResult, err))
	}

	out := types.MergeLabelMap(nil, filterMembers(dims, known))
	if len(out) == 0 {
		return types.AggregateDimensionMap{}, fmt.Errorf("aggregate dimensions: %w", llm.ErrEmptyResult)
	}
	if len(out) < MinDimensions || len(out) > MaxDimensions {
		a.Logger.Info("dimension count outside requested range", "dimensions", len(out))
	}
	return types.AggregateDimensionMap(out), nil
}

// filterMembers keeps only members found in known, dropping buckets left
// empty.
func filterMembers(buckets map[string][]string, known map[string]bool) map[string][]string {
	out := make(map[string][]string, len(buckets))
	for label, members := range buckets {
		var kept []string
		for _, m := range members {
			if known[types.NormalizeLabel(m)] {
				kept = append(kept, m)
			}
		}
		if len(kept) > 0 {
			out[label] = kept
		}
	}
	return out
}
