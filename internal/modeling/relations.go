// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package modeling

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sourcegraph/conc/iter"

	"github.com/pdiddy/gioia-engine/internal/chunk"
	"github.com/pdiddy/gioia-engine/internal/embedding"
	"github.com/pdiddy/gioia-engine/internal/llm"
	"github.com/pdiddy/gioia-engine/pkg/types"
)

const (
	// DefaultEvidenceChunkSize and EvidenceOverlap split document texts for
	// the evidence index.
	DefaultEvidenceChunkSize = 1000
	EvidenceOverlap          = 50

	// DefaultEvidenceK is the number of passages retrieved per tuple.
	DefaultEvidenceK = 4

	relationMaxTokens = 300
)

// MetaDocumentID is the segment metadata key naming the source document.
const MetaDocumentID = "document_id"

// Relations is the outcome of interrelationship discovery.
type Relations struct {
	// Interrelationships holds one entry per input tuple, in input order.
	// A failed tuple has an empty summary and evidence.
	Interrelationships []types.Interrelationship

	// Failures maps a tuple ("A - B") to the error that stopped it.
	Failures map[string]error
}

// BuildEvidenceIndex chunks the text of every document that has one and
// embeds the chunks into a single index. Segments carry the document ID in
// their metadata.
func (m *Modeler) BuildEvidenceIndex(ctx context.Context, docs []types.Document) (*embedding.Index, error) {
	c := chunk.New(m.EvidenceChunkSize, EvidenceOverlap)
	var segments []embedding.Segment
	for _, d := range docs {
		if !d.HasText() {
			continue
		}
		n := 0
		for text := range c.Chunks(d.Text()) {
			segments = append(segments, embedding.Segment{
				ID:       d.ID + "#" + strconv.Itoa(n),
				Text:     text,
				Metadata: map[string]string{MetaDocumentID: d.ID},
			})
			n++
		}
	}
	ix := embedding.NewIndex(m.Embedder, m.IndexOptions...)
	if err := ix.AddDocuments(ctx, segments); err != nil {
		return nil, fmt.Errorf("building evidence index: %w", err)
	}
	m.Logger.Debug("evidence index built", "documents", len(docs), "segments", len(segments))
	return ix, nil
}

// Interrelationships summarizes how the concepts of each tuple relate,
// grounded in passages retrieved from the documents of state. The evidence
// index is built once and shared by all tuples, which are processed
// concurrently. A tuple that fails yields a placeholder and an entry in
// Relations.Failures; the others are unaffected.
//
// An error is returned when the index cannot be built, when the context is
// done, or when every tuple was rejected for missing credentials.
func (m *Modeler) Interrelationships(ctx context.Context, state types.ModelState, tuples []types.ConceptTuple) (Relations, error) {
	res := Relations{
		Interrelationships: make([]types.Interrelationship, len(tuples)),
		Failures:           map[string]error{},
	}
	if len(tuples) == 0 {
		return res, nil
	}

	ix, err := m.BuildEvidenceIndex(ctx, state.Documents)
	if err != nil {
		return res, err
	}

	type outcome struct {
		rel types.Interrelationship
		err error
	}
	mapper := iter.Mapper[types.ConceptTuple, outcome]{MaxGoroutines: len(tuples)}
	outcomes := mapper.Map(tuples, func(t *types.ConceptTuple) outcome {
		rel, err := m.relate(ctx, ix, *t)
		return outcome{rel: rel, err: err}
	})

	unauthenticated := 0
	for i, o := range outcomes {
		res.Interrelationships[i] = o.rel
		if o.err != nil {
			res.Failures[tuples[i].String()] = o.err
			if errors.Is(o.err, llm.ErrUnauthenticated) {
				unauthenticated++
			}
			m.Logger.Warn("interrelationship failed", "tuple", tuples[i].String(), "error", o.err)
		}
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if unauthenticated == len(tuples) {
		return res, fmt.Errorf("interrelationships: %w", llm.ErrUnauthenticated)
	}
	return res, nil
}

// relate retrieves evidence for t and summarizes it. On error the returned
// value is the placeholder for t.
func (m *Modeler) relate(ctx context.Context, ix *embedding.Index, t types.ConceptTuple) (types.Interrelationship, error) {
	placeholder := types.Interrelationship{Concepts: t}

	matches, err := ix.Query(ctx, t.String()+" relationship", m.EvidenceK)
	if err != nil {
		return placeholder, err
	}
	if len(matches) == 0 {
		return placeholder, nil
	}
	passages := make([]string, len(matches))
	for i, match := range matches {
		passages[i] = match.Segment.Text
	}
	evidence := strings.Join(passages, "\n\n")

	system, err := llm.Render(m.Prompts.Interrelationship, struct{ A, B string }{t.A, t.B})
	if err != nil {
		return placeholder, err
	}
	raw, err := m.Gateway.Complete(ctx, llm.Request{
		System:    system,
		User:      evidence,
		MaxTokens: relationMaxTokens,
	})
	if err != nil {
		return placeholder, err
	}
	return types.Interrelationship{
		Concepts: t,
		Summary:  strings.TrimSpace(raw),
		Evidence: evidence,
	}, nil
}
