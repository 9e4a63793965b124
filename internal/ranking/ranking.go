// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ranking reorders documents by semantic relevance to a query.
package ranking

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pdiddy/gioia-engine/internal/chunk"
	"github.com/pdiddy/gioia-engine/internal/embedding"
	"github.com/pdiddy/gioia-engine/pkg/types"
)

const (
	// DefaultK is the number of chunks retrieved for a query.
	DefaultK = 15

	// DefaultChunkSize and DefaultOverlap split document texts.
	DefaultChunkSize = 1000
	DefaultOverlap   = 50
)

const metaDocument = "document_id"

// Options tunes Rank. The zero value uses the defaults and drops documents
// that were not retrieved.
type Options struct {
	// K is the number of chunks retrieved (default 15).
	K int

	// ChunkSize and Overlap split document texts (defaults 1000 and 50).
	ChunkSize int
	Overlap   int

	// KeepUnranked appends documents absent from the ranking, including
	// documents without text, after the ranked ones in their input order.
	KeepUnranked bool

	// IndexOptions are passed to the index.
	IndexOptions []embedding.Option
}

func (o Options) withDefaults() Options {
	if o.K <= 0 {
		o.K = DefaultK
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize, o.Overlap = DefaultChunkSize, DefaultOverlap
	}
	return o
}

// Rank chunks the text of every document, retrieves the K chunks closest to
// query, and returns the documents those chunks came from in order of their
// best chunk. A document appears at most once, at the position of its
// highest scoring chunk. Documents without text never enter the index.
func Rank(ctx context.Context, e embedding.Embedder, query string, docs []types.Document, opts Options) ([]types.Document, error) {
	opts = opts.withDefaults()
	c := chunk.New(opts.ChunkSize, opts.Overlap)

	var segments []embedding.Segment
	for i, d := range docs {
		if !d.HasText() {
			continue
		}
		n := 0
		for text := range c.Chunks(d.Text()) {
			segments = append(segments, embedding.Segment{
				ID:       d.ID + "#" + strconv.Itoa(n),
				Text:     text,
				Metadata: map[string]string{metaDocument: strconv.Itoa(i)},
			})
			n++
		}
	}

	ix := embedding.NewIndex(e, opts.IndexOptions...)
	if err := ix.AddDocuments(ctx, segments); err != nil {
		return nil, fmt.Errorf("ranking: %w", err)
	}
	matches, err := ix.Query(ctx, query, opts.K)
	if err != nil {
		return nil, fmt.Errorf("ranking: %w", err)
	}

	ranked := make([]types.Document, 0, len(docs))
	placed := make(map[string]bool, len(docs))
	for _, m := range matches {
		i, err := strconv.Atoi(m.Segment.Metadata[metaDocument])
		if err != nil || i < 0 || i >= len(docs) {
			continue
		}
		d := docs[i]
		if placed[d.ID] {
			continue
		}
		placed[d.ID] = true
		ranked = append(ranked, d)
	}

	if opts.KeepUnranked {
		for _, d := range docs {
			if !placed[d.ID] {
				placed[d.ID] = true
				ranked = append(ranked, d)
			}
		}
	}
	return ranked, nil
}
