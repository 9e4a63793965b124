// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embedding provides an in-memory nearest-neighbour index over text
// segments and the embedding providers that back it.
package embedding

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Embedder turns texts into vectors. Implementations return exactly one
// vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Segment is a unit of text stored in the index.
type Segment struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// Match is a query result: a stored segment with its cosine similarity.
type Match struct {
	Segment Segment
	Score   float64
}

const (
	defaultBatchSize   = 64
	defaultConcurrency = 4
)

// Index is a brute-force cosine similarity index. It is populated with
// AddDocuments and may then be queried any number of times, including
// from several goroutines at once.
type Index struct {
	embedder    Embedder
	batchSize   int
	concurrency int

	mu       sync.RWMutex
	segments []Segment
	vectors  [][]float32
	norms    []float64
}

// Option configures an Index.
type Option func(*Index)

// WithBatchSize sets how many segments are embedded per provider call.
func WithBatchSize(n int) Option {
	return func(ix *Index) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// WithConcurrency bounds the number of embedding calls in flight.
func WithConcurrency(n int) Option {
	return func(ix *Index) {
		if n > 0 {
			ix.concurrency = n
		}
	}
}

// NewIndex returns an empty index backed by e.
func NewIndex(e Embedder, opts ...Option) *Index {
	ix := &Index{
		embedder:    e,
		batchSize:   defaultBatchSize,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Len returns the number of stored segments.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.segments)
}

// AddDocuments embeds segments and stores them. Segments keep their
// insertion order, which breaks score ties at query time. On error nothing
// is stored.
func (ix *Index) AddDocuments(ctx context.Context, segments []Segment) error {
	if len(segments) == 0 {
		return nil
	}

	vectors := make([][]float32, len(segments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)

	for lo := 0; lo < len(segments); lo += ix.batchSize {
		hi := min(lo+ix.batchSize, len(segments))
		g.Go(func() error {
			texts := make([]string, hi-lo)
			for i, s := range segments[lo:hi] {
				texts[i] = s.Text
			}
			vecs, err := ix.embedder.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("embedding segments %d-%d: %w", lo, hi-1, err)
			}
			if len(vecs) != len(texts) {
				return fmt.Errorf("embedding segments %d-%d: got %d vectors for %d texts", lo, hi-1, len(vecs), len(texts))
			}
			copy(vectors[lo:hi], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	norms := make([]float64, len(vectors))
	for i, v := range vectors {
		norms[i] = norm(v)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.segments = append(ix.segments, segments...)
	ix.vectors = append(ix.vectors, vectors...)
	ix.norms = append(ix.norms, norms...)
	return nil
}

// Query embeds text and returns the k most similar segments, highest
// similarity first. Equal scores keep insertion order.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]Match, error) {
	if k <= 0 || ix.Len() == 0 {
		return nil, nil
	}
	vecs, err := ix.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding query: got %d vectors", len(vecs))
	}
	return ix.QueryVector(vecs[0], k), nil
}

// QueryVector ranks stored segments against an already embedded query.
func (ix *Index) QueryVector(q []float32, k int) []Match {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if k <= 0 || len(ix.segments) == 0 {
		return nil
	}

	qn := norm(q)
	matches := make([]Match, len(ix.segments))
	for i, v := range ix.vectors {
		matches[i] = Match{Segment: ix.segments[i], Score: cosine(q, v, qn, ix.norms[i])}
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k]
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns the cosine similarity of a and b given their norms. A zero
// vector has similarity 0 with everything.
func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	n := min(len(a), len(b))
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}
