// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/gioia-engine/internal/embedding/embeddingtest"
)

// tableEmbedder maps exact texts to fixed vectors.
type tableEmbedder map[string][]float32

func (m tableEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := m[t]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", t)
		}
		out[i] = v
	}
	return out, nil
}

func TestQueryRanksByCosine(t *testing.T) {
	e := tableEmbedder{
		"north":     {0, 1},
		"east":      {1, 0},
		"northeast": {1, 1},
		"query":     {0.1, 1},
	}
	ix := NewIndex(e)
	require.NoError(t, ix.AddDocuments(context.Background(), []Segment{
		{ID: "e", Text: "east"},
		{ID: "ne", Text: "northeast"},
		{ID: "n", Text: "north"},
	}))

	got, err := ix.Query(context.Background(), "query", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "n", got[0].Segment.ID)
	assert.Equal(t, "ne", got[1].Segment.ID)
	assert.Greater(t, got[0].Score, got[1].Score)
}

func TestQueryTiesKeepInsertionOrder(t *testing.T) {
	e := tableEmbedder{"a": {1, 0}, "b": {2, 0}, "c": {3, 0}, "q": {1, 0}}
	ix := NewIndex(e, WithBatchSize(1), WithConcurrency(3))
	require.NoError(t, ix.AddDocuments(context.Background(), []Segment{
		{ID: "1", Text: "a"}, {ID: "2", Text: "b"}, {ID: "3", Text: "c"},
	}))

	got, err := ix.Query(context.Background(), "q", 3)
	require.NoError(t, err)
	ids := []string{got[0].Segment.ID, got[1].Segment.ID, got[2].Segment.ID}
	assert.Equal(t, []string{"1", "2", "3"}, ids)
	for _, m := range got {
		assert.InDelta(t, 1.0, m.Score, 1e-9)
	}
}

func TestQueryEdgeCases(t *testing.T) {
	h := &embeddingtest.Hash{}
	ix := NewIndex(h)

	got, err := ix.Query(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Nil(t, got, "empty index")
	assert.Equal(t, 0, h.Calls(), "empty index must not embed the query")

	require.NoError(t, ix.AddDocuments(context.Background(), []Segment{{ID: "1", Text: "remote work"}}))
	got, err = ix.Query(context.Background(), "remote", 0)
	require.NoError(t, err)
	assert.Nil(t, got, "k <= 0")

	got, err = ix.Query(context.Background(), "remote", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1, "k larger than index")
}

func TestZeroVectorScoresZero(t *testing.T) {
	e := tableEmbedder{"blank": {0, 0}, "q": {1, 1}}
	ix := NewIndex(e)
	require.NoError(t, ix.AddDocuments(context.Background(), []Segment{{ID: "z", Text: "blank"}}))
	got, err := ix.Query(context.Background(), "q", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.0, got[0].Score)
}

func TestAddDocumentsBatches(t *testing.T) {
	h := &embeddingtest.Hash{}
	ix := NewIndex(h, WithBatchSize(4), WithConcurrency(2))

	segs := make([]Segment, 10)
	for i := range segs {
		segs[i] = Segment{ID: fmt.Sprint(i), Text: fmt.Sprintf("segment number %d", i)}
	}
	require.NoError(t, ix.AddDocuments(context.Background(), segs))
	assert.Equal(t, 3, h.Calls())
	assert.Equal(t, 10, h.Texts())
	assert.Equal(t, 10, ix.Len())
}

func TestAddDocumentsErrorStoresNothing(t *testing.T) {
	h := &embeddingtest.Hash{Err: errors.New("provider down")}
	ix := NewIndex(h)
	err := ix.AddDocuments(context.Background(), []Segment{{ID: "1", Text: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider down")
	assert.Equal(t, 0, ix.Len())
}

func TestReadManyAfterSinglePopulation(t *testing.T) {
	h := &embeddingtest.Hash{}
	ix := NewIndex(h)
	require.NoError(t, ix.AddDocuments(context.Background(), []Segment{
		{ID: "autonomy", Text: "remote work increases autonomy"},
		{ID: "costs", Text: "coordination costs rise in distributed teams"},
	}))
	populateCalls := h.Calls()

	for _, q := range []string{"autonomy at work", "coordination costs"} {
		got, err := ix.Query(context.Background(), q, 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
	}
	assert.Equal(t, populateCalls+2, h.Calls(), "one embedding call per query")
}
