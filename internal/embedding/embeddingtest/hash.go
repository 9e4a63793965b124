// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embeddingtest provides a deterministic Embedder for tests.
package embeddingtest

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// Dimensions is the vector length produced by Hash.
const Dimensions = 64

// Hash embeds text as a bag of lowercased words hashed into a fixed number
// of buckets. Texts sharing words get a positive cosine similarity, which is
// enough to exercise ranking without a provider.
type Hash struct {
	// Err, when set, is returned by every call.
	Err error

	mu    sync.Mutex
	calls int
	texts int
}

// Embed returns one bucket vector per text.
func (h *Hash) Embed(_ context.Context, texts []string) ([][]float32, error) {
	h.mu.Lock()
	h.calls++
	h.texts += len(texts)
	h.mu.Unlock()
	if h.Err != nil {
		return nil, h.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = Vector(t)
	}
	return out, nil
}

// Calls returns the number of Embed calls.
func (h *Hash) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

// Texts returns the total number of texts embedded.
func (h *Hash) Texts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.texts
}

// Vector computes the bucket vector of text.
func Vector(text string) []float32 {
	v := make([]float32, Dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		f := fnv.New32a()
		f.Write([]byte(w))
		v[f.Sum32()%Dimensions]++
	}
	return v
}
