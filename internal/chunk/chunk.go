// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package chunk splits long text into overlapping, size-bounded segments so
// each segment fits a model's input limit while keeping local context.
//
// Sizes and offsets are measured in runes. Chunks are contiguous substrings
// of the input: dropping from each chunk the prefix it shares with its
// predecessor and concatenating the rest gives back the original text.
package chunk

import (
	"iter"
	"unicode"
)

const (
	// DefaultSize is used when a non-positive size is requested.
	DefaultSize = 1000

	// DefaultOverlap matches the ranking splitter of the original tool.
	DefaultOverlap = 50
)

// Span is one chunk with its rune offsets in the source text.
type Span struct {
	Text  string
	Start int
	End   int
}

// Chunker splits text into overlapping chunks. The zero value is not
// usable; construct with New.
type Chunker struct {
	size    int
	overlap int
	isBreak func(rune) bool
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithBreaks sets the predicate for preferred cut points. The default is
// unicode.IsSpace.
func WithBreaks(fn func(rune) bool) Option {
	return func(c *Chunker) {
		if fn != nil {
			c.isBreak = fn
		}
	}
}

// Newlines is a break predicate that only cuts at line ends, keeping each
// line whole when it fits in a chunk.
func Newlines(r rune) bool { return r == '\n' }

// New returns a Chunker producing chunks of at most size runes that share
// at least overlap runes with their neighbour. A non-positive size falls
// back to DefaultSize, a negative overlap to zero, and an overlap that would
// stall progress to size-1.
func New(size, overlap int, opts ...Option) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	c := &Chunker{size: size, overlap: overlap, isBreak: unicode.IsSpace}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Size returns the maximum chunk length in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the minimum overlap between consecutive chunks.
func (c *Chunker) Overlap() int { return c.overlap }

// Spans returns a lazy sequence of chunks with offsets. The sequence can be
// ranged over any number of times.
func (c *Chunker) Spans(text string) iter.Seq[Span] {
	return func(yield func(Span) bool) {
		if text == "" {
			return
		}
		runes := []rune(text)
		n := len(runes)
		if n <= c.size {
			yield(Span{Text: text, Start: 0, End: n})
			return
		}

		start := 0
		for {
			if n-start <= c.size {
				yield(Span{Text: string(runes[start:n]), Start: start, End: n})
				return
			}
			end := c.cut(runes, start)
			if !yield(Span{Text: string(runes[start:end]), Start: start, End: end}) {
				return
			}
			start = c.next(runes, start, end)
		}
	}
}

// Chunks returns a lazy sequence of chunk texts.
func (c *Chunker) Chunks(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for s := range c.Spans(text) {
			if !yield(s.Text) {
				return
			}
		}
	}
}

// Split collects every chunk of text into a slice.
func (c *Chunker) Split(text string) []string {
	var out []string
	for s := range c.Chunks(text) {
		out = append(out, s)
	}
	return out
}

// cut picks the end offset of the chunk starting at start. It returns the
// largest offset within the size limit that sits on a break rune, leaving
// room for the next chunk to advance past start. Without a break it cuts
// at the size limit.
func (c *Chunker) cut(runes []rune, start int) int {
	limit := start + c.size
	floor := start + c.overlap
	for end := limit; end > floor; end-- {
		if c.isBreak(runes[end]) || c.isBreak(runes[end-1]) {
			return end
		}
	}
	return limit
}

// next picks the start offset of the chunk following [start, end). The
// overlap is at least c.overlap; with a positive overlap the start is moved
// back to the nearest preceding break so the next chunk begins on a word.
func (c *Chunker) next(runes []rune, start, end int) int {
	p := end - c.overlap
	if c.overlap == 0 {
		return p
	}
	for q := p; q > start; q-- {
		if c.isBreak(runes[q-1]) {
			return q
		}
	}
	return p
}
