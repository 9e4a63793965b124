// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package coding implements the first-order coding phase of the Gioia
// method: every document is split into large chunks and each chunk is
// labelled with short theme codes by the model.
package coding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc/iter"

	"github.com/pdiddy/gioia-engine/internal/chunk"
	"github.com/pdiddy/gioia-engine/internal/llm"
	"github.com/pdiddy/gioia-engine/pkg/types"
)

const (
	// DefaultChunkSize and DefaultChunkOverlap size coding chunks in runes.
	DefaultChunkSize    = 8000
	DefaultChunkOverlap = 200

	codesMaxTokens = 1000
)

// Coder labels documents with first-order codes.
type Coder struct {
	Gateway llm.Gateway
	Chunker *chunk.Chunker
	Prompts llm.Prompts
	Logger  *slog.Logger
}

// NewCoder returns a Coder chunking with the sizes in cfg. Zero sizes fall
// back to the package defaults.
func NewCoder(g llm.Gateway, prompts llm.Prompts, cfg types.StageConfig, logger *slog.Logger) *Coder {
	size, overlap := cfg.CodingChunkSize, cfg.CodingChunkOverlap
	if size <= 0 {
		size, overlap = DefaultChunkSize, DefaultChunkOverlap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coder{
		Gateway: g,
		Chunker: chunk.New(size, overlap),
		Prompts: prompts,
		Logger:  logger,
	}
}

type codesResponse struct {
	Codes []string `json:"codes"`
}

// CodeDocument codes the chunks of doc one after another and returns the
// codes of all chunks in chunk order. Codes repeated across chunks are kept.
// A chunk whose output does not parse contributes nothing. A provider error
// stops the document and is returned.
//
// The result is never nil, so a document without text is recorded as coded.
func (c *Coder) CodeDocument(ctx context.Context, doc types.Document, remarks string) ([]string, error) {
	system, err := llm.Render(c.Prompts.InitialCoding, struct{ Remarks string }{remarks})
	if err != nil {
		return nil, err
	}

	codes := []string{}
	n := 0
	for text := range c.Chunker.Chunks(doc.Text()) {
		n++
		raw, err := c.Gateway.Complete(ctx, llm.Request{
			System:    system,
			User:      text,
			MaxTokens: codesMaxTokens,
			Schema:    llm.SchemaCodes,
		})
		if err != nil {
			return nil, fmt.Errorf("coding %s chunk %d: %w", doc.ID, n, err)
		}
		resp, err := llm.Decode[codesResponse](raw)
		if err != nil {
			c.Logger.Warn("discarding unparsable codes", "document", doc.ID, "chunk", n, "error", err)
			continue
		}
		codes = append(codes, types.NormalizeLabels(resp.Codes)...)
	}
	c.Logger.Debug("coded document", "document", doc.ID, "chunks", n, "codes", len(codes))
	return codes, nil
}

// Result is the outcome of coding a corpus.
type Result struct {
	// Documents is the input corpus with Codes filled in for every document
	// that was coded successfully.
	Documents []types.Document

	// GlobalCodes is the union of all document codes without duplicates.
	GlobalCodes []string

	// Failures maps a document ID to the error that stopped its coding.
	// Failed documents keep nil Codes so a re-run retries them.
	Failures map[string]error
}

type outcome struct {
	codes []string
	err   error
}

// CodeCorpus codes every document that does not carry cached codes, all
// documents concurrently, and waits for all of them. A document that fails
// does not affect the others; its error is reported in Result.Failures.
// CodeCorpus returns an error only when the context is done or when every
// attempted document was rejected for missing credentials.
func (c *Coder) CodeCorpus(ctx context.Context, docs []types.Document, remarks string) (Result, error) {
	res := Result{
		Documents: make([]types.Document, len(docs)),
		Failures:  map[string]error{},
	}
	copy(res.Documents, docs)

	var pending []int
	for i, d := range res.Documents {
		if !d.IsCoded() {
			pending = append(pending, i)
		}
	}

	if len(pending) > 0 {
		c.Logger.Info("coding corpus", "documents", len(pending), "cached", len(docs)-len(pending))
		mapper := iter.Mapper[int, outcome]{MaxGoroutines: len(pending)}
		outcomes := mapper.Map(pending, func(i *int) outcome {
			codes, err := c.CodeDocument(ctx, res.Documents[*i], remarks)
			return outcome{codes: codes, err: err}
		})

		unauthenticated := 0
		for j, o := range outcomes {
			d := &res.Documents[pending[j]]
			if o.err != nil {
				res.Failures[d.ID] = o.err
				if errors.Is(o.err, llm.ErrUnauthenticated) {
					unauthenticated++
				}
				c.Logger.Warn("coding failed", "document", d.ID, "error", o.err)
				continue
			}
			d.Codes = o.codes
		}

		if err := ctx.Err(); err != nil {
			return res, err
		}
		if unauthenticated == len(pending) {
			return res, fmt.Errorf("coding corpus: %w", llm.ErrUnauthenticated)
		}
	}

	for _, d := range res.Documents {
		res.GlobalCodes = types.UnionLabels(res.GlobalCodes, d.Codes)
	}
	return res, nil
}
