// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package upload turns local files into pipeline documents. Plain text and
// Markdown are read directly; PDFs go through a pluggable Converter.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/gioia-engine/pkg/types"
)

// DefaultMinWords is the word count below which a document is reported as
// likely needing OCR.
const DefaultMinWords = 50

// SourceUpload tags documents created from local files.
const SourceUpload = "upload"

// ErrUnsupported is returned for file types the loader cannot read.
var ErrUnsupported = errors.New("unsupported file type")

// Converter extracts text from a binary document such as a PDF.
type Converter interface {
	Convert(ctx context.Context, path string) (string, error)
}

// Loader reads files into documents.
type Loader struct {
	// PDF converts .pdf files. When nil, PDFs are rejected.
	PDF Converter

	// MinWords defaults to DefaultMinWords.
	MinWords int
}

// Result holds the outcome of a load run.
type Result struct {
	Documents []types.Document
	Loaded    int
	Skipped   int
	Failed    int

	// Sparse counts loaded documents below the word threshold.
	Sparse int
}

// Total returns the number of files processed.
func (r Result) Total() int {
	return r.Loaded + r.Skipped + r.Failed
}

// HasFailures reports whether any file failed to load.
func (r Result) HasFailures() bool {
	return r.Failed > 0
}

// Load reads every path, printing per-file status to w. A file whose
// title repeats an earlier one in the batch is skipped, since both would
// map to the same document ID.
func (l Loader) Load(ctx context.Context, paths []string, w io.Writer) Result {
	minWords := l.MinWords
	if minWords <= 0 {
		minWords = DefaultMinWords
	}

	var res Result
	seen := make(map[string]bool)
	for _, p := range paths {
		if ctx.Err() != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", p, ctx.Err())
			res.Failed++
			continue
		}

		doc, err := l.LoadFile(ctx, p)
		if err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", p, err)
			res.Failed++
			continue
		}
		if seen[doc.ID] {
			fmt.Fprintf(w, "skipped: %s (duplicate title %q)\n", p, doc.Title)
			res.Skipped++
			continue
		}
		seen[doc.ID] = true

		words := len(strings.Fields(doc.FullText))
		if words < minWords {
			fmt.Fprintf(w, "warning: %s has only %d words; it may be a scanned document that needs OCR\n", p, words)
			res.Sparse++
		}
		fmt.Fprintf(w, "loaded:  %s (%d words)\n", doc.ID, words)
		res.Documents = append(res.Documents, doc)
		res.Loaded++
	}

	fmt.Fprintf(w, "\nUpload summary: %d loaded, %d skipped, %d failed (total: %d)\n",
		res.Loaded, res.Skipped, res.Failed, res.Total())
	return res
}

// LoadFile reads one file into a document. The title comes from Markdown
// frontmatter, then the first level-one heading, then the file name.
func (l Loader) LoadFile(ctx context.Context, path string) (types.Document, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown", "":
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
	case ".pdf":
		if l.PDF == nil {
			return types.Document{}, fmt.Errorf("%w: %s (no PDF converter configured)", ErrUnsupported, path)
		}
		text, err = l.PDF.Convert(ctx, path)
	default:
		return types.Document{}, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
	if err != nil {
		return types.Document{}, fmt.Errorf("reading %s: %w", path, err)
	}

	meta, body := splitFrontmatter(text)
	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = firstHeading(body)
	}
	if title == "" {
		base := filepath.Base(path)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return types.Document{}, fmt.Errorf("%s contains no text", path)
	}

	return types.Document{
		ID:       types.UploadID(title),
		Title:    title,
		Authors:  meta.Authors,
		Year:     meta.Year,
		Abstract: meta.Abstract,
		FullText: body,
		Source:   SourceUpload,
	}, nil
}

// frontmatter is the optional YAML header of a Markdown upload.
type frontmatter struct {
	Title    string   `yaml:"title"`
	Authors  []string `yaml:"authors"`
	Year     int      `yaml:"year"`
	Abstract string   `yaml:"abstract"`
}

// splitFrontmatter separates a leading "---" delimited YAML block from the
// body. Text without a well-formed block is returned unchanged.
func splitFrontmatter(text string) (frontmatter, string) {
	var fm frontmatter
	lines := strings.SplitAfter(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return fm, text
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r\n") != "---" {
			continue
		}
		header := strings.Join(lines[1:i], "")
		err := yaml.NewDecoder(strings.NewReader(header)).Decode(&fm)
		if err != nil && !errors.Is(err, io.EOF) {
			return frontmatter{}, text
		}
		return fm, strings.Join(lines[i+1:], "")
	}
	return fm, text
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if h, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return strings.TrimSpace(h)
		}
	}
	return ""
}
