// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire fetches the full text of documents that arrived from
// search with only an abstract. It resolves an open-access PDF through
// OpenAlex, arXiv, or a direct link, downloads it, and converts it to text.
package acquire

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/gioia-engine/internal/httputil"
	"github.com/pdiddy/gioia-engine/internal/upload"
	"github.com/pdiddy/gioia-engine/pkg/types"
)

// ErrNoSource is returned for documents without a DOI, arXiv link, or PDF
// link to fetch from.
var ErrNoSource = errors.New("no DOI, arXiv ID, or PDF link")

// pdfMagic starts every PDF file.
var pdfMagic = []byte("%PDF")

// Fetcher downloads and converts document PDFs.
type Fetcher struct {
	Client *http.Client
	Config types.AcquisitionConfig

	// Email joins the OpenAlex polite pool.
	Email string

	// PDF converts downloaded files to text.
	PDF upload.Converter
}

// Result holds the outcome of a fetch run.
type Result struct {
	// Documents holds the fetched documents with FullText set.
	Documents []types.Document
	Fetched   int
	Skipped   int
	Failed    int
}

// Total returns the number of documents processed.
func (r Result) Total() int {
	return r.Fetched + r.Skipped + r.Failed
}

// HasFailures reports whether any document failed.
func (r Result) HasFailures() bool {
	return r.Failed > 0
}

// FetchDocument returns doc with its full text filled in. Documents that
// already carry a full text are returned unchanged with skipped set. A PDF
// already on disk is converted without downloading it again.
func (f *Fetcher) FetchDocument(ctx context.Context, doc types.Document) (_ types.Document, skipped bool, err error) {
	if strings.TrimSpace(doc.FullText) != "" {
		return doc, true, nil
	}
	idType, normalized := Locate(doc)
	if idType == TypeUnknown {
		return doc, false, ErrNoSource
	}

	slug := Slug(idType, normalized)
	pdfPath := filepath.Join(f.Config.PapersDir, slug+".pdf")

	if _, err := os.Stat(pdfPath); err != nil {
		if err := os.MkdirAll(f.Config.PapersDir, 0o755); err != nil {
			return doc, false, fmt.Errorf("creating directory %s: %w", f.Config.PapersDir, err)
		}
		pdfURL := PDFURL(idType, normalized)
		if idType == TypeDOI {
			if oaURL, err := f.resolveOpenAlex(ctx, normalized); err == nil && oaURL != "" {
				pdfURL = oaURL
			}
		}
		if err := f.download(ctx, pdfURL, pdfPath); err != nil {
			return doc, false, fmt.Errorf("downloading %s: %w", slug, err)
		}
	}

	if f.PDF == nil {
		return doc, false, fmt.Errorf("converting %s: no PDF converter", slug)
	}
	text, err := f.PDF.Convert(ctx, pdfPath)
	if err != nil {
		return doc, false, fmt.Errorf("converting %s: %w", slug, err)
	}
	if strings.TrimSpace(text) == "" {
		return doc, false, fmt.Errorf("converting %s: no text extracted", slug)
	}
	doc.FullText = text
	return doc, false, nil
}

// FetchAll processes docs in order, printing per-document status to w and
// returning a summary. It continues after individual failures and waits
// DownloadDelay between consecutive documents.
func (f *Fetcher) FetchAll(ctx context.Context, docs []types.Document, w io.Writer) Result {
	var result Result
	for i, doc := range docs {
		if i > 0 && f.Config.DownloadDelay > 0 {
			select {
			case <-ctx.Done():
				fmt.Fprintf(w, "failed:  %s (%v)\n", doc.Title, ctx.Err())
				result.Failed += len(docs) - i
				return result
			case <-time.After(f.Config.DownloadDelay):
			}
		}
		got, skipped, err := f.FetchDocument(ctx, doc)
		switch {
		case err != nil:
			fmt.Fprintf(w, "failed:  %s (%v)\n", doc.Title, err)
			result.Failed++
		case skipped:
			fmt.Fprintf(w, "skipped: %s (has full text)\n", doc.Title)
			result.Skipped++
		default:
			fmt.Fprintf(w, "fetched: %s (%d words)\n", doc.Title, len(strings.Fields(got.FullText)))
			result.Fetched++
			result.Documents = append(result.Documents, got)
		}
	}
	fmt.Fprintf(w, "\nFetch summary: %d fetched, %d skipped, %d failed (total: %d)\n",
		result.Fetched, result.Skipped, result.Failed, result.Total())
	return result
}

// download fetches url to destPath through a temporary file. Responses
// that are not PDFs, such as publisher landing pages, are rejected.
func (f *Fetcher) download(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.Config.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := httputil.DoWithRetry(ctx, f.Client, req, 0)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	body := bufio.NewReader(resp.Body)
	if head, _ := body.Peek(len(pdfMagic)); !bytes.Equal(head, pdfMagic) {
		return fmt.Errorf("not a PDF (%s) from %s", resp.Header.Get("Content-Type"), url)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".acquire-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
