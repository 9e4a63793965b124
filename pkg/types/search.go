// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data structures of the gioia-engine
// pipeline: documents, the model state threaded through the analysis
// stages, search results, and configuration.
package types

import "time"

// SearchResult represents a candidate paper returned by an academic API query.
type SearchResult struct {
	// Identifier is the canonical ID from the source (corpus ID or DOI).
	Identifier string `json:"identifier" yaml:"identifier"`

	// DOI is the paper DOI when the source reports one.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Title is the paper title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract or summary.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Date is the publication date.
	Date time.Time `json:"date" yaml:"date"`

	// URL links to the paper landing page.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Source identifies which backend found this result (e.g. "openalex", "semantic_scholar").
	Source string `json:"source" yaml:"source"`

	// RelevanceScore is a value between 0.0 and 1.0 indicating relevance to the query.
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`
}

// Document converts the search result into a pipeline document. The
// identifier becomes the document ID.
func (r SearchResult) Document() Document {
	d := Document{
		ID:       r.Identifier,
		Title:    r.Title,
		Authors:  r.Authors,
		Abstract: r.Abstract,
		Source:   r.Source,
		DOI:      r.DOI,
		URL:      r.URL,
	}
	if !r.Date.IsZero() {
		d.Year = r.Date.Year()
	}
	return d
}
