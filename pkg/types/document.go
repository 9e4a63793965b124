// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
)

// UploadIDPrefix prefixes the synthesized identifier of an uploaded document.
const UploadIDPrefix = "PDF-ID-"

// UploadID returns the identifier assigned to an uploaded document with the
// given title.
func UploadID(title string) string {
	return UploadIDPrefix + title
}

// DetailKind tags the value held by a DetailValue.
type DetailKind string

const (
	DetailPending    DetailKind = "pending"
	DetailText       DetailKind = "text"
	DetailStructured DetailKind = "structured"
)

// DetailValue is a lazily computed custom column attached to a document
// (e.g. "Key Findings"). Exactly one of Text or Structured is meaningful,
// selected by Kind. A pending value has neither.
type DetailValue struct {
	Kind       DetailKind     `json:"kind" yaml:"kind"`
	Text       string         `json:"text,omitempty" yaml:"text,omitempty"`
	Structured map[string]any `json:"structured,omitempty" yaml:"structured,omitempty"`
}

// PendingDetail returns a DetailValue marking a column whose extraction is in flight.
func PendingDetail() DetailValue { return DetailValue{Kind: DetailPending} }

// TextDetail returns a DetailValue holding free text.
func TextDetail(s string) DetailValue { return DetailValue{Kind: DetailText, Text: s} }

// StructuredDetail returns a DetailValue holding a structured object.
func StructuredDetail(m map[string]any) DetailValue {
	return DetailValue{Kind: DetailStructured, Structured: m}
}

// IsPending reports whether the value has not been computed yet.
func (v DetailValue) IsPending() bool { return v.Kind == DetailPending }

// String renders the value for tabular display.
func (v DetailValue) String() string {
	switch v.Kind {
	case DetailText:
		return v.Text
	case DetailStructured:
		parts := make([]string, 0, len(v.Structured))
		for _, k := range sortedKeys(v.Structured) {
			parts = append(parts, k+": "+stringify(v.Structured[k]))
		}
		return strings.Join(parts, "; ")
	default:
		return "..."
	}
}

// Document is a paper returned by search or a text uploaded by the user.
// The ID is stable for the document's lifetime and joins ranking, coding,
// and detail extraction results back to the document.
type Document struct {
	ID       string   `json:"id" yaml:"id"`
	Title    string   `json:"title" yaml:"title"`
	Authors  []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Year     int      `json:"year,omitempty" yaml:"year,omitempty"`
	Abstract string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// FullText is the complete body when available. Search results usually
	// carry only an abstract.
	FullText string `json:"full_text,omitempty" yaml:"full_text,omitempty"`

	// Source names the provider ("semantic_scholar", "openalex", "upload").
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// DOI is the bare DOI when known (e.g. "10.1177/1094428112452151").
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// URL links to the paper landing page when known.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Codes caches the first-order codes. Nil means the document has not
	// been coded; an empty non-nil slice means it was coded and yielded none.
	Codes []string `json:"codes" yaml:"codes"`

	// Details holds custom columns keyed by column name.
	Details map[string]DetailValue `json:"details,omitempty" yaml:"details,omitempty"`
}

// Text returns the text used for coding and ranking: the full text when
// present, otherwise the title followed by the abstract.
func (d Document) Text() string {
	if strings.TrimSpace(d.FullText) != "" {
		return d.FullText
	}
	return strings.TrimSpace(d.Title + " " + d.Abstract)
}

// HasText reports whether the document carries any text beyond its title.
func (d Document) HasText() bool {
	return strings.TrimSpace(d.FullText) != "" || strings.TrimSpace(d.Abstract) != ""
}

// IsCoded reports whether first-order codes are cached on the document.
func (d Document) IsCoded() bool { return d.Codes != nil }

// SetDetail stores a custom column value, allocating the map on first use.
func (d *Document) SetDetail(column string, v DetailValue) {
	if d.Details == nil {
		d.Details = make(map[string]DetailValue)
	}
	d.Details[column] = v
}

// Detail returns the custom column value and whether it exists.
func (d Document) Detail(column string) (DetailValue, bool) {
	v, ok := d.Details[column]
	return v, ok
}

// AuthorLine formats the authors the way the literature review prompt
// expects: comma separated, source order.
func (d Document) AuthorLine() string {
	return strings.Join(d.Authors, ", ")
}
