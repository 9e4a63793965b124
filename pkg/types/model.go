// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"sort"
	"strings"
)

// FocusCodeMap maps a second-order (focus) theme to the first-order codes
// it subsumes.
type FocusCodeMap map[string][]string

// Keys returns the focus labels in sorted order.
func (m FocusCodeMap) Keys() []string { return sortedKeys(m) }

// AggregateDimensionMap maps an aggregate dimension to the focus themes it
// subsumes.
type AggregateDimensionMap map[string][]string

// Keys returns the dimension labels in sorted order.
func (m AggregateDimensionMap) Keys() []string { return sortedKeys(m) }

// ConceptTuple is an ordered pair of concepts hypothesized to be related.
type ConceptTuple struct {
	A string `json:"a" yaml:"a"`
	B string `json:"b" yaml:"b"`
}

// String renders the tuple as "A - B".
func (t ConceptTuple) String() string { return t.A + " - " + t.B }

// Interrelationship summarizes how the concepts of a tuple relate, with the
// retrieved passages that support the summary.
type Interrelationship struct {
	Concepts ConceptTuple `json:"concepts" yaml:"concepts"`
	Summary  string       `json:"interrelationship" yaml:"interrelationship"`
	Evidence string       `json:"evidence" yaml:"evidence"`
}

// ApplicableTheory is one theory suggested by the brainstorming stage.
type ApplicableTheory struct {
	Theory                    string   `json:"theory" yaml:"theory"`
	Description               string   `json:"description" yaml:"description"`
	RelatedDimensions         []string `json:"relatedDimensions" yaml:"related_dimensions"`
	PossibleResearchQuestions []string `json:"possibleResearchQuestions" yaml:"possible_research_questions"`
}

// ModelState threads the outputs of every pipeline stage into the inputs
// of the next. One analysis session owns exactly one ModelState.
type ModelState struct {
	Query   string `json:"query" yaml:"query"`
	Remarks string `json:"remarks,omitempty" yaml:"remarks,omitempty"`

	Documents []Document `json:"documents" yaml:"documents"`

	FirstOrderCodes     []string              `json:"first_order_codes,omitempty" yaml:"first_order_codes,omitempty"`
	FocusCodes          FocusCodeMap          `json:"focus_codes,omitempty" yaml:"focus_codes,omitempty"`
	AggregateDimensions AggregateDimensionMap `json:"aggregate_dimensions,omitempty" yaml:"aggregate_dimensions,omitempty"`

	Theories           []ApplicableTheory  `json:"theories,omitempty" yaml:"theories,omitempty"`
	ConceptTuples      []ConceptTuple      `json:"concept_tuples,omitempty" yaml:"concept_tuples,omitempty"`
	Interrelationships []Interrelationship `json:"interrelationships,omitempty" yaml:"interrelationships,omitempty"`

	ModelDescription   string `json:"model_description,omitempty" yaml:"model_description,omitempty"`
	ModelName          string `json:"model_name,omitempty" yaml:"model_name,omitempty"`
	ModelVisualization string `json:"model_visualization,omitempty" yaml:"model_visualization,omitempty"`
	Critique           string `json:"critique,omitempty" yaml:"critique,omitempty"`

	LiteratureReview  string   `json:"literature_review,omitempty" yaml:"literature_review,omitempty"`
	ResearchQuestions []string `json:"research_questions,omitempty" yaml:"research_questions,omitempty"`

	// Iteration counts completed model constructions.
	Iteration int `json:"iteration" yaml:"iteration"`
}

// Document returns the document with the given ID.
func (s ModelState) Document(id string) (Document, bool) {
	for _, d := range s.Documents {
		if d.ID == id {
			return d, true
		}
	}
	return Document{}, false
}

// FormatDimensions renders the aggregate dimension map as an indented list,
// the shape used when a stage passes dimensions to the model.
func (s ModelState) FormatDimensions() string {
	var b strings.Builder
	for _, dim := range s.AggregateDimensions.Keys() {
		fmt.Fprintf(&b, "- %s\n", dim)
		for _, focus := range s.AggregateDimensions[dim] {
			fmt.Fprintf(&b, "  - %s\n", focus)
			for _, code := range s.FocusCodes[focus] {
				fmt.Fprintf(&b, "    - %s\n", code)
			}
		}
	}
	return b.String()
}

// FormatTheories renders the theory list as "name: description" lines.
func (s ModelState) FormatTheories() string {
	var b strings.Builder
	for _, t := range s.Theories {
		fmt.Fprintf(&b, "- %s: %s\n", t.Theory, t.Description)
	}
	return b.String()
}

// FormatInterrelationships renders each relationship on its own line.
func (s ModelState) FormatInterrelationships() string {
	var b strings.Builder
	for _, r := range s.Interrelationships {
		if r.Summary == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", r.Concepts, r.Summary)
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = stringify(e)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}
