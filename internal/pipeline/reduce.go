// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"time"

	"github.com/pdiddy/gioia-engine/pkg/types"
)

// Kind classifies a stage outcome.
type Kind string

const (
	// KindSuccess: the stage produced output. Err may still carry a
	// PartialBatchFailure.
	KindSuccess Kind = "success"

	// KindEmpty: the stage ran but produced nothing usable. The empty
	// output is merged and Err explains why.
	KindEmpty Kind = "empty"

	// KindError: the stage failed. Nothing is merged.
	KindError Kind = "error"
)

// Patch holds the ModelState fields a stage produced. Nil fields are left
// alone by Reduce.
type Patch struct {
	Documents           []types.Document
	FirstOrderCodes     []string
	FocusCodes          types.FocusCodeMap
	AggregateDimensions types.AggregateDimensionMap
	Theories            []types.ApplicableTheory
	ConceptTuples       []types.ConceptTuple
	Interrelationships  []types.Interrelationship
	ModelDescription    *string
	ModelName           *string
	ModelVisualization  *string
	Critique            *string
	Iteration           *int
	LiteratureReview    *string
	ResearchQuestions   []string
}

// StageResult is the explicit outcome of one stage run.
type StageResult struct {
	Stage    Stage
	Kind     Kind
	Patch    Patch
	Err      error
	Finished time.Time
}

// Reduce returns state with the result's patch merged in. It is pure:
// state is not modified and the returned value shares no maps or slices
// written by the merge. Only non-nil patch fields are applied and each
// replaces the previous value wholesale. A KindError result returns state
// unchanged.
func Reduce(state types.ModelState, r StageResult) types.ModelState {
	if r.Kind == KindError {
		return state
	}
	p := r.Patch
	next := state

	if p.Documents != nil {
		next.Documents = cloneDocuments(p.Documents)
	}
	if p.FirstOrderCodes != nil {
		next.FirstOrderCodes = append([]string{}, p.FirstOrderCodes...)
	}
	if p.FocusCodes != nil {
		next.FocusCodes = types.FocusCodeMap(cloneMap(p.FocusCodes))
	}
	if p.AggregateDimensions != nil {
		next.AggregateDimensions = types.AggregateDimensionMap(cloneMap(p.AggregateDimensions))
	}
	if p.Theories != nil {
		next.Theories = append([]types.ApplicableTheory{}, p.Theories...)
	}
	if p.ConceptTuples != nil {
		next.ConceptTuples = append([]types.ConceptTuple{}, p.ConceptTuples...)
	}
	if p.Interrelationships != nil {
		next.Interrelationships = append([]types.Interrelationship{}, p.Interrelationships...)
	}
	if p.ModelDescription != nil {
		next.ModelDescription = *p.ModelDescription
	}
	if p.ModelName != nil {
		next.ModelName = *p.ModelName
	}
	if p.ModelVisualization != nil {
		next.ModelVisualization = *p.ModelVisualization
	}
	if p.Critique != nil {
		next.Critique = *p.Critique
	}
	if p.Iteration != nil {
		next.Iteration = *p.Iteration
	}
	if p.LiteratureReview != nil {
		next.LiteratureReview = *p.LiteratureReview
	}
	if p.ResearchQuestions != nil {
		next.ResearchQuestions = append([]string{}, p.ResearchQuestions...)
	}
	return next
}

func cloneMap(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func cloneDocuments(docs []types.Document) []types.Document {
	out := make([]types.Document, len(docs))
	for i, d := range docs {
		if d.Codes != nil {
			d.Codes = append([]string{}, d.Codes...)
		}
		if d.Details != nil {
			details := make(map[string]types.DetailValue, len(d.Details))
			for k, v := range d.Details {
				details[k] = v
			}
			d.Details = details
		}
		out[i] = d
	}
	return out
}

func ptr[T any](v T) *T { return &v }
