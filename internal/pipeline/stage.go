// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"slices"
	"strings"
)

// Stage is a state of the analysis pipeline.
type Stage int

const (
	Idle Stage = iota
	Coding
	FocusCoding
	AggregateDimensions
	LiteratureReview
	QualitativeModeling
	TheoryBrainstorm
	ConceptTuples
	Interrelationships
	ModelConstruction
	Naming
	Visualization
	Critique
)

var stageNames = [...]string{
	Idle:                "idle",
	Coding:              "coding",
	FocusCoding:         "focus-coding",
	AggregateDimensions: "aggregate-dimensions",
	LiteratureReview:    "literature-review",
	QualitativeModeling: "qualitative-modeling",
	TheoryBrainstorm:    "theory-brainstorm",
	ConceptTuples:       "concept-tuples",
	Interrelationships:  "interrelationships",
	ModelConstruction:   "model-construction",
	Naming:              "naming",
	Visualization:       "visualization",
	Critique:            "critique",
}

// Stages lists every stage in pipeline order.
func Stages() []Stage {
	out := make([]Stage, len(stageNames))
	for i := range stageNames {
		out[i] = Stage(i)
	}
	return out
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// ParseStage returns the stage named s.
func ParseStage(s string) (Stage, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range stageNames {
		if name == s {
			return Stage(i), nil
		}
	}
	return Idle, fmt.Errorf("unknown stage %q", s)
}

// transitions lists the stages reachable from each stage. A stage can
// always be re-run from itself; the only backward edge is the critique
// loop into model construction.
var transitions = map[Stage][]Stage{
	Idle:                {Coding},
	Coding:              {FocusCoding},
	FocusCoding:         {AggregateDimensions},
	AggregateDimensions: {LiteratureReview, QualitativeModeling},
	LiteratureReview:    {QualitativeModeling},
	QualitativeModeling: {TheoryBrainstorm},
	TheoryBrainstorm:    {ConceptTuples},
	ConceptTuples:       {Interrelationships},
	Interrelationships:  {ModelConstruction},
	ModelConstruction:   {Naming},
	Naming:              {Visualization},
	Visualization:       {Critique},
	Critique:            {ModelConstruction},
}

// CanTransition reports whether the pipeline may move from one stage to
// another.
func CanTransition(from, to Stage) bool {
	if from == to && from != Idle {
		return true
	}
	return slices.Contains(transitions[from], to)
}

// Next returns the stages reachable from s other than s itself.
func (s Stage) Next() []Stage {
	return slices.Clone(transitions[s])
}
