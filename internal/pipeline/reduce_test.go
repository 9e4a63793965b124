// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/gioia-engine/pkg/types"
)

func TestReduceMergesNonNilFields(t *testing.T) {
	state := types.ModelState{
		Query:            "remote work",
		FirstOrderCodes:  []string{"a"},
		ModelDescription: "old",
		Theories:         []types.ApplicableTheory{{Theory: "T1"}, {Theory: "T2"}},
	}
	next := Reduce(state, StageResult{Kind: KindSuccess, Patch: Patch{
		FocusCodes: types.FocusCodeMap{"X": {"a"}},
		Theories:   []types.ApplicableTheory{{Theory: "T3"}},
		ModelName:  ptr("Name"),
	}})

	assert.Equal(t, "remote work", next.Query)
	assert.Equal(t, []string{"a"}, next.FirstOrderCodes)
	assert.Equal(t, "old", next.ModelDescription)
	assert.Equal(t, "Name", next.ModelName)
	assert.Equal(t, types.FocusCodeMap{"X": {"a"}}, next.FocusCodes)
	assert.Equal(t, []types.ApplicableTheory{{Theory: "T3"}}, next.Theories, "theories replace wholesale")
}

func TestReduceIsPure(t *testing.T) {
	state := types.ModelState{
		Documents:  []types.Document{{ID: "1", Codes: []string{"a"}}},
		FocusCodes: types.FocusCodeMap{"X": {"a"}},
	}
	patch := Patch{FocusCodes: types.FocusCodeMap{"Y": {"b"}}}
	next := Reduce(state, StageResult{Kind: KindSuccess, Patch: patch})

	assert.Equal(t, types.FocusCodeMap{"X": {"a"}}, state.FocusCodes, "input state untouched")
	next.FocusCodes["Y"][0] = "mutated"
	assert.Equal(t, "b", patch.FocusCodes["Y"][0], "result does not alias the patch")
}

func TestReduceEmptyResultOverwrites(t *testing.T) {
	state := types.ModelState{AggregateDimensions: types.AggregateDimensionMap{"D": {"X"}}}
	next := Reduce(state, StageResult{Kind: KindEmpty, Patch: Patch{AggregateDimensions: types.AggregateDimensionMap{}}})
	assert.NotNil(t, next.AggregateDimensions)
	assert.Empty(t, next.AggregateDimensions)
}

func TestReduceErrorKeepsState(t *testing.T) {
	state := types.ModelState{ModelDescription: "kept"}
	next := Reduce(state, StageResult{Kind: KindError, Patch: Patch{ModelDescription: ptr("dropped")}})
	assert.Equal(t, state, next)
}

func TestReduceLaterValuesWin(t *testing.T) {
	state := types.ModelState{}
	for _, c := range []string{"first", "second"} {
		state = Reduce(state, StageResult{Kind: KindSuccess, Patch: Patch{Critique: ptr(c)}})
	}
	assert.Equal(t, "second", state.Critique)
}
