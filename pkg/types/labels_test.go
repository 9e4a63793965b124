// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Autonomy ", "Autonomy"},
		{"remote\t\twork  autonomy", "remote work autonomy"},
		{"   ", ""},
		{"Trust", "Trust"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeLabel(tt.in), "NormalizeLabel(%q)", tt.in)
	}
}

func TestUnionLabels(t *testing.T) {
	got := UnionLabels(nil, []string{"A", "B"}, []string{"B", "C"})
	assert.Equal(t, []string{"A", "B", "C"}, got)

	got = UnionLabels([]string{"remote work"}, []string{" remote  work", "", "Remote work"})
	assert.Equal(t, []string{"remote work", "Remote work"}, got, "case sensitive, whitespace insensitive")
}

func TestMergeLabelMap(t *testing.T) {
	m := MergeLabelMap(nil, map[string][]string{"X": {"a"}})
	m = MergeLabelMap(m, map[string][]string{" X": {"b", "a"}, "": {"c"}})
	assert.Equal(t, map[string][]string{"X": {"a", "b"}}, m)
}

func TestNormalizeLabelsKeepsDuplicates(t *testing.T) {
	assert.Equal(t, []string{"a", "a", "b"}, NormalizeLabels([]string{"a ", " a", "", "b"}))
}
