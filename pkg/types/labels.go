// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// NormalizeLabel returns the identity of a code, focus, or dimension label:
// surrounding whitespace trimmed and inner whitespace runs collapsed to a
// single space. Case is preserved and compared as is.
func NormalizeLabel(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// UnionLabels appends the labels of each list to dst, skipping empty labels
// and labels already present after normalization. Appended labels are
// stored in normalized form.
func UnionLabels(dst []string, lists ...[]string) []string {
	seen := make(map[string]bool, len(dst))
	for _, l := range dst {
		seen[NormalizeLabel(l)] = true
	}
	for _, list := range lists {
		for _, l := range list {
			n := NormalizeLabel(l)
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			dst = append(dst, n)
		}
	}
	return dst
}

// NormalizeLabels normalizes every label in order and drops empty
// ones. Duplicates are kept.
func NormalizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if n := NormalizeLabel(l); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// MergeLabelMap merges src into dst key by key with set union on both the
// keys and their members. A nil dst is allocated.
func MergeLabelMap(dst, src map[string][]string) map[string][]string {
	if dst == nil {
		dst = make(map[string][]string, len(src))
	}
	for k, members := range src {
		key := NormalizeLabel(k)
		if key == "" {
			continue
		}
		dst[key] = UnionLabels(dst[key], members)
	}
	return dst
}
