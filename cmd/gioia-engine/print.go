package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/gioia-engine/pkg/types"
)

// printCoding writes the Gioia data structure as an indented tree:
// dimensions, their focus themes, and the first-order codes of each theme.
// Before aggregation the focus themes are the roots.
func printCoding(w io.Writer, s types.ModelState) {
	if len(s.AggregateDimensions) == 0 && len(s.FocusCodes) == 0 {
		fmt.Fprintf(w, "%d first-order codes\n", len(s.FirstOrderCodes))
		for _, c := range s.FirstOrderCodes {
			fmt.Fprintf(w, "  - %s\n", c)
		}
		return
	}

	if len(s.AggregateDimensions) == 0 {
		for _, f := range s.FocusCodes.Keys() {
			printFocus(w, "", f, s.FocusCodes[f])
		}
		return
	}
	for _, d := range s.AggregateDimensions.Keys() {
		fmt.Fprintln(w, d)
		for _, f := range s.AggregateDimensions[d] {
			printFocus(w, "  ", f, s.FocusCodes[f])
		}
	}
}

func printFocus(w io.Writer, indent, focus string, codes []string) {
	fmt.Fprintf(w, "%s%s\n", indent, focus)
	for _, c := range codes {
		fmt.Fprintf(w, "%s  - %s\n", indent, c)
	}
}

func printTheories(w io.Writer, theories []types.ApplicableTheory) {
	for i, t := range theories {
		fmt.Fprintf(w, "%d. %s\n", i+1, t.Theory)
		if t.Description != "" {
			fmt.Fprintf(w, "   %s\n", t.Description)
		}
		if len(t.RelatedDimensions) > 0 {
			fmt.Fprintf(w, "   Dimensions: %s\n", strings.Join(t.RelatedDimensions, ", "))
		}
		for _, q := range t.PossibleResearchQuestions {
			fmt.Fprintf(w, "   ? %s\n", q)
		}
	}
}

func printTuples(w io.Writer, tuples []types.ConceptTuple) {
	for _, t := range tuples {
		fmt.Fprintln(w, t.String())
	}
}

func printRelations(w io.Writer, rels []types.Interrelationship) {
	for _, r := range rels {
		fmt.Fprintf(w, "%s\n  %s\n", r.Concepts, r.Summary)
	}
}

func printList(w io.Writer, items []string) {
	for i, it := range items {
		fmt.Fprintf(w, "%d. %s\n", i+1, it)
	}
}
