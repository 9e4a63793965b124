package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/pdiddy/gioia-engine/internal/pipeline"
	"github.com/pdiddy/gioia-engine/internal/store"
	"github.com/pdiddy/gioia-engine/pkg/types"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))
	currentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#06B6D4"))
)

var boxStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#45475A")).
	Padding(0, 1)

var statusCmd = &cobra.Command{
	Use:   "status [id]",
	Short: "Show the pipeline progress of a session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.session(cmd.Context(), firstArg(args))
		if err != nil {
			return err
		}
		out, err := renderStatus(sess)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// renderStatus draws the session header, one line per stage marked done,
// current, or pending, and the size of every stage output.
func renderStatus(sess store.Session) (string, error) {
	current, err := pipeline.ParseStage(sess.Stage)
	if err != nil {
		return "", err
	}
	s := sess.State

	var b strings.Builder
	b.WriteString(titleStyle.Render(sess.Name))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%s  updated %s", sess.ID, sess.Updated.Local().Format("2006-01-02 15:04"))))
	b.WriteString("\n\n")

	var lines []string
	for _, st := range pipeline.Stages()[1:] {
		mark, style := "○", mutedStyle
		switch {
		case st == current:
			mark, style = "●", currentStyle
		case stageDone(st, current, s):
			mark, style = "✓", doneStyle
		}
		lines = append(lines, style.Render(fmt.Sprintf("%s %-22s %s", mark, st, stageOutput(st, s))))
	}
	b.WriteString(boxStyle.Render(strings.Join(lines, "\n")))
	return b.String(), nil
}

// stageDone reports whether st has produced output on the way to current.
// The literature review branch is optional and counts only once it ran.
func stageDone(st, current pipeline.Stage, s types.ModelState) bool {
	if st == pipeline.LiteratureReview {
		return s.LiteratureReview != "" || len(s.ResearchQuestions) > 0
	}
	if current == pipeline.LiteratureReview {
		return st < pipeline.LiteratureReview
	}
	return st < current
}

// stageOutput summarizes what a stage contributed to the state.
func stageOutput(st pipeline.Stage, s types.ModelState) string {
	switch st {
	case pipeline.Coding:
		coded := 0
		for _, d := range s.Documents {
			if d.Codes != nil {
				coded++
			}
		}
		return fmt.Sprintf("%d/%d documents, %d codes", coded, len(s.Documents), len(s.FirstOrderCodes))
	case pipeline.FocusCoding:
		return fmt.Sprintf("%d focus themes", len(s.FocusCodes))
	case pipeline.AggregateDimensions:
		return fmt.Sprintf("%d dimensions", len(s.AggregateDimensions))
	case pipeline.LiteratureReview:
		return fmt.Sprintf("%d words, %d questions", len(strings.Fields(s.LiteratureReview)), len(s.ResearchQuestions))
	case pipeline.TheoryBrainstorm:
		return fmt.Sprintf("%d theories", len(s.Theories))
	case pipeline.ConceptTuples:
		return fmt.Sprintf("%d tuples", len(s.ConceptTuples))
	case pipeline.Interrelationships:
		return fmt.Sprintf("%d relations", len(s.Interrelationships))
	case pipeline.ModelConstruction:
		return fmt.Sprintf("iteration %d", s.Iteration)
	case pipeline.Naming:
		return s.ModelName
	}
	return ""
}
