package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pdiddy/gioia-engine/internal/pipeline"
	"github.com/pdiddy/gioia-engine/pkg/types"
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Run the qualitative modeling stages",
	Long: `Model runs the theory building stages over the aggregate dimensions of a
session: theory brainstorming, concept tuples, interrelationships backed by
retrieved evidence, model construction, naming, a Mermaid visualization, and
a critique. "model iterate" rebuilds the model from the last critique.`,
}

// modelStep declares one model subcommand: the controller run and what to
// print from the resulting state.
type modelStep struct {
	use   string
	short string
	run   func(*pipeline.Controller, context.Context) (pipeline.StageResult, error)
	print func(io.Writer, types.ModelState)
}

var modelSteps = []modelStep{
	{
		use:   "theories",
		short: "Brainstorm theories applicable to the dimensions",
		run:   runTheories,
		print: func(w io.Writer, s types.ModelState) { printTheories(w, s.Theories) },
	},
	{
		use:   "tuples",
		short: "Propose concept pairs to investigate",
		run:   (*pipeline.Controller).RunConceptTuples,
		print: func(w io.Writer, s types.ModelState) { printTuples(w, s.ConceptTuples) },
	},
	{
		use:   "relations",
		short: "Summarize the interrelationship of every concept pair",
		run:   (*pipeline.Controller).RunInterrelationships,
		print: func(w io.Writer, s types.ModelState) { printRelations(w, s.Interrelationships) },
	},
	{
		use:   "construct",
		short: "Write the theoretical model",
		run:   (*pipeline.Controller).RunModelConstruction,
		print: func(w io.Writer, s types.ModelState) { fmt.Fprintln(w, s.ModelDescription) },
	},
	{
		use:   "name",
		short: "Name the model",
		run:   (*pipeline.Controller).RunNaming,
		print: func(w io.Writer, s types.ModelState) { fmt.Fprintln(w, s.ModelName) },
	},
	{
		use:   "visualize",
		short: "Render the model as a Mermaid diagram",
		run:   (*pipeline.Controller).RunVisualization,
		print: func(w io.Writer, s types.ModelState) { fmt.Fprintln(w, s.ModelVisualization) },
	},
	{
		use:   "critique",
		short: "Critique the model",
		run:   (*pipeline.Controller).RunCritique,
		print: func(w io.Writer, s types.ModelState) { fmt.Fprintln(w, s.Critique) },
	},
}

// runTheories enters the modeling branch when the session is still at the
// aggregate dimensions or the literature review.
func runTheories(c *pipeline.Controller, ctx context.Context) (pipeline.StageResult, error) {
	switch c.Stage() {
	case pipeline.AggregateDimensions, pipeline.LiteratureReview:
		if res, err := c.BeginModeling(ctx); res.Kind == pipeline.KindError {
			return res, err
		}
	}
	return c.RunTheories(ctx)
}

func (m modelStep) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   m.use,
		Short: m.short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, func(ctx context.Context, c *pipeline.Controller) error {
				res, err := m.run(c, ctx)
				if res.Kind == pipeline.KindError {
					return err
				}
				m.print(cmd.OutOrStdout(), c.Snapshot())
				return err
			})
		},
	}
	addSessionFlag(cmd)
	return cmd
}

var modelIterateCmd = &cobra.Command{
	Use:   "iterate",
	Short: "Rebuild, rename, redraw, and re-critique the model",
	RunE: func(cmd *cobra.Command, args []string) error {
		rounds, _ := cmd.Flags().GetInt("rounds")
		return withController(cmd, func(ctx context.Context, c *pipeline.Controller) error {
			for range max(rounds, 1) {
				if err := c.Iterate(ctx); err != nil {
					return err
				}
			}
			s := c.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "Iteration %d: %s\n\n%s\n", s.Iteration, s.ModelName, s.ModelDescription)
			return nil
		})
	},
}

func init() {
	for _, m := range modelSteps {
		modelCmd.AddCommand(m.command())
	}
	modelIterateCmd.Flags().Int("rounds", 1, "number of refinement rounds")
	addSessionFlag(modelIterateCmd)
	modelCmd.AddCommand(modelIterateCmd)

	rootCmd.AddCommand(modelCmd)
}
