package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/gioia-engine/internal/pipeline"
)

// codingSteps maps the --stage values of the code command to controller
// runs, in pipeline order.
var codingSteps = []struct {
	name string
	run  func(*pipeline.Controller, context.Context) (pipeline.StageResult, error)
}{
	{"coding", (*pipeline.Controller).RunCoding},
	{"focus-coding", (*pipeline.Controller).RunFocusCoding},
	{"aggregate-dimensions", (*pipeline.Controller).RunAggregateDimensions},
}

var codeCmd = &cobra.Command{
	Use:   "code",
	Short: "Build the Gioia data structure of a session",
	Long: `Code runs first-order coding over every uncoded document, groups the codes
into second-order focus themes, and groups the themes into aggregate
dimensions. Use --stage to run a single step.

Documents that fail first-order coding are reported and retried on the
next run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		only, _ := cmd.Flags().GetString("stage")
		steps := codingSteps
		if only != "" {
			steps = nil
			for _, s := range codingSteps {
				if s.name == only {
					steps = append(steps, s)
				}
			}
			if steps == nil {
				return fmt.Errorf("unknown stage %q: use coding, focus-coding, or aggregate-dimensions", only)
			}
		}

		return withController(cmd, func(ctx context.Context, c *pipeline.Controller) error {
			for _, s := range steps {
				res, err := s.run(c, ctx)
				if res.Kind == pipeline.KindError {
					return err
				}
				// Partial and empty results are merged; report them and
				// keep going.
				warn(err)
			}
			printCoding(cmd.OutOrStdout(), c.Snapshot())
			return nil
		})
	},
}

func init() {
	codeCmd.Flags().String("stage", "", "run only this step: coding, focus-coding, or aggregate-dimensions")
	addSessionFlag(codeCmd)

	rootCmd.AddCommand(codeCmd)
}
