package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/gioia-engine/internal/pipeline"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Stream a literature review of the corpus",
	Long: `Review enters the literature review branch and streams an APA-style review
of the session's documents that answers the research query. The review is
saved with the session once the stream completes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		return withController(cmd, func(ctx context.Context, c *pipeline.Controller) error {
			res, err := c.BeginLiteratureReview(ctx, func(tok string) {
				fmt.Fprint(out, tok)
			})
			fmt.Fprintln(out)
			if res.Kind == pipeline.KindError {
				return err
			}
			warn(err)
			return nil
		})
	},
}

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Suggest tentative research questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(cmd, func(ctx context.Context, c *pipeline.Controller) error {
			res, err := c.RunResearchQuestions(ctx)
			if res.Kind == pipeline.KindError {
				return err
			}
			warn(err)
			printList(cmd.OutOrStdout(), c.Snapshot().ResearchQuestions)
			return nil
		})
	},
}

func init() {
	addSessionFlag(reviewCmd)
	addSessionFlag(questionsCmd)

	rootCmd.AddCommand(reviewCmd, questionsCmd)
}
