package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/gioia-engine/internal/container"
	"github.com/pdiddy/gioia-engine/internal/pipeline"
	"github.com/pdiddy/gioia-engine/internal/upload"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <files...>",
	Short: "Add local documents to a session",
	Long: `Upload reads text and Markdown files into documents and adds them to a
session. The title comes from YAML frontmatter, the first heading, or the
file name, and the document ID is "PDF-ID-<title>".

With --pdf, PDF files are converted to Markdown with the markitdown
container image (docker or podman). Documents with very little text are
reported as likely needing OCR.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var loader upload.Loader
		if pdf, _ := cmd.Flags().GetBool("pdf"); pdf {
			rt, err := container.DetectRuntime(ctx)
			if err != nil {
				return err
			}
			conv, err := upload.NewMarkitdownConverter(ctx, rt)
			if err != nil {
				return err
			}
			loader.PDF = conv
		}
		loader.MinWords, _ = cmd.Flags().GetInt("min-words")

		res := loader.Load(ctx, args, os.Stderr)
		if len(res.Documents) == 0 {
			return fmt.Errorf("no documents loaded")
		}

		return withCorpus(cmd, func(ctx context.Context, c *pipeline.Controller) error {
			if err := c.AddDocuments(ctx, res.Documents); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d documents (%d in corpus)\n", len(res.Documents), len(c.Snapshot().Documents))
			if res.HasFailures() {
				return fmt.Errorf("%d of %d files failed", res.Failed, res.Total())
			}
			return nil
		})
	},
}

func init() {
	uploadCmd.Flags().Bool("pdf", false, "convert PDF files with the markitdown container")
	uploadCmd.Flags().Int("min-words", upload.DefaultMinWords, "word count below which a document is flagged for OCR")
	addSessionFlag(uploadCmd)

	rootCmd.AddCommand(uploadCmd)
}
