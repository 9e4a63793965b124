package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/gioia-engine/internal/acquire"
	"github.com/pdiddy/gioia-engine/internal/container"
	"github.com/pdiddy/gioia-engine/internal/pipeline"
	"github.com/pdiddy/gioia-engine/internal/upload"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and convert the full texts of session documents",
	Long: `Fetch looks up an open-access PDF for every session document that has no
full text yet: through OpenAlex for documents with a DOI, from arXiv, or
from a direct PDF link. PDFs are kept in the papers directory and converted
to Markdown with the markitdown container image.

Coding uses the full text when present and the abstract otherwise, so fetch
before running "code".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := container.DetectRuntime(ctx)
		if err != nil {
			return err
		}
		conv, err := upload.NewMarkitdownConverter(ctx, rt)
		if err != nil {
			return err
		}
		cfg := loadConfig()
		f := &acquire.Fetcher{
			Client: &http.Client{Timeout: cfg.Acquisition.Timeout},
			Config: cfg.Acquisition,
			Email:  cfg.Search.OpenAlexEmail,
			PDF:    conv,
		}

		return withCorpus(cmd, func(ctx context.Context, c *pipeline.Controller) error {
			res := f.FetchAll(ctx, c.Snapshot().Documents, os.Stderr)
			if len(res.Documents) > 0 {
				if err := c.AddDocuments(ctx, res.Documents); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d of %d documents\n", res.Fetched, res.Total())
			return nil
		})
	},
}

func init() {
	addSessionFlag(fetchCmd)

	rootCmd.AddCommand(fetchCmd)
}
