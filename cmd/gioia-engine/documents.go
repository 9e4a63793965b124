package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/gioia-engine/internal/pipeline"
	"github.com/pdiddy/gioia-engine/internal/store"
)

var detailCmd = &cobra.Command{
	Use:   "detail <column>",
	Short: "Extract a custom column from every document",
	Long: `Detail asks the model for one named attribute of every document that does
not have it yet, for example "Key Findings" or "Sample Size", and prints the
column.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		column := args[0]
		return withController(cmd, func(ctx context.Context, c *pipeline.Controller) error {
			err := c.RunDetail(ctx, column)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "TITLE\t%s\n", strings.ToUpper(column))
			for _, d := range c.Snapshot().Documents {
				fmt.Fprintf(tw, "%s\t%s\n", d.Title, d.Details[column])
			}
			if ferr := tw.Flush(); ferr != nil {
				return ferr
			}
			return err
		})
	},
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Order the corpus by relevance to the research query",
	Long: `Rank embeds chunks of every document, retrieves the chunks closest to the
research query, and orders the documents by their best chunk. Documents with
no retrieved chunk are dropped unless --keep-unranked is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		keep, _ := cmd.Flags().GetBool("keep-unranked")
		return withController(cmd, func(ctx context.Context, c *pipeline.Controller) error {
			if err := c.Rank(ctx, keep); err != nil {
				return err
			}
			for i, d := range c.Snapshot().Documents {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, d.Title)
			}
			return nil
		})
	},
}

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Inspect stored documents",
}

var documentsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over the documents of all sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("session")
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		hits, err := a.store.SearchDocuments(cmd.Context(), strings.Join(args, " "), store.SearchOptions{
			SessionID:  id,
			MaxResults: limit,
		})
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No matching documents.")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SESSION\tDOCUMENT\tTITLE\tSNIPPET")
		for _, h := range hits {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", shortID(h.SessionID), h.DocumentID, h.Title, h.Snippet)
		}
		return tw.Flush()
	},
}

// shortID abbreviates a session UUID for tables.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	addSessionFlag(detailCmd)

	rankCmd.Flags().Bool("keep-unranked", false, "keep documents the ranking did not retrieve, after the ranked ones")
	addSessionFlag(rankCmd)

	documentsSearchCmd.Flags().String("session", "", "restrict the search to one session")
	documentsSearchCmd.Flags().Int("limit", 0, "maximum number of hits (default 20)")
	documentsCmd.AddCommand(documentsSearchCmd)

	rootCmd.AddCommand(detailCmd, rankCmd, documentsCmd)
}
