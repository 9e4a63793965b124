package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/gioia-engine/internal/ranking"
	"github.com/pdiddy/gioia-engine/internal/search"
	"github.com/pdiddy/gioia-engine/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search academic APIs for candidate papers",
	Long: `Search queries academic APIs (Semantic Scholar, OpenAlex) for papers matching
a research question or structured query parameters. Results are deduplicated
across sources and ranked by relevance.

With --rank the results are re-ordered by embedding similarity between the
query and their abstracts. With --session they are added to the session's
corpus.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("query", "", "free-text research question")
	searchCmd.Flags().String("author", "", "filter by author name")
	searchCmd.Flags().String("keywords", "", "filter by keywords (comma-separated)")
	searchCmd.Flags().String("from", "", "publication date range start (YYYY-MM-DD)")
	searchCmd.Flags().String("to", "", "publication date range end (YYYY-MM-DD)")
	searchCmd.Flags().Int("max-results", 0, "maximum number of results to return (default from config)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().Bool("recency-bias", false, "boost recently published papers")
	searchCmd.Flags().Bool("rank", false, "re-rank results by embedding similarity to the query")
	searchCmd.Flags().String("session", "", "add the results to this session")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query, err := queryFromFlags(cmd)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg.Search
	if n, _ := cmd.Flags().GetInt("max-results"); n > 0 {
		cfg.MaxResults = n
	}
	recency, _ := cmd.Flags().GetBool("recency-bias")

	backends := searchBackends(cfg)
	out, err := search.Search(cmd.Context(), query, backends, cfg, recency, os.Stderr)
	if err != nil {
		return err
	}

	if rank, _ := cmd.Flags().GetBool("rank"); rank {
		out.Results, err = rankResults(cmd.Context(), a, query.Text(), out.Results)
		if err != nil {
			return err
		}
	}

	if err := writeResults(cmd, out, cmd.OutOrStdout()); err != nil {
		return err
	}

	if id, _ := cmd.Flags().GetString("session"); id != "" {
		c, _, err := a.controller(cmd.Context(), id, os.Stderr, false)
		if err != nil {
			return err
		}
		if err := c.AddDocuments(cmd.Context(), out.Documents()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Added %d documents to session %s\n", len(out.Results), id)
	}
	return nil
}

func queryFromFlags(cmd *cobra.Command) (search.Query, error) {
	var q search.Query
	q.FreeText, _ = cmd.Flags().GetString("query")
	q.Author, _ = cmd.Flags().GetString("author")
	if kw, _ := cmd.Flags().GetString("keywords"); kw != "" {
		for _, k := range strings.Split(kw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				q.Keywords = append(q.Keywords, k)
			}
		}
	}
	for flag, dst := range map[string]*time.Time{"from": &q.DateFrom, "to": &q.DateTo} {
		v, _ := cmd.Flags().GetString(flag)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return q, fmt.Errorf("invalid --%s date %q: use YYYY-MM-DD", flag, v)
		}
		*dst = t
	}
	if q.IsEmpty() {
		return q, search.ErrEmptyQuery
	}
	return q, nil
}

// searchBackends returns the enabled backends sharing one HTTP client.
func searchBackends(cfg types.SearchConfig) []search.Backend {
	client := &http.Client{Timeout: cfg.Timeout}
	var backends []search.Backend
	if cfg.EnableSemanticScholar {
		backends = append(backends, &search.SemanticScholarBackend{Client: client, APIKey: cfg.SemanticScholarAPIKey})
	}
	if cfg.EnableOpenAlex {
		backends = append(backends, &search.OpenAlexBackend{Client: client, Email: cfg.OpenAlexEmail})
	}
	return backends
}

// rankResults re-orders results by the embedding ranking of their
// documents. Results the ranking did not retrieve keep their relative
// order after the ranked ones.
func rankResults(ctx context.Context, a *app, query string, results []types.SearchResult) ([]types.SearchResult, error) {
	byID := make(map[string]types.SearchResult, len(results))
	docs := make([]types.Document, len(results))
	for i, r := range results {
		byID[r.Identifier] = r
		docs[i] = r.Document()
	}
	ranked, err := ranking.Rank(ctx, a.embedder(), query, docs, ranking.Options{
		K:            a.cfg.Stages.RankK,
		KeepUnranked: true,
		IndexOptions: a.indexOptions(),
	})
	if err != nil {
		return nil, fmt.Errorf("ranking results: %w", err)
	}
	out := make([]types.SearchResult, 0, len(ranked))
	for _, d := range ranked {
		out = append(out, byID[d.ID])
	}
	return out, nil
}

func writeResults(cmd *cobra.Command, out search.SearchOutput, w io.Writer) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return search.FormatJSON(out, w)
	}
	search.FormatTable(out, w)
	return nil
}
