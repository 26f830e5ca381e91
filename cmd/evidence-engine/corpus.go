// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/corpus"
	"github.com/pdiddy/evidence-engine/internal/knowledge"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Validate, index, search and export the evidence corpus",
	Long: `Corpus works with the evidence corpus outside the answer path. The
corpus is the embedded default unless --corpus-dir or corpus.dir names a
directory with topics.yaml, datasets/<topic>.yaml and strategic.yaml.

The index is a SQLite full-text index of the studies, used for browsing
and export only; answers are always ranked from the corpus itself.`,
}

// --- validate subcommand ---

var corpusValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate the corpus",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := corpus.Open(cfg.Corpus.Dir)
		if err != nil {
			return err
		}
		fmt.Printf("corpus ok: %d topics, %d studies, %d strategic sections\n",
			len(c.Topics), c.StudyCount(), len(c.Strategic))
		return nil
	},
}

// --- index subcommand ---

var corpusIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the full-text study index",
	Long: `Index writes every topic and study into the SQLite index and exports it
to export.yaml in the index directory. Topics whose studies are unchanged
since the last run are skipped.`,
	RunE: runCorpusIndex,
}

func runCorpusIndex(cmd *cobra.Command, args []string) error {
	c, err := corpus.Open(cfg.Corpus.Dir)
	if err != nil {
		return err
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Index(cmd.Context(), c, os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d topic(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- search subcommand ---

var corpusSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Query the study index with full-text search and filters",
	Long: `Search queries the study index using FTS5 full-text search over title,
form, endpoints and effect summary, structured filters (--topic, --design,
--outcome, --min-quality), or both. Run "corpus index" first.

Use --id to print one study in full.`,
	RunE: runCorpusSearch,
}

func runCorpusSearch(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	jsonOutput, _ := cmd.Flags().GetBool("json")

	if id, _ := cmd.Flags().GetString("id"); id != "" {
		r, err := store.Lookup(cmd.Context(), id)
		if err != nil {
			return err
		}
		return formatSearchOutput([]knowledge.SearchResult{r}, true)
	}

	opts := queryOptsFromFlags(cmd, args)
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query, --topic, --design, --outcome or --min-quality")
	}

	results, err := store.Search(cmd.Context(), opts)
	if err != nil {
		return err
	}
	return formatSearchOutput(results, jsonOutput)
}

func formatSearchOutput(results []knowledge.SearchResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-20s  %-48s  %-18s  %-7s  %s\n",
		"Rank", "ID", "Title", "Topic", "Quality", "Design")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 120))

	for i, r := range results {
		fmt.Fprintf(os.Stdout, "%-4d  %-20s  %-48s  %-18s  %-7d  %s\n",
			i+1, clip(r.ID, 20), clip(r.Title, 48), clip(r.TopicID, 18), r.QualityScore, r.Design)
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

// --- stats subcommand ---

var corpusStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print study counts from the index",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		st, err := store.Stats(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	},
}

// --- export subcommand ---

var corpusExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the corpus or the study index",
	Long: `Export writes the loaded corpus as one YAML document to stdout. With
--index it instead writes the indexed studies (optionally filtered) to
export.yaml or export.json in the index directory.`,
	RunE: runCorpusExport,
}

func runCorpusExport(cmd *cobra.Command, args []string) error {
	fromIndex, _ := cmd.Flags().GetBool("index")
	if !fromIndex {
		c, err := corpus.Open(cfg.Corpus.Dir)
		if err != nil {
			return err
		}
		return corpus.WriteYAML(os.Stdout, c)
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd, args)
	format, _ := cmd.Flags().GetString("format")

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(cmd.Context(), opts)
	case "json":
		path, err = store.ExportJSON(cmd.Context(), opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Println("Exported to", path)
	return nil
}

// --- shared helpers ---

func openStore(cmd *cobra.Command) (*knowledge.Store, error) {
	indexDir, _ := cmd.Flags().GetString("index-dir")
	if indexDir == "" {
		indexDir = cfg.Corpus.IndexDir
	}
	maxResults, _ := cmd.Flags().GetInt("max-results")
	return knowledge.NewStore(indexDir, maxResults)
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) knowledge.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}

	topicID, _ := cmd.Flags().GetString("topic")
	design, _ := cmd.Flags().GetString("design")
	outcome, _ := cmd.Flags().GetString("outcome")
	minQuality, _ := cmd.Flags().GetInt("min-quality")
	limit, _ := cmd.Flags().GetInt("limit")

	return knowledge.QueryOptions{
		Query:      queryText,
		TopicID:    topicID,
		Design:     types.StudyDesign(design),
		Outcome:    types.Outcome(outcome),
		MinQuality: minQuality,
		MaxResults: limit,
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("query", "", "full-text search query")
	cmd.Flags().String("topic", "", "filter by topic id")
	cmd.Flags().String("design", "", "filter by study design, e.g. randomized-controlled-trial")
	cmd.Flags().String("outcome", "", "filter by outcome: supporting, neutral, negative")
	cmd.Flags().Int("min-quality", 0, "drop studies with a lower quality score")
	cmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	corpusCmd.PersistentFlags().String("index-dir", "", "index directory (default from config)")
	corpusCmd.PersistentFlags().Int("max-results", 20, "maximum number of search results")

	addFilterFlags(corpusSearchCmd)
	corpusSearchCmd.Flags().String("id", "", "print one study by id")
	corpusSearchCmd.Flags().Bool("json", false, "output results as JSON")

	addFilterFlags(corpusExportCmd)
	corpusExportCmd.Flags().Bool("index", false, "export the study index instead of the corpus")
	corpusExportCmd.Flags().String("format", "yaml", "index export format: yaml or json")

	// Wire subcommands.
	corpusCmd.AddCommand(corpusValidateCmd)
	corpusCmd.AddCommand(corpusIndexCmd)
	corpusCmd.AddCommand(corpusSearchCmd)
	corpusCmd.AddCommand(corpusStatsCmd)
	corpusCmd.AddCommand(corpusExportCmd)

	rootCmd.AddCommand(corpusCmd)
}
