// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pdiddy/evidence-engine/internal/corpus"
	"github.com/pdiddy/evidence-engine/internal/topic"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var topicsCmd = &cobra.Command{
	Use:   "topics [question]",
	Short: "List corpus topics, or the topics detected for a question",
	Long: `Topics prints every topic in the corpus with its dataset size. Given a
question, it prints only the topics that question is routed to; a question
that matches no topic is routed to all of them.`,
	RunE: runTopics,
}

func runTopics(cmd *cobra.Command, args []string) error {
	c, err := corpus.Open(cfg.Corpus.Dir)
	if err != nil {
		return err
	}

	topics := c.Topics
	if len(args) > 0 {
		topics = topic.NewDetector(c.Topics).Detect(strings.Join(args, " "))
	}
	writeTopicTable(os.Stdout, c, topics)
	return nil
}

// writeTopicTable prints one row per topic with grouped counts.
func writeTopicTable(w io.Writer, c *types.Corpus, topics []types.Topic) {
	p := message.NewPrinter(language.English)

	p.Fprintf(w, "%-24s  %-28s  %7s  %10s  %s\n", "ID", "Label", "Studies", "Papers", "Keywords")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	studies, papers := 0, 0
	for _, t := range topics {
		n, total := 0, 0
		if ds := c.Dataset(t.ID); ds != nil {
			n = len(ds.Studies)
			total = ds.Ingestion.TotalPapers
		}
		studies += n
		papers += total
		p.Fprintf(w, "%-24s  %-28s  %7d  %10d  %s\n", t.ID, t.Label, n, total, strings.Join(t.Phrases, ", "))
	}

	p.Fprintf(w, "\n%d topics, %d studies, %d papers screened\n", len(topics), studies, papers)
}

func init() {
	rootCmd.AddCommand(topicsCmd)
}
