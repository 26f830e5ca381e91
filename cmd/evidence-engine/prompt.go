// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/answer"
	"github.com/pdiddy/evidence-engine/internal/corpus"
	"github.com/pdiddy/evidence-engine/internal/topic"
)

var promptCmd = &cobra.Command{
	Use:   "prompt [question]",
	Short: "Print the system prompt built for a question",
	Long: `Prompt runs topic detection, ranking, section selection and context
assembly for a question and prints the resulting system prompt without
calling any backend. With --stats it also reports the detected topics, the
selected sections and the context size against its bound.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPrompt,
}

func runPrompt(cmd *cobra.Command, args []string) error {
	c, err := corpus.Open(cfg.Corpus.Dir)
	if err != nil {
		return err
	}
	p := answer.NewPipeline(c, cfg.Retrieval)

	prep, err := p.Prepare(strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, prep.SystemPrompt)

	if stats, _ := cmd.Flags().GetBool("stats"); stats {
		fmt.Fprintf(os.Stderr, "\ntopics:    %s\n", strings.Join(topic.IDs(prep.Topics), ", "))
		fmt.Fprintf(os.Stderr, "tokens:    %s\n", strings.Join(prep.Tokens, " "))
		fmt.Fprintf(os.Stderr, "sections:  %v %v\n", prep.Selection.Topic, prep.Selection.Strategic)
		fmt.Fprintf(os.Stderr, "studies:   %d cited\n", len(prep.Context.Cited))
		fmt.Fprintf(os.Stderr, "context:   %d / %d chars\n", utf8.RuneCountInString(prep.Context.Text), p.Bound(prep))
	}
	return nil
}

func init() {
	promptCmd.Flags().Bool("stats", false, "print retrieval statistics to stderr")
	rootCmd.AddCommand(promptCmd)
}
