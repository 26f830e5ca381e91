// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/internal/batch"
	"github.com/pdiddy/evidence-engine/internal/provider"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the evidence corpus",
	Long: `Ask answers one question, or every question in a file with --batch.

The answer is printed as markdown on stdout; the answering backend and
request id go to stderr. Prior conversation turns can be supplied with
--history as a YAML list of {role, content} entries.

When Claude fails and OpenAI is not configured, the Claude error is
reported and ask exits non-zero. Every other failure falls back to the
built-in keyword answer.`,
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	batchFile, _ := cmd.Flags().GetString("batch")
	if batchFile != "" {
		return runAskBatch(cmd, batchFile)
	}

	query := strings.Join(args, " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("question required: pass it as arguments or use --batch")
	}

	historyFile, _ := cmd.Flags().GetString("history")
	history, err := readHistory(historyFile)
	if err != nil {
		return err
	}

	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	res, err := orch.Answer(cmd.Context(), query, history)
	if err != nil {
		var pe *provider.Error
		if errors.As(err, &pe) {
			return fmt.Errorf("%s (request %s)", pe.Message, res.RequestID)
		}
		return err
	}

	if show, _ := cmd.Flags().GetBool("show-prompt"); show {
		fmt.Fprintln(os.Stderr, res.Prepared.SystemPrompt)
		fmt.Fprintln(os.Stderr, strings.Repeat("-", 72))
	}

	fmt.Fprintln(os.Stdout, res.Text)
	fmt.Fprintf(os.Stderr, "\nsource: %s, request: %s\n", res.Source, res.RequestID)
	return nil
}

func runAskBatch(cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening batch file: %w", err)
	}
	defer f.Close()

	questions, err := batch.ReadQuestions(f)
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return fmt.Errorf("batch file %s has no questions", path)
	}

	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	rps, _ := cmd.Flags().GetFloat64("rps")
	items, summary, err := batch.Run(cmd.Context(), orch, questions, batch.Options{
		Concurrency: concurrency,
		RPS:         rps,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("writing batch results: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("writing batch results: %w", err)
	}

	fmt.Fprintf(os.Stderr, "\nanswered: %d, fallback: %d, failed: %d\n",
		summary.Answered, summary.Fallback, summary.Failed)
	if summary.Failed > 0 {
		return fmt.Errorf("%d question(s) failed", summary.Failed)
	}
	return nil
}

// readHistory loads conversation turns from a YAML file. An empty path
// means no history.
func readHistory(path string) ([]types.ConversationTurn, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	var turns []types.ConversationTurn
	if err := yaml.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("parsing history %s: %w", path, err)
	}
	for i, t := range turns {
		if t.Role != types.RoleUser && t.Role != types.RoleAssistant {
			return nil, fmt.Errorf("history %s: turn %d has invalid role %q", path, i, t.Role)
		}
	}
	return turns, nil
}

func init() {
	askCmd.Flags().String("history", "", "YAML file of prior conversation turns")
	askCmd.Flags().Bool("show-prompt", false, "print the system prompt to stderr")
	askCmd.Flags().String("batch", "", "file with one question per line")
	askCmd.Flags().Int("concurrency", 4, "questions answered in parallel with --batch")
	askCmd.Flags().Float64("rps", 1, "question starts per second with --batch (negative = unlimited)")

	rootCmd.AddCommand(askCmd)
}
