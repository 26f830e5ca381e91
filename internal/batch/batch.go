// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch answers a list of independent questions concurrently, with
// bounded parallelism and a request rate limit shared by all workers.
package batch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pdiddy/evidence-engine/internal/answer"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	defaultConcurrency = 4
	defaultRPS         = 1.0
)

// Answerer answers one question. *answer.Orchestrator satisfies it.
type Answerer interface {
	Answer(ctx context.Context, query string, history []types.ConversationTurn) (answer.Result, error)
}

// Options controls dispatch. Zero values use the defaults.
type Options struct {
	// Concurrency caps in-flight questions (default 4).
	Concurrency int

	// RPS caps question starts per second across all workers (default 1).
	// A negative value disables the limit.
	RPS float64

	Logger *zap.Logger
}

// Item is the outcome of one question, in input order.
type Item struct {
	Question  string `json:"question" yaml:"question"`
	Answer    string `json:"answer,omitempty" yaml:"answer,omitempty"`
	Source    string `json:"source,omitempty" yaml:"source,omitempty"`
	RequestID string `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Summary counts outcomes of a run.
type Summary struct {
	Answered int
	Fallback int
	Failed   int
}

// Run answers every question. A failed question is recorded in its Item and
// does not stop the others; Run only returns an error when ctx ends.
func Run(ctx context.Context, a Answerer, questions []string, opts Options) ([]Item, Summary, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.RPS == 0 {
		opts.RPS = defaultRPS
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	limiter := rate.NewLimiter(limit, 1)

	log.Info("processing batch",
		zap.Int("questions", len(questions)),
		zap.Int("concurrency", opts.Concurrency),
		zap.Float64("rps", opts.RPS),
	)

	items := make([]Item, len(questions))
	var answered, fallback, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i, q := range questions {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return eris.Wrap(err, "batch: rate limit wait")
			}

			items[i].Question = q
			res, err := a.Answer(gctx, q, nil)
			items[i].RequestID = res.RequestID
			if err != nil {
				failed.Add(1)
				items[i].Error = err.Error()
				log.Warn("question failed", zap.Int("index", i), zap.String("request_id", res.RequestID), zap.Error(err))
				return nil
			}

			items[i].Answer = res.Text
			items[i].Source = res.Source
			if res.Source == answer.SourceFallback {
				fallback.Add(1)
			} else {
				answered.Add(1)
			}
			return nil
		})
	}

	err := g.Wait()
	summary := Summary{
		Answered: int(answered.Load()),
		Fallback: int(fallback.Load()),
		Failed:   int(failed.Load()),
	}
	for i, q := range questions {
		items[i].Question = q
	}
	if err != nil {
		return items, summary, eris.Wrap(err, "batch processing")
	}

	log.Info("batch complete",
		zap.Int("answered", summary.Answered),
		zap.Int("fallback", summary.Fallback),
		zap.Int("failed", summary.Failed),
	)
	return items, summary, nil
}

// ReadQuestions reads one question per line. Blank lines and lines starting
// with '#' are skipped.
func ReadQuestions(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading questions: %w", err)
	}
	return out, nil
}
