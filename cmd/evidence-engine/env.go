// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/pdiddy/evidence-engine/internal/answer"
	"github.com/pdiddy/evidence-engine/internal/corpus"
	"github.com/pdiddy/evidence-engine/internal/provider"
)

// newOrchestrator loads the corpus and wires the pipeline, both remote
// backends and the keyword fallback from cfg.
func newOrchestrator() (*answer.Orchestrator, error) {
	c, err := corpus.Open(cfg.Corpus.Dir)
	if err != nil {
		return nil, err
	}

	pipeline := answer.NewPipeline(c, cfg.Retrieval)
	primary := provider.NewClaude(cfg.Providers.Anthropic, cfg.Providers.Timeout, cfg.Retrieval.HistoryWindow)
	secondary := provider.NewOpenAI(cfg.Providers.OpenAI, cfg.Providers.Timeout, cfg.Retrieval.HistoryWindow)

	return answer.NewOrchestrator(pipeline, primary, secondary, nil,
		answer.WithLogger(logger),
		answer.WithHistoryWindow(cfg.Retrieval.HistoryWindow),
	), nil
}
