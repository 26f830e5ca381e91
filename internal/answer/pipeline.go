// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package answer

import (
	"fmt"

	"github.com/pdiddy/evidence-engine/internal/assemble"
	"github.com/pdiddy/evidence-engine/internal/prompt"
	"github.com/pdiddy/evidence-engine/internal/relevance"
	"github.com/pdiddy/evidence-engine/internal/sections"
	"github.com/pdiddy/evidence-engine/internal/topic"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Prepared is everything the retrieval stages derived from one question.
type Prepared struct {
	Topics       []types.Topic
	Tokens       []string
	Scored       []types.ScoredStudy
	Selection    sections.Selection
	Context      assemble.Context
	SystemPrompt string
}

// Pipeline runs topic detection, ranking, section selection, context
// assembly and prompt building over a read-only corpus. It holds no mutable
// state and is safe for concurrent use.
type Pipeline struct {
	corpus    *types.Corpus
	topK      int
	detector  *topic.Detector
	selector  *sections.Selector
	assembler *assemble.Assembler
	builder   *prompt.Builder
}

// PipelineOption customises a Pipeline.
type PipelineOption func(*Pipeline)

// WithSectionTable replaces the section keyword table.
func WithSectionTable(t sections.Table) PipelineOption {
	return func(p *Pipeline) { p.selector = sections.NewSelector(t) }
}

// WithBuilder replaces the prompt builder.
func WithBuilder(b *prompt.Builder) PipelineOption {
	return func(p *Pipeline) { p.builder = b }
}

// NewPipeline returns a Pipeline over corpus. Zero values in cfg fall back
// to the package defaults.
func NewPipeline(corpus *types.Corpus, cfg types.RetrievalConfig, opts ...PipelineOption) *Pipeline {
	budgets := assemble.DefaultBudgets()
	budgets.Study = cfg.StudyBudget
	budgets.Section = cfg.SectionBudget

	p := &Pipeline{
		corpus:    corpus,
		topK:      cfg.TopK,
		detector:  topic.NewDetector(corpus.Topics),
		selector:  sections.NewSelector(nil),
		assembler: assemble.New(budgets),
		builder:   prompt.NewBuilder(),
	}
	if p.topK <= 0 {
		p.topK = relevance.DefaultTopK
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Corpus returns the corpus the pipeline reads.
func (p *Pipeline) Corpus() *types.Corpus { return p.corpus }

// Detect returns the topics in scope for query.
func (p *Pipeline) Detect(query string) []types.Topic {
	return p.detector.Detect(query)
}

// Prepare runs every retrieval stage and renders the system prompt.
func (p *Pipeline) Prepare(query string) (Prepared, error) {
	topics := p.detector.Detect(query)
	tokens := relevance.Tokenize(query)
	scored := relevance.Rank(p.corpus, topics, tokens, p.topK)
	sel := p.selector.Select(query, tokens)
	ctx := p.assembler.Assemble(p.corpus, topics, scored, sel)

	systemPrompt, err := p.builder.Build(query, ctx, topics)
	if err != nil {
		return Prepared{}, fmt.Errorf("building prompt: %w", err)
	}

	return Prepared{
		Topics:       topics,
		Tokens:       tokens,
		Scored:       scored,
		Selection:    sel,
		Context:      ctx,
		SystemPrompt: systemPrompt,
	}, nil
}

// Bound returns the worst-case context size for the topics and selection of
// a prepared question.
func (p *Pipeline) Bound(prep Prepared) int {
	return p.assembler.Bound(p.topK, len(prep.Topics), prep.Selection)
}
