// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package answer turns a question into a markdown answer. A Pipeline builds
// the grounded system prompt; an Orchestrator walks the provider chain
// (primary backend, secondary backend, keyword fallback) as a small state
// machine.
package answer

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/evidence-engine/internal/provider"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// SourceFallback is the Result.Source of a keyword-fallback answer.
const SourceFallback = "fallback"

// State is a step of the provider chain.
type State int

const (
	NotStarted State = iota
	TryingA
	TryingB
	InFallback
	Done
	Failed
)

var stateNames = [...]string{"not_started", "trying_a", "trying_b", "fallback", "done", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Result is one answered question.
type Result struct {
	Text      string
	Source    string
	RequestID string

	// Trace lists the states visited, in order.
	Trace []State

	// Prepared is the retrieval output; zero when prompt building failed.
	Prepared Prepared
}

// tier is one backend step of the chain.
type tier struct {
	state   State
	backend provider.Backend
}

// Orchestrator answers questions. It is safe for concurrent use when its
// backends are.
type Orchestrator struct {
	pipeline *Pipeline
	tiers    []tier
	fallback *Fallback
	logger   *zap.Logger
	newID    func() string

	historyWindow int
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithRequestIDs replaces the request id generator.
func WithRequestIDs(f func() string) Option {
	return func(o *Orchestrator) { o.newID = f }
}

// WithHistoryWindow caps the turns forwarded to backends. A non-positive n
// uses provider.DefaultHistoryWindow.
func WithHistoryWindow(n int) Option {
	return func(o *Orchestrator) { o.historyWindow = n }
}

// NewOrchestrator returns an Orchestrator trying primary, then secondary,
// then fallback. Either backend may be nil. A nil fallback uses the default
// rules.
func NewOrchestrator(p *Pipeline, primary, secondary provider.Backend, fallback *Fallback, opts ...Option) *Orchestrator {
	if fallback == nil {
		fallback = NewFallback(nil)
	}
	o := &Orchestrator{
		pipeline: p,
		tiers:    []tier{{TryingA, primary}, {TryingB, secondary}},
		fallback: fallback,
		logger:   zap.NewNop(),
		newID:    uuid.NewString,

		historyWindow: provider.DefaultHistoryWindow,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Pipeline returns the retrieval pipeline.
func (o *Orchestrator) Pipeline() *Pipeline { return o.pipeline }

// Answer runs the provider chain for query. Each configured backend is called
// at most once. A successful backend answer is returned verbatim. When the
// primary backend failed and the secondary was never attempted, the primary's
// error is returned unchanged. Every other outcome ends in the keyword
// fallback, which cannot fail.
func (o *Orchestrator) Answer(ctx context.Context, query string, history []types.ConversationTurn) (Result, error) {
	res := Result{RequestID: o.newID(), Trace: []State{NotStarted}}
	log := o.logger.With(zap.String("request_id", res.RequestID))

	prep, err := o.pipeline.Prepare(query)
	if err != nil {
		log.Error("preparing prompt", zap.Error(err))
		return o.fallbackResult(res, query, log), nil
	}
	res.Prepared = prep
	log.Debug("prompt prepared",
		zap.Int("topics", len(prep.Topics)),
		zap.Int("studies", len(prep.Scored)),
		zap.Int("context_chars", len(prep.Context.Text)),
	)

	history = provider.NormalizeHistory(history, query, o.historyWindow)

	var primaryErr error
	secondaryAttempted := false

	for _, t := range o.tiers {
		if t.backend == nil || !t.backend.Configured() {
			continue
		}
		res.Trace = append(res.Trace, t.state)
		if t.state == TryingB {
			secondaryAttempted = true
		}
		log.Info("calling backend", zap.Stringer("state", t.state), zap.String("provider", t.backend.Name()))

		text, err := t.backend.Generate(ctx, query, prep.SystemPrompt, history)
		if err == nil {
			res.Text = text
			res.Source = t.backend.Name()
			res.Trace = append(res.Trace, Done)
			log.Info("answered", zap.String("source", res.Source))
			return res, nil
		}

		log.Warn("backend failed", zap.String("provider", t.backend.Name()), zap.Error(err))
		if t.state == TryingA {
			primaryErr = err
		}
	}

	if primaryErr != nil && !secondaryAttempted {
		res.Trace = append(res.Trace, Failed)
		log.Error("primary backend failed with no secondary", zap.Error(primaryErr))
		return res, primaryErr
	}
	return o.fallbackResult(res, query, log), nil
}

func (o *Orchestrator) fallbackResult(res Result, query string, log *zap.Logger) Result {
	res.Trace = append(res.Trace, InFallback, Done)
	res.Text = o.fallback.Answer(query)
	res.Source = SourceFallback
	log.Info("answered", zap.String("source", res.Source))
	return res
}
