// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/evidence-engine/internal/provider"
	"github.com/pdiddy/evidence-engine/internal/sections"
	"github.com/pdiddy/evidence-engine/internal/topic"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// --- test helpers ---

// mockBackend records calls and returns a canned response or error.
type mockBackend struct {
	name       string
	configured bool
	response   string
	err        error

	mu       sync.Mutex
	calls    int
	seen     []string
	histLens []int
}

func (m *mockBackend) Name() string     { return m.name }
func (m *mockBackend) Configured() bool { return m.configured }

func (m *mockBackend) Generate(_ context.Context, userMessage, systemPrompt string, history []types.ConversationTurn) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.seen = append(m.seen, systemPrompt)
	m.histLens = append(m.histLens, len(history))
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func ok(name, text string) *mockBackend {
	return &mockBackend{name: name, configured: true, response: text}
}

func failing(name, msg string) *mockBackend {
	return &mockBackend{name: name, configured: true, err: &provider.Error{Provider: name, Message: msg}}
}

func unconfigured(name string) *mockBackend {
	return &mockBackend{name: name}
}

func mkStudy(id, title, form string, quality int) types.Study {
	return types.Study{
		ID:           id,
		Title:        title,
		Authors:      []string{"Ana Author", "Ben Author"},
		Year:         2020,
		Journal:      "Test J",
		Design:       types.DesignRCT,
		QualityScore: quality,
		Form:         form,
		Outcome:      types.OutcomeSupporting,
	}
}

func scenarioCorpus(studiesPerTopic int) *types.Corpus {
	mg := &types.TopicDataset{TopicID: "magnesium_sleep"}
	co := &types.TopicDataset{TopicID: "collagen_skin"}
	for i := 0; i < studiesPerTopic; i++ {
		mg.Studies = append(mg.Studies, mkStudy(fmt.Sprintf("mg-%d", i), "Magnesium and sleep quality", "magnesium glycinate", 80))
		co.Studies = append(co.Studies, mkStudy(fmt.Sprintf("co-%d", i), "Collagen peptides and skin elasticity", "hydrolyzed collagen", 90))
	}
	mg.Claims = []types.SuggestedClaim{{ClaimText: "Magnesium supports restful sleep", Confidence: types.ConfidenceStrong}}
	co.Claims = []types.SuggestedClaim{{ClaimText: "Collagen supports skin elasticity", Confidence: types.ConfidenceStrong}}

	return &types.Corpus{
		Topics: []types.Topic{
			{ID: "magnesium_sleep", Label: "Magnesium + Sleep", Phrases: []string{"magnesium", "sleep"}},
			{ID: "collagen_skin", Label: "Collagen + Skin", Phrases: []string{"collagen", "skin"}},
		},
		Datasets:  map[string]*types.TopicDataset{"magnesium_sleep": mg, "collagen_skin": co},
		Strategic: map[types.SectionKey]types.StrategicSection{},
	}
}

func fixedIDs() Option {
	return WithRequestIDs(func() string { return "req-1" })
}

// --- pipeline ---

func TestPipelineMagnesiumScenario(t *testing.T) {
	p := NewPipeline(scenarioCorpus(6), types.RetrievalConfig{})
	prep, err := p.Prepare("magnesium sleep")
	require.NoError(t, err)

	require.Len(t, prep.Topics, 1)
	assert.Equal(t, "magnesium_sleep", prep.Topics[0].ID)
	require.NotEmpty(t, prep.Scored)
	for _, s := range prep.Scored {
		assert.Equal(t, "magnesium_sleep", s.TopicID)
	}
	assert.Contains(t, prep.SystemPrompt, "The user is asking specifically about: Magnesium + Sleep.")
}

func TestPipelineCompareFormsScenario(t *testing.T) {
	table := sections.Table{
		types.SectionIngestion:   {"pubmed"},
		types.SectionEndpoints:   {"psqi"},
		types.SectionClaims:      {"claim"},
		types.SectionDosage:      {"dosage"},
		types.StrategicLandscape: {"market"},
	}
	p := NewPipeline(scenarioCorpus(2), types.RetrievalConfig{}, WithSectionTable(table))
	prep, err := p.Prepare("compare forms")
	require.NoError(t, err)

	assert.Len(t, prep.Topics, 2)
	assert.Equal(t, []types.SectionKey{types.SectionIngestion, types.SectionEndpoints, types.SectionClaims}, prep.Selection.Topic)
	assert.Empty(t, prep.Selection.Strategic)
}

func TestPipelineIdempotent(t *testing.T) {
	p := NewPipeline(scenarioCorpus(12), types.RetrievalConfig{})
	for _, q := range []string{"", "magnesium sleep", "collagen claims for skin", "compare forms"} {
		first, err := p.Prepare(q)
		require.NoError(t, err)
		second, err := p.Prepare(q)
		require.NoError(t, err)
		assert.Equal(t, first.SystemPrompt, second.SystemPrompt, "query %q", q)
	}
}

func TestPipelineTopKAndBound(t *testing.T) {
	p := NewPipeline(scenarioCorpus(20), types.RetrievalConfig{TopK: 3})
	prep, err := p.Prepare("magnesium")
	require.NoError(t, err)
	assert.Len(t, prep.Scored, 3)
	assert.LessOrEqual(t, len([]rune(prep.Context.Text)), p.Bound(prep))
}

// --- orchestrator ---

func TestAnswerPrimarySucceeds(t *testing.T) {
	a := ok("claude", "primary answer")
	b := ok("openai", "secondary answer")
	o := NewOrchestrator(NewPipeline(scenarioCorpus(3), types.RetrievalConfig{}), a, b, nil, fixedIDs())

	res, err := o.Answer(context.Background(), "magnesium sleep", nil)
	require.NoError(t, err)
	assert.Equal(t, "primary answer", res.Text)
	assert.Equal(t, "claude", res.Source)
	assert.Equal(t, "req-1", res.RequestID)
	assert.Equal(t, []State{NotStarted, TryingA, Done}, res.Trace)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 0, b.calls)
	assert.Equal(t, res.Prepared.SystemPrompt, a.seen[0])
}

func TestAnswerPrimaryFailsSecondaryUnconfigured(t *testing.T) {
	a := failing("claude", "Failed to get response from Claude: 401 invalid x-api-key")
	o := NewOrchestrator(NewPipeline(scenarioCorpus(3), types.RetrievalConfig{}), a, unconfigured("openai"), nil)

	res, err := o.Answer(context.Background(), "magnesium sleep", nil)
	require.Error(t, err)
	assert.Equal(t, "Failed to get response from Claude: 401 invalid x-api-key", err.Error())
	assert.Same(t, a.err, err)
	assert.Empty(t, res.Text)
	assert.Equal(t, []State{NotStarted, TryingA, Failed}, res.Trace)
	assert.Equal(t, 1, a.calls)
}

func TestAnswerPrimaryFailsNilSecondary(t *testing.T) {
	a := failing("claude", "boom")
	o := NewOrchestrator(NewPipeline(scenarioCorpus(1), types.RetrievalConfig{}), a, nil, nil)

	_, err := o.Answer(context.Background(), "q", nil)
	var pe *provider.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "claude", pe.Provider)
}

func TestAnswerSecondaryVerbatimWhenPrimaryUnconfigured(t *testing.T) {
	b := ok("openai", "  **verbatim** text [1]\n")
	o := NewOrchestrator(NewPipeline(scenarioCorpus(3), types.RetrievalConfig{}), unconfigured("claude"), b, nil)

	res, err := o.Answer(context.Background(), "collagen skin", nil)
	require.NoError(t, err)
	assert.Equal(t, "  **verbatim** text [1]\n", res.Text)
	assert.Equal(t, "openai", res.Source)
	assert.Equal(t, []State{NotStarted, TryingB, Done}, res.Trace)
}

func TestAnswerSecondaryRecoversPrimaryFailure(t *testing.T) {
	a := failing("claude", "boom")
	b := ok("openai", "secondary answer")
	o := NewOrchestrator(NewPipeline(scenarioCorpus(3), types.RetrievalConfig{}), a, b, nil)

	res, err := o.Answer(context.Background(), "magnesium", nil)
	require.NoError(t, err)
	assert.Equal(t, "secondary answer", res.Text)
	assert.Equal(t, []State{NotStarted, TryingA, TryingB, Done}, res.Trace)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestAnswerBothFailUsesFallback(t *testing.T) {
	a := failing("claude", "boom")
	b := failing("openai", "also boom")
	o := NewOrchestrator(NewPipeline(scenarioCorpus(3), types.RetrievalConfig{}), a, b, nil)

	res, err := o.Answer(context.Background(), "collagen for skin elasticity", nil)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.True(t, strings.HasPrefix(res.Text, "**Collagen & Skin Elasticity Evidence Summary:**"))
	assert.Equal(t, []State{NotStarted, TryingA, TryingB, InFallback, Done}, res.Trace)
}

func TestAnswerSecondaryFailsWithoutPrimary(t *testing.T) {
	b := failing("openai", "boom")
	o := NewOrchestrator(NewPipeline(scenarioCorpus(3), types.RetrievalConfig{}), unconfigured("claude"), b, nil)

	res, err := o.Answer(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, GenericAnswer, res.Text)
	assert.Equal(t, []State{NotStarted, TryingB, InFallback, Done}, res.Trace)
}

func TestAnswerFallbackCompleteness(t *testing.T) {
	o := NewOrchestrator(NewPipeline(scenarioCorpus(3), types.RetrievalConfig{}), unconfigured("claude"), unconfigured("openai"), nil)

	queries := []string{"", " ", "??", "magnesium", "MAGNESIUM SLEEP", "help", "日本語", strings.Repeat("x", 10000)}
	for _, q := range queries {
		res, err := o.Answer(context.Background(), q, nil)
		require.NoError(t, err, "query %q", q)
		assert.NotEmpty(t, res.Text, "query %q", q)
		assert.Equal(t, SourceFallback, res.Source)
		assert.Equal(t, []State{NotStarted, InFallback, Done}, res.Trace)
	}
}

func TestAnswerLogsTransitions(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	a := failing("claude", "boom")
	b := ok("openai", "fine")
	o := NewOrchestrator(NewPipeline(scenarioCorpus(1), types.RetrievalConfig{}), a, b, nil, WithLogger(zap.New(core)), fixedIDs())

	_, err := o.Answer(context.Background(), "q", nil)
	require.NoError(t, err)

	warn := logs.FilterMessage("backend failed").All()
	require.Len(t, warn, 1)
	assert.Equal(t, "claude", warn[0].ContextMap()["provider"])
	assert.Equal(t, "req-1", warn[0].ContextMap()["request_id"])
	assert.Equal(t, 1, logs.FilterMessage("answered").Len())
}

func TestAnswerDefaultRequestID(t *testing.T) {
	o := NewOrchestrator(NewPipeline(scenarioCorpus(1), types.RetrievalConfig{}), nil, nil, nil)
	first, err := o.Answer(context.Background(), "q", nil)
	require.NoError(t, err)
	second, err := o.Answer(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Len(t, first.RequestID, 36)
	assert.NotEqual(t, first.RequestID, second.RequestID)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "trying_a", TryingA.String())
	assert.Equal(t, "fallback", InFallback.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestOrchestratorCapsHistory(t *testing.T) {
	history := make([]types.ConversationTurn, 0, 50)
	for i := 0; i < 50; i++ {
		role := types.RoleUser
		if i%2 == 1 {
			role = types.RoleAssistant
		}
		history = append(history, types.ConversationTurn{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}

	tests := []struct {
		name   string
		opts   []Option
		window int
	}{
		{"default window", nil, provider.DefaultHistoryWindow},
		{"configured window", []Option{WithHistoryWindow(4)}, 4},
		{"non-positive window", []Option{WithHistoryWindow(0)}, provider.DefaultHistoryWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := failing("claude", "down")
			b := ok("openai", "answer")
			o := NewOrchestrator(NewPipeline(scenarioCorpus(1), types.RetrievalConfig{}), a, b, nil, append(tt.opts, fixedIDs())...)

			res, err := o.Answer(context.Background(), "magnesium sleep", history)
			require.NoError(t, err)
			assert.Equal(t, "answer", res.Text)
			assert.Equal(t, []int{tt.window}, a.histLens)
			assert.Equal(t, []int{tt.window}, b.histLens)
			assert.LessOrEqual(t, b.histLens[0], 10)
		})
	}
}

func TestOrchestratorDropsRepeatedQuestion(t *testing.T) {
	a := ok("claude", "answer")
	o := NewOrchestrator(NewPipeline(scenarioCorpus(1), types.RetrievalConfig{}), a, nil, nil, fixedIDs())
	history := []types.ConversationTurn{
		{Role: types.RoleUser, Content: "collagen"},
		{Role: types.RoleAssistant, Content: "Collagen helps."},
		{Role: types.RoleUser, Content: "magnesium sleep"},
	}

	_, err := o.Answer(context.Background(), "magnesium sleep", history)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, a.histLens)
}

// --- fallback ---

func TestFallbackRules(t *testing.T) {
	f := NewFallback(nil)
	tests := []struct {
		query  string
		prefix string
	}{
		{"Which magnesium form is best for sleep?", "**Magnesium & Sleep Evidence Summary:**"},
		{"magnesium alone", GenericAnswer},
		{"red clover dosing", "**Red Clover & Menopause Evidence Summary:**"},
		{"menopause", "**Red Clover & Menopause Evidence Summary:**"},
		{"collagen skin", "**Collagen & Skin Elasticity Evidence Summary:**"},
		{"what claims can we make", "**Claim Substantiation Guidance:**"},
		{"where are the gaps", "**Research Gaps Identified:**"},
		{"our brand lineup", "**Portfolio Coverage:**"},
		{"Which brands lead?", "**Portfolio Coverage:**"},
		{"product line coverage", "**Portfolio Coverage:**"},
		{"help", "I can answer questions about"},
		{"hello", GenericAnswer},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.True(t, strings.HasPrefix(f.Answer(tt.query), tt.prefix), f.Answer(tt.query))
		})
	}
}

func TestFallbackCustomRules(t *testing.T) {
	f := NewFallback([]Rule{{Name: "x", Groups: nil, Answer: "never"}, {Name: "y", Groups: []topic.Phrases{{"zinc"}}, Answer: "zinc answer"}})
	assert.Equal(t, "zinc answer", f.Answer("Zinc?"))
	assert.Equal(t, GenericAnswer, f.Answer(""))
}
