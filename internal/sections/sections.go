// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sections decides which categories of non-study content to surface
// for a question: per-topic sections (ingestion, forms, endpoints, ...) and
// strategic sections (landscape, positioning, regulatory, ...).
package sections

import (
	"strings"

	"github.com/pdiddy/evidence-engine/internal/topic"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Table maps each section key to the keyword phrases that select it.
type Table map[types.SectionKey]topic.Phrases

// DefaultSections is the generic topic-section set used when a question is
// too vague to pick more than one section.
var DefaultSections = []types.SectionKey{
	types.SectionIngestion, types.SectionEndpoints, types.SectionClaims,
}

// DefaultTable returns the production keyword table.
func DefaultTable() Table {
	return Table{
		types.SectionIngestion: {"ingestion", "papers", "studies", "sources", "pubmed", "cochrane", "clinicaltrials", "j-stage", "data"},
		types.SectionForms:     {"form", "forms", "glycinate", "citrate", "oxide", "threonate", "taurate", "promensil", "hydrolyzed", "peptide", "bovine", "fish", "type i", "type iii"},
		types.SectionEndpoints: {"endpoint", "sleep", "psqi", "latency", "hot flash", "kupperman", "elasticity", "wrinkle", "hydration", "outcome"},
		types.SectionDosage:    {"dose", "dosage", "mg", "gram", "amount", "serving", "effective"},
		types.SectionGaps:      {"gap", "missing", "lacking", "pediatric", "safety", "long-term", "limitation"},
		types.SectionClaims:    {"claim", "wording", "regulatory", "substantiation", "defense", "confidence", "label"},
		types.SectionConsumer:  {"consumer", "social", "sentiment", "question", "brand", "reddit", "webmd"},

		types.StrategicLandscape:   {"landscape", "market", "trend", "industry", "vmhs", "overview"},
		types.StrategicPositioning: {"positioning", "competitor", "competitive", "compare", "differentiation", "advantage"},
		types.StrategicRegulatory:  {"fda", "efsa", "regulation", "compliance", "21 cfr", "structure function", "health claim"},
		types.StrategicGaps:        {"opportunity", "investment", "priority", "unmet need", "research agenda"},
		types.StrategicPortfolio:   {"portfolio", "cross-portfolio", "brand strategy", "leverage", "intelligence"},
	}
}

// Selection is the outcome of section selection for one question.
type Selection struct {
	// Topic lists selected per-topic section keys in assembly order.
	Topic []types.SectionKey `json:"topic"`

	// Strategic lists selected strategic section keys in assembly order.
	Strategic []types.SectionKey `json:"strategic"`
}

// Has reports whether k was selected.
func (s Selection) Has(k types.SectionKey) bool {
	for _, x := range s.Topic {
		if x == k {
			return true
		}
	}
	for _, x := range s.Strategic {
		if x == k {
			return true
		}
	}
	return false
}

// Selector picks sections by keyword.
type Selector struct {
	table Table
}

// NewSelector returns a Selector over table. A nil table uses DefaultTable.
func NewSelector(table Table) *Selector {
	if table == nil {
		table = DefaultTable()
	}
	return &Selector{table: table}
}

// Select returns the sections whose keywords match the question. A section
// matches when a token occurs inside one of its keywords, or one of its
// keywords occurs in the lower-cased raw query (multi-word phrases).
//
// When at most one topic section matched, DefaultSections are added.
// Strategic sections are never defaulted; they appear only on an explicit
// match.
func (s *Selector) Select(query string, tokens []string) Selection {
	lowered := strings.ToLower(query)

	var sel Selection
	for _, k := range types.TopicSectionKeys {
		if s.matches(k, lowered, tokens) {
			sel.Topic = append(sel.Topic, k)
		}
	}
	for _, k := range types.StrategicSectionKeys {
		if s.matches(k, lowered, tokens) {
			sel.Strategic = append(sel.Strategic, k)
		}
	}

	if len(sel.Topic) <= 1 {
		sel.Topic = withDefaults(sel.Topic)
	}
	return sel
}

func (s *Selector) matches(k types.SectionKey, lowered string, tokens []string) bool {
	keywords, ok := s.table[k]
	if !ok {
		return false
	}
	for _, tok := range tokens {
		for _, kw := range keywords {
			if strings.Contains(kw, tok) {
				return true
			}
		}
	}
	return topic.MatchesAny(keywords, lowered)
}

// withDefaults merges DefaultSections into picked, keeping assembly order.
func withDefaults(picked []types.SectionKey) []types.SectionKey {
	want := make(map[types.SectionKey]bool, len(picked)+len(DefaultSections))
	for _, k := range picked {
		want[k] = true
	}
	for _, k := range DefaultSections {
		want[k] = true
	}

	out := make([]types.SectionKey, 0, len(want))
	for _, k := range types.TopicSectionKeys {
		if want[k] {
			out = append(out, k)
		}
	}
	return out
}
