// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package topic maps a free-text question to the corpus topics it concerns.
// Matching is keyword-substring membership; there is no ranking at this stage.
package topic

import (
	"strings"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Keyworded is anything matched by a fixed list of lower-case keyword
// phrases. Topics, context sections and prompt categories all satisfy it.
type Keyworded interface {
	Keywords() []string
}

// Phrases adapts a plain keyword list to Keyworded.
type Phrases []string

// Keywords returns the list itself.
func (p Phrases) Keywords() []string { return p }

// MatchesAny reports whether any keyword phrase of k occurs in lowered.
// lowered must already be lower-case.
func MatchesAny(k Keyworded, lowered string) bool {
	for _, kw := range k.Keywords() {
		if kw != "" && strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// Detector matches queries against a fixed topic list.
type Detector struct {
	topics []types.Topic
}

// NewDetector returns a Detector over topics. The slice order is the order
// in which matches and the all-topics default are reported.
func NewDetector(topics []types.Topic) *Detector {
	return &Detector{topics: topics}
}

// Detect returns every topic with at least one keyword phrase contained in
// the query. When nothing matches, including for an empty query, it returns
// all topics so the answer is broad rather than empty.
func (d *Detector) Detect(query string) []types.Topic {
	lowered := strings.ToLower(query)

	var matched []types.Topic
	for _, t := range d.topics {
		if MatchesAny(t, lowered) {
			matched = append(matched, t)
		}
	}
	if len(matched) == 0 {
		return d.All()
	}
	return matched
}

// All returns a copy of the full topic list.
func (d *Detector) All() []types.Topic {
	out := make([]types.Topic, len(d.topics))
	copy(out, d.topics)
	return out
}

// IDs returns the ids of topics in order.
func IDs(topics []types.Topic) []string {
	ids := make([]string, len(topics))
	for i, t := range topics {
		ids[i] = t.ID
	}
	return ids
}
