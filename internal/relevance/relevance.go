// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package relevance scores evidence records against query tokens and selects
// the top studies across the detected topics.
package relevance

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// DefaultTopK is the number of studies surfaced when no limit is configured.
const DefaultTopK = 8

// minTokenLen is the shortest token kept by Tokenize; shorter ones are dropped.
const minTokenLen = 3

// Field weights for a token found in the corresponding study text.
const (
	weightTitle     = 3
	weightForm      = 2
	weightEndpoints = 2
	weightEffect    = 1
)

// Tokenize lower-cases the query, turns punctuation into spaces, splits on
// whitespace and discards tokens of two characters or fewer.
func Tokenize(query string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, query)

	var tokens []string
	for _, f := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(f) >= minTokenLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Score computes the additive relevance of a study for the given tokens.
// Every token is counted independently against each field, then static
// quality, design and outcome bonuses are added. With no tokens the score
// is the bonuses alone.
func Score(s types.Study, tokens []string) int {
	title := strings.ToLower(s.Title)
	form := strings.ToLower(s.Form)
	endpoints := strings.ToLower(strings.Join(s.Endpoints, " "))
	effect := strings.ToLower(s.EffectSummary)

	score := 0
	for _, tok := range tokens {
		if strings.Contains(title, tok) {
			score += weightTitle
		}
		if strings.Contains(form, tok) {
			score += weightForm
		}
		if strings.Contains(endpoints, tok) {
			score += weightEndpoints
		}
		if strings.Contains(effect, tok) {
			score += weightEffect
		}
	}

	return score + qualityBonus(s.QualityScore) + designBonus(s.Design) + outcomeBonus(s.Outcome)
}

func qualityBonus(q int) int {
	switch {
	case q >= 85:
		return 2
	case q >= 75:
		return 1
	}
	return 0
}

func designBonus(d types.StudyDesign) int {
	switch d {
	case types.DesignMetaAnalysis, types.DesignSystematicReview:
		return 3
	case types.DesignRCT:
		return 2
	}
	return 0
}

func outcomeBonus(o types.Outcome) int {
	if o == types.OutcomeSupporting {
		return 1
	}
	return 0
}

// Rank scores every study belonging to the given topics and returns the k
// highest as one combined list. Ties keep corpus order (topics in the order
// given, studies in dataset order). k <= 0 uses DefaultTopK.
func Rank(corpus *types.Corpus, topics []types.Topic, tokens []string, k int) []types.ScoredStudy {
	if k <= 0 {
		k = DefaultTopK
	}

	var scored []types.ScoredStudy
	for _, t := range topics {
		ds := corpus.Dataset(t.ID)
		if ds == nil {
			continue
		}
		for _, s := range ds.Studies {
			scored = append(scored, types.ScoredStudy{
				Study:      s,
				Score:      Score(s, tokens),
				TopicID:    t.ID,
				TopicLabel: t.Label,
			})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
