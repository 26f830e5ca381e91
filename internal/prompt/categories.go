// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package prompt

import (
	"strings"

	"github.com/pdiddy/evidence-engine/internal/topic"
)

// Category is a question category used to pick few-shot examples.
type Category string

const (
	CategoryLandscape   Category = "evidenceLandscape"
	CategoryPositioning Category = "ingredientPositioning"
	CategoryRegulatory  Category = "regulatoryGuidance"
	CategoryGaps        Category = "evidenceGaps"
	CategoryPortfolio   Category = "portfolioInsights"
)

// categoryOrder fixes detection and example order.
var categoryOrder = []Category{
	CategoryLandscape, CategoryPositioning, CategoryRegulatory, CategoryGaps, CategoryPortfolio,
}

// categoryKeywords is separate from the section selector table: it steers
// examples, not retrieval.
var categoryKeywords = map[Category]topic.Phrases{
	CategoryLandscape: {
		"evidence", "landscape", "trend", "trends", "market", "regulatory", "fda", "efsa",
		"vmhs", "supplement", "supplements", "industry", "overview", "totality",
	},
	CategoryPositioning: {
		"ingredient", "form", "forms", "magnesium", "collagen", "red clover", "glycinate",
		"citrate", "oxide", "threonate", "taurate", "promensil", "hydrolyzed", "peptide",
		"compare", "comparison", "positioning", "competitor", "brand", "brands",
	},
	CategoryRegulatory: {
		"claim", "claims", "regulatory", "structure function", "health claim", "wording",
		"defense", "substantiation", "fda", "efsa", "label", "labeling", "compliance",
		"confidence", "approved", "permitted",
	},
	CategoryGaps: {
		"gap", "gaps", "missing", "lacking", "opportunity", "unmet", "pediatric", "safety",
		"long-term", "duration", "population", "investment", "priority", "research",
	},
	CategoryPortfolio: {
		"portfolio", "cross", "brand", "brands", "consumer", "insight", "leverage",
		"competitive", "intelligence", "strategy", "strategic",
	},
}

// DetectCategories returns the categories whose keywords occur in the
// lower-cased query, in fixed order. It never returns an empty set: with no
// match the query is treated as a landscape question.
func DetectCategories(query string) []Category {
	lowered := strings.ToLower(query)

	var out []Category
	for _, c := range categoryOrder {
		if topic.MatchesAny(categoryKeywords[c], lowered) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		out = append(out, CategoryLandscape)
	}
	return out
}
