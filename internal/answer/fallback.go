// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package answer

import (
	"strings"

	"github.com/pdiddy/evidence-engine/internal/topic"
)

// GenericAnswer describes what the assistant can do. Fallback returns it when
// no rule matches.
const GenericAnswer = "I can help with claim substantiation intelligence for the VMHS portfolio: evidence analysis for magnesium, red clover and collagen across multiple data sources. Ask me about evidence strength, ingredient forms, claims, gaps or portfolio insights."

// Rule is one canned answer. It matches when every group has at least one
// phrase contained in the lower-cased query.
type Rule struct {
	Name   string
	Groups []topic.Phrases
	Answer string
}

func (r Rule) matches(lowered string) bool {
	if len(r.Groups) == 0 {
		return false
	}
	for _, g := range r.Groups {
		if !topic.MatchesAny(g, lowered) {
			return false
		}
	}
	return true
}

// DefaultRules returns the built-in canned answers in priority order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:   "magnesium_sleep",
			Groups: []topic.Phrases{{"magnesium"}, {"sleep", "form"}},
			Answer: "**Magnesium & Sleep Evidence Summary:**\n" +
				"453 papers were analyzed across 6 data sources. Magnesium glycinate shows the strongest evidence for sleep quality improvement (PSQI), supported by 8 RCTs. " +
				"Sleep onset latency fell by 12-17 minutes (glycinate, 200-400mg) and PSQI scores improved by 2.1-3.4 points. " +
				"L-threonate shows emerging evidence for sleep architecture. Citrate and oxide have weaker sleep-specific data.\n\n" +
				"**Recommended claim:** \"Magnesium supports restful sleep and relaxation\" (Strong confidence)",
		},
		{
			Name:   "red_clover_menopause",
			Groups: []topic.Phrases{{"red clover", "menopause"}},
			Answer: "**Red Clover & Menopause Evidence Summary:**\n" +
				"324 papers were analyzed. Standardized isoflavone extracts have the strongest evidence, with 6 RCTs showing a 44-73% reduction in hot flash frequency. " +
				"The Kupperman index improved significantly in 4 studies. Bone density markers showed modest improvement in 2 long-term studies.\n\n" +
				"**Recommended claim:** \"Red clover isoflavones help reduce menopausal discomfort\" (Moderate confidence)",
		},
		{
			Name:   "collagen_skin",
			Groups: []topic.Phrases{{"collagen"}, {"skin", "elasticity"}},
			Answer: "**Collagen & Skin Elasticity Evidence Summary:**\n" +
				"387 papers were analyzed. Type I hydrolyzed collagen peptides (2.5-10g/day) show strong evidence for skin elasticity improvement measured by cutometry. " +
				"Wrinkle depth reduction was observed in 7 RCTs after 8-12 weeks. Fish collagen peptides show efficacy comparable to bovine sources.\n\n" +
				"**Recommended claim:** \"Collagen peptides support skin elasticity and hydration\" (Strong confidence)",
		},
		{
			Name:   "claims",
			Groups: []topic.Phrases{{"claim", "regulatory", "substantiation"}},
			Answer: "**Claim Substantiation Guidance:**\n" +
				"Claim language is graded by confidence:\n" +
				"- **Strong:** Supported by 3+ RCTs with consistent results\n" +
				"- **Moderate:** Supported by 1-2 RCTs plus observational data\n" +
				"- **Emerging:** Primarily observational or mechanistic evidence\n\n" +
				"Each claim carries a defense package covering evidence strength, consistency, biological plausibility and dose-response.",
		},
		{
			Name:   "gaps",
			Groups: []topic.Phrases{{"gap", "research", "opportunity"}},
			Answer: "**Research Gaps Identified:**\n" +
				"1. **Magnesium:** No pediatric sleep studies; no head-to-head form comparisons in RCTs\n" +
				"2. **Red Clover:** Limited long-term (>2yr) safety data; few early perimenopause studies\n" +
				"3. **Collagen:** Limited data in diverse skin types; dosing duration varies across studies\n\n" +
				"These gaps are opportunities to fund targeted studies.",
		},
		{
			Name:   "portfolio",
			Groups: []topic.Phrases{{"brand", "brands", "portfolio", "product line"}},
			Answer: "**Portfolio Coverage:**\n" +
				"- **Premium practitioner lines:** Magnesium glycinate, collagen peptides\n" +
				"- **Full-range lines:** Complete magnesium range, red clover extract\n" +
				"- **Mass-market lines:** Collagen, magnesium oxide and citrate\n" +
				"- **Lifestyle lines:** Collagen peptides with beauty positioning\n\n" +
				"Evidence strength varies by brand and form, so evidence is mapped to specific product SKUs.",
		},
		{
			Name:   "help",
			Groups: []topic.Phrases{{"help", "what can you"}},
			Answer: "I can answer questions about magnesium and sleep evidence, red clover and menopause data, collagen and skin elasticity research, " +
				"regulatory claim guidance, evidence gaps, portfolio analysis and competitive intelligence for VMHS products.",
		},
	}
}

// Fallback answers without a model. It never fails and never returns an
// empty string.
type Fallback struct {
	rules []Rule
}

// NewFallback returns a Fallback over rules; nil uses DefaultRules.
func NewFallback(rules []Rule) *Fallback {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Fallback{rules: rules}
}

// Answer returns the first matching rule's answer, or GenericAnswer.
func (f *Fallback) Answer(query string) string {
	lowered := strings.ToLower(query)
	for _, r := range f.rules {
		if r.matches(lowered) && r.Answer != "" {
			return r.Answer
		}
	}
	return GenericAnswer
}
