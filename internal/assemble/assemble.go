// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble combines ranked studies and selected sections into one
// budgeted context text with a numbered citation list.
//
// Every piece is cut to a fixed character budget, so the assembled size has a
// worst case (see Assembler.Bound) that does not depend on corpus size.
package assemble

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/evidence-engine/internal/sections"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Default budgets, in characters.
const (
	DefaultStudyBudget     = 700
	DefaultSectionBudget   = 800
	DefaultStrategicBudget = 1200
	headingBudget          = 120
)

const (
	studiesHeader   = "RELEVANT STUDIES (cite by number):"
	topicsHeader    = "TOPIC EVIDENCE:"
	strategicHeader = "STRATEGIC INTELLIGENCE:"
	tierSeparator   = "\n\n======\n\n"
	blockSeparator  = "\n\n"
)

// sectionLabels are the headings used for each section key.
var sectionLabels = map[types.SectionKey]string{
	types.SectionIngestion:     "EVIDENCE INGESTION STATS",
	types.SectionForms:         "INGREDIENT FORMS",
	types.SectionEndpoints:     "ENDPOINT ANALYSIS",
	types.SectionDosage:        "DOSAGE ANALYSIS",
	types.SectionGaps:          "RESEARCH GAPS",
	types.SectionClaims:        "SUGGESTED CLAIMS",
	types.SectionConsumer:      "CONSUMER & SOCIAL DATA",
	types.StrategicLandscape:   "EVIDENCE LANDSCAPE",
	types.StrategicPositioning: "INGREDIENT POSITIONING",
	types.StrategicRegulatory:  "REGULATORY GUIDANCE",
	types.StrategicGaps:        "EVIDENCE GAPS",
	types.StrategicPortfolio:   "PORTFOLIO INSIGHTS",
}

// Label returns the display heading for a section key.
func Label(k types.SectionKey) string {
	if l, ok := sectionLabels[k]; ok {
		return l
	}
	return strings.ToUpper(string(k))
}

// Budgets holds the per-piece character caps.
type Budgets struct {
	Study   int
	Section int

	// Strategic maps a strategic key to its cap; missing keys use
	// DefaultStrategicBudget.
	Strategic map[types.SectionKey]int
}

// DefaultBudgets returns the production budgets. Ingredient positioning
// tables are wider than the other strategic sections and get more room.
func DefaultBudgets() Budgets {
	return Budgets{
		Study:   DefaultStudyBudget,
		Section: DefaultSectionBudget,
		Strategic: map[types.SectionKey]int{
			types.StrategicLandscape:   1200,
			types.StrategicPositioning: 1500,
			types.StrategicRegulatory:  1200,
			types.StrategicGaps:        1200,
			types.StrategicPortfolio:   1200,
		},
	}
}

func (b Budgets) strategic(k types.SectionKey) int {
	if v, ok := b.Strategic[k]; ok && v > 0 {
		return v
	}
	return DefaultStrategicBudget
}

// Context is the assembled evidence for one question.
type Context struct {
	// Text is the budgeted context blob.
	Text string

	// Cited lists the studies in citation order; Cited[i] is reference [i+1].
	Cited []types.Study
}

// Assembler formats and budgets context.
type Assembler struct {
	budgets Budgets
}

// New returns an Assembler. Non-positive study or section budgets are
// replaced by the defaults.
func New(b Budgets) *Assembler {
	if b.Study <= 0 {
		b.Study = DefaultStudyBudget
	}
	if b.Section <= 0 {
		b.Section = DefaultSectionBudget
	}
	return &Assembler{budgets: b}
}

// Assemble builds the context: the studies tier, then one block per topic in
// scope and selected topic section, then the selected strategic sections.
// Empty tiers are omitted.
func (a *Assembler) Assemble(corpus *types.Corpus, topics []types.Topic, scored []types.ScoredStudy, sel sections.Selection) Context {
	var tiers []string
	ctx := Context{}

	if len(scored) > 0 {
		blocks := make([]string, 0, len(scored))
		for i, s := range scored {
			blocks = append(blocks, Truncate(FormatStudy(i+1, s), a.budgets.Study))
			ctx.Cited = append(ctx.Cited, s.Study)
		}
		tiers = append(tiers, tier(studiesHeader, blocks))
	}

	var topicBlocks []string
	for _, t := range topics {
		ds := corpus.Dataset(t.ID)
		if ds == nil {
			continue
		}
		for _, k := range sel.Topic {
			v := ds.Section(k)
			if v == nil {
				continue
			}
			heading := fmt.Sprintf("%s (%s):", Label(k), t.Label)
			topicBlocks = append(topicBlocks, block(heading, serialize(v), a.budgets.Section))
		}
	}
	if len(topicBlocks) > 0 {
		tiers = append(tiers, tier(topicsHeader, topicBlocks))
	}

	var strategicBlocks []string
	for _, k := range sel.Strategic {
		sec, ok := corpus.Strategic[k]
		if !ok {
			continue
		}
		strategicBlocks = append(strategicBlocks, block(Label(k)+":", serialize(sec.Content), a.budgets.strategic(k)))
	}
	if len(strategicBlocks) > 0 {
		tiers = append(tiers, tier(strategicHeader, strategicBlocks))
	}

	ctx.Text = strings.Join(tiers, tierSeparator)
	return ctx
}

// Bound returns the largest Text, in characters, that Assemble can produce
// for k studies, topicCount topics and the given selection. It depends only
// on budgets and counts, never on corpus contents.
func (a *Assembler) Bound(k, topicCount int, sel sections.Selection) int {
	runes := utf8.RuneCountInString
	total := 0

	studies := make([]int, k)
	for i := range studies {
		studies[i] = a.budgets.Study
	}
	total += tierBound(runes(studiesHeader), studies)

	var topicBlocks []int
	for i := 0; i < topicCount*len(sel.Topic); i++ {
		topicBlocks = append(topicBlocks, headingBudget+1+a.budgets.Section)
	}
	total += tierBound(runes(topicsHeader), topicBlocks)

	var strategicBlocks []int
	for _, key := range sel.Strategic {
		strategicBlocks = append(strategicBlocks, headingBudget+1+a.budgets.strategic(key))
	}
	total += tierBound(runes(strategicHeader), strategicBlocks)

	return total + 2*runes(tierSeparator)
}

func tierBound(header int, blocks []int) int {
	if len(blocks) == 0 {
		return 0
	}
	n := header + 1
	for _, b := range blocks {
		n += b
	}
	return n + (len(blocks)-1)*utf8.RuneCountInString(blockSeparator)
}

func tier(header string, blocks []string) string {
	return header + "\n" + strings.Join(blocks, blockSeparator)
}

func block(heading, body string, budget int) string {
	return Truncate(heading, headingBudget) + "\n" + Truncate(body, budget)
}

// FormatStudy renders one numbered, citation-ready study entry.
func FormatStudy(n int, s types.ScoredStudy) string {
	st := s.Study
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s (%d). %s. %s.\n", n, AuthorList(st.Authors), st.Year, st.Title, st.Journal)
	fmt.Fprintf(&b, "    Language: %s | Design: %s | Quality: %d/100\n", st.Language, st.Design, st.QualityScore)
	fmt.Fprintf(&b, "    Population: %s | n=%d | Dose: %s | Form: %s | Duration: %s\n",
		st.Population, st.SampleSize, st.Dose, st.Form, st.Duration)
	fmt.Fprintf(&b, "    Endpoints: %s\n", strings.Join(st.Endpoints, ", "))
	fmt.Fprintf(&b, "    Outcome: %s. %s", st.Outcome, st.EffectSummary)
	if s.TopicLabel != "" {
		fmt.Fprintf(&b, "\n    Topic: %s", s.TopicLabel)
	}
	return b.String()
}

// AuthorList abbreviates authors to "First, Second et al." when there are
// more than two.
func AuthorList(authors []string) string {
	switch len(authors) {
	case 0:
		return "Unknown"
	case 1, 2:
		return strings.Join(authors, ", ")
	}
	return authors[0] + ", " + authors[1] + " et al."
}

// Truncate cuts s to at most n characters. The cut is not word or sentence
// aware.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// serialize renders section data as indented JSON.
func serialize(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
