// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompt renders the system prompt sent to a language model: persona,
// topic framing, citation legend, response rules, the assembled context and
// few-shot examples chosen from the question's categories.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/evidence-engine/internal/assemble"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// DefaultPersona opens every system prompt.
const DefaultPersona = `You are the evidence analyst of a claim substantiation platform. You answer questions from a VMHS (Vitamins, Minerals, Herbs & Supplements) portfolio team about the clinical evidence behind their ingredients, the claims it supports and where it falls short.`

// broadTopicLimit is the largest topic set still framed by name.
const broadTopicLimit = 3

var systemPromptTmpl = template.Must(template.New("system").Parse(`{{.Persona}}

{{.Framing}}
{{- if .Legend}}

AVAILABLE CITATIONS (use these numbers when referencing evidence):
{{range .Legend}}{{.}}
{{end}}{{- end}}

RULES FOR YOUR RESPONSES:
1. Cite studies by number, e.g. [1] or [2][3], whenever you rely on them.
2. Use a markdown table when comparing forms, doses or ingredients.
3. When discussing claims, name the regulatory framework (FDA structure/function, EFSA Article 13 or 14).
4. Do not use emoji.
5. Ground answers in the evidence data below. General knowledge may only supplement it and must be marked as such.
6. Frame research gaps as investment opportunities.
7. If a question falls outside the evidence data, say so and redirect to what the data does cover.
{{- if .Context}}

RETRIEVED EVIDENCE DATA:
{{.Context}}
{{- end}}
{{- if .Examples}}

EXAMPLES OF THE EXPECTED STYLE:
{{range $i, $e := .Examples}}{{if $i}}

{{end}}{{$e}}{{end}}
{{- end}}
`))

// Builder renders system prompts. The zero value uses DefaultPersona.
type Builder struct {
	Persona string
}

// NewBuilder returns a Builder with the default persona.
func NewBuilder() *Builder {
	return &Builder{Persona: DefaultPersona}
}

type promptData struct {
	Persona  string
	Framing  string
	Legend   []string
	Context  string
	Examples []string
}

// Build renders the system prompt for query. The result depends only on its
// arguments, so equal inputs give byte-identical prompts.
func (b *Builder) Build(query string, ctx assemble.Context, topics []types.Topic) (string, error) {
	persona := b.Persona
	if persona == "" {
		persona = DefaultPersona
	}

	data := promptData{
		Persona:  persona,
		Framing:  Framing(topics),
		Legend:   Legend(ctx.Cited),
		Context:  ctx.Text,
		Examples: examplesFor(DetectCategories(query)),
	}

	var buf bytes.Buffer
	if err := systemPromptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering system prompt: %w", err)
	}
	return buf.String(), nil
}

// Framing describes the topics in scope: by name for up to three topics,
// otherwise as a portfolio-wide question.
func Framing(topics []types.Topic) string {
	switch {
	case len(topics) == 1:
		return fmt.Sprintf("The user is asking specifically about: %s.", topics[0].Label)
	case len(topics) > 1 && len(topics) <= broadTopicLimit:
		labels := make([]string, len(topics))
		for i, t := range topics {
			labels[i] = t.Label
		}
		return fmt.Sprintf("The user's question relates to: %s.", strings.Join(labels, ", "))
	}
	return "The user is asking a general question across the VMHS portfolio."
}

// Legend returns one "[n] Surname et al., Year, Journal" line per cited
// study, numbered as in the assembled context.
func Legend(cited []types.Study) []string {
	out := make([]string, 0, len(cited))
	for i, s := range cited {
		name := s.FirstAuthorSurname()
		if len(s.Authors) > 1 {
			name += " et al."
		}
		out = append(out, fmt.Sprintf("[%d] %s, %d, %s", i+1, name, s.Year, s.Journal))
	}
	return out
}
