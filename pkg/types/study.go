// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the evidence-engine pipeline:
// the read-only evidence corpus (Topic, Study, TopicDataset, StrategicSection),
// per-request values (ScoredStudy, ConversationTurn) and configuration.
package types

import (
	"fmt"
	"strings"
)

// StudyDesign categorizes how a study was conducted.
type StudyDesign string

const (
	DesignMetaAnalysis     StudyDesign = "meta-analysis"
	DesignSystematicReview StudyDesign = "systematic-review"
	DesignRCT              StudyDesign = "randomized-controlled-trial"
	DesignCohort           StudyDesign = "cohort"
	DesignCaseControl      StudyDesign = "case-control"
	DesignCaseReport       StudyDesign = "case-report"
	DesignOther            StudyDesign = "other"
)

// validDesigns is the set of accepted StudyDesign values.
var validDesigns = map[StudyDesign]bool{
	DesignMetaAnalysis:     true,
	DesignSystematicReview: true,
	DesignRCT:              true,
	DesignCohort:           true,
	DesignCaseControl:      true,
	DesignCaseReport:       true,
	DesignOther:            true,
}

// Outcome is the direction of a study's result relative to the claim area.
type Outcome string

const (
	OutcomeSupporting Outcome = "supporting"
	OutcomeNeutral    Outcome = "neutral"
	OutcomeNegative   Outcome = "negative"
)

// Study is one structured evidence record. It belongs to exactly one Topic
// and is never modified after the corpus is loaded.
type Study struct {
	// ID is unique within the corpus (e.g. a PubMed id or a local slug).
	ID string `json:"id" yaml:"id"`

	// Title is the study title as published.
	Title string `json:"title" yaml:"title"`

	// Authors lists author names in publication order ("Given Surname").
	Authors []string `json:"authors" yaml:"authors"`

	// Year is the publication year.
	Year int `json:"year" yaml:"year"`

	// Journal is the journal or venue name.
	Journal string `json:"journal" yaml:"journal"`

	// Language is the ISO 639-1 code of the full text (e.g. "en", "ja").
	Language string `json:"language" yaml:"language"`

	// Design is the study-design category.
	Design StudyDesign `json:"study_design" yaml:"study_design"`

	// QualityScore is an appraisal score between 0 and 100.
	QualityScore int `json:"quality_score" yaml:"quality_score"`

	// Population describes who was studied.
	Population string `json:"population" yaml:"population"`

	// SampleSize is the number of participants.
	SampleSize int `json:"sample_size" yaml:"sample_size"`

	// Dose is the administered dose as free text (e.g. "300 mg/day").
	Dose string `json:"dose" yaml:"dose"`

	// Form is the intervention form (e.g. "magnesium glycinate").
	Form string `json:"form" yaml:"form"`

	// Duration is the intervention length as free text (e.g. "8 weeks").
	Duration string `json:"duration" yaml:"duration"`

	// Endpoints lists the measured endpoints.
	Endpoints []string `json:"endpoints" yaml:"endpoints"`

	// Outcome is the polarity of the result.
	Outcome Outcome `json:"outcome" yaml:"outcome"`

	// EffectSummary is a free-text description of the observed effect.
	EffectSummary string `json:"effect_summary" yaml:"effect_summary"`
}

// Validate checks the record invariants: quality in [0,100] and enumerated
// design and outcome values.
func (s Study) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("study %q: empty id", s.Title)
	}
	if s.QualityScore < 0 || s.QualityScore > 100 {
		return fmt.Errorf("study %s: quality score %d out of range [0,100]", s.ID, s.QualityScore)
	}
	if !validDesigns[s.Design] {
		return fmt.Errorf("study %s: invalid study design %q", s.ID, s.Design)
	}
	switch s.Outcome {
	case OutcomeSupporting, OutcomeNeutral, OutcomeNegative:
	default:
		return fmt.Errorf("study %s: invalid outcome %q", s.ID, s.Outcome)
	}
	return nil
}

// FirstAuthorSurname returns the last word of the first author's name, or
// "Unknown" when the study has no authors.
func (s Study) FirstAuthorSurname() string {
	if len(s.Authors) == 0 {
		return "Unknown"
	}
	parts := strings.Fields(s.Authors[0])
	if len(parts) == 0 {
		return "Unknown"
	}
	return parts[len(parts)-1]
}
