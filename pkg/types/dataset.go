// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Topic is a subject area (an ingredient and outcome pairing) matched by a
// fixed set of keyword phrases. Topics are defined once at load time.
type Topic struct {
	// ID is the unique topic identifier (e.g. "magnesium_sleep").
	ID string `json:"id" yaml:"id"`

	// Label is the display label (e.g. "Magnesium + Sleep").
	Label string `json:"label" yaml:"label"`

	// Phrases are the lower-case keyword phrases that identify the topic.
	Phrases []string `json:"keywords" yaml:"keywords"`
}

// Keywords returns the topic's matching phrases.
func (t Topic) Keywords() []string { return t.Phrases }

// SectionKey addresses one category of non-study structured content.
type SectionKey string

// Topic section keys. Each one names a field of TopicDataset.
const (
	SectionIngestion SectionKey = "ingestion"
	SectionForms     SectionKey = "forms"
	SectionEndpoints SectionKey = "endpoints"
	SectionDosage    SectionKey = "dosage"
	SectionGaps      SectionKey = "gaps"
	SectionClaims    SectionKey = "claims"
	SectionConsumer  SectionKey = "consumer"
)

// Strategic section keys, independent of any single topic.
const (
	StrategicLandscape   SectionKey = "evidenceLandscape"
	StrategicPositioning SectionKey = "ingredientPositioning"
	StrategicRegulatory  SectionKey = "regulatoryGuidance"
	StrategicGaps        SectionKey = "evidenceGaps"
	StrategicPortfolio   SectionKey = "portfolioInsights"
)

// TopicSectionKeys lists the topic section keys in assembly order.
var TopicSectionKeys = []SectionKey{
	SectionIngestion, SectionForms, SectionEndpoints, SectionDosage,
	SectionGaps, SectionClaims, SectionConsumer,
}

// StrategicSectionKeys lists the strategic section keys in assembly order.
var StrategicSectionKeys = []SectionKey{
	StrategicLandscape, StrategicPositioning, StrategicRegulatory,
	StrategicGaps, StrategicPortfolio,
}

// IsStrategic reports whether k addresses a StrategicSection.
func (k SectionKey) IsStrategic() bool {
	for _, s := range StrategicSectionKeys {
		if s == k {
			return true
		}
	}
	return false
}

// DataSource is one literature source counted during ingestion.
type DataSource struct {
	Name   string `json:"name" yaml:"name"`
	Papers int    `json:"papers" yaml:"papers"`
}

// DateRange bounds the publication dates seen during ingestion.
type DateRange struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// Ingestion summarizes how the topic's evidence was gathered.
type Ingestion struct {
	TotalPapers      int          `json:"total_papers_identified" yaml:"total_papers_identified"`
	FullTextAccessed int          `json:"full_text_accessed" yaml:"full_text_accessed"`
	Sources          []DataSource `json:"data_sources" yaml:"data_sources"`
	DateRange        DateRange    `json:"date_range" yaml:"date_range"`
	Languages        []string     `json:"languages_detected" yaml:"languages_detected"`
}

// IngredientForm summarizes the evidence for one ingredient form.
type IngredientForm struct {
	Form             string `json:"form" yaml:"form"`
	Bioavailability  string `json:"bioavailability" yaml:"bioavailability"`
	EvidenceStrength string `json:"evidence_strength" yaml:"evidence_strength"`
	Notes            string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// EndpointSummary aggregates study outcomes for one endpoint.
type EndpointSummary struct {
	Endpoint          string  `json:"endpoint" yaml:"endpoint"`
	TotalStudies      int     `json:"total_studies" yaml:"total_studies"`
	Supporting        int     `json:"supporting" yaml:"supporting"`
	Neutral           int     `json:"neutral" yaml:"neutral"`
	Negative          int     `json:"negative" yaml:"negative"`
	AverageEffectSize float64 `json:"average_effect_size" yaml:"average_effect_size"`
}

// DosageRange is one row of the dosage table.
type DosageRange struct {
	Form          string `json:"form" yaml:"form"`
	EffectiveDose string `json:"effective_dose" yaml:"effective_dose"`
	OptimalDose   string `json:"optimal_dose" yaml:"optimal_dose"`
	Timing        string `json:"timing,omitempty" yaml:"timing,omitempty"`
}

// Severity grades a research gap.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
)

// ResearchGap is an identified hole in the evidence base.
type ResearchGap struct {
	Gap      string   `json:"gap" yaml:"gap"`
	Detail   string   `json:"detail" yaml:"detail"`
	Severity Severity `json:"severity" yaml:"severity"`
}

// Confidence grades a suggested claim.
type Confidence string

const (
	ConfidenceEmerging Confidence = "emerging"
	ConfidenceModerate Confidence = "moderate"
	ConfidenceStrong   Confidence = "strong"
)

// SuggestedClaim is candidate claim wording with its confidence level.
type SuggestedClaim struct {
	ClaimText     string     `json:"claim_text" yaml:"claim_text"`
	Confidence    Confidence `json:"confidence" yaml:"confidence"`
	EvidenceLevel string     `json:"evidence_level" yaml:"evidence_level"`
}

// BrandMention counts consumer mentions of a brand with mean sentiment in [0,1].
type BrandMention struct {
	Brand     string  `json:"brand" yaml:"brand"`
	Mentions  int     `json:"mentions" yaml:"mentions"`
	Sentiment float64 `json:"sentiment" yaml:"sentiment"`
}

// ConsumerSentiment summarizes consumer and social data for a topic.
type ConsumerSentiment struct {
	SampleSize      int            `json:"sample_size" yaml:"sample_size"`
	DataWindow      string         `json:"data_window" yaml:"data_window"`
	CommonQuestions []string       `json:"common_questions" yaml:"common_questions"`
	BrandMentions   []BrandMention `json:"brand_mentions" yaml:"brand_mentions"`
}

// TopicDataset is the aggregate evidence for one Topic.
type TopicDataset struct {
	TopicID   string            `json:"topic_id" yaml:"topic_id"`
	Ingestion Ingestion         `json:"ingestion" yaml:"ingestion"`
	Studies   []Study           `json:"studies" yaml:"studies"`
	Forms     []IngredientForm  `json:"ingredient_forms" yaml:"ingredient_forms"`
	Endpoints []EndpointSummary `json:"endpoint_analysis" yaml:"endpoint_analysis"`
	Dosage    []DosageRange     `json:"dosage_ranges" yaml:"dosage_ranges"`
	Gaps      []ResearchGap     `json:"research_gaps" yaml:"research_gaps"`
	Claims    []SuggestedClaim  `json:"suggested_claims" yaml:"suggested_claims"`
	Consumer  ConsumerSentiment `json:"consumer_social" yaml:"consumer_social"`
}

// Section returns the dataset value addressed by a topic section key, or
// nil for strategic or unknown keys.
func (d *TopicDataset) Section(k SectionKey) any {
	switch k {
	case SectionIngestion:
		return d.Ingestion
	case SectionForms:
		return d.Forms
	case SectionEndpoints:
		return d.Endpoints
	case SectionDosage:
		return d.Dosage
	case SectionGaps:
		return d.Gaps
	case SectionClaims:
		return d.Claims
	case SectionConsumer:
		return d.Consumer
	}
	return nil
}

// StrategicSection is a block of pre-authored analysis addressed by a fixed key.
type StrategicSection struct {
	Key   SectionKey `json:"key" yaml:"key"`
	Title string     `json:"title" yaml:"title"`

	// Content is free-form structured data decoded from the corpus files.
	Content any `json:"content" yaml:"content"`
}
