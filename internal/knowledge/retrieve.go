// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// QueryOptions holds parameters for index queries.
type QueryOptions struct {
	// Query is an FTS5 full-text search string over title, form, endpoints
	// and effect summary.
	Query string

	// TopicID filters by topic.
	TopicID string

	// Design filters by study design.
	Design types.StudyDesign

	// Outcome filters by outcome polarity.
	Outcome types.Outcome

	// MinQuality drops studies scored below it.
	MinQuality int

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.TopicID == "" && q.Design == "" && q.Outcome == "" && q.MinQuality == 0
}

// SearchResult is an indexed study with its topic.
type SearchResult struct {
	types.Study `yaml:",inline"`
	TopicID     string `json:"topic_id" yaml:"topic_id"`
	TopicLabel  string `json:"topic_label" yaml:"topic_label"`
}

// ErrNotFound is returned by Lookup for an unknown study id.
var ErrNotFound = errors.New("study not found")

const studyColumns = `s.id, s.topic_id, t.label, s.title, s.authors, s.year, s.journal, s.language,
	s.design, s.quality_score, s.population, s.sample_size, s.dose, s.form, s.duration,
	s.endpoints, s.outcome, s.effect_summary`

// Search queries the index with optional full-text search and filters.
// Full-text results are ranked by relevance; filter-only results are sorted
// by topic, then descending quality, then id.
func (s *Store) Search(ctx context.Context, opts QueryOptions) ([]SearchResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(`SELECT ` + studyColumns + `
			FROM studies_fts
			JOIN studies s ON s.rowid = studies_fts.rowid
			LEFT JOIN topics t ON s.topic_id = t.id
			WHERE studies_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(`SELECT ` + studyColumns + `
			FROM studies s
			LEFT JOIN topics t ON s.topic_id = t.id
			WHERE 1=1`)
	}

	if opts.TopicID != "" {
		qb.WriteString(` AND s.topic_id = ?`)
		args = append(args, opts.TopicID)
	}
	if opts.Design != "" {
		qb.WriteString(` AND s.design = ?`)
		args = append(args, string(opts.Design))
	}
	if opts.Outcome != "" {
		qb.WriteString(` AND s.outcome = ?`)
		args = append(args, string(opts.Outcome))
	}
	if opts.MinQuality > 0 {
		qb.WriteString(` AND s.quality_score >= ?`)
		args = append(args, opts.MinQuality)
	}

	if useFTS {
		qb.WriteString(` ORDER BY studies_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY s.topic_id, s.quality_score DESC, s.id`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		r, err := scanStudy(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Lookup returns one study by id.
func (s *Store) Lookup(ctx context.Context, id string) (SearchResult, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+studyColumns+`
		FROM studies s
		LEFT JOIN topics t ON s.topic_id = t.id
		WHERE s.id = ?`, id)

	r, err := scanStudy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SearchResult{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStudy(sc scanner) (SearchResult, error) {
	var (
		r             SearchResult
		label         sql.NullString
		authorsJSON   sql.NullString
		endpointsJSON sql.NullString
		design        string
		outcome       string
	)

	err := sc.Scan(
		&r.ID, &r.TopicID, &label, &r.Title, &authorsJSON, &r.Year, &r.Journal, &r.Language,
		&design, &r.QualityScore, &r.Population, &r.SampleSize, &r.Dose, &r.Form, &r.Duration,
		&endpointsJSON, &outcome, &r.EffectSummary,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return SearchResult{}, err
	}
	if err != nil {
		return SearchResult{}, fmt.Errorf("scanning row: %w", err)
	}

	r.Design = types.StudyDesign(design)
	r.Outcome = types.Outcome(outcome)
	if label.Valid {
		r.TopicLabel = label.String
	}
	if authorsJSON.Valid {
		json.Unmarshal([]byte(authorsJSON.String), &r.Authors)
	}
	if endpointsJSON.Valid {
		json.Unmarshal([]byte(endpointsJSON.String), &r.Endpoints)
	}
	return r, nil
}
