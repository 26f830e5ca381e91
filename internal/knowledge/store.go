// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package knowledge keeps a SQLite full-text index of the corpus studies for
// browsing and export. The answer pipeline never reads it; it ranks studies
// in memory.
package knowledge

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	dbFile            = "evidence.db"
	defaultMaxResults = 20
)

// Store manages the study index database.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
}

// NewStore opens or creates the index at dir/evidence.db and creates the
// schema if it does not exist.
func NewStore(dir string, maxResults int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, dir: dir, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS topics (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			keywords TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS studies (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			topic_id TEXT NOT NULL REFERENCES topics(id),
			title TEXT NOT NULL,
			authors TEXT,
			year INTEGER,
			journal TEXT,
			language TEXT,
			design TEXT,
			quality_score INTEGER,
			population TEXT,
			sample_size INTEGER,
			dose TEXT,
			form TEXT,
			duration TEXT,
			endpoints TEXT,
			outcome TEXT,
			effect_summary TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_studies_topic ON studies(topic_id)`,
		`CREATE INDEX IF NOT EXISTS idx_studies_design ON studies(design)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			topic_id TEXT PRIMARY KEY,
			fingerprint TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='studies_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE studies_fts USING fts5(
				title, form, endpoints, effect_summary,
				content=studies, content_rowid=rowid)`,
			`CREATE TRIGGER studies_ai AFTER INSERT ON studies BEGIN
				INSERT INTO studies_fts(rowid, title, form, endpoints, effect_summary)
				VALUES (new.rowid, new.title, new.form, new.endpoints, new.effect_summary);
			END`,
			`CREATE TRIGGER studies_ad AFTER DELETE ON studies BEGIN
				INSERT INTO studies_fts(studies_fts, rowid, title, form, endpoints, effect_summary)
				VALUES ('delete', old.rowid, old.title, old.form, old.endpoints, old.effect_summary);
			END`,
			`CREATE TRIGGER studies_au AFTER UPDATE ON studies BEGIN
				INSERT INTO studies_fts(studies_fts, rowid, title, form, endpoints, effect_summary)
				VALUES ('delete', old.rowid, old.title, old.form, old.endpoints, old.effect_summary);
				INSERT INTO studies_fts(rowid, title, form, endpoints, effect_summary)
				VALUES (new.rowid, new.title, new.form, new.endpoints, new.effect_summary);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IndexSummary holds counts from one indexing run.
type IndexSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of topics processed.
func (s IndexSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Index writes every topic and its studies into the database. A topic whose
// dataset is unchanged since the last run is skipped. Progress lines go to w.
// After any change the index is exported to export.yaml.
func (s *Store) Index(ctx context.Context, c *types.Corpus, w io.Writer) (IndexSummary, error) {
	var summary IndexSummary

	for _, t := range c.Topics {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		ds := c.Dataset(t.ID)
		if ds == nil {
			fmt.Fprintf(w, "failed  %s: no dataset\n", t.ID)
			summary.Failed++
			continue
		}

		fp, err := fingerprint(t, ds.Studies)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", t.ID, err)
			summary.Failed++
			continue
		}

		var stored string
		err = s.db.QueryRowContext(ctx,
			`SELECT fingerprint FROM indexing_status WHERE topic_id = ?`, t.ID,
		).Scan(&stored)
		if err == nil && stored == fp {
			fmt.Fprintf(w, "skipped %s\n", t.ID)
			summary.Skipped++
			continue
		}
		isUpdate := err == nil

		if err := s.indexTopic(ctx, t, ds.Studies, fp, isUpdate); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", t.ID, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d studies)\n", t.ID, len(ds.Studies))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d studies)\n", t.ID, len(ds.Studies))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	if summary.Indexed > 0 || summary.Updated > 0 {
		if _, err := s.ExportYAML(ctx, QueryOptions{}); err != nil {
			fmt.Fprintf(w, "warning: export.yaml write failed: %v\n", err)
		}
	}

	return summary, nil
}

func (s *Store) indexTopic(ctx context.Context, t types.Topic, studies []types.Study, fp string, isUpdate bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if isUpdate {
		if _, err := tx.ExecContext(ctx, `DELETE FROM studies WHERE topic_id = ?`, t.ID); err != nil {
			return fmt.Errorf("deleting old studies: %w", err)
		}
	}

	keywordsJSON, _ := json.Marshal(t.Phrases)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO topics (id, label, keywords) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET label=excluded.label, keywords=excluded.keywords`,
		t.ID, t.Label, string(keywordsJSON),
	)
	if err != nil {
		return fmt.Errorf("upserting topic: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO studies (id, topic_id, title, authors, year, journal, language,
			design, quality_score, population, sample_size, dose, form, duration,
			endpoints, outcome, effect_summary)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, st := range studies {
		authorsJSON, _ := json.Marshal(st.Authors)
		endpointsJSON, _ := json.Marshal(st.Endpoints)
		_, err := stmt.ExecContext(ctx,
			st.ID, t.ID, st.Title, string(authorsJSON), st.Year, st.Journal, st.Language,
			string(st.Design), st.QualityScore, st.Population, st.SampleSize, st.Dose,
			st.Form, st.Duration, string(endpointsJSON), string(st.Outcome), st.EffectSummary,
		)
		if err != nil {
			return fmt.Errorf("inserting study %s: %w", st.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO indexing_status (topic_id, fingerprint) VALUES (?, ?)
		 ON CONFLICT(topic_id) DO UPDATE SET fingerprint=excluded.fingerprint`,
		t.ID, fp,
	)
	if err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}

	return tx.Commit()
}

// fingerprint hashes a topic and its studies to detect changes between runs.
func fingerprint(t types.Topic, studies []types.Study) (string, error) {
	data, err := json.Marshal(struct {
		Topic   types.Topic   `json:"topic"`
		Studies []types.Study `json:"studies"`
	}{t, studies})
	if err != nil {
		return "", fmt.Errorf("hashing topic: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Stats summarizes the index contents.
type Stats struct {
	Topics   int            `json:"topics" yaml:"topics"`
	Studies  int            `json:"studies" yaml:"studies"`
	ByTopic  map[string]int `json:"by_topic" yaml:"by_topic"`
	ByDesign map[string]int `json:"by_design" yaml:"by_design"`
}

// Stats counts indexed topics and studies.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByTopic: map[string]int{}, ByDesign: map[string]int{}}

	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM topics`).Scan(&st.Topics); err != nil {
		return Stats{}, fmt.Errorf("counting topics: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM studies`).Scan(&st.Studies); err != nil {
		return Stats{}, fmt.Errorf("counting studies: %w", err)
	}
	if err := s.countBy(ctx, "topic_id", st.ByTopic); err != nil {
		return Stats{}, err
	}
	if err := s.countBy(ctx, "design", st.ByDesign); err != nil {
		return Stats{}, err
	}
	return st, nil
}

// countBy fills out with study counts grouped by column. column is always a
// constant from this package.
func (s *Store) countBy(ctx context.Context, column string, out map[string]int) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+column+`, count(*) FROM studies GROUP BY `+column)
	if err != nil {
		return fmt.Errorf("grouping by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scanning %s count: %w", column, err)
		}
		out[key] = n
	}
	return rows.Err()
}
