// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// --- test helpers ---

func testSetup(t *testing.T) (*Store, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "index")

	store, err := NewStore(dir, 20)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return store, dir
}

func sampleStudies(prefix string) []types.Study {
	return []types.Study{
		{
			ID: prefix + "-1", Title: "Magnesium glycinate and sleep quality",
			Authors: []string{"Karin Schuette", "Lena Hartmann"}, Year: 2022, Journal: "Nutrients",
			Language: "en", Design: types.DesignRCT, QualityScore: 86, SampleSize: 120,
			Form: "magnesium glycinate", Endpoints: []string{"PSQI", "sleep onset latency"},
			Outcome: types.OutcomeSupporting, EffectSummary: "PSQI improved by 3.4 points",
		},
		{
			ID: prefix + "-2", Title: "Oral magnesium for insomnia, a meta-analysis",
			Authors: []string{"Joshua Mah"}, Year: 2021, Journal: "BMC Complement Med Ther",
			Language: "en", Design: types.DesignMetaAnalysis, QualityScore: 88,
			Form: "mixed magnesium salts", Endpoints: []string{"sleep onset latency"},
			Outcome: types.OutcomeSupporting, EffectSummary: "Latency reduced by 17 minutes",
		},
		{
			ID: prefix + "-3", Title: "Dietary magnesium and sleep duration",
			Authors: []string{"Hiroshi Nakamura"}, Year: 2019, Journal: "J Epidemiol",
			Language: "ja", Design: types.DesignCohort, QualityScore: 68,
			Form: "dietary magnesium", Endpoints: []string{"sleep duration"},
			Outcome: types.OutcomeNeutral, EffectSummary: "No association",
		},
	}
}

func sampleCorpus() *types.Corpus {
	collagen := []types.Study{{
		ID: "co-1", Title: "Collagen peptides and skin elasticity",
		Authors: []string{"Ehrhardt Proksch"}, Year: 2014, Journal: "Skin Pharmacol Physiol",
		Design: types.DesignRCT, QualityScore: 87, Form: "collagen peptides",
		Endpoints: []string{"skin elasticity"}, Outcome: types.OutcomeSupporting,
		EffectSummary: "Elasticity improved",
	}}
	return &types.Corpus{
		Topics: []types.Topic{
			{ID: "magnesium_sleep", Label: "Magnesium + Sleep", Phrases: []string{"magnesium"}},
			{ID: "collagen_skin", Label: "Collagen + Skin", Phrases: []string{"collagen"}},
		},
		Datasets: map[string]*types.TopicDataset{
			"magnesium_sleep": {TopicID: "magnesium_sleep", Studies: sampleStudies("mg")},
			"collagen_skin":   {TopicID: "collagen_skin", Studies: collagen},
		},
	}
}

func indexHelper(t *testing.T, store *Store, c *types.Corpus) IndexSummary {
	t.Helper()
	var buf strings.Builder
	summary, err := store.Index(context.Background(), c, &buf)
	if err != nil {
		t.Fatal(err)
	}
	return summary
}

// --- schema tests ---

func TestNewStoreCreatesSchema(t *testing.T) {
	store, _ := testSetup(t)

	for _, table := range []string{"topics", "studies", "studies_fts", "indexing_status"} {
		var count int
		err := store.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type IN ('table','view') AND name = ?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatal(err)
		}
		if count != 1 {
			t.Errorf("table %s: got count %d, want 1", table, count)
		}
	}
}

func TestNewStoreCreatesDBFile(t *testing.T) {
	_, dir := testSetup(t)
	if _, err := os.Stat(filepath.Join(dir, dbFile)); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestNewStoreReopens(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	first, err := NewStore(dir, 0)
	if err != nil {
		t.Fatal(err)
	}
	first.Close()

	second, err := NewStore(dir, 0)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer second.Close()
	if second.maxResults != defaultMaxResults {
		t.Errorf("maxResults = %d, want %d", second.maxResults, defaultMaxResults)
	}
}

// --- indexing tests ---

func TestIndex(t *testing.T) {
	store, _ := testSetup(t)
	summary := indexHelper(t, store, sampleCorpus())

	if summary.Indexed != 2 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want 2 indexed", summary)
	}

	var count int
	if err := store.db.QueryRow(`SELECT count(*) FROM studies`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 4 {
		t.Errorf("studies = %d, want 4", count)
	}
}

func TestIndexStoresAllFields(t *testing.T) {
	store, _ := testSetup(t)
	indexHelper(t, store, sampleCorpus())

	got, err := store.Lookup(context.Background(), "mg-1")
	if err != nil {
		t.Fatal(err)
	}
	want := sampleStudies("mg")[0]
	if got.Title != want.Title || got.Year != want.Year || got.Journal != want.Journal {
		t.Errorf("metadata mismatch: %+v", got.Study)
	}
	if got.Design != types.DesignRCT || got.Outcome != types.OutcomeSupporting || got.QualityScore != 86 {
		t.Errorf("appraisal mismatch: %+v", got.Study)
	}
	if len(got.Authors) != 2 || got.Authors[1] != "Lena Hartmann" {
		t.Errorf("authors = %v", got.Authors)
	}
	if len(got.Endpoints) != 2 || got.Endpoints[0] != "PSQI" {
		t.Errorf("endpoints = %v", got.Endpoints)
	}
	if got.TopicID != "magnesium_sleep" || got.TopicLabel != "Magnesium + Sleep" {
		t.Errorf("topic = %s / %s", got.TopicID, got.TopicLabel)
	}
}

func TestIndexSkipsUnchanged(t *testing.T) {
	store, _ := testSetup(t)
	c := sampleCorpus()
	indexHelper(t, store, c)

	summary := indexHelper(t, store, c)
	if summary.Skipped != 2 || summary.Indexed != 0 || summary.Updated != 0 {
		t.Errorf("second run summary = %+v, want 2 skipped", summary)
	}
}

func TestIndexUpdatesChanged(t *testing.T) {
	store, _ := testSetup(t)
	c := sampleCorpus()
	indexHelper(t, store, c)

	c.Datasets["magnesium_sleep"].Studies = sampleStudies("mg")[:1]
	summary := indexHelper(t, store, c)
	if summary.Updated != 1 || summary.Skipped != 1 {
		t.Errorf("summary = %+v, want 1 updated and 1 skipped", summary)
	}

	results, err := store.Search(context.Background(), QueryOptions{TopicID: "magnesium_sleep"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("got %d magnesium studies after update, want 1", len(results))
	}
}

func TestIndexMissingDataset(t *testing.T) {
	store, _ := testSetup(t)
	c := sampleCorpus()
	delete(c.Datasets, "collagen_skin")

	summary := indexHelper(t, store, c)
	if summary.Failed != 1 || summary.Indexed != 1 {
		t.Errorf("summary = %+v, want 1 indexed and 1 failed", summary)
	}
}

func TestIndexSummaryOutput(t *testing.T) {
	store, _ := testSetup(t)
	var buf strings.Builder
	if _, err := store.Index(context.Background(), sampleCorpus(), &buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"indexing magnesium_sleep (3 studies)", "indexing collagen_skin (1 studies)", "indexed: 2, updated: 0, skipped: 0, failed: 0"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestIndexCancelled(t *testing.T) {
	store, _ := testSetup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf strings.Builder
	if _, err := store.Index(ctx, sampleCorpus(), &buf); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestIndexSummaryTotal(t *testing.T) {
	s := IndexSummary{Indexed: 1, Updated: 2, Skipped: 3, Failed: 4}
	if s.Total() != 10 {
		t.Errorf("Total() = %d, want 10", s.Total())
	}
}

// --- search tests ---

func TestSearchFullText(t *testing.T) {
	store, _ := testSetup(t)
	indexHelper(t, store, sampleCorpus())

	results, err := store.Search(context.Background(), QueryOptions{Query: "glycinate"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "mg-1" {
		t.Errorf("got %+v, want mg-1", results)
	}

	results, err = store.Search(context.Background(), QueryOptions{Query: "elasticity"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].TopicLabel != "Collagen + Skin" {
		t.Errorf("got %+v, want the collagen study", results)
	}
}

func TestSearchFilters(t *testing.T) {
	store, _ := testSetup(t)
	indexHelper(t, store, sampleCorpus())
	ctx := context.Background()

	tests := []struct {
		name string
		opts QueryOptions
		want []string
	}{
		{"design filter", QueryOptions{Design: types.DesignMetaAnalysis}, []string{"mg-2"}},
		{"outcome filter", QueryOptions{Outcome: types.OutcomeNeutral}, []string{"mg-3"}},
		{"quality filter", QueryOptions{MinQuality: 87}, []string{"co-1", "mg-2"}},
		{"topic sorted by quality", QueryOptions{TopicID: "magnesium_sleep"}, []string{"mg-2", "mg-1", "mg-3"}},
		{"combined", QueryOptions{Query: "sleep", Outcome: types.OutcomeSupporting, MaxResults: 1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := store.Search(ctx, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if tt.want == nil {
				if len(results) != 1 {
					t.Errorf("got %d results, want 1", len(results))
				}
				return
			}
			var ids []string
			for _, r := range results {
				ids = append(ids, r.ID)
			}
			if strings.Join(ids, ",") != strings.Join(tt.want, ",") {
				t.Errorf("ids = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestSearchNoResults(t *testing.T) {
	store, _ := testSetup(t)
	indexHelper(t, store, sampleCorpus())

	results, err := store.Search(context.Background(), QueryOptions{Query: "zinc"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestLookupNotFound(t *testing.T) {
	store, _ := testSetup(t)
	_, err := store.Lookup(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestQueryOptionsIsEmpty(t *testing.T) {
	if !(QueryOptions{MaxResults: 5}).IsEmpty() {
		t.Error("MaxResults alone should be empty")
	}
	if (QueryOptions{Design: types.DesignRCT}).IsEmpty() {
		t.Error("design filter should not be empty")
	}
}

// --- stats and export tests ---

func TestStats(t *testing.T) {
	store, _ := testSetup(t)
	indexHelper(t, store, sampleCorpus())

	st, err := store.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Topics != 2 || st.Studies != 4 {
		t.Errorf("stats = %+v", st)
	}
	if st.ByTopic["magnesium_sleep"] != 3 || st.ByDesign[string(types.DesignRCT)] != 2 {
		t.Errorf("grouped stats = %+v", st)
	}
}

func TestIndexWritesExportYAML(t *testing.T) {
	store, dir := testSetup(t)
	indexHelper(t, store, sampleCorpus())

	data, err := os.ReadFile(filepath.Join(dir, "export.yaml"))
	if err != nil {
		t.Fatalf("export.yaml not written: %v", err)
	}
	var entries []map[string]any
	if err := yaml.Unmarshal(data, &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Errorf("export has %d entries, want 4", len(entries))
	}
	if entries[0]["topic_id"] == nil || entries[0]["study_design"] == nil {
		t.Errorf("export entry missing inlined fields: %v", entries[0])
	}
}

func TestExportJSON(t *testing.T) {
	store, _ := testSetup(t)
	indexHelper(t, store, sampleCorpus())

	path, err := store.ExportJSON(context.Background(), QueryOptions{TopicID: "collagen_skin"})
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var entries []SearchResult
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ID != "co-1" || entries[0].TopicID != "collagen_skin" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestExportEmpty(t *testing.T) {
	store, _ := testSetup(t)
	path, err := store.ExportJSON(context.Background(), QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("empty export = %q, want []", data)
	}
}
