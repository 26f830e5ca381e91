// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

const minimalTopics = `- id: zinc_immunity
  label: Zinc + Immunity
  keywords: [zinc, immune]
`

const minimalDataset = `topic_id: zinc_immunity
studies:
  - id: zn-1
    title: Zinc lozenges and common cold duration
    authors: [Harri Hemila]
    year: 2017
    journal: JRSM Open
    language: en
    study_design: meta-analysis
    quality_score: 80
    outcome: supporting
`

func strategicYAML(skip types.SectionKey) string {
	var b strings.Builder
	for _, k := range types.StrategicSectionKeys {
		if k == skip {
			continue
		}
		b.WriteString("- key: " + string(k) + "\n  title: " + string(k) + "\n  content: {summary: text}\n")
	}
	return b.String()
}

func minimalFS() fstest.MapFS {
	return fstest.MapFS{
		"topics.yaml":                 {Data: []byte(minimalTopics)},
		"datasets/zinc_immunity.yaml": {Data: []byte(minimalDataset)},
		"strategic.yaml":              {Data: []byte(strategicYAML(""))},
	}
}

func TestDefaultCorpus(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	ids := make([]string, len(c.Topics))
	for i, tp := range c.Topics {
		ids[i] = tp.ID
	}
	assert.Equal(t, []string{"magnesium_sleep", "red_clover_menopause", "collagen_skin"}, ids)
	assert.Len(t, c.Strategic, len(types.StrategicSectionKeys))
	assert.Greater(t, c.StudyCount(), 10)

	mg := c.Dataset("magnesium_sleep")
	require.NotNil(t, mg)
	assert.Equal(t, 453, mg.Ingestion.TotalPapers)
	assert.NotEmpty(t, mg.Claims)

	content, ok := c.Strategic[types.StrategicPortfolio].Content.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, content, "leverage_opportunities")
}

func TestLoadMinimal(t *testing.T) {
	c, err := Load(minimalFS())
	require.NoError(t, err)
	require.Len(t, c.Topics, 1)
	assert.Equal(t, []string{"zinc", "immune"}, c.Topics[0].Keywords())
	assert.Equal(t, 1, c.StudyCount())
	assert.Equal(t, types.DesignMetaAnalysis, c.Dataset("zinc_immunity").Studies[0].Design)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(fs fstest.MapFS)
		target error
		errMsg string
	}{
		{
			name:   "missing dataset file",
			mutate: func(fs fstest.MapFS) { delete(fs, "datasets/zinc_immunity.yaml") },
			target: ErrMissingDataset,
		},
		{
			name: "missing strategic section",
			mutate: func(fs fstest.MapFS) {
				fs["strategic.yaml"] = &fstest.MapFile{Data: []byte(strategicYAML(types.StrategicGaps))}
			},
			target: ErrMissingSection,
			errMsg: "evidenceGaps",
		},
		{
			name: "duplicate topic",
			mutate: func(fs fstest.MapFS) {
				fs["topics.yaml"] = &fstest.MapFile{Data: []byte(minimalTopics + minimalTopics)}
			},
			target: ErrInvalidTopic,
		},
		{
			name: "topic without keywords",
			mutate: func(fs fstest.MapFS) {
				fs["topics.yaml"] = &fstest.MapFile{Data: []byte("- id: zinc_immunity\n  label: Zinc\n")}
			},
			target: ErrInvalidTopic,
		},
		{
			name: "invalid study design",
			mutate: func(fs fstest.MapFS) {
				bad := strings.Replace(minimalDataset, "meta-analysis", "anecdote", 1)
				fs["datasets/zinc_immunity.yaml"] = &fstest.MapFile{Data: []byte(bad)}
			},
			errMsg: `invalid study design "anecdote"`,
		},
		{
			name: "unknown field",
			mutate: func(fs fstest.MapFS) {
				fs["datasets/zinc_immunity.yaml"] = &fstest.MapFile{Data: []byte(minimalDataset + "unexpected: 1\n")}
			},
			errMsg: "parsing datasets/zinc_immunity.yaml",
		},
		{
			name:   "missing topics file",
			mutate: func(fs fstest.MapFS) { delete(fs, "topics.yaml") },
			errMsg: "reading topics.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := minimalFS()
			tt.mutate(fsys)
			_, err := Load(fsys)
			require.Error(t, err)
			if tt.target != nil {
				assert.True(t, errors.Is(err, tt.target), "got %v", err)
			}
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	for name, f := range minimalFS() {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, f.Data, 0o644))
	}

	c, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "zinc_immunity", c.Topics[0].ID)

	_, err = LoadDir(filepath.Join(dir, "nope"))
	require.Error(t, err)

	_, err = LoadDir(filepath.Join(dir, "topics.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestOpen(t *testing.T) {
	c, err := Open("")
	require.NoError(t, err)
	assert.Len(t, c.Topics, 3)
}

func TestWriteYAML(t *testing.T) {
	c, err := Load(minimalFS())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, c))
	out := buf.String()
	assert.Contains(t, out, "zinc_immunity")
	assert.Contains(t, out, "study_design: meta-analysis")
	assert.Contains(t, out, "portfolioInsights")
}
