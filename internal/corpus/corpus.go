// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus loads and validates the evidence corpus. A corpus directory
// holds topics.yaml, strategic.yaml and one datasets/<topic_id>.yaml per
// topic. A default corpus is embedded in the binary.
package corpus

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	topicsFile    = "topics.yaml"
	strategicFile = "strategic.yaml"
	datasetsDir   = "datasets"
)

// Validation sentinels. Load wraps them with the offending id or key.
var (
	ErrMissingDataset = errors.New("missing topic dataset")
	ErrMissingSection = errors.New("missing strategic section")
	ErrInvalidTopic   = errors.New("invalid topic")
)

//go:embed data
var embedded embed.FS

// Default loads the embedded corpus.
func Default() (*types.Corpus, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("opening embedded corpus: %w", err)
	}
	return Load(sub)
}

// LoadDir loads a corpus from a directory on disk.
func LoadDir(dir string) (*types.Corpus, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("corpus directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus path %s is not a directory", dir)
	}
	return Load(os.DirFS(dir))
}

// Open loads the corpus from dir, or the embedded corpus when dir is empty.
func Open(dir string) (*types.Corpus, error) {
	if dir == "" {
		return Default()
	}
	return LoadDir(dir)
}

// Load reads and validates a corpus from fsys.
func Load(fsys fs.FS) (*types.Corpus, error) {
	c := &types.Corpus{
		Datasets:  map[string]*types.TopicDataset{},
		Strategic: map[types.SectionKey]types.StrategicSection{},
	}

	if err := decodeFile(fsys, topicsFile, &c.Topics); err != nil {
		return nil, err
	}

	for _, t := range c.Topics {
		name := path.Join(datasetsDir, t.ID+".yaml")
		if _, err := fs.Stat(fsys, name); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("topic %s: %w", t.ID, ErrMissingDataset)
		}
		ds := &types.TopicDataset{}
		if err := decodeFile(fsys, name, ds); err != nil {
			return nil, err
		}
		if ds.TopicID == "" {
			ds.TopicID = t.ID
		}
		c.Datasets[t.ID] = ds
	}

	var sections []types.StrategicSection
	if err := decodeFile(fsys, strategicFile, &sections); err != nil {
		return nil, err
	}
	for _, s := range sections {
		c.Strategic[s.Key] = s
	}

	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that every topic is well formed and has a dataset, that
// every strategic key is present and that every study passes its own checks.
func Validate(c *types.Corpus) error {
	if len(c.Topics) == 0 {
		return fmt.Errorf("no topics defined: %w", ErrInvalidTopic)
	}

	seenTopics := map[string]bool{}
	seenStudies := map[string]string{}
	for _, t := range c.Topics {
		if t.ID == "" || t.Label == "" {
			return fmt.Errorf("topic %q needs an id and a label: %w", t.ID, ErrInvalidTopic)
		}
		if seenTopics[t.ID] {
			return fmt.Errorf("duplicate topic %s: %w", t.ID, ErrInvalidTopic)
		}
		seenTopics[t.ID] = true
		if len(t.Phrases) == 0 {
			return fmt.Errorf("topic %s has no keywords: %w", t.ID, ErrInvalidTopic)
		}

		ds := c.Dataset(t.ID)
		if ds == nil {
			return fmt.Errorf("topic %s: %w", t.ID, ErrMissingDataset)
		}
		if ds.TopicID != t.ID {
			return fmt.Errorf("dataset for %s declares topic %s: %w", t.ID, ds.TopicID, ErrInvalidTopic)
		}
		for _, s := range ds.Studies {
			if err := s.Validate(); err != nil {
				return fmt.Errorf("topic %s: %w", t.ID, err)
			}
			if other, dup := seenStudies[s.ID]; dup {
				return fmt.Errorf("study %s appears in %s and %s", s.ID, other, t.ID)
			}
			seenStudies[s.ID] = t.ID
		}
	}

	for _, k := range types.StrategicSectionKeys {
		if _, ok := c.Strategic[k]; !ok {
			return fmt.Errorf("%s: %w", k, ErrMissingSection)
		}
	}
	for k := range c.Strategic {
		if !k.IsStrategic() {
			return fmt.Errorf("unknown strategic section %q", k)
		}
	}
	return nil
}

// WriteYAML writes c as one YAML document.
func WriteYAML(w io.Writer, c *types.Corpus) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding corpus: %w", err)
	}
	return enc.Close()
}

func decodeFile(fsys fs.FS, name string, out any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}
