// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Corpus is the complete read-only evidence handle passed into the pipeline.
// It is built once at startup and shared across concurrent requests without
// locking; nothing may mutate it after construction.
type Corpus struct {
	// Topics lists every known topic in a stable order.
	Topics []Topic `json:"topics" yaml:"topics"`

	// Datasets maps topic id to its dataset.
	Datasets map[string]*TopicDataset `json:"datasets" yaml:"datasets"`

	// Strategic maps strategic section key to its content.
	Strategic map[SectionKey]StrategicSection `json:"strategic" yaml:"strategic"`
}

// Topic returns the topic with the given id.
func (c *Corpus) Topic(id string) (Topic, bool) {
	for _, t := range c.Topics {
		if t.ID == id {
			return t, true
		}
	}
	return Topic{}, false
}

// Dataset returns the dataset for a topic id, or nil.
func (c *Corpus) Dataset(topicID string) *TopicDataset {
	if c.Datasets == nil {
		return nil
	}
	return c.Datasets[topicID]
}

// StudyCount returns the number of studies across all datasets.
func (c *Corpus) StudyCount() int {
	n := 0
	for _, d := range c.Datasets {
		n += len(d.Studies)
	}
	return n
}

// ScoredStudy is a Study with its relevance score and owning topic. It lives
// for one request only.
type ScoredStudy struct {
	Study      Study  `json:"study" yaml:"study"`
	Score      int    `json:"score" yaml:"score"`
	TopicID    string `json:"topic_id" yaml:"topic_id"`
	TopicLabel string `json:"topic_label" yaml:"topic_label"`
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one prior message supplied by the caller.
type ConversationTurn struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}
