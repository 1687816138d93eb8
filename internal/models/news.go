package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// NewsDocument represents the annotated article structure stored in Elasticsearch.
type NewsDocument struct {
	ID                   string      `json:"id,omitempty"`
	Title                string      `json:"title"`
	Description          string      `json:"description,omitempty"`
	Content              string      `json:"content,omitempty"`
	URL                  string      `json:"url,omitempty"`
	Author               string      `json:"author,omitempty"`
	Source               FieldValue  `json:"source"`
	Category             FieldValue  `json:"category"`
	PublishDate          string      `json:"publish_date,omitempty"`
	PublishDateTimestamp int64       `json:"publish_date_timestamp,omitempty"`
	ExtractedAt          string      `json:"extracted_at,omitempty"`
	Annotate             *Annotation `json:"annotate,omitempty"`
}

// Text joins the free-text fields used for mining.
func (d NewsDocument) Text() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{d.Title, d.Description, d.Content} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Annotation is the enrichment block produced by the upstream NLP pipeline.
type Annotation struct {
	Sentiment *Label     `json:"sentiment,omitempty"`
	Emotion   *Label     `json:"emotion,omitempty"`
	Entities  EntityList `json:"entities,omitempty"`
}

// SentimentLabel returns the sentiment label or an empty string.
func (a *Annotation) SentimentLabel() string {
	if a == nil || a.Sentiment == nil {
		return ""
	}
	return a.Sentiment.Label
}

// EmotionLabel returns the emotion label or an empty string.
func (a *Annotation) EmotionLabel() string {
	if a == nil || a.Emotion == nil {
		return ""
	}
	return a.Emotion.Label
}

// Label is a classifier output.
type Label struct {
	Label string  `json:"label"`
	Score float64 `json:"score,omitempty"`
}

// Entity is a single named-entity mention. Annotators disagree on key names,
// so both word/text and entity_group/group are accepted.
type Entity struct {
	Word        string  `json:"word,omitempty"`
	Text        string  `json:"text,omitempty"`
	EntityGroup string  `json:"entity_group,omitempty"`
	Group       string  `json:"group,omitempty"`
	Score       float64 `json:"score,omitempty"`
}

// Name returns the trimmed surface form.
func (e Entity) Name() string {
	name := e.Word
	if name == "" {
		name = e.Text
	}
	return strings.TrimSpace(name)
}

// Tag returns the upper-cased raw group tag.
func (e Entity) Tag() string {
	tag := e.EntityGroup
	if tag == "" {
		tag = e.Group
	}
	return strings.ToUpper(strings.TrimSpace(tag))
}

// EntityList decodes leniently: a non-array value yields no entities and
// elements that are not objects are skipped.
type EntityList []Entity

func (l *EntityList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		*l = nil
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}

	out := make(EntityList, 0, len(raw))
	for _, item := range raw {
		var ent Entity
		if err := json.Unmarshal(item, &ent); err != nil {
			continue
		}
		out = append(out, ent)
	}
	*l = out
	return nil
}
