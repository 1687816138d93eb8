// Package ingest prepares annotated articles for indexing.
package ingest

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DeafMist/news-analytics/backend/internal/models"
)

// ErrEmptyDocument is returned for payloads without any text.
var ErrEmptyDocument = errors.New("document has no title, description or content")

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the layouts producers emit; unknown input yields the zero time.
func ParseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

// DocumentID derives a stable identifier so re-delivered messages overwrite
// the same document.
func DocumentID(url, title string, extractedAt time.Time) string {
	url, title = strings.TrimSpace(url), strings.TrimSpace(title)
	if url == "" && title == "" {
		return ""
	}
	s := sha1.Sum([]byte(url + "|" + title + "|" + extractedAt.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(s[:])
}

// Canonicalize trims free text, stamps extracted_at when missing, lowercases
// sentiment and emotion labels, upper-cases entity groups and assigns an ID.
// Label casing is fixed here once so aggregations never see variants.
func Canonicalize(doc models.NewsDocument, now time.Time) (models.NewsDocument, error) {
	doc.Title = strings.TrimSpace(doc.Title)
	doc.Description = strings.TrimSpace(doc.Description)
	doc.Content = strings.TrimSpace(doc.Content)
	doc.URL = strings.TrimSpace(doc.URL)
	doc.Author = strings.TrimSpace(doc.Author)
	if doc.Title == "" && doc.Description == "" && doc.Content == "" {
		return doc, ErrEmptyDocument
	}

	extracted := ParseTimestamp(doc.ExtractedAt)
	if extracted.IsZero() {
		extracted = now.UTC()
	}
	doc.ExtractedAt = extracted.Format(time.RFC3339)

	if a := doc.Annotate; a != nil {
		clone := *a
		clone.Sentiment = lowerLabel(a.Sentiment)
		clone.Emotion = lowerLabel(a.Emotion)
		if a.Entities != nil {
			clone.Entities = make(models.EntityList, 0, len(a.Entities))
			for _, e := range a.Entities {
				e.Word = strings.TrimSpace(e.Word)
				e.Text = strings.TrimSpace(e.Text)
				e.EntityGroup = strings.ToUpper(strings.TrimSpace(e.EntityGroup))
				e.Group = strings.ToUpper(strings.TrimSpace(e.Group))
				if e.Name() == "" {
					continue
				}
				clone.Entities = append(clone.Entities, e)
			}
		}
		doc.Annotate = &clone
	}

	doc.ID = strings.TrimSpace(doc.ID)
	if doc.ID == "" {
		doc.ID = DocumentID(doc.URL, doc.Title, extracted)
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	return doc, nil
}

func lowerLabel(l *models.Label) *models.Label {
	if l == nil {
		return nil
	}
	out := *l
	out.Label = strings.ToLower(strings.TrimSpace(l.Label))
	if out.Label == "" {
		return nil
	}
	return &out
}
