package analytics

import (
	"github.com/DeafMist/news-analytics/backend/internal/profile"
)

// Index fields the engine reads.
const (
	FieldExtractedAt = "extracted_at"
	FieldSentiment   = "annotate.sentiment.label.keyword"
	FieldEmotion     = "annotate.emotion.label.keyword"
	FieldEntities    = "annotate.entities"
	FieldSource      = "source"
	FieldCategory    = "category"
)

var keywordFields = []string{"title^3", "description^2", "content"}

// Query is a bool query over the news index.
type Query struct {
	Must   []map[string]any
	Should []map[string]any
	Filter []map[string]any

	// Terms is the keyword constraint the query was built from.
	Terms Terms
}

// BuildQuery translates a normalized filter and resolved keywords into a Query.
func BuildQuery(f Filter, terms Terms) Query {
	q := Query{Terms: terms}

	q.Filter = append(q.Filter, map[string]any{
		"range": map[string]any{
			FieldExtractedAt: map[string]any{
				"gte":    f.DateFrom + "||/d",
				"lte":    f.DateTo + "||/d",
				"format": "yyyy-MM-dd",
			},
		},
	})

	for _, kw := range terms.Keywords {
		clause := map[string]any{
			"multi_match": map[string]any{
				"query":  kw,
				"fields": keywordFields,
				"type":   "best_fields",
			},
		}
		if terms.Operator == profile.OperatorAnd {
			q.Must = append(q.Must, clause)
		} else {
			q.Should = append(q.Should, clause)
		}
	}

	if len(f.Sources) > 0 {
		// source is mapped as text+keyword on some indices and keyword on others
		q.Filter = append(q.Filter, map[string]any{
			"bool": map[string]any{
				"should": []map[string]any{
					{"terms": map[string]any{FieldSource + ".keyword": f.Sources}},
					{"terms": map[string]any{FieldSource: f.Sources}},
				},
				"minimum_should_match": 1,
			},
		})
	}

	if f.Sentiment != "" {
		q.Filter = append(q.Filter, map[string]any{
			"terms": map[string]any{FieldSentiment: sentimentForms(f.Sentiment)},
		})
	}
	return q
}

// Source renders the query body.
func (q Query) Source() map[string]any {
	b := map[string]any{}
	if len(q.Filter) > 0 {
		b["filter"] = q.Filter
	}
	if len(q.Must) > 0 {
		b["must"] = q.Must
	}
	if len(q.Should) > 0 {
		b["should"] = q.Should
		b["minimum_should_match"] = 1
	}
	if len(q.Must) == 0 && len(q.Should) == 0 {
		b["must"] = []map[string]any{{"match_all": map[string]any{}}}
	}
	return map[string]any{"bool": b}
}
