package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/news-analytics/backend/internal/analytics"
	"github.com/DeafMist/news-analytics/backend/internal/profile"
)

func normalized(t *testing.T, f analytics.Filter) analytics.Filter {
	t.Helper()
	nf, err := f.Normalize()
	require.NoError(t, err)
	return nf
}

func TestFilterNormalize(t *testing.T) {
	f := normalized(t, analytics.Filter{
		DateFrom:  "2024-01-01",
		DateTo:    "2024-01-31",
		Interval:  "WEEK",
		Sources:   []string{" kompas.com ", ""},
		Sentiment: " Positif ",
		Keywords:  []string{"banjir", " ", "banjir"},
		Operator:  "and",
	})
	assert.Equal(t, analytics.IntervalWeek, f.Interval)
	assert.Equal(t, []string{"kompas.com"}, f.Sources)
	assert.Equal(t, "positif", f.Sentiment)
	assert.Equal(t, []string{"banjir"}, f.Keywords)
	assert.Equal(t, "AND", f.Operator)

	f = normalized(t, analytics.Filter{DateFrom: "2024-01-01", DateTo: "2024-01-01"})
	assert.Equal(t, analytics.IntervalDay, f.Interval)
	assert.Empty(t, f.Operator)
}

func TestFilterValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		f    analytics.Filter
	}{
		{"bad from", analytics.Filter{DateFrom: "01/01/2024", DateTo: "2024-01-02"}},
		{"bad to", analytics.Filter{DateFrom: "2024-01-01", DateTo: ""}},
		{"from after to", analytics.Filter{DateFrom: "2024-02-01", DateTo: "2024-01-01"}},
		{"interval", analytics.Filter{DateFrom: "2024-01-01", DateTo: "2024-01-02", Interval: "hour"}},
		{"too many keywords", analytics.Filter{DateFrom: "2024-01-01", DateTo: "2024-01-02", Keywords: []string{"a", "b", "c", "d"}}},
		{"operator", analytics.Filter{DateFrom: "2024-01-01", DateTo: "2024-01-02", Operator: "NOT"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.f.Validate(), analytics.ErrInvalidInput)
		})
	}
}

func TestBuildQueryKeywordOperators(t *testing.T) {
	f := normalized(t, analytics.Filter{DateFrom: "2024-03-01", DateTo: "2024-03-07"})
	keywords := []string{"banjir", "longsor"}

	and := analytics.BuildQuery(f, analytics.Terms{Keywords: keywords, Operator: profile.OperatorAnd}).Source()
	b := and["bool"].(map[string]any)
	require.Len(t, b["must"], 2)
	assert.NotContains(t, b, "should")
	first := b["must"].([]map[string]any)[0]["multi_match"].(map[string]any)
	assert.Equal(t, "banjir", first["query"])
	assert.Equal(t, []string{"title^3", "description^2", "content"}, first["fields"])
	assert.Equal(t, "best_fields", first["type"])

	or := analytics.BuildQuery(f, analytics.Terms{Keywords: keywords, Operator: profile.OperatorOr}).Source()
	b = or["bool"].(map[string]any)
	require.Len(t, b["should"], 2)
	assert.Equal(t, 1, b["minimum_should_match"])
	assert.NotContains(t, b, "must")
}

func TestBuildQueryDefaultsToMatchAll(t *testing.T) {
	f := normalized(t, analytics.Filter{DateFrom: "2024-03-01", DateTo: "2024-03-07"})
	b := analytics.BuildQuery(f, analytics.Terms{}).Source()["bool"].(map[string]any)

	assert.Equal(t, []map[string]any{{"match_all": map[string]any{}}}, b["must"])
	filters := b["filter"].([]map[string]any)
	require.Len(t, filters, 1)
	assert.Equal(t, map[string]any{
		"range": map[string]any{
			"extracted_at": map[string]any{
				"gte":    "2024-03-01||/d",
				"lte":    "2024-03-07||/d",
				"format": "yyyy-MM-dd",
			},
		},
	}, filters[0])
}

func TestBuildQuerySourcesAndSentiment(t *testing.T) {
	f := normalized(t, analytics.Filter{
		DateFrom:  "2024-03-01",
		DateTo:    "2024-03-07",
		Sources:   []string{"detik.com"},
		Sentiment: "POSITIVE",
	})
	b := analytics.BuildQuery(f, analytics.Terms{}).Source()["bool"].(map[string]any)
	filters := b["filter"].([]map[string]any)
	require.Len(t, filters, 3)

	sources := filters[1]["bool"].(map[string]any)["should"].([]map[string]any)
	assert.Equal(t, map[string]any{"source.keyword": []string{"detik.com"}}, sources[0]["terms"])
	assert.Equal(t, map[string]any{"source": []string{"detik.com"}}, sources[1]["terms"])

	assert.Equal(t, map[string]any{
		"annotate.sentiment.label.keyword": []string{"positif", "positive"},
	}, filters[2]["terms"])
}

func TestTermsAggClampsSize(t *testing.T) {
	for in, want := range map[int]int{0: 10, 10: 10, 15: 15, 50: 20} {
		agg := analytics.TermsAgg("x", in)["terms"].(map[string]any)
		assert.Equal(t, want, agg["size"], "size %d", in)
	}
}

func TestDateHistogram(t *testing.T) {
	f := normalized(t, analytics.Filter{DateFrom: "2024-01-01", DateTo: "2024-01-31", Interval: "month"})
	agg := analytics.DateHistogram("extracted_at", f, nil)
	h := agg["date_histogram"].(map[string]any)
	assert.Equal(t, "month", h["calendar_interval"])
	assert.Equal(t, 0, h["min_doc_count"])
	assert.Equal(t, map[string]any{"min": "2024-01-01", "max": "2024-01-31"}, h["extended_bounds"])
	assert.NotContains(t, agg, "aggs")
}
