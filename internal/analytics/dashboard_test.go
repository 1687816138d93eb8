package analytics_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/news-analytics/backend/internal/analytics"
	"github.com/DeafMist/news-analytics/backend/internal/elasticsearch"
	"github.com/DeafMist/news-analytics/backend/internal/models"
)

func dashboardIndex(failOn string) *fakeIndex {
	return &fakeIndex{respond: func(body map[string]any) (*elasticsearch.Response, error) {
		name := aggName(body)
		if name == failOn {
			return nil, &elasticsearch.ResponseError{Status: 500, Body: "shard failure"}
		}
		switch name {
		case "sentiments":
			return aggs(3, map[string]string{"sentiments": `{"buckets":[
				{"key":"positif","doc_count":2},{"key":"negatif","doc_count":1}]}`}), nil
		case "volume":
			return aggs(3, map[string]string{"volume": `{"buckets":[
				{"key_as_string":"2024-01-02","doc_count":3}]}`}), nil
		case "emotions":
			return aggs(3, map[string]string{"emotions": `{"buckets":[
				{"key":"senang","doc_count":2},{"key":"marah","doc_count":1}]}`}), nil
		case "series":
			return aggs(3, map[string]string{"series": `{"buckets":[
				{"key_as_string":"2024-01-02","doc_count":3,"sentiments":{"buckets":[
					{"key":"positif","doc_count":2},{"key":"negatif","doc_count":1}]}}]}`}), nil
		default:
			return hits(
				`{"title":"Timnas menang 😀","content":"timnas juara 😀🇮🇩"}`,
				`{"title":"Timnas latihan","content":"persiapan piala"}`,
			), nil
		}
	}}
}

func TestDashboard(t *testing.T) {
	idx := dashboardIndex("none")
	d, err := newService(idx, nil).Dashboard(context.Background(), "", week)
	require.NoError(t, err)

	assert.Equal(t, models.SummaryCard{TotalNews: 3, TotalPositive: 2, TotalNegative: 1}, d.Summary)
	assert.Equal(t, models.SentimentDistribution{Positive: 2, Negative: 1}, d.SentimentDistribution)
	assert.Len(t, d.TimeSeries, 7)
	assert.Equal(t, []models.LabelCount{
		{Label: "senang", Count: 2, Percentage: 66.7},
		{Label: "marah", Count: 1, Percentage: 33.3},
	}, d.Emotions)
	assert.Len(t, d.SentimentTimeSeries.Positive, 7)
	assert.EqualValues(t, 2, d.SentimentTimeSeries.Positive[1].Count)
	assert.Equal(t, models.WordCloudItem{Text: "timnas", Value: 3}, d.TextWordCloud[0])
	assert.Equal(t, []models.WordCloudItem{{Text: "😀", Value: 2}, {Text: "🇮🇩", Value: 1}}, d.EmojiWordCloud)
	assert.Equal(t, 5, idx.calls())
}

func TestDashboardFailsAsAWhole(t *testing.T) {
	for _, panel := range []string{"sentiments", "volume", "emotions", "series", ""} {
		t.Run("fail "+panel, func(t *testing.T) {
			idx := dashboardIndex(panel)
			_, err := newService(idx, nil).Dashboard(context.Background(), "", week)
			var ce *analytics.ComputationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, analytics.OpDashboard, ce.Op)
			assert.ErrorIs(t, err, analytics.ErrUnavailable)
		})
	}
}

func TestDashboardPanicBecomesComputationError(t *testing.T) {
	base := dashboardIndex("none")
	idx := &fakeIndex{respond: func(body map[string]any) (*elasticsearch.Response, error) {
		if aggName(body) == "volume" {
			panic("boom in panel")
		}
		return base.respond(body)
	}}

	_, err := newService(idx, nil).Dashboard(context.Background(), "", week)
	var ce *analytics.ComputationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, analytics.OpDashboard, ce.Op)
	assert.Contains(t, ce.Error(), "boom in panel")
}
