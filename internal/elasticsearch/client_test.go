package elasticsearch_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/news-analytics/backend/internal/elasticsearch"
	"github.com/DeafMist/news-analytics/backend/internal/models"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func respond(status int, body string) *http.Response {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("X-Elastic-Product", "Elasticsearch")
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestSearchDecodesTotalsAggregationsAndHits(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		return respond(http.StatusOK, `{
			"hits": {"total": {"value": 42}, "hits": [
				{"_id": "a1", "_source": {"title": "Banjir Jakarta", "source": "kompas"}}
			]},
			"aggregations": {"sentiments": {"buckets": [{"key": "positif", "doc_count": 3}]}}
		}`), nil
	})

	client, err := elasticsearch.New("http://es.test:9200", "online-news-*", nil, elasticsearch.WithTransport(rt))
	require.NoError(t, err)

	res, err := client.Search(context.Background(), map[string]any{"size": 0})
	require.NoError(t, err)

	require.Equal(t, "/online-news-*/_search", gotPath)
	require.EqualValues(t, 0, gotBody["size"])
	require.Equal(t, int64(42), res.Total)
	require.Contains(t, res.Aggregations, "sentiments")
	require.Len(t, res.Hits, 1)

	doc, err := res.Hits[0].Document()
	require.NoError(t, err)
	require.Equal(t, "a1", doc.ID)
	require.Equal(t, "Banjir Jakarta", doc.Title)
	require.Equal(t, []string{"kompas"}, doc.Source.Labels("source"))
}

func TestSearchReturnsResponseError(t *testing.T) {
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return respond(http.StatusBadRequest, `{"error":{"type":"illegal_argument_exception"}}`), nil
	})

	client, err := elasticsearch.New("http://es.test:9200", "news", nil, elasticsearch.WithTransport(rt))
	require.NoError(t, err)

	_, err = client.Search(context.Background(), map[string]any{})
	var respErr *elasticsearch.ResponseError
	require.True(t, errors.As(err, &respErr))
	require.Equal(t, http.StatusBadRequest, respErr.Status)
	require.Contains(t, respErr.Body, "illegal_argument_exception")
}

func TestIndexNewsUsesDocumentID(t *testing.T) {
	var gotPath string
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		gotPath = r.URL.Path
		return respond(http.StatusCreated, `{"result":"created"}`), nil
	})

	client, err := elasticsearch.New("http://es.test:9200", "news", nil, elasticsearch.WithTransport(rt))
	require.NoError(t, err)

	doc := models.NewsDocument{ID: "doc-1", Title: "t", Source: models.StringField("detik")}
	require.NoError(t, client.IndexNews(context.Background(), doc))
	require.Equal(t, "/news/_doc/doc-1", gotPath)
}

func TestWaitReadyRetriesUntilPingSucceeds(t *testing.T) {
	var calls int
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		if calls < 3 {
			return respond(http.StatusInternalServerError, `{}`), nil
		}
		return respond(http.StatusOK, `{}`), nil
	})

	client, err := elasticsearch.New("http://es.test:9200", "news", nil, elasticsearch.WithTransport(rt))
	require.NoError(t, err)

	require.NoError(t, client.WaitReady(context.Background(), 5, time.Millisecond))
	require.Equal(t, 3, calls)
}

func TestWaitReadyGivesUp(t *testing.T) {
	var calls int
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return respond(http.StatusInternalServerError, `{}`), nil
	})

	client, err := elasticsearch.New("http://es.test:9200", "news", nil, elasticsearch.WithTransport(rt))
	require.NoError(t, err)

	err = client.WaitReady(context.Background(), 2, time.Millisecond)
	require.ErrorContains(t, err, "not ready after 2 attempts")
	require.Equal(t, 2, calls)
}
