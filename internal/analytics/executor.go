package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/DeafMist/news-analytics/backend/internal/elasticsearch"
	"github.com/DeafMist/news-analytics/backend/internal/models"
)

// Result size limits.
const (
	MaxFetch            = 1000
	MaxCorrelationFetch = 5000
	MinTermsSize        = 10
	MaxTermsSize        = 20
	MaxPageSize         = 100
	MaxDistinctKeys     = 1000
)

// Index is the search backend the executor drives.
type Index interface {
	Search(ctx context.Context, body map[string]any) (*elasticsearch.Response, error)
}

// Executor submits one query per call to the index.
type Executor struct {
	index   Index
	timeout time.Duration
}

// NewExecutor returns an executor bounding each call by timeout (0 disables).
func NewExecutor(index Index, timeout time.Duration) *Executor {
	return &Executor{index: index, timeout: timeout}
}

// AggResult is the outcome of an aggregation-only query.
type AggResult struct {
	Total int64
	aggs  map[string]json.RawMessage
}

// Buckets decodes the buckets of a named bucket aggregation.
// A missing aggregation yields no buckets.
func (r *AggResult) Buckets(name string) ([]Bucket, error) {
	return decodeBuckets(r.aggs[name])
}

// FetchResult is the outcome of a document fetch.
type FetchResult struct {
	Total int64
	Hits  []elasticsearch.Hit
}

// Documents decodes every hit.
func (r *FetchResult) Documents() ([]models.NewsDocument, error) {
	docs := make([]models.NewsDocument, 0, len(r.Hits))
	for _, h := range r.Hits {
		doc, err := h.Document()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Aggregate runs aggs over the query without returning documents.
func (e *Executor) Aggregate(ctx context.Context, q Query, aggs map[string]any) (*AggResult, error) {
	body := map[string]any{
		"size":             0,
		"track_total_hits": true,
		"query":            q.Source(),
		"aggs":             aggs,
	}
	resp, err := e.search(ctx, body)
	if err != nil {
		return nil, err
	}
	return &AggResult{Total: resp.Total, aggs: resp.Aggregations}, nil
}

// Fetch returns up to size documents restricted to the given source fields.
func (e *Executor) Fetch(ctx context.Context, q Query, size int, fields []string) (*FetchResult, error) {
	body := map[string]any{
		"size":             clamp(size, 1, MaxCorrelationFetch),
		"track_total_hits": true,
		"query":            q.Source(),
	}
	if len(fields) > 0 {
		body["_source"] = fields
	}
	return e.fetch(ctx, body)
}

// FetchPage returns one page of documents, newest first.
func (e *Executor) FetchPage(ctx context.Context, q Query, from, size int) (*FetchResult, error) {
	body := map[string]any{
		"from":             max(from, 0),
		"size":             clamp(size, 1, MaxPageSize),
		"track_total_hits": true,
		"query":            q.Source(),
		"sort": []map[string]any{
			{FieldExtractedAt: map[string]any{"order": "desc"}},
		},
	}
	return e.fetch(ctx, body)
}

func (e *Executor) fetch(ctx context.Context, body map[string]any) (*FetchResult, error) {
	resp, err := e.search(ctx, body)
	if err != nil {
		return nil, err
	}
	return &FetchResult{Total: resp.Total, Hits: resp.Hits}, nil
}

// DistinctKeys lists up to MaxDistinctKeys values of field over the whole
// index in ascending key order.
func (e *Executor) DistinctKeys(ctx context.Context, field string) ([]string, error) {
	res, err := e.Aggregate(ctx, Query{}, map[string]any{
		"keys": map[string]any{
			"terms": map[string]any{
				"field": field,
				"size":  MaxDistinctKeys,
				"order": map[string]any{"_key": "asc"},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	buckets, err := res.Buckets("keys")
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(buckets))
	for _, b := range buckets {
		if b.Key != "" {
			keys = append(keys, b.Key)
		}
	}
	return keys, nil
}

func (e *Executor) search(ctx context.Context, body map[string]any) (*elasticsearch.Response, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	resp, err := e.index.Search(ctx, body)
	if err == nil {
		return resp, nil
	}
	var re *elasticsearch.ResponseError
	if errors.As(err, &re) && re.Status == http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %w", ErrSchemaMismatch, err)
	}
	return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// TermsAgg is a terms aggregation with size clamped to [MinTermsSize, MaxTermsSize].
func TermsAgg(field string, size int) map[string]any {
	return map[string]any{
		"terms": map[string]any{
			"field": field,
			"size":  clamp(size, MinTermsSize, MaxTermsSize),
		},
	}
}

// DateHistogram buckets by calendar interval across the whole filter range,
// including empty buckets.
func DateHistogram(field string, f Filter, sub map[string]any) map[string]any {
	agg := map[string]any{
		"date_histogram": map[string]any{
			"field":             field,
			"calendar_interval": string(f.Interval),
			"format":            "yyyy-MM-dd",
			"min_doc_count":     0,
			"extended_bounds": map[string]any{
				"min": f.DateFrom,
				"max": f.DateTo,
			},
		},
	}
	if len(sub) > 0 {
		agg["aggs"] = sub
	}
	return agg
}

func clamp(n, lo, hi int) int {
	return max(lo, min(n, hi))
}

// Bucket is one bucket of a terms or date_histogram aggregation.
type Bucket struct {
	Key         string
	KeyAsString string
	DocCount    int64
	sub         map[string]json.RawMessage
}

// DateKey prefers the formatted key of histogram buckets.
func (b Bucket) DateKey() string {
	if b.KeyAsString != "" {
		return b.KeyAsString
	}
	return b.Key
}

// SubBuckets decodes a nested bucket aggregation.
func (b Bucket) SubBuckets(name string) ([]Bucket, error) {
	return decodeBuckets(b.sub[name])
}

func (b *Bucket) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		switch k {
		case "key":
			var s string
			if err := json.Unmarshal(v, &s); err == nil {
				b.Key = s
			} else {
				b.Key = strings.TrimSpace(string(v))
			}
		case "key_as_string":
			if err := json.Unmarshal(v, &b.KeyAsString); err != nil {
				return fmt.Errorf("key_as_string: %w", err)
			}
		case "doc_count":
			if err := json.Unmarshal(v, &b.DocCount); err != nil {
				return fmt.Errorf("doc_count: %w", err)
			}
		default:
			if b.sub == nil {
				b.sub = make(map[string]json.RawMessage)
			}
			b.sub[k] = v
		}
	}
	return nil
}

func decodeBuckets(raw json.RawMessage) ([]Bucket, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var agg struct {
		Buckets []Bucket `json:"buckets"`
	}
	if err := json.Unmarshal(raw, &agg); err != nil {
		return nil, fmt.Errorf("decode buckets: %w", err)
	}
	return agg.Buckets, nil
}
