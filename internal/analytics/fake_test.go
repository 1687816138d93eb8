package analytics_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/DeafMist/news-analytics/backend/internal/elasticsearch"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeIndex answers searches through respond and records every body.
type fakeIndex struct {
	mu      sync.Mutex
	bodies  []map[string]any
	respond func(body map[string]any) (*elasticsearch.Response, error)
}

func (f *fakeIndex) Search(_ context.Context, body map[string]any) (*elasticsearch.Response, error) {
	f.mu.Lock()
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()
	return f.respond(body)
}

func (f *fakeIndex) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bodies)
}

func (f *fakeIndex) body(i int) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[i]
}

// aggName returns the single top-level aggregation name of a body, or "" for fetches.
func aggName(body map[string]any) string {
	aggs, _ := body["aggs"].(map[string]any)
	for name := range aggs {
		return name
	}
	return ""
}

// aggField returns the field of a terms aggregation named name.
func aggField(body map[string]any, name string) string {
	aggs, _ := body["aggs"].(map[string]any)
	agg, _ := aggs[name].(map[string]any)
	terms, _ := agg["terms"].(map[string]any)
	field, _ := terms["field"].(string)
	return field
}

func aggs(total int64, named map[string]string) *elasticsearch.Response {
	raw := make(map[string]json.RawMessage, len(named))
	for name, js := range named {
		raw[name] = json.RawMessage(js)
	}
	return &elasticsearch.Response{Total: total, Aggregations: raw}
}

func hits(sources ...string) *elasticsearch.Response {
	resp := &elasticsearch.Response{Total: int64(len(sources))}
	for i, src := range sources {
		resp.Hits = append(resp.Hits, elasticsearch.Hit{
			ID:     string(rune('a' + i%26)),
			Source: json.RawMessage(src),
		})
	}
	return resp
}

// boolQuery digs the bool clause out of a recorded body.
func boolQuery(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	q, ok := body["query"].(map[string]any)
	if !ok {
		t.Fatalf("body has no query: %v", body)
	}
	b, ok := q["bool"].(map[string]any)
	if !ok {
		t.Fatalf("query is not a bool query: %v", q)
	}
	return b
}
