package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DeafMist/news-analytics/backend/internal/models"
	"github.com/DeafMist/news-analytics/backend/internal/processing"
)

// TallyLimit is the number of labels a categorical distribution keeps.
const TallyLimit = 10

// Tally is a categorical distribution and the strategy that produced it.
type Tally struct {
	Field   string
	Tier    string
	Entries []processing.Entry
}

// Total sums the retained counts.
func (t Tally) Total() int64 {
	var n int64
	for _, e := range t.Entries {
		n += e.Count
	}
	return n
}

// LabelCounts renders the tally with percentages over its retained total.
func (t Tally) LabelCounts() []models.LabelCount {
	return withPercentages(t.Entries)
}

// Strategy is one way of collecting a categorical distribution.
// Collect returns ErrNoData when it found nothing.
type Strategy interface {
	Name() string
	Collect(ctx context.Context, exec *Executor, q Query) ([]processing.Entry, error)
}

// TermsStrategy aggregates a field server side.
type TermsStrategy struct {
	Field string
	Size  int
}

func (s TermsStrategy) Name() string { return "terms:" + s.Field }

func (s TermsStrategy) Collect(ctx context.Context, exec *Executor, q Query) ([]processing.Entry, error) {
	res, err := exec.Aggregate(ctx, q, map[string]any{"tally": TermsAgg(s.Field, s.Size)})
	if err != nil {
		return nil, err
	}
	buckets, err := res.Buckets("tally")
	if err != nil {
		return nil, err
	}

	entries := make([]processing.Entry, 0, len(buckets))
	for _, b := range buckets {
		if b.Key == "" || b.DocCount <= 0 {
			continue
		}
		entries = append(entries, processing.Entry{Key: b.Key, Count: b.DocCount})
	}
	if len(entries) == 0 {
		return nil, ErrNoData
	}
	return entries, nil
}

// ClientCountStrategy fetches documents and counts a field's labels locally.
type ClientCountStrategy struct {
	Field string
}

func (s ClientCountStrategy) Name() string { return "client:" + s.Field }

func (s ClientCountStrategy) Collect(ctx context.Context, exec *Executor, q Query) ([]processing.Entry, error) {
	res, err := exec.Fetch(ctx, q, MaxFetch, []string{s.Field})
	if err != nil {
		return nil, err
	}

	counter := processing.NewCounter()
	for _, h := range res.Hits {
		if len(h.Source) == 0 {
			continue
		}
		var src map[string]models.FieldValue
		if err := json.Unmarshal(h.Source, &src); err != nil {
			return nil, fmt.Errorf("decode hit %s: %w", h.ID, err)
		}
		counter.Add(src[s.Field].Labels(s.Field)...)
	}
	if counter.Len() == 0 {
		return nil, ErrNoData
	}
	return counter.Top(0), nil
}

// Chain tries strategies in order; the first one with data wins.
type Chain struct {
	Field      string
	Strategies []Strategy
	Limit      int
}

// CategoricalChain is the standard cascade for a string field whose mapping
// varies between indices: keyword sub-field, the field itself, then a client count.
func CategoricalChain(field string) Chain {
	return Chain{
		Field: field,
		Strategies: []Strategy{
			TermsStrategy{Field: field + ".keyword", Size: TallyLimit},
			TermsStrategy{Field: field, Size: TallyLimit},
			ClientCountStrategy{Field: field},
		},
		Limit: TallyLimit,
	}
}

// Run executes the cascade. A schema mismatch moves on to the next strategy;
// any other failure aborts. When every strategy hit a schema mismatch the
// result is ErrSchemaMismatch; when they all found nothing the tally is empty.
func (c Chain) Run(ctx context.Context, exec *Executor, q Query) (Tally, error) {
	var mismatches int
	var lastMismatch error
	for _, s := range c.Strategies {
		entries, err := s.Collect(ctx, exec, q)
		switch {
		case err == nil:
			if c.Limit > 0 && len(entries) > c.Limit {
				entries = entries[:c.Limit]
			}
			return Tally{Field: c.Field, Tier: s.Name(), Entries: entries}, nil
		case errors.Is(err, ErrNoData):
		case errors.Is(err, ErrSchemaMismatch):
			mismatches++
			lastMismatch = err
		default:
			return Tally{}, fmt.Errorf("%s: %w", s.Name(), err)
		}
	}
	if len(c.Strategies) > 0 && mismatches == len(c.Strategies) {
		return Tally{}, lastMismatch
	}
	return Tally{Field: c.Field, Entries: []processing.Entry{}}, nil
}
