// Package analytics turns dashboard filters into index queries and
// normalizes the results into chart-ready series.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DeafMist/news-analytics/backend/internal/profile"
)

// DateLayout is the wire format of filter dates and series keys.
const DateLayout = "2006-01-02"

// Interval is the calendar bucket width of a time series.
type Interval string

const (
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
)

// Filter is the user-supplied query constraint shared by every operation.
type Filter struct {
	DateFrom  string   `json:"date_from"`
	DateTo    string   `json:"date_to"`
	Interval  Interval `json:"interval,omitempty"`
	Sources   []string `json:"sources,omitempty"`
	Sentiment string   `json:"sentiment,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
	Operator  string   `json:"operator,omitempty"`
}

// Normalize validates the filter and returns a cleaned copy.
func (f Filter) Normalize() (Filter, error) {
	from, err := time.Parse(DateLayout, strings.TrimSpace(f.DateFrom))
	if err != nil {
		return f, invalidf("date_from must be YYYY-MM-DD, got %q", f.DateFrom)
	}
	to, err := time.Parse(DateLayout, strings.TrimSpace(f.DateTo))
	if err != nil {
		return f, invalidf("date_to must be YYYY-MM-DD, got %q", f.DateTo)
	}
	if from.After(to) {
		return f, invalidf("date_from %s is after date_to %s", f.DateFrom, f.DateTo)
	}
	f.DateFrom, f.DateTo = from.Format(DateLayout), to.Format(DateLayout)

	switch Interval(strings.ToLower(strings.TrimSpace(string(f.Interval)))) {
	case "", IntervalDay:
		f.Interval = IntervalDay
	case IntervalWeek:
		f.Interval = IntervalWeek
	case IntervalMonth:
		f.Interval = IntervalMonth
	default:
		return f, invalidf("interval must be day, week or month, got %q", f.Interval)
	}

	f.Keywords = profile.NormalizeKeywords(f.Keywords)
	if len(f.Keywords) > profile.MaxKeywords {
		return f, invalidf("at most %d keywords allowed", profile.MaxKeywords)
	}
	if strings.TrimSpace(f.Operator) != "" {
		op, err := profile.ParseOperator(f.Operator)
		if err != nil {
			return f, invalidf("operator must be AND or OR, got %q", f.Operator)
		}
		f.Operator = string(op)
	} else {
		f.Operator = ""
	}

	sources := f.Sources[:0:0]
	for _, s := range f.Sources {
		if s = strings.TrimSpace(s); s != "" {
			sources = append(sources, s)
		}
	}
	f.Sources = sources
	f.Sentiment = strings.ToLower(strings.TrimSpace(f.Sentiment))
	return f, nil
}

// Validate reports whether the filter is acceptable.
func (f Filter) Validate() error {
	_, err := f.Normalize()
	return err
}

// Range returns the parsed bounds of a normalized filter.
func (f Filter) Range() (from, to time.Time) {
	from, _ = time.Parse(DateLayout, f.DateFrom)
	to, _ = time.Parse(DateLayout, f.DateTo)
	return from, to
}

// Terms is the keyword constraint after profile resolution.
type Terms struct {
	Keywords []string
	Operator profile.Operator
}

// resolveTerms merges explicit filter keywords with the caller's saved profile.
// Explicit values win; the provider is not consulted when both are given.
func resolveTerms(ctx context.Context, f Filter, userID string, provider profile.Provider, timeout time.Duration) (Terms, error) {
	terms := Terms{Keywords: f.Keywords, Operator: profile.Operator(f.Operator)}
	if len(terms.Keywords) > 0 && terms.Operator != "" {
		return terms, nil
	}

	if provider != nil && userID != "" {
		lookupCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			lookupCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		p, err := provider.GetUserKeywords(lookupCtx, userID)
		switch {
		case err == nil:
			if len(terms.Keywords) == 0 {
				terms.Keywords = profile.NormalizeKeywords(p.Keywords)
			}
			if terms.Operator == "" {
				terms.Operator = p.Operator
			}
		case errors.Is(err, profile.ErrNotFound):
		default:
			return Terms{}, fmt.Errorf("%w: keyword profile: %w", ErrUnavailable, err)
		}
	}

	if op, err := profile.ParseOperator(string(terms.Operator)); err == nil {
		terms.Operator = op
	} else {
		terms.Operator = profile.OperatorOr
	}
	if len(terms.Keywords) > profile.MaxKeywords {
		terms.Keywords = terms.Keywords[:profile.MaxKeywords]
	}
	return terms, nil
}
