package analytics

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/DeafMist/news-analytics/backend/internal/models"
	"github.com/DeafMist/news-analytics/backend/internal/processing"
)

// Canonical sentiment classes.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

var sentimentAliases = map[string]string{
	"positif":  SentimentPositive,
	"positive": SentimentPositive,
	"negatif":  SentimentNegative,
	"negative": SentimentNegative,
	"netral":   SentimentNeutral,
	"neutral":  SentimentNeutral,
}

// CanonicalSentiment maps a stored label onto one of the three classes.
func CanonicalSentiment(label string) (string, bool) {
	c, ok := sentimentAliases[strings.ToLower(strings.TrimSpace(label))]
	return c, ok
}

// sentimentForms lists every stored spelling of a sentiment filter value.
func sentimentForms(value string) []string {
	canonical, ok := CanonicalSentiment(value)
	if !ok {
		return []string{value}
	}
	forms := make([]string, 0, 2)
	for alias, c := range sentimentAliases {
		if c == canonical {
			forms = append(forms, alias)
		}
	}
	sort.Strings(forms)
	return forms
}

// SentimentCounts folds sentiment buckets into the three classes.
// Unrecognized labels are dropped.
func SentimentCounts(buckets []Bucket) models.SentimentDistribution {
	var d models.SentimentDistribution
	for _, b := range buckets {
		addSentiment(&d, b.Key, b.DocCount)
	}
	return d
}

// LabelCounts passes open-domain buckets through in delivered order with
// percentages over the bucket sum.
func LabelCounts(buckets []Bucket) []models.LabelCount {
	entries := make([]processing.Entry, 0, len(buckets))
	for _, b := range buckets {
		entries = append(entries, processing.Entry{Key: b.Key, Count: b.DocCount})
	}
	return withPercentages(entries)
}

func addSentiment(d *models.SentimentDistribution, label string, n int64) {
	switch c, _ := CanonicalSentiment(label); c {
	case SentimentPositive:
		d.Positive += n
	case SentimentNegative:
		d.Negative += n
	case SentimentNeutral:
		d.Neutral += n
	}
}

func withPercentages(entries []processing.Entry) []models.LabelCount {
	var total int64
	for _, e := range entries {
		total += e.Count
	}
	out := make([]models.LabelCount, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.LabelCount{Label: e.Key, Count: e.Count, Percentage: Percentage(e.Count, total)})
	}
	return out
}

// Percentage is count/total*100 rounded to one decimal; zero when total is zero.
func Percentage(count, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(count)*1000/float64(total)) / 10
}

// BreakdownItems expresses a distribution as three labelled percentages.
func BreakdownItems(d models.SentimentDistribution) []models.LabelCount {
	total := d.Total()
	return []models.LabelCount{
		{Label: SentimentPositive, Count: d.Positive, Percentage: Percentage(d.Positive, total)},
		{Label: SentimentNegative, Count: d.Negative, Percentage: Percentage(d.Negative, total)},
		{Label: SentimentNeutral, Count: d.Neutral, Percentage: Percentage(d.Neutral, total)},
	}
}

// CalendarGrid lists every bucket key from the aligned start through to.
func CalendarGrid(f Filter) []string {
	from, to := f.Range()
	if from.IsZero() || to.IsZero() || from.After(to) {
		return []string{}
	}

	start := alignStart(from, f.Interval)
	var grid []string
	for t := start; !t.After(to); t = step(t, f.Interval) {
		grid = append(grid, t.Format(DateLayout))
	}
	return grid
}

func alignStart(t time.Time, iv Interval) time.Time {
	switch iv {
	case IntervalWeek:
		// ISO weeks start on Monday
		offset := (int(t.Weekday()) + 6) % 7
		return t.AddDate(0, 0, -offset)
	case IntervalMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return t
	}
}

func step(t time.Time, iv Interval) time.Time {
	switch iv {
	case IntervalWeek:
		return t.AddDate(0, 0, 7)
	case IntervalMonth:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// FillSeries merges histogram buckets into the grid; missing buckets become zero.
// Buckets outside the grid are kept so the series still sums to the total.
func FillSeries(grid []string, buckets []Bucket) []models.TimeSeriesPoint {
	counts := make(map[string]int64, len(buckets))
	for _, b := range buckets {
		counts[b.DateKey()] += b.DocCount
	}

	out := make([]models.TimeSeriesPoint, 0, len(grid))
	for _, key := range grid {
		out = append(out, models.TimeSeriesPoint{Date: key, Count: counts[key]})
		delete(counts, key)
	}
	for key, n := range counts {
		if n > 0 {
			out = append(out, models.TimeSeriesPoint{Date: key, Count: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// FillSentimentSeries does the same for histogram buckets with a sentiment sub-aggregation.
func FillSentimentSeries(grid []string, buckets []Bucket, sub string) ([]models.SentimentTimePoint, error) {
	dists := make(map[string]models.SentimentDistribution, len(buckets))
	for _, b := range buckets {
		inner, err := b.SubBuckets(sub)
		if err != nil {
			return nil, err
		}
		d := dists[b.DateKey()]
		for _, ib := range inner {
			addSentiment(&d, ib.Key, ib.DocCount)
		}
		dists[b.DateKey()] = d
	}

	out := make([]models.SentimentTimePoint, 0, len(grid))
	point := func(key string, d models.SentimentDistribution) models.SentimentTimePoint {
		return models.SentimentTimePoint{Date: key, Positive: d.Positive, Negative: d.Negative, Neutral: d.Neutral}
	}
	for _, key := range grid {
		out = append(out, point(key, dists[key]))
		delete(dists, key)
	}
	for key, d := range dists {
		if d.Total() > 0 {
			out = append(out, point(key, d))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// SplitSentimentSeries turns per-point counts into one series per class.
func SplitSentimentSeries(points []models.SentimentTimePoint) models.SentimentSeries {
	s := models.SentimentSeries{
		Positive: make([]models.TimeSeriesPoint, 0, len(points)),
		Negative: make([]models.TimeSeriesPoint, 0, len(points)),
		Neutral:  make([]models.TimeSeriesPoint, 0, len(points)),
	}
	for _, p := range points {
		s.Positive = append(s.Positive, models.TimeSeriesPoint{Date: p.Date, Count: p.Positive})
		s.Negative = append(s.Negative, models.TimeSeriesPoint{Date: p.Date, Count: p.Negative})
		s.Neutral = append(s.Neutral, models.TimeSeriesPoint{Date: p.Date, Count: p.Neutral})
	}
	return s
}
