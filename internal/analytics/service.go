package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DeafMist/news-analytics/backend/internal/entitygraph"
	"github.com/DeafMist/news-analytics/backend/internal/logger"
	"github.com/DeafMist/news-analytics/backend/internal/models"
	"github.com/DeafMist/news-analytics/backend/internal/processing"
	"github.com/DeafMist/news-analytics/backend/internal/profile"
)

// Operation names, as exposed on the API and CLI.
const (
	OpDashboard            = "dashboard"
	OpSummary              = "summary"
	OpVolumeTrends         = "volume-trends"
	OpNERExplorer          = "ner-explorer"
	OpTopSources           = "top-sources"
	OpCorrelation          = "sentiment-emotion-correlation"
	OpCategoryDistribution = "category-distribution"
	OpTrendingTopics       = "trending-topics"
	OpSentimentBreakdown   = "sentiment-breakdown"
	OpEmotionBreakdown     = "emotion-breakdown"
	OpSentimentTimeSeries  = "sentiment-time-series"
	OpEntityNetwork        = "entity-network"
)

// NERTopK is the number of entities listed per class.
const NERTopK = 10

// Options tunes a Service. Zero values are usable.
type Options struct {
	QueryTimeout   time.Duration
	ProfileTimeout time.Duration
	Tokenizer      *processing.Tokenizer
	Metrics        *Metrics
	Logger         *slog.Logger
}

// Service computes every analytics operation over one index.
type Service struct {
	exec           *Executor
	profiles       profile.Provider
	profileTimeout time.Duration
	tokenizer      *processing.Tokenizer
	metrics        *Metrics
	log            *slog.Logger
}

// NewService wires the engine. profiles may be nil when no saved keywords exist.
func NewService(index Index, profiles profile.Provider, opts Options) *Service {
	if opts.Tokenizer == nil {
		opts.Tokenizer = processing.NewTokenizer()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	return &Service{
		exec:           NewExecutor(index, opts.QueryTimeout),
		profiles:       profiles,
		profileTimeout: opts.ProfileTimeout,
		tokenizer:      opts.Tokenizer,
		metrics:        opts.Metrics,
		log:            opts.Logger,
	}
}

// Operations lists every operation Run accepts.
func Operations() []string {
	return []string{
		OpDashboard, OpSummary, OpVolumeTrends, OpNERExplorer, OpTopSources, OpCorrelation,
		OpCategoryDistribution, OpTrendingTopics, OpSentimentBreakdown, OpEmotionBreakdown,
		OpSentimentTimeSeries, OpEntityNetwork,
	}
}

// Run dispatches an operation by name.
func (s *Service) Run(ctx context.Context, op, userID string, f Filter) (any, error) {
	switch op {
	case OpDashboard:
		return s.Dashboard(ctx, userID, f)
	case OpSummary:
		return s.Summary(ctx, userID, f)
	case OpVolumeTrends:
		return s.VolumeTrends(ctx, userID, f)
	case OpNERExplorer:
		return s.NERExplorer(ctx, userID, f)
	case OpTopSources:
		return s.TopSources(ctx, userID, f)
	case OpCorrelation:
		return s.SentimentEmotionCorrelation(ctx, userID, f)
	case OpCategoryDistribution:
		return s.CategoryDistribution(ctx, userID, f)
	case OpTrendingTopics:
		return s.TrendingTopics(ctx, userID, f)
	case OpSentimentBreakdown:
		return s.SentimentBreakdown(ctx, userID, f)
	case OpEmotionBreakdown:
		return s.EmotionBreakdown(ctx, userID, f)
	case OpSentimentTimeSeries:
		return s.SentimentTimeSeries(ctx, userID, f)
	case OpEntityNetwork:
		return s.EntityNetwork(ctx, userID, f)
	default:
		return nil, invalidf("unknown operation %q", op)
	}
}

// finish records the outcome of op and turns a panic into a *ComputationError.
// It must be deferred directly.
func (s *Service) finish(op string, start time.Time, err *error) {
	if r := recover(); r != nil {
		*err = &ComputationError{Op: op, Err: fmt.Errorf("panic: %v", r)}
	}
	elapsed := time.Since(start)
	switch {
	case *err == nil:
		s.metrics.observe(op, outcomeOK, elapsed)
	case errors.Is(*err, ErrInvalidInput):
		s.metrics.observe(op, outcomeInvalid, elapsed)
	default:
		s.metrics.observe(op, outcomeError, elapsed)
		s.log.Error("analytics operation failed",
			slog.String("operation", op),
			slog.Any("err", *err),
			slog.Duration("elapsed", elapsed))
	}
}

type computeFunc[T any] func(ctx context.Context, f Filter, q Query) (T, error)

// run validates the filter, resolves keywords, builds the query and converts
// every non-validation failure into a *ComputationError.
func run[T any](ctx context.Context, s *Service, op, userID string, f Filter, fn computeFunc[T]) (out T, err error) {
	start := time.Now()
	defer s.finish(op, start, &err)

	nf, err := f.Normalize()
	if err != nil {
		return out, err
	}
	terms, err := resolveTerms(ctx, nf, userID, s.profiles, s.profileTimeout)
	if err != nil {
		return out, &ComputationError{Op: op, Err: err}
	}

	out, err = fn(ctx, nf, BuildQuery(nf, terms))
	if err != nil {
		var zero T
		return zero, &ComputationError{Op: op, Err: err}
	}
	s.log.Debug("analytics operation done",
		slog.String("operation", op),
		slog.Int("keywords", len(terms.Keywords)),
		slog.Duration("elapsed", time.Since(start)))
	return out, nil
}

// Summary returns the total and the three sentiment counts.
func (s *Service) Summary(ctx context.Context, userID string, f Filter) (models.SummaryCard, error) {
	return run(ctx, s, OpSummary, userID, f, s.summary)
}

func (s *Service) summary(ctx context.Context, _ Filter, q Query) (models.SummaryCard, error) {
	total, d, err := s.sentiments(ctx, q)
	if err != nil {
		return models.SummaryCard{}, err
	}
	return models.SummaryCard{
		TotalNews:     total,
		TotalPositive: d.Positive,
		TotalNegative: d.Negative,
		TotalNeutral:  d.Neutral,
	}, nil
}

func (s *Service) sentiments(ctx context.Context, q Query) (int64, models.SentimentDistribution, error) {
	res, err := s.exec.Aggregate(ctx, q, map[string]any{"sentiments": TermsAgg(FieldSentiment, MinTermsSize)})
	if err != nil {
		return 0, models.SentimentDistribution{}, err
	}
	buckets, err := res.Buckets("sentiments")
	if err != nil {
		return 0, models.SentimentDistribution{}, err
	}
	return res.Total, SentimentCounts(buckets), nil
}

// VolumeTrends returns the article count per calendar bucket.
func (s *Service) VolumeTrends(ctx context.Context, userID string, f Filter) ([]models.TimeSeriesPoint, error) {
	return run(ctx, s, OpVolumeTrends, userID, f, s.volumeTrends)
}

func (s *Service) volumeTrends(ctx context.Context, f Filter, q Query) ([]models.TimeSeriesPoint, error) {
	res, err := s.exec.Aggregate(ctx, q, map[string]any{"volume": DateHistogram(FieldExtractedAt, f, nil)})
	if err != nil {
		return nil, err
	}
	buckets, err := res.Buckets("volume")
	if err != nil {
		return nil, err
	}
	return FillSeries(CalendarGrid(f), buckets), nil
}

// NERExplorer lists the most frequent people, organizations and locations.
func (s *Service) NERExplorer(ctx context.Context, userID string, f Filter) (models.NERCategory, error) {
	return run(ctx, s, OpNERExplorer, userID, f, func(ctx context.Context, _ Filter, q Query) (models.NERCategory, error) {
		b, err := s.entityGraph(ctx, q)
		if err != nil {
			return models.NERCategory{}, err
		}
		return models.NERCategory{
			Organizations: b.TopByClass(entitygraph.GroupOrganization, NERTopK),
			People:        b.TopByClass(entitygraph.GroupPerson, NERTopK),
			Locations:     b.TopByClass(entitygraph.GroupLocation, NERTopK),
		}, nil
	})
}

// EntityNetwork returns the truncated entity co-occurrence graph.
func (s *Service) EntityNetwork(ctx context.Context, userID string, f Filter) (models.EntityNetwork, error) {
	return run(ctx, s, OpEntityNetwork, userID, f, func(ctx context.Context, _ Filter, q Query) (models.EntityNetwork, error) {
		b, err := s.entityGraph(ctx, q)
		if err != nil {
			return models.EntityNetwork{}, err
		}
		return b.Build(entitygraph.DefaultNodeLimit), nil
	})
}

func (s *Service) entityGraph(ctx context.Context, q Query) (*entitygraph.Builder, error) {
	docs, err := s.fetchDocuments(ctx, q, MaxFetch, FieldEntities)
	if err != nil {
		return nil, err
	}
	b := entitygraph.NewBuilder()
	for _, doc := range docs {
		if doc.Annotate == nil {
			b.AddDocument(nil)
			continue
		}
		b.AddDocument(doc.Annotate.Entities)
	}
	return b, nil
}

// TopSources returns the ten most frequent sources.
func (s *Service) TopSources(ctx context.Context, userID string, f Filter) ([]models.LabelCount, error) {
	return run(ctx, s, OpTopSources, userID, f, s.categorical(FieldSource))
}

// CategoryDistribution returns the ten most frequent categories.
func (s *Service) CategoryDistribution(ctx context.Context, userID string, f Filter) ([]models.LabelCount, error) {
	return run(ctx, s, OpCategoryDistribution, userID, f, s.categorical(FieldCategory))
}

func (s *Service) categorical(field string) computeFunc[[]models.LabelCount] {
	return func(ctx context.Context, _ Filter, q Query) ([]models.LabelCount, error) {
		chain := CategoricalChain(field)
		tally, err := chain.Run(ctx, s.exec, q)
		if err != nil {
			return nil, err
		}
		s.metrics.tier(field, tally.Tier)
		if tally.Tier != "" && tally.Tier != chain.Strategies[0].Name() {
			s.log.Info("fallback tier supplied data", slog.String("field", field), slog.String("tier", tally.Tier))
		}
		return tally.LabelCounts(), nil
	}
}

// SentimentEmotionCorrelation cross-tabulates emotions against sentiment.
func (s *Service) SentimentEmotionCorrelation(ctx context.Context, userID string, f Filter) ([]models.SentimentEmotion, error) {
	return run(ctx, s, OpCorrelation, userID, f, func(ctx context.Context, _ Filter, q Query) ([]models.SentimentEmotion, error) {
		docs, err := s.fetchDocuments(ctx, q, MaxCorrelationFetch, "annotate.sentiment", "annotate.emotion")
		if err != nil {
			return nil, err
		}
		return Correlate(docs), nil
	})
}

// Correlate builds one row per emotion in first-seen order. Documents with an
// empty or unknown emotion are skipped; a missing sentiment counts as neutral.
func Correlate(docs []models.NewsDocument) []models.SentimentEmotion {
	rows := []models.SentimentEmotion{}
	index := map[string]int{}
	for _, doc := range docs {
		emotion := strings.TrimSpace(doc.Annotate.EmotionLabel())
		if emotion == "" || strings.EqualFold(emotion, "unknown") {
			continue
		}
		i, ok := index[emotion]
		if !ok {
			i = len(rows)
			index[emotion] = i
			rows = append(rows, models.SentimentEmotion{Emotion: emotion})
		}

		row := &rows[i]
		row.Total++
		label := strings.TrimSpace(doc.Annotate.SentimentLabel())
		if label == "" {
			row.Neutral++
			continue
		}
		switch c, _ := CanonicalSentiment(label); c {
		case SentimentPositive:
			row.Positive++
		case SentimentNegative:
			row.Negative++
		case SentimentNeutral:
			row.Neutral++
		}
	}
	return rows
}

// TrendingTopics ranks the most frequent content words.
func (s *Service) TrendingTopics(ctx context.Context, userID string, f Filter) ([]models.WordCloudItem, error) {
	return run(ctx, s, OpTrendingTopics, userID, f, func(ctx context.Context, _ Filter, q Query) ([]models.WordCloudItem, error) {
		texts, err := s.fetchTexts(ctx, q)
		if err != nil {
			return nil, err
		}
		return s.tokenizer.RankWords(texts, processing.TrendingTopicsSize), nil
	})
}

// SentimentBreakdown returns the three sentiment counts with percentages.
func (s *Service) SentimentBreakdown(ctx context.Context, userID string, f Filter) (models.SentimentBreakdown, error) {
	return run(ctx, s, OpSentimentBreakdown, userID, f, func(ctx context.Context, _ Filter, q Query) (models.SentimentBreakdown, error) {
		_, d, err := s.sentiments(ctx, q)
		if err != nil {
			return models.SentimentBreakdown{}, err
		}
		return models.SentimentBreakdown{SentimentDistribution: d, Items: BreakdownItems(d)}, nil
	})
}

// EmotionBreakdown returns the emotion labels with percentages.
func (s *Service) EmotionBreakdown(ctx context.Context, userID string, f Filter) ([]models.LabelCount, error) {
	return run(ctx, s, OpEmotionBreakdown, userID, f, func(ctx context.Context, _ Filter, q Query) ([]models.LabelCount, error) {
		return s.emotions(ctx, q, MinTermsSize)
	})
}

func (s *Service) emotions(ctx context.Context, q Query, size int) ([]models.LabelCount, error) {
	res, err := s.exec.Aggregate(ctx, q, map[string]any{"emotions": TermsAgg(FieldEmotion, size)})
	if err != nil {
		return nil, err
	}
	buckets, err := res.Buckets("emotions")
	if err != nil {
		return nil, err
	}
	return LabelCounts(buckets), nil
}

// SentimentTimeSeries returns the three sentiment counts per calendar bucket.
func (s *Service) SentimentTimeSeries(ctx context.Context, userID string, f Filter) ([]models.SentimentTimePoint, error) {
	return run(ctx, s, OpSentimentTimeSeries, userID, f, s.sentimentTimeSeries)
}

func (s *Service) sentimentTimeSeries(ctx context.Context, f Filter, q Query) ([]models.SentimentTimePoint, error) {
	sub := map[string]any{"sentiments": TermsAgg(FieldSentiment, MinTermsSize)}
	res, err := s.exec.Aggregate(ctx, q, map[string]any{"series": DateHistogram(FieldExtractedAt, f, sub)})
	if err != nil {
		return nil, err
	}
	buckets, err := res.Buckets("series")
	if err != nil {
		return nil, err
	}
	return FillSentimentSeries(CalendarGrid(f), buckets, "sentiments")
}

func (s *Service) fetchDocuments(ctx context.Context, q Query, size int, fields ...string) ([]models.NewsDocument, error) {
	res, err := s.exec.Fetch(ctx, q, size, fields)
	if err != nil {
		return nil, err
	}
	return res.Documents()
}

func (s *Service) fetchTexts(ctx context.Context, q Query) ([]string, error) {
	docs, err := s.fetchDocuments(ctx, q, MaxFetch, "title", "description", "content")
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		texts = append(texts, doc.Text())
	}
	return texts, nil
}
