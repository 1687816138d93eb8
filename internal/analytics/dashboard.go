package analytics

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/DeafMist/news-analytics/backend/internal/models"
	"github.com/DeafMist/news-analytics/backend/internal/processing"
)

// dashboardEmotionSize is the emotion list length on the combined dashboard.
const dashboardEmotionSize = 20

// Dashboard computes every dashboard panel concurrently. The first failing
// panel cancels the rest and fails the whole request.
func (s *Service) Dashboard(ctx context.Context, userID string, f Filter) (models.Dashboard, error) {
	return run(ctx, s, OpDashboard, userID, f, s.dashboard)
}

func (s *Service) dashboard(ctx context.Context, f Filter, q Query) (models.Dashboard, error) {
	var (
		d      models.Dashboard
		series []models.SentimentTimePoint
		texts  []string
	)

	g, gctx := errgroup.WithContext(ctx)
	panel := func(fn func() error) {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return fn()
		})
	}
	panel(func() error {
		total, dist, err := s.sentiments(gctx, q)
		if err != nil {
			return err
		}
		d.Summary = models.SummaryCard{
			TotalNews:     total,
			TotalPositive: dist.Positive,
			TotalNegative: dist.Negative,
			TotalNeutral:  dist.Neutral,
		}
		d.SentimentDistribution = dist
		return nil
	})
	panel(func() (err error) {
		d.TimeSeries, err = s.volumeTrends(gctx, f, q)
		return err
	})
	panel(func() (err error) {
		d.Emotions, err = s.emotions(gctx, q, dashboardEmotionSize)
		return err
	})
	panel(func() (err error) {
		series, err = s.sentimentTimeSeries(gctx, f, q)
		return err
	})
	panel(func() (err error) {
		texts, err = s.fetchTexts(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Dashboard{}, err
	}

	d.SentimentTimeSeries = SplitSentimentSeries(series)
	d.EmojiWordCloud = processing.RankEmoji(texts, processing.EmojiCloudSize)
	d.TextWordCloud = s.tokenizer.RankWords(texts, processing.WordCloudSize)
	return d, nil
}
