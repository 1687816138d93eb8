package models

// SummaryCard carries the headline counters of a dashboard.
type SummaryCard struct {
	TotalNews     int64 `json:"total_news"`
	TotalPositive int64 `json:"total_positive"`
	TotalNegative int64 `json:"total_negative"`
	TotalNeutral  int64 `json:"total_neutral"`
}

// TimeSeriesPoint is one calendar bucket.
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// SentimentDistribution always carries all three sentiment classes.
type SentimentDistribution struct {
	Positive int64 `json:"positive"`
	Negative int64 `json:"negative"`
	Neutral  int64 `json:"neutral"`
}

// Total sums the three classes.
func (d SentimentDistribution) Total() int64 {
	return d.Positive + d.Negative + d.Neutral
}

// SentimentBreakdown adds percentages to the distribution.
type SentimentBreakdown struct {
	SentimentDistribution
	Items []LabelCount `json:"items"`
}

// SentimentTimePoint is one calendar bucket split by sentiment.
type SentimentTimePoint struct {
	Date     string `json:"date"`
	Positive int64  `json:"positive"`
	Negative int64  `json:"negative"`
	Neutral  int64  `json:"neutral"`
}

// LabelCount is a categorical bucket with its share of the total.
type LabelCount struct {
	Label      string  `json:"label"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// SentimentEmotion is one row of the sentiment x emotion cross-tabulation.
type SentimentEmotion struct {
	Emotion  string `json:"emotion"`
	Positive int64  `json:"positive"`
	Negative int64  `json:"negative"`
	Neutral  int64  `json:"neutral"`
	Total    int64  `json:"total"`
}

// NamedEntity is an entity with its document frequency.
type NamedEntity struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
	Type  string `json:"type"`
}

// NERCategory groups the most frequent entities by class.
type NERCategory struct {
	Organizations []NamedEntity `json:"organizations"`
	People        []NamedEntity `json:"people"`
	Locations     []NamedEntity `json:"locations"`
}

// WordCloudItem is a ranked token.
type WordCloudItem struct {
	Text  string `json:"text"`
	Value int64  `json:"value"`
}

// EntityNode is a vertex of the co-occurrence network.
type EntityNode struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Degree int64  `json:"degree"`
	Weight int64  `json:"weight"`
	Group  string `json:"group,omitempty"`
}

// EntityEdge links two entities; Source <= Target.
type EntityEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Value  int64  `json:"value"`
}

// EntityNetwork is the truncated co-occurrence graph.
type EntityNetwork struct {
	Nodes []EntityNode `json:"nodes"`
	Edges []EntityEdge `json:"edges"`
}

// SentimentSeries holds one series per sentiment class.
type SentimentSeries struct {
	Positive []TimeSeriesPoint `json:"positive"`
	Negative []TimeSeriesPoint `json:"negative"`
	Neutral  []TimeSeriesPoint `json:"neutral"`
}

// Dashboard is the combined analytics payload.
type Dashboard struct {
	Summary               SummaryCard           `json:"summary"`
	TimeSeries            []TimeSeriesPoint     `json:"time_series"`
	SentimentDistribution SentimentDistribution `json:"sentiment_distribution"`
	Emotions              []LabelCount          `json:"emotions"`
	SentimentTimeSeries   SentimentSeries       `json:"sentiment_time_series"`
	EmojiWordCloud        []WordCloudItem       `json:"emoji_wordcloud"`
	TextWordCloud         []WordCloudItem       `json:"text_wordcloud"`
}

// Article is one search hit flattened for display.
type Article struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Content        string  `json:"content,omitempty"`
	Source         string  `json:"source"`
	URL            string  `json:"url"`
	Author         string  `json:"author,omitempty"`
	PublishDate    string  `json:"publish_date,omitempty"`
	ExtractedAt    string  `json:"extracted_at,omitempty"`
	Sentiment      string  `json:"sentiment,omitempty"`
	SentimentScore float64 `json:"sentiment_score,omitempty"`
	Emotion        string  `json:"emotion,omitempty"`
	EmotionScore   float64 `json:"emotion_score,omitempty"`
}

// NewArticle flattens a stored document.
func NewArticle(doc NewsDocument) Article {
	a := Article{
		ID:          doc.ID,
		Title:       doc.Title,
		Content:     doc.Content,
		URL:         doc.URL,
		Author:      doc.Author,
		PublishDate: doc.PublishDate,
		ExtractedAt: doc.ExtractedAt,
	}
	if labels := doc.Source.Labels("source"); len(labels) > 0 {
		a.Source = labels[0]
	}
	if doc.Annotate != nil {
		if s := doc.Annotate.Sentiment; s != nil {
			a.Sentiment, a.SentimentScore = s.Label, s.Score
		}
		if e := doc.Annotate.Emotion; e != nil {
			a.Emotion, a.EmotionScore = e.Label, e.Score
		}
	}
	return a
}

// SearchPage is one page of matching articles.
type SearchPage struct {
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int64     `json:"total_pages"`
	Items      []Article `json:"items"`
	Keywords   []string  `json:"keywords,omitempty"`
	Operator   string    `json:"keyword_operator,omitempty"`
}

// SourceList is the distinct set of sources in the index.
type SourceList struct {
	Sources []string `json:"sources"`
	Total   int      `json:"total"`
}
