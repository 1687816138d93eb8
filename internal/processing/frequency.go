package processing

import (
	"sort"

	"github.com/DeafMist/news-analytics/backend/internal/models"
)

// Word-cloud sizes per output kind.
const (
	EmojiCloudSize     = 50
	WordCloudSize      = 100
	TrendingTopicsSize = 50
)

// Entry is a ranked key.
type Entry struct {
	Key   string
	Count int64
}

// Counter counts occurrences and remembers first-seen order for tie-breaking.
type Counter struct {
	counts map[string]int64
	order  []string
}

// NewCounter creates an empty counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int64)}
}

// Add counts each item once.
func (c *Counter) Add(items ...string) {
	for _, item := range items {
		c.AddN(item, 1)
	}
}

// AddN adds n occurrences of item.
func (c *Counter) AddN(item string, n int64) {
	if _, ok := c.counts[item]; !ok {
		c.order = append(c.order, item)
	}
	c.counts[item] += n
}

// Count returns the occurrences of item.
func (c *Counter) Count(item string) int64 {
	return c.counts[item]
}

// Len returns the number of distinct keys.
func (c *Counter) Len() int {
	return len(c.order)
}

// Top returns the k most frequent keys; equal counts keep first-seen order.
// k <= 0 returns every key.
func (c *Counter) Top(k int) []Entry {
	entries := make([]Entry, 0, len(c.order))
	for _, key := range c.order {
		entries = append(entries, Entry{Key: key, Count: c.counts[key]})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})

	if k > 0 && len(entries) > k {
		entries = entries[:k]
	}
	return entries
}

// WordCloud converts ranked entries into word-cloud items.
func WordCloud(entries []Entry) []models.WordCloudItem {
	items := make([]models.WordCloudItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, models.WordCloudItem{Text: e.Key, Value: e.Count})
	}
	return items
}

// RankWords tokenizes every text and returns the top k words.
func (t *Tokenizer) RankWords(texts []string, k int) []models.WordCloudItem {
	c := NewCounter()
	for _, text := range texts {
		c.Add(t.Tokenize(text)...)
	}
	return WordCloud(c.Top(k))
}

// RankEmoji returns the top k emoji across texts.
func RankEmoji(texts []string, k int) []models.WordCloudItem {
	c := NewCounter()
	for _, text := range texts {
		c.Add(ExtractEmoji(text)...)
	}
	return WordCloud(c.Top(k))
}
