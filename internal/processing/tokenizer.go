package processing

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MinTokenRunes is the shortest token kept; anything of this length or less is dropped.
const MinTokenRunes = 3

var (
	urlRegex     = regexp.MustCompile(`(?:\b[a-z][a-z0-9+.\-]*://|\bwww\.)\S+`)
	mentionRegex = regexp.MustCompile(`[@#][\p{L}\p{N}_]+`)
	punctuation  = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)
	digits       = regexp.MustCompile(`\p{Nd}+`)
)

// Tokenizer turns free text into word-cloud tokens.
type Tokenizer struct {
	stopwords map[string]struct{}
}

// NewTokenizer creates a tokenizer with the default stopword set plus extra words.
func NewTokenizer(extra ...string) *Tokenizer {
	stops := make(map[string]struct{}, len(DefaultStopwords)+len(extra))
	for _, w := range DefaultStopwords {
		stops[w] = struct{}{}
	}
	for _, w := range extra {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			stops[w] = struct{}{}
		}
	}
	return &Tokenizer{stopwords: stops}
}

// IsStopword reports whether the lowercased word is filtered.
func (t *Tokenizer) IsStopword(word string) bool {
	_, ok := t.stopwords[word]
	return ok
}

// RemoveURLs replaces scheme-prefixed and www.-prefixed tokens with a space.
func RemoveURLs(input string) string {
	return urlRegex.ReplaceAllString(input, " ")
}

// Normalize lowercases the text and strips URLs, mentions, hashtags,
// punctuation and digit runs.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToLower(norm.NFC.String(text))
	text = RemoveURLs(text)
	text = mentionRegex.ReplaceAllString(text, " ")
	text = punctuation.ReplaceAllString(text, " ")
	text = digits.ReplaceAllString(text, "")
	return text
}

// Tokenize splits normalized text and drops short tokens and stopwords.
func (t *Tokenizer) Tokenize(text string) []string {
	fields := strings.Fields(Normalize(text))
	if len(fields) == 0 {
		return nil
	}

	tokens := fields[:0]
	for _, w := range fields {
		if utf8.RuneCountInString(w) <= MinTokenRunes {
			continue
		}
		if t.IsStopword(w) {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}
