// Package keyword extracts keyword tokens from mixed Korean/English
// case text for the similarity model and tag learning.
package keyword

import (
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/length"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// Tokens shorter than this are dropped as noise.
const minTokenLen = 2

// Extractor turns free text into an ordered, deduplicated keyword list.
// The chain keeps content words (noun/verb/adjective stems, foreign
// words, ideographs) and discards particles, verbal endings, numerals
// and filler words.
type Extractor struct {
	tokenizer analysis.Tokenizer
	filters   []analysis.TokenFilter
}

// NewExtractor builds the default analysis chain.
func NewExtractor() *Extractor {
	return &Extractor{
		tokenizer: unicode.NewUnicodeTokenizer(),
		filters: []analysis.TokenFilter{
			newHangulStemFilter(),
			stop.NewStopTokensFilter(fillerWords()),
			length.NewLengthFilter(minTokenLen, 128),
		},
	}
}

// Extract returns keywords in first-occurrence order. Deduplication is
// case-insensitive but the first surface form is retained. Empty or
// whitespace-only input yields an empty list.
func (e *Extractor) Extract(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	stream := e.tokenizer.Tokenize([]byte(text))
	for _, f := range e.filters {
		stream = f.Filter(stream)
	}

	seen := make(map[string]struct{}, len(stream))
	keywords := make([]string, 0, len(stream))
	for _, tok := range stream {
		form := string(tok.Term)
		lower := strings.ToLower(form)
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		keywords = append(keywords, form)
	}
	return keywords
}

// ExtractJoined returns the keywords joined by single spaces, the form
// the vector space model consumes.
func (e *Extractor) ExtractJoined(text string) string {
	return strings.Join(e.Extract(text), " ")
}

// fillerWords lists Korean function/filler words that carry no signal
// but survive stemming as standalone tokens.
func fillerWords() analysis.TokenMap {
	words := []string{
		"그리고", "그러나", "하지만", "그래서", "또한", "그런데",
		"있는", "없는", "같은", "대한", "관련", "해당",
		"안녕하세요", "감사합니다", "부탁드립니다",
	}
	tm := analysis.NewTokenMap()
	for _, w := range words {
		tm.AddToken(w)
	}
	return tm
}
