package keyword

import (
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
)

// hangulStemFilter approximates morphological filtering for Korean
// tokens: conjugational endings and case particles are stripped so
// that content stems remain, and numeric tokens are dropped. Latin
// and ideographic tokens pass through unchanged.
type hangulStemFilter struct{}

func newHangulStemFilter() *hangulStemFilter { return &hangulStemFilter{} }

// Verbal/adjectival endings, longest first. Stripped whenever at least
// one rune of stem remains.
var verbalEndings = []string{
	"되었습니다", "하였습니다",
	"했습니다", "됐습니다", "있습니다", "없습니다", "입니다", "합니다", "됩니다", "습니다",
	"해주세요", "하세요", "됩니까", "합니까",
	"하는지", "되는지", "는지",
	"했어요", "됐어요", "어요", "아요", "에요", "예요", "해요",
	"하고", "되고", "해서", "되어", "하여", "하면", "되면",
}

// Single- and double-rune case particles. Stripped only when the stem
// keeps at least two runes, so short nouns that happen to end in a
// particle character survive (e.g. 문의, 불가).
var caseParticles = []string{
	"에서", "에게", "으로", "까지", "부터", "처럼", "한테", "이나", "이랑", "께서", "보다", "마다",
	"이", "가", "은", "는", "을", "를", "의", "에", "와", "과", "도", "만", "로", "나", "랑",
}

func (f *hangulStemFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	out := input[:0]
	for _, tok := range input {
		if tok.Type == analysis.Numeric || tok.Type == analysis.DateTime {
			continue
		}
		if containsHangul(tok.Term) {
			tok.Term = stripEndings(tok.Term)
			if len(tok.Term) == 0 {
				continue
			}
		}
		out = append(out, tok)
	}
	return out
}

func stripEndings(term []byte) []byte {
	s := string(term)
	for _, suffix := range verbalEndings {
		if stem, ok := cutSuffix(s, suffix, 1); ok {
			return []byte(stem)
		}
	}
	for _, suffix := range caseParticles {
		if stem, ok := cutSuffix(s, suffix, 2); ok {
			return []byte(stem)
		}
	}
	return term
}

// cutSuffix removes suffix from s when the remaining stem has at least
// minStemRunes runes.
func cutSuffix(s, suffix string, minStemRunes int) (string, bool) {
	if len(s) <= len(suffix) || s[len(s)-len(suffix):] != suffix {
		return s, false
	}
	stem := s[:len(s)-len(suffix)]
	if utf8.RuneCountInString(stem) < minStemRunes {
		return s, false
	}
	return stem, true
}

func containsHangul(term []byte) bool {
	for _, r := range string(term) {
		if unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}
