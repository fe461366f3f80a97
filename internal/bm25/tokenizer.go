// Package bm25 provides the sparse retrieval channel: an in-memory
// Bleve index over chunk text with a cache keyed by tenant and file
// filter, rebuilt on demand and invalidated on re-index or delete.
package bm25

import (
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
)

// Tokenize lowercases text and extracts word-boundary tokens. Diacritics
// are preserved: BM25 token identity must match exactly across Turkish
// text, so "fatura" and "faturası" stay distinct and no ASCII folding
// is applied.
func Tokenize(text string) []string {
	raw := scanWords(text)
	tokens := make([]string, len(raw))
	for i, w := range raw {
		tokens[i] = strings.ToLower(w.term)
	}
	return tokens
}

type word struct {
	term  string
	start int
	end   int
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// scanWords extracts word runs with byte offsets into the original text
func scanWords(text string) []word {
	var words []word
	start := -1
	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			words = append(words, word{term: text[start:i], start: start, end: i})
			start = -1
		}
	}
	if start >= 0 {
		words = append(words, word{term: text[start:], start: start, end: len(text)})
	}
	return words
}

// wordTokenizer implements analysis.Tokenizer over scanWords. Case
// normalization is left to the lowercase token filter in the analyzer
// chain so offsets stay byte-accurate.
type wordTokenizer struct{}

// Tokenize implements analysis.Tokenizer.
func (t *wordTokenizer) Tokenize(input []byte) analysis.TokenStream {
	words := scanWords(string(input))

	result := make(analysis.TokenStream, 0, len(words))
	for i, w := range words {
		result = append(result, &analysis.Token{
			Term:     []byte(w.term),
			Start:    w.start,
			End:      w.end,
			Position: i + 1,
			Type:     analysis.AlphaNumeric,
		})
	}
	return result
}
