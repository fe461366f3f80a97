package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var turkishFolder = strings.NewReplacer(
	"ı", "i",
	"ğ", "g",
	"ü", "u",
	"ş", "s",
	"ö", "o",
	"ç", "c",
)

// NormalizeForMatching lowercases and ASCII-folds text for fuzzy
// filename and keyword matching. This is deliberately NOT the BM25
// tokenization path: BM25 token identity preserves diacritics, while
// matching heuristics want "Müşteri" and "musteri" to collide.
func NormalizeForMatching(text string) string {
	text = strings.ToLower(text)
	text = turkishFolder.Replace(text)

	decomposed := norm.NFD.String(text)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// matchWords extracts word tokens of at least minLen runes from
// normalized text
func matchWords(normalized string, minLen int) map[string]struct{} {
	words := make(map[string]struct{})
	start := -1
	runes := 0
	flush := func(end int) {
		if start >= 0 && runes >= minLen {
			words[normalized[start:end]] = struct{}{}
		}
		start = -1
		runes = 0
	}
	for i, r := range normalized {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			if start < 0 {
				start = i
			}
			runes++
			continue
		}
		flush(i)
	}
	flush(len(normalized))
	return words
}

// FilenameMatchScore measures lexical overlap between a query and a
// filename. Query words of three or more characters are matched
// against the filename's words (extension stripped); the score is the
// matched fraction of query words. An exact substring match of the
// whole normalized query inside the filename scores 2.0 outright.
func FilenameMatchScore(query, filename string) float64 {
	normalizedQuery := NormalizeForMatching(query)

	base := filename
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	normalizedFilename := NormalizeForMatching(base)

	queryWords := matchWords(normalizedQuery, 3)
	filenameWords := matchWords(normalizedFilename, 1)
	if len(queryWords) == 0 || len(filenameWords) == 0 {
		return 0.0
	}

	if strings.Contains(normalizedFilename, normalizedQuery) {
		return 2.0
	}

	matched := 0
	for w := range queryWords {
		if _, ok := filenameWords[w]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryWords))
}
