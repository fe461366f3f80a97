package search

import (
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// QueryClass is the tagged classification driving candidate caps and
// minimum-output guarantees across reranking and assembly.
type QueryClass int

const (
	ClassDefault QueryClass = iota
	ClassListIntent
	ClassCompanyAndDocType
	ClassCompanyOnly
	ClassCountIntent
)

func (c QueryClass) String() string {
	switch c {
	case ClassListIntent:
		return "list_intent"
	case ClassCompanyAndDocType:
		return "company_and_doctype"
	case ClassCompanyOnly:
		return "company_only"
	case ClassCountIntent:
		return "count_intent"
	default:
		return "default"
	}
}

// ListKind refines list-intent queries: supplier lists and name lists
// need larger output floors than generic lists.
type ListKind int

const (
	ListGeneral ListKind = iota
	ListSupplier
	ListNames
)

// Classification is the classifier's verdict for one query
type Classification struct {
	Class    QueryClass
	ListKind ListKind
}

// Patterns operate on normalized (lowercased, diacritic-folded) text.
var (
	listPatterns = []*regexp.Regexp{
		regexp.MustCompile(`liste`),
		regexp.MustCompile(`kimlere`),
		regexp.MustCompile(`kime`),
		regexp.MustCompile(`hangi`),
		regexp.MustCompile(`firmalar`),
		regexp.MustCompile(`musteriler`),
		regexp.MustCompile(`kisiler`),
		regexp.MustCompile(`prosedurler`),
		regexp.MustCompile(`isimleri`),
		regexp.MustCompile(`isimler`),
		regexp.MustCompile(`kimler`),
		regexp.MustCompile(`hangi.*isim`),
		regexp.MustCompile(`hangi.*aday`),
		regexp.MustCompile(`hangi.*kisi`),
		regexp.MustCompile(`nedir.*isim`),
		regexp.MustCompile(`nedir.*kimler`),
	}

	nameListPatterns = []*regexp.Regexp{
		regexp.MustCompile(`isimleri`),
		regexp.MustCompile(`isimler`),
		regexp.MustCompile(`kimler`),
		regexp.MustCompile(`hangi.*aday`),
		regexp.MustCompile(`hangi.*kisi`),
		regexp.MustCompile(`nedir.*isim`),
	}

	companyWords = []string{
		"firma", "sirket", "tedarikci", "musteri",
		"supplier", "vendor", "company", "client", "customer",
	}

	docTypeWords = []string{
		"teklif", "sozlesme", "fatura", "po", "purchase order",
		"offer", "invoice", "contract",
	}

	countWords = []string{
		"kac", "toplam", "adet", "sayi", "count", "total", "how many",
	}
)

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func containsAny(words []string, text string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// Classifier derives the QueryClass from keyword heuristics. Verdicts
// are cached by normalized query since classification runs several
// times per request (sizing, assembly, champion gating).
type Classifier struct {
	cache *lru.Cache[string, Classification]
}

// NewClassifier creates a Classifier with the given cache size
func NewClassifier(cacheSize int) *Classifier {
	if cacheSize <= 0 {
		cacheSize = 128
	}
	cache, _ := lru.New[string, Classification](cacheSize)
	return &Classifier{cache: cache}
}

// Classify returns the tagged class for a query
func (c *Classifier) Classify(query string) Classification {
	normalized := NormalizeForMatching(query)

	if cached, ok := c.cache.Get(normalized); ok {
		return cached
	}

	result := classify(normalized)
	c.cache.Add(normalized, result)
	return result
}

// classify is the pure classification over normalized text. Order
// matters: list intent outranks company signals, which outrank count.
func classify(normalized string) Classification {
	hasCompany := containsAny(companyWords, normalized)

	if matchesAny(listPatterns, normalized) {
		kind := ListGeneral
		switch {
		case hasCompany:
			kind = ListSupplier
		case matchesAny(nameListPatterns, normalized):
			kind = ListNames
		}
		return Classification{Class: ClassListIntent, ListKind: kind}
	}

	hasDocType := containsAny(docTypeWords, normalized)
	if hasCompany && hasDocType {
		return Classification{Class: ClassCompanyAndDocType}
	}
	if hasCompany {
		return Classification{Class: ClassCompanyOnly}
	}

	if containsAny(countWords, normalized) {
		return Classification{Class: ClassCountIntent}
	}

	return Classification{Class: ClassDefault}
}
