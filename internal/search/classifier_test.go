package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		class    QueryClass
		listKind ListKind
	}{
		{
			name:  "plain question defaults",
			query: "ödeme vadesi ne zaman",
			class: ClassDefault,
		},
		{
			name:     "list keyword",
			query:    "prosedürlerin listesi",
			class:    ClassListIntent,
			listKind: ListGeneral,
		},
		{
			name:     "name list",
			query:    "mülakata giren adayların isimleri",
			class:    ClassListIntent,
			listKind: ListNames,
		},
		{
			name:     "supplier list when list and company signals combine",
			query:    "hangi firmalarla çalışıyoruz",
			class:    ClassListIntent,
			listKind: ListSupplier,
		},
		{
			name:  "company plus document type",
			query: "ACME firmasının teklif tutarı kaç TL",
			class: ClassCompanyAndDocType,
		},
		{
			name:  "company only",
			query: "tedarikçi ile yapılan son görüşme",
			class: ClassCompanyOnly,
		},
		{
			name:  "count intent",
			query: "kaç sipariş verdik",
			class: ClassCountIntent,
		},
		{
			name:     "list outranks count",
			query:    "kaç firma var, firmaların listesi nedir",
			class:    ClassListIntent,
			listKind: ListSupplier,
		},
		{
			name:  "english company and doctype",
			query: "what is the total on the supplier invoice",
			class: ClassCompanyAndDocType,
		},
		{
			name:  "english count",
			query: "how many orders were placed",
			class: ClassCountIntent,
		},
	}

	c := NewClassifier(16)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.query)
			assert.Equal(t, tt.class, got.Class)
			assert.Equal(t, tt.listKind, got.ListKind)
		})
	}
}

func TestClassifyCachesByNormalizedQuery(t *testing.T) {
	c := NewClassifier(16)

	first := c.Classify("Hangi FİRMALAR ile çalışıyoruz")
	second := c.Classify("hangi firmalar ile calisiyoruz")
	assert.Equal(t, first, second)
	assert.Equal(t, ClassListIntent, second.Class)
}

func TestBudgetFor(t *testing.T) {
	tests := []struct {
		name     string
		cls      Classification
		expected Budget
	}{
		{
			name: "default",
			cls:  Classification{Class: ClassDefault},
			expected: Budget{
				PoolCap: 150, MinOutput: 20, AssembleCap: 100,
				ParseFallback: 20, CrossEncoderTopK: 50,
			},
		},
		{
			name: "supplier list gets the deepest floor",
			cls:  Classification{Class: ClassListIntent, ListKind: ListSupplier},
			expected: Budget{
				PoolCap: 300, MinOutput: 250, AssembleCap: 300,
				ParseFallback: 100, CrossEncoderTopK: 200,
			},
		},
		{
			name: "name list",
			cls:  Classification{Class: ClassListIntent, ListKind: ListNames},
			expected: Budget{
				PoolCap: 300, MinOutput: 150, AssembleCap: 250,
				ParseFallback: 100, CrossEncoderTopK: 200,
			},
		},
		{
			name: "general list",
			cls:  Classification{Class: ClassListIntent, ListKind: ListGeneral},
			expected: Budget{
				PoolCap: 300, MinOutput: 120, AssembleCap: 200,
				ParseFallback: 100, CrossEncoderTopK: 200,
			},
		},
		{
			name: "company and doctype",
			cls:  Classification{Class: ClassCompanyAndDocType},
			expected: Budget{
				PoolCap: 200, MinOutput: 50, AssembleCap: 80,
				ParseFallback: 50, CrossEncoderTopK: 50,
			},
		},
		{
			name: "count",
			cls:  Classification{Class: ClassCountIntent},
			expected: Budget{
				PoolCap: 150, MinOutput: 50, AssembleCap: 150,
				ParseFallback: 20, CrossEncoderTopK: 50,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BudgetFor(tt.cls))
		})
	}
}
