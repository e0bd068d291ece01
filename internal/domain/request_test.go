package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestSpec_CacheKey(t *testing.T) {
	t.Run("identical specs produce identical keys", func(t *testing.T) {
		a := RequestSpec{
			Source:    SourceTypePubMed,
			Operation: OperationSearch,
			Query:     "CRISPR gene editing",
			Limit:     20,
		}
		b := RequestSpec{
			Limit:     20,
			Query:     "CRISPR gene editing",
			Operation: OperationSearch,
			Source:    SourceTypePubMed,
		}
		assert.Equal(t, a.CacheKey(), b.CacheKey())
	})

	t.Run("filter insertion order does not change the key", func(t *testing.T) {
		a := RequestSpec{
			Source:    SourceTypeCrossRef,
			Operation: OperationSearch,
			Query:     "deep learning",
		}
		a.Filters = map[string]string{}
		a.Filters["date_from"] = "2020-01-01"
		a.Filters["date_to"] = "2023-12-31"
		a.Filters["field"] = "title"

		b := RequestSpec{
			Source:    SourceTypeCrossRef,
			Operation: OperationSearch,
			Query:     "deep learning",
		}
		b.Filters = map[string]string{}
		b.Filters["field"] = "title"
		b.Filters["date_to"] = "2023-12-31"
		b.Filters["date_from"] = "2020-01-01"

		assert.Equal(t, a.CacheKey(), b.CacheKey())
	})

	t.Run("values containing separators cannot forge other fields", func(t *testing.T) {
		crafted := RequestSpec{
			Source:    SourceTypePubMed,
			Operation: OperationSearch,
			Query:     "sepsis",
			Filters:   map[string]string{"date_from": "2023-01-01&f:date_to=2023-12-31"},
		}
		plain := RequestSpec{
			Source:    SourceTypePubMed,
			Operation: OperationSearch,
			Query:     "sepsis",
			Filters:   map[string]string{"date_from": "2023-01-01", "date_to": "2023-12-31"},
		}
		assert.NotEqual(t, crafted.CacheKey(), plain.CacheKey())

		queryForgery := RequestSpec{
			Source:    SourceTypePubMed,
			Operation: OperationFetch,
			Query:     "x&id=39775738",
		}
		separateID := RequestSpec{
			Source:    SourceTypePubMed,
			Operation: OperationFetch,
			Query:     "x",
			ID:        "39775738",
		}
		assert.NotEqual(t, queryForgery.CacheKey(), separateID.CacheKey())
	})

	t.Run("different specs produce different keys", func(t *testing.T) {
		base := RequestSpec{
			Source:    SourceTypePubMed,
			Operation: OperationFetch,
			ID:        "39775738",
		}

		variants := []RequestSpec{
			{Source: SourceTypeArXiv, Operation: OperationFetch, ID: "39775738"},
			{Source: SourceTypePubMed, Operation: OperationMetadata, ID: "39775738"},
			{Source: SourceTypePubMed, Operation: OperationFetch, ID: "12345678"},
			{Source: SourceTypePubMed, Operation: OperationFetch, ID: "39775738", Offset: 10},
			{Source: SourceTypePubMed, Operation: OperationFetch, ID: "39775738",
				Filters: map[string]string{"field": "title"}},
		}

		seen := map[string]bool{base.CacheKey(): true}
		for _, v := range variants {
			key := v.CacheKey()
			assert.False(t, seen[key], "spec %+v collided with an earlier key", v)
			seen[key] = true
		}
	})
}

func TestRequestSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    RequestSpec
		wantErr bool
	}{
		{
			name: "valid search",
			spec: RequestSpec{Source: SourceTypePubMed, Operation: OperationSearch, Query: "sepsis"},
		},
		{
			name: "valid fetch",
			spec: RequestSpec{Source: SourceTypeArXiv, Operation: OperationFetch, ID: "2301.07041"},
		},
		{
			name:    "unknown source",
			spec:    RequestSpec{Source: "scholar", Operation: OperationSearch, Query: "x"},
			wantErr: true,
		},
		{
			name:    "unknown operation",
			spec:    RequestSpec{Source: SourceTypePubMed, Operation: "download", ID: "1"},
			wantErr: true,
		},
		{
			name:    "search without query",
			spec:    RequestSpec{Source: SourceTypePubMed, Operation: OperationSearch},
			wantErr: true,
		},
		{
			name:    "fetch without id",
			spec:    RequestSpec{Source: SourceTypePubMed, Operation: OperationFetch},
			wantErr: true,
		},
		{
			name:    "negative offset",
			spec:    RequestSpec{Source: SourceTypePubMed, Operation: OperationSearch, Query: "x", Offset: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestParseSourceType(t *testing.T) {
	st, ok := ParseSourceType("  PubMed ")
	require.True(t, ok)
	assert.Equal(t, SourceTypePubMed, st)

	_, ok = ParseSourceType("googlescholar")
	assert.False(t, ok)
}

func TestParseOperation(t *testing.T) {
	op, ok := ParseOperation("SEARCH")
	require.True(t, ok)
	assert.Equal(t, OperationSearch, op)

	_, ok = ParseOperation("delete")
	assert.False(t, ok)
}
