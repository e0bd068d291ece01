package entrez

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scidex/scifetch/internal/domain"
)

func TestIsRateLimitBody(t *testing.T) {
	assert.True(t, IsRateLimitBody([]byte(`{"error":"API rate limit exceeded","api-key":"203.0.113.5","count":"11"}`)))
	assert.False(t, IsRateLimitBody([]byte(`{"esearchresult":{"count":"2"}}`)))
	assert.False(t, IsRateLimitBody(nil))
}

func TestParamsValues(t *testing.T) {
	q := Params{DB: "pubmed", APIKey: "secret", RetMode: "json"}.Values()
	assert.Equal(t, "pubmed", q.Get("db"))
	assert.Equal(t, "json", q.Get("retmode"))
	assert.Equal(t, "secret", q.Get("api_key"))

	q = Params{DB: "medgen"}.Values()
	assert.Equal(t, "medgen", q.Get("db"))
	assert.False(t, q.Has("retmode"))
	assert.False(t, q.Has("api_key"))
}

func TestEndpointURL(t *testing.T) {
	q := Params{DB: "pubmed"}.Values()
	q.Set("term", "CRISPR gene editing")

	u, err := EndpointURL(DefaultBaseURL, "esearch.fcgi", q)
	require.NoError(t, err)
	assert.Contains(t, u, "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi?")
	assert.Contains(t, u, "term=CRISPR+gene+editing")
}

func TestClampRetMax(t *testing.T) {
	assert.Equal(t, "50", ClampRetMax(50, 20))
	assert.Equal(t, "20", ClampRetMax(0, 20))
	assert.Equal(t, "10000", ClampRetMax(99999, 20))
}

func TestDecodeJSONSearch(t *testing.T) {
	t.Run("well-formed result", func(t *testing.T) {
		body := []byte(`{"esearchresult":{"count":"42","retmax":"2","retstart":"0","idlist":["816253","3587"]}}`)

		result, err := DecodeJSONSearch(domain.SourceTypeMedGen, body)
		require.NoError(t, err)
		assert.Equal(t, 42, result.Count())
		assert.Equal(t, []string{"816253", "3587"}, result.ESearchResult.IDList)
	})

	t.Run("throttle body", func(t *testing.T) {
		body := []byte(`{"error":"API rate limit exceeded","count":"11"}`)

		_, err := DecodeJSONSearch(domain.SourceTypeMedGen, body)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrRateLimited)
	})

	t.Run("error envelope", func(t *testing.T) {
		body := []byte(`{"error":"Invalid db argument","esearchresult":{}}`)

		_, err := DecodeJSONSearch(domain.SourceTypeClinVar, body)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrFatal)
	})

	t.Run("malformed body", func(t *testing.T) {
		_, err := DecodeJSONSearch(domain.SourceTypeMedGen, []byte("<html>gateway error</html>"))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrParse)
	})

	t.Run("unparseable count falls back to id list length", func(t *testing.T) {
		body := []byte(`{"esearchresult":{"count":"","idlist":["1","2","3"]}}`)

		result, err := DecodeJSONSearch(domain.SourceTypeMedGen, body)
		require.NoError(t, err)
		assert.Equal(t, 3, result.Count())
	})
}
