package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     string
	}{
		{"not found", NewNotFoundError(SourceTypePubMed, "39775738"), ErrNotFound, "not_found"},
		{"rate limited", NewRateLimitError(SourceTypeArXiv, 2*time.Second), ErrRateLimited, "rate_limited"},
		{"auth", NewAuthError(SourceTypeCrossRef, "key rejected"), ErrAuth, "auth"},
		{"transient", NewTransientError(SourceTypePubMed, errors.New("connection reset")), ErrTransient, "transient"},
		{"parse", NewParseError(SourceTypeMedGen, errors.New("unexpected EOF")), ErrParse, "parse"},
		{"fatal", NewFatalError(SourceTypeClinVar, errors.New("boom")), ErrFatal, "fatal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.kind, ErrorKind(tt.err))

			// Classification survives wrapping.
			wrapped := fmt.Errorf("request failed: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.Equal(t, tt.kind, ErrorKind(wrapped))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewRateLimitError(SourceTypePubMed, 0)))
	assert.True(t, IsRetryable(NewTransientError(SourceTypePubMed, errors.New("timeout"))))

	assert.False(t, IsRetryable(NewNotFoundError(SourceTypePubMed, "1")))
	assert.False(t, IsRetryable(NewAuthError(SourceTypePubMed, "bad key")))
	assert.False(t, IsRetryable(NewParseError(SourceTypePubMed, errors.New("bad xml"))))
	assert.False(t, IsRetryable(NewFatalError(SourceTypePubMed, errors.New("boom"))))
	assert.False(t, IsRetryable(nil))
}

func TestRateLimitError_Message(t *testing.T) {
	withAfter := NewRateLimitError(SourceTypePubMed, 2*time.Second)
	assert.Contains(t, withAfter.Error(), "retry after 2s")

	without := NewRateLimitError(SourceTypePubMed, 0)
	assert.NotContains(t, without.Error(), "retry after")
}

func TestGenerateCanonicalID(t *testing.T) {
	t.Run("DOI has highest priority and is lowercased", func(t *testing.T) {
		id := GenerateCanonicalID(RecordIdentifiers{
			DOI:      "10.1234/Test.2023.001",
			PubMedID: "12345678",
		})
		assert.Equal(t, "doi:10.1234/test.2023.001", id)
	})

	t.Run("falls back through the priority chain", func(t *testing.T) {
		assert.Equal(t, "arxiv:2301.07041", GenerateCanonicalID(RecordIdentifiers{ArXivID: "2301.07041"}))
		assert.Equal(t, "pubmed:39775738", GenerateCanonicalID(RecordIdentifiers{PubMedID: "39775738"}))
		assert.Equal(t, "medgen:C0001234", GenerateCanonicalID(RecordIdentifiers{MedGenUID: "C0001234"}))
		assert.Equal(t, "clinvar:VCV000012345", GenerateCanonicalID(RecordIdentifiers{ClinVarID: "VCV000012345"}))
	})

	t.Run("empty identifiers produce empty string", func(t *testing.T) {
		assert.Equal(t, "", GenerateCanonicalID(RecordIdentifiers{}))
	})
}
