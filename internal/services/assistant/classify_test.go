package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyUpstreamError(t *testing.T) {
	testCases := []struct {
		message  string
		expected ErrorKind
	}{
		{"Quota exceeded for quota metric", ErrorKindQuota},
		{"billing account not configured", ErrorKindQuota},
		{"Rate limit exceeded", ErrorKindRateLimited},
		{"error: rate-limit hit", ErrorKindRateLimited},
		{"RESOURCE_EXHAUSTED: try again later", ErrorKindRateLimited},
		{"resource exhausted", ErrorKindRateLimited},
		{"googleapi: Error 429: too many requests", ErrorKindRateLimited},
		{"context deadline exceeded", ErrorKindTimeout},
		{"request timed out", ErrorKindTimeout},
		{"dial tcp: i/o timeout", ErrorKindTimeout},
		{"internal server error", ErrorKindUnknown},
		{"", ErrorKindUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.message, func(t *testing.T) {
			assert.Equal(t, tc.expected, ClassifyUpstreamError(tc.message))
		})
	}
}

func TestApologyNeverLeaksDetail(t *testing.T) {
	kinds := []ErrorKind{ErrorKindQuota, ErrorKindRateLimited, ErrorKindTimeout, ErrorKindUnknown}

	seen := make(map[string]bool)
	for _, kind := range kinds {
		msg := Apology(kind)
		assert.NotEmpty(t, msg)
		assert.NotContains(t, msg, "quota")
		assert.NotContains(t, msg, "429")
		seen[msg] = true
	}
	assert.Len(t, seen, 4, "each kind has its own message")
}
