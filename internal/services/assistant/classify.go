package assistant

import "strings"

// ErrorKind is the coarse category of an upstream failure.
type ErrorKind string

const (
	ErrorKindQuota       ErrorKind = "quota"
	ErrorKindRateLimited ErrorKind = "rate_limited"
	ErrorKindTimeout     ErrorKind = "timeout"
	ErrorKindUnknown     ErrorKind = "unknown"
)

// ClassifyUpstreamError buckets a provider error message by substring.
// Text matching is fragile, so the whole heuristic lives here and nowhere
// else.
func ClassifyUpstreamError(message string) ErrorKind {
	msg := strings.ToLower(message)

	switch {
	case strings.Contains(msg, "quota") || strings.Contains(msg, "billing"):
		return ErrorKindQuota
	case strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "rate-limit") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "resource exhausted") ||
		strings.Contains(msg, "429"):
		return ErrorKindRateLimited
	case strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "deadline"):
		return ErrorKindTimeout
	default:
		return ErrorKindUnknown
	}
}

// Apology maps an error kind to the user-facing message shown instead of
// the raw provider error.
func Apology(kind ErrorKind) string {
	switch kind {
	case ErrorKindQuota:
		return "The assistant has used up its capacity with the AI provider for now. Please try again later."
	case ErrorKindRateLimited:
		return "The AI provider is busy right now. Please wait a minute and try again."
	case ErrorKindTimeout:
		return "That question took too long to answer and timed out. Please try asking again."
	default:
		return "Something went wrong while answering your question. Please try again."
	}
}
