package models

// sessionPrefixLen is how much of a session token the durable logs keep.
// The prefix is enough to correlate events from one session without being
// reversible to the full token.
const sessionPrefixLen = 8

// SessionPrefix truncates a session token for logging.
func SessionPrefix(sessionID string) string {
	if len(sessionID) <= sessionPrefixLen {
		return sessionID
	}
	return sessionID[:sessionPrefixLen]
}
