package chat

import (
	"strings"

	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/models"

	"github.com/valyala/bytebufferpool"
)

const (
	// maxMessageLength truncates any single history message before it is
	// folded into the prompt, bounding token spend per turn.
	maxMessageLength = 1000

	truncationMarker = "..."
)

// truncateHistory keeps only the most recent maxExchanges exchanges (one
// exchange is a user/assistant pair). The input slice is never mutated.
func truncateHistory(history []models.Message, maxExchanges int) []models.Message {
	maxMessages := maxExchanges * 2
	if len(history) <= maxMessages {
		return history
	}
	return history[len(history)-maxMessages:]
}

// composePrompt folds the (already truncated) history and the new question
// into a single conversation transcript for the model. System instructions
// travel separately as the request's system instruction, not in the prompt.
func composePrompt(history []models.Message, question string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	for _, msg := range history {
		switch msg.Role {
		case models.RoleAssistant:
			buf.WriteString("Assistant: ")
		default:
			buf.WriteString("User: ")
		}
		buf.WriteString(clip(msg.Content))
		buf.WriteString("\n\n")
	}

	buf.WriteString("User: ")
	buf.WriteString(question)
	buf.WriteString("\nAssistant:")

	return buf.String()
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxMessageLength {
		return s
	}
	return s[:maxMessageLength] + truncationMarker
}
