package models

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single prior conversation turn supplied by the client.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /v1/chat. SessionID is an ephemeral
// anonymous token; the server mints one when it is absent.
type ChatRequest struct {
	SessionID string    `json:"session_id,omitempty"`
	Message   string    `json:"message"`
	History   []Message `json:"history,omitempty"`
}

// ChatResponse is the successful reply to a chat turn.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
	Warning   string `json:"warning,omitempty"`
	Remaining int    `json:"remaining"`
}
