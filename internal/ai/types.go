// Package ai provides types for the chat gateway client.
package ai

// Role values accepted by the gateway.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single turn of the conversation as the gateway expects it.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	// Image is a data URL attached to the turn.
	Image string `json:"image,omitempty"`
}

// Request is the body posted to the gateway.
type Request struct {
	Messages        []Message `json:"messages"`
	CustomKnowledge []string  `json:"customKnowledge"`
	DeveloperMode   bool      `json:"developerMode"`
}

// errorResponse is the body of a non-2xx gateway answer.
type errorResponse struct {
	Error string `json:"error"`
}
