package models

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one message of the conversation history.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// IntentScore is the winning intent label for a question.
type IntentScore struct {
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
}

// UnknownIntent is returned when no intent category fires.
var UnknownIntent = IntentScore{Label: "unknown", Weight: 0}
