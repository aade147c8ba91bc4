package domain

import (
	"time"
)

// Message roles in a chat transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one transcript entry.
type ChatMessage struct {
	ID   string    `json:"id"`
	Role string    `json:"role"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

// QuickReply is an action button offered alongside an assistant reply. The
// Action string is fed back through the controller verbatim when clicked.
type QuickReply struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}
