package models

import (
	"stockchat/pkg/validation"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role" validate:"required,role"`
	Content string `json:"content" validate:"required"`
}

// Validate validates the Message struct
func (m Message) Validate() error {
	if errs := validation.ValidateStruct(m); len(errs) > 0 {
		return errs
	}
	return nil
}

// Sanitize strips control characters from the message content.
func (m *Message) Sanitize() {
	m.Content = validation.SanitizeString(m.Content)
}

// UserMessage builds a validated-shape user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant turn.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Alternating reports whether history is a well-formed transcript: user and
// assistant turns strictly alternating, starting with user.
func Alternating(history []Message) bool {
	for i, m := range history {
		want := RoleUser
		if i%2 == 1 {
			want = RoleAssistant
		}
		if m.Role != want {
			return false
		}
	}
	return true
}
