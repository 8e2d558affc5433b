package chat

import (
	"fmt"

	"stockchat/pkg/models"
)

// ContextPrompt wraps a user question with the session's quote window so
// the model always answers against the most recently fetched data.
func ContextPrompt(w models.QuoteWindow, question string) string {
	return fmt.Sprintf("Stock data for %s:\n%s\nQuestion: %s", w.Symbol, w.Table(), question)
}

// BuildPayload prepares the provider payload for a pending question: the
// accumulated history followed by the question as a user turn carrying the
// quote context. The stored history keeps the raw question; only the
// outbound payload is augmented.
func BuildPayload(history []models.Message, w models.QuoteWindow, question string) []models.Message {
	payload := make([]models.Message, 0, len(history)+1)
	payload = append(payload, history...)
	payload = append(payload, models.UserMessage(ContextPrompt(w, question)))
	return payload
}
