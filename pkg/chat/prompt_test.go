package chat

import (
	"strings"
	"testing"

	"stockchat/pkg/models"
)

func testWindow() models.QuoteWindow {
	return models.QuoteWindow{
		Symbol: "NVDA",
		Quotes: []models.Quote{
			{Symbol: "NVDA", Date: "2025-03-07", Open: 101, High: 106, Low: 100, Close: 105, Volume: 5000},
			{Symbol: "NVDA", Date: "2025-03-06", Open: 99, High: 103, Low: 98, Close: 101, Volume: 4000},
		},
	}
}

func TestContextPrompt(t *testing.T) {
	got := ContextPrompt(testWindow(), "what is the trend?")

	for _, want := range []string{
		"Stock data for NVDA",
		"2025-03-07",
		"105.00",
		"Question: what is the trend?",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestBuildPayload(t *testing.T) {
	history := []models.Message{
		models.UserMessage("q1"),
		models.AssistantMessage("a1"),
	}

	payload := BuildPayload(history, testWindow(), "q2")

	if len(payload) != 3 {
		t.Fatalf("payload has %d messages; want 3", len(payload))
	}
	// prior history is carried through untouched
	if payload[0] != history[0] || payload[1] != history[1] {
		t.Error("payload altered prior history")
	}
	last := payload[2]
	if last.Role != models.RoleUser {
		t.Errorf("last role = %s; want user", last.Role)
	}
	if !strings.Contains(last.Content, "Stock data for NVDA") {
		t.Error("pending question not wrapped with quote context")
	}
	if !strings.Contains(last.Content, "Question: q2") {
		t.Error("pending question text missing")
	}

	// the stored history slice itself must not grow
	if len(history) != 2 {
		t.Errorf("history mutated: %d entries", len(history))
	}
}

func TestBuildPayload_EmptyHistory(t *testing.T) {
	payload := BuildPayload(nil, testWindow(), "first question")
	if len(payload) != 1 {
		t.Fatalf("payload has %d messages; want 1", len(payload))
	}
	if payload[0].Role != models.RoleUser {
		t.Errorf("role = %s; want user", payload[0].Role)
	}
}
