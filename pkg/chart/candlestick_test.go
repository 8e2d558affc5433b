package chart

import (
	"strings"
	"testing"

	"stockchat/pkg/models"
)

func testWindow() models.QuoteWindow {
	return models.QuoteWindow{
		Symbol: "AAPL",
		Quotes: []models.Quote{
			{Symbol: "AAPL", Date: "2025-03-07", Open: 101, High: 106, Low: 100, Close: 105, Volume: 5000}, // up day
			{Symbol: "AAPL", Date: "2025-03-06", Open: 103, High: 103, Low: 98, Close: 101, Volume: 4000},  // down day
			{Symbol: "AAPL", Date: "2025-03-05", Open: 100, High: 102, Low: 97, Close: 99, Volume: 4500},
			{Symbol: "AAPL", Date: "2025-03-04", Open: 98, High: 101, Low: 96, Close: 100, Volume: 3900},
			{Symbol: "AAPL", Date: "2025-03-03", Open: 97, High: 99, Low: 95, Close: 98, Volume: 4200},
		},
	}
}

func TestSVG(t *testing.T) {
	svg := SVG(testWindow())

	if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatal("output is not a closed svg element")
	}
	if !strings.Contains(svg, "AAPL") {
		t.Error("symbol missing from chart")
	}

	// one body per row
	if got := strings.Count(svg, "<rect"); got != models.WindowSize {
		t.Errorf("found %d candle bodies; want %d", got, models.WindowSize)
	}
	// both directions present
	if !strings.Contains(svg, upColor) {
		t.Error("no up-colored candle")
	}
	if !strings.Contains(svg, downColor) {
		t.Error("no down-colored candle")
	}
	// axis labels
	for _, date := range []string{"03-07", "03-03"} {
		if !strings.Contains(svg, date) {
			t.Errorf("axis label %s missing", date)
		}
	}
}

func TestSVG_Empty(t *testing.T) {
	svg := SVG(models.QuoteWindow{Symbol: "MSFT"})

	if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatal("output is not a closed svg element")
	}
	if strings.Contains(svg, "<rect") {
		t.Error("empty window rendered candles")
	}
}

func TestSVG_FlatWindow(t *testing.T) {
	// all prices identical; must not divide by zero
	w := models.QuoteWindow{Symbol: "FLAT"}
	for _, d := range []string{"2025-03-07", "2025-03-06", "2025-03-05", "2025-03-04", "2025-03-03"} {
		w.Quotes = append(w.Quotes, models.Quote{
			Symbol: "FLAT", Date: d, Open: 50, High: 50, Low: 50, Close: 50, Volume: 100,
		})
	}

	svg := SVG(w)
	if !strings.Contains(svg, "<rect") {
		t.Error("flat window rendered no candles")
	}
	if strings.Contains(svg, "NaN") {
		t.Error("flat window produced NaN coordinates")
	}
}
