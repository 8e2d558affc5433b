package models

import (
	"strings"
	"testing"
)

func testWindow() QuoteWindow {
	return QuoteWindow{
		Symbol: "AAPL",
		Quotes: []Quote{
			{Symbol: "AAPL", Date: "2025-03-07", Open: 101, High: 106, Low: 100, Close: 105, Volume: 5000},
			{Symbol: "AAPL", Date: "2025-03-06", Open: 99, High: 103, Low: 98, Close: 101, Volume: 4000},
			{Symbol: "AAPL", Date: "2025-03-05", Open: 100, High: 102, Low: 97, Close: 99, Volume: 4500},
			{Symbol: "AAPL", Date: "2025-03-04", Open: 98, High: 101, Low: 96, Close: 100, Volume: 3900},
			{Symbol: "AAPL", Date: "2025-03-03", Open: 97, High: 99, Low: 95, Close: 98, Volume: 4200},
		},
	}
}

func TestQuoteWindowValidate(t *testing.T) {
	w := testWindow()
	if err := w.Validate(); err != nil {
		t.Fatalf("valid window rejected: %v", err)
	}
}

func TestQuoteWindowValidate_Invalid(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(w *QuoteWindow)
	}{
		{
			name:   "short window",
			mutate: func(w *QuoteWindow) { w.Quotes = w.Quotes[:3] },
		},
		{
			name:   "wrong order",
			mutate: func(w *QuoteWindow) { w.Quotes[0], w.Quotes[4] = w.Quotes[4], w.Quotes[0] },
		},
		{
			name:   "bad symbol",
			mutate: func(w *QuoteWindow) { w.Symbol = "aapl!!" },
		},
		{
			name:   "high below low",
			mutate: func(w *QuoteWindow) { w.Quotes[2].High = w.Quotes[2].Low - 1 },
		},
		{
			name:   "zero price",
			mutate: func(w *QuoteWindow) { w.Quotes[1].Close = 0 },
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := testWindow()
			c.mutate(&w)
			if err := w.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestQuoteWindowMetrics(t *testing.T) {
	w := testWindow()
	m := w.Metrics()

	if m.CurrentPrice != 105 {
		t.Errorf("CurrentPrice = %v; want 105 (latest close)", m.CurrentPrice)
	}
	if m.OpenPrice != 101 {
		t.Errorf("OpenPrice = %v; want 101 (latest open)", m.OpenPrice)
	}
	if m.HighPrice != 106 {
		t.Errorf("HighPrice = %v; want 106 (max high)", m.HighPrice)
	}
	if m.LowPrice != 95 {
		t.Errorf("LowPrice = %v; want 95 (min low)", m.LowPrice)
	}
}

func TestQuoteWindowMetrics_Empty(t *testing.T) {
	var w QuoteWindow
	if m := w.Metrics(); m != (Metrics{}) {
		t.Errorf("empty window metrics = %+v; want zero value", m)
	}
}

func TestQuoteWindowTable(t *testing.T) {
	table := testWindow().Table()

	for _, want := range []string{"Date", "Open", "Volume", "2025-03-07", "105.00"} {
		if !strings.Contains(table, want) {
			t.Errorf("table missing %q:\n%s", want, table)
		}
	}
	// header plus one line per row
	lines := strings.Count(strings.TrimRight(table, "\n"), "\n") + 1
	if lines != WindowSize+1 {
		t.Errorf("table has %d lines; want %d", lines, WindowSize+1)
	}
}

func TestQuoteWindowJSONRoundTrip(t *testing.T) {
	w := testWindow()
	raw, err := w.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := QuoteWindowFromJSON(raw)
	if err != nil {
		t.Fatalf("QuoteWindowFromJSON: %v", err)
	}
	if got.Symbol != w.Symbol || len(got.Quotes) != len(w.Quotes) {
		t.Errorf("round trip changed window: %+v", got)
	}
	if got.Quotes[0] != w.Quotes[0] {
		t.Errorf("round trip changed first row: %+v", got.Quotes[0])
	}
}

func TestQuoteWindowFromJSON_Invalid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"garbage", "{not json"},
		{"empty window", `{"symbol":"AAPL","quotes":[]}`},
		{"wrong shape", `{"symbol":"AAPL","quotes":[{"date":"2025-03-07"}]}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := QuoteWindowFromJSON(c.raw); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
