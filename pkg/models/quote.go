package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"stockchat/pkg/validation"
)

// WindowSize is the number of daily quote rows kept per symbol. The chat
// context and the chart both work off this fixed window.
const WindowSize = 5

// Quote is one daily OHLCV row for a symbol.
type Quote struct {
	Symbol   string  `json:"symbol" validate:"required,ticker"`
	Date     string  `json:"date" validate:"required"` // YYYY-MM-DD
	Open     float64 `json:"open" validate:"required,price"`
	High     float64 `json:"high" validate:"required,price"`
	Low      float64 `json:"low" validate:"required,price"`
	Close    float64 `json:"close" validate:"required,price"`
	AdjClose float64 `json:"adj_close,omitempty"`
	Volume   int64   `json:"volume"`
}

// Validate validates the Quote struct
func (q Quote) Validate() error {
	if errs := validation.ValidateStruct(q); len(errs) > 0 {
		return errs
	}
	if q.High < q.Low {
		return fmt.Errorf("high %.2f below low %.2f", q.High, q.Low)
	}
	return nil
}

// QuoteWindow is the fixed window of recent rows, most-recent-first.
type QuoteWindow struct {
	Symbol string  `json:"symbol"`
	Quotes []Quote `json:"quotes"`
}

// Validate checks the window shape: exactly WindowSize valid rows ordered
// most-recent-first by date.
func (w QuoteWindow) Validate() error {
	if !validation.ValidTicker(w.Symbol) {
		return fmt.Errorf("invalid symbol %q", w.Symbol)
	}
	if len(w.Quotes) != WindowSize {
		return fmt.Errorf("window has %d rows, want %d", len(w.Quotes), WindowSize)
	}
	for i, q := range w.Quotes {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		// dates are ISO-8601 so string order is date order
		if i > 0 && w.Quotes[i-1].Date <= q.Date {
			return fmt.Errorf("rows not most-recent-first at index %d", i)
		}
	}
	return nil
}

// Metrics are the headline values shown above the chart.
type Metrics struct {
	CurrentPrice float64 `json:"current_price"` // latest close
	OpenPrice    float64 `json:"open_price"`    // latest open
	HighPrice    float64 `json:"high_price"`    // max high over the window
	LowPrice     float64 `json:"low_price"`     // min low over the window
}

// Metrics derives the headline metrics from the window.
func (w QuoteWindow) Metrics() Metrics {
	if len(w.Quotes) == 0 {
		return Metrics{}
	}
	m := Metrics{
		CurrentPrice: w.Quotes[0].Close,
		OpenPrice:    w.Quotes[0].Open,
		HighPrice:    w.Quotes[0].High,
		LowPrice:     w.Quotes[0].Low,
	}
	for _, q := range w.Quotes[1:] {
		if q.High > m.HighPrice {
			m.HighPrice = q.High
		}
		if q.Low < m.LowPrice {
			m.LowPrice = q.Low
		}
	}
	return m
}

// Table renders the window as a fixed-width text table for the chat context.
func (w QuoteWindow) Table() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %10s %10s %10s %10s %12s\n",
		"Date", "Open", "High", "Low", "Close", "Volume")
	for _, q := range w.Quotes {
		fmt.Fprintf(&b, "%-12s %10.2f %10.2f %10.2f %10.2f %12d\n",
			q.Date, q.Open, q.High, q.Low, q.Close, q.Volume)
	}
	return b.String()
}

// ToJSON serializes the window for cache storage.
func (w QuoteWindow) ToJSON() (string, error) {
	data, err := json.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("json marshal error: %w", err)
	}
	return string(data), nil
}

// QuoteWindowFromJSON parses and validates a cached window.
func QuoteWindowFromJSON(data string) (QuoteWindow, error) {
	var w QuoteWindow
	if err := json.Unmarshal([]byte(data), &w); err != nil {
		return w, fmt.Errorf("json unmarshal error: %w", err)
	}
	if err := w.Validate(); err != nil {
		return w, fmt.Errorf("validation failed: %w", err)
	}
	return w, nil
}
