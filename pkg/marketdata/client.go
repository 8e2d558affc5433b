// Package marketdata fetches daily price history from the Financial
// Modeling Prep API and reduces it to the fixed quote window the rest of
// the application works with.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"stockchat/pkg/logger"
	"stockchat/pkg/metrics"
	"stockchat/pkg/models"
	"stockchat/pkg/validation"
)

// ErrDataUnavailable is returned for every fetch failure: network error,
// unknown symbol, rate limit, malformed payload. Callers surface it to the
// UI as-is; there is no retry.
var ErrDataUnavailable = errors.New("stock data unavailable")

// historyDays is how far back the request window reaches. The provider
// needs a wide window to guarantee five trading days across weekends and
// holidays; the original app pulled about five months.
const historyDays = 150

// Client is a Financial Modeling Prep API client.
type Client struct {
	client *resty.Client
	apiKey string
}

// New creates a market-data client.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	return &Client{client: client, apiKey: apiKey}
}

// historicalResponse mirrors the provider's historical-price-full payload.
type historicalResponse struct {
	Symbol     string     `json:"symbol"`
	Historical []fmpQuote `json:"historical"`
}

type fmpQuote struct {
	Date     string  `json:"date"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	AdjClose float64 `json:"adjClose"`
	Volume   int64   `json:"volume"`
}

// FetchWindow returns the last models.WindowSize daily quote rows for
// symbol, most-recent-first, or ErrDataUnavailable.
func (c *Client) FetchWindow(ctx context.Context, symbol string) (models.QuoteWindow, error) {
	start := time.Now()
	metrics.QuoteFetchCounter.Inc()

	w, err := c.fetchWindow(ctx, symbol)
	metrics.QuoteFetchLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.QuoteFetchErrors.Inc()
		logger.Log.Warn("quote fetch failed",
			zap.String("symbol", symbol), zap.Error(err))
		return models.QuoteWindow{}, err
	}
	return w, nil
}

func (c *Client) fetchWindow(ctx context.Context, symbol string) (models.QuoteWindow, error) {
	symbol = validation.SanitizeSymbol(symbol)
	if !validation.ValidTicker(symbol) {
		return models.QuoteWindow{}, fmt.Errorf("%w: invalid symbol %q", ErrDataUnavailable, symbol)
	}

	end := time.Now().AddDate(0, 0, -1)
	begin := end.AddDate(0, 0, -historyDays)

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"from":   begin.Format("2006-01-02"),
			"to":     end.Format("2006-01-02"),
			"apikey": c.apiKey,
		}).
		Get("/historical-price-full/" + symbol)
	if err != nil {
		return models.QuoteWindow{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if resp.StatusCode() != 200 {
		return models.QuoteWindow{}, fmt.Errorf("%w: provider returned %d", ErrDataUnavailable, resp.StatusCode())
	}

	var payload historicalResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return models.QuoteWindow{}, fmt.Errorf("%w: bad payload: %v", ErrDataUnavailable, err)
	}
	if len(payload.Historical) < models.WindowSize {
		return models.QuoteWindow{}, fmt.Errorf("%w: %d rows for %s, need %d",
			ErrDataUnavailable, len(payload.Historical), symbol, models.WindowSize)
	}

	// The provider sends rows newest-first but we don't depend on it.
	rows := payload.Historical
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date > rows[j].Date })

	w := models.QuoteWindow{Symbol: symbol, Quotes: make([]models.Quote, 0, models.WindowSize)}
	for _, r := range rows[:models.WindowSize] {
		w.Quotes = append(w.Quotes, models.Quote{
			Symbol:   symbol,
			Date:     r.Date,
			Open:     r.Open,
			High:     r.High,
			Low:      r.Low,
			Close:    r.Close,
			AdjClose: r.AdjClose,
			Volume:   r.Volume,
		})
	}
	if err := w.Validate(); err != nil {
		return models.QuoteWindow{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	return w, nil
}
