// Package chart renders a quote window as a candlestick chart in SVG,
// ready to inline into the page.
package chart

import (
	"fmt"
	"strings"

	"stockchat/pkg/models"
)

const (
	chartWidth  = 680
	chartHeight = 400
	marginLeft  = 70
	marginRight = 20
	marginTop   = 30
	marginBot   = 40

	upColor   = "#26a69a"
	downColor = "#ef5350"
	axisColor = "#8a8a8a"
	gridColor = "#e0e0e0"
)

// SVG renders the window as a candlestick chart, oldest candle on the
// left. An empty window renders an empty frame rather than failing.
func SVG(w models.QuoteWindow) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-label="%s candlestick chart">`,
		chartWidth, chartHeight, w.Symbol)
	fmt.Fprintf(&b, `<text x="%d" y="20" font-size="16" font-family="sans-serif">%s</text>`,
		marginLeft, w.Symbol)

	if len(w.Quotes) > 0 {
		drawCandles(&b, w)
	}

	b.WriteString(`</svg>`)
	return b.String()
}

func drawCandles(b *strings.Builder, w models.QuoteWindow) {
	m := w.Metrics()
	lo, hi := m.LowPrice, m.HighPrice
	if hi <= lo {
		hi = lo + 1 // flat window; avoid a zero-height scale
	}
	// pad the price range a little so wicks don't touch the frame
	pad := (hi - lo) * 0.05
	lo, hi = lo-pad, hi+pad

	plotW := float64(chartWidth - marginLeft - marginRight)
	plotH := float64(chartHeight - marginTop - marginBot)
	y := func(price float64) float64 {
		return marginTop + plotH*(hi-price)/(hi-lo)
	}

	// horizontal gridlines with price labels
	for i := 0; i <= 4; i++ {
		price := lo + (hi-lo)*float64(i)/4
		gy := y(price)
		fmt.Fprintf(b, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="%s" stroke-width="1"/>`,
			marginLeft, gy, chartWidth-marginRight, gy, gridColor)
		fmt.Fprintf(b, `<text x="%d" y="%.1f" font-size="11" font-family="sans-serif" fill="%s" text-anchor="end">%.2f</text>`,
			marginLeft-6, gy+4, axisColor, price)
	}

	// candles: window is most-recent-first, draw oldest on the left
	n := len(w.Quotes)
	slot := plotW / float64(n)
	bodyW := slot * 0.5
	for i := n - 1; i >= 0; i-- {
		q := w.Quotes[i]
		cx := marginLeft + slot*float64(n-1-i) + slot/2

		color := upColor
		if q.Close < q.Open {
			color = downColor
		}

		// wick
		fmt.Fprintf(b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="1.5"/>`,
			cx, y(q.High), cx, y(q.Low), color)

		// body; give a flat day one pixel so it stays visible
		top, bot := y(q.Open), y(q.Close)
		if top > bot {
			top, bot = bot, top
		}
		if bot-top < 1 {
			bot = top + 1
		}
		fmt.Fprintf(b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`,
			cx-bodyW/2, top, bodyW, bot-top, color)

		// date label
		fmt.Fprintf(b, `<text x="%.1f" y="%d" font-size="11" font-family="sans-serif" fill="%s" text-anchor="middle">%s</text>`,
			cx, chartHeight-marginBot+20, axisColor, shortDate(q.Date))
	}
}

// shortDate turns 2024-05-03 into 05-03 for the axis label.
func shortDate(date string) string {
	if len(date) == 10 {
		return date[5:]
	}
	return date
}
