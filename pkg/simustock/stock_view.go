package simustock

import (
	"strings"
	"time"
)

// viewWindowMonths is the look-back of the displayed price range.
const viewWindowMonths = 2

// BuildStockView combines a ticker, its insight prices and sources with the
// two-month window ending at now, expressed in the locale's time zone.
func BuildStockView(ticker Ticker, insight *MarketInsight, sources []Source, locale *Locale, now time.Time) *StockView {
	if insight == nil {
		return nil
	}
	if locale == nil {
		locale = DefaultLocale()
	}
	loc := saoPauloLocation
	if name := strings.TrimSpace(locale.TimeZone); name != "" && name != saoPauloTimeZoneName {
		if l, err := time.LoadLocation(name); err == nil {
			loc = l
		}
	}
	layout := locale.DateLayout
	if layout == "" {
		layout = "02/01/2006"
	}

	end := now.In(loc)
	start := end.AddDate(0, -viewWindowMonths, 0)
	if sources == nil {
		sources = []Source{}
	}

	data := insight.RealData
	return &StockView{
		Symbol:        ticker,
		CurrentPrice:  data.CurrentPrice,
		MaxPrice:      data.MaxPrice,
		MinPrice:      data.MinPrice,
		StartDate:     start.Format(layout),
		EndDate:       end.Format(layout),
		RangePosition: RangePosition(data.CurrentPrice, data.MinPrice, data.MaxPrice),
		Sources:       sources,
	}
}

// RangePosition is where current sits inside [low, high], as a percentage
// clamped to [0, 100]. A degenerate range yields 50.
func RangePosition(current, low, high float64) float64 {
	if high <= low {
		return 50
	}
	pos := (current - low) / (high - low) * 100
	switch {
	case pos < 0:
		return 0
	case pos > 100:
		return 100
	default:
		return pos
	}
}
