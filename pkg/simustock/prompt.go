package simustock

import (
	"fmt"
	"strings"
)

const insightResponseShape = `{
  "analysis": "string",
  "recommendation": "BUY | SELL | HOLD | NEUTRAL",
  "riskLevel": "LOW | MEDIUM | HIGH",
  "realData": {
    "currentPrice": number,
    "maxPrice": number,
    "minPrice": number
  }
}`

// buildInsightPrompt asks for a web-searched quote, the two-month range and
// a short analysis, returned as a single JSON object.
func buildInsightPrompt(ticker Ticker, locale *Locale) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Use web search to find the latest real market data for the B3 (Brazilian stock exchange) ticker %s.\n", ticker)
	sb.WriteString("Look up the current price and the highest and lowest prices of the last 2 months, ")
	sb.WriteString("then write a short analysis of the stock's recent performance and outlook.\n\n")
	sb.WriteString("Output requirements:\n")
	sb.WriteString("1) Return exactly one JSON object, with no Markdown and no extra text.\n")
	sb.WriteString("2) Prices are plain JSON numbers in BRL, using \".\" as decimal separator.\n")
	sb.WriteString("3) recommendation must be one of BUY, SELL, HOLD, NEUTRAL.\n")
	sb.WriteString("4) riskLevel must be one of LOW, MEDIUM, HIGH.\n")
	if locale != nil && locale.Name != "" {
		fmt.Fprintf(&sb, "5) Write the analysis in %s.\n", locale.Name)
	}
	sb.WriteString("\nJSON shape:\n")
	sb.WriteString(insightResponseShape)
	return sb.String()
}
