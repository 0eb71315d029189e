package simustock

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// heuristicWindow bounds how far (in characters, same line) a number may
// sit after its keyword.
const heuristicWindow = 80

var (
	bandUpper = decimal.RequireFromString("1.05")
	bandLower = decimal.RequireFromString("0.95")
)

// localeNumberPattern matches a number with a decimal part, optionally with
// thousands grouping: "10,25", "1.234,56", "1,234.56", "38.5".
const localeNumberPattern = `\d{1,3}(?:[.,]\d{3})*[.,]\d+|\d+[.,]\d+`

var localeNumberRe = regexp.MustCompile(localeNumberPattern)

// Normalizer turns raw upstream text into a MarketInsight. It holds only
// immutable, precompiled state and is safe for concurrent use.
type Normalizer struct {
	locale  *Locale
	current []*regexp.Regexp
	high    []*regexp.Regexp
	low     []*regexp.Regexp
}

// NewNormalizer builds a normalizer for the given locale (DefaultLocale when nil).
func NewNormalizer(locale *Locale) *Normalizer {
	if locale == nil {
		locale = DefaultLocale()
	}
	return &Normalizer{
		locale:  locale,
		current: compileKeywordPatterns(locale.CurrentKeywords),
		high:    compileKeywordPatterns(locale.HighKeywords),
		low:     compileKeywordPatterns(locale.LowKeywords),
	}
}

// Locale returns the table the normalizer was built with.
func (n *Normalizer) Locale() *Locale {
	return n.locale
}

// Normalize returns the insight found in raw, or nil when no positive
// current price can be located. The structured path wins over the
// heuristic path. It never fails.
func (n *Normalizer) Normalize(raw string) *MarketInsight {
	if insight := n.normalizeStructured(raw); insight != nil {
		return insight
	}
	return n.normalizeHeuristic(raw)
}

type insightPayload struct {
	Analysis       any `json:"analysis"`
	Recommendation any `json:"recommendation"`
	RiskLevel      any `json:"riskLevel"`
	RealData       *struct {
		CurrentPrice any `json:"currentPrice"`
		MaxPrice     any `json:"maxPrice"`
		MinPrice     any `json:"minPrice"`
	} `json:"realData"`
}

func (n *Normalizer) normalizeStructured(raw string) *MarketInsight {
	for _, candidate := range jsonCandidates(raw) {
		if insight := n.decodeInsight(candidate); insight != nil {
			return insight
		}
	}
	return nil
}

// jsonCandidates lists the substrings worth parsing, in precedence order:
// the whole fence-stripped text, the span from the first "{" to the last
// "}", then every balanced object from largest to smallest.
func jsonCandidates(raw string) []string {
	stripped := stripCodeFences(raw)
	if stripped == "" {
		return nil
	}
	candidates := []string{stripped}
	seen := map[string]struct{}{stripped: {}}
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		candidates = append(candidates, s)
	}

	start := strings.Index(stripped, "{")
	end := strings.LastIndex(stripped, "}")
	if start >= 0 && end > start {
		add(stripped[start : end+1])
	}

	balanced := balancedObjects(stripped)
	sort.SliceStable(balanced, func(i, j int) bool {
		return len(balanced[i]) > len(balanced[j])
	})
	for _, obj := range balanced {
		add(obj)
	}
	return candidates
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		lines := strings.Split(trimmed, "\n")
		if len(lines) >= 2 {
			lines = lines[1:]
			if strings.TrimSpace(lines[len(lines)-1]) == "```" {
				lines = lines[:len(lines)-1]
			}
			trimmed = strings.Join(lines, "\n")
		}
	}
	return strings.TrimSpace(trimmed)
}

// balancedObjects returns every substring that starts at a "{" and ends at
// its matching "}", ordered by start offset. Quotes only open JSON strings
// inside an object, so stray quotes in surrounding prose are ignored.
func balancedObjects(s string) []string {
	type span struct{ start, end int }
	var (
		open     []int
		spans    []span
		inString bool
		escaped  bool
	)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = len(open) > 0
		case '{':
			open = append(open, i)
		case '}':
			if len(open) == 0 {
				continue
			}
			start := open[len(open)-1]
			open = open[:len(open)-1]
			spans = append(spans, span{start, i})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	out := make([]string, 0, len(spans))
	for _, sp := range spans {
		out = append(out, s[sp.start:sp.end+1])
	}
	return out
}

func (n *Normalizer) decodeInsight(candidate string) *MarketInsight {
	var payload insightPayload
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return nil
	}
	if payload.RealData == nil {
		return nil
	}
	current, ok := positiveNumber(payload.RealData.CurrentPrice)
	if !ok {
		return nil
	}

	currentDec := decimal.NewFromFloat(current)
	maxPrice, ok := positiveNumber(payload.RealData.MaxPrice)
	if !ok {
		maxPrice = currentDec.Mul(bandUpper).InexactFloat64()
	}
	minPrice, ok := positiveNumber(payload.RealData.MinPrice)
	if !ok {
		minPrice = currentDec.Mul(bandLower).InexactFloat64()
	}

	analysis, _ := payload.Analysis.(string)
	if strings.TrimSpace(analysis) == "" {
		analysis = n.locale.FallbackAnalysis
	}
	recommendation, _ := payload.Recommendation.(string)
	risk, _ := payload.RiskLevel.(string)

	return &MarketInsight{
		Analysis:       analysis,
		Recommendation: normalizeRecommendation(recommendation),
		RiskLevel:      normalizeRiskLevel(risk),
		RealData: RealData{
			CurrentPrice: current,
			MaxPrice:     maxPrice,
			MinPrice:     minPrice,
		},
	}
}

func positiveNumber(v any) (float64, bool) {
	f, ok := v.(float64)
	if !ok || f <= 0 {
		return 0, false
	}
	return f, true
}

func normalizeRecommendation(raw string) Recommendation {
	switch r := Recommendation(strings.ToUpper(strings.TrimSpace(raw))); r {
	case RecommendationBuy, RecommendationSell, RecommendationHold, RecommendationNeutral:
		return r
	default:
		return RecommendationHold
	}
}

func normalizeRiskLevel(raw string) RiskLevel {
	switch r := RiskLevel(strings.ToUpper(strings.TrimSpace(raw))); r {
	case RiskLow, RiskMedium, RiskHigh:
		return r
	default:
		return RiskMedium
	}
}

func (n *Normalizer) normalizeHeuristic(raw string) *MarketInsight {
	current, ok := n.extract(n.current, raw)
	if !ok {
		return nil
	}
	high, ok := n.extract(n.high, raw)
	if !ok {
		high = current.Mul(bandUpper)
	}
	low, ok := n.extract(n.low, raw)
	if !ok {
		low = current.Mul(bandLower)
	}

	return &MarketInsight{
		Analysis:       n.locale.FallbackAnalysis,
		Recommendation: n.inferRecommendation(raw),
		RiskLevel:      RiskMedium,
		RealData: RealData{
			CurrentPrice: current.InexactFloat64(),
			MaxPrice:     high.InexactFloat64(),
			MinPrice:     low.InexactFloat64(),
		},
	}
}

// extract tries each keyword in order and returns the first positive
// number that follows one of its occurrences.
func (n *Normalizer) extract(keywords []*regexp.Regexp, raw string) (decimal.Decimal, bool) {
	for _, re := range keywords {
		for _, loc := range re.FindAllStringSubmatchIndex(raw, -1) {
			if value, ok := n.numberAfter(raw, loc[3]); ok {
				return value, true
			}
		}
	}
	return decimal.Zero, false
}

// numberAfter scans the rest of the line starting at offset for a standalone
// locale number. The text between offset and the number, minus an optional
// currency prefix, may be at most heuristicWindow characters. Numbers glued
// to further digits or separators ("12.03.2024") are not prices.
func (n *Normalizer) numberAfter(raw string, offset int) (decimal.Decimal, bool) {
	line := raw[offset:]
	if nl := strings.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}
	currency := strings.TrimSpace(n.locale.CurrencyPrefix)
	for _, m := range localeNumberRe.FindAllStringIndex(line, -1) {
		gap := strings.TrimRightFunc(line[:m[0]], unicode.IsSpace)
		if currency != "" {
			gap = strings.TrimSuffix(gap, currency)
		}
		if utf8.RuneCountInString(gap) > heuristicWindow {
			return decimal.Zero, false
		}
		if !standaloneNumber(line, m[0], m[1]) {
			continue
		}
		value, err := ParseLocaleNumber(line[m[0]:m[1]], n.locale.DecimalComma)
		if err != nil || !value.IsPositive() {
			continue
		}
		return value, true
	}
	return decimal.Zero, false
}

func standaloneNumber(s string, start, end int) bool {
	if start > 0 && isNumberByte(s[start-1]) {
		return false
	}
	if end < len(s) {
		if isDigit(s[end]) {
			return false
		}
		if (s[end] == '.' || s[end] == ',') && end+1 < len(s) && isDigit(s[end+1]) {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isNumberByte(b byte) bool { return isDigit(b) || b == '.' || b == ',' }

func (n *Normalizer) inferRecommendation(raw string) Recommendation {
	upper := strings.ToUpper(raw)
	for _, kw := range n.locale.BuyKeywords {
		if kw != "" && strings.Contains(upper, strings.ToUpper(kw)) {
			return RecommendationBuy
		}
	}
	for _, kw := range n.locale.SellKeywords {
		if kw != "" && strings.Contains(upper, strings.ToUpper(kw)) {
			return RecommendationSell
		}
	}
	return RecommendationHold
}

// compileKeywordPatterns builds one pattern per keyword that matches it as
// a whole word: "atual" does not fire inside "atualizados". Letters are
// Unicode-aware, so "cotação" works. Group 1 is the keyword itself.
func compileKeywordPatterns(keywords []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		expr := `(?i)(?:^|[^\p{L}\p{N}])(` + regexp.QuoteMeta(kw) + `)(?:[^\p{L}\p{N}]|$)`
		patterns = append(patterns, regexp.MustCompile(expr))
	}
	return patterns
}
