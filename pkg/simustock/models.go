package simustock

// Ticker is a normalized exchange symbol such as "PETR4".
type Ticker string

// String returns the ticker symbol.
func (t Ticker) String() string {
	return string(t)
}

// Recommendation is the closed set of investment recommendations.
type Recommendation string

const (
	RecommendationBuy     Recommendation = "BUY"
	RecommendationSell    Recommendation = "SELL"
	RecommendationHold    Recommendation = "HOLD"
	RecommendationNeutral Recommendation = "NEUTRAL"
)

// RiskLevel is the closed set of risk classifications.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// RealData holds the price figures of one insight.
type RealData struct {
	CurrentPrice float64 `json:"currentPrice"`
	MaxPrice     float64 `json:"maxPrice"`
	MinPrice     float64 `json:"minPrice"`
}

// MarketInsight is the normalized result of one AI query.
// A valid insight always has RealData.CurrentPrice > 0.
type MarketInsight struct {
	Analysis       string         `json:"analysis"`
	Recommendation Recommendation `json:"recommendation"`
	RiskLevel      RiskLevel      `json:"riskLevel"`
	RealData       RealData       `json:"realData"`
}

// Source is a web citation backing an insight.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// GroundingChunk is a provider-neutral citation as returned by the upstream
// service. Either field may be empty.
type GroundingChunk struct {
	Title string `json:"title,omitempty"`
	URI   string `json:"uri,omitempty"`
}

// StockView is the display-ready combination of a ticker, its prices,
// the two-month window and the citations.
type StockView struct {
	Symbol        Ticker   `json:"symbol"`
	CurrentPrice  float64  `json:"currentPrice"`
	MaxPrice      float64  `json:"maxPrice"`
	MinPrice      float64  `json:"minPrice"`
	StartDate     string   `json:"startDate"`
	EndDate       string   `json:"endDate"`
	RangePosition float64  `json:"rangePosition"`
	Sources       []Source `json:"sources"`
}

// SearchRequest is one user-initiated search.
type SearchRequest struct {
	Ticker    string
	SessionID string
}

// SearchResult is returned by a successful search.
type SearchResult struct {
	RequestID string         `json:"requestId"`
	Ticker    Ticker         `json:"ticker"`
	Provider  string         `json:"provider"`
	Model     string         `json:"model"`
	Insight   *MarketInsight `json:"insight"`
	Sources   []Source       `json:"sources"`
	View      *StockView     `json:"view"`
}

// History statuses.
const (
	HistoryStatusCompleted = "completed"
	HistoryStatusFailed    = "failed"
)

// HistoryEntry is one recorded search attempt.
type HistoryEntry struct {
	ID          int64          `json:"id"`
	RequestID   string         `json:"requestId"`
	Ticker      Ticker         `json:"ticker"`
	Provider    string         `json:"provider"`
	Model       string         `json:"model"`
	Status      string         `json:"status"`
	ErrorCode   string         `json:"errorCode,omitempty"`
	RawResponse string         `json:"rawResponse,omitempty"`
	Insight     *MarketInsight `json:"insight,omitempty"`
	CreatedAt   string         `json:"createdAt"`
}
