package api

import "simustock/pkg/simustock"

type searchPayload struct {
	Ticker    string `json:"ticker"`
	SessionID string `json:"session_id"`
}

type favoritesPayload struct {
	Tickers []string `json:"tickers"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider,omitempty"`
}

type localeResponse struct {
	Name                 string                              `json:"name"`
	CurrencyPrefix       string                              `json:"currency_prefix"`
	DecimalComma         bool                                `json:"decimal_comma"`
	DateLayout           string                              `json:"date_layout"`
	RecommendationLabels map[simustock.Recommendation]string `json:"recommendation_labels"`
	RiskLabels           map[simustock.RiskLevel]string      `json:"risk_labels"`
	Messages             simustock.LocaleMessages            `json:"messages"`
}

type storageInfoResponse struct {
	DataDir string `json:"data_dir,omitempty"`
	DBPath  string `json:"db_path"`
}
