package simustock

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Locale bundles every language- or market-specific string the core needs.
// The normalizer only ever reads keywords from here, so serving another
// market is a matter of supplying a different table.
type Locale struct {
	Name string `yaml:"name" json:"name"`

	// Keyword sets for the heuristic extractor, tried in order.
	CurrentKeywords []string `yaml:"current_keywords" json:"-"`
	HighKeywords    []string `yaml:"high_keywords" json:"-"`
	LowKeywords     []string `yaml:"low_keywords" json:"-"`
	BuyKeywords     []string `yaml:"buy_keywords" json:"-"`
	SellKeywords    []string `yaml:"sell_keywords" json:"-"`

	// DecimalComma marks locales where "," is the decimal separator.
	DecimalComma bool `yaml:"decimal_comma" json:"decimal_comma"`

	CurrencyPrefix     string `yaml:"currency_prefix" json:"currency_prefix"`
	DefaultSourceTitle string `yaml:"default_source_title" json:"default_source_title"`
	FallbackAnalysis   string `yaml:"fallback_analysis" json:"-"`
	DateLayout         string `yaml:"date_layout" json:"date_layout"`
	TimeZone           string `yaml:"time_zone" json:"time_zone"`

	RecommendationLabels map[Recommendation]string `yaml:"recommendation_labels" json:"recommendation_labels"`
	RiskLabels           map[RiskLevel]string      `yaml:"risk_labels" json:"risk_labels"`
	Messages             LocaleMessages            `yaml:"messages" json:"messages"`
}

// LocaleMessages are the user-facing error messages, one per error class.
type LocaleMessages struct {
	InvalidTicker string `yaml:"invalid_ticker" json:"invalid_ticker"`
	Configuration string `yaml:"configuration" json:"configuration"`
	Upstream      string `yaml:"upstream" json:"upstream"`
	NoData        string `yaml:"no_data" json:"no_data"`
	Superseded    string `yaml:"superseded" json:"superseded"`
	NotFound      string `yaml:"not_found" json:"not_found"`
	Internal      string `yaml:"internal" json:"internal"`
}

const (
	LocalePortugueseBR = "pt-BR"
	LocaleEnglishUS    = "en-US"
)

func portugueseLocale() *Locale {
	return &Locale{
		Name:               LocalePortugueseBR,
		CurrentKeywords:    []string{"atual", "cotação", "cotacao", "preço", "preco"},
		HighKeywords:       []string{"máxima", "maxima", "máximo", "maximo"},
		LowKeywords:        []string{"mínima", "minima", "mínimo", "minimo"},
		BuyKeywords:        []string{"COMPRA", "COMPRAR"},
		SellKeywords:       []string{"VENDA", "VENDER"},
		DecimalComma:       true,
		CurrencyPrefix:     "R$",
		DefaultSourceTitle: "Google Finance / B3",
		FallbackAnalysis:   "Análise baseada em dados reais encontrados via busca.",
		DateLayout:         "02/01/2006",
		TimeZone:           "America/Sao_Paulo",
		RecommendationLabels: map[Recommendation]string{
			RecommendationBuy:     "COMPRA",
			RecommendationSell:    "VENDA",
			RecommendationHold:    "MANTER",
			RecommendationNeutral: "NEUTRO",
		},
		RiskLabels: map[RiskLevel]string{
			RiskLow:    "BAIXO",
			RiskMedium: "MÉDIO",
			RiskHigh:   "ALTO",
		},
		Messages: LocaleMessages{
			InvalidTicker: "Por favor, insira um ticker válido.",
			Configuration: "Configuração de API ausente.",
			Upstream:      "Falha ao obter dados reais. Verifique o ticker e tente novamente.",
			NoData:        "Nenhum dado encontrado para este ticker.",
			Superseded:    "Consulta substituída por uma busca mais recente.",
			NotFound:      "Registro não encontrado.",
			Internal:      "Erro interno. Tente novamente mais tarde.",
		},
	}
}

func englishLocale() *Locale {
	return &Locale{
		Name:               LocaleEnglishUS,
		CurrentKeywords:    []string{"current", "quote", "last price", "price"},
		HighKeywords:       []string{"high", "maximum", "max"},
		LowKeywords:        []string{"low", "minimum", "min"},
		BuyKeywords:        []string{"BUY"},
		SellKeywords:       []string{"SELL"},
		DecimalComma:       false,
		CurrencyPrefix:     "$",
		DefaultSourceTitle: "Web source",
		FallbackAnalysis:   "Analysis based on real data found via web search.",
		DateLayout:         "01/02/2006",
		TimeZone:           "America/New_York",
		RecommendationLabels: map[Recommendation]string{
			RecommendationBuy:     "BUY",
			RecommendationSell:    "SELL",
			RecommendationHold:    "HOLD",
			RecommendationNeutral: "NEUTRAL",
		},
		RiskLabels: map[RiskLevel]string{
			RiskLow:    "LOW",
			RiskMedium: "MEDIUM",
			RiskHigh:   "HIGH",
		},
		Messages: LocaleMessages{
			InvalidTicker: "Please enter a valid ticker.",
			Configuration: "API configuration is missing.",
			Upstream:      "Could not fetch market data. Check the ticker and try again.",
			NoData:        "No data found for this ticker.",
			Superseded:    "Request superseded by a newer search.",
			NotFound:      "Record not found.",
			Internal:      "Internal error. Please try again later.",
		},
	}
}

// DefaultLocale returns the Brazilian Portuguese table.
func DefaultLocale() *Locale {
	return portugueseLocale()
}

// LookupLocale returns a built-in locale by name (case-insensitive).
func LookupLocale(name string) (*Locale, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "pt-br", "pt_br", "pt":
		return portugueseLocale(), nil
	case "en-us", "en_us", "en":
		return englishLocale(), nil
	default:
		return nil, fmt.Errorf("unsupported locale: %s", name)
	}
}

// LoadLocaleFile reads a YAML locale table. Fields left empty in the file
// inherit from the built-in locale named by the file's "name" key (pt-BR when
// absent), so an override file only has to list what it changes.
func LoadLocaleFile(path string) (*Locale, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locale file: %w", err)
	}
	return ParseLocale(data)
}

// ParseLocale parses a YAML locale table; see LoadLocaleFile.
func ParseLocale(data []byte) (*Locale, error) {
	var override Locale
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse locale: %w", err)
	}
	base, err := LookupLocale(override.Name)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse locale: %w", err)
	}
	if _, ok := raw["decimal_comma"]; ok {
		base.DecimalComma = override.DecimalComma
	}
	mergeLocale(base, &override)
	return base, nil
}

func mergeLocale(dst, src *Locale) {
	mergeStrings := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}
	mergeString := func(dst *string, src string) {
		if strings.TrimSpace(src) != "" {
			*dst = src
		}
	}

	mergeStrings(&dst.CurrentKeywords, src.CurrentKeywords)
	mergeStrings(&dst.HighKeywords, src.HighKeywords)
	mergeStrings(&dst.LowKeywords, src.LowKeywords)
	mergeStrings(&dst.BuyKeywords, src.BuyKeywords)
	mergeStrings(&dst.SellKeywords, src.SellKeywords)
	mergeString(&dst.CurrencyPrefix, src.CurrencyPrefix)
	mergeString(&dst.DefaultSourceTitle, src.DefaultSourceTitle)
	mergeString(&dst.FallbackAnalysis, src.FallbackAnalysis)
	mergeString(&dst.DateLayout, src.DateLayout)
	mergeString(&dst.TimeZone, src.TimeZone)

	for k, v := range src.RecommendationLabels {
		dst.RecommendationLabels[k] = v
	}
	for k, v := range src.RiskLabels {
		dst.RiskLabels[k] = v
	}

	mergeString(&dst.Messages.InvalidTicker, src.Messages.InvalidTicker)
	mergeString(&dst.Messages.Configuration, src.Messages.Configuration)
	mergeString(&dst.Messages.Upstream, src.Messages.Upstream)
	mergeString(&dst.Messages.NoData, src.Messages.NoData)
	mergeString(&dst.Messages.Superseded, src.Messages.Superseded)
	mergeString(&dst.Messages.NotFound, src.Messages.NotFound)
	mergeString(&dst.Messages.Internal, src.Messages.Internal)
}
