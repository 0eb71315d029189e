package simustock

import (
	"strings"
	"unicode/utf8"
)

// MinTickerLength is the shortest accepted ticker, in runes.
const MinTickerLength = 3

// ErrMsgTooShort is the message carried by the validation error for short tickers.
const ErrMsgTooShort = "too_short"

var defaultPresets = []Ticker{
	"PETR4", "VALE3", "ITUB4", "BBDC4", "BBAS3",
	"MGLU3", "WEGE3", "ABEV3", "B3SA3", "RENT3",
}

// ValidateTicker trims and uppercases raw. Any string of at least
// MinTickerLength runes is accepted; whether the symbol exists is left to
// the upstream service.
func ValidateTicker(raw string) (Ticker, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if utf8.RuneCountInString(normalized) < MinTickerLength {
		return "", NewError(ErrCodeValidation, ErrMsgTooShort)
	}
	return Ticker(normalized), nil
}

// DefaultPresets returns the quick-select ticker list.
func DefaultPresets() []Ticker {
	out := make([]Ticker, len(defaultPresets))
	copy(out, defaultPresets)
	return out
}
