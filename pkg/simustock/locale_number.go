package simustock

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseLocaleNumber parses a locale-formatted decimal such as "1.234,56"
// (decimalComma) or "1,234.56". Separator resolution:
//   - both "." and "," present: the last one is the decimal separator;
//   - one separator repeated: thousands grouping;
//   - one separator once: decimal, unless it is the locale's grouping
//     separator followed by exactly three digits ("1.234" in pt-BR).
func ParseLocaleNumber(raw string, decimalComma bool) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty number")
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	var decimalSep byte
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			decimalSep = ','
		} else {
			decimalSep = '.'
		}
	case lastComma >= 0:
		decimalSep = singleSeparatorRole(s, ',', lastComma, decimalComma)
	case lastDot >= 0:
		decimalSep = singleSeparatorRole(s, '.', lastDot, !decimalComma)
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '.' || ch == ',':
			if ch == decimalSep {
				b.WriteByte('.')
			}
		case ch >= '0' && ch <= '9', ch == '-' && i == 0, ch == '+' && i == 0:
			b.WriteByte(ch)
		default:
			return decimal.Zero, fmt.Errorf("invalid number %q", raw)
		}
	}

	value, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q: %w", raw, err)
	}
	return value, nil
}

// singleSeparatorRole decides whether sep, the only kind of separator in s,
// marks decimals (returns sep) or thousands (returns 0).
func singleSeparatorRole(s string, sep byte, last int, isLocaleDecimal bool) byte {
	if strings.Count(s, string(sep)) > 1 {
		return 0
	}
	if isLocaleDecimal {
		return sep
	}
	if len(s)-last-1 == 3 {
		return 0
	}
	return sep
}
