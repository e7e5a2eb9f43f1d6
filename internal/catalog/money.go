package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	ErrInvalidPrice  = errors.New("catalog: invalid price")
	ErrInvalidWeight = errors.New("catalog: invalid weight")
)

var hundred = decimal.NewFromInt(100)

// ParsePriceCents converts "1,299.95", "$12" or "A$12" into minor units, rounding half away
// from zero.
func ParsePriceCents(value string) (int64, error) {
	cleaned := strings.NewReplacer("A$", "", "a$", "", "$", "", ",", "", " ", "", "AUD", "", "aud", "").Replace(strings.TrimSpace(value))
	if cleaned == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, value)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidPrice, value)
	}
	return d.Mul(hundred).Round(0).IntPart(), nil
}

var gramsPerUnit = map[string]decimal.Decimal{
	"":   decimal.NewFromInt(1),
	"g":  decimal.NewFromInt(1),
	"kg": decimal.NewFromInt(1000),
	"lb": decimal.RequireFromString("453.59237"),
	"oz": decimal.RequireFromString("28.349523125"),
}

// ParseWeightGrams converts a weight in the given unit (g, kg, lb, oz) to whole grams.
func ParseWeightGrams(value, unit string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	factor, ok := gramsPerUnit[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidWeight, unit)
	}
	d, err := decimal.NewFromString(value)
	if err != nil || d.IsNegative() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeight, value)
	}
	return int(d.Mul(factor).Round(0).IntPart()), nil
}

// FormatMoney renders minor units for display, e.g. "A$1,299.95" for AUD.
func FormatMoney(cents int64, code string) string {
	amount := decimal.New(cents, -2)
	unit, err := currency.ParseISO(code)
	if err != nil {
		return strings.TrimSpace(code + " " + amount.StringFixed(2))
	}
	value, _ := amount.Float64()
	p := message.NewPrinter(language.English)
	return p.Sprint(currency.Symbol(unit)) + p.Sprintf("%.2f", value)
}

// CentsString renders minor units as a plain decimal string ("12.50").
func CentsString(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// IncludedTax returns the tax component contained in a tax-inclusive amount:
// round(amount × rate / (1 + rate)).
func IncludedTax(amountCents int64, rate float64) int64 {
	if rate <= 0 || amountCents == 0 {
		return 0
	}
	r := decimal.NewFromFloat(rate)
	tax := decimal.NewFromInt(amountCents).Mul(r).Div(decimal.NewFromInt(1).Add(r))
	return tax.Round(0).IntPart()
}
