// Package odds converts between American and decimal odds quotations and
// classifies raw user input into one of the two formats.
//
// The classification rule is syntactic, not value-based: input is American
// if and only if its first character is '+' or '-'. "150" is decimal 150.0,
// never American +150.
//
// All arithmetic uses shopspring/decimal — never float64 for money.
package odds

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/neurobet/neurobet/internal/model"
)

// ErrInvalidOdds is returned for unparseable or out-of-domain odds values:
// zero American odds, or decimal odds <= 1.0 for the reverse conversion.
var ErrInvalidOdds = errors.New("odds: invalid odds value")

// Scale is the number of decimal places kept on converted decimal odds.
const Scale int32 = 4

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// AmericanToDecimal converts an American quotation (-120, +150) to decimal
// odds (1.8333, 2.5), rounded to Scale places.
//
//	odd < 0:  1 + 100/|odd|
//	odd > 0:  1 + odd/100
//
// Zero is not a valid American odd.
func AmericanToDecimal(odd decimal.Decimal) (decimal.Decimal, error) {
	if odd.IsZero() {
		return decimal.Zero, ErrInvalidOdds
	}
	if odd.IsNegative() {
		return one.Add(hundred.DivRound(odd.Abs(), Scale+2)).Round(Scale), nil
	}
	return one.Add(odd.DivRound(hundred, Scale+2)).Round(Scale), nil
}

// DecimalToAmerican converts decimal odds to the American convention,
// rounded to a whole number.
//
//	odd >= 2.0:  (odd - 1) * 100   (non-negative, displayed with "+")
//	odd <  2.0:  -100 / (odd - 1)
//
// Decimal odds <= 1.0 carry no representable profit and are rejected.
func DecimalToAmerican(odd decimal.Decimal) (decimal.Decimal, error) {
	if odd.LessThanOrEqual(one) {
		return decimal.Zero, ErrInvalidOdds
	}
	if odd.GreaterThanOrEqual(decimal.NewFromInt(2)) {
		return odd.Sub(one).Mul(hundred).Round(0), nil
	}
	return hundred.Neg().DivRound(odd.Sub(one), 6).Round(0), nil
}

// ParseInput classifies a textual odd and returns the normalized decimal
// odds alongside the format that was applied. The original text (trimmed)
// is what callers should preserve for display.
func ParseInput(input string) (dec decimal.Decimal, format model.OddsFormat, err error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return decimal.Zero, "", ErrInvalidOdds
	}

	if s[0] == '+' || s[0] == '-' {
		american, perr := decimal.NewFromString(s)
		if perr != nil {
			return decimal.Zero, "", ErrInvalidOdds
		}
		dec, err = AmericanToDecimal(american)
		if err != nil {
			return decimal.Zero, "", err
		}
		return dec, model.FormatAmerican, nil
	}

	dec, perr := decimal.NewFromString(s)
	if perr != nil {
		return decimal.Zero, "", ErrInvalidOdds
	}
	if dec.LessThanOrEqual(one) {
		return decimal.Zero, "", ErrInvalidOdds
	}
	return dec.Round(Scale), model.FormatDecimal, nil
}

// FormatForDisplay renders decimal odds in the user's preferred format.
// American odds get their conventional "+" prefix when non-negative.
func FormatForDisplay(dec decimal.Decimal, format model.OddsFormat) string {
	if format == model.FormatAmerican {
		american, err := DecimalToAmerican(dec)
		if err == nil {
			if american.IsNegative() {
				return american.String()
			}
			return "+" + american.String()
		}
	}
	return dec.String()
}
