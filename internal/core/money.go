package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MinorDigits is the number of decimal places kept for every amount.
// Storage keeps amounts as integer minor units (paisa, cents).
const MinorDigits = 2

// MaxAmount bounds amounts and limits so their minor units fit in an int64.
var MaxAmount = decimal.New(1, 15)

// ParseAmount converts a decimal string to a rounded decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional leading sign. Values are rounded half away from zero to two places.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,34")  -> 12.34
//	ParseAmount("-200")   -> -200.00
//	ParseAmount("1.005")  -> 1.01
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, Invalid("amount", "cannot be empty")
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, Invalid("amount", fmt.Sprintf("%q is not a number", s))
	}
	return d.Round(MinorDigits), nil
}

// ToMinor converts an amount to integer minor units. Values outside int64
// are a validation error.
func ToMinor(d decimal.Decimal) (int64, error) {
	minor := d.Round(MinorDigits).Shift(MinorDigits).BigInt()
	if !minor.IsInt64() {
		return 0, Invalid("amount", fmt.Sprintf("%s is out of range", FormatAmount(d)))
	}
	return minor.Int64(), nil
}

// checkMagnitude rejects amounts above MaxAmount.
func checkMagnitude(field string, d decimal.Decimal) error {
	if d.Abs().GreaterThan(MaxAmount) {
		return Invalid(field, fmt.Sprintf("cannot exceed %s", MaxAmount.String()))
	}
	return nil
}

// FromMinor converts integer minor units back to an amount.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -MinorDigits)
}

// FormatAmount renders an amount with exactly two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(MinorDigits)
}

// ResolveAmount applies the sign rules for a caller-supplied amount.
// With no kind the sign decides; an expense may be given as a negative
// number; a negative income is inconsistent. It returns the magnitude.
func ResolveAmount(amount decimal.Decimal, kind Kind) (decimal.Decimal, Kind, error) {
	amount = amount.Round(MinorDigits)
	if amount.IsZero() {
		return decimal.Zero, kind, Invalid("amount", "must not be zero")
	}
	if kind == "" {
		if amount.IsNegative() {
			return amount.Abs(), Expense, nil
		}
		return amount, Income, nil
	}
	if !kind.Valid() {
		return decimal.Zero, kind, Invalid("kind", fmt.Sprintf("%q is not income or expense", kind))
	}
	if amount.IsNegative() && kind == Income {
		return decimal.Zero, kind, Invalid("amount", "income cannot be negative")
	}
	return amount.Abs(), kind, nil
}

// NewTransaction builds a validated transaction from caller input.
func NewTransaction(date Date, amount decimal.Decimal, kind Kind, category, description, currency string) (Transaction, error) {
	magnitude, kind, err := ResolveAmount(amount, kind)
	if err != nil {
		return Transaction{}, err
	}
	currency = NormalizeCurrency(currency)
	if currency == "" {
		currency = DefaultCurrency
	}
	t := Transaction{
		Date:        date,
		Kind:        kind,
		Category:    NormalizeCategory(category),
		Description: strings.TrimSpace(description),
		Amount:      magnitude,
		Currency:    currency,
	}
	if err := t.Validate(); err != nil {
		return Transaction{}, err
	}
	return t, nil
}
