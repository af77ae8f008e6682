// Package core holds the finance domain: transactions, budgets, dates and
// periods, amounts, report shapes and the error taxonomy shared by every
// adapter.
package core

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	// DateLayout is the on-disk and CLI representation of a Date.
	DateLayout = "2006-01-02"
	// PeriodLayout is the representation of a budget Period.
	PeriodLayout = "2006-01"

	MaxCategoryLen    = 64
	MaxDescriptionLen = 200

	// DefaultCurrency is used when a transaction does not name one.
	DefaultCurrency = "NPR"
)

type (
	// Kind tags a transaction as income or expense.
	Kind string

	// Date is a calendar date at midnight UTC.
	Date struct {
		time.Time
	}

	// Period is a calendar month, the granularity of budgets and trends.
	Period struct {
		Year  int
		Month time.Month
	}

	// DateRange is an inclusive range; a zero bound is open.
	DateRange struct {
		From Date
		To   Date
	}

	Transaction struct {
		ID          int64
		Date        Date
		Kind        Kind
		Category    string
		Description string
		Amount      decimal.Decimal // magnitude, never negative
		Currency    string
		CreatedAt   time.Time
	}

	Budget struct {
		Category  string
		Period    Period
		Limit     decimal.Decimal
		UpdatedAt time.Time
	}
)

// ParseKind accepts "income"/"expense" in any case.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	}
	return "", Invalid("kind", fmt.Sprintf("%q is not income or expense", s))
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

func (k Kind) String() string {
	return string(k)
}

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD and rejects impossible dates like 2025-02-30.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, Invalid("date", fmt.Sprintf("%q is not a YYYY-MM-DD date", s))
	}
	return Date{Time: t}, nil
}

// Today returns the current date in local time, as a UTC midnight Date.
func Today() Date {
	y, m, d := time.Now().Date()
	return NewDate(y, m, d)
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return Invalid("date", "date cannot be empty")
	}
	return nil
}

// Period returns the calendar month containing d.
func (d Date) Period() Period {
	return Period{Year: d.Year(), Month: d.Month()}
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

func NewPeriod(year int, month time.Month) Period {
	return Period{Year: year, Month: month}
}

// ParsePeriod parses YYYY-MM.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse(PeriodLayout, strings.TrimSpace(s))
	if err != nil {
		return Period{}, Invalid("period", fmt.Sprintf("%q is not a YYYY-MM month", s))
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// CurrentPeriod returns the month of Today.
func CurrentPeriod() Period {
	return Today().Period()
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

func (p Period) Validate() error {
	if p.Month < time.January || p.Month > time.December || p.Year < 1 {
		return Invalid("period", fmt.Sprintf("%q is not a valid month", p.String()))
	}
	return nil
}

// First returns the first day of the month.
func (p Period) First() Date {
	return NewDate(p.Year, p.Month, 1)
}

// Last returns the last day of the month.
func (p Period) Last() Date {
	return p.Next().First().AddDays(-1)
}

func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// Range returns the DateRange spanning the whole month.
func (p Period) Range() DateRange {
	return DateRange{From: p.First(), To: p.Last()}
}

// NewDateRange builds a range from optional YYYY-MM-DD strings; empty means open.
func NewDateRange(from, to string) (DateRange, error) {
	var r DateRange
	var err error
	if strings.TrimSpace(from) != "" {
		if r.From, err = ParseDate(from); err != nil {
			return DateRange{}, err
		}
	}
	if strings.TrimSpace(to) != "" {
		if r.To, err = ParseDate(to); err != nil {
			return DateRange{}, err
		}
	}
	return r, r.Validate()
}

// LastDays returns the range covering the n days ending today, like "last 30 days".
func LastDays(n int) DateRange {
	today := Today()
	return DateRange{From: today.AddDays(-(n - 1)), To: today}
}

func (r DateRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From.Time) {
		return Invalid("range", fmt.Sprintf("end %s is before start %s", r.To, r.From))
	}
	return nil
}

// IsOpen reports whether either bound is missing.
func (r DateRange) IsOpen() bool {
	return r.From.IsZero() || r.To.IsZero()
}

func (r DateRange) Contains(d Date) bool {
	if !r.From.IsZero() && d.Before(r.From.Time) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To.Time) {
		return false
	}
	return true
}

func (r DateRange) String() string {
	from, to := r.From.String(), r.To.String()
	switch {
	case from == "" && to == "":
		return "all time"
	case from == "":
		return "until " + to
	case to == "":
		return "from " + from
	}
	return from + " to " + to
}

// Signed returns the amount with income positive and expense negative.
func (t Transaction) Signed() decimal.Decimal {
	if t.Kind == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return Invalid("kind", fmt.Sprintf("%q is not income or expense", t.Kind))
	}
	if err := validateCategory(t.Category); err != nil {
		return err
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLen {
		return Invalid("description", fmt.Sprintf("too long (max %d characters)", MaxDescriptionLen))
	}
	if !t.Amount.IsPositive() {
		return Invalid("amount", "must be greater than zero")
	}
	if err := checkMagnitude("amount", t.Amount); err != nil {
		return err
	}
	if !t.Amount.Equal(t.Amount.Round(2)) {
		return Invalid("amount", "must have at most two decimal places")
	}
	if err := ValidateCurrency(t.Currency); err != nil {
		return err
	}
	return nil
}

func (b Budget) Validate() error {
	if err := validateCategory(b.Category); err != nil {
		return err
	}
	if err := b.Period.Validate(); err != nil {
		return err
	}
	if b.Limit.IsNegative() {
		return Invalid("limit", "cannot be negative")
	}
	if err := checkMagnitude("limit", b.Limit); err != nil {
		return err
	}
	if !b.Limit.Equal(b.Limit.Round(2)) {
		return Invalid("limit", "must have at most two decimal places")
	}
	return nil
}

// NormalizeCategory trims surrounding whitespace.
func NormalizeCategory(s string) string {
	return strings.TrimSpace(s)
}

// CategoryKey is the case-folded form every store and report compares
// categories by, so "Café" and "CAFÉ" are one category.
func CategoryKey(s string) string {
	return cases.Fold().String(NormalizeCategory(s))
}

func validateCategory(c string) error {
	if strings.TrimSpace(c) == "" {
		return Invalid("category", "cannot be empty")
	}
	if utf8.RuneCountInString(c) > MaxCategoryLen {
		return Invalid("category", fmt.Sprintf("too long (max %d characters)", MaxCategoryLen))
	}
	return nil
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidateCurrency accepts three ASCII letters.
func ValidateCurrency(code string) error {
	if len(code) != 3 {
		return Invalid("currency", fmt.Sprintf("%q is not a 3-letter code", code))
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return Invalid("currency", fmt.Sprintf("%q is not a 3-letter code", code))
		}
	}
	return nil
}
