// Package fx converts amounts between currencies using a live rate
// service, a TTL cache of rate tables and a configured static table.
package fx

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// RateTable holds the rates from one base currency, as returned by the
// rate service.
type RateTable struct {
	Base      string
	Date      string
	Rates     map[string]decimal.Decimal
	FetchedAt time.Time
}

// Rate returns the rate from the table's base to code.
func (t RateTable) Rate(code string) (decimal.Decimal, bool) {
	r, ok := t.Rates[code]
	if !ok || !r.IsPositive() {
		return decimal.Zero, false
	}
	return r, true
}

type pair struct{ from, to string }

// StaticTable is the last-resort set of fixed rates.
type StaticTable map[pair]decimal.Decimal

// ParseStaticRates parses "INR:NPR=1.6,USD:NPR=133.5". Each pair also
// yields its inverse unless the inverse is listed explicitly.
func ParseStaticRates(s string) (StaticTable, error) {
	table := StaticTable{}
	explicit := map[pair]bool{}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		codes, value, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("static rate %q: missing '='", item)
		}
		from, to, ok := strings.Cut(codes, ":")
		if !ok {
			return nil, fmt.Errorf("static rate %q: want FROM:TO=RATE", item)
		}
		from, to = core.NormalizeCurrency(from), core.NormalizeCurrency(to)
		if err := core.ValidateCurrency(from); err != nil {
			return nil, fmt.Errorf("static rate %q: %w", item, err)
		}
		if err := core.ValidateCurrency(to); err != nil {
			return nil, fmt.Errorf("static rate %q: %w", item, err)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil || !rate.IsPositive() {
			return nil, fmt.Errorf("static rate %q: rate must be a positive number", item)
		}

		p := pair{from, to}
		table[p] = rate
		explicit[p] = true
		inv := pair{to, from}
		if !explicit[inv] {
			table[inv] = decimal.NewFromInt(1).DivRound(rate, 8)
		}
	}
	return table, nil
}

// Lookup returns the fixed rate for from→to.
func (s StaticTable) Lookup(from, to string) (decimal.Decimal, bool) {
	r, ok := s[pair{from, to}]
	return r, ok
}

// String lists pairs in a stable order.
func (s StaticTable) String() string {
	items := make([]string, 0, len(s))
	for p, r := range s {
		items = append(items, fmt.Sprintf("%s:%s=%s", p.from, p.to, r.String()))
	}
	sort.Strings(items)
	return strings.Join(items, ",")
}
