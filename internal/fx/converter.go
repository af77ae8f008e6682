package fx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Source records where a conversion rate came from.
type Source string

const (
	SourceIdentity Source = "identity"
	SourceLive     Source = "live"
	SourceCache    Source = "cache"
	SourceStale    Source = "stale"
	SourceStatic   Source = "static"
)

// Conversion is the result of converting an amount.
type Conversion struct {
	Amount    decimal.Decimal
	Rate      decimal.Decimal
	From      string
	To        string
	Source    Source
	FetchedAt time.Time // zero for identity and static
}

const defaultCacheSize = 32

// Options configures a Converter.
type Options struct {
	Source   RateSource
	CacheTTL time.Duration
	Static   StaticTable
	Logger   *log.Logger
}

// Converter resolves rates by trying, in order: identity, a fresh cached
// table, the live source (retried once), the last known table, then the
// static table.
type Converter struct {
	source RateSource
	cache  cache.Cache[RateTable]
	static StaticTable
	group  singleflight.Group
	logger *log.Logger
}

func NewConverter(opts Options) *Converter {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Converter{
		source: opts.Source,
		cache:  cache.NewLRUCache[RateTable](defaultCacheSize, ttl),
		static: opts.Static,
		logger: log.OrDiscard(opts.Logger).WithComponent(log.ComponentFX),
	}
}

// WithCache swaps the rate cache, mainly so tests can control its clock.
func (c *Converter) WithCache(rc cache.Cache[RateTable]) *Converter {
	c.cache = rc
	return c
}

func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (Conversion, error) {
	from, to = core.NormalizeCurrency(from), core.NormalizeCurrency(to)
	if err := core.ValidateCurrency(from); err != nil {
		return Conversion{}, err
	}
	if err := core.ValidateCurrency(to); err != nil {
		return Conversion{}, err
	}

	if from == to {
		return c.result(amount, decimal.NewFromInt(1), from, to, SourceIdentity, time.Time{}), nil
	}

	cached, haveCached := c.cache.Lookup(from)
	if haveCached && cached.Fresh {
		if rate, ok := cached.Value.Rate(to); ok {
			return c.result(amount, rate, from, to, SourceCache, cached.Value.FetchedAt), nil
		}
	}

	var liveErr error
	if c.source != nil {
		table, err := c.fetch(ctx, from)
		if err == nil {
			if rate, ok := table.Rate(to); ok {
				return c.result(amount, rate, from, to, SourceLive, table.FetchedAt), nil
			}
			liveErr = fmt.Errorf("rate service has no %s rate for %s", to, from)
		} else {
			liveErr = err
		}
		c.logger.WarnContext(ctx, "Live rate lookup failed, using fallback",
			log.FieldCurrency, from+":"+to,
			log.FieldError, liveErr)
	}

	if haveCached {
		if rate, ok := cached.Value.Rate(to); ok {
			return c.result(amount, rate, from, to, SourceStale, cached.Value.FetchedAt), nil
		}
	}

	if rate, ok := c.static.Lookup(from, to); ok {
		return c.result(amount, rate, from, to, SourceStatic, time.Time{}), nil
	}

	err := fmt.Errorf("%w: %s to %s", core.ErrConversionUnavailable, from, to)
	if liveErr != nil {
		err = errors.Join(err, liveErr)
	}
	return Conversion{}, err
}

// fetch collapses concurrent lookups of one base and retries once.
func (c *Converter) fetch(ctx context.Context, base string) (RateTable, error) {
	v, err, _ := c.group.Do(base, func() (interface{}, error) {
		var lastErr error
		for attempt := 0; attempt < 2; attempt++ {
			if err := ctx.Err(); err != nil {
				return RateTable{}, err
			}
			table, err := c.source.Latest(ctx, base)
			if err == nil {
				c.cache.Set(base, table)
				return table, nil
			}
			lastErr = err
			c.logger.DebugContext(ctx, "Rate fetch attempt failed",
				log.FieldCurrency, base,
				"attempt", attempt+1,
				log.FieldError, err)
		}
		return RateTable{}, lastErr
	})
	if err != nil {
		return RateTable{}, err
	}
	return v.(RateTable), nil
}

func (c *Converter) result(amount, rate decimal.Decimal, from, to string, src Source, fetchedAt time.Time) Conversion {
	return Conversion{
		Amount:    amount.Mul(rate).Round(core.MinorDigits),
		Rate:      rate,
		From:      from,
		To:        to,
		Source:    src,
		FetchedAt: fetchedAt,
	}
}
