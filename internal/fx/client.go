package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultAPIURL is the exchangerate-api v4 endpoint; the base code is appended.
const DefaultAPIURL = "https://api.exchangerate-api.com/v4/latest/"

// RateSource fetches the current rate table for a base currency.
type RateSource interface {
	Latest(ctx context.Context, base string) (RateTable, error)
}

// HTTPClient reads rates from an exchangerate-api compatible service.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// NewHTTPClient creates a client; an empty baseURL uses DefaultAPIURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// HTTPError is a non-200 answer from the rate service.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("rate service returned %d: %s", e.StatusCode, e.Body)
}

type latestResponse struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

func (c *HTTPClient) Latest(ctx context.Context, base string) (RateTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+base, nil)
	if err != nil {
		return RateTable{}, fmt.Errorf("build rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return RateTable{}, fmt.Errorf("fetch rates for %s: %w", base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return RateTable{}, &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var payload latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return RateTable{}, fmt.Errorf("decode rates for %s: %w", base, err)
	}
	if len(payload.Rates) == 0 {
		return RateTable{}, fmt.Errorf("decode rates for %s: empty rate table", base)
	}

	rates := make(map[string]decimal.Decimal, len(payload.Rates))
	for code, r := range payload.Rates {
		rates[strings.ToUpper(code)] = r
	}
	return RateTable{
		Base:      base,
		Date:      payload.Date,
		Rates:     rates,
		FetchedAt: c.now().UTC(),
	}, nil
}

var _ RateSource = (*HTTPClient)(nil)
