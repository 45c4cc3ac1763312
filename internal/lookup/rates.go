package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrRateUnavailable means no USD conversion rate could be obtained. A
// sale is never announced without a price, so callers abort silently.
var ErrRateUnavailable = errors.New("usd conversion rate unavailable")

const rateCacheTTL = 1 * time.Hour

// RateProvider resolves the current USD price of the native asset.
type RateProvider interface {
	UsdPerEth(ctx context.Context) (decimal.Decimal, error)
}

// CachedRates wraps the fiat rate API with a process-wide 1h cache. The
// refresh runs under a mutex so concurrent processors trigger at most one
// upstream fetch.
type CachedRates struct {
	url        string
	httpClient *http.Client
	ttl        time.Duration
	now        func() time.Time

	mu        sync.Mutex
	rate      decimal.Decimal
	fetchedAt time.Time
}

func NewCachedRates(url string) *CachedRates {
	return &CachedRates{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		ttl:        rateCacheTTL,
		now:        time.Now,
	}
}

func (c *CachedRates) UsdPerEth(ctx context.Context) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.rate, nil
	}

	rate, err := c.fetch(ctx)
	if err != nil {
		zap.L().Warn("Failed to refresh USD rate", zap.Error(err))
		return decimal.Zero, ErrRateUnavailable
	}

	c.rate = rate
	c.fetchedAt = c.now()
	return c.rate, nil
}

func (c *CachedRates) fetch(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate API status %d", resp.StatusCode)
	}

	var body struct {
		Ethereum struct {
			Usd float64 `json:"usd"`
		} `json:"ethereum"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode rate response: %w", err)
	}
	if body.Ethereum.Usd <= 0 {
		return decimal.Zero, fmt.Errorf("rate API returned %v", body.Ethereum.Usd)
	}
	return decimal.NewFromFloat(body.Ethereum.Usd), nil
}
