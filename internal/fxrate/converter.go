package fxrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrConversionFailed = errors.New("fx_conversion_failed")
	ErrInvalidCurrency  = errors.New("invalid_currency")
)

// Service converts integer minor-unit amounts between currencies.
type Service interface {
	Convert(ctx context.Context, amount int64, from, to string) (int64, error)
}

type rateResponse struct {
	Result float64 `json:"result"`
	Info   struct {
		Rate float64 `json:"rate"`
	} `json:"info"`
}

type cachedRate struct {
	rate      float64
	fetchedAt time.Time
}

// Converter calls an exchangerate-style /convert endpoint and caches the rate
// per currency pair for a bounded TTL.
type Converter struct {
	endpoint string
	apiKey   string
	client   *http.Client
	cacheTTL time.Duration
	log      *zap.Logger

	mu    sync.Mutex
	cache map[string]cachedRate
}

func NewConverter(endpoint, apiKey string, timeout, cacheTTL time.Duration, log *zap.Logger) *Converter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &Converter{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		cacheTTL: cacheTTL,
		log:      log.Named("fxrate"),
		cache:    map[string]cachedRate{},
	}
}

func (c *Converter) Convert(ctx context.Context, amount int64, from, to string) (int64, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" {
		return 0, ErrInvalidCurrency
	}
	if from == to {
		return amount, nil
	}

	rate, err := c.rate(ctx, from, to)
	if err != nil {
		return 0, err
	}

	return int64(math.Floor(float64(amount) * rate)), nil
}

func (c *Converter) rate(ctx context.Context, from, to string) (float64, error) {
	key := from + ":" + to

	c.mu.Lock()
	cached, ok := c.cache[key]
	c.mu.Unlock()
	if ok && time.Since(cached.fetchedAt) < c.cacheTTL {
		return cached.rate, nil
	}

	rate, err := c.fetchRate(ctx, from, to)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.cache[key] = cachedRate{rate: rate, fetchedAt: time.Now()}
	c.mu.Unlock()

	return rate, nil
}

func (c *Converter) fetchRate(ctx context.Context, from, to string) (float64, error) {
	query := url.Values{}
	query.Set("from", from)
	query.Set("to", to)
	// Convert one whole unit; the response carries the pair rate.
	query.Set("amount", "1")
	if c.apiKey != "" {
		query.Set("access_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/convert?"+query.Encode(), nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d", ErrConversionFailed, resp.StatusCode)
	}

	var parsed rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}

	rate := parsed.Info.Rate
	if rate == 0 {
		rate = parsed.Result
	}
	if rate <= 0 {
		return 0, ErrConversionFailed
	}
	return rate, nil
}
