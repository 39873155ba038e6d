package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/constants"
	"github.com/sirupsen/logrus"
)

// Service is the single reference-price source for fiat conversion. Every
// component that converts base-asset profit into USD goes through here, so
// there is exactly one answer for "what is SOL worth" at any moment.
type Service struct {
	url    string
	ttl    time.Duration
	http   *http.Client
	logger *logrus.Logger

	mu        sync.RWMutex
	price     float64
	fetchedAt time.Time
}

// Config holds configuration for the price service.
type Config struct {
	URL     string
	TTL     time.Duration
	Timeout time.Duration
	Logger  *logrus.Logger
}

func NewService(cfg Config) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 60 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Service{
		url:    cfg.URL,
		ttl:    cfg.TTL,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: cfg.Logger,
		// Placeholder until the first successful fetch; kept explicit rather
		// than scattered through the strategies.
		price: constants.FallbackSOLPriceUSD,
	}
}

// SOLPrice returns the cached SOL/USD price, refreshing when stale. A failed
// refresh keeps serving the last known value.
func (s *Service) SOLPrice(ctx context.Context) float64 {
	s.mu.RLock()
	price, fetchedAt := s.price, s.fetchedAt
	s.mu.RUnlock()

	if time.Since(fetchedAt) < s.ttl {
		return price
	}

	fresh, err := s.fetch(ctx)
	if err != nil {
		s.logger.WithError(err).Debug("price refresh failed, serving cached value")
		return price
	}

	s.mu.Lock()
	s.price = fresh
	s.fetchedAt = time.Now()
	s.mu.Unlock()
	return fresh
}

// SetPrice overrides the cached price. Used by tests and by the redis bridge
// when another process already fetched a fresher value.
func (s *Service) SetPrice(price float64) {
	if price <= 0 {
		return
	}
	s.mu.Lock()
	s.price = price
	s.fetchedAt = time.Now()
	s.mu.Unlock()
}

func (s *Service) fetch(ctx context.Context) (float64, error) {
	if s.url == "" {
		return 0, fmt.Errorf("no price feed URL configured")
	}

	u := s.url + "?ids=" + constants.TokenMints["SOL"]
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("accept", "application/json")

	res, err := s.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price feed http %d", res.StatusCode)
	}

	var out struct {
		Data map[string]struct {
			Price string `json:"price"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("failed to decode price response: %w", err)
	}

	entry, ok := out.Data[constants.TokenMints["SOL"]]
	if !ok {
		return 0, fmt.Errorf("price response missing SOL entry")
	}
	price, err := strconv.ParseFloat(entry.Price, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("invalid price %q", entry.Price)
	}
	return price, nil
}
