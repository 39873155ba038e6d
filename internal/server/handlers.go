package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/cache"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/executor"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/flags"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/positions"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/pricefeed"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/rpc"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Endpoints *rpc.Manager       // Failover-aware endpoint manager
	Tracker   *positions.Tracker // In-memory position tracker
	Executor  *executor.Executor // For breaker and inflight visibility
	Prices    *pricefeed.Service // Reference-price service
	Cache     *cache.RedisCache  // Recent opportunities/trades (optional)
	Flags     *flags.Store       // Operator control flags (optional)
	DevMode   bool               // Enable detailed error responses in development
	Logger    *logrus.Logger     // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// Status returns an engine-wide snapshot: active endpoint, exposure, P&L and
// risk-control state.
func (h *Handlers) Status(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	resp := StatusResponse{
		SOLPriceUSD:     h.Prices.SOLPrice(ctx),
		OpenPositions:   h.Tracker.OpenCount(),
		OpenExposureSOL: h.Tracker.OpenExposure(),
		RealizedPnLSOL:  h.Tracker.RealizedPnL(),
	}
	if active, err := h.Endpoints.Active(); err == nil {
		resp.ActiveEndpoint = active.Name
	}
	if h.Executor != nil {
		now := time.Now()
		resp.InflightTrades = h.Executor.InflightCount()
		resp.BreakerTripped = h.Executor.Breaker().Tripped()
		resp.ConsecutiveFailures = h.Executor.Breaker().ConsecutiveFailures()
		resp.DailyNetLossSOL = h.Executor.DailyLoss().NetLossSOL(now)
	}
	return c.JSON(http.StatusOK, resp)
}

// Positions returns open positions and recently closed history
func (h *Handlers) Positions(c echo.Context) error {
	limit := 50
	if s := c.QueryParam("closed_limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > constants.MaxClosedPositions {
			return h.err(c, http.StatusBadRequest, "invalid closed_limit", nil)
		}
		limit = n
	}

	return c.JSON(http.StatusOK, PositionsResponse{
		Open:   h.Tracker.Snapshot(),
		Closed: h.Tracker.ClosedHistory(limit),
	})
}

// RecentOpportunities returns the most recent scanned opportunities
// Accepts limit query parameter (default: 100)
func (h *Handlers) RecentOpportunities(c echo.Context) error {
	if h.Cache == nil {
		return h.err(c, http.StatusServiceUnavailable, "cache is not configured", nil)
	}

	limit, err := parseLimit(c.QueryParam("limit"), constants.MaxRecentOpportunities)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid limit", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Cache.GetRecentOpportunities(ctx, limit)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get opportunities", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// RecentTrades returns the most recent execution attempts
func (h *Handlers) RecentTrades(c echo.Context) error {
	if h.Cache == nil {
		return h.err(c, http.StatusServiceUnavailable, "cache is not configured", nil)
	}

	limit, err := parseLimit(c.QueryParam("limit"), constants.MaxRecentTrades)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid limit", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Cache.GetRecentTrades(ctx, limit)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get trades", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func parseLimit(s string, max int) (int64, error) {
	if s == "" {
		return int64(max), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > max {
		return 0, errors.New("out of range")
	}
	return int64(n), nil
}

// FlagsUpsert creates or updates an operator flag with the given key and value
func (h *Handlers) FlagsUpsert(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	var req FlagUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := flags.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, req.Key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to upsert flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsGet retrieves an operator flag by its key
// Returns 404 if flag doesn't exist
func (h *Handlers) FlagsGet(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	if err != nil {
		if errors.Is(err, flags.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "flag not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsList returns all operator flags
func (h *Handlers) FlagsList(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list flags", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsDelete removes an operator flag by its key
// Returns 204 No Content on successful deletion
func (h *Handlers) FlagsDelete(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete flag", nil)
	}
	return c.NoContent(http.StatusNoContent)
}
