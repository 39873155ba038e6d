package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/positions"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/pricefeed"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/rpc"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func testHandlers(t *testing.T) *Handlers {
	t.Helper()
	logger := quietLogger()

	mgr, err := rpc.NewManager(rpc.ManagerConfig{
		Primary: rpc.NewClient(rpc.ClientConfig{BaseURL: "http://127.0.0.1:0", Logger: logger}),
		Logger:  logger,
	})
	require.NoError(t, err)

	prices := pricefeed.NewService(pricefeed.Config{Logger: logger})
	prices.SetPrice(150)

	return &Handlers{
		Endpoints: mgr,
		Tracker:   positions.NewTracker(logger),
		Prices:    prices,
		Logger:    logger,
	}
}

func doRequest(t *testing.T, h *Handlers, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	RegisterRoutes(e, h, ServerConfig{})

	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doRequest(t, testHandlers(t), http.MethodGet, "/v1/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
}

func TestStatus(t *testing.T) {
	h := testHandlers(t)
	h.Tracker.Open("trade-1", "cyclic", "JUP", 0.25, 150)

	rec := doRequest(t, h, http.MethodGet, "/v1/status")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "primary", resp.ActiveEndpoint)
	assert.InDelta(t, 150.0, resp.SOLPriceUSD, 1e-9)
	assert.Equal(t, 1, resp.OpenPositions)
	assert.InDelta(t, 0.25, resp.OpenExposureSOL, 1e-9)
	assert.False(t, resp.BreakerTripped)
}

func TestPositions(t *testing.T) {
	h := testHandlers(t)
	h.Tracker.Open("trade-1", "cyclic", "JUP", 0.1, 150)
	h.Tracker.Open("trade-2", "triangular", "RAY", 0.2, 150)
	h.Tracker.Close("trade-2", 0.21, 150)

	rec := doRequest(t, h, http.MethodGet, "/v1/positions")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp PositionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Open, 1)
	assert.Equal(t, "trade-1", resp.Open[0].TradeID)
	require.Len(t, resp.Closed, 1)
	assert.InDelta(t, 0.01, resp.Closed[0].RealizedPnL, 1e-9)
}

func TestPositions_RejectsBadLimit(t *testing.T) {
	rec := doRequest(t, testHandlers(t), http.MethodGet, "/v1/positions?closed_limit=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecentEndpoints_WithoutCache(t *testing.T) {
	h := testHandlers(t)
	for _, target := range []string{"/v1/opportunities/recent", "/v1/trades/recent"} {
		rec := doRequest(t, h, http.MethodGet, target)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
	}
}

func TestFlags_WithoutStore(t *testing.T) {
	rec := doRequest(t, testHandlers(t), http.MethodGet, "/v1/flags")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	rec := doRequest(t, testHandlers(t), http.MethodGet, "/v1/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAPIKeyAuth(t *testing.T) {
	h := testHandlers(t)
	e := echo.New()
	RegisterRoutes(e, h, ServerConfig{APIKey: "secret"})

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNoCacheHeaders(t *testing.T) {
	rec := doRequest(t, testHandlers(t), http.MethodGet, "/v1/health")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

// The status handler bounds its own work even when the request context has no
// deadline.
func TestWithTimeoutDefaults(t *testing.T) {
	h := testHandlers(t)
	ctx, cancel := h.withTimeout(context.Background(), 0)
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(10*time.Second), deadline, time.Second)
}
