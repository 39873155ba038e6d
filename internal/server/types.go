package server

import "github.com/aman-zulfiqar/solana-arb-engine/internal/models"

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK bool `json:"ok"` // Service health status
}

// StatusResponse is the engine-wide status snapshot
type StatusResponse struct {
	ActiveEndpoint      string  `json:"active_endpoint"`
	SOLPriceUSD         float64 `json:"sol_price_usd"`
	OpenPositions       int     `json:"open_positions"`
	OpenExposureSOL     float64 `json:"open_exposure_sol"`
	InflightTrades      int     `json:"inflight_trades"`
	RealizedPnLSOL      float64 `json:"realized_pnl_sol"`
	DailyNetLossSOL     float64 `json:"daily_net_loss_sol"`
	BreakerTripped      bool    `json:"breaker_tripped"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
}

// PositionsResponse lists open and recently closed positions
type PositionsResponse struct {
	Open   []*models.Position       `json:"open"`
	Closed []*models.ClosedPosition `json:"closed"`
}

// FlagUpsertRequest represents a request to create or update an operator flag
type FlagUpsertRequest struct {
	Key   string `json:"key"`   // Flag key (must match regex pattern)
	Value bool   `json:"value"` // Flag value (true/false)
}

// FlagUpdateRequest represents a request to update an existing operator flag
type FlagUpdateRequest struct {
	Value bool `json:"value"` // New flag value
}
