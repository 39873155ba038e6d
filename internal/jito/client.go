package jito

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Bundle statuses as reported by the block engine.
const (
	StatusPending = "pending"
	StatusLanded  = "landed"
	StatusFailed  = "failed"
	StatusDropped = "dropped"
)

// ErrBundleDropped is returned when a bundle does not land within the
// configured wait ceiling. Dropped bundles are not retried.
var ErrBundleDropped = fmt.Errorf("bundle dropped: landing wait ceiling elapsed")

// Client submits transaction bundles to a Jito block engine over its
// JSON-RPC API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger

	pollInterval time.Duration
}

type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	Logger  *logrus.Logger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("jito: base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		logger:       cfg.Logger,
		pollInterval: 2 * time.Second,
	}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SubmitBundle sends base64-encoded transactions for atomic, ordered
// inclusion and returns the bundle ID. The tip transfer must already be part
// of one of the transactions.
func (c *Client) SubmitBundle(ctx context.Context, encodedTxs []string) (string, error) {
	if len(encodedTxs) == 0 {
		return "", fmt.Errorf("jito: empty bundle")
	}

	var resp struct {
		Result string    `json:"result"`
		Error  *rpcError `json:"error"`
	}
	params := []any{encodedTxs, map[string]string{"encoding": "base64"}}
	if err := c.call(ctx, "sendBundle", params, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("jito: sendBundle failed: %s (code %d)", resp.Error.Message, resp.Error.Code)
	}
	if resp.Result == "" {
		return "", fmt.Errorf("jito: sendBundle returned empty bundle id")
	}

	c.logger.WithFields(logrus.Fields{
		"bundle_id": resp.Result,
		"txs":       len(encodedTxs),
	}).Info("bundle submitted")

	return resp.Result, nil
}

// BundleStatus reports where a previously submitted bundle stands.
func (c *Client) BundleStatus(ctx context.Context, bundleID string) (string, error) {
	var resp struct {
		Result struct {
			Value []struct {
				BundleID           string `json:"bundle_id"`
				ConfirmationStatus string `json:"confirmation_status"`
				Err                any    `json:"err"`
			} `json:"value"`
		} `json:"result"`
		Error *rpcError `json:"error"`
	}

	params := []any{[]string{bundleID}}
	if err := c.call(ctx, "getBundleStatuses", params, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("jito: getBundleStatuses failed: %s (code %d)", resp.Error.Message, resp.Error.Code)
	}
	if len(resp.Result.Value) == 0 {
		return StatusPending, nil
	}

	entry := resp.Result.Value[0]
	if !bundleErrIsOk(entry.Err) {
		return StatusFailed, nil
	}
	switch entry.ConfirmationStatus {
	case "confirmed", "finalized":
		return StatusLanded, nil
	case "processed", "":
		return StatusPending, nil
	default:
		return StatusPending, nil
	}
}

// bundleErrIsOk tolerates the engine's two success encodings: a null err or
// the {"Ok": null} variant.
func bundleErrIsOk(err any) bool {
	if err == nil {
		return true
	}
	if m, ok := err.(map[string]any); ok {
		if v, present := m["Ok"]; present && v == nil && len(m) == 1 {
			return true
		}
	}
	return false
}

// WaitForLanding polls the bundle status until it lands, fails, or the wait
// ceiling elapses. A bundle still pending at the ceiling is treated as
// dropped, never retried.
func (c *Client) WaitForLanding(ctx context.Context, bundleID string, ceiling time.Duration) (string, error) {
	deadline := time.Now().Add(ceiling)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.BundleStatus(ctx, bundleID)
		if err != nil {
			c.logger.WithError(err).WithField("bundle_id", bundleID).Warn("bundle status check failed")
		} else if status == StatusLanded || status == StatusFailed {
			return status, nil
		}

		if time.Now().After(deadline) {
			c.logger.WithField("bundle_id", bundleID).Warn("bundle landing wait ceiling elapsed")
			return StatusDropped, ErrBundleDropped
		}

		select {
		case <-ctx.Done():
			return StatusDropped, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	payload, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("jito: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bundles", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("jito: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("jito: %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("jito: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jito: %s returned status %d: %s", method, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("jito: decode response: %w", err)
	}
	return nil
}
