package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/models"
	"golang.org/x/time/rate"
)

// Client talks to the external quote source. All requests are paced by a
// limiter derived from the configured requests-per-second ceiling so scanners
// cannot blow the upstream rate budget.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client

	limiter  *rate.Limiter
	quoteTTL time.Duration
}

// ClientConfig holds configuration for the quote client.
type ClientConfig struct {
	BaseURL  string
	APIKey   string
	RPS      float64 // requests-per-second ceiling; <=0 means 2/s
	QuoteTTL time.Duration
	Timeout  time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.jup.ag/swap/v1"
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 2.0
	}
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 12 * time.Second
	}
	return &Client{
		BaseURL:  baseURL,
		APIKey:   strings.TrimSpace(cfg.APIKey),
		HTTP:     &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RPS), 1),
		quoteTTL: cfg.QuoteTTL,
	}
}

type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("jupiter http %d", e.StatusCode)
	}
	return fmt.Sprintf("jupiter http %d: %s", e.StatusCode, b)
}

// Quote fetches a priced route for "give amount of inputMint, receive
// outputMint" and converts it into a validated domain Quote.
func (c *Client) Quote(ctx context.Context, inputMint, outputMint string, amount uint64, maxSlippageBps uint16) (*models.Quote, error) {
	slip := maxSlippageBps
	resp, err := c.RawQuote(ctx, QuoteRequest{
		InputMint:   inputMint,
		OutputMint:  outputMint,
		Amount:      strconv.FormatUint(amount, 10),
		SlippageBps: &slip,
	})
	if err != nil {
		return nil, err
	}
	return c.toDomain(resp)
}

// RawQuote fetches the upstream quote payload without conversion. Used when
// the quote must later feed the swap-assembly endpoint verbatim.
func (c *Client) RawQuote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	if strings.TrimSpace(req.InputMint) == "" {
		return nil, fmt.Errorf("inputMint is required")
	}
	if strings.TrimSpace(req.OutputMint) == "" {
		return nil, fmt.Errorf("outputMint is required")
	}
	if strings.TrimSpace(req.Amount) == "" {
		return nil, fmt.Errorf("amount is required")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("inputMint", req.InputMint)
	q.Set("outputMint", req.OutputMint)
	q.Set("amount", req.Amount)

	if req.SlippageBps != nil {
		q.Set("slippageBps", fmt.Sprintf("%d", *req.SlippageBps))
	}
	if req.SwapMode != "" {
		q.Set("swapMode", req.SwapMode)
	}
	if len(req.Dexes) > 0 {
		q.Set("dexes", strings.Join(req.Dexes, ","))
	}
	if len(req.ExcludeDexes) > 0 {
		q.Set("excludeDexes", strings.Join(req.ExcludeDexes, ","))
	}
	if req.RestrictIntermediateTokens != nil {
		q.Set("restrictIntermediateTokens", fmt.Sprintf("%t", *req.RestrictIntermediateTokens))
	}
	if req.OnlyDirectRoutes != nil {
		q.Set("onlyDirectRoutes", fmt.Sprintf("%t", *req.OnlyDirectRoutes))
	}
	if req.MaxAccounts != nil {
		q.Set("maxAccounts", fmt.Sprintf("%d", *req.MaxAccounts))
	}

	u := c.BaseURL + "/quote?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("accept", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("x-api-key", c.APIKey)
	}

	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}

	var out QuoteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode jupiter quote response: %w", err)
	}
	return &out, nil
}

// Swap asks the quote source to assemble the base swap transaction for a raw
// quote. The returned payload is the base64-encoded unsigned transaction.
func (c *Client) Swap(ctx context.Context, req SwapRequest) (*SwapResponse, error) {
	if req.UserPublicKey == "" {
		return nil, fmt.Errorf("userPublicKey is required")
	}
	if req.QuoteResponse == nil {
		return nil, fmt.Errorf("quoteResponse is required")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal swap request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/swap", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("accept", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("x-api-key", c.APIKey)
	}

	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}

	var out SwapResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode jupiter swap response: %w", err)
	}
	if out.SwapTransaction == "" {
		return nil, fmt.Errorf("jupiter swap response missing transaction")
	}
	return &out, nil
}

func (c *Client) toDomain(resp *QuoteResponse) (*models.Quote, error) {
	inAmount, err := strconv.ParseUint(resp.InAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid inAmount %q: %w", resp.InAmount, err)
	}
	outAmount, err := strconv.ParseUint(resp.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid outAmount %q: %w", resp.OutAmount, err)
	}

	q, err := models.NewQuote(resp.InputMint, resp.OutputMint, inAmount, outAmount, resp.SlippageBps, c.quoteTTL)
	if err != nil {
		return nil, err
	}

	if resp.PriceImpactPct != "" {
		if impact, err := strconv.ParseFloat(resp.PriceImpactPct, 64); err == nil {
			q.PriceImpactPct = impact
		}
	}
	for _, step := range resp.RoutePlan {
		q.Route = append(q.Route, models.RouteStep{
			AmmKey:     step.SwapInfo.AmmKey,
			Label:      step.SwapInfo.Label,
			InputMint:  step.SwapInfo.InputMint,
			OutputMint: step.SwapInfo.OutputMint,
			FeeBps:     step.Bps,
		})
	}
	return q, nil
}
