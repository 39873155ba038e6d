package simulator

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/models"
	projectrpc "github.com/aman-zulfiqar/solana-arb-engine/internal/rpc"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// Simulator dry-runs assembled transactions before any capital is committed.
type Simulator struct {
	rpc     *projectrpc.Manager
	logger  *logrus.Logger
	timeout time.Duration
}

// Config holds configuration for the simulator.
type Config struct {
	RPC     *projectrpc.Manager
	Logger  *logrus.Logger
	Timeout time.Duration
}

func NewSimulator(cfg Config) (*Simulator, error) {
	if cfg.RPC == nil {
		return nil, fmt.Errorf("simulator: RPC manager is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Simulator{rpc: cfg.RPC, logger: cfg.Logger, timeout: cfg.Timeout}, nil
}

// Simulate performs a non-committing dry run. The node replaces the
// transaction's embedded blockhash with the current one so a stale reference
// cannot produce a false negative, and signature verification is skipped for
// speed. Failures are classified, never propagated: an error thrown by the
// call itself comes back as the exception class.
func (s *Simulator) Simulate(ctx context.Context, tx *solana.Transaction) *models.SimulationResult {
	txBytes, err := tx.MarshalBinary()
	if err != nil {
		return &models.SimulationResult{
			Success:    false,
			ErrorClass: ClassException,
			RawError:   fmt.Sprintf("serialize: %v", err),
		}
	}
	encodedTx := base64.StdEncoding.EncodeToString(txBytes)

	var resp struct {
		Result struct {
			Value struct {
				Err           interface{} `json:"err"`
				Logs          []string    `json:"logs"`
				UnitsConsumed uint64      `json:"unitsConsumed,omitempty"`
			} `json:"value"`
		} `json:"result"`
		Error *projectrpc.RPCError `json:"error"`
	}

	params := []any{
		encodedTx,
		map[string]any{
			"encoding":               "base64",
			"commitment":             "processed",
			"sigVerify":              false,
			"replaceRecentBlockhash": true,
		},
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.rpc.Call(callCtx, "simulateTransaction", params, &resp); err != nil {
		return &models.SimulationResult{
			Success:    false,
			ErrorClass: ClassException,
			RawError:   err.Error(),
		}
	}
	if resp.Error != nil {
		return &models.SimulationResult{
			Success:    false,
			ErrorClass: ClassException,
			RawError:   resp.Error.Message,
		}
	}

	result := &models.SimulationResult{
		UnitsConsumed: resp.Result.Value.UnitsConsumed,
		Logs:          resp.Result.Value.Logs,
	}

	if resp.Result.Value.Err != nil {
		raw := fmt.Sprintf("%v", resp.Result.Value.Err)
		result.Success = false
		result.RawError = raw
		result.ErrorClass = classify(raw, resp.Result.Value.Logs)
		s.logger.WithFields(logrus.Fields{
			"class": result.ErrorClass,
			"err":   raw,
		}).Debug("simulation failed")
		return result
	}

	result.Success = true
	return result
}
