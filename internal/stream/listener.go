package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/models"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// TransferHandler is called for each large pending transfer observed on the
// stream.
type TransferHandler func(*models.PendingTransfer)

// Listener watches a transaction stream for large pending swaps touching the
// base asset. Observed transfers feed the frontrun scanner.
type Listener struct {
	url    string
	apiKey string
	logger *logrus.Logger

	conn *websocket.Conn
}

type ListenerConfig struct {
	URL    string
	APIKey string
	Logger *logrus.Logger
}

func NewListener(cfg ListenerConfig) (*Listener, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("stream: URL is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Listener{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		logger: cfg.Logger,
	}, nil
}

// Connect dials the stream and subscribes to transactions mentioning the
// major AMM programs.
func (l *Listener) Connect(ctx context.Context) error {
	url := l.url
	if l.apiKey != "" {
		url = fmt.Sprintf("%s?api-key=%s", l.url, l.apiKey)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	l.conn = conn

	subscribeMsg := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "transactionSubscribe",
		"params": []interface{}{
			map[string]interface{}{
				"accountInclude": []string{
					"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8", // Raydium AMM
					"9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP", // Orca Whirlpool
				},
			},
			map[string]interface{}{
				"commitment":                     "processed",
				"encoding":                       "jsonParsed",
				"transactionDetails":             "full",
				"showRewards":                    false,
				"maxSupportedTransactionVersion": 0,
			},
		},
	}

	if err := conn.WriteJSON(subscribeMsg); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe: %w", err)
	}

	l.logger.Info("connected to transaction stream")
	return nil
}

// Listen reads stream messages until ctx is cancelled, invoking handler for
// every parseable large transfer. Read errors trigger a reconnect with a
// short pause rather than aborting.
func (l *Listener) Listen(ctx context.Context, handler TransferHandler) error {
	if l.conn == nil {
		if err := l.Connect(ctx); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			l.Close()
			return ctx.Err()
		default:
		}

		var msg json.RawMessage
		if err := l.conn.ReadJSON(&msg); err != nil {
			l.logger.WithError(err).Warn("stream read failed, reconnecting")
			l.Close()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
			}
			if err := l.Connect(ctx); err != nil {
				l.logger.WithError(err).Warn("stream reconnect failed")
			}
			continue
		}

		if transfer := parseTransfer(msg); transfer != nil {
			handler(transfer)
		}
	}
}

// streamNotification is the subset of the subscription payload we read.
type streamNotification struct {
	Params struct {
		Result struct {
			Value struct {
				Signature   string `json:"signature"`
				Transaction struct {
					Meta struct {
						PreBalances  []uint64 `json:"preBalances"`
						PostBalances []uint64 `json:"postBalances"`
					} `json:"meta"`
					Transaction struct {
						Message struct {
							AccountKeys []struct {
								Pubkey string `json:"pubkey"`
							} `json:"accountKeys"`
						} `json:"message"`
					} `json:"transaction"`
				} `json:"transaction"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// parseTransfer extracts a pending base-asset transfer from a notification.
// The fee payer's balance delta approximates the swap's SOL side; the
// direction is a buy when SOL flows out of the payer into the pool.
func parseTransfer(raw json.RawMessage) *models.PendingTransfer {
	var note streamNotification
	if err := json.Unmarshal(raw, &note); err != nil {
		return nil
	}

	value := note.Params.Result.Value
	if value.Signature == "" {
		return nil
	}
	meta := value.Transaction.Meta
	if len(meta.PreBalances) == 0 || len(meta.PreBalances) != len(meta.PostBalances) {
		return nil
	}

	pre, post := meta.PreBalances[0], meta.PostBalances[0]
	var deltaLamports uint64
	buy := pre > post // payer's SOL decreased: SOL entered the pool
	if buy {
		deltaLamports = pre - post
	} else {
		deltaLamports = post - pre
	}
	if deltaLamports == 0 {
		return nil
	}

	mint := ""
	keys := value.Transaction.Transaction.Message.AccountKeys
	for _, key := range keys {
		if _, known := constants.TokenSymbols[key.Pubkey]; known && key.Pubkey != constants.TokenMints["SOL"] {
			mint = key.Pubkey
			break
		}
	}
	if mint == "" {
		return nil
	}

	return &models.PendingTransfer{
		Signature: value.Signature,
		Mint:      mint,
		SizeSOL:   float64(deltaLamports) / constants.LamportsPerSOL,
		Buy:       buy,
		SeenAt:    time.Now(),
	}
}

func (l *Listener) Close() {
	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
	}
}
