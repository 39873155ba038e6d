package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// RPC settings
	RPCURL        string
	RPCBackupURL  string
	RPCTimeout    time.Duration
	MaxRetries    int
	RetryBackoff  time.Duration
	HealthCheck   time.Duration
	FailThreshold int

	// Quote source
	JupiterBaseURL string
	JupiterAPIKey  string
	QuoteRPS       float64
	QuoteTTL       time.Duration

	// Bundle relay
	JitoBlockEngineURL string

	// Wallet
	WalletPrivateKey string

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// Price feed
	PriceFeedURL string
	PriceTTL     time.Duration

	// HTTP server
	ServerAddr string
	APIKey     string
	DevMode    bool

	// Alerts
	AlertWebhookURL string

	// Frontrun stream
	StreamURL        string
	StreamAPIKey     string
	FrontrunMinSize  float64
	FrontrunValidity time.Duration

	// Trading
	ProbeAmountSOL     float64
	MaxSlippageBps     int
	MinProfitUSD       float64
	CapitalCeilingSOL  float64
	MaxConcurrent      int
	OpportunityTTL     time.Duration
	ScanInterval       time.Duration
	TriangularMaxPairs int

	// Risk controls
	BreakerThreshold  int
	BreakerCooldown   time.Duration
	DailyLossLimitSOL float64

	// Fees
	PriorityFeeMicroLamports uint64
	ComputeUnitLimit         uint32
	TipLamports              uint64
	BundleWaitCeiling        time.Duration
}

func Load() *Config {
	return &Config{
		// RPC
		RPCURL:        getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		RPCBackupURL:  getEnv("SOLANA_RPC_BACKUP_URL", ""),
		RPCTimeout:    getDurationEnv("RPC_TIMEOUT", 30*time.Second),
		MaxRetries:    getIntEnv("MAX_RETRIES", 3),
		RetryBackoff:  getDurationEnv("RETRY_BACKOFF", 1*time.Second),
		HealthCheck:   getDurationEnv("HEALTH_CHECK_INTERVAL", 30*time.Second),
		FailThreshold: getIntEnv("FAILOVER_THRESHOLD", 3),

		// Quote source
		JupiterBaseURL: getEnv("JUPITER_BASE_URL", "https://api.jup.ag/swap/v1"),
		JupiterAPIKey:  getEnv("JUPITER_API_KEY", ""),
		QuoteRPS:       getFloatEnv("QUOTE_RPS", 2.0),
		QuoteTTL:       getDurationEnv("QUOTE_TTL", 10*time.Second),

		// Bundle relay
		JitoBlockEngineURL: getEnv("JITO_BLOCK_ENGINE_URL", "https://mainnet.block-engine.jito.wtf/api/v1"),

		// Wallet
		WalletPrivateKey: getEnv("WALLET_PRIVATE_KEY", ""),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", ""),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "arbitrage"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// Price feed
		PriceFeedURL: getEnv("PRICE_FEED_URL", "https://api.jup.ag/price/v2"),
		PriceTTL:     getDurationEnv("PRICE_TTL", 60*time.Second),

		// HTTP server
		ServerAddr: getEnv("SERVER_ADDR", ":8090"),
		APIKey:     getEnv("API_KEY", ""),
		DevMode:    getBoolEnv("DEV_MODE", false),

		// Alerts
		AlertWebhookURL: getEnv("ALERT_WEBHOOK_URL", ""),

		// Frontrun stream
		StreamURL:        getEnv("STREAM_URL", ""),
		StreamAPIKey:     getEnv("STREAM_API_KEY", ""),
		FrontrunMinSize:  getFloatEnv("FRONTRUN_MIN_SIZE_SOL", 50.0),
		FrontrunValidity: getDurationEnv("FRONTRUN_VALIDITY", 5*time.Second),

		// Trading
		ProbeAmountSOL:     getFloatEnv("PROBE_AMOUNT_SOL", 0.1),
		MaxSlippageBps:     getIntEnv("MAX_SLIPPAGE_BPS", 50),
		MinProfitUSD:       getFloatEnv("MIN_PROFIT_USD", 0.10),
		CapitalCeilingSOL:  getFloatEnv("CAPITAL_CEILING_SOL", 2.0),
		MaxConcurrent:      getIntEnv("MAX_CONCURRENT_TRADES", 3),
		OpportunityTTL:     getDurationEnv("OPPORTUNITY_TTL", 15*time.Second),
		ScanInterval:       getDurationEnv("SCAN_INTERVAL", 5*time.Second),
		TriangularMaxPairs: getIntEnv("TRIANGULAR_MAX_PAIRS", 10),

		// Risk controls
		BreakerThreshold:  getIntEnv("BREAKER_THRESHOLD", 5),
		BreakerCooldown:   getDurationEnv("BREAKER_COOLDOWN", 5*time.Minute),
		DailyLossLimitSOL: getFloatEnv("DAILY_LOSS_LIMIT_SOL", 0.5),

		// Fees
		PriorityFeeMicroLamports: uint64(getIntEnv("PRIORITY_FEE_MICRO_LAMPORTS", 10_000)),
		ComputeUnitLimit:         uint32(getIntEnv("COMPUTE_UNIT_LIMIT", 400_000)),
		TipLamports:              uint64(getIntEnv("TIP_LAMPORTS", 100_000)),
		BundleWaitCeiling:        getDurationEnv("BUNDLE_WAIT_CEILING", 60*time.Second),
	}
}

// Validate reports configuration errors that are fatal at startup. Missing
// endpoints or signing keys are never retried around.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("SOLANA_RPC_URL is required")
	}
	if c.WalletPrivateKey == "" {
		return fmt.Errorf("WALLET_PRIVATE_KEY is required")
	}
	if c.CapitalCeilingSOL <= 0 {
		return fmt.Errorf("CAPITAL_CEILING_SOL must be positive")
	}
	if c.ProbeAmountSOL <= 0 {
		return fmt.Errorf("PROBE_AMOUNT_SOL must be positive")
	}
	if c.MaxSlippageBps < 0 || c.MaxSlippageBps > 10_000 {
		return fmt.Errorf("MAX_SLIPPAGE_BPS out of range")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
