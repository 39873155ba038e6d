package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/aman-zulfiqar/solana-arb-engine/internal/alerts"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/cache"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/config"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/events"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/executor"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/flags"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/jito"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/jupiter"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/ledger"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/models"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/positions"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/pricefeed"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/rpc"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/scanner"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/server"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/simulator"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/stream"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/txbuilder"
	"github.com/aman-zulfiqar/solana-arb-engine/internal/wallet"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main is the entry point for the arbitrage engine. It wires the RPC failover
// layer, the scanners, the executor and the status API, then runs until a
// shutdown signal arrives.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// RPC failover layer: primary plus optional backup behind one manager.
	primary := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.RPCURL,
		Timeout:      cfg.RPCTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
	})
	var backup *rpc.Client
	if cfg.RPCBackupURL != "" {
		backup = rpc.NewClient(rpc.ClientConfig{
			BaseURL:      cfg.RPCBackupURL,
			Timeout:      cfg.RPCTimeout,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
			Logger:       logger,
		})
	}
	endpoints, err := rpc.NewManager(rpc.ManagerConfig{
		Primary:       primary,
		Backup:        backup,
		FailThreshold: cfg.FailThreshold,
		HealthCheck:   cfg.HealthCheck,
		Logger:        logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create endpoint manager")
	}
	go endpoints.StartHealthLoop(ctx)

	quotes := jupiter.NewClient(jupiter.ClientConfig{
		BaseURL:  cfg.JupiterBaseURL,
		APIKey:   cfg.JupiterAPIKey,
		RPS:      cfg.QuoteRPS,
		QuoteTTL: cfg.QuoteTTL,
	})

	prices := pricefeed.NewService(pricefeed.Config{
		URL:    cfg.PriceFeedURL,
		TTL:    cfg.PriceTTL,
		Logger: logger,
	})

	w, err := wallet.NewWallet(wallet.WalletConfig{PrivateKey: cfg.WalletPrivateKey}, endpoints)
	if err != nil {
		logger.WithError(err).Fatal("failed to load wallet")
	}
	logger.WithField("address", w.Address()).Info("wallet loaded")

	builder, err := txbuilder.NewBuilder(txbuilder.BuilderConfig{
		RPC:       endpoints,
		Signer:    w,
		Blockhash: w,
		Logger:    logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create transaction builder")
	}

	preflight, err := simulator.NewSimulator(simulator.Config{
		RPC:    endpoints,
		Logger: logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create simulator")
	}

	relay, err := jito.NewClient(jito.ClientConfig{
		BaseURL: cfg.JitoBlockEngineURL,
		Logger:  logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create bundle relay")
	}

	bus := events.NewBus(0, logger)

	// Redis is optional: without it the engine runs with no recent-item
	// cache, no operator flags and no pub/sub mirror.
	var (
		recents   *cache.RedisCache
		flagStore *flags.Store
	)
	if cfg.RedisAddr != "" {
		rclient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   0,
		})
		if err := rclient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Fatal("failed to connect to Redis")
		}

		recents = cache.NewRedisCache(cfg.RedisAddr)
		defer recents.Close()

		flagStore, err = flags.NewStore(rclient)
		if err != nil {
			logger.WithError(err).Fatal("failed to create flags store")
		}

		bridge := events.NewRedisBridge(cfg.RedisAddr, logger)
		defer bridge.Close()
		sub, unsubscribe := bus.Subscribe()
		defer unsubscribe()
		go bridge.Run(ctx, sub)
	}

	// ClickHouse is optional too; without it trade records stay in memory.
	var tradeLedger ledger.TradeLedger
	if cfg.ClickHouseAddr != "" {
		tradeLedger, err = ledger.NewClickHouseLedger(ledger.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to ClickHouse")
		}
		defer tradeLedger.Close()
	} else {
		logger.Warn("no ClickHouse configured, trade records are in-memory only")
		tradeLedger = ledger.NewMemoryLedger()
	}

	var notifier alerts.Notifier = alerts.NewLogNotifier(logger)
	if cfg.AlertWebhookURL != "" {
		if n, err := alerts.NewWebhookNotifier(cfg.AlertWebhookURL, logger); err == nil {
			notifier = n
		} else {
			logger.WithError(err).Warn("invalid alert webhook, falling back to log alerts")
		}
	}

	tracker := positions.NewTracker(logger)

	assembler, err := executor.NewSwapAssembler(executor.SwapAssemblerConfig{
		Jupiter:                  quotes,
		Wallet:                   w,
		Builder:                  builder,
		PriorityFeeMicroLamports: cfg.PriorityFeeMicroLamports,
		ComputeUnitLimit:         cfg.ComputeUnitLimit,
		TipLamports:              cfg.TipLamports,
		SlippageBps:              uint16(cfg.MaxSlippageBps),
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create bundle assembler")
	}

	execCfg := executor.Config{
		Assembler:         assembler,
		Preflight:         preflight,
		Relay:             relay,
		Prices:            prices,
		Tracker:           tracker,
		Ledger:            tradeLedger,
		Bus:               bus,
		Notifier:          notifier,
		Serialize:         txbuilder.Serialize,
		Logger:            logger,
		MinProfitUSD:      cfg.MinProfitUSD,
		CapitalCeilingSOL: cfg.CapitalCeilingSOL,
		MaxConcurrent:     cfg.MaxConcurrent,
		BreakerThreshold:  cfg.BreakerThreshold,
		BreakerCooldown:   cfg.BreakerCooldown,
		DailyLossLimitSOL: cfg.DailyLossLimitSOL,
		BundleWaitCeiling: cfg.BundleWaitCeiling,
	}
	if flagStore != nil {
		execCfg.Controls = flagStore
	}
	if recents != nil {
		execCfg.TradeSink = recents
	}
	exec, err := executor.NewExecutor(execCfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to create executor")
	}

	costs := scanner.DefaultCostModel()
	tipSOL := float64(cfg.TipLamports) / constants.LamportsPerSOL

	scanners := []scanner.Scanner{
		scanner.NewCyclicScanner(scanner.CyclicConfig{
			Quotes:       quotes,
			Prices:       prices,
			Logger:       logger,
			Costs:        costs,
			ProbeSOL:     cfg.ProbeAmountSOL,
			SlippageBps:  uint16(cfg.MaxSlippageBps),
			MinProfitUSD: cfg.MinProfitUSD,
			Validity:     cfg.OpportunityTTL,
			Interval:     cfg.ScanInterval,
		}),
		scanner.NewTriangularScanner(scanner.TriangularConfig{
			Quotes:       quotes,
			Prices:       prices,
			Logger:       logger,
			Costs:        costs,
			MaxPairs:     cfg.TriangularMaxPairs,
			ProbeSOL:     cfg.ProbeAmountSOL,
			SlippageBps:  uint16(cfg.MaxSlippageBps),
			MinProfitUSD: cfg.MinProfitUSD,
			Validity:     cfg.OpportunityTTL,
			Interval:     cfg.ScanInterval,
		}),
	}

	// The event-driven strategy only runs when a transaction stream is
	// configured; it needs the firehose, not polling.
	if cfg.StreamURL != "" {
		frontrun := scanner.NewFrontrunScanner(scanner.FrontrunConfig{
			Prices:       prices,
			Logger:       logger,
			Costs:        costs,
			MinSizeSOL:   cfg.FrontrunMinSize,
			MaxTradeSOL:  cfg.CapitalCeilingSOL,
			TipSOL:       tipSOL,
			MinProfitUSD: cfg.MinProfitUSD,
			Validity:     cfg.FrontrunValidity,
		})
		scanners = append(scanners, frontrun)

		listener, err := stream.NewListener(stream.ListenerConfig{
			URL:    cfg.StreamURL,
			APIKey: cfg.StreamAPIKey,
			Logger: logger,
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to create stream listener")
		}
		go func() {
			defer listener.Close()
			if err := listener.Connect(ctx); err != nil {
				logger.WithError(err).Error("stream connect failed")
				return
			}
			if err := listener.Listen(ctx, func(t *models.PendingTransfer) {
				frontrun.Observe(ctx, t)
			}); err != nil && ctx.Err() == nil {
				logger.WithError(err).Error("stream listener stopped")
			}
		}()
	}

	var sink executor.OpportunitySink
	if recents != nil {
		sink = recents
	}
	runner := executor.NewRunner(exec, scanners, bus, sink, logger)
	go runner.Run(ctx)

	h := &server.Handlers{
		Endpoints: endpoints,
		Tracker:   tracker,
		Executor:  exec,
		Prices:    prices,
		Cache:     recents,
		Flags:     flagStore,
		DevMode:   cfg.DevMode,
		Logger:    logger,
	}
	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.ServerAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	logger.WithField("addr", cfg.ServerAddr).Info("arbitrage engine starting")
	if err := srv.Start(); err != nil {
		// "http: Server closed" is expected during graceful shutdown
		if err.Error() == "http: Server closed" {
			return
		}
		logger.WithError(err).Fatal("http server failed")
	}

	if err := srv.WaitClosed(context.Background()); err != nil {
		fmt.Println(err)
	}
}
