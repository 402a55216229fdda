package collector

import (
	"context"
	"fmt"
	"time"

	"pricebackfill/config"
	"pricebackfill/internal/blockresolver"
	"pricebackfill/internal/ingest"
	"pricebackfill/internal/memorystore"
	"pricebackfill/internal/metrics"
	"pricebackfill/internal/model"
	"pricebackfill/internal/pace"
	"pricebackfill/internal/persist"
	"pricebackfill/pkg/binance"
	"pricebackfill/pkg/etherscan"
	"pricebackfill/pkg/httpclient"
	"pricebackfill/pkg/storage/postgres"
	"pricebackfill/pkg/uniswap"

	"go.uber.org/zap"
)

const userAgent = "pricebackfill/1.0"

// Run wires storage and both provider clients from cfg and backfills the
// configured window: swaps first, then candles.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	interval, err := binance.ParseKlineInterval(cfg.Binance.Interval)
	if err != nil {
		return err
	}
	apiKey, err := cfg.Etherscan.ResolveAPIKey(cfg.Env)
	if err != nil {
		return err
	}

	session, closeStorage, err := openSession(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStorage()
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("failed to close session", zap.Error(err))
		}
	}()

	binanceHTTP := httpclient.NewHTTPClient(httpclient.HTTPClientConfig{
		Timeout:   cfg.Binance.REST.Timeout,
		RateLimit: cfg.Binance.REST.RateLimit,
		UserAgent: userAgent,
	}, logger.Named("binance"))
	defer binanceHTTP.Close()

	etherscanHTTP := httpclient.NewHTTPClient(httpclient.HTTPClientConfig{
		Timeout:   cfg.Etherscan.REST.Timeout,
		RateLimit: cfg.Etherscan.REST.RateLimit,
		UserAgent: userAgent,
	}, logger.Named("etherscan"))
	defer etherscanHTTP.Close()

	klines := binance.NewRESTClient(cfg.Binance.REST.BaseURL, binanceHTTP)
	logs := etherscan.NewRESTClient(cfg.Etherscan.REST.BaseURL, apiKey, cfg.Etherscan.ChainID, etherscanHTTP)

	window := model.Window{Start: cfg.Window.Start, End: cfg.Window.End}
	persister := persist.NewPersister(session)

	resolver := blockresolver.New(logs, cfg.Etherscan.BlockLookupAttempts, cfg.Etherscan.BlockLookupDelay, pace.Sleep, logger)
	swaps := ingest.NewSwapFlow(
		logs,
		resolver,
		uniswap.NewDecoder(cfg.Uniswap.Token0Decimals, cfg.Uniswap.Token1Decimals),
		persister,
		ingest.SwapConfig{
			PoolAddress:    cfg.Etherscan.PoolAddress,
			Topic0:         cfg.Etherscan.Topic0,
			ChunkSize:      cfg.Etherscan.ChunkSize,
			ChunkDelay:     cfg.Etherscan.ChunkDelay,
			SkipDelay:      cfg.Etherscan.SkipDelay,
			RateLimitDelay: cfg.Etherscan.RateLimitDelay,
			Retry: ingest.RetryPolicy{
				MaxAttempts:  cfg.Etherscan.Retry.MaxAttempts,
				InitialDelay: cfg.Etherscan.Retry.InitialDelay,
				MaxDelay:     cfg.Etherscan.Retry.MaxDelay,
				Multiplier:   cfg.Etherscan.Retry.Multiplier,
			},
		},
		pace.Sleep,
		logger,
	)
	candles := ingest.NewCandleFlow(klines, persister, ingest.CandleConfig{
		Symbol:    cfg.Binance.Symbol,
		Interval:  interval.APIValue,
		Limit:     cfg.Binance.Limit,
		PageDelay: cfg.Binance.PageDelay,
	}, pace.Sleep, logger)

	span := window.End.Sub(window.Start)
	logger.Info("backfill starting",
		zap.Time("start", window.Start),
		zap.Time("end", window.End),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("symbol", cfg.Binance.Symbol),
		zap.Int("expected_kline_pages", interval.ExpectedPages(span, cfg.Binance.Limit)),
		zap.String("pool", cfg.Etherscan.PoolAddress),
	)

	started := time.Now()
	_, runErr := New(window, persister, logger,
		Step{Name: metrics.FlowSwaps, Flow: swaps},
		Step{Name: metrics.FlowCandles, Flow: candles},
	).Run(ctx)

	if cfg.Monitor.PushgatewayURL != "" {
		if err := metrics.Push(cfg.Monitor.PushgatewayURL, cfg.Monitor.Job); err != nil {
			logger.Warn("metrics push failed", zap.Error(err))
		}
	}

	if runErr != nil {
		return runErr
	}
	logger.Info("backfill complete", zap.Duration("elapsed", time.Since(started)))
	return nil
}

// openSession returns the session for the configured driver and a func that
// releases the underlying storage.
func openSession(cfg *config.Config, logger *zap.Logger) (persist.Session, func(), error) {
	switch cfg.Storage.Driver {
	case "memory":
		logger.Info("using in-memory storage, nothing will be persisted")
		return memorystore.NewMemoryStore().NewSession(), func() {}, nil

	case "postgres":
		client, err := postgres.InitializeAndMigrate(cfg.Postgres, cfg.Env, cfg.Storage.CreateDatabase)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				logger.Warn("failed to close postgres", zap.Error(err))
			}
		}
		return client.NewSession(), closeFn, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
