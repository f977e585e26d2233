// Command purse runs a local, single-user token wallet ledger with an
// HTTP JSON API. Balances are kept in a versioned JSON snapshot on disk,
// every completed mutation lands in an append-only transaction history,
// and a price cache refreshed from a configurable source feeds valuation
// and swap rates.
//
// Usage:
//
//	purse --config config.yaml
//	purse --setup             (interactive configuration wizard)
//	purse                     (CLI flags with defaults)
package main

import (
	"context"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/hirokisan/bybit/v2"
	"github.com/vadiminshakov/purse/config"
	"github.com/vadiminshakov/purse/internal/clients"
	"github.com/vadiminshakov/purse/internal/services/pricecache"
	"github.com/vadiminshakov/purse/internal/services/swap"
	"github.com/vadiminshakov/purse/internal/services/txlog"
	"github.com/vadiminshakov/purse/internal/services/wallet"
	"github.com/vadiminshakov/purse/internal/setup"
	"github.com/vadiminshakov/purse/internal/storage/journal"
	"github.com/vadiminshakov/purse/internal/storage/txstore"
	"github.com/vadiminshakov/purse/internal/storage/walletstore"
	"github.com/vadiminshakov/purse/internal/web"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.Setup {
		if err := setup.Run(); err != nil {
			log.Fatal(err)
		}
		return
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	walletStore, err := walletstore.New(cfg.DataDir, logger)
	if err != nil {
		logger.Fatal("failed to init wallet store", zap.Error(err))
	}

	txStore, err := txstore.New(cfg.DataDir, logger)
	if err != nil {
		logger.Fatal("failed to init transaction store", zap.Error(err))
	}

	mutationJournal, err := journal.New(filepath.Join(cfg.DataDir, "journal"))
	if err != nil {
		logger.Fatal("failed to init mutation journal", zap.Error(err))
	}
	defer mutationJournal.Close()

	snap, err := walletStore.Load()
	if err != nil {
		logger.Fatal("failed to load wallet", zap.Error(err))
	}

	txs, err := txStore.Load()
	if err != nil {
		logger.Fatal("failed to load transactions", zap.Error(err))
	}

	ledger := wallet.NewLedger(snap.Tokens, walletStore, mutationJournal, logger)
	history := txlog.NewLog(txs, txStore, logger)
	engine := swap.NewEngine(logger)

	source, err := buildSource(cfg)
	if err != nil {
		logger.Fatal("failed to build price source", zap.Error(err))
	}
	cache := pricecache.New(source, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cache.Refresh(ctx); err != nil {
		logger.Warn("initial price refresh failed, serving with empty prices", zap.Error(err))
	}

	go refreshLoop(ctx, cache, cfg.RefreshInterval, logger)

	server := web.NewServer(cfg.ListenAddr, ledger, cache, engine, history, mutationJournal, logger)
	server.Domain = cfg.Domain
	server.CertDir = filepath.Join(cfg.DataDir, "certs")

	logger.Info("purse started",
		zap.String("listen", cfg.ListenAddr),
		zap.String("platform", cfg.Platform),
		zap.Int("wallet_entries", len(snap.Tokens)),
		zap.Int("transactions", len(txs)))

	if err := server.Start(ctx); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func buildSource(cfg config.Config) (pricecache.Source, error) {
	switch cfg.Platform {
	case config.PlatformBinance:
		// public ticker endpoints, no keys needed
		return clients.NewBinanceSource(binance.NewClient("", ""), cfg.Symbols), nil
	case config.PlatformBybit:
		return clients.NewBybitSource(bybit.NewClient(), cfg.Symbols), nil
	default:
		return clients.NewSnapshotFeed(cfg.FeedURL, cfg.FeedTimeout), nil
	}
}

// refreshLoop refreshes prices on the configured interval. Failures are
// logged and the cycle goes on with the last-known prices.
func refreshLoop(ctx context.Context, cache *pricecache.PriceCache, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := cache.Refresh(ctx); err != nil {
				logger.Warn("price refresh failed, keeping previous prices", zap.Error(err))
			}
		}
	}
}
