package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/tokenfeed/salesbot/internal/config"
	"github.com/tokenfeed/salesbot/internal/db"
	"github.com/tokenfeed/salesbot/internal/eth"
	"github.com/tokenfeed/salesbot/internal/listings"
	"github.com/tokenfeed/salesbot/internal/lookup"
	"github.com/tokenfeed/salesbot/internal/marketplace"
	"github.com/tokenfeed/salesbot/internal/naming"
	"github.com/tokenfeed/salesbot/internal/notify"
	"github.com/tokenfeed/salesbot/internal/pipeline"
	"github.com/tokenfeed/salesbot/internal/rpc"
	"github.com/tokenfeed/salesbot/internal/store"
	"go.uber.org/zap"
)

var Version = "dev" // Overridden by release build script

func init() {
	logger := zap.Must(zap.NewProduction())
	if config.Get().LogZapMode == "development" {
		logger = zap.Must(zap.NewDevelopment())
	}
	zap.ReplaceGlobals(logger)
}

func main() {
	zap.L().Info("Starting salesbot...", zap.String("Version", Version))

	cfg := config.Get()

	// Main context: canceled when we want to stop normal operation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "./db"
	}

	sqlite, err := db.OpenSqlite(filepath.Join(dataDir, "sqlite", "sqlite"))
	if err != nil {
		zap.L().Fatal("Failed to open SQLite", zap.Error(err))
	}

	badgerDb, err := db.OpenBadger(filepath.Join(dataDir, "badger"))
	if err != nil {
		zap.L().Fatal("Failed to open Badger", zap.Error(err))
	}

	closeRpcServer := rpc.StartRPCServer(cfg.RPCPort, ctx, sqlite)

	destinations := buildDestinations(cfg)
	if len(destinations) == 0 {
		zap.L().Warn("No announcement destinations configured, announcements will be dropped")
	}

	// One rate cache for the whole process: the announcer and the sale
	// recorder must agree on the conversion they report.
	rates := lookup.NewCachedRates(cfg.RateApiUrl)

	announcer := notify.NewAnnouncer(
		rates,
		lookup.NewHTTPIdentityResolver(cfg.IdentityApiUrl),
		lookup.NewHTTPMetadataClient(cfg.MetadataApiUrl),
		notify.NewNameFilter(splitList(cfg.NameBlacklist)),
		destinations,
	)

	watcher, err := eth.NewEventsWatcher(ctx)
	if err != nil {
		zap.L().Fatal("Failed to create chain watcher", zap.Error(err))
	}

	ethClient, err := eth.CreateEthClient()
	if err != nil {
		zap.L().Fatal("Failed to create Ethereum client", zap.Error(err))
	}

	market := marketplace.NewHTTPClient(cfg.MarketplaceApiUrl, cfg.MarketplaceApiKey, cfg.CollectionSlug)

	pipe := pipeline.NewPipeline(
		ethClient,
		marketplace.NewDefaultMatcher(market),
		announcer,
		rates,
		store.NewSalesDb(),
		sqlite,
	)
	pipe.Start(ctx)

	contracts := splitList(cfg.CollectionContracts)
	go func() {
		if err := watcher.WatchTransfers(contracts, pipe.EnqueueTransfer); err != nil {
			zap.L().Error("Transfer watcher stopped", zap.Error(err))
			cancel()
		}
	}()

	cooldownWindow := time.Duration(cfg.ListingCooldownHours) * time.Hour
	if cooldownWindow <= 0 {
		cooldownWindow = 24 * time.Hour
	}
	poller := listings.NewPoller(market, announcer, store.NewCooldownStore(badgerDb, cooldownWindow))
	go poller.Run(ctx)

	namingSvc := naming.NewService(watcher, announcer)
	go func() {
		if err := namingSvc.Run(ctx); err != nil {
			zap.L().Error("Naming watcher stopped", zap.Error(err))
		}
	}()

	// Catch up to two signals: first for graceful, second to force
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	doneCh := make(chan struct{})

	go func() {
		<-sigCh
		zap.L().Info("Received shutdown signal, initiating graceful shutdown...")

		closeRpcServer()

		cancel()
		pipe.Wait()

		ethClient.Close()

		if err := badgerDb.Close(); err != nil {
			zap.L().Warn("Error closing Badger", zap.Error(err))
		}
		if err := sqlite.Close(); err != nil {
			zap.L().Warn("Error closing DB", zap.Error(err))
		}

		close(doneCh)

		// If a second signal arrives, force an immediate exit
		<-sigCh
		zap.L().Error("Received second signal, forcing shutdown")
		os.Exit(1)
	}()

	select {
	case <-ctx.Done():
	case <-doneCh:
	}

	zap.L().Info("Shutdown complete")
	_ = zap.L().Sync()
}

func buildDestinations(cfg config.Config) []notify.Destination {
	var destinations []notify.Destination
	for _, url := range splitList(cfg.DiscordWebhookUrls) {
		destinations = append(destinations, notify.NewDiscordWebhook(url))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatId != "" {
		telegram, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatId)
		if err != nil {
			zap.L().Error("Failed to create Telegram destination", zap.Error(err))
		} else {
			destinations = append(destinations, telegram)
		}
	}
	return destinations
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
