// Package app wires the configured components into a runnable bot.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/ladder/config"
	"github.com/vadiminshakov/ladder/internal/clients"
	"github.com/vadiminshakov/ladder/internal/events"
	"github.com/vadiminshakov/ladder/internal/exchange"
	"github.com/vadiminshakov/ladder/internal/services/reconciler"
	"github.com/vadiminshakov/ladder/internal/services/rules"
	"github.com/vadiminshakov/ladder/internal/services/strategy"
	"github.com/vadiminshakov/ladder/internal/storage/journal"
	"github.com/vadiminshakov/ladder/internal/storage/snapshots"
	"github.com/vadiminshakov/ladder/internal/web"
	"go.uber.org/zap"
)

// Bot owns the wired components and their lifecycles.
type Bot struct {
	cfg        config.Config
	l          *zap.Logger
	engine     *strategy.Engine
	reconciler *reconciler.Reconciler
	server     *web.Server
	journal    *journal.WALStore
	snapshots  *snapshots.WALStore
}

// NewBot builds the full component graph from the configuration. API
// credentials come from environment variables, matching the platform:
// BINANCE_API_KEY/BINANCE_API_SECRET or BYBIT_API_KEY/BYBIT_API_SECRET.
func NewBot(cfg config.Config, l *zap.Logger) (*Bot, error) {
	ex, err := newExchange(cfg)
	if err != nil {
		return nil, err
	}

	journalStore, err := journal.NewWALStore(cfg.JournalDir)
	if err != nil {
		return nil, errors.Wrap(err, "init trade journal")
	}
	snapshotStore, err := snapshots.NewWALStore(cfg.SnapshotDir)
	if err != nil {
		_ = journalStore.Close()
		return nil, errors.Wrap(err, "init snapshot store")
	}

	resolver := rules.NewResolver(ex, cfg.RulesRefreshInterval, l)

	engine, err := strategy.New(strategy.Params{
		OrderValue:    cfg.OrderValue,
		MinMovement:   cfg.MinMovement,
		Rounding:      cfg.Rounding,
		BelowPercent:  cfg.BelowPercent,
		ProfitPercent: cfg.ProfitPercent,
		MaxOrders:     cfg.MaxOrders,
		OrderTTL:      cfg.OrderTTL,
		RepriceBias:   cfg.RepriceBias,
		TradeFrom:     cfg.TradeFrom,
	}, ex, resolver, journalStore, l)
	if err != nil {
		_ = journalStore.Close()
		_ = snapshotStore.Close()
		return nil, err
	}

	broadcaster := events.NewSnapshotBroadcaster(64)
	rec := reconciler.New(engine, ex, snapshotStore, broadcaster, cfg.ReconcileInterval, cfg.Symbols, l)
	server := web.NewServer(cfg.ListenAddr, cfg.WebhookToken, engine, snapshotStore, broadcaster, l)

	return &Bot{
		cfg:        cfg,
		l:          l,
		engine:     engine,
		reconciler: rec,
		server:     server,
		journal:    journalStore,
		snapshots:  snapshotStore,
	}, nil
}

func newExchange(cfg config.Config) (exchange.Exchange, error) {
	switch cfg.Platform {
	case "binance":
		apiKey := os.Getenv("BINANCE_API_KEY")
		apiSecret := os.Getenv("BINANCE_API_SECRET")
		if apiKey == "" || apiSecret == "" {
			return nil, fmt.Errorf("BINANCE_API_KEY and BINANCE_API_SECRET environment variables must be set")
		}
		return exchange.NewBinanceExchange(clients.NewBinanceClient(apiKey, apiSecret), cfg.QuoteAsset, cfg.InitialCapital), nil
	case "bybit":
		apiKey := os.Getenv("BYBIT_API_KEY")
		apiSecret := os.Getenv("BYBIT_API_SECRET")
		if apiKey == "" || apiSecret == "" {
			return nil, fmt.Errorf("BYBIT_API_KEY and BYBIT_API_SECRET environment variables must be set")
		}
		return exchange.NewBybitExchange(clients.NewBybitClient(apiKey, apiSecret), cfg.QuoteAsset, cfg.InitialCapital), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", cfg.Platform)
	}
}

// Run starts the reconciliation loop and the web server and blocks until the
// context is cancelled or one of them fails. Stores are closed on the way out.
func (b *Bot) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)

	go func() {
		errCh <- b.reconciler.Run(ctx)
	}()
	go func() {
		errCh <- b.server.Start(ctx)
	}()

	b.l.Info("bot started",
		zap.String("platform", b.cfg.Platform),
		zap.Strings("symbols", b.cfg.Symbols),
		zap.String("listen_addr", b.cfg.ListenAddr))

	err := <-errCh
	cancel()
	<-errCh

	if closeErr := b.journal.Close(); closeErr != nil {
		b.l.Error("failed to close trade journal", zap.Error(closeErr))
	}
	if closeErr := b.snapshots.Close(); closeErr != nil {
		b.l.Error("failed to close snapshot store", zap.Error(closeErr))
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
