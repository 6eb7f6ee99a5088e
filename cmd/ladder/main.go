// Command ladder runs the DCA trading bot: it accepts webhook signals,
// ladders limit buys below the last entry, and exits the whole position at
// the configured profit target.
//
// Usage:
//
//	ladder -config config.yaml
//	ladder -setup (interactive configuration wizard)
//
// Required environment variables:
//
//	For Binance: BINANCE_API_KEY, BINANCE_API_SECRET
//	For Bybit: BYBIT_API_KEY, BYBIT_API_SECRET
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/vadiminshakov/ladder/config"
	"github.com/vadiminshakov/ladder/internal/app"
	"github.com/vadiminshakov/ladder/internal/setup"
	"go.uber.org/zap"
)

func main() {
	cfg, runSetup, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	if runSetup {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		return
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	bot, err := app.NewBot(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build bot", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bot.Run(ctx); err != nil {
		logger.Fatal("bot stopped with error", zap.Error(err))
	}

	logger.Info("bot stopped")
}
