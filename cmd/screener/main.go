// Command screener runs the market tick analytics pipeline: it consumes a
// tick feed, detects the market regime and emits BUY/SELL signals.
//
// Usage:
//
//	screener --config config.yaml
//	screener --symbol BBRI --feed mock        (single-symbol CLI mode)
//	screener setup                            (interactive config wizard)
//
// Optional environment variables:
//
//	TELEGRAM_BOT_TOKEN for the telegram notifier
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Subakiz/IDX-SCREENER/config"
	"github.com/Subakiz/IDX-SCREENER/internal"
	"github.com/Subakiz/IDX-SCREENER/internal/metrics"
	"github.com/Subakiz/IDX-SCREENER/internal/setup"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		os.Args = []string{os.Args[0], "--config", "config.gen.yaml"}
	}

	configs, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsSrv := metrics.Serve(configs[0].MetricsAddr)
	defer metricsSrv.Close()

	var wg sync.WaitGroup
	for _, conf := range configs {
		screener, err := internal.NewScreener(conf, logger)
		if err != nil {
			logger.Fatal("failed to build screener", zap.String("symbol", conf.Symbol), zap.Error(err))
		}

		wg.Add(1)
		go func(conf config.Config) {
			defer wg.Done()
			if err := screener.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("screener stopped", zap.String("symbol", conf.Symbol), zap.Error(err))
				stop()
			}
		}(conf)
	}

	<-ctx.Done()
	wg.Wait()
	logger.Info("screener stopped")
}
