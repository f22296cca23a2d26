package internal

import (
	"math/rand"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Subakiz/IDX-SCREENER/config"
	"github.com/Subakiz/IDX-SCREENER/internal/domain"
	"github.com/Subakiz/IDX-SCREENER/internal/metrics"
	"github.com/Subakiz/IDX-SCREENER/internal/services/feed"
	"github.com/Subakiz/IDX-SCREENER/internal/services/history"
	"github.com/Subakiz/IDX-SCREENER/internal/services/montecarlo"
	"github.com/Subakiz/IDX-SCREENER/internal/services/notifier"
	"github.com/Subakiz/IDX-SCREENER/internal/services/regime"
	"github.com/Subakiz/IDX-SCREENER/internal/services/strategy"
	"github.com/Subakiz/IDX-SCREENER/internal/services/topology"
	"github.com/Subakiz/IDX-SCREENER/internal/storage/signals"
	"github.com/Subakiz/IDX-SCREENER/internal/storage/ticks"
)

// NewScreener builds the full pipeline for one symbol config: store, feed,
// notifier, scorer worker, detector, simulator and strategy. The returned
// screener owns every collaborator it creates and releases them on shutdown.
func NewScreener(conf config.Config, logger *zap.Logger) (*Screener, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("symbol", conf.Symbol))

	store, err := newTickStore(conf)
	if err != nil {
		return nil, errors.Wrap(err, "create tick store")
	}

	signalStore, err := signals.NewWALStore(conf.SignalsWalDir)
	if err != nil {
		_ = store.Close()
		return nil, errors.Wrap(err, "create signal store")
	}

	// releases everything opened so far on a failed construction branch
	cleanup := func(extra ...func()) {
		for _, fn := range extra {
			fn()
		}
		_ = signalStore.Close()
		_ = store.Close()
	}

	src, err := newFeed(conf, logger)
	if err != nil {
		cleanup()
		return nil, errors.Wrap(err, "create feed")
	}

	notify, err := newNotifier(conf, logger)
	if err != nil {
		cleanup()
		return nil, errors.Wrap(err, "create notifier")
	}

	scorer := topology.NewAsyncScorer(topology.NewLandscapeScorer(), conf.ScoreTimeout, logger)

	detector, err := regime.New(regime.Config{
		WindowSize:       conf.WindowSize,
		EvaluationStride: conf.EvaluationStride,
		CrashThreshold:   conf.CrashThreshold,
		StableThreshold:  conf.StableThreshold,
	}, scorer, logger)
	if err != nil {
		cleanup(scorer.Close)
		return nil, errors.Wrap(err, "create regime detector")
	}
	detector.SetTransitionHook(func(_, to domain.Regime) {
		metrics.RegimeTransitionsTotal.WithLabelValues(conf.Symbol, to.String()).Inc()
	})

	sim, err := montecarlo.New(conf.MCPaths, conf.MCHorizon, conf.MCStepDt,
		montecarlo.WithRand(rand.New(rand.NewSource(time.Now().UnixNano()))))
	if err != nil {
		cleanup(scorer.Close)
		return nil, errors.Wrap(err, "create simulator")
	}

	hist := history.New(conf.HistoryCap)

	strat, err := strategy.NewHybrid(conf.Symbol, hist, detector, sim, logger)
	if err != nil {
		cleanup(scorer.Close)
		return nil, errors.Wrap(err, "create strategy")
	}

	return &Screener{
		conf:       conf,
		feed:       src,
		store:      store,
		signals:    signalStore,
		notify:     notify,
		strategy:   strat,
		hist:       hist,
		closers:    []func(){scorer.Close},
		logger:     logger,
		queue:      make(chan domain.Tick, conf.QueueSize),
		writeQueue: make(chan domain.Tick, writeQueueSize),
	}, nil
}

func newTickStore(conf config.Config) (ticks.Store, error) {
	switch conf.Store {
	case config.StorePostgres:
		return ticks.NewPostgresStore(conf.PostgresDSN), nil
	default:
		return ticks.NewWALStore(conf.WalDir)
	}
}

func newFeed(conf config.Config, logger *zap.Logger) (feed.Feed, error) {
	onDrop := func() {
		metrics.DroppedTicksTotal.WithLabelValues(conf.Symbol).Inc()
	}

	switch conf.Feed {
	case config.FeedStockbit:
		return feed.NewStockbitSource(conf.Symbol, conf.CookiesPath, logger,
			feed.WithDropCounter(onDrop),
			feed.WithReconnectCounter(func() {
				metrics.FeedReconnectsTotal.WithLabelValues(conf.Symbol).Inc()
			})), nil
	case config.FeedBinance:
		return feed.NewBinanceSource(conf.Symbol, logger, onDrop), nil
	case config.FeedMock:
		return feed.NewMockSource(conf.Symbol, conf.MockStartPrice, conf.MockInterval, logger), nil
	default:
		return nil, errors.Wrapf(domain.ErrInvalidConfiguration, "unknown feed %q", conf.Feed)
	}
}

func newNotifier(conf config.Config, logger *zap.Logger) (notifier.Notifier, error) {
	if conf.Notifier == config.NotifierTelegram {
		token := os.Getenv("TELEGRAM_BOT_TOKEN")
		if token == "" {
			return nil, errors.New("TELEGRAM_BOT_TOKEN environment variable must be set for the telegram notifier")
		}
		return notifier.NewTelegramNotifier(token, conf.TelegramChatID, logger)
	}
	return notifier.NewLogNotifier(logger), nil
}
