package feed

import (
	"context"
	"math"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Subakiz/IDX-SCREENER/internal/domain"
)

// bookVolScale converts fractional base-asset quantities to integer
// milli-units for the tick's book volumes.
const bookVolScale = 1000

// BinanceSource streams the public book ticker for one symbol and maps it to
// pipeline ticks: mid price, best bid/ask quantities as book volumes.
// Useful for exercising the pipeline against a real live feed when no IDX
// session is available.
type BinanceSource struct {
	symbol string
	logger *zap.Logger
	onDrop func()
}

// NewBinanceSource creates a book-ticker feed for a symbol like "BTCUSDT".
func NewBinanceSource(symbol string, logger *zap.Logger, onDrop func()) *BinanceSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BinanceSource{symbol: symbol, logger: logger, onDrop: onDrop}
}

// Connect implements Feed. The websocket endpoint needs no session.
func (b *BinanceSource) Connect(_ context.Context) error {
	return nil
}

// Run implements Feed: serves the book-ticker stream, restarting on errors
// until the context is cancelled.
func (b *BinanceSource) Run(ctx context.Context, out chan domain.Tick) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		streamErr := make(chan error, 1)

		handler := func(event *binance.WsBookTickerEvent) {
			tick, ok := b.mapEvent(event)
			if !ok {
				return
			}
			Enqueue(out, tick, b.onDrop)
		}
		errHandler := func(err error) {
			select {
			case streamErr <- err:
			default:
			}
		}

		doneC, stopC, err := binance.WsBookTickerServe(b.symbol, handler, errHandler)
		if err != nil {
			return errors.Wrapf(domain.ErrFeedUnavailable, "binance stream: %v", err)
		}

		b.logger.Info("connected to binance book ticker", zap.String("symbol", b.symbol))

		select {
		case <-ctx.Done():
			close(stopC)
			<-doneC
			return ctx.Err()
		case err := <-streamErr:
			b.logger.Warn("binance stream error, reconnecting", zap.Error(err))
			close(stopC)
			<-doneC
		case <-doneC:
			b.logger.Warn("binance stream closed, reconnecting")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

func (b *BinanceSource) mapEvent(event *binance.WsBookTickerEvent) (domain.Tick, bool) {
	bidPrice, err1 := strconv.ParseFloat(event.BestBidPrice, 64)
	askPrice, err2 := strconv.ParseFloat(event.BestAskPrice, 64)
	bidQty, err3 := strconv.ParseFloat(event.BestBidQty, 64)
	askQty, err4 := strconv.ParseFloat(event.BestAskQty, 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || bidPrice <= 0 || askPrice <= 0 {
		return domain.Tick{}, false
	}

	return domain.Tick{
		Symbol:    b.symbol,
		Price:     (bidPrice + askPrice) / 2,
		Volume:    0,
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
		// book quantities are fractional on most pairs; scale to
		// milli-units so sub-unit quotes keep their imbalance
		BidVol: int64(math.Round(bidQty * bookVolScale)),
		AskVol: int64(math.Round(askQty * bookVolScale)),
	}, true
}
