package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Subakiz/IDX-SCREENER/internal/domain"
)

const (
	stockbitStreamURL = "wss://stream.stockbit.com/ws"

	handshakeTimeout = 10 * time.Second
	readDeadline     = 30 * time.Second
	maxFrameSize     = 1 << 20
)

// storedCookie mirrors the cookies.json format exported from an
// authenticated browser session. Session handling itself (login flows) is
// deliberately outside this process.
type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// stockbitFrame is the trade payload carried in a stream frame.
type stockbitFrame struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
	Price  float64 `json:"price"`
	Volume int64  `json:"volume"`
	BidVol int64  `json:"bid_vol"`
	AskVol int64  `json:"ask_vol"`
}

// StockbitSource scrapes live IDX ticks from the Stockbit websocket stream
// using a previously exported cookie session. Reconnects with exponential
// backoff and enqueues ticks with the drop-oldest policy.
type StockbitSource struct {
	symbol      string
	cookiesPath string
	streamURL   string
	cookies     []storedCookie
	logger      *zap.Logger
	onDrop      func()
	onReconnect func()
}

// StockbitOption configures the source.
type StockbitOption func(*StockbitSource)

// WithStreamURL overrides the websocket endpoint (tests).
func WithStreamURL(url string) StockbitOption {
	return func(s *StockbitSource) {
		if url != "" {
			s.streamURL = url
		}
	}
}

// WithDropCounter registers a callback fired when a tick is dropped.
func WithDropCounter(fn func()) StockbitOption {
	return func(s *StockbitSource) { s.onDrop = fn }
}

// WithReconnectCounter registers a callback fired on every reconnect attempt.
func WithReconnectCounter(fn func()) StockbitOption {
	return func(s *StockbitSource) { s.onReconnect = fn }
}

// NewStockbitSource creates a scraper for one IDX symbol.
func NewStockbitSource(symbol, cookiesPath string, logger *zap.Logger, opts ...StockbitOption) *StockbitSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &StockbitSource{
		symbol:      symbol,
		cookiesPath: cookiesPath,
		streamURL:   stockbitStreamURL,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect loads the session cookies. Idempotent.
func (s *StockbitSource) Connect(_ context.Context) error {
	if s.cookies != nil {
		return nil
	}

	payload, err := os.ReadFile(s.cookiesPath)
	if err != nil {
		return errors.Wrapf(domain.ErrFeedUnavailable, "read session cookies %s: %v", s.cookiesPath, err)
	}

	var cookies []storedCookie
	if err := json.Unmarshal(payload, &cookies); err != nil {
		return errors.Wrapf(domain.ErrFeedUnavailable, "decode session cookies: %v", err)
	}
	if len(cookies) == 0 {
		return errors.Wrap(domain.ErrFeedUnavailable, "no session cookies found, export a fresh cookies.json")
	}

	s.cookies = cookies
	s.logger.Info("loaded session cookies", zap.Int("count", len(cookies)))
	return nil
}

// Run implements Feed: dials the stream and re-dials on failure until the
// context is cancelled.
func (s *StockbitSource) Run(ctx context.Context, out chan domain.Tick) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(time.Second),
		backoff.WithMaxInterval(30*time.Second),
		backoff.WithMaxElapsedTime(0),
	), ctx)

	return backoff.Retry(func() error {
		if s.onReconnect != nil {
			s.onReconnect()
		}
		err := s.consumeStream(ctx, out)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		s.logger.Warn("stockbit stream disconnected, retrying", zap.Error(err))
		return err
	}, policy)
}

func (s *StockbitSource) consumeStream(ctx context.Context, out chan domain.Tick) error {
	header := http.Header{}
	header.Set("Cookie", s.cookieHeader())
	header.Set("Origin", "https://stockbit.com")

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.streamURL, header)
	if err != nil {
		return errors.Wrap(err, "dial stockbit stream")
	}
	defer conn.Close()

	s.logger.Info("listening for stockbit frames", zap.String("symbol", s.symbol))

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	subscribe := fmt.Sprintf(`{"op":"subscribe","symbol":%q}`, s.symbol)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(subscribe)); err != nil {
		return errors.Wrap(err, "subscribe")
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return errors.Wrap(err, "read frame")
		}

		tick, ok := s.parseFrame(payload)
		if !ok {
			continue
		}

		Enqueue(out, tick, s.onDrop)
	}
}

func (s *StockbitSource) parseFrame(payload []byte) (domain.Tick, bool) {
	trimmed := strings.TrimSpace(string(payload))
	// skip heartbeats and non-JSON frames
	if !strings.HasPrefix(trimmed, "{") {
		return domain.Tick{}, false
	}

	var frame stockbitFrame
	if err := json.Unmarshal([]byte(trimmed), &frame); err != nil {
		return domain.Tick{}, false
	}
	if frame.Type != "trade" || frame.Price <= 0 {
		return domain.Tick{}, false
	}
	if frame.Symbol != "" && !strings.EqualFold(frame.Symbol, s.symbol) {
		return domain.Tick{}, false
	}

	return domain.Tick{
		Symbol:    s.symbol,
		Price:     frame.Price,
		Volume:    frame.Volume,
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
		BidVol:    frame.BidVol,
		AskVol:    frame.AskVol,
	}, true
}

func (s *StockbitSource) cookieHeader() string {
	parts := make([]string, 0, len(s.cookies))
	for _, c := range s.cookies {
		parts = append(parts, fmt.Sprintf("%s=%s", c.Name, c.Value))
	}
	return strings.Join(parts, "; ")
}
