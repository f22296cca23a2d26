package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Subakiz/IDX-SCREENER/internal/domain"
)

func TestEnqueueDropOldest(t *testing.T) {
	out := make(chan domain.Tick, 2)
	drops := 0
	onDrop := func() { drops++ }

	Enqueue(out, domain.Tick{Price: 1}, onDrop)
	Enqueue(out, domain.Tick{Price: 2}, onDrop)
	Enqueue(out, domain.Tick{Price: 3}, onDrop)

	assert.Equal(t, 1, drops)
	assert.Equal(t, 2.0, (<-out).Price, "oldest tick is the one discarded")
	assert.Equal(t, 3.0, (<-out).Price)
}

func TestEnqueueNoDropWhenRoom(t *testing.T) {
	out := make(chan domain.Tick, 4)
	drops := 0

	Enqueue(out, domain.Tick{Price: 1}, func() { drops++ })
	Enqueue(out, domain.Tick{Price: 2}, func() { drops++ })

	assert.Zero(t, drops)
	assert.Len(t, out, 2)
}

func TestQuantizeIDX(t *testing.T) {
	cases := []struct {
		name  string
		price float64
		want  float64
	}{
		{"above 5000 uses 25 step", 5012, 5000},
		{"above 5000 rounds up", 5013, 5025},
		{"2000 to 5000 uses 10 step", 4804, 4800},
		{"500 to 2000 uses 5 step", 1013, 1015},
		{"200 to 500 uses 2 step", 301, 302},
		{"below 200 uses 1 step", 150.4, 150},
		{"exchange floor", 12, 50},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, QuantizeIDX(tc.price))
		})
	}
}

func TestMockSourceEmitsQuantizedTicks(t *testing.T) {
	src := NewMockSource("BBRI", 4800, time.Millisecond, nil)
	require.NoError(t, src.Connect(context.Background()))

	out := make(chan domain.Tick, 16)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := src.Run(ctx, out)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	require.NotEmpty(t, out)

	for len(out) > 0 {
		tick := <-out
		assert.Equal(t, "BBRI", tick.Symbol)
		assert.Equal(t, tick.Price, QuantizeIDX(tick.Price), "prices follow the tick-size ladder")
		assert.Positive(t, tick.BidVol)
		assert.Positive(t, tick.AskVol)
	}
}

func TestBinanceMapEventKeepsFractionalImbalance(t *testing.T) {
	src := NewBinanceSource("BTCUSDT", nil, nil)

	tick, ok := src.mapEvent(&binance.WsBookTickerEvent{
		BestBidPrice: "60000.10",
		BestAskPrice: "60000.30",
		BestBidQty:   "0.900",
		BestAskQty:   "0.100",
	})
	require.True(t, ok)

	// sub-unit quantities must not truncate to an empty book
	assert.Equal(t, int64(900), tick.BidVol)
	assert.Equal(t, int64(100), tick.AskVol)
	assert.InDelta(t, 0.8, tick.OrderBookImbalance(), 1e-12)
	assert.InDelta(t, 60000.20, tick.Price, 1e-9)
}

func TestBinanceMapEventRejectsBadQuotes(t *testing.T) {
	src := NewBinanceSource("BTCUSDT", nil, nil)

	cases := []struct {
		name  string
		event binance.WsBookTickerEvent
	}{
		{"zero bid price", binance.WsBookTickerEvent{BestBidPrice: "0", BestAskPrice: "100", BestBidQty: "1", BestAskQty: "1"}},
		{"malformed qty", binance.WsBookTickerEvent{BestBidPrice: "100", BestAskPrice: "101", BestBidQty: "x", BestAskQty: "1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := src.mapEvent(&tc.event)
			assert.False(t, ok)
		})
	}
}

func TestStockbitConnectMissingCookies(t *testing.T) {
	src := NewStockbitSource("BBRI", filepath.Join(t.TempDir(), "missing.json"), nil)

	err := src.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrFeedUnavailable))
}

func TestStockbitConnectEmptyCookies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0644))

	src := NewStockbitSource("BBRI", path, nil)
	err := src.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrFeedUnavailable))
}

func TestStockbitConnectLoadsCookies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"session","value":"abc"}]`), 0644))

	src := NewStockbitSource("BBRI", path, nil)
	require.NoError(t, src.Connect(context.Background()))
	assert.Equal(t, "session=abc", src.cookieHeader())
}

func TestStockbitParseFrame(t *testing.T) {
	src := NewStockbitSource("BBRI", "", nil)

	cases := []struct {
		name    string
		payload string
		ok      bool
	}{
		{"valid trade", `{"type":"trade","symbol":"BBRI","price":4800,"volume":10,"bid_vol":500,"ask_vol":100}`, true},
		{"heartbeat", `ping`, false},
		{"other type", `{"type":"orderbook","symbol":"BBRI","price":4800}`, false},
		{"other symbol", `{"type":"trade","symbol":"TLKM","price":3000}`, false},
		{"zero price", `{"type":"trade","symbol":"BBRI","price":0}`, false},
		{"symbol case insensitive", `{"type":"trade","symbol":"bbri","price":4800}`, true},
		{"malformed json", `{"type":`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tick, ok := src.parseFrame([]byte(tc.payload))
			assert.Equal(t, tc.ok, ok)
			if ok {
				assert.Equal(t, "BBRI", tick.Symbol)
				assert.Positive(t, tick.Price)
			}
		})
	}
}
