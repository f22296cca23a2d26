package feed

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/Subakiz/IDX-SCREENER/internal/domain"
)

const (
	// mockStepDt approximates one second of trading in annual terms.
	mockStepDt = 1.0 / (252 * 390 * 60)

	flashCrashProb = 0.0005
	pumpProb       = 0.0005
	shockMagnitude = 0.05
)

// MockSource emits synthetic GBM ticks with occasional jump shocks,
// quantized to IDX tick-size rules. Useful for offline runs and exercising
// the crash-regime path.
type MockSource struct {
	symbol   string
	price    float64
	mu       float64
	sigma    float64
	interval time.Duration
	rng      *rand.Rand
	logger   *zap.Logger
}

// NewMockSource creates a synthetic source starting at startPrice.
func NewMockSource(symbol string, startPrice float64, interval time.Duration, logger *zap.Logger) *MockSource {
	if startPrice <= 0 {
		startPrice = 4800
	}
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MockSource{
		symbol:   symbol,
		price:    startPrice,
		mu:       0.0001,
		sigma:    0.02,
		interval: interval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:   logger,
	}
}

// Connect implements Feed. The synthetic source is always reachable.
func (m *MockSource) Connect(_ context.Context) error {
	m.logger.Info("connected to mock IDX source", zap.String("symbol", m.symbol))
	return nil
}

// Run implements Feed.
func (m *MockSource) Run(ctx context.Context, out chan domain.Tick) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			Enqueue(out, m.nextTick(), nil)
		}
	}
}

func (m *MockSource) nextTick() domain.Tick {
	drift := (m.mu - 0.5*m.sigma*m.sigma) * mockStepDt
	diffusion := m.sigma * math.Sqrt(mockStepDt) * m.rng.NormFloat64()

	// occasional shock so the crash-regime branch gets exercised
	jump := 0.0
	r := m.rng.Float64()
	if r < flashCrashProb {
		jump = -shockMagnitude
	} else if r > 1-pumpProb {
		jump = shockMagnitude
	}

	m.price *= math.Exp(drift + diffusion + jump)
	m.price = QuantizeIDX(m.price)

	volume := int64(0)
	if m.rng.Float64() > 0.7 {
		volume = int64(m.rng.Intn(100)) + 1
	}

	return domain.Tick{
		Symbol:    m.symbol,
		Price:     m.price,
		Volume:    volume,
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
		BidVol:    int64(m.rng.Intn(4900)) + 100,
		AskVol:    int64(m.rng.Intn(4900)) + 100,
	}
}

// QuantizeIDX rounds a price to the IDX tick-size ladder and applies the
// exchange price floor of 50.
func QuantizeIDX(price float64) float64 {
	var tickSize float64
	switch {
	case price > 5000:
		tickSize = 25
	case price > 2000:
		tickSize = 10
	case price > 500:
		tickSize = 5
	case price > 200:
		tickSize = 2
	default:
		tickSize = 1
	}

	quantized := math.Round(price/tickSize) * tickSize
	if quantized < 50 {
		return 50
	}
	return quantized
}
