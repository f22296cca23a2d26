package topology

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Subakiz/IDX-SCREENER/internal/domain"
)

// DefaultScoreTimeout bounds how long the decision loop waits for a score.
const DefaultScoreTimeout = 2 * time.Second

type scoreJob struct {
	window []float64
	result chan scoreResult
}

type scoreResult struct {
	score float64
	err   error
}

// AsyncScorer runs the wrapped Scorer in a dedicated single worker so the
// decision loop never stalls tick intake on the scoring computation.
// A single worker is sufficient: the score is needed at most once per
// evaluation cycle.
type AsyncScorer struct {
	inner   Scorer
	timeout time.Duration
	jobs    chan scoreJob
	quit    chan struct{}
	done    chan struct{}
	logger  *zap.Logger
}

// NewAsyncScorer starts the worker. Close must be called to release it.
func NewAsyncScorer(inner Scorer, timeout time.Duration, logger *zap.Logger) *AsyncScorer {
	if timeout <= 0 {
		timeout = DefaultScoreTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &AsyncScorer{
		inner:   inner,
		timeout: timeout,
		jobs:    make(chan scoreJob, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		logger:  logger,
	}
	go s.worker()
	return s
}

func (s *AsyncScorer) worker() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case job := <-s.jobs:
			score, err := s.inner.Score(context.Background(), job.window)
			// result channel is buffered: a caller that timed out
			// never blocks the worker.
			job.result <- scoreResult{score: score, err: err}
		}
	}
}

// Score submits the window to the worker and waits for the result with a
// bounded timeout. When the worker is busy, the wait expires or the scorer
// fails, ErrScoreUnavailable is returned and the caller skips the cycle.
func (s *AsyncScorer) Score(ctx context.Context, window []float64) (float64, error) {
	snapshot := make([]float64, len(window))
	copy(snapshot, window)

	job := scoreJob{window: snapshot, result: make(chan scoreResult, 1)}

	select {
	case s.jobs <- job:
	default:
		return 0, errors.Wrap(domain.ErrScoreUnavailable, "score worker busy")
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case res := <-job.result:
		if res.err != nil {
			s.logger.Warn("complexity score computation failed", zap.Error(res.err))
			return 0, errors.Wrap(domain.ErrScoreUnavailable, res.err.Error())
		}
		return res.score, nil
	case <-timer.C:
		return 0, errors.Wrap(domain.ErrScoreUnavailable, "score computation timed out")
	case <-ctx.Done():
		return 0, errors.Wrap(domain.ErrScoreUnavailable, ctx.Err().Error())
	}
}

// Close stops the worker and waits for it to exit.
func (s *AsyncScorer) Close() {
	close(s.quit)
	<-s.done
}
