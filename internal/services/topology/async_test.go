package topology

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Subakiz/IDX-SCREENER/internal/domain"
)

type blockingscorer struct {
	release chan struct{}
	score   float64
	err     error
}

func (b *blockingscorer) Score(_ context.Context, _ []float64) (float64, error) {
	if b.release != nil {
		<-b.release
	}
	return b.score, b.err
}

func TestAsyncScoreDelegates(t *testing.T) {
	s := NewAsyncScorer(&blockingscorer{score: 42}, time.Second, nil)
	defer s.Close()

	score, err := s.Score(context.Background(), []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 42.0, score)
}

func TestAsyncScoreTimeout(t *testing.T) {
	release := make(chan struct{})
	s := NewAsyncScorer(&blockingscorer{release: release, score: 42}, 20*time.Millisecond, nil)
	defer func() {
		close(release)
		s.Close()
	}()

	_, err := s.Score(context.Background(), []float64{1, 2, 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrScoreUnavailable))
}

func TestAsyncScoreBusyWorker(t *testing.T) {
	release := make(chan struct{})
	s := NewAsyncScorer(&blockingscorer{release: release, score: 42}, time.Second, nil)
	defer func() {
		close(release)
		s.Close()
	}()

	// occupy the worker and fill the one-slot job queue
	go s.Score(context.Background(), []float64{1, 2, 3}) //nolint:errcheck
	time.Sleep(20 * time.Millisecond)
	go s.Score(context.Background(), []float64{1, 2, 3}) //nolint:errcheck
	time.Sleep(20 * time.Millisecond)

	_, err := s.Score(context.Background(), []float64{4, 5, 6})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrScoreUnavailable))
}

func TestAsyncScoreInnerFailure(t *testing.T) {
	s := NewAsyncScorer(&blockingscorer{err: errors.New("boom")}, time.Second, nil)
	defer s.Close()

	_, err := s.Score(context.Background(), []float64{1, 2, 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrScoreUnavailable))
}

func TestAsyncScoreContextCancel(t *testing.T) {
	release := make(chan struct{})
	s := NewAsyncScorer(&blockingscorer{release: release}, time.Minute, nil)
	defer func() {
		close(release)
		s.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := s.Score(ctx, []float64{1, 2, 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrScoreUnavailable))
}

func TestAsyncScoreCopiesWindow(t *testing.T) {
	release := make(chan struct{})
	inner := &blockingscorer{release: release, score: 1}
	s := NewAsyncScorer(inner, time.Second, nil)
	defer s.Close()

	window := []float64{1, 2, 3}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Score(context.Background(), window)
	}()

	// mutating the caller's slice while the job is in flight must be safe
	time.Sleep(10 * time.Millisecond)
	window[0] = 999
	close(release)
	<-done
}
