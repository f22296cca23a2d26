package history

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Subakiz/IDX-SCREENER/internal/domain"
)

func TestPushEvictsOldestAtCap(t *testing.T) {
	h := New(200)
	for i := 0; i < 201; i++ {
		h.Push(float64(i))
	}

	assert.Equal(t, 200, h.Len())

	window, err := h.Window(200)
	require.NoError(t, err)
	assert.Equal(t, 1.0, window[0], "price 0 must be evicted")
	assert.Equal(t, 200.0, window[199])
}

func TestWindowInsufficientData(t *testing.T) {
	h := New(200)
	h.Push(100)
	h.Push(101)

	_, err := h.Window(21)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientData))
}

func TestWindowChronologicalOrder(t *testing.T) {
	h := New(10)
	for _, p := range []float64{1, 2, 3, 4, 5} {
		h.Push(p)
	}

	window, err := h.Window(3)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, 5}, window)
}

func TestWindowIsACopy(t *testing.T) {
	h := New(10)
	h.Push(1)
	h.Push(2)

	window, err := h.Window(2)
	require.NoError(t, err)

	window[0] = 999
	again, err := h.Window(2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, again[0])
}

func TestPrefillKeepsMostRecent(t *testing.T) {
	h := New(3)
	h.Prefill([]float64{1, 2, 3, 4, 5})

	assert.Equal(t, 3, h.Len())
	window, err := h.Window(3)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, 5}, window)
}

func TestNewDefaultsCap(t *testing.T) {
	h := New(0)
	for i := 0; i < DefaultCap+10; i++ {
		h.Push(float64(i))
	}
	assert.Equal(t, DefaultCap, h.Len())
}
