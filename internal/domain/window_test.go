package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pushAll(w *PriceWindow, prices ...float64) {
	for _, p := range prices {
		w.Push(decimal.NewFromFloat(p))
	}
}

func TestPriceWindow_NotReadyUntilFull(t *testing.T) {
	w := NewPriceWindow(3)
	assert.False(t, w.Ready())

	pushAll(w, 1, 2)
	assert.False(t, w.Ready())
	assert.Equal(t, 2, w.Len())

	pushAll(w, 3)
	assert.True(t, w.Ready())
	assert.Equal(t, 3, w.Len())
}

func TestPriceWindow_EvictsOldestOnOverflow(t *testing.T) {
	w := NewPriceWindow(3)
	pushAll(w, 1, 2, 3, 4)

	require.Equal(t, 3, w.Len())
	snap := w.Snapshot()
	assert.True(t, snap[0].Equal(decimal.NewFromInt(2)))
	assert.True(t, snap[1].Equal(decimal.NewFromInt(3)))
	assert.True(t, snap[2].Equal(decimal.NewFromInt(4)))
}

func TestPriceWindow_StaysFullAfterManyPushes(t *testing.T) {
	w := NewPriceWindow(2)
	for i := 0; i < 100; i++ {
		w.Push(decimal.NewFromInt(int64(i)))
	}

	require.Equal(t, 2, w.Len())
	snap := w.Snapshot()
	assert.True(t, snap[0].Equal(decimal.NewFromInt(98)))
	assert.True(t, snap[1].Equal(decimal.NewFromInt(99)))
}

func TestPriceWindow_SnapshotIsACopy(t *testing.T) {
	w := NewPriceWindow(2)
	pushAll(w, 1, 2)

	snap := w.Snapshot()
	snap[0] = decimal.NewFromInt(999)

	fresh := w.Snapshot()
	assert.True(t, fresh[0].Equal(decimal.NewFromInt(1)))
}

func TestPriceWindow_CapacityOne(t *testing.T) {
	w := NewPriceWindow(1)
	pushAll(w, 5, 6)

	require.Equal(t, 1, w.Len())
	assert.True(t, w.Snapshot()[0].Equal(decimal.NewFromInt(6)))
	assert.True(t, w.Ready())
}
