package services

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInFlight_Acquire(t *testing.T) {
	f := NewInFlight()

	release, ok := f.Acquire("7")
	require.True(t, ok)

	_, ok = f.Acquire("7")
	assert.False(t, ok)

	other, ok := f.Acquire("8")
	require.True(t, ok)
	other()

	release()
	release()

	again, ok := f.Acquire("7")
	require.True(t, ok)
	again()
}

func TestInFlight_OneWinnerPerRecord(t *testing.T) {
	f := NewInFlight()
	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := f.Acquire("42"); ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, winners.Load())
}
