package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClock_SleepAdvances(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	require.NoError(t, c.Sleep(context.Background(), 5*time.Second))
	require.NoError(t, c.Sleep(context.Background(), 2*time.Second))

	assert.Equal(t, start.Add(7*time.Second), c.Now())
	assert.Equal(t, []time.Duration{5 * time.Second, 2 * time.Second}, c.Slept())
}

func TestMockClock_SleepHonorsCancelledContext(t *testing.T) {
	c := NewMockClock(time.Time{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Sleep(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, c.Slept())
}

func TestRealClock_SleepCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := RealClock{}.Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMockClock_SetAndAdvance(t *testing.T) {
	c := NewMockClock(time.Time{})
	target := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Set(target)
	c.Advance(time.Hour)
	assert.Equal(t, target.Add(time.Hour), c.Now())
}
