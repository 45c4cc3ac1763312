package timeutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSleepElapsesFullDuration(t *testing.T) {
	start := time.Now()
	slept := Sleep(context.Background(), 20*time.Millisecond)
	assert.True(t, slept)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestSleepAbortsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	slept := Sleep(ctx, time.Hour)
	assert.False(t, slept)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleepZeroDurationReflectsContextState(t *testing.T) {
	assert.True(t, Sleep(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, Sleep(ctx, 0))
}
