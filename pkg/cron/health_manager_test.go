package cron

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthManagerRunsOnSchedule(t *testing.T) {
	var calls atomic.Int32
	hm := NewHealthManager(func(ctx context.Context) {
		calls.Add(1)
	}, 50*time.Millisecond)
	defer hm.Stop()

	require.Eventually(t, func() bool {
		return calls.Load() >= 2
	}, 3*time.Second, 10*time.Millisecond)
}

func TestHealthManagerSkipsOverlappingRuns(t *testing.T) {
	var active atomic.Int32
	var overlapped atomic.Bool
	release := make(chan struct{})

	hm := NewHealthManager(func(ctx context.Context) {
		if active.Add(1) > 1 {
			overlapped.Store(true)
		}
		<-release
		active.Add(-1)
	}, 50*time.Millisecond)

	// Let several ticks elapse while the first check is stuck.
	time.Sleep(250 * time.Millisecond)
	assert.True(t, hm.IsRunning())
	close(release)
	hm.Stop()

	assert.False(t, overlapped.Load())
}

func TestHealthManagerDisabledInterval(t *testing.T) {
	hm := NewHealthManager(func(ctx context.Context) {
		t.Error("check ran despite being disabled")
	}, 0)
	defer hm.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.True(t, hm.GetNextRun().IsZero())
	assert.Equal(t, time.Duration(0), hm.GetInterval())
}
