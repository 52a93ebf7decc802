package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorTrackerCountsWithinWindow(t *testing.T) {
	tracker := NewErrorTracker(30 * time.Second)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, tracker.RecordError("primary", base))
	assert.Equal(t, 2, tracker.RecordError("primary", base.Add(5*time.Second)))
	assert.Equal(t, 3, tracker.RecordError("primary", base.Add(10*time.Second)))
	assert.Equal(t, 3, tracker.Count("primary"))
}

func TestErrorTrackerResetsAfterQuietPeriod(t *testing.T) {
	tracker := NewErrorTracker(30 * time.Second)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tracker.RecordError("primary", base)
	tracker.RecordError("primary", base.Add(5*time.Second))

	// More than a full window since the last error: the streak restarts.
	count := tracker.RecordError("primary", base.Add(40*time.Second))
	assert.Equal(t, 1, count)
}

func TestErrorTrackerSlowDribbleNeverResets(t *testing.T) {
	tracker := NewErrorTracker(30 * time.Second)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Errors 20s apart each land inside the window measured from the
	// previous error, so the count keeps climbing even though the first
	// error is long outside any true rolling window.
	now := base
	for i := 1; i <= 5; i++ {
		assert.Equal(t, i, tracker.RecordError("primary", now))
		now = now.Add(20 * time.Second)
	}
}

func TestErrorTrackerPerNodeIsolation(t *testing.T) {
	tracker := NewErrorTracker(30 * time.Second)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tracker.RecordError("primary", base)
	tracker.RecordError("primary", base.Add(time.Second))
	tracker.RecordError("backup-1", base)

	assert.Equal(t, 2, tracker.Count("primary"))
	assert.Equal(t, 1, tracker.Count("backup-1"))
	assert.Equal(t, 0, tracker.Count("backup-2"))
}

func TestErrorTrackerResetClearsNode(t *testing.T) {
	tracker := NewErrorTracker(30 * time.Second)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tracker.RecordError("primary", base)
	tracker.RecordError("primary", base.Add(time.Second))
	tracker.Reset("primary")

	assert.Equal(t, 0, tracker.Count("primary"))
	assert.Equal(t, 1, tracker.RecordError("primary", base.Add(2*time.Second)))
}
