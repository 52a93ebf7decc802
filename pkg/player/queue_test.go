package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latoulicious/Eniwa/pkg/lavalink"
)

func testTrack(title string) lavalink.Track {
	return lavalink.Track{
		Encoded: "enc:" + title,
		Info:    lavalink.TrackInfo{Title: title},
	}
}

func TestQueueAddAndPop(t *testing.T) {
	q := NewQueue()
	q.Add(testTrack("one"))
	q.Add(testTrack("two"))

	assert.Equal(t, 2, q.Len())

	track, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "one", track.Info.Title)
	assert.Equal(t, 1, q.Len())
}

func TestQueueNextModeOff(t *testing.T) {
	q := NewQueue()
	q.Add(testTrack("next-up"))

	finished := testTrack("finished")
	track, ok := q.Next(finished)
	require.True(t, ok)
	assert.Equal(t, "next-up", track.Info.Title)
	assert.Equal(t, 0, q.Len())

	history := q.History()
	require.Len(t, history, 1)
	assert.Equal(t, "finished", history[0].Info.Title)
}

func TestQueueNextModeOffEmpty(t *testing.T) {
	q := NewQueue()

	_, ok := q.Next(testTrack("finished"))
	assert.False(t, ok)
	assert.Len(t, q.History(), 1)
}

func TestQueueNextLoopTrackReplays(t *testing.T) {
	q := NewQueue()
	q.SetMode(ModeLoopTrack)
	q.Add(testTrack("queued"))

	finished := testTrack("finished")
	track, ok := q.Next(finished)
	require.True(t, ok)

	// The finished track replays; the queue and history are untouched.
	assert.Equal(t, "finished", track.Info.Title)
	assert.Equal(t, 1, q.Len())
	assert.Empty(t, q.History())
}

func TestQueueNextLoopAllCycles(t *testing.T) {
	q := NewQueue()
	q.SetMode(ModeLoopAll)
	q.Add(testTrack("two"))

	track, ok := q.Next(testTrack("one"))
	require.True(t, ok)
	assert.Equal(t, "two", track.Info.Title)

	// The finished track went to the back of the queue.
	items := q.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "one", items[0].Info.Title)

	track, ok = q.Next(track)
	require.True(t, ok)
	assert.Equal(t, "one", track.Info.Title)
}

func TestQueueShuffleKeepsContents(t *testing.T) {
	q := NewQueue()
	titles := map[string]bool{}
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		q.Add(testTrack(name))
		titles[name] = true
	}

	q.Shuffle()

	items := q.Items()
	require.Len(t, items, 5)
	for _, track := range items {
		assert.True(t, titles[track.Info.Title])
	}
}

func TestQueueClear(t *testing.T) {
	q := NewQueue()
	q.Add(testTrack("one"))
	q.Add(testTrack("two"))
	q.Clear()

	assert.Equal(t, 0, q.Len())
}

func TestQueueModeString(t *testing.T) {
	assert.Equal(t, "off", ModeOff.String())
	assert.Equal(t, "track", ModeLoopTrack.String())
	assert.Equal(t, "queue", ModeLoopAll.String())
}
