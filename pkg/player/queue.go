package player

import (
	"math/rand"
	"sync"

	"github.com/latoulicious/Eniwa/pkg/lavalink"
)

// QueueMode controls how the queue advances when a track finishes.
type QueueMode int

const (
	// ModeOff plays the queue front to back.
	ModeOff QueueMode = iota
	// ModeLoopTrack replays the finished track.
	ModeLoopTrack
	// ModeLoopAll re-appends the finished track to the back of the queue.
	ModeLoopAll
)

func (m QueueMode) String() string {
	switch m {
	case ModeLoopTrack:
		return "track"
	case ModeLoopAll:
		return "queue"
	default:
		return "off"
	}
}

// Queue holds the ordered pending tracks and play history for one guild's
// session.
type Queue struct {
	mu      sync.Mutex
	items   []lavalink.Track
	history []lavalink.Track
	mode    QueueMode
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		items:   make([]lavalink.Track, 0),
		history: make([]lavalink.Track, 0),
	}
}

// Add appends tracks to the back of the queue.
func (q *Queue) Add(tracks ...lavalink.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, tracks...)
}

// Next pops the track that should play after the given finished track,
// honoring the queue mode. The finished track is recorded in history
// (except when it immediately replays under track loop).
func (q *Queue) Next(finished lavalink.Track) (lavalink.Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch q.mode {
	case ModeLoopTrack:
		return finished, true
	case ModeLoopAll:
		q.items = append(q.items, finished)
	}
	q.history = append(q.history, finished)

	if len(q.items) == 0 {
		return lavalink.Track{}, false
	}
	next := q.items[0]
	q.items = q.items[1:]
	return next, true
}

// Pop removes and returns the head of the queue without touching history.
func (q *Queue) Pop() (lavalink.Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return lavalink.Track{}, false
	}
	next := q.items[0]
	q.items = q.items[1:]
	return next, true
}

// Remove drops the pending track at index.
func (q *Queue) Remove(index int) (lavalink.Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if index < 0 || index >= len(q.items) {
		return lavalink.Track{}, false
	}
	removed := q.items[index]
	q.items = append(q.items[:index], q.items[index+1:]...)
	return removed, true
}

// PushHistory records a track as played.
func (q *Queue) PushHistory(track lavalink.Track) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.history = append(q.history, track)
}

// Shuffle randomizes the pending tracks in place.
func (q *Queue) Shuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()
	rand.Shuffle(len(q.items), func(i, j int) {
		q.items[i], q.items[j] = q.items[j], q.items[i]
	})
}

// Clear drops all pending tracks, leaving history intact.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = q.items[:0]
}

// Items returns a copy of the pending tracks in order.
func (q *Queue) Items() []lavalink.Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]lavalink.Track, len(q.items))
	copy(out, q.items)
	return out
}

// History returns a copy of the played tracks in order.
func (q *Queue) History() []lavalink.Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]lavalink.Track, len(q.history))
	copy(out, q.history)
	return out
}

// Len returns the number of pending tracks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Mode returns the current queue mode.
func (q *Queue) Mode() QueueMode {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.mode
}

// SetMode changes the queue mode.
func (q *Queue) SetMode(mode QueueMode) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.mode = mode
}

// Restore replaces the queue's full contents from a snapshot.
func (q *Queue) Restore(items, history []lavalink.Track, mode QueueMode) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items[:0], items...)
	q.history = append(q.history[:0], history...)
	q.mode = mode
}
