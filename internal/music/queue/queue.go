// Package queue holds the upcoming tracks of one guild and its loop policy.
// The currently playing track is never stored here.
package queue

import (
	"errors"
	"math/rand/v2"
	"slices"
	"sync"

	"bot2296/internal/music/audio"
)

// ErrQueueEmpty is returned by Next when there is nothing left to play.
var ErrQueueEmpty = errors.New("no tracks in queue")

// LoopMode is the replay policy applied when a track ends.
type LoopMode int

const (
	LoopNone LoopMode = iota
	LoopTrack
	LoopQueue
)

func (m LoopMode) String() string {
	switch m {
	case LoopTrack:
		return "TRACK"
	case LoopQueue:
		return "QUEUE"
	default:
		return "NONE"
	}
}

// Queue is safe for concurrent use.
type Queue struct {
	mu     sync.Mutex
	tracks []audio.Track
	loop   LoopMode
}

func New() *Queue {
	return &Queue{tracks: make([]audio.Track, 0)}
}

// Put appends one track.
func (q *Queue) Put(t audio.Track) {
	q.mu.Lock()
	q.tracks = append(q.tracks, t)
	q.mu.Unlock()
}

// Extend appends tracks in order.
func (q *Queue) Extend(tracks []audio.Track) {
	q.mu.Lock()
	q.tracks = append(q.tracks, tracks...)
	q.mu.Unlock()
}

// PushFront puts t at the head so it plays next.
func (q *Queue) PushFront(t audio.Track) {
	q.mu.Lock()
	q.tracks = slices.Insert(q.tracks, 0, t)
	q.mu.Unlock()
}

// Next returns the track to play after ended (nil when nothing was playing).
// With LoopTrack the ended track is returned again and the queue is untouched.
// With LoopQueue the ended track goes back to the tail before the head is taken.
func (q *Queue) Next(ended *audio.Track) (audio.Track, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if ended != nil {
		switch q.loop {
		case LoopTrack:
			return *ended, nil
		case LoopQueue:
			q.tracks = append(q.tracks, *ended)
		}
	}

	if len(q.tracks) == 0 {
		return audio.Track{}, ErrQueueEmpty
	}
	next := q.tracks[0]
	q.tracks = q.tracks[1:]
	return next, nil
}

// Shuffle applies a uniform random permutation to the upcoming tracks.
func (q *Queue) Shuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()
	rand.Shuffle(len(q.tracks), func(i, j int) {
		q.tracks[i], q.tracks[j] = q.tracks[j], q.tracks[i]
	})
}

func (q *Queue) Reverse() {
	q.mu.Lock()
	slices.Reverse(q.tracks)
	q.mu.Unlock()
}

// Clear drops every upcoming track. Playback of the current track is not affected.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.tracks = q.tracks[:0]
	q.mu.Unlock()
}

func (q *Queue) SetLoopMode(m LoopMode) {
	q.mu.Lock()
	q.loop = m
	q.mu.Unlock()
}

func (q *Queue) LoopMode() LoopMode {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loop
}

// Tracks returns a copy of the upcoming tracks.
func (q *Queue) Tracks() []audio.Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.tracks)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tracks)
}

func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}
