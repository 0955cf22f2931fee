package view

import "sync"

// Tracker remembers the last description pushed to each message. A message is
// only edited when the new description differs.
type Tracker struct {
	mu   sync.Mutex
	last map[string]string
}

func NewTracker() *Tracker {
	return &Tracker{last: make(map[string]string)}
}

// ShouldEdit reports whether doc differs from what messageID last showed.
func (t *Tracker) ShouldEdit(messageID string, doc Document) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, ok := t.last[messageID]
	return !ok || prev != doc.Description
}

// Commit records doc as pushed to messageID.
func (t *Tracker) Commit(messageID string, doc Document) {
	t.mu.Lock()
	t.last[messageID] = doc.Description
	t.mu.Unlock()
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	clear(t.last)
	t.mu.Unlock()
}
