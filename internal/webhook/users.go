package webhook

import (
	"maps"
	"sync"
	"time"
)

const (
	StatusIdle    = "idle"
	StatusSolving = "solving"
)

// UserActivity is what the tracker knows about one online user.
type UserActivity struct {
	Status      string  `json:"status"`
	Question    *string `json:"question"`
	StartedAt   *int64  `json:"started_at"`
	SolvedToday int     `json:"solved_today"`
}

// ActiveUsers tracks who has the companion extension open. State lives in
// memory only.
type ActiveUsers struct {
	mu    sync.Mutex
	users map[string]UserActivity
	now   func() time.Time
}

func NewActiveUsers() *ActiveUsers {
	return &ActiveUsers{users: make(map[string]UserActivity), now: time.Now}
}

// Login resets username to idle.
func (a *ActiveUsers) Login(username string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.users[username] = UserActivity{Status: StatusIdle}
}

func (a *ActiveUsers) Logout(username string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.users, username)
}

// Activity records what username is doing. The question and start time are
// kept only while solving.
func (a *ActiveUsers) Activity(username, status string, question *string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	u := a.users[username]
	if status == "" {
		status = StatusIdle
	}
	u.Status = status
	u.Question, u.StartedAt = nil, nil
	if status == StatusSolving {
		u.Question = question
		started := a.now().Unix()
		u.StartedAt = &started
	}
	a.users[username] = u
}

// Solved counts one accepted submission for username.
func (a *ActiveUsers) Solved(username string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	u, ok := a.users[username]
	if !ok {
		u.Status = StatusIdle
	}
	u.SolvedToday++
	a.users[username] = u
}

// Snapshot copies the tracked users.
func (a *ActiveUsers) Snapshot() map[string]UserActivity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return maps.Clone(a.users)
}
