package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bot2296/internal/discord"

	"github.com/gin-gonic/gin"
)

const testKey = "secret"

type fakeForum struct {
	threads map[string]string // lower title -> thread id
	created []string
	replies []string
	posts   []discord.ForumPost
	findErr error
	postErr error
}

func (f *fakeForum) FindThread(_ context.Context, _ string, title string) (string, error) {
	if f.findErr != nil {
		return "", f.findErr
	}
	return f.threads[strings.ToLower(strings.TrimSpace(title))], nil
}

func (f *fakeForum) CreateThread(_ context.Context, _ string, title string, post discord.ForumPost) (string, error) {
	if f.postErr != nil {
		return "", f.postErr
	}
	f.created = append(f.created, title)
	f.posts = append(f.posts, post)
	return "new-thread", nil
}

func (f *fakeForum) Reply(_ context.Context, threadID string, post discord.ForumPost) error {
	if f.postErr != nil {
		return f.postErr
	}
	f.replies = append(f.replies, threadID)
	f.posts = append(f.posts, post)
	return nil
}

func newTestServer(forum Forum) *Server {
	gin.SetMode(gin.TestMode)
	return New(":0", testKey, forum)
}

func do(s *Server, method, path, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(apiKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

const submission = `{"type":"DISCORD_FORUM","title":"Two Sum","user":"ada","language":"Go","code":"package main","url_slug":"two-sum","difficulty":"easy","time_taken":"5m","forum_id":"42"}`

func TestAPIKey(t *testing.T) {
	s := newTestServer(&fakeForum{})

	for _, key := range []string{"", "wrong"} {
		rec := do(s, http.MethodGet, "/api/leetcode/online", key, "")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("key %q: got %d, want 403", key, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Invalid API Key") {
			t.Errorf("unexpected body %s", rec.Body.String())
		}
	}

	rec := do(s, http.MethodGet, "/api/leetcode/online", testKey, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("expected a request id header")
	}
}

func TestSubmit(t *testing.T) {
	t.Run("CreatesThread", func(t *testing.T) {
		forum := &fakeForum{}
		s := newTestServer(forum)

		rec := do(s, http.MethodPost, "/api/leetcode/submit", testKey, submission)
		if rec.Code != http.StatusOK {
			t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
		}
		if len(forum.created) != 1 || forum.created[0] != "Two Sum" {
			t.Fatalf("created = %v", forum.created)
		}
		if got := forum.posts[0].FileName; got != "two-sum.go" {
			t.Errorf("file name = %q", got)
		}
		if got := s.users.Snapshot()["ada"].SolvedToday; got != 1 {
			t.Errorf("solved = %d, want 1", got)
		}
	})

	t.Run("RepliesToExistingThread", func(t *testing.T) {
		forum := &fakeForum{threads: map[string]string{"two sum": "t-1"}}
		s := newTestServer(forum)

		rec := do(s, http.MethodPost, "/api/leetcode/submit", testKey, submission)
		if rec.Code != http.StatusOK {
			t.Fatalf("got %d", rec.Code)
		}
		if len(forum.replies) != 1 || forum.replies[0] != "t-1" || len(forum.created) != 0 {
			t.Fatalf("replies = %v created = %v", forum.replies, forum.created)
		}
	})

	tests := []struct {
		name  string
		forum *fakeForum
		body  string
		want  int
	}{
		{"BadJSON", &fakeForum{}, `{"type":`, http.StatusBadRequest},
		{"MissingFields", &fakeForum{}, `{"type":"DISCORD_FORUM"}`, http.StatusBadRequest},
		{"UnsupportedType", &fakeForum{}, strings.Replace(submission, "DISCORD_FORUM", "EMAIL", 1), http.StatusBadRequest},
		{"ForumMissing", &fakeForum{findErr: discord.ErrNotForum}, submission, http.StatusNotFound},
		{"PostFails", &fakeForum{postErr: errors.New("boom")}, submission, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(newTestServer(tt.forum), http.MethodPost, "/api/leetcode/submit", testKey, tt.body)
			if rec.Code != tt.want {
				t.Errorf("got %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestUserRoutes(t *testing.T) {
	s := newTestServer(&fakeForum{})

	for _, path := range []string{"/api/leetcode/open", "/api/leetcode/close", "/api/leetcode/activity"} {
		if rec := do(s, http.MethodPost, path, testKey, `{}`); rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s without username: got %d, want 422", path, rec.Code)
		}
	}

	do(s, http.MethodPost, "/api/leetcode/open", testKey, `{"username":"ada"}`)
	do(s, http.MethodPost, "/api/leetcode/activity", testKey, `{"username":"ada","status":"solving","question":"two-sum"}`)

	rec := do(s, http.MethodGet, "/api/leetcode/online", testKey, "")
	var got map[string]UserActivity
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	ada, ok := got["ada"]
	if !ok || ada.Status != StatusSolving || ada.Question == nil || *ada.Question != "two-sum" || ada.StartedAt == nil {
		t.Fatalf("unexpected activity %+v", ada)
	}

	do(s, http.MethodPost, "/api/leetcode/close", testKey, `{"username":"ada"}`)
	if _, ok := s.users.Snapshot()["ada"]; ok {
		t.Error("user still online after close")
	}
}

func TestActiveUsers(t *testing.T) {
	a := NewActiveUsers()
	a.now = func() time.Time { return time.Unix(100, 0) }

	q := "two-sum"
	a.Activity("bob", StatusSolving, &q)
	a.Activity("bob", "", &q)
	bob := a.Snapshot()["bob"]
	if bob.Status != StatusIdle || bob.Question != nil || bob.StartedAt != nil {
		t.Fatalf("idle user kept solving state: %+v", bob)
	}

	a.Solved("bob")
	a.Solved("bob")
	a.Login("bob")
	if got := a.Snapshot()["bob"].SolvedToday; got != 0 {
		t.Errorf("login should reset the counter, got %d", got)
	}
}

func TestSubmissionEmbed(t *testing.T) {
	tests := []struct {
		difficulty string
		color      int
	}{
		{"easy", colorEasy},
		{"MEDIUM", colorMedium},
		{"hard", colorHard},
	}
	for _, tt := range tests {
		e := submissionEmbed(Submission{Title: "T", User: "ada", URLSlug: "t", Difficulty: tt.difficulty, Language: "python3"})
		if e.Color != tt.color {
			t.Errorf("%s: color %x, want %x", tt.difficulty, e.Color, tt.color)
		}
		if e.Author == nil || e.Author.Name != "Code by ada" {
			t.Errorf("author = %+v", e.Author)
		}
		if e.URL != "https://leetcode.com/problems/t" {
			t.Errorf("url = %q", e.URL)
		}
	}

	if got := (Submission{URLSlug: "x", Language: "Brainfuck"}).FileName(); got != "x.txt" {
		t.Errorf("fallback extension: %q", got)
	}
}
