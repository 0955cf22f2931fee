package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()
	s, err := New(ctx, "sqlite3", ":memory:", 0)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if _, err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return s
}

func TestMigrations(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}
		if len(migrations) < 2 {
			t.Fatalf("expected at least 2 migrations, got %d", len(migrations))
		}
		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: %d after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}
		if migrations[0].Name != "music" {
			t.Errorf("expected first migration named music, got %q", migrations[0].Name)
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		s := newTestStorage(t)
		n, err := s.Migrate(context.Background())
		if err != nil {
			t.Fatalf("second migrate failed: %v", err)
		}
		if n != 0 {
			t.Errorf("expected no pending migrations, %d applied", n)
		}
	})

	t.Run("Rollback", func(t *testing.T) {
		s := newTestStorage(t)
		ctx := context.Background()

		before, _ := s.MigrationVersion(ctx)
		if err := s.Rollback(ctx); err != nil {
			t.Fatalf("rollback failed: %v", err)
		}
		after, _ := s.MigrationVersion(ctx)
		if after != before-1 {
			t.Errorf("expected version %d after rollback, got %d", before-1, after)
		}
		if _, err := s.db.Exec("SELECT 1 FROM command_log LIMIT 1"); err == nil {
			t.Error("command_log should be dropped after rollback")
		}
	})
}

func TestSessions(t *testing.T) {
	ctx := context.Background()

	t.Run("NotFound", func(t *testing.T) {
		s := newTestStorage(t)
		if _, err := s.Session(ctx, "1"); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("CreateReplaces", func(t *testing.T) {
		s := newTestStorage(t)
		first := Session{GuildID: "1", ChannelID: "10", MessageID: "100", QueueID: "101", Locked: true}
		if err := s.CreateSession(ctx, first); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		second := Session{GuildID: "1", ChannelID: "20", MessageID: "200", QueueID: "201"}
		if err := s.CreateSession(ctx, second); err != nil {
			t.Fatalf("replace failed: %v", err)
		}

		got, err := s.Session(ctx, "1")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if *got != second {
			t.Errorf("expected %+v, got %+v", second, *got)
		}
	})

	t.Run("ByChannel", func(t *testing.T) {
		s := newTestStorage(t)
		_ = s.CreateSession(ctx, Session{GuildID: "1", ChannelID: "10", MessageID: "100", QueueID: "101"})

		if _, err := s.SessionByChannel(ctx, "1", "10"); err != nil {
			t.Errorf("expected session for tracking channel: %v", err)
		}
		if _, err := s.SessionByChannel(ctx, "1", "11"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound for other channel, got %v", err)
		}
	})

	t.Run("SetLocked", func(t *testing.T) {
		s := newTestStorage(t)
		_ = s.CreateSession(ctx, Session{GuildID: "1", ChannelID: "10", MessageID: "100", QueueID: "101"})

		if err := s.SetLocked(ctx, "1", true); err != nil {
			t.Fatalf("lock failed: %v", err)
		}
		got, _ := s.Session(ctx, "1")
		if !got.Locked {
			t.Error("expected session to be locked")
		}
		if err := s.SetLocked(ctx, "missing", true); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound locking a missing session, got %v", err)
		}
	})

	t.Run("ListAndDelete", func(t *testing.T) {
		s := newTestStorage(t)
		_ = s.CreateSession(ctx, Session{GuildID: "1", ChannelID: "10", MessageID: "100", QueueID: "101"})
		_ = s.CreateSession(ctx, Session{GuildID: "2", ChannelID: "20"})

		list, err := s.Sessions(ctx)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(list) != 1 || list[0].GuildID != "1" {
			t.Errorf("expected only the session with a message, got %+v", list)
		}

		if err := s.DeleteSession(ctx, "1"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if err := s.DeleteSession(ctx, "1"); err != nil {
			t.Errorf("deleting twice should not fail: %v", err)
		}
		if _, err := s.Session(ctx, "1"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("expected session gone, got %v", err)
		}
	})
}

func TestLikedSongs(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	for i := 0; i < 3; i++ {
		if err := s.Like(ctx, "u1", "dQw4w9WgXcQ"); err != nil {
			t.Fatalf("like failed: %v", err)
		}
	}
	_ = s.Like(ctx, "u1", "other")
	_ = s.Like(ctx, "u2", "dQw4w9WgXcQ")

	songs, err := s.LikedSongs(ctx, "u1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(songs) != 2 {
		t.Errorf("expected 2 unique liked songs, got %v", songs)
	}

	if err := s.Unlike(ctx, "u1", "dQw4w9WgXcQ"); err != nil {
		t.Fatalf("unlike failed: %v", err)
	}
	liked, _ := s.IsLiked(ctx, "u1", "dQw4w9WgXcQ")
	if liked {
		t.Error("song should no longer be liked by u1")
	}
	liked, _ = s.IsLiked(ctx, "u2", "dQw4w9WgXcQ")
	if !liked {
		t.Error("unlike must not affect other users")
	}
}

func TestCommandHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	now := time.Now().UTC()
	for i := 0; i < commandHistoryLimit+5; i++ {
		err := s.LogCommand(ctx, CommandHistoryRecord{
			GuildID:  "1",
			UserID:   "u",
			Command:  "music-setup",
			Datetime: now.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("log failed: %v", err)
		}
	}
	_ = s.LogCommand(ctx, CommandHistoryRecord{GuildID: "1", UserID: "u", Command: "help", Datetime: now.Add(-60 * 24 * time.Hour)})

	history, err := s.CommandHistory(ctx, "1")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != commandHistoryLimit {
		t.Fatalf("expected %d records, got %d", commandHistoryLimit, len(history))
	}
	if !history[0].Datetime.After(history[1].Datetime) {
		t.Error("expected newest record first")
	}

	n, err := s.PruneCommandHistory(ctx, now.Add(-commandHistoryRetention))
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned record, got %d", n)
	}
}
