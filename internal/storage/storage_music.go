package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Session is the per-guild music row: the request channel and its two tracking messages.
type Session struct {
	GuildID   string
	ChannelID string
	MessageID string // now playing
	QueueID   string
	Locked    bool
}

const sessionColumns = "guild_id, channel_id, message_id, queue_id, locked"

func scanSession(row interface{ Scan(...any) error }) (*Session, error) {
	var s Session
	if err := row.Scan(&s.GuildID, &s.ChannelID, &s.MessageID, &s.QueueID, &s.Locked); err != nil {
		return nil, err
	}
	return &s, nil
}

// Session returns the guild's music session or ErrSessionNotFound.
func (s *Storage) Session(ctx context.Context, guildID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM music WHERE guild_id = ?", guildID)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load music session for guild %s: %w", guildID, err)
	}
	return sess, nil
}

// SessionByChannel returns the session only when channelID is its request channel.
func (s *Storage) SessionByChannel(ctx context.Context, guildID, channelID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM music WHERE guild_id = ? AND channel_id = ?", guildID, channelID)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load music session for channel %s: %w", channelID, err)
	}
	return sess, nil
}

// Sessions lists every session that still tracks a now-playing message.
func (s *Storage) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM music WHERE message_id <> '' ORDER BY guild_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list music sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan music session: %w", err)
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

// CreateSession writes the row for sess.GuildID, replacing any previous one.
func (s *Storage) CreateSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx,
		"REPLACE INTO music ("+sessionColumns+") VALUES (?, ?, ?, ?, ?)",
		sess.GuildID, sess.ChannelID, sess.MessageID, sess.QueueID, sess.Locked)
	if err != nil {
		return fmt.Errorf("failed to save music session for guild %s: %w", sess.GuildID, err)
	}
	return nil
}

// SetLocked flips the submission lock of an existing session.
func (s *Storage) SetLocked(ctx context.Context, guildID string, locked bool) error {
	res, err := s.db.ExecContext(ctx, "UPDATE music SET locked = ? WHERE guild_id = ?", locked, guildID)
	if err != nil {
		return fmt.Errorf("failed to update lock for guild %s: %w", guildID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 when the value is unchanged, so confirm the row exists
		if _, err := s.Session(ctx, guildID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteSession removes the guild's row. Deleting a missing row is not an error.
func (s *Storage) DeleteSession(ctx context.Context, guildID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM music WHERE guild_id = ?", guildID); err != nil {
		return fmt.Errorf("failed to delete music session for guild %s: %w", guildID, err)
	}
	return nil
}
