package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CommandHistoryRecord is one executed slash command.
type CommandHistoryRecord struct {
	ID        string
	GuildID   string
	ChannelID string
	UserID    string
	Username  string
	Command   string
	Param     string
	Datetime  time.Time
}

// LogCommand appends rec to the guild's command history.
func (s *Storage) LogCommand(ctx context.Context, rec CommandHistoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Datetime.IsZero() {
		rec.Datetime = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO command_log (id, guild_id, channel_id, user_id, username, command, param, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.GuildID, rec.ChannelID, rec.UserID, rec.Username, rec.Command, rec.Param, rec.Datetime)
	if err != nil {
		return fmt.Errorf("failed to log command %s: %w", rec.Command, err)
	}
	return nil
}

// CommandHistory returns the guild's most recent commands, newest first.
func (s *Storage) CommandHistory(ctx context.Context, guildID string) ([]CommandHistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, guild_id, channel_id, user_id, username, command, param, created_at
		 FROM command_log WHERE guild_id = ? ORDER BY created_at DESC LIMIT ?`,
		guildID, commandHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to read command history: %w", err)
	}
	defer rows.Close()

	var out []CommandHistoryRecord
	for rows.Next() {
		var r CommandHistoryRecord
		if err := rows.Scan(&r.ID, &r.GuildID, &r.ChannelID, &r.UserID, &r.Username, &r.Command, &r.Param, &r.Datetime); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneCommandHistory deletes entries older than cutoff and reports how many went.
func (s *Storage) PruneCommandHistory(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM command_log WHERE created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune command history: %w", err)
	}
	return res.RowsAffected()
}
