package storage

import (
	"context"
	"fmt"
)

// IsLiked reports whether userID has liked the track identified by song.
func (s *Storage) IsLiked(ctx context.Context, userID, song string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM favorite_music WHERE user_id = ? AND song = ?)", userID, song).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check liked song: %w", err)
	}
	return exists, nil
}

// Like records the pair once; repeated likes are no-ops.
func (s *Storage) Like(ctx context.Context, userID, song string) error {
	liked, err := s.IsLiked(ctx, userID, song)
	if err != nil {
		return err
	}
	if liked {
		return nil
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO favorite_music (song, user_id) VALUES (?, ?)", song, userID); err != nil {
		return fmt.Errorf("failed to like song: %w", err)
	}
	return nil
}

func (s *Storage) Unlike(ctx context.Context, userID, song string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM favorite_music WHERE user_id = ? AND song = ?", userID, song); err != nil {
		return fmt.Errorf("failed to unlike song: %w", err)
	}
	return nil
}

// LikedSongs returns the identifiers userID has liked.
func (s *Storage) LikedSongs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT song FROM favorite_music WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list liked songs: %w", err)
	}
	defer rows.Close()

	var songs []string
	for rows.Next() {
		var song string
		if err := rows.Scan(&song); err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}
