// Package lyrics looks up song lyrics for the now-playing track.
package lyrics

import (
	"context"
	"strings"
	"time"
)

// Query identifies a song.
type Query struct {
	Title    string
	Artist   string
	Duration time.Duration
}

// Provider returns plain-text lyrics, or "" when the song is unknown.
type Provider interface {
	Lyrics(ctx context.Context, q Query) (string, error)
}

func truncate(b []byte) string {
	if len(b) > 200 {
		return string(b[:200]) + "..."
	}
	return string(b)
}

// cleanTitle drops decorations YouTube titles commonly carry so lookups match.
func cleanTitle(title, artist string) string {
	t := title
	for _, open := range []string{"(", "["} {
		if i := strings.Index(t, open); i > 0 {
			t = t[:i]
		}
	}
	if artist != "" {
		t = strings.TrimPrefix(strings.TrimSpace(t), artist+" - ")
	}
	return strings.TrimSpace(t)
}
