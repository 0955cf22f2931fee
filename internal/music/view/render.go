// Package view turns playback state into the two documents shown in a guild's
// music channel and decides when a message actually needs editing.
package view

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"bot2296/internal/music/audio"
	"bot2296/internal/music/queue"
)

const (
	// QueuePreview is how many upcoming tracks the queue message lists.
	QueuePreview = 10

	idleTitle      = "Currently Playing Nothing."
	idleQueueTitle = "Current Queue |"
	footerBrand    = "2296 - Music"
)

// Field is a name/value pair rendered under the description.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Document is a platform independent message body.
type Document struct {
	Title         string
	Description   string
	URL           string
	ImageURL      string
	ThumbnailURL  string
	FooterText    string
	FooterIconURL string
	Color         int
	Fields        []Field
}

// Style carries the per-deployment look of rendered documents.
type Style struct {
	Color        int
	IdleImageURL string
	IconURL      string
}

// Idle returns the now-playing and queue documents shown when nothing plays.
func Idle(s Style) (nowPlaying, upcoming Document) {
	nowPlaying = Document{
		Title:         idleTitle,
		ImageURL:      s.IdleImageURL,
		FooterText:    footerBrand,
		FooterIconURL: s.IconURL,
		Color:         s.Color,
	}
	upcoming = Document{
		Title: idleQueueTitle,
		Color: s.Color,
	}
	return nowPlaying, upcoming
}

// NowPlaying renders the current track. A nil track renders the idle document.
func NowPlaying(t *audio.Track, autoplay bool, s Style) Document {
	if t == nil {
		np, _ := Idle(s)
		return np
	}

	title := "Currently Playing"
	if autoplay {
		title += " (Autoplay Enabled)"
	}

	footer := fmt.Sprintf("Added by Autoplay - (%s)", FormatDuration(t.Length))
	if t.Requester != nil {
		footer = fmt.Sprintf("Requested by %s - (%s)", t.Requester.DisplayName, FormatDuration(t.Length))
	}

	return Document{
		Title:         title,
		Description:   fmt.Sprintf("[%s](%s) - by **%s**", t.Title, t.URI, t.Author),
		ImageURL:      t.ArtworkURL,
		FooterText:    footer,
		FooterIconURL: s.IconURL,
		Color:         s.Color,
	}
}

// Queue renders up to QueuePreview upcoming tracks and a trailer for the rest.
// count is the full queue length, which may exceed len(tracks).
func Queue(tracks []audio.Track, loop queue.LoopMode, count int, s Style) Document {
	title := fmt.Sprintf("Queue | %d Songs", count)
	switch loop {
	case queue.LoopTrack:
		title += " (Song Loop)"
	case queue.LoopQueue:
		title += " (Queue Loop)"
	}

	lines := make([]string, 0, QueuePreview+1)
	for i, t := range tracks {
		if i == QueuePreview {
			break
		}
		lines = append(lines, fmt.Sprintf("**%d. %s**[%s (%s)](%s)",
			i+1, t.Title, t.Author, FormatDuration(t.Length), t.URI))
	}
	if count > QueuePreview {
		lines = append(lines, fmt.Sprintf("%d more songs", count-QueuePreview))
	}

	return Document{
		Title:       title,
		Description: strings.Join(lines, "\n"),
		Color:       s.Color,
	}
}

// FormatDuration renders m:ss, or h:mm:ss from one hour up.
func FormatDuration(d time.Duration) string {
	total := int(d / time.Second)
	if total < 0 {
		total = 0
	}
	h, m, sec := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}

// ParseDuration reads m:ss or h:mm:ss.
func ParseDuration(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}

	var total int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		if i > 0 && (len(p) != 2 || n > 59) {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, nil
}
