package view

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"bot2296/internal/music/audio"
	"bot2296/internal/music/queue"
)

var style = Style{Color: 0x7F00FF, IdleImageURL: "https://example.com/idle.png", IconURL: "https://example.com/icon.png"}

func song(i int) audio.Track {
	return audio.Track{
		Identifier: fmt.Sprintf("id%d", i),
		Title:      fmt.Sprintf("Song %d", i),
		Author:     "Artist",
		URI:        fmt.Sprintf("https://youtu.be/id%d", i),
		Length:     3*time.Minute + 5*time.Second,
	}
}

func songs(n int) []audio.Track {
	out := make([]audio.Track, n)
	for i := range out {
		out[i] = song(i + 1)
	}
	return out
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{59 * time.Second, "0:59"},
		{3*time.Minute + 5*time.Second, "3:05"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
		{1500 * time.Millisecond, "0:01"},
		{-time.Second, "0:00"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.in); got != c.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	valid := map[string]time.Duration{
		"0:00":    0,
		"1:42":    time.Minute + 42*time.Second,
		"01:42":   time.Minute + 42*time.Second,
		"1:02:03": time.Hour + 2*time.Minute + 3*time.Second,
	}
	for in, want := range valid {
		got, err := ParseDuration(in)
		if err != nil || got != want {
			t.Errorf("ParseDuration(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"", "42", "1:5", "1:60", "a:bc", "-1:00", "1:2:3:4"} {
		if _, err := ParseDuration(in); err == nil {
			t.Errorf("ParseDuration(%q) should fail", in)
		}
	}
}

func TestIdle(t *testing.T) {
	np, q := Idle(style)
	if np.Title != "Currently Playing Nothing." || np.Description != "" || np.ImageURL != style.IdleImageURL {
		t.Errorf("unexpected idle now-playing %+v", np)
	}
	if q.Title != "Current Queue |" || q.Description != "" {
		t.Errorf("unexpected idle queue %+v", q)
	}
	if got := NowPlaying(nil, true, style); !reflect.DeepEqual(got, np) {
		t.Errorf("nil track should render idle, got %+v", got)
	}
}

func TestNowPlaying(t *testing.T) {
	tr := song(1)
	tr.ArtworkURL = "https://img.youtube.com/id1.jpg"

	t.Run("Autoplay", func(t *testing.T) {
		doc := NowPlaying(&tr, true, style)
		if doc.Title != "Currently Playing (Autoplay Enabled)" {
			t.Errorf("unexpected title %q", doc.Title)
		}
		if doc.Description != "[Song 1](https://youtu.be/id1) - by **Artist**" {
			t.Errorf("unexpected description %q", doc.Description)
		}
		if doc.FooterText != "Added by Autoplay - (3:05)" {
			t.Errorf("unexpected footer %q", doc.FooterText)
		}
		if doc.ImageURL != tr.ArtworkURL {
			t.Errorf("expected artwork as image, got %q", doc.ImageURL)
		}
	})

	t.Run("Requested", func(t *testing.T) {
		req := tr.WithRequester(&audio.Requester{ID: "1", DisplayName: "neo"})
		doc := NowPlaying(&req, false, style)
		if doc.Title != "Currently Playing" {
			t.Errorf("unexpected title %q", doc.Title)
		}
		if doc.FooterText != "Requested by neo - (3:05)" {
			t.Errorf("unexpected footer %q", doc.FooterText)
		}
	})
}

func TestQueue(t *testing.T) {
	t.Run("Truncation", func(t *testing.T) {
		list := songs(15)
		doc := Queue(list, queue.LoopNone, len(list), style)

		lines := strings.Split(doc.Description, "\n")
		if len(lines) != 11 {
			t.Fatalf("expected 10 entries and a trailer, got %d lines", len(lines))
		}
		if lines[10] != "5 more songs" {
			t.Errorf("unexpected trailer %q", lines[10])
		}
		if lines[0] != "**1. Song 1**[Artist (3:05)](https://youtu.be/id1)" {
			t.Errorf("unexpected first line %q", lines[0])
		}
		if doc.Title != "Queue | 15 Songs" {
			t.Errorf("unexpected title %q", doc.Title)
		}
	})

	t.Run("NoTrailerAtTen", func(t *testing.T) {
		doc := Queue(songs(10), queue.LoopNone, 10, style)
		if strings.Contains(doc.Description, "more songs") {
			t.Error("ten tracks must not render a trailer")
		}
	})

	t.Run("LoopTitles", func(t *testing.T) {
		if got := Queue(nil, queue.LoopTrack, 0, style).Title; got != "Queue | 0 Songs (Song Loop)" {
			t.Errorf("unexpected track loop title %q", got)
		}
		if got := Queue(nil, queue.LoopQueue, 2, style).Title; got != "Queue | 2 Songs (Queue Loop)" {
			t.Errorf("unexpected queue loop title %q", got)
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		list := songs(12)
		first := Queue(list, queue.LoopQueue, len(list), style)
		second := Queue(list, queue.LoopQueue, len(list), style)
		if !reflect.DeepEqual(first, second) {
			t.Fatal("rendering twice must produce identical documents")
		}

		tr := NewTracker()
		if !tr.ShouldEdit("q", first) {
			t.Fatal("first render must be pushed")
		}
		tr.Commit("q", first)
		if tr.ShouldEdit("q", second) {
			t.Error("identical render must not be pushed again")
		}
	})
}

func TestTracker(t *testing.T) {
	tr := NewTracker()
	np, _ := Idle(style)

	if !tr.ShouldEdit("m1", np) {
		t.Error("unknown message should be edited even with an empty description")
	}
	tr.Commit("m1", np)
	if tr.ShouldEdit("m1", np) {
		t.Error("same description should be skipped")
	}

	changed := np
	changed.Description = "something else"
	if !tr.ShouldEdit("m1", changed) {
		t.Error("changed description should be edited")
	}

	tr.Commit("m1", np)
	tr.Commit("m2", np)
	tr.Reset()
	if !tr.ShouldEdit("m2", np) {
		t.Error("reset should forget every message")
	}
}

func TestControls(t *testing.T) {
	ids := ControlIDs()
	if len(ids) != 16 {
		t.Fatalf("expected 16 controls, got %d", len(ids))
	}
	seen := make(map[string]bool)
	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate control %s", id)
		}
		seen[id] = true
	}

	t.Run("IdleDisablesAllButLockAndLiked", func(t *testing.T) {
		for _, row := range Controls(ControlState{}) {
			if len(row) > 5 {
				t.Errorf("row has %d buttons, max is 5", len(row))
			}
			for _, b := range row {
				id, ok := ControlFromCustomID(b.CustomID)
				if !ok {
					t.Fatalf("custom id %q lacks prefix", b.CustomID)
				}
				wantDisabled := id != ControlLock && id != ControlPlayLiked
				if b.Disabled != wantDisabled {
					t.Errorf("%s disabled=%v, want %v", id, b.Disabled, wantDisabled)
				}
			}
		}
	})

	t.Run("Variants", func(t *testing.T) {
		find := func(rows [][]Button, id string) Button {
			for _, row := range rows {
				for _, b := range row {
					if b.CustomID == ComponentPrefix+id {
						return b
					}
				}
			}
			t.Fatalf("control %s not rendered", id)
			return Button{}
		}

		playing := Controls(ControlState{Active: true})
		paused := Controls(ControlState{Active: true, Paused: true, Locked: true})
		if find(playing, ControlPause).Emoji == find(paused, ControlPause).Emoji {
			t.Error("pause and resume should use different emoji")
		}
		if find(playing, ControlLock).Emoji == find(paused, ControlLock).Emoji {
			t.Error("lock and unlock should use different emoji")
		}
		if find(playing, ControlPlayNext).Disabled {
			t.Error("controls must be enabled while playing")
		}
	})

	if _, ok := ControlFromCustomID("other:pause"); ok {
		t.Error("foreign custom ids must be rejected")
	}
	if NeedsPlayer(ControlLock) || NeedsPlayer(ControlPlayLiked) || !NeedsPlayer(ControlPause) {
		t.Error("unexpected NeedsPlayer result")
	}
}
