package lyrics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLRCLib(t *testing.T) {
	var gets, searches int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/get":
			gets++
			if r.URL.Query().Get("track_name") == "Known" {
				if r.URL.Query().Get("duration") != "185" {
					t.Errorf("expected duration 185, got %q", r.URL.Query().Get("duration"))
				}
				json.NewEncoder(w).Encode(lrcRecord{TrackName: "Known", PlainLyrics: "la la la"})
				return
			}
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"code":404,"name":"TrackNotFound"}`))
		case "/api/search":
			searches++
			if r.URL.Query().Get("q") == "Searchable Band" {
				json.NewEncoder(w).Encode([]lrcRecord{
					{TrackName: "Searchable", Instrumental: true},
					{TrackName: "Searchable", PlainLyrics: "found by search"},
				})
				return
			}
			w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	client := NewLRCLib(srv.URL + "/")
	ctx := context.Background()

	t.Run("Exact", func(t *testing.T) {
		got, err := client.Lyrics(ctx, Query{Title: "Known (Official Video)", Artist: "Band", Duration: 185 * time.Second})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "la la la" {
			t.Errorf("unexpected lyrics %q", got)
		}
	})

	t.Run("SearchFallback", func(t *testing.T) {
		got, err := client.Lyrics(ctx, Query{Title: "Searchable", Artist: "Band"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "found by search" {
			t.Errorf("unexpected lyrics %q", got)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		got, err := client.Lyrics(ctx, Query{Title: "Nothing", Artist: "Nobody"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "" {
			t.Errorf("expected no lyrics, got %q", got)
		}
	})

	if gets != 3 || searches != 2 {
		t.Errorf("expected 3 gets and 2 searches, got %d and %d", gets, searches)
	}
}

func TestCleanTitle(t *testing.T) {
	cases := []struct {
		title, artist, want string
	}{
		{"Song (Official Video)", "Band", "Song"},
		{"Band - Song [4K]", "Band", "Song"},
		{"Plain", "", "Plain"},
		{"(Intro)", "Band", "(Intro)"},
	}
	for _, tc := range cases {
		if got := cleanTitle(tc.title, tc.artist); got != tc.want {
			t.Errorf("cleanTitle(%q, %q) = %q, want %q", tc.title, tc.artist, got, tc.want)
		}
	}
}
