// Package audio is the boundary to the external audio node. The node owns
// decoding, streaming and track resolution; this package only describes what
// the music coordinator needs from it.
package audio

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoPlayer is returned when a guild has no connected player.
	ErrNoPlayer = errors.New("no active player")
	// ErrNoTracks is returned when a query resolves to nothing.
	ErrNoTracks = errors.New("no tracks found")
)

// Requester is the member who asked for a track.
type Requester struct {
	ID          string
	DisplayName string
}

// Track is a playable item as resolved by the node.
type Track struct {
	Encoded    string // opaque node representation, required to play
	Identifier string
	Title      string
	Author     string
	URI        string
	ArtworkURL string
	SourceName string
	Length     time.Duration
	Seekable   bool

	// Requester is nil when the track was added by autoplay.
	Requester *Requester
}

// WithRequester returns a copy of t attributed to r.
func (t Track) WithRequester(r *Requester) Track {
	t.Requester = r
	return t
}

// LoadResult is the outcome of a track lookup. Playlist is set only when the
// query resolved to a playlist.
type LoadResult struct {
	Tracks   []Track
	Playlist string
}

// Empty reports whether nothing was found.
func (r LoadResult) Empty() bool {
	return len(r.Tracks) == 0
}

// EndReason is why the node stopped a track.
type EndReason string

const (
	EndFinished   EndReason = "finished"
	EndLoadFailed EndReason = "loadFailed"
	EndStopped    EndReason = "stopped"
	EndReplaced   EndReason = "replaced"
	EndCleanup    EndReason = "cleanup"
)

// Advances reports whether the queue should move on after this end reason.
// Replaced means another track already started and cleanup means the player
// is going away.
func (r EndReason) Advances() bool {
	switch r {
	case EndFinished, EndLoadFailed, EndStopped:
		return true
	}
	return false
}

// Player is a guild's connection to the node.
type Player interface {
	GuildID() string
	// ChannelID is the voice channel the bot sits in, empty when disconnected.
	ChannelID() string
	// Current is the track loaded on the node, nil when idle.
	Current() *Track

	Play(ctx context.Context, t Track, start, end time.Duration) error
	Stop(ctx context.Context) error
	SetPaused(ctx context.Context, paused bool) error
	Paused() bool
	SetVolume(ctx context.Context, volume int) error
	Volume() int
}

// Client is the node connection shared by all guilds.
type Client interface {
	// Connect joins channelID and returns the guild's player.
	Connect(ctx context.Context, guildID, channelID string) (Player, error)
	// Player returns the guild's player when one exists.
	Player(guildID string) (Player, bool)
	// Disconnect destroys the player and leaves voice.
	Disconnect(ctx context.Context, guildID string) error
	LoadTracks(ctx context.Context, query string) (LoadResult, error)
}

// Listener receives node playback events.
type Listener interface {
	OnTrackStart(guildID string)
	OnTrackEnd(guildID string, reason EndReason)
}
