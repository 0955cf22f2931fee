// Package music coordinates per-guild playback: it brokers text submissions and
// button presses into queue changes, keeps the now-playing and queue messages
// in sync, backfills the queue with recommendations and tears sessions down
// when voice or channels go away.
package music

import (
	"context"
	"errors"
	"sync"
	"time"

	"bot2296/internal/logger"
	"bot2296/internal/music/audio"
	"bot2296/internal/music/lyrics"
	"bot2296/internal/music/queue"
	"bot2296/internal/music/view"
	"bot2296/internal/storage"

	"github.com/rs/zerolog"
)

const (
	historyLimit  = 12
	clipTimeout   = 20 * time.Second
	noticeTTL     = 5 * time.Second
	eventTimeout  = 30 * time.Second
	volumeStep    = 10
	maxVolume     = 300
	lyricsMaxChar = 2000
)

// ErrMessageGone is returned by a Messenger when the target message or channel no longer exists.
var ErrMessageGone = errors.New("message or channel no longer exists")

// Store is the slice of persistence the coordinator uses.
type Store interface {
	Session(ctx context.Context, guildID string) (*storage.Session, error)
	SessionByChannel(ctx context.Context, guildID, channelID string) (*storage.Session, error)
	CreateSession(ctx context.Context, s storage.Session) error
	SetLocked(ctx context.Context, guildID string, locked bool) error
	DeleteSession(ctx context.Context, guildID string) error
	Sessions(ctx context.Context) ([]storage.Session, error)

	IsLiked(ctx context.Context, userID, song string) (bool, error)
	Like(ctx context.Context, userID, song string) error
	Unlike(ctx context.Context, userID, song string) error
	LikedSongs(ctx context.Context, userID string) ([]string, error)
}

// Messenger posts and edits the tracking messages.
type Messenger interface {
	CreateTextChannel(ctx context.Context, guildID, name string) (string, error)
	ChannelExists(ctx context.Context, channelID string) bool
	Send(ctx context.Context, channelID string, doc view.Document, controls [][]view.Button) (string, error)
	// Edit replaces a message body. Nil controls leave the components untouched.
	Edit(ctx context.Context, channelID, messageID string, doc view.Document, controls [][]view.Button) error
	// Notice posts text that deletes itself after ttl.
	Notice(ctx context.Context, channelID, text string, ttl time.Duration)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
}

// VoiceLocator answers questions about members in voice.
type VoiceLocator interface {
	// UserChannel is the voice channel userID sits in, empty when none.
	UserChannel(guildID, userID string) string
	// HumanCount is the number of non-bot members in channelID.
	HumanCount(guildID, channelID string) int
}

// Options tune the coordinator per deployment.
type Options struct {
	Style           view.Style
	ChannelName     string
	AutoplayShuffle bool
}

// Manager is the per-process coordinator. Every entry point for a guild runs
// under that guild's lock, in arrival order.
type Manager struct {
	store  Store
	audio  audio.Client
	msg    Messenger
	voice  VoiceLocator
	lyrics lyrics.Provider
	opts   Options
	logger zerolog.Logger
	now    func() time.Time

	mu     sync.Mutex
	guilds map[string]*guildState
}

type pendingClip struct {
	userID  string
	track   audio.Track
	expires time.Time
}

type guildState struct {
	mu       sync.Mutex
	queue    *queue.Queue
	autoplay bool
	current  *audio.Track
	history  []audio.Track
	tracker  *view.Tracker
	clip     *pendingClip
	// skipping makes the next end event move past a looped track.
	skipping bool
}

func newGuildState() *guildState {
	return &guildState{
		queue:   queue.New(),
		tracker: view.NewTracker(),
	}
}

func New(store Store, client audio.Client, msg Messenger, voice VoiceLocator, lyricsProvider lyrics.Provider, opts Options) *Manager {
	if opts.ChannelName == "" {
		opts.ChannelName = "2296 Song-Requests"
	}
	return &Manager{
		store:  store,
		audio:  client,
		msg:    msg,
		voice:  voice,
		lyrics: lyricsProvider,
		opts:   opts,
		logger: logger.For("music"),
		now:    time.Now,
		guilds: make(map[string]*guildState),
	}
}

// SetStyle replaces the render style, e.g. once the bot avatar is known.
func (m *Manager) SetStyle(s view.Style) {
	m.mu.Lock()
	m.opts.Style = s
	m.mu.Unlock()
}

func (m *Manager) style() view.Style {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opts.Style
}

// lock returns the guild's state with its mutex held.
func (m *Manager) lock(guildID string) *guildState {
	m.mu.Lock()
	gs, ok := m.guilds[guildID]
	if !ok {
		gs = newGuildState()
		m.guilds[guildID] = gs
	}
	m.mu.Unlock()

	gs.mu.Lock()
	return gs
}

// session loads the guild's row. Store failures count as "no session".
func (m *Manager) session(ctx context.Context, guildID string) (*storage.Session, bool) {
	sess, err := m.store.Session(ctx, guildID)
	if err != nil {
		if !errors.Is(err, storage.ErrSessionNotFound) {
			m.logger.Warn().Err(err).Str("guild", guildID).Msg("Music session lookup failed")
		}
		return nil, false
	}
	return sess, true
}

// QueueSnapshot is a read-only view of a guild's playback state.
type QueueSnapshot struct {
	Current  *audio.Track
	Upcoming []audio.Track
	Loop     queue.LoopMode
	Autoplay bool
	History  int
}

// Snapshot reports the guild's current playback state.
func (m *Manager) Snapshot(guildID string) QueueSnapshot {
	gs := m.lock(guildID)
	defer gs.mu.Unlock()

	snap := QueueSnapshot{
		Upcoming: gs.queue.Tracks(),
		Loop:     gs.queue.LoopMode(),
		Autoplay: gs.autoplay,
		History:  len(gs.history),
	}
	if gs.current != nil {
		c := *gs.current
		snap.Current = &c
	}
	return snap
}

func eventContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), eventTimeout)
}
