package music

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bot2296/internal/music/audio"
	"bot2296/internal/music/lyrics"
	"bot2296/internal/music/view"
	"bot2296/internal/storage"
)

type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]storage.Session
	liked    map[string][]string
	fail     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: map[string]storage.Session{}, liked: map[string][]string{}}
}

func (s *fakeStore) Session(_ context.Context, guildID string) (*storage.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	sess, ok := s.sessions[guildID]
	if !ok {
		return nil, storage.ErrSessionNotFound
	}
	return &sess, nil
}

func (s *fakeStore) SessionByChannel(ctx context.Context, guildID, channelID string) (*storage.Session, error) {
	sess, err := s.Session(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if sess.ChannelID != channelID {
		return nil, storage.ErrSessionNotFound
	}
	return sess, nil
}

func (s *fakeStore) CreateSession(_ context.Context, sess storage.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.GuildID] = sess
	return nil
}

func (s *fakeStore) SetLocked(_ context.Context, guildID string, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[guildID]
	if !ok {
		return storage.ErrSessionNotFound
	}
	sess.Locked = locked
	s.sessions[guildID] = sess
	return nil
}

func (s *fakeStore) DeleteSession(_ context.Context, guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, guildID)
	return nil
}

func (s *fakeStore) Sessions(context.Context) ([]storage.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storage.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out, nil
}

func (s *fakeStore) IsLiked(_ context.Context, userID, song string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.liked[userID] {
		if id == song {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) Like(_ context.Context, userID, song string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liked[userID] = append(s.liked[userID], song)
	return nil
}

func (s *fakeStore) Unlike(_ context.Context, userID, song string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.liked[userID][:0]
	for _, id := range s.liked[userID] {
		if id != song {
			kept = append(kept, id)
		}
	}
	s.liked[userID] = kept
	return nil
}

func (s *fakeStore) LikedSongs(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.liked[userID]...), nil
}

type play struct {
	track      audio.Track
	start, end time.Duration
}

type fakePlayer struct {
	guildID, channelID string
	current            *audio.Track
	paused             bool
	volume             int
	plays              []play
	stops              int
	playErr            error
}

func (p *fakePlayer) GuildID() string {
	return p.guildID
}

func (p *fakePlayer) ChannelID() string {
	return p.channelID
}

func (p *fakePlayer) Current() *audio.Track {
	return p.current
}

func (p *fakePlayer) Paused() bool {
	return p.paused
}

func (p *fakePlayer) Volume() int {
	return p.volume
}

func (p *fakePlayer) Play(_ context.Context, t audio.Track, start, end time.Duration) error {
	if p.playErr != nil {
		return p.playErr
	}
	p.current = &t
	p.plays = append(p.plays, play{track: t, start: start, end: end})
	return nil
}

func (p *fakePlayer) Stop(context.Context) error {
	p.current = nil
	p.stops++
	return nil
}

func (p *fakePlayer) SetPaused(_ context.Context, paused bool) error {
	p.paused = paused
	return nil
}

func (p *fakePlayer) SetVolume(_ context.Context, volume int) error {
	p.volume = volume
	return nil
}

func (p *fakePlayer) last() audio.Track {
	return p.plays[len(p.plays)-1].track
}

type fakeClient struct {
	players     map[string]*fakePlayer
	results     map[string]audio.LoadResult
	queries     []string
	disconnects int
}

func newFakeClient() *fakeClient {
	return &fakeClient{players: map[string]*fakePlayer{}, results: map[string]audio.LoadResult{}}
}

func (c *fakeClient) Connect(_ context.Context, guildID, channelID string) (audio.Player, error) {
	p := &fakePlayer{guildID: guildID, channelID: channelID, volume: 100}
	c.players[guildID] = p
	return p, nil
}

func (c *fakeClient) Player(guildID string) (audio.Player, bool) {
	p, ok := c.players[guildID]
	if !ok {
		return nil, false
	}
	return p, true
}

func (c *fakeClient) Disconnect(_ context.Context, guildID string) error {
	if _, ok := c.players[guildID]; !ok {
		return audio.ErrNoPlayer
	}
	delete(c.players, guildID)
	c.disconnects++
	return nil
}

func (c *fakeClient) LoadTracks(_ context.Context, query string) (audio.LoadResult, error) {
	c.queries = append(c.queries, query)
	return c.results[query], nil
}

func (c *fakeClient) countQuery(query string) int {
	n := 0
	for _, q := range c.queries {
		if q == query {
			n++
		}
	}
	return n
}

type editCall struct {
	channelID, messageID string
	doc                  view.Document
	controls             [][]view.Button
}

type fakeMessenger struct {
	mu       sync.Mutex
	next     int
	channels map[string]bool
	gone     map[string]bool
	sent     []string
	edits    []editCall
	notices  []string
	deleted  []string
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{channels: map[string]bool{}, gone: map[string]bool{}}
}

func (f *fakeMessenger) id(prefix string) string {
	f.next++
	return fmt.Sprintf("%s-%d", prefix, f.next)
}

func (f *fakeMessenger) CreateTextChannel(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id("channel")
	f.channels[id] = true
	return id, nil
}

func (f *fakeMessenger) ChannelExists(_ context.Context, channelID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channels[channelID]
}

func (f *fakeMessenger) Send(_ context.Context, _ string, _ view.Document, _ [][]view.Button) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id("message")
	f.sent = append(f.sent, id)
	return id, nil
}

func (f *fakeMessenger) Edit(_ context.Context, channelID, messageID string, doc view.Document, controls [][]view.Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone[messageID] {
		return ErrMessageGone
	}
	f.edits = append(f.edits, editCall{channelID: channelID, messageID: messageID, doc: doc, controls: controls})
	return nil
}

func (f *fakeMessenger) Notice(_ context.Context, _ string, text string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, text)
}

func (f *fakeMessenger) DeleteMessage(_ context.Context, _, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

// lastEdit returns the most recent edit of messageID.
func (f *fakeMessenger) lastEdit(messageID string) (editCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.edits) - 1; i >= 0; i-- {
		if f.edits[i].messageID == messageID {
			return f.edits[i], true
		}
	}
	return editCall{}, false
}

type fakeVoice struct {
	members map[string]string // user -> voice channel
	humans  map[string]int    // voice channel -> human count
}

func newFakeVoice() *fakeVoice {
	return &fakeVoice{members: map[string]string{}, humans: map[string]int{}}
}

func (v *fakeVoice) UserChannel(_, userID string) string { return v.members[userID] }

func (v *fakeVoice) HumanCount(_, channelID string) int { return v.humans[channelID] }

type fakeLyrics struct {
	text string
	err  error
}

func (l fakeLyrics) Lyrics(context.Context, lyrics.Query) (string, error) {
	return l.text, l.err
}
