package music

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"bot2296/internal/music/audio"
	"bot2296/internal/music/queue"
	"bot2296/internal/music/view"
	"bot2296/internal/storage"
)

var spotifyURL = regexp.MustCompile(`https?://open\.spotify\.com/(album|playlist|track|artist)/[a-zA-Z0-9]+`)

// SearchQuery turns free text into a node query. Links are passed through and
// anything else becomes a YouTube Music search.
func SearchQuery(content string) string {
	content = strings.TrimSpace(content)
	if spotifyURL.MatchString(content) || strings.HasPrefix(content, "http://") || strings.HasPrefix(content, "https://") {
		return content
	}
	return "ytmsearch:" + content
}

// Actor is the member behind a message or interaction.
type Actor struct {
	GuildID     string
	ChannelID   string
	UserID      string
	DisplayName string
}

func (a Actor) requester() *audio.Requester {
	return &audio.Requester{ID: a.UserID, DisplayName: a.DisplayName}
}

// Setup creates the request channel with its queue and now-playing messages.
func (m *Manager) Setup(ctx context.Context, guildID string) Reply {
	gs := m.lock(guildID)
	defer gs.mu.Unlock()

	if sess, ok := m.session(ctx, guildID); ok && sess.ChannelID != "" && m.msg.ChannelExists(ctx, sess.ChannelID) {
		return Reply{
			Title:   "Music Channel Already Exists",
			Message: fmt.Sprintf("Channel: <#%s>", sess.ChannelID),
			Footer:  "Delete the channel to set it up again",
			Error:   true,
		}
	}

	channelID, err := m.msg.CreateTextChannel(ctx, guildID, m.opts.ChannelName)
	if err != nil {
		return m.failure("create music channel", guildID, err)
	}

	np, q := view.Idle(m.style())
	queueID, err := m.msg.Send(ctx, channelID, q, nil)
	if err != nil {
		return m.failure("post queue message", guildID, err)
	}
	messageID, err := m.msg.Send(ctx, channelID, np, view.Controls(view.ControlState{}))
	if err != nil {
		return m.failure("post now playing message", guildID, err)
	}

	sess := storage.Session{GuildID: guildID, ChannelID: channelID, MessageID: messageID, QueueID: queueID}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return m.failure("save music session", guildID, err)
	}

	gs.tracker.Reset()
	gs.tracker.Commit(messageID, np)
	gs.tracker.Commit(queueID, q)

	m.logger.Info().Str("guild", guildID).Str("channel", channelID).Msg("Music channel created")
	return Reply{Title: "Successfully Created Music channel", Message: fmt.Sprintf("<#%s>", channelID)}
}

func (m *Manager) failure(action, guildID string, err error) Reply {
	m.logger.Error().Err(err).Str("guild", guildID).Msgf("Failed to %s", action)
	return Reply{Error: true, Message: fmt.Sprintf("Failed to %s, please try again later.", action)}
}

// Submit handles a message posted in a guild's request channel. Messages in
// other channels are ignored.
func (m *Manager) Submit(ctx context.Context, from Actor, messageID, content string) {
	gs := m.lock(from.GuildID)
	defer gs.mu.Unlock()

	sess, err := m.store.SessionByChannel(ctx, from.GuildID, from.ChannelID)
	if err != nil {
		if !errors.Is(err, storage.ErrSessionNotFound) {
			m.logger.Warn().Err(err).Str("guild", from.GuildID).Msg("Music session lookup failed")
		}
		return
	}
	if strings.TrimSpace(content) == "" {
		return
	}

	// joined is set when this request brought the bot into voice; it leaves
	// again if nothing ends up playing.
	joined := false
	player, ok := m.audio.Player(from.GuildID)
	if !ok {
		vc := m.voice.UserChannel(from.GuildID, from.UserID)
		if vc == "" {
			m.msg.Notice(ctx, from.ChannelID, "You must be in a vc to listen to music", noticeTTL)
			return
		}
		p, err := m.audio.Connect(ctx, from.GuildID, vc)
		if err != nil {
			m.logger.Error().Err(err).Str("guild", from.GuildID).Msg("Failed to connect to voice")
			m.msg.Notice(ctx, from.ChannelID, "Could not join your voice channel.", noticeTTL)
			return
		}
		player = p
		joined = true
	}

	if sess.Locked {
		if gs.current != nil {
			m.msg.Notice(ctx, from.ChannelID, "Currently locked, cannot add anymore songs.", noticeTTL)
			m.deleteRequest(ctx, from, messageID)
			return
		}
		if err := m.store.SetLocked(ctx, from.GuildID, false); err != nil {
			m.logger.Warn().Err(err).Str("guild", from.GuildID).Msg("Failed to clear music lock")
		}
	}

	res, err := m.audio.LoadTracks(ctx, SearchQuery(content))
	if err != nil {
		m.logger.Warn().Err(err).Str("guild", from.GuildID).Str("query", content).Msg("Track lookup failed")
	}
	if err != nil || res.Empty() {
		m.msg.Notice(ctx, from.ChannelID, "Could not find any tracks with that query. Please try again.", noticeTTL)
		if joined {
			m.reset(ctx, from.GuildID, gs)
		}
		return
	}

	req := from.requester()
	if res.Playlist != "" {
		tracks := make([]audio.Track, len(res.Tracks))
		for i, t := range res.Tracks {
			tracks[i] = t.WithRequester(req)
		}
		gs.queue.Extend(tracks)
	} else {
		gs.queue.Put(res.Tracks[0].WithRequester(req))
	}

	if gs.current == nil && !m.playNext(ctx, from.GuildID, gs, player, nil) && joined {
		m.reset(ctx, from.GuildID, gs)
		m.deleteRequest(ctx, from, messageID)
		return
	}
	m.renderQueue(ctx, from.GuildID, gs, false)
	m.deleteRequest(ctx, from, messageID)
}

func (m *Manager) deleteRequest(ctx context.Context, from Actor, messageID string) {
	if messageID == "" {
		return
	}
	if err := m.msg.DeleteMessage(ctx, from.ChannelID, messageID); err != nil {
		m.logger.Debug().Err(err).Str("guild", from.GuildID).Msg("Failed to delete request message")
	}
}

// play starts t on the player and records it as current.
func (m *Manager) play(ctx context.Context, guildID string, gs *guildState, player audio.Player, t audio.Track) error {
	c := t
	gs.current = &c
	if err := player.Play(ctx, t, 0, 0); err != nil {
		gs.current = nil
		return err
	}
	m.renderNowPlaying(ctx, guildID, gs, false)
	return nil
}

// playNext pops the queue after ended and plays the result. It reports false
// when nothing could be started.
func (m *Manager) playNext(ctx context.Context, guildID string, gs *guildState, player audio.Player, ended *audio.Track) bool {
	for {
		next, err := gs.queue.Next(ended)
		if err != nil {
			return false
		}
		if err := m.play(ctx, guildID, gs, player, next); err != nil {
			m.logger.Warn().Err(err).Str("guild", guildID).Str("track", next.Title).Msg("Failed to start track")
			if ended != nil && gs.queue.LoopMode() == queue.LoopTrack {
				return false
			}
			ended = nil
			continue
		}
		return true
	}
}
