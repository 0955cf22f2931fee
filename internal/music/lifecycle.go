package music

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"bot2296/internal/music/audio"
	"bot2296/internal/music/queue"
	"bot2296/internal/storage"
	"bot2296/pkg/util"
)

// OnTrackStart refreshes the now-playing message once the node reports
// playback.
func (m *Manager) OnTrackStart(guildID string) {
	ctx, cancel := eventContext()
	defer cancel()

	gs := m.lock(guildID)
	defer gs.mu.Unlock()

	if gs.current == nil {
		if p, ok := m.audio.Player(guildID); ok && p.Current() != nil {
			c := *p.Current()
			gs.current = &c
		}
	}
	m.renderNowPlaying(ctx, guildID, gs, false)
}

// OnTrackEnd advances the queue after the node finished, failed or stopped a
// track. When nothing is left the guild goes back to idle.
func (m *Manager) OnTrackEnd(guildID string, reason audio.EndReason) {
	if !reason.Advances() {
		return
	}

	ctx, cancel := eventContext()
	defer cancel()

	gs := m.lock(guildID)
	defer gs.mu.Unlock()

	player, ok := m.audio.Player(guildID)
	if !ok {
		gs.current = nil
		return
	}

	ended := gs.current
	gs.current = nil
	skipped := gs.skipping
	gs.skipping = false

	loop := gs.queue.LoopMode()
	if ended != nil && loop == queue.LoopNone {
		gs.history = append(gs.history, *ended)
		if len(gs.history) > historyLimit {
			gs.history = gs.history[len(gs.history)-historyLimit:]
		}
	}

	// A track that failed to load is never requeued. A looped track is not
	// replayed after a skip either.
	from := ended
	if reason == audio.EndLoadFailed || (loop == queue.LoopTrack && skipped) {
		from = nil
	}

	if m.playNext(ctx, guildID, gs, player, from) {
		m.renderQueue(ctx, guildID, gs, false)
		return
	}
	if gs.autoplay && loop == queue.LoopNone && ended != nil {
		if m.backfill(ctx, guildID, gs, *ended) && m.playNext(ctx, guildID, gs, player, nil) {
			m.renderQueue(ctx, guildID, gs, false)
			return
		}
	}
	m.reset(ctx, guildID, gs)
}

// reset drops playback state, leaves voice and puts the tracking messages back
// to idle. Liked songs, history and the session row survive.
func (m *Manager) reset(ctx context.Context, guildID string, gs *guildState) {
	gs.queue = queue.New()
	gs.autoplay = false
	gs.current = nil
	gs.clip = nil
	gs.skipping = false

	if err := m.audio.Disconnect(ctx, guildID); err != nil && !errors.Is(err, audio.ErrNoPlayer) {
		m.logger.Warn().Err(err).Str("guild", guildID).Msg("Failed to disconnect player")
	}
	if sess, ok := m.session(ctx, guildID); ok {
		m.renderIdle(ctx, sess, gs)
	}
}

// VoiceStateChange is one member moving between voice channels. Empty channel
// ids mean "not in voice".
type VoiceStateChange struct {
	GuildID string
	UserID  string
	// Self is set when the member is the bot.
	Self   bool
	Before string
	After  string
}

// OnVoiceStateUpdate resets the guild when the bot is disconnected or left
// alone with no human listeners.
func (m *Manager) OnVoiceStateUpdate(ctx context.Context, ch VoiceStateChange) {
	gs := m.lock(ch.GuildID)
	defer gs.mu.Unlock()

	if ch.Self {
		if ch.After == "" && (ch.Before != "" || gs.current != nil) {
			m.logger.Info().Str("guild", ch.GuildID).Msg("Disconnected from voice")
			m.reset(ctx, ch.GuildID, gs)
		}
		return
	}

	player, ok := m.audio.Player(ch.GuildID)
	if !ok {
		return
	}
	botChannel := player.ChannelID()
	if botChannel == "" || ch.Before != botChannel || ch.After == botChannel {
		return
	}
	if m.voice.HumanCount(ch.GuildID, botChannel) == 0 {
		m.logger.Info().Str("guild", ch.GuildID).Str("channel", botChannel).Msg("Voice channel is empty, leaving")
		m.reset(ctx, ch.GuildID, gs)
	}
}

// OnChannelDelete reacts to a guild channel going away. Losing the tracking
// channel removes the session; losing the bot's voice channel resets playback.
func (m *Manager) OnChannelDelete(ctx context.Context, guildID, channelID string) {
	gs := m.lock(guildID)
	defer gs.mu.Unlock()

	if sess, ok := m.session(ctx, guildID); ok && sess.ChannelID == channelID {
		m.logger.Info().Str("guild", guildID).Msg("Music channel deleted, removing music session")
		m.purge(ctx, guildID, gs)
		gs.queue = queue.New()
		gs.autoplay = false
		gs.current = nil
		gs.clip = nil
		gs.history = nil
		if err := m.audio.Disconnect(ctx, guildID); err != nil && !errors.Is(err, audio.ErrNoPlayer) {
			m.logger.Warn().Err(err).Str("guild", guildID).Msg("Failed to disconnect player")
		}
		return
	}

	if p, ok := m.audio.Player(guildID); ok && p.ChannelID() == channelID {
		m.reset(ctx, guildID, gs)
	}
}

// restoreWorkers bounds concurrent guild restores at startup.
const restoreWorkers = 4

// Restore puts every stored session back to the idle view after a restart.
// Sessions whose channel or messages are gone are deleted.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	sessions, err := m.store.Sessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list music sessions: %w", err)
	}

	var restored atomic.Int32
	err = util.Parallel(ctx, sessions, restoreWorkers, func(ctx context.Context, sess storage.Session) error {
		if m.restoreOne(ctx, sess.GuildID) {
			restored.Add(1)
		}
		return nil
	})
	n := int(restored.Load())
	m.logger.Info().Int("restored", n).Int("sessions", len(sessions)).Msg("Music sessions restored")
	return n, err
}

func (m *Manager) restoreOne(ctx context.Context, guildID string) bool {
	gs := m.lock(guildID)
	defer gs.mu.Unlock()

	sess, ok := m.session(ctx, guildID)
	if !ok {
		return false
	}
	if !m.msg.ChannelExists(ctx, sess.ChannelID) {
		m.logger.Info().Str("guild", guildID).Msg("Music channel is gone, removing music session")
		m.purge(ctx, guildID, gs)
		return false
	}
	return m.renderIdle(ctx, sess, gs)
}
