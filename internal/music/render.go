package music

import (
	"context"
	"errors"

	"bot2296/internal/music/view"
	"bot2296/internal/storage"
)

func (m *Manager) paused(guildID string) bool {
	if p, ok := m.audio.Player(guildID); ok {
		return p.Paused()
	}
	return false
}

// renderNowPlaying pushes the now-playing document and controls. force edits
// even when the description is unchanged, for control-only changes.
func (m *Manager) renderNowPlaying(ctx context.Context, guildID string, gs *guildState, force bool) {
	sess, ok := m.session(ctx, guildID)
	if !ok || sess.MessageID == "" {
		return
	}

	doc := view.NowPlaying(gs.current, gs.autoplay, m.style())
	if !force && !gs.tracker.ShouldEdit(sess.MessageID, doc) {
		return
	}

	controls := view.Controls(view.ControlState{
		Active: gs.current != nil,
		Paused: m.paused(guildID),
		Locked: sess.Locked,
	})
	m.edit(ctx, sess, gs, sess.MessageID, doc, controls)
}

// renderQueue pushes the queue document when its description changed, or
// always with force.
func (m *Manager) renderQueue(ctx context.Context, guildID string, gs *guildState, force bool) {
	sess, ok := m.session(ctx, guildID)
	if !ok || sess.QueueID == "" {
		return
	}

	var doc view.Document
	if gs.current == nil && gs.queue.IsEmpty() {
		_, doc = view.Idle(m.style())
	} else {
		doc = view.Queue(gs.queue.Tracks(), gs.queue.LoopMode(), gs.queue.Len(), m.style())
	}
	if !force && !gs.tracker.ShouldEdit(sess.QueueID, doc) {
		return
	}
	m.edit(ctx, sess, gs, sess.QueueID, doc, nil)
}

// renderIdle resets both tracking messages to the idle documents.
func (m *Manager) renderIdle(ctx context.Context, sess *storage.Session, gs *guildState) bool {
	np, q := view.Idle(m.style())
	controls := view.Controls(view.ControlState{Locked: sess.Locked})

	if gs.tracker.ShouldEdit(sess.MessageID, np) {
		if !m.edit(ctx, sess, gs, sess.MessageID, np, controls) {
			return false
		}
	}
	if gs.tracker.ShouldEdit(sess.QueueID, q) {
		if !m.edit(ctx, sess, gs, sess.QueueID, q, nil) {
			return false
		}
	}
	return true
}

// edit sends one message edit. A vanished message purges the session and
// reports false; other failures are logged and the tracker is left alone.
func (m *Manager) edit(ctx context.Context, sess *storage.Session, gs *guildState, messageID string, doc view.Document, controls [][]view.Button) bool {
	err := m.msg.Edit(ctx, sess.ChannelID, messageID, doc, controls)
	switch {
	case err == nil:
		gs.tracker.Commit(messageID, doc)
		return true
	case errors.Is(err, ErrMessageGone):
		m.logger.Info().Str("guild", sess.GuildID).Str("message", messageID).
			Msg("Tracking message is gone, removing music session")
		m.purge(ctx, sess.GuildID, gs)
		return false
	default:
		m.logger.Warn().Err(err).Str("guild", sess.GuildID).Str("message", messageID).
			Msg("Failed to edit tracking message")
		return true
	}
}

// purge drops the session row together with the in-memory view state.
func (m *Manager) purge(ctx context.Context, guildID string, gs *guildState) {
	if err := m.store.DeleteSession(ctx, guildID); err != nil {
		m.logger.Warn().Err(err).Str("guild", guildID).Msg("Failed to delete music session")
	}
	gs.tracker.Reset()
}
