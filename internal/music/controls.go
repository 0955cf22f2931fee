package music

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"bot2296/internal/music/audio"
	"bot2296/internal/music/lyrics"
	"bot2296/internal/music/queue"
	"bot2296/internal/music/view"
)

// controlCall is the resolved context of one button press.
type controlCall struct {
	from   Actor
	gs     *guildState
	player audio.Player // nil for controls that work without one
}

type controlFunc func(m *Manager, ctx context.Context, c *controlCall) Reply

var controlTable = map[string]controlFunc{
	view.ControlRepeatSong:     (*Manager).repeatSong,
	view.ControlPlayLast:       (*Manager).playLast,
	view.ControlPause:          (*Manager).togglePause,
	view.ControlPlayNext:       (*Manager).skip,
	view.ControlRepeatPlaylist: (*Manager).repeatPlaylist,
	view.ControlVolumeDown:     (*Manager).volumeDown,
	view.ControlReverse:        (*Manager).reverse,
	view.ControlDestroy:        (*Manager).destroy,
	view.ControlShuffle:        (*Manager).shuffle,
	view.ControlVolumeUp:       (*Manager).volumeUp,
	view.ControlLock:           (*Manager).toggleLock,
	view.ControlAutoplay:       (*Manager).toggleAutoplay,
	view.ControlLikeSong:       (*Manager).toggleLike,
	view.ControlClip:           (*Manager).openClip,
	view.ControlPlayLiked:      (*Manager).playLiked,
	view.ControlLyrics:         (*Manager).showLyrics,
}

// Controls lists the control ids the router handles, in display order.
func Controls() []string {
	var out []string
	for _, id := range view.ControlIDs() {
		if _, ok := controlTable[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Control runs one button press for from.
func (m *Manager) Control(ctx context.Context, from Actor, control string) Reply {
	handler, ok := controlTable[control]
	if !ok {
		return failed("Unknown control.")
	}

	gs := m.lock(from.GuildID)
	defer gs.mu.Unlock()

	player, ok := m.audio.Player(from.GuildID)
	if !ok && view.NeedsPlayer(control) {
		return failed("No active player")
	}
	if ok && m.voice.UserChannel(from.GuildID, from.UserID) != player.ChannelID() {
		return failed("You must be in the same VC to operate")
	}

	return handler(m, ctx, &controlCall{from: from, gs: gs, player: player})
}

func (m *Manager) repeatSong(ctx context.Context, c *controlCall) Reply {
	if c.gs.queue.LoopMode() == queue.LoopTrack {
		c.gs.queue.SetLoopMode(queue.LoopNone)
		m.renderQueue(ctx, c.from.GuildID, c.gs, true)
		return Reply{Title: "Song loop DISABLED", Message: "Stopped looping the current track."}
	}
	if c.gs.current == nil {
		return failed("Nothing is playing.")
	}
	c.gs.queue.SetLoopMode(queue.LoopTrack)
	m.renderQueue(ctx, c.from.GuildID, c.gs, true)
	return Reply{
		Title:   "Song loop ENABLED",
		Message: fmt.Sprintf("Now looping: [%s](%s)", c.gs.current.Title, c.gs.current.URI),
	}
}

func (m *Manager) repeatPlaylist(ctx context.Context, c *controlCall) Reply {
	if c.gs.queue.LoopMode() == queue.LoopQueue {
		c.gs.queue.SetLoopMode(queue.LoopNone)
		m.renderQueue(ctx, c.from.GuildID, c.gs, true)
		return Reply{Title: "Playlist loop DISABLED", Message: "The playlist will no longer loop."}
	}
	c.gs.queue.SetLoopMode(queue.LoopQueue)
	m.renderQueue(ctx, c.from.GuildID, c.gs, true)
	return Reply{
		Title:   "Playlist loop ENABLED",
		Message: fmt.Sprintf("The playlist (%d Songs) will now loop continuously.", c.gs.queue.Len()),
	}
}

// playLast replays the most recent history entry. The interrupted track goes
// back to the head of the queue.
func (m *Manager) playLast(ctx context.Context, c *controlCall) Reply {
	n := len(c.gs.history)
	if n == 0 {
		return failed("Looks like there's no song played before this one.")
	}
	prev := c.gs.history[n-1]
	c.gs.history = c.gs.history[:n-1]

	interrupted := c.gs.current
	if interrupted != nil {
		c.gs.queue.PushFront(*interrupted)
	}
	if err := m.play(ctx, c.from.GuildID, c.gs, c.player, prev); err != nil {
		m.logger.Warn().Err(err).Str("guild", c.from.GuildID).Msg("Failed to replay previous track")
		if interrupted != nil {
			c.gs.current = interrupted
			c.gs.queue.Next(nil)
		}
		c.gs.history = append(c.gs.history, prev)
		return failed("Could not play the previous song.")
	}
	m.renderQueue(ctx, c.from.GuildID, c.gs, false)
	return success(fmt.Sprintf("Playing [%s](%s) again", prev.Title, prev.URI))
}

func (m *Manager) togglePause(ctx context.Context, c *controlCall) Reply {
	pause := !c.player.Paused()
	if err := c.player.SetPaused(ctx, pause); err != nil {
		return m.failure("change pause state", c.from.GuildID, err)
	}
	m.renderNowPlaying(ctx, c.from.GuildID, c.gs, true)
	if pause {
		return success("Music Paused")
	}
	return success("Music Resumed")
}

// skip stops the current track. The node reports the stop as an end event
// which advances the queue.
func (m *Manager) skip(ctx context.Context, c *controlCall) Reply {
	if c.gs.current == nil {
		return failed("Nothing is playing.")
	}
	upcoming := c.gs.queue.Tracks()

	c.gs.skipping = true
	if err := c.player.Stop(ctx); err != nil {
		c.gs.skipping = false
		return m.failure("skip the song", c.from.GuildID, err)
	}

	r := Reply{Title: "⏭️ Song Skipped", Message: "No more songs in the queue."}
	if len(upcoming) > 0 {
		next := upcoming[0]
		r.Message = fmt.Sprintf("**Next:** [%s](%s) (%s)", next.Title, next.URI, view.FormatDuration(next.Length))
		if next.Requester != nil {
			r.Footer = "Requested by " + next.Requester.DisplayName
		}
	}
	return r
}

func (m *Manager) volumeDown(ctx context.Context, c *controlCall) Reply {
	return m.setVolume(ctx, c, c.player.Volume()-volumeStep)
}

func (m *Manager) volumeUp(ctx context.Context, c *controlCall) Reply {
	return m.setVolume(ctx, c, c.player.Volume()+volumeStep)
}

func (m *Manager) setVolume(ctx context.Context, c *controlCall, volume int) Reply {
	volume = max(0, min(volume, maxVolume))
	if err := c.player.SetVolume(ctx, volume); err != nil {
		return m.failure("change the volume", c.from.GuildID, err)
	}
	return success(fmt.Sprintf("Volume set to %d", volume))
}

func (m *Manager) reverse(ctx context.Context, c *controlCall) Reply {
	c.gs.queue.Reverse()
	m.renderQueue(ctx, c.from.GuildID, c.gs, false)
	return success("Queue Reversed")
}

func (m *Manager) shuffle(ctx context.Context, c *controlCall) Reply {
	c.gs.queue.Shuffle()
	m.renderQueue(ctx, c.from.GuildID, c.gs, false)
	return success("Queue Shuffled")
}

// destroy tears playback down and returns both messages to idle. The session
// row stays so the channel keeps working.
func (m *Manager) destroy(ctx context.Context, c *controlCall) Reply {
	m.reset(ctx, c.from.GuildID, c.gs)
	return success("Music player destroyed")
}

func (m *Manager) toggleLock(ctx context.Context, c *controlCall) Reply {
	sess, ok := m.session(ctx, c.from.GuildID)
	if !ok {
		return failed("Music channel is not set up.")
	}
	locked := !sess.Locked
	if err := m.store.SetLocked(ctx, c.from.GuildID, locked); err != nil {
		return m.failure("change the channel lock", c.from.GuildID, err)
	}
	m.renderNowPlaying(ctx, c.from.GuildID, c.gs, true)
	if locked {
		return success("Music Channel Locked")
	}
	return success("Music Channel Unlocked")
}

func (m *Manager) toggleAutoplay(ctx context.Context, c *controlCall) Reply {
	c.gs.autoplay = !c.gs.autoplay
	if !c.gs.autoplay {
		m.renderNowPlaying(ctx, c.from.GuildID, c.gs, true)
		return success("AutoPlay disabled")
	}

	if c.gs.current != nil && c.gs.queue.IsEmpty() && c.gs.queue.LoopMode() == queue.LoopNone {
		if m.backfill(ctx, c.from.GuildID, c.gs, *c.gs.current) {
			m.renderQueue(ctx, c.from.GuildID, c.gs, false)
		}
	}
	m.renderNowPlaying(ctx, c.from.GuildID, c.gs, true)
	return success("AutoPlay enabled, this feature will add songs to the queue automatically")
}

func (m *Manager) toggleLike(ctx context.Context, c *controlCall) Reply {
	t := c.gs.current
	if t == nil {
		return failed("Nothing is playing.")
	}

	liked, err := m.store.IsLiked(ctx, c.from.UserID, t.Identifier)
	if err != nil {
		return m.failure("read liked songs", c.from.GuildID, err)
	}
	if liked {
		if err := m.store.Unlike(ctx, c.from.UserID, t.Identifier); err != nil {
			return m.failure("update liked songs", c.from.GuildID, err)
		}
		return success(fmt.Sprintf("Successfully removed %s from liked songs", t.Title))
	}
	if err := m.store.Like(ctx, c.from.UserID, t.Identifier); err != nil {
		return m.failure("update liked songs", c.from.GuildID, err)
	}
	return success(fmt.Sprintf("Successfully added %s to liked songs", t.Title))
}

func (m *Manager) playLiked(ctx context.Context, c *controlCall) Reply {
	songs, err := m.store.LikedSongs(ctx, c.from.UserID)
	if err != nil {
		return m.failure("read liked songs", c.from.GuildID, err)
	}
	if len(songs) == 0 {
		return failed("Your liked song list is empty!")
	}

	player := c.player
	if player == nil {
		vc := m.voice.UserChannel(c.from.GuildID, c.from.UserID)
		if vc == "" {
			return failed("You must be in a vc to listen to music")
		}
		if player, err = m.audio.Connect(ctx, c.from.GuildID, vc); err != nil {
			return m.failure("join your voice channel", c.from.GuildID, err)
		}
	}

	req := c.from.requester()
	added := 0
	for _, id := range songs {
		res, err := m.audio.LoadTracks(ctx, id)
		if err != nil || res.Empty() {
			m.logger.Debug().Err(err).Str("guild", c.from.GuildID).Str("song", id).Msg("Liked song did not resolve")
			continue
		}
		c.gs.queue.Put(res.Tracks[0].WithRequester(req))
		added++
	}
	if added == 0 {
		return failed("None of your liked songs could be loaded.")
	}

	if c.gs.current == nil {
		m.playNext(ctx, c.from.GuildID, c.gs, player, nil)
	}
	m.renderQueue(ctx, c.from.GuildID, c.gs, false)
	return success(fmt.Sprintf("Added %d Liked songs to the queue", added))
}

func (m *Manager) showLyrics(ctx context.Context, c *controlCall) Reply {
	t := c.gs.current
	if t == nil {
		return failed("Nothing is playing.")
	}
	if m.lyrics == nil {
		return failed("No lyrics found.")
	}

	text, err := m.lyrics.Lyrics(ctx, lyrics.Query{Title: t.Title, Artist: t.Author, Duration: t.Length})
	if err != nil {
		m.logger.Warn().Err(err).Str("guild", c.from.GuildID).Str("track", t.Title).Msg("Lyrics lookup failed")
		return failed("Could not fetch lyrics right now.")
	}
	if strings.TrimSpace(text) == "" {
		return failed("No lyrics found.")
	}
	if len(text) <= lyricsMaxChar {
		return Reply{Title: t.Title, Message: text, Keep: true}
	}
	return Reply{
		Title:   t.Title,
		Message: "Lyrics were too long to display, so I've sent them as a file.",
		Keep:    true,
		File:    &File{Name: "lyrics.txt", Content: text},
	}
}

// openClip asks for a start and end timestamp. The answer is accepted for
// clipTimeout and only from the member who opened it.
func (m *Manager) openClip(ctx context.Context, c *controlCall) Reply {
	t := c.gs.current
	if t == nil {
		return failed("Nothing is playing.")
	}
	if !t.Seekable {
		return failed("This song cannot be clipped.")
	}
	c.gs.clip = &pendingClip{userID: c.from.UserID, track: *t, expires: m.now().Add(clipTimeout)}
	return Reply{Modal: &Modal{
		CustomID: view.ClipModalID,
		Title:    "Song Timestamp",
		Label:    "Add Timestamp Example: 01:42 To 2:35",
		Value:    "0:00 To " + view.FormatDuration(t.Length),
	}}
}

var clipPattern = regexp.MustCompile(`(?i)^(\d{1,2}:\d{2})\s*To\s*(\d{1,2}:\d{2})$`)

var errClipFormat = errors.New("incorrect clip format")

// ParseClip reads "m:ss To m:ss" and checks the range fits a track of the
// given length.
func ParseClip(value string, length time.Duration) (start, end time.Duration, err error) {
	match := clipPattern.FindStringSubmatch(strings.TrimSpace(value))
	if match == nil {
		return 0, 0, errClipFormat
	}
	if start, err = view.ParseDuration(match[1]); err != nil {
		return 0, 0, errClipFormat
	}
	if end, err = view.ParseDuration(match[2]); err != nil {
		return 0, 0, errClipFormat
	}
	if start >= end || end > length {
		return 0, 0, errClipFormat
	}
	return start, end, nil
}

// SubmitClip answers the clip modal.
func (m *Manager) SubmitClip(ctx context.Context, from Actor, value string) Reply {
	gs := m.lock(from.GuildID)
	defer gs.mu.Unlock()

	pending := gs.clip
	if pending == nil || pending.userID != from.UserID {
		return failed("This clip request has expired, please try again.")
	}
	gs.clip = nil
	if m.now().After(pending.expires) {
		return failed("This clip request has expired, please try again.")
	}

	player, ok := m.audio.Player(from.GuildID)
	if !ok {
		return failed("No active player")
	}
	if gs.current == nil || gs.current.Identifier != pending.track.Identifier {
		return failed("The song changed, please try again.")
	}

	start, end, err := ParseClip(value, pending.track.Length)
	if err != nil {
		return failed("Incorrect Format, Please try again")
	}
	if err := player.Play(ctx, *gs.current, start, end); err != nil {
		return m.failure("clip the song", from.GuildID, err)
	}
	return success(fmt.Sprintf("Started song from %s To %s", view.FormatDuration(start), view.FormatDuration(end)))
}
