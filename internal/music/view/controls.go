package view

import "strings"

// ComponentPrefix namespaces the music controls' custom ids so the
// interaction router can hand them to the music-setup command.
const ComponentPrefix = "music-setup:"

// Control ids, in display order.
const (
	ControlRepeatSong     = "repeat-song"
	ControlPlayLast       = "play-last"
	ControlPause          = "pause"
	ControlPlayNext       = "play-next"
	ControlRepeatPlaylist = "repeat-playlist"
	ControlVolumeDown     = "volume-down"
	ControlReverse        = "reverse"
	ControlDestroy        = "destroy"
	ControlShuffle        = "shuffle"
	ControlVolumeUp       = "volume-up"
	ControlLock           = "lock"
	ControlAutoplay       = "autoplay"
	ControlLikeSong       = "like-song"
	ControlClip           = "clip"
	ControlPlayLiked      = "play-liked"
	ControlLyrics         = "lyrics"
)

// ClipModalID is the custom id of the clip timestamp modal.
const ClipModalID = ComponentPrefix + "clip-modal"

var layout = [][]string{
	{ControlRepeatSong, ControlPlayLast, ControlPause, ControlPlayNext, ControlRepeatPlaylist},
	{ControlVolumeDown, ControlReverse, ControlDestroy, ControlShuffle, ControlVolumeUp},
	{ControlLock, ControlAutoplay, ControlLikeSong, ControlClip, ControlPlayLiked},
	{ControlLyrics},
}

var emoji = map[string]string{
	ControlRepeatSong:     "🔂",
	ControlPlayLast:       "⏮️",
	ControlPause:          "⏸️",
	ControlPlayNext:       "⏭️",
	ControlRepeatPlaylist: "🔁",
	ControlVolumeDown:     "🔉",
	ControlReverse:        "🔃",
	ControlDestroy:        "✖️",
	ControlShuffle:        "🔀",
	ControlVolumeUp:       "🔊",
	ControlLock:           "🔓",
	ControlAutoplay:       "♾️",
	ControlLikeSong:       "❤️",
	ControlClip:           "✂️",
	ControlPlayLiked:      "💖",
	ControlLyrics:         "📜",
}

// alwaysEnabled controls work without a player.
var alwaysEnabled = map[string]bool{
	ControlLock:      true,
	ControlPlayLiked: true,
}

// ControlIDs lists every control in display order.
func ControlIDs() []string {
	var out []string
	for _, row := range layout {
		out = append(out, row...)
	}
	return out
}

// NeedsPlayer reports whether control requires an active player.
func NeedsPlayer(control string) bool {
	return !alwaysEnabled[control]
}

// Button is one rendered control.
type Button struct {
	CustomID string
	Emoji    string
	Disabled bool
}

// ControlState is what the control surface depends on.
type ControlState struct {
	Active bool // something is playing
	Paused bool
	Locked bool
}

// Controls renders the button rows for state.
func Controls(state ControlState) [][]Button {
	rows := make([][]Button, 0, len(layout))
	for _, ids := range layout {
		row := make([]Button, 0, len(ids))
		for _, id := range ids {
			b := Button{
				CustomID: ComponentPrefix + id,
				Emoji:    emoji[id],
				Disabled: !state.Active && !alwaysEnabled[id],
			}
			switch {
			case id == ControlPause && state.Paused:
				b.Emoji = "▶️"
			case id == ControlLock && state.Locked:
				b.Emoji = "🔒"
			}
			row = append(row, b)
		}
		rows = append(rows, row)
	}
	return rows
}

// ControlFromCustomID strips the prefix, reporting false for foreign ids.
func ControlFromCustomID(customID string) (string, bool) {
	return strings.CutPrefix(customID, ComponentPrefix)
}
