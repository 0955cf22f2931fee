package discord

import (
	"github.com/bwmarrin/discordgo"
)

// Voice answers voice questions from the gateway state cache and moves the
// bot between channels. Audio itself flows through the Lavalink node, so
// joins are manual: no discordgo voice connection is opened.
type Voice struct {
	dg *discordgo.Session
}

func NewVoice(dg *discordgo.Session) *Voice {
	return &Voice{dg: dg}
}

func (v *Voice) UserChannel(guildID, userID string) string {
	guild, err := v.dg.State.Guild(guildID)
	if err != nil {
		return ""
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID
		}
	}
	return ""
}

func (v *Voice) HumanCount(guildID, channelID string) int {
	guild, err := v.dg.State.Guild(guildID)
	if err != nil {
		return 0
	}
	n := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		if !v.isBot(guildID, vs) {
			n++
		}
	}
	return n
}

func (v *Voice) isBot(guildID string, vs *discordgo.VoiceState) bool {
	if vs.Member != nil && vs.Member.User != nil {
		return vs.Member.User.Bot
	}
	if m, err := v.dg.State.Member(guildID, vs.UserID); err == nil && m.User != nil {
		return m.User.Bot
	}
	return false
}

func (v *Voice) JoinVoice(guildID, channelID string) error {
	return v.dg.ChannelVoiceJoinManual(guildID, channelID, false, true)
}

func (v *Voice) LeaveVoice(guildID string) error {
	return v.dg.ChannelVoiceJoinManual(guildID, "", false, true)
}
