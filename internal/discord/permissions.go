package discord

import (
	"github.com/bwmarrin/discordgo"
)

// botHasPermission reports whether the bot holds perm guild-wide, through
// ownership, its roles or Administrator. Unknown state counts as allowed so
// Discord gets the final word.
func botHasPermission(s *discordgo.Session, guildID string, perm int64) bool {
	if s.State == nil || s.State.User == nil {
		return true
	}
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return true
	}
	if guild.OwnerID == s.State.User.ID {
		return true
	}
	member, err := s.State.Member(guildID, s.State.User.ID)
	if err != nil {
		return true
	}

	var perms int64
	for _, roleID := range append([]string{guildID}, member.Roles...) {
		if role, err := s.State.Role(guildID, roleID); err == nil {
			perms |= role.Permissions
		}
	}
	return perms&discordgo.PermissionAdministrator != 0 || perms&perm != 0
}
