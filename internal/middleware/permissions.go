package middleware

import (
	"context"
	"fmt"
	"strings"

	"bot2296/internal/command"
	"bot2296/pkg/cmd"

	"github.com/bwmarrin/discordgo"
)

// PermissionNames maps the permission bits commands may require to the
// labels shown in the refusal message.
var PermissionNames = map[int64]string{
	discordgo.PermissionAdministrator:    "Administrator",
	discordgo.PermissionManageChannels:   "Manage Channels",
	discordgo.PermissionManageServer:     "Manage Server",
	discordgo.PermissionManageMessages:   "Manage Messages",
	discordgo.PermissionManageRoles:      "Manage Roles",
	discordgo.PermissionManageWebhooks:   "Manage Webhooks",
	discordgo.PermissionManageThreads:    "Manage Threads",
	discordgo.PermissionModerateMembers:  "Moderate Members",
	discordgo.PermissionViewAuditLogs:    "View Audit Logs",
	discordgo.PermissionVoiceMoveMembers: "Move Members",
	discordgo.PermissionVoiceMuteMembers: "Mute Members",
	discordgo.PermissionSendMessages:     "Send Messages",
	discordgo.PermissionVoiceConnect:     "Connect to Voice Channel",
	discordgo.PermissionUseSlashCommands: "Use Application Commands",
}

// PermissionLabel names a single permission bit.
func PermissionLabel(p int64) string {
	if name, ok := PermissionNames[p]; ok {
		return name
	}
	return fmt.Sprintf("0x%x", p)
}

// Permitted reports whether perms satisfy required: administrators always
// pass, otherwise any one of the required bits is enough.
func Permitted(perms int64, required []int64) bool {
	if len(required) == 0 || perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	for _, p := range required {
		if perms&p != 0 {
			return true
		}
	}
	return false
}

// WithUserPermissionCheck enforces DiscordMeta.UserPermissions on slash
// commands and DeveloperOnly on everything. The configured developer
// bypasses both.
func WithUserPermissionCheck() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			in, ok := command.InteractionOf(inv.Data)
			if !ok {
				return c.Run(ctx, inv)
			}
			meta, ok := command.Meta(c)
			if !ok {
				return c.Run(ctx, inv)
			}

			user := in.User()
			developer := in.Deps != nil && in.Deps.Config != nil && in.Deps.Config.DeveloperID != "" &&
				user.ID == in.Deps.Config.DeveloperID
			if developer {
				return c.Run(ctx, inv)
			}
			if meta.DeveloperOnly() {
				return refuse(in, "This command is reserved for the bot owner.")
			}

			if _, slash := inv.Data.(*command.SlashInteractionContext); !slash {
				return c.Run(ctx, inv)
			}
			required := meta.UserPermissions()
			if len(required) == 0 {
				return c.Run(ctx, inv)
			}
			var perms int64
			if m := in.Event.Member; m != nil {
				perms = m.Permissions
			}
			if Permitted(perms, required) {
				return c.Run(ctx, inv)
			}

			names := make([]string, 0, len(required))
			for _, p := range required {
				names = append(names, PermissionLabel(p))
			}
			return refuse(in, fmt.Sprintf(
				"You need at least one of the following permissions to run this command:\n`%s`",
				strings.Join(names, "`, `"),
			))
		})
	}
}

func refuse(in *command.Interaction, msg string) error {
	return command.RespondEmbedEphemeral(in.Session, in.Event, command.NewEmbed("", msg, command.ColorError).MessageEmbed)
}
