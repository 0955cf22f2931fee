// Package middleware holds cmd.Middleware shared by the Discord commands.
package middleware

import (
	"context"

	"bot2296/internal/command"
	"bot2296/pkg/cmd"
)

// WithGuildOnly drops interactions that do not come from a guild.
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			if in, ok := command.InteractionOf(inv.Data); ok && in.Event.GuildID == "" {
				_ = command.RespondEmbedEphemeral(in.Session, in.Event,
					command.NewEmbed("", "This command only works inside a server.", command.ColorError).MessageEmbed)
				return nil
			}
			return c.Run(ctx, inv)
		})
	}
}
