package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bot2296/internal/command"
	"bot2296/internal/storage"
	"bot2296/pkg/cmd"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// WithCommandLogger logs each slash invocation and records it in the command
// history. Button presses and modals are only logged at debug level.
func WithCommandLogger() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			started := time.Now()
			err := c.Run(ctx, inv)

			in, ok := command.InteractionOf(inv.Data)
			if !ok {
				return err
			}
			user := in.User()
			logger := log.With().
				Str("component", "commands").
				Str("command", c.Name()).
				Str("guild", in.Event.GuildID).
				Str("user", user.ID).
				Dur("took", time.Since(started)).
				Logger()

			if _, slash := inv.Data.(*command.SlashInteractionContext); !slash {
				logger.Debug().Err(err).Msg("Interaction handled")
				return err
			}
			if err != nil {
				logger.Error().Err(err).Msg("Command failed")
			} else {
				logger.Info().Msg("Command executed")
			}

			if in.Deps == nil || in.Deps.Store == nil || in.Event.GuildID == "" {
				return err
			}
			rec := storage.CommandHistoryRecord{
				GuildID:   in.Event.GuildID,
				ChannelID: in.Event.ChannelID,
				UserID:    user.ID,
				Username:  user.Username,
				Command:   c.Name(),
				Param:     optionSummary(in.Event.ApplicationCommandData().Options),
			}
			if logErr := in.Deps.Store.LogCommand(ctx, rec); logErr != nil {
				logger.Warn().Err(logErr).Msg("Failed to record command history")
			}
			return err
		})
	}
}

// optionSummary flattens slash options into "name=value" pairs.
func optionSummary(opts []*discordgo.ApplicationCommandInteractionDataOption) string {
	parts := make([]string, 0, len(opts))
	for _, o := range opts {
		if len(o.Options) > 0 {
			parts = append(parts, o.Name+"("+optionSummary(o.Options)+")")
			continue
		}
		if o.Value == nil {
			parts = append(parts, o.Name)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", o.Name, o.Value))
	}
	return strings.Join(parts, " ")
}
