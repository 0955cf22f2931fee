package discord

import (
	"context"
	"strings"
	"time"

	"bot2296/internal/command"
	"bot2296/pkg/cmd"

	"github.com/bwmarrin/discordgo"
)

const interactionTimeout = 30 * time.Second

// onInteractionCreate routes slash commands by name and components or modals
// by custom id prefix. All three go through the command's middleware.
func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	base := command.Interaction{Session: s, Event: i, Deps: b.deps}
	var (
		target cmd.Command
		data   any
	)

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name := i.ApplicationCommandData().Name
		c, ok := b.registry.Lookup(name)
		if !ok {
			b.logger.Warn().Str("command", name).Msg("Unknown command")
			return
		}
		target, data = c, &command.SlashInteractionContext{Interaction: base}

	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		target = componentOwner(b.registry, customID)
		data = &command.ComponentInteractionContext{Interaction: base}
		if target == nil {
			b.logger.Warn().Str("custom_id", customID).Msg("No handler for component")
			return
		}

	case discordgo.InteractionModalSubmit:
		customID := i.ModalSubmitData().CustomID
		target = componentOwner(b.registry, customID)
		data = &command.ModalSubmitContext{Interaction: base}
		if target == nil {
			b.logger.Warn().Str("custom_id", customID).Msg("No handler for modal")
			return
		}

	default:
		b.logger.Debug().Int("type", int(i.Type)).Msg("Ignoring interaction")
		return
	}

	if err := target.Run(ctx, &cmd.Invocation{Data: data}); err != nil {
		b.logger.Error().Err(err).Str("command", target.Name()).Msg("Interaction failed")
	}
}

// componentOwner finds the command whose component prefix matches customID.
func componentOwner(r *cmd.Registry, customID string) cmd.Command {
	for _, c := range r.All() {
		h, ok := cmd.As[interface{ ComponentPrefix() string }](c)
		if !ok {
			continue
		}
		if prefix := h.ComponentPrefix(); prefix != "" && strings.HasPrefix(customID, prefix) {
			return c
		}
	}
	return nil
}
