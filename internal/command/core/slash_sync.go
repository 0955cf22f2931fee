package core

import (
	"context"
	"fmt"

	"bot2296/internal/command"
	"bot2296/internal/middleware"

	"github.com/bwmarrin/discordgo"
)

// SyncCommand pushes slash definitions to Discord on demand.
type SyncCommand struct{}

func (c *SyncCommand) Name() string             { return "sync" }
func (c *SyncCommand) Description() string      { return "Sync slash commands with Discord" }
func (c *SyncCommand) Category() string         { return "🛠️ Maintenance" }
func (c *SyncCommand) UserPermissions() []int64 { return nil }
func (c *SyncCommand) DeveloperOnly() bool      { return true }

func (c *SyncCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "scope",
				Description: "What to sync",
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "This server", Value: "current"},
					{Name: "Global", Value: "global"},
					{Name: "Clear this server", Value: "clear_local"},
					{Name: "Clear global", Value: "clear_global"},
				},
			},
		},
	}
}

func (c *SyncCommand) Run(ctx context.Context, slash *command.SlashInteractionContext) error {
	if err := command.RespondDeferredEphemeral(slash.Session, slash.Event); err != nil {
		return err
	}

	scope := "current"
	for _, o := range slash.Event.ApplicationCommandData().Options {
		if o.Name == "scope" {
			scope = o.StringValue()
		}
	}

	msg, err := runSync(slash.Deps.Sync, scope, slash.Event.GuildID)
	if err != nil {
		e := command.NewEmbed("Sync failed", fmt.Sprintf("```%v```", err), command.ColorError)
		_ = command.FollowupEmbedEphemeral(slash.Session, slash.Event, e.MessageEmbed)
		return err
	}
	e := command.NewEmbed("Sync", msg, command.ColorSuccess)
	return command.FollowupEmbedEphemeral(slash.Session, slash.Event, e.MessageEmbed)
}

func runSync(s command.Syncer, scope, guildID string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("command sync is not available")
	}
	switch scope {
	case "current":
		n, err := s.SyncCommands(guildID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Synced %d command(s) to this server.", n), nil
	case "global":
		n, err := s.SyncCommands("")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Synced %d global command(s).", n), nil
	case "clear_local":
		if err := s.ClearCommands(guildID); err != nil {
			return "", err
		}
		return "Cleared all commands from this server.", nil
	case "clear_global":
		if err := s.ClearCommands(""); err != nil {
			return "", err
		}
		return "Cleared all global commands.", nil
	}
	return "", fmt.Errorf("invalid sync scope %q", scope)
}

func init() {
	command.RegisterCommand(
		&SyncCommand{},
		middleware.WithGuildOnly(),
		middleware.WithUserPermissionCheck(),
		middleware.WithCommandLogger(),
	)
}
