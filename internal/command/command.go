// Package command adapts Discord interactions onto the transport-neutral
// core in pkg/cmd. Commands register themselves from init with RegisterCommand
// and receive one of the interaction contexts below as Invocation.Data.
package command

import (
	"context"
	"fmt"

	"bot2296/internal/config"
	"bot2296/internal/music"
	"bot2296/internal/storage"
	"bot2296/pkg/cmd"

	"github.com/bwmarrin/discordgo"
)

// Syncer pushes the registered slash commands to Discord.
type Syncer interface {
	// SyncCommands registers changed commands for guildID ("" for global)
	// and returns how many were pushed.
	SyncCommands(guildID string) (int, error)
	// ClearCommands removes every command of guildID ("" for global).
	ClearCommands(guildID string) error
}

// Deps are the long-lived services commands work with.
type Deps struct {
	Music  *music.Manager
	Store  *storage.Storage
	Config *config.Config
	Sync   Syncer
}

// Interaction is the part every interaction context shares.
type Interaction struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
	Deps    *Deps
}

// Base returns the shared part of a context.
func (i *Interaction) Base() *Interaction {
	return i
}

// User is the member or DM user behind the interaction.
func (i *Interaction) User() *discordgo.User {
	if i.Event.Member != nil && i.Event.Member.User != nil {
		return i.Event.Member.User
	}
	if i.Event.User != nil {
		return i.Event.User
	}
	return &discordgo.User{ID: "unknown", Username: "Unknown"}
}

// DisplayName prefers the guild nickname over the global name.
func (i *Interaction) DisplayName() string {
	if m := i.Event.Member; m != nil {
		if m.Nick != "" {
			return m.Nick
		}
	}
	u := i.User()
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

type SlashInteractionContext struct {
	Interaction
}

type ComponentInteractionContext struct {
	Interaction
}

type ModalSubmitContext struct {
	Interaction
}

// InteractionOf extracts the shared interaction part from Invocation.Data.
func InteractionOf(data any) (*Interaction, bool) {
	b, ok := data.(interface{ Base() *Interaction })
	if !ok {
		return nil, false
	}
	return b.Base(), true
}

// SlashProvider declares a slash command.
type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// ComponentHandler answers message components whose custom id starts with
// ComponentPrefix.
type ComponentHandler interface {
	ComponentPrefix() string
	Component(ctx context.Context, c *ComponentInteractionContext) error
}

// ModalHandler answers modal submissions routed by the same prefix.
type ModalHandler interface {
	Modal(ctx context.Context, c *ModalSubmitContext) error
}

// DiscordMeta is what middleware reads off a command.
type DiscordMeta interface {
	Category() string
	UserPermissions() []int64
	DeveloperOnly() bool
}

// DiscordCommand is implemented by every command in the internal/command
// tree. Run receives slash invocations; components and modals go through the
// optional handler interfaces.
type DiscordCommand interface {
	Name() string
	Description() string
	Category() string
	UserPermissions() []int64
	Run(ctx context.Context, c *SlashInteractionContext) error
}

// DiscordAdapter lets a DiscordCommand live in a cmd.Registry. It routes the
// invocation by context type so middleware wraps all three entry points.
type DiscordAdapter struct {
	Cmd DiscordCommand
}

func (a *DiscordAdapter) Name() string        { return a.Cmd.Name() }
func (a *DiscordAdapter) Description() string { return a.Cmd.Description() }
func (a *DiscordAdapter) Category() string    { return a.Cmd.Category() }

func (a *DiscordAdapter) UserPermissions() []int64 {
	return a.Cmd.UserPermissions()
}

func (a *DiscordAdapter) DeveloperOnly() bool {
	if d, ok := a.Cmd.(interface{ DeveloperOnly() bool }); ok {
		return d.DeveloperOnly()
	}
	return false
}

func (a *DiscordAdapter) Run(ctx context.Context, inv *cmd.Invocation) error {
	switch v := inv.Data.(type) {
	case *SlashInteractionContext:
		return a.Cmd.Run(ctx, v)
	case *ComponentInteractionContext:
		if h, ok := a.Cmd.(ComponentHandler); ok {
			return h.Component(ctx, v)
		}
	case *ModalSubmitContext:
		if h, ok := a.Cmd.(ModalHandler); ok {
			return h.Modal(ctx, v)
		}
	}
	return fmt.Errorf("%s: unsupported invocation %T", a.Cmd.Name(), inv.Data)
}

func (a *DiscordAdapter) SlashDefinition() *discordgo.ApplicationCommand {
	if sp, ok := a.Cmd.(SlashProvider); ok {
		return sp.SlashDefinition()
	}
	return nil
}

// ComponentPrefix is empty for commands without components.
func (a *DiscordAdapter) ComponentPrefix() string {
	if h, ok := a.Cmd.(ComponentHandler); ok {
		return h.ComponentPrefix()
	}
	return ""
}

// RegisterCommand adds discordCmd to cmd.DefaultRegistry behind mws.
func RegisterCommand(discordCmd DiscordCommand, mws ...cmd.Middleware) {
	cmd.DefaultRegistry.MustRegister(cmd.Apply(&DiscordAdapter{Cmd: discordCmd}, mws...))
}

// Meta returns the DiscordMeta underneath any middleware.
func Meta(c cmd.Command) (DiscordMeta, bool) {
	m, ok := cmd.Root(c).(DiscordMeta)
	return m, ok
}
