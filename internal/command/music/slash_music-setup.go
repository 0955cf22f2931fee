package music

import (
	"context"

	"bot2296/internal/command"
	"bot2296/internal/middleware"
	playback "bot2296/internal/music"
	"bot2296/internal/music/view"

	"github.com/bwmarrin/discordgo"
)

// SetupCommand creates the song-request channel and answers its buttons and
// the clip modal.
type SetupCommand struct{}

func (c *SetupCommand) Name() string        { return "music-setup" }
func (c *SetupCommand) Description() string { return "Create a music channel for you to play and control music." }
func (c *SetupCommand) Category() string    { return "🎵 Music" }

func (c *SetupCommand) UserPermissions() []int64 {
	return []int64{discordgo.PermissionManageChannels}
}

func (c *SetupCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *SetupCommand) Run(ctx context.Context, slash *command.SlashInteractionContext) error {
	if err := command.RespondDeferredEphemeral(slash.Session, slash.Event); err != nil {
		return err
	}
	reply := slash.Deps.Music.Setup(ctx, slash.Event.GuildID)
	return command.FollowupEmbedEphemeral(slash.Session, slash.Event, replyEmbed(reply, successColor(slash.Deps)))
}

func (c *SetupCommand) ComponentPrefix() string {
	return view.ComponentPrefix
}

func (c *SetupCommand) Component(ctx context.Context, comp *command.ComponentInteractionContext) error {
	control, ok := view.ControlFromCustomID(comp.Event.MessageComponentData().CustomID)
	if !ok {
		return nil
	}
	return answerControl(ctx, comp.Deps.Music, interactionResponder{in: &comp.Interaction}, actor(&comp.Interaction), control)
}

func (c *SetupCommand) Modal(ctx context.Context, modal *command.ModalSubmitContext) error {
	data := modal.Event.ModalSubmitData()
	if data.CustomID != view.ClipModalID {
		return nil
	}
	reply := modal.Deps.Music.SubmitClip(ctx, actor(&modal.Interaction), command.ModalValue(data))
	return respond(&modal.Interaction, reply)
}

func actor(in *command.Interaction) playback.Actor {
	return playback.Actor{
		GuildID:     in.Event.GuildID,
		ChannelID:   in.Event.ChannelID,
		UserID:      in.User().ID,
		DisplayName: in.DisplayName(),
	}
}

func init() {
	command.RegisterCommand(
		&SetupCommand{},
		middleware.WithGuildOnly(),
		middleware.WithUserPermissionCheck(),
		middleware.WithCommandLogger(),
	)
}
