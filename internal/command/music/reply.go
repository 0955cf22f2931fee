package music

import (
	"context"
	"time"

	"bot2296/internal/command"
	playback "bot2296/internal/music"
	"bot2296/internal/music/view"

	"github.com/bwmarrin/discordgo"
)

const replyTTL = 5 * time.Second

// replyEmbed renders a coordinator reply. Errors are always red.
func replyEmbed(r playback.Reply, color int) *discordgo.MessageEmbed {
	if r.Error {
		color = command.ColorError
	}
	e := command.NewEmbed(r.Title, r.Message, color)
	if r.Footer != "" {
		e = e.SetFooter(r.Footer)
	}
	return e.MessageEmbed
}

func successColor(deps *command.Deps) int {
	if deps != nil && deps.Config != nil && deps.Config.EmbedColor != 0 {
		return deps.Config.EmbedColor
	}
	return command.ColorSuccess
}

// respond answers a button or modal. Short confirmations delete themselves;
// modals, attachments and kept replies stay.
func respond(in *command.Interaction, r playback.Reply) error {
	if m := r.Modal; m != nil {
		return command.RespondModal(in.Session, in.Event, m.CustomID, m.Title, m.Label, m.Value)
	}

	e := replyEmbed(r, successColor(in.Deps))
	if f := r.File; f != nil {
		return command.RespondEmbedEphemeralWithFile(in.Session, in.Event, e, f.Name, f.Content)
	}
	if err := command.RespondEmbedEphemeral(in.Session, in.Event, e); err != nil {
		return err
	}
	if !r.Keep {
		command.DeleteResponseAfter(in.Session, in.Event, replyTTL)
	}
	return nil
}

type controller interface {
	Control(ctx context.Context, from playback.Actor, control string) playback.Reply
}

// responder is the Discord side of one button press.
type responder interface {
	Defer() error
	Respond(r playback.Reply) error
	Followup(r playback.Reply) error
}

// answerControl acknowledges the press before the control runs and sends the
// result as a follow-up. Clip answers directly since its modal has to be the
// first response.
func answerControl(ctx context.Context, ctl controller, out responder, from playback.Actor, control string) error {
	if control == view.ControlClip {
		return out.Respond(ctl.Control(ctx, from, control))
	}
	if err := out.Defer(); err != nil {
		return err
	}
	return out.Followup(ctl.Control(ctx, from, control))
}

type interactionResponder struct {
	in *command.Interaction
}

func (r interactionResponder) Defer() error {
	return command.RespondDeferredEphemeral(r.in.Session, r.in.Event)
}

func (r interactionResponder) Respond(reply playback.Reply) error {
	return respond(r.in, reply)
}

func (r interactionResponder) Followup(reply playback.Reply) error {
	var name, content string
	if f := reply.File; f != nil {
		name, content = f.Name, f.Content
	}
	msg, err := command.FollowupEphemeralWithFile(r.in.Session, r.in.Event, replyEmbed(reply, successColor(r.in.Deps)), name, content)
	if err != nil {
		return err
	}
	if reply.File == nil && !reply.Keep {
		command.DeleteFollowupAfter(r.in.Session, r.in.Event, msg.ID, replyTTL)
	}
	return nil
}
