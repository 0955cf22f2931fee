package command

import (
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	embed "github.com/clinet/discordgo-embed"
	"github.com/rs/zerolog/log"
)

const (
	ColorError   = 0xff0000
	ColorSuccess = 0x00ff00
)

// NewEmbed starts an embed with the given title, description and color.
func NewEmbed(title, description string, color int) *embed.Embed {
	e := embed.NewEmbed().SetColor(color)
	if title != "" {
		e = e.SetTitle(title)
	}
	if description != "" {
		e = e.SetDescription(description)
	}
	return e
}

// RespondEmbedEphemeral answers the interaction with an embed only the caller sees.
func RespondEmbedEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, e *discordgo.MessageEmbed) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags:  discordgo.MessageFlagsEphemeral,
			Embeds: []*discordgo.MessageEmbed{e},
		},
	})
}

// RespondEmbedEphemeralWithFile is RespondEmbedEphemeral plus a text attachment.
func RespondEmbedEphemeralWithFile(s *discordgo.Session, i *discordgo.InteractionCreate, e *discordgo.MessageEmbed, name, content string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags:  discordgo.MessageFlagsEphemeral,
			Embeds: []*discordgo.MessageEmbed{e},
			Files: []*discordgo.File{{
				Name:        name,
				ContentType: "text/plain",
				Reader:      strings.NewReader(content),
			}},
		},
	})
}

// RespondDeferredEphemeral acknowledges the interaction; answer later with
// FollowupEmbedEphemeral.
func RespondDeferredEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}

func FollowupEmbedEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, e *discordgo.MessageEmbed) error {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{e},
		Flags:  discordgo.MessageFlagsEphemeral,
	})
	return err
}

// FollowupEphemeralWithFile answers a deferred interaction. An empty name
// sends the embed alone.
func FollowupEphemeralWithFile(s *discordgo.Session, i *discordgo.InteractionCreate, e *discordgo.MessageEmbed, name, content string) (*discordgo.Message, error) {
	params := &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{e},
		Flags:  discordgo.MessageFlagsEphemeral,
	}
	if name != "" {
		params.Files = []*discordgo.File{{
			Name:        name,
			ContentType: "text/plain",
			Reader:      strings.NewReader(content),
		}}
	}
	return s.FollowupMessageCreate(i.Interaction, true, params)
}

// RespondModal opens a single-field text modal.
func RespondModal(s *discordgo.Session, i *discordgo.InteractionCreate, customID, title, label, value string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: customID,
			Title:    title,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:  customID + ":value",
						Label:     label,
						Style:     discordgo.TextInputShort,
						Value:     value,
						Required:  true,
						MaxLength: 32,
					},
				}},
			},
		},
	})
}

// ModalValue returns the first text input of a modal submission.
func ModalValue(data discordgo.ModalSubmitInteractionData) string {
	for _, row := range data.Components {
		r, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, c := range r.Components {
			if in, ok := c.(*discordgo.TextInput); ok {
				return strings.TrimSpace(in.Value)
			}
		}
	}
	return ""
}

// DeleteFollowupAfter removes a follow-up message after d.
func DeleteFollowupAfter(s *discordgo.Session, i *discordgo.InteractionCreate, messageID string, d time.Duration) {
	time.AfterFunc(d, func() {
		if err := s.FollowupMessageDelete(i.Interaction, messageID); err != nil {
			log.Debug().Err(err).Str("interaction", i.ID).Msg("Failed to delete follow-up message")
		}
	})
}

// DeleteResponseAfter removes the original interaction response after d.
func DeleteResponseAfter(s *discordgo.Session, i *discordgo.InteractionCreate, d time.Duration) {
	time.AfterFunc(d, func() {
		if err := s.InteractionResponseDelete(i.Interaction); err != nil {
			log.Debug().Err(err).Str("interaction", i.ID).Msg("Failed to delete interaction response")
		}
	})
}
