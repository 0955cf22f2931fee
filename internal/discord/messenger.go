package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bot2296/internal/music"
	"bot2296/internal/music/view"
	"bot2296/pkg/retrylimit"

	"github.com/bwmarrin/discordgo"
	embed "github.com/clinet/discordgo-embed"
	"github.com/rs/zerolog"
)

// Messenger posts and edits the music channel messages through the REST API.
type Messenger struct {
	dg      *discordgo.Session
	limiter *retrylimit.Limiter
	policy  retrylimit.Policy
	logger  zerolog.Logger
}

func NewMessenger(dg *discordgo.Session, logger zerolog.Logger) *Messenger {
	policy := retrylimit.DefaultPolicy("discord-edit")
	policy.Attempts = 3
	return &Messenger{
		dg:      dg,
		limiter: retrylimit.NewLimiter(retrylimit.Limits{Initial: 5, Min: 1, Max: 10}),
		policy:  policy,
		logger:  logger,
	}
}

// restError exposes the HTTP status of a discordgo REST failure to retrylimit.
type restError struct {
	err *discordgo.RESTError
}

func (e *restError) Error() string {
	return e.err.Error()
}

func (e *restError) Unwrap() error {
	return e.err
}

func (e *restError) StatusCode() int {
	if e.err.Response == nil {
		return 0
	}
	return e.err.Response.StatusCode
}

// classify maps a REST failure onto what retrylimit and the coordinator
// understand. Missing messages or channels become music.ErrMessageGone.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return err
	}
	if gone(rest) {
		return retrylimit.Permanent(fmt.Errorf("%w: %w", music.ErrMessageGone, err))
	}
	wrapped := &restError{err: rest}
	if code := wrapped.StatusCode(); code >= 400 && code < 500 && code != http.StatusTooManyRequests {
		return retrylimit.Permanent(wrapped)
	}
	return wrapped
}

func gone(rest *discordgo.RESTError) bool {
	if rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return true
		}
	}
	return rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound
}

func (m *Messenger) CreateTextChannel(ctx context.Context, guildID, name string) (string, error) {
	if !botHasPermission(m.dg, guildID, discordgo.PermissionManageChannels) {
		return "", fmt.Errorf("missing Manage Channels permission in guild %s", guildID)
	}
	ch, err := m.dg.GuildChannelCreate(guildID, name, discordgo.ChannelTypeGuildText, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to create channel %q: %w", name, err)
	}
	return ch.ID, nil
}

func (m *Messenger) ChannelExists(ctx context.Context, channelID string) bool {
	if channelID == "" {
		return false
	}
	if _, err := m.dg.State.Channel(channelID); err == nil {
		return true
	}
	_, err := m.dg.Channel(channelID, discordgo.WithContext(ctx))
	return err == nil
}

func (m *Messenger) Send(ctx context.Context, channelID string, doc view.Document, controls [][]view.Button) (string, error) {
	msg, err := m.dg.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{DocumentEmbed(doc)},
		Components: ButtonRows(controls),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to send message to %s: %w", channelID, err)
	}
	return msg.ID, nil
}

func (m *Messenger) Edit(ctx context.Context, channelID, messageID string, doc view.Document, controls [][]view.Button) error {
	embeds := []*discordgo.MessageEmbed{DocumentEmbed(doc)}
	edit := &discordgo.MessageEdit{
		ID:      messageID,
		Channel: channelID,
		Embeds:  &embeds,
	}
	if controls != nil {
		rows := ButtonRows(controls)
		edit.Components = &rows
	}

	err := retrylimit.Do(ctx, m.limiter, m.policy, func(ctx context.Context) error {
		_, err := m.dg.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
		return classify(err)
	})
	if errors.Is(err, music.ErrMessageGone) {
		return music.ErrMessageGone
	}
	return err
}

func (m *Messenger) Notice(ctx context.Context, channelID, text string, ttl time.Duration) {
	msg, err := m.dg.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	if err != nil {
		m.logger.Debug().Err(err).Str("channel", channelID).Msg("Failed to send notice")
		return
	}
	time.AfterFunc(ttl, func() {
		if err := m.dg.ChannelMessageDelete(channelID, msg.ID); err != nil {
			m.logger.Debug().Err(err).Str("channel", channelID).Msg("Failed to delete notice")
		}
	})
}

func (m *Messenger) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return m.dg.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

// DocumentEmbed renders a view.Document as a Discord embed.
func DocumentEmbed(doc view.Document) *discordgo.MessageEmbed {
	e := embed.NewEmbed().SetColor(doc.Color)
	if doc.Title != "" {
		e = e.SetTitle(doc.Title)
	}
	if doc.Description != "" {
		e = e.SetDescription(doc.Description)
	}
	if doc.URL != "" {
		e = e.SetURL(doc.URL)
	}
	if doc.ImageURL != "" {
		e = e.SetImage(doc.ImageURL)
	}
	if doc.ThumbnailURL != "" {
		e = e.SetThumbnail(doc.ThumbnailURL)
	}
	if doc.FooterText != "" {
		if doc.FooterIconURL != "" {
			e = e.SetFooter(doc.FooterText, doc.FooterIconURL)
		} else {
			e = e.SetFooter(doc.FooterText)
		}
	}
	for _, f := range doc.Fields {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return e.MessageEmbed
}

// ButtonRows renders the control surface as action rows.
func ButtonRows(rows [][]view.Button) []discordgo.MessageComponent {
	out := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		buttons := make([]discordgo.MessageComponent, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, discordgo.Button{
				CustomID: b.CustomID,
				Emoji:    &discordgo.ComponentEmoji{Name: b.Emoji},
				Style:    discordgo.SecondaryButton,
				Disabled: b.Disabled,
			})
		}
		out = append(out, discordgo.ActionsRow{Components: buttons})
	}
	return out
}
