package core

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"bot2296/internal/command"
	"bot2296/internal/config"
	"bot2296/internal/middleware"
	"bot2296/pkg/cmd"

	"github.com/bwmarrin/discordgo"
)

type HelpCommand struct{}

func (c *HelpCommand) Name() string             { return "help" }
func (c *HelpCommand) Description() string      { return "View help for all commands or a specific command." }
func (c *HelpCommand) Category() string         { return "🕯️ Information" }
func (c *HelpCommand) UserPermissions() []int64 { return nil }

func (c *HelpCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "command",
				Description: "Name of a specific command to get detailed help",
			},
		},
	}
}

func (c *HelpCommand) Run(ctx context.Context, slash *command.SlashInteractionContext) error {
	if err := command.RespondDeferredEphemeral(slash.Session, slash.Event); err != nil {
		return err
	}

	color := command.ColorSuccess
	if slash.Deps != nil && slash.Deps.Config != nil {
		color = slash.Deps.Config.EmbedColor
	}

	var name string
	for _, o := range slash.Event.ApplicationCommandData().Options {
		if o.Name == "command" {
			name = strings.TrimPrefix(strings.TrimSpace(o.StringValue()), "/")
		}
	}

	all := cmd.DefaultRegistry.All()
	if name == "" {
		e := command.NewEmbed("Help", buildHelpByCategory(all), color)
		return command.FollowupEmbedEphemeral(slash.Session, slash.Event, e.MessageEmbed)
	}

	target, ok := cmd.DefaultRegistry.Lookup(name)
	if !ok {
		e := command.NewEmbed("", "Command not found.", command.ColorError)
		return command.FollowupEmbedEphemeral(slash.Session, slash.Event, e.MessageEmbed)
	}
	return command.FollowupEmbedEphemeral(slash.Session, slash.Event, commandHelp(target, color))
}

// commandHelp describes one command with its usage line.
func commandHelp(c cmd.Command, color int) *discordgo.MessageEmbed {
	e := command.NewEmbed("/"+c.Name(), cmp.Or(c.Description(), "No description."), color)

	if sp, ok := cmd.As[command.SlashProvider](c); ok {
		if def := sp.SlashDefinition(); def != nil && len(def.Options) > 0 {
			usage := make([]string, 0, len(def.Options))
			for _, o := range def.Options {
				usage = append(usage, "<"+o.Name+">")
			}
			e = e.AddField("Usage", "/"+c.Name()+" "+strings.Join(usage, " "))
		}
	}
	if meta, ok := command.Meta(c); ok {
		if meta.DeveloperOnly() {
			e = e.SetFooter("Bot owner only")
		} else if perms := meta.UserPermissions(); len(perms) > 0 {
			names := make([]string, 0, len(perms))
			for _, p := range perms {
				names = append(names, middleware.PermissionLabel(p))
			}
			e = e.SetFooter("Requires: " + strings.Join(names, ", "))
		}
	}
	return e.MessageEmbed
}

// buildHelpByCategory lists commands grouped by category, ordered by
// config.CategoryWeights and then by name.
func buildHelpByCategory(all []cmd.Command) string {
	byCategory := make(map[string][]cmd.Command)
	for _, c := range all {
		cat := "Other"
		if meta, ok := command.Meta(c); ok && meta.Category() != "" {
			cat = meta.Category()
		}
		byCategory[cat] = append(byCategory[cat], c)
	}

	cats := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		cats = append(cats, cat)
	}
	slices.SortFunc(cats, func(a, b string) int {
		return cmp.Or(cmp.Compare(weight(a), weight(b)), strings.Compare(a, b))
	})

	var sb strings.Builder
	for _, cat := range cats {
		fmt.Fprintf(&sb, "**%s**\n", cat)
		for _, c := range byCategory[cat] {
			fmt.Fprintf(&sb, "`/%s` - %s\n", c.Name(), c.Description())
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

func weight(category string) int {
	if w, ok := config.CategoryWeights[category]; ok {
		return w
	}
	return 1000
}

func init() {
	command.RegisterCommand(
		&HelpCommand{},
		middleware.WithCommandLogger(),
	)
}
