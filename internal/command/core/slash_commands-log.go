package core

import (
	"context"
	"fmt"
	"strings"

	"bot2296/internal/command"
	"bot2296/internal/middleware"
	"bot2296/internal/storage"

	"github.com/bwmarrin/discordgo"
)

const (
	discordMaxMessageLength = 2000
	codeLeftBlockWrapper    = "```md"
	codeRightBlockWrapper   = "```"
)

var maxContentLength = discordMaxMessageLength - len(codeLeftBlockWrapper) - len(codeRightBlockWrapper) - 2

type CommandsLogCommand struct{}

func (c *CommandsLogCommand) Name() string        { return "commands-log" }
func (c *CommandsLogCommand) Description() string { return "Review recently used commands" }
func (c *CommandsLogCommand) Category() string    { return "🛠️ Maintenance" }

func (c *CommandsLogCommand) UserPermissions() []int64 {
	return []int64{discordgo.PermissionManageServer}
}

func (c *CommandsLogCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *CommandsLogCommand) Run(ctx context.Context, slash *command.SlashInteractionContext) error {
	records, err := slash.Deps.Store.CommandHistory(ctx, slash.Event.GuildID)
	if err != nil {
		e := command.NewEmbed("", "Failed to fetch command logs.", command.ColorError)
		_ = command.RespondEmbedEphemeral(slash.Session, slash.Event, e.MessageEmbed)
		return err
	}
	if len(records) == 0 {
		e := command.NewEmbed("", "No command history found.", command.ColorSuccess)
		return command.RespondEmbedEphemeral(slash.Session, slash.Event, e.MessageEmbed)
	}

	e := command.NewEmbed("Command log", formatHistory(records), command.ColorSuccess)
	return command.RespondEmbedEphemeral(slash.Session, slash.Event, e.MessageEmbed)
}

// formatHistory renders records, newest first, as a markdown code block that
// fits one Discord message.
func formatHistory(records []storage.CommandHistoryRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-19s\t%-15s\t%s\n", "# Datetime", "# Username", "# Command")
	for _, r := range records {
		line := fmt.Sprintf("%-19s\t%-15s\t/%s", r.Datetime.Format("2006-01-02 15:04:05"), r.Username, r.Command)
		if r.Param != "" {
			line += " " + r.Param
		}
		line += "\n"
		if b.Len()+len(line) > maxContentLength {
			break
		}
		b.WriteString(line)
	}
	return codeLeftBlockWrapper + "\n" + b.String() + codeRightBlockWrapper
}

func init() {
	command.RegisterCommand(
		&CommandsLogCommand{},
		middleware.WithGuildOnly(),
		middleware.WithUserPermissionCheck(),
		middleware.WithCommandLogger(),
	)
}
