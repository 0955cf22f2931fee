package discord

import (
	"fmt"
	"time"

	"bot2296/internal/command"
	"bot2296/pkg/cmd"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// commandRegistrar is the part of the REST API command sync needs.
type commandRegistrar interface {
	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandCreate(appID, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error
}

// hashStore persists definition hashes between runs.
type hashStore interface {
	Get(key string, out any) (bool, error)
	Set(key string, value any) error
	Delete(key string)
	Keys(prefix string) []string
	Save() error
}

// commandSync registers the slash commands of a registry, pushing only
// definitions whose hash changed since the last push.
type commandSync struct {
	api      commandRegistrar
	hashes   hashStore
	registry *cmd.Registry
	appID    func() (string, error)
	pause    time.Duration
	logger   zerolog.Logger
}

func hashScope(guildID string) string {
	if guildID == "" {
		return "global/"
	}
	return guildID + "/"
}

// SyncCommands deletes remote commands that are no longer registered and
// creates or updates the changed ones. It returns how many were pushed.
func (c *commandSync) SyncCommands(guildID string) (int, error) {
	appID, err := c.appID()
	if err != nil {
		return 0, err
	}
	remote, err := c.api.ApplicationCommands(appID, guildID)
	if err != nil {
		return 0, fmt.Errorf("failed to list commands: %w", err)
	}

	local := definitions(c.registry)
	wanted := make(map[string]bool, len(local))
	for _, d := range local {
		wanted[d.Name] = true
	}
	scope := hashScope(guildID)
	registered := make(map[string]bool, len(remote))

	for _, rc := range remote {
		if wanted[rc.Name] {
			registered[rc.Name] = true
			continue
		}
		c.logger.Info().Str("guild", guildID).Str("command", rc.Name).Msg("Deleting obsolete command")
		if err := c.api.ApplicationCommandDelete(appID, guildID, rc.ID); err != nil {
			c.logger.Error().Err(err).Str("guild", guildID).Str("command", rc.Name).Msg("Failed to delete command")
			continue
		}
		c.hashes.Delete(scope + rc.Name)
	}

	pushed := 0
	var firstErr error
	for _, d := range local {
		h := hashCommand(d)
		var cached string
		if ok, _ := c.hashes.Get(scope+d.Name, &cached); ok && cached == h && registered[d.Name] {
			continue
		}
		if _, err := c.api.ApplicationCommandCreate(appID, guildID, d); err != nil {
			c.logger.Error().Err(err).Str("guild", guildID).Str("command", d.Name).Msg("Failed to register command")
			if firstErr == nil {
				firstErr = fmt.Errorf("register %s: %w", d.Name, err)
			}
			continue
		}
		if err := c.hashes.Set(scope+d.Name, h); err != nil {
			c.logger.Warn().Err(err).Str("guild", guildID).Str("command", d.Name).Msg("Failed to cache command hash")
		}
		pushed++
		if c.pause > 0 {
			time.Sleep(c.pause)
		}
	}
	if pushed > 0 {
		c.logger.Info().Str("guild", guildID).Int("commands", pushed).Msg("Registered changed commands")
	}

	if err := c.hashes.Save(); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to save command hashes")
	}
	return pushed, firstErr
}

// ClearCommands removes every command registered for guildID.
func (c *commandSync) ClearCommands(guildID string) error {
	appID, err := c.appID()
	if err != nil {
		return err
	}
	remote, err := c.api.ApplicationCommands(appID, guildID)
	if err != nil {
		return fmt.Errorf("failed to list commands: %w", err)
	}
	for _, rc := range remote {
		if err := c.api.ApplicationCommandDelete(appID, guildID, rc.ID); err != nil {
			return fmt.Errorf("failed to delete %s: %w", rc.Name, err)
		}
	}
	for _, key := range c.hashes.Keys(hashScope(guildID)) {
		c.hashes.Delete(key)
	}
	return c.hashes.Save()
}

// definitions collects slash definitions from every registered command.
func definitions(r *cmd.Registry) []*discordgo.ApplicationCommand {
	var defs []*discordgo.ApplicationCommand
	for _, c := range r.All() {
		if def := commandDefinition(c); def != nil {
			defs = append(defs, def)
		}
	}
	return defs
}

// commandDefinition reads the slash definition beneath any middleware.
func commandDefinition(c cmd.Command) *discordgo.ApplicationCommand {
	sp, ok := cmd.As[command.SlashProvider](c)
	if !ok {
		return nil
	}
	def := sp.SlashDefinition()
	if def == nil {
		return nil
	}
	if def.Type == 0 {
		def.Type = discordgo.ChatApplicationCommand
	}
	if meta, ok := command.Meta(c); ok {
		// Discord requires every bit of DefaultMemberPermissions, so only a
		// single required permission can be mirrored there.
		if perms := meta.UserPermissions(); len(perms) == 1 && def.DefaultMemberPermissions == nil {
			bits := perms[0]
			def.DefaultMemberPermissions = &bits
		}
	}
	return def
}
