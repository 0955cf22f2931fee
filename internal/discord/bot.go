package discord

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"bot2296/datastore"
	"bot2296/internal/command"
	"bot2296/internal/config"
	"bot2296/internal/logger"
	"bot2296/internal/music"
	"bot2296/internal/music/audio"
	"bot2296/internal/music/lyrics"
	"bot2296/internal/music/view"
	"bot2296/internal/storage"
	"bot2296/pkg/cmd"
	"bot2296/pkg/jobmgr"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const (
	eventTimeout  = 15 * time.Second
	commandPause  = 25 * time.Millisecond
	cacheBackups  = 2
	restoreJob    = "music-restore"
	lavalinkJob   = "lavalink-connect"
	syncJobPrefix = "commands-sync/"
)

// Bot owns the gateway session and glues Discord events to the music
// coordinator, the Lavalink client and the command registry.
type Bot struct {
	dg       *discordgo.Session
	cfg      *config.Config
	jobs     *jobmgr.Manager
	music    *music.Manager
	lavalink *audio.Lavalink
	hashes   *datastore.Store
	registry *cmd.Registry
	sync     *commandSync
	deps     *command.Deps
	logger   zerolog.Logger
}

// New builds the session and every collaborator. The gateway is not opened
// until Run.
func New(cfg *config.Config, store *storage.Storage, jobs *jobmgr.Manager) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMembers

	self, err := dg.User("@me")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bot user: %w", err)
	}

	lg := logger.For("discord")
	voice := NewVoice(dg)
	lava, err := audio.NewLavalink(self.ID, voice)
	if err != nil {
		return nil, err
	}

	hashes, err := datastore.Open(datastore.Config{FilePath: cfg.CommandCachePath, BackupCount: cacheBackups})
	if err != nil {
		return nil, fmt.Errorf("failed to open command cache: %w", err)
	}

	manager := music.New(store, lava, NewMessenger(dg, lg), voice, lyrics.NewLRCLib(cfg.LyricsURL), music.Options{
		Style: view.Style{
			Color:        cfg.EmbedColor,
			IdleImageURL: cfg.IdleImageURL,
			IconURL:      self.AvatarURL(""),
		},
		ChannelName:     cfg.MusicChannelName,
		AutoplayShuffle: cfg.AutoplayShuffle,
	})
	lava.SetListener(manager)

	b := &Bot{
		dg:       dg,
		cfg:      cfg,
		jobs:     jobs,
		music:    manager,
		lavalink: lava,
		hashes:   hashes,
		registry: cmd.DefaultRegistry,
		logger:   lg,
	}
	b.sync = &commandSync{
		api:      dg,
		hashes:   hashes,
		registry: b.registry,
		appID:    b.appID,
		pause:    commandPause,
		logger:   logger.For("commands-sync"),
	}
	b.deps = &command.Deps{Music: manager, Store: store, Config: cfg, Sync: b.sync}
	return b, nil
}

// Run opens the gateway and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onMessageCreate)
	b.dg.AddHandler(b.onInteractionCreate)
	b.dg.AddHandler(b.onVoiceStateUpdate)
	b.dg.AddHandler(b.onVoiceServerUpdate)
	b.dg.AddHandler(b.onChannelDelete)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	<-ctx.Done()
	b.logger.Info().Msg("Shutdown signal received, cleaning up")

	b.lavalink.Close()
	if err := b.hashes.Close(); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to close command cache")
	}
	if err := b.dg.Close(); err != nil {
		return fmt.Errorf("failed to close Discord session: %w", err)
	}
	return nil
}

func (b *Bot) appID() (string, error) {
	if b.dg.State != nil && b.dg.State.User != nil && b.dg.State.User.ID != "" {
		return b.dg.State.User.ID, nil
	}
	u, err := b.dg.User("@me")
	if err != nil {
		return "", fmt.Errorf("failed to fetch application id: %w", err)
	}
	return u.ID, nil
}

func (b *Bot) isGuildBlacklisted(guildID string) bool {
	return slices.Contains(b.cfg.DiscordGuildBlacklist, guildID)
}

// leaveIfBlacklisted reports whether the guild was left.
func (b *Bot) leaveIfBlacklisted(s *discordgo.Session, guildID, name string) bool {
	if !b.isGuildBlacklisted(guildID) {
		return false
	}
	b.logger.Info().Str("guild", guildID).Str("name", name).Msg("Leaving blacklisted guild")
	if err := s.GuildLeave(guildID); err != nil {
		b.logger.Error().Err(err).Str("guild", guildID).Msg("Failed to leave guild")
	}
	return true
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.music.SetStyle(view.Style{
		Color:        b.cfg.EmbedColor,
		IdleImageURL: b.cfg.IdleImageURL,
		IconURL:      r.User.AvatarURL(""),
	})

	// Commands are synced from onGuildCreate, which fires for every guild
	// after Ready.
	for _, g := range r.Guilds {
		b.leaveIfBlacklisted(s, g.ID, g.Name)
	}
	if !b.cfg.InitSlashCommands {
		b.logger.Info().Msg("Registering slash commands skipped")
	}

	b.startJob(lavalinkJob, func(ctx context.Context) error {
		return b.lavalink.AddNode(ctx, audio.NodeConfig{
			Name:     b.cfg.LavalinkIdentifier,
			Address:  b.cfg.LavalinkAddress(),
			Password: b.cfg.LavalinkPassword,
			Secure:   b.cfg.LavalinkSecure,
		})
	})
	b.startJob(restoreJob, func(ctx context.Context) error {
		_, err := b.music.Restore(ctx)
		return err
	})

	b.logger.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("Discord bot is running")
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if b.leaveIfBlacklisted(s, g.ID, g.Name) {
		return
	}
	b.syncGuild(g.ID)
}

// syncGuild pushes changed slash commands to one guild in the background.
func (b *Bot) syncGuild(guildID string) {
	if !b.cfg.InitSlashCommands {
		return
	}
	b.startJob(syncJobPrefix+guildID, func(context.Context) error {
		n, err := b.sync.SyncCommands(guildID)
		if err != nil {
			return fmt.Errorf("guild %s: %w", guildID, err)
		}
		if n > 0 {
			b.logger.Info().Str("guild", guildID).Int("pushed", n).Msg("Slash commands updated")
		}
		return nil
	})
}

// startJob runs fn once. A job that is still running from a previous gateway
// session is left alone.
func (b *Bot) startJob(name string, fn jobmgr.Func) {
	err := b.jobs.Go(name, fn)
	switch {
	case err == nil:
	case errors.Is(err, jobmgr.ErrRunning):
		b.logger.Debug().Str("job", name).Msg("Job already running")
	default:
		b.logger.Warn().Err(err).Str("job", name).Msg("Failed to start job")
	}
}

func displayName(m *discordgo.Member, u *discordgo.User) string {
	if m != nil && m.Nick != "" {
		return m.Nick
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// onMessageCreate forwards guild messages to the music request channel
// handler, which ignores every other channel.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	b.music.Submit(ctx, music.Actor{
		GuildID:     m.GuildID,
		ChannelID:   m.ChannelID,
		UserID:      m.Author.ID,
		DisplayName: displayName(m.Member, m.Author),
	}, m.ID, m.Content)
}

func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	self := s.State != nil && s.State.User != nil && vs.UserID == s.State.User.ID
	if self {
		b.lavalink.OnVoiceStateUpdate(ctx, vs.GuildID, vs.ChannelID, vs.SessionID)
	}

	before := ""
	if vs.BeforeUpdate != nil {
		before = vs.BeforeUpdate.ChannelID
	}
	b.music.OnVoiceStateUpdate(ctx, music.VoiceStateChange{
		GuildID: vs.GuildID,
		UserID:  vs.UserID,
		Self:    self,
		Before:  before,
		After:   vs.ChannelID,
	})
}

func (b *Bot) onVoiceServerUpdate(_ *discordgo.Session, e *discordgo.VoiceServerUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	b.lavalink.OnVoiceServerUpdate(ctx, e.GuildID, e.Token, e.Endpoint)
}

func (b *Bot) onChannelDelete(_ *discordgo.Session, c *discordgo.ChannelDelete) {
	if c.GuildID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	b.music.OnChannelDelete(ctx, c.GuildID, c.ID)
}

// Forum exposes the forum helpers the webhook server posts through.
func (b *Bot) Forum() *Forum {
	return NewForum(b.dg)
}
