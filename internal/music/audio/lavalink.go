package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bot2296/pkg/retrylimit"

	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/rs/zerolog/log"
)

// VoiceConnector moves the bot in and out of voice channels over the gateway.
type VoiceConnector interface {
	JoinVoice(guildID, channelID string) error
	LeaveVoice(guildID string) error
}

// NodeConfig addresses a Lavalink node.
type NodeConfig struct {
	Name     string
	Address  string
	Password string
	Secure   bool
}

// Lavalink is a Client backed by a Lavalink v4 node through disgolink.
type Lavalink struct {
	client disgolink.Client
	voice  VoiceConnector

	mu       sync.RWMutex
	listener Listener
	channels map[snowflake.ID]string // requested voice channel until the gateway confirms
}

// NewLavalink creates the node client for the bot user botID.
func NewLavalink(botID string, voice VoiceConnector) (*Lavalink, error) {
	id, err := snowflake.Parse(botID)
	if err != nil {
		return nil, fmt.Errorf("invalid bot user id %q: %w", botID, err)
	}

	l := &Lavalink{
		voice:    voice,
		channels: make(map[snowflake.ID]string),
	}
	l.client = disgolink.New(id,
		disgolink.WithListenerFunc(l.onTrackStart),
		disgolink.WithListenerFunc(l.onTrackEnd),
		disgolink.WithListenerFunc(l.onTrackException),
		disgolink.WithListenerFunc(l.onTrackStuck),
	)
	return l, nil
}

// SetListener installs the receiver of playback events.
func (l *Lavalink) SetListener(listener Listener) {
	l.mu.Lock()
	l.listener = listener
	l.mu.Unlock()
}

// AddNode connects to a node, retrying with backoff until ctx expires.
func (l *Lavalink) AddNode(ctx context.Context, cfg NodeConfig) error {
	policy := retrylimit.DefaultPolicy("lavalink-connect")
	policy.Attempts = 10
	policy.Delay = 2 * time.Second
	policy.MaxDelay = 30 * time.Second
	return retrylimit.Do(ctx, nil, policy, func(ctx context.Context) error {
		node, err := l.client.AddNode(ctx, disgolink.NodeConfig{
			Name:     cfg.Name,
			Address:  cfg.Address,
			Password: cfg.Password,
			Secure:   cfg.Secure,
		})
		if err != nil {
			return err
		}
		version, err := node.Version(ctx)
		if err != nil {
			log.Warn().Err(err).Str("node", cfg.Name).Msg("Connected to Lavalink but could not read its version")
			return nil
		}
		log.Info().Str("node", cfg.Name).Str("version", version).Msg("Connected to Lavalink node")
		return nil
	})
}

// Close disconnects from every node.
func (l *Lavalink) Close() {
	l.client.Close()
}

func (l *Lavalink) Connect(ctx context.Context, guildID, channelID string) (Player, error) {
	gid, err := snowflake.Parse(guildID)
	if err != nil {
		return nil, fmt.Errorf("invalid guild id %q: %w", guildID, err)
	}
	if err := l.voice.JoinVoice(guildID, channelID); err != nil {
		return nil, fmt.Errorf("failed to join voice channel %s: %w", channelID, err)
	}

	l.mu.Lock()
	l.channels[gid] = channelID
	l.mu.Unlock()

	return &lavalinkPlayer{owner: l, player: l.client.Player(gid)}, nil
}

func (l *Lavalink) Player(guildID string) (Player, bool) {
	gid, err := snowflake.Parse(guildID)
	if err != nil {
		return nil, false
	}
	p := l.client.ExistingPlayer(gid)
	if p == nil {
		return nil, false
	}
	return &lavalinkPlayer{owner: l, player: p}, true
}

func (l *Lavalink) Disconnect(ctx context.Context, guildID string) error {
	gid, err := snowflake.Parse(guildID)
	if err != nil {
		return fmt.Errorf("invalid guild id %q: %w", guildID, err)
	}

	l.mu.Lock()
	delete(l.channels, gid)
	l.mu.Unlock()

	if p := l.client.ExistingPlayer(gid); p != nil {
		if err := p.Destroy(ctx); err != nil {
			log.Warn().Err(err).Str("guild", guildID).Msg("Failed to destroy player")
		}
		l.client.RemovePlayer(gid)
	}
	return l.voice.LeaveVoice(guildID)
}

func (l *Lavalink) LoadTracks(ctx context.Context, query string) (LoadResult, error) {
	node := l.client.BestNode()
	if node == nil {
		return LoadResult{}, fmt.Errorf("no lavalink node available")
	}

	res, err := node.LoadTracks(ctx, query)
	if err != nil {
		return LoadResult{}, fmt.Errorf("failed to load %q: %w", query, err)
	}

	switch data := res.Data.(type) {
	case lavalink.Track:
		return LoadResult{Tracks: []Track{fromLavalink(data)}}, nil
	case lavalink.Playlist:
		return LoadResult{Tracks: fromLavalinkAll(data.Tracks), Playlist: data.Info.Name}, nil
	case lavalink.Search:
		return LoadResult{Tracks: fromLavalinkAll(data)}, nil
	case lavalink.Exception:
		return LoadResult{}, fmt.Errorf("node failed to load %q: %s", query, data.Message)
	}
	return LoadResult{}, nil
}

// OnVoiceStateUpdate forwards the bot's own voice state to the node.
func (l *Lavalink) OnVoiceStateUpdate(ctx context.Context, guildID, channelID, sessionID string) {
	gid, err := snowflake.Parse(guildID)
	if err != nil {
		return
	}

	var cid *snowflake.ID
	if channelID != "" {
		id, err := snowflake.Parse(channelID)
		if err == nil {
			cid = &id
		}
	}

	l.mu.Lock()
	if channelID == "" {
		delete(l.channels, gid)
	} else {
		l.channels[gid] = channelID
	}
	l.mu.Unlock()

	l.client.OnVoiceStateUpdate(ctx, gid, cid, sessionID)
}

// OnVoiceServerUpdate forwards voice server credentials to the node.
func (l *Lavalink) OnVoiceServerUpdate(ctx context.Context, guildID, token, endpoint string) {
	gid, err := snowflake.Parse(guildID)
	if err != nil {
		return
	}
	l.client.OnVoiceServerUpdate(ctx, gid, token, endpoint)
}

func (l *Lavalink) currentListener() Listener {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.listener
}

func (l *Lavalink) onTrackStart(p disgolink.Player, e lavalink.TrackStartEvent) {
	log.Debug().Str("guild", p.GuildID().String()).Str("track", e.Track.Info.Title).Msg("Track started")
	if listener := l.currentListener(); listener != nil {
		listener.OnTrackStart(p.GuildID().String())
	}
}

func (l *Lavalink) onTrackEnd(p disgolink.Player, e lavalink.TrackEndEvent) {
	log.Debug().Str("guild", p.GuildID().String()).Str("track", e.Track.Info.Title).
		Str("reason", string(e.Reason)).Msg("Track ended")
	if listener := l.currentListener(); listener != nil {
		listener.OnTrackEnd(p.GuildID().String(), EndReason(e.Reason))
	}
}

func (l *Lavalink) onTrackException(p disgolink.Player, e lavalink.TrackExceptionEvent) {
	log.Warn().Str("guild", p.GuildID().String()).Str("track", e.Track.Info.Title).
		Str("error", e.Exception.Message).Msg("Track exception")
}

func (l *Lavalink) onTrackStuck(p disgolink.Player, e lavalink.TrackStuckEvent) {
	log.Warn().Str("guild", p.GuildID().String()).Str("track", e.Track.Info.Title).Msg("Track stuck")
}

type lavalinkPlayer struct {
	owner  *Lavalink
	player disgolink.Player
}

func (p *lavalinkPlayer) GuildID() string {
	return p.player.GuildID().String()
}

func (p *lavalinkPlayer) ChannelID() string {
	if id := p.player.ChannelID(); id != nil {
		return id.String()
	}
	p.owner.mu.RLock()
	defer p.owner.mu.RUnlock()
	return p.owner.channels[p.player.GuildID()]
}

func (p *lavalinkPlayer) Current() *Track {
	lt := p.player.Track()
	if lt == nil {
		return nil
	}
	t := fromLavalink(*lt)
	return &t
}

func (p *lavalinkPlayer) Play(ctx context.Context, t Track, start, end time.Duration) error {
	opts := []lavalink.PlayerUpdateOpt{
		lavalink.WithTrack(lavalink.Track{Encoded: t.Encoded}),
		lavalink.WithPosition(toDuration(start)),
	}
	if end > 0 {
		opts = append(opts, lavalink.WithEndTime(toDuration(end)))
	}
	return p.player.Update(ctx, opts...)
}

func (p *lavalinkPlayer) Stop(ctx context.Context) error {
	return p.player.Update(ctx, lavalink.WithNullTrack())
}

func (p *lavalinkPlayer) SetPaused(ctx context.Context, paused bool) error {
	return p.player.Update(ctx, lavalink.WithPaused(paused))
}

func (p *lavalinkPlayer) Paused() bool {
	return p.player.Paused()
}

func (p *lavalinkPlayer) SetVolume(ctx context.Context, volume int) error {
	return p.player.Update(ctx, lavalink.WithVolume(volume))
}

func (p *lavalinkPlayer) Volume() int {
	return p.player.Volume()
}

func toDuration(d time.Duration) lavalink.Duration {
	return lavalink.Duration(d.Milliseconds())
}

func fromLavalink(lt lavalink.Track) Track {
	t := Track{
		Encoded:    lt.Encoded,
		Identifier: lt.Info.Identifier,
		Title:      lt.Info.Title,
		Author:     lt.Info.Author,
		SourceName: lt.Info.SourceName,
		Length:     time.Duration(lt.Info.Length) * time.Millisecond,
		Seekable:   !lt.Info.IsStream,
	}
	if lt.Info.URI != nil {
		t.URI = *lt.Info.URI
	}
	if lt.Info.ArtworkURL != nil {
		t.ArtworkURL = *lt.Info.ArtworkURL
	}
	return t
}

func fromLavalinkAll(in []lavalink.Track) []Track {
	out := make([]Track, len(in))
	for i, lt := range in {
		out[i] = fromLavalink(lt)
	}
	return out
}
