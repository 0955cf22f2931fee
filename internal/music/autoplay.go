package music

import (
	"context"
	"fmt"
	"math/rand/v2"

	"bot2296/internal/music/audio"
)

// RecommendationQuery is the node query that yields tracks related to seed.
func RecommendationQuery(seed audio.Track) string {
	if seed.SourceName == "spotify" {
		return "sprec:seed_tracks=" + seed.Identifier
	}
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s&list=RD%s", seed.Identifier, seed.Identifier)
}

// backfill appends recommendations for seed to the queue. It makes a single
// lookup and reports whether anything was added; failures are only logged.
func (m *Manager) backfill(ctx context.Context, guildID string, gs *guildState, seed audio.Track) bool {
	logger := m.logger.With().Str("guild", guildID).Str("seed", seed.Identifier).Logger()

	res, err := m.audio.LoadTracks(ctx, RecommendationQuery(seed))
	if err != nil {
		logger.Warn().Err(err).Msg("Autoplay lookup failed")
		return false
	}

	tracks := make([]audio.Track, 0, len(res.Tracks))
	for _, t := range res.Tracks {
		if t.Identifier == seed.Identifier {
			continue
		}
		tracks = append(tracks, t.WithRequester(nil))
	}
	if len(tracks) == 0 {
		logger.Debug().Msg("Autoplay found nothing to add")
		return false
	}
	if m.opts.AutoplayShuffle {
		rand.Shuffle(len(tracks), func(i, j int) { tracks[i], tracks[j] = tracks[j], tracks[i] })
	}

	gs.queue.Extend(tracks)
	logger.Debug().Int("tracks", len(tracks)).Msg("Autoplay extended the queue")
	return true
}
