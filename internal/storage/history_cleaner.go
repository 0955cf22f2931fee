package storage

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const commandHistoryRetention = 30 * 24 * time.Hour

// RunHistoryCleaner prunes old command history every hour until ctx is done.
func RunHistoryCleaner(ctx context.Context, store *Storage) error {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := store.PruneCommandHistory(ctx, time.Now().Add(-commandHistoryRetention))
			if err != nil {
				log.Error().Err(err).Msg("Error pruning command history")
				continue
			}
			if n > 0 {
				log.Debug().Int64("rows", n).Msg("Pruned command history")
			}
		}
	}
}
