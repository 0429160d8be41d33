// internal/service/ingest/sweeper.go

package ingest

import (
	"context"
	"log"
	"time"
)

// StaleDeleter removes cached places past a retention window
type StaleDeleter interface {
	DeleteStalePlaces(ctx context.Context, olderThanDays int) (int64, error)
}

// RunRetentionSweep periodically deletes places whose cache entry is older
// than the retention window. Blocks until the context is cancelled.
func RunRetentionSweep(ctx context.Context, store StaleDeleter, interval time.Duration, retentionDays int) {
	if interval <= 0 || retentionDays <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := store.DeleteStalePlaces(ctx, retentionDays)
			if err != nil {
				log.Printf("Error sweeping stale places: %v", err)
				continue
			}
			if deleted > 0 {
				log.Printf("Swept %d stale places", deleted)
			}
		}
	}
}
