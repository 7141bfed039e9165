package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

const statsQuery = `SELECT COUNT(*), COALESCE(SUM(OCTET_LENGTH(data)), 0) FROM blobs`

// StartStatsReporter logs the number of stored blobs and their total size
// every interval until ctx is done.
func StartStatsReporter(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				var count, size int64
				if err := db.QueryRowContext(ctx, statsQuery).Scan(&count, &size); err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Error("failed to collect blob stats", zap.Error(err))
					continue
				}
				log.Info("blob store stats", zap.Int64("blobs", count), zap.Int64("bytes", size))
			}
		}
	}()
}
