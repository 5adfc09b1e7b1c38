package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StartLinkMaintenance schedules a background job that sweeps songs with
// lapsed direct URLs and refreshes them in a bounded batch, so playback
// clients rarely pay the provider round trip on the hot path.
func StartLinkMaintenance(cache *LinkCache, store LinkStore, spec string, limit, concurrency int, log *zap.SugaredLogger) (*cron.Cron, error) {
	refresher := NewRefresher(cache, log)

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		records, err := store.ListExpiredLinks(ctx, limit)
		if err != nil {
			log.Errorf("link maintenance: listing expired links failed: %v", err)
			return
		}
		if len(records) == 0 {
			return
		}

		res := refresher.RefreshBatch(ctx, records, concurrency)
		log.Infof("link maintenance: total=%d success=%d failed=%d", res.Total, res.Succeeded, res.Failed)
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	return c, nil
}
