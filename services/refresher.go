package services

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Outcome statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Outcome reports the result of refreshing a single song's link.
type Outcome struct {
	SongID string `json:"song_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// BatchResult aggregates per-item outcomes; Total always equals
// Succeeded+Failed and the input size, regardless of how many items fail.
type BatchResult struct {
	Total     int       `json:"total"`
	Succeeded int       `json:"success"`
	Failed    int       `json:"failed"`
	Outcomes  []Outcome `json:"results"`
}

// Refresher drives forced link refreshes across many records with a
// concurrency ceiling, converting every per-item error into a failed outcome
// instead of aborting the batch.
type Refresher struct {
	cache *LinkCache
	pace  *rate.Limiter
	log   *zap.SugaredLogger
}

// NewRefresher builds a refresher. Outbound provider calls are paced to stay
// inside the Bot API request budget even when the concurrency limit is high.
func NewRefresher(cache *LinkCache, log *zap.SugaredLogger) *Refresher {
	return &Refresher{
		cache: cache,
		pace:  rate.NewLimiter(rate.Limit(20), 5),
		log:   log,
	}
}

// RefreshBatch refreshes every record with at most concurrency calls in
// flight. A new item only starts once a slot frees up, and completion order
// of the returned outcomes is unspecified.
func (r *Refresher) RefreshBatch(ctx context.Context, records []LinkRecord, concurrency int) BatchResult {
	if concurrency < 1 {
		concurrency = 1
	}

	res := BatchResult{Total: len(records), Outcomes: make([]Outcome, 0, len(records))}
	if len(records) == 0 {
		return res
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, rec := range records {
		rec := rec
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := Outcome{SongID: rec.SongID, Status: StatusSuccess}
			if err := r.refreshOne(ctx, rec); err != nil {
				outcome.Status = StatusFailed
				outcome.Error = err.Error()
			}

			mu.Lock()
			if outcome.Status == StatusSuccess {
				res.Succeeded++
			} else {
				res.Failed++
			}
			res.Outcomes = append(res.Outcomes, outcome)
			mu.Unlock()
		}()
	}

	wg.Wait()
	return res
}

func (r *Refresher) refreshOne(ctx context.Context, rec LinkRecord) error {
	if err := r.pace.Wait(ctx); err != nil {
		return err
	}
	_, err := r.cache.ForceRefresh(ctx, rec)
	if err != nil && r.log != nil {
		r.log.Debugf("batch refresh item failed song=%s: %v", rec.SongID, err)
	}
	return err
}
