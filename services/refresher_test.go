package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// failingResolver fails for a chosen set of file ids and succeeds otherwise.
type failingResolver struct {
	fail map[string]bool
}

func (f *failingResolver) ResolveDirectURL(_ context.Context, fileID string) (string, error) {
	if f.fail[fileID] {
		return "", errors.New("resolve failed")
	}
	return "https://files.example.org/" + fileID, nil
}

func batchRecords(ids ...string) []LinkRecord {
	recs := make([]LinkRecord, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, LinkRecord{SongID: id, FileID: "file-" + id})
	}
	return recs
}

func TestRefreshBatchPartialFailure(t *testing.T) {
	store := &fakeStore{records: map[string]LinkRecord{}}
	resolver := &failingResolver{fail: map[string]bool{"file-s2": true, "file-s4": true}}
	cache := newTestCache(store, resolver)
	refresher := NewRefresher(cache, zap.NewNop().Sugar())

	res := refresher.RefreshBatch(context.Background(), batchRecords("s1", "s2", "s3", "s4", "s5"), 3)

	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 3, res.Succeeded)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, res.Total, res.Succeeded+res.Failed)
	require.Len(t, res.Outcomes, 5)

	byID := map[string]Outcome{}
	for _, o := range res.Outcomes {
		byID[o.SongID] = o
	}
	assert.Equal(t, StatusFailed, byID["s2"].Status)
	assert.Equal(t, StatusFailed, byID["s4"].Status)
	assert.NotEmpty(t, byID["s2"].Error)
	for _, id := range []string{"s1", "s3", "s5"} {
		assert.Equal(t, StatusSuccess, byID[id].Status)
		assert.Empty(t, byID[id].Error)
	}
}

func TestRefreshBatchAllFail(t *testing.T) {
	store := &fakeStore{records: map[string]LinkRecord{}}
	resolver := &failingResolver{fail: map[string]bool{"file-s1": true, "file-s2": true}}
	cache := newTestCache(store, resolver)
	refresher := NewRefresher(cache, zap.NewNop().Sugar())

	res := refresher.RefreshBatch(context.Background(), batchRecords("s1", "s2"), 2)

	assert.Equal(t, 2, res.Total)
	assert.Zero(t, res.Succeeded)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, res.Total, res.Succeeded+res.Failed)
}

func TestRefreshBatchEmpty(t *testing.T) {
	store := &fakeStore{records: map[string]LinkRecord{}}
	cache := newTestCache(store, &fakeResolver{url: "https://files.example.org/x"})
	refresher := NewRefresher(cache, zap.NewNop().Sugar())

	res := refresher.RefreshBatch(context.Background(), nil, 3)

	assert.Zero(t, res.Total)
	assert.Zero(t, res.Succeeded)
	assert.Zero(t, res.Failed)
	assert.Empty(t, res.Outcomes)
}

// gaugeResolver records the peak number of concurrent resolutions.
type gaugeResolver struct {
	inFlight int32
	peak     int32
}

func (g *gaugeResolver) ResolveDirectURL(_ context.Context, fileID string) (string, error) {
	cur := atomic.AddInt32(&g.inFlight, 1)
	for {
		peak := atomic.LoadInt32(&g.peak)
		if cur <= peak || atomic.CompareAndSwapInt32(&g.peak, peak, cur) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(&g.inFlight, -1)
	return "https://files.example.org/" + fileID, nil
}

func TestRefreshBatchHonorsConcurrencyCeiling(t *testing.T) {
	store := &fakeStore{records: map[string]LinkRecord{}}
	resolver := &gaugeResolver{}
	cache := newTestCache(store, resolver)
	refresher := NewRefresher(cache, zap.NewNop().Sugar())

	res := refresher.RefreshBatch(context.Background(), batchRecords("s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8"), 2)

	assert.Equal(t, 8, res.Total)
	assert.Equal(t, 8, res.Succeeded)
	assert.LessOrEqual(t, atomic.LoadInt32(&resolver.peak), int32(2))
}

func TestRefreshBatchNormalizesConcurrency(t *testing.T) {
	store := &fakeStore{records: map[string]LinkRecord{}}
	resolver := &gaugeResolver{}
	cache := newTestCache(store, resolver)
	refresher := NewRefresher(cache, zap.NewNop().Sugar())

	res := refresher.RefreshBatch(context.Background(), batchRecords("s1", "s2", "s3"), 0)

	assert.Equal(t, 3, res.Succeeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&resolver.peak))
}
