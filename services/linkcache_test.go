package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	records   map[string]LinkRecord
	getErr    error
	saveErr   error
	saveCalls int
	savedURL  string
	savedExp  time.Time
}

func (f *fakeStore) GetLink(_ context.Context, songID string) (LinkRecord, error) {
	if f.getErr != nil {
		return LinkRecord{}, f.getErr
	}
	rec, ok := f.records[songID]
	if !ok {
		return LinkRecord{}, ErrSongNotFound
	}
	return rec, nil
}

func (f *fakeStore) SaveLink(_ context.Context, songID, url string, expiresAt time.Time) error {
	f.saveCalls++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedURL = url
	f.savedExp = expiresAt
	if rec, ok := f.records[songID]; ok {
		rec.DirectURL = &url
		rec.ExpiresAt = &expiresAt
		f.records[songID] = rec
	}
	return nil
}

func (f *fakeStore) ListExpiredLinks(_ context.Context, limit int) ([]LinkRecord, error) {
	out := []LinkRecord{}
	for _, rec := range f.records {
		if len(out) >= limit {
			break
		}
		out = append(out, rec)
	}
	return out, nil
}

type fakeResolver struct {
	url   string
	err   error
	calls int
}

func (f *fakeResolver) ResolveDirectURL(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func testBase() time.Time {
	return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func newTestCache(store LinkStore, resolver FileResolver) *LinkCache {
	c := NewLinkCache(store, resolver, zap.NewNop().Sugar())
	c.now = testBase
	return c
}

func recordWithExpiry(songID string, expiresIn time.Duration) LinkRecord {
	url := "https://files.example.org/old/" + songID
	exp := testBase().Add(expiresIn)
	return LinkRecord{SongID: songID, FileID: "file-" + songID, DirectURL: &url, ExpiresAt: &exp}
}

func TestResolveServesFreshLinkFromCache(t *testing.T) {
	store := &fakeStore{records: map[string]LinkRecord{
		"s1": recordWithExpiry("s1", 10*time.Minute),
	}}
	resolver := &fakeResolver{url: "https://files.example.org/new/s1"}
	cache := newTestCache(store, resolver)

	link, err := cache.Resolve(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, link.Source)
	assert.Equal(t, "https://files.example.org/old/s1", link.URL)
	assert.Equal(t, testBase().Add(10*time.Minute), link.ExpiresAt)

	again, err := cache.Resolve(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, link.URL, again.URL, "repeated hits return the identical url")
	assert.Zero(t, resolver.calls, "fresh cache hit must not touch the provider")
	assert.Zero(t, store.saveCalls)
}

func TestResolveRefreshesExpiredLink(t *testing.T) {
	store := &fakeStore{records: map[string]LinkRecord{
		"s1": recordWithExpiry("s1", -time.Minute),
	}}
	resolver := &fakeResolver{url: "https://files.example.org/new/s1"}
	cache := newTestCache(store, resolver)

	link, err := cache.Resolve(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, SourceRefreshed, link.Source)
	assert.Equal(t, "https://files.example.org/new/s1", link.URL)
	assert.Equal(t, testBase().Add(ProviderValidityWindow), link.ExpiresAt)
	assert.Equal(t, 1, resolver.calls)
	assert.Equal(t, "https://files.example.org/new/s1", store.savedURL)
	assert.Equal(t, testBase().Add(ProviderValidityWindow), store.savedExp)
}

func TestResolveRefreshesInsideSafetyMargin(t *testing.T) {
	// Still technically valid, but under the safety margin: must refresh.
	store := &fakeStore{records: map[string]LinkRecord{
		"s1": recordWithExpiry("s1", 3*time.Minute),
	}}
	resolver := &fakeResolver{url: "https://files.example.org/new/s1"}
	cache := newTestCache(store, resolver)

	link, err := cache.Resolve(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, SourceRefreshed, link.Source)
	assert.Equal(t, 1, resolver.calls)
}

func TestResolveRefreshesAtExactMarginBoundary(t *testing.T) {
	// expires_at == now + margin does not satisfy the strict After check.
	store := &fakeStore{records: map[string]LinkRecord{
		"s1": recordWithExpiry("s1", FreshnessSafetyMargin),
	}}
	resolver := &fakeResolver{url: "https://files.example.org/new/s1"}
	cache := newTestCache(store, resolver)

	link, err := cache.Resolve(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, SourceRefreshed, link.Source)
}

func TestResolveRefreshesWhenNeverResolved(t *testing.T) {
	// A record with no url and no expiry yet must mint and persist one.
	store := &fakeStore{records: map[string]LinkRecord{
		"s1": {SongID: "s1", FileID: "f1"},
	}}
	resolver := &fakeResolver{url: "https://cdn.example/f1-abc"}
	cache := newTestCache(store, resolver)

	link, err := cache.Resolve(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, SourceRefreshed, link.Source)
	assert.Equal(t, "https://cdn.example/f1-abc", link.URL)
	assert.Equal(t, "https://cdn.example/f1-abc", store.savedURL)
	assert.Equal(t, testBase().Add(ProviderValidityWindow), store.savedExp)
}

func TestResolveSwallowsPersistFailure(t *testing.T) {
	store := &fakeStore{
		records: map[string]LinkRecord{"s1": recordWithExpiry("s1", -time.Minute)},
		saveErr: errors.New("connection reset"),
	}
	resolver := &fakeResolver{url: "https://files.example.org/new/s1"}
	cache := newTestCache(store, resolver)

	link, err := cache.Resolve(context.Background(), "s1")
	require.NoError(t, err, "a failed persist must not fail the resolution")
	assert.Equal(t, "https://files.example.org/new/s1", link.URL)
	assert.Equal(t, 1, store.saveCalls)
}

func TestResolveMissingFileID(t *testing.T) {
	store := &fakeStore{records: map[string]LinkRecord{
		"s1": {SongID: "s1"},
	}}
	resolver := &fakeResolver{}
	cache := newTestCache(store, resolver)

	_, err := cache.Resolve(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrMissingFileID)
	assert.Zero(t, resolver.calls)
}

func TestResolveProviderFailure(t *testing.T) {
	providerErr := errors.New("bad gateway")
	store := &fakeStore{records: map[string]LinkRecord{
		"s1": recordWithExpiry("s1", -time.Minute),
	}}
	resolver := &fakeResolver{err: providerErr}
	cache := newTestCache(store, resolver)

	_, err := cache.Resolve(context.Background(), "s1")
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "s1", resErr.SongID)
	assert.ErrorIs(t, err, providerErr)
	assert.Zero(t, store.saveCalls)
}

func TestResolveUnknownSong(t *testing.T) {
	store := &fakeStore{records: map[string]LinkRecord{}}
	cache := newTestCache(store, &fakeResolver{})

	_, err := cache.Resolve(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSongNotFound)
}

func TestForceRefreshIgnoresFreshness(t *testing.T) {
	rec := recordWithExpiry("s1", 30*time.Minute)
	store := &fakeStore{records: map[string]LinkRecord{"s1": rec}}
	resolver := &fakeResolver{url: "https://files.example.org/new/s1"}
	cache := newTestCache(store, resolver)

	link, err := cache.ForceRefresh(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, SourceRefreshed, link.Source)
	assert.Equal(t, 1, resolver.calls, "forced refresh always hits the provider")
	assert.Equal(t, testBase().Add(ProviderValidityWindow), link.ExpiresAt)
}
