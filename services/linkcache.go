package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const (
	// FreshnessSafetyMargin is the minimum remaining validity a cached URL must
	// have before it is handed out, so a client never receives a link that
	// expires mid-playback.
	FreshnessSafetyMargin = 5 * time.Minute

	// ProviderValidityWindow is how long a freshly minted direct URL is trusted.
	// Telegram grants roughly an hour; 55 minutes leaves room for clock skew
	// and request latency.
	ProviderValidityWindow = 55 * time.Minute
)

// Resolution sources.
const (
	SourceCache     = "cache"
	SourceRefreshed = "refreshed"
)

var (
	// ErrSongNotFound indicates the song id does not reference a known record.
	ErrSongNotFound = errors.New("song not found")
	// ErrMissingFileID indicates the song has no audio file registered yet.
	ErrMissingFileID = errors.New("song has no telegram audio file id")
)

// ResolutionError wraps a provider failure while minting a new direct URL.
type ResolutionError struct {
	SongID string
	Err    error
}

func (e *ResolutionError) Error() string {
	return "link resolution failed for song " + e.SongID + ": " + e.Err.Error()
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// LinkRecord is the cache's view of a song's streaming link state.
type LinkRecord struct {
	SongID    string
	FileID    string
	DirectURL *string
	ExpiresAt *time.Time
}

// LinkStore is the persistence boundary for link records.
type LinkStore interface {
	GetLink(ctx context.Context, songID string) (LinkRecord, error)
	SaveLink(ctx context.Context, songID, url string, expiresAt time.Time) error
	ListExpiredLinks(ctx context.Context, limit int) ([]LinkRecord, error)
}

// FileResolver exchanges a stable file id for a time-limited direct URL.
type FileResolver interface {
	ResolveDirectURL(ctx context.Context, fileID string) (string, error)
}

// ResolvedLink is what callers receive from a resolution.
type ResolvedLink struct {
	URL       string
	ExpiresAt time.Time
	Source    string
}

// LinkCache decides whether a song's cached direct URL is still safe to hand
// out and otherwise obtains and persists a fresh one. Concurrent resolves for
// the same song may redundantly hit the provider; the call is idempotent and
// last write wins, so no per-song lock is taken.
type LinkCache struct {
	store    LinkStore
	resolver FileResolver
	log      *zap.SugaredLogger
	now      func() time.Time
}

// NewLinkCache wires the cache to its store and provider.
func NewLinkCache(store LinkStore, resolver FileResolver, log *zap.SugaredLogger) *LinkCache {
	return &LinkCache{store: store, resolver: resolver, log: log, now: time.Now}
}

// Resolve returns a playable URL for songID, from cache when the stored link
// still has more than the safety margin of validity left, refreshed otherwise.
func (c *LinkCache) Resolve(ctx context.Context, songID string) (*ResolvedLink, error) {
	rec, err := c.store.GetLink(ctx, songID)
	if err != nil {
		return nil, err
	}

	if rec.DirectURL != nil && rec.ExpiresAt != nil && rec.ExpiresAt.After(c.now().Add(FreshnessSafetyMargin)) {
		return &ResolvedLink{URL: *rec.DirectURL, ExpiresAt: *rec.ExpiresAt, Source: SourceCache}, nil
	}

	return c.refresh(ctx, rec)
}

// ForceRefresh re-resolves the record unconditionally, bypassing the freshness
// check. Used by the batch refresher, whose callers already know the link is stale.
func (c *LinkCache) ForceRefresh(ctx context.Context, rec LinkRecord) (*ResolvedLink, error) {
	return c.refresh(ctx, rec)
}

func (c *LinkCache) refresh(ctx context.Context, rec LinkRecord) (*ResolvedLink, error) {
	if rec.FileID == "" {
		return nil, ErrMissingFileID
	}

	url, err := c.resolver.ResolveDirectURL(ctx, rec.FileID)
	if err != nil {
		return nil, &ResolutionError{SongID: rec.SongID, Err: err}
	}

	expiresAt := c.now().Add(ProviderValidityWindow)
	if err := c.store.SaveLink(ctx, rec.SongID, url, expiresAt); err != nil {
		// The URL is valid even though caching it failed; hand it out anyway.
		// A long run of these means every request pays full provider latency.
		if c.log != nil {
			c.log.Warnf("link persist failed song=%s: %v", rec.SongID, err)
		}
	}

	return &ResolvedLink{URL: url, ExpiresAt: expiresAt, Source: SourceRefreshed}, nil
}
