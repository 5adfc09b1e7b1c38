package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/remusic/remusic-admin/middleware"
	"github.com/remusic/remusic-admin/services"
)

const testStreamSecret = "test-stream-secret"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	// Config latches on first read; seed the required secrets before any
	// handler touches it.
	os.Setenv("JWT_SECRET", "test-jwt-secret")
	os.Setenv("STREAM_SHARED_SECRET", testStreamSecret)
	os.Exit(m.Run())
}

type memLinkStore struct {
	records map[string]services.LinkRecord
	expired []services.LinkRecord
	saveErr error
}

func (m *memLinkStore) GetLink(_ context.Context, songID string) (services.LinkRecord, error) {
	rec, ok := m.records[songID]
	if !ok {
		return services.LinkRecord{}, services.ErrSongNotFound
	}
	return rec, nil
}

func (m *memLinkStore) SaveLink(_ context.Context, songID, url string, expiresAt time.Time) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if rec, ok := m.records[songID]; ok {
		rec.DirectURL = &url
		rec.ExpiresAt = &expiresAt
		m.records[songID] = rec
	}
	return nil
}

func (m *memLinkStore) ListExpiredLinks(_ context.Context, limit int) ([]services.LinkRecord, error) {
	if len(m.expired) > limit {
		return m.expired[:limit], nil
	}
	return m.expired, nil
}

type memResolver struct {
	fail map[string]bool
}

func (m *memResolver) ResolveDirectURL(_ context.Context, fileID string) (string, error) {
	if m.fail[fileID] {
		return "", errors.New("file reference expired")
	}
	return "https://files.example.org/minted/" + fileID, nil
}

func newStreamRouter(store services.LinkStore, resolver services.FileResolver) *gin.Engine {
	cache := services.NewLinkCache(store, resolver, zap.NewNop().Sugar())
	sc := NewStreamController(nil, cache, store)

	r := gin.New()
	r.GET("/stream/resolve", middleware.StreamAuth(), sc.ResolveLink)
	r.POST("/stream/refresh", sc.RefreshLinks)
	return r
}

func streamGet(r *gin.Engine, path string, secret string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if secret != "" {
		req.Header.Set(middleware.StreamSecretHeader, secret)
	}
	r.ServeHTTP(w, req)
	return w
}

func freshRecord(songID string, expiresIn time.Duration) services.LinkRecord {
	url := "https://files.example.org/cached/" + songID
	exp := time.Now().Add(expiresIn)
	return services.LinkRecord{SongID: songID, FileID: "file-" + songID, DirectURL: &url, ExpiresAt: &exp}
}

func TestResolveLinkServedFromCache(t *testing.T) {
	store := &memLinkStore{records: map[string]services.LinkRecord{
		"s1": freshRecord("s1", 30 * time.Minute),
	}}
	r := newStreamRouter(store, &memResolver{})

	w := streamGet(r, "/stream/resolve?song_id=s1", testStreamSecret)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success   bool   `json:"success"`
		Source    string `json:"source"`
		URL       string `json:"url"`
		ExpiresAt string `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "cache", body.Source)
	assert.Equal(t, "https://files.example.org/cached/s1", body.URL)
	_, err := time.Parse(time.RFC3339, body.ExpiresAt)
	assert.NoError(t, err)
}

func TestResolveLinkRefreshedFromProvider(t *testing.T) {
	store := &memLinkStore{records: map[string]services.LinkRecord{
		"s1": freshRecord("s1", -time.Minute),
	}}
	r := newStreamRouter(store, &memResolver{})

	w := streamGet(r, "/stream/resolve?song_id=s1", testStreamSecret)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool   `json:"success"`
		Source  string `json:"source"`
		URL     string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "api", body.Source)
	assert.Equal(t, "https://files.example.org/minted/file-s1", body.URL)

	rec := store.records["s1"]
	require.NotNil(t, rec.DirectURL)
	assert.Equal(t, "https://files.example.org/minted/file-s1", *rec.DirectURL, "refreshed URL must be persisted")
}

func TestResolveLinkRequiresAuth(t *testing.T) {
	r := newStreamRouter(&memLinkStore{records: map[string]services.LinkRecord{}}, &memResolver{})

	w := streamGet(r, "/stream/resolve?song_id=s1", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = streamGet(r, "/stream/resolve?song_id=s1", "wrong-secret")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResolveLinkMissingSongID(t *testing.T) {
	r := newStreamRouter(&memLinkStore{records: map[string]services.LinkRecord{}}, &memResolver{})

	w := streamGet(r, "/stream/resolve", testStreamSecret)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResolveLinkSongWithoutFile(t *testing.T) {
	store := &memLinkStore{records: map[string]services.LinkRecord{
		"s1": {SongID: "s1"},
	}}
	r := newStreamRouter(store, &memResolver{})

	w := streamGet(r, "/stream/resolve?song_id=s1", testStreamSecret)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResolveLinkUnknownSong(t *testing.T) {
	r := newStreamRouter(&memLinkStore{records: map[string]services.LinkRecord{}}, &memResolver{})

	w := streamGet(r, "/stream/resolve?song_id=nope", testStreamSecret)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResolveLinkProviderFailure(t *testing.T) {
	store := &memLinkStore{records: map[string]services.LinkRecord{
		"s1": freshRecord("s1", -time.Minute),
	}}
	r := newStreamRouter(store, &memResolver{fail: map[string]bool{"file-s1": true}})

	w := streamGet(r, "/stream/resolve?song_id=s1", testStreamSecret)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

type refreshResponse struct {
	Message string             `json:"message"`
	Total   int                `json:"total"`
	Success int                `json:"success"`
	Failed  int                `json:"failed"`
	Results []services.Outcome `json:"results"`
}

func streamPost(r *gin.Engine, path, payload string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRefreshLinksBreakdown(t *testing.T) {
	store := &memLinkStore{records: map[string]services.LinkRecord{
		"s1": freshRecord("s1", -time.Minute),
		"s2": freshRecord("s2", -time.Minute),
	}}
	r := newStreamRouter(store, &memResolver{fail: map[string]bool{"file-s2": true}})

	w := streamPost(r, "/stream/refresh", `{"ids":["s1","s2","ghost"]}`)
	require.Equal(t, http.StatusOK, w.Code, "partial failure still answers 200")

	var body refreshResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, 1, body.Success)
	assert.Equal(t, 2, body.Failed)
	assert.Equal(t, body.Total, body.Success+body.Failed)
	require.Len(t, body.Results, 3)

	byID := map[string]services.Outcome{}
	for _, o := range body.Results {
		byID[o.SongID] = o
	}
	assert.Equal(t, services.StatusSuccess, byID["s1"].Status)
	assert.Equal(t, services.StatusFailed, byID["s2"].Status)
	assert.Equal(t, services.StatusFailed, byID["ghost"].Status)
	assert.NotEmpty(t, byID["ghost"].Error)
}

func TestRefreshLinksAll(t *testing.T) {
	expired := []services.LinkRecord{
		{SongID: "s1", FileID: "file-s1"},
		{SongID: "s2", FileID: "file-s2"},
	}
	store := &memLinkStore{records: map[string]services.LinkRecord{}, expired: expired}
	r := newStreamRouter(store, &memResolver{})

	w := streamPost(r, "/stream/refresh", `{"ids":"all"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body refreshResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, 2, body.Success)
	assert.Zero(t, body.Failed)
}

func TestRefreshLinksInvalidPayload(t *testing.T) {
	r := newStreamRouter(&memLinkStore{records: map[string]services.LinkRecord{}}, &memResolver{})

	for _, payload := range []string{`{}`, `{"ids":"some"}`, `{"ids":123}`, `not json`} {
		w := streamPost(r, "/stream/refresh", payload)
		assert.Equal(t, http.StatusBadRequest, w.Code, "payload %q", payload)
	}
}

func TestRefreshLinksDeduplicatesIDs(t *testing.T) {
	store := &memLinkStore{records: map[string]services.LinkRecord{
		"s1": freshRecord("s1", -time.Minute),
	}}
	r := newStreamRouter(store, &memResolver{})

	w := streamPost(r, "/stream/refresh", `{"ids":["s1","s1","s1"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body refreshResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, 1, body.Success)
}
