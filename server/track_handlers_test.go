package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"soundwave/config"
	"soundwave/core/catalog"
	"soundwave/model"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	tracks    []*model.PlayableTrack
	listErr   error
	createErr error
	deleteErr error
	deleted   []string
}

func (f *fakeCatalog) ListPlayableTracks(ctx context.Context) ([]*model.PlayableTrack, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.tracks == nil {
		return []*model.PlayableTrack{}, nil
	}
	return f.tracks, nil
}

func (f *fakeCatalog) CreateTrack(ctx context.Context, title, artist, fileKey string) (*model.Track, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if strings.TrimSpace(title) == "" {
		return nil, &catalog.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	return &model.Track{
		ID:        "song_1700000000000_deadbeef",
		Title:     title,
		Artist:    artist,
		FileKey:   fileKey,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (f *fakeCatalog) DeleteTrack(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCatalog) UploadAudio(ctx context.Context, fileKey string, r io.Reader, size int64, contentType string) error {
	return nil
}

func newTestRouter(c CatalogService) *mux.Router {
	h := NewAPIHandler(c, nil, &config.Config{})
	router := mux.NewRouter()
	router.Use(corsMiddleware)
	router.HandleFunc("/songs", h.GetSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/songs", h.CreateSongHandler).Methods(http.MethodPost)
	router.HandleFunc("/songs/{id}", h.DeleteSongHandler).Methods(http.MethodDelete)
	router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodOptions)
	return router
}

func TestGetSongsEmptyCatalogReturnsEmptyArray(t *testing.T) {
	router := newTestRouter(&fakeCatalog{})

	req := httptest.NewRequest(http.MethodGet, "/songs", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestGetSongsReturnsPlayableTracks(t *testing.T) {
	router := newTestRouter(&fakeCatalog{tracks: []*model.PlayableTrack{
		{
			Track: model.Track{ID: "song_1", Title: "A", Artist: "B", FileKey: "songs/a.mp3"},
			URL:   "https://blobs.example.com/songs/a.mp3",
		},
	}})

	req := httptest.NewRequest(http.MethodGet, "/songs", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var tracks []model.PlayableTrack
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tracks))
	require.Len(t, tracks, 1)
	assert.Equal(t, "song_1", tracks[0].ID)
	assert.Equal(t, "https://blobs.example.com/songs/a.mp3", tracks[0].URL)
}

func TestGetSongsRemoteFailure(t *testing.T) {
	router := newTestRouter(&fakeCatalog{listErr: errors.New("scan failed")})

	req := httptest.NewRequest(http.MethodGet, "/songs", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Failed to get songs", body["error"])
	assert.Contains(t, body["details"], "scan failed")
}

func TestCreateSongReturnsCreatedRecord(t *testing.T) {
	router := newTestRouter(&fakeCatalog{})

	body := `{"title":"A","artist":"B","fileKey":"songs/1700000000_a.mp3"}`
	req := httptest.NewRequest(http.MethodPost, "/songs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var created model.Track
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.True(t, strings.HasPrefix(created.ID, "song_"))
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, "A", created.Title)
}

func TestCreateSongValidationFailure(t *testing.T) {
	router := newTestRouter(&fakeCatalog{})

	req := httptest.NewRequest(http.MethodPost, "/songs", strings.NewReader(`{"artist":"B"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "title")
}

func TestCreateSongMalformedBody(t *testing.T) {
	router := newTestRouter(&fakeCatalog{})

	req := httptest.NewRequest(http.MethodPost, "/songs", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteSongSucceeds(t *testing.T) {
	fake := &fakeCatalog{}
	router := newTestRouter(fake)

	req := httptest.NewRequest(http.MethodDelete, "/songs/song_123", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"song_123"}, fake.deleted)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Song deleted successfully", body["message"])
}

func TestDeleteSongRemoteFailure(t *testing.T) {
	router := newTestRouter(&fakeCatalog{deleteErr: &catalog.RemoteError{Op: "delete song", Err: errors.New("unavailable")}})

	req := httptest.NewRequest(http.MethodDelete, "/songs/song_123", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Failed to delete song", body["error"])
}

func TestPreflightCarriesCORSHeaders(t *testing.T) {
	router := newTestRouter(&fakeCatalog{})

	req := httptest.NewRequest(http.MethodOptions, "/songs", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestAllResponsesCarryCORSHeaders(t *testing.T) {
	router := newTestRouter(&fakeCatalog{})

	req := httptest.NewRequest(http.MethodGet, "/songs", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
