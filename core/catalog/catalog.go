package catalog

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"soundwave/logger"
	"soundwave/model"
	"soundwave/repository"
)

// ObjectStore is the slice of the blob store the catalog needs.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Catalog composes the song repository and the object store into the
// denormalized playable-track view the UI consumes.
type Catalog struct {
	tracks repository.TrackRepository
	store  ObjectStore
	urlTTL time.Duration
}

// New creates a catalog façade. urlTTL bounds the validity of resolved
// playback URLs.
func New(tracks repository.TrackRepository, store ObjectStore, urlTTL time.Duration) *Catalog {
	if urlTTL <= 0 {
		urlTTL = time.Hour
	}
	return &Catalog{tracks: tracks, store: store, urlTTL: urlTTL}
}

// ListPlayableTracks fetches every song record and resolves a playback URL
// for each. URL resolution runs concurrently and each result is written back
// by index, so completion order does not matter. A track whose URL cannot be
// resolved stays in the result with an empty URL; only the record fetch
// itself can fail the listing.
func (c *Catalog) ListPlayableTracks(ctx context.Context) ([]*model.PlayableTrack, error) {
	records, err := c.tracks.GetAllTracks(ctx)
	if err != nil {
		return nil, remoteErr("list songs", err)
	}

	playable := make([]*model.PlayableTrack, len(records))
	var wg sync.WaitGroup
	for i, record := range records {
		playable[i] = &model.PlayableTrack{Track: *record}

		wg.Add(1)
		go func(i int, fileKey string) {
			defer wg.Done()
			url, err := c.store.PresignedURL(ctx, fileKey, c.urlTTL)
			if err != nil {
				logger.Warn("Failed to resolve playback URL",
					logger.String("fileKey", fileKey),
					logger.ErrorField(err))
				return
			}
			playable[i].URL = url
		}(i, record.FileKey)
	}
	wg.Wait()

	return playable, nil
}

// CreateTrack validates the metadata and writes a new song record. The
// returned record carries the server-assigned ID and creation timestamp.
func (c *Catalog) CreateTrack(ctx context.Context, title, artist, fileKey string) (*model.Track, error) {
	if strings.TrimSpace(title) == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if strings.TrimSpace(artist) == "" {
		return nil, &ValidationError{Field: "artist", Reason: "must not be empty"}
	}
	if strings.TrimSpace(fileKey) == "" {
		return nil, &ValidationError{Field: "fileKey", Reason: "must not be empty"}
	}

	created, err := c.tracks.CreateTrack(ctx, &model.Track{
		Title:   title,
		Artist:  artist,
		FileKey: fileKey,
	})
	if err != nil {
		return nil, remoteErr("create song", err)
	}
	return created, nil
}

// DeleteTrack removes a song record by ID. Unknown IDs succeed; only the
// record is removed, the uploaded blob stays behind.
func (c *Catalog) DeleteTrack(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if err := c.tracks.DeleteTrack(ctx, id); err != nil {
		return remoteErr("delete song", err)
	}
	return nil
}

// UploadAudio streams a blob to the object store under the given key.
// Attempt-once: no retry and no partial-upload recovery.
func (c *Catalog) UploadAudio(ctx context.Context, fileKey string, r io.Reader, size int64, contentType string) error {
	if strings.TrimSpace(fileKey) == "" {
		return &ValidationError{Field: "fileKey", Reason: "must not be empty"}
	}
	if err := c.store.Upload(ctx, fileKey, r, size, contentType); err != nil {
		return remoteErr("upload audio", err)
	}
	return nil
}
