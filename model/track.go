package model

import "time"

// Track represents a persisted metadata record for one uploaded audio item.
// The ID is opaque and server-generated; FileKey points into object storage
// and never changes after upload.
type Track struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	FileKey   string    `json:"fileKey"`
	CreatedAt time.Time `json:"createdAt"`
}

// PlayableTrack is a Track augmented with a time-limited playback URL.
// It is a view assembled per request and never persisted; URL is empty when
// resolution failed for this item.
type PlayableTrack struct {
	Track
	URL string `json:"url,omitempty"`
}
