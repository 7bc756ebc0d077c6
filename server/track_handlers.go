package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"soundwave/core/catalog"
	"soundwave/logger"

	"github.com/gorilla/mux"
)

var nonAlphaNumeric = regexp.MustCompile(`[^a-zA-Z0-9_\-\.]`)
var multipleSpaces = regexp.MustCompile(`\s+`)

// maxUploadSize bounds one audio upload.
const maxUploadSize = 100 << 20 // 100MB

var allowedAudioTypes = []string{
	"audio/mpeg", "audio/mp3", // MP3
	"audio/wav", "audio/x-wav", // WAV
	"audio/flac", "audio/x-flac", // FLAC
	"audio/aac",  // AAC
	"audio/mp4",  // M4A
	"audio/ogg",  // OGG
}

// CreateSongRequest is the POST /songs body.
type CreateSongRequest struct {
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	FileKey string `json:"fileKey"`
}

// GetSongsHandler lists every song with a resolved playback URL.
func (h *APIHandler) GetSongsHandler(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.catalog.ListPlayableTracks(r.Context())
	if err != nil {
		logger.Error("Failed to list songs", logger.ErrorField(err))
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to get songs", err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

// CreateSongHandler writes a new song record for an already-uploaded blob.
func (h *APIHandler) CreateSongHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateSongRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.catalog.CreateTrack(r.Context(), req.Title, req.Artist, req.FileKey)
	if err != nil {
		var vErr *catalog.ValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusBadRequest, vErr.Error())
			return
		}
		logger.Error("Failed to create song", logger.ErrorField(err))
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to create song", err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// DeleteSongHandler removes a song record. Unknown IDs succeed.
func (h *APIHandler) DeleteSongHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.catalog.DeleteTrack(r.Context(), id); err != nil {
		var vErr *catalog.ValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusBadRequest, vErr.Error())
			return
		}
		logger.Error("Failed to delete song",
			logger.String("id", id),
			logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete song")
		return
	}

	writeMessage(w, "Song deleted successfully")
}

func sanitizeFilename(name string) string {
	base := strings.TrimSpace(name)
	if base == "" {
		base = "untitled"
	}
	base = multipleSpaces.ReplaceAllString(base, "_")
	base = nonAlphaNumeric.ReplaceAllString(base, "")

	maxLength := 100
	if len(base) > maxLength {
		base = base[:maxLength]
	}
	if base == "" {
		base = "untitled"
	}
	return base
}

// UploadSongHandler accepts a multipart audio upload, streams it to object
// storage, then writes the catalog record. The two steps are not
// transactional: a failed record write leaves an orphaned blob behind.
func (h *APIHandler) UploadSongHandler(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > maxUploadSize {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Request too large. Maximum size is %d MB", maxUploadSize>>20))
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		logger.Error("Failed to parse upload form", logger.ErrorField(err))
		writeError(w, http.StatusBadRequest, "Failed to parse upload form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile {
			writeError(w, http.StatusBadRequest, "Missing audio file. Please select a file to upload.")
		} else {
			writeError(w, http.StatusBadRequest, "Failed to process uploaded file")
		}
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File too large. Maximum size is %d MB", maxUploadSize>>20))
		return
	}

	contentType := header.Header.Get("Content-Type")
	validType := false
	for _, t := range allowedAudioTypes {
		if contentType == t {
			validType = true
			break
		}
	}
	if !validType {
		writeError(w, http.StatusBadRequest, "Invalid file type. Supported formats: MP3, WAV, FLAC, AAC, M4A, OGG.")
		return
	}

	title := r.FormValue("title")
	artist := r.FormValue("artist")
	if strings.TrimSpace(title) == "" {
		// Fall back to the filename without extension, matching the upload form.
		title = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}

	fileKey := fmt.Sprintf("songs/%d_%s", time.Now().UnixMilli(), sanitizeFilename(header.Filename))

	if err := h.catalog.UploadAudio(r.Context(), fileKey, file, header.Size, contentType); err != nil {
		logger.Error("Failed to upload audio",
			logger.String("fileKey", fileKey),
			logger.ErrorField(err))
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to upload audio", err)
		return
	}

	created, err := h.catalog.CreateTrack(r.Context(), title, artist, fileKey)
	if err != nil {
		var vErr *catalog.ValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusBadRequest, vErr.Error())
			return
		}
		logger.Error("Failed to create song after upload",
			logger.String("fileKey", fileKey),
			logger.ErrorField(err))
		writeErrorDetails(w, http.StatusInternalServerError, "Failed to create song", err)
		return
	}

	logger.Info("Track uploaded",
		logger.String("id", created.ID),
		logger.String("fileKey", fileKey),
		logger.Int64("size", header.Size))
	writeJSON(w, http.StatusCreated, created)
}
