package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"soundwave/cache"
	"soundwave/logger"
)

// maxAvatarSize bounds the stored avatar data URI.
const maxAvatarSize = 2 << 20 // 2MB

// GetRecentSearchesHandler returns the user's recent search terms, most
// recent first.
func (h *APIHandler) GetRecentSearchesHandler(w http.ResponseWriter, r *http.Request) {
	username, err := GetUsernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	terms, err := cache.GetRecentSearches(r.Context(), username)
	if err != nil {
		logger.Error("Failed to get recent searches", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"searches": terms})
}

// AddRecentSearchHandler records a search term for the user.
func (h *APIHandler) AddRecentSearchHandler(w http.ResponseWriter, r *http.Request) {
	username, err := GetUsernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Term string `json:"term"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Term = strings.TrimSpace(req.Term)
	if req.Term == "" {
		writeError(w, http.StatusBadRequest, "Search term is required")
		return
	}

	if err := cache.AddRecentSearch(r.Context(), username, req.Term); err != nil {
		logger.Error("Failed to record recent search", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeMessage(w, "Search recorded")
}

// ClearRecentSearchesHandler drops the user's search history.
func (h *APIHandler) ClearRecentSearchesHandler(w http.ResponseWriter, r *http.Request) {
	username, err := GetUsernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := cache.ClearRecentSearches(r.Context(), username); err != nil {
		logger.Error("Failed to clear recent searches", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeMessage(w, "Search history cleared")
}

// GetAvatarHandler returns the user's avatar data URI, empty if none is set.
func (h *APIHandler) GetAvatarHandler(w http.ResponseWriter, r *http.Request) {
	username, err := GetUsernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	avatar, err := cache.GetAvatar(r.Context(), username)
	if err != nil {
		logger.Error("Failed to get avatar", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"avatar": avatar})
}

// SetAvatarHandler stores the user's avatar as a data URI.
func (h *APIHandler) SetAvatarHandler(w http.ResponseWriter, r *http.Request) {
	username, err := GetUsernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Avatar string `json:"avatar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Avatar == "" {
		writeError(w, http.StatusBadRequest, "Avatar data is required")
		return
	}
	if len(req.Avatar) > maxAvatarSize {
		writeError(w, http.StatusRequestEntityTooLarge, "Avatar image is too large")
		return
	}
	if !strings.HasPrefix(req.Avatar, "data:image/") {
		writeError(w, http.StatusBadRequest, "Avatar must be an image data URI")
		return
	}

	if err := cache.SetAvatar(r.Context(), username, req.Avatar); err != nil {
		logger.Error("Failed to store avatar", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeMessage(w, "Avatar updated")
}
