package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"soundwave/cache"
	"soundwave/config"
	"soundwave/core/auth"
	"soundwave/logger"
	"soundwave/model"
	"soundwave/repository"
)

// CatalogService is the façade surface the handlers consume.
type CatalogService interface {
	ListPlayableTracks(ctx context.Context) ([]*model.PlayableTrack, error)
	CreateTrack(ctx context.Context, title, artist, fileKey string) (*model.Track, error)
	DeleteTrack(ctx context.Context, id string) error
	UploadAudio(ctx context.Context, fileKey string, r io.Reader, size int64, contentType string) error
}

// APIHandler handles all API requests.
type APIHandler struct {
	catalog  CatalogService
	userRepo repository.UserRepository
	cfg      *config.Config
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(catalog CatalogService, userRepo repository.UserRepository, cfg *config.Config) *APIHandler {
	return &APIHandler{
		catalog:  catalog,
		userRepo: userRepo,
		cfg:      cfg,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeErrorDetails(w http.ResponseWriter, status int, msg string, err error) {
	writeJSON(w, status, map[string]string{"error": msg, "details": err.Error()})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("authorization header is required")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("invalid authorization header format")
	}
	return parts[1], nil
}

// AuthMiddleware checks for a valid, non-revoked session token and adds the
// user identity to the request context.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		revoked, err := cache.IsTokenRevoked(r.Context(), token)
		if err != nil {
			logger.Error("Failed to check token revocation", logger.ErrorField(err))
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if revoked {
			writeError(w, http.StatusUnauthorized, "Token has been signed out")
			return
		}

		ctx := context.WithValue(r.Context(), "userID", claims.UserID)
		ctx = context.WithValue(ctx, "username", claims.Username)

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetUserIDFromContext extracts the user ID from the request context.
func GetUserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value("userID").(int64)
	if !ok {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// GetUsernameFromContext extracts the username from the request context.
func GetUsernameFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value("username").(string)
	if !ok {
		return "", fmt.Errorf("username not found in context")
	}
	return username, nil
}

// tokenRemainingTTL computes how long a parsed token stays valid, for the
// sign-out denylist.
func tokenRemainingTTL(claims *auth.Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	return time.Until(claims.ExpiresAt.Time)
}
