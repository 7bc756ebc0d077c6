package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"soundwave/cache"
	"soundwave/core/auth"
	"soundwave/logger"
	"soundwave/model"
	"soundwave/repository"
)

// RegisterRequest is the sign-up body.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// ConfirmRequest is the email-code confirmation body.
type ConfirmRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

// LoginRequest is the sign-in body. Username may be a username or an email.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterHandler creates an unconfirmed account and issues a confirmation
// code. Delivery is a log line; there is no mail sender here.
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "Username, password and email are required")
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to process password")
		return
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashedPassword,
	}

	userID, err := h.userRepo.CreateUser(r.Context(), user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			logger.Warn("Registration with existing username or email",
				logger.String("username", req.Username))
			writeError(w, http.StatusConflict, auth.DisplayMessage(auth.ErrUserExists))
			return
		}
		logger.Error("Failed to create user", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	code, err := auth.NewConfirmationCode()
	if err != nil {
		logger.Error("Failed to generate confirmation code", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}
	if err := cache.SetConfirmationCode(r.Context(), req.Username, code); err != nil {
		logger.Error("Failed to store confirmation code", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	// Stand-in for email delivery.
	logger.Info("Confirmation code issued",
		logger.String("username", req.Username),
		logger.String("email", req.Email),
		logger.String("code", code))

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user": map[string]interface{}{
			"id":       userID,
			"username": user.Username,
			"email":    user.Email,
		},
		"message": "Account created. Check your email for the verification code.",
	})
}

// ConfirmHandler verifies the emailed code and marks the account confirmed.
func (h *APIHandler) ConfirmHandler(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "Username and code are required")
		return
	}

	stored, found, err := cache.GetConfirmationCode(r.Context(), req.Username)
	if err != nil {
		logger.Error("Failed to look up confirmation code", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !found {
		writeError(w, http.StatusBadRequest, auth.DisplayMessage(auth.ErrCodeExpired))
		return
	}
	if stored != req.Code {
		writeError(w, http.StatusBadRequest, auth.DisplayMessage(auth.ErrCodeMismatch))
		return
	}

	if err := h.userRepo.ConfirmUser(r.Context(), req.Username); err != nil {
		logger.Error("Failed to confirm user", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	cache.DeleteConfirmationCode(r.Context(), req.Username)

	logger.Info("Account confirmed", logger.String("username", req.Username))
	writeMessage(w, "Account confirmed. You can sign in now.")
}

// LoginHandler authenticates by username or email and issues a session token.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username/Email and password are required")
		return
	}

	var user *model.User
	var err error
	if strings.Contains(req.Username, "@") {
		user, err = h.userRepo.GetUserByEmail(r.Context(), req.Username)
	} else {
		user, err = h.userRepo.GetUserByUsername(r.Context(), req.Username)
	}
	if err != nil {
		logger.Error("Failed to query user", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Warn("Sign-in rejected", logger.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, auth.DisplayMessage(auth.ErrInvalidCredentials))
		return
	}

	if !user.Confirmed {
		writeError(w, http.StatusForbidden, auth.DisplayMessage(auth.ErrUserNotConfirmed))
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		logger.Error("Failed to generate token", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	logger.Info("Sign-in successful", logger.String("username", user.Username))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// SessionHandler returns the account behind the presented token.
func (h *APIHandler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	username, err := GetUsernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.userRepo.GetUserByUsername(r.Context(), username)
	if err != nil {
		logger.Error("Failed to query session user", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// LogoutHandler denylists the presented token for its remaining lifetime.
func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	claims, err := auth.ParseToken(token)
	if err != nil {
		// Already invalid; signing out is a no-op.
		writeMessage(w, "Signed out")
		return
	}

	if err := cache.RevokeToken(r.Context(), token, tokenRemainingTTL(claims)); err != nil {
		logger.Error("Failed to revoke token", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	logger.Info("Signed out", logger.String("username", claims.Username))
	writeMessage(w, "Signed out")
}
