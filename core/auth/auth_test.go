package auth

import (
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	Init("test-secret", time.Hour)
	os.Exit(m.Run())
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CheckPasswordHash("correct horse battery staple", hash))
	assert.False(t, CheckPasswordHash("wrong password", hash))
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	require.NotNil(t, claims.ExpiresAt)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	_, err := ParseToken("not-a-token")
	assert.Error(t, err)
}

func TestParseTokenRejectsTampered(t *testing.T) {
	token, err := GenerateToken(1, "bob")
	require.NoError(t, err)

	_, err = ParseToken(token + "x")
	assert.Error(t, err)
}

func TestNewConfirmationCodeIsSixDigits(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 20; i++ {
		code, err := NewConfirmationCode()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
	}
}

func TestDisplayMessageCategories(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrUserExists, "already exists"},
		{ErrInvalidCredentials, "Incorrect username or password"},
		{ErrUserNotConfirmed, "confirm your account"},
		{ErrCodeMismatch, "Invalid verification code"},
		{ErrCodeExpired, "expired"},
	}

	for _, tt := range tests {
		assert.Contains(t, DisplayMessage(tt.err), tt.want)
	}

	// Unrecognized errors fall back to the raw message.
	raw := errors.New("some provider failure")
	assert.Equal(t, "some provider failure", DisplayMessage(raw))
}
