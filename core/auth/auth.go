package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Fixed user-facing error categories. Handlers map these to display messages;
// anything else falls back to the raw error text.
var (
	ErrInvalidCredentials = errors.New("invalid username/email or password")
	ErrUserExists         = errors.New("username or email already exists")
	ErrUserNotConfirmed   = errors.New("account is not confirmed")
	ErrCodeMismatch       = errors.New("confirmation code does not match")
	ErrCodeExpired        = errors.New("confirmation code has expired")
)

var (
	jwtSecret []byte
	tokenTTL  = 72 * time.Hour
)

// Init sets the signing secret and token lifetime. Must be called before
// tokens are issued or parsed.
func Init(secret string, ttl time.Duration) {
	jwtSecret = []byte(secret)
	if ttl > 0 {
		tokenTTL = ttl
	}
}

// Claims are the JWT claims carried by a session token.
type Claims struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// HashPassword generates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPasswordHash compares a password with a bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateToken issues a signed session token for the user.
func GenerateToken(userID int64, username string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a session token and returns its claims.
func ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// NewConfirmationCode generates a six-digit sign-up code.
func NewConfirmationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate confirmation code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// DisplayMessage maps an auth error to the human-readable message shown to
// users. Unrecognized errors surface their raw text.
func DisplayMessage(err error) string {
	switch {
	case errors.Is(err, ErrUserExists):
		return "An account with this username or email already exists. Please sign in instead."
	case errors.Is(err, ErrInvalidCredentials):
		return "Incorrect username or password."
	case errors.Is(err, ErrUserNotConfirmed):
		return "Please confirm your account first. Check your email for the verification code."
	case errors.Is(err, ErrCodeMismatch):
		return "Invalid verification code. Please try again."
	case errors.Is(err, ErrCodeExpired):
		return "Verification code has expired. Please request a new one."
	default:
		return err.Error()
	}
}
