package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Per-user convenience state: recent search terms and avatar image, keyed by
// username. Non-authoritative; losing these keys only loses UI niceties.

const (
	// maxRecentSearches caps the per-user search history.
	maxRecentSearches = 5

	// confirmationCodeTTL bounds how long a sign-up code stays valid.
	confirmationCodeTTL = 10 * time.Minute
)

func recentSearchesKey(username string) string {
	return fmt.Sprintf("recent_searches:%s", username)
}

func avatarKey(username string) string {
	return fmt.Sprintf("avatar:%s", username)
}

func confirmationCodeKey(username string) string {
	return fmt.Sprintf("confirm_code:%s", username)
}

func revokedTokenKey(token string) string {
	return fmt.Sprintf("revoked_token:%s", token)
}

// AddRecentSearch records a search term for the user, most recent first,
// de-duplicated, capped at maxRecentSearches.
func AddRecentSearch(ctx context.Context, username, term string) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	key := recentSearchesKey(username)
	pipe := RedisClient.TxPipeline()
	pipe.LRem(ctx, key, 0, term)
	pipe.LPush(ctx, key, term)
	pipe.LTrim(ctx, key, 0, maxRecentSearches-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record recent search: %w", err)
	}
	return nil
}

// GetRecentSearches returns the user's recent search terms, most recent first.
func GetRecentSearches(ctx context.Context, username string) ([]string, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	terms, err := RedisClient.LRange(ctx, recentSearchesKey(username), 0, maxRecentSearches-1).Result()
	if err != nil {
		if err == redis.Nil {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to get recent searches: %w", err)
	}
	if terms == nil {
		terms = []string{}
	}
	return terms, nil
}

// ClearRecentSearches drops the user's search history.
func ClearRecentSearches(ctx context.Context, username string) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if err := RedisClient.Del(ctx, recentSearchesKey(username)).Err(); err != nil {
		return fmt.Errorf("failed to clear recent searches: %w", err)
	}
	return nil
}

// SetAvatar stores the user's avatar as a data URI. No expiry.
func SetAvatar(ctx context.Context, username, dataURI string) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if err := RedisClient.Set(ctx, avatarKey(username), dataURI, 0).Err(); err != nil {
		return fmt.Errorf("failed to store avatar: %w", err)
	}
	return nil
}

// GetAvatar returns the user's avatar data URI, or empty string if none is set.
func GetAvatar(ctx context.Context, username string) (string, error) {
	if RedisClient == nil {
		return "", fmt.Errorf("Redis client not initialized")
	}
	val, err := RedisClient.Get(ctx, avatarKey(username)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("failed to get avatar: %w", err)
	}
	return val, nil
}

// SetConfirmationCode stores a sign-up confirmation code with a bounded TTL.
func SetConfirmationCode(ctx context.Context, username, code string) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if err := RedisClient.Set(ctx, confirmationCodeKey(username), code, confirmationCodeTTL).Err(); err != nil {
		return fmt.Errorf("failed to store confirmation code: %w", err)
	}
	return nil
}

// GetConfirmationCode returns the stored code for the user. A missing key
// means the code expired (or none was ever issued); that is reported with
// found=false rather than an error.
func GetConfirmationCode(ctx context.Context, username string) (code string, found bool, err error) {
	if RedisClient == nil {
		return "", false, fmt.Errorf("Redis client not initialized")
	}
	val, err := RedisClient.Get(ctx, confirmationCodeKey(username)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get confirmation code: %w", err)
	}
	return val, true, nil
}

// DeleteConfirmationCode removes a consumed code.
func DeleteConfirmationCode(ctx context.Context, username string) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	return RedisClient.Del(ctx, confirmationCodeKey(username)).Err()
}

// RevokeToken denylists a signed-out token until its natural expiry.
func RevokeToken(ctx context.Context, token string, ttl time.Duration) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if ttl <= 0 {
		return nil // already expired, nothing to revoke
	}
	if err := RedisClient.Set(ctx, revokedTokenKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether the token was signed out.
func IsTokenRevoked(ctx context.Context, token string) (bool, error) {
	if RedisClient == nil {
		return false, fmt.Errorf("Redis client not initialized")
	}
	_, err := RedisClient.Get(ctx, revokedTokenKey(token)).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return true, nil
}
