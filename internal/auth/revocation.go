package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "auth:revoked:"

// TokenRevoker records logged-out token IDs in redis until they would have
// expired anyway, so stateless JWTs can still be invalidated server-side.
type TokenRevoker struct {
	client *redis.Client
}

// NewTokenRevoker builds a revoker. A nil client degrades revocation to a
// no-op (tokens then simply age out).
func NewTokenRevoker(client *redis.Client) *TokenRevoker {
	return &TokenRevoker{client: client}
}

// Revoke denylists the token ID until its expiry.
func (r *TokenRevoker) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if r == nil || r.client == nil {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err()
}

// IsRevoked reports whether the token ID has been denylisted. Redis outages
// fail open so an unavailable cache cannot lock every caller out.
func (r *TokenRevoker) IsRevoked(ctx context.Context, tokenID string) bool {
	if r == nil || r.client == nil {
		return false
	}
	n, err := r.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false
	}
	return n > 0
}
