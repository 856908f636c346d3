package repository

import (
	"context"

	"github.com/go-redis/redis/v8"
)

const registryKey = "relay:tokens"

// TokenRegistry is the shared store of recipient tokens. Existence in the set
// is a token's whole lifecycle: registration adds it, pruning removes it.
type TokenRegistry struct {
	client *redis.Client
}

func NewTokenRegistry(client *redis.Client) *TokenRegistry {
	return &TokenRegistry{client: client}
}

func (r *TokenRegistry) Close() error {
	return r.client.Close()
}

// Add registers a token. Re-adding an existing member is a no-op.
func (r *TokenRegistry) Add(ctx context.Context, token string) error {
	return r.client.SAdd(ctx, registryKey, token).Err()
}

// ListAll returns a snapshot of every registered token.
func (r *TokenRegistry) ListAll(ctx context.Context) ([]string, error) {
	return r.client.SMembers(ctx, registryKey).Result()
}

// Remove deletes a token. SREM on an absent member is a no-op, which keeps
// concurrent prunes from different jobs safe without locking.
func (r *TokenRegistry) Remove(ctx context.Context, token string) error {
	return r.client.SRem(ctx, registryKey, token).Err()
}
