package store

import (
	"context"

	"github.com/google/uuid"
)

// NoopBlockedSetStore is a BlockedSetStore that holds nothing. Used when
// enemy blocking is disabled and no Redis connection is available: every
// requester evaluates as unblocked and all mutations succeed silently.
type NoopBlockedSetStore struct{}

// NewNoopBlockedSetStore creates a no-op blocked-set store.
func NewNoopBlockedSetStore() *NoopBlockedSetStore {
	return &NoopBlockedSetStore{}
}

func (s *NoopBlockedSetStore) BlockedGuilds(ctx context.Context, zoneID, namespace string) ([]uuid.UUID, error) {
	return nil, nil
}

func (s *NoopBlockedSetStore) IsBlocked(ctx context.Context, zoneID, namespace string, guildID uuid.UUID) (bool, error) {
	return false, nil
}

func (s *NoopBlockedSetStore) Block(ctx context.Context, zoneID, namespace string, guildID uuid.UUID) error {
	return nil
}

func (s *NoopBlockedSetStore) Unblock(ctx context.Context, zoneID, namespace string, guildID uuid.UUID) error {
	return nil
}

func (s *NoopBlockedSetStore) Replace(ctx context.Context, zoneID, namespace string, guildIDs []uuid.UUID) error {
	return nil
}

func (s *NoopBlockedSetStore) Clear(ctx context.Context, zoneID, namespace string) error {
	return nil
}
