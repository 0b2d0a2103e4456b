/**
 * @description
 * Redis-backed implementation of the BlockedSetStore interface. Each zone's
 * blocked guilds live in one Redis set keyed by (zone_id, namespace). Block
 * and Unblock are read-modify-write cycles: the current set is fetched, the
 * union or difference is computed, and the full set is written back with a
 * compare-free overwrite. A striped in-process mutex serializes the cycle per
 * zone so concurrent updates from unrelated relation changes touching the
 * same zone cannot drop each other's writes.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9: The Redis client library.
 * - github.com/google/uuid: Guild identifiers.
 */

package store

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const blockedSetStripes = 64

// RedisBlockedSetStore persists per-zone blocked-guild sets in Redis.
type RedisBlockedSetStore struct {
	client redis.UniversalClient
	prefix string
	locks  [blockedSetStripes]sync.Mutex
}

// NewRedisBlockedSetStore creates a blocked-set store with the given key prefix.
func NewRedisBlockedSetStore(client redis.UniversalClient, prefix string) *RedisBlockedSetStore {
	trimmed := strings.TrimSpace(prefix)
	if trimmed == "" {
		trimmed = "guildshop:blocked"
	}
	trimmed = strings.TrimSuffix(trimmed, ":")

	return &RedisBlockedSetStore{
		client: client,
		prefix: trimmed,
	}
}

func (s *RedisBlockedSetStore) key(zoneID, namespace string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, namespace, zoneID)
}

func (s *RedisBlockedSetStore) lockFor(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &s.locks[h.Sum32()%blockedSetStripes]
}

// BlockedGuilds returns the full blocked set for a zone. A missing key is an
// empty set, not an error.
func (s *RedisBlockedSetStore) BlockedGuilds(ctx context.Context, zoneID, namespace string) ([]uuid.UUID, error) {
	members, err := s.client.SMembers(ctx, s.key(zoneID, namespace)).Result()
	if err != nil {
		return nil, err
	}
	guilds := make([]uuid.UUID, 0, len(members))
	for _, member := range members {
		id, parseErr := uuid.Parse(member)
		if parseErr != nil {
			log.Printf("level=warn component=blocked_set msg=\"skipping malformed member\" zone_id=%s namespace=%s member=%q", zoneID, namespace, member)
			continue
		}
		guilds = append(guilds, id)
	}
	return guilds, nil
}

// IsBlocked reports whether a guild is in the zone's blocked set.
func (s *RedisBlockedSetStore) IsBlocked(ctx context.Context, zoneID, namespace string, guildID uuid.UUID) (bool, error) {
	return s.client.SIsMember(ctx, s.key(zoneID, namespace), guildID.String()).Result()
}

// Block adds a guild to the zone's blocked set. Adding an already-present
// guild is a no-op.
func (s *RedisBlockedSetStore) Block(ctx context.Context, zoneID, namespace string, guildID uuid.UUID) error {
	return s.mutate(ctx, zoneID, namespace, func(members map[string]struct{}) {
		members[guildID.String()] = struct{}{}
	})
}

// Unblock removes a guild from the zone's blocked set. Removing an absent
// guild is a no-op; the rest of the set is left untouched.
func (s *RedisBlockedSetStore) Unblock(ctx context.Context, zoneID, namespace string, guildID uuid.UUID) error {
	return s.mutate(ctx, zoneID, namespace, func(members map[string]struct{}) {
		delete(members, guildID.String())
	})
}

// Replace overwrites the zone's blocked set with the given guilds.
func (s *RedisBlockedSetStore) Replace(ctx context.Context, zoneID, namespace string, guildIDs []uuid.UUID) error {
	key := s.key(zoneID, namespace)
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	members := make([]string, 0, len(guildIDs))
	for _, id := range guildIDs {
		members = append(members, id.String())
	}
	return s.overwrite(ctx, key, members)
}

// Clear removes the zone's blocked set entirely.
func (s *RedisBlockedSetStore) Clear(ctx context.Context, zoneID, namespace string) error {
	key := s.key(zoneID, namespace)
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	return s.client.Del(ctx, key).Err()
}

// mutate runs a read-modify-write cycle on the zone's set under its stripe lock.
func (s *RedisBlockedSetStore) mutate(ctx context.Context, zoneID, namespace string, apply func(map[string]struct{})) error {
	key := s.key(zoneID, namespace)
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return err
	}
	members := make(map[string]struct{}, len(current)+1)
	for _, member := range current {
		members[member] = struct{}{}
	}
	apply(members)

	flattened := make([]string, 0, len(members))
	for member := range members {
		flattened = append(flattened, member)
	}
	return s.overwrite(ctx, key, flattened)
}

// overwrite replaces the set contents atomically with a DEL+SADD pipeline.
func (s *RedisBlockedSetStore) overwrite(ctx context.Context, key string, members []string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(members) > 0 {
		values := make([]interface{}, len(members))
		for i, member := range members {
			values[i] = member
		}
		pipe.SAdd(ctx, key, values...)
	}
	_, err := pipe.Exec(ctx)
	return err
}
