/**
 * @description
 * This file contains the relation flag synchronizer: the component that keeps
 * per-zone blocked-guild sets consistent with guild relation state. It reacts
 * to relation changes between two guilds (blocking or unblocking each side
 * from the other's zones) and to new zone registrations (seeding the zone's
 * blocked set from the owner's existing enemies).
 *
 * All updates are idempotent set unions/differences computed against what the
 * attribute authority currently stores, never blind overwrites, so unrelated
 * relation changes touching the same zone cannot clobber each other.
 */

package app

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/lumalyte/guildshop-service/internal/domain"
	"github.com/lumalyte/guildshop-service/internal/store"
)

// RelationSync maintains blocked-set state derived from guild relations.
type RelationSync struct {
	repo      store.Repository
	blocked   store.BlockedSetStore
	relations Relations
	enabled   bool
}

// NewRelationSync creates a relation synchronizer. When enabled is false all
// synchronization is a no-op; existing blocked sets are simply ignored by the
// evaluator.
func NewRelationSync(repo store.Repository, blocked store.BlockedSetStore, relations Relations, enabled bool) *RelationSync {
	return &RelationSync{
		repo:      repo,
		blocked:   blocked,
		relations: relations,
		enabled:   enabled,
	}
}

// HandleRelationChange updates blocked sets after the relation between two
// guilds changes. A hostile relation blocks each guild from every zone the
// other owns, in both directions independently. Any other relation value
// explicitly unblocks both sides without touching the rest of either set.
func (s *RelationSync) HandleRelationChange(ctx context.Context, guildA, guildB uuid.UUID, relation domain.RelationType) error {
	if !s.enabled {
		return nil
	}

	zonesA, err := s.repo.ListZones(ctx, guildA)
	if err != nil {
		return fmt.Errorf("list zones for guild %s: %w", guildA, err)
	}
	zonesB, err := s.repo.ListZones(ctx, guildB)
	if err != nil {
		return fmt.Errorf("list zones for guild %s: %w", guildB, err)
	}

	hostile := relation.Hostile()
	if err := s.applyToZones(ctx, zonesA, guildB, hostile); err != nil {
		return err
	}
	if err := s.applyToZones(ctx, zonesB, guildA, hostile); err != nil {
		return err
	}

	action := "unblocked"
	if hostile {
		action = "blocked"
	}
	log.Printf("level=info component=relation_sync msg=\"relation change applied\" guild_a=%s guild_b=%s relation=%s action=%s zones_a=%d zones_b=%d",
		guildA, guildB, relation, action, len(zonesA), len(zonesB))
	return nil
}

// SeedZone pre-populates a freshly registered zone's blocked set with every
// guild currently hostile to the owner, so a new zone is immediately
// consistent with existing relations rather than starting unguarded.
func (s *RelationSync) SeedZone(ctx context.Context, zone *domain.Zone) error {
	if !s.enabled {
		return nil
	}

	enemies, err := s.relations.EnemiesOf(ctx, zone.OwnerID)
	if err != nil {
		return fmt.Errorf("enemy lookup for guild %s: %w", zone.OwnerID, err)
	}

	for _, enemyID := range enemies {
		if err := s.blocked.Block(ctx, zone.ZoneID, zone.Namespace, enemyID); err != nil {
			return fmt.Errorf("seed block %s on zone %s: %w", enemyID, zone.ZoneID, err)
		}
	}

	log.Printf("level=info component=relation_sync msg=\"zone blocked set seeded\" zone_id=%s namespace=%s owner_id=%s enemies=%d",
		zone.ZoneID, zone.Namespace, zone.OwnerID, len(enemies))
	return nil
}

// RecomputeZone rebuilds a zone's blocked set from scratch out of the
// relation authority. The blocked set is a cache of relation state, so a full
// overwrite here is always safe and repairs any drift from lost updates.
func (s *RelationSync) RecomputeZone(ctx context.Context, zone *domain.Zone) error {
	if !s.enabled {
		return nil
	}

	enemies, err := s.relations.EnemiesOf(ctx, zone.OwnerID)
	if err != nil {
		return fmt.Errorf("enemy lookup for guild %s: %w", zone.OwnerID, err)
	}
	return s.blocked.Replace(ctx, zone.ZoneID, zone.Namespace, enemies)
}

// ClearZone drops a removed zone's blocked set.
func (s *RelationSync) ClearZone(ctx context.Context, zoneID, namespace string) error {
	if !s.enabled {
		return nil
	}
	return s.blocked.Clear(ctx, zoneID, namespace)
}

func (s *RelationSync) applyToZones(ctx context.Context, zones []domain.Zone, guildID uuid.UUID, block bool) error {
	for i := range zones {
		zone := &zones[i]
		var err error
		if block {
			err = s.blocked.Block(ctx, zone.ZoneID, zone.Namespace, guildID)
		} else {
			err = s.blocked.Unblock(ctx, zone.ZoneID, zone.Namespace, guildID)
		}
		if err != nil {
			return fmt.Errorf("update blocked set for zone %s/%s: %w", zone.Namespace, zone.ZoneID, err)
		}
	}
	return nil
}
