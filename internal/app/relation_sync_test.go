package app

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lumalyte/guildshop-service/internal/domain"
)

func registerZones(t *testing.T, repo *fakeRepository, ownerID uuid.UUID, zoneIDs ...string) []domain.Zone {
	t.Helper()
	zones := make([]domain.Zone, 0, len(zoneIDs))
	for _, zoneID := range zoneIDs {
		zone := domain.Zone{
			ZoneID:     zoneID,
			Namespace:  "overworld",
			OwnerID:    ownerID,
			AccessMode: domain.AccessModeBan,
		}
		if err := repo.Register(context.Background(), &zone); err != nil {
			t.Fatalf("register %s: %v", zoneID, err)
		}
		zones = append(zones, zone)
	}
	return zones
}

func TestHandleRelationChangeBlocksBothDirections(t *testing.T) {
	repo := newFakeRepository()
	blocked := newFakeBlockedSet()
	sync := NewRelationSync(repo, blocked, newFakeRelations(), true)

	guildA := uuid.New()
	guildB := uuid.New()
	registerZones(t, repo, guildA, "a-market-1", "a-market-2")
	registerZones(t, repo, guildB, "b-market-1")

	if err := sync.HandleRelationChange(context.Background(), guildA, guildB, domain.RelationEnemy); err != nil {
		t.Fatalf("handle relation change: %v", err)
	}

	for _, zoneID := range []string{"a-market-1", "a-market-2"} {
		if got, _ := blocked.IsBlocked(context.Background(), zoneID, "overworld", guildB); !got {
			t.Fatalf("expected guild B blocked on %s", zoneID)
		}
	}
	if got, _ := blocked.IsBlocked(context.Background(), "b-market-1", "overworld", guildA); !got {
		t.Fatal("expected guild A blocked on guild B's zone")
	}
}

func TestHandleRelationChangeUnblocksWithoutTouchingOthers(t *testing.T) {
	repo := newFakeRepository()
	blocked := newFakeBlockedSet()
	sync := NewRelationSync(repo, blocked, newFakeRelations(), true)

	guildA := uuid.New()
	guildB := uuid.New()
	bystander := uuid.New()
	registerZones(t, repo, guildA, "a-market-1")

	if err := sync.HandleRelationChange(context.Background(), guildA, guildB, domain.RelationEnemy); err != nil {
		t.Fatalf("block: %v", err)
	}
	if err := blocked.Block(context.Background(), "a-market-1", "overworld", bystander); err != nil {
		t.Fatalf("block bystander: %v", err)
	}

	if err := sync.HandleRelationChange(context.Background(), guildA, guildB, domain.RelationTruce); err != nil {
		t.Fatalf("unblock: %v", err)
	}

	if got, _ := blocked.IsBlocked(context.Background(), "a-market-1", "overworld", guildB); got {
		t.Fatal("expected guild B unblocked after truce")
	}
	if got, _ := blocked.IsBlocked(context.Background(), "a-market-1", "overworld", bystander); !got {
		t.Fatal("expected unrelated blocked guild untouched")
	}
}

func TestHandleRelationChangeIdempotent(t *testing.T) {
	repo := newFakeRepository()
	blocked := newFakeBlockedSet()
	sync := NewRelationSync(repo, blocked, newFakeRelations(), true)

	guildA := uuid.New()
	guildB := uuid.New()
	registerZones(t, repo, guildA, "a-market-1")

	for i := 0; i < 3; i++ {
		if err := sync.HandleRelationChange(context.Background(), guildA, guildB, domain.RelationEnemy); err != nil {
			t.Fatalf("pass %d: %v", i+1, err)
		}
	}
	if size := blocked.size("a-market-1", "overworld"); size != 1 {
		t.Fatalf("expected set size 1 after repeated blocks, got %d", size)
	}

	for i := 0; i < 2; i++ {
		if err := sync.HandleRelationChange(context.Background(), guildA, guildB, domain.RelationNeutral); err != nil {
			t.Fatalf("unblock pass %d: %v", i+1, err)
		}
	}
	if size := blocked.size("a-market-1", "overworld"); size != 0 {
		t.Fatalf("expected empty set after repeated unblocks, got %d", size)
	}
}

func TestSeedZoneBlocksExistingEnemies(t *testing.T) {
	repo := newFakeRepository()
	blocked := newFakeBlockedSet()
	relations := newFakeRelations()

	ownerID := uuid.New()
	enemy1 := uuid.New()
	enemy2 := uuid.New()
	relations.enemies[ownerID] = []uuid.UUID{enemy1, enemy2}

	sync := NewRelationSync(repo, blocked, relations, true)
	zones := registerZones(t, repo, ownerID, "market-1")

	if err := sync.SeedZone(context.Background(), &zones[0]); err != nil {
		t.Fatalf("seed: %v", err)
	}
	for _, enemyID := range []uuid.UUID{enemy1, enemy2} {
		if got, _ := blocked.IsBlocked(context.Background(), "market-1", "overworld", enemyID); !got {
			t.Fatalf("expected enemy %s blocked on fresh zone", enemyID)
		}
	}
}

func TestRecomputeZoneOverwritesDrift(t *testing.T) {
	repo := newFakeRepository()
	blocked := newFakeBlockedSet()
	relations := newFakeRelations()

	ownerID := uuid.New()
	currentEnemy := uuid.New()
	staleEntry := uuid.New()
	relations.enemies[ownerID] = []uuid.UUID{currentEnemy}

	sync := NewRelationSync(repo, blocked, relations, true)
	zones := registerZones(t, repo, ownerID, "market-1")

	// Drift: a guild that is no longer an enemy is still in the set.
	if err := blocked.Block(context.Background(), "market-1", "overworld", staleEntry); err != nil {
		t.Fatalf("block: %v", err)
	}

	if err := sync.RecomputeZone(context.Background(), &zones[0]); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	if got, _ := blocked.IsBlocked(context.Background(), "market-1", "overworld", staleEntry); got {
		t.Fatal("expected stale entry dropped by recompute")
	}
	if got, _ := blocked.IsBlocked(context.Background(), "market-1", "overworld", currentEnemy); !got {
		t.Fatal("expected current enemy present after recompute")
	}
}

func TestRelationSyncDisabledIsNoop(t *testing.T) {
	repo := newFakeRepository()
	blocked := newFakeBlockedSet()
	relations := newFakeRelations()

	guildA := uuid.New()
	guildB := uuid.New()
	relations.enemies[guildA] = []uuid.UUID{guildB}
	zones := registerZones(t, repo, guildA, "market-1")

	sync := NewRelationSync(repo, blocked, relations, false)

	if err := sync.HandleRelationChange(context.Background(), guildA, guildB, domain.RelationEnemy); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := sync.SeedZone(context.Background(), &zones[0]); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if size := blocked.size("market-1", "overworld"); size != 0 {
		t.Fatalf("expected no blocked-set writes while disabled, got %d entries", size)
	}
}
