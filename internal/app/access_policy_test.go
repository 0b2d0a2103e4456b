package app

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lumalyte/guildshop-service/internal/domain"
)

func banZone(pct float64, mode domain.AccessMode) *domain.Zone {
	return &domain.Zone{
		ZoneID:          "market-1",
		Namespace:       "overworld",
		OwnerID:         uuid.New(),
		AccessMode:      mode,
		UpchargePercent: pct,
	}
}

func TestEvaluateEntry(t *testing.T) {
	tests := []struct {
		name        string
		mode        domain.AccessMode
		isOwner     bool
		isBlocked   bool
		wantAllowed bool
		wantNotice  bool
	}{
		{name: "owner bypasses ban", mode: domain.AccessModeBan, isOwner: true, isBlocked: true, wantAllowed: true},
		{name: "unblocked passes silently", mode: domain.AccessModeBan, wantAllowed: true},
		{name: "blocked denied under ban", mode: domain.AccessModeBan, isBlocked: true, wantAllowed: false, wantNotice: true},
		{name: "blocked enters under upcharge with notice", mode: domain.AccessModeUpcharge, isBlocked: true, wantAllowed: true, wantNotice: true},
		{name: "blocked enters under window shop with notice", mode: domain.AccessModeWindowShop, isBlocked: true, wantAllowed: true, wantNotice: true},
		{name: "blocked enters under allow silently", mode: domain.AccessModeAllow, isBlocked: true, wantAllowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := EvaluateEntry(banZone(50, tt.mode), tt.isOwner, tt.isBlocked)
			if decision.Allowed != tt.wantAllowed {
				t.Fatalf("expected allowed=%v, got %v", tt.wantAllowed, decision.Allowed)
			}
			if tt.wantNotice && decision.Notice == "" {
				t.Fatal("expected a notice, got none")
			}
			if !tt.wantNotice && decision.Notice != "" {
				t.Fatalf("expected no notice, got %q", decision.Notice)
			}
		})
	}
}

func TestEvaluatePurchase(t *testing.T) {
	tests := []struct {
		name        string
		mode        domain.AccessMode
		pct         float64
		isOwner     bool
		isBlocked   bool
		listedPrice int64
		wantAllowed bool
		wantPrice   int64
	}{
		{name: "owner pays listed price", mode: domain.AccessModeUpcharge, pct: 50, isOwner: true, isBlocked: true, listedPrice: 100, wantAllowed: true, wantPrice: 100},
		{name: "unblocked pays listed price", mode: domain.AccessModeUpcharge, pct: 50, listedPrice: 100, wantAllowed: true, wantPrice: 100},
		{name: "blocked denied under ban", mode: domain.AccessModeBan, isBlocked: true, listedPrice: 100, wantAllowed: false, wantPrice: 100},
		{name: "blocked denied under window shop", mode: domain.AccessModeWindowShop, isBlocked: true, listedPrice: 100, wantAllowed: false, wantPrice: 100},
		{name: "blocked surcharged under upcharge", mode: domain.AccessModeUpcharge, pct: 50, isBlocked: true, listedPrice: 100, wantAllowed: true, wantPrice: 150},
		{name: "zero upcharge is identity", mode: domain.AccessModeUpcharge, pct: 0, isBlocked: true, listedPrice: 100, wantAllowed: true, wantPrice: 100},
		{name: "blocked unaffected under allow", mode: domain.AccessModeAllow, isBlocked: true, listedPrice: 100, wantAllowed: true, wantPrice: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := EvaluatePurchase(banZone(tt.pct, tt.mode), tt.isOwner, tt.isBlocked, tt.listedPrice)
			if decision.Allowed != tt.wantAllowed {
				t.Fatalf("expected allowed=%v, got %v (reason %q)", tt.wantAllowed, decision.Allowed, decision.Reason)
			}
			if decision.Price != tt.wantPrice {
				t.Fatalf("expected price=%d, got %d", tt.wantPrice, decision.Price)
			}
		})
	}
}

func TestEvaluatorUnregisteredZoneAllows(t *testing.T) {
	repo := newFakeRepository()
	evaluator := NewEvaluator(repo, newFakeBlockedSet(), newFakeRelations(), true)

	entry, err := evaluator.CheckEntry(context.Background(), uuid.New(), "wilds-9", "overworld")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !entry.Allowed || entry.Notice != "" {
		t.Fatalf("expected silent allow for unregistered zone, got %+v", entry)
	}

	purchase, err := evaluator.CheckPurchase(context.Background(), uuid.New(), "wilds-9", "overworld", 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !purchase.Allowed || purchase.Price != 500 {
		t.Fatalf("expected listed-price allow for unregistered zone, got %+v", purchase)
	}
}

func TestEvaluatorResolvesAcrossMemberGuilds(t *testing.T) {
	ownerGuild := uuid.New()
	enemyGuild := uuid.New()
	otherGuild := uuid.New()
	ownerPlayer := uuid.New()
	enemyPlayer := uuid.New()

	repo := newFakeRepository()
	zone := &domain.Zone{
		ZoneID:          "market-1",
		Namespace:       "overworld",
		OwnerID:         ownerGuild,
		AccessMode:      domain.AccessModeUpcharge,
		UpchargePercent: 50,
	}
	if err := repo.Register(context.Background(), zone); err != nil {
		t.Fatalf("register: %v", err)
	}

	blocked := newFakeBlockedSet()
	if err := blocked.Block(context.Background(), zone.ZoneID, zone.Namespace, enemyGuild); err != nil {
		t.Fatalf("block: %v", err)
	}

	relations := newFakeRelations()
	// The owner-side player belongs to an unrelated guild first; ownership
	// must still be detected from any membership.
	relations.memberships[ownerPlayer] = []uuid.UUID{otherGuild, ownerGuild}
	relations.memberships[enemyPlayer] = []uuid.UUID{otherGuild, enemyGuild}

	evaluator := NewEvaluator(repo, blocked, relations, true)

	decision, err := evaluator.CheckPurchase(context.Background(), ownerPlayer, zone.ZoneID, zone.Namespace, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Allowed || decision.Price != 100 {
		t.Fatalf("expected owner to pay listed price, got %+v", decision)
	}

	decision, err = evaluator.CheckPurchase(context.Background(), enemyPlayer, zone.ZoneID, zone.Namespace, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Allowed || decision.Price != 150 {
		t.Fatalf("expected surcharged price 150, got %+v", decision)
	}
	if !strings.Contains(decision.Reason, "50") {
		t.Fatalf("expected reason to name the percentage, got %q", decision.Reason)
	}
}

func TestEvaluatorBlockingDisabled(t *testing.T) {
	ownerGuild := uuid.New()
	enemyGuild := uuid.New()
	enemyPlayer := uuid.New()

	repo := newFakeRepository()
	zone := &domain.Zone{
		ZoneID:     "market-1",
		Namespace:  "overworld",
		OwnerID:    ownerGuild,
		AccessMode: domain.AccessModeBan,
	}
	if err := repo.Register(context.Background(), zone); err != nil {
		t.Fatalf("register: %v", err)
	}

	blocked := newFakeBlockedSet()
	if err := blocked.Block(context.Background(), zone.ZoneID, zone.Namespace, enemyGuild); err != nil {
		t.Fatalf("block: %v", err)
	}
	relations := newFakeRelations()
	relations.memberships[enemyPlayer] = []uuid.UUID{enemyGuild}

	evaluator := NewEvaluator(repo, blocked, relations, false)

	decision, err := evaluator.CheckEntry(context.Background(), enemyPlayer, zone.ZoneID, zone.Namespace)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("expected entry allowed when blocking is disabled, got %+v", decision)
	}
}
