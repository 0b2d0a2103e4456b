/**
 * @description
 * This file contains the shop service: registration and removal invariants on
 * top of the ownership store. It enforces the per-guild zone cap, applies the
 * configured default access mode to new zones, and emits PURCHASE/REMOVAL
 * ledger entries as best-effort side effects of ownership mutations.
 *
 * @notes
 * - Ledger appends are advisory relative to the ownership mutation they
 *   accompany: a failed append is logged and the mutation stands. Financial
 *   truth lives in the treasury; the ledger is an audit trail.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lumalyte/guildshop-service/internal/domain"
	"github.com/lumalyte/guildshop-service/internal/store"
)

const ownerCacheTTL = 30 * time.Second

// ShopService enforces zone registration and removal invariants.
type ShopService struct {
	repo             store.Repository
	maxZonesPerGuild int
	defaultMode      domain.AccessMode
	defaultUpcharge  float64
	owners           *ownerCache
}

// NewShopService creates a shop service. maxZonesPerGuild of 0 means unlimited.
func NewShopService(repo store.Repository, maxZonesPerGuild int, defaultMode domain.AccessMode, defaultUpcharge float64) *ShopService {
	return &ShopService{
		repo:             repo,
		maxZonesPerGuild: maxZonesPerGuild,
		defaultMode:      defaultMode,
		defaultUpcharge:  defaultUpcharge,
		owners:           newOwnerCache(ownerCacheTTL),
	}
}

// HasReachedLimit reports whether the guild is at its zone cap. It is pure
// and side-effect-free so callers can pre-check before initiating a payment
// flow and avoid a wasted withdrawal.
func (s *ShopService) HasReachedLimit(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	if s.maxZonesPerGuild <= 0 {
		return false, nil
	}
	count, err := s.repo.CountZones(ctx, ownerID)
	if err != nil {
		return false, fmt.Errorf("count zones: %w", err)
	}
	return count >= s.maxZonesPerGuild, nil
}

// RegisterZone records a purchased zone for a guild. The cap is re-checked
// here, and the storage-layer uniqueness constraint is the final word on
// double registration. A PURCHASE ledger entry is appended best-effort.
func (s *ShopService) RegisterZone(ctx context.Context, zoneID, namespace string, ownerID uuid.UUID, price int64, actorID *uuid.UUID) (*domain.Zone, error) {
	limited, err := s.HasReachedLimit(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if limited {
		return nil, store.ErrLimitExceeded
	}

	zone := &domain.Zone{
		ZoneID:          zoneID,
		Namespace:       namespace,
		OwnerID:         ownerID,
		PurchasePrice:   price,
		PurchasedAt:     time.Now().UTC(),
		AccessMode:      s.defaultMode,
		UpchargePercent: s.defaultUpcharge,
	}
	if err := s.repo.Register(ctx, zone); err != nil {
		return nil, err
	}
	s.owners.put(zoneID, namespace, ownerID)

	s.appendLedger(ctx, &domain.LedgerEntry{
		OwnerID:     ownerID,
		ZoneID:      zoneID,
		Kind:        domain.LedgerKindPurchase,
		Amount:      price,
		Description: "shop zone purchased",
		ActorID:     actorID,
	})

	log.Printf("level=info component=shop_service msg=\"zone registered\" zone_id=%s namespace=%s owner_id=%s price=%d", zoneID, namespace, ownerID, price)
	return zone, nil
}

// RemoveZone deletes a zone and appends a REMOVAL ledger entry best-effort.
func (s *ShopService) RemoveZone(ctx context.Context, zoneID, namespace string, actorID *uuid.UUID) error {
	ownerID, err := s.repo.LookupOwner(ctx, zoneID, namespace)
	if err != nil {
		return err
	}
	if err := s.repo.Remove(ctx, zoneID, namespace); err != nil {
		return err
	}
	s.owners.invalidate(zoneID, namespace)

	s.appendLedger(ctx, &domain.LedgerEntry{
		OwnerID:     ownerID,
		ZoneID:      zoneID,
		Kind:        domain.LedgerKindRemoval,
		Amount:      0,
		Description: "shop zone removed",
		ActorID:     actorID,
	})

	log.Printf("level=info component=shop_service msg=\"zone removed\" zone_id=%s namespace=%s owner_id=%s", zoneID, namespace, ownerID)
	return nil
}

// RemoveAllZones deletes every zone a guild owns and returns the count.
// Used on guild dissolution; the caller decides whether to purge the ledger.
func (s *ShopService) RemoveAllZones(ctx context.Context, ownerID uuid.UUID) (int, error) {
	count, err := s.repo.RemoveAll(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	s.owners.invalidateAll()
	if count > 0 {
		log.Printf("level=info component=shop_service msg=\"all zones removed\" owner_id=%s count=%d", ownerID, count)
	}
	return count, nil
}

// UpdateAccessMode validates and applies a new enforcement mode. The upcharge
// percentage is optional; when omitted the zone's stored percentage is
// retained so switching back to UPCHARGE restores the previous value.
func (s *ShopService) UpdateAccessMode(ctx context.Context, zoneID, namespace, modeToken string, upchargePercent *float64) (*domain.Zone, error) {
	mode, err := domain.ParseAccessMode(modeToken)
	if err != nil {
		return nil, store.ErrInvalidAccessMode
	}

	zone, err := s.repo.GetZone(ctx, zoneID, namespace)
	if err != nil {
		return nil, err
	}

	pct := zone.UpchargePercent
	if upchargePercent != nil {
		if !domain.ValidUpchargePercent(*upchargePercent) {
			return nil, store.ErrInvalidUpcharge
		}
		pct = *upchargePercent
	}

	if err := s.repo.UpdateAccessMode(ctx, zoneID, namespace, mode, pct); err != nil {
		return nil, err
	}
	zone.AccessMode = mode
	zone.UpchargePercent = pct
	log.Printf("level=info component=shop_service msg=\"access mode updated\" zone_id=%s namespace=%s mode=%s upcharge=%.1f", zoneID, namespace, mode, pct)
	return zone, nil
}

// GetZone returns the full zone record.
func (s *ShopService) GetZone(ctx context.Context, zoneID, namespace string) (*domain.Zone, error) {
	return s.repo.GetZone(ctx, zoneID, namespace)
}

// ListZones returns every zone a guild owns.
func (s *ShopService) ListZones(ctx context.Context, ownerID uuid.UUID) ([]domain.Zone, error) {
	return s.repo.ListZones(ctx, ownerID)
}

// LookupOwner resolves a zone's owning guild through the write-through cache.
func (s *ShopService) LookupOwner(ctx context.Context, zoneID, namespace string) (uuid.UUID, error) {
	if ownerID, ok := s.owners.get(zoneID, namespace); ok {
		return ownerID, nil
	}
	ownerID, err := s.repo.LookupOwner(ctx, zoneID, namespace)
	if err != nil {
		return uuid.Nil, err
	}
	s.owners.put(zoneID, namespace, ownerID)
	return ownerID, nil
}

// LedgerHistory returns a guild's ledger, most recent first.
func (s *ShopService) LedgerHistory(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	return s.repo.LedgerHistory(ctx, ownerID, limit)
}

// PurgeLedger bulk-deletes a dissolved guild's ledger history.
func (s *ShopService) PurgeLedger(ctx context.Context, ownerID uuid.UUID) (int, error) {
	return s.repo.PurgeLedger(ctx, ownerID)
}

func (s *ShopService) appendLedger(ctx context.Context, entry *domain.LedgerEntry) {
	if err := s.repo.AppendLedger(ctx, entry); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("level=warn component=shop_service msg=\"ledger append failed; ownership mutation stands\" owner_id=%s zone_id=%s kind=%s err=%v",
			entry.OwnerID, entry.ZoneID, entry.Kind, err)
	}
}
