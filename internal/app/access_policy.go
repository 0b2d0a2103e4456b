/**
 * @description
 * This file contains the access-policy evaluator: the decision logic applied
 * when a player tries to enter a guild shop zone or buy from it. The core is
 * a pair of pure functions over (access mode, ownership, blocked state) so
 * the four-mode contract lives in exactly one place per call site. The
 * surrounding Evaluator loads the facts those functions need from the store,
 * the relation authority, and the blocked-set cache.
 *
 * Decisions are side-effect-free values. The host-integration layer is
 * responsible for acting on them (cancelling movement, cancelling a purchase,
 * substituting a price).
 */

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lumalyte/guildshop-service/internal/domain"
	"github.com/lumalyte/guildshop-service/internal/store"
)

// EvaluateEntry decides whether a requester may move into a zone.
// The owner always passes without further checks; non-blocked requesters pass
// silently. Blocked requesters are handled per the zone's access mode.
func EvaluateEntry(zone *domain.Zone, isOwner, isBlocked bool) domain.EntryDecision {
	if isOwner || !isBlocked {
		return domain.EntryDecision{Allowed: true}
	}

	switch zone.AccessMode {
	case domain.AccessModeBan:
		return domain.EntryDecision{
			Allowed: false,
			Notice:  "This shop belongs to an enemy guild. You are not allowed to enter.",
		}
	case domain.AccessModeUpcharge:
		return domain.EntryDecision{
			Allowed: true,
			Notice:  fmt.Sprintf("Enemy shop: all purchases cost +%.0f%% more.", zone.UpchargePercent),
		}
	case domain.AccessModeWindowShop:
		return domain.EntryDecision{
			Allowed: true,
			Notice:  "Enemy shop: you may view items but cannot purchase.",
		}
	default: // ALLOW
		return domain.EntryDecision{Allowed: true}
	}
}

// EvaluatePurchase decides whether a requester may buy at a listed price and
// at what final price. It is evaluated independently of the entry check
// because a requester can reach a purchase interaction without ever passing
// through entry (boundary reach-through).
func EvaluatePurchase(zone *domain.Zone, isOwner, isBlocked bool, listedPrice int64) domain.PurchaseDecision {
	if isOwner || !isBlocked {
		return domain.PurchaseDecision{Allowed: true, Price: listedPrice}
	}

	switch zone.AccessMode {
	case domain.AccessModeBan:
		return domain.PurchaseDecision{
			Allowed: false,
			Price:   listedPrice,
			Reason:  "enemy guilds cannot purchase from this shop",
		}
	case domain.AccessModeWindowShop:
		return domain.PurchaseDecision{
			Allowed: false,
			Price:   listedPrice,
			Reason:  "window shopping only: purchases are blocked for enemy guilds",
		}
	case domain.AccessModeUpcharge:
		return domain.PurchaseDecision{
			Allowed: true,
			Price:   domain.UpchargedPrice(listedPrice, zone.UpchargePercent),
			Reason:  fmt.Sprintf("enemy upcharge of %.0f%% applied", zone.UpchargePercent),
		}
	default: // ALLOW
		return domain.PurchaseDecision{Allowed: true, Price: listedPrice}
	}
}

// Relations is the relation-authority collaborator: enemy enumeration and
// membership/permission lookups. Pairwise relation state arrives through the
// relation-change events instead of being polled here.
type Relations interface {
	EnemiesOf(ctx context.Context, guildID uuid.UUID) ([]uuid.UUID, error)
	GuildsOf(ctx context.Context, memberID uuid.UUID) ([]uuid.UUID, error)
	HasPermission(ctx context.Context, memberID, guildID uuid.UUID, permission string) (bool, error)
}

// Evaluator resolves the facts the pure decision functions need. When enemy
// blocking is disabled service-wide, every requester evaluates as unblocked.
type Evaluator struct {
	repo            store.Repository
	blocked         store.BlockedSetStore
	relations       Relations
	blockingEnabled bool
}

// NewEvaluator creates an access-policy evaluator.
func NewEvaluator(repo store.Repository, blocked store.BlockedSetStore, relations Relations, blockingEnabled bool) *Evaluator {
	return &Evaluator{
		repo:            repo,
		blocked:         blocked,
		relations:       relations,
		blockingEnabled: blockingEnabled,
	}
}

// CheckEntry evaluates an entry attempt by a requesting player. A zone that
// is not registered as a guild shop allows entry unconditionally.
func (e *Evaluator) CheckEntry(ctx context.Context, requesterID uuid.UUID, zoneID, namespace string) (domain.EntryDecision, error) {
	zone, isOwner, isBlocked, err := e.resolve(ctx, requesterID, zoneID, namespace)
	if err != nil {
		if errors.Is(err, store.ErrZoneNotFound) {
			return domain.EntryDecision{Allowed: true}, nil
		}
		return domain.EntryDecision{}, err
	}
	return EvaluateEntry(zone, isOwner, isBlocked), nil
}

// CheckPurchase evaluates a purchase attempt at the listed price.
func (e *Evaluator) CheckPurchase(ctx context.Context, requesterID uuid.UUID, zoneID, namespace string, listedPrice int64) (domain.PurchaseDecision, error) {
	zone, isOwner, isBlocked, err := e.resolve(ctx, requesterID, zoneID, namespace)
	if err != nil {
		if errors.Is(err, store.ErrZoneNotFound) {
			return domain.PurchaseDecision{Allowed: true, Price: listedPrice}, nil
		}
		return domain.PurchaseDecision{}, err
	}
	return EvaluatePurchase(zone, isOwner, isBlocked, listedPrice), nil
}

// resolve loads the zone and computes the requester's ownership and blocked
// state across every guild the requester belongs to: owner if any of their
// guilds owns the zone, blocked if any of their guilds is in the blocked set.
func (e *Evaluator) resolve(ctx context.Context, requesterID uuid.UUID, zoneID, namespace string) (*domain.Zone, bool, bool, error) {
	zone, err := e.repo.GetZone(ctx, zoneID, namespace)
	if err != nil {
		return nil, false, false, err
	}

	guilds, err := e.relations.GuildsOf(ctx, requesterID)
	if err != nil {
		return nil, false, false, fmt.Errorf("membership lookup: %w", err)
	}

	isOwner := false
	for _, guildID := range guilds {
		if guildID == zone.OwnerID {
			isOwner = true
			break
		}
	}
	if isOwner || !e.blockingEnabled {
		return zone, isOwner, false, nil
	}

	for _, guildID := range guilds {
		blocked, err := e.blocked.IsBlocked(ctx, zoneID, namespace, guildID)
		if err != nil {
			return nil, false, false, fmt.Errorf("blocked-set lookup: %w", err)
		}
		if blocked {
			return zone, false, true, nil
		}
	}
	return zone, false, false, nil
}
