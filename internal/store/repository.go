/**
 * @description
 * This file defines the `Repository` and `BlockedSetStore` interfaces, which
 * specify the contracts for zone/ledger persistence and for the per-zone
 * blocked-set attribute authority. Defining interfaces decouples the business
 * logic from the concrete PostgreSQL and Redis implementations and allows
 * in-memory fakes in tests.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - github.com/google/uuid: For guild and actor identifiers.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lumalyte/guildshop-service/internal/domain"
)

var (
	// ErrZoneNotFound indicates no zone row exists for a (zone_id, namespace) key.
	ErrZoneNotFound = errors.New("zone not found")
	// ErrDuplicateZone indicates a registration hit the (zone_id, namespace)
	// uniqueness constraint. The constraint lives at the storage layer so a
	// concurrent double-registration cannot slip past an application check.
	ErrDuplicateZone = errors.New("zone already registered")
	// ErrGuildNotFound indicates the owning guild does not exist upstream.
	ErrGuildNotFound = errors.New("guild not found")
	// ErrLimitExceeded indicates the owner is at its configured zone cap.
	ErrLimitExceeded = errors.New("zone limit reached")
	// ErrInsufficientFunds indicates a ledger lacks the balance for a movement.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidAccessMode indicates an unknown access mode token.
	ErrInvalidAccessMode = errors.New("invalid access mode")
	// ErrInvalidUpcharge indicates an upcharge percentage outside [0,1000].
	ErrInvalidUpcharge = errors.New("upcharge percent out of range")
	// ErrPermissionDenied indicates the caller lacks the required guild permission.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrTreasuryUnavailable indicates the treasury collaborator is unreachable.
	ErrTreasuryUnavailable = errors.New("treasury unavailable")
)

// Repository defines the set of methods for interacting with the zone and
// ledger tables.
type Repository interface {
	// Zone ownership methods. Register fails with ErrDuplicateZone if the
	// (zoneID, namespace) key already exists; no partial write occurs.
	Register(ctx context.Context, zone *domain.Zone) error
	GetZone(ctx context.Context, zoneID, namespace string) (*domain.Zone, error)
	LookupOwner(ctx context.Context, zoneID, namespace string) (uuid.UUID, error)
	ListZones(ctx context.Context, ownerID uuid.UUID) ([]domain.Zone, error)
	CountZones(ctx context.Context, ownerID uuid.UUID) (int, error)
	AllZones(ctx context.Context) ([]domain.Zone, error)
	Remove(ctx context.Context, zoneID, namespace string) error
	RemoveAll(ctx context.Context, ownerID uuid.UUID) (int, error)
	UpdateAccessMode(ctx context.Context, zoneID, namespace string, mode domain.AccessMode, upchargePercent float64) error

	// Ledger methods. The ledger is append-only: entries are never updated or
	// deleted except for PurgeLedger on guild dissolution.
	AppendLedger(ctx context.Context, entry *domain.LedgerEntry) error
	LedgerHistory(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.LedgerEntry, error)
	PurgeLedger(ctx context.Context, ownerID uuid.UUID) (int, error)
}

// BlockedSetStore is the attribute-authority adapter for per-zone blocked
// guild sets. The stored set is a cache derived from relation state: it may
// be recomputed at any time and is never a second source of truth for
// ownership. Block and Unblock are idempotent and must be serialized per
// zone by the implementation so concurrent updates from unrelated relation
// changes cannot drop each other's writes.
type BlockedSetStore interface {
	BlockedGuilds(ctx context.Context, zoneID, namespace string) ([]uuid.UUID, error)
	IsBlocked(ctx context.Context, zoneID, namespace string, guildID uuid.UUID) (bool, error)
	Block(ctx context.Context, zoneID, namespace string, guildID uuid.UUID) error
	Unblock(ctx context.Context, zoneID, namespace string, guildID uuid.UUID) error
	// Replace overwrites the full set, used by the reconciler when
	// recomputing a zone's blocked set from the relation authority.
	Replace(ctx context.Context, zoneID, namespace string, guildIDs []uuid.UUID) error
	// Clear drops the set entirely, used when a zone is removed.
	Clear(ctx context.Context, zoneID, namespace string) error
}
