/**
 * @description
 * This file defines the core domain models for the guildshop-service.
 * These structs represent the main entities used throughout the service's
 * business logic, database interactions, and API layers.
 *
 * @notes
 * - Amounts are stored as `int64` to represent the value in the smallest currency
 *   unit, which avoids floating-point inaccuracies with financial data.
 * - Zone identity is the (zone_id, namespace) pair supplied by the region
 *   marketplace; guilds and players are identified by UUIDs.
 */

package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AccessMode is the enforcement policy applied to blocked guilds for a zone.
type AccessMode string

const (
	// AccessModeBan denies blocked guilds entry and purchase entirely.
	AccessModeBan AccessMode = "BAN"
	// AccessModeUpcharge allows access but applies a percentage surcharge to purchases.
	AccessModeUpcharge AccessMode = "UPCHARGE"
	// AccessModeWindowShop allows entry but denies purchases.
	AccessModeWindowShop AccessMode = "WINDOW_SHOP"
	// AccessModeAllow grants blocked guilds full, unmodified access.
	AccessModeAllow AccessMode = "ALLOW"
)

const (
	// MinUpchargePercent and MaxUpchargePercent bound the configurable surcharge.
	MinUpchargePercent float64 = 0
	MaxUpchargePercent float64 = 1000
)

// ParseAccessMode converts a mode token into an AccessMode. The match is
// case-insensitive; unknown tokens return an error rather than a default so
// callers can surface the bad input.
func ParseAccessMode(token string) (AccessMode, error) {
	switch AccessMode(strings.ToUpper(strings.TrimSpace(token))) {
	case AccessModeBan:
		return AccessModeBan, nil
	case AccessModeUpcharge:
		return AccessModeUpcharge, nil
	case AccessModeWindowShop:
		return AccessModeWindowShop, nil
	case AccessModeAllow:
		return AccessModeAllow, nil
	default:
		return "", fmt.Errorf("unknown access mode %q", token)
	}
}

// ValidUpchargePercent reports whether pct is inside the accepted [0,1000] range.
func ValidUpchargePercent(pct float64) bool {
	return pct >= MinUpchargePercent && pct <= MaxUpchargePercent
}

// UpchargedPrice applies the surcharge percentage to a listed price.
// A 50% upcharge on 100 yields 150.
func UpchargedPrice(price int64, pct float64) int64 {
	return int64(math.Round(float64(price) * (1 + pct/100)))
}

// Zone represents a guild-owned commerce zone. It maps directly to the
// `guild_shop_zones` table; at most one row exists per (zone_id, namespace).
type Zone struct {
	ZoneID          string     `json:"zone_id"`
	Namespace       string     `json:"namespace"`
	OwnerID         uuid.UUID  `json:"owner_id"`
	PurchasePrice   int64      `json:"purchase_price"`
	PurchasedAt     time.Time  `json:"purchased_at"`
	AccessMode      AccessMode `json:"access_mode"`
	UpchargePercent float64    `json:"upcharge_percent"`
}

// LedgerKind classifies a ledger entry.
type LedgerKind string

const (
	LedgerKindPurchase LedgerKind = "PURCHASE"
	LedgerKindRemoval  LedgerKind = "REMOVAL"
	LedgerKindIncome   LedgerKind = "INCOME"
	LedgerKindExpense  LedgerKind = "EXPENSE"
)

// LedgerEntry is an immutable audit record of a financial or ownership event.
// Entries are append-only; nothing in this service updates or deletes one
// except the bulk purge on guild dissolution.
type LedgerEntry struct {
	ID          int64      `json:"id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	ZoneID      string     `json:"zone_id"`
	Kind        LedgerKind `json:"kind"`
	Amount      int64      `json:"amount"`
	Description string     `json:"description"`
	ActorID     *uuid.UUID `json:"actor_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// WithdrawalOutcome is the result of a treasury withdrawal. It is always
// returned as a value, never raised as control flow.
type WithdrawalOutcome struct {
	Success          bool   `json:"success"`
	Reason           string `json:"reason,omitempty"`
	RemainingBalance int64  `json:"remaining_balance,omitempty"`
}

// DepositOutcome is the result of routing income into a guild treasury.
type DepositOutcome struct {
	Success    bool   `json:"success"`
	Reason     string `json:"reason,omitempty"`
	NewBalance int64  `json:"new_balance,omitempty"`
}

// EntryDecision is the evaluator's verdict on a zone entry attempt. Notice
// carries the human-readable message the host layer shows the player; it is
// empty when no message should be surfaced.
type EntryDecision struct {
	Allowed bool   `json:"allowed"`
	Notice  string `json:"notice,omitempty"`
}

// PurchaseDecision is the evaluator's verdict on a purchase attempt. Price is
// the amount the buyer must pay, which differs from the listed price only
// under UPCHARGE. Reason explains a denial or an applied surcharge for audit
// and user display.
type PurchaseDecision struct {
	Allowed bool   `json:"allowed"`
	Price   int64  `json:"price"`
	Reason  string `json:"reason,omitempty"`
}

// RelationType is the pairwise relation state between two guilds as reported
// by the relation authority.
type RelationType string

const (
	RelationAlly    RelationType = "ALLY"
	RelationTruce   RelationType = "TRUCE"
	RelationNeutral RelationType = "NEUTRAL"
	RelationEnemy   RelationType = "ENEMY"
)

// Hostile reports whether the relation triggers shop blocking.
func (r RelationType) Hostile() bool {
	return strings.EqualFold(string(r), string(RelationEnemy))
}
