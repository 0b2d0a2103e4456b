package app

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lumalyte/guildshop-service/internal/domain"
	"github.com/lumalyte/guildshop-service/internal/store"
)

// fakeRepository is an in-memory store.Repository for exercising service
// logic without a database.
type fakeRepository struct {
	zones  map[string]domain.Zone
	ledger []domain.LedgerEntry

	registerErr error
	getZoneErr  error
	appendErr   error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{zones: make(map[string]domain.Zone)}
}

func zoneKey(zoneID, namespace string) string {
	return namespace + "/" + zoneID
}

func (f *fakeRepository) Register(ctx context.Context, zone *domain.Zone) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	key := zoneKey(zone.ZoneID, zone.Namespace)
	if _, exists := f.zones[key]; exists {
		return store.ErrDuplicateZone
	}
	f.zones[key] = *zone
	return nil
}

func (f *fakeRepository) GetZone(ctx context.Context, zoneID, namespace string) (*domain.Zone, error) {
	if f.getZoneErr != nil {
		return nil, f.getZoneErr
	}
	zone, ok := f.zones[zoneKey(zoneID, namespace)]
	if !ok {
		return nil, store.ErrZoneNotFound
	}
	copied := zone
	return &copied, nil
}

func (f *fakeRepository) LookupOwner(ctx context.Context, zoneID, namespace string) (uuid.UUID, error) {
	zone, ok := f.zones[zoneKey(zoneID, namespace)]
	if !ok {
		return uuid.Nil, store.ErrZoneNotFound
	}
	return zone.OwnerID, nil
}

func (f *fakeRepository) ListZones(ctx context.Context, ownerID uuid.UUID) ([]domain.Zone, error) {
	var zones []domain.Zone
	for _, zone := range f.zones {
		if zone.OwnerID == ownerID {
			zones = append(zones, zone)
		}
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].ZoneID < zones[j].ZoneID })
	return zones, nil
}

func (f *fakeRepository) CountZones(ctx context.Context, ownerID uuid.UUID) (int, error) {
	count := 0
	for _, zone := range f.zones {
		if zone.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepository) AllZones(ctx context.Context) ([]domain.Zone, error) {
	var zones []domain.Zone
	for _, zone := range f.zones {
		zones = append(zones, zone)
	}
	sort.Slice(zones, func(i, j int) bool { return zones[i].ZoneID < zones[j].ZoneID })
	return zones, nil
}

func (f *fakeRepository) Remove(ctx context.Context, zoneID, namespace string) error {
	key := zoneKey(zoneID, namespace)
	if _, ok := f.zones[key]; !ok {
		return store.ErrZoneNotFound
	}
	delete(f.zones, key)
	return nil
}

func (f *fakeRepository) RemoveAll(ctx context.Context, ownerID uuid.UUID) (int, error) {
	removed := 0
	for key, zone := range f.zones {
		if zone.OwnerID == ownerID {
			delete(f.zones, key)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeRepository) UpdateAccessMode(ctx context.Context, zoneID, namespace string, mode domain.AccessMode, upchargePercent float64) error {
	key := zoneKey(zoneID, namespace)
	zone, ok := f.zones[key]
	if !ok {
		return store.ErrZoneNotFound
	}
	zone.AccessMode = mode
	zone.UpchargePercent = upchargePercent
	f.zones[key] = zone
	return nil
}

func (f *fakeRepository) AppendLedger(ctx context.Context, entry *domain.LedgerEntry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	recorded := *entry
	recorded.ID = int64(len(f.ledger) + 1)
	recorded.CreatedAt = time.Now().UTC()
	f.ledger = append(f.ledger, recorded)
	return nil
}

func (f *fakeRepository) LedgerHistory(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for i := len(f.ledger) - 1; i >= 0; i-- {
		if f.ledger[i].OwnerID != ownerID {
			continue
		}
		entries = append(entries, f.ledger[i])
		if limit > 0 && len(entries) == limit {
			break
		}
	}
	return entries, nil
}

func (f *fakeRepository) PurgeLedger(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var kept []domain.LedgerEntry
	purged := 0
	for _, entry := range f.ledger {
		if entry.OwnerID == ownerID {
			purged++
			continue
		}
		kept = append(kept, entry)
	}
	f.ledger = kept
	return purged, nil
}

// fakeBlockedSet is an in-memory store.BlockedSetStore.
type fakeBlockedSet struct {
	sets map[string]map[uuid.UUID]struct{}
}

func newFakeBlockedSet() *fakeBlockedSet {
	return &fakeBlockedSet{sets: make(map[string]map[uuid.UUID]struct{})}
}

func (f *fakeBlockedSet) BlockedGuilds(ctx context.Context, zoneID, namespace string) ([]uuid.UUID, error) {
	var guilds []uuid.UUID
	for guildID := range f.sets[zoneKey(zoneID, namespace)] {
		guilds = append(guilds, guildID)
	}
	return guilds, nil
}

func (f *fakeBlockedSet) IsBlocked(ctx context.Context, zoneID, namespace string, guildID uuid.UUID) (bool, error) {
	_, blocked := f.sets[zoneKey(zoneID, namespace)][guildID]
	return blocked, nil
}

func (f *fakeBlockedSet) Block(ctx context.Context, zoneID, namespace string, guildID uuid.UUID) error {
	key := zoneKey(zoneID, namespace)
	if f.sets[key] == nil {
		f.sets[key] = make(map[uuid.UUID]struct{})
	}
	f.sets[key][guildID] = struct{}{}
	return nil
}

func (f *fakeBlockedSet) Unblock(ctx context.Context, zoneID, namespace string, guildID uuid.UUID) error {
	delete(f.sets[zoneKey(zoneID, namespace)], guildID)
	return nil
}

func (f *fakeBlockedSet) Replace(ctx context.Context, zoneID, namespace string, guildIDs []uuid.UUID) error {
	replacement := make(map[uuid.UUID]struct{}, len(guildIDs))
	for _, guildID := range guildIDs {
		replacement[guildID] = struct{}{}
	}
	f.sets[zoneKey(zoneID, namespace)] = replacement
	return nil
}

func (f *fakeBlockedSet) Clear(ctx context.Context, zoneID, namespace string) error {
	delete(f.sets, zoneKey(zoneID, namespace))
	return nil
}

func (f *fakeBlockedSet) size(zoneID, namespace string) int {
	return len(f.sets[zoneKey(zoneID, namespace)])
}

// fakeRelations is a configurable Relations implementation.
type fakeRelations struct {
	enemies     map[uuid.UUID][]uuid.UUID
	memberships map[uuid.UUID][]uuid.UUID
	permissions map[string]bool
}

func newFakeRelations() *fakeRelations {
	return &fakeRelations{
		enemies:     make(map[uuid.UUID][]uuid.UUID),
		memberships: make(map[uuid.UUID][]uuid.UUID),
		permissions: make(map[string]bool),
	}
}

func (f *fakeRelations) EnemiesOf(ctx context.Context, guildID uuid.UUID) ([]uuid.UUID, error) {
	return f.enemies[guildID], nil
}

func (f *fakeRelations) GuildsOf(ctx context.Context, memberID uuid.UUID) ([]uuid.UUID, error) {
	return f.memberships[memberID], nil
}

func (f *fakeRelations) HasPermission(ctx context.Context, memberID, guildID uuid.UUID, permission string) (bool, error) {
	return f.permissions[memberID.String()+":"+guildID.String()+":"+permission], nil
}

// treasuryCall records one treasury movement for assertions.
type treasuryCall struct {
	op             string
	id             uuid.UUID
	amount         int64
	idempotencyKey string
}

// fakeTreasury is a scriptable Treasury implementation. Error fields make the
// corresponding operation fail; secondaryDepositFailures makes that many
// secondary deposits fail before succeeding (negative means always fail).
type fakeTreasury struct {
	calls []treasuryCall

	vaultWithdrawErr         error
	secondaryWithdrawErr     error
	vaultDepositErr          error
	secondaryDepositErr      error
	secondaryDepositFailures int

	vaultBalance int64
}

func (f *fakeTreasury) WithdrawFromVault(ctx context.Context, guildID uuid.UUID, amount int64, reason string) (int64, error) {
	f.calls = append(f.calls, treasuryCall{op: "vault_withdraw", id: guildID, amount: amount})
	if f.vaultWithdrawErr != nil {
		return 0, f.vaultWithdrawErr
	}
	f.vaultBalance -= amount
	return f.vaultBalance, nil
}

func (f *fakeTreasury) DepositToVault(ctx context.Context, guildID uuid.UUID, amount int64, reason, idempotencyKey string) (int64, error) {
	f.calls = append(f.calls, treasuryCall{op: "vault_deposit", id: guildID, amount: amount, idempotencyKey: idempotencyKey})
	if f.vaultDepositErr != nil {
		return 0, f.vaultDepositErr
	}
	f.vaultBalance += amount
	return f.vaultBalance, nil
}

func (f *fakeTreasury) WithdrawSecondary(ctx context.Context, holderID uuid.UUID, amount int64, reason string) (int64, error) {
	f.calls = append(f.calls, treasuryCall{op: "secondary_withdraw", id: holderID, amount: amount})
	if f.secondaryWithdrawErr != nil {
		return 0, f.secondaryWithdrawErr
	}
	return 0, nil
}

func (f *fakeTreasury) DepositSecondary(ctx context.Context, holderID uuid.UUID, amount int64, reason, idempotencyKey string) (int64, error) {
	f.calls = append(f.calls, treasuryCall{op: "secondary_deposit", id: holderID, amount: amount, idempotencyKey: idempotencyKey})
	if f.secondaryDepositFailures != 0 {
		if f.secondaryDepositFailures > 0 {
			f.secondaryDepositFailures--
		}
		return 0, f.secondaryDepositErr
	}
	return 0, nil
}

func (f *fakeTreasury) callsOf(op string) []treasuryCall {
	var matched []treasuryCall
	for _, call := range f.calls {
		if call.op == op {
			matched = append(matched, call)
		}
	}
	return matched
}
