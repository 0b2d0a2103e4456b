/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface. It contains all the SQL queries for the zone ownership table and
 * the append-only transaction ledger.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumalyte/guildshop-service/internal/domain"
)

const uniqueViolationCode = "23505"

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the zone and ledger tables and their indexes if they
// do not exist yet. The UNIQUE constraint on (zone_id, namespace) is the
// authoritative guard against double registration.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS guild_shop_zones (
			zone_id          TEXT NOT NULL,
			namespace        TEXT NOT NULL,
			owner_id         UUID NOT NULL,
			purchase_price   BIGINT NOT NULL,
			purchased_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			access_mode      TEXT NOT NULL DEFAULT 'BAN',
			upcharge_percent DOUBLE PRECISION NOT NULL DEFAULT 50,
			PRIMARY KEY (zone_id, namespace)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_guild_shop_zones_owner ON guild_shop_zones (owner_id)`,
		`CREATE TABLE IF NOT EXISTS guild_shop_ledger (
			id          BIGSERIAL PRIMARY KEY,
			owner_id    UUID NOT NULL,
			zone_id     TEXT NOT NULL,
			kind        TEXT NOT NULL,
			amount      BIGINT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			actor_id    UUID,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_guild_shop_ledger_owner ON guild_shop_ledger (owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_guild_shop_ledger_owner_created ON guild_shop_ledger (owner_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Register inserts a new zone row. The insert is a single statement, so a
// duplicate key leaves no partial write behind.
func (r *PostgresRepository) Register(ctx context.Context, zone *domain.Zone) error {
	if zone.PurchasedAt.IsZero() {
		zone.PurchasedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO guild_shop_zones (zone_id, namespace, owner_id, purchase_price, purchased_at, access_mode, upcharge_percent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		zone.ZoneID, zone.Namespace, zone.OwnerID, zone.PurchasePrice,
		zone.PurchasedAt, string(zone.AccessMode), zone.UpchargePercent,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrDuplicateZone
		}
		return err
	}
	return nil
}

// GetZone retrieves a single zone by its (zone_id, namespace) key.
func (r *PostgresRepository) GetZone(ctx context.Context, zoneID, namespace string) (*domain.Zone, error) {
	query := `
		SELECT zone_id, namespace, owner_id, purchase_price, purchased_at, access_mode, upcharge_percent
		FROM guild_shop_zones
		WHERE zone_id = $1 AND namespace = $2
	`
	row := r.db.QueryRow(ctx, query, zoneID, namespace)
	zone, err := scanZone(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrZoneNotFound
		}
		return nil, err
	}
	return zone, nil
}

// LookupOwner resolves the owning guild for a zone.
func (r *PostgresRepository) LookupOwner(ctx context.Context, zoneID, namespace string) (uuid.UUID, error) {
	var ownerID uuid.UUID
	query := `SELECT owner_id FROM guild_shop_zones WHERE zone_id = $1 AND namespace = $2`
	err := r.db.QueryRow(ctx, query, zoneID, namespace).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrZoneNotFound
		}
		return uuid.Nil, err
	}
	return ownerID, nil
}

// ListZones returns every zone owned by a guild.
func (r *PostgresRepository) ListZones(ctx context.Context, ownerID uuid.UUID) ([]domain.Zone, error) {
	query := `
		SELECT zone_id, namespace, owner_id, purchase_price, purchased_at, access_mode, upcharge_percent
		FROM guild_shop_zones
		WHERE owner_id = $1
		ORDER BY purchased_at
	`
	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []domain.Zone
	for rows.Next() {
		zone, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		zones = append(zones, *zone)
	}
	return zones, rows.Err()
}

// AllZones returns every registered zone. Used by the blocked-set reconciler.
func (r *PostgresRepository) AllZones(ctx context.Context) ([]domain.Zone, error) {
	query := `
		SELECT zone_id, namespace, owner_id, purchase_price, purchased_at, access_mode, upcharge_percent
		FROM guild_shop_zones
		ORDER BY namespace, zone_id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []domain.Zone
	for rows.Next() {
		zone, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		zones = append(zones, *zone)
	}
	return zones, rows.Err()
}

// CountZones returns the number of zones owned by a guild.
func (r *PostgresRepository) CountZones(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM guild_shop_zones WHERE owner_id = $1`, ownerID).Scan(&count)
	return count, err
}

// Remove deletes a single zone row.
func (r *PostgresRepository) Remove(ctx context.Context, zoneID, namespace string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM guild_shop_zones WHERE zone_id = $1 AND namespace = $2`, zoneID, namespace)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrZoneNotFound
	}
	return nil
}

// RemoveAll deletes every zone owned by a guild and returns the count.
func (r *PostgresRepository) RemoveAll(ctx context.Context, ownerID uuid.UUID) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM guild_shop_zones WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// UpdateAccessMode sets the enforcement mode and upcharge percentage for a
// zone. Range validation of the percentage happens at the caller boundary
// (shop service); the value is stored verbatim here so a later switch back to
// UPCHARGE restores the last configured percentage.
func (r *PostgresRepository) UpdateAccessMode(ctx context.Context, zoneID, namespace string, mode domain.AccessMode, upchargePercent float64) error {
	query := `
		UPDATE guild_shop_zones
		SET access_mode = $1, upcharge_percent = $2
		WHERE zone_id = $3 AND namespace = $4
	`
	tag, err := r.db.Exec(ctx, query, string(mode), upchargePercent, zoneID, namespace)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrZoneNotFound
	}
	return nil
}

// AppendLedger writes one immutable ledger entry. Failures are logged with
// enough context to replay the append by hand; the accompanying ownership
// mutation is never rolled back on a ledger failure.
func (r *PostgresRepository) AppendLedger(ctx context.Context, entry *domain.LedgerEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO guild_shop_ledger (owner_id, zone_id, kind, amount, description, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		entry.OwnerID, entry.ZoneID, string(entry.Kind), entry.Amount,
		entry.Description, entry.ActorID, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		log.Printf("level=error component=store msg=\"ledger append failed\" owner_id=%s zone_id=%s kind=%s amount=%d err=%v",
			entry.OwnerID, entry.ZoneID, entry.Kind, entry.Amount, err)
		return err
	}
	return nil
}

// LedgerHistory returns a guild's ledger entries, most recent first, up to
// the requested limit. A non-positive limit falls back to a sane page size.
func (r *PostgresRepository) LedgerHistory(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, owner_id, zone_id, kind, amount, description, actor_id, created_at
		FROM guild_shop_ledger
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var entry domain.LedgerEntry
		var kind string
		if err := rows.Scan(&entry.ID, &entry.OwnerID, &entry.ZoneID, &kind,
			&entry.Amount, &entry.Description, &entry.ActorID, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Kind = domain.LedgerKind(strings.ToUpper(kind))
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// PurgeLedger bulk-deletes a guild's ledger on dissolution. This is the only
// path that ever removes ledger rows.
func (r *PostgresRepository) PurgeLedger(ctx context.Context, ownerID uuid.UUID) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM guild_shop_ledger WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanZone(row rowScanner) (*domain.Zone, error) {
	var zone domain.Zone
	var mode string
	err := row.Scan(&zone.ZoneID, &zone.Namespace, &zone.OwnerID,
		&zone.PurchasePrice, &zone.PurchasedAt, &mode, &zone.UpchargePercent)
	if err != nil {
		return nil, err
	}
	zone.AccessMode = normalizeAccessMode(mode)
	return &zone, nil
}

// normalizeAccessMode maps a stored mode string onto the closed mode set,
// defaulting to BAN for anything unrecognized so a corrupted row fails safe.
func normalizeAccessMode(raw string) domain.AccessMode {
	mode, err := domain.ParseAccessMode(raw)
	if err != nil {
		return domain.AccessModeBan
	}
	return mode
}
