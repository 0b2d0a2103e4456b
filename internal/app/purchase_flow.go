/**
 * @description
 * This file contains the purchase flow: the orchestration that runs when the
 * region marketplace intercepts a zone purchase attempt. The flow validates
 * the guild's zone cap before any money moves, withdraws the price from the
 * guild treasury, registers the zone, and seeds its blocked set, in that
 * order, so a zone is never registered before its payment succeeded, and a
 * paid-but-unregisterable zone is refunded.
 */

package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lumalyte/guildshop-service/internal/domain"
	"github.com/lumalyte/guildshop-service/internal/store"
	"github.com/lumalyte/guildshop-service/pkg/rabbitmq"
)

// PurchaseResult tells the marketplace intercept what to do with the attempt.
// When TreasuryHandled is true the marketplace must not run its own
// player-balance transfer; this service already moved the funds.
type PurchaseResult struct {
	Allowed         bool         `json:"allowed"`
	TreasuryHandled bool         `json:"treasury_handled"`
	Reason          string       `json:"reason,omitempty"`
	Zone            *domain.Zone `json:"zone,omitempty"`
}

// PurchaseFlow coordinates the shop service, payment router, and relation
// synchronizer for zone purchases and removals.
type PurchaseFlow struct {
	shop      *ShopService
	router    *PaymentRouter
	sync      *RelationSync
	relations Relations
	producer  rabbitmq.Publisher
}

// NewPurchaseFlow creates a purchase flow orchestrator.
func NewPurchaseFlow(shop *ShopService, router *PaymentRouter, sync *RelationSync, relations Relations, producer rabbitmq.Publisher) *PurchaseFlow {
	return &PurchaseFlow{
		shop:      shop,
		router:    router,
		sync:      sync,
		relations: relations,
		producer:  producer,
	}
}

// HandlePurchase processes a purchase intercept for a requesting player.
// Players without a guild fall through to the marketplace's normal personal
// purchase handling (allowed, not treasury-handled).
func (f *PurchaseFlow) HandlePurchase(ctx context.Context, requesterID uuid.UUID, zoneID, namespace string, price int64) (PurchaseResult, error) {
	guilds, err := f.relations.GuildsOf(ctx, requesterID)
	if err != nil {
		return PurchaseResult{}, err
	}
	if len(guilds) == 0 {
		return PurchaseResult{Allowed: true, TreasuryHandled: false}, nil
	}
	guildID := guilds[0]

	limited, err := f.shop.HasReachedLimit(ctx, guildID)
	if err != nil {
		return PurchaseResult{}, err
	}
	if limited {
		return PurchaseResult{
			Allowed: false,
			Reason:  "guild has reached its shop zone limit",
		}, nil
	}

	outcome := f.router.Withdraw(ctx, guildID, price, "shop zone purchase: "+zoneID)
	if !outcome.Success {
		return PurchaseResult{Allowed: false, Reason: outcome.Reason}, nil
	}

	zone, err := f.shop.RegisterZone(ctx, zoneID, namespace, guildID, price, &requesterID)
	if err != nil {
		// The withdrawal already happened; put the money back.
		f.router.RefundPurchase(ctx, guildID, price, zoneID)
		if errors.Is(err, store.ErrDuplicateZone) {
			return PurchaseResult{Allowed: false, Reason: "zone is already registered to a guild"}, nil
		}
		if errors.Is(err, store.ErrLimitExceeded) {
			return PurchaseResult{Allowed: false, Reason: "guild has reached its shop zone limit"}, nil
		}
		return PurchaseResult{}, err
	}

	if err := f.sync.SeedZone(ctx, zone); err != nil {
		log.Printf("level=warn component=purchase_flow msg=\"blocked-set seeding failed; reconciler will repair\" zone_id=%s namespace=%s err=%v", zoneID, namespace, err)
	}

	f.publish(ctx, rabbitmq.RoutingKeyZonePurchased, zone)
	return PurchaseResult{Allowed: true, TreasuryHandled: true, Zone: zone}, nil
}

// HandleRemoval removes a zone, clears its blocked set, and publishes the
// removal event.
func (f *PurchaseFlow) HandleRemoval(ctx context.Context, zoneID, namespace string, actorID *uuid.UUID) error {
	zone, err := f.shop.GetZone(ctx, zoneID, namespace)
	if err != nil {
		return err
	}
	if err := f.shop.RemoveZone(ctx, zoneID, namespace, actorID); err != nil {
		return err
	}
	if err := f.sync.ClearZone(ctx, zoneID, namespace); err != nil {
		log.Printf("level=warn component=purchase_flow msg=\"blocked-set clear failed\" zone_id=%s namespace=%s err=%v", zoneID, namespace, err)
	}
	f.publish(ctx, rabbitmq.RoutingKeyZoneRemoved, zone)
	return nil
}

func (f *PurchaseFlow) publish(ctx context.Context, routingKey string, zone *domain.Zone) {
	event := rabbitmq.ZoneEvent{
		ZoneID:     zone.ZoneID,
		Namespace:  zone.Namespace,
		OwnerID:    zone.OwnerID,
		Price:      zone.PurchasePrice,
		OccurredAt: time.Now().UTC(),
	}
	if err := f.producer.PublishZoneEvent(ctx, routingKey, event); err != nil {
		log.Printf("level=warn component=purchase_flow msg=\"zone event publish failed\" routing_key=%s zone_id=%s err=%v", routingKey, zone.ZoneID, err)
	}
}
