/**
 * @description
 * This file contains the AMQP event handlers that connect upstream
 * notifications to the core services: relation changes from the guild
 * platform, completed-sale notices from the region marketplace, and guild
 * dissolution events. Handlers return true to acknowledge a delivery and
 * false to have it re-queued.
 */

package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lumalyte/guildshop-service/internal/domain"
	"github.com/lumalyte/guildshop-service/internal/store"
)

const eventHandlerTimeout = 15 * time.Second

// EventConsumer dispatches upstream events to the synchronizer, payment
// router, and shop service.
type EventConsumer struct {
	sync   *RelationSync
	router *PaymentRouter
	shop   *ShopService
}

// NewEventConsumer creates an event consumer.
func NewEventConsumer(sync *RelationSync, router *PaymentRouter, shop *ShopService) *EventConsumer {
	return &EventConsumer{sync: sync, router: router, shop: shop}
}

// HandleRelationChanged applies a relation-change notification to the
// blocked sets of every zone both guilds own.
func (c *EventConsumer) HandleRelationChanged(body []byte) bool {
	var event domain.RelationChangedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("level=warn component=event_consumer msg=\"relation event unmarshal failed; dropping\" err=%v", err)
		return true
	}
	if event.GuildA == uuid.Nil || event.GuildB == uuid.Nil {
		log.Printf("level=warn component=event_consumer msg=\"relation event missing guild ids; dropping\" event_id=%s", event.EventID)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventHandlerTimeout)
	defer cancel()

	if err := c.sync.HandleRelationChange(ctx, event.GuildA, event.GuildB, event.Relation); err != nil {
		log.Printf("level=warn component=event_consumer msg=\"relation change processing failed; re-queuing\" guild_a=%s guild_b=%s err=%v", event.GuildA, event.GuildB, err)
		return false
	}
	return true
}

// HandleShopSale routes a completed sale's income through the treasury.
// Sales in zones this service does not track are acknowledged and ignored.
func (c *EventConsumer) HandleShopSale(body []byte) bool {
	var event domain.ShopSaleCompletedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("level=warn component=event_consumer msg=\"sale event unmarshal failed; dropping\" err=%v", err)
		return true
	}
	if event.SaleID == uuid.Nil || event.PricePaid <= 0 {
		log.Printf("level=warn component=event_consumer msg=\"sale event malformed; dropping\" sale_id=%s price=%d", event.SaleID, event.PricePaid)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventHandlerTimeout)
	defer cancel()

	zone, err := c.shop.GetZone(ctx, event.ZoneID, event.Namespace)
	if err != nil {
		if errors.Is(err, store.ErrZoneNotFound) {
			log.Printf("level=info component=event_consumer msg=\"sale outside tracked zones; dropping\" zone_id=%s namespace=%s", event.ZoneID, event.Namespace)
			return true
		}
		// Store unavailable. No money has moved yet, so re-queuing is safe.
		log.Printf("level=warn component=event_consumer msg=\"zone lookup failed; re-queuing\" zone_id=%s namespace=%s err=%v", event.ZoneID, event.Namespace, err)
		return false
	}
	if zone.OwnerID != event.OwnerID {
		log.Printf("level=warn component=event_consumer msg=\"sale owner mismatch; dropping\" zone_id=%s expected=%s got=%s", event.ZoneID, zone.OwnerID, event.OwnerID)
		return true
	}

	outcome := c.router.RouteIncome(ctx, event)
	if !outcome.Success {
		log.Printf("level=warn component=event_consumer msg=\"income routing failed\" sale_id=%s reason=%q", event.SaleID, outcome.Reason)
	}
	// Acknowledge either way: RouteIncome already compensated, and a redelivery
	// would re-run the secondary withdrawal.
	return true
}

// HandleGuildDisbanded removes a dissolved guild's zones and purges its
// ledger history.
func (c *EventConsumer) HandleGuildDisbanded(body []byte) bool {
	var event domain.GuildDisbandedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("level=warn component=event_consumer msg=\"disband event unmarshal failed; dropping\" err=%v", err)
		return true
	}
	if event.GuildID == uuid.Nil {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventHandlerTimeout)
	defer cancel()

	zones, err := c.shop.ListZones(ctx, event.GuildID)
	if err != nil {
		log.Printf("level=warn component=event_consumer msg=\"disband zone listing failed; re-queuing\" guild_id=%s err=%v", event.GuildID, err)
		return false
	}

	removed, err := c.shop.RemoveAllZones(ctx, event.GuildID)
	if err != nil {
		log.Printf("level=warn component=event_consumer msg=\"disband zone removal failed; re-queuing\" guild_id=%s err=%v", event.GuildID, err)
		return false
	}

	for i := range zones {
		if err := c.sync.ClearZone(ctx, zones[i].ZoneID, zones[i].Namespace); err != nil {
			log.Printf("level=warn component=event_consumer msg=\"blocked-set clear failed on disband\" zone_id=%s err=%v", zones[i].ZoneID, err)
		}
	}

	purged, err := c.shop.PurgeLedger(ctx, event.GuildID)
	if err != nil {
		log.Printf("level=warn component=event_consumer msg=\"ledger purge failed\" guild_id=%s err=%v", event.GuildID, err)
	}

	log.Printf("level=info component=event_consumer msg=\"guild dissolved\" guild_id=%s zones_removed=%d ledger_purged=%d", event.GuildID, removed, purged)
	return true
}
