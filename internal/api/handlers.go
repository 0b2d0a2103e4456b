/**
 * @description
 * This file contains the HTTP handlers for the guildshop-service's API
 * endpoints. Handlers are responsible for parsing incoming requests, calling
 * the appropriate methods on the application services, and writing the HTTP
 * response. They act as the bridge between the host-integration layer (the
 * marketplace plugin intercepting entries and purchases) and the business
 * logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lumalyte/guildshop-service/internal/app"
	"github.com/lumalyte/guildshop-service/internal/domain"
	"github.com/lumalyte/guildshop-service/internal/store"
)

// ManageShopPermission is the relation-authority permission required to
// change a zone's access mode or remove a zone on a guild's behalf.
const ManageShopPermission = "shop.manage"

// ShopHandlers holds the application services that handlers will use.
type ShopHandlers struct {
	evaluator *app.Evaluator
	flow      *app.PurchaseFlow
	shop      *app.ShopService
	relations app.Relations
}

// NewShopHandlers creates a new instance of ShopHandlers.
func NewShopHandlers(evaluator *app.Evaluator, flow *app.PurchaseFlow, shop *app.ShopService, relations app.Relations) *ShopHandlers {
	return &ShopHandlers{
		evaluator: evaluator,
		flow:      flow,
		shop:      shop,
		relations: relations,
	}
}

type entryCheckRequest struct {
	RequesterID uuid.UUID `json:"requester_id"`
	ZoneID      string    `json:"zone_id"`
	Namespace   string    `json:"namespace"`
}

type purchaseCheckRequest struct {
	RequesterID uuid.UUID `json:"requester_id"`
	ZoneID      string    `json:"zone_id"`
	Namespace   string    `json:"namespace"`
	ListedPrice int64     `json:"listed_price"`
}

type zonePurchaseRequest struct {
	RequesterID uuid.UUID `json:"requester_id"`
	ZoneID      string    `json:"zone_id"`
	Namespace   string    `json:"namespace"`
	Price       int64     `json:"price"`
}

type accessModeUpdateRequest struct {
	RequesterID     uuid.UUID `json:"requester_id"`
	Mode            string    `json:"mode"`
	UpchargePercent *float64  `json:"upcharge_percent,omitempty"`
}

type zoneRemovalRequest struct {
	RequesterID uuid.UUID `json:"requester_id"`
}

// EntryCheckHandler evaluates whether a player may move into a zone. The host
// integration calls this on region-boundary crossings and acts on the decision.
func (h *ShopHandlers) EntryCheckHandler(w http.ResponseWriter, r *http.Request) {
	var req entryCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.RequesterID == uuid.Nil || strings.TrimSpace(req.ZoneID) == "" {
		h.writeError(w, http.StatusBadRequest, "requester_id and zone_id are required")
		return
	}

	decision, err := h.evaluator.CheckEntry(r.Context(), req.RequesterID, req.ZoneID, req.Namespace)
	if err != nil {
		log.Printf("level=error component=api endpoint=entry_check msg=\"evaluation failed\" zone_id=%s err=%v", req.ZoneID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to evaluate entry")
		return
	}
	h.writeJSON(w, http.StatusOK, decision)
}

// PurchaseCheckHandler evaluates a purchase attempt inside a zone and returns
// the decision with the effective price. This is the pre-transaction
// intercept: it never moves money, the caller substitutes the returned price.
func (h *ShopHandlers) PurchaseCheckHandler(w http.ResponseWriter, r *http.Request) {
	var req purchaseCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.RequesterID == uuid.Nil || strings.TrimSpace(req.ZoneID) == "" {
		h.writeError(w, http.StatusBadRequest, "requester_id and zone_id are required")
		return
	}
	if req.ListedPrice < 0 {
		h.writeError(w, http.StatusBadRequest, "listed_price must not be negative")
		return
	}

	decision, err := h.evaluator.CheckPurchase(r.Context(), req.RequesterID, req.ZoneID, req.Namespace, req.ListedPrice)
	if err != nil {
		log.Printf("level=error component=api endpoint=purchase_check msg=\"evaluation failed\" zone_id=%s err=%v", req.ZoneID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to evaluate purchase")
		return
	}
	h.writeJSON(w, http.StatusOK, decision)
}

// ZonePurchaseHandler processes a zone purchase intercept: cap check, treasury
// withdrawal, registration, blocked-set seeding. The result tells the caller
// whether the purchase proceeds and whether this service already handled the
// payment.
func (h *ShopHandlers) ZonePurchaseHandler(w http.ResponseWriter, r *http.Request) {
	var req zonePurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.RequesterID == uuid.Nil || strings.TrimSpace(req.ZoneID) == "" {
		h.writeError(w, http.StatusBadRequest, "requester_id and zone_id are required")
		return
	}
	if req.Price < 0 {
		h.writeError(w, http.StatusBadRequest, "price must not be negative")
		return
	}

	result, err := h.flow.HandlePurchase(r.Context(), req.RequesterID, req.ZoneID, req.Namespace, req.Price)
	if err != nil {
		log.Printf("level=error component=api endpoint=zone_purchase msg=\"purchase flow failed\" zone_id=%s requester_id=%s err=%v", req.ZoneID, req.RequesterID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to process zone purchase")
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// ZoneInfoHandler returns the full zone record.
func (h *ShopHandlers) ZoneInfoHandler(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")
	zoneID := chi.URLParam(r, "zoneID")

	zone, err := h.shop.GetZone(r.Context(), zoneID, namespace)
	if err != nil {
		if errors.Is(err, store.ErrZoneNotFound) {
			h.writeError(w, http.StatusNotFound, "Zone is not registered as a guild shop")
			return
		}
		log.Printf("level=error component=api endpoint=zone_info msg=\"zone lookup failed\" zone_id=%s err=%v", zoneID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load zone")
		return
	}
	h.writeJSON(w, http.StatusOK, zone)
}

// AccessModeUpdateHandler changes a zone's enforcement mode. The requester
// must hold the shop-management permission in the owning guild.
func (h *ShopHandlers) AccessModeUpdateHandler(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")
	zoneID := chi.URLParam(r, "zoneID")

	var req accessModeUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.RequesterID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, "requester_id is required")
		return
	}

	if err := h.authorizeShopManagement(r.Context(), req.RequesterID, zoneID, namespace); err != nil {
		h.writeAuthorizationError(w, zoneID, err)
		return
	}

	zone, err := h.shop.UpdateAccessMode(r.Context(), zoneID, namespace, req.Mode, req.UpchargePercent)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidAccessMode):
			h.writeError(w, http.StatusBadRequest, "Unknown access mode. Valid modes: BAN, UPCHARGE, WINDOW_SHOP, ALLOW")
		case errors.Is(err, store.ErrInvalidUpcharge):
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Upcharge percent must be between %v and %v", domain.MinUpchargePercent, domain.MaxUpchargePercent))
		case errors.Is(err, store.ErrZoneNotFound):
			h.writeError(w, http.StatusNotFound, "Zone is not registered as a guild shop")
		default:
			log.Printf("level=error component=api endpoint=access_mode_update msg=\"update failed\" zone_id=%s err=%v", zoneID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to update access mode")
		}
		return
	}
	h.writeJSON(w, http.StatusOK, zone)
}

// ZoneRemovalHandler removes a zone on a guild member's behalf.
func (h *ShopHandlers) ZoneRemovalHandler(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")
	zoneID := chi.URLParam(r, "zoneID")

	var req zoneRemovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.RequesterID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, "requester_id is required")
		return
	}

	if err := h.authorizeShopManagement(r.Context(), req.RequesterID, zoneID, namespace); err != nil {
		h.writeAuthorizationError(w, zoneID, err)
		return
	}

	if err := h.flow.HandleRemoval(r.Context(), zoneID, namespace, &req.RequesterID); err != nil {
		if errors.Is(err, store.ErrZoneNotFound) {
			h.writeError(w, http.StatusNotFound, "Zone is not registered as a guild shop")
			return
		}
		log.Printf("level=error component=api endpoint=zone_removal msg=\"removal failed\" zone_id=%s err=%v", zoneID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to remove zone")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// GuildZonesHandler lists every zone a guild owns.
func (h *ShopHandlers) GuildZonesHandler(w http.ResponseWriter, r *http.Request) {
	guildID, ok := h.parseGuildID(w, r)
	if !ok {
		return
	}

	zones, err := h.shop.ListZones(r.Context(), guildID)
	if err != nil {
		log.Printf("level=error component=api endpoint=guild_zones msg=\"listing failed\" guild_id=%s err=%v", guildID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to list zones")
		return
	}
	h.writeJSON(w, http.StatusOK, zones)
}

// GuildLedgerHandler returns a guild's ledger history, most recent first.
// The optional limit query parameter caps the page size.
func (h *ShopHandlers) GuildLedgerHandler(w http.ResponseWriter, r *http.Request) {
	guildID, ok := h.parseGuildID(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	entries, err := h.shop.LedgerHistory(r.Context(), guildID, limit)
	if err != nil {
		log.Printf("level=error component=api endpoint=guild_ledger msg=\"history lookup failed\" guild_id=%s err=%v", guildID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load ledger history")
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// authorizeShopManagement verifies the requester holds the shop-management
// permission in the guild that owns the zone. Returns
// store.ErrPermissionDenied when the permission is not granted.
func (h *ShopHandlers) authorizeShopManagement(ctx context.Context, requesterID uuid.UUID, zoneID, namespace string) error {
	zone, err := h.shop.GetZone(ctx, zoneID, namespace)
	if err != nil {
		return err
	}

	granted, err := h.relations.HasPermission(ctx, requesterID, zone.OwnerID, ManageShopPermission)
	if err != nil {
		return fmt.Errorf("permission lookup for guild %s: %w", zone.OwnerID, err)
	}
	if !granted {
		return store.ErrPermissionDenied
	}
	return nil
}

// writeAuthorizationError maps an authorization failure onto the HTTP surface.
func (h *ShopHandlers) writeAuthorizationError(w http.ResponseWriter, zoneID string, err error) {
	switch {
	case errors.Is(err, store.ErrZoneNotFound):
		h.writeError(w, http.StatusNotFound, "Zone is not registered as a guild shop")
	case errors.Is(err, store.ErrPermissionDenied):
		h.writeError(w, http.StatusForbidden, "You do not have permission to manage this guild's shops")
	default:
		log.Printf("level=error component=api msg=\"authorization failed\" zone_id=%s err=%v", zoneID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to verify permissions")
	}
}

func (h *ShopHandlers) parseGuildID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	guildID, err := uuid.Parse(chi.URLParam(r, "guildID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid guild ID format")
		return uuid.Nil, false
	}
	return guildID, true
}

// writeJSON is a helper for writing JSON responses.
func (h *ShopHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *ShopHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
