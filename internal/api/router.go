/**
 * @description
 * This file sets up the HTTP router for the guildshop-service. It defines the
 * API endpoints, associates them with their corresponding handlers, and
 * applies middleware for logging, panic recovery, timeouts, and internal
 * authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ShopRoutes creates and returns a new router for the guild shop service.
func ShopRoutes(h *ShopHandlers, internalAPIKey string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require the shared internal API key.
	r.Group(func(r chi.Router) {
		r.Use(InternalAuthMiddleware(internalAPIKey))

		// Host-integration intercepts: boundary crossings and purchases.
		r.Post("/intercepts/entry", h.EntryCheckHandler)
		r.Post("/intercepts/pre-transaction", h.PurchaseCheckHandler)
		r.Post("/intercepts/purchase", h.ZonePurchaseHandler)

		// Zone management endpoints
		r.Get("/zones/{namespace}/{zoneID}", h.ZoneInfoHandler)
		r.Put("/zones/{namespace}/{zoneID}/mode", h.AccessModeUpdateHandler)
		r.Delete("/zones/{namespace}/{zoneID}", h.ZoneRemovalHandler)

		// Guild-scoped queries
		r.Get("/guilds/{guildID}/zones", h.GuildZonesHandler)
		r.Get("/guilds/{guildID}/ledger", h.GuildLedgerHandler)
	})

	return r
}
