/**
 * @description
 * This is the main entry point for the guildshop-service. It is responsible for
 * initializing all components of the service, including configuration, database
 * connection, external API clients, message brokers, repositories, the core
 * application services, and the HTTP server. It wires everything together and
 * starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/treasuryclient, pkg/relationclient: Clients for sibling services.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/lumalyte/guildshop-service/internal/api"
	"github.com/lumalyte/guildshop-service/internal/app"
	"github.com/lumalyte/guildshop-service/internal/config"
	"github.com/lumalyte/guildshop-service/internal/domain"
	"github.com/lumalyte/guildshop-service/internal/store"
	"github.com/lumalyte/guildshop-service/pkg/rabbitmq"
	"github.com/lumalyte/guildshop-service/pkg/relationclient"
	"github.com/lumalyte/guildshop-service/pkg/treasuryclient"
)

// guildPlatformExchange is the upstream topic exchange carrying relation,
// sale, and guild lifecycle events.
const guildPlatformExchange = "lumalyte.events"

func main() {
	// Load a local .env into the process environment first so both viper and
	// plain os.Getenv lookups see the same values. Missing file is fine.
	_ = godotenv.Load()

	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.InternalAPIKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"internal api key must be configured\" env=INTERNAL_API_KEY")
	}

	log.Printf("level=info component=bootstrap msg=\"starting guildshop-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 50
	poolConfig.MinConns = 10
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the data access layer and make sure the schema exists.
	repository := store.NewPostgresRepository(dbpool)
	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSchema()
	if err := repository.EnsureSchema(schemaCtx); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"schema setup failed\" err=%v", err)
	}

	// Connect to Redis for the blocked-set cache. The service cannot enforce
	// enemy blocking without it, so a missing connection is fatal when
	// blocking is enabled.
	var blockedStore store.BlockedSetStore
	redisOptions, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		if cfg.EnemyBlockingEnabled {
			log.Fatalf("level=fatal component=bootstrap msg=\"redis url parse failed\" err=%v", err)
		}
		log.Printf("level=warn component=bootstrap msg=\"redis unavailable; enemy blocking already disabled\" err=%v", err)
	} else {
		redisClient := redis.NewClient(redisOptions)
		pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelPing()
		if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
			if cfg.EnemyBlockingEnabled {
				log.Fatalf("level=fatal component=bootstrap msg=\"redis ping failed\" err=%v", pingErr)
			}
			log.Printf("level=warn component=bootstrap msg=\"redis ping failed; enemy blocking already disabled\" err=%v", pingErr)
			redisClient.Close()
		} else {
			defer redisClient.Close()
			blockedStore = store.NewRedisBlockedSetStore(redisClient, cfg.RedisBlockedSetPrefix)
			log.Println("level=info component=bootstrap msg=\"redis connected\"")
		}
	}
	if blockedStore == nil {
		blockedStore = store.NewNoopBlockedSetStore()
	}

	// Initialize the RabbitMQ producer to publish zone lifecycle events.
	var producer rabbitmq.Publisher
	eventProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rabbitmq.EventProducerFallback{}
	} else {
		defer eventProducer.Close()
		producer = eventProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Initialize the clients for the sibling services.
	treasuryClient := treasuryclient.NewClient(cfg.TreasuryAPIBaseURL, cfg.TreasuryAPIKey)
	relations := app.NewRelationAuthority(relationclient.NewClient(cfg.RelationServiceURL, cfg.InternalAPIKey))

	defaultMode, err := domain.ParseAccessMode(cfg.DefaultAccessMode)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"unknown default access mode; falling back to BAN\" configured=%q", cfg.DefaultAccessMode)
		defaultMode = domain.AccessModeBan
	}

	// Initialize the core application services with their dependencies.
	shopService := app.NewShopService(repository, cfg.MaxZonesPerGuild, defaultMode, cfg.DefaultUpchargePercent)
	paymentRouter := app.NewPaymentRouter(treasuryClient, repository, cfg.MinTreasuryBalanceAfter)
	relationSync := app.NewRelationSync(repository, blockedStore, relations, cfg.EnemyBlockingEnabled)
	evaluator := app.NewEvaluator(repository, blockedStore, relations, cfg.EnemyBlockingEnabled)
	purchaseFlow := app.NewPurchaseFlow(shopService, paymentRouter, relationSync, relations, producer)

	// Initialize the API handlers and router.
	shopHandlers := api.NewShopHandlers(evaluator, purchaseFlow, shopService, relations)
	router := chi.NewRouter()
	router.Mount("/shops", api.ShopRoutes(shopHandlers, cfg.InternalAPIKey))

	// Wire up the upstream event consumer: relation changes drive blocked-set
	// maintenance, completed sales drive income routing, and guild dissolution
	// drives bulk removal.
	eventConsumer := app.NewEventConsumer(relationSync, paymentRouter, shopService)

	rabbitConsumer, err := rabbitmq.NewConsumer(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"rabbitmq consumer init failed\" err=%v", err)
	}
	defer rabbitConsumer.Close()

	bindings := map[string]func([]byte) bool{
		"relation.changed":    eventConsumer.HandleRelationChanged,
		"shop.sale.completed": eventConsumer.HandleShopSale,
		"guild.disbanded":     eventConsumer.HandleGuildDisbanded,
	}
	if err := rabbitConsumer.ConsumeWithBindings(guildPlatformExchange, cfg.RelationEventQueue, bindings); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"event consumer start failed\" err=%v", err)
	}

	// Start the periodic blocked-set reconciliation job.
	reconciler := app.NewBlockedSetReconciler(repository, relationSync)
	if err := reconciler.Start(cfg.BlockedSetReconcileCron); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"reconciler start failed\" err=%v", err)
	}
	defer reconciler.Stop()

	// Start the HTTP server.
	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
