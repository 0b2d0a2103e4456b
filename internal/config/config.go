/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the guildshop-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort              string  `mapstructure:"SERVER_PORT"`
	DatabaseURL             string  `mapstructure:"DATABASE_URL"`
	RedisURL                string  `mapstructure:"REDIS_URL"`
	RedisBlockedSetPrefix   string  `mapstructure:"REDIS_BLOCKED_SET_PREFIX"`
	RabbitMQURL             string  `mapstructure:"RABBITMQ_URL"`
	RelationEventQueue      string  `mapstructure:"RELATION_EVENT_QUEUE"`
	TreasuryAPIBaseURL      string  `mapstructure:"TREASURY_API_BASE_URL"`
	TreasuryAPIKey          string  `mapstructure:"TREASURY_API_KEY"`
	RelationServiceURL      string  `mapstructure:"RELATION_SERVICE_URL"`
	InternalAPIKey          string  `mapstructure:"INTERNAL_API_KEY"`
	MaxZonesPerGuild        int     `mapstructure:"MAX_ZONES_PER_GUILD"`
	MinTreasuryBalanceAfter int64   `mapstructure:"MIN_TREASURY_BALANCE_AFTER"`
	DefaultAccessMode       string  `mapstructure:"DEFAULT_ACCESS_MODE"`
	DefaultUpchargePercent  float64 `mapstructure:"DEFAULT_UPCHARGE_PERCENT"`
	EnemyBlockingEnabled    bool    `mapstructure:"ENEMY_BLOCKING_ENABLED"`
	BlockedSetReconcileCron string  `mapstructure:"BLOCKED_SET_RECONCILE_CRON"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_BLOCKED_SET_PREFIX", "guildshop:blocked")
	viper.SetDefault("RELATION_EVENT_QUEUE", "guildshop_service.relation_updates")
	viper.SetDefault("MAX_ZONES_PER_GUILD", 3)
	viper.SetDefault("MIN_TREASURY_BALANCE_AFTER", 0)
	viper.SetDefault("DEFAULT_ACCESS_MODE", "BAN")
	viper.SetDefault("DEFAULT_UPCHARGE_PERCENT", 50.0)
	viper.SetDefault("ENEMY_BLOCKING_ENABLED", true)
	viper.SetDefault("BLOCKED_SET_RECONCILE_CRON", "@every 10m")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "GUILDSHOP_REDIS_URL")
	_ = viper.BindEnv("REDIS_BLOCKED_SET_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("RELATION_EVENT_QUEUE")
	_ = viper.BindEnv("TREASURY_API_BASE_URL")
	_ = viper.BindEnv("TREASURY_API_KEY")
	_ = viper.BindEnv("RELATION_SERVICE_URL")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "GUILDSHOP_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("MAX_ZONES_PER_GUILD")
	_ = viper.BindEnv("MIN_TREASURY_BALANCE_AFTER")
	_ = viper.BindEnv("DEFAULT_ACCESS_MODE")
	_ = viper.BindEnv("DEFAULT_UPCHARGE_PERCENT")
	_ = viper.BindEnv("ENEMY_BLOCKING_ENABLED")
	_ = viper.BindEnv("BLOCKED_SET_RECONCILE_CRON")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	if strings.TrimSpace(config.InternalAPIKey) == "" {
		config.InternalAPIKey = strings.TrimSpace(os.Getenv("GUILDSHOP_SERVICE_INTERNAL_API_KEY"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisBlockedSetPrefix = strings.TrimSpace(config.RedisBlockedSetPrefix)
	if config.RedisBlockedSetPrefix == "" {
		config.RedisBlockedSetPrefix = "guildshop:blocked"
	}

	if config.MaxZonesPerGuild < 0 {
		log.Printf("level=warn component=config msg=\"negative zone cap configured; coercing to unlimited\" max_zones=%d", config.MaxZonesPerGuild)
		config.MaxZonesPerGuild = 0
	}
	if config.MinTreasuryBalanceAfter < 0 {
		log.Printf("level=warn component=config msg=\"negative treasury floor configured; coercing to zero\" min_balance=%d", config.MinTreasuryBalanceAfter)
		config.MinTreasuryBalanceAfter = 0
	}

	config.DefaultAccessMode = strings.ToUpper(strings.TrimSpace(config.DefaultAccessMode))
	if config.DefaultAccessMode == "" {
		config.DefaultAccessMode = "BAN"
	}

	if config.DefaultUpchargePercent < 0 {
		log.Printf("level=warn component=config msg=\"negative default upcharge configured; coercing to zero\" upcharge=%f", config.DefaultUpchargePercent)
		config.DefaultUpchargePercent = 0
	}
	if config.DefaultUpchargePercent > 1000 {
		log.Printf("level=warn component=config msg=\"default upcharge too high; capping at 1000\" upcharge=%f", config.DefaultUpchargePercent)
		config.DefaultUpchargePercent = 1000
	}

	return
}
