// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tripexl/service-dispatch/internal/database"
	"github.com/tripexl/service-dispatch/internal/routing"
)

// EnvPrefix prefixes every environment variable the service reads.
const EnvPrefix = "DISPATCH"

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

// MinSessionTTL is the shortest accepted SESSION_TTL. The eviction sweep runs every TTL/4.
const MinSessionTTL = time.Second

// KafkaConfig holds broker settings.
type KafkaConfig struct {
	Enabled     bool
	Brokers     []string
	GroupPrefix string
}

// MongoConfig holds MongoDB settings.
type MongoConfig struct {
	URI      string
	Database string
}

// PricingConfig holds cost estimation settings.
type PricingConfig struct {
	BaseFare int64
	Currency string
}

// ServiceConfig holds all configuration for the dispatch service.
type ServiceConfig struct {
	Port         string
	AppEnv       string
	StoreBackend string
	CORSOrigins  []string
	FitPadding   int
	SessionTTL   time.Duration

	DBConfig      database.PostgresConfig
	MongoConfig   MongoConfig
	KafkaConfig   KafkaConfig
	RoutingConfig routing.Options
	PricingConfig PricingConfig
}

// Load reads an optional .env file, then DISPATCH_* environment variables.
func Load() (*ServiceConfig, error) {
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("SERVICE_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("STORE_BACKEND", StorePostgres)
	v.SetDefault("CORS_ORIGINS", "")
	v.SetDefault("SCENE_FIT_PADDING", 50)
	v.SetDefault("SESSION_TTL", "2h")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "dispatch")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB", "dispatch")

	v.SetDefault("KAFKA_ENABLED", false)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "dispatch-")

	v.SetDefault("ROUTING_PROVIDER", routing.ProviderGoogle)
	v.SetDefault("ROUTING_API_KEY", "")
	v.SetDefault("ROUTING_BASE_URL", "")
	v.SetDefault("ROUTING_TIMEOUT", "10s")
	v.SetDefault("ROUTING_SPEED_KPH", 30)

	v.SetDefault("PRICING_BASE_FARE", 50)
	v.SetDefault("PRICING_CURRENCY", "INR")
	return v
}

// FromViper builds a ServiceConfig from v and validates it.
func FromViper(v *viper.Viper) (*ServiceConfig, error) {
	cfg := &ServiceConfig{
		Port:         normalizePort(v.GetString("SERVICE_PORT")),
		AppEnv:       v.GetString("APP_ENV"),
		StoreBackend: strings.ToLower(v.GetString("STORE_BACKEND")),
		CORSOrigins:  splitList(v.GetString("CORS_ORIGINS")),
		FitPadding:   v.GetInt("SCENE_FIT_PADDING"),
		SessionTTL:   v.GetDuration("SESSION_TTL"),
		DBConfig: database.PostgresConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		MongoConfig: MongoConfig{
			URI:      v.GetString("MONGO_URI"),
			Database: v.GetString("MONGO_DB"),
		},
		KafkaConfig: KafkaConfig{
			Enabled:     v.GetBool("KAFKA_ENABLED"),
			Brokers:     splitList(v.GetString("KAFKA_BROKERS")),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
		RoutingConfig: routing.Options{
			Provider: strings.ToLower(v.GetString("ROUTING_PROVIDER")),
			APIKey:   v.GetString("ROUTING_API_KEY"),
			BaseURL:  v.GetString("ROUTING_BASE_URL"),
			Timeout:  v.GetDuration("ROUTING_TIMEOUT"),
			SpeedKPH: v.GetFloat64("ROUTING_SPEED_KPH"),
		},
		PricingConfig: PricingConfig{
			BaseFare: v.GetInt64("PRICING_BASE_FARE"),
			Currency: strings.ToUpper(v.GetString("PRICING_CURRENCY")),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ServiceConfig) validate() error {
	switch c.StoreBackend {
	case StorePostgres, StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	switch c.RoutingConfig.Provider {
	case routing.ProviderGoogle, routing.ProviderStraightLine:
	default:
		return fmt.Errorf("unknown routing provider %q", c.RoutingConfig.Provider)
	}
	if c.KafkaConfig.Enabled && len(c.KafkaConfig.Brokers) == 0 {
		return fmt.Errorf("kafka is enabled but no brokers are configured")
	}
	if c.SessionTTL < MinSessionTTL {
		return fmt.Errorf("session TTL must be at least %s, got %s", MinSessionTTL, c.SessionTTL)
	}
	return nil
}

func normalizePort(p string) string {
	if strings.HasPrefix(p, ":") {
		return p
	}
	return ":" + p
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
