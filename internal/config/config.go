package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
)

type Config struct {
	Server   ServerConfig
	Cart     CartConfig
	Store    StoreConfig
	Catalog  CatalogConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Report   ReportConfig
}

type ServerConfig struct {
	HTTPPort        string
	GRPCPort        string
	Env             string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// CartConfig is the configuration surface read by the cart pipeline.
type CartConfig struct {
	MaxItems                     int
	ExpirationTimeMinutes        int
	TaxesEnabled                 bool
	DefaultTaxCategory           string
	TaxCategories                string
	ItemPriceIsNet               bool
	AdditionalCashierSectionHTML string
}

func (c CartConfig) ExpirationTime() time.Duration {
	return time.Duration(c.ExpirationTimeMinutes) * time.Minute
}

// ParseTaxCategories returns nil when taxes are disabled.
func (c CartConfig) ParseTaxCategories() (*domain.TaxCategories, error) {
	if !c.TaxesEnabled {
		return nil, nil
	}
	return domain.ParseTaxCategories(c.DefaultTaxCategory, c.TaxCategories)
}

type StoreConfig struct {
	Backend       string // redis, mongo or memory
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MongoURI      string
	MongoDBName   string
}

type CatalogConfig struct {
	DBPath         string
	MigrationsPath string
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	MigrationsPath string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type AuthConfig struct {
	JWTSecret string
}

type ReportConfig struct {
	BucketName      string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

func (r ReportConfig) ArchiveEnabled() bool {
	return r.BucketName != ""
}

func Load() (*Config, error) {
	// Load .env files if they exist (try .env.local first, then .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	cfg := &Config{
		Server: ServerConfig{
			HTTPPort:        getEnv("HTTP_PORT", "8080"),
			GRPCPort:        getEnv("GRPC_PORT", "50052"),
			Env:             getEnv("ENV", "development"),
			RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Cart: CartConfig{
			MaxItems:                     getEnvAsInt("CART_MAX_ITEMS", 10),
			ExpirationTimeMinutes:        getEnvAsInt("CART_EXPIRATION_TIME_MINUTES", 15),
			TaxesEnabled:                 getEnvAsBool("CART_TAXES_ENABLED", false),
			DefaultTaxCategory:           getEnv("CART_DEFAULT_TAX_CATEGORY", ""),
			TaxCategories:                getEnv("CART_TAX_CATEGORIES", ""),
			ItemPriceIsNet:               getEnvAsBool("CART_ITEM_PRICE_IS_NET", true),
			AdditionalCashierSectionHTML: getEnv("CART_ADDITIONAL_CASHIER_SECTION_HTML", ""),
		},
		Store: StoreConfig{
			Backend:       getEnv("CART_STORE", "redis"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDBName:   getEnv("MONGO_DB_NAME", "cartdb"),
		},
		Catalog: CatalogConfig{
			DBPath:         getEnv("CATALOG_DB_PATH", "./internal/itemsource/catalog.db"),
			MigrationsPath: getEnv("CATALOG_MIGRATIONS_PATH", "./internal/itemsource/migrations"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvAsInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "shopping_cart"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "./internal/history/migrations"),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC", "shopping-cart-events"),
			GroupID: getEnv("KAFKA_GROUP_ID", "shopping-cart-cleanup"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Report: ReportConfig{
			BucketName:      getEnv("REPORT_BUCKET", ""),
			Region:          getEnv("REPORT_REGION", "auto"),
			Endpoint:        getEnv("REPORT_ENDPOINT", ""),
			AccessKeyID:     getEnv("REPORT_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("REPORT_SECRET_ACCESS_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Cart.MaxItems <= 0 {
		return fmt.Errorf("CART_MAX_ITEMS must be positive, got %d", c.Cart.MaxItems)
	}
	if c.Cart.ExpirationTimeMinutes <= 0 {
		return fmt.Errorf("CART_EXPIRATION_TIME_MINUTES must be positive, got %d", c.Cart.ExpirationTimeMinutes)
	}
	switch c.Store.Backend {
	case "redis", "mongo", "memory":
	default:
		return fmt.Errorf("unknown CART_STORE %q", c.Store.Backend)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	if _, err := c.Cart.ParseTaxCategories(); err != nil {
		return fmt.Errorf("invalid tax configuration: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
