package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Telegram  TelegramConfig
	JWT       JWTConfig
	CORS      CORSConfig
	S3        S3Config
	Order     OrderConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	Environment    string
	RequestTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	// CatalogTTL bounds how long a cached storefront view may be served
	CatalogTTL time.Duration
}

type TelegramConfig struct {
	BotToken     string
	AdminIDs     []int64
	APIBaseURL   string
	InitDataTTL  time.Duration
	StoreName    string
	NotifyEnable bool
}

type JWTConfig struct {
	Secret        string
	SessionExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
}

type OrderConfig struct {
	PlacementTimeout time.Duration
}

type SchedulerConfig struct {
	CatalogWarmSpec   string
	LowStockSpec      string
	LowStockThreshold int
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	adminIDs, err := parseInt64Slice(getEnv("ADMIN_TG_IDS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_TG_IDS: %w", err)
	}

	config := &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			GinMode:        getEnv("GIN_MODE", "debug"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			RequestTimeout: parseDuration(getEnv("REQUEST_TIMEOUT", "10s"), 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "store177"),
			Password: getEnv("DB_PASSWORD", "store177"),
			DBName:   getEnv("DB_NAME", "store177"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:       getEnv("REDIS_HOST", "localhost"),
			Port:       getEnv("REDIS_PORT", "6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         parseInt(getEnv("REDIS_DB", "0"), 0),
			Enabled:    parseBool(getEnv("REDIS_ENABLED", "false")),
			CatalogTTL: parseDuration(getEnv("CATALOG_CACHE_TTL", "5m"), 5*time.Minute),
		},
		Telegram: TelegramConfig{
			BotToken:     getEnv("TELEGRAM_BOT_TOKEN", ""),
			AdminIDs:     adminIDs,
			APIBaseURL:   getEnv("TELEGRAM_API_BASE_URL", "https://api.telegram.org"),
			InitDataTTL:  parseDuration(getEnv("TELEGRAM_INIT_DATA_TTL", "24h"), 24*time.Hour),
			StoreName:    getEnv("STORE_NAME", "Store 177"),
			NotifyEnable: parseBool(getEnv("TELEGRAM_NOTIFY", "true")),
		},
		JWT: JWTConfig{
			Secret:        getEnv("JWT_SECRET", "your-secret-key"),
			SessionExpiry: parseDuration(getEnv("ADMIN_SESSION_EXPIRY", "12h"), 12*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "eu-central-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", "store177-images"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
		Order: OrderConfig{
			PlacementTimeout: parseDuration(getEnv("ORDER_TIMEOUT", "5s"), 5*time.Second),
		},
		Scheduler: SchedulerConfig{
			CatalogWarmSpec:   getEnv("CATALOG_WARM_CRON", "*/5 * * * *"),
			LowStockSpec:      getEnv("LOW_STOCK_CRON", "0 9 * * *"),
			LowStockThreshold: parseInt(getEnv("LOW_STOCK_THRESHOLD", "2"), 2),
		},
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// IsAdmin reports whether the Telegram user id is on the admin allowlist.
func (c *TelegramConfig) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func parseInt64Slice(s string) ([]int64, error) {
	var result []int64
	for _, part := range parseSlice(s) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	return result, nil
}
