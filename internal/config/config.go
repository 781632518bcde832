package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Store    StoreConfig
	Snippe   SnippeConfig
	Sync     SyncConfig
	Telegram TelegramConfig
	API      APIConfig
}

type ServerConfig struct {
	Port int
	Env  string // "development", "production"
}

type DatabaseConfig struct {
	Host    string
	Port    string
	Name    string
	User    string
	Pass    string
	Charset string
}

type RedisConfig struct {
	Addr     string
	Pass     string
	DB       int
	DedupTTL time.Duration
}

// StoreConfig describes the public storefront the gateway is mounted on.
type StoreConfig struct {
	URL         string
	CountryCode string
}

type SnippeConfig struct {
	BaseURL       string
	TestMode      bool
	TestAPIKey    string
	LiveAPIKey    string
	WebhookSecret string
	PaymentType   string // "mobile", "card", "dynamic-qr", "customer_choice"
	OrderPrefix   string
	Logging       bool
	Timeout       time.Duration
}

// APIKey returns the key matching the configured mode.
func (s SnippeConfig) APIKey() string {
	if s.TestMode {
		return s.TestAPIKey
	}
	return s.LiveAPIKey
}

// SyncConfig drives the pending payment status sync job. An empty schedule
// disables it.
type SyncConfig struct {
	Schedule string
	MinAge   time.Duration
	Batch    int
}

type TelegramConfig struct {
	Token        string
	ReportChatID int64
}

type APIConfig struct {
	Key string
}

// Load reads configuration from .env file and environment variables.
func Load() (*Config, error) {
	// Load .env file (ignore error if missing)
	_ = godotenv.Load()

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_DEDUP_TTL", "24h")
	viper.SetDefault("STORE_URL", "http://localhost:8080")
	viper.SetDefault("STORE_COUNTRY_CODE", "255")
	viper.SetDefault("SNIPPE_BASE_URL", "https://api.snippe.sh")
	viper.SetDefault("SNIPPE_TEST_MODE", true)
	viper.SetDefault("SNIPPE_PAYMENT_TYPE", "mobile")
	viper.SetDefault("SNIPPE_ORDER_PREFIX", "WC-")
	viper.SetDefault("SNIPPE_LOGGING", true)
	viper.SetDefault("SNIPPE_TIMEOUT", "30s")
	viper.SetDefault("SNIPPE_SYNC_SCHEDULE", "")
	viper.SetDefault("SNIPPE_SYNC_MIN_AGE", "15m")
	viper.SetDefault("SNIPPE_SYNC_BATCH", 50)

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		Database: loadDatabase(),
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Pass:     viper.GetString("REDIS_PASS"),
			DB:       viper.GetInt("REDIS_DB"),
			DedupTTL: durationOr("REDIS_DEDUP_TTL", 24*time.Hour),
		},
		Store: StoreConfig{
			URL:         viper.GetString("STORE_URL"),
			CountryCode: viper.GetString("STORE_COUNTRY_CODE"),
		},
		Snippe: SnippeConfig{
			BaseURL:       viper.GetString("SNIPPE_BASE_URL"),
			TestMode:      viper.GetBool("SNIPPE_TEST_MODE"),
			TestAPIKey:    viper.GetString("SNIPPE_TEST_API_KEY"),
			LiveAPIKey:    viper.GetString("SNIPPE_LIVE_API_KEY"),
			WebhookSecret: viper.GetString("SNIPPE_WEBHOOK_SECRET"),
			PaymentType:   viper.GetString("SNIPPE_PAYMENT_TYPE"),
			OrderPrefix:   viper.GetString("SNIPPE_ORDER_PREFIX"),
			Logging:       viper.GetBool("SNIPPE_LOGGING"),
			Timeout:       durationOr("SNIPPE_TIMEOUT", 30*time.Second),
		},
		Sync: SyncConfig{
			Schedule: viper.GetString("SNIPPE_SYNC_SCHEDULE"),
			MinAge:   durationOr("SNIPPE_SYNC_MIN_AGE", 15*time.Minute),
			Batch:    viper.GetInt("SNIPPE_SYNC_BATCH"),
		},
		Telegram: TelegramConfig{
			Token:        viper.GetString("TELEGRAM_BOT_TOKEN"),
			ReportChatID: viper.GetInt64("TELEGRAM_REPORT_CHAT_ID"),
		},
		API: APIConfig{
			Key: viper.GetString("API_KEY"),
		},
	}

	if cfg.Database.Name == "" {
		log.Println("WARNING: DB_NAME is not set")
	}
	if cfg.Snippe.APIKey() == "" {
		log.Println("WARNING: Snippe API key is not set, gateway will be unavailable")
	}
	if cfg.Snippe.WebhookSecret == "" {
		log.Println("WARNING: SNIPPE_WEBHOOK_SECRET is not set, webhook signatures will not be verified")
	}

	return cfg, nil
}

// Reload re-reads the .env file over the current environment and loads the
// configuration again.
func Reload() (*Config, error) {
	_ = godotenv.Overload()
	return Load()
}

// LoadDatabaseOnly reads just the database settings, for migrations.
func LoadDatabaseOnly() (*DatabaseConfig, error) {
	_ = godotenv.Load()
	viper.AutomaticEnv()
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")

	db := loadDatabase()
	return &db, nil
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:    viper.GetString("DB_HOST"),
		Port:    viper.GetString("DB_PORT"),
		Name:    viper.GetString("DB_NAME"),
		User:    viper.GetString("DB_USER"),
		Pass:    viper.GetString("DB_PASS"),
		Charset: viper.GetString("DB_CHARSET"),
	}
}

func durationOr(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil {
		return def
	}
	return d
}

// DSN returns the MySQL DSN string for GORM.
func (d *DatabaseConfig) DSN() string {
	return d.User + ":" + d.Pass + "@tcp(" + d.Host + ":" + d.Port + ")/" + d.Name + "?charset=" + d.Charset + "&parseTime=True&loc=Local"
}
