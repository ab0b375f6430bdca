package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Admin    AdminConfig
	Scraper  ScraperConfig
	Store    StoreConfig
	Status   StatusConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AdminConfig struct {
	Username     string
	PasswordHash string // bcrypt hash of the admin password
	JWTSecret    string
	TokenExpiry  time.Duration
}

type ScraperConfig struct {
	MarketplaceDomains []string
	ShortLinkDomains   []string
	BaseURL            string
	AffiliateTag       string
	CurrencySymbol     string
	MaxAttempts        int
	FetchDelayMin      time.Duration
	FetchDelayMax      time.Duration
	RetryBackoffUnit   time.Duration
	RequestTimeout     time.Duration
}

type StoreConfig struct {
	// FailOpen maps read-path store errors to empty results instead of
	// propagating them to the caller.
	FailOpen         bool
	ReconnectTimeout time.Duration
}

type StatusConfig struct {
	Interval   time.Duration
	FirstDelay time.Duration
}

func Load() *Config {
	// .env is optional; viper falls back to real environment variables.
	_ = godotenv.Load()

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("ADMIN_USERNAME", "admin")
	viper.SetDefault("ADMIN_TOKEN_EXPIRY_MINUTES", 15)
	viper.SetDefault("MARKETPLACE_DOMAINS", "amazon.in")
	viper.SetDefault("SHORTLINK_DOMAINS", "amzn.to")
	viper.SetDefault("MARKETPLACE_BASE_URL", "https://www.amazon.in")
	viper.SetDefault("AFFILIATE_TAG", "krunalweb20-21")
	viper.SetDefault("CURRENCY_SYMBOL", "₹")
	viper.SetDefault("SCRAPE_MAX_ATTEMPTS", 3)
	viper.SetDefault("SCRAPE_DELAY_MIN_MS", 2000)
	viper.SetDefault("SCRAPE_DELAY_MAX_MS", 4000)
	viper.SetDefault("SCRAPE_BACKOFF_UNIT_MS", 1000)
	viper.SetDefault("SCRAPE_TIMEOUT_SECONDS", 30)
	viper.SetDefault("STORE_FAIL_OPEN", true)
	viper.SetDefault("STORE_RECONNECT_TIMEOUT_SECONDS", 10)
	viper.SetDefault("STATUS_INTERVAL_SECONDS", 50)
	viper.SetDefault("STATUS_FIRST_DELAY_SECONDS", 10)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Admin: AdminConfig{
			Username:     viper.GetString("ADMIN_USERNAME"),
			PasswordHash: viper.GetString("ADMIN_PASSWORD_HASH"),
			JWTSecret:    viper.GetString("ADMIN_JWT_SECRET"),
			TokenExpiry:  time.Duration(viper.GetInt("ADMIN_TOKEN_EXPIRY_MINUTES")) * time.Minute,
		},
		Scraper: ScraperConfig{
			MarketplaceDomains: splitList(viper.GetString("MARKETPLACE_DOMAINS")),
			ShortLinkDomains:   splitList(viper.GetString("SHORTLINK_DOMAINS")),
			BaseURL:            viper.GetString("MARKETPLACE_BASE_URL"),
			AffiliateTag:       viper.GetString("AFFILIATE_TAG"),
			CurrencySymbol:     viper.GetString("CURRENCY_SYMBOL"),
			MaxAttempts:        viper.GetInt("SCRAPE_MAX_ATTEMPTS"),
			FetchDelayMin:      time.Duration(viper.GetInt("SCRAPE_DELAY_MIN_MS")) * time.Millisecond,
			FetchDelayMax:      time.Duration(viper.GetInt("SCRAPE_DELAY_MAX_MS")) * time.Millisecond,
			RetryBackoffUnit:   time.Duration(viper.GetInt("SCRAPE_BACKOFF_UNIT_MS")) * time.Millisecond,
			RequestTimeout:     time.Duration(viper.GetInt("SCRAPE_TIMEOUT_SECONDS")) * time.Second,
		},
		Store: StoreConfig{
			FailOpen:         viper.GetBool("STORE_FAIL_OPEN"),
			ReconnectTimeout: time.Duration(viper.GetInt("STORE_RECONNECT_TIMEOUT_SECONDS")) * time.Second,
		},
		Status: StatusConfig{
			Interval:   time.Duration(viper.GetInt("STATUS_INTERVAL_SECONDS")) * time.Second,
			FirstDelay: time.Duration(viper.GetInt("STATUS_FIRST_DELAY_SECONDS")) * time.Second,
		},
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
