// internal/config/config.go
package config

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	Store    StoreConfig
	Sheets   SheetsConfig
	Auth     AuthConfig
	Notify   NotifyConfig
	Storage  StorageConfig
	Cron     CronConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type AppConfig struct {
	SiteName          string
	Timezone          string
	HistoryDays       int
	VarianceThreshold float64
	ExportDir         string
	ChecklistURL      string
}

type CacheConfig struct {
	Enabled             bool
	RedisURL            string
	RedisHost           string
	RedisPort           string
	RedisPassword       string
	RedisDB             int
	DashboardTTLSeconds int
}

// StoreConfig selects the persistence driver: memory, postgres or sheets.
type StoreConfig struct {
	Driver string
}

type SheetsConfig struct {
	SpreadsheetID   string
	CredentialsJSON string
}

type AuthConfig struct {
	JWTSecret   string
	TokenTTLHrs int
}

type NotifyConfig struct {
	Channel    string
	WebhookURL string
	TimeoutSec int
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type CronConfig struct {
	LockKey         string
	IntervalMinutes int
	ReminderHour    int
	SummaryHour     int
	MetricsPort     string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()

		// Read from environment variables
		viper.AutomaticEnv()

		ensureDir(viper.GetString("APP_EXPORT_DIR"))

		instance = build()
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_READ_TIMEOUT", 15)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 15)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "stockcount")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("APP_SITE_NAME", "Permas Jaya")
	viper.SetDefault("APP_TIMEZONE", "Asia/Kuala_Lumpur")
	viper.SetDefault("APP_HISTORY_DAYS", 7)
	viper.SetDefault("APP_VARIANCE_THRESHOLD", 0.30)
	viper.SetDefault("APP_EXPORT_DIR", "./data/exports")
	viper.SetDefault("APP_CHECKLIST_URL", "")
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_DASHBOARD_TTL_SECONDS", 60)
	viper.SetDefault("STORE_DRIVER", "postgres")
	viper.SetDefault("SHEETS_SPREADSHEET_ID", "")
	viper.SetDefault("SHEETS_CREDENTIALS_JSON", "")
	viper.SetDefault("AUTH_JWT_SECRET", "")
	viper.SetDefault("AUTH_TOKEN_TTL_HOURS", 12)
	viper.SetDefault("NOTIFY_CHANNEL", "log")
	viper.SetDefault("NOTIFY_WEBHOOK_URL", "")
	viper.SetDefault("NOTIFY_TIMEOUT_SECONDS", 5)
	viper.SetDefault("STORAGE_ENABLED", false)
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_USE_SSL", true)
	viper.SetDefault("CRON_LOCK_KEY", "stockcount:cron:lock")
	viper.SetDefault("CRON_INTERVAL_MINUTES", 15)
	viper.SetDefault("CRON_REMINDER_HOUR", 10)
	viper.SetDefault("CRON_SUMMARY_HOUR", 21)
	viper.SetDefault("CRON_METRICS_PORT", "9090")
}

func build() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		App: AppConfig{
			SiteName:          viper.GetString("APP_SITE_NAME"),
			Timezone:          viper.GetString("APP_TIMEZONE"),
			HistoryDays:       viper.GetInt("APP_HISTORY_DAYS"),
			VarianceThreshold: viper.GetFloat64("APP_VARIANCE_THRESHOLD"),
			ExportDir:         viper.GetString("APP_EXPORT_DIR"),
			ChecklistURL:      viper.GetString("APP_CHECKLIST_URL"),
		},
		Cache: CacheConfig{
			Enabled:             viper.GetBool("CACHE_ENABLED"),
			RedisURL:            viper.GetString("REDIS_URL"),
			RedisHost:           viper.GetString("REDIS_HOST"),
			RedisPort:           viper.GetString("REDIS_PORT"),
			RedisPassword:       viper.GetString("REDIS_PASSWORD"),
			RedisDB:             viper.GetInt("REDIS_DB"),
			DashboardTTLSeconds: viper.GetInt("CACHE_DASHBOARD_TTL_SECONDS"),
		},
		Store: StoreConfig{
			Driver: viper.GetString("STORE_DRIVER"),
		},
		Sheets: SheetsConfig{
			SpreadsheetID:   viper.GetString("SHEETS_SPREADSHEET_ID"),
			CredentialsJSON: viper.GetString("SHEETS_CREDENTIALS_JSON"),
		},
		Auth: AuthConfig{
			JWTSecret:   viper.GetString("AUTH_JWT_SECRET"),
			TokenTTLHrs: viper.GetInt("AUTH_TOKEN_TTL_HOURS"),
		},
		Notify: NotifyConfig{
			Channel:    viper.GetString("NOTIFY_CHANNEL"),
			WebhookURL: viper.GetString("NOTIFY_WEBHOOK_URL"),
			TimeoutSec: viper.GetInt("NOTIFY_TIMEOUT_SECONDS"),
		},
		Storage: StorageConfig{
			Enabled:   viper.GetBool("STORAGE_ENABLED"),
			Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
			AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
			Bucket:    viper.GetString("STORAGE_BUCKET"),
			Region:    viper.GetString("STORAGE_REGION"),
			UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
		},
		Cron: CronConfig{
			LockKey:         viper.GetString("CRON_LOCK_KEY"),
			IntervalMinutes: viper.GetInt("CRON_INTERVAL_MINUTES"),
			ReminderHour:    viper.GetInt("CRON_REMINDER_HOUR"),
			SummaryHour:     viper.GetInt("CRON_SUMMARY_HOUR"),
			MetricsPort:     viper.GetString("CRON_METRICS_PORT"),
		},
	}
}

// Location resolves the site timezone, falling back to UTC.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("invalid APP_TIMEZONE %q, using UTC: %v", c.Timezone, err)
		return time.UTC
	}
	return loc
}

// DSN builds the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return "host=" + c.Host + " port=" + c.Port + " user=" + c.User +
		" password=" + c.Password + " dbname=" + c.DBName + " sslmode=" + c.SSLMode
}

func ensureDir(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
