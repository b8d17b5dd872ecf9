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

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DBDriver   string
	SQLitePath string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	SitesPath      string
	MaxConcurrency int
	ScrapeSchedule string

	HTTPTimeout     time.Duration
	PageLoadTimeout time.Duration
	WaitForTimeout  time.Duration
	SettleDelay     time.Duration
	ChromeBin       string

	TelegramBotToken string
	TelegramChatID   string

	CSVOutputPath string
	LogLevel      string
}

// Load reads the .env file (if any) and returns a populated Config.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		SQLitePath: getEnv("SQLITE_PATH", "listings.db"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "listings"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		SitesPath:      getEnv("SITES_PATH", "config/sites.yaml"),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 2),
		ScrapeSchedule: scheduleFromEnv(),

		HTTPTimeout:     getEnvMillis("HTTP_TIMEOUT_MS", 30*time.Second),
		PageLoadTimeout: getEnvMillis("PAGE_LOAD_TIMEOUT_MS", 60*time.Second),
		WaitForTimeout:  getEnvMillis("WAIT_FOR_TIMEOUT_MS", 30*time.Second),
		SettleDelay:     getEnvMillis("SETTLE_DELAY_MS", 2*time.Second),
		ChromeBin:       getEnv("CHROME_BIN", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// NotificationsEnabled reports whether Telegram credentials are present.
func (c *Config) NotificationsEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

// scheduleFromEnv prefers an explicit SCRAPE_SCHEDULE cron expression and
// otherwise converts DAILY_SCRAPE_TIME ("HH:MM") into one.
func scheduleFromEnv() string {
	if expr := os.Getenv("SCRAPE_SCHEDULE"); expr != "" {
		return expr
	}
	expr, err := DailyCron(getEnv("DAILY_SCRAPE_TIME", "09:00"))
	if err != nil {
		log.Printf("[config] %v, using 09:00", err)
		return "0 9 * * *"
	}
	return expr
}

// DailyCron converts "HH:MM" into a five-field cron expression.
func DailyCron(hhmm string) (string, error) {
	parts := strings.Split(strings.TrimSpace(hhmm), ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid daily scrape time %q", hhmm)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", hhmm)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", hhmm)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvMillis(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil && n >= 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return fallback
}
