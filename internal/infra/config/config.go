package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
type AppConfig struct {
	DatabaseURL       string // business schema (tours, cruises, tickets, users)
	LedgerDriver      string // "postgres" or "sqlite"
	LedgerDatabaseURL string // defaults to DatabaseURL for postgres
	TelegramToken     string
	AdminTelegramID   int64
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	EmailFrom         string
	CronSpecReminders string
	ReminderTimezone  string // business timezone anchoring "today" for tour/cruise kinds
	ReminderOffsets   []int
	SendDelay         time.Duration
	LogLevel          string
	Environment       string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.LedgerDriver = strings.ToLower(os.Getenv("LEDGER_DRIVER"))
	if cfg.LedgerDriver == "" {
		cfg.LedgerDriver = "postgres"
	}
	if cfg.LedgerDriver != "postgres" && cfg.LedgerDriver != "sqlite" {
		return nil, fmt.Errorf("invalid LEDGER_DRIVER %q: must be postgres or sqlite", cfg.LedgerDriver)
	}

	cfg.LedgerDatabaseURL = os.Getenv("LEDGER_DATABASE_URL")
	if cfg.LedgerDatabaseURL == "" {
		if cfg.LedgerDriver == "sqlite" {
			return nil, fmt.Errorf("LEDGER_DATABASE_URL is required when LEDGER_DRIVER is sqlite")
		}
		cfg.LedgerDatabaseURL = cfg.DatabaseURL
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if adminIDStr == "" {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
	}

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("SMTP_HOST is not set")
	}
	portStr := os.Getenv("SMTP_PORT")
	if portStr == "" {
		portStr = "587"
	}
	cfg.SMTPPort, err = strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}
	cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")

	cfg.EmailFrom = os.Getenv("EMAIL_FROM")
	if cfg.EmailFrom == "" {
		cfg.EmailFrom = cfg.SMTPUsername
	}
	if cfg.EmailFrom == "" {
		return nil, fmt.Errorf("EMAIL_FROM is not set and SMTP_USERNAME is empty")
	}

	cfg.CronSpecReminders = os.Getenv("CRON_SPEC_REMINDERS")
	if cfg.CronSpecReminders == "" {
		cfg.CronSpecReminders = "0 8 * * *" // Default: 08:00 daily, business timezone
	}

	cfg.ReminderTimezone = os.Getenv("REMINDER_TIMEZONE")
	if cfg.ReminderTimezone == "" {
		cfg.ReminderTimezone = "Asia/Bangkok" // UTC+7 business timezone
	}

	offsetsStr := os.Getenv("REMINDER_OFFSETS")
	if offsetsStr == "" {
		offsetsStr = "7,3,2,1,0"
	}
	cfg.ReminderOffsets, err = parseOffsets(offsetsStr)
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_OFFSETS: %w", err)
	}

	delayStr := os.Getenv("SEND_DELAY")
	if delayStr == "" {
		delayStr = "1s"
	}
	cfg.SendDelay, err = time.ParseDuration(delayStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SEND_DELAY: %w", err)
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	return cfg, nil
}

// parseOffsets parses a comma-separated list of non-negative day offsets.
func parseOffsets(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	offsets := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("offset %q is not a number: %w", p, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("offset %d is negative", n)
		}
		offsets = append(offsets, n)
	}
	if len(offsets) == 0 {
		return nil, fmt.Errorf("no offsets given")
	}
	return offsets, nil
}
