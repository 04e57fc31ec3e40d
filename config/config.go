package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	Port     string
	Env      string
	DBURL    string
	SQLite   string
	Timezone *time.Location

	CORSOrigins []string

	JWTSecret       string
	OperatorKeyHash string

	MessagingProvider   string
	BitSafiraBaseURL    string
	BitSafiraToken      string
	BitSafiraInstanceID string
	TwilioAccountSID    string
	TwilioAuthToken     string
	TwilioWhatsApp      string
	WhatsAppCountryCode string

	Reminders ReminderConfig

	RedisURL string
}

// ReminderConfig tunes the reminder queue pipeline.
type ReminderConfig struct {
	PollInterval time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
	SurveyDelay  time.Duration
	LogBuffer    int
	LockTTL      time.Duration
}

// IsDevelopment reports whether APP_ENV selects the development profile.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Load reads configuration values and prepares defaults where applicable.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	timezoneName := getenvDefault("LOCAL_TIMEZONE", "America/Sao_Paulo")
	location, err := time.LoadLocation(timezoneName)
	if err != nil {
		log.Printf("config: invalid LOCAL_TIMEZONE %q, defaulting to UTC: %v", timezoneName, err)
		location = time.UTC
	}

	return &Config{
		Port:     getenvDefault("PORT", "8080"),
		Env:      getenvDefault("APP_ENV", "production"),
		DBURL:    os.Getenv("DB_URL"),
		SQLite:   getenvDefault("SQLITE_PATH", "barberpro.db"),
		Timezone: location,

		CORSOrigins: splitList(getenvDefault("CORS_ORIGINS", "http://localhost:3000")),

		JWTSecret:       os.Getenv("JWT_SECRET"),
		OperatorKeyHash: os.Getenv("OPERATOR_KEY_HASH"),

		MessagingProvider:   strings.ToLower(getenvDefault("MESSAGING_PROVIDER", "bitsafira")),
		BitSafiraBaseURL:    getenvDefault("BITSAFIRA_BASE_URL", "https://api.bitsafira.com.br"),
		BitSafiraToken:      os.Getenv("BITSAFIRA_TOKEN"),
		BitSafiraInstanceID: os.Getenv("BITSAFIRA_INSTANCE_ID"),
		TwilioAccountSID:    os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:     os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsApp:      os.Getenv("TWILIO_WHATSAPP_NUMBER"),
		WhatsAppCountryCode: getenvDefault("WHATSAPP_COUNTRY_CODE", "55"),

		Reminders: ReminderConfig{
			PollInterval: ParseDurationEnv("REMINDER_POLL_INTERVAL", 60*time.Second),
			MaxAttempts:  ParseIntEnv("REMINDER_MAX_ATTEMPTS", 1),
			RetryBackoff: ParseDurationEnv("REMINDER_RETRY_BACKOFF", 5*time.Minute),
			SurveyDelay:  ParseDurationEnv("REMINDER_SURVEY_DELAY", 24*time.Hour),
			LogBuffer:    ParseIntEnv("REMINDER_LOG_BUFFER", 200),
			LockTTL:      ParseDurationEnv("REMINDER_LOCK_TTL", 55*time.Second),
		},

		RedisURL: os.Getenv("REDIS_URL"),
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	return value
}

// ParseIntEnv returns the integer value for an environment variable or the provided default.
func ParseIntEnv(key string, def int) int {
	value := os.Getenv(key)
	if value == "" {
		return def
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("config: unable to parse %s=%q as int: %v", key, value, err)
		return def
	}
	return parsed
}

// ParseDurationEnv accepts Go durations ("90s", "5m") or a bare number of seconds.
func ParseDurationEnv(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		log.Printf("config: unable to parse %s=%q as duration: %v", key, value, err)
		return def
	}
	return parsed
}
