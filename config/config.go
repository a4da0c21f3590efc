package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port     string
	LogLevel string

	DBDriver   string // postgres, mysql or sqlite
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBDSN      string // overrides the DB_* parts when set

	JWTKey string

	EmailProvider  string // smtp, sendgrid or log
	SMTPHost       string
	SMTPPort       string
	EmailSender    string
	Password       string // SMTP Password
	SendGridAPIKey string

	StorageDir     string
	StorageBaseURL string

	TurnstileURL string

	EmailTimeout      time.Duration
	GenerationTimeout time.Duration

	VerifyRatePerMin int
	ResendSchedule   string // cron spec, empty disables the job
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	AppConfig = &Config{
		Port:     getEnv("PORT", "3000"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "lmscert"),
		DBDSN:      getEnv("DB_DSN", ""),

		JWTKey: getEnv("JWT_SECRET_KEY", "defaultSecret"),

		EmailProvider:  getEnv("EMAIL_PROVIDER", "smtp"),
		SMTPHost:       getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:       getEnv("SMTP_PORT", "587"),
		EmailSender:    getEnv("EMAIL_SENDER", ""),
		Password:       getEnv("PASSWORD", ""),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),

		StorageDir:     getEnv("STORAGE_DIR", "./public/uploads"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:3000/uploads"),

		TurnstileURL: getEnv("TURNSTILE_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify"),

		EmailTimeout:      getEnvDuration("EMAIL_TIMEOUT", 30*time.Second),
		GenerationTimeout: getEnvDuration("GENERATION_TIMEOUT", 30*time.Second),

		VerifyRatePerMin: getEnvInt("VERIFY_RATE_PER_MIN", 20),
		ResendSchedule:   getEnv("RESEND_SCHEDULE", ""),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.EmailProvider == "sendgrid" && AppConfig.SendGridAPIKey == "" {
		log.Println("Warning: EMAIL_PROVIDER is sendgrid but SENDGRID_API_KEY is empty.")
	}
	return AppConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}

// getEnvDuration accepts Go durations ("45s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs <= 0 {
		log.Printf("Error converting environment variable %s to duration: %v", key, err)
		return defaultValue
	}
	return time.Duration(secs) * time.Second
}
