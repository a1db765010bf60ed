package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIORNMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

type EnviornmentVariable struct {
	// All variables
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// JWT Configuration
	JWT_SECRET string
	JWT_ISSUER string
	// Redis Configuration
	REDIS_URL string
	// Logging
	LOG_MODE string
	// AI summary (OpenAI compatible inference endpoint)
	MODEL_ACCESS_KEY        string
	INFERENCE_BASE_URL      string
	INFERENCE_MODEL         string
	SUMMARY_TIMEOUT_SECONDS int
	SUMMARY_CACHE_TTL_HOURS int
	// DigitalOcean Spaces (course dataset import)
	DO_SPACES_BUCKET     string
	DO_SPACES_REGION     string
	DO_SPACES_ENDPOINT   string
	DO_SPACES_ACCESS_KEY string
	DO_SPACES_SECRET_KEY string
	// Background jobs
	CRON_ENABLED bool
	// HTTP
	ALLOWED_ORIGINS string
	// Tracing
	OTEL_ENABLED                bool
	OTEL_EXPORTER_OTLP_ENDPOINT string
}

func Get() (*EnviornmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	// Database defaults
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}

	sslMode := os.Getenv("DB_SSL_MODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
		if os.Getenv("GO_ENV") == "production" {
			logMode = "production"
		}
	}

	envVariables := &EnviornmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      dbHost,
		DB_PORT:      dbPort,
		DB_SSL_MODE:  sslMode,
		PORT:         port,
		// JWT
		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: os.Getenv("JWT_ISSUER"),
		// Redis
		REDIS_URL: os.Getenv("REDIS_URL"),
		// Logging
		LOG_MODE: logMode,
		// AI summary
		MODEL_ACCESS_KEY:        os.Getenv("MODEL_ACCESS_KEY"),
		INFERENCE_BASE_URL:      os.Getenv("INFERENCE_BASE_URL"),
		INFERENCE_MODEL:         os.Getenv("INFERENCE_MODEL"),
		SUMMARY_TIMEOUT_SECONDS: intOr("SUMMARY_TIMEOUT_SECONDS", 30),
		SUMMARY_CACHE_TTL_HOURS: intOr("SUMMARY_CACHE_TTL_HOURS", 24),
		// DigitalOcean Spaces
		DO_SPACES_BUCKET:     os.Getenv("DO_SPACES_BUCKET"),
		DO_SPACES_REGION:     os.Getenv("DO_SPACES_REGION"),
		DO_SPACES_ENDPOINT:   os.Getenv("DO_SPACES_ENDPOINT"),
		DO_SPACES_ACCESS_KEY: os.Getenv("DO_SPACES_ACCESS_KEY"),
		DO_SPACES_SECRET_KEY: os.Getenv("DO_SPACES_SECRET_KEY"),
		// Background jobs
		CRON_ENABLED: boolOr("CRON_ENABLED", true),
		// HTTP
		ALLOWED_ORIGINS: os.Getenv("ALLOWED_ORIGINS"),
		// Tracing
		OTEL_ENABLED:                boolOr("OTEL_ENABLED", false),
		OTEL_EXPORTER_OTLP_ENDPOINT: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	return envVariables, nil
}

// DSN builds the postgres connection string
func (e *EnviornmentVariable) DSN() string {
	return "host=" + e.DB_HOST +
		" user=" + e.DB_USER_NAME +
		" password=" + e.DB_PASSWORD +
		" dbname=" + e.DB_NAME +
		" port=" + e.DB_PORT +
		" sslmode=" + e.DB_SSL_MODE +
		" TimeZone=UTC"
}

func intOr(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func boolOr(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
