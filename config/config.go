package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort        string
	DatabaseURL       string
	SourcesPath       string
	IngestCron        string
	FetchTimeout      time.Duration
	RequestsPerSecond float64
	LogLevel          string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		SourcesPath:       getEnv("SOURCES_PATH", "config/sources.yaml"),
		IngestCron:        getEnv("INGEST_CRON", "0 0 */6 * * *"),
		FetchTimeout:      getSecondsEnv("FETCH_TIMEOUT_SECONDS", 10),
		RequestsPerSecond: getFloatEnv("FETCH_REQUESTS_PER_SECOND", 2.0),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getSecondsEnv(key string, fallback int) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return time.Duration(fallback) * time.Second
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		logrus.Warnf("Invalid %s value: %s, using default %d seconds", key, value, fallback)
		return time.Duration(fallback) * time.Second
	}
	return time.Duration(seconds) * time.Second
}

func getFloatEnv(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		logrus.Warnf("Invalid %s value: %s, using default %.1f", key, value, fallback)
		return fallback
	}
	return parsed
}
