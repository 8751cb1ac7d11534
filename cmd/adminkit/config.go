package main

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the CLI settings. Values come from the environment (with a
// .env file loaded first) and may be overridden by flags.
type Config struct {
	APIBaseURL      string
	APIToken        string
	APITimeout      time.Duration
	RetryCount      int
	Scope           string
	PermissionsFile string
	EntitiesFile    string
	DatabaseURL     string
	DBMaxConns      int
	RedisAddr       string
	RedisDB         int
	LogLevel        string
	LogFormat       string
}

// loadConfig reads .env from the working directory or its parents, then the
// home directory, then the environment.
func loadConfig() Config {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".adminkit.env"))
	}

	return Config{
		APIBaseURL:      getEnv("ADMINKIT_API_URL", "http://localhost:8080/api"),
		APIToken:        os.Getenv("ADMINKIT_API_TOKEN"),
		APITimeout:      getDuration("ADMINKIT_API_TIMEOUT", 15*time.Second),
		RetryCount:      getInt("ADMINKIT_RETRY_COUNT", 2),
		Scope:           os.Getenv("ADMINKIT_SCOPE"),
		PermissionsFile: getEnv("ADMINKIT_PERMISSIONS", "permissions.yaml"),
		EntitiesFile:    getEnv("ADMINKIT_ENTITIES", "entities.yaml"),
		DatabaseURL:     os.Getenv("ADMINKIT_DATABASE_URL"),
		DBMaxConns:      getInt("ADMINKIT_DB_MAX_CONNS", 10),
		RedisAddr:       os.Getenv("ADMINKIT_REDIS_ADDR"),
		RedisDB:         getInt("ADMINKIT_REDIS_DB", 0),
		LogLevel:        getEnv("ADMINKIT_LOG_LEVEL", "info"),
		LogFormat:       getEnv("ADMINKIT_LOG_FORMAT", "console"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}
