package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// RemoteMode selects which remote data sources the agent talks to
type RemoteMode string

const (
	RemoteFake RemoteMode = "fake" // In-process stub with latency and optional failures
	RemoteHTTP RemoteMode = "http" // Real backend (cmd/server)
)

// AgentConfig configures the driver agent (cmd/driver)
type AgentConfig struct {
	DBPath string

	RemoteMode       RemoteMode
	BackendURL       string
	DriverPIN        string
	SimulateFailures bool

	SyncPeriod         time.Duration
	SyncBackoffInitial time.Duration
	SyncBackoffMax     time.Duration

	TrackMinDelta float64 // meters

	LogLevel  string
	LogFormat string
}

// ServerConfig configures the sync backend (cmd/server)
type ServerConfig struct {
	Port             string
	DatabaseURL      string
	JWTSecret        string
	UploadsPerMinute int

	FirebaseCredentialsBase64 string
	FirebaseCredentialsFile   string

	// PINs given to the seeded accounts on first start
	SeedDriverPIN     string
	SeedDispatcherPIN string

	LogLevel  string
	LogFormat string
}

// loadDotEnv loads .env when present. A missing file is not an error.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("⚠️  Warning: could not read .env: %v", err)
	}
}

// LoadAgent reads the agent configuration from the environment
func LoadAgent() *AgentConfig {
	loadDotEnv()

	return &AgentConfig{
		DBPath: getEnv("DRIVER_DB_PATH", "busdriver.db"),

		RemoteMode:       RemoteMode(strings.ToLower(getEnv("REMOTE_MODE", string(RemoteFake)))),
		BackendURL:       strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8080"), "/"),
		DriverPIN:        getEnv("DRIVER_PIN", ""),
		SimulateFailures: getEnvBool("SIMULATE_FAILURES", false),

		SyncPeriod:         getEnvDuration("SYNC_PERIOD", 15*time.Minute),
		SyncBackoffInitial: getEnvDuration("SYNC_BACKOFF_INITIAL", 30*time.Second),
		SyncBackoffMax:     getEnvDuration("SYNC_BACKOFF_MAX", 5*time.Hour),

		TrackMinDelta: getEnvFloat("TRACK_MIN_DELTA_METERS", 1.0),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}
}

// LoadServer reads the backend configuration from the environment
func LoadServer() *ServerConfig {
	loadDotEnv()

	return &ServerConfig{
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		JWTSecret:        getEnv("APP_JWT_SECRET", ""),
		UploadsPerMinute: getEnvInt("UPLOADS_PER_MINUTE", 30),

		FirebaseCredentialsBase64: getEnv("FIREBASE_CREDENTIALS_BASE64", ""),
		FirebaseCredentialsFile:   getEnv("FIREBASE_CREDENTIALS_FILE", ""),

		SeedDriverPIN:     getEnv("SEED_DRIVER_PIN", "1234"),
		SeedDispatcherPIN: getEnv("SEED_DISPATCHER_PIN", "4321"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
