// File: internal/config/config.go
// Preferans Server - Configuration Management

package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the Preferans server.
type Config struct {
	// Server settings
	ServerName    string
	ServerVersion string
	ListenHost    string // empty = all interfaces, "localhost" = local only
	ListenPort    int

	// TLS settings (§6.3 --cert/--key/--dh)
	TLSEnabled bool
	TLSCert    string
	TLSKey     string
	TLSDH      string

	// Store settings (§4.1, §6.2)
	StoreBackend     string // "file", "sqlite", or "postgres"
	StorePath        string // file path, or sqlite db path
	DBHost           string // for postgres
	DBPort           int    // for postgres
	DBName           string
	DBUser           string
	DBPassword       string
	DBMaxConnections int
	DBMaxIdleConns   int

	// Redis cache settings (optional read-through in front of the store)
	RedisEnabled bool
	RedisHost    string
	RedisPort    int
	RedisDB      int

	// Game/session behavior
	ReconnectGraceSecs  int
	DealEndPauseSecs    int
	SendQueueCapacity   int
	ShutdownTimeoutSecs int
}

var defaultConfig = Config{
	ServerName:          "Preferans Server",
	ServerVersion:       "0.1.0",
	ListenHost:          "",
	ListenPort:          8080,
	TLSEnabled:          false,
	TLSCert:             "certs/server.crt",
	TLSKey:              "certs/server.key",
	TLSDH:               "certs/dh.pem",
	StoreBackend:        "file",
	StorePath:           "data/preferans.gob",
	DBHost:              "localhost",
	DBPort:              5432,
	DBName:              "preferans",
	DBUser:              "preferans",
	DBPassword:          "",
	DBMaxConnections:    25,
	DBMaxIdleConns:      5,
	RedisEnabled:        false,
	RedisHost:           "localhost",
	RedisPort:           6379,
	RedisDB:             0,
	ReconnectGraceSecs:  10,
	DealEndPauseSecs:    3,
	SendQueueCapacity:   128,
	ShutdownTimeoutSecs: 30,
}

// LoadConfig loads configuration from an environment file. The -env flag
// can point at a custom path; a missing file is created with defaults
// rather than treated as an error, matching the teacher's bootstrap
// behavior.
func LoadConfig() (*Config, error) {
	envFile := flag.String("env", ".env", "Path to environment configuration file")
	flag.Parse()

	if _, err := os.Stat(*envFile); os.IsNotExist(err) {
		log.Printf("Configuration file %s not found, creating with defaults...", *envFile)
		if err := createDefaultEnvFile(*envFile); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	log.Printf("Loading configuration from: %s", *envFile)
	if err := godotenv.Load(*envFile); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg := defaultConfig
	applyEnv(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("Configuration loaded successfully")
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.ServerName = getString("SERVER_NAME", cfg.ServerName)
	cfg.ServerVersion = getString("SERVER_VERSION", cfg.ServerVersion)
	cfg.ListenHost = getString("LISTEN_HOST", cfg.ListenHost)
	cfg.ListenPort = getInt("LISTEN_PORT", cfg.ListenPort)

	cfg.TLSEnabled = getBool("TLS_ENABLED", cfg.TLSEnabled)
	cfg.TLSCert = getString("TLS_CERT_FILE", cfg.TLSCert)
	cfg.TLSKey = getString("TLS_KEY_FILE", cfg.TLSKey)
	cfg.TLSDH = getString("TLS_DH_FILE", cfg.TLSDH)

	cfg.StoreBackend = getString("STORE_BACKEND", cfg.StoreBackend)
	cfg.StorePath = getString("STORE_PATH", cfg.StorePath)
	cfg.DBHost = getString("DB_HOST", cfg.DBHost)
	cfg.DBPort = getInt("DB_PORT", cfg.DBPort)
	cfg.DBName = getString("DB_NAME", cfg.DBName)
	cfg.DBUser = getString("DB_USER", cfg.DBUser)
	cfg.DBPassword = getString("DB_PASSWORD", cfg.DBPassword)
	cfg.DBMaxConnections = getInt("DB_MAX_CONNECTIONS", cfg.DBMaxConnections)
	cfg.DBMaxIdleConns = getInt("DB_MAX_IDLE_CONNS", cfg.DBMaxIdleConns)

	cfg.RedisEnabled = getBool("REDIS_ENABLED", cfg.RedisEnabled)
	cfg.RedisHost = getString("REDIS_HOST", cfg.RedisHost)
	cfg.RedisPort = getInt("REDIS_PORT", cfg.RedisPort)
	cfg.RedisDB = getInt("REDIS_DB", cfg.RedisDB)

	cfg.ReconnectGraceSecs = getInt("RECONNECT_GRACE_SECS", cfg.ReconnectGraceSecs)
	cfg.DealEndPauseSecs = getInt("DEAL_END_PAUSE_SECS", cfg.DealEndPauseSecs)
	cfg.SendQueueCapacity = getInt("SEND_QUEUE_CAPACITY", cfg.SendQueueCapacity)
	cfg.ShutdownTimeoutSecs = getInt("SHUTDOWN_TIMEOUT_SECS", cfg.ShutdownTimeoutSecs)
}

func getString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: invalid integer for %s=%q, keeping default %d", key, v, def)
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return v == "true" || v == "1"
}

// createDefaultEnvFile creates a default .env file with comments.
func createDefaultEnvFile(filename string) error {
	content := `# Preferans Server Configuration File
# This file contains bootstrap configuration for the game server.
# It will be automatically created with defaults if missing.

# ==============================================================================
# SERVER SETTINGS
# ==============================================================================
SERVER_NAME=Preferans Server
SERVER_VERSION=0.1.0

# Host/IP to bind to:
#   (empty)      = Bind to all interfaces (0.0.0.0)
#   localhost    = Bind to localhost only
LISTEN_HOST=
LISTEN_PORT=8080

# ==============================================================================
# TLS SETTINGS (§6.3 --cert/--key/--dh)
# ==============================================================================
TLS_ENABLED=false
TLS_CERT_FILE=certs/server.crt
TLS_KEY_FILE=certs/server.key
TLS_DH_FILE=certs/dh.pem

# ==============================================================================
# STORE SETTINGS
# ==============================================================================
# STORE_BACKEND: "file", "sqlite", or "postgres"
STORE_BACKEND=file
STORE_PATH=data/preferans.gob

# For sqlite/postgres (ignored by the file backend)
DB_HOST=localhost
DB_PORT=5432
DB_NAME=preferans
DB_USER=preferans
DB_PASSWORD=
DB_MAX_CONNECTIONS=25
DB_MAX_IDLE_CONNS=5

# ==============================================================================
# REDIS CACHE (optional read-through in front of the store)
# ==============================================================================
REDIS_ENABLED=false
REDIS_HOST=localhost
REDIS_PORT=6379
REDIS_DB=0

# ==============================================================================
# GAME / SESSION BEHAVIOR
# ==============================================================================
RECONNECT_GRACE_SECS=10
DEAL_END_PAUSE_SECS=3
SEND_QUEUE_CAPACITY=128
SHUTDOWN_TIMEOUT_SECS=30
`
	return os.WriteFile(filename, []byte(content), 0644)
}

// validateConfig checks if configuration values are valid.
func validateConfig(cfg *Config) error {
	if cfg.ListenPort < 1 || cfg.ListenPort > 65535 {
		return fmt.Errorf("invalid LISTEN_PORT: must be between 1 and 65535")
	}

	switch cfg.StoreBackend {
	case "file", "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid STORE_BACKEND: must be 'file', 'sqlite', or 'postgres'")
	}

	if cfg.StoreBackend == "file" && cfg.StorePath == "" {
		return fmt.Errorf("STORE_PATH cannot be empty for the file backend")
	}

	if cfg.StoreBackend == "postgres" {
		if cfg.DBHost == "" {
			return fmt.Errorf("DB_HOST required for postgres")
		}
		if cfg.DBUser == "" {
			return fmt.Errorf("DB_USER required for postgres")
		}
	}

	if cfg.ShutdownTimeoutSecs < 5 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT_SECS must be at least 5 seconds")
	}
	if cfg.ReconnectGraceSecs < 1 {
		return fmt.Errorf("RECONNECT_GRACE_SECS must be at least 1 second")
	}
	if cfg.SendQueueCapacity < 1 {
		return fmt.Errorf("SEND_QUEUE_CAPACITY must be at least 1")
	}

	return nil
}

// DSN returns the sqlite/postgres connection string for the configured
// store backend. Unused by the file backend.
func (c *Config) DSN() string {
	switch c.StoreBackend {
	case "sqlite":
		return c.StorePath
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
		)
	default:
		return ""
	}
}

// BindAddress returns the address to bind the server to.
func (c *Config) BindAddress() string {
	if c.ListenHost == "" {
		return "0.0.0.0"
	}
	return c.ListenHost
}

// ListenAddress returns the full listen address (host:port).
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.BindAddress(), c.ListenPort)
}

// LogConfig logs the current configuration (without sensitive data).
func (c *Config) LogConfig() {
	log.Println("=== Server Configuration ===")
	log.Printf("Server: %s v%s", c.ServerName, c.ServerVersion)
	log.Printf("Listen Address: %s", c.ListenAddress())
	log.Printf("TLS: %v", c.TLSEnabled)
	log.Printf("Store Backend: %s", c.StoreBackend)
	if c.StoreBackend == "file" {
		log.Printf("Store Path: %s", c.StorePath)
	} else {
		log.Printf("Store Host: %s:%d", c.DBHost, c.DBPort)
		log.Printf("Store Name: %s", c.DBName)
	}
	log.Printf("Redis Cache: %v", c.RedisEnabled)
	log.Printf("Reconnect Grace: %ds", c.ReconnectGraceSecs)
	log.Printf("Deal End Pause: %ds", c.DealEndPauseSecs)
	log.Println("===========================")
}
