// Package config loads the relayer's configuration surface from
// environment variables, following the reference validator's
// getEnv/getEnvInt/getEnvDuration convention, with an optional YAML
// overlay for the handful of deployment-time values that don't fit neatly
// into an env var (the source deployment block height, chain IDs).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full Configuration Surface (§6) plus the ambient
// operational knobs the supervisor and optional integrations need.
type Config struct {
	// Required chain endpoints and contract addresses.
	SourceRPCURL             string
	DestinationRPCURL        string
	SourceBridgeAddress      string
	DestinationBridgeAddress string
	SignerSecretKey          string

	// Tunables with spec-mandated or implementation-chosen defaults.
	PollInterval       time.Duration
	CheckpointPath     string
	MaxWindow          uint64
	TxTimeout          time.Duration
	DeploymentBlock    *uint64
	DeploymentLookback uint64

	SourceChainID      int64
	DestinationChainID int64
	ReleaseGasLimit    uint64

	// Ambient stack.
	LogLevel    string
	MetricsAddr string
	HealthAddr  string

	// Optional integrations (§12).
	AuditDatabaseURL  string
	FirestoreEnabled  bool
	FirebaseProjectID string
	FirebaseCredFile  string
}

// Overlay is the optional YAML document pointed to by RELAYER_CONFIG_FILE,
// carrying values awkward to express as a single env var.
type Overlay struct {
	DeploymentBlock    *uint64 `yaml:"deployment_block"`
	SourceChainID      int64   `yaml:"source_chain_id"`
	DestinationChainID int64   `yaml:"destination_chain_id"`
}

// Load reads configuration from environment variables, then applies an
// optional YAML overlay if RELAYER_CONFIG_FILE is set. Call Validate()
// afterward before starting the relayer.
func Load() (*Config, error) {
	cfg := &Config{
		SourceRPCURL:             getEnv("SOURCE_RPC_URL", ""),
		DestinationRPCURL:        getEnv("DESTINATION_RPC_URL", ""),
		SourceBridgeAddress:      getEnv("SOURCE_BRIDGE_ADDRESS", ""),
		DestinationBridgeAddress: getEnv("DESTINATION_BRIDGE_ADDRESS", ""),
		SignerSecretKey:          getEnv("SIGNER_SECRET_KEY", ""),

		PollInterval:       getEnvDuration("POLL_INTERVAL_MS", 5000*time.Millisecond, time.Millisecond),
		CheckpointPath:     getEnv("CHECKPOINT_PATH", "./last_block.txt"),
		MaxWindow:          getEnvUint64("MAX_WINDOW", 2000),
		TxTimeout:          getEnvDuration("TX_TIMEOUT_MS", 120*time.Second, time.Millisecond),
		DeploymentLookback: getEnvUint64("DEPLOYMENT_LOOKBACK_BLOCKS", 100),

		SourceChainID:      getEnvInt64("SOURCE_CHAIN_ID", 1),
		DestinationChainID: getEnvInt64("DESTINATION_CHAIN_ID", 1),
		ReleaseGasLimit:    getEnvUint64("RELEASE_GAS_LIMIT", 200000),

		LogLevel:    getEnv("LOG_LEVEL", "info"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		HealthAddr:  getEnv("HEALTH_ADDR", ":8081"),

		AuditDatabaseURL:  getEnv("AUDIT_DATABASE_URL", ""),
		FirestoreEnabled:  getEnvBool("FIRESTORE_ENABLED", false),
		FirebaseProjectID: getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredFile:  getEnv("FIREBASE_CREDENTIALS_FILE", ""),
	}

	if path := os.Getenv("RELAYER_CONFIG_FILE"); path != "" {
		if err := applyOverlay(cfg, path); err != nil {
			return nil, fmt.Errorf("config: apply overlay %s: %w", path, err)
		}
	}

	return cfg, nil
}

func applyOverlay(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read overlay: %w", err)
	}
	var overlay Overlay
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return fmt.Errorf("parse overlay: %w", err)
	}
	if overlay.DeploymentBlock != nil {
		cfg.DeploymentBlock = overlay.DeploymentBlock
	}
	if overlay.SourceChainID != 0 {
		cfg.SourceChainID = overlay.SourceChainID
	}
	if overlay.DestinationChainID != 0 {
		cfg.DestinationChainID = overlay.DestinationChainID
	}
	return nil
}

// Validate checks that every required option in §6's Configuration
// Surface table is present.
func (c *Config) Validate() error {
	var missing []string

	if c.SourceRPCURL == "" {
		missing = append(missing, "SOURCE_RPC_URL is required but not set")
	}
	if c.DestinationRPCURL == "" {
		missing = append(missing, "DESTINATION_RPC_URL is required but not set")
	}
	if c.SourceBridgeAddress == "" {
		missing = append(missing, "SOURCE_BRIDGE_ADDRESS is required but not set")
	}
	if c.DestinationBridgeAddress == "" {
		missing = append(missing, "DESTINATION_BRIDGE_ADDRESS is required but not set")
	}
	if c.SignerSecretKey == "" {
		missing = append(missing, "SIGNER_SECRET_KEY is required but not set")
	}
	if c.MaxWindow == 0 {
		missing = append(missing, "MAX_WINDOW must be positive")
	}

	if len(missing) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(missing, "\n  - "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseUint(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration reads an integer env var and scales it by unit, matching
// the spec's *_ms naming convention (e.g. POLL_INTERVAL_MS=5000).
func getEnvDuration(key string, defaultValue time.Duration, unit time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return time.Duration(parsed) * unit
		}
	}
	return defaultValue
}
