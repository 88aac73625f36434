/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/minewatch/pkg/table"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "MINEWATCH_"

// Storage backends
const (
	BackendPebble = "pebble"
	BackendDynamo = "dynamodb"
	BackendRedis  = "redis"
)

// Config represents the minewatch configuration
type Config struct {
	Backend   string    `yaml:"backend"`
	Table     string    `yaml:"table"`
	Pebble    Pebble    `yaml:"pebble"`
	Dynamo    Dynamo    `yaml:"dynamodb"`
	Redis     Redis     `yaml:"redis"`
	MQTT      MQTT      `yaml:"mqtt"`
	Server    Server    `yaml:"server"`
	Simulator Simulator `yaml:"simulator"`
	Logging   Logging   `yaml:"logging"`
}

// Pebble configures the local pebble backend
type Pebble struct {
	DataDir  string `yaml:"data_dir"`
	InMemory bool   `yaml:"in_memory"`
	Sync     bool   `yaml:"sync"`
}

// Dynamo configures the DynamoDB backend
type Dynamo struct {
	Region        string        `yaml:"region"`
	Endpoint      string        `yaml:"endpoint"`
	WaitForActive time.Duration `yaml:"wait_for_active"`
}

// Redis configures the Redis backend
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// MQTT configures live ingestion and publishing
type MQTT struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
}

// Server contains HTTP API configuration
type Server struct {
	Bind        string   `yaml:"bind"`
	Port        int      `yaml:"port"`
	APIKey      string   `yaml:"api_key"`
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

// Simulator configures synthetic reading emission
type Simulator struct {
	Interval time.Duration `yaml:"interval"`
	Count    int           `yaml:"count"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendPebble,
		Table:   "WorkerReadings",
		Pebble: Pebble{
			DataDir: "./data",
		},
		Dynamo: Dynamo{
			Region: "us-east-1",
		},
		Redis: Redis{
			Addr:   "localhost:6379",
			Prefix: "minewatch",
		},
		MQTT: MQTT{
			Broker:   "tcp://localhost:1883",
			ClientID: "minewatch",
			Topic:    "minewatch/readings",
			QoS:      1,
		},
		Server: Server{
			Bind:   "127.0.0.1",
			Port:   8080,
			APIKey: "auto",
		},
		Simulator: Simulator{
			Interval: time.Second,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the effective configuration: defaults, then the config file if
// one is given, then .env and MINEWATCH_* environment overrides.
func Load(configPath string) (*Config, error) {
	if err := LoadEnvFile(".env"); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if configPath != "" {
		loaded, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadEnvFile loads variables from dotenv files. Missing files are skipped and
// variables already set in the environment win.
func LoadEnvFile(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from the specified path. Keys missing from
// the file keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	// Validate path to prevent directory traversal
	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write with secure permissions (0600)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides fields from MINEWATCH_* environment variables
func (c *Config) ApplyEnv() error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}

	str("BACKEND", &c.Backend)
	str("TABLE", &c.Table)
	str("DATA_DIR", &c.Pebble.DataDir)
	str("DYNAMO_REGION", &c.Dynamo.Region)
	str("DYNAMO_ENDPOINT", &c.Dynamo.Endpoint)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("MQTT_BROKER", &c.MQTT.Broker)
	str("MQTT_USERNAME", &c.MQTT.Username)
	str("MQTT_PASSWORD", &c.MQTT.Password)
	str("MQTT_TOPIC", &c.MQTT.Topic)
	str("BIND", &c.Server.Bind)
	str("API_KEY", &c.Server.APIKey)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)

	if err := num("REDIS_DB", &c.Redis.DB); err != nil {
		return err
	}
	if err := num("PORT", &c.Server.Port); err != nil {
		return err
	}
	return nil
}

// Validate fails fast on settings no component could run with
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendPebble:
		if c.Pebble.DataDir == "" && !c.Pebble.InMemory {
			return errors.New("pebble backend requires a data_dir or in_memory")
		}
	case BackendDynamo:
		if c.Dynamo.Region == "" {
			return errors.New("dynamodb backend requires a region")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis backend requires an addr")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	if err := table.ValidateTableName(c.Table); err != nil {
		return err
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Server.Port)
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt qos %d out of range", c.MQTT.QoS)
	}
	if c.Simulator.Interval < 0 || c.Simulator.Count < 0 {
		return errors.New("simulator interval and count must not be negative")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a new configuration with a generated API key
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.Pebble.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Server.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./minewatch.yaml"
	}

	// For Linux/macOS, use ~/.config/minewatch/config.yaml
	configDir := filepath.Join(homeDir, ".config", "minewatch")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
