package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"market-simulator/src/helpers"
	"market-simulator/src/market"
	"market-simulator/src/models"
	"market-simulator/src/orderbook"
	"market-simulator/src/utils"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the YAML file.
const (
	EnvHost               = "SIM_HOST"
	EnvPort               = "SIM_PORT"
	EnvLogLevel           = "SIM_LOG_LEVEL"
	EnvDBType             = "SIM_DB_TYPE"
	EnvDBPath             = "SIM_DB_PATH"
	EnvDBConnectionString = "SIM_DB_CONNECTION_STRING"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig loads the YAML file, fills defaults, applies environment
// overrides and validates the result.
func NewConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.ApplyDefaults()

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// LoadEnvFile exports the variables of a .env file. Variables already set in
// the environment win; a missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills every optional field left empty in the file.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "market-simulator"
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.WSBufferSize <= 0 {
		c.WSBufferSize = utils.DefaultWSBufferSize
	}

	if c.Storage.DBType == "" {
		c.Storage.DBType = "sqlite"
	}
	if c.Storage.RetentionHours <= 0 {
		c.Storage.RetentionHours = utils.DefaultRetentionHours
	}

	sim := &c.Simulator
	if sim.MinDelayMs <= 0 {
		sim.MinDelayMs = 3000
	}
	if sim.MaxDelayMs <= 0 {
		sim.MaxDelayMs = 8000
	}
	if sim.LastPriceProbability == nil {
		p := orderbook.DefaultLastPriceProbability
		sim.LastPriceProbability = &p
	}
	if sim.RecentTicks <= 0 {
		sim.RecentTicks = utils.DefaultRecentTicks
	}

	if len(c.Markets) == 0 {
		c.Markets = market.DefaultCards()
	}
}

// -----------------------------------------------------------------------------

// ApplyEnv overrides fields from SIM_* environment variables.
func (c *Config) ApplyEnv() error {
	if v, ok := lookup(EnvHost); ok {
		c.Host = v
	}
	if v, ok := lookup(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return &helpers.ConfigurationError{SimulatorError: helpers.SimulatorError{
				Message: fmt.Sprintf("%s is not a number: %q", EnvPort, v), Cause: err}}
		}
		c.Port = port
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvDBType); ok {
		c.Storage.DBType = strings.ToLower(v)
	}
	if v, ok := lookup(EnvDBPath); ok {
		c.Storage.DBPath = v
	}
	if v, ok := lookup(EnvDBConnectionString); ok {
		c.Storage.DBConnectionString = v
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	// grpc_port 0 disables the control plane
	if c.GrpcPort != 0 && (c.GrpcPort <= 1024 || c.GrpcPort > 65535) {
		return fmt.Errorf("invalid grpc port number: %d (must be between 1025 and 65535)", c.GrpcPort)
	}
	if c.GrpcPort != 0 && c.GrpcPort == c.Port && c.GrpcHost == c.Host {
		return fmt.Errorf("grpc and http cannot share port %d", c.Port)
	}

	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for postgres")
		}
	case "none":
	default:
		return fmt.Errorf("unknown database type %q (sqlite, postgres or none)", c.Storage.DBType)
	}

	sim := c.Simulator
	if sim.MinDelayMs <= 0 {
		return fmt.Errorf("min_delay_ms must be greater than 0")
	}
	if sim.MaxDelayMs <= sim.MinDelayMs {
		return fmt.Errorf("max_delay_ms (%d) must be greater than min_delay_ms (%d)", sim.MaxDelayMs, sim.MinDelayMs)
	}
	if p := sim.LastPriceProbability; p != nil && (*p < 0 || *p > 1) {
		return fmt.Errorf("last_price_probability must be within [0, 1], got %v", *p)
	}

	if _, err := market.NewCatalog(c.Markets); err != nil {
		return err
	}
	for _, card := range c.Markets {
		if t := card.TargetPercentage(); t < 0 || t > 100 {
			return fmt.Errorf("market %s: target percentage %v outside 0..100", card.ID, t)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
