package models

// MConfig Structure
type MConfig struct {
	Name         string           `yaml:"name"`
	Host         string           `yaml:"host"`
	Port         int              `yaml:"port"`
	LogLevel     string           `yaml:"log_level"`
	GrpcHost     string           `yaml:"grpc_host"`
	GrpcPort     int              `yaml:"grpc_port"`
	WSBufferSize int              `yaml:"ws_buffer_size"`
	Storage      MStorageConfig   `yaml:"storage"`
	Simulator    MSimulatorConfig `yaml:"simulator"`
	Markets      []MMarketCard    `yaml:"markets"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // sqlite, postgres or none
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionHours     int    `yaml:"retention_hours"`
}

type MSimulatorConfig struct {
	MinDelayMs  int `yaml:"min_delay_ms"`
	MaxDelayMs  int `yaml:"max_delay_ms"`
	RecentTicks int `yaml:"recent_ticks"`

	// nil when the key is absent; an explicit 0 turns last-price moves off
	LastPriceProbability *float64 `yaml:"last_price_probability,omitempty"`
}

// LastPriceChance returns the configured probability, or def when unset.
func (s MSimulatorConfig) LastPriceChance(def float64) float64 {
	if s.LastPriceProbability == nil {
		return def
	}
	return *s.LastPriceProbability
}

// LogLevelName exposes the level to the logger without an import cycle
func (c *MConfig) LogLevelName() string {
	if c == nil {
		return ""
	}
	return c.LogLevel
}
