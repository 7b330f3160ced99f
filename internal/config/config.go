package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EngineConfig holds the windowing, history, and mitigation parameters.
type EngineConfig struct {
	WindowLength   float64 `yaml:"window_length"`   // seconds, required
	HistoryMin     int     `yaml:"history_min"`     // default 6
	HistorySize    int     `yaml:"history_size"`    // default 0 = unbounded
	HistoryTimeout float64 `yaml:"history_timeout"` // seconds, default 120
	PacketsMin     int     `yaml:"packets_min"`     // default 20
	SamplesSize    int     `yaml:"samples_size"`    // default 40
	Threshold      float64 `yaml:"threshold"`
	DenylistSize   int     `yaml:"denylist_size"` // default 1000000
	NumShards      int     `yaml:"num_shards"`    // default NumCPU
	NumScorers     int     `yaml:"num_scorers"`   // default 2
	ScorerTimeout  string  `yaml:"scorer_timeout"` // default 1s
	SampleSeed     int64   `yaml:"sample_seed"`
	AttackersFile  string  `yaml:"attackers_file"`
}

// InputConfig selects where packet records come from.
type InputConfig struct {
	Mode     string `yaml:"mode"` // "pcap" or "nats"
	PcapPath string `yaml:"pcap_path"`
	NATSURL  string `yaml:"nats_url"`
	Subject  string `yaml:"subject"`
}

// ScorerConfig selects the anomaly scorer implementation.
type ScorerConfig struct {
	Type    string `yaml:"type"` // "builtin" or "nats"
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// ClickHouseConfig holds the connection details for feature persistence.
type ClickHouseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ReportConfig controls the end-of-run mitigation report on disk.
type ReportConfig struct {
	Enabled  bool   `yaml:"enabled"`
	RootPath string `yaml:"root_path"`
}

// ExportConfig groups the persistence sinks.
type ExportConfig struct {
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Report     ReportConfig     `yaml:"report"`
}

// APIConfig controls the observability HTTP server.
type APIConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// RedisConfig configures the optional shared denylist mirror.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Engine EngineConfig `yaml:"engine"`
	Input  InputConfig  `yaml:"input"`
	Scorer ScorerConfig `yaml:"scorer"`
	Export ExportConfig `yaml:"export"`
	API    APIConfig    `yaml:"api"`
	Redis  RedisConfig  `yaml:"redis"`
}

// LoadConfig reads the configuration from a YAML file, applies defaults,
// and validates the result.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	e := &c.Engine
	if e.HistoryMin == 0 {
		e.HistoryMin = 6
	}
	if e.HistoryTimeout == 0 {
		e.HistoryTimeout = 120
	}
	if e.PacketsMin == 0 {
		e.PacketsMin = 20
	}
	if e.SamplesSize == 0 {
		e.SamplesSize = 40
	}
	if e.DenylistSize == 0 {
		e.DenylistSize = 1000000
	}
	if e.NumScorers == 0 {
		e.NumScorers = 2
	}
	if e.ScorerTimeout == "" {
		e.ScorerTimeout = "1s"
	}
	if c.Scorer.Type == "" {
		c.Scorer.Type = "builtin"
	}
	if c.Redis.Key == "" {
		c.Redis.Key = "netsentry:denylist"
	}
}

// Validate rejects out-of-range core parameters. These are fatal startup
// errors; every runtime condition is recoverable and only counted.
func (c *Config) Validate() error {
	e := &c.Engine
	if e.WindowLength <= 0 {
		return fmt.Errorf("engine.window_length must be > 0, got %v", e.WindowLength)
	}
	if e.HistoryMin < 1 {
		return fmt.Errorf("engine.history_min must be >= 1, got %d", e.HistoryMin)
	}
	if e.HistorySize < 0 {
		return fmt.Errorf("engine.history_size must be >= 0, got %d", e.HistorySize)
	}
	if e.HistoryTimeout < 0 {
		return fmt.Errorf("engine.history_timeout must be >= 0, got %v", e.HistoryTimeout)
	}
	if e.PacketsMin < 0 {
		return fmt.Errorf("engine.packets_min must be >= 0, got %d", e.PacketsMin)
	}
	if e.SamplesSize < 1 {
		return fmt.Errorf("engine.samples_size must be >= 1, got %d", e.SamplesSize)
	}
	if e.DenylistSize < 1 {
		return fmt.Errorf("engine.denylist_size must be >= 1, got %d", e.DenylistSize)
	}
	return nil
}
