package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Terminal  TerminalConfig  `yaml:"terminal" envconfig:"TERMINAL"`
	Datastore DatastoreConfig `yaml:"datastore" envconfig:"DATASTORE"`
	FundAdmin FundAdminConfig `yaml:"fund_admin" envconfig:"FUND_ADMIN"`
	Positions PositionsConfig `yaml:"positions" envconfig:"POSITIONS"`
	Exports   ExportsConfig   `yaml:"exports" envconfig:"EXPORTS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"5000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"120s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"*"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/bridge.log"`
}

// TerminalConfig contains the market-data gateway connection settings
type TerminalConfig struct {
	Host              string        `yaml:"host" envconfig:"HOST" default:"localhost"`
	Port              int           `yaml:"port" envconfig:"PORT" default:"8194"`
	Timeout           time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"30s"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" default:"10"`
}

// DatastoreConfig contains the datastore REST connection settings
type DatastoreConfig struct {
	URL     string        `yaml:"url" envconfig:"URL"`
	Key     string        `yaml:"key" envconfig:"KEY"`
	Table   string        `yaml:"table" envconfig:"TABLE" default:"market_data"`
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"30s"`
}

// FundAdminConfig contains the fund administrator API credentials
type FundAdminConfig struct {
	BaseURL  string        `yaml:"base_url" envconfig:"BASE_URL"`
	Username string        `yaml:"username" envconfig:"USERNAME"`
	Password string        `yaml:"password" envconfig:"PASSWORD"`
	FundID   string        `yaml:"fund_id" envconfig:"FUND_ID"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"2m"`
}

// PositionsConfig contains the position-history ODBC source settings
type PositionsConfig struct {
	DSN                string   `yaml:"dsn" envconfig:"DSN"`
	Portfolio          string   `yaml:"portfolio" envconfig:"PORTFOLIO"`
	SecurityTypes      []string `yaml:"security_types" envconfig:"SECURITY_TYPES"`
	ExcludedStrategies []string `yaml:"excluded_strategies" envconfig:"EXCLUDED_STRATEGIES"`
}

// ExportsConfig contains the export-file ingestion settings
type ExportsConfig struct {
	Dir string `yaml:"dir" envconfig:"DIR"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Environment variables take precedence over the file overlay
	if err := envconfig.Process("BRIDGE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := getConfigFilePath()
	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Server.Port == 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if envConfig.Datastore.URL == "" {
		envConfig.Datastore.URL = fileConfig.Datastore.URL
	}
	if envConfig.Datastore.Key == "" {
		envConfig.Datastore.Key = fileConfig.Datastore.Key
	}
	if envConfig.Datastore.Table == "" {
		envConfig.Datastore.Table = fileConfig.Datastore.Table
	}
	if envConfig.Terminal.Host == "" {
		envConfig.Terminal.Host = fileConfig.Terminal.Host
	}
	if envConfig.Terminal.Port == 0 {
		envConfig.Terminal.Port = fileConfig.Terminal.Port
	}
	if envConfig.FundAdmin.Username == "" {
		envConfig.FundAdmin.Username = fileConfig.FundAdmin.Username
	}
	if envConfig.FundAdmin.Password == "" {
		envConfig.FundAdmin.Password = fileConfig.FundAdmin.Password
	}
	if envConfig.FundAdmin.BaseURL == "" {
		envConfig.FundAdmin.BaseURL = fileConfig.FundAdmin.BaseURL
	}
	if envConfig.FundAdmin.FundID == "" {
		envConfig.FundAdmin.FundID = fileConfig.FundAdmin.FundID
	}
	if envConfig.Positions.DSN == "" {
		envConfig.Positions.DSN = fileConfig.Positions.DSN
	}
	if envConfig.Positions.Portfolio == "" {
		envConfig.Positions.Portfolio = fileConfig.Positions.Portfolio
	}
	if envConfig.Exports.Dir == "" {
		envConfig.Exports.Dir = fileConfig.Exports.Dir
	}

	return envConfig
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Datastore.URL == "" {
		return fmt.Errorf("datastore URL is required (BRIDGE_DATASTORE_URL)")
	}

	if c.Datastore.Key == "" {
		return fmt.Errorf("datastore key is required (BRIDGE_DATASTORE_KEY)")
	}

	if c.Terminal.Port <= 0 || c.Terminal.Port > 65535 {
		return fmt.Errorf("invalid terminal port: %d", c.Terminal.Port)
	}

	if len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	if c.Logging.Output != "both" && c.Logging.Output != "file" && c.Logging.Output != "console" {
		c.Logging.Output = "both"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/bridge.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            5000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    120 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"*"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: "logs/bridge.log",
		},
		Terminal: TerminalConfig{
			Host:              "localhost",
			Port:              8194,
			Timeout:           30 * time.Second,
			RequestsPerSecond: 10,
		},
		Datastore: DatastoreConfig{
			Table:   "market_data",
			Timeout: 30 * time.Second,
		},
		FundAdmin: FundAdminConfig{
			Timeout: 2 * time.Minute,
		},
	}
}
