package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"retailcast/internal/basket"
	"retailcast/internal/forecast"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Forecast  ForecastConfig  `yaml:"forecast" envconfig:"FORECAST"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"45s"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" envconfig:"MAX_BODY_BYTES" default:"33554432"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"20"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"40"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/retailcast.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// AnalysisConfig holds the basket analysis thresholds and mining limits
type AnalysisConfig struct {
	MinSupport            float64       `yaml:"min_support" envconfig:"MIN_SUPPORT" default:"0.01"`
	MinConfidence         float64       `yaml:"min_confidence" envconfig:"MIN_CONFIDENCE" default:"0.2"`
	MinLift               float64       `yaml:"min_lift" envconfig:"MIN_LIFT" default:"1.0"`
	MaxItemsetSize        int           `yaml:"max_itemset_size" envconfig:"MAX_ITEMSET_SIZE" default:"5"`
	MaxCandidatesPerLevel int           `yaml:"max_candidates_per_level" envconfig:"MAX_CANDIDATES_PER_LEVEL" default:"200000"`
	MaxFrequentItemsets   int           `yaml:"max_frequent_itemsets" envconfig:"MAX_FREQUENT_ITEMSETS" default:"500000"`
	MiningTimeout         time.Duration `yaml:"mining_timeout" envconfig:"MINING_TIMEOUT" default:"30s"`
	MaxWorkers            int           `yaml:"max_workers" envconfig:"MAX_WORKERS" default:"4"`
	MaxTransactions       int           `yaml:"max_transactions" envconfig:"MAX_TRANSACTIONS" default:"1000000"`
	MaxUploadRows         int           `yaml:"max_upload_rows" envconfig:"MAX_UPLOAD_ROWS" default:"1000000"`
	DefaultTopN           int           `yaml:"default_top_n" envconfig:"DEFAULT_TOP_N" default:"5"`
	MaxTopN               int           `yaml:"max_top_n" envconfig:"MAX_TOP_N" default:"100"`
}

// ForecastConfig holds the ensemble settings
type ForecastConfig struct {
	DefaultHorizonDays int     `yaml:"default_horizon_days" envconfig:"DEFAULT_HORIZON_DAYS" default:"30"`
	MaxHorizonDays     int     `yaml:"max_horizon_days" envconfig:"MAX_HORIZON_DAYS" default:"365"`
	BacktestMultiplier int     `yaml:"backtest_multiplier" envconfig:"BACKTEST_MULTIPLIER" default:"2"`
	MinTrainingPoints  int     `yaml:"min_training_points" envconfig:"MIN_TRAINING_POINTS" default:"14"`
	MinBacktestPoints  int     `yaml:"min_backtest_points" envconfig:"MIN_BACKTEST_POINTS" default:"7"`
	SeasonalWindow     int     `yaml:"seasonal_window" envconfig:"SEASONAL_WINDOW" default:"7"`
	SeasonalBlend      float64 `yaml:"seasonal_blend" envconfig:"SEASONAL_BLEND" default:"0.5"`
	IntervalZ          float64 `yaml:"interval_z" envconfig:"INTERVAL_Z" default:"1.96"`
}

// TelemetryConfig selects the OpenTelemetry exporters
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME" default:"retailcast"`
	TraceExporter  string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED" default:"true"`
}

// OutputConfig controls where CLI reports are written
type OutputConfig struct {
	Dir string `yaml:"dir" envconfig:"DIR" default:"output"`
}

// Load builds the configuration from defaults, an optional YAML file and
// RETAILCAST_* environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", configFile, err)
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
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs lays file values over env values that still hold their
// default, so an explicitly set variable always wins over the file.
func mergeConfigs(fileConfig, envConfig Config) Config {
	defaults := Default()
	overlay(reflect.ValueOf(&envConfig).Elem(), reflect.ValueOf(fileConfig), reflect.ValueOf(*defaults))
	return envConfig
}

func overlay(dst, file, def reflect.Value) {
	for i := 0; i < dst.NumField(); i++ {
		d, f, df := dst.Field(i), file.Field(i), def.Field(i)
		if d.Kind() == reflect.Struct {
			overlay(d, f, df)
			continue
		}
		if f.IsZero() {
			continue
		}
		if reflect.DeepEqual(d.Interface(), df.Interface()) {
			d.Set(f)
		}
	}
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

	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server max body bytes must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}

	if err := c.Analysis.Thresholds().Validate(); err != nil {
		return fmt.Errorf("analysis thresholds: %w", err)
	}

	if c.Analysis.MaxItemsetSize < 1 {
		return fmt.Errorf("analysis max itemset size must be at least 1")
	}

	if c.Analysis.DefaultTopN < 1 || c.Analysis.DefaultTopN > c.Analysis.MaxTopN {
		return fmt.Errorf("analysis default top_n %d outside [1, %d]", c.Analysis.DefaultTopN, c.Analysis.MaxTopN)
	}

	if c.Forecast.DefaultHorizonDays < 1 || c.Forecast.DefaultHorizonDays > c.Forecast.MaxHorizonDays {
		return fmt.Errorf("forecast default horizon %d outside [1, %d]", c.Forecast.DefaultHorizonDays, c.Forecast.MaxHorizonDays)
	}

	if c.Forecast.SeasonalBlend <= 0 || c.Forecast.SeasonalBlend > 1 {
		return fmt.Errorf("forecast seasonal blend %.3f outside (0, 1]", c.Forecast.SeasonalBlend)
	}

	switch c.Telemetry.TraceExporter {
	case TraceExporterNone, TraceExporterStdout:
	default:
		return fmt.Errorf("unknown trace exporter %q", c.Telemetry.TraceExporter)
	}

	// Logs are always structured JSON
	c.Logging.Format = "json"
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/retailcast.log"
	}

	return nil
}

// Thresholds returns the default rule thresholds for requests that omit them
func (a AnalysisConfig) Thresholds() basket.Thresholds {
	return basket.Thresholds{
		MinSupport:    a.MinSupport,
		MinConfidence: a.MinConfidence,
		MinLift:       a.MinLift,
	}
}

// MinerOptions returns the mining limits
func (a AnalysisConfig) MinerOptions() basket.Options {
	return basket.Options{
		MaxItemsetSize:        a.MaxItemsetSize,
		MaxCandidatesPerLevel: a.MaxCandidatesPerLevel,
		MaxFrequentItemsets:   a.MaxFrequentItemsets,
		Timeout:               a.MiningTimeout,
		MaxWorkers:            a.MaxWorkers,
	}
}

// EnsembleOptions returns the forecast ensemble settings
func (f ForecastConfig) EnsembleOptions() forecast.Options {
	return forecast.Options{
		MaxHorizonDays:     f.MaxHorizonDays,
		BacktestMultiplier: f.BacktestMultiplier,
		MinTrainingPoints:  f.MinTrainingPoints,
		MinBacktestPoints:  f.MinBacktestPoints,
		SeasonalWindow:     f.SeasonalWindow,
		SeasonalBlend:      f.SeasonalBlend,
		IntervalZ:          f.IntervalZ,
	}
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(ConfigFileEnv); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  45 * time.Second,
			MaxBodyBytes:    32 << 20,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   40,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/retailcast.log",
		},
		Analysis: AnalysisConfig{
			MinSupport:            basket.DefaultMinSupport,
			MinConfidence:         basket.DefaultMinConfidence,
			MinLift:               basket.DefaultMinLift,
			MaxItemsetSize:        basket.DefaultMaxItemsetSize,
			MaxCandidatesPerLevel: basket.DefaultMaxCandidatesPerLevel,
			MaxFrequentItemsets:   basket.DefaultMaxFrequentItemsets,
			MiningTimeout:         basket.DefaultMiningTimeout,
			MaxWorkers:            basket.DefaultMaxWorkers,
			MaxTransactions:       1000000,
			MaxUploadRows:         1000000,
			DefaultTopN:           basket.DefaultTopN,
			MaxTopN:               100,
		},
		Forecast: ForecastConfig{
			DefaultHorizonDays: forecast.DefaultHorizonDays,
			MaxHorizonDays:     forecast.DefaultMaxHorizonDays,
			BacktestMultiplier: forecast.DefaultBacktestMultiplier,
			MinTrainingPoints:  forecast.DefaultMinTrainingPoints,
			MinBacktestPoints:  forecast.DefaultMinBacktestPoints,
			SeasonalWindow:     forecast.DefaultSeasonalWindow,
			SeasonalBlend:      forecast.DefaultSeasonalBlend,
			IntervalZ:          forecast.DefaultIntervalZ,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "retailcast",
			TraceExporter:  TraceExporterNone,
			MetricsEnabled: true,
		},
		Output: OutputConfig{
			Dir: "output",
		},
	}
}
