package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. DEMAND_SERVER_PORT
const EnvPrefix = "DEMAND"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Warehouse WarehouseConfig `yaml:"warehouse" envconfig:"WAREHOUSE"`
	Forecast  ForecastConfig  `yaml:"forecast" envconfig:"FORECAST"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	// ForecastTimeout bounds a single pipeline run including both external calls
	ForecastTimeout time.Duration `yaml:"forecast_timeout" envconfig:"FORECAST_TIMEOUT"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"` // console, file or both
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`

	// ReportRetention caps the archived exports; 0 keeps everything
	ReportRetention int `yaml:"report_retention" envconfig:"REPORT_RETENTION"`
	// ReportBOM prefixes archived CSV reports with a UTF-8 byte-order mark
	ReportBOM bool `yaml:"report_bom" envconfig:"REPORT_BOM"`
}

// WarehouseConfig points the pipeline at a BigQuery forecast table
type WarehouseConfig struct {
	Enabled     bool          `yaml:"enabled" envconfig:"ENABLED"`
	ProjectID   string        `yaml:"project_id" envconfig:"PROJECT_ID"`
	DatasetID   string        `yaml:"dataset_id" envconfig:"DATASET_ID"`
	TableID     string        `yaml:"table_id" envconfig:"TABLE_ID"`
	AccessToken string        `yaml:"access_token" envconfig:"ACCESS_TOKEN"`
	Endpoint    string        `yaml:"endpoint" envconfig:"ENDPOINT"`
	RowLimit    int           `yaml:"row_limit" envconfig:"ROW_LIMIT"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
}

// ForecastConfig configures the language-model forecast generator
type ForecastConfig struct {
	Provider      string `yaml:"provider" envconfig:"PROVIDER"` // gemini or none
	APIKey        string `yaml:"api_key" envconfig:"API_KEY"`
	ForecastModel string `yaml:"forecast_model" envconfig:"FORECAST_MODEL"`
	InsightModel  string `yaml:"insight_model" envconfig:"INSIGHT_MODEL"`
	HistoryWindow int    `yaml:"history_window" envconfig:"HISTORY_WINDOW"`
	HorizonMonths int    `yaml:"horizon_months" envconfig:"HORIZON_MONTHS"`
}

// TelemetryConfig toggles tracing and metrics export
type TelemetryConfig struct {
	Environment   string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	EnableTracing bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	EnableMetrics bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	TraceExporter string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"` // stdout or none
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// Load resolves configuration as defaults, then the YAML file, then
// environment variables, each layer overriding the previous one
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit config file; an empty path skips the file layer
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the keys present in the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration and normalizes enumerations
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

	if c.Paths.ReportRetention < 0 {
		return fmt.Errorf("report retention must not be negative")
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	switch c.Logging.Output = strings.ToLower(c.Logging.Output); c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output: %q", c.Logging.Output)
	}

	if c.Warehouse.Enabled {
		if c.Warehouse.ProjectID == "" || c.Warehouse.DatasetID == "" || c.Warehouse.TableID == "" {
			return fmt.Errorf("warehouse enabled but project, dataset or table is missing")
		}
	}
	if c.Warehouse.RowLimit <= 0 {
		return fmt.Errorf("warehouse row limit must be positive")
	}

	switch c.Forecast.Provider = strings.ToLower(c.Forecast.Provider); c.Forecast.Provider {
	case ProviderGemini, ProviderNone:
	default:
		return fmt.Errorf("unknown forecast provider: %q", c.Forecast.Provider)
	}
	if c.Forecast.HorizonMonths <= 0 || c.Forecast.HistoryWindow <= 0 {
		return fmt.Errorf("forecast horizon and history window must be positive")
	}

	return nil
}

// getConfigFilePath returns the path to the config file, or "" when none exists
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

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

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    2 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			ForecastTimeout: 90 * time.Second,
			MaxUploadBytes:  DefaultMaxUploadBytes,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080", "http://localhost:5173"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/demandplanner.log",
		},
		Paths: PathsConfig{
			DataDir:         DefaultDataDir,
			ReportsDir:      DefaultReportsDir,
			LogsDir:         DefaultLogsDir,
			ReportRetention: DefaultReportRetention,
		},
		Warehouse: WarehouseConfig{
			RowLimit: DefaultWarehouseRowLimit,
			Timeout:  DefaultWarehouseTimeout,
		},
		Forecast: ForecastConfig{
			Provider:      ProviderGemini,
			ForecastModel: DefaultForecastModel,
			InsightModel:  DefaultInsightModel,
			HistoryWindow: DefaultHistoryWindow,
			HorizonMonths: DefaultHorizonMonths,
		},
		Telemetry: TelemetryConfig{
			Environment:   "development",
			EnableTracing: false,
			EnableMetrics: true,
			TraceExporter: "stdout",
			SampleRatio:   1.0,
		},
	}
}
