package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/site-analysis-cli/internal/geo"
)

// Config holds the full application configuration.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Source   SourceConfig   `yaml:"source" mapstructure:"source"`
	Publish  PublishConfig  `yaml:"publish" mapstructure:"publish"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// AnalysisConfig holds the spatial analysis parameters.
type AnalysisConfig struct {
	RadiusKM             float64         `yaml:"radius_km" mapstructure:"radius_km"`
	CoLocationThresholdM float64         `yaml:"co_location_threshold_m" mapstructure:"co_location_threshold_m"`
	ClassificationMode   string          `yaml:"classification_mode" mapstructure:"classification_mode"`
	Thresholds           ThresholdConfig `yaml:"thresholds" mapstructure:"thresholds"`
	Workers              int             `yaml:"workers" mapstructure:"workers"`
}

// ThresholdConfig holds the global density cutoffs for threshold mode,
// in sites per square kilometer.
type ThresholdConfig struct {
	Rural    float64 `yaml:"rural" mapstructure:"rural"`
	Suburban float64 `yaml:"suburban" mapstructure:"suburban"`
	Urban    float64 `yaml:"urban" mapstructure:"urban"`
}

// Geo converts to the classifier's threshold type.
func (t ThresholdConfig) Geo() geo.Thresholds {
	return geo.Thresholds{Rural: t.Rural, Suburban: t.Suburban, Urban: t.Urban}
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	PreviewRows  int           `yaml:"preview_rows" mapstructure:"preview_rows"`
	MaxUploadMB  int64         `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	RateLimitRPS float64       `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	ResultTTL    time.Duration `yaml:"result_ttl" mapstructure:"result_ttl"`
}

// SourceConfig configures database-backed input for dbrun.
type SourceConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	Table       string `yaml:"table" mapstructure:"table"`
}

// PublishConfig configures the optional Kafka publisher.
type PublishConfig struct {
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" mapstructure:"topic"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("analysis.radius_km", 2.0)
	v.SetDefault("analysis.co_location_threshold_m", 100.0)
	v.SetDefault("analysis.classification_mode", "quantile")
	v.SetDefault("analysis.thresholds.rural", 10.0)
	v.SetDefault("analysis.thresholds.suburban", 50.0)
	v.SetDefault("analysis.thresholds.urban", 200.0)
	v.SetDefault("analysis.workers", 0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.preview_rows", 50)
	v.SetDefault("server.max_upload_mb", 25)
	v.SetDefault("server.rate_limit_rps", 5.0)
	v.SetDefault("server.result_ttl", "15m")
	v.SetDefault("source.database_url", "")
	v.SetDefault("source.sqlite_path", "")
	v.SetDefault("source.table", "sites")
	v.SetDefault("publish.brokers", []string{})
	v.SetDefault("publish.topic", "site-analysis.enriched")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for the given command mode. It runs
// after CLI flags are merged so overrides get the same range checks as
// file and environment values.
func (c *Config) Validate(mode string) error {
	var issues []string

	issues = append(issues, c.analysisIssues()...)

	switch mode {
	case "analyze":
	case "dbrun":
		if c.Source.DatabaseURL == "" && c.Source.SQLitePath == "" {
			issues = append(issues, "source.database_url or source.sqlite_path is required")
		}
		if c.Source.Table == "" {
			issues = append(issues, "source.table is required")
		}
	case "serve":
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			issues = append(issues, "server.port must be > 0 and < 65536")
		}
		if c.Server.PreviewRows < 0 {
			issues = append(issues, "server.preview_rows must be >= 0")
		}
		if c.Server.MaxUploadMB < 1 {
			issues = append(issues, "server.max_upload_mb must be >= 1")
		}
		if c.Server.RateLimitRPS <= 0 {
			issues = append(issues, "server.rate_limit_rps must be > 0")
		}
		if c.Server.ResultTTL <= 0 {
			issues = append(issues, "server.result_ttl must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(issues) > 0 {
		return eris.Errorf("config: %s", strings.Join(issues, "; "))
	}
	return nil
}

func (c *Config) analysisIssues() []string {
	var issues []string
	a := c.Analysis

	if a.RadiusKM < 0.1 || a.RadiusKM > 100 {
		issues = append(issues, fmt.Sprintf("analysis.radius_km must be in [0.1, 100], got %v", a.RadiusKM))
	}
	if a.CoLocationThresholdM < 1 || a.CoLocationThresholdM > 10000 {
		issues = append(issues, fmt.Sprintf("analysis.co_location_threshold_m must be in [1, 10000], got %v", a.CoLocationThresholdM))
	}
	switch geo.ClassificationMode(a.ClassificationMode) {
	case geo.ModeQuantile, geo.ModeThreshold:
	default:
		issues = append(issues, fmt.Sprintf("analysis.classification_mode must be quantile or threshold, got %q", a.ClassificationMode))
	}
	if err := a.Thresholds.Validate(); err != nil {
		issues = append(issues, err.Error())
	}
	if a.Workers < 0 {
		issues = append(issues, fmt.Sprintf("analysis.workers must be >= 0, got %d", a.Workers))
	}
	return issues
}

// Validate enforces 0 <= rural <= suburban <= urban.
func (t ThresholdConfig) Validate() error {
	if t.Rural < 0 || t.Rural > t.Suburban || t.Suburban > t.Urban {
		return eris.Errorf("thresholds must satisfy 0 <= rural <= suburban <= urban, got %v/%v/%v",
			t.Rural, t.Suburban, t.Urban)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
