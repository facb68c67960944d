package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Catalog  CatalogConfig  `yaml:"catalog" mapstructure:"catalog"`
	Overpass OverpassConfig `yaml:"overpass" mapstructure:"overpass"`
	Plateau  PlateauConfig  `yaml:"plateau" mapstructure:"plateau"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	SyncLog  SyncLogConfig  `yaml:"synclog" mapstructure:"synclog"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// OutputConfig configures where converted datasets are written.
type OutputConfig struct {
	BaseDir string `yaml:"base_dir" mapstructure:"base_dir"`
}

// CatalogConfig points at a dataset catalog file. An empty path uses the
// built-in catalog.
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// OverpassConfig configures the OpenStreetMap Overpass API source.
type OverpassConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PauseSecs   int    `yaml:"pause_secs" mapstructure:"pause_secs"`
	AreaName    string `yaml:"area_name" mapstructure:"area_name"`
	AdminLevel  string `yaml:"admin_level" mapstructure:"admin_level"`
}

// Timeout returns the HTTP timeout for Overpass requests.
func (c OverpassConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Pause returns the courtesy interval between Overpass requests.
func (c OverpassConfig) Pause() time.Duration {
	return time.Duration(c.PauseSecs) * time.Second
}

// PlateauConfig configures the PLATEAU archive source.
type PlateauConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Year        string `yaml:"year" mapstructure:"year"`
}

// Timeout returns the HTTP timeout for archive downloads.
func (c PlateauConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// FetchConfig holds settings shared by every HTTP fetch.
type FetchConfig struct {
	UserAgent  string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxRetries int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// SyncLogConfig configures the local run log. An empty path disables it.
type SyncLogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("KYOTO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("output.base_dir", "data/kyoto")
	v.SetDefault("catalog.path", "")
	v.SetDefault("overpass.url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.timeout_secs", 180)
	v.SetDefault("overpass.pause_secs", 2)
	v.SetDefault("overpass.area_name", "京都市")
	v.SetDefault("overpass.admin_level", "7")
	v.SetDefault("plateau.timeout_secs", 60)
	v.SetDefault("plateau.year", "2024")
	v.SetDefault("fetch.user_agent", "kyoto-geodata/1.0")
	v.SetDefault("fetch.max_retries", 1)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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

	// The run log lives under the base directory unless placed explicitly;
	// an explicit empty path disables it.
	if v.IsSet("synclog.path") {
		cfg.SyncLog.Path = v.GetString("synclog.path")
	} else {
		cfg.SyncLog.Path = filepath.Join(cfg.Output.BaseDir, "sync_log.db")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode needs. Mode is one of
// "fetch" or "serve"; every problem is reported at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	if strings.TrimSpace(c.Output.BaseDir) == "" {
		problems = append(problems, "output.base_dir is required")
	}

	switch mode {
	case "fetch":
		if c.Overpass.URL == "" {
			problems = append(problems, "overpass.url is required")
		}
		if c.Overpass.TimeoutSecs <= 0 {
			problems = append(problems, "overpass.timeout_secs must be positive")
		}
		if c.Overpass.PauseSecs < 0 {
			problems = append(problems, "overpass.pause_secs must not be negative")
		}
		if c.Plateau.TimeoutSecs <= 0 {
			problems = append(problems, "plateau.timeout_secs must be positive")
		}
		if c.Fetch.MaxRetries < 1 {
			problems = append(problems, "fetch.max_retries must be at least 1")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
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
