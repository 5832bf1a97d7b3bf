package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data   DataConfig   `yaml:"data" mapstructure:"data"`
	S3     S3Config     `yaml:"s3" mapstructure:"s3"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Query  QueryConfig  `yaml:"query" mapstructure:"query"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the statistics files. Paths are relative to Dir.
type DataConfig struct {
	Dir            string `yaml:"dir" mapstructure:"dir"`
	Source         string `yaml:"source" mapstructure:"source"`
	ByYearGlob     string `yaml:"by_year_glob" mapstructure:"by_year_glob"`
	LongCSV        string `yaml:"long_csv" mapstructure:"long_csv"`
	TransitionXLSX string `yaml:"transition_xlsx" mapstructure:"transition_xlsx"`
	Geography      string `yaml:"geography" mapstructure:"geography"`
}

// S3Config configures the S3 data source. Objects are the data.dir layout
// stored under Prefix.
type S3Config struct {
	Region    string `yaml:"region" mapstructure:"region"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Prefix    string `yaml:"prefix" mapstructure:"prefix"`
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	PathStyle bool   `yaml:"path_style" mapstructure:"path_style"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
}

// StoreConfig configures the record store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// QueryConfig holds query defaults.
type QueryConfig struct {
	Table        string `yaml:"table" mapstructure:"table"`
	RankingCount int    `yaml:"ranking_count" mapstructure:"ranking_count"`
}

// FetchConfig configures downloads from the statistics site.
type FetchConfig struct {
	SourceURL   string  `yaml:"source_url" mapstructure:"source_url"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// ServerConfig configures the query server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	// RefreshSecs reloads the snapshot on this interval. Zero disables it.
	RefreshSecs int `yaml:"refresh_secs" mapstructure:"refresh_secs"`
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
	v.SetEnvPrefix("LODGING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.source", "dir")
	v.SetDefault("data.by_year_glob", "processed/by_year/long_*.csv")
	v.SetDefault("data.long_csv", "processed/all/all_years_long.csv")
	v.SetDefault("data.transition_xlsx", "raw/Transition.xlsx")
	v.SetDefault("data.geography", "")
	v.SetDefault("s3.region", "ap-northeast-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.prefix", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.path_style", false)
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "lodging.db")
	v.SetDefault("query.table", "auto")
	v.SetDefault("query.ranking_count", 5)
	v.SetDefault("fetch.source_url", "https://www.pref.okinawa.jp/shigoto/kankotokusan/1011671/1011816/1003416/1026290.html")
	v.SetDefault("fetch.user_agent", "lodging-cli/1.0")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.rate_per_sec", 2.0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.refresh_secs", 0)
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

// Validate checks the settings a command mode depends on. Modes: "query",
// "serve", "import", "fetch".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Data.Source {
	case "dir":
		if c.Data.Dir == "" {
			problems = append(problems, "data.dir is required for data.source=dir")
		}
	case "s3":
		if c.S3.Bucket == "" {
			problems = append(problems, "s3.bucket is required for data.source=s3")
		}
	case "store":
	default:
		problems = append(problems, fmt.Sprintf("data.source %q must be dir, s3 or store", c.Data.Source))
	}

	storeNeeded := mode == "import" || c.Data.Source == "store"
	if storeNeeded {
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			problems = append(problems, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
		}
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	}

	if c.Query.RankingCount <= 0 {
		problems = append(problems, "query.ranking_count must be positive")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
		}
		if c.Server.RefreshSecs < 0 {
			problems = append(problems, "server.refresh_secs must not be negative")
		}
	case "fetch":
		if c.Fetch.SourceURL == "" {
			problems = append(problems, "fetch.source_url is required")
		}
		if c.Fetch.RatePerSec <= 0 {
			problems = append(problems, "fetch.rate_per_sec must be positive")
		}
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
