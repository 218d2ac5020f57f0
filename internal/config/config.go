package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Parse     ParseConfig     `yaml:"parse" mapstructure:"parse"`
	Reconcile ReconcileConfig `yaml:"reconcile" mapstructure:"reconcile"`
	Fuel      FuelConfig      `yaml:"fuel" mapstructure:"fuel"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ParseConfig configures ledger file parsing.
type ParseConfig struct {
	ProgressStride int `yaml:"progress_stride" mapstructure:"progress_stride"`
}

// ReconcileConfig configures the ledger-vs-invoice comparison.
type ReconcileConfig struct {
	Tolerance    float64  `yaml:"tolerance" mapstructure:"tolerance"`
	ExcludeCFOPs []string `yaml:"exclude_cfops" mapstructure:"exclude_cfops"`
	Models       []string `yaml:"models" mapstructure:"models"`
}

// FuelConfig configures the fuel consistency analyzer.
type FuelConfig struct {
	LossTolerance           float64  `yaml:"loss_tolerance" mapstructure:"loss_tolerance"`
	QuantityTolerance       float64  `yaml:"quantity_tolerance" mapstructure:"quantity_tolerance"`
	CrossCheckPercTolerance float64  `yaml:"cross_check_perc_tolerance" mapstructure:"cross_check_perc_tolerance"`
	SaleCFOPs               []string `yaml:"sale_cfops" mapstructure:"sale_cfops"`
}

// FetchConfig configures remote ledger file retrieval.
type FetchConfig struct {
	URL           string  `yaml:"url" mapstructure:"url"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	DownloadDir   string  `yaml:"download_dir" mapstructure:"download_dir"`
}

// ServerConfig configures the read-only HTTP API.
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
	v.SetEnvPrefix("FISCAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "fiscal.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("parse.progress_stride", 500)
	v.SetDefault("reconcile.tolerance", 0.01)
	v.SetDefault("reconcile.exclude_cfops", []string{"5929", "6929"})
	v.SetDefault("reconcile.models", []string{"55", "65"})
	v.SetDefault("fuel.loss_tolerance", 0.006)
	v.SetDefault("fuel.quantity_tolerance", 0.5)
	v.SetDefault("fuel.cross_check_perc_tolerance", 0.5)
	v.SetDefault("fuel.sale_cfops", []string{"5656", "5667"})
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.rate_per_second", 2)
	v.SetDefault("fetch.download_dir", ".")

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

// Validate checks the configuration for a given command mode. Errors are
// collected so a single run reports every problem at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Reconcile.Tolerance < 0 {
		problems = append(problems, "reconcile.tolerance must be >= 0")
	}
	if c.Fuel.LossTolerance < 0 || c.Fuel.LossTolerance > 1 {
		problems = append(problems, "fuel.loss_tolerance must be between 0 and 1")
	}
	if c.Fuel.QuantityTolerance < 0 {
		problems = append(problems, "fuel.quantity_tolerance must be >= 0")
	}

	switch mode {
	case "cli":
		if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "fetch":
		if c.Fetch.URL == "" {
			problems = append(problems, "fetch.url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
