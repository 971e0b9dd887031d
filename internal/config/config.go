package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/gcis-cli/pkg/gcis"
)

// Config holds the full application configuration.
type Config struct {
	GCIS   GCISConfig   `yaml:"gcis" mapstructure:"gcis"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Export ExportConfig `yaml:"export" mapstructure:"export"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// GCISConfig configures the GCIS open data client.
type GCISConfig struct {
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	Dataset      string `yaml:"dataset" mapstructure:"dataset"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
	Schema       string `yaml:"schema" mapstructure:"schema"`
	KeyTableFile string `yaml:"key_table_file" mapstructure:"key_table_file"`

	// RetryAttempts bounds tries per page request in export and sync.
	RetryAttempts int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP read API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`

	BreakerThreshold    int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSecs int `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// ExportConfig configures multi-page export and sync.
type ExportConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
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
	v.SetEnvPrefix("GCIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("gcis.base_url", gcis.DefaultBaseURL)
	v.SetDefault("gcis.dataset", gcis.DefaultDataset)
	v.SetDefault("gcis.timeout_secs", int(gcis.DefaultTimeout/time.Second))
	v.SetDefault("gcis.user_agent", gcis.DefaultUserAgent)
	v.SetDefault("gcis.schema", gcis.KeyTableV1.Name)
	v.SetDefault("gcis.key_table_file", "")
	v.SetDefault("gcis.retry_attempts", 3)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "gcis.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.breaker_threshold", 5)
	v.SetDefault("server.breaker_cooldown_secs", 30)
	v.SetDefault("export.concurrency", 4)
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

// Validate checks the settings a command mode needs: "serve", "store" or
// "export". The GCIS section is checked in every mode.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.GCIS.BaseURL == "" {
		problems = append(problems, "gcis.base_url is required")
	}
	if c.GCIS.Dataset == "" {
		problems = append(problems, "gcis.dataset is required")
	}
	if c.GCIS.TimeoutSecs < 0 {
		problems = append(problems, "gcis.timeout_secs must not be negative")
	}
	if c.GCIS.RetryAttempts < 0 {
		problems = append(problems, "gcis.retry_attempts must not be negative")
	}
	if c.GCIS.KeyTableFile == "" && c.GCIS.Schema != gcis.SchemaAuto {
		if _, err := gcis.LookupKeyTable(c.GCIS.Schema); err != nil {
			problems = append(problems, fmt.Sprintf("gcis.schema %q is not a known key table", c.GCIS.Schema))
		}
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
		}
		if c.Server.BreakerThreshold < 0 || c.Server.BreakerCooldownSecs < 0 {
			problems = append(problems, "server breaker settings must not be negative")
		}
	case "store":
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			problems = append(problems, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
		}
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	case "export":
		if c.Export.Concurrency <= 0 {
			problems = append(problems, "export.concurrency must be positive")
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Timeout returns the per-request timeout.
func (c GCISConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// ClientOptions translates the config into gcis client options. A key table
// file replaces the named schema; schema "auto" probes the builtin tables
// and falls back to v1.
func (c GCISConfig) ClientOptions() ([]gcis.Option, error) {
	opts := []gcis.Option{
		gcis.WithBaseURL(c.BaseURL),
		gcis.WithDataset(c.Dataset),
		gcis.WithUserAgent(c.UserAgent),
	}
	if c.TimeoutSecs > 0 {
		opts = append(opts, gcis.WithTimeout(c.Timeout()))
	}

	if table, ok, err := c.CustomKeyTable(); err != nil {
		return nil, err
	} else if ok {
		return append(opts, gcis.WithKeyTable(table)), nil
	}

	if c.Schema == gcis.SchemaAuto {
		return append(opts, gcis.WithKeyTable(gcis.KeyTableV1), gcis.WithSchemaProbe()), nil
	}

	table, err := gcis.LookupKeyTable(c.Schema)
	if err != nil {
		return nil, eris.Wrap(err, "config: gcis.schema")
	}
	return append(opts, gcis.WithKeyTable(table)), nil
}

// CustomKeyTable loads key_table_file. ok is false when no file is configured.
func (c GCISConfig) CustomKeyTable() (table gcis.KeyTable, ok bool, err error) {
	if c.KeyTableFile == "" {
		return gcis.KeyTable{}, false, nil
	}
	data, err := os.ReadFile(c.KeyTableFile)
	if err != nil {
		return gcis.KeyTable{}, false, eris.Wrap(err, "config: read key table file")
	}
	table, err = gcis.ParseKeyTable(data)
	if err != nil {
		return gcis.KeyTable{}, false, err
	}
	return table, true, nil
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
