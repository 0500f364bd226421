package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/signaledge/internal/backtest"
	"github.com/newthinker/signaledge/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Backtest backtest.Params `mapstructure:"backtest"`
	Sweep    SweepConfig     `mapstructure:"sweep"`
	Cache    CacheConfig     `mapstructure:"cache"`
	Sources  SourcesConfig   `mapstructure:"sources"`
	Storage  StorageConfig   `mapstructure:"storage"`
	LLM      LLMConfig       `mapstructure:"llm"`
	Metrics  MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	APIKey          string        `mapstructure:"api_key"`
	JobTTLHours     int           `mapstructure:"job_ttl_hours"`
	MaxJobs         int           `mapstructure:"max_jobs"`
	BacktestTimeout time.Duration `mapstructure:"backtest_timeout"`
}

// SweepConfig bounds parallel parameter sweeps
type SweepConfig struct {
	MaxWorkers int `mapstructure:"max_workers"` // 0 uses GOMAXPROCS
}

// CacheConfig selects the price cache backend
type CacheConfig struct {
	Type       string        `mapstructure:"type"` // "memory", "redis" or "none"
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
	Redis      RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// SourcesConfig configures the price sources
type SourcesConfig struct {
	Default string        `mapstructure:"default"`
	Yahoo   YahooConfig   `mapstructure:"yahoo"`
	Binance BinanceConfig `mapstructure:"binance"`
	CSV     CSVConfig     `mapstructure:"csv"`
}

type YahooConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Adjusted bool          `mapstructure:"adjusted"`
}

type BinanceConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CSVConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

type StorageConfig struct {
	Archive ArchiveConfig `mapstructure:"archive"`
	History HistoryConfig `mapstructure:"history"`
}

// ArchiveConfig holds the report archive backend; an empty type disables archiving
type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// HistoryConfig points at the SQLite run history; an empty path disables it
type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

type LLMConfig struct {
	Provider  string       `mapstructure:"provider"`
	MaxTokens int          `mapstructure:"max_tokens"`
	Claude    ClaudeConfig `mapstructure:"claude"`
	OpenAI    OpenAIConfig `mapstructure:"openai"`
	Ollama    OllamaConfig `mapstructure:"ollama"`
}

type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file on top of Defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("reading config: %w", err))
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unmarshaling config: %w", err))
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Mode:            "release",
			JobTTLHours:     1,
			MaxJobs:         100,
			BacktestTimeout: 5 * time.Minute,
		},
		Backtest: backtest.DefaultParams(),
		Cache: CacheConfig{
			Type:       "memory",
			TTL:        15 * time.Minute,
			MaxEntries: 64,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "signaledge:prices",
			},
		},
		Sources: SourcesConfig{
			Default: "yahoo",
			Yahoo: YahooConfig{
				Enabled: true,
				Timeout: 10 * time.Second,
			},
			CSV: CSVConfig{
				Enabled: true,
				Dir:     "data",
			},
		},
		LLM: LLMConfig{
			MaxTokens: 1024,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if err := c.Backtest.Validate(); err != nil {
		return err
	}
	if c.Sweep.MaxWorkers < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("sweep max_workers cannot be negative, got %d", c.Sweep.MaxWorkers))
	}

	switch c.Cache.Type {
	case "", "none", "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("redis addr required when cache type is redis"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown cache type: %s", c.Cache.Type))
	}
	if c.Cache.TTL < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("cache ttl cannot be negative, got %s", c.Cache.TTL))
	}

	switch c.Sources.Default {
	case "":
	case "yahoo":
		if !c.Sources.Yahoo.Enabled {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("default source yahoo is disabled"))
		}
	case "binance":
		if !c.Sources.Binance.Enabled {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("default source binance is disabled"))
		}
	case "csv":
		if !c.Sources.CSV.Enabled {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("default source csv is disabled"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown default source: %s", c.Sources.Default))
	}
	if c.Sources.CSV.Enabled && c.Sources.CSV.Dir == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("csv dir required when csv source is enabled"))
	}

	switch c.Storage.Archive.Type {
	case "":
	case "localfs":
		if c.Storage.Archive.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("archive path required when archive type is localfs"))
		}
	case "s3":
		if c.Storage.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when archive type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type: %s", c.Storage.Archive.Type))
	}

	// LLM validation - if provider set, check config exists
	if c.LLM.Provider != "" {
		switch c.LLM.Provider {
		case "claude":
			if c.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when provider is claude"))
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when provider is openai"))
			}
		case "ollama":
			if c.LLM.Ollama.Endpoint == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("ollama endpoint required when provider is ollama"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown llm provider: %s", c.LLM.Provider))
		}
	}

	return nil
}
