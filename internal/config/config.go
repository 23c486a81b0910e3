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
	Mathpix   MathpixConfig   `yaml:"mathpix" mapstructure:"mathpix"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Recognize AdapterConfig   `yaml:"recognize" mapstructure:"recognize"`
	Verify    AdapterConfig   `yaml:"verify" mapstructure:"verify"`
	Feedback  FeedbackConfig  `yaml:"feedback" mapstructure:"feedback"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`             // fs, sqlite, postgres
	DataDir     string `yaml:"data_dir" mapstructure:"data_dir"`         // fs driver
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"` // sqlite path or postgres DSN
}

// MathpixConfig holds Mathpix OCR API credentials.
type MathpixConfig struct {
	AppID   string `yaml:"app_id" mapstructure:"app_id"`
	AppKey  string `yaml:"app_key" mapstructure:"app_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings for the verifier.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// AdapterConfig selects a capability provider and bounds its calls.
// Provider is "fallback" or the capability's live provider name; the live
// providers still degrade to the fallback value on failure.
type AdapterConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// FeedbackConfig configures the correction feedback log.
type FeedbackConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
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
	v.SetEnvPrefix("MATHCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "fs")
	v.SetDefault("store.data_dir", "./data")
	v.SetDefault("feedback.dir", "./data/corrections")
	v.SetDefault("mathpix.base_url", "https://api.mathpix.com")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("recognize.provider", "fallback")
	v.SetDefault("recognize.timeout_secs", 30)
	v.SetDefault("recognize.max_attempts", 3)
	v.SetDefault("recognize.rate_per_sec", 5)
	v.SetDefault("verify.provider", "fallback")
	v.SetDefault("verify.timeout_secs", 60)
	v.SetDefault("verify.max_attempts", 3)
	v.SetDefault("verify.rate_per_sec", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_upload_bytes", int64(10<<20))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Default returns the configuration produced when no file or environment
// overrides are present. Used by `mathcheck config init`.
func Default() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal defaults")
	}
	return &cfg, nil
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
