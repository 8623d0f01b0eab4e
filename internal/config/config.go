package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/johanlb/scapin-sub003/internal/arbiter"
	"github.com/johanlb/scapin-sub003/internal/engine"
	"github.com/johanlb/scapin-sub003/internal/invoker"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Notion    NotionConfig    `yaml:"notion" mapstructure:"notion"`
	Engine    EngineConfig    `yaml:"engine" mapstructure:"engine"`
	Arbiter   ArbiterConfig   `yaml:"arbiter" mapstructure:"arbiter"`
	Retrieval RetrievalConfig `yaml:"retrieval" mapstructure:"retrieval"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`

	// ProfilePath points at the optional triage profile YAML (VIP senders,
	// stakes thresholds).
	ProfilePath string `yaml:"profile_path" mapstructure:"profile_path"`
}

// StoreConfig configures the decision-trail backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings and the tier model mapping.
type AnthropicConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	FastModel      string  `yaml:"fast_model" mapstructure:"fast_model"`
	BalancedModel  string  `yaml:"balanced_model" mapstructure:"balanced_model"`
	ExpertModel    string  `yaml:"expert_model" mapstructure:"expert_model"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// NotionConfig holds the review-queue database settings.
type NotionConfig struct {
	Token    string `yaml:"token" mapstructure:"token"`
	ReviewDB string `yaml:"review_db" mapstructure:"review_db"`
}

// EngineConfig configures the analysis loop.
type EngineConfig struct {
	MaxPasses               int      `yaml:"max_passes" mapstructure:"max_passes"`
	ConvergenceConfidence   float64  `yaml:"convergence_confidence" mapstructure:"convergence_confidence"`
	HighStakesAmount        float64  `yaml:"high_stakes_amount" mapstructure:"high_stakes_amount"`
	HighStakesDeadlineHours int      `yaml:"high_stakes_deadline_hours" mapstructure:"high_stakes_deadline_hours"`
	VIPSenders              []string `yaml:"vip_senders" mapstructure:"vip_senders"`

	FastTimeoutSecs     int `yaml:"fast_timeout_secs" mapstructure:"fast_timeout_secs"`
	BalancedTimeoutSecs int `yaml:"balanced_timeout_secs" mapstructure:"balanced_timeout_secs"`
	ExpertTimeoutSecs   int `yaml:"expert_timeout_secs" mapstructure:"expert_timeout_secs"`
}

// ArbiterConfig configures what auto-executes.
type ArbiterConfig struct {
	AutoApplyThreshold          float64 `yaml:"auto_apply_threshold" mapstructure:"auto_apply_threshold"`
	RequiredEnrichmentThreshold float64 `yaml:"required_enrichment_threshold" mapstructure:"required_enrichment_threshold"`
	OptionalEnrichmentThreshold float64 `yaml:"optional_enrichment_threshold" mapstructure:"optional_enrichment_threshold"`
}

// RetrievalConfig configures the context-retrieval decorators.
type RetrievalConfig struct {
	CacheSize int `yaml:"cache_size" mapstructure:"cache_size"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentAnalyses int `yaml:"max_concurrent_analyses" mapstructure:"max_concurrent_analyses"`
}

// ServerConfig configures the webhook server.
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
	v.SetEnvPrefix("TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "triage.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent_analyses", 5)
	v.SetDefault("engine.max_passes", 5)
	v.SetDefault("engine.convergence_confidence", 0.95)
	v.SetDefault("engine.high_stakes_deadline_hours", 48)
	v.SetDefault("engine.fast_timeout_secs", 30)
	v.SetDefault("engine.balanced_timeout_secs", 90)
	v.SetDefault("engine.expert_timeout_secs", 240)
	v.SetDefault("arbiter.auto_apply_threshold", 0.85)
	v.SetDefault("arbiter.required_enrichment_threshold", 0.80)
	v.SetDefault("arbiter.optional_enrichment_threshold", 0.85)
	v.SetDefault("retrieval.cache_size", 256)
	v.SetDefault("anthropic.fast_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.balanced_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.expert_model", "claude-opus-4-1-20250805")
	v.SetDefault("anthropic.requests_per_sec", 2.0)
	v.SetDefault("profile_path", "")

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

// AnalysisConfig converts the engine section (with any loaded profile
// already merged in) into the engine's own config type.
func (c *Config) AnalysisConfig() engine.AnalysisConfig {
	return engine.AnalysisConfig{
		MaxPasses:                   c.Engine.MaxPasses,
		AutoApplyThreshold:          c.Arbiter.AutoApplyThreshold,
		RequiredEnrichmentThreshold: c.Arbiter.RequiredEnrichmentThreshold,
		OptionalEnrichmentThreshold: c.Arbiter.OptionalEnrichmentThreshold,
		ConvergenceConfidence:       c.Engine.ConvergenceConfidence,
		HighStakesAmount:            c.Engine.HighStakesAmount,
		HighStakesDeadlineHours:     c.Engine.HighStakesDeadlineHours,
		VIPSenders:                  c.Engine.VIPSenders,
		Timeouts: invoker.Timeouts{
			Fast:     time.Duration(c.Engine.FastTimeoutSecs) * time.Second,
			Balanced: time.Duration(c.Engine.BalancedTimeoutSecs) * time.Second,
			Expert:   time.Duration(c.Engine.ExpertTimeoutSecs) * time.Second,
		},
	}
}

// ArbitrationConfig converts the arbiter section into the arbiter's own
// config type.
func (c *Config) ArbitrationConfig() arbiter.Config {
	return arbiter.Config{
		AutoApplyThreshold:          c.Arbiter.AutoApplyThreshold,
		RequiredEnrichmentThreshold: c.Arbiter.RequiredEnrichmentThreshold,
		OptionalEnrichmentThreshold: c.Arbiter.OptionalEnrichmentThreshold,
	}
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
