package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/recipe-miner/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Target    TargetConfig    `yaml:"target" mapstructure:"target"`
	Safety    SafetyConfig    `yaml:"safety" mapstructure:"safety"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	Firecrawl FirecrawlConfig `yaml:"firecrawl" mapstructure:"firecrawl"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Mine      MineConfig      `yaml:"mine" mapstructure:"mine"`
	Validate  ValidateConfig  `yaml:"validate" mapstructure:"validate"`
	Upload    UploadConfig    `yaml:"upload" mapstructure:"upload"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the recipe store backend.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // supabase, postgres or sqlite
	URL    string `yaml:"url" mapstructure:"url"`
	Key    string `yaml:"key" mapstructure:"key"`
}

// TargetConfig identifies the staging scope recipes are uploaded into.
type TargetConfig struct {
	UserID  string `yaml:"user_id" mapstructure:"user_id"`
	SpaceID string `yaml:"space_id" mapstructure:"space_id"`
}

// SafetyConfig guards against writing to a non-development store.
type SafetyConfig struct {
	RequiredURLSubstring string `yaml:"required_url_substring" mapstructure:"required_url_substring"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key                   string  `yaml:"key" mapstructure:"key"`
	Model                 string  `yaml:"model" mapstructure:"model"`
	MaxTokens             int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	SynthesisTemperature  float64 `yaml:"synthesis_temperature" mapstructure:"synthesis_temperature"`
	ValidationTemperature float64 `yaml:"validation_temperature" mapstructure:"validation_temperature"`
}

// JinaConfig holds Jina AI Reader and Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// FirecrawlConfig holds Firecrawl API settings (fallback scraper, optional).
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// CacheConfig configures the optional Redis page cache.
type CacheConfig struct {
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// MineConfig configures the mining stage.
type MineConfig struct {
	SourcesPerDish int               `yaml:"sources_per_dish" mapstructure:"sources_per_dish"`
	MaxSourceChars int               `yaml:"max_source_chars" mapstructure:"max_source_chars"`
	ExcludedHosts  []string          `yaml:"excluded_hosts" mapstructure:"excluded_hosts"`
	DishDelayMs    int               `yaml:"dish_delay_ms" mapstructure:"dish_delay_ms"`
	FetchDelayMs   int               `yaml:"fetch_delay_ms" mapstructure:"fetch_delay_ms"`
	SearchRetries  int               `yaml:"search_retries" mapstructure:"search_retries"`
	DraftDir       string            `yaml:"draft_dir" mapstructure:"draft_dir"`
	Dishes         []string          `yaml:"dishes" mapstructure:"dishes"`
	Persona        string            `yaml:"persona" mapstructure:"persona"`
	Personas       map[string]string `yaml:"personas" mapstructure:"personas"`
}

// ValidateConfig configures the validation stage.
type ValidateConfig struct {
	DelayMs   int    `yaml:"delay_ms" mapstructure:"delay_ms"`
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// UploadConfig configures the upload stage.
type UploadConfig struct {
	RecordsDir    string `yaml:"records_dir" mapstructure:"records_dir"`
	StrictRefs    bool   `yaml:"strict_refs" mapstructure:"strict_refs"`
	AllowReupload bool   `yaml:"allow_reupload" mapstructure:"allow_reupload"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DishDelay returns the pause between mined dishes.
func (c MineConfig) DishDelay() time.Duration {
	return time.Duration(c.DishDelayMs) * time.Millisecond
}

// FetchDelay returns the pause between source fetches for one dish.
func (c MineConfig) FetchDelay() time.Duration {
	return time.Duration(c.FetchDelayMs) * time.Millisecond
}

// ResolvePersona maps a persona key from the personas table to its text.
// Unknown keys are returned unchanged so a literal persona can be passed.
// An empty key selects the configured default persona.
func (c MineConfig) ResolvePersona(key string) string {
	if key == "" {
		key = c.Persona
	}
	if text, ok := c.Personas[key]; ok {
		return text
	}
	return key
}

// Delay returns the pause between validation calls.
func (c ValidateConfig) Delay() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

// TTL returns the page cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RECIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "supabase")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.synthesis_temperature", 0.7)
	v.SetDefault("anthropic.validation_temperature", 0.3)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("cache.ttl_hours", 72)
	v.SetDefault("mine.sources_per_dish", 3)
	v.SetDefault("mine.max_source_chars", 10000)
	v.SetDefault("mine.excluded_hosts", []string{"youtube.com", "pinterest.com"})
	v.SetDefault("mine.dish_delay_ms", 2000)
	v.SetDefault("mine.fetch_delay_ms", 1000)
	v.SetDefault("mine.search_retries", 2)
	v.SetDefault("mine.draft_dir", "draft_recipes")
	v.SetDefault("mine.dishes", []string{"Chilaquiles Rojos", "Sopa de Fideo", "Elote Esquites", "Pozole Rojo"})
	v.SetDefault("mine.persona", "cocina")
	v.SetDefault("mine.personas", map[string]string{
		"cocina":  "Abuela Sofia. Authentic Mexican. Warm, traditional tone.",
		"commune": "The Diplomat. Efficient, budget-conscious, clear instructions.",
	})
	v.SetDefault("validate.delay_ms", 500)
	v.SetDefault("validate.output_dir", "validated_recipes")
	v.SetDefault("upload.records_dir", "upload_records")

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

// CheckStore verifies the store settings and the development safety lock.
// It must pass before any command touches the store.
func (c *Config) CheckStore() error {
	var missing []string
	if c.Store.URL == "" {
		missing = append(missing, "store.url")
	}
	if c.Store.Driver == "supabase" && c.Store.Key == "" {
		missing = append(missing, "store.key")
	}
	if len(missing) > 0 {
		return configFailure("missing required settings: " + strings.Join(missing, ", "))
	}

	lock := strings.TrimSpace(c.Safety.RequiredURLSubstring)
	if lock == "" {
		return configFailure("safety lock: safety.required_url_substring is not set")
	}
	if !strings.Contains(c.Store.URL, lock) {
		return configFailure("safety lock: store url does not target the development store (expected it to contain " + lock + ")")
	}

	switch c.Store.Driver {
	case "supabase", "postgres", "sqlite":
	default:
		return configFailure("unsupported store driver: " + c.Store.Driver)
	}
	return nil
}

// CheckTarget verifies the staging scope used by uploads.
func (c *Config) CheckTarget() error {
	var missing []string
	if c.Target.UserID == "" {
		missing = append(missing, "target.user_id")
	}
	if c.Target.SpaceID == "" {
		missing = append(missing, "target.space_id")
	}
	if len(missing) > 0 {
		return configFailure("missing required settings: " + strings.Join(missing, ", "))
	}
	return nil
}

// CheckAnthropic verifies model credentials for the mine and validate stages.
func (c *Config) CheckAnthropic() error {
	if c.Anthropic.Key == "" {
		return configFailure("missing required settings: anthropic.key")
	}
	return nil
}

func configFailure(msg string) error {
	return model.NewFailure(model.KindConfiguration, "config", eris.New(msg))
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
