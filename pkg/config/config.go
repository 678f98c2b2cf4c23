package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"travel-gateway/pkg/providers/llm"
	"travel-gateway/pkg/providers/maps"
	"travel-gateway/pkg/providers/weather"
	"travel-gateway/pkg/ratelimit"
	"travel-gateway/pkg/types"
)

// Config holds all configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Downstreams DownstreamsConfig `mapstructure:"downstreams"`
	Maps        maps.Config       `mapstructure:"maps"`
	Weather     weather.Config    `mapstructure:"weather"`
	LLM         llm.Config        `mapstructure:"llm"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Forwarder   ForwarderConfig   `mapstructure:"forwarder"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
}

func (s ServerConfig) Development() bool {
	return s.Environment == "development"
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DownstreamsConfig holds the base URLs requests are forwarded to
type DownstreamsConfig struct {
	BackendV2 string `mapstructure:"backend_v2"`
}

// Targets returns the forwarder target table.
func (d DownstreamsConfig) Targets() map[string]string {
	return map[string]string{
		TargetBackendV2: d.BackendV2,
	}
}

// RateLimitConfig selects the limiter algorithm, its backing store and tiers
type RateLimitConfig struct {
	Algorithm string                    `mapstructure:"algorithm"`
	Store     string                    `mapstructure:"store"`
	Allowlist []string                  `mapstructure:"allowlist"`
	MaxKeys   int                       `mapstructure:"max_keys"`
	Tiers     map[string]ratelimit.Tier `mapstructure:"tiers"`
}

type CacheConfig struct {
	Store         string        `mapstructure:"store"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) CacheConfig() types.CacheConfig {
	return types.CacheConfig{
		Host:     r.Host,
		Port:     r.Port,
		Password: r.Password,
		DB:       r.DB,
	}
}

type ForwarderConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type MetricsConfig struct {
	EnableDetailedStatus bool `mapstructure:"enable_detailed_status"`
}

// Store backends
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

const TargetBackendV2 = "backend_v2"

var (
	// Global configuration
	globalConfig Config
)

// env holds the legacy variable names honoured next to the automatic
// SECTION_KEY form.
var env = map[string][]string{
	"server.port":            {"PORT"},
	"server.environment":     {"APP_ENV", "ENVIRONMENT"},
	"cors.allowed_origins":   {"ALLOWED_ORIGINS"},
	"downstreams.backend_v2": {"BACKEND_V2_URL"},
	"maps.api_key":           {"GOOGLE_MAPS_API_KEY"},
	"llm.api_key":            {"OPENAI_API_KEY"},
	"redis.host":             {"REDIS_HOST"},
}

// Load reads config.yaml from CONFIG_PATH, "." or "./config" when present,
// then the environment, then config/providers.yaml for base URLs not set
// elsewhere.
func Load() error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	cfg, err := load(v)
	if err != nil {
		return err
	}

	providers, err := LoadProviderConfig(providersPath())
	if err != nil {
		return err
	}
	providers.Apply(cfg)

	globalConfig = *cfg
	return nil
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range env {
		upper := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, upper}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	// Read the config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	defaults := ratelimit.DefaultTiers()
	for name, tier := range c.RateLimit.Tiers {
		tier.Name = name
		if tier.Message == "" {
			tier.Message = defaults[name].Message
		}
		if tier.Message == "" {
			tier.Message = "Too many requests, please try again later."
		}
		if tier.Limit <= 0 || tier.Window <= 0 {
			return fmt.Errorf("rate limit tier %s needs a positive limit and window", name)
		}
		c.RateLimit.Tiers[name] = tier
	}

	if c.Cache.SweepInterval <= 0 {
		c.Cache.SweepInterval = time.Minute
	}

	c.CORS.AllowedOrigins = trimAll(c.CORS.AllowedOrigins)
	c.RateLimit.Allowlist = trimAll(c.RateLimit.Allowlist)

	switch c.Cache.Store {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("unknown cache store: %s", c.Cache.Store)
	}
	switch c.RateLimit.Store {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("unknown rate limit store: %s", c.RateLimit.Store)
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.environment", "production")

	v.SetDefault("log.level", "info")

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	v.SetDefault("downstreams.backend_v2", "")

	v.SetDefault("maps.base_url", "")
	v.SetDefault("maps.api_key", "")
	v.SetDefault("weather.base_url", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", llm.DefaultModel)
	v.SetDefault("llm.temperature", 0.7)

	v.SetDefault("ratelimit.algorithm", ratelimit.FixedWindow)
	v.SetDefault("ratelimit.store", StoreMemory)
	v.SetDefault("ratelimit.allowlist", []string{"127.0.0.1", "::1"})
	v.SetDefault("ratelimit.max_keys", 10000)
	for name, tier := range ratelimit.DefaultTiers() {
		v.SetDefault("ratelimit.tiers."+name+".limit", tier.Limit)
		v.SetDefault("ratelimit.tiers."+name+".window", tier.Window.String())
		v.SetDefault("ratelimit.tiers."+name+".message", tier.Message)
	}

	v.SetDefault("cache.store", StoreMemory)
	v.SetDefault("cache.sweep_interval", "60s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("forwarder.timeout", "10s")

	v.SetDefault("metrics.enable_detailed_status", false)
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// GetConfig returns the global configuration
func GetConfig() *Config {
	return &globalConfig
}
