// Package config loads service configuration in three layers: built-in
// defaults, an optional YAML file, then IINFINDER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix scopes environment overrides. A double underscore separates
	// sections: IINFINDER_CACHE__SCREENING_TTL=12h sets cache.screening_ttl.
	EnvPrefix = "IINFINDER_"

	// PathEnvVar points at an optional YAML config file.
	PathEnvVar = "IINFINDER_CONFIG"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/126.0.0.0 Safari/537.36"

type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Log          LogConfig          `koanf:"log"`
	Database     DatabaseConfig     `koanf:"database"`
	Redis        RedisConfig        `koanf:"redis"`
	Cache        CacheConfig        `koanf:"cache"`
	Search       SearchConfig       `koanf:"search"`
	Screening    ScreeningConfig    `koanf:"screening"`
	Confirmation ConfirmationConfig `koanf:"confirmation"`
	Captcha      CaptchaConfig      `koanf:"captcha"`
	AutoSearch   AutoSearchConfig   `koanf:"autosearch"`
	SearchLog    SearchLogConfig    `koanf:"searchlog"`
	Access       AccessConfig       `koanf:"access"`
	Quota        QuotaConfig        `koanf:"quota"`
	Notify       NotifyConfig       `koanf:"notify"`
}

// ServerConfig configures the HTTP API. An empty AdminToken disables the
// access-list routes.
type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	AdminToken        string        `koanf:"admin_token"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, text
}

type DatabaseConfig struct {
	Driver       string `koanf:"driver"` // sqlite, postgres
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
}

// RedisConfig is only used when cache.backend is "redis".
type RedisConfig struct {
	URL          string        `koanf:"url"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type CacheConfig struct {
	Backend           string        `koanf:"backend"` // sql, redis, memory
	ScreeningTTL      time.Duration `koanf:"screening_ttl"`
	ConfirmationTTL   time.Duration `koanf:"confirmation_ttl"`
	ScreeningSweep    time.Duration `koanf:"screening_sweep"`
	ConfirmationSweep time.Duration `koanf:"confirmation_sweep"`
}

type SearchConfig struct {
	CandidateCount int `koanf:"candidate_count"`
	WindowSize     int `koanf:"window_size"`
}

// BreakerConfig tunes an upstream breaker. It counts whole batches: a
// batch fails when none of its lookups got an answer, and MaxRequests is
// the number of batches let through while half-open.
type BreakerConfig struct {
	MaxRequests      uint32        `koanf:"max_requests"`
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
}

type ScreeningConfig struct {
	URL           string        `koanf:"url"`
	Origin        string        `koanf:"origin"`
	Referer       string        `koanf:"referer"`
	UserAgent     string        `koanf:"user_agent"`
	Timeout       time.Duration `koanf:"timeout"`
	SuccessStatus int           `koanf:"success_status"`
	Breaker       BreakerConfig `koanf:"breaker"`
}

type ConfirmationConfig struct {
	URL           string        `koanf:"url"`
	UserAgent     string        `koanf:"user_agent"`
	Timeout       time.Duration `koanf:"timeout"`
	MinCodeLength int           `koanf:"min_code_length"`
	Breaker       BreakerConfig `koanf:"breaker"`
}

// CaptchaConfig points at the glyph templates. They are not shipped with
// the binary: TemplatesDir must hold the twenty reference bitmaps named
// "<digit><style>.png", style "b" for regular and "i" for italic (0b.png
// through 9i.png). Startup fails when none can be read.
type CaptchaConfig struct {
	TemplatesDir string  `koanf:"templates_dir"`
	Threshold    float64 `koanf:"threshold"`
	CropTop      int     `koanf:"crop_top"`
}

type AutoSearchConfig struct {
	Interval       time.Duration `koanf:"interval"`
	BatchSize      int           `koanf:"batch_size"`
	Cooldown       time.Duration `koanf:"cooldown"`
	Retention      time.Duration `koanf:"retention"`
	RetentionSweep time.Duration `koanf:"retention_sweep"`
}

type SearchLogConfig struct {
	Retention time.Duration `koanf:"retention"`
	Sweep     time.Duration `koanf:"sweep"`
}

type AccessConfig struct {
	Sweep time.Duration `koanf:"sweep"`
}

// QuotaConfig limits manual searches per owner. A zero WeeklyLimit disables it.
type QuotaConfig struct {
	WeeklyLimit int           `koanf:"weekly_limit"`
	Window      time.Duration `koanf:"window"`
}

type NotifyConfig struct {
	Driver            string        `koanf:"driver"` // log, webhook, kafka
	WebhookURL        string        `koanf:"webhook_url"`
	WebhookTimeout    time.Duration `koanf:"webhook_timeout"`
	KafkaBrokers      []string      `koanf:"kafka_brokers"`
	KafkaTopic        string        `koanf:"kafka_topic"`
	KafkaPartitions   int32         `koanf:"kafka_partitions"`
	KafkaReplication  int16         `koanf:"kafka_replication"`
	KafkaCreateTopics bool          `koanf:"kafka_create_topics"`
}

func defaultBreaker() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 3,
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      3 * time.Minute, // fresh resolutions fan out to hundreds of lookups
			ShutdownTimeout:   10 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			DSN:          "iinfinder.db",
			MaxOpenConns: 4,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Cache: CacheConfig{
			Backend:           "sql",
			ScreeningTTL:      24 * time.Hour,
			ConfirmationTTL:   time.Hour,
			ScreeningSweep:    10 * time.Minute,
			ConfirmationSweep: time.Minute,
		},
		Search: SearchConfig{CandidateCount: 299, WindowSize: 4},
		Screening: ScreeningConfig{
			URL:           "https://post.kz/mail-app/api/checkIinBin",
			Origin:        "https://post.kz",
			Referer:       "https://post.kz/register",
			UserAgent:     defaultUserAgent,
			Timeout:       15 * time.Second,
			SuccessStatus: 202,
			Breaker:       defaultBreaker(),
		},
		Confirmation: ConfirmationConfig{
			URL:           "https://nca.pki.gov.kz/service/pkiorder/create.xhtml?lang=ru&certtemplateAlias=individ_ng",
			UserAgent:     defaultUserAgent,
			Timeout:       20 * time.Second,
			MinCodeLength: 4,
			Breaker:       defaultBreaker(),
		},
		Captcha: CaptchaConfig{
			TemplatesDir: "assets/glyphs",
			Threshold:    0.99,
			CropTop:      5,
		},
		AutoSearch: AutoSearchConfig{
			Interval:       time.Minute,
			BatchSize:      3,
			Cooldown:       4 * time.Hour,
			Retention:      30 * 24 * time.Hour,
			RetentionSweep: time.Hour,
		},
		SearchLog: SearchLogConfig{Retention: 90 * 24 * time.Hour, Sweep: time.Hour},
		Access:    AccessConfig{Sweep: time.Hour},
		Quota:     QuotaConfig{WeeklyLimit: 0, Window: 7 * 24 * time.Hour},
		Notify: NotifyConfig{
			Driver:            "log",
			WebhookTimeout:    10 * time.Second,
			KafkaTopic:        "iinfinder.autosearch.matches",
			KafkaPartitions:   1,
			KafkaReplication:  1,
			KafkaCreateTopics: true,
		},
	}
}

// Load builds the configuration from defaults, the file named by
// IINFINDER_CONFIG (if set) and the environment.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv(PathEnvVar))
}

// LoadFrom is Load with an explicit file path; an empty path skips the file layer.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := splitSlices(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// envKey maps IINFINDER_NOTIFY__KAFKA_BROKERS to notify.kafka_brokers.
func envKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

var sliceKeys = []string{"notify.kafka_brokers"}

// splitSlices turns comma-separated env strings into slices for list fields.
func splitSlices(k *koanf.Koanf) error {
	for _, key := range sliceKeys {
		s, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(key, parts); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q must be sqlite or postgres", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}

	switch c.Cache.Backend {
	case "sql", "memory":
	case "redis":
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required when cache.backend is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q must be sql, redis or memory", c.Cache.Backend))
	}

	positive := map[string]time.Duration{
		"cache.screening_ttl":        c.Cache.ScreeningTTL,
		"cache.confirmation_ttl":     c.Cache.ConfirmationTTL,
		"cache.screening_sweep":      c.Cache.ScreeningSweep,
		"cache.confirmation_sweep":   c.Cache.ConfirmationSweep,
		"screening.timeout":          c.Screening.Timeout,
		"confirmation.timeout":       c.Confirmation.Timeout,
		"autosearch.interval":        c.AutoSearch.Interval,
		"autosearch.cooldown":        c.AutoSearch.Cooldown,
		"autosearch.retention":       c.AutoSearch.Retention,
		"autosearch.retention_sweep": c.AutoSearch.RetentionSweep,
		"searchlog.retention":        c.SearchLog.Retention,
		"searchlog.sweep":            c.SearchLog.Sweep,
		"access.sweep":               c.Access.Sweep,
		"quota.window":               c.Quota.Window,
	}
	for name, d := range positive {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	if c.Search.CandidateCount < 1 || c.Search.CandidateCount > 999 {
		errs = append(errs, errors.New("search.candidate_count must be within 1..999"))
	}
	if c.Search.WindowSize < 0 {
		errs = append(errs, errors.New("search.window_size must not be negative"))
	}
	if c.AutoSearch.BatchSize < 1 {
		errs = append(errs, errors.New("autosearch.batch_size must be at least 1"))
	}
	if c.Quota.WeeklyLimit < 0 {
		errs = append(errs, errors.New("quota.weekly_limit must not be negative"))
	}
	if c.Captcha.Threshold <= 0 || c.Captcha.Threshold > 1 {
		errs = append(errs, errors.New("captcha.threshold must be within (0, 1]"))
	}

	for name, raw := range map[string]string{"screening.url": c.Screening.URL, "confirmation.url": c.Confirmation.URL} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s %q must be an absolute URL", name, raw))
		}
	}

	switch c.Notify.Driver {
	case "log":
	case "webhook":
		if c.Notify.WebhookURL == "" {
			errs = append(errs, errors.New("notify.webhook_url is required for the webhook driver"))
		}
	case "kafka":
		if len(c.Notify.KafkaBrokers) == 0 || c.Notify.KafkaTopic == "" {
			errs = append(errs, errors.New("notify.kafka_brokers and notify.kafka_topic are required for the kafka driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("notify.driver %q must be log, webhook or kafka", c.Notify.Driver))
	}

	return errors.Join(errs...)
}
