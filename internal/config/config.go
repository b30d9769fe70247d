// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Unlock policies accepted in UNLOCK_POLICY.
const (
	// UnlockPolicyThreshold grants content while the balance is at or above the threshold; nothing is spent.
	UnlockPolicyThreshold = "threshold"
	// UnlockPolicyDebit spends the threshold amount on every unlock.
	UnlockPolicyDebit = "debit"
)

// Channel modes accepted in CHANNEL_MODE.
const (
	// ChannelModeStatic uses REQUIRED_CHANNELS as the fixed channel set.
	ChannelModeStatic = "static"
	// ChannelModeDynamic reads the channel set from the settings record; REQUIRED_CHANNELS seeds it.
	ChannelModeDynamic = "dynamic"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// BotToken is the chat transport API token.
	BotToken string `mapstructure:"BOT_TOKEN"`
	// AdminID is the single administrator identity; admin commands from anyone else are ignored.
	AdminID int64 `mapstructure:"ADMIN_ID"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RequiredChannels is a comma-separated list of channel identifiers (@username or numeric chat id).
	RequiredChannels string `mapstructure:"REQUIRED_CHANNELS"`
	// ChannelMode is "static" or "dynamic".
	ChannelMode string `mapstructure:"CHANNEL_MODE"`
	// ReferralBonus is the number of points credited to a referrer per new referred user.
	ReferralBonus int64 `mapstructure:"REFERRAL_BONUS"`
	// UnlockThreshold is the balance needed to unlock content (and the amount spent under the debit policy).
	UnlockThreshold int64 `mapstructure:"UNLOCK_THRESHOLD"`
	// UnlockPolicy is "threshold" or "debit".
	UnlockPolicy string `mapstructure:"UNLOCK_POLICY"`
	// UnlockPolicyFile is an optional path to a Rego module overriding the built-in unlock rule.
	UnlockPolicyFile string `mapstructure:"UNLOCK_POLICY_FILE"`
	// RedisURL enables the membership cache when set (e.g. redis://localhost:6379/0).
	RedisURL string `mapstructure:"REDIS_URL"`
	// MembershipCacheTTL is how long a positive membership answer is cached (e.g. "2m").
	MembershipCacheTTL string `mapstructure:"MEMBERSHIP_CACHE_TTL"`
	// MembershipTimeout bounds a single membership query (e.g. "5s"); a timeout counts as non-member.
	MembershipTimeout string `mapstructure:"MEMBERSHIP_TIMEOUT"`
	// BroadcastRate is the maximum number of broadcast sends per second.
	BroadcastRate float64 `mapstructure:"BROADCAST_RATE"`
	// BroadcastConcurrency is the maximum number of in-flight broadcast sends.
	BroadcastConcurrency int `mapstructure:"BROADCAST_CONCURRENCY"`
	// UpdateWorkers is the maximum number of inbound updates handled concurrently.
	UpdateWorkers int `mapstructure:"UPDATE_WORKERS"`
	// Port is the HTTP port for liveness, readiness and metrics (hosting platforms set PORT).
	Port string `mapstructure:"PORT"`
	// Env is the application environment (e.g. "development", "production"). Selects the log encoder.
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is the zap level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Telemetry (optional). When the endpoint is empty, no-op providers are used.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext OTLP connection even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// Domain event publishing (optional). Disabled when KafkaBrokers is empty.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// EventsTopic is the Kafka topic domain events are written to.
	EventsTopic string `mapstructure:"EVENTS_KAFKA_TOPIC"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("BOT_TOKEN", "")
	v.SetDefault("ADMIN_ID", 0)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REQUIRED_CHANNELS", "")
	v.SetDefault("CHANNEL_MODE", ChannelModeStatic)
	v.SetDefault("REFERRAL_BONUS", 10)
	v.SetDefault("UNLOCK_THRESHOLD", 50)
	v.SetDefault("UNLOCK_POLICY", UnlockPolicyThreshold)
	v.SetDefault("UNLOCK_POLICY_FILE", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("MEMBERSHIP_CACHE_TTL", "2m")
	v.SetDefault("MEMBERSHIP_TIMEOUT", "5s")
	v.SetDefault("BROADCAST_RATE", 25)
	v.SetDefault("BROADCAST_CONCURRENCY", 8)
	v.SetDefault("UPDATE_WORKERS", 32)
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "referral-gate-bot")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("EVENTS_KAFKA_TOPIC", "referral-gate-events")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.AdminID <= 0 {
		return nil, errors.New("config: ADMIN_ID must be a positive user id")
	}
	cfg.UnlockPolicy = strings.ToLower(strings.TrimSpace(cfg.UnlockPolicy))
	if cfg.UnlockPolicy != UnlockPolicyThreshold && cfg.UnlockPolicy != UnlockPolicyDebit {
		return nil, errors.New("config: UNLOCK_POLICY must be threshold or debit")
	}
	cfg.ChannelMode = strings.ToLower(strings.TrimSpace(cfg.ChannelMode))
	if cfg.ChannelMode != ChannelModeStatic && cfg.ChannelMode != ChannelModeDynamic {
		return nil, errors.New("config: CHANNEL_MODE must be static or dynamic")
	}
	if cfg.ReferralBonus <= 0 {
		return nil, errors.New("config: REFERRAL_BONUS must be positive")
	}
	if cfg.UnlockThreshold <= 0 {
		return nil, errors.New("config: UNLOCK_THRESHOLD must be positive")
	}
	if cfg.BroadcastConcurrency <= 0 {
		cfg.BroadcastConcurrency = 8
	}
	if cfg.UpdateWorkers <= 0 {
		cfg.UpdateWorkers = 32
	}

	return &cfg, nil
}

// RequiredChannelList returns channel identifiers from the comma-separated config, trimmed and de-duplicated.
func (c *Config) RequiredChannelList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.RequiredChannels)
}

// KafkaBrokerList returns broker addresses from the comma-separated KAFKA_BROKERS.
func (c *Config) KafkaBrokerList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.KafkaBrokers)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// CacheTTL parses MembershipCacheTTL as a time.Duration. Returns 2m if unset or invalid.
func (c *Config) CacheTTL() time.Duration {
	d, err := time.ParseDuration(c.MembershipCacheTTL)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// MembershipQueryTimeout parses MembershipTimeout as a time.Duration. Returns 5s if unset or invalid.
func (c *Config) MembershipQueryTimeout() time.Duration {
	d, err := time.ParseDuration(c.MembershipTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// HTTPAddr returns the listen address for the liveness/metrics server.
func (c *Config) HTTPAddr() string {
	p := strings.TrimSpace(c.Port)
	if p == "" {
		p = "8080"
	}
	if strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}
