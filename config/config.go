package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var conf = mustLoad()

type Config struct {
	Configuration struct {
		Port                      string `envconfig:"PORT" default:"8080"`
		RateLimitPerSecond        int    `envconfig:"RATE_LIMIT_PER_SECOND" default:"5"`
		RateLimitBurstLimit       int    `envconfig:"RATE_LIMIT_BURST_LIMIT" default:"20"`
		CachedRateLimitPerSecond  int    `envconfig:"CACHED_RATE_LIMIT_PER_SECOND" default:"20"`
		CachedRateLimitBurstLimit int    `envconfig:"CACHED_RATE_LIMIT_BURST_LIMIT" default:"40"`
		CacheAccessToken          string `envconfig:"CACHE_ACCESS_TOKEN" default:""`
		APIKey                    string `envconfig:"API_KEY" default:""`
		APIKeyRequired            bool   `envconfig:"API_KEY_REQUIRED" default:"false"`
		AllowedOrigins            string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`

		// Upstream rescue API
		RescueAPIBaseURL        string `envconfig:"RESCUE_API_BASE_URL" default:"http://localhost:8000"`
		RescueAPITimeoutSeconds int    `envconfig:"RESCUE_API_TIMEOUT_SECONDS" default:"10"`
		PageSize                int    `envconfig:"PAGE_SIZE" default:"20"`

		// Memo cache
		CacheTTLInSeconds   int    `envconfig:"CACHE_TTL_SECONDS" default:"300"`
		CacheSweepThreshold int    `envconfig:"CACHE_SWEEP_THRESHOLD" default:"100"`
		CacheMode           string `envconfig:"CACHE_MODE" default:"ttl"` // "ttl" or "bypass"

		SearchDebounceMs int `envconfig:"SEARCH_DEBOUNCE_MS" default:"300"`

		CircuitBreakerThreshold    int `envconfig:"CIRCUIT_BREAKER_THRESHOLD" default:"5"`
		CircuitBreakerCooldownSecs int `envconfig:"CIRCUIT_BREAKER_COOLDOWN_SECS" default:"60"`

		StatsDBPath              string `envconfig:"STATS_DB_PATH" default:"./data/stats.db"`
		StatsSaveIntervalSeconds int    `envconfig:"STATS_SAVE_INTERVAL_SECONDS" default:"300"`
	}

	Notifiers struct {
		SMTPHost         string `envconfig:"NOTIFIER_SMTP_HOST" default:""`
		SMTPPort         string `envconfig:"NOTIFIER_SMTP_PORT" default:"587"`
		SMTPUsername     string `envconfig:"NOTIFIER_SMTP_USERNAME" default:""`
		SMTPPassword     string `envconfig:"NOTIFIER_SMTP_PASSWORD" default:""`
		FromEmail        string `envconfig:"NOTIFIER_FROM_EMAIL" default:""`
		ToEmail          string `envconfig:"NOTIFIER_TO_EMAIL" default:""`
		TelegramBotToken string `envconfig:"NOTIFIER_TELEGRAM_BOT_TOKEN" default:""`
		TelegramChatID   string `envconfig:"NOTIFIER_TELEGRAM_CHAT_ID" default:""`
		NtfyTopic        string `envconfig:"NOTIFIER_NTFY_TOPIC" default:""`
		NtfyServer       string `envconfig:"NOTIFIER_NTFY_SERVER" default:"https://ntfy.sh"`
	}

	FeatureFlags struct {
		CacheOnlyTier bool `envconfig:"FF_CACHE_ONLY_TIER" default:"true"`
	}
}

// load loads the configuration from the environment.
func load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Warnf("Error loading env config: %v", err)
	}

	cfg := Config{}
	err = envconfig.Process("", &cfg)
	return cfg, err
}

func mustLoad() Config {
	c, err := load()
	if err != nil {
		log.WithError(err).Warnf("Unable to load configuration")
	}

	return c
}

func Get() Config {
	return conf
}

// CacheTTL returns the memo cache freshness window
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Configuration.CacheTTLInSeconds) * time.Second
}

// CacheBypass reports whether the memo cache should skip storage entirely
func (c Config) CacheBypass() bool {
	return strings.EqualFold(strings.TrimSpace(c.Configuration.CacheMode), "bypass")
}

// DebounceDelay returns the quiet period for search input
func (c Config) DebounceDelay() time.Duration {
	return time.Duration(c.Configuration.SearchDebounceMs) * time.Millisecond
}

// UpstreamTimeout returns the HTTP timeout for rescue API calls
func (c Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Configuration.RescueAPITimeoutSeconds) * time.Second
}

// CircuitBreakerCooldown returns how long the upstream breaker stays open
func (c Config) CircuitBreakerCooldown() time.Duration {
	return time.Duration(c.Configuration.CircuitBreakerCooldownSecs) * time.Second
}

// AllowedOriginList splits ALLOWED_ORIGINS on commas, dropping blanks
func (c Config) AllowedOriginList() []string {
	var origins []string
	for _, o := range strings.Split(c.Configuration.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
