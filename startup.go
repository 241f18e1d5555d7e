package main

import (
	"context"
	"dogs-api-go/cache"
	"dogs-api-go/circuitbreaker"
	"dogs-api-go/config"
	"dogs-api-go/logcolors"
	"dogs-api-go/middleware"
	"dogs-api-go/services/catalog"
	"dogs-api-go/services/notifier"
	"dogs-api-go/services/rescueapi"
	"dogs-api-go/stats"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Paths reachable without an API key when API_KEY_REQUIRED is set
var publicPaths = []string{"/", "/health", "/cache*", "/stats", "/circuit-breaker*"}

func getNotifierTypeName(n notifier.Notifier) string {
	switch n.(type) {
	case *notifier.EmailNotifier:
		return "email"
	case *notifier.TelegramNotifier:
		return "telegram"
	case *notifier.NtfyNotifier:
		return "ntfy"
	default:
		return "unknown"
	}
}

func setupNotifiers(cfg config.Config) []notifier.Notifier {
	var notifiers []notifier.Notifier
	n := cfg.Notifiers

	if n.SMTPHost != "" {
		notifiers = append(notifiers, &notifier.EmailNotifier{
			SMTPHost:     n.SMTPHost,
			SMTPPort:     n.SMTPPort,
			SMTPUsername: n.SMTPUsername,
			SMTPPassword: n.SMTPPassword,
			FromEmail:    n.FromEmail,
			ToEmail:      n.ToEmail,
		})
	}

	if n.TelegramBotToken != "" {
		notifiers = append(notifiers, &notifier.TelegramNotifier{
			BotToken: n.TelegramBotToken,
			ChatID:   n.TelegramChatID,
		})
	}

	if n.NtfyTopic != "" {
		notifiers = append(notifiers, &notifier.NtfyNotifier{
			Topic:  n.NtfyTopic,
			Server: n.NtfyServer,
		})
	}

	for _, nt := range notifiers {
		log.Infof("%s %s notifier enabled", logcolors.LogNotifier, getNotifierTypeName(nt))
	}
	return notifiers
}

// startAlerts subscribes an alert handler to the event bus when at least
// one notifier is configured
func startAlerts(cfg config.Config) {
	notifiers := setupNotifiers(cfg)
	if len(notifiers) == 0 {
		log.Infof("%s No notifiers configured, alerts disabled", logcolors.LogNotifier)
		return
	}

	notifier.NewAlertHandler(notifier.AlertConfig{
		Notifiers: notifiers,
	}).Start(notifier.GetEventBus())
	log.Infof("%s Alerts enabled with %d notifier(s)", logcolors.LogNotifier, len(notifiers))
}

// setupServices builds the upstream client and the cached catalog over it
func setupServices(cfg config.Config) (*rescueapi.Client, *catalog.Service) {
	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:      "RescueAPI",
		Threshold: cfg.Configuration.CircuitBreakerThreshold,
		Cooldown:  cfg.CircuitBreakerCooldown(),
	})

	client := rescueapi.New(rescueapi.Options{
		BaseURL: cfg.Configuration.RescueAPIBaseURL,
		Timeout: cfg.UpstreamTimeout(),
		Breaker: breaker,
	})

	mode := cache.ModeTTL
	if cfg.CacheBypass() {
		mode = cache.ModeBypass
	}
	memo := cache.New(cache.Options{
		TTL:            cfg.CacheTTL(),
		Mode:           mode,
		SweepThreshold: cfg.Configuration.CacheSweepThreshold,
		Observer: func(name string, o cache.Outcome) {
			stats.Get().RecordCacheOutcome(name, string(o))
		},
	})

	log.Infof("%s Upstream %s, cache mode %s, TTL %v", logcolors.LogConfig,
		client.BaseURL(), mode, cfg.CacheTTL())
	return client, catalog.New(client, memo)
}

func newLimiter(cfg config.Config) *middleware.IPRateLimiter {
	return middleware.NewIPRateLimiter(
		rate.Limit(cfg.Configuration.RateLimitPerSecond), cfg.Configuration.RateLimitBurstLimit,
		rate.Limit(cfg.Configuration.CachedRateLimitPerSecond), cfg.Configuration.CachedRateLimitBurstLimit,
	)
}

// runLimiterJanitor drops per-IP limiters idle for longer than idle
func runLimiterJanitor(ctx context.Context, l *middleware.IPRateLimiter, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := l.Prune(idle); n > 0 {
				log.Debugf("%s Pruned %d idle limiters, %d remain", logcolors.LogRateLimit, n, l.Len())
			}
		case <-ctx.Done():
			return
		}
	}
}

// startStatsStore loads persisted counters and starts auto-save. Stats
// persistence is optional; failures only log.
func startStatsStore(cfg config.Config) *stats.Store {
	store, err := stats.NewStore(cfg.Configuration.StatsDBPath, stats.Get())
	if err != nil {
		log.Warnf("%s Stats persistence disabled: %v", logcolors.LogStats, err)
		return nil
	}
	if err := store.Load(); err != nil {
		log.Warnf("%s %v", logcolors.LogStats, err)
	}

	interval := time.Duration(cfg.Configuration.StatsSaveIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	store.StartAutoSave(interval)
	return store
}

// buildHandler wraps the router: CORS, then logging, then rate limiting,
// then API key checks
func buildHandler(router http.Handler, l *middleware.IPRateLimiter, cfg config.Config) http.Handler {
	handler := middleware.APIKeyMiddleware(cfg.Configuration.APIKey, cfg.Configuration.APIKeyRequired, publicPaths)(router)

	handler = middleware.RateLimitMiddleware(l, middleware.RateLimitOptions{
		BypassKey:     cfg.Configuration.APIKey,
		CacheOnlyTier: cfg.FeatureFlags.CacheOnlyTier,
		Record:        stats.Get().RecordRateLimit,
	})(handler)

	handler = middleware.LoggingMiddleware(handler)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOriginList(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-API-Key"},
		ExposedHeaders:   []string{"X-Cache-Status", "X-RateLimit-Type", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
	})
	return c.Handler(handler)
}

// recordRequestStats counts requests, status classes and latency per route
// template so /dogs/{slug} is one bucket
func recordRequestStats(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		start := time.Now()
		rec := middleware.NewResponseRecorder(w)
		next.ServeHTTP(rec, r)

		s := stats.Get()
		s.RecordRequest(route)
		s.RecordStatusCode(rec.StatusCode)
		s.RecordResponseTime(time.Since(start), route)
	})
}
