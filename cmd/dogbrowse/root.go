package main

import (
	"dogs-api-go/cache"
	"dogs-api-go/circuitbreaker"
	"dogs-api-go/config"
	"dogs-api-go/services/catalog"
	"dogs-api-go/services/rescueapi"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	flagAPI     string
	flagDebug   bool
	flagJSON    bool
	flagTimeout time.Duration

	svc *catalog.Service
)

func newRootCmd() *cobra.Command {
	conf := config.Get()

	root := &cobra.Command{
		Use:   "dogbrowse",
		Short: "Browse adoptable rescue dogs from the terminal",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetOutput(os.Stderr)
			log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
			log.SetLevel(log.WarnLevel)
			if flagDebug {
				log.SetLevel(log.DebugLevel)
			}
			svc = newService(conf, flagAPI, flagTimeout)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagAPI, "api", conf.Configuration.RescueAPIBaseURL, "Rescue API base URL (or RESCUE_API_BASE_URL env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print JSON instead of a table")
	root.PersistentFlags().DurationVar(&flagTimeout, "timeout", conf.UpstreamTimeout(), "Upstream request timeout")

	root.AddCommand(
		newListCmd(),
		newMetadataCmd(),
		newInteractiveCmd(conf),
	)

	return root
}

func newService(conf config.Config, baseURL string, timeout time.Duration) *catalog.Service {
	client := rescueapi.New(rescueapi.Options{
		BaseURL: baseURL,
		Timeout: timeout,
		Breaker: circuitbreaker.New(circuitbreaker.Config{
			Name:      "RescueAPI",
			Threshold: conf.Configuration.CircuitBreakerThreshold,
			Cooldown:  conf.CircuitBreakerCooldown(),
		}),
		UserAgent: "dogbrowse",
	})

	mode := cache.ModeTTL
	if conf.CacheBypass() {
		mode = cache.ModeBypass
	}
	return catalog.New(client, cache.New(cache.Options{
		TTL:            conf.CacheTTL(),
		Mode:           mode,
		SweepThreshold: conf.Configuration.CacheSweepThreshold,
	}))
}
