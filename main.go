package main

import (
	"context"
	"dogs-api-go/config"
	"dogs-api-go/logcolors"
	"dogs-api-go/middleware"
	"dogs-api-go/services/catalog"
	"dogs-api-go/services/notifier"
	"dogs-api-go/services/rescueapi"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

var conf = config.Get()

var (
	upstream   *rescueapi.Client
	catalogSvc *catalog.Service
	limiter    *middleware.IPRateLimiter
)

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel) // Set to InfoLevel (change to DebugLevel for detailed logs)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startAlerts(conf)

	upstream, catalogSvc = setupServices(conf)
	limiter = newLimiter(conf)
	go runLimiterJanitor(ctx, limiter, time.Minute, 10*time.Minute)

	store := startStatsStore(conf)

	router := mux.NewRouter()
	setupRoutes(router)

	port := conf.Configuration.Port
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           buildHandler(router, limiter, conf),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Infof("%s Shutting down", logcolors.LogServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("%s Shutdown: %v", logcolors.LogServer, err)
		}
	}()

	log.Infof("%s Listening on port %s", logcolors.LogServer, port)
	notifier.PublishServerStarted(port, upstream.BaseURL())

	err := srv.ListenAndServe()
	if store != nil {
		if cerr := store.Close(); cerr != nil {
			log.Warnf("%s Failed to close stats store: %v", logcolors.LogStats, cerr)
		}
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		notifier.PublishServerStartupFailed("http", err)
		log.Fatalf("%s %v", logcolors.LogServer, err)
	}
}
