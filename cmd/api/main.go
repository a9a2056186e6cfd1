package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/khanhnotech/congdongacf-gateway/internal/api"
	"github.com/khanhnotech/congdongacf-gateway/internal/config"
	"github.com/khanhnotech/congdongacf-gateway/internal/feed"
	"github.com/khanhnotech/congdongacf-gateway/internal/log"
	"github.com/khanhnotech/congdongacf-gateway/internal/metrics"
	"github.com/khanhnotech/congdongacf-gateway/internal/remote"
	"github.com/khanhnotech/congdongacf-gateway/internal/shadow"
	"github.com/khanhnotech/congdongacf-gateway/internal/store"
	"github.com/khanhnotech/congdongacf-gateway/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewSugar(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("Starting ACF community gateway",
		"env", cfg.Env,
		"addr", cfg.HTTPAddr,
		"upstream", cfg.Upstream.BaseURL,
	)

	metricsObj, metricsHandler, err := metrics.Setup("acf-gateway")
	if err != nil {
		logger.Fatalw("Failed to setup metrics", "error", err)
	}

	stores, err := store.New(cfg.Cache, logger)
	if err != nil {
		logger.Fatalw("Failed to setup stores", "error", err)
	}
	defer stores.Close()
	if stores.InMemoryMode() {
		logger.Warnw("Running with in-process stores; like state will not survive restarts")
	}

	upstream := remote.New(cfg.Upstream, logger, metricsObj)
	feedStore := feed.NewStore()
	threads := feed.NewThreads()
	shadowStore := shadow.New(stores.KV())
	patches := feed.NewCoordinator(feedStore, threads, shadowStore, stores, logger, metricsObj)
	feedSvc := feed.NewService(upstream, feedStore, threads, shadowStore, patches, stores.KV(), cfg.Feed, logger, metricsObj)

	hub := ws.NewHub(stores, logger, metricsObj)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	srv := api.NewServer(feedSvc, hub, stores, logger)
	middleware := api.NewMiddleware(logger, metricsObj)
	router := api.NewRouter(cfg, srv, middleware, metricsHandler)

	logger.Infow("CORS configured", "allowed_origins", cfg.Security.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // streaming endpoints hold their responses open
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Infow("API server starting", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatalw("Server startup failed", "error", err)
	case sig := <-shutdown:
		logger.Infow("Shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		hubCancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Errorw("Graceful shutdown failed", "error", err)
			server.Close()
		}

		logger.Infow("Server stopped")
	}
}
