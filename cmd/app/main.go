package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"rtlab-dashboard/configs"
	"rtlab-dashboard/internal/adapter"
	delivery "rtlab-dashboard/internal/delivery/http"
	"rtlab-dashboard/internal/infra"
	"rtlab-dashboard/internal/metrics"
	"rtlab-dashboard/internal/middleware"
	"rtlab-dashboard/internal/repository"
	"rtlab-dashboard/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, using environment variables")
	}

	cfg, err := configs.Load()
	if err != nil {
		// Misconfiguration is fatal by design; never degrade silently.
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(cfg)

	m := metrics.New()
	codec := middleware.NewSessionCodec(cfg.Auth.Secret)
	gate := middleware.NewAuthGate(codec, cfg.IsProduction(), m)

	authHandler, err := delivery.NewAuthHandler(cfg, codec)
	if err != nil {
		log.Fatal().Err(err).Msg("auth handler init failed")
	}

	var bridge *adapter.BackendBridge
	if cfg.Backend.APIURL != "" {
		bridge = adapter.NewBackendBridge(cfg.Backend.APIURL, cfg.Backend.InternalProxyToken, cfg.Backend.Timeout)
	}

	hub := delivery.NewEventHub()

	// The mock backend exists whenever it can serve: mock mode, or standing
	// by for the opt-in fallback on upstream failure.
	var mock *service.MockBackend
	var scheduler *infra.Scheduler
	if cfg.UseMockAPI() || cfg.Backend.FallbackOnError {
		repo, err := repository.NewStateFileRepository(cfg.Mock.StatePath, cfg.Mock.AuditLogPath)
		if err != nil {
			log.Fatal().Err(err).Msg("state repository init failed")
		}
		mock, err = service.NewMockBackend(repo)
		if err != nil {
			log.Fatal().Err(err).Msg("mock backend init failed")
		}
		mock.SetEmitter(hub.Broadcast)

		simulator := service.NewSimulator(mock, 0)
		scheduler = infra.NewScheduler(simulator, cfg.Mock.TickInterval)
		if err := scheduler.Start(); err != nil {
			log.Fatal().Err(err).Msg("scheduler start failed")
		}
		defer scheduler.Stop()
	}

	e := echo.New()
	e.HideBanner = true
	delivery.SetupRoutes(e, &delivery.RouterConfig{
		Gate:          gate,
		AuthHandler:   authHandler,
		ProxyHandler:  delivery.NewProxyHandler(cfg, mock, bridge, m),
		EventsHandler: delivery.NewEventsHandler(cfg, hub, bridge, m),
		WebHandler:    delivery.NewWebHandler(codec),
	})

	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     e,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the event stream stays open until the client
		// disconnects.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("env", cfg.Server.Env).
			Bool("mock_mode", cfg.UseMockAPI()).
			Msg("rtlab dashboard starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

func setupLogging(cfg *configs.Config) {
	level, err := zerolog.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
