package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/scangate/qrlogin-server-go/internal/config"
	"github.com/scangate/qrlogin-server-go/internal/handler"
	"github.com/scangate/qrlogin-server-go/internal/jobs"
	"github.com/scangate/qrlogin-server-go/internal/middleware"
	"github.com/scangate/qrlogin-server-go/internal/service"
	"github.com/scangate/qrlogin-server-go/internal/store"
	"github.com/scangate/qrlogin-server-go/internal/token"
	"github.com/scangate/qrlogin-server-go/internal/ws"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("APP_ENV") == "production"
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	sessionStore := store.NewSessionStore()
	feedStore := store.NewFeedStore()
	registry := ws.NewRegistry()
	defer registry.Close()

	tokens := token.NewService(cfg.TokenSecret)

	loginService := service.NewLoginService(
		sessionStore, registry, tokens,
		cfg.DefaultUser,
		cfg.PollTokenTTL(), cfg.ConfirmTokenTTL(),
		cfg.PendingTTL(), cfg.AuthedTTL(),
	)
	feedService := service.NewFeedService(feedStore)

	authMiddleware := middleware.NewAuthMiddleware(tokens)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	loginHandler := handler.NewLoginHandler(loginService)
	wsHandler := handler.NewWSHandler(loginService, registry, cfg.Origins())
	feedHandler := handler.NewFeedHandler(feedService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Get("/", loginHandler.LoginPage)
	r.Get("/ws/{sessionID}", wsHandler.HandleWS)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
			r.Post("/qr-login", loginHandler.Confirm)
			r.Post("/logout", loginHandler.Logout)
			r.Get("/check-session/{sessionID}", loginHandler.CheckSession)

			r.Route("/posts", func(r chi.Router) {
				r.Use(authMiddleware.Handler)
				r.Mount("/", feedHandler.Routes())
			})
		})
	})

	sweepJob := jobs.NewSweepJob(loginService, cfg.SweepInterval())
	sweepJob.Start()
	defer sweepJob.Stop()

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     r,
		ReadTimeout: config.ServerReadTimeout,
		// No write timeout: websocket connections stay open indefinitely.
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
