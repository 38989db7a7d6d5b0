package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mindping-core/internal/clock"
	"mindping-core/internal/config"
	"mindping-core/internal/handlers"
	"mindping-core/internal/middleware"
	"mindping-core/internal/models"
	"mindping-core/internal/push"
	"mindping-core/internal/remote"
	"mindping-core/internal/services"
	"mindping-core/internal/session"
	"mindping-core/internal/store"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Open device store
	kv, err := store.Open(cfg.Storage.Type, cfg.Storage.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open device store")
	}
	defer kv.Close()
	log.Info().Str("type", cfg.Storage.Type).Msg("Device store opened")

	userStore := store.NewUserStore(kv)
	friendStore := store.NewFriendStore(kv)
	pingStore := store.NewPingStore(kv)
	statsStore := store.NewStatsStore(kv)
	outboxStore := store.NewOutboxStore(kv)

	// Session from the locally persisted profile, if one exists
	var currentUser *models.User
	if u, err := userStore.Get(); err == nil {
		currentUser = u
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Fatal().Err(err).Msg("Failed to read profile")
	}
	sess := session.New(currentUser, cfg.Remote.Token)
	if sess.TokenExpired(time.Now()) {
		log.Warn().Msg("Directory token is expired")
	}

	// Remote directory boundary
	directory := remote.NewHTTPDirectory(cfg.Remote.BaseURL, cfg.Remote.Token)
	subscriber := remote.NewWSSubscriber(cfg.Remote.WSURL, cfg.Remote.Token)

	// Push-delivery boundary
	var dispatcher push.Dispatcher = push.LogDispatcher{}
	if cfg.Push.Enabled {
		apns, err := push.NewAPNSDispatcher(cfg.Push.KeyPath, cfg.Push.KeyID, cfg.Push.TeamID, cfg.Push.Topic)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create push dispatcher")
		}
		dispatcher = apns
	}

	clk := clock.System()

	// Initialize services
	outbox := services.NewOutbox(outboxStore, directory)
	synchronizer := services.NewSynchronizer(
		sess, directory, subscriber,
		pingStore, friendStore, statsStore,
		outbox, dispatcher, clk, cfg.Ping.Cooldown,
	)
	friendService := services.NewFriendService(sess, directory, friendStore, outbox, clk)
	statsService := services.NewStatsService(sess, pingStore, statsStore, clk)
	accountService := services.NewAccountService(sess, directory, userStore, friendStore, kv, clk)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Startup reconciliation for an existing profile
	if sess.UserID() != "" {
		if err := accountService.EnsureFriendCode(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to ensure friend code")
		}
		if err := friendService.PruneDeleted(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to prune deleted accounts")
		}

		synchronizer.OnUnread(func(pings []models.Ping) {
			log.Debug().Int("unread", len(pings)).Msg("Unread set updated")
		})
		go func() {
			if err := synchronizer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("Synchronizer stopped")
			}
		}()
	} else {
		log.Info().Msg("No profile yet; waiting for setup through the API")
	}

	// Initialize handlers
	userHandler := handlers.NewUserHandler(accountService, sess)
	friendHandler := handlers.NewFriendHandler(friendService, synchronizer)
	pingHandler := handlers.NewPingHandler(synchronizer)
	statsHandler := handlers.NewStatsHandler(statsService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.API.Token))

		r.Get("/me", userHandler.Me)
		r.Post("/me", userHandler.Setup)
		r.Put("/me", userHandler.UpdateMe)
		r.Delete("/me", userHandler.DeleteMe)
		r.Get("/me/qr", userHandler.MyQR)

		r.Get("/friends", friendHandler.ListFriends)
		r.Post("/friends", friendHandler.AddFriend)
		r.Delete("/friends/{friend_id}", friendHandler.RemoveFriend)
		r.Put("/friends/order", friendHandler.ReorderFriends)
		r.Post("/friends/{friend_id}/read", friendHandler.MarkFriendRead)
		r.Get("/friends/{friend_id}/stats/today", statsHandler.TodayStats)
		r.Get("/friends/{friend_id}/stats/week", statsHandler.WeekStats)

		r.Post("/pings", pingHandler.SendPing)
		r.Get("/pings/unread", pingHandler.ListUnread)
		r.Post("/pings/{ping_id}/read", pingHandler.MarkRead)

		r.Get("/stats/totals", statsHandler.Totals)
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.API.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", cfg.API.Addr()).
			Msg("Starting loopback API")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("API failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	// Stop the subscription before the API so in-flight mirrors finish
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("API forced to shutdown")
	}

	log.Info().Msg("Engine exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

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
