package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"zoneroute/internal/config"
	"zoneroute/internal/database"
	"zoneroute/internal/handlers"
	"zoneroute/internal/services"
	"zoneroute/internal/websocket"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger := cfg.SetupLogging("zoneroute", nil)

	logger.Info().Msg("═══════════════════════════════════════════════════════════════════")
	logger.Info().Msg("🚀 ZONEROUTE SERVER STARTING")
	logger.Info().Msg("═══════════════════════════════════════════════════════════════════")
	if envErr != nil {
		logger.Info().Msg("⚠️  .env file not found, using environment variables from system")
	}

	seed, err := database.LoadSeed(cfg.SeedFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("❌ FATAL ERROR: failed to load seed data")
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg, seed)
	if err != nil {
		logger.Fatal().Err(err).Str("store", cfg.Store).Msg("❌ FATAL ERROR: store initialization failed")
	}
	defer store.Close()

	notifier := services.NewNotifier(ctx, cfg.FirebaseCredsFile, cfg.FirebaseCredsB64)

	hub := websocket.NewHub()
	go hub.Run()
	logger.Info().Msg("✅ WebSocket hub started")

	router := handlers.NewRouter(handlers.RouterConfig{
		Store:          store,
		Hub:            hub,
		Notifier:       notifier,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins(),
		MaxPhotoBytes:  cfg.MaxPhotoBytes(),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("store", cfg.Store).Msg("🌐 Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("🛑 Server stopped")
}

func openStore(ctx context.Context, cfg config.Config, seed *database.SeedData) (database.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		log.Info().Msg("🧪 Using in-memory store (data is lost on restart)")
		return database.NewMemoryStore(seed)

	case config.StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL environment variable is required for the postgres store")
		}
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}

		log.Info().Msg("🔄 Running database migrations...")
		if err := database.Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
		log.Info().Msg("✅ Database migrations completed")

		if err := database.SeedPostgres(ctx, db, seed); err != nil {
			db.Close()
			return nil, err
		}
		return database.NewPostgresStore(db), nil
	}
	return nil, errors.New("unknown STORE " + cfg.Store + " (expected postgres or memory)")
}
