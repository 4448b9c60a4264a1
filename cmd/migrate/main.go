package main

import (
	"context"
	"flag"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"zoneroute/internal/config"
	"zoneroute/internal/database"
)

// Applies the schema and loads seed data into an empty database.
func main() {
	skipSeed := flag.Bool("no-seed", false, "apply migrations only")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger := cfg.SetupLogging("zoneroute-migrate", nil)

	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL environment variable not set")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("Migration failed")
	}
	logger.Info().Msg("Migration completed successfully!")

	if *skipSeed {
		return
	}

	seed, err := database.LoadSeed(cfg.SeedFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load seed data")
	}
	if err := database.SeedPostgres(context.Background(), db, seed); err != nil {
		logger.Fatal().Err(err).Msg("Seeding failed")
	}

	var summary struct {
		Zones    int `db:"zones"`
		Assigned int `db:"assigned"`
		Clients  int `db:"clients"`
	}
	query := `
		SELECT
			(SELECT COUNT(*) FROM zones) AS zones,
			(SELECT COUNT(*) FROM zones WHERE worker IS NOT NULL) AS assigned,
			(SELECT COUNT(*) FROM clients) AS clients`
	if err := db.Get(&summary, query); err != nil {
		logger.Fatal().Err(err).Msg("Failed to query summary")
	}

	logger.Info().
		Int("zones", summary.Zones).
		Int("assigned", summary.Assigned).
		Int("clients", summary.Clients).
		Msg("📊 Database summary")
}
