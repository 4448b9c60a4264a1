package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

func Connect(dbURL string) (*sqlx.DB, error) {
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msg("🔌 DATABASE CONNECTION ATTEMPT")
	log.Info().Msgf("   📍 Database URL length: %d characters", len(dbURL))
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Error().Err(err).Msgf("❌ DATABASE CONNECTION FAILED AT sqlx.Connect() (%T)", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		log.Error().Err(err).Msgf("❌ DATABASE CONNECTION FAILED AT Ping() (%T)", err)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("✅ DATABASE CONNECTION SUCCESSFUL")
	return db, nil
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		// Fixed worker roster
		`CREATE TABLE IF NOT EXISTS workers (
			name TEXT PRIMARY KEY,
			position INT NOT NULL DEFAULT 0
		)`,

		// Zones; worker NULL means unassigned
		`CREATE TABLE IF NOT EXISTS zones (
			name TEXT PRIMARY KEY,
			worker TEXT,
			geometry JSONB NOT NULL DEFAULT 'null'::jsonb,
			version BIGINT NOT NULL DEFAULT 1,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (worker) REFERENCES workers(name) ON DELETE SET NULL
		)`,

		`CREATE TABLE IF NOT EXISTS clients (
			id INT PRIMARY KEY,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			zone TEXT NOT NULL,
			trash_bins INT NOT NULL DEFAULT 1,
			recycle_bins INT NOT NULL DEFAULT 1,
			actions INT NOT NULL,
			monthly_cost DOUBLE PRECISION NOT NULL,
			first_service BOOLEAN NOT NULL DEFAULT TRUE,
			instructions TEXT NOT NULL DEFAULT '',
			photo_url TEXT,
			version BIGINT NOT NULL DEFAULT 1,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (zone) REFERENCES zones(name),
			CHECK (trash_bins >= 0),
			CHECK (recycle_bins >= 0),
			CHECK (actions >= 0)
		)`,

		// Append-only photo history; seq gives insertion order
		`CREATE TABLE IF NOT EXISTS photo_logs (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			client_id INT NOT NULL,
			worker TEXT NOT NULL DEFAULT '',
			timestamp TEXT NOT NULL,
			url TEXT NOT NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (client_id) REFERENCES clients(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS device_tokens (
			id SERIAL PRIMARY KEY,
			worker TEXT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			device_type TEXT NOT NULL CHECK(device_type IN ('ios', 'android')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (worker) REFERENCES workers(name) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_zones_worker ON zones(worker)`,
		`CREATE INDEX IF NOT EXISTS idx_clients_zone ON clients(zone)`,
		`CREATE INDEX IF NOT EXISTS idx_photo_logs_client_seq ON photo_logs(client_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_device_tokens_worker ON device_tokens(worker)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			log.Error().Err(err).Msgf("❌ Migration %d failed", i+1)
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
