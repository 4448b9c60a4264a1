package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"zoneroute/internal/models"
)

const (
	zoneColumns   = `name, worker, geometry, version`
	clientColumns = `id, latitude, longitude, zone, trash_bins, recycle_bins, actions,
		monthly_cost, first_service, instructions, photo_url, version, created_at, updated_at`
	photoColumns = `seq, id, client_id, worker, timestamp, url`
)

// PostgresStore implements Store over sqlx and lib/pq.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// DB exposes the underlying handle for migrations and seeding.
func (s *PostgresStore) DB() *sqlx.DB {
	return s.db
}

func (s *PostgresStore) Workers(ctx context.Context) ([]string, error) {
	var workers []string
	if err := s.db.SelectContext(ctx, &workers, `SELECT name FROM workers ORDER BY position, name`); err != nil {
		return nil, fmt.Errorf("failed to query workers: %w", err)
	}
	return workers, nil
}

func (s *PostgresStore) Zones(ctx context.Context) ([]models.Zone, error) {
	var zones []models.Zone
	query := `SELECT ` + zoneColumns + ` FROM zones ORDER BY name`
	if err := s.db.SelectContext(ctx, &zones, query); err != nil {
		return nil, fmt.Errorf("failed to query zones: %w", err)
	}
	return zones, nil
}

func (s *PostgresStore) AssignZone(ctx context.Context, name, worker string, expected *int64) (*models.Zone, *string, error) {
	var row struct {
		models.Zone
		Previous *string `db:"previous_worker"`
	}
	// The locked sub-select reads the worker being replaced from the same
	// row version the update applies to.
	query := `
		UPDATE zones z
		SET worker = $1,
		    version = z.version + 1,
		    updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
		FROM (SELECT name, worker FROM zones WHERE name = $2 FOR UPDATE) old
		WHERE z.name = old.name
		  AND ($3::BIGINT IS NULL OR z.version = $3)
		RETURNING z.name, z.worker, z.geometry, z.version, old.worker AS previous_worker`

	err := s.db.GetContext(ctx, &row, query, worker, name, expected)
	if err == nil {
		return &row.Zone, row.Previous, nil
	}
	if isForeignKeyViolation(err) {
		return nil, nil, ErrUnknownWorker
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("failed to assign zone: %w", err)
	}

	// No row updated: either the zone is missing or the version was stale
	return nil, nil, s.missingOrConflict(ctx, `SELECT EXISTS(SELECT 1 FROM zones WHERE name = $1)`, name)
}

func (s *PostgresStore) Clients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	query := `SELECT ` + clientColumns + ` FROM clients ORDER BY id`
	if err := s.db.SelectContext(ctx, &clients, query); err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	return clients, nil
}

func (s *PostgresStore) GetClient(ctx context.Context, id int) (*models.Client, error) {
	var client models.Client
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	if err := s.db.GetContext(ctx, &client, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query client: %w", err)
	}
	return &client, nil
}

func (s *PostgresStore) UpdateClient(ctx context.Context, id int, patch models.ClientPatch) (*models.Client, error) {
	if patch.IsEmpty() {
		return nil, ErrInvalidField
	}

	var client models.Client
	query := `
		UPDATE clients
		SET instructions = COALESCE($1, instructions),
		    photo_url = COALESCE($2, photo_url),
		    first_service = FALSE,
		    version = version + 1,
		    updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE id = $3
		  AND ($4::BIGINT IS NULL OR version = $4)
		RETURNING ` + clientColumns

	err := s.db.GetContext(ctx, &client, query, patch.Instructions, patch.PhotoURL, id, patch.Version)
	if err == nil {
		return &client, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to update client: %w", err)
	}
	return nil, s.missingOrConflict(ctx, `SELECT EXISTS(SELECT 1 FROM clients WHERE id = $1)`, id)
}

func (s *PostgresStore) RouteClients(ctx context.Context, worker string) ([]models.Client, error) {
	clients := []models.Client{}
	query := `
		SELECT c.id, c.latitude, c.longitude, c.zone, c.trash_bins, c.recycle_bins, c.actions,
		       c.monthly_cost, c.first_service, c.instructions, c.photo_url, c.version,
		       c.created_at, c.updated_at
		FROM clients c
		JOIN zones z ON z.name = c.zone
		WHERE z.worker = $1
		ORDER BY c.id`
	if err := s.db.SelectContext(ctx, &clients, query, worker); err != nil {
		return nil, fmt.Errorf("failed to query route: %w", err)
	}
	return clients, nil
}

func (s *PostgresStore) PhotoLogs(ctx context.Context, clientID int) ([]models.PhotoLog, error) {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM clients WHERE id = $1)`, clientID); err != nil {
		return nil, fmt.Errorf("failed to query client: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	logs := []models.PhotoLog{}
	query := `SELECT ` + photoColumns + ` FROM photo_logs WHERE client_id = $1 ORDER BY seq`
	if err := s.db.SelectContext(ctx, &logs, query, clientID); err != nil {
		return nil, fmt.Errorf("failed to query photo logs: %w", err)
	}
	return logs, nil
}

func (s *PostgresStore) AppendPhotoLog(ctx context.Context, entry models.PhotoLog, expected *int64) (*models.PhotoLog, *models.Client, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var client models.Client
	err = tx.GetContext(ctx, &client, `
		UPDATE clients
		SET photo_url = $1,
		    version = version + 1,
		    updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE id = $2
		  AND ($3::BIGINT IS NULL OR version = $3)
		RETURNING `+clientColumns,
		entry.URL, entry.ClientID, expected)
	if errors.Is(err, sql.ErrNoRows) {
		tx.Rollback()
		return nil, nil, s.missingOrConflict(ctx, `SELECT EXISTS(SELECT 1 FROM clients WHERE id = $1)`, entry.ClientID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update client photo: %w", err)
	}

	var saved models.PhotoLog
	err = tx.GetContext(ctx, &saved, `
		INSERT INTO photo_logs (id, client_id, worker, timestamp, url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+photoColumns,
		entry.ID, entry.ClientID, entry.Worker, entry.Timestamp, entry.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert photo log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit photo log: %w", err)
	}
	return &saved, &client, nil
}

func (s *PostgresStore) SaveDeviceToken(ctx context.Context, token models.DeviceToken) error {
	query := `
		INSERT INTO device_tokens (worker, token, device_type, created_at, updated_at)
		VALUES ($1, $2, $3, EXTRACT(EPOCH FROM NOW())::BIGINT, EXTRACT(EPOCH FROM NOW())::BIGINT)
		ON CONFLICT (token) DO UPDATE
		SET worker = EXCLUDED.worker,
		    device_type = EXCLUDED.device_type,
		    updated_at = EXCLUDED.updated_at`
	if _, err := s.db.ExecContext(ctx, query, token.Worker, token.Token, token.DeviceType); err != nil {
		if isForeignKeyViolation(err) {
			return ErrUnknownWorker
		}
		return fmt.Errorf("failed to save device token: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeviceTokens(ctx context.Context, worker string) ([]string, error) {
	var tokens []string
	query := `SELECT token FROM device_tokens WHERE worker = $1 ORDER BY token`
	if err := s.db.SelectContext(ctx, &tokens, query, worker); err != nil {
		return nil, fmt.Errorf("failed to query device tokens: %w", err)
	}
	return tokens, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// missingOrConflict decides why a guarded UPDATE touched no rows.
func (s *PostgresStore) missingOrConflict(ctx context.Context, existsQuery string, arg interface{}) error {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, existsQuery, arg); err != nil {
		return fmt.Errorf("failed to check existence: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
