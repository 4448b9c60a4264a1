package database

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"zoneroute/internal/models"
)

//go:embed seed.yaml
var defaultSeed []byte

// SeedData describes the roster, zones and generated clients a fresh store starts with.
type SeedData struct {
	Workers []string    `yaml:"workers"`
	Zones   []SeedZone  `yaml:"zones"`
	Clients SeedClients `yaml:"clients"`
}

type SeedZone struct {
	Name     string                 `yaml:"name"`
	Worker   string                 `yaml:"worker"`
	Geometry map[string]interface{} `yaml:"geometry"`
}

type SeedClients struct {
	Count     int     `yaml:"count"`
	Seed      int64   `yaml:"seed"`
	CenterLat float64 `yaml:"center_lat"`
	CenterLng float64 `yaml:"center_lng"`
	Spread    float64 `yaml:"spread"`
}

// LoadSeed reads a seed file, or the built-in demo data when path is empty.
func LoadSeed(path string) (*SeedData, error) {
	data := defaultSeed
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("seed: read %s: %w", path, err)
		}
	}
	return ParseSeed(data)
}

// ParseSeed decodes and validates seed YAML.
func ParseSeed(data []byte) (*SeedData, error) {
	var seed SeedData
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("seed: decode: %w", err)
	}
	if len(seed.Workers) == 0 {
		seed.Workers = append([]string(nil), models.DefaultWorkers...)
	}
	if len(seed.Zones) == 0 {
		return nil, fmt.Errorf("seed: at least one zone is required")
	}

	names := make(map[string]bool, len(seed.Zones))
	for _, z := range seed.Zones {
		if z.Name == "" {
			return nil, fmt.Errorf("seed: zone without a name")
		}
		if names[z.Name] {
			return nil, fmt.Errorf("seed: duplicate zone %q", z.Name)
		}
		names[z.Name] = true
		if w := normalizeWorker(z.Worker); w != nil && !models.IsKnownWorker(seed.Workers, *w) {
			return nil, fmt.Errorf("seed: zone %q assigned to unknown worker %q", z.Name, *w)
		}
	}
	if seed.Clients.Spread <= 0 {
		seed.Clients.Spread = 0.01
	}
	return &seed, nil
}

// normalizeWorker maps the legacy "Unassigned" marker and blanks to nil.
func normalizeWorker(w string) *string {
	w = strings.TrimSpace(w)
	if w == "" || strings.EqualFold(w, "unassigned") {
		return nil
	}
	return &w
}

// ZoneRecords converts the seed zones into models.
func (s *SeedData) ZoneRecords() ([]models.Zone, error) {
	zones := make([]models.Zone, 0, len(s.Zones))
	for _, z := range s.Zones {
		var geometry json.RawMessage
		if z.Geometry != nil {
			raw, err := json.Marshal(z.Geometry)
			if err != nil {
				return nil, fmt.Errorf("seed: encode geometry for %q: %w", z.Name, err)
			}
			geometry = raw
		}
		zones = append(zones, models.Zone{
			Name:     z.Name,
			Worker:   normalizeWorker(z.Worker),
			Geometry: geometry,
			Version:  1,
		})
	}
	return zones, nil
}

// ClientRecords generates the demo clients. Output is deterministic for a
// given seed. Clients fall into zones by longitude band, west to east.
func (s *SeedData) ClientRecords() []models.Client {
	cfg := s.Clients
	rng := rand.New(rand.NewSource(cfg.Seed))

	clients := make([]models.Client, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		trash := 1 + rng.Intn(2)
		recycle := 1 + rng.Intn(2)
		lat := cfg.CenterLat + (rng.Float64()*2-1)*cfg.Spread
		lngOffset := (rng.Float64()*2 - 1) * cfg.Spread
		lng := cfg.CenterLng + lngOffset

		band := int((lngOffset + cfg.Spread) / (2 * cfg.Spread) * float64(len(s.Zones)))
		if band >= len(s.Zones) {
			band = len(s.Zones) - 1
		}

		clients = append(clients, models.Client{
			ID:           i,
			Lat:          lat,
			Lng:          lng,
			Zone:         s.Zones[band].Name,
			TrashBins:    trash,
			RecycleBins:  recycle,
			Actions:      models.ActionsFor(trash, recycle),
			MonthlyCost:  models.MonthlyCostFor(trash, recycle),
			FirstService: true,
			Version:      1,
		})
	}
	return clients
}

// SeedPostgres loads the seed into an empty database.
func SeedPostgres(ctx context.Context, db *sqlx.DB, seed *SeedData) error {
	// Check if zones already exist
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM zones"); err != nil {
		return err
	}
	if count > 0 {
		log.Info().Msg("✓ Zones already seeded, skipping...")
		return nil
	}

	zones, err := seed.ZoneRecords()
	if err != nil {
		return err
	}
	clients := seed.ClientRecords()

	log.Info().Msgf("🌱 Seeding %d workers, %d zones, %d clients...", len(seed.Workers), len(zones), len(clients))

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, w := range seed.Workers {
		if _, err := tx.ExecContext(ctx, `INSERT INTO workers (name, position) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`, w, i); err != nil {
			return fmt.Errorf("failed to seed worker %q: %w", w, err)
		}
	}

	for _, z := range zones {
		geometry := []byte("null")
		if len(z.Geometry) > 0 {
			geometry = z.Geometry
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO zones (name, worker, geometry, version) VALUES ($1, $2, $3, 1)`,
			z.Name, z.Worker, string(geometry),
		); err != nil {
			return fmt.Errorf("failed to seed zone %q: %w", z.Name, err)
		}
	}

	query := `
		INSERT INTO clients (
			id, latitude, longitude, zone, trash_bins, recycle_bins, actions,
			monthly_cost, first_service, instructions, version
		) VALUES (
			:id, :latitude, :longitude, :zone, :trash_bins, :recycle_bins, :actions,
			:monthly_cost, :first_service, :instructions, 1
		)`
	for _, c := range clients {
		if _, err := tx.NamedExecContext(ctx, query, c); err != nil {
			return fmt.Errorf("failed to seed client %d: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}

	log.Info().Msgf("✓ Successfully seeded %d clients", len(clients))
	return nil
}
