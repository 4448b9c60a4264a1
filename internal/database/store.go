package database

import (
	"context"
	"errors"

	"zoneroute/internal/models"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")
	ErrInvalidField    = errors.New("invalid field")
	ErrUnknownWorker   = errors.New("unknown worker")
)

// Store is the durable backing store behind the HTTP API. Implementations
// must apply version checks and the mutation atomically.
type Store interface {
	Workers(ctx context.Context) ([]string, error)

	Zones(ctx context.Context) ([]models.Zone, error)
	// AssignZone sets the zone's worker and returns the zone together with
	// the worker it replaced, read in the same atomic step. A non-nil expected
	// version must match the stored one or ErrVersionConflict is returned.
	AssignZone(ctx context.Context, name, worker string, expected *int64) (zone *models.Zone, previous *string, err error)

	Clients(ctx context.Context) ([]models.Client, error)
	GetClient(ctx context.Context, id int) (*models.Client, error)
	// UpdateClient applies a partial update and clears firstService.
	UpdateClient(ctx context.Context, id int, patch models.ClientPatch) (*models.Client, error)
	// RouteClients returns the clients in zones assigned to worker, by id.
	RouteClients(ctx context.Context, worker string) ([]models.Client, error)

	PhotoLogs(ctx context.Context, clientID int) ([]models.PhotoLog, error)
	// AppendPhotoLog stores entry and makes its URL the client's photo.
	AppendPhotoLog(ctx context.Context, entry models.PhotoLog, expected *int64) (*models.PhotoLog, *models.Client, error)

	SaveDeviceToken(ctx context.Context, token models.DeviceToken) error
	DeviceTokens(ctx context.Context, worker string) ([]string, error)

	Close() error
}
