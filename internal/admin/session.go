package admin

import (
	"context"
	"fmt"

	"zoneroute/internal/dispatch"
	"zoneroute/internal/models"
	"zoneroute/internal/photo"
)

// Source is everything the admin dashboard reads from the server.
type Source interface {
	ZoneSource
	ClientSource
	Workers(ctx context.Context) ([]string, error)
}

// Session is the admin dashboard's state container.
type Session struct {
	Zones    *ZoneRegistry
	Clients  *ClientDirectory
	Assigner *Assigner
	Editor   *FieldEditor

	source Source
}

func NewSession(source Source, sender dispatch.Sender, encoder *photo.Encoder) *Session {
	zones := NewZoneRegistry(source)
	clients := NewClientDirectory(source)
	return &Session{
		Zones:    zones,
		Clients:  clients,
		Assigner: NewAssigner(zones, sender, nil),
		Editor:   NewFieldEditor(clients, sender, encoder),
		source:   source,
	}
}

// Load fetches the worker roster, zones and clients.
func (s *Session) Load(ctx context.Context) error {
	workers, err := s.source.Workers(ctx)
	if err != nil {
		return fmt.Errorf("admin: load workers: %w", err)
	}
	s.Assigner.SetWorkers(workers)

	if err := s.Zones.Load(ctx); err != nil {
		return err
	}
	return s.Clients.Load(ctx)
}

// ApplyEvent feeds a live event into the caches. It reports whether anything changed.
func (s *Session) ApplyEvent(ev models.Event) bool {
	switch ev.Type {
	case models.EventZoneAssigned:
		if ev.Zone != nil {
			return s.Zones.Apply(*ev.Zone)
		}
	case models.EventClientUpdated:
		if ev.Client != nil {
			return s.Clients.Apply(*ev.Client)
		}
	case models.EventPhotoLogged:
		if ev.Client != nil {
			return s.Clients.Apply(*ev.Client)
		}
	}
	return false
}
