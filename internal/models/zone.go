package models

import "encoding/json"

// DefaultWorkers is the worker roster used when the seed file does not name one.
var DefaultWorkers = []string{"Worker 1", "Worker 2"}

// Zone is a named service polygon assignable to at most one worker.
type Zone struct {
	Name     string          `json:"name" db:"name"`
	Worker   *string         `json:"worker" db:"worker"`
	Geometry json.RawMessage `json:"geometry,omitempty" db:"geometry"`
	Version  int64           `json:"version" db:"version"`
}

// ZoneResponse is the value side of the GET /zones mapping
type ZoneResponse struct {
	Worker   *string         `json:"worker"`
	Geometry json.RawMessage `json:"geometry,omitempty"`
	Version  int64           `json:"version"`
}

func (z *Zone) ToZoneResponse() ZoneResponse {
	return ZoneResponse{
		Worker:   z.Worker,
		Geometry: z.Geometry,
		Version:  z.Version,
	}
}

// AssignedTo reports whether the zone is currently held by worker.
func (z *Zone) AssignedTo(worker string) bool {
	return z.Worker != nil && *z.Worker == worker
}

// ZonesFromResponse rebuilds zones from the GET /zones mapping.
func ZonesFromResponse(m map[string]ZoneResponse) []Zone {
	zones := make([]Zone, 0, len(m))
	for name, info := range m {
		zones = append(zones, Zone{
			Name:     name,
			Worker:   info.Worker,
			Geometry: info.Geometry,
			Version:  info.Version,
		})
	}
	return zones
}

// AssignZoneRequest is the request body for POST /assign
type AssignZoneRequest struct {
	Zone    string `json:"zone" validate:"required"`
	Worker  string `json:"worker" validate:"required,worker"`
	Version *int64 `json:"version,omitempty"`
}

// AssignZoneResponse is returned by POST /assign
type AssignZoneResponse struct {
	Status  string `json:"status"`
	Zone    string `json:"zone,omitempty"`
	Worker  string `json:"worker,omitempty"`
	Version int64  `json:"version,omitempty"`
	Message string `json:"message,omitempty"`
}

// IsKnownWorker reports whether worker is a member of roster.
func IsKnownWorker(roster []string, worker string) bool {
	for _, w := range roster {
		if w == worker {
			return true
		}
	}
	return false
}
