package models

// Event types pushed over /ws
const (
	EventZoneAssigned  = "zone_assigned"
	EventClientUpdated = "client_updated"
	EventPhotoLogged   = "photo_logged"
)

// Event is the envelope broadcast to connected dashboards.
type Event struct {
	Type           string    `json:"type"`
	Zone           *Zone     `json:"zone,omitempty"`
	PreviousWorker *string   `json:"previous_worker,omitempty"`
	Client         *Client   `json:"client,omitempty"`
	Photo          *PhotoLog `json:"photo,omitempty"`
}
