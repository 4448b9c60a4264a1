package models

import "time"

// PhotoLog is one photo captured at a client stop. Entries are append-only.
type PhotoLog struct {
	ID        string `json:"id" db:"id"`
	ClientID  int    `json:"clientId" db:"client_id"`
	Worker    string `json:"worker,omitempty" db:"worker"`
	Timestamp string `json:"timestamp" db:"timestamp"`
	URL       string `json:"url" db:"url"`
	Seq       int64  `json:"-" db:"seq"`
}

// Time parses the RFC3339 timestamp.
func (p *PhotoLog) Time() (time.Time, error) {
	return time.Parse(time.RFC3339, p.Timestamp)
}

// AppendPhotoRequest is the request body for POST /clients/{id}/photos
type AppendPhotoRequest struct {
	Timestamp string `json:"timestamp" validate:"required"`
	URL       string `json:"url" validate:"required"`
	Worker    string `json:"worker,omitempty" validate:"omitempty,worker"`
	Version   *int64 `json:"version,omitempty"`
}

// AppendPhotoResponse is returned by POST /clients/{id}/photos
type AppendPhotoResponse struct {
	Status  string    `json:"status"`
	Entry   *PhotoLog `json:"entry,omitempty"`
	Version int64     `json:"version,omitempty"`
	Message string    `json:"message,omitempty"`
}

// DeviceToken is a push notification token registered for a worker
type DeviceToken struct {
	ID         int    `json:"id" db:"id"`
	Worker     string `json:"worker" db:"worker"`
	Token      string `json:"token" db:"token"`
	DeviceType string `json:"device_type" db:"device_type"` // "ios" or "android"
	CreatedAt  int64  `json:"created_at" db:"created_at"`
	UpdatedAt  int64  `json:"updated_at" db:"updated_at"`
}

// RegisterDeviceTokenRequest is the request body for POST /workers/{id}/device-tokens
type RegisterDeviceTokenRequest struct {
	Token      string `json:"token" validate:"required"`
	DeviceType string `json:"device_type" validate:"required,oneof=ios android"`
}
