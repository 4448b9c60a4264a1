package models

// Pricing constants for a monthly subscription
const (
	BaseSubscriptionPrice = 60.0 // 1 trash + 1 recycle
	ExtraBinPrice         = 20.0 // per additional bin
)

// Field names accepted by PUT /clients/{id}
const (
	FieldInstructions = "instructions"
	FieldPhotoURL     = "photoUrl"
)

// EditableClientFields is the closed set of fields either tool may change.
var EditableClientFields = []string{FieldInstructions, FieldPhotoURL}

// Client is a service location with its bins, billing and bin-location notes.
type Client struct {
	ID           int     `json:"id" db:"id"`
	Lat          float64 `json:"lat" db:"latitude"`
	Lng          float64 `json:"lng" db:"longitude"`
	Zone         string  `json:"zone" db:"zone"`
	TrashBins    int     `json:"trash_bins" db:"trash_bins"`
	RecycleBins  int     `json:"recycle_bins" db:"recycle_bins"`
	Actions      int     `json:"actions" db:"actions"`
	MonthlyCost  float64 `json:"monthly_cost" db:"monthly_cost"`
	FirstService bool    `json:"firstService" db:"first_service"`
	Instructions string  `json:"instructions" db:"instructions"`
	PhotoURL     *string `json:"photoUrl" db:"photo_url"`
	Version      int64   `json:"version" db:"version"`
	CreatedAt    int64   `json:"-" db:"created_at"`
	UpdatedAt    int64   `json:"-" db:"updated_at"`
}

// HasPhoto reports whether a bin-location photo is on file.
func (c *Client) HasPhoto() bool {
	return c.PhotoURL != nil && *c.PhotoURL != ""
}

// ActionsFor returns the number of photo actions a stop needs: one before and
// one after servicing each bin.
func ActionsFor(trashBins, recycleBins int) int {
	return trashBins*2 + recycleBins*2
}

// MonthlyCostFor prices a subscription by bin count.
func MonthlyCostFor(trashBins, recycleBins int) float64 {
	return BaseSubscriptionPrice +
		float64(trashBins-1)*ExtraBinPrice +
		float64(recycleBins-1)*ExtraBinPrice
}

// ClientPatch is a partial client update. Only editable fields are carried.
type ClientPatch struct {
	Instructions *string `json:"instructions,omitempty"`
	PhotoURL     *string `json:"photoUrl,omitempty"`
	Version      *int64  `json:"version,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ClientPatch) IsEmpty() bool {
	return p.Instructions == nil && p.PhotoURL == nil
}

// Apply copies the patched fields onto c.
func (p ClientPatch) Apply(c *Client) {
	if p.Instructions != nil {
		c.Instructions = *p.Instructions
	}
	if p.PhotoURL != nil {
		url := *p.PhotoURL
		c.PhotoURL = &url
	}
}

// PatchForField builds a single-field patch. ok is false for fields outside
// EditableClientFields.
func PatchForField(field, value string) (ClientPatch, bool) {
	switch field {
	case FieldInstructions:
		return ClientPatch{Instructions: &value}, true
	case FieldPhotoURL:
		return ClientPatch{PhotoURL: &value}, true
	}
	return ClientPatch{}, false
}

// UpdateClientResponse is returned by PUT /clients/{id}
type UpdateClientResponse struct {
	Status  string  `json:"status"`
	Client  *Client `json:"client,omitempty"`
	Message string  `json:"message,omitempty"`
}
