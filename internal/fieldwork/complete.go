package fieldwork

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"zoneroute/internal/dispatch"
	"zoneroute/internal/models"
	"zoneroute/internal/photo"
)

// Completer is the task completion controller.
type Completer struct {
	ledger  *Ledger
	sender  dispatch.Sender
	encoder *photo.Encoder
	now     func() time.Time
}

func NewCompleter(ledger *Ledger, sender dispatch.Sender, encoder *photo.Encoder) *Completer {
	if encoder == nil {
		encoder = photo.NewEncoder(photo.DefaultMaxBytes)
	}
	return &Completer{ledger: ledger, sender: sender, encoder: encoder, now: time.Now}
}

// CompleteAction logs a photo for one action at the task's stop. Nothing is
// sent when the index is invalid or no actions remain. The ledger changes
// only after the server has stored the photo.
func (c *Completer) CompleteAction(ctx context.Context, index int, r io.Reader) (dispatch.Result, error) {
	clientID, version, err := c.ledger.pending(index)
	if err != nil {
		return dispatch.Result{}, err
	}

	uri, err := c.encoder.Encode(r)
	if err != nil {
		return dispatch.Result{}, err
	}

	entry := models.TaskPhoto{
		Timestamp: c.now().UTC().Format(time.RFC3339),
		URL:       uri,
	}

	res := c.send(ctx, clientID, entry, version)
	if res.Status == dispatch.StatusConflict {
		// the client changed since the route was read; appends retry once
		// against the current version
		current, ok := c.ledger.refreshVersion(ctx, index, clientID)
		if ok && current != version {
			log.Debug().Int("client_id", clientID).Int64("version", current).Msg("🔄 Retrying photo with refreshed version")
			res = c.send(ctx, clientID, entry, current)
		}
	}
	if !res.OK() {
		return res, nil
	}

	if err := c.ledger.record(index, clientID, entry, res.Version); err != nil {
		return res, err
	}
	log.Info().Int("client_id", clientID).Int("task", index).Msg("📸 Action completed")
	return res, nil
}

func (c *Completer) send(ctx context.Context, clientID int, entry models.TaskPhoto, version int64) dispatch.Result {
	return c.sender.Send(ctx, dispatch.AppendPhoto{
		ClientID: clientID,
		Worker:   c.ledger.Worker(),
		Photo:    entry,
		Version:  version,
	})
}
