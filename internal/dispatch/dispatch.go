// Package dispatch sends every mutating command from the dashboards to the
// server and turns the outcome into a typed Result. Controllers only touch
// their local caches after a Result with StatusOK.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"zoneroute/internal/models"
)

// Status classifies the outcome of a command
type Status string

const (
	StatusOK             Status = "ok"
	StatusRejected       Status = "rejected"
	StatusConflict       Status = "conflict"
	StatusTransportError Status = "transport_error"
)

// ErrUnsupportedCommand is reported for command types the dispatcher does not know.
var ErrUnsupportedCommand = errors.New("dispatch: unsupported command")

// Backend is the subset of the API the dispatcher writes through.
type Backend interface {
	AssignZone(ctx context.Context, req models.AssignZoneRequest) (models.AssignZoneResponse, int, error)
	UpdateClient(ctx context.Context, clientID int, patch models.ClientPatch) (models.UpdateClientResponse, int, error)
	AppendPhoto(ctx context.Context, clientID int, req models.AppendPhotoRequest) (models.AppendPhotoResponse, int, error)
}

// Sender is what controllers depend on.
type Sender interface {
	Send(ctx context.Context, cmd Command) Result
}

// Command is a mutation bound for the server.
type Command interface {
	commandName() string
}

// AssignZone assigns a zone to a worker. Version is the zone version the
// caller last saw.
type AssignZone struct {
	Zone    string
	Worker  string
	Version int64
}

// UpdateClient applies a partial update to one client.
type UpdateClient struct {
	ClientID int
	Patch    models.ClientPatch
	Version  int64
}

// AppendPhoto appends a photo log entry for a client and makes it the
// client's current photo.
type AppendPhoto struct {
	ClientID int
	Worker   string
	Photo    models.TaskPhoto
	Version  int64
}

func (AssignZone) commandName() string   { return "assign_zone" }
func (UpdateClient) commandName() string { return "update_client" }
func (AppendPhoto) commandName() string  { return "append_photo" }

// Result is the typed outcome of Send.
type Result struct {
	Status  Status
	Code    int    // HTTP status, 0 on transport errors
	Seq     uint64 // client-side sequence number of the command
	Version int64  // entity version after the command, when OK
	Message string
	Err     error

	Client *models.Client   // UpdateClient
	Entry  *models.PhotoLog // AppendPhoto
}

// OK reports whether the server accepted the command.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Error renders a non-OK result as an error value.
func (r Result) Error() error {
	if r.OK() {
		return nil
	}
	if r.Err != nil {
		return fmt.Errorf("%s: %w", r.Status, r.Err)
	}
	if r.Message != "" {
		return fmt.Errorf("%s: %s", r.Status, r.Message)
	}
	return fmt.Errorf("%s (HTTP %d)", r.Status, r.Code)
}

// Dispatcher is the single write path to the server.
type Dispatcher struct {
	backend Backend
	timeout time.Duration
	seq     atomic.Uint64
}

// New creates a dispatcher. timeout bounds each command; zero disables the bound.
func New(backend Backend, timeout time.Duration) *Dispatcher {
	return &Dispatcher{backend: backend, timeout: timeout}
}

// Send issues cmd and classifies the outcome.
func (d *Dispatcher) Send(ctx context.Context, cmd Command) Result {
	seq := d.seq.Add(1)
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	var res Result
	switch c := cmd.(type) {
	case AssignZone:
		res = d.assignZone(ctx, c)
	case UpdateClient:
		res = d.updateClient(ctx, c)
	case AppendPhoto:
		res = d.appendPhoto(ctx, c)
	default:
		res = Result{Status: StatusRejected, Err: fmt.Errorf("%w: %T", ErrUnsupportedCommand, cmd)}
	}
	res.Seq = seq

	if res.OK() {
		log.Debug().Uint64("seq", seq).Str("command", cmd.commandName()).Int64("version", res.Version).Msg("✅ Command accepted")
	} else {
		log.Warn().Uint64("seq", seq).Str("command", cmd.commandName()).Str("status", string(res.Status)).
			Int("code", res.Code).Err(res.Error()).Msg("⚠️  Command not applied")
	}
	return res
}

func (d *Dispatcher) assignZone(ctx context.Context, c AssignZone) Result {
	resp, code, err := d.backend.AssignZone(ctx, models.AssignZoneRequest{
		Zone:    c.Zone,
		Worker:  c.Worker,
		Version: expectVersion(c.Version),
	})
	res := classify(code, resp.Status, err)
	res.Message = resp.Message
	if res.OK() {
		res.Version = resp.Version
	}
	return res
}

func (d *Dispatcher) updateClient(ctx context.Context, c UpdateClient) Result {
	patch := c.Patch
	patch.Version = expectVersion(c.Version)
	resp, code, err := d.backend.UpdateClient(ctx, c.ClientID, patch)
	res := classify(code, resp.Status, err)
	res.Message = resp.Message
	if res.OK() {
		if resp.Client == nil {
			res.Status = StatusRejected
			res.Message = "server acknowledged update without client"
			return res
		}
		res.Client = resp.Client
		res.Version = resp.Client.Version
	}
	return res
}

func (d *Dispatcher) appendPhoto(ctx context.Context, c AppendPhoto) Result {
	resp, code, err := d.backend.AppendPhoto(ctx, c.ClientID, models.AppendPhotoRequest{
		Timestamp: c.Photo.Timestamp,
		URL:       c.Photo.URL,
		Worker:    c.Worker,
		Version:   expectVersion(c.Version),
	})
	res := classify(code, resp.Status, err)
	res.Message = resp.Message
	if res.OK() {
		res.Entry = resp.Entry
		res.Version = resp.Version
	}
	return res
}

// expectVersion turns a zero version (never loaded) into "no precondition".
func expectVersion(v int64) *int64 {
	if v <= 0 {
		return nil
	}
	return &v
}

func classify(code int, status string, err error) Result {
	switch {
	case err != nil && code == 0:
		return Result{Status: StatusTransportError, Err: err}
	case err != nil:
		return Result{Status: StatusTransportError, Code: code, Err: err}
	case code == http.StatusConflict:
		return Result{Status: StatusConflict, Code: code}
	case code >= 200 && code <= 299 && status == "ok":
		return Result{Status: StatusOK, Code: code}
	default:
		return Result{Status: StatusRejected, Code: code}
	}
}
