package admin

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"zoneroute/internal/dispatch"
	"zoneroute/internal/models"
	"zoneroute/internal/photo"
)

var (
	ErrUnknownClient    = errors.New("admin: unknown client")
	ErrFieldNotEditable = errors.New("admin: field is not editable")
	ErrPhotoAlreadySet  = errors.New("admin: client already has a photo")
)

// FieldEditor changes the editable fields of a client.
type FieldEditor struct {
	clients *ClientDirectory
	sender  dispatch.Sender
	encoder *photo.Encoder
}

func NewFieldEditor(clients *ClientDirectory, sender dispatch.Sender, encoder *photo.Encoder) *FieldEditor {
	if encoder == nil {
		encoder = photo.NewEncoder(photo.DefaultMaxBytes)
	}
	return &FieldEditor{clients: clients, sender: sender, encoder: encoder}
}

// UpdateClientField sets one editable field. A photoUrl value must be an
// encoded image and may only fill an empty photo slot. The directory is only
// updated from the server's acknowledged record.
func (e *FieldEditor) UpdateClientField(ctx context.Context, id int, field, value string) (dispatch.Result, error) {
	client, ok := e.clients.Get(id)
	if !ok {
		return dispatch.Result{}, fmt.Errorf("%w: %d", ErrUnknownClient, id)
	}
	if field == models.FieldPhotoURL {
		if client.HasPhoto() {
			return dispatch.Result{}, fmt.Errorf("%w: %d", ErrPhotoAlreadySet, id)
		}
		if err := e.encoder.CheckDataURI(value); err != nil {
			return dispatch.Result{}, err
		}
	}
	return e.send(ctx, client, field, value)
}

// UploadPhoto encodes the image read from r and stores it as the client's
// bin-location photo. A photo already on file is never replaced from here.
func (e *FieldEditor) UploadPhoto(ctx context.Context, id int, r io.Reader) (dispatch.Result, error) {
	client, ok := e.clients.Get(id)
	if !ok {
		return dispatch.Result{}, fmt.Errorf("%w: %d", ErrUnknownClient, id)
	}
	if client.HasPhoto() {
		return dispatch.Result{}, fmt.Errorf("%w: %d", ErrPhotoAlreadySet, id)
	}

	uri, err := e.encoder.Encode(r)
	if err != nil {
		return dispatch.Result{}, err
	}
	return e.send(ctx, client, models.FieldPhotoURL, uri)
}

func (e *FieldEditor) send(ctx context.Context, client models.Client, field, value string) (dispatch.Result, error) {
	patch, ok := models.PatchForField(field, value)
	if !ok {
		return dispatch.Result{}, fmt.Errorf("%w: %q", ErrFieldNotEditable, field)
	}

	res := e.sender.Send(ctx, dispatch.UpdateClient{
		ClientID: client.ID,
		Patch:    patch,
		Version:  client.Version,
	})
	if !res.OK() {
		return res, nil
	}

	e.clients.Apply(*res.Client)
	log.Info().Int("client_id", client.ID).Str("field", field).Msg("📝 Client updated")
	return res, nil
}
