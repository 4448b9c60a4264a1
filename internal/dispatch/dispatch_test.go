package dispatch

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"zoneroute/internal/models"
)

type fakeBackend struct {
	assignResp models.AssignZoneResponse
	updateResp models.UpdateClientResponse
	photoResp  models.AppendPhotoResponse
	code       int
	err        error

	lastAssign models.AssignZoneRequest
	lastPatch  models.ClientPatch
	lastPhoto  models.AppendPhotoRequest
}

func (f *fakeBackend) AssignZone(ctx context.Context, req models.AssignZoneRequest) (models.AssignZoneResponse, int, error) {
	f.lastAssign = req
	return f.assignResp, f.code, f.err
}

func (f *fakeBackend) UpdateClient(ctx context.Context, id int, patch models.ClientPatch) (models.UpdateClientResponse, int, error) {
	f.lastPatch = patch
	return f.updateResp, f.code, f.err
}

func (f *fakeBackend) AppendPhoto(ctx context.Context, id int, req models.AppendPhotoRequest) (models.AppendPhotoResponse, int, error) {
	f.lastPhoto = req
	return f.photoResp, f.code, f.err
}

func TestSendAssignOK(t *testing.T) {
	backend := &fakeBackend{
		assignResp: models.AssignZoneResponse{Status: "ok", Zone: "A", Worker: "Worker 2", Version: 4},
		code:       http.StatusOK,
	}
	d := New(backend, 0)

	res := d.Send(context.Background(), AssignZone{Zone: "A", Worker: "Worker 2", Version: 3})
	if !res.OK() {
		t.Fatalf("expected ok, got %s (%v)", res.Status, res.Error())
	}
	if res.Version != 4 {
		t.Fatalf("expected version 4, got %d", res.Version)
	}
	if backend.lastAssign.Version == nil || *backend.lastAssign.Version != 3 {
		t.Fatalf("expected version precondition 3 to be sent")
	}
}

func TestSendOmitsZeroVersion(t *testing.T) {
	backend := &fakeBackend{
		assignResp: models.AssignZoneResponse{Status: "ok", Version: 1},
		code:       http.StatusOK,
	}
	New(backend, 0).Send(context.Background(), AssignZone{Zone: "A", Worker: "Worker 1"})
	if backend.lastAssign.Version != nil {
		t.Fatalf("expected no version precondition, got %d", *backend.lastAssign.Version)
	}
}

func TestSendClassifiesNonOKStatusAsRejected(t *testing.T) {
	backend := &fakeBackend{
		assignResp: models.AssignZoneResponse{Status: "error", Message: "Zone not found"},
		code:       http.StatusNotFound,
	}
	res := New(backend, 0).Send(context.Background(), AssignZone{Zone: "Z", Worker: "Worker 1"})
	if res.Status != StatusRejected {
		t.Fatalf("expected rejected, got %s", res.Status)
	}
	if res.Message != "Zone not found" {
		t.Fatalf("expected server message, got %q", res.Message)
	}

	backend.assignResp = models.AssignZoneResponse{Status: "busy"}
	backend.code = http.StatusOK
	res = New(backend, 0).Send(context.Background(), AssignZone{Zone: "Z", Worker: "Worker 1"})
	if res.Status != StatusRejected {
		t.Fatalf("2xx without status ok must be rejected, got %s", res.Status)
	}
}

func TestSendClassifiesConflict(t *testing.T) {
	backend := &fakeBackend{
		updateResp: models.UpdateClientResponse{Status: "conflict"},
		code:       http.StatusConflict,
	}
	res := New(backend, 0).Send(context.Background(), UpdateClient{ClientID: 1, Version: 2})
	if res.Status != StatusConflict {
		t.Fatalf("expected conflict, got %s", res.Status)
	}
	if res.Error() == nil {
		t.Fatalf("conflict result must render an error")
	}
}

func TestSendClassifiesTransportError(t *testing.T) {
	backend := &fakeBackend{err: errors.New("connection refused")}
	res := New(backend, 0).Send(context.Background(), AppendPhoto{ClientID: 1})
	if res.Status != StatusTransportError {
		t.Fatalf("expected transport error, got %s", res.Status)
	}
	if res.Code != 0 {
		t.Fatalf("expected no HTTP code, got %d", res.Code)
	}
}

func TestSendUpdateRequiresClientInAck(t *testing.T) {
	backend := &fakeBackend{
		updateResp: models.UpdateClientResponse{Status: "ok"},
		code:       http.StatusOK,
	}
	res := New(backend, 0).Send(context.Background(), UpdateClient{ClientID: 1})
	if res.Status != StatusRejected {
		t.Fatalf("expected rejected without client payload, got %s", res.Status)
	}
}

func TestSendAssignsIncreasingSequence(t *testing.T) {
	backend := &fakeBackend{assignResp: models.AssignZoneResponse{Status: "ok"}, code: http.StatusOK}
	d := New(backend, 0)
	first := d.Send(context.Background(), AssignZone{Zone: "A", Worker: "Worker 1"})
	second := d.Send(context.Background(), AssignZone{Zone: "A", Worker: "Worker 2"})
	if second.Seq <= first.Seq {
		t.Fatalf("expected increasing sequence, got %d then %d", first.Seq, second.Seq)
	}
}
