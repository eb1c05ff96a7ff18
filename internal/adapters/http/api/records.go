package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/rollcall/internal/domain/model"
)

// RecordDependencies defines single-record operations.
type RecordDependencies interface {
	CreateRecord(ctx context.Context, rec model.AttendanceRecord) (model.RecordView, error)
	GetRecord(ctx context.Context, id string) (model.RecordView, error)
	UpdateRecord(ctx context.Context, rec model.AttendanceRecord) (model.RecordView, error)
	DeleteRecord(ctx context.Context, id string) error
}

// RecordHandler handles single attendance record requests.
type RecordHandler struct {
	deps RecordDependencies
}

// NewRecordHandler creates a new record handler.
func NewRecordHandler(deps RecordDependencies) *RecordHandler {
	return &RecordHandler{deps: deps}
}

// HandleCreate handles POST /attendance requests. A record for an existing
// student and date is overwritten.
func (h *RecordHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_record"
	rec, ok := readRecord(w, r, op)
	if !ok {
		return
	}
	view, err := h.deps.CreateRecord(r.Context(), rec)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// HandleGet handles GET /attendance/{id} requests.
func (h *RecordHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_record"
	id, ok := pathID(w, r, op)
	if !ok {
		return
	}
	view, err := h.deps.GetRecord(r.Context(), id)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleUpdate handles PUT /attendance/{id} requests.
func (h *RecordHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_record"
	id, ok := pathID(w, r, op)
	if !ok {
		return
	}
	rec, ok := readRecord(w, r, op)
	if !ok {
		return
	}
	rec.ID = id
	view, err := h.deps.UpdateRecord(r.Context(), rec)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleDelete handles DELETE /attendance/{id} requests.
func (h *RecordHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_record"
	id, ok := pathID(w, r, op)
	if !ok {
		return
	}
	if err := h.deps.DeleteRecord(r.Context(), id); err != nil {
		writeFailure(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func readRecord(w http.ResponseWriter, r *http.Request, op string) (model.AttendanceRecord, bool) {
	var req recordRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return model.AttendanceRecord{}, false
	}
	rec, err := req.toModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return model.AttendanceRecord{}, false
	}
	return rec, true
}

func pathID(w http.ResponseWriter, r *http.Request, op string) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return "", false
	}
	return id, true
}
