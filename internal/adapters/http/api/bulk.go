package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/rollcall/internal/domain/bulk"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
)

// BulkDependencies defines the bulk write operations.
type BulkDependencies interface {
	BulkMark(ctx context.Context, req bulk.Request) (model.BulkResult, error)
	BulkWrite(ctx context.Context, date types.Date, entries []bulk.Entry) (model.BulkResult, error)
}

// BulkHandler handles bulk attendance requests.
type BulkHandler struct {
	deps BulkDependencies
}

// NewBulkHandler creates a new bulk handler.
func NewBulkHandler(deps BulkDependencies) *BulkHandler {
	return &BulkHandler{deps: deps}
}

// HandleBulk handles POST /attendance/bulk requests. It answers 200 when
// every student was written and 207 with the per-student result otherwise.
func (h *BulkHandler) HandleBulk(w http.ResponseWriter, r *http.Request) {
	const op = "api.bulk_attendance"
	var req bulkRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	date, err := types.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	var res model.BulkResult
	if req.explicit() {
		entries, convErr := req.entries()
		if convErr != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, convErr))
			return
		}
		res, err = h.deps.BulkWrite(r.Context(), date, entries)
	} else {
		status, convErr := types.ParseStatus(req.Status)
		if convErr != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, convErr))
			return
		}
		res, err = h.deps.BulkMark(r.Context(), bulk.Request{
			Date:    date,
			Status:  status,
			Level:   req.Level,
			Section: req.Section,
			Search:  req.Search,
		})
	}

	var writeErr *bulk.WriteError
	switch {
	case errors.As(err, &writeErr):
		writeJSON(w, http.StatusMultiStatus, writeErr.Result)
	case err != nil:
		writeFailure(w, op, err)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}
