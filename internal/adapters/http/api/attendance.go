package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/rollcall/internal/domain/filter"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/stats"
)

// AttendanceDependencies defines the read operations on attendance records.
type AttendanceDependencies interface {
	ListAttendance(ctx context.Context, f filter.Filter) ([]model.RecordView, error)
	Statistics(ctx context.Context, f filter.Filter) (stats.Summary, error)
	Today(ctx context.Context) ([]model.RecordView, error)
	ByStudent(ctx context.Context, studentID string) ([]model.RecordView, error)
}

// AttendanceHandler handles attendance listing and statistics requests.
type AttendanceHandler struct {
	deps AttendanceDependencies
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(deps AttendanceDependencies) *AttendanceHandler {
	return &AttendanceHandler{deps: deps}
}

// HandleList handles GET /attendance requests.
func (h *AttendanceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_attendance"
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	views, err := h.deps.ListAttendance(r.Context(), f)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(views))
}

// HandleStatistics handles GET /attendance/statistics requests.
func (h *AttendanceHandler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	const op = "api.attendance_statistics"
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	summary, err := h.deps.Statistics(r.Context(), f)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatisticsResponse(summary))
}

// HandleToday handles GET /attendance/today requests.
func (h *AttendanceHandler) HandleToday(w http.ResponseWriter, r *http.Request) {
	const op = "api.attendance_today"
	views, err := h.deps.Today(r.Context())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(views))
}

// HandleByStudent handles GET /attendance/by-student?student_id= requests.
func (h *AttendanceHandler) HandleByStudent(w http.ResponseWriter, r *http.Request) {
	const op = "api.attendance_by_student"
	id := strings.TrimSpace(r.URL.Query().Get("student_id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	views, err := h.deps.ByStudent(r.Context(), id)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(views))
}
