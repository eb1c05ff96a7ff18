package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/rollcall/internal/adapters/roster"
	"github.com/okian/rollcall/internal/domain/model"
)

// RosterDependencies defines read access to the roster.
type RosterDependencies interface {
	ListStudents(ctx context.Context, q roster.Query) ([]model.Student, error)
	ListLevels(ctx context.Context) ([]model.Level, error)
	ListSections(ctx context.Context) ([]model.Section, error)
}

// RosterHandler handles roster lookups.
type RosterHandler struct {
	deps RosterDependencies
}

// NewRosterHandler creates a new roster handler.
func NewRosterHandler(deps RosterDependencies) *RosterHandler {
	return &RosterHandler{deps: deps}
}

// HandleStudents handles GET /students?level&section&search requests.
func (h *RosterHandler) HandleStudents(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_students"
	q := r.URL.Query()
	students, err := h.deps.ListStudents(r.Context(), roster.Query{
		LevelID:   strings.TrimSpace(q.Get("level")),
		SectionID: strings.TrimSpace(q.Get("section")),
		Search:    strings.TrimSpace(q.Get("search")),
	})
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(students))
}

// HandleLevels handles GET /levels requests.
func (h *RosterHandler) HandleLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := h.deps.ListLevels(r.Context())
	if err != nil {
		writeFailure(w, "api.list_levels", err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(levels))
}

// HandleSections handles GET /sections requests.
func (h *RosterHandler) HandleSections(w http.ResponseWriter, r *http.Request) {
	sections, err := h.deps.ListSections(r.Context())
	if err != nil {
		writeFailure(w, "api.list_sections", err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(sections))
}
