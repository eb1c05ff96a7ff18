// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	AttendanceDependencies
	RecordDependencies
	BulkDependencies
	RosterDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	attendanceHandler *AttendanceHandler
	recordHandler     *RecordHandler
	bulkHandler       *BulkHandler
	rosterHandler     *RosterHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		attendanceHandler: NewAttendanceHandler(deps),
		recordHandler:     NewRecordHandler(deps),
		bulkHandler:       NewBulkHandler(deps),
		rosterHandler:     NewRosterHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /attendance", MetricsMiddleware(s.attendanceHandler.HandleList, "attendance"))
	mux.HandleFunc("GET /attendance/statistics", MetricsMiddleware(s.attendanceHandler.HandleStatistics, "attendance_statistics"))
	mux.HandleFunc("GET /attendance/today", MetricsMiddleware(s.attendanceHandler.HandleToday, "attendance_today"))
	mux.HandleFunc("GET /attendance/by-student", MetricsMiddleware(s.attendanceHandler.HandleByStudent, "attendance_by_student"))
	mux.HandleFunc("POST /attendance/bulk", MetricsMiddleware(s.bulkHandler.HandleBulk, "attendance_bulk"))

	mux.HandleFunc("POST /attendance", MetricsMiddleware(s.recordHandler.HandleCreate, "attendance_record"))
	mux.HandleFunc("GET /attendance/{id}", MetricsMiddleware(s.recordHandler.HandleGet, "attendance_record"))
	mux.HandleFunc("PUT /attendance/{id}", MetricsMiddleware(s.recordHandler.HandleUpdate, "attendance_record"))
	mux.HandleFunc("DELETE /attendance/{id}", MetricsMiddleware(s.recordHandler.HandleDelete, "attendance_record"))

	mux.HandleFunc("GET /students", MetricsMiddleware(s.rosterHandler.HandleStudents, "students"))
	mux.HandleFunc("GET /levels", MetricsMiddleware(s.rosterHandler.HandleLevels, "levels"))
	mux.HandleFunc("GET /sections", MetricsMiddleware(s.rosterHandler.HandleSections, "sections"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type listResponse[T any] struct {
	Results []T `json:"results"`
	Count   int `json:"count"`
}

func newListResponse[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Results: items, Count: len(items)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
