package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/okian/rollcall/internal/domain/bulk"
	"github.com/okian/rollcall/internal/domain/filter"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/stats"
	"github.com/okian/rollcall/internal/domain/types"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// recordRequest is the body of POST /attendance and PUT /attendance/{id}.
type recordRequest struct {
	StudentID    string `json:"student_id"     validate:"required,max=64"`
	Date         string `json:"date"           validate:"required,datetime=2006-01-02"`
	Status       string `json:"status"         validate:"required"`
	CheckInTime  string `json:"check_in_time"  validate:"omitempty,max=8"`
	CheckOutTime string `json:"check_out_time" validate:"omitempty,max=8"`
	Notes        string `json:"notes"          validate:"max=1000"`
}

func (r recordRequest) toModel() (model.AttendanceRecord, error) {
	date, err := types.ParseDate(r.Date)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	status, err := types.ParseStatus(r.Status)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	in, err := parseOptionalTime(r.CheckInTime)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	out, err := parseOptionalTime(r.CheckOutTime)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	return model.AttendanceRecord{
		StudentID:    strings.TrimSpace(r.StudentID),
		Date:         date,
		Status:       status,
		CheckInTime:  in,
		CheckOutTime: out,
		Notes:        r.Notes,
	}, nil
}

// bulkEntryRequest is one explicit row of a bulk payload.
type bulkEntryRequest struct {
	Student      string `json:"student"        validate:"required,max=64"`
	Status       string `json:"status"         validate:"required"`
	CheckInTime  string `json:"check_in_time"  validate:"omitempty,max=8"`
	CheckOutTime string `json:"check_out_time" validate:"omitempty,max=8"`
	Notes        string `json:"notes"          validate:"max=1000"`
}

// bulkRequest is the body of POST /attendance/bulk. It carries either
// explicit attendance_records or a status with cohort filters.
type bulkRequest struct {
	Date    string             `json:"date"               validate:"required,datetime=2006-01-02"`
	Records []bulkEntryRequest `json:"attendance_records" validate:"omitempty,dive"`
	Status  string             `json:"status"             validate:"required_without=Records"`
	Level   string             `json:"level"`
	Section string             `json:"section"`
	Search  string             `json:"search"`
}

// explicit reports whether the request lists per-student rows.
func (r bulkRequest) explicit() bool { return r.Records != nil }

func (r bulkRequest) entries() ([]bulk.Entry, error) {
	out := make([]bulk.Entry, 0, len(r.Records))
	for i, row := range r.Records {
		status, err := types.ParseStatus(row.Status)
		if err != nil {
			return nil, fmt.Errorf("attendance_records[%d]: %w", i, err)
		}
		in, err := parseOptionalTime(row.CheckInTime)
		if err != nil {
			return nil, fmt.Errorf("attendance_records[%d]: %w", i, err)
		}
		outTime, err := parseOptionalTime(row.CheckOutTime)
		if err != nil {
			return nil, fmt.Errorf("attendance_records[%d]: %w", i, err)
		}
		out = append(out, bulk.Entry{
			StudentID:    strings.TrimSpace(row.Student),
			Status:       status,
			CheckInTime:  in,
			CheckOutTime: outTime,
			Notes:        row.Notes,
		})
	}
	return out, nil
}

// decodeBody decodes and validates a JSON request body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}

// parseFilter reads the shared attendance filter query parameters. The
// status is passed through unvalidated so the engine can reject it.
func parseFilter(q url.Values) (filter.Filter, error) {
	var f filter.Filter
	var err error
	if v := q.Get("start_date"); v != "" {
		if f.StartDate, err = types.ParseDate(v); err != nil {
			return filter.Filter{}, err
		}
	}
	if v := q.Get("end_date"); v != "" {
		if f.EndDate, err = types.ParseDate(v); err != nil {
			return filter.Filter{}, err
		}
	}
	f.Level = strings.TrimSpace(q.Get("level"))
	f.Section = strings.TrimSpace(q.Get("section"))
	f.Status = types.Status(strings.ToLower(strings.TrimSpace(q.Get("status"))))
	f.Search = strings.TrimSpace(q.Get("search"))
	return f, nil
}

func parseOptionalTime(s string) (*types.TimeOfDay, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := types.ParseTimeOfDay(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// statisticsResponse is a Summary with percentages rounded to one decimal.
type statisticsResponse struct {
	TotalStudents     int                  `json:"total_students"`
	PresentPercentage float64              `json:"present_percentage"`
	AbsentPercentage  float64              `json:"absent_percentage"`
	LatePercentage    float64              `json:"late_percentage"`
	ExcusedPercentage float64              `json:"excused_percentage"`
	AverageAttendance float64              `json:"average_attendance"`
	RecordedDays      int                  `json:"recorded_days"`
	StudentDays       int                  `json:"student_days"`
	ByStatus          map[types.Status]int `json:"by_status"`
}

func newStatisticsResponse(s stats.Summary) statisticsResponse {
	return statisticsResponse{
		TotalStudents:     s.TotalStudents,
		PresentPercentage: roundOne(s.PresentPercentage),
		AbsentPercentage:  roundOne(s.AbsentPercentage),
		LatePercentage:    roundOne(s.LatePercentage),
		ExcusedPercentage: roundOne(s.ExcusedPercentage),
		AverageAttendance: roundOne(s.AverageAttendance),
		RecordedDays:      s.RecordedDays,
		StudentDays:       s.StudentDays,
		ByStatus:          s.ByStatus,
	}
}

func roundOne(v float64) float64 {
	return math.Round(v*10) / 10
}
