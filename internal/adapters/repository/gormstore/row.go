package gormstore

import (
	"time"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
)

// attendanceRow is the persisted shape of an attendance record.
type attendanceRow struct {
	ID           string           `gorm:"primaryKey;type:varchar(36)"`
	StudentID    string           `gorm:"type:varchar(64);not null;uniqueIndex:idx_attendance_student_date,priority:1"`
	Date         types.Date       `gorm:"column:date;type:date;not null;uniqueIndex:idx_attendance_student_date,priority:2;index:idx_attendance_date"`
	Status       string           `gorm:"type:varchar(16);not null;index:idx_attendance_status"`
	CheckInTime  *types.TimeOfDay `gorm:"type:time"`
	CheckOutTime *types.TimeOfDay `gorm:"type:time"`
	Notes        string           `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (attendanceRow) TableName() string { return "attendance_records" }

func toRow(rec model.AttendanceRecord) attendanceRow {
	return attendanceRow{
		ID:           rec.ID,
		StudentID:    rec.StudentID,
		Date:         rec.Date,
		Status:       string(rec.Status),
		CheckInTime:  rec.CheckInTime,
		CheckOutTime: rec.CheckOutTime,
		Notes:        rec.Notes,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}

func (r attendanceRow) toModel() model.AttendanceRecord {
	return model.AttendanceRecord{
		ID:           r.ID,
		StudentID:    r.StudentID,
		Date:         r.Date,
		Status:       types.Status(r.Status),
		CheckInTime:  r.CheckInTime,
		CheckOutTime: r.CheckOutTime,
		Notes:        r.Notes,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
