package dto

import (
	"time"

	"hozur_backend/internals/features/attendance/sessions/model"
)

// ReportItem is one record in the date-range report. Keys are camelCase, the
// shape the report UI consumes.
type ReportItem struct {
	StudentName string                 `json:"studentName"`
	Photo       *string                `json:"photo"`
	Status      model.AttendanceStatus `json:"status"`
	LateMinutes *int                   `json:"lateMinutes,omitempty"`
	Date        time.Time              `json:"date"`
	DateShamsi  string                 `json:"dateShamsi"`
}
