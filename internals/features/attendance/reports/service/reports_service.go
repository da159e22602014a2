package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"hozur_backend/internals/features/attendance/reports/dto"
	sessionModel "hozur_backend/internals/features/attendance/sessions/model"
	helper "hozur_backend/internals/helpers"
	"hozur_backend/internals/helpers/dbtime"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Service {
	return &Service{DB: db}
}

type reportRow struct {
	StudentID        uuid.UUID
	StudentFirstName string
	StudentLastName  string
	StudentPhotoPath *string
	Status           sessionModel.AttendanceStatus
	LateMinutes      *int
	Date             time.Time
}

// ReportByDateRange returns one item per record of an active session dated in
// [from, to] (calendar days, inclusive), ordered by date, surname, given name.
// photoURL maps a stored photo key to its public URL; nil keeps the key.
func (s *Service) ReportByDateRange(ctx context.Context, from, to time.Time, photoURL func(string) string) ([]dto.ReportItem, error) {
	from, to = dbtime.Day(from, time.UTC), dbtime.Day(to, time.UTC)
	if from.After(to) {
		return nil, helper.ValidationField("from", "from is after to")
	}

	var rows []reportRow
	if err := s.DB.WithContext(ctx).Table("attendance_records AS r").
		Select(`st.student_id AS student_id,
			st.student_first_name AS student_first_name,
			st.student_last_name AS student_last_name,
			st.student_photo_path AS student_photo_path,
			r.attendance_record_status AS status,
			r.attendance_record_late_minutes AS late_minutes,
			r.attendance_record_date AS date`).
		Joins("JOIN attendance_sessions s ON s.attendance_session_id = r.attendance_record_session_id AND s."+sessionModel.ColSessionIsActive+" = ?", true).
		Joins("JOIN students st ON st.student_id = r.attendance_record_student_id").
		Where("r.attendance_record_date BETWEEN ? AND ?", from, to).
		Scan(&rows).Error; err != nil {
		return nil, helper.Storage(err)
	}

	col := collate.New(language.Persian, collate.IgnoreCase)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if c := col.CompareString(a.StudentLastName, b.StudentLastName); c != 0 {
			return c < 0
		}
		if c := col.CompareString(a.StudentFirstName, b.StudentFirstName); c != 0 {
			return c < 0
		}
		return a.StudentID.String() < b.StudentID.String()
	})

	out := make([]dto.ReportItem, 0, len(rows))
	for _, r := range rows {
		item := dto.ReportItem{
			StudentName: strings.TrimSpace(r.StudentFirstName + " " + r.StudentLastName),
			Status:      r.Status,
			Date:        r.Date.UTC(),
			DateShamsi:  dbtime.Shamsi(r.Date),
		}
		if r.Status == sessionModel.StatusLate {
			item.LateMinutes = r.LateMinutes
		}
		if r.StudentPhotoPath != nil {
			p := *r.StudentPhotoPath
			if photoURL != nil {
				p = photoURL(p)
			}
			item.Photo = &p
		}
		out = append(out, item)
	}
	return out, nil
}
