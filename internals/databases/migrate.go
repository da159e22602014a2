package database

import (
	"fmt"
	"log"

	classModel "hozur_backend/internals/features/attendance/classes/model"
	sessionModel "hozur_backend/internals/features/attendance/sessions/model"
	studentModel "hozur_backend/internals/features/attendance/students/model"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type indexDef struct {
	Name    string
	Table   string
	Columns string
	Unique  bool
	Where   string
}

// Constraints that AutoMigrate cannot express. Plain SQL that runs unchanged on
// Postgres and SQLite (both support partial indexes).
var schemaIndexes = []indexDef{
	{
		Name:    "uq_students_national_code_active",
		Table:   "students",
		Columns: "student_national_code",
		Unique:  true,
		Where:   "student_is_active = TRUE AND student_national_code IS NOT NULL",
	},
	{
		Name:    "uq_attendance_records_session_student",
		Table:   "attendance_records",
		Columns: "attendance_record_session_id, attendance_record_student_id",
		Unique:  true,
	},
	{
		Name:    "uq_attendance_records_student_date",
		Table:   "attendance_records",
		Columns: "attendance_record_student_id, attendance_record_date",
		Unique:  true,
	},
	{
		Name:    "ix_students_last_first",
		Table:   "students",
		Columns: "student_last_name, student_first_name, student_id",
	},
}

func (d indexDef) sql() string {
	kind := "INDEX"
	if d.Unique {
		kind = "UNIQUE INDEX"
	}
	stmt := fmt.Sprintf("CREATE %s IF NOT EXISTS %s ON %s (%s)",
		kind, pq.QuoteIdentifier(d.Name), pq.QuoteIdentifier(d.Table), d.Columns)
	if d.Where != "" {
		stmt += " WHERE " + d.Where
	}
	return stmt
}

// Migrate creates/updates every table and the storage-level invariants.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&classModel.TeacherModel{},
		&classModel.ClassModel{},
		&studentModel.StudentModel{},
		&sessionModel.AttendanceSessionModel{},
		&sessionModel.AttendanceRecordModel{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	for _, ix := range schemaIndexes {
		if err := db.Exec(ix.sql()).Error; err != nil {
			return fmt.Errorf("index %s: %w", ix.Name, err)
		}
	}
	log.Printf("✅ [MIGRATE] %d tables, %d indexes ready", 5, len(schemaIndexes))
	return nil
}
