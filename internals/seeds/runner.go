package seeds

import (
	"hozur_backend/internals/seeds/attendance"

	"gorm.io/gorm"
)

func RunAllSeeds(db *gorm.DB) {
	//* Attendance demo data
	attendance.SeedAttendanceFromJSON(db, "internals/seeds/attendance/data_attendance.json")
}
