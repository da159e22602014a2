package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	classDTO "hozur_backend/internals/features/attendance/classes/dto"
	classService "hozur_backend/internals/features/attendance/classes/service"
	sessionDTO "hozur_backend/internals/features/attendance/sessions/dto"
	"hozur_backend/internals/features/attendance/sessions/model"
	sessionService "hozur_backend/internals/features/attendance/sessions/service"
	studentDTO "hozur_backend/internals/features/attendance/students/dto"
	studentModel "hozur_backend/internals/features/attendance/students/model"
	studentService "hozur_backend/internals/features/attendance/students/service"
	helper "hozur_backend/internals/helpers"
	"hozur_backend/internals/helpers/dbtime"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type teacherSeed struct {
	classDTO.CreateTeacherRequest
	Key string `json:"key"`
}

type classSeed struct {
	Key        string  `json:"key"`
	ClassName  string  `json:"class_name"`
	ClassGrade *string `json:"class_grade"`
	TeacherKey string  `json:"teacher_key"`
}

type studentSeed struct {
	studentDTO.StudentRequest
	ClassKey string `json:"class_key"`
}

type recordSeed struct {
	NationalCode string                 `json:"national_code"`
	Status       model.AttendanceStatus `json:"status"`
	CheckIn      *string                `json:"check_in"`
	CheckOut     *string                `json:"check_out"`
	Notes        *string                `json:"notes"`
}

type sessionSeed struct {
	sessionDTO.CreateSessionRequest
	ClassKey string       `json:"class_key"`
	Records  []recordSeed `json:"records"`
}

type seedFile struct {
	Teachers []teacherSeed `json:"teachers"`
	Classes  []classSeed   `json:"classes"`
	Students []studentSeed `json:"students"`
	Sessions []sessionSeed `json:"sessions"`
}

// SeedAttendanceFromJSON loads demo data through the services, so every invariant
// applies. On a rerun, students with a taken national code and sessions on an
// already recorded day are skipped.
func SeedAttendanceFromJSON(db *gorm.DB, filePath string) {
	log.Println("📥 Reading seed file:", filePath)
	raw, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatalf("❌ Cannot read seed file: %v", err)
	}
	var data seedFile
	if err := sonic.Unmarshal(raw, &data); err != nil {
		log.Fatalf("❌ Cannot decode seed file: %v", err)
	}

	ctx := context.Background()
	classes := classService.New(db)
	students := studentService.New(db, nil, nil)
	sessions := sessionService.New(db, nil)

	teacherIDs := map[string]uuid.UUID{}
	for _, t := range data.Teachers {
		m, err := classes.CreateTeacher(ctx, t.CreateTeacherRequest)
		if err != nil {
			log.Printf("⚠️ teacher %s skipped: %v", t.Key, err)
			continue
		}
		teacherIDs[t.Key] = m.TeacherID
	}

	classIDs := map[string]uuid.UUID{}
	for _, c := range data.Classes {
		req := classDTO.CreateClassRequest{ClassName: c.ClassName, ClassGrade: c.ClassGrade}
		if id, ok := teacherIDs[c.TeacherKey]; ok {
			req.ClassTeacherID = &id
		}
		m, err := classes.CreateClass(ctx, req)
		if err != nil {
			log.Printf("⚠️ class %s skipped: %v", c.Key, err)
			continue
		}
		classIDs[c.Key] = m.ClassID
	}

	created := 0
	for _, s := range data.Students {
		req := s.StudentRequest
		if id, ok := classIDs[s.ClassKey]; ok {
			v := id.String()
			req.StudentClassID = &v
		}
		if _, err := students.Create(ctx, req, nil); err != nil {
			if errors.Is(err, helper.ErrConflict) {
				log.Printf("ℹ️ student %s %s already exists, skipped", req.StudentFirstName, req.StudentLastName)
				continue
			}
			log.Printf("⚠️ student %s %s skipped: %v", req.StudentFirstName, req.StudentLastName, err)
			continue
		}
		created++
	}
	log.Printf("✅ %d students seeded", created)

	for _, s := range data.Sessions {
		req := s.CreateSessionRequest
		if id, ok := classIDs[s.ClassKey]; ok {
			req.ClassID = &id
		}
		in, err := req.ToInput(dbtime.SchoolLocation())
		if err != nil {
			log.Printf("⚠️ session %q skipped: %v", req.Title, err)
			continue
		}
		sess, err := sessions.CreateSession(ctx, in)
		if err != nil {
			log.Printf("⚠️ session %q skipped: %v", req.Title, err)
			continue
		}
		if len(in.StudentIDs) == 0 {
			if _, err := sessions.InitializeRecords(ctx, sess.AttendanceSessionID, nil); err != nil {
				log.Printf("⚠️ session %q roster: %v", req.Title, err)
				continue
			}
		}
		if len(s.Records) == 0 {
			continue
		}
		items, err := s.resolve(db)
		if err != nil {
			log.Printf("⚠️ session %q records: %v", req.Title, err)
			continue
		}
		res, err := sessions.BatchUpdate(ctx, sess.AttendanceSessionID, items)
		if err != nil {
			log.Printf("⚠️ session %q records: %v", req.Title, err)
			continue
		}
		log.Printf("✅ session %q: %d applied, %d failed", req.Title, res.Applied, res.Failed)
	}
}

// resolve turns seed records, which name students by national code, into batch items.
func (s sessionSeed) resolve(db *gorm.DB) ([]sessionService.BatchItem, error) {
	items := make([]sessionService.BatchItem, 0, len(s.Records))
	for _, r := range s.Records {
		var st studentModel.StudentModel
		if err := db.Select("student_id").Where("student_national_code = ?", r.NationalCode).Take(&st).Error; err != nil {
			return nil, fmt.Errorf("student %s: %w", r.NationalCode, err)
		}
		items = append(items, sessionService.BatchItem{
			StudentID: st.StudentID,
			Status:    r.Status,
			CheckIn:   r.CheckIn,
			CheckOut:  r.CheckOut,
			Notes:     r.Notes,
		})
	}
	return items, nil
}
