// file: internals/helpers/dbtime/time_helper.go
package dbtime

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"hozur_backend/internals/configs"
	"hozur_backend/internals/helpers/jalali"

	"github.com/gofiber/fiber/v2"
)

// Locals key set by the request middleware when a per-request zone is known.
const LocSchoolLoc = "school_loc"

// Iran has not observed DST since 2022, so a fixed +03:30 is a faithful fallback
// when the tz database is missing from the container.
var tehranFixed = time.FixedZone("IRST", 3*3600+30*60)

var (
	schoolLocOnce sync.Once
	schoolLoc     *time.Location
)

// SchoolLocation resolves SCHOOL_TIMEZONE once per process.
func SchoolLocation() *time.Location {
	schoolLocOnce.Do(func() {
		name := strings.TrimSpace(configs.SchoolTimezone)
		if name == "" {
			name = "Asia/Tehran"
		}
		loc, err := time.LoadLocation(name)
		if err != nil {
			log.Printf("⚠️ [TIME] cannot load %q (%v), using fixed +03:30", name, err)
			loc = tehranFixed
		}
		schoolLoc = loc
	})
	return schoolLoc
}

// GetSchoolLocation prefers a location placed in c.Locals, then the process default.
func GetSchoolLocation(c *fiber.Ctx) *time.Location {
	if c != nil {
		if loc, ok := c.Locals(LocSchoolLoc).(*time.Location); ok && loc != nil {
			return loc
		}
	}
	return SchoolLocation()
}

func ToSchoolTime(c *fiber.Ctx, t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.In(GetSchoolLocation(c))
}

func ToSchoolTimePtr(c *fiber.Ctx, t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := ToSchoolTime(c, *t)
	return &v
}

func NowInSchool(c *fiber.Ctx) time.Time {
	return time.Now().In(GetSchoolLocation(c))
}

/* ===============================
   Calendar days
=================================*/

// Day returns t's calendar day in loc, stored as UTC midnight. Every DATE column
// in the schema holds values produced here, so equality and range checks line up
// on both Postgres and SQLite.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, time.UTC)
}

// Gregorian years below this are read as Shamsi ("1403-01-01").
const minGregorianYear = 1700

// ParseDay accepts "YYYY-MM-DD", RFC3339 or a Shamsi "Y/M/D" (or "Y-M-D") token.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(jalali.NormalizeDigits(s))
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if loc == nil {
		loc = SchoolLocation()
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil && t.Year() >= minGregorianYear {
		return Day(t, loc), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Day(t, loc), nil
	}
	if t, ok := jalali.TryParseShamsi(s, loc); ok {
		return Day(t, loc), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD or Y/M/D)", s)
}

// Shamsi formats a stored calendar day (UTC midnight) as "yyyy/MM/dd".
func Shamsi(day time.Time) string {
	if day.IsZero() {
		return ""
	}
	return jalali.ToShamsi(day.UTC())
}

// ParseMoment accepts RFC3339 or a wall-clock "HH:MM[:SS]" placed on day
// (a stored calendar day) in loc. The result is UTC.
func ParseMoment(s string, day time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(jalali.NormalizeDigits(s))
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	if loc == nil {
		loc = SchoolLocation()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if c, err := time.Parse(layout, s); err == nil {
			d := day.UTC()
			return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), c.Second(), 0, loc).UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want HH:MM or RFC3339)", s)
}
