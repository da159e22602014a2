// Package jalali converts between the Persian (solar Hijri) and Gregorian calendars.
//
// One arithmetic implementation backs every conversion in the service: the 33-year
// leap cycle on the Persian side and the 400/100/4 rule on the Gregorian side. Leap
// years and month lengths are derived from the same arithmetic, so parsing,
// validation and formatting can never disagree at a leap-year boundary.
package jalali

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const Layout = "yyyy/MM/dd"

var gregorianDaysBeforeMonth = [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}

func isGregorianLeap(gy int) bool {
	return (gy%4 == 0 && gy%100 != 0) || gy%400 == 0
}

// ToGregorian converts a Persian date. Input is not validated; use Valid first.
func ToGregorian(jy, jm, jd int) (gy, gm, gd int) {
	jy += 1595
	days := -355668 + 365*jy + (jy/33)*8 + ((jy%33)+3)/4 + jd
	if jm < 7 {
		days += (jm - 1) * 31
	} else {
		days += (jm-7)*30 + 186
	}

	gy = 400 * (days / 146097)
	days %= 146097
	if days > 36524 {
		days--
		gy += 100 * (days / 36524)
		days %= 36524
		if days >= 365 {
			days++
		}
	}
	gy += 4 * (days / 1461)
	days %= 1461
	if days > 365 {
		gy += (days - 1) / 365
		days = (days - 1) % 365
	}
	gd = days + 1

	feb := 28
	if isGregorianLeap(gy) {
		feb = 29
	}
	monthLen := [13]int{0, 31, feb, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	for gm = 0; gm < 13 && gd > monthLen[gm]; gm++ {
		gd -= monthLen[gm]
	}
	return gy, gm, gd
}

// FromGregorian converts a Gregorian date to the Persian calendar.
func FromGregorian(gy, gm, gd int) (jy, jm, jd int) {
	gy2 := gy
	if gm > 2 {
		gy2 = gy + 1
	}
	days := 355666 + 365*gy + (gy2+3)/4 - (gy2+99)/100 + (gy2+399)/400 + gd + gregorianDaysBeforeMonth[gm-1]

	jy = -1595 + 33*(days/12053)
	days %= 12053
	jy += 4 * (days / 1461)
	days %= 1461
	if days > 365 {
		jy += (days - 1) / 365
		days = (days - 1) % 365
	}
	if days < 186 {
		jm = 1 + days/31
		jd = 1 + days%31
	} else {
		jm = 7 + (days-186)/30
		jd = 1 + (days-186)%30
	}
	return jy, jm, jd
}

// IsLeap reports whether Esfand of jy has 30 days.
func IsLeap(jy int) bool {
	y1, m1, d1 := ToGregorian(jy, 1, 1)
	y2, m2, d2 := ToGregorian(jy+1, 1, 1)
	a := time.Date(y1, time.Month(m1), d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, time.Month(m2), d2, 0, 0, 0, 0, time.UTC)
	return b.Sub(a)/(24*time.Hour) == 366
}

func MonthLength(jy, jm int) int {
	switch {
	case jm >= 1 && jm <= 6:
		return 31
	case jm >= 7 && jm <= 11:
		return 30
	case jm == 12:
		if IsLeap(jy) {
			return 30
		}
		return 29
	default:
		return 0
	}
}

func Valid(jy, jm, jd int) bool {
	if jy < 1 || jm < 1 || jm > 12 || jd < 1 {
		return false
	}
	return jd <= MonthLength(jy, jm)
}

// ToShamsi formats t's calendar day (in t's own location) as "yyyy/MM/dd".
func ToShamsi(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	jy, jm, jd := FromGregorian(t.Year(), int(t.Month()), t.Day())
	return fmt.Sprintf("%04d/%02d/%02d", jy, jm, jd)
}

// ToShamsiPtr is the nil-safe variant used by DTO mappers.
func ToShamsiPtr(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := ToShamsi(*t)
	return &s
}

// Date returns the Gregorian instant for a Persian calendar day at 12:00 in loc.
func Date(jy, jm, jd int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	gy, gm, gd := ToGregorian(jy, jm, jd)
	return time.Date(gy, time.Month(gm), gd, 12, 0, 0, 0, loc)
}

// TryParseShamsi parses "Y/M/D" (or "Y-M-D"). The result is anchored at local noon so
// later time-zone shifts cannot move it to a neighbouring day.
func TryParseShamsi(s string, loc *time.Location) (time.Time, bool) {
	s = NormalizeDigits(strings.TrimSpace(s))
	if s == "" {
		return time.Time{}, false
	}
	sep := "/"
	if !strings.Contains(s, "/") {
		sep = "-"
	}
	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return time.Time{}, false
	}

	var nums [3]int
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return time.Time{}, false
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, false
		}
		nums[i] = n
	}
	if !Valid(nums[0], nums[1], nums[2]) {
		return time.Time{}, false
	}
	return Date(nums[0], nums[1], nums[2], loc), true
}

/* ===============================
   Digit folding (۱۴۰۳ → 1403)
=============================== */

func foldDigit(r rune) rune {
	switch {
	case r >= '۰' && r <= '۹': // Extended Arabic-Indic (Persian)
		return '0' + (r - '۰')
	case r >= '٠' && r <= '٩': // Arabic-Indic
		return '0' + (r - '٠')
	default:
		return r
	}
}

var digitFolder = transform.Chain(norm.NFKC, runes.Map(foldDigit))

// NormalizeDigits folds Persian and Arabic-Indic digits to ASCII.
func NormalizeDigits(s string) string {
	out, _, err := transform.String(digitFolder, s)
	if err != nil {
		return s
	}
	return out
}
