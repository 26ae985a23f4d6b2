package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// JalaliDate is a Persian solar calendar date. Fields are bounded but not
// checked against month lengths, matching how dates are captured.
type JalaliDate struct {
	Year  int
	Month int
	Day   int
}

// ParseJalaliDate parses a fixed-width YYYY/MM/DD string.
func ParseJalaliDate(s string) (JalaliDate, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "/")
	if len(parts) != 3 || len(parts[0]) != 4 || len(parts[1]) != 2 || len(parts[2]) != 2 {
		return JalaliDate{}, fmt.Errorf("jalali date %q: want YYYY/MM/DD", s)
	}
	var nums [3]int
	for i, p := range parts {
		if !allDigits(p) {
			return JalaliDate{}, fmt.Errorf("jalali date %q: segment %q is not a number", s, p)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return JalaliDate{}, fmt.Errorf("jalali date %q: segment %q is not a number", s, p)
		}
		nums[i] = n
	}
	d := JalaliDate{Year: nums[0], Month: nums[1], Day: nums[2]}
	if !d.Valid() {
		return JalaliDate{}, fmt.Errorf("jalali date %q out of range", s)
	}
	return d, nil
}

// allDigits reports whether s is made only of ASCII digits. strconv.Atoi
// alone would also take a sign.
func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// MustParseJalaliDate is ParseJalaliDate for literals; it panics on error.
func MustParseJalaliDate(s string) JalaliDate {
	d, err := ParseJalaliDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Valid reports whether every field is inside its bound.
func (d JalaliDate) Valid() bool {
	return d.Year >= 1 && d.Year <= 9999 &&
		d.Month >= 1 && d.Month <= 12 &&
		d.Day >= 1 && d.Day <= 31
}

// IsZero reports whether d is the zero value.
func (d JalaliDate) IsZero() bool { return d == JalaliDate{} }

// String formats d as zero-padded YYYY/MM/DD.
func (d JalaliDate) String() string {
	return fmt.Sprintf("%04d/%02d/%02d", d.Year, d.Month, d.Day)
}

// Compare returns -1, 0 or +1. The order equals the lexicographic order of
// the fixed-width string forms.
func (d JalaliDate) Compare(other JalaliDate) int {
	switch {
	case d.Year != other.Year:
		return sign(d.Year - other.Year)
	case d.Month != other.Month:
		return sign(d.Month - other.Month)
	default:
		return sign(d.Day - other.Day)
	}
}

// Before reports whether d is earlier than other.
func (d JalaliDate) Before(other JalaliDate) bool { return d.Compare(other) < 0 }

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// JalaliFromTime converts the calendar date of t (in its own location) to Jalali.
func JalaliFromTime(t time.Time) JalaliDate {
	gy, gm, gd := t.Date()
	cumulative := [...]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}
	gy2 := gy
	if gm > 2 {
		gy2 = gy + 1
	}
	days := 355666 + 365*gy + (gy2+3)/4 - (gy2+99)/100 + (gy2+399)/400 + gd + cumulative[gm-1]
	jy := -1595 + 33*(days/12053)
	days %= 12053
	jy += 4 * (days / 1461)
	days %= 1461
	if days > 365 {
		jy += (days - 1) / 365
		days = (days - 1) % 365
	}
	var jm, jd int
	if days < 186 {
		jm = 1 + days/31
		jd = 1 + days%31
	} else {
		jm = 7 + (days-186)/30
		jd = 1 + (days-186)%30
	}
	return JalaliDate{Year: jy, Month: jm, Day: jd}
}

// CompareJalaliStrings orders two stored date strings. Strings that parse are
// compared as dates; otherwise the raw strings are compared, which agrees for
// fixed-width input.
func CompareJalaliStrings(a, b string) int {
	da, errA := ParseJalaliDate(a)
	db, errB := ParseJalaliDate(b)
	if errA == nil && errB == nil {
		return da.Compare(db)
	}
	return strings.Compare(a, b)
}

// ClampJalaliInput constrains partially typed date text: only digits and '/'
// survive, the year keeps at most four digits, month and day keep two digits
// each with "00" raised to "01" and values above 12 (month) or 31 (day)
// lowered to the bound. Extra segments are dropped.
func ClampJalaliInput(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '/' {
			b.WriteRune(r)
		}
	}
	parts := strings.Split(b.String(), "/")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	parts[0] = truncate(parts[0], 4)
	if len(parts) > 1 {
		parts[1] = clampSegment(parts[1], 12)
	}
	if len(parts) > 2 {
		parts[2] = clampSegment(parts[2], 31)
	}
	return strings.Join(parts, "/")
}

func clampSegment(seg string, upper int) string {
	seg = truncate(seg, 2)
	if seg == "" {
		return seg
	}
	n, err := strconv.Atoi(seg)
	if err != nil {
		return seg
	}
	if len(seg) == 2 && n == 0 {
		return "01"
	}
	if n > upper {
		return strconv.Itoa(upper)
	}
	return seg
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
