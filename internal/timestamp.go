package internal

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	annotationDepth = 8
	futureSkew      = 12 * time.Hour
)

var (
	annotationPattern = regexp.MustCompile(`^\[([^\]]+)\]`)
	timePattern       = regexp.MustCompile(`(?i)(\d{1,2}):(\d{2})(?::(\d{2}))?\s*(AM|PM)?`)
	commaSplit        = regexp.MustCompile(`,\s*`)
	leadingDigits     = regexp.MustCompile(`^\d+`)
)

// FindAnnotation walks up to eight levels from n looking for a non-empty attr
func FindAnnotation(n Node, attr string) (string, bool) {
	cur := n
	for i := 0; i < annotationDepth && cur != nil; i++ {
		if v, ok := cur.Attr(attr); ok && v != "" {
			return v, true
		}
		cur = cur.Parent()
	}
	return "", false
}

// ParseTimestamp reads the default annotation attribute above n
func ParseTimestamp(n Node, now time.Time) (int64, bool) {
	return ParseTimestampAttr(n, DefaultAnnotationAttr, now)
}

// ParseTimestampAttr reads the given annotation attribute above n and parses it
// into epoch milliseconds.
func ParseTimestampAttr(n Node, attr string, now time.Time) (int64, bool) {
	raw, ok := FindAnnotation(n, attr)
	if !ok {
		return 0, false
	}
	return ParseAnnotation(raw, now)
}

// ParseAnnotation parses "[H:MM[:SS] [AM|PM][, date]] sender:" into epoch
// milliseconds in now's location. Dates are tried day-month-year first, then
// month-day-year. Without a valid date the time is placed today, or yesterday
// when today would be more than twelve hours ahead of now.
func ParseAnnotation(raw string, now time.Time) (int64, bool) {
	m := annotationPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, false
	}
	inside := strings.TrimSpace(m[1])

	parts := commaSplit.Split(inside, -1)
	timePart := parts[0]
	datePart := ""
	if len(parts) > 1 {
		datePart = strings.Join(parts[1:], ", ")
	}

	hh, mm, ss, ok := parseClock(timePart)
	if !ok {
		return 0, false
	}

	loc := now.Location()
	if y, mo, d, ok := parseDate(datePart); ok {
		return time.Date(y, mo, d, hh, mm, ss, 0, loc).UnixMilli(), true
	}

	dt := time.Date(now.Year(), now.Month(), now.Day(), hh, mm, ss, 0, loc)
	if dt.Sub(now) > futureSkew {
		dt = dt.AddDate(0, 0, -1)
	}
	return dt.UnixMilli(), true
}

func parseClock(s string) (hh, mm, ss int, ok bool) {
	tm := timePattern.FindStringSubmatch(s)
	if tm == nil {
		return 0, 0, 0, false
	}

	hh, _ = strconv.Atoi(tm[1])
	mm, _ = strconv.Atoi(tm[2])
	if tm[3] != "" {
		ss, _ = strconv.Atoi(tm[3])
	}

	switch strings.ToLower(tm[4]) {
	case "pm":
		if hh < 12 {
			hh += 12
		}
	case "am":
		if hh == 12 {
			hh = 0
		}
	}

	if hh > 23 || mm > 59 || ss > 59 {
		return 0, 0, 0, false
	}
	return hh, mm, ss, true
}

// parseDate accepts d-m-y or m-d-y with '.', '/' or '-' separators
func parseDate(s string) (int, time.Month, int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, 0, false
	}

	normalized := strings.NewReplacer(".", "-", "/", "-").Replace(s)
	tokens := strings.Split(normalized, "-")
	if len(tokens) < 3 {
		return 0, 0, 0, false
	}

	var vals [3]int
	for i := 0; i < 3; i++ {
		tok := strings.TrimLeft(strings.TrimSpace(tokens[i]), "0")
		if tok == "" {
			tok = "0"
		}
		digits := leadingDigits.FindString(tok)
		if digits == "" {
			return 0, 0, 0, false
		}
		v, err := strconv.Atoi(digits)
		if err != nil {
			return 0, 0, 0, false
		}
		vals[i] = v
	}

	a, b, year := vals[0], vals[1], vals[2]
	if year < 100 {
		year += 2000
	}

	if validDate(year, b, a) {
		return year, time.Month(b), a, true
	}
	if validDate(year, a, b) {
		return year, time.Month(a), b, true
	}
	return 0, 0, 0, false
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Day() == day && int(t.Month()) == month
}
