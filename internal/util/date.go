package util

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:^|\D)(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})(?:\D|$)`),
	regexp.MustCompile(`(?:^|\D)(\d{4})[/-](\d{1,2})[/-](\d{1,2})(?:\D|$)`),
	regexp.MustCompile(`(?i)(?:^|\D)(\d{1,2})\s+(ene|feb|mar|abr|may|jun|jul|ago|sep|oct|nov|dic)[a-z]*\.?\s+(\d{2,4})(?:\D|$)`),
}

var spanishMonths = map[string]time.Month{
	"ene": time.January, "feb": time.February, "mar": time.March, "abr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "ago": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dic": time.December,
}

// ParseDate finds the first calendar date in input. Numeric dates default to
// day-month-year; a leading group above 31 is read as the year as written.
func ParseDate(input string) (time.Time, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, false
	}

	for _, re := range datePatterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		if month, ok := spanishMonths[strings.ToLower(m[2])]; ok {
			day, _ := strconv.Atoi(m[1])
			year, _ := strconv.Atoi(m[3])
			if t, ok := makeDate(promoteYear(year), month, day); ok {
				return t, true
			}
			continue
		}

		n1, _ := strconv.Atoi(m[1])
		n2, _ := strconv.Atoi(m[2])
		n3, _ := strconv.Atoi(m[3])
		var year, day int
		if n1 > 31 {
			year, day = n1, n3
		} else {
			year, day = promoteYear(n3), n1
		}
		if t, ok := makeDate(year, time.Month(n2), day); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func promoteYear(year int) int {
	if year < 100 {
		return year + 2000
	}
	return year
}

func makeDate(year int, month time.Month, day int) (time.Time, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
