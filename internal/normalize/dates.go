package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// UnknownDate is rendered when a date cell is missing or unparseable.
const UnknownDate = "Unknown"

// DateLayout is the canonical calendar-date layout of the upload document.
const DateLayout = "2006-01-02"

// Date formats seen in practice-management exports. Day-first layouts come
// before month-first ones because the source system is Australian.
var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04",
	"2/1/2006 15:04",
	"02-01-2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"2006/01/02",
}

// ParseDate converts a raw cell value to a time. Numeric values are treated
// as Excel serial dates (1899-12-30 epoch). Returns false when the input is
// empty or unparseable.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial <= 0 {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CalendarDate renders a raw cell value as YYYY-MM-DD, or UnknownDate.
func CalendarDate(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return UnknownDate
	}
	return t.Format(DateLayout)
}

// DateKey is CalendarDate for use as a join key. It returns false when the
// value is missing or unparseable; such a date never matches anything.
func DateKey(s string) (string, bool) {
	t, ok := ParseDate(s)
	if !ok {
		return "", false
	}
	return t.Format(DateLayout), true
}
