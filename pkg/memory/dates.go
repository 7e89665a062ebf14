package memory

import (
	"strconv"
	"time"
)

// Stored dates are YYYY-MM-DD; longer timestamps contribute their first ten
// bytes. Display format is "D Month YYYY". Unparsable strings pass through
// unchanged rather than erroring, since they only affect display.

const storedDateLayout = "2006-01-02"

func parseStoredDate(s string) (time.Time, bool) {
	if len(s) > len(storedDateLayout) {
		s = s[:len(storedDateLayout)]
	}
	t, err := time.Parse(storedDateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func formatDisplayDate(t time.Time) string {
	return strconv.Itoa(t.Day()) + " " + t.Month().String() + " " + strconv.Itoa(t.Year())
}

// displayDate renders a stored date string for prompt output, passing
// unparsable input through unchanged.
func displayDate(s string) string {
	t, ok := parseStoredDate(s)
	if !ok {
		return s
	}
	return formatDisplayDate(t)
}
