package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const day = 24 * time.Hour

// Window is the inclusive Jan 1 - Dec 31 span of a calendar year.
type Window struct {
	Year       int
	Start      time.Time
	End        time.Time
	DaysInYear int
}

// YearWindow builds the window for year. Dates are UTC midnights.
func YearWindow(year int) Window {
	days := 365
	if IsLeapYear(year) {
		days = 366
	}
	return Window{
		Year:       year,
		Start:      time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
		DaysInYear: days,
	}
}

func IsLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// Contains reports whether value falls on or between the window bounds.
func (w Window) Contains(value time.Time) bool {
	if value.IsZero() {
		return false
	}
	value = DateOnly(value)
	return !value.Before(w.Start) && !value.After(w.End)
}

// Interval is a stay from Entry to Exit. A zero Exit means still open.
type Interval struct {
	Entry time.Time
	Exit  time.Time
}

func (i Interval) Open() bool {
	return i.Exit.IsZero()
}

// OverlapDays counts the days of the window covered by the interval,
// counting both endpoints. An open interval runs to the end of the window.
func OverlapDays(interval Interval, window Window) int {
	if interval.Entry.IsZero() {
		return 0
	}
	rangeStart := DateOnly(interval.Entry)
	if rangeStart.Before(window.Start) {
		rangeStart = window.Start
	}
	rangeEnd := window.End
	if !interval.Open() {
		exit := DateOnly(interval.Exit)
		if exit.Before(rangeEnd) {
			rangeEnd = exit
		}
	}
	if rangeStart.After(window.End) || rangeEnd.Before(window.Start) {
		return 0
	}
	if rangeEnd.Before(rangeStart) {
		return 0
	}
	return DaysBetween(rangeStart, rangeEnd) + 1
}

// DaysBetween returns the whole calendar days from start to end. It is
// negative when end is before start.
func DaysBetween(start time.Time, end time.Time) int {
	return int(DateOnly(end).Sub(DateOnly(start)) / day)
}

// DateOnly truncates value to a UTC midnight on the same calendar date.
func DateOnly(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, time.UTC)
}

var layouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"01/02/06",
	"1/2/06",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
}

var errEmptyDate = errors.New("empty date")

// ParseDate parses the date formats seen in detention exports.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errEmptyDate
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return DateOnly(parsed), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format: %s", value)
}

// ParseOptionalDate treats empty and unparseable values as absent.
func ParseOptionalDate(value string) time.Time {
	parsed, err := ParseDate(value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// Range is a declared dataset span.
type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Years reports the start and end years, zero when a bound is missing.
func (r Range) Years() (int, int) {
	start, end := 0, 0
	if !r.Start.IsZero() {
		start = r.Start.Year()
	}
	if !r.End.IsZero() {
		end = r.End.Year()
	}
	return start, end
}

var fileRangePattern = regexp.MustCompile(`(\d{8}).*?(\d{8})`)

// ParseFileRange extracts the two MMDDYYYY tokens embedded in an export file
// name, e.g. "detention_01012022_12312024.csv".
func ParseFileRange(name string) (Range, bool) {
	match := fileRangePattern.FindStringSubmatch(name)
	if match == nil {
		return Range{}, false
	}
	start, err := parseCompact(match[1])
	if err != nil {
		return Range{}, false
	}
	end, err := parseCompact(match[2])
	if err != nil {
		return Range{}, false
	}
	if end.Before(start) {
		start, end = end, start
	}
	return Range{Start: start, End: end}, true
}

func parseCompact(token string) (time.Time, error) {
	parsed, err := time.Parse("01022006", token)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date token %s: %w", token, err)
	}
	return parsed, nil
}

func FormatDate(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.Format("2006-01-02")
}
