package stock

import (
	"time"

	"github.com/andresuchdata/stockcount/internal/domain"
)

// WeeklyAnchor is the single weekday on which weekly items are counted.
const WeeklyAnchor = time.Monday

const dateLayout = "2006-01-02"

// IsDueToday decides whether item needs a physical recount on the calendar
// day of today. Time of day is ignored; today's location is the site zone.
func IsDueToday(item domain.Item, today time.Time) bool {
	freq := item.CheckFrequency
	switch freq.Kind {
	case domain.FrequencyDaily:
		return true
	case domain.FrequencyWeekly:
		return today.Weekday() == WeeklyAnchor
	case domain.FrequencyEveryNDays:
		if item.LastCheckedAt == nil {
			return true
		}
		return DaysBetween(*item.LastCheckedAt, today) >= freq.Days
	default:
		return true
	}
}

// CheckedToday reports whether the item was last counted on today's date.
func CheckedToday(item domain.Item, today time.Time) bool {
	if item.LastCheckedAt == nil {
		return false
	}
	return SameDate(*item.LastCheckedAt, today)
}

// DaysBetween is the whole number of calendar days from the date of from to
// the date of to, both taken in to's location.
func DaysBetween(from, to time.Time) int {
	fy, fm, fd := from.In(to.Location()).Date()
	ty, tm, td := to.Date()
	// Compare in UTC so DST shifts never shave an hour off a day.
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// DateOnly truncates t to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDate compares calendar dates in b's location.
func SameDate(a, b time.Time) bool {
	return FormatDate(a.In(b.Location())) == FormatDate(b)
}

// FormatDate renders the yyyy-MM-dd key used by reports.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// SkipReason explains why an item of the given frequency is not due.
func SkipReason(freq domain.CheckFrequency) string {
	if freq.Kind == domain.FrequencyWeekly {
		return "checked every Monday"
	}
	return "not due yet"
}
