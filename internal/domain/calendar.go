package domain

import "time"

const (
	// DefaultDailyCapacity is the threshold the calendar enforces.
	DefaultDailyCapacity = 6
	// AdvertisedDailyCapacity is the "max per day" figure shown in client copy.
	// It is not used for classification.
	AdvertisedDailyCapacity = 4
)

type DayState string

const (
	DayAvailable DayState = "available"
	DayBooked    DayState = "booked"
	DayFull      DayState = "full"
	DayPast      DayState = "past"
)

type DayStatus struct {
	Date       string   `json:"date"`
	State      DayState `json:"state"`
	Bookings   int      `json:"bookings"`
	Selectable bool     `json:"selectable"`
}

// Classify reports the state of a single day. today is truncated to the
// calendar day in its own location before comparing.
func Classify(date time.Time, today time.Time, count, capacity int) DayStatus {
	st := DayStatus{Date: date.Format(DateLayout), Bookings: count}
	switch {
	case dayOf(date).Before(dayOf(today)):
		st.State = DayPast
	case count >= capacity:
		st.State = DayFull
	case count == 0:
		st.State = DayAvailable
	default:
		st.State = DayBooked
	}
	st.Selectable = st.State == DayAvailable || st.State == DayBooked
	return st
}

// CountByDate tallies bookings per calendar date.
func CountByDate(bookings []Booking) map[string]int {
	counts := make(map[string]int, len(bookings))
	for _, b := range bookings {
		counts[b.Date]++
	}
	return counts
}

type MonthView struct {
	Year        int         `json:"year"`
	Month       time.Month  `json:"month"`
	MonthName   string      `json:"monthName"`
	Weekdays    []string    `json:"weekdays"`
	LeadingDays int         `json:"leadingDays"`
	Days        []DayStatus `json:"days"`
}

// MonthGrid classifies every day of the month. LeadingDays is the number of
// blank cells before the 1st in a Sunday-first grid.
func MonthGrid(year int, month time.Month, today time.Time, counts map[string]int, capacity int, lang string) MonthView {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := DaysIn(year, month)
	view := MonthView{
		Year:        year,
		Month:       month,
		MonthName:   MonthName(lang, month),
		Weekdays:    WeekdayNames(lang),
		LeadingDays: int(first.Weekday()),
		Days:        make([]DayStatus, 0, days),
	}
	for d := 1; d <= days; d++ {
		date := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
		view.Days = append(view.Days, Classify(date, today, counts[date.Format(DateLayout)], capacity))
	}
	return view
}

func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ShiftMonth moves a year/month pair by delta months.
func ShiftMonth(year int, month time.Month, delta int) (int, time.Month) {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, delta, 0)
	return t.Year(), t.Month()
}

// MonthBounds returns the first and last date of a month in DateLayout.
func MonthBounds(year int, month time.Month) (string, string) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(year, month, DaysIn(year, month), 0, 0, 0, 0, time.UTC)
	return first.Format(DateLayout), last.Format(DateLayout)
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
