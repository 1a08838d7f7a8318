package availability

import (
	"time"

	"github.com/frizerino/widget-gateway/internal/models"
)

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Next returns the following month, rolling December into January of the
// next year.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// Prev returns the preceding month, rolling January into December of the
// previous year.
func (m Month) Prev() Month {
	if m.Month == time.January {
		return Month{Year: m.Year - 1, Month: time.December}
	}
	return Month{Year: m.Year, Month: m.Month - 1}
}

// First returns midnight UTC of the first day.
func (m Month) First() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return m.First().AddDate(0, 1, -1).Day()
}

// Key renders the month in the wire format "YYYY-MM".
func (m Month) Key() string {
	return m.First().Format("2006-01")
}

// DayState classifies a single calendar date. Heuristic states come from
// salon weekday hours alone and apply until the authoritative month
// response lands; that response fully replaces them.
type DayState string

const (
	// DayPast is any date strictly before today. Always disabled,
	// rendered distinctly from dates disabled for lack of slots.
	DayPast DayState = "past"
	// DayClosedHeuristic and DayOpenHeuristic are the coarse pre-load
	// states based only on the salon's weekday is_open flag.
	DayClosedHeuristic DayState = "closed"
	DayOpenHeuristic   DayState = "open"
	// DayAvailable and DayUnavailable are authoritative.
	DayAvailable   DayState = "available"
	DayUnavailable DayState = "unavailable"
)

// Selectable reports whether a date in this state can be picked.
func (s DayState) Selectable() bool {
	return s == DayOpenHeuristic || s == DayAvailable
}

// Day is one cell of the calendar grid.
type Day struct {
	Date  string   `json:"date"` // YYYY-MM-DD
	State DayState `json:"state"`
	Today bool     `json:"today"`
}

// MonthView is a total classification of a month: every day of the month
// has exactly one state, so "absent from the response" can never leak into
// rendering as an implicit third case.
type MonthView struct {
	Month         Month `json:"-"`
	Days          []Day `json:"days"`
	Authoritative bool  `json:"authoritative"`
}

// HeuristicMonth classifies every day of the month from salon weekday hours
// alone. Staff schedules, breaks and bookings are deliberately not
// consulted; this state renders while the authoritative response is in
// flight or after it failed. Dates before today are DayPast regardless of
// hours.
func HeuristicMonth(m Month, salonHours models.WorkingHours, today time.Time) *MonthView {
	todayStr := today.Format(models.DateLayout)
	view := &MonthView{Month: m, Days: make([]Day, 0, m.Days())}
	for d := 1; d <= m.Days(); d++ {
		date := time.Date(m.Year, m.Month, d, 0, 0, 0, 0, time.UTC)
		dateStr := date.Format(models.DateLayout)

		state := DayClosedHeuristic
		if dateStr < todayStr {
			state = DayPast
		} else if salonHours.IsOpenOn(date) {
			state = DayOpenHeuristic
		}
		view.Days = append(view.Days, Day{
			Date:  dateStr,
			State: state,
			Today: dateStr == todayStr,
		})
	}
	return view
}

// Refine demotes heuristically open days on which the schedule cannot fit
// a single booking of durationMinutes. It sharpens the pre-load view using
// data the bootstrap already carries (staff hours, breaks, vacations); the
// result stays heuristic because existing appointments are unknown here.
// A day that fails schedule evaluation is left open rather than hidden.
func (v *MonthView) Refine(ds DaySchedule, durationMinutes int) {
	if v.Authoritative || durationMinutes <= 0 {
		return
	}
	for i := range v.Days {
		if v.Days[i].State != DayOpenHeuristic {
			continue
		}
		date, err := time.Parse(models.DateLayout, v.Days[i].Date)
		if err != nil {
			continue
		}
		fits, err := ds.HasSlot(date, durationMinutes)
		if err == nil && !fits {
			v.Days[i].State = DayClosedHeuristic
		}
	}
}

// ApplyAuthoritative replaces heuristic states with the server's per-date
// answer. A date listed in neither set is treated as unavailable: the fail
// safe is "no slots", never implied availability. Past dates keep DayPast.
func (v *MonthView) ApplyAuthoritative(availableDates, unavailableDates []string) {
	available := make(map[string]bool, len(availableDates))
	for _, d := range availableDates {
		available[d] = true
	}
	unavailable := make(map[string]bool, len(unavailableDates))
	for _, d := range unavailableDates {
		unavailable[d] = true
	}

	for i := range v.Days {
		if v.Days[i].State == DayPast {
			continue
		}
		switch {
		case available[v.Days[i].Date]:
			v.Days[i].State = DayAvailable
		case unavailable[v.Days[i].Date]:
			v.Days[i].State = DayUnavailable
		default:
			v.Days[i].State = DayUnavailable
		}
	}
	v.Authoritative = true
}

// Selectable reports whether the given date can currently be picked in
// this view.
func (v *MonthView) Selectable(date string) bool {
	for _, d := range v.Days {
		if d.Date == date {
			return d.State.Selectable()
		}
	}
	return false
}
