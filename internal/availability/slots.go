// Package availability computes bookable dates and time slots from salon
// and staff schedules, breaks, vacations and existing appointments.
package availability

import (
	"fmt"
	"sort"
	"time"

	"github.com/frizerino/widget-gateway/internal/models"
)

// DefaultGranularity is the slot boundary step used when a salon does not
// configure one.
const DefaultGranularity = 30

// DaySchedule bundles everything needed to enumerate slots for one staff
// member on one date.
type DaySchedule struct {
	SalonHours   models.WorkingHours
	StaffHours   models.WorkingHours
	SalonBreaks  []models.Break
	StaffBreaks  []models.Break
	Vacations    []models.Vacation // staff- and salon-level, merged by caller
	Appointments []models.Appointment

	// Granularity is the candidate-start step in minutes; 0 means
	// DefaultGranularity.
	Granularity int
}

func (ds DaySchedule) granularity() int {
	if ds.Granularity <= 0 {
		return DefaultGranularity
	}
	return ds.Granularity
}

// OpenIntervals returns the free windows for the date: staff hours
// intersected with salon hours, minus active breaks, vacations and existing
// appointments. Minute resolution throughout.
func (ds DaySchedule) OpenIntervals(date time.Time) ([]Interval, error) {
	for _, v := range ds.Vacations {
		if v.Covers(date) {
			return nil, nil
		}
	}

	staff, staffKnown, err := dayWindow(ds.StaffHours, date)
	if err != nil {
		return nil, err
	}
	salon, salonKnown, err := dayWindow(ds.SalonHours, date)
	if err != nil {
		return nil, err
	}

	// A schedule without hours at all falls back to the other side; a
	// schedule that marks the weekday closed intersects to nothing.
	var open []Interval
	switch {
	case staffKnown && salonKnown:
		open = Intersect(staff, salon)
	case staffKnown:
		open = staff
	case salonKnown:
		open = salon
	default:
		return nil, nil
	}
	if len(open) == 0 {
		return nil, nil
	}

	for _, br := range append(append([]models.Break{}, ds.SalonBreaks...), ds.StaffBreaks...) {
		if !br.AppliesOn(date) {
			continue
		}
		cut, err := clockInterval(br.StartTime, br.EndTime)
		if err != nil {
			return nil, fmt.Errorf("break %d: %w", br.ID, err)
		}
		open = Subtract(open, cut)
	}

	dateStr := date.Format(models.DateLayout)
	for _, appt := range ds.Appointments {
		if appt.Date != dateStr || appt.Duration <= 0 {
			continue
		}
		start, err := models.ParseClock(appt.Time)
		if err != nil {
			return nil, fmt.Errorf("appointment %d: %w", appt.ID, err)
		}
		open = Subtract(open, Interval{Start: start, End: start + appt.Duration})
	}

	return open, nil
}

// Slots enumerates bookable "HH:MM" start times for the date and the given
// effective duration. Candidates step from the weekday open time on
// granularity boundaries; a candidate is kept only when the full duration
// fits inside a single open window. Output is chronological and free of
// duplicates. Zero open windows or zero fitting candidates yield an empty,
// non-nil slice so callers can distinguish "none" from "not loaded".
func (ds DaySchedule) Slots(date time.Time, durationMinutes int) ([]string, error) {
	if durationMinutes <= 0 {
		return []string{}, nil
	}

	open, err := ds.OpenIntervals(date)
	if err != nil {
		return nil, err
	}
	slots := []string{}
	if len(open) == 0 {
		return slots, nil
	}

	dayStart, err := dayOpenMinute(ds.StaffHours, ds.SalonHours, date)
	if err != nil {
		return nil, err
	}

	step := ds.granularity()
	seen := make(map[int]bool)
	for _, iv := range open {
		// First boundary at or after the window start, aligned to the
		// weekday open time.
		cursor := iv.Start
		if offset := (cursor - dayStart) % step; offset != 0 {
			cursor += step - offset
		}
		for ; cursor+durationMinutes <= iv.End; cursor += step {
			if seen[cursor] {
				continue
			}
			seen[cursor] = true
			slots = append(slots, models.FormatClock(cursor))
		}
	}

	sort.Strings(slots)
	return slots, nil
}

// HasSlot reports whether at least one slot of the given duration exists.
func (ds DaySchedule) HasSlot(date time.Time, durationMinutes int) (bool, error) {
	slots, err := ds.Slots(date, durationMinutes)
	if err != nil {
		return false, err
	}
	return len(slots) > 0, nil
}

// dayWindow returns the open window for the date's weekday as an interval
// set. known is false only when the schedule carries no hours at all; a
// schedule that exists but leaves the weekday out or flags it closed is an
// explicit closed day (known true, nil window), never a fallback case.
func dayWindow(wh models.WorkingHours, date time.Time) (window []Interval, known bool, err error) {
	if wh == nil {
		return nil, false, nil
	}
	h, ok := wh.For(date)
	if !ok || !h.IsOpen {
		return nil, true, nil
	}
	iv, err := clockInterval(h.Open, h.Close)
	if err != nil {
		return nil, true, fmt.Errorf("working hours %s: %w", models.WeekdayKey(date.Weekday()), err)
	}
	if iv.Empty() {
		return nil, true, nil
	}
	return []Interval{iv}, true, nil
}

// dayOpenMinute picks the boundary anchor: the staff open time when staff
// hours exist for the weekday, the salon open time otherwise.
func dayOpenMinute(staff, salon models.WorkingHours, date time.Time) (int, error) {
	for _, wh := range []models.WorkingHours{staff, salon} {
		if wh == nil {
			continue
		}
		if h, ok := wh.For(date); ok && h.IsOpen {
			return models.ParseClock(h.Open)
		}
	}
	return 0, nil
}

func clockInterval(start, end string) (Interval, error) {
	s, err := models.ParseClock(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := models.ParseClock(end)
	if err != nil {
		return Interval{}, err
	}
	return Interval{Start: s, End: e}, nil
}
