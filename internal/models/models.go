// Package models holds the read-only domain snapshots the booking flow
// works with: salon and staff schedules, services, breaks, vacations and
// existing appointments fetched from the remote API.
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DayHours describes opening hours for a single weekday.
type DayHours struct {
	Open   string `json:"open"`  // "09:00"
	Close  string `json:"close"` // "18:00"
	IsOpen bool   `json:"is_open"`
}

// WorkingHours maps lowercase weekday names ("monday".."sunday") to hours.
// Used at both salon and staff level; the engine intersects the two and
// never assumes staff hours are contained in salon hours.
type WorkingHours map[string]DayHours

// Weekday keys in calendar order, Monday first.
var WeekdayKeys = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// WeekdayKey returns the WorkingHours key for a time.Weekday.
func WeekdayKey(d time.Weekday) string {
	switch d {
	case time.Monday:
		return "monday"
	case time.Tuesday:
		return "tuesday"
	case time.Wednesday:
		return "wednesday"
	case time.Thursday:
		return "thursday"
	case time.Friday:
		return "friday"
	case time.Saturday:
		return "saturday"
	default:
		return "sunday"
	}
}

// For returns the hours for the given date's weekday.
func (wh WorkingHours) For(date time.Time) (DayHours, bool) {
	h, ok := wh[WeekdayKey(date.Weekday())]
	return h, ok
}

// IsOpenOn reports whether the weekday of date is flagged open.
func (wh WorkingHours) IsOpenOn(date time.Time) bool {
	h, ok := wh.For(date)
	return ok && h.IsOpen
}

// BreakType enumerates recurrence kinds of a Break.
type BreakType string

const (
	BreakDaily        BreakType = "daily"
	BreakWeekly       BreakType = "weekly"
	BreakSpecificDate BreakType = "specific_date"
	BreakDateRange    BreakType = "date_range"
)

// Break is a recurring or one-off unavailability window at staff or salon
// level. Times are "HH:MM"; dates are "YYYY-MM-DD".
type Break struct {
	ID        int64     `json:"id"`
	Type      BreakType `json:"type"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Days      []string  `json:"days,omitempty"`       // weekly: weekday names
	Date      string    `json:"date,omitempty"`       // specific_date
	StartDate string    `json:"start_date,omitempty"` // date_range
	EndDate   string    `json:"end_date,omitempty"`   // date_range
	IsActive  bool      `json:"is_active"`
}

// AppliesOn reports whether the break covers the given calendar date.
// Inactive breaks never apply.
func (b Break) AppliesOn(date time.Time) bool {
	if !b.IsActive {
		return false
	}
	switch b.Type {
	case BreakDaily:
		return true
	case BreakWeekly:
		key := WeekdayKey(date.Weekday())
		for _, d := range b.Days {
			if strings.EqualFold(d, key) {
				return true
			}
		}
		return false
	case BreakSpecificDate:
		return b.Date == date.Format(DateLayout)
	case BreakDateRange:
		ds := date.Format(DateLayout)
		return b.StartDate <= ds && ds <= b.EndDate
	default:
		return false
	}
}

// Vacation is a date-range unavailability stronger than a Break: a covered
// date has zero slots regardless of working hours.
type Vacation struct {
	ID        int64  `json:"id"`
	Type      string `json:"type,omitempty"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	IsActive  bool   `json:"is_active"`
}

// Covers reports whether the vacation covers the given calendar date.
func (v Vacation) Covers(date time.Time) bool {
	if !v.IsActive {
		return false
	}
	ds := date.Format(DateLayout)
	return v.StartDate <= ds && ds <= v.EndDate
}

// Service is a bookable salon service. Duration 0 marks an addon that
// consumes no time but is still billable and selectable.
type Service struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Duration      int      `json:"duration"` // minutes
	Price         float64  `json:"price"`
	DiscountPrice *float64 `json:"discount_price,omitempty"`
}

// EffectivePrice returns the discount price when set, the base price otherwise.
func (s Service) EffectivePrice() float64 {
	if s.DiscountPrice != nil {
		return *s.DiscountPrice
	}
	return s.Price
}

// EffectiveDuration sums the durations of the selection. Zero-duration
// addons contribute nothing and never invalidate the selection.
func EffectiveDuration(services []Service) int {
	total := 0
	for _, s := range services {
		if s.Duration > 0 {
			total += s.Duration
		}
	}
	return total
}

// SelectionTotal sums effective prices of the selection.
func SelectionTotal(services []Service) float64 {
	total := 0.0
	for _, s := range services {
		total += s.EffectivePrice()
	}
	return total
}

// Staff is a bookable staff member with an individual schedule.
type Staff struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	WorkingHours WorkingHours `json:"working_hours,omitempty"`
	Breaks       []Break      `json:"breaks,omitempty"`
	Vacations    []Vacation   `json:"vacations,omitempty"`
}

// Salon is the bootstrap snapshot for one salon, as returned by the widget
// bootstrap endpoint.
type Salon struct {
	ID           int64        `json:"id"`
	Slug         string       `json:"slug"`
	Name         string       `json:"name"`
	Address      string       `json:"address,omitempty"`
	WorkingHours WorkingHours `json:"working_hours"`
	Breaks       []Break      `json:"breaks,omitempty"`
	Vacations    []Vacation   `json:"vacations,omitempty"`
	Services     []Service    `json:"services"`
	Staff        []Staff      `json:"staff"`
	Settings     Settings     `json:"settings"`
}

// Settings carries per-salon booking knobs.
type Settings struct {
	SlotGranularityMinutes int `json:"slot_granularity_minutes"`
}

// Appointment is an existing confirmed or pending booking occupying staff
// time on a date.
type Appointment struct {
	ID       int64  `json:"id"`
	StaffID  int64  `json:"staff_id"`
	Date     string `json:"date"` // YYYY-MM-DD
	Time     string `json:"time"` // HH:MM
	Duration int    `json:"duration"`
	Status   string `json:"status"` // "confirmed" or "pending"
}

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// TimeLayout is the wire format for slot times.
const TimeLayout = "15:04"

// ParseClock parses "HH:MM" into minutes from midnight.
func ParseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time format: %s", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time out of range: %s", s)
	}
	return hour*60 + minute, nil
}

// FormatClock renders minutes from midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
