// Package booking implements the widget's booking flow as an explicit
// state machine: service and staff selection, calendar and slot loading
// with stale-response guards, guest details, submission and the conflict
// rollback when a slot is taken out from under the user.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/frizerino/widget-gateway/internal/availability"
	"github.com/frizerino/widget-gateway/internal/metrics"
	"github.com/frizerino/widget-gateway/internal/models"
	"github.com/frizerino/widget-gateway/internal/widgetapi"
)

// State tags the current step of a booking flow.
type State string

const (
	StateSelectingServices State = "selecting_services"
	StateSelectingStaff    State = "selecting_staff"
	StateSelectingDateTime State = "selecting_date_time"
	StateEnteringDetails   State = "entering_details"
	StateReviewing         State = "reviewing"
	StateSubmitting        State = "submitting"
	StateConfirmed         State = "confirmed"
)

// Terminal reports whether the flow can no longer move.
func (s State) Terminal() bool {
	return s == StateConfirmed
}

// FSM holds the allowed transitions. Forward moves one step at a time,
// backward moves to the immediately prior step; Confirmed is terminal.
type FSM struct {
	transitions map[State][]State
}

// NewFSM creates the booking flow FSM.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[State][]State{
			StateSelectingServices: {StateSelectingStaff},
			StateSelectingStaff:    {StateSelectingDateTime, StateSelectingServices},
			StateSelectingDateTime: {StateEnteringDetails, StateSelectingStaff},
			StateEnteringDetails:   {StateReviewing, StateSelectingDateTime},
			StateReviewing:         {StateSubmitting, StateEnteringDetails},
			StateSubmitting:        {StateConfirmed, StateReviewing, StateSelectingDateTime},
			StateConfirmed:         {},
		},
	}
}

// CanTransition checks if the move is allowed.
func (f *FSM) CanTransition(from, to State) bool {
	for _, s := range f.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// prior returns the step backward navigation lands on, or "" when none.
func prior(s State) State {
	switch s {
	case StateSelectingStaff:
		return StateSelectingServices
	case StateSelectingDateTime:
		return StateSelectingStaff
	case StateEnteringDetails:
		return StateSelectingDateTime
	case StateReviewing:
		return StateEnteringDetails
	default:
		return ""
	}
}

// SlotsStatus is the tri-state of the loaded slot list; "none loaded yet"
// must never render the same as "loaded and empty".
type SlotsStatus string

const (
	SlotsIdle    SlotsStatus = "idle"
	SlotsLoading SlotsStatus = "loading"
	SlotsLoaded  SlotsStatus = "loaded"
	SlotsFailed  SlotsStatus = "failed"
)

// API is the remote surface the flow drives. Satisfied by *widgetapi.Client.
type API interface {
	AvailableDates(ctx context.Context, staffID int64, month string, services []widgetapi.ServiceRef) (*widgetapi.DatesResponse, error)
	AvailableSlots(ctx context.Context, staffID int64, date string, services []widgetapi.ServiceRef) (*widgetapi.SlotsResponse, error)
	Book(ctx context.Context, req widgetapi.BookRequest) (*widgetapi.Confirmation, error)
}

// Flow is one customer's booking attempt against one salon.
type Flow struct {
	ID        string
	Salon     *models.Salon
	StartedAt time.Time

	mu        sync.Mutex
	state     State
	fsm       *FSM
	api       API
	logger    zerolog.Logger
	now       func() time.Time
	updatedAt time.Time

	services []models.Service
	staff    *models.Staff

	month     availability.Month
	monthView *availability.MonthView
	monthSeq  uint64

	date        string
	slots       []string
	slotsStatus SlotsStatus
	slotSeq     uint64
	timeSlot    string

	details      *GuestDetails
	submitting   bool
	confirmation *widgetapi.Confirmation

	// Banner carries the user-facing failure message for the current
	// step; the conflict message is distinct from the generic one.
	Banner string
}

var (
	// ErrInvalidTransition is returned for moves the FSM forbids.
	ErrInvalidTransition = errors.New("invalid flow transition")
	// ErrSubmitInFlight is returned when a submission is already running;
	// repeated submits are no-ops, never duplicate bookings.
	ErrSubmitInFlight = errors.New("submission already in flight")
)

// NewFlow starts a flow at service selection for the given salon snapshot.
func NewFlow(id string, salon *models.Salon, api API, logger zerolog.Logger, now func() time.Time) *Flow {
	if now == nil {
		now = time.Now
	}
	f := &Flow{
		ID:        id,
		Salon:     salon,
		StartedAt: now(),
		state:     StateSelectingServices,
		fsm:       NewFSM(),
		api:       api,
		logger:    logger.With().Str("flow_id", id).Logger(),
		now:       now,
		month:     availability.MonthOf(now()),
	}
	f.updatedAt = f.StartedAt
	return f
}

// State returns the current step.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// IsExpired reports whether the flow has been idle longer than timeout.
func (f *Flow) IsExpired(timeout time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return time.Since(f.updatedAt) > timeout
}

func (f *Flow) touch() {
	f.updatedAt = f.now()
}

// transition moves the flow or fails with ErrInvalidTransition.
func (f *Flow) transition(to State) error {
	if !f.fsm.CanTransition(f.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, f.state, to)
	}
	f.state = to
	f.touch()
	return nil
}

// SelectServices records the customer's service selection and advances to
// staff selection. At least one service is required; zero-duration addons
// are valid members of the set.
func (f *Flow) SelectServices(serviceIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateSelectingServices {
		return fmt.Errorf("%w: select services in %s", ErrInvalidTransition, f.state)
	}
	if len(serviceIDs) == 0 {
		return errors.New("at least one service is required")
	}

	selected := make([]models.Service, 0, len(serviceIDs))
	for _, id := range serviceIDs {
		svc, ok := f.findService(id)
		if !ok {
			return fmt.Errorf("unknown service %d", id)
		}
		selected = append(selected, svc)
	}
	f.services = selected
	f.Banner = ""
	return f.transition(StateSelectingStaff)
}

// SelectStaff records the staff choice, advances to date/time selection and
// loads the current month's availability.
func (f *Flow) SelectStaff(ctx context.Context, staffID int64) error {
	f.mu.Lock()
	if f.state != StateSelectingStaff {
		f.mu.Unlock()
		return fmt.Errorf("%w: select staff in %s", ErrInvalidTransition, f.state)
	}
	staff, ok := f.findStaff(staffID)
	if !ok {
		f.mu.Unlock()
		return fmt.Errorf("unknown staff %d", staffID)
	}
	f.staff = &staff
	f.resetDateTime()
	f.Banner = ""
	if err := f.transition(StateSelectingDateTime); err != nil {
		f.mu.Unlock()
		return err
	}
	f.mu.Unlock()

	f.LoadMonth(ctx)
	return nil
}

// NavigateMonth moves the visible month by delta months (+1 / -1), rolling
// over year boundaries in both directions. The selected date and time and
// any loaded slots are dropped before the new month's availability request
// fires.
func (f *Flow) NavigateMonth(ctx context.Context, delta int) error {
	f.mu.Lock()
	if f.state != StateSelectingDateTime {
		f.mu.Unlock()
		return fmt.Errorf("%w: navigate month in %s", ErrInvalidTransition, f.state)
	}
	switch {
	case delta > 0:
		f.month = f.month.Next()
	case delta < 0:
		f.month = f.month.Prev()
	}
	f.resetDateTime()
	f.touch()
	f.mu.Unlock()

	f.LoadMonth(ctx)
	return nil
}

// LoadMonth requests the authoritative month classification and overlays
// it on the heuristic view. Requires staff and at least one selected
// service; otherwise it is a no-op. A failed request leaves the heuristic
// view standing so the grid always renders.
func (f *Flow) LoadMonth(ctx context.Context) {
	f.mu.Lock()
	if f.staff == nil || len(f.services) == 0 {
		f.mu.Unlock()
		return
	}
	f.monthSeq++
	seq := f.monthSeq
	month := f.month
	staffID := f.staff.ID
	services := f.serviceRefs()
	f.monthView = availability.HeuristicMonth(month, f.Salon.WorkingHours, f.now())
	f.monthView.Refine(f.daySchedule(), models.EffectiveDuration(f.services))
	f.mu.Unlock()

	resp, err := f.api.AvailableDates(ctx, staffID, month.Key(), services)

	f.mu.Lock()
	defer f.mu.Unlock()
	if seq != f.monthSeq || month != f.month {
		metrics.IncStaleDiscarded("month")
		return
	}
	if err != nil {
		f.logger.Error().Err(err).Str("month", month.Key()).Msg("month availability request failed")
		return
	}
	f.monthView.ApplyAuthoritative(resp.AvailableDates, resp.UnavailableDates)
}

// SelectDate picks a date in the visible month. Any previously selected
// time and loaded slot list are cleared before the slot request fires, so
// a stale selection can never survive a date change.
func (f *Flow) SelectDate(ctx context.Context, date string) error {
	f.mu.Lock()
	if f.state != StateSelectingDateTime {
		f.mu.Unlock()
		return fmt.Errorf("%w: select date in %s", ErrInvalidTransition, f.state)
	}
	if f.monthView == nil || !f.monthView.Selectable(date) {
		f.mu.Unlock()
		return fmt.Errorf("date %s is not selectable", date)
	}
	f.date = date
	f.timeSlot = ""
	f.slots = nil
	f.slotsStatus = SlotsLoading
	f.touch()
	f.mu.Unlock()

	f.LoadSlots(ctx)
	return nil
}

// LoadSlots requests the slot list for the currently selected date. A late
// response for a date the user has already left is discarded.
func (f *Flow) LoadSlots(ctx context.Context) {
	f.mu.Lock()
	if f.staff == nil || len(f.services) == 0 || f.date == "" {
		f.mu.Unlock()
		return
	}
	f.slotSeq++
	seq := f.slotSeq
	date := f.date
	staffID := f.staff.ID
	services := f.serviceRefs()
	f.slotsStatus = SlotsLoading
	f.mu.Unlock()

	resp, err := f.api.AvailableSlots(ctx, staffID, date, services)

	f.mu.Lock()
	defer f.mu.Unlock()
	if seq != f.slotSeq || date != f.date {
		metrics.IncStaleDiscarded("slots")
		return
	}
	if err != nil {
		f.logger.Error().Err(err).Str("date", date).Msg("slot request failed")
		f.slots = nil
		f.slotsStatus = SlotsFailed
		return
	}
	f.slots = resp.Slots
	f.slotsStatus = SlotsLoaded
}

// SelectTime picks a slot from the loaded list and advances to guest
// details.
func (f *Flow) SelectTime(timeSlot string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateSelectingDateTime {
		return fmt.Errorf("%w: select time in %s", ErrInvalidTransition, f.state)
	}
	if f.slotsStatus != SlotsLoaded {
		return errors.New("slots are not loaded")
	}
	found := false
	for _, s := range f.slots {
		if s == timeSlot {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("slot %s is not available", timeSlot)
	}
	f.timeSlot = timeSlot
	f.Banner = ""
	return f.transition(StateEnteringDetails)
}

// EnterDetails validates and records guest contact fields, then advances to
// review. Validation failures produce field-specific messages and no state
// change.
func (f *Flow) EnterDetails(details GuestDetails) (FieldErrors, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateEnteringDetails {
		return nil, fmt.Errorf("%w: enter details in %s", ErrInvalidTransition, f.state)
	}
	if fieldErrs := ValidateGuestDetails(details); len(fieldErrs) > 0 {
		return fieldErrs, nil
	}
	f.details = &details
	return nil, f.transition(StateReviewing)
}

// Back moves to the immediately prior step. Leaving the details step back
// to date/time treats the cached availability as stale and re-fetches the
// month.
func (f *Flow) Back(ctx context.Context) error {
	f.mu.Lock()
	if f.state.Terminal() || f.submitting {
		f.mu.Unlock()
		return fmt.Errorf("%w: back in %s", ErrInvalidTransition, f.state)
	}
	to := prior(f.state)
	if to == "" {
		f.mu.Unlock()
		return fmt.Errorf("%w: back in %s", ErrInvalidTransition, f.state)
	}
	refetch := f.state == StateEnteringDetails
	if refetch {
		f.resetDateTime()
	}
	f.state = to
	f.Banner = ""
	f.touch()
	f.mu.Unlock()

	if refetch {
		f.LoadMonth(ctx)
	}
	return nil
}

// Submit sends the booking once. While a submission is in flight further
// submits are rejected with ErrSubmitInFlight. Outcomes:
//   - success: the flow is Confirmed, terminal;
//   - slot taken: selected time and slot list are dropped, the flow
//     returns to date/time selection with a conflict banner and a fresh
//     slot request for the same date is issued immediately;
//   - anything else: the flow returns to review with a generic banner so
//     the user can retry without re-selecting.
func (f *Flow) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateReviewing {
		f.mu.Unlock()
		return fmt.Errorf("%w: submit in %s", ErrInvalidTransition, f.state)
	}
	if f.submitting {
		f.mu.Unlock()
		return ErrSubmitInFlight
	}
	f.submitting = true
	if err := f.transition(StateSubmitting); err != nil {
		f.submitting = false
		f.mu.Unlock()
		return err
	}
	req := f.bookRequest()
	f.mu.Unlock()

	conf, err := f.api.Book(ctx, req)

	f.mu.Lock()
	f.submitting = false
	if err == nil {
		f.confirmation = conf
		f.state = StateConfirmed
		f.Banner = ""
		f.touch()
		f.mu.Unlock()
		return nil
	}

	if widgetapi.IsSlotTaken(err) {
		f.logger.Warn().Str("date", f.date).Str("time", f.timeSlot).Msg("slot taken during submission")
		f.timeSlot = ""
		f.slots = nil
		f.slotsStatus = SlotsLoading
		f.state = StateSelectingDateTime
		f.Banner = "The selected time was just booked by someone else. Please pick another slot."
		f.touch()
		f.mu.Unlock()
		// Corrected options for the same date, immediately.
		f.LoadSlots(ctx)
		return err
	}

	f.logger.Error().Err(err).Msg("booking submission failed")
	f.state = StateReviewing
	f.Banner = "Something went wrong while booking. Please try again."
	f.touch()
	f.mu.Unlock()
	return err
}

// bookRequest builds the submission payload; caller holds the lock.
func (f *Flow) bookRequest() widgetapi.BookRequest {
	services := make([]widgetapi.BookServiceRef, len(f.services))
	for i, s := range f.services {
		services[i] = widgetapi.BookServiceRef{ID: s.ID}
	}
	req := widgetapi.BookRequest{
		SalonID:  f.Salon.ID,
		StaffID:  f.staff.ID,
		Services: services,
		Date:     f.date,
		Time:     f.timeSlot,
	}
	if f.details != nil {
		req.GuestName = f.details.Name
		req.GuestPhone = f.details.Phone
		req.GuestEmail = f.details.Email
		req.GuestAddress = f.details.Address
		req.Notes = f.details.Notes
	}
	return req
}

// resetDateTime drops the date, time and slot list; caller holds the lock.
func (f *Flow) resetDateTime() {
	f.date = ""
	f.timeSlot = ""
	f.slots = nil
	f.slotsStatus = SlotsIdle
}

func (f *Flow) serviceRefs() []widgetapi.ServiceRef {
	refs := make([]widgetapi.ServiceRef, len(f.services))
	for i, s := range f.services {
		refs[i] = widgetapi.ServiceRef{ServiceID: s.ID, Duration: s.Duration}
	}
	return refs
}

// daySchedule assembles the offline schedule for the selected staff member
// from bootstrap data; caller holds the lock and guarantees f.staff != nil.
// Existing appointments are absent on purpose: only the server knows them.
func (f *Flow) daySchedule() availability.DaySchedule {
	vacations := append([]models.Vacation{}, f.Salon.Vacations...)
	vacations = append(vacations, f.staff.Vacations...)
	return availability.DaySchedule{
		SalonHours:  f.Salon.WorkingHours,
		StaffHours:  f.staff.WorkingHours,
		SalonBreaks: f.Salon.Breaks,
		StaffBreaks: f.staff.Breaks,
		Vacations:   vacations,
		Granularity: f.Salon.Settings.SlotGranularityMinutes,
	}
}

func (f *Flow) findService(id int64) (models.Service, bool) {
	for _, s := range f.Salon.Services {
		if s.ID == id {
			return s, true
		}
	}
	return models.Service{}, false
}

func (f *Flow) findStaff(id int64) (models.Staff, bool) {
	for _, s := range f.Salon.Staff {
		if s.ID == id {
			return s, true
		}
	}
	return models.Staff{}, false
}

// Snapshot is a read-only view of the flow for rendering.
type Snapshot struct {
	ID            string                    `json:"id"`
	State         State                     `json:"state"`
	Services      []models.Service          `json:"services,omitempty"`
	StaffID       int64                     `json:"staff_id,omitempty"`
	Month         string                    `json:"month"`
	Calendar      *availability.MonthView   `json:"calendar,omitempty"`
	Date          string                    `json:"date,omitempty"`
	SlotsStatus   SlotsStatus               `json:"slots_status"`
	Slots         []string                  `json:"slots,omitempty"`
	Time          string                    `json:"time,omitempty"`
	EffectiveMins int                       `json:"effective_duration_minutes"`
	Total         float64                   `json:"total"`
	Banner        string                    `json:"banner,omitempty"`
	Confirmation  *widgetapi.Confirmation   `json:"confirmation,omitempty"`
}

// Snapshot returns the current rendering view.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := Snapshot{
		ID:            f.ID,
		State:         f.state,
		Services:      f.services,
		Month:         f.month.Key(),
		Calendar:      f.monthView,
		Date:          f.date,
		SlotsStatus:   f.slotsStatus,
		Slots:         f.slots,
		Time:          f.timeSlot,
		EffectiveMins: models.EffectiveDuration(f.services),
		Total:         models.SelectionTotal(f.services),
		Banner:        f.Banner,
		Confirmation:  f.confirmation,
	}
	if f.staff != nil {
		snap.StaffID = f.staff.ID
	}
	return snap
}
