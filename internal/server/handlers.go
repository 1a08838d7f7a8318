package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/frizerino/widget-gateway/internal/booking"
	"github.com/frizerino/widget-gateway/internal/metrics"
	"github.com/frizerino/widget-gateway/internal/widgetapi"
)

type createSessionRequest struct {
	SalonSlug string `json:"salon_slug"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SalonSlug == "" {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, errResponse(CodeBadRequest, "salon_slug is required"))
		return
	}

	salon, err := s.api.Bootstrap(r.Context(), req.SalonSlug)
	if err != nil {
		s.logger.Error().Err(err).Str("slug", req.SalonSlug).Msg("widget bootstrap failed")
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, errResponse(CodeRequestFailed, "failed to load salon"))
		return
	}

	// The gateway's configured granularity serves salons that do not set
	// their own.
	if salon.Settings.SlotGranularityMinutes <= 0 {
		salon.Settings.SlotGranularityMinutes = s.gran
	}

	id := uuid.NewString()
	if s.newID != nil {
		id = s.newID()
	}
	flow := booking.NewFlow(id, salon, s.api, s.logger, s.now)
	s.flows.Put(flow)
	metrics.IncSessionStarted()

	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, flow.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	flow := s.flow(w, r)
	if flow == nil {
		return
	}
	render.JSON(w, r, flow.Snapshot())
}

type selectServicesRequest struct {
	ServiceIDs []int64 `json:"service_ids"`
}

func (s *Server) handleSelectServices(w http.ResponseWriter, r *http.Request) {
	flow := s.flow(w, r)
	if flow == nil {
		return
	}
	var req selectServicesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, errResponse(CodeBadRequest, "invalid JSON body"))
		return
	}
	if err := flow.SelectServices(req.ServiceIDs); err != nil {
		s.writeFlowError(w, r, err)
		return
	}
	render.JSON(w, r, flow.Snapshot())
}

type selectStaffRequest struct {
	StaffID int64 `json:"staff_id"`
}

func (s *Server) handleSelectStaff(w http.ResponseWriter, r *http.Request) {
	flow := s.flow(w, r)
	if flow == nil {
		return
	}
	var req selectStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, errResponse(CodeBadRequest, "invalid JSON body"))
		return
	}
	if err := flow.SelectStaff(r.Context(), req.StaffID); err != nil {
		s.writeFlowError(w, r, err)
		return
	}
	render.JSON(w, r, flow.Snapshot())
}

type navigateMonthRequest struct {
	Direction string `json:"direction"` // "next" or "prev"
}

func (s *Server) handleNavigateMonth(w http.ResponseWriter, r *http.Request) {
	flow := s.flow(w, r)
	if flow == nil {
		return
	}
	var req navigateMonthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, errResponse(CodeBadRequest, "invalid JSON body"))
		return
	}
	delta := 0
	switch req.Direction {
	case "next":
		delta = 1
	case "prev":
		delta = -1
	default:
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, errResponse(CodeBadRequest, "direction must be next or prev"))
		return
	}
	if err := flow.NavigateMonth(r.Context(), delta); err != nil {
		s.writeFlowError(w, r, err)
		return
	}
	render.JSON(w, r, flow.Snapshot())
}

type selectDateRequest struct {
	Date string `json:"date"` // YYYY-MM-DD
}

func (s *Server) handleSelectDate(w http.ResponseWriter, r *http.Request) {
	flow := s.flow(w, r)
	if flow == nil {
		return
	}
	var req selectDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, errResponse(CodeBadRequest, "invalid JSON body"))
		return
	}
	if err := flow.SelectDate(r.Context(), req.Date); err != nil {
		s.writeFlowError(w, r, err)
		return
	}
	render.JSON(w, r, flow.Snapshot())
}

type selectTimeRequest struct {
	Time string `json:"time"` // HH:MM
}

func (s *Server) handleSelectTime(w http.ResponseWriter, r *http.Request) {
	flow := s.flow(w, r)
	if flow == nil {
		return
	}
	var req selectTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, errResponse(CodeBadRequest, "invalid JSON body"))
		return
	}
	if err := flow.SelectTime(req.Time); err != nil {
		s.writeFlowError(w, r, err)
		return
	}
	render.JSON(w, r, flow.Snapshot())
}

func (s *Server) handleEnterDetails(w http.ResponseWriter, r *http.Request) {
	flow := s.flow(w, r)
	if flow == nil {
		return
	}
	var details booking.GuestDetails
	if err := json.NewDecoder(r.Body).Decode(&details); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, errResponse(CodeBadRequest, "invalid JSON body"))
		return
	}
	fieldErrs, err := flow.EnterDetails(details)
	if err != nil {
		s.writeFlowError(w, r, err)
		return
	}
	if len(fieldErrs) > 0 {
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, validationResponse(fieldErrs))
		return
	}
	render.JSON(w, r, flow.Snapshot())
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	flow := s.flow(w, r)
	if flow == nil {
		return
	}
	if err := flow.Back(r.Context()); err != nil {
		s.writeFlowError(w, r, err)
		return
	}
	render.JSON(w, r, flow.Snapshot())
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	flow := s.flow(w, r)
	if flow == nil {
		return
	}
	err := flow.Submit(r.Context())
	switch {
	case err == nil:
		render.JSON(w, r, flow.Snapshot())
	case errors.Is(err, booking.ErrSubmitInFlight):
		// Double-click; the first submission is still running.
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, errResponse(CodeRequestFailed, "submission already in progress"))
	case widgetapi.IsSlotTaken(err):
		// The flow has already rolled back to time selection and
		// requested a fresh slot list; the snapshot reflects that.
		w.WriteHeader(http.StatusConflict)
		resp := errResponse(CodeSlotTaken,
			"The selected time was just booked by someone else. Please pick another slot.")
		render.JSON(w, r, struct {
			ErrResponse
			Session booking.Snapshot `json:"session"`
		}{resp, flow.Snapshot()})
	case errors.Is(err, booking.ErrInvalidTransition):
		s.writeFlowError(w, r, err)
	default:
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, struct {
			ErrResponse
			Session booking.Snapshot `json:"session"`
		}{errResponse(CodeRequestFailed, "Something went wrong while booking. Please try again."), flow.Snapshot()})
	}
}

func (s *Server) writeFlowError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, booking.ErrInvalidTransition) {
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, errResponse(CodeInvalidTransition, err.Error()))
		return
	}
	w.WriteHeader(http.StatusBadRequest)
	render.JSON(w, r, errResponse(CodeBadRequest, err.Error()))
}
