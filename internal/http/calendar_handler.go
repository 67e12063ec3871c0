package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/hybrid-work/internal/application"
	"github.com/example/hybrid-work/internal/persistence"
)

// DefaultAvailabilityHorizon bounds the availability search when the caller gives none.
const DefaultAvailabilityHorizon = 8 * time.Hour

type calendarService interface {
	EventsForUser(ctx context.Context, params application.CalendarRangeParams) ([]persistence.CalendarEvent, error)
	AvailabilityBlocks(ctx context.Context, params application.CalendarRangeParams) ([]persistence.AvailabilityBlock, error)
	CreateEvent(ctx context.Context, params application.CreateEventParams) (persistence.CalendarEvent, error)
	UpdateEvent(ctx context.Context, params application.UpdateEventParams) (persistence.CalendarEvent, error)
	DeleteEvent(ctx context.Context, principal application.Principal, eventID string) error
	CreateBlock(ctx context.Context, params application.CreateBlockParams) (persistence.AvailabilityBlock, error)
	ActiveBlocks(ctx context.Context, principal application.Principal, userIDs []string) ([]persistence.AvailabilityBlock, error)
	NextAvailability(ctx context.Context, userIDs []string, now, horizon time.Time) ([]application.Availability, error)
	ListScheduleRequests(ctx context.Context, principal application.Principal, scope application.RequestScope) ([]persistence.ScheduleRequest, error)
	CreateScheduleRequest(ctx context.Context, params application.CreateScheduleRequestParams) (persistence.ScheduleRequest, error)
	UpdateScheduleRequestStatus(ctx context.Context, params application.DecideScheduleRequestParams) (persistence.ScheduleRequest, error)
}

// CalendarHandler serves events, availability blocks and schedule requests.
type CalendarHandler struct {
	service   calendarService
	responder responder
	logger    *slog.Logger
	now       func() time.Time
}

func NewCalendarHandler(service calendarService, logger *slog.Logger, now func() time.Time) *CalendarHandler {
	base := defaultLogger(logger)
	if now == nil {
		now = time.Now
	}
	return &CalendarHandler{service: service, responder: newResponder(base), logger: base, now: now}
}

func (h *CalendarHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "CalendarHandler", operation, attrs...)
}

func (h *CalendarHandler) rangeParams(r *http.Request) (application.CalendarRangeParams, error) {
	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()
	vErr := &application.ValidationError{}
	params := application.CalendarRangeParams{
		Principal: principal,
		OwnerID:   query.Get("owner"),
		From:      timeParam(query, "from", vErr),
		To:        timeParam(query, "to", vErr),
	}
	if vErr.HasErrors() {
		return params, vErr
	}
	return params, nil
}

func (h *CalendarHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	params, err := h.rangeParams(r)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	events, err := h.service.EventsForUser(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]eventDTO, len(events))
	for i, event := range events {
		out[i] = toEventDTO(event)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

func (h *CalendarHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req createEventRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	event, err := h.service.CreateEvent(r.Context(), application.CreateEventParams{
		Principal: principal,
		Input: application.EventInput{
			OwnerID:    req.OwnerID,
			Title:      req.Title,
			StartsAt:   req.StartsAt,
			EndsAt:     req.EndsAt,
			Location:   req.Location,
			Visibility: req.Visibility,
		},
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "CreateEvent", "event_id", event.ID).InfoContext(r.Context(), "event created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toEventDTO(application.MaskEventForViewer(event, principal.UserID)))
}

func (h *CalendarHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	eventID := chi.URLParam(r, "id")

	var req updateEventRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	event, err := h.service.UpdateEvent(r.Context(), application.UpdateEventParams{
		Principal: principal,
		EventID:   eventID,
		Patch: application.EventPatch{
			Title:      req.Title,
			StartsAt:   req.StartsAt,
			EndsAt:     req.EndsAt,
			Location:   req.Location,
			Visibility: req.Visibility,
		},
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "UpdateEvent", "event_id", event.ID).InfoContext(r.Context(), "event updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEventDTO(application.MaskEventForViewer(event, principal.UserID)))
}

func (h *CalendarHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	eventID := chi.URLParam(r, "id")

	if err := h.service.DeleteEvent(r.Context(), principal, eventID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "DeleteEvent", "event_id", eventID).InfoContext(r.Context(), "event deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, idResponse{ID: eventID})
}

func (h *CalendarHandler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	params, err := h.rangeParams(r)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	blocks, err := h.service.AvailabilityBlocks(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBlockDTOs(blocks))
}

func (h *CalendarHandler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req createBlockRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	block, err := h.service.CreateBlock(r.Context(), application.CreateBlockParams{
		Principal: principal,
		Input: application.BlockInput{
			StartsAt:   req.StartsAt,
			EndsAt:     req.EndsAt,
			Kind:       req.Kind,
			Visibility: req.Visibility,
		},
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "CreateBlock", "block_id", block.ID).InfoContext(r.Context(), "availability block created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toBlockDTOs([]persistence.AvailabilityBlock{block})[0])
}

func (h *CalendarHandler) ActiveBlocks(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	blocks, err := h.service.ActiveBlocks(r.Context(), principal, idsParam(r.URL.Query(), "userIds"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBlockDTOs(blocks))
}

func (h *CalendarHandler) Availability(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	vErr := &application.ValidationError{}
	userIDs := idsParam(query, "userIds")
	if len(userIDs) == 0 {
		vErr.Add("userIds", "userIds is required")
	}
	now := h.now()
	horizon := now.Add(DefaultAvailabilityHorizon)
	if parsed := timeParam(query, "horizon", vErr); parsed != nil {
		horizon = *parsed
	}
	if vErr.HasErrors() {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	result, err := h.service.NextAvailability(r.Context(), userIDs, now, horizon)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]availabilityDTO, len(result))
	for i, a := range result {
		out[i] = availabilityDTO{UserID: a.UserID, AvailableAt: a.AvailableAt.UTC()}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

func (h *CalendarHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	scope := application.RequestScope(strings.TrimSpace(r.URL.Query().Get("scope")))

	requests, err := h.service.ListScheduleRequests(r.Context(), principal, scope)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]scheduleRequestDTO, len(requests))
	for i, req := range requests {
		out[i] = toScheduleRequestDTO(req)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

func (h *CalendarHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req createScheduleRequestRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "CreateRequest", "target_user_id", req.TargetUserID)
	request, err := h.service.CreateScheduleRequest(r.Context(), application.CreateScheduleRequestParams{
		Principal:    principal,
		TargetUserID: req.TargetUserID,
		Draft:        req.draft(),
		Notes:        req.Notes,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("request_id", request.ID).InfoContext(r.Context(), "schedule request created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toScheduleRequestDTO(request))
}

func (h *CalendarHandler) DecideRequest(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	requestID := chi.URLParam(r, "id")

	var req decideRequestRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	request, err := h.service.UpdateScheduleRequestStatus(r.Context(), application.DecideScheduleRequestParams{
		Principal: principal,
		RequestID: requestID,
		Status:    req.Status,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "DecideRequest", "request_id", requestID, "status", request.Status).InfoContext(r.Context(), "schedule request decided")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toScheduleRequestDTO(request))
}

type createEventRequest struct {
	OwnerID    string    `json:"ownerId"`
	Title      string    `json:"title" validate:"required"`
	StartsAt   time.Time `json:"startsAt" validate:"required"`
	EndsAt     time.Time `json:"endsAt" validate:"required"`
	Location   *string   `json:"location"`
	Visibility string    `json:"visibility" validate:"omitempty,oneof=PRIVATE FREEBUSY PUBLIC"`
}

type updateEventRequest struct {
	Title      *string    `json:"title"`
	StartsAt   *time.Time `json:"startsAt"`
	EndsAt     *time.Time `json:"endsAt"`
	Location   *string    `json:"location"`
	Visibility *string    `json:"visibility" validate:"omitempty,oneof=PRIVATE FREEBUSY PUBLIC"`
}

type createBlockRequest struct {
	StartsAt   time.Time `json:"startsAt" validate:"required"`
	EndsAt     time.Time `json:"endsAt" validate:"required"`
	Kind       string    `json:"kind" validate:"required,oneof=REST FOCUS OOO"`
	Visibility string    `json:"visibility" validate:"omitempty,oneof=PRIVATE FREEBUSY PUBLIC"`
}

// createScheduleRequestRequest carries the proposed event flat; the draft
// fields are stored as an unstructured object.
type createScheduleRequestRequest struct {
	TargetUserID string  `json:"targetUserId" validate:"required"`
	Title        string  `json:"title"`
	StartsAt     string  `json:"startsAt"`
	EndsAt       string  `json:"endsAt"`
	Location     *string `json:"location"`
	Visibility   string  `json:"visibility" validate:"omitempty,oneof=PRIVATE FREEBUSY PUBLIC"`
	Notes        *string `json:"notes"`
}

func (req createScheduleRequestRequest) draft() map[string]any {
	draft := map[string]any{}
	if title := strings.TrimSpace(req.Title); title != "" {
		draft["title"] = title
	}
	if req.StartsAt != "" {
		draft["startsAt"] = req.StartsAt
	}
	if req.EndsAt != "" {
		draft["endsAt"] = req.EndsAt
	}
	if req.Location != nil {
		draft["location"] = *req.Location
	}
	if req.Visibility != "" {
		draft["visibility"] = req.Visibility
	}
	return draft
}

type decideRequestRequest struct {
	Status string `json:"status" validate:"required"`
}

type idResponse struct {
	ID string `json:"id"`
}
