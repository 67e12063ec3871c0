package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/hybrid-work/internal/application"
	"github.com/example/hybrid-work/internal/persistence"
)

type deskService interface {
	ListDesks(ctx context.Context, floorID string) ([]application.DeskView, error)
	CreateDesk(ctx context.Context, principal application.Principal, input application.DeskInput) (persistence.Desk, error)
	ReserveDesk(ctx context.Context, params application.ReserveDeskParams) (persistence.DeskReservation, error)
	CancelReservation(ctx context.Context, principal application.Principal, reservationID string) (persistence.DeskReservation, error)
}

// DeskHandler serves the floor plan and desk reservations.
type DeskHandler struct {
	service   deskService
	responder responder
	logger    *slog.Logger
}

func NewDeskHandler(service deskService, logger *slog.Logger) *DeskHandler {
	base := defaultLogger(logger)
	return &DeskHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *DeskHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "DeskHandler", operation, attrs...)
}

func (h *DeskHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListDesks(r.Context(), r.URL.Query().Get("floor"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]deskDTO, len(views))
	for i, view := range views {
		out[i] = toDeskDTO(view.Desk, view.Reservations)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

func (h *DeskHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req createDeskRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	desk, err := h.service.CreateDesk(r.Context(), principal, application.DeskInput{
		FloorID: req.FloorID,
		Label:   req.Label,
		X:       req.X,
		Y:       req.Y,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "desk_id", desk.ID).InfoContext(r.Context(), "desk created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toDeskDTO(desk, nil))
}

func (h *DeskHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	deskID := chi.URLParam(r, "id")

	var req reserveDeskRequest
	if err := decodeJSON(r, &req, true); err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Reserve", "desk_id", deskID)
	reservation, err := h.service.ReserveDesk(r.Context(), application.ReserveDeskParams{
		Principal: principal,
		DeskID:    deskID,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "reservation rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("reservation_id", reservation.ID).InfoContext(r.Context(), "desk reserved")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toReservationDTO(reservation, ""))
}

func (h *DeskHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	reservationID := chi.URLParam(r, "reservationID")

	reservation, err := h.service.CancelReservation(r.Context(), principal, reservationID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Cancel", "reservation_id", reservationID).InfoContext(r.Context(), "reservation cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationDTO(reservation, ""))
}

type createDeskRequest struct {
	FloorID string `json:"floorId" validate:"required"`
	Label   string `json:"label" validate:"required"`
	X       int    `json:"x" validate:"gte=0"`
	Y       int    `json:"y" validate:"gte=0"`
}

type reserveDeskRequest struct {
	StartsAt *time.Time `json:"startsAt"`
	EndsAt   *time.Time `json:"endsAt"`
}
