package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/hybrid-work/internal/application"
	"github.com/example/hybrid-work/internal/persistence"
)

type presenceService interface {
	Upsert(ctx context.Context, principal application.Principal, input application.PresenceInput) (persistence.Presence, error)
	ListByFloor(ctx context.Context, floorID string) ([]persistence.PresenceDetail, error)
	ListByUsers(ctx context.Context, userIDs []string) ([]persistence.PresenceDetail, error)
}

// PresenceHandler serves who is online and where.
type PresenceHandler struct {
	service   presenceService
	responder responder
	logger    *slog.Logger
}

func NewPresenceHandler(service presenceService, logger *slog.Logger) *PresenceHandler {
	base := defaultLogger(logger)
	return &PresenceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *PresenceHandler) ListByFloor(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListByFloor(r.Context(), r.URL.Query().Get("floor"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPresenceDetailDTOs(rows))
}

func (h *PresenceHandler) ListByUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.ListByUsers(r.Context(), idsParam(r.URL.Query(), "userIds"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPresenceDetailDTOs(rows))
}

func (h *PresenceHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req upsertPresenceRequest
	if err := decodeJSON(r, &req, true); err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	req.Location = strings.ToUpper(strings.TrimSpace(req.Location))
	if err := validateRequest(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	presence, err := h.service.Upsert(r.Context(), principal, application.PresenceInput{
		Status:   req.Status,
		Location: req.Location,
		DeskID:   req.DeskID,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "PresenceHandler", "Upsert", "status", presence.Status, "location", presence.Location).
		InfoContext(r.Context(), "presence updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPresenceDTO(presence))
}

type upsertPresenceRequest struct {
	Status   string  `json:"status" validate:"omitempty,oneof=ONLINE AWAY DND OFFLINE"`
	Location string  `json:"location" validate:"omitempty,oneof=OFFICE REMOTE"`
	DeskID   *string `json:"deskId"`
}
