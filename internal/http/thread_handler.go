package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/hybrid-work/internal/application"
	"github.com/example/hybrid-work/internal/persistence"
)

type messagingService interface {
	CreateThread(ctx context.Context, params application.CreateThreadParams) (application.ThreadView, error)
	CreateMessage(ctx context.Context, params application.CreateMessageParams) (persistence.Message, error)
	ListThreads(ctx context.Context, principal application.Principal) ([]application.ThreadView, error)
	ListMessages(ctx context.Context, params application.ListMessagesParams) ([]persistence.Message, error)
}

// ThreadHandler serves conversations and their messages.
type ThreadHandler struct {
	service   messagingService
	responder responder
	logger    *slog.Logger
}

func NewThreadHandler(service messagingService, logger *slog.Logger) *ThreadHandler {
	base := defaultLogger(logger)
	return &ThreadHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ThreadHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ThreadHandler", operation, attrs...)
}

func (h *ThreadHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	views, err := h.service.ListThreads(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]threadDTO, len(views))
	for i, view := range views {
		out[i] = toThreadDTO(view)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

func (h *ThreadHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req createThreadRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	view, err := h.service.CreateThread(r.Context(), application.CreateThreadParams{
		Principal:      principal,
		Type:           strings.ToUpper(strings.TrimSpace(req.Type)),
		ParticipantIDs: req.ParticipantIDs,
		Topic:          req.Topic,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "thread_id", view.ID).InfoContext(r.Context(), "thread opened")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toThreadDTO(view))
}

func (h *ThreadHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	take := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("take")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.responder.handleServiceError(r.Context(), w, application.NewValidationError("take", "take must be an integer"))
			return
		}
		take = parsed
	}

	messages, err := h.service.ListMessages(r.Context(), application.ListMessagesParams{
		Principal: principal,
		ThreadID:  chi.URLParam(r, "id"),
		Take:      take,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]messageDTO, len(messages))
	for i, msg := range messages {
		out[i] = toMessageDTO(msg)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

func (h *ThreadHandler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	threadID := chi.URLParam(r, "id")

	var req createMessageRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.responder.badRequest(r.Context(), w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	msg, err := h.service.CreateMessage(r.Context(), application.CreateMessageParams{
		Principal:   principal,
		ThreadID:    threadID,
		Body:        req.Body,
		Attachments: req.Attachments,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "CreateMessage", "thread_id", threadID, "message_id", msg.ID).InfoContext(r.Context(), "message posted")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toMessageDTO(msg))
}

type createThreadRequest struct {
	Type           string   `json:"type" validate:"required"`
	ParticipantIDs []string `json:"participantIds" validate:"required,min=1"`
	Topic          *string  `json:"topic"`
}

type createMessageRequest struct {
	Body        string         `json:"body" validate:"required"`
	Attachments map[string]any `json:"attachments"`
}
