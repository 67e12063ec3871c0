package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/hybrid-work/internal/interval"
	"github.com/example/hybrid-work/internal/persistence"
)

// DefaultReservationWindow is the reservation length used when no end is given.
const DefaultReservationWindow = 4 * time.Hour

// DeskServiceDeps lists the collaborators of DeskService.
type DeskServiceDeps struct {
	Desks         persistence.DeskRepository
	Presence      persistence.PresenceRepository
	Transactor    persistence.Transactor
	Publisher     Publisher
	IDGenerator   func() string
	Now           func() time.Time
	DefaultWindow time.Duration
}

// DeskService manages desks and their reservations.
type DeskService struct {
	desks         persistence.DeskRepository
	presence      persistence.PresenceRepository
	tx            persistence.Transactor
	publisher     Publisher
	idGenerator   func() string
	now           func() time.Time
	defaultWindow time.Duration
	logger        *slog.Logger
}

// NewDeskService constructs a DeskService.
func NewDeskService(deps DeskServiceDeps) *DeskService {
	return NewDeskServiceWithLogger(deps, nil)
}

// NewDeskServiceWithLogger constructs a DeskService with a specified logger.
func NewDeskServiceWithLogger(deps DeskServiceDeps, logger *slog.Logger) *DeskService {
	window := deps.DefaultWindow
	if window <= 0 {
		window = DefaultReservationWindow
	}
	return &DeskService{
		desks:         deps.Desks,
		presence:      deps.Presence,
		tx:            defaultTransactor(deps.Transactor),
		publisher:     defaultPublisher(deps.Publisher),
		idGenerator:   defaultIDGenerator(deps.IDGenerator),
		now:           defaultNow(deps.Now),
		defaultWindow: window,
		logger:        defaultLogger(logger),
	}
}

func (s *DeskService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "DeskService", operation, attrs...)
}

// ListDesks returns desks, optionally on one floor, each with the reservations
// active right now.
func (s *DeskService) ListDesks(ctx context.Context, floorID string) (views []DeskView, err error) {
	if s == nil {
		return nil, nilService("DeskService")
	}
	floorID = strings.TrimSpace(floorID)
	logger := s.loggerWith(ctx, "ListDesks", "floor_id", floorID)
	defer func() {
		logOutcome(ctx, logger, err, "desks listed", "count", len(views))
	}()

	desks, err := s.desks.ListDesks(ctx, floorID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	views = make([]DeskView, 0, len(desks))
	if len(desks) == 0 {
		return views, nil
	}

	ids := make([]string, len(desks))
	for i, desk := range desks {
		ids[i] = desk.ID
	}
	active, err := s.desks.ListActiveReservationsAt(ctx, ids, s.now())
	if err != nil {
		return nil, mapRepoError(err)
	}
	byDesk := make(map[string][]persistence.ReservationDetail, len(active))
	for _, reservation := range active {
		byDesk[reservation.DeskID] = append(byDesk[reservation.DeskID], reservation)
	}

	for _, desk := range desks {
		reservations := byDesk[desk.ID]
		if reservations == nil {
			reservations = []persistence.ReservationDetail{}
		}
		views = append(views, DeskView{Desk: desk, Reservations: reservations})
	}
	return views, nil
}

// CreateDesk adds a desk to a floor. Administrators only.
func (s *DeskService) CreateDesk(ctx context.Context, principal Principal, input DeskInput) (desk persistence.Desk, err error) {
	if s == nil {
		err = nilService("DeskService")
		return
	}
	logger := s.loggerWith(ctx, "CreateDesk", "principal_id", principal.UserID, "floor_id", input.FloorID)
	defer func() {
		logOutcome(ctx, logger, err, "desk created", "desk_id", desk.ID)
	}()

	if err = requireAdmin(principal); err != nil {
		return
	}
	vErr := &ValidationError{}
	floorID := strings.TrimSpace(input.FloorID)
	label := strings.TrimSpace(input.Label)
	if floorID == "" {
		vErr.add("floorId", "floorId is required")
	}
	if label == "" {
		vErr.add("label", "label is required")
	}
	if err = vErr.orNil(); err != nil {
		return
	}

	desk = persistence.Desk{
		ID:        s.idGenerator(),
		FloorID:   floorID,
		Label:     label,
		X:         input.X,
		Y:         input.Y,
		CreatedAt: s.now(),
	}
	if err = s.desks.CreateDesk(ctx, desk); err != nil {
		err = mapRepoError(err)
		desk = persistence.Desk{}
	}
	return
}

// ReserveDesk books a desk for the principal and moves their presence to it.
// The overlap check and the insert share one write transaction.
func (s *DeskService) ReserveDesk(ctx context.Context, params ReserveDeskParams) (reservation persistence.DeskReservation, err error) {
	if s == nil {
		err = nilService("DeskService")
		return
	}
	logger := s.loggerWith(ctx, "ReserveDesk", "principal_id", params.Principal.UserID, "desk_id", params.DeskID)
	defer func() {
		logOutcome(ctx, logger, err, "desk reserved", "reservation_id", reservation.ID)
	}()

	if err = requirePrincipal(params.Principal); err != nil {
		return
	}

	now := s.now()
	start := now
	if params.StartsAt != nil {
		start = *params.StartsAt
	}
	end := start.Add(s.defaultWindow)
	if params.EndsAt != nil {
		end = *params.EndsAt
	}
	// Stored bounds have second precision; check the same window that is stored.
	candidate := interval.Span{Start: start.UTC(), End: end.UTC()}.Truncate(time.Second)
	if !candidate.Valid() {
		err = NewValidationError("endsAt", "endsAt must be after startsAt")
		return
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.desks.GetDesk(ctx, params.DeskID); err != nil {
			return mapRepoError(err)
		}

		existing, err := s.desks.FindOverlappingReservation(ctx, params.DeskID, candidate.Start, candidate.End)
		switch {
		case err == nil:
			return fmt.Errorf("%w: desk is already reserved by %s", ErrConflict, existing.ID)
		case !errors.Is(err, persistence.ErrNotFound):
			return mapRepoError(err)
		}

		reservation = persistence.DeskReservation{
			ID:        s.idGenerator(),
			DeskID:    params.DeskID,
			UserID:    params.Principal.UserID,
			StartsAt:  candidate.Start,
			EndsAt:    candidate.End,
			Status:    persistence.ReservationActive,
			CreatedAt: now,
		}
		if err := s.desks.CreateReservation(ctx, reservation); err != nil {
			return mapRepoError(err)
		}

		status := persistence.PresenceOnline
		current, err := s.presence.GetPresence(ctx, params.Principal.UserID)
		switch {
		case err == nil:
			status = current.Status
		case !errors.Is(err, persistence.ErrNotFound):
			return mapRepoError(err)
		}
		deskID := params.DeskID
		if err := s.presence.UpsertPresence(ctx, persistence.Presence{
			UserID:   params.Principal.UserID,
			Status:   status,
			Location: persistence.LocationOffice,
			DeskID:   &deskID,
			LastSeen: now,
		}); err != nil {
			return mapRepoError(err)
		}
		return nil
	})
	if err != nil {
		reservation = persistence.DeskReservation{}
		return
	}

	s.publisher.Publish(nil, EventDeskReservationsChanged, reservation)
	return
}

// CancelReservation cancels one of the principal's reservations. Cancelling
// twice is a no-op. When the principal's presence still points at the desk it
// is reset to REMOTE.
func (s *DeskService) CancelReservation(ctx context.Context, principal Principal, reservationID string) (reservation persistence.DeskReservation, err error) {
	if s == nil {
		err = nilService("DeskService")
		return
	}
	logger := s.loggerWith(ctx, "CancelReservation", "principal_id", principal.UserID, "reservation_id", reservationID)
	defer func() {
		logOutcome(ctx, logger, err, "reservation cancelled")
	}()

	if err = requirePrincipal(principal); err != nil {
		return
	}

	changed := false
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.desks.GetReservation(ctx, reservationID)
		if err != nil {
			return mapRepoError(err)
		}
		if existing.UserID != principal.UserID {
			return ErrForbidden
		}
		reservation = existing
		if existing.Status == persistence.ReservationCancelled {
			return nil
		}

		if err := s.desks.UpdateReservationStatus(ctx, existing.ID, persistence.ReservationCancelled); err != nil {
			return mapRepoError(err)
		}
		reservation.Status = persistence.ReservationCancelled
		changed = true

		current, err := s.presence.GetPresence(ctx, principal.UserID)
		if errors.Is(err, persistence.ErrNotFound) {
			return nil
		}
		if err != nil {
			return mapRepoError(err)
		}
		if current.DeskID == nil || *current.DeskID != existing.DeskID {
			return nil
		}
		current.Location = persistence.LocationRemote
		current.DeskID = nil
		current.LastSeen = s.now()
		return mapRepoError(s.presence.UpsertPresence(ctx, current))
	})
	if err != nil {
		reservation = persistence.DeskReservation{}
		return
	}

	if changed {
		s.publisher.Publish(nil, EventDeskReservationsChanged, reservation)
	}
	return
}
