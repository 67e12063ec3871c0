package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/example/hybrid-work/internal/persistence"
)

// PresenceService records and lists user presence.
type PresenceService struct {
	presence  persistence.PresenceRepository
	desks     persistence.DeskRepository
	publisher Publisher
	now       func() time.Time
	logger    *slog.Logger
}

// NewPresenceService constructs a PresenceService.
func NewPresenceService(presence persistence.PresenceRepository, desks persistence.DeskRepository, publisher Publisher, now func() time.Time) *PresenceService {
	return NewPresenceServiceWithLogger(presence, desks, publisher, now, nil)
}

// NewPresenceServiceWithLogger constructs a PresenceService with a specified logger.
func NewPresenceServiceWithLogger(presence persistence.PresenceRepository, desks persistence.DeskRepository, publisher Publisher, now func() time.Time, logger *slog.Logger) *PresenceService {
	return &PresenceService{
		presence:  presence,
		desks:     desks,
		publisher: defaultPublisher(publisher),
		now:       defaultNow(now),
		logger:    defaultLogger(logger),
	}
}

func (s *PresenceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PresenceService", operation, attrs...)
}

// Upsert replaces the principal's presence. Empty values default to ONLINE,
// REMOTE and no desk.
func (s *PresenceService) Upsert(ctx context.Context, principal Principal, input PresenceInput) (presence persistence.Presence, err error) {
	if s == nil {
		err = nilService("PresenceService")
		return
	}
	logger := s.loggerWith(ctx, "Upsert", "principal_id", principal.UserID, "status", input.Status, "location", input.Location)
	defer func() {
		logOutcome(ctx, logger, err, "presence updated")
	}()

	if err = requirePrincipal(principal); err != nil {
		return
	}

	vErr := &ValidationError{}
	status := persistence.PresenceOnline
	if raw := strings.ToUpper(strings.TrimSpace(input.Status)); raw != "" {
		status = persistence.PresenceStatus(raw)
		if !status.Valid() {
			vErr.add("status", "status must be one of ONLINE, AWAY, DND, OFFLINE")
		}
	}
	location := persistence.LocationRemote
	if raw := strings.ToUpper(strings.TrimSpace(input.Location)); raw != "" {
		location = persistence.WorkLocation(raw)
		if !location.Valid() {
			vErr.add("location", "location must be OFFICE or REMOTE")
		}
	}
	deskID := normalizeOptional(input.DeskID)
	if err = vErr.orNil(); err != nil {
		return
	}
	if deskID != nil && s.desks != nil {
		if _, err = s.desks.GetDesk(ctx, *deskID); err != nil {
			err = mapRepoError(err)
			if errors.Is(err, ErrNotFound) {
				err = NewValidationError("deskId", "unknown desk")
			}
			return
		}
	}

	presence = persistence.Presence{
		UserID:   principal.UserID,
		Status:   status,
		Location: location,
		DeskID:   deskID,
		LastSeen: s.now(),
	}
	if err = s.presence.UpsertPresence(ctx, presence); err != nil {
		err = mapRepoError(err)
		presence = persistence.Presence{}
		return
	}

	s.publisher.Publish(nil, EventPresenceUpdated, presence)
	return
}

// ListByFloor lists presence rows, restricted to desks on floorID when set.
func (s *PresenceService) ListByFloor(ctx context.Context, floorID string) (rows []persistence.PresenceDetail, err error) {
	if s == nil {
		return nil, nilService("PresenceService")
	}
	floorID = strings.TrimSpace(floorID)
	logger := s.loggerWith(ctx, "ListByFloor", "floor_id", floorID)
	defer func() {
		logOutcome(ctx, logger, err, "presence listed", "count", len(rows))
	}()

	rows, err = s.presence.ListPresence(ctx, persistence.PresenceFilter{FloorID: floorID})
	if err != nil {
		return nil, mapRepoError(err)
	}
	if rows == nil {
		rows = []persistence.PresenceDetail{}
	}
	return rows, nil
}

// ListByUsers lists the presence rows of the given users.
func (s *PresenceService) ListByUsers(ctx context.Context, userIDs []string) (rows []persistence.PresenceDetail, err error) {
	if s == nil {
		return nil, nilService("PresenceService")
	}
	userIDs = uniqueIDs(userIDs)
	logger := s.loggerWith(ctx, "ListByUsers", "user_count", len(userIDs))
	defer func() {
		logOutcome(ctx, logger, err, "presence listed", "count", len(rows))
	}()

	rows = []persistence.PresenceDetail{}
	if len(userIDs) == 0 {
		return rows, nil
	}
	var found []persistence.PresenceDetail
	found, err = s.presence.ListPresence(ctx, persistence.PresenceFilter{UserIDs: userIDs})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return append(rows, found...), nil
}
