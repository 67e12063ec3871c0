package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/hybrid-work/internal/persistence"
)

// Realtime event types pushed to connected clients.
const (
	EventMessageCreated          = "message.created"
	EventPresenceUpdated         = "presence.updated"
	EventScheduleRequestCreated  = "schedule_request.created"
	EventScheduleRequestDecided  = "schedule_request.decided"
	EventNotificationCreated     = "notification.created"
	EventDeskReservationsChanged = "desk.reservations_changed"
)

// Publisher fans realtime events out to the connections of the given users.
// A nil or empty userIDs broadcasts to every connected user.
type Publisher interface {
	Publish(userIDs []string, eventType string, payload any)
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish([]string, string, any) {}

func defaultPublisher(p Publisher) Publisher {
	if p == nil {
		return NopPublisher{}
	}
	return p
}

type directTransactor struct{}

func (directTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func defaultTransactor(tx persistence.Transactor) persistence.Transactor {
	if tx == nil {
		return directTransactor{}
	}
	return tx
}

func defaultNow(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

func defaultIDGenerator(gen func() string) func() string {
	if gen == nil {
		return func() string { return "" }
	}
	return gen
}

// mapRepoError translates persistence sentinels into application errors.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return NewValidationError("reference", "referenced record does not exist")
	case errors.Is(err, persistence.ErrConstraintViolation):
		return NewValidationError("record", "violates a storage constraint")
	}
	return err
}

// resolveOwner maps "" and "me" to the principal.
func resolveOwner(principal Principal, ownerID string) string {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" || ownerID == "me" {
		return principal.UserID
	}
	return ownerID
}

func requirePrincipal(principal Principal) error {
	if strings.TrimSpace(principal.UserID) == "" {
		return ErrUnauthorized
	}
	return nil
}

func requireAdmin(principal Principal) error {
	if err := requirePrincipal(principal); err != nil {
		return err
	}
	if !principal.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func nilService(name string) error {
	return fmt.Errorf("%s is nil", name)
}

// uniqueIDs trims, drops empty values and de-duplicates while keeping order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02",
}

// ParseTimestamp accepts the ISO 8601 forms clients send: full RFC 3339,
// RFC 3339 without seconds ("2025-01-01T10:00Z") and a bare date (midnight
// UTC). The result is in UTC.
func ParseTimestamp(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", text)
}
