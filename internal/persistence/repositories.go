package persistence

import (
	"context"
	"time"
)

// Transactor runs fn so that every repository call made with the context it
// receives joins one transaction. The transaction commits when fn returns nil
// and rolls back otherwise.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	// GetUserByLogin matches the email or the username, case-insensitively.
	GetUserByLogin(ctx context.Context, login string) (User, error)
	ListUsers(ctx context.Context, limit int) ([]User, error)
	ListUsersByIDs(ctx context.Context, ids []string) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// SessionRepository stores refresh-token sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// IntervalFilter narrows event and block queries. Nil bounds are ignored.
type IntervalFilter struct {
	OwnerIDs         []string
	StartsAtOrAfter  *time.Time
	StartsAtOrBefore *time.Time
	EndsAtOrAfter    *time.Time
	EndsAtOrBefore   *time.Time
}

// CalendarRepository stores calendar events and availability blocks.
type CalendarRepository interface {
	CreateEvent(ctx context.Context, event CalendarEvent) error
	GetEvent(ctx context.Context, id string) (CalendarEvent, error)
	UpdateEvent(ctx context.Context, event CalendarEvent) error
	DeleteEvent(ctx context.Context, id string) error
	// ListEvents returns matching events ordered by start ascending.
	ListEvents(ctx context.Context, filter IntervalFilter) ([]CalendarEvent, error)
	CreateBlock(ctx context.Context, block AvailabilityBlock) error
	// ListBlocks returns matching blocks ordered by start ascending.
	ListBlocks(ctx context.Context, filter IntervalFilter) ([]AvailabilityBlock, error)
}

// RequestFilter narrows schedule request listings. Empty fields are ignored.
type RequestFilter struct {
	RequesterID  string
	TargetUserID string
}

// ScheduleRequestRepository stores schedule requests.
type ScheduleRequestRepository interface {
	CreateRequest(ctx context.Context, request ScheduleRequest) error
	GetRequest(ctx context.Context, id string) (ScheduleRequest, error)
	UpdateRequestStatus(ctx context.Context, id string, status RequestStatus, decidedAt time.Time) error
	// ListRequests returns matching requests, newest first.
	ListRequests(ctx context.Context, filter RequestFilter) ([]ScheduleRequest, error)
}

// ThreadRepository stores threads, their participants and messages.
type ThreadRepository interface {
	CreateThread(ctx context.Context, thread Thread) error
	GetThread(ctx context.Context, id string) (Thread, error)
	// ListThreadsForUser returns the threads userID participates in, newest first.
	ListThreadsForUser(ctx context.Context, userID string) ([]Thread, error)
	// FindDirectThread returns the DM thread whose participants are exactly a and b.
	FindDirectThread(ctx context.Context, a, b string) (Thread, error)
	IsParticipant(ctx context.Context, threadID, userID string) (bool, error)
	CreateMessage(ctx context.Context, message Message) error
	// ListMessages returns up to limit messages in creation order.
	ListMessages(ctx context.Context, threadID string, limit int) ([]Message, error)
	// LatestMessages returns the newest message of each thread that has one.
	LatestMessages(ctx context.Context, threadIDs []string) (map[string]Message, error)
}

// ReservationDetail is an active reservation together with the reserving user's name.
type ReservationDetail struct {
	DeskReservation
	UserName string
}

// DeskRepository stores desks and their reservations.
type DeskRepository interface {
	CreateDesk(ctx context.Context, desk Desk) error
	GetDesk(ctx context.Context, id string) (Desk, error)
	// ListDesks returns desks ordered by floor and label, filtered to floorID when non-empty.
	ListDesks(ctx context.Context, floorID string) ([]Desk, error)
	CreateReservation(ctx context.Context, reservation DeskReservation) error
	GetReservation(ctx context.Context, id string) (DeskReservation, error)
	UpdateReservationStatus(ctx context.Context, id string, status ReservationStatus) error
	// FindOverlappingReservation returns an ACTIVE reservation of deskID with
	// starts_at < end and ends_at > start, or ErrNotFound.
	FindOverlappingReservation(ctx context.Context, deskID string, start, end time.Time) (DeskReservation, error)
	// ListActiveReservationsAt returns ACTIVE reservations whose window contains at.
	ListActiveReservationsAt(ctx context.Context, deskIDs []string, at time.Time) ([]ReservationDetail, error)
}

// PresenceFilter narrows presence listings. Empty fields are ignored.
type PresenceFilter struct {
	FloorID string
	UserIDs []string
}

// PresenceDetail is a presence row joined with its user and desk.
type PresenceDetail struct {
	Presence
	User User
	Desk *Desk
}

// PresenceRepository stores the per-user presence row.
type PresenceRepository interface {
	UpsertPresence(ctx context.Context, presence Presence) error
	GetPresence(ctx context.Context, userID string) (Presence, error)
	ListPresence(ctx context.Context, filter PresenceFilter) ([]PresenceDetail, error)
}

// NotificationRepository stores user notifications.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification Notification) error
	// ListNotifications returns up to limit notifications, newest first.
	ListNotifications(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string, readAt time.Time) error
}
