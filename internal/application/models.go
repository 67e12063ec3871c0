package application

import (
	"time"

	"github.com/example/hybrid-work/internal/persistence"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Role   persistence.Role
}

// IsAdmin reports whether the principal holds the ADMIN role.
func (p Principal) IsAdmin() bool {
	return p.Role == persistence.RoleAdmin
}

// ----------------------------- Calendar -----------------------------

// CalendarRangeParams selects the events or blocks of one owner.
// OwnerID "" or "me" means the principal.
type CalendarRangeParams struct {
	Principal Principal
	OwnerID   string
	From      *time.Time
	To        *time.Time
}

// EventInput captures caller provided event fields.
type EventInput struct {
	OwnerID    string
	Title      string
	StartsAt   time.Time
	EndsAt     time.Time
	Location   *string
	Visibility string
}

// CreateEventParams wraps the data required to create an event.
type CreateEventParams struct {
	Principal Principal
	Input     EventInput
}

// EventPatch lists the event fields to change. Nil fields are kept; a
// Location pointing at "" clears the location.
type EventPatch struct {
	Title      *string
	StartsAt   *time.Time
	EndsAt     *time.Time
	Location   *string
	Visibility *string
}

// UpdateEventParams wraps the data required to update an event.
type UpdateEventParams struct {
	Principal Principal
	EventID   string
	Patch     EventPatch
}

// BlockInput captures caller provided availability block fields.
type BlockInput struct {
	StartsAt   time.Time
	EndsAt     time.Time
	Kind       string
	Visibility string
}

// CreateBlockParams wraps the data required to create an availability block.
type CreateBlockParams struct {
	Principal Principal
	Input     BlockInput
}

// RequestScope selects which side of schedule requests to list.
type RequestScope string

const (
	RequestScopeIncoming RequestScope = "incoming"
	RequestScopeOutgoing RequestScope = "outgoing"
)

// CreateScheduleRequestParams wraps the data required to propose a meeting.
type CreateScheduleRequestParams struct {
	Principal    Principal
	TargetUserID string
	Draft        map[string]any
	Notes        *string
}

// DecideScheduleRequestParams wraps an approval or decline.
type DecideScheduleRequestParams struct {
	Principal Principal
	RequestID string
	Status    string
}

// Availability is the earliest instant a user is free.
type Availability struct {
	UserID      string
	AvailableAt time.Time
}

// ----------------------------- Desks -----------------------------

// DeskView is a desk with the reservations active right now.
type DeskView struct {
	persistence.Desk
	Reservations []persistence.ReservationDetail
}

// DeskInput captures the fields of a new desk.
type DeskInput struct {
	FloorID string
	Label   string
	X       int
	Y       int
}

// ReserveDeskParams wraps a reservation request. Nil bounds take defaults.
type ReserveDeskParams struct {
	Principal Principal
	DeskID    string
	StartsAt  *time.Time
	EndsAt    *time.Time
}

// ----------------------------- Messaging -----------------------------

// CreateThreadParams wraps the data required to open a thread.
type CreateThreadParams struct {
	Principal      Principal
	Type           string
	ParticipantIDs []string
	Topic          *string
}

// ThreadView is a thread with its participants and latest message.
type ThreadView struct {
	persistence.Thread
	Participants  []persistence.User
	LatestMessage *persistence.Message
}

// CreateMessageParams wraps a new message.
type CreateMessageParams struct {
	Principal   Principal
	ThreadID    string
	Body        string
	Attachments map[string]any
}

// ListMessagesParams selects messages of a thread. Take is clamped to [1, 200]
// and defaults to 50.
type ListMessagesParams struct {
	Principal Principal
	ThreadID  string
	Take      int
}

// ----------------------------- Presence -----------------------------

// PresenceInput captures a presence update. Empty values take defaults.
type PresenceInput struct {
	Status   string
	Location string
	DeskID   *string
}

// ----------------------------- Users & auth -----------------------------

// UserInput captures the fields of a new member account.
type UserInput struct {
	Name     string
	Email    string
	Username string
	Password string
	TimeZone string
}

// CreateUserParams wraps the data required to create a user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UserPatch lists the account fields to change. Nil fields are kept.
type UserPatch struct {
	Name     *string
	Email    *string
	Username *string
	TimeZone *string
	Password *string
}

// UpdateUserParams wraps the data required to update a user.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Patch     UserPatch
}

// ChangePasswordParams wraps an admin password change.
type ChangePasswordParams struct {
	Principal       Principal
	CurrentPassword string
	NewPassword     string
}

// LoginParams carries login credentials.
type LoginParams struct {
	Username    string
	Password    string
	Fingerprint string
}

// RefreshParams carries a refresh token to rotate.
type RefreshParams struct {
	RefreshToken string
	Fingerprint  string
}

// AuthResult is returned by login and refresh.
type AuthResult struct {
	AccessToken          string
	AccessTokenExpiresAt time.Time
	RefreshToken         string
	User                 persistence.User
}
