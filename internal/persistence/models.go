package persistence

import "time"

// Role identifies the privilege level of an account.
type Role string

const (
	RoleMember Role = "MEMBER"
	RoleAdmin  Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleMember || r == RoleAdmin
}

// Visibility controls how much of a calendar entry non-owners can see.
type Visibility string

const (
	VisibilityPrivate  Visibility = "PRIVATE"
	VisibilityFreeBusy Visibility = "FREEBUSY"
	VisibilityPublic   Visibility = "PUBLIC"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityFreeBusy, VisibilityPublic:
		return true
	}
	return false
}

// BlockKind classifies self-declared unavailability.
type BlockKind string

const (
	BlockKindRest  BlockKind = "REST"
	BlockKindFocus BlockKind = "FOCUS"
	BlockKindOOO   BlockKind = "OOO"
)

// Valid reports whether k is a known block kind.
func (k BlockKind) Valid() bool {
	switch k {
	case BlockKindRest, BlockKindFocus, BlockKindOOO:
		return true
	}
	return false
}

// RequestStatus is the lifecycle state of a schedule request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusDeclined RequestStatus = "DECLINED"
)

// Valid reports whether s is a known request status.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusDeclined:
		return true
	}
	return false
}

// ThreadType distinguishes direct messages from group conversations.
type ThreadType string

const (
	ThreadTypeDM    ThreadType = "DM"
	ThreadTypeGroup ThreadType = "GROUP"
)

// Valid reports whether t is a known thread type.
func (t ThreadType) Valid() bool {
	return t == ThreadTypeDM || t == ThreadTypeGroup
}

// ReservationStatus is the state of a desk reservation.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationCancelled ReservationStatus = "CANCELLED"
)

// PresenceStatus is the self-reported availability of a user.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "ONLINE"
	PresenceAway    PresenceStatus = "AWAY"
	PresenceDND     PresenceStatus = "DND"
	PresenceOffline PresenceStatus = "OFFLINE"
)

// Valid reports whether s is a known presence status.
func (s PresenceStatus) Valid() bool {
	switch s {
	case PresenceOnline, PresenceAway, PresenceDND, PresenceOffline:
		return true
	}
	return false
}

// WorkLocation records whether a user works from the office or remotely.
type WorkLocation string

const (
	LocationOffice WorkLocation = "OFFICE"
	LocationRemote WorkLocation = "REMOTE"
)

// Valid reports whether l is a known work location.
func (l WorkLocation) Valid() bool {
	return l == LocationOffice || l == LocationRemote
}

// Event sources.
const (
	EventSourceManual  = "manual"
	EventSourceRequest = "request"
)

// User is an account of the organisation.
type User struct {
	ID           string
	OrgID        string
	Name         string
	Email        string
	Username     string
	PasswordHash string
	Role         Role
	TimeZone     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Session is a persisted refresh token.
type Session struct {
	ID          string
	UserID      string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// CalendarEvent is an entry on a user's calendar.
type CalendarEvent struct {
	ID         string
	OwnerID    string
	Title      string
	StartsAt   time.Time
	EndsAt     time.Time
	Location   *string
	Visibility Visibility
	CreatedBy  string
	Source     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AvailabilityBlock is a span a user declared as unavailable.
type AvailabilityBlock struct {
	ID         string
	OwnerID    string
	StartsAt   time.Time
	EndsAt     time.Time
	Kind       BlockKind
	Visibility Visibility
	CreatedAt  time.Time
}

// EventDraft is the proposed event carried by a schedule request. It is
// stored as an unstructured JSON object so all fields stay optional.
type EventDraft map[string]any

// ScheduleRequest is a meeting proposal from one user to another.
type ScheduleRequest struct {
	ID           string
	RequesterID  string
	TargetUserID string
	EventDraft   EventDraft
	Notes        *string
	Status       RequestStatus
	DecidedAt    *time.Time
	CreatedAt    time.Time
}

// Thread is a conversation between participants.
type Thread struct {
	ID             string
	Type           ThreadType
	Topic          *string
	CreatedBy      string
	CreatedAt      time.Time
	ParticipantIDs []string
}

// Message is an append-only entry of a thread.
type Message struct {
	ID          string
	ThreadID    string
	SenderID    string
	Body        string
	Attachments map[string]any
	CreatedAt   time.Time
}

// Desk is a bookable workplace on a floor.
type Desk struct {
	ID        string
	FloorID   string
	Label     string
	X         int
	Y         int
	CreatedAt time.Time
}

// DeskReservation books a desk for a half-open time window.
type DeskReservation struct {
	ID        string
	DeskID    string
	UserID    string
	StartsAt  time.Time
	EndsAt    time.Time
	Status    ReservationStatus
	CreatedAt time.Time
}

// Presence is the last known status of a user.
type Presence struct {
	UserID   string
	Status   PresenceStatus
	Location WorkLocation
	DeskID   *string
	LastSeen time.Time
}

// Notification is an entry of a user's notification feed.
type Notification struct {
	ID        string
	UserID    string
	Kind      string
	Payload   map[string]any
	ReadAt    *time.Time
	CreatedAt time.Time
}
