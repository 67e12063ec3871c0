package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/hybrid-work/internal/application"
	"github.com/example/hybrid-work/internal/persistence"
)

var (
	userCounter    uint64
	eventCounter   uint64
	deskCounter    uint64
	threadCounter  uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2025, time.May, 6, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic user record that can be materialised
// for application or persistence tests.
type UserFixture struct {
	ID           string
	OrgID        string
	Name         string
	Email        string
	Username     string
	PasswordHash string
	Role         persistence.Role
	TimeZone     string
	CreatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic member fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	fixture := UserFixture{
		ID:           id,
		OrgID:        "acme",
		Name:         fmt.Sprintf("User %03d", idx),
		Email:        fmt.Sprintf("%s@acme.com", id),
		Username:     id,
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		Role:         persistence.RoleMember,
		TimeZone:     "UTC",
		CreatedAt:    referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID. The username follows the ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
		f.Username = id
		f.Email = id + "@acme.com"
	}
}

// WithUserName overrides the display name.
func WithUserName(name string) UserOption {
	return func(f *UserFixture) {
		f.Name = name
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasswordHash = hash
	}
}

// WithUserAdmin grants the ADMIN role.
func WithUserAdmin() UserOption {
	return func(f *UserFixture) {
		f.Role = persistence.RoleAdmin
	}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		OrgID:        f.OrgID,
		Name:         f.Name,
		Email:        f.Email,
		Username:     f.Username,
		PasswordHash: f.PasswordHash,
		Role:         f.Role,
		TimeZone:     f.TimeZone,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
}

// Principal returns an application.Principal derived from the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, Role: f.Role}
}

// ----------------------------- Event fixtures -----------------------------

// EventFixture represents a deterministic calendar event.
type EventFixture struct {
	ID         string
	OwnerID    string
	Title      string
	StartsAt   time.Time
	EndsAt     time.Time
	Location   *string
	Visibility persistence.Visibility
	Source     string
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a one hour PUBLIC event owned by ownerID.
func NewEventFixture(ownerID string, opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	start := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := EventFixture{
		ID:         fmt.Sprintf("event-%03d", idx),
		OwnerID:    ownerID,
		Title:      fmt.Sprintf("Event %03d", idx),
		StartsAt:   start,
		EndsAt:     start.Add(time.Hour),
		Visibility: persistence.VisibilityPublic,
		Source:     persistence.EventSourceManual,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) {
		f.ID = id
	}
}

// WithEventTitle overrides the title.
func WithEventTitle(title string) EventOption {
	return func(f *EventFixture) {
		f.Title = title
	}
}

// WithEventSpan sets the start and end times.
func WithEventSpan(start, end time.Time) EventOption {
	return func(f *EventFixture) {
		f.StartsAt = start
		f.EndsAt = end
	}
}

// WithEventLocation sets the optional location.
func WithEventLocation(location string) EventOption {
	return func(f *EventFixture) {
		value := location
		f.Location = &value
	}
}

// WithEventVisibility overrides the visibility.
func WithEventVisibility(v persistence.Visibility) EventOption {
	return func(f *EventFixture) {
		f.Visibility = v
	}
}

// Persistence returns the fixture as a persistence.CalendarEvent value.
func (f EventFixture) Persistence() persistence.CalendarEvent {
	var location *string
	if f.Location != nil {
		value := *f.Location
		location = &value
	}
	return persistence.CalendarEvent{
		ID:         f.ID,
		OwnerID:    f.OwnerID,
		Title:      f.Title,
		StartsAt:   f.StartsAt,
		EndsAt:     f.EndsAt,
		Location:   location,
		Visibility: f.Visibility,
		CreatedBy:  f.OwnerID,
		Source:     f.Source,
		CreatedAt:  referenceTime,
		UpdatedAt:  referenceTime,
	}
}

// ----------------------------- Desk fixtures -----------------------------

// DeskFixture represents a deterministic desk on a floor plan.
type DeskFixture struct {
	ID      string
	FloorID string
	Label   string
	X       int
	Y       int
}

// DeskOption configures the generated desk fixture.
type DeskOption func(*DeskFixture)

// NewDeskFixture returns a desk on floor F1 laid out on a five column grid.
func NewDeskFixture(opts ...DeskOption) DeskFixture {
	idx := atomic.AddUint64(&deskCounter, 1)
	i := int(idx - 1)
	fixture := DeskFixture{
		ID:      fmt.Sprintf("desk-%03d", idx),
		FloorID: "F1",
		Label:   fmt.Sprintf("D-%d", idx),
		X:       (i%5)*120 + 40,
		Y:       (i/5)*120 + 40,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithDeskID overrides the generated desk ID.
func WithDeskID(id string) DeskOption {
	return func(f *DeskFixture) {
		f.ID = id
	}
}

// WithDeskFloor places the desk on floorID.
func WithDeskFloor(floorID string) DeskOption {
	return func(f *DeskFixture) {
		f.FloorID = floorID
	}
}

// WithDeskLabel overrides the label.
func WithDeskLabel(label string) DeskOption {
	return func(f *DeskFixture) {
		f.Label = label
	}
}

// Persistence returns the fixture as a persistence.Desk value.
func (f DeskFixture) Persistence() persistence.Desk {
	return persistence.Desk{
		ID:        f.ID,
		FloorID:   f.FloorID,
		Label:     f.Label,
		X:         f.X,
		Y:         f.Y,
		CreatedAt: referenceTime,
	}
}

// Reservation returns an ACTIVE reservation of the desk for userID.
func (f DeskFixture) Reservation(id, userID string, start, end time.Time) persistence.DeskReservation {
	return persistence.DeskReservation{
		ID:        id,
		DeskID:    f.ID,
		UserID:    userID,
		StartsAt:  start,
		EndsAt:    end,
		Status:    persistence.ReservationActive,
		CreatedAt: start,
	}
}

// ----------------------------- Thread fixtures -----------------------------

// NewThreadFixture returns a thread between participants. Two participants
// yield a DM, more a GROUP.
func NewThreadFixture(participants ...string) persistence.Thread {
	idx := atomic.AddUint64(&threadCounter, 1)
	threadType := persistence.ThreadTypeGroup
	if len(participants) == 2 {
		threadType = persistence.ThreadTypeDM
	}
	creator := ""
	if len(participants) > 0 {
		creator = participants[0]
	}
	return persistence.Thread{
		ID:             fmt.Sprintf("thread-%03d", idx),
		Type:           threadType,
		CreatedBy:      creator,
		CreatedAt:      referenceTime.Add(time.Duration(idx) * time.Second),
		ParticipantIDs: append([]string(nil), participants...),
	}
}

// NewMessageFixture returns a message posted to threadID offset seconds after the reference time.
func NewMessageFixture(threadID, senderID, body string, offset int) persistence.Message {
	return persistence.Message{
		ID:        fmt.Sprintf("%s-msg-%03d", threadID, offset),
		ThreadID:  threadID,
		SenderID:  senderID,
		Body:      body,
		CreatedAt: referenceTime.Add(time.Duration(offset) * time.Second),
	}
}

// ----------------------------- Session fixtures -----------------------------

// NewSessionFixture returns a refresh session of userID valid for ttl.
func NewSessionFixture(userID string, ttl time.Duration) persistence.Session {
	idx := atomic.AddUint64(&sessionCounter, 1)
	return persistence.Session{
		ID:          fmt.Sprintf("session-%03d", idx),
		UserID:      userID,
		Token:       fmt.Sprintf("refresh-%03d", idx),
		Fingerprint: "test-agent",
		ExpiresAt:   referenceTime.Add(ttl),
		CreatedAt:   referenceTime,
		UpdatedAt:   referenceTime,
	}
}
