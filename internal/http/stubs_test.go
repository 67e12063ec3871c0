package http

import (
	"context"
	"net/http"
	"time"

	"github.com/example/hybrid-work/internal/application"
	"github.com/example/hybrid-work/internal/persistence"
)

var (
	memberPrincipal = application.Principal{UserID: "alice", Role: persistence.RoleMember}
	adminPrincipal  = application.Principal{UserID: "root", Role: persistence.RoleAdmin}
)

type tokenValidatorStub map[string]application.Principal

func (s tokenValidatorStub) ValidateAccessToken(_ context.Context, token string) (application.Principal, error) {
	principal, ok := s[token]
	if !ok {
		return application.Principal{}, application.ErrUnauthorized
	}
	return principal, nil
}

func defaultTokens() tokenValidatorStub {
	return tokenValidatorStub{"member-token": memberPrincipal, "admin-token": adminPrincipal}
}

type authServiceStub struct {
	loginFn   func(application.LoginParams) (application.AuthResult, error)
	refreshFn func(application.RefreshParams) (application.AuthResult, error)
	logoutFn  func(string) error
}

func (s *authServiceStub) Login(_ context.Context, params application.LoginParams) (application.AuthResult, error) {
	return s.loginFn(params)
}

func (s *authServiceStub) Refresh(_ context.Context, params application.RefreshParams) (application.AuthResult, error) {
	return s.refreshFn(params)
}

func (s *authServiceStub) Logout(_ context.Context, token string) error {
	return s.logoutFn(token)
}

type calendarServiceStub struct {
	events       []persistence.CalendarEvent
	created      []application.CreateEventParams
	requests     []application.CreateScheduleRequestParams
	availability struct {
		userIDs      []string
		now, horizon time.Time
	}
	err error
}

func (s *calendarServiceStub) EventsForUser(_ context.Context, params application.CalendarRangeParams) ([]persistence.CalendarEvent, error) {
	out := make([]persistence.CalendarEvent, len(s.events))
	for i, e := range s.events {
		out[i] = application.MaskEventForViewer(e, params.Principal.UserID)
	}
	return out, s.err
}

func (s *calendarServiceStub) AvailabilityBlocks(context.Context, application.CalendarRangeParams) ([]persistence.AvailabilityBlock, error) {
	return []persistence.AvailabilityBlock{}, s.err
}

func (s *calendarServiceStub) CreateEvent(_ context.Context, params application.CreateEventParams) (persistence.CalendarEvent, error) {
	s.created = append(s.created, params)
	if s.err != nil {
		return persistence.CalendarEvent{}, s.err
	}
	return persistence.CalendarEvent{
		ID:         "event-1",
		OwnerID:    params.Principal.UserID,
		Title:      params.Input.Title,
		StartsAt:   params.Input.StartsAt,
		EndsAt:     params.Input.EndsAt,
		Location:   params.Input.Location,
		Visibility: persistence.Visibility(params.Input.Visibility),
		CreatedBy:  params.Principal.UserID,
		Source:     persistence.EventSourceManual,
	}, nil
}

func (s *calendarServiceStub) UpdateEvent(context.Context, application.UpdateEventParams) (persistence.CalendarEvent, error) {
	return persistence.CalendarEvent{}, s.err
}

func (s *calendarServiceStub) DeleteEvent(context.Context, application.Principal, string) error {
	return s.err
}

func (s *calendarServiceStub) CreateBlock(context.Context, application.CreateBlockParams) (persistence.AvailabilityBlock, error) {
	return persistence.AvailabilityBlock{}, s.err
}

func (s *calendarServiceStub) ActiveBlocks(context.Context, application.Principal, []string) ([]persistence.AvailabilityBlock, error) {
	return []persistence.AvailabilityBlock{}, s.err
}

func (s *calendarServiceStub) NextAvailability(_ context.Context, userIDs []string, now, horizon time.Time) ([]application.Availability, error) {
	s.availability.userIDs = userIDs
	s.availability.now = now
	s.availability.horizon = horizon
	out := make([]application.Availability, len(userIDs))
	for i, id := range userIDs {
		out[i] = application.Availability{UserID: id, AvailableAt: now}
	}
	return out, s.err
}

func (s *calendarServiceStub) ListScheduleRequests(context.Context, application.Principal, application.RequestScope) ([]persistence.ScheduleRequest, error) {
	return []persistence.ScheduleRequest{}, s.err
}

func (s *calendarServiceStub) CreateScheduleRequest(_ context.Context, params application.CreateScheduleRequestParams) (persistence.ScheduleRequest, error) {
	s.requests = append(s.requests, params)
	if s.err != nil {
		return persistence.ScheduleRequest{}, s.err
	}
	return persistence.ScheduleRequest{
		ID:           "request-1",
		RequesterID:  params.Principal.UserID,
		TargetUserID: params.TargetUserID,
		EventDraft:   params.Draft,
		Status:       persistence.RequestStatusPending,
	}, nil
}

func (s *calendarServiceStub) UpdateScheduleRequestStatus(context.Context, application.DecideScheduleRequestParams) (persistence.ScheduleRequest, error) {
	return persistence.ScheduleRequest{}, s.err
}

type deskServiceStub struct {
	views   []application.DeskView
	reserve func(application.ReserveDeskParams) (persistence.DeskReservation, error)
	created []application.DeskInput
}

func (s *deskServiceStub) ListDesks(context.Context, string) ([]application.DeskView, error) {
	return s.views, nil
}

func (s *deskServiceStub) CreateDesk(_ context.Context, _ application.Principal, input application.DeskInput) (persistence.Desk, error) {
	s.created = append(s.created, input)
	return persistence.Desk{ID: "desk-new", FloorID: input.FloorID, Label: input.Label, X: input.X, Y: input.Y}, nil
}

func (s *deskServiceStub) ReserveDesk(_ context.Context, params application.ReserveDeskParams) (persistence.DeskReservation, error) {
	return s.reserve(params)
}

func (s *deskServiceStub) CancelReservation(_ context.Context, _ application.Principal, id string) (persistence.DeskReservation, error) {
	return persistence.DeskReservation{ID: id, Status: persistence.ReservationCancelled}, nil
}

type realtimeStub struct {
	userIDs []string
}

func (s *realtimeStub) ServeClient(w http.ResponseWriter, _ *http.Request, userID string) {
	s.userIDs = append(s.userIDs, userID)
	w.WriteHeader(http.StatusOK)
}
