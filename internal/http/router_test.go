package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/hybrid-work/internal/application"
	"github.com/example/hybrid-work/internal/persistence"
)

var routerNow = time.Date(2025, time.May, 6, 8, 30, 0, 0, time.UTC)

type routerHarness struct {
	handler  http.Handler
	auth     *authServiceStub
	calendar *calendarServiceStub
	desks    *deskServiceStub
	realtime *realtimeStub
}

func newRouterHarness(t *testing.T) *routerHarness {
	t.Helper()
	h := &routerHarness{
		auth:     &authServiceStub{},
		calendar: &calendarServiceStub{},
		desks:    &deskServiceStub{},
		realtime: &realtimeStub{},
	}
	h.handler = NewRouter(RouterConfig{
		Auth:     NewAuthHandler(h.auth, nil),
		Calendar: NewCalendarHandler(h.calendar, nil, func() time.Time { return routerNow }),
		Desks:    NewDeskHandler(h.desks, nil),
		Realtime: h.realtime,
		Tokens:   defaultTokens(),
		Metrics:  NewMetrics(),
	})
	return h
}

func (h *routerHarness) do(t *testing.T, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRouter_PublicEndpoints(t *testing.T) {
	t.Parallel()
	h := newRouterHarness(t)

	rec := h.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/calendar/events", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodDelete, "/health", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = h.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hybridwork_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestRouter_Login(t *testing.T) {
	t.Parallel()
	h := newRouterHarness(t)
	h.auth.loginFn = func(params application.LoginParams) (application.AuthResult, error) {
		if params.Username != "alice" || params.Password != "password123" {
			return application.AuthResult{}, application.ErrInvalidCredentials
		}
		return application.AuthResult{
			AccessToken:          "access",
			AccessTokenExpiresAt: routerNow.Add(15 * time.Minute),
			RefreshToken:         "refresh",
			User:                 persistence.User{ID: "alice", Name: "Alice", Role: persistence.RoleMember},
		}, nil
	}

	rec := h.do(t, http.MethodPost, "/auth/login", "", `{"username":"alice","password":"password123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[authResponse](t, rec)
	assert.Equal(t, "access", body.AccessToken)
	assert.Equal(t, "refresh", body.RefreshToken)
	assert.Equal(t, "MEMBER", body.User.Role)

	rec = h.do(t, http.MethodPost, "/auth/login", "", `{"username":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "AUTH_INVALID_CREDENTIALS", decodeBody[errorResponse](t, rec).ErrorCode)

	rec = h.do(t, http.MethodPost, "/auth/login", "", `{"username":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", decodeBody[errorResponse](t, rec).ErrorCode)

	rec = h.do(t, http.MethodPost, "/auth/login", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errs := decodeBody[errorResponse](t, rec).Errors
	assert.Contains(t, errs, "username")
	assert.Contains(t, errs, "password")
}

func TestRouter_CalendarEvents(t *testing.T) {
	t.Parallel()
	h := newRouterHarness(t)
	location := "Room 4"
	h.calendar.events = []persistence.CalendarEvent{{
		ID: "e1", OwnerID: "bob", Title: "1:1", Location: &location, Visibility: persistence.VisibilityPrivate,
		StartsAt: routerNow, EndsAt: routerNow.Add(time.Hour),
	}}

	rec := h.do(t, http.MethodGet, "/calendar/events?owner=bob", "member-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	events := decodeBody[[]eventDTO](t, rec)
	require.Len(t, events, 1)
	assert.Equal(t, "Private event", events[0].Title)
	assert.Nil(t, events[0].Location)

	rec = h.do(t, http.MethodGet, "/calendar/events?from=yesterday", "member-token", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[errorResponse](t, rec).Errors, "from")

	rec = h.do(t, http.MethodPost, "/calendar/events", "member-token",
		`{"title":"Standup","startsAt":"2025-05-06T09:00:00Z","endsAt":"2025-05-06T09:15:00Z","visibility":"PUBLIC"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[eventDTO](t, rec)
	assert.Equal(t, "Standup", created.Title)
	require.Len(t, h.calendar.created, 1)
	assert.Equal(t, "alice", h.calendar.created[0].Principal.UserID)

	rec = h.do(t, http.MethodPost, "/calendar/events", "member-token", `{"title":"x","visibility":"SECRET"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errs := decodeBody[errorResponse](t, rec).Errors
	assert.Contains(t, errs, "visibility")
	assert.Contains(t, errs, "startsAt")

	h.calendar.err = application.ErrForbidden
	rec = h.do(t, http.MethodDelete, "/calendar/events/e1", "member-token", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_ScheduleRequestDraft(t *testing.T) {
	t.Parallel()
	h := newRouterHarness(t)

	rec := h.do(t, http.MethodPost, "/calendar/requests", "member-token",
		`{"targetUserId":"bob","title":"Sync","startsAt":"2025-05-06T10:00:00Z","endsAt":"2025-05-06T10:30:00Z","notes":"quick one"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, h.calendar.requests, 1)
	params := h.calendar.requests[0]
	assert.Equal(t, "bob", params.TargetUserID)
	assert.Equal(t, map[string]any{
		"title":    "Sync",
		"startsAt": "2025-05-06T10:00:00Z",
		"endsAt":   "2025-05-06T10:30:00Z",
	}, params.Draft)
	require.NotNil(t, params.Notes)
	assert.Equal(t, "quick one", *params.Notes)
	assert.Equal(t, "PENDING", decodeBody[scheduleRequestDTO](t, rec).Status)
}

func TestRouter_Availability(t *testing.T) {
	t.Parallel()
	h := newRouterHarness(t)

	rec := h.do(t, http.MethodGet, "/calendar/availability", "member-token", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, "/calendar/availability?userIds=alice,%20bob,", "member-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"alice", "bob"}, h.calendar.availability.userIDs)
	assert.Equal(t, routerNow, h.calendar.availability.now)
	assert.Equal(t, routerNow.Add(DefaultAvailabilityHorizon), h.calendar.availability.horizon)
	assert.Len(t, decodeBody[[]availabilityDTO](t, rec), 2)

	rec = h.do(t, http.MethodGet, "/calendar/availability?userIds=alice&horizon=2025-05-06T12:00:00Z", "member-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2025, time.May, 6, 12, 0, 0, 0, time.UTC), h.calendar.availability.horizon)
}

func TestRouter_Desks(t *testing.T) {
	t.Parallel()
	h := newRouterHarness(t)
	h.desks.views = []application.DeskView{{
		Desk:         persistence.Desk{ID: "d1", FloorID: "F1", Label: "D-1", X: 40, Y: 40},
		Reservations: []persistence.ReservationDetail{},
	}}
	h.desks.reserve = func(params application.ReserveDeskParams) (persistence.DeskReservation, error) {
		if params.StartsAt != nil && params.StartsAt.Hour() == 11 {
			return persistence.DeskReservation{}, fmt.Errorf("%w: desk already reserved for that time", application.ErrConflict)
		}
		return persistence.DeskReservation{ID: "r1", DeskID: params.DeskID, UserID: params.Principal.UserID, Status: persistence.ReservationActive}, nil
	}

	rec := h.do(t, http.MethodGet, "/desks?floor=F1", "member-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":"d1","floorId":"F1","label":"D-1","x":40,"y":40,"reservations":[]}]`, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/desks", "member-token", `{"floorId":"F1","label":"D-11"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = h.do(t, http.MethodPost, "/desks", "admin-token", `{"floorId":"F1","label":"D-11","x":40,"y":280}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, h.desks.created, 1)

	rec = h.do(t, http.MethodPost, "/desks/d1/reservations", "member-token", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "d1", decodeBody[reservationDTO](t, rec).DeskID)

	rec = h.do(t, http.MethodPost, "/desks/d1/reservations", "member-token", `{"startsAt":"2025-05-06T11:00:00Z","endsAt":"2025-05-06T13:00:00Z"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "desk already reserved for that time", decodeBody[errorResponse](t, rec).Message)

	rec = h.do(t, http.MethodDelete, "/desks/reservations/r1", "member-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CANCELLED", decodeBody[reservationDTO](t, rec).Status)
}

func TestRouter_WebsocketAuth(t *testing.T) {
	t.Parallel()
	h := newRouterHarness(t)

	rec := h.do(t, http.MethodGet, "/ws", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodGet, "/ws?access_token=member-token", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"alice"}, h.realtime.userIDs)
}
