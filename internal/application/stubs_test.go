package application

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/hybrid-work/internal/persistence"
)

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type recordedEvent struct {
	UserIDs []string
	Type    string
	Payload any
}

type publisherStub struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *publisherStub) Publish(userIDs []string, eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{UserIDs: slices.Clone(userIDs), Type: eventType, Payload: payload})
}

func (p *publisherStub) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type notifierStub struct {
	err   error
	calls []persistence.Notification
}

func (n *notifierStub) Notify(ctx context.Context, userID, kind string, payload map[string]any) error {
	if n.err != nil {
		return n.err
	}
	n.calls = append(n.calls, persistence.Notification{UserID: userID, Kind: kind, Payload: payload})
	return nil
}

// txStub runs the callback directly and counts invocations.
type txStub struct {
	calls int
}

func (t *txStub) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

// ----------------------------- users -----------------------------

type userRepoStub struct {
	users     map[string]persistence.User
	createErr error
	updateErr error
}

func newUserRepoStub(users ...persistence.User) *userRepoStub {
	r := &userRepoStub{users: map[string]persistence.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *userRepoStub) CreateUser(ctx context.Context, user persistence.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return persistence.ErrDuplicate
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *userRepoStub) UpdateUser(ctx context.Context, user persistence.User) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.users[user.ID]; !ok {
		return persistence.ErrNotFound
	}
	r.users[user.ID] = user
	return nil
}

func (r *userRepoStub) GetUser(ctx context.Context, id string) (persistence.User, error) {
	u, ok := r.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return u, nil
}

func (r *userRepoStub) GetUserByLogin(ctx context.Context, login string) (persistence.User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, login) || (u.Username != "" && strings.EqualFold(u.Username, login)) {
			return u, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

func (r *userRepoStub) ListUsers(ctx context.Context, limit int) ([]persistence.User, error) {
	out := make([]persistence.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *userRepoStub) ListUsersByIDs(ctx context.Context, ids []string) ([]persistence.User, error) {
	var out []persistence.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *userRepoStub) DeleteUser(ctx context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// ----------------------------- calendar -----------------------------

type calendarRepoStub struct {
	events    map[string]persistence.CalendarEvent
	blocks    []persistence.AvailabilityBlock
	created   []persistence.CalendarEvent
	createErr error
	deleted   []string
}

func newCalendarRepoStub() *calendarRepoStub {
	return &calendarRepoStub{events: map[string]persistence.CalendarEvent{}}
}

func (r *calendarRepoStub) CreateEvent(ctx context.Context, event persistence.CalendarEvent) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.events[event.ID] = event
	r.created = append(r.created, event)
	return nil
}

func (r *calendarRepoStub) GetEvent(ctx context.Context, id string) (persistence.CalendarEvent, error) {
	e, ok := r.events[id]
	if !ok {
		return persistence.CalendarEvent{}, persistence.ErrNotFound
	}
	return e, nil
}

func (r *calendarRepoStub) UpdateEvent(ctx context.Context, event persistence.CalendarEvent) error {
	if _, ok := r.events[event.ID]; !ok {
		return persistence.ErrNotFound
	}
	r.events[event.ID] = event
	return nil
}

func (r *calendarRepoStub) DeleteEvent(ctx context.Context, id string) error {
	if _, ok := r.events[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.events, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func matchesInterval(f persistence.IntervalFilter, owner string, start, end time.Time) bool {
	if len(f.OwnerIDs) > 0 && !slices.Contains(f.OwnerIDs, owner) {
		return false
	}
	if f.StartsAtOrAfter != nil && start.Before(*f.StartsAtOrAfter) {
		return false
	}
	if f.StartsAtOrBefore != nil && start.After(*f.StartsAtOrBefore) {
		return false
	}
	if f.EndsAtOrAfter != nil && end.Before(*f.EndsAtOrAfter) {
		return false
	}
	if f.EndsAtOrBefore != nil && end.After(*f.EndsAtOrBefore) {
		return false
	}
	return true
}

func (r *calendarRepoStub) ListEvents(ctx context.Context, filter persistence.IntervalFilter) ([]persistence.CalendarEvent, error) {
	var out []persistence.CalendarEvent
	for _, e := range r.events {
		if matchesInterval(filter, e.OwnerID, e.StartsAt, e.EndsAt) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (r *calendarRepoStub) CreateBlock(ctx context.Context, block persistence.AvailabilityBlock) error {
	r.blocks = append(r.blocks, block)
	return nil
}

func (r *calendarRepoStub) ListBlocks(ctx context.Context, filter persistence.IntervalFilter) ([]persistence.AvailabilityBlock, error) {
	var out []persistence.AvailabilityBlock
	for _, b := range r.blocks {
		if matchesInterval(filter, b.OwnerID, b.StartsAt, b.EndsAt) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

// ----------------------------- requests -----------------------------

type requestRepoStub struct {
	requests map[string]persistence.ScheduleRequest
	order    []string
}

func newRequestRepoStub() *requestRepoStub {
	return &requestRepoStub{requests: map[string]persistence.ScheduleRequest{}}
}

func (r *requestRepoStub) CreateRequest(ctx context.Context, request persistence.ScheduleRequest) error {
	r.requests[request.ID] = request
	r.order = append(r.order, request.ID)
	return nil
}

func (r *requestRepoStub) GetRequest(ctx context.Context, id string) (persistence.ScheduleRequest, error) {
	req, ok := r.requests[id]
	if !ok {
		return persistence.ScheduleRequest{}, persistence.ErrNotFound
	}
	return req, nil
}

func (r *requestRepoStub) UpdateRequestStatus(ctx context.Context, id string, status persistence.RequestStatus, decidedAt time.Time) error {
	req, ok := r.requests[id]
	if !ok {
		return persistence.ErrNotFound
	}
	req.Status = status
	req.DecidedAt = &decidedAt
	r.requests[id] = req
	return nil
}

func (r *requestRepoStub) ListRequests(ctx context.Context, filter persistence.RequestFilter) ([]persistence.ScheduleRequest, error) {
	var out []persistence.ScheduleRequest
	for i := len(r.order) - 1; i >= 0; i-- {
		req := r.requests[r.order[i]]
		if filter.RequesterID != "" && req.RequesterID != filter.RequesterID {
			continue
		}
		if filter.TargetUserID != "" && req.TargetUserID != filter.TargetUserID {
			continue
		}
		out = append(out, req)
	}
	return out, nil
}

// ----------------------------- threads -----------------------------

type threadRepoStub struct {
	threads  map[string]persistence.Thread
	order    []string
	messages []persistence.Message
}

func newThreadRepoStub() *threadRepoStub {
	return &threadRepoStub{threads: map[string]persistence.Thread{}}
}

func (r *threadRepoStub) CreateThread(ctx context.Context, thread persistence.Thread) error {
	if _, ok := r.threads[thread.ID]; ok {
		return persistence.ErrDuplicate
	}
	r.threads[thread.ID] = thread
	r.order = append(r.order, thread.ID)
	return nil
}

func (r *threadRepoStub) GetThread(ctx context.Context, id string) (persistence.Thread, error) {
	th, ok := r.threads[id]
	if !ok {
		return persistence.Thread{}, persistence.ErrNotFound
	}
	return th, nil
}

func (r *threadRepoStub) ListThreadsForUser(ctx context.Context, userID string) ([]persistence.Thread, error) {
	var out []persistence.Thread
	for i := len(r.order) - 1; i >= 0; i-- {
		th := r.threads[r.order[i]]
		if slices.Contains(th.ParticipantIDs, userID) {
			out = append(out, th)
		}
	}
	return out, nil
}

func (r *threadRepoStub) FindDirectThread(ctx context.Context, a, b string) (persistence.Thread, error) {
	for _, id := range r.order {
		th := r.threads[id]
		if th.Type != persistence.ThreadTypeDM || len(th.ParticipantIDs) != 2 {
			continue
		}
		if slices.Contains(th.ParticipantIDs, a) && slices.Contains(th.ParticipantIDs, b) {
			return th, nil
		}
	}
	return persistence.Thread{}, persistence.ErrNotFound
}

func (r *threadRepoStub) IsParticipant(ctx context.Context, threadID, userID string) (bool, error) {
	th, ok := r.threads[threadID]
	if !ok {
		return false, nil
	}
	return slices.Contains(th.ParticipantIDs, userID), nil
}

func (r *threadRepoStub) CreateMessage(ctx context.Context, message persistence.Message) error {
	if _, ok := r.threads[message.ThreadID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	r.messages = append(r.messages, message)
	return nil
}

func (r *threadRepoStub) ListMessages(ctx context.Context, threadID string, limit int) ([]persistence.Message, error) {
	var out []persistence.Message
	for _, m := range r.messages {
		if m.ThreadID == threadID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *threadRepoStub) LatestMessages(ctx context.Context, threadIDs []string) (map[string]persistence.Message, error) {
	out := map[string]persistence.Message{}
	for _, m := range r.messages {
		if slices.Contains(threadIDs, m.ThreadID) {
			out[m.ThreadID] = m
		}
	}
	return out, nil
}

// ----------------------------- desks -----------------------------

type deskRepoStub struct {
	desks        map[string]persistence.Desk
	reservations map[string]persistence.DeskReservation
	order        []string
	userNames    map[string]string
}

func newDeskRepoStub(desks ...persistence.Desk) *deskRepoStub {
	r := &deskRepoStub{
		desks:        map[string]persistence.Desk{},
		reservations: map[string]persistence.DeskReservation{},
		userNames:    map[string]string{},
	}
	for _, d := range desks {
		r.desks[d.ID] = d
	}
	return r
}

func (r *deskRepoStub) CreateDesk(ctx context.Context, desk persistence.Desk) error {
	for _, d := range r.desks {
		if d.FloorID == desk.FloorID && d.Label == desk.Label {
			return persistence.ErrDuplicate
		}
	}
	r.desks[desk.ID] = desk
	return nil
}

func (r *deskRepoStub) GetDesk(ctx context.Context, id string) (persistence.Desk, error) {
	d, ok := r.desks[id]
	if !ok {
		return persistence.Desk{}, persistence.ErrNotFound
	}
	return d, nil
}

func (r *deskRepoStub) ListDesks(ctx context.Context, floorID string) ([]persistence.Desk, error) {
	var out []persistence.Desk
	for _, d := range r.desks {
		if floorID == "" || d.FloorID == floorID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (r *deskRepoStub) CreateReservation(ctx context.Context, reservation persistence.DeskReservation) error {
	r.reservations[reservation.ID] = reservation
	r.order = append(r.order, reservation.ID)
	return nil
}

func (r *deskRepoStub) GetReservation(ctx context.Context, id string) (persistence.DeskReservation, error) {
	res, ok := r.reservations[id]
	if !ok {
		return persistence.DeskReservation{}, persistence.ErrNotFound
	}
	return res, nil
}

func (r *deskRepoStub) UpdateReservationStatus(ctx context.Context, id string, status persistence.ReservationStatus) error {
	res, ok := r.reservations[id]
	if !ok {
		return persistence.ErrNotFound
	}
	res.Status = status
	r.reservations[id] = res
	return nil
}

func (r *deskRepoStub) FindOverlappingReservation(ctx context.Context, deskID string, start, end time.Time) (persistence.DeskReservation, error) {
	for _, id := range r.order {
		res := r.reservations[id]
		if res.DeskID == deskID && res.Status == persistence.ReservationActive && res.StartsAt.Before(end) && res.EndsAt.After(start) {
			return res, nil
		}
	}
	return persistence.DeskReservation{}, persistence.ErrNotFound
}

func (r *deskRepoStub) ListActiveReservationsAt(ctx context.Context, deskIDs []string, at time.Time) ([]persistence.ReservationDetail, error) {
	var out []persistence.ReservationDetail
	for _, id := range r.order {
		res := r.reservations[id]
		if !slices.Contains(deskIDs, res.DeskID) || res.Status != persistence.ReservationActive {
			continue
		}
		if res.StartsAt.After(at) || res.EndsAt.Before(at) {
			continue
		}
		out = append(out, persistence.ReservationDetail{DeskReservation: res, UserName: r.userNames[res.UserID]})
	}
	return out, nil
}

// ----------------------------- presence -----------------------------

type presenceRepoStub struct {
	rows map[string]persistence.Presence
}

func newPresenceRepoStub() *presenceRepoStub {
	return &presenceRepoStub{rows: map[string]persistence.Presence{}}
}

func (r *presenceRepoStub) UpsertPresence(ctx context.Context, presence persistence.Presence) error {
	r.rows[presence.UserID] = presence
	return nil
}

func (r *presenceRepoStub) GetPresence(ctx context.Context, userID string) (persistence.Presence, error) {
	p, ok := r.rows[userID]
	if !ok {
		return persistence.Presence{}, persistence.ErrNotFound
	}
	return p, nil
}

func (r *presenceRepoStub) ListPresence(ctx context.Context, filter persistence.PresenceFilter) ([]persistence.PresenceDetail, error) {
	var out []persistence.PresenceDetail
	for _, p := range r.rows {
		if len(filter.UserIDs) > 0 && !slices.Contains(filter.UserIDs, p.UserID) {
			continue
		}
		out = append(out, persistence.PresenceDetail{Presence: p, User: persistence.User{ID: p.UserID}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// ----------------------------- notifications -----------------------------

type notificationRepoStub struct {
	items []persistence.Notification
}

func (r *notificationRepoStub) CreateNotification(ctx context.Context, notification persistence.Notification) error {
	r.items = append(r.items, notification)
	return nil
}

func (r *notificationRepoStub) ListNotifications(ctx context.Context, userID string, limit int) ([]persistence.Notification, error) {
	var out []persistence.Notification
	for i := len(r.items) - 1; i >= 0; i-- {
		if r.items[i].UserID == userID {
			out = append(out, r.items[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *notificationRepoStub) MarkNotificationRead(ctx context.Context, id, userID string, readAt time.Time) error {
	for i := range r.items {
		if r.items[i].ID == id && r.items[i].UserID == userID {
			if r.items[i].ReadAt == nil {
				r.items[i].ReadAt = &readAt
			}
			return nil
		}
	}
	return persistence.ErrNotFound
}

// ----------------------------- sessions -----------------------------

type sessionRepoStub struct {
	sessions     map[string]persistence.Session
	prunedBefore *time.Time
}

func newSessionRepoStub() *sessionRepoStub {
	return &sessionRepoStub{sessions: map[string]persistence.Session{}}
}

func (r *sessionRepoStub) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if _, ok := r.sessions[session.Token]; ok {
		return persistence.Session{}, persistence.ErrDuplicate
	}
	r.sessions[session.Token] = session
	return session, nil
}

func (r *sessionRepoStub) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	s, ok := r.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return s, nil
}

func (r *sessionRepoStub) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	for token, existing := range r.sessions {
		if existing.ID == session.ID {
			delete(r.sessions, token)
			r.sessions[session.Token] = session
			return session, nil
		}
	}
	return persistence.Session{}, persistence.ErrNotFound
}

func (r *sessionRepoStub) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	s, ok := r.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	if s.RevokedAt == nil {
		s.RevokedAt = &revokedAt
	}
	r.sessions[token] = s
	return s, nil
}

func (r *sessionRepoStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	r.prunedBefore = &reference
	for token, s := range r.sessions {
		if !s.ExpiresAt.After(reference) {
			delete(r.sessions, token)
		}
	}
	return nil
}
