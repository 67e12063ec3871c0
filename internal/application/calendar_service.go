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

const (
	maskedPrivateTitle  = "Private event"
	maskedBusyTitle     = "Busy"
	defaultRequestTitle = "Meeting request"
	defaultMeetingTitle = "Scheduled meeting"

	// DefaultScheduleRequestDuration is used when neither the draft nor the
	// configuration provide an end time.
	DefaultScheduleRequestDuration = 30 * time.Minute
)

// Notifier records a notification for a user.
type Notifier interface {
	Notify(ctx context.Context, userID, kind string, payload map[string]any) error
}

// CalendarServiceDeps lists the collaborators of CalendarService.
type CalendarServiceDeps struct {
	Calendar        persistence.CalendarRepository
	Requests        persistence.ScheduleRequestRepository
	Threads         persistence.ThreadRepository
	Users           persistence.UserRepository
	Transactor      persistence.Transactor
	Notifier        Notifier
	Publisher       Publisher
	IDGenerator     func() string
	Now             func() time.Time
	RequestDuration time.Duration
}

// CalendarService manages events, availability blocks and schedule requests.
type CalendarService struct {
	calendar        persistence.CalendarRepository
	requests        persistence.ScheduleRequestRepository
	threads         persistence.ThreadRepository
	users           persistence.UserRepository
	tx              persistence.Transactor
	notifier        Notifier
	publisher       Publisher
	idGenerator     func() string
	now             func() time.Time
	requestDuration time.Duration
	logger          *slog.Logger
}

// NewCalendarService constructs a CalendarService.
func NewCalendarService(deps CalendarServiceDeps) *CalendarService {
	return NewCalendarServiceWithLogger(deps, nil)
}

// NewCalendarServiceWithLogger constructs a CalendarService with a specified logger.
func NewCalendarServiceWithLogger(deps CalendarServiceDeps, logger *slog.Logger) *CalendarService {
	duration := deps.RequestDuration
	if duration <= 0 {
		duration = DefaultScheduleRequestDuration
	}
	return &CalendarService{
		calendar:        deps.Calendar,
		requests:        deps.Requests,
		threads:         deps.Threads,
		users:           deps.Users,
		tx:              defaultTransactor(deps.Transactor),
		notifier:        deps.Notifier,
		publisher:       defaultPublisher(deps.Publisher),
		idGenerator:     defaultIDGenerator(deps.IDGenerator),
		now:             defaultNow(deps.Now),
		requestDuration: duration,
		logger:          defaultLogger(logger),
	}
}

func (s *CalendarService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CalendarService", operation, attrs...)
}

// MaskEventForViewer hides the details of events the viewer may not see.
// Owners and PUBLIC events pass through unchanged; otherwise the title is
// replaced and the location cleared. The input is never modified.
func MaskEventForViewer(event persistence.CalendarEvent, viewerID string) persistence.CalendarEvent {
	if event.OwnerID == viewerID || event.Visibility == persistence.VisibilityPublic {
		return event
	}
	masked := event
	if event.Visibility == persistence.VisibilityPrivate {
		masked.Title = maskedPrivateTitle
	} else {
		masked.Title = maskedBusyTitle
	}
	masked.Location = nil
	return masked
}

// EventsForUser lists the events of an owner, masked for the principal.
func (s *CalendarService) EventsForUser(ctx context.Context, params CalendarRangeParams) (events []persistence.CalendarEvent, err error) {
	if s == nil {
		return nil, nilService("CalendarService")
	}
	ownerID := resolveOwner(params.Principal, params.OwnerID)
	logger := s.loggerWith(ctx, "EventsForUser", "principal_id", params.Principal.UserID, "owner_id", ownerID)
	defer func() {
		logOutcome(ctx, logger, err, "events listed", "count", len(events))
	}()

	if err = requirePrincipal(params.Principal); err != nil {
		return nil, err
	}

	var stored []persistence.CalendarEvent
	stored, err = s.calendar.ListEvents(ctx, persistence.IntervalFilter{
		OwnerIDs:        []string{ownerID},
		StartsAtOrAfter: params.From,
		EndsAtOrBefore:  params.To,
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	events = make([]persistence.CalendarEvent, len(stored))
	for i, event := range stored {
		events[i] = MaskEventForViewer(event, params.Principal.UserID)
	}
	return events, nil
}

// AvailabilityBlocks lists the availability blocks of an owner.
func (s *CalendarService) AvailabilityBlocks(ctx context.Context, params CalendarRangeParams) (blocks []persistence.AvailabilityBlock, err error) {
	if s == nil {
		return nil, nilService("CalendarService")
	}
	ownerID := resolveOwner(params.Principal, params.OwnerID)
	logger := s.loggerWith(ctx, "AvailabilityBlocks", "principal_id", params.Principal.UserID, "owner_id", ownerID)
	defer func() {
		logOutcome(ctx, logger, err, "blocks listed", "count", len(blocks))
	}()

	if err = requirePrincipal(params.Principal); err != nil {
		return nil, err
	}

	blocks, err = s.calendar.ListBlocks(ctx, persistence.IntervalFilter{
		OwnerIDs:        []string{ownerID},
		StartsAtOrAfter: params.From,
		EndsAtOrBefore:  params.To,
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return blocks, nil
}

// CreateEvent adds an event to the principal's calendar.
func (s *CalendarService) CreateEvent(ctx context.Context, params CreateEventParams) (event persistence.CalendarEvent, err error) {
	if s == nil {
		err = nilService("CalendarService")
		return
	}
	ownerID := resolveOwner(params.Principal, params.Input.OwnerID)
	logger := s.loggerWith(ctx, "CreateEvent", "principal_id", params.Principal.UserID, "owner_id", ownerID)
	defer func() {
		logOutcome(ctx, logger, err, "event created", "event_id", event.ID)
	}()

	if err = requirePrincipal(params.Principal); err != nil {
		return
	}
	if ownerID != params.Principal.UserID {
		err = ErrForbidden
		return
	}

	input := params.Input
	vErr := &ValidationError{}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		vErr.add("title", "title is required")
	}
	vErr.merge(validateRange(input.StartsAt, input.EndsAt))
	visibility, vis := parseVisibility(input.Visibility, persistence.VisibilityFreeBusy)
	vErr.merge(vis)
	if err = vErr.orNil(); err != nil {
		return
	}

	now := s.now()
	event = persistence.CalendarEvent{
		ID:         s.idGenerator(),
		OwnerID:    ownerID,
		Title:      title,
		StartsAt:   input.StartsAt.UTC(),
		EndsAt:     input.EndsAt.UTC(),
		Location:   normalizeOptional(input.Location),
		Visibility: visibility,
		CreatedBy:  ownerID,
		Source:     persistence.EventSourceManual,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err = s.calendar.CreateEvent(ctx, event); err != nil {
		err = mapRepoError(err)
		event = persistence.CalendarEvent{}
		return
	}
	event = MaskEventForViewer(event, params.Principal.UserID)
	return
}

// UpdateEvent changes an event owned by the principal.
func (s *CalendarService) UpdateEvent(ctx context.Context, params UpdateEventParams) (event persistence.CalendarEvent, err error) {
	if s == nil {
		err = nilService("CalendarService")
		return
	}
	logger := s.loggerWith(ctx, "UpdateEvent", "principal_id", params.Principal.UserID, "event_id", params.EventID)
	defer func() {
		logOutcome(ctx, logger, err, "event updated")
	}()

	if err = requirePrincipal(params.Principal); err != nil {
		return
	}

	var existing persistence.CalendarEvent
	existing, err = s.calendar.GetEvent(ctx, params.EventID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if existing.OwnerID != params.Principal.UserID {
		err = ErrForbidden
		return
	}

	patch := params.Patch
	updated := existing
	vErr := &ValidationError{}
	if patch.Title != nil {
		updated.Title = strings.TrimSpace(*patch.Title)
		if updated.Title == "" {
			vErr.add("title", "title cannot be empty")
		}
	}
	if patch.StartsAt != nil {
		updated.StartsAt = patch.StartsAt.UTC()
	}
	if patch.EndsAt != nil {
		updated.EndsAt = patch.EndsAt.UTC()
	}
	if patch.Location != nil {
		updated.Location = normalizeOptional(patch.Location)
	}
	if patch.Visibility != nil {
		visibility, vis := parseVisibility(*patch.Visibility, existing.Visibility)
		vErr.merge(vis)
		updated.Visibility = visibility
	}
	if !updated.StartsAt.Before(updated.EndsAt) {
		vErr.add("endsAt", "endsAt must be after startsAt")
	}
	if err = vErr.orNil(); err != nil {
		return
	}

	updated.UpdatedAt = s.now()
	if err = s.calendar.UpdateEvent(ctx, updated); err != nil {
		err = mapRepoError(err)
		return
	}
	event = MaskEventForViewer(updated, params.Principal.UserID)
	return
}

// DeleteEvent removes an event owned by the principal.
func (s *CalendarService) DeleteEvent(ctx context.Context, principal Principal, eventID string) (err error) {
	if s == nil {
		return nilService("CalendarService")
	}
	logger := s.loggerWith(ctx, "DeleteEvent", "principal_id", principal.UserID, "event_id", eventID)
	defer func() {
		logOutcome(ctx, logger, err, "event deleted")
	}()

	if err = requirePrincipal(principal); err != nil {
		return err
	}
	existing, err := s.calendar.GetEvent(ctx, eventID)
	if err != nil {
		return mapRepoError(err)
	}
	if existing.OwnerID != principal.UserID {
		return ErrForbidden
	}
	if err = s.calendar.DeleteEvent(ctx, eventID); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// CreateBlock declares a span of unavailability for the principal.
func (s *CalendarService) CreateBlock(ctx context.Context, params CreateBlockParams) (block persistence.AvailabilityBlock, err error) {
	if s == nil {
		err = nilService("CalendarService")
		return
	}
	logger := s.loggerWith(ctx, "CreateBlock", "principal_id", params.Principal.UserID)
	defer func() {
		logOutcome(ctx, logger, err, "block created", "block_id", block.ID)
	}()

	if err = requirePrincipal(params.Principal); err != nil {
		return
	}

	input := params.Input
	vErr := &ValidationError{}
	kind := persistence.BlockKind(strings.ToUpper(strings.TrimSpace(input.Kind)))
	if !kind.Valid() {
		vErr.add("kind", "kind must be one of REST, FOCUS, OOO")
	}
	vErr.merge(validateRange(input.StartsAt, input.EndsAt))
	visibility, vis := parseVisibility(input.Visibility, persistence.VisibilityFreeBusy)
	vErr.merge(vis)
	if err = vErr.orNil(); err != nil {
		return
	}

	block = persistence.AvailabilityBlock{
		ID:         s.idGenerator(),
		OwnerID:    params.Principal.UserID,
		StartsAt:   input.StartsAt.UTC(),
		EndsAt:     input.EndsAt.UTC(),
		Kind:       kind,
		Visibility: visibility,
		CreatedAt:  s.now(),
	}
	if err = s.calendar.CreateBlock(ctx, block); err != nil {
		err = mapRepoError(err)
		block = persistence.AvailabilityBlock{}
	}
	return
}

// ActiveBlocks returns the blocks of the given users that contain now. Other
// users' PRIVATE blocks are left out.
func (s *CalendarService) ActiveBlocks(ctx context.Context, principal Principal, userIDs []string) (blocks []persistence.AvailabilityBlock, err error) {
	if s == nil {
		return nil, nilService("CalendarService")
	}
	userIDs = uniqueIDs(userIDs)
	logger := s.loggerWith(ctx, "ActiveBlocks", "principal_id", principal.UserID, "user_count", len(userIDs))
	defer func() {
		logOutcome(ctx, logger, err, "active blocks listed", "count", len(blocks))
	}()

	if err = requirePrincipal(principal); err != nil {
		return nil, err
	}
	blocks = []persistence.AvailabilityBlock{}
	if len(userIDs) == 0 {
		return blocks, nil
	}

	now := s.now()
	var stored []persistence.AvailabilityBlock
	stored, err = s.calendar.ListBlocks(ctx, persistence.IntervalFilter{
		OwnerIDs:         userIDs,
		StartsAtOrBefore: &now,
		EndsAtOrAfter:    &now,
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	for _, block := range stored {
		if block.OwnerID != principal.UserID && block.Visibility == persistence.VisibilityPrivate {
			continue
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// NextAvailability returns, per requested user in input order, the first
// instant at or after now that is not covered by one of their events or blocks.
func (s *CalendarService) NextAvailability(ctx context.Context, userIDs []string, now, horizon time.Time) (result []Availability, err error) {
	if s == nil {
		return nil, nilService("CalendarService")
	}
	userIDs = uniqueIDs(userIDs)
	logger := s.loggerWith(ctx, "NextAvailability", "user_count", len(userIDs))
	defer func() {
		logOutcome(ctx, logger, err, "availability computed")
	}()

	result = []Availability{}
	if len(userIDs) == 0 {
		return result, nil
	}
	if !horizon.After(now) {
		horizon = now.Add(time.Hour)
	}

	filter := persistence.IntervalFilter{
		OwnerIDs:         userIDs,
		EndsAtOrAfter:    &now,
		StartsAtOrBefore: &horizon,
	}
	events, err := s.calendar.ListEvents(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err)
	}
	blocks, err := s.calendar.ListBlocks(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err)
	}

	busy := make(map[string][]interval.Span, len(userIDs))
	for _, event := range events {
		busy[event.OwnerID] = append(busy[event.OwnerID], interval.Span{ID: event.ID, Start: event.StartsAt, End: event.EndsAt})
	}
	for _, block := range blocks {
		busy[block.OwnerID] = append(busy[block.OwnerID], interval.Span{ID: block.ID, Start: block.StartsAt, End: block.EndsAt})
	}

	for _, userID := range userIDs {
		result = append(result, Availability{
			UserID:      userID,
			AvailableAt: interval.NextFree(now, busy[userID]),
		})
	}
	return result, nil
}

// ListScheduleRequests lists the requests the principal received (incoming,
// the default) or sent (outgoing), newest first.
func (s *CalendarService) ListScheduleRequests(ctx context.Context, principal Principal, scope RequestScope) (requests []persistence.ScheduleRequest, err error) {
	if s == nil {
		return nil, nilService("CalendarService")
	}
	logger := s.loggerWith(ctx, "ListScheduleRequests", "principal_id", principal.UserID, "scope", string(scope))
	defer func() {
		logOutcome(ctx, logger, err, "schedule requests listed", "count", len(requests))
	}()

	if err = requirePrincipal(principal); err != nil {
		return nil, err
	}
	filter := persistence.RequestFilter{TargetUserID: principal.UserID}
	switch scope {
	case "", RequestScopeIncoming:
	case RequestScopeOutgoing:
		filter = persistence.RequestFilter{RequesterID: principal.UserID}
	default:
		return nil, NewValidationError("scope", "scope must be incoming or outgoing")
	}

	requests, err = s.requests.ListRequests(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return requests, nil
}

// CreateScheduleRequest proposes a meeting to another user. The request, the
// DM thread between both users and the announcing message are written in one
// transaction.
func (s *CalendarService) CreateScheduleRequest(ctx context.Context, params CreateScheduleRequestParams) (request persistence.ScheduleRequest, err error) {
	if s == nil {
		err = nilService("CalendarService")
		return
	}
	requesterID := params.Principal.UserID
	targetID := strings.TrimSpace(params.TargetUserID)
	logger := s.loggerWith(ctx, "CreateScheduleRequest", "principal_id", requesterID, "target_user_id", targetID)
	defer func() {
		logOutcome(ctx, logger, err, "schedule request created", "request_id", request.ID)
	}()

	if err = requirePrincipal(params.Principal); err != nil {
		return
	}
	if targetID == "" {
		err = NewValidationError("targetUserId", "targetUserId is required")
		return
	}
	draft, vErr := normalizeDraft(params.Draft)
	if err = vErr.orNil(); err != nil {
		return
	}

	if _, err = s.users.GetUser(ctx, targetID); err != nil {
		err = mapRepoError(err)
		return
	}
	if targetID == requesterID {
		err = ErrForbidden
		return
	}

	now := s.now()
	request = persistence.ScheduleRequest{
		ID:           s.idGenerator(),
		RequesterID:  requesterID,
		TargetUserID: targetID,
		EventDraft:   draft,
		Notes:        normalizeOptional(params.Notes),
		Status:       persistence.RequestStatusPending,
		CreatedAt:    now,
	}

	var message persistence.Message
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.requests.CreateRequest(ctx, request); err != nil {
			return mapRepoError(err)
		}
		thread, err := s.findOrCreateDirectThread(ctx, requesterID, targetID, now)
		if err != nil {
			return err
		}
		message = requestMessage(s.idGenerator(), thread.ID, request, now)
		if err := s.threads.CreateMessage(ctx, message); err != nil {
			return mapRepoError(err)
		}
		return nil
	})
	if err != nil {
		request = persistence.ScheduleRequest{}
		return
	}

	s.publisher.Publish([]string{requesterID, targetID}, EventMessageCreated, message)
	s.publisher.Publish([]string{requesterID, targetID}, EventScheduleRequestCreated, request)
	s.notify(ctx, logger, targetID, EventScheduleRequestCreated, map[string]any{
		"requestId":   request.ID,
		"requesterId": requesterID,
		"title":       draftTitle(draft, defaultRequestTitle),
	})
	return
}

// UpdateScheduleRequestStatus approves or declines a pending request. Only
// the target may decide; decided requests are returned unchanged. Approval
// creates one event for each party in the same transaction.
func (s *CalendarService) UpdateScheduleRequestStatus(ctx context.Context, params DecideScheduleRequestParams) (request persistence.ScheduleRequest, err error) {
	if s == nil {
		err = nilService("CalendarService")
		return
	}
	actorID := params.Principal.UserID
	logger := s.loggerWith(ctx, "UpdateScheduleRequestStatus",
		"principal_id", actorID,
		"request_id", params.RequestID,
		"status", params.Status,
	)
	defer func() {
		logOutcome(ctx, logger, err, "schedule request decided", "result_status", string(request.Status))
	}()

	if err = requirePrincipal(params.Principal); err != nil {
		return
	}
	status := persistence.RequestStatus(strings.ToUpper(strings.TrimSpace(params.Status)))
	if status != persistence.RequestStatusApproved && status != persistence.RequestStatusDeclined {
		err = NewValidationError("status", "status must be APPROVED or DECLINED")
		return
	}

	changed := false
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.requests.GetRequest(ctx, params.RequestID)
		if err != nil {
			return mapRepoError(err)
		}
		if existing.TargetUserID != actorID {
			return ErrForbidden
		}
		if existing.Status != persistence.RequestStatusPending {
			request = existing
			return nil
		}

		now := s.now()
		if err := s.requests.UpdateRequestStatus(ctx, existing.ID, status, now); err != nil {
			return mapRepoError(err)
		}
		existing.Status = status
		existing.DecidedAt = &now

		if status == persistence.RequestStatusApproved {
			for _, event := range s.approvedEvents(existing, now) {
				if err := s.calendar.CreateEvent(ctx, event); err != nil {
					return mapRepoError(err)
				}
			}
		}
		request = existing
		changed = true
		return nil
	})
	if err != nil {
		request = persistence.ScheduleRequest{}
		return
	}

	if changed {
		s.publisher.Publish([]string{request.RequesterID, request.TargetUserID}, EventScheduleRequestDecided, request)
		s.notify(ctx, logger, request.RequesterID, EventScheduleRequestDecided, map[string]any{
			"requestId": request.ID,
			"status":    string(request.Status),
			"title":     draftTitle(request.EventDraft, defaultMeetingTitle),
		})
	}
	return
}

// approvedEvents builds the two mirrored events of an approved request: one
// owned by the target and created by the requester, and the reverse.
func (s *CalendarService) approvedEvents(request persistence.ScheduleRequest, now time.Time) []persistence.CalendarEvent {
	draft := request.EventDraft
	startsAt, ok := draftTime(draft, "startsAt")
	if !ok {
		startsAt = now
	}
	endsAt, ok := draftTime(draft, "endsAt")
	if !ok {
		endsAt = startsAt.Add(s.requestDuration)
	}
	var location *string
	if value, ok := draft["location"].(string); ok {
		location = &value
	}
	visibility := persistence.VisibilityFreeBusy
	if value, ok := draft["visibility"].(string); ok && persistence.Visibility(value).Valid() {
		visibility = persistence.Visibility(value)
	}
	title := draftTitle(draft, defaultMeetingTitle)

	build := func(ownerID, createdBy string) persistence.CalendarEvent {
		return persistence.CalendarEvent{
			ID:         s.idGenerator(),
			OwnerID:    ownerID,
			Title:      title,
			StartsAt:   startsAt,
			EndsAt:     endsAt,
			Location:   location,
			Visibility: visibility,
			CreatedBy:  createdBy,
			Source:     persistence.EventSourceRequest,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}
	return []persistence.CalendarEvent{
		build(request.TargetUserID, request.RequesterID),
		build(request.RequesterID, request.TargetUserID),
	}
}

func (s *CalendarService) findOrCreateDirectThread(ctx context.Context, a, b string, now time.Time) (persistence.Thread, error) {
	thread, err := s.threads.FindDirectThread(ctx, a, b)
	if err == nil {
		return thread, nil
	}
	if !errors.Is(err, persistence.ErrNotFound) {
		return persistence.Thread{}, mapRepoError(err)
	}
	thread = persistence.Thread{
		ID:             s.idGenerator(),
		Type:           persistence.ThreadTypeDM,
		CreatedBy:      a,
		CreatedAt:      now,
		ParticipantIDs: []string{a, b},
	}
	if err := s.threads.CreateThread(ctx, thread); err != nil {
		return persistence.Thread{}, mapRepoError(err)
	}
	return thread, nil
}

func (s *CalendarService) notify(ctx context.Context, logger *slog.Logger, userID, kind string, payload map[string]any) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, kind, payload); err != nil {
		logger.WarnContext(ctx, "failed to record notification", "error", err, "recipient_id", userID, "kind", kind)
	}
}

// requestMessage renders the DM message announcing a schedule request.
func requestMessage(id, threadID string, request persistence.ScheduleRequest, now time.Time) persistence.Message {
	draft := request.EventDraft
	title := draftTitle(draft, defaultRequestTitle)
	body := "Calendar request: " + title
	startsAt, hasStart := draftTime(draft, "startsAt")
	endsAt, hasEnd := draftTime(draft, "endsAt")
	if hasStart && hasEnd {
		body += fmt.Sprintf(" (%s → %s)", startsAt.Format(time.RFC3339), endsAt.Format(time.RFC3339))
	}

	visibility, ok := draft["visibility"]
	if !ok || visibility == nil {
		visibility = string(persistence.VisibilityFreeBusy)
	}
	return persistence.Message{
		ID:       id,
		ThreadID: threadID,
		SenderID: request.RequesterID,
		Body:     body,
		Attachments: map[string]any{
			"kind":         "calendar-request",
			"requestId":    request.ID,
			"targetUserId": request.TargetUserID,
			"title":        title,
			"startsAt":     draftValue(draft, "startsAt"),
			"endsAt":       draftValue(draft, "endsAt"),
			"location":     draftValue(draft, "location"),
			"visibility":   visibility,
		},
		CreatedAt: now,
	}
}

// normalizeDraft copies the draft and checks the fields that later steps
// interpret. Unknown keys are kept.
func normalizeDraft(raw map[string]any) (persistence.EventDraft, *ValidationError) {
	vErr := &ValidationError{}
	draft := persistence.EventDraft{}
	for key, value := range raw {
		draft[key] = value
	}
	for _, key := range []string{"startsAt", "endsAt"} {
		value, ok := draft[key]
		if !ok || value == nil {
			continue
		}
		text, isString := value.(string)
		if !isString {
			vErr.add("eventDraft."+key, key+" must be an ISO 8601 timestamp")
			continue
		}
		parsed, err := ParseTimestamp(text)
		if err != nil {
			vErr.add("eventDraft."+key, key+" must be an ISO 8601 timestamp")
			continue
		}
		draft[key] = parsed.Format(time.RFC3339)
	}
	start, hasStart := draftTime(draft, "startsAt")
	end, hasEnd := draftTime(draft, "endsAt")
	if hasStart && hasEnd && !start.Before(end) {
		vErr.add("eventDraft.endsAt", "endsAt must be after startsAt")
	}
	return draft, vErr
}

func draftTitle(draft persistence.EventDraft, fallback string) string {
	if title, ok := draft["title"].(string); ok && strings.TrimSpace(title) != "" {
		return title
	}
	return fallback
}

func draftTime(draft persistence.EventDraft, key string) (time.Time, bool) {
	text, ok := draft[key].(string)
	if !ok || text == "" {
		return time.Time{}, false
	}
	t, err := ParseTimestamp(text)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func draftValue(draft persistence.EventDraft, key string) any {
	if value, ok := draft[key]; ok {
		return value
	}
	return nil
}

func validateRange(start, end time.Time) *ValidationError {
	vErr := &ValidationError{}
	if start.IsZero() {
		vErr.add("startsAt", "startsAt is required")
	}
	if end.IsZero() {
		vErr.add("endsAt", "endsAt is required")
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		vErr.add("endsAt", "endsAt must be after startsAt")
	}
	return vErr
}

func parseVisibility(raw string, fallback persistence.Visibility) (persistence.Visibility, *ValidationError) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return fallback, nil
	}
	visibility := persistence.Visibility(raw)
	if !visibility.Valid() {
		return fallback, NewValidationError("visibility", "visibility must be one of PRIVATE, FREEBUSY, PUBLIC")
	}
	return visibility, nil
}

// normalizeOptional trims an optional string; empty values become nil.
func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
