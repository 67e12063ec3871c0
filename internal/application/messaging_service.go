package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/example/hybrid-work/internal/persistence"
)

const (
	defaultMessageTake = 50
	maxMessageTake     = 200
)

// MessagingServiceDeps lists the collaborators of MessagingService.
type MessagingServiceDeps struct {
	Threads     persistence.ThreadRepository
	Users       persistence.UserRepository
	Transactor  persistence.Transactor
	Publisher   Publisher
	IDGenerator func() string
	Now         func() time.Time
}

// MessagingService manages threads and messages.
type MessagingService struct {
	threads     persistence.ThreadRepository
	users       persistence.UserRepository
	tx          persistence.Transactor
	publisher   Publisher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMessagingService constructs a MessagingService.
func NewMessagingService(deps MessagingServiceDeps) *MessagingService {
	return NewMessagingServiceWithLogger(deps, nil)
}

// NewMessagingServiceWithLogger constructs a MessagingService with a specified logger.
func NewMessagingServiceWithLogger(deps MessagingServiceDeps, logger *slog.Logger) *MessagingService {
	return &MessagingService{
		threads:     deps.Threads,
		users:       deps.Users,
		tx:          defaultTransactor(deps.Transactor),
		publisher:   defaultPublisher(deps.Publisher),
		idGenerator: defaultIDGenerator(deps.IDGenerator),
		now:         defaultNow(deps.Now),
		logger:      defaultLogger(logger),
	}
}

func (s *MessagingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MessagingService", operation, attrs...)
}

// CreateThread opens a thread between the principal and the given
// participants. A DM between the same two users is reused.
func (s *MessagingService) CreateThread(ctx context.Context, params CreateThreadParams) (view ThreadView, err error) {
	if s == nil {
		err = nilService("MessagingService")
		return
	}
	logger := s.loggerWith(ctx, "CreateThread", "principal_id", params.Principal.UserID, "type", params.Type)
	defer func() {
		logOutcome(ctx, logger, err, "thread ready", "thread_id", view.ID)
	}()

	if err = requirePrincipal(params.Principal); err != nil {
		return
	}

	threadType := persistence.ThreadType(strings.ToUpper(strings.TrimSpace(params.Type)))
	participantIDs := uniqueIDs(append([]string{params.Principal.UserID}, params.ParticipantIDs...))
	vErr := &ValidationError{}
	if !threadType.Valid() {
		vErr.add("type", "type must be DM or GROUP")
	}
	if threadType == persistence.ThreadTypeDM && len(participantIDs) != 2 {
		vErr.add("participantIds", "a direct message needs exactly two participants")
	}
	if err = vErr.orNil(); err != nil {
		return
	}

	var users []persistence.User
	users, err = s.users.ListUsersByIDs(ctx, participantIDs)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if len(users) != len(participantIDs) {
		err = NewValidationError("participantIds", "unknown participant")
		return
	}

	var thread persistence.Thread
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if threadType == persistence.ThreadTypeDM {
			existing, err := s.threads.FindDirectThread(ctx, participantIDs[0], participantIDs[1])
			if err == nil {
				thread = existing
				return nil
			}
			if !errors.Is(err, persistence.ErrNotFound) {
				return mapRepoError(err)
			}
		}
		thread = persistence.Thread{
			ID:             s.idGenerator(),
			Type:           threadType,
			Topic:          normalizeOptional(params.Topic),
			CreatedBy:      params.Principal.UserID,
			CreatedAt:      s.now(),
			ParticipantIDs: participantIDs,
		}
		return mapRepoError(s.threads.CreateThread(ctx, thread))
	})
	if err != nil {
		return
	}

	view = ThreadView{Thread: thread, Participants: users}
	return
}

// CreateMessage appends a message to a thread the principal participates in.
func (s *MessagingService) CreateMessage(ctx context.Context, params CreateMessageParams) (message persistence.Message, err error) {
	if s == nil {
		err = nilService("MessagingService")
		return
	}
	logger := s.loggerWith(ctx, "CreateMessage", "principal_id", params.Principal.UserID, "thread_id", params.ThreadID)
	defer func() {
		logOutcome(ctx, logger, err, "message created", "message_id", message.ID)
	}()

	if err = requirePrincipal(params.Principal); err != nil {
		return
	}
	body := strings.TrimSpace(params.Body)
	if body == "" {
		err = NewValidationError("body", "body is required")
		return
	}

	var thread persistence.Thread
	thread, err = s.participantThread(ctx, params.ThreadID, params.Principal.UserID)
	if err != nil {
		return
	}

	message = persistence.Message{
		ID:          s.idGenerator(),
		ThreadID:    thread.ID,
		SenderID:    params.Principal.UserID,
		Body:        body,
		Attachments: params.Attachments,
		CreatedAt:   s.now(),
	}
	if err = s.threads.CreateMessage(ctx, message); err != nil {
		err = mapRepoError(err)
		message = persistence.Message{}
		return
	}

	s.publisher.Publish(thread.ParticipantIDs, EventMessageCreated, message)
	return
}

// ListThreads returns the principal's threads, newest first, each with its
// participants and latest message.
func (s *MessagingService) ListThreads(ctx context.Context, principal Principal) (views []ThreadView, err error) {
	if s == nil {
		return nil, nilService("MessagingService")
	}
	logger := s.loggerWith(ctx, "ListThreads", "principal_id", principal.UserID)
	defer func() {
		logOutcome(ctx, logger, err, "threads listed", "count", len(views))
	}()

	if err = requirePrincipal(principal); err != nil {
		return nil, err
	}

	threads, err := s.threads.ListThreadsForUser(ctx, principal.UserID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	views = make([]ThreadView, 0, len(threads))
	if len(threads) == 0 {
		return views, nil
	}

	threadIDs := make([]string, len(threads))
	var userIDs []string
	for i, thread := range threads {
		threadIDs[i] = thread.ID
		userIDs = append(userIDs, thread.ParticipantIDs...)
	}
	users, err := s.users.ListUsersByIDs(ctx, uniqueIDs(userIDs))
	if err != nil {
		return nil, mapRepoError(err)
	}
	byID := make(map[string]persistence.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}
	latest, err := s.threads.LatestMessages(ctx, threadIDs)
	if err != nil {
		return nil, mapRepoError(err)
	}

	for _, thread := range threads {
		view := ThreadView{Thread: thread, Participants: []persistence.User{}}
		for _, id := range thread.ParticipantIDs {
			if user, ok := byID[id]; ok {
				view.Participants = append(view.Participants, user)
			}
		}
		if message, ok := latest[thread.ID]; ok {
			view.LatestMessage = &message
		}
		views = append(views, view)
	}
	return views, nil
}

// ListMessages returns the latest messages of a thread in creation order.
func (s *MessagingService) ListMessages(ctx context.Context, params ListMessagesParams) (messages []persistence.Message, err error) {
	if s == nil {
		return nil, nilService("MessagingService")
	}
	take := clampTake(params.Take)
	logger := s.loggerWith(ctx, "ListMessages", "principal_id", params.Principal.UserID, "thread_id", params.ThreadID, "take", take)
	defer func() {
		logOutcome(ctx, logger, err, "messages listed", "count", len(messages))
	}()

	if err = requirePrincipal(params.Principal); err != nil {
		return nil, err
	}
	var member bool
	member, err = s.threads.IsParticipant(ctx, params.ThreadID, params.Principal.UserID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !member {
		return nil, ErrNotFound
	}

	messages, err = s.threads.ListMessages(ctx, params.ThreadID, take)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if messages == nil {
		messages = []persistence.Message{}
	}
	return messages, nil
}

// participantThread loads a thread, reporting ErrNotFound to non-participants.
func (s *MessagingService) participantThread(ctx context.Context, threadID, userID string) (persistence.Thread, error) {
	thread, err := s.threads.GetThread(ctx, threadID)
	if err != nil {
		return persistence.Thread{}, mapRepoError(err)
	}
	for _, id := range thread.ParticipantIDs {
		if id == userID {
			return thread, nil
		}
	}
	return persistence.Thread{}, ErrNotFound
}

func clampTake(take int) int {
	switch {
	case take == 0:
		return defaultMessageTake
	case take < 1:
		return 1
	case take > maxMessageTake:
		return maxMessageTake
	}
	return take
}
