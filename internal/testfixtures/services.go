package testfixtures

import (
	"log/slog"
	"sync"
	"time"

	"github.com/example/hybrid-work/internal/application"
	"github.com/example/hybrid-work/internal/persistence/sqlite"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Publisher   *RecordingPublisher
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Publisher:   &RecordingPublisher{},
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Publisher == nil {
		factory.Publisher = &RecordingPublisher{}
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLogger sets the logger passed to every service.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// NewNotificationService builds a notification service over store.
func (f *ServiceFactory) NewNotificationService(store *sqlite.Store) *application.NotificationService {
	return application.NewNotificationServiceWithLogger(store.Notifications, f.Publisher, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), f.Logger)
}

// NewCalendarService builds a calendar service over store with a notification
// service as its notifier.
func (f *ServiceFactory) NewCalendarService(store *sqlite.Store) *application.CalendarService {
	return application.NewCalendarServiceWithLogger(application.CalendarServiceDeps{
		Calendar:    store.Calendar,
		Requests:    store.Requests,
		Threads:     store.Threads,
		Users:       store.Users,
		Transactor:  store,
		Notifier:    f.NewNotificationService(store),
		Publisher:   f.Publisher,
		IDGenerator: f.IDGenerator.NextFunc(),
		Now:         f.Clock.NowFunc(),
	}, f.Logger)
}

// NewDeskService builds a desk service over store.
func (f *ServiceFactory) NewDeskService(store *sqlite.Store) *application.DeskService {
	return application.NewDeskServiceWithLogger(application.DeskServiceDeps{
		Desks:       store.Desks,
		Presence:    store.Presence,
		Transactor:  store,
		Publisher:   f.Publisher,
		IDGenerator: f.IDGenerator.NextFunc(),
		Now:         f.Clock.NowFunc(),
	}, f.Logger)
}

// NewMessagingService builds a messaging service over store.
func (f *ServiceFactory) NewMessagingService(store *sqlite.Store) *application.MessagingService {
	return application.NewMessagingServiceWithLogger(application.MessagingServiceDeps{
		Threads:     store.Threads,
		Users:       store.Users,
		Transactor:  store,
		Publisher:   f.Publisher,
		IDGenerator: f.IDGenerator.NextFunc(),
		Now:         f.Clock.NowFunc(),
	}, f.Logger)
}

// NewPresenceService builds a presence service over store.
func (f *ServiceFactory) NewPresenceService(store *sqlite.Store) *application.PresenceService {
	return application.NewPresenceServiceWithLogger(store.Presence, store.Desks, f.Publisher, f.Clock.NowFunc(), f.Logger)
}

// PublishedEvent is one call recorded by RecordingPublisher.
type PublishedEvent struct {
	UserIDs []string
	Type    string
	Payload any
}

// RecordingPublisher captures realtime events instead of delivering them.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
}

// Publish implements application.Publisher.
func (p *RecordingPublisher) Publish(userIDs []string, eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, PublishedEvent{UserIDs: append([]string(nil), userIDs...), Type: eventType, Payload: payload})
}

// Events returns the recorded events in publish order.
func (p *RecordingPublisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedEvent(nil), p.events...)
}

// OfType returns the recorded events with the given type.
func (p *RecordingPublisher) OfType(eventType string) []PublishedEvent {
	var out []PublishedEvent
	for _, e := range p.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
