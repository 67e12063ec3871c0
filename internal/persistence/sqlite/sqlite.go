package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/hybrid-work/internal/persistence/sqlite/migration"
	"github.com/example/hybrid-work/internal/persistence/sqlite/migrations"
)

// Store bundles every SQLite repository over one connection pool.
type Store struct {
	Pool          *ConnectionPool
	Users         *UserRepository
	Sessions      *SessionRepository
	Calendar      *CalendarRepository
	Requests      *ScheduleRequestRepository
	Threads       *ThreadRepository
	Desks         *DeskRepository
	Presence      *PresenceRepository
	Notifications *NotificationRepository
}

// Open connects to the database described by config. Call Migrate before use
// on a fresh database.
func Open(config migration.SQLiteConfig) (*Store, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return NewStore(pool), nil
}

// NewStore builds the repositories over an existing pool.
func NewStore(pool *ConnectionPool) *Store {
	return &Store{
		Pool:          pool,
		Users:         NewUserRepository(pool),
		Sessions:      NewSessionRepository(pool),
		Calendar:      NewCalendarRepository(pool),
		Requests:      NewScheduleRequestRepository(pool),
		Threads:       NewThreadRepository(pool),
		Desks:         NewDeskRepository(pool),
		Presence:      NewPresenceRepository(pool),
		Notifications: NewNotificationRepository(pool),
	}
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context, logger *slog.Logger) error {
	manager := migration.NewManager(
		migration.NewScanner(migrations.FS, "."),
		migration.NewExecutor(s.Pool.DB()),
		logger,
	)
	if err := manager.Run(ctx); err != nil {
		return fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return nil
}

// WithinTransaction delegates to the pool so a Store can be used as a persistence.Transactor.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.Pool.WithinTransaction(ctx, fn)
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	if s == nil || s.Pool == nil {
		return nil
	}
	return s.Pool.Close()
}
