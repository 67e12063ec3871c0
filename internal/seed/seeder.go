package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/hybrid-work/internal/persistence"
)

// Repositories lists the stores the seeder writes to.
type Repositories struct {
	Users      persistence.UserRepository
	Desks      persistence.DeskRepository
	Presence   persistence.PresenceRepository
	Threads    persistence.ThreadRepository
	Calendar   persistence.CalendarRepository
	Transactor persistence.Transactor
}

// Seeder applies a Dataset. Applying the same dataset twice leaves the
// database unchanged apart from the event times, which follow the clock.
type Seeder struct {
	repos        Repositories
	hashPassword func(string) (string, error)
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewSeeder wires a Seeder. All function arguments are required.
func NewSeeder(repos Repositories, hashPassword func(string) (string, error), idGenerator func() string, now func() time.Time, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		repos:        repos,
		hashPassword: hashPassword,
		idGenerator:  idGenerator,
		now:          now,
		logger:       logger.With("component", "seed"),
	}
}

// Summary counts the rows the seeder inserted.
type Summary struct {
	Users    int
	Desks    int
	Threads  int
	Messages int
	Events   int
}

// Apply writes ds in one transaction.
func (s *Seeder) Apply(ctx context.Context, ds Dataset) (Summary, error) {
	var summary Summary
	err := s.repos.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		summary = Summary{}
		ids, err := s.users(ctx, ds, &summary)
		if err != nil {
			return err
		}
		if err := s.desks(ctx, ds, &summary); err != nil {
			return err
		}
		if err := s.presence(ctx, ds, ids); err != nil {
			return err
		}
		if err := s.directMessages(ctx, ds, ids, &summary); err != nil {
			return err
		}
		return s.events(ctx, ds, ids, &summary)
	})
	if err != nil {
		return Summary{}, err
	}
	s.logger.InfoContext(ctx, "seed applied",
		"users", summary.Users,
		"desks", summary.Desks,
		"threads", summary.Threads,
		"messages", summary.Messages,
		"events", summary.Events,
	)
	return summary, nil
}

// users inserts missing accounts and maps dataset IDs to stored IDs.
func (s *Seeder) users(ctx context.Context, ds Dataset, summary *Summary) (map[string]string, error) {
	ids := make(map[string]string, len(ds.Users))
	for _, u := range ds.Users {
		existing, err := s.repos.Users.GetUserByLogin(ctx, u.Email)
		if err == nil {
			ids[u.ID] = existing.ID
			continue
		}
		if !errors.Is(err, persistence.ErrNotFound) {
			return nil, fmt.Errorf("look up user %s: %w", u.ID, err)
		}

		hash, err := s.hashPassword(u.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password of %s: %w", u.ID, err)
		}
		now := s.now()
		if err := s.repos.Users.CreateUser(ctx, persistence.User{
			ID:           u.ID,
			OrgID:        ds.Org,
			Name:         u.Name,
			Email:        u.Email,
			Username:     u.Username,
			PasswordHash: hash,
			Role:         persistence.RoleMember,
			TimeZone:     u.TimeZone,
			CreatedAt:    now,
			UpdatedAt:    now,
		}); err != nil {
			return nil, fmt.Errorf("create user %s: %w", u.ID, err)
		}
		ids[u.ID] = u.ID
		summary.Users++
	}
	return ids, nil
}

func (s *Seeder) desks(ctx context.Context, ds Dataset, summary *Summary) error {
	for _, grid := range ds.DeskGrids {
		existing, err := s.repos.Desks.ListDesks(ctx, grid.Floor)
		if err != nil {
			return fmt.Errorf("list desks of %s: %w", grid.Floor, err)
		}
		labels := make(map[string]bool, len(existing))
		for _, d := range existing {
			labels[d.Label] = true
		}
		for _, desk := range grid.Desks() {
			if labels[desk.Label] {
				continue
			}
			desk.ID = s.idGenerator()
			desk.CreatedAt = s.now()
			if err := s.repos.Desks.CreateDesk(ctx, desk); err != nil {
				return fmt.Errorf("create desk %s: %w", desk.Label, err)
			}
			summary.Desks++
		}
	}
	return nil
}

func (s *Seeder) presence(ctx context.Context, ds Dataset, ids map[string]string) error {
	for _, p := range ds.Presence {
		if err := s.repos.Presence.UpsertPresence(ctx, persistence.Presence{
			UserID:   ids[p.User],
			Status:   persistence.PresenceStatus(p.Status),
			Location: persistence.WorkLocation(p.Location),
			LastSeen: s.now(),
		}); err != nil {
			return fmt.Errorf("upsert presence of %s: %w", p.User, err)
		}
	}
	return nil
}

func (s *Seeder) directMessages(ctx context.Context, ds Dataset, ids map[string]string, summary *Summary) error {
	for _, dm := range ds.DirectMessages {
		a, b := ids[dm.Participants[0]], ids[dm.Participants[1]]
		thread, err := s.repos.Threads.FindDirectThread(ctx, a, b)
		switch {
		case errors.Is(err, persistence.ErrNotFound):
			thread = persistence.Thread{
				ID:             s.idGenerator(),
				Type:           persistence.ThreadTypeDM,
				CreatedBy:      a,
				CreatedAt:      s.now(),
				ParticipantIDs: []string{a, b},
			}
			if err := s.repos.Threads.CreateThread(ctx, thread); err != nil {
				return fmt.Errorf("create thread: %w", err)
			}
			summary.Threads++
		case err != nil:
			return fmt.Errorf("find thread: %w", err)
		}

		existing, err := s.repos.Threads.ListMessages(ctx, thread.ID, 1)
		if err != nil {
			return fmt.Errorf("list messages: %w", err)
		}
		if len(existing) > 0 {
			continue
		}
		base := s.now()
		for i, m := range dm.Messages {
			if err := s.repos.Threads.CreateMessage(ctx, persistence.Message{
				ID:        s.idGenerator(),
				ThreadID:  thread.ID,
				SenderID:  ids[m.Sender],
				Body:      m.Body,
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			}); err != nil {
				return fmt.Errorf("create message: %w", err)
			}
			summary.Messages++
		}
	}
	return nil
}

func (s *Seeder) events(ctx context.Context, ds Dataset, ids map[string]string, summary *Summary) error {
	now := s.now()
	for _, e := range ds.Events {
		start := now.Add(e.StartsIn)
		end := start.Add(e.Duration)

		existing, err := s.repos.Calendar.GetEvent(ctx, e.ID)
		if err == nil {
			existing.StartsAt, existing.EndsAt, existing.UpdatedAt = start, end, now
			if err := s.repos.Calendar.UpdateEvent(ctx, existing); err != nil {
				return fmt.Errorf("update event %s: %w", e.ID, err)
			}
			continue
		}
		if !errors.Is(err, persistence.ErrNotFound) {
			return fmt.Errorf("get event %s: %w", e.ID, err)
		}

		var location *string
		if e.Location != "" {
			value := e.Location
			location = &value
		}
		owner := ids[e.Owner]
		if err := s.repos.Calendar.CreateEvent(ctx, persistence.CalendarEvent{
			ID:         e.ID,
			OwnerID:    owner,
			Title:      e.Title,
			StartsAt:   start,
			EndsAt:     end,
			Location:   location,
			Visibility: persistence.Visibility(e.Visibility),
			CreatedBy:  owner,
			Source:     persistence.EventSourceManual,
			CreatedAt:  now,
			UpdatedAt:  now,
		}); err != nil {
			return fmt.Errorf("create event %s: %w", e.ID, err)
		}
		summary.Events++
	}
	return nil
}
