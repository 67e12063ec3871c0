package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/example/hybrid-work/internal/persistence"
)

// CalendarRepository implements persistence.CalendarRepository using SQLite
type CalendarRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewCalendarRepository creates a new SQLite calendar repository
func NewCalendarRepository(pool *ConnectionPool) *CalendarRepository {
	return &CalendarRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const eventColumns = `id, owner_id, title, starts_at, ends_at, location, visibility, created_by, source, created_at, updated_at`

const blockColumns = `id, owner_id, starts_at, ends_at, kind, visibility, created_at`

// CreateEvent inserts a calendar event
func (r *CalendarRepository) CreateEvent(ctx context.Context, event persistence.CalendarEvent) error {
	if event.ID == "" || event.OwnerID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO calendar_events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID,
		event.OwnerID,
		event.Title,
		formatTime(event.StartsAt),
		formatTime(event.EndsAt),
		nullString(event.Location),
		string(event.Visibility),
		event.CreatedBy,
		event.Source,
		formatTime(event.CreatedAt),
		formatTime(event.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// GetEvent retrieves an event by ID
func (r *CalendarRepository) GetEvent(ctx context.Context, id string) (persistence.CalendarEvent, error) {
	if id == "" {
		return persistence.CalendarEvent{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+eventColumns+` FROM calendar_events WHERE id = ?`, id)
	return r.scanEvent(row)
}

// UpdateEvent overwrites the editable fields of an event
func (r *CalendarRepository) UpdateEvent(ctx context.Context, event persistence.CalendarEvent) error {
	if event.ID == "" {
		return persistence.ErrConstraintViolation
	}
	return r.helper.ExecAffectingOne(ctx, r.mapper, `
		UPDATE calendar_events
		SET title = ?, starts_at = ?, ends_at = ?, location = ?, visibility = ?, updated_at = ?
		WHERE id = ?
	`,
		event.Title,
		formatTime(event.StartsAt),
		formatTime(event.EndsAt),
		nullString(event.Location),
		string(event.Visibility),
		formatTime(event.UpdatedAt),
		event.ID,
	)
}

// DeleteEvent removes an event
func (r *CalendarRepository) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.helper.ExecAffectingOne(ctx, r.mapper, `DELETE FROM calendar_events WHERE id = ?`, id)
}

// ListEvents returns events matching filter ordered by start
func (r *CalendarRepository) ListEvents(ctx context.Context, filter persistence.IntervalFilter) ([]persistence.CalendarEvent, error) {
	where, args := intervalWhere(filter)
	rows, err := r.helper.Query(ctx, `SELECT `+eventColumns+` FROM calendar_events`+where+` ORDER BY starts_at, id`, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	events := []persistence.CalendarEvent{}
	for rows.Next() {
		event, err := r.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, r.mapper.MapError(rows.Err())
}

// CreateBlock inserts an availability block
func (r *CalendarRepository) CreateBlock(ctx context.Context, block persistence.AvailabilityBlock) error {
	if block.ID == "" || block.OwnerID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO availability_blocks (`+blockColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		block.ID,
		block.OwnerID,
		formatTime(block.StartsAt),
		formatTime(block.EndsAt),
		string(block.Kind),
		string(block.Visibility),
		formatTime(block.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// ListBlocks returns blocks matching filter ordered by start
func (r *CalendarRepository) ListBlocks(ctx context.Context, filter persistence.IntervalFilter) ([]persistence.AvailabilityBlock, error) {
	where, args := intervalWhere(filter)
	rows, err := r.helper.Query(ctx, `SELECT `+blockColumns+` FROM availability_blocks`+where+` ORDER BY starts_at, id`, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	blocks := []persistence.AvailabilityBlock{}
	for rows.Next() {
		var (
			block                       persistence.AvailabilityBlock
			kind, visibility            string
			startsAt, endsAt, createdAt string
		)
		if err := rows.Scan(&block.ID, &block.OwnerID, &startsAt, &endsAt, &kind, &visibility, &createdAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		block.Kind = persistence.BlockKind(kind)
		block.Visibility = persistence.Visibility(visibility)
		if block.StartsAt, err = parseTime("starts_at", startsAt); err != nil {
			return nil, err
		}
		if block.EndsAt, err = parseTime("ends_at", endsAt); err != nil {
			return nil, err
		}
		if block.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, r.mapper.MapError(rows.Err())
}

func (r *CalendarRepository) scanEvent(row rowScanner) (persistence.CalendarEvent, error) {
	var (
		event                                  persistence.CalendarEvent
		location                               sql.NullString
		visibility                             string
		startsAt, endsAt, createdAt, updatedAt string
	)
	err := row.Scan(
		&event.ID,
		&event.OwnerID,
		&event.Title,
		&startsAt,
		&endsAt,
		&location,
		&visibility,
		&event.CreatedBy,
		&event.Source,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.CalendarEvent{}, r.mapper.MapError(err)
	}
	event.Location = stringPtr(location)
	event.Visibility = persistence.Visibility(visibility)
	if event.StartsAt, err = parseTime("starts_at", startsAt); err != nil {
		return persistence.CalendarEvent{}, err
	}
	if event.EndsAt, err = parseTime("ends_at", endsAt); err != nil {
		return persistence.CalendarEvent{}, err
	}
	if event.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.CalendarEvent{}, err
	}
	if event.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.CalendarEvent{}, err
	}
	return event, nil
}

// intervalWhere renders filter as a WHERE clause over owner_id, starts_at and ends_at.
func intervalWhere(filter persistence.IntervalFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if len(filter.OwnerIDs) > 0 {
		marks, ownerArgs := placeholders(filter.OwnerIDs)
		clauses = append(clauses, "owner_id IN ("+marks+")")
		args = append(args, ownerArgs...)
	}
	if filter.StartsAtOrAfter != nil {
		clauses = append(clauses, "starts_at >= ?")
		args = append(args, formatTime(*filter.StartsAtOrAfter))
	}
	if filter.StartsAtOrBefore != nil {
		clauses = append(clauses, "starts_at <= ?")
		args = append(args, formatTime(*filter.StartsAtOrBefore))
	}
	if filter.EndsAtOrAfter != nil {
		clauses = append(clauses, "ends_at >= ?")
		args = append(args, formatTime(*filter.EndsAtOrAfter))
	}
	if filter.EndsAtOrBefore != nil {
		clauses = append(clauses, "ends_at <= ?")
		args = append(args, formatTime(*filter.EndsAtOrBefore))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
