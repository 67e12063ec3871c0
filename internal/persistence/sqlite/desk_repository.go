package sqlite

import (
	"context"
	"time"

	"github.com/example/hybrid-work/internal/persistence"
)

// DeskRepository implements persistence.DeskRepository using SQLite
type DeskRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewDeskRepository creates a new SQLite desk repository
func NewDeskRepository(pool *ConnectionPool) *DeskRepository {
	return &DeskRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const (
	deskColumns        = `id, floor_id, label, x, y, created_at`
	reservationColumns = `id, desk_id, user_id, starts_at, ends_at, status, created_at`
)

// CreateDesk inserts a desk
func (r *DeskRepository) CreateDesk(ctx context.Context, desk persistence.Desk) error {
	if desk.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO desks (`+deskColumns+`) VALUES (?, ?, ?, ?, ?, ?)
	`, desk.ID, desk.FloorID, desk.Label, desk.X, desk.Y, formatTime(desk.CreatedAt))
	return r.mapper.MapError(err)
}

// GetDesk retrieves a desk by ID
func (r *DeskRepository) GetDesk(ctx context.Context, id string) (persistence.Desk, error) {
	if id == "" {
		return persistence.Desk{}, persistence.ErrNotFound
	}
	return r.scanDesk(r.helper.QueryRow(ctx, `SELECT `+deskColumns+` FROM desks WHERE id = ?`, id))
}

// ListDesks returns desks ordered by floor and label
func (r *DeskRepository) ListDesks(ctx context.Context, floorID string) ([]persistence.Desk, error) {
	query := `SELECT ` + deskColumns + ` FROM desks`
	var args []any
	if floorID != "" {
		query += ` WHERE floor_id = ?`
		args = append(args, floorID)
	}
	// Labels sort naturally when the numeric suffix is compared by length first.
	query += ` ORDER BY floor_id, length(label), label`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	desks := []persistence.Desk{}
	for rows.Next() {
		desk, err := r.scanDesk(rows)
		if err != nil {
			return nil, err
		}
		desks = append(desks, desk)
	}
	return desks, r.mapper.MapError(rows.Err())
}

// CreateReservation inserts a reservation. Overlap checks are the caller's
// responsibility and must share its transaction.
func (r *DeskRepository) CreateReservation(ctx context.Context, reservation persistence.DeskReservation) error {
	if reservation.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO desk_reservations (`+reservationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		reservation.ID,
		reservation.DeskID,
		reservation.UserID,
		formatTime(reservation.StartsAt),
		formatTime(reservation.EndsAt),
		string(reservation.Status),
		formatTime(reservation.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// GetReservation retrieves a reservation by ID
func (r *DeskRepository) GetReservation(ctx context.Context, id string) (persistence.DeskReservation, error) {
	if id == "" {
		return persistence.DeskReservation{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+reservationColumns+` FROM desk_reservations WHERE id = ?`, id)
	return r.scanReservation(row)
}

// UpdateReservationStatus sets the status of a reservation
func (r *DeskRepository) UpdateReservationStatus(ctx context.Context, id string, status persistence.ReservationStatus) error {
	return r.helper.ExecAffectingOne(ctx, r.mapper,
		`UPDATE desk_reservations SET status = ? WHERE id = ?`, string(status), id)
}

// FindOverlappingReservation returns an ACTIVE reservation of deskID that
// intersects [start, end)
func (r *DeskRepository) FindOverlappingReservation(ctx context.Context, deskID string, start, end time.Time) (persistence.DeskReservation, error) {
	row := r.helper.QueryRow(ctx, `
		SELECT `+reservationColumns+`
		FROM desk_reservations
		WHERE desk_id = ? AND status = ? AND starts_at < ? AND ends_at > ?
		ORDER BY starts_at
		LIMIT 1
	`, deskID, string(persistence.ReservationActive), formatTime(end), formatTime(start))
	return r.scanReservation(row)
}

// ListActiveReservationsAt returns ACTIVE reservations of deskIDs whose window contains at
func (r *DeskRepository) ListActiveReservationsAt(ctx context.Context, deskIDs []string, at time.Time) ([]persistence.ReservationDetail, error) {
	details := []persistence.ReservationDetail{}
	if len(deskIDs) == 0 {
		return details, nil
	}
	marks, args := placeholders(deskIDs)
	stamp := formatTime(at)
	args = append(args, string(persistence.ReservationActive), stamp, stamp)

	rows, err := r.helper.Query(ctx, `
		SELECT r.id, r.desk_id, r.user_id, r.starts_at, r.ends_at, r.status, r.created_at, u.name
		FROM desk_reservations r
		JOIN users u ON u.id = r.user_id
		WHERE r.desk_id IN (`+marks+`) AND r.status = ? AND r.starts_at <= ? AND r.ends_at >= ?
		ORDER BY r.starts_at, r.id
	`, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var detail persistence.ReservationDetail
		reservation, err := r.scanReservation(rowFunc(func(dest ...any) error {
			return rows.Scan(append(dest, &detail.UserName)...)
		}))
		if err != nil {
			return nil, err
		}
		detail.DeskReservation = reservation
		details = append(details, detail)
	}
	return details, r.mapper.MapError(rows.Err())
}

func (r *DeskRepository) scanDesk(row rowScanner) (persistence.Desk, error) {
	var (
		desk      persistence.Desk
		createdAt string
	)
	if err := row.Scan(&desk.ID, &desk.FloorID, &desk.Label, &desk.X, &desk.Y, &createdAt); err != nil {
		return persistence.Desk{}, r.mapper.MapError(err)
	}
	var err error
	if desk.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Desk{}, err
	}
	return desk, nil
}

func (r *DeskRepository) scanReservation(row rowScanner) (persistence.DeskReservation, error) {
	var (
		reservation                         persistence.DeskReservation
		status, startsAt, endsAt, createdAt string
	)
	err := row.Scan(
		&reservation.ID,
		&reservation.DeskID,
		&reservation.UserID,
		&startsAt,
		&endsAt,
		&status,
		&createdAt,
	)
	if err != nil {
		return persistence.DeskReservation{}, r.mapper.MapError(err)
	}
	reservation.Status = persistence.ReservationStatus(status)
	if reservation.StartsAt, err = parseTime("starts_at", startsAt); err != nil {
		return persistence.DeskReservation{}, err
	}
	if reservation.EndsAt, err = parseTime("ends_at", endsAt); err != nil {
		return persistence.DeskReservation{}, err
	}
	if reservation.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.DeskReservation{}, err
	}
	return reservation, nil
}

// rowFunc adapts a scan function to rowScanner so joined columns can be
// appended after an entity's own columns.
type rowFunc func(dest ...any) error

func (f rowFunc) Scan(dest ...any) error {
	return f(dest...)
}
