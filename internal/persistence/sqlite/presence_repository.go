package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/example/hybrid-work/internal/persistence"
)

// PresenceRepository implements persistence.PresenceRepository using SQLite
type PresenceRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewPresenceRepository creates a new SQLite presence repository
func NewPresenceRepository(pool *ConnectionPool) *PresenceRepository {
	return &PresenceRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// UpsertPresence writes the presence row of a user, replacing any previous one
func (r *PresenceRepository) UpsertPresence(ctx context.Context, presence persistence.Presence) error {
	if presence.UserID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO presence (user_id, status, location, desk_id, last_seen)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			status = excluded.status,
			location = excluded.location,
			desk_id = excluded.desk_id,
			last_seen = excluded.last_seen
	`,
		presence.UserID,
		string(presence.Status),
		string(presence.Location),
		nullString(presence.DeskID),
		formatTime(presence.LastSeen),
	)
	return r.mapper.MapError(err)
}

// GetPresence retrieves the presence row of a user
func (r *PresenceRepository) GetPresence(ctx context.Context, userID string) (persistence.Presence, error) {
	var (
		presence         persistence.Presence
		status, location string
		deskID           sql.NullString
		lastSeen         string
	)
	err := r.helper.QueryRow(ctx, `
		SELECT user_id, status, location, desk_id, last_seen FROM presence WHERE user_id = ?
	`, userID).Scan(&presence.UserID, &status, &location, &deskID, &lastSeen)
	if err != nil {
		return persistence.Presence{}, r.mapper.MapError(err)
	}
	presence.Status = persistence.PresenceStatus(status)
	presence.Location = persistence.WorkLocation(location)
	presence.DeskID = stringPtr(deskID)
	if presence.LastSeen, err = parseTime("last_seen", lastSeen); err != nil {
		return persistence.Presence{}, err
	}
	return presence, nil
}

// ListPresence returns presence rows joined with their user and desk, ordered by user name
func (r *PresenceRepository) ListPresence(ctx context.Context, filter persistence.PresenceFilter) ([]persistence.PresenceDetail, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.FloorID != "" {
		clauses = append(clauses, "d.floor_id = ?")
		args = append(args, filter.FloorID)
	}
	if len(filter.UserIDs) > 0 {
		marks, userArgs := placeholders(filter.UserIDs)
		clauses = append(clauses, "p.user_id IN ("+marks+")")
		args = append(args, userArgs...)
	}
	query := `
		SELECT p.user_id, p.status, p.location, p.desk_id, p.last_seen,
			u.id, u.org_id, u.name, u.email, u.username, u.role, u.time_zone, u.created_at, u.updated_at,
			d.id, d.floor_id, d.label, d.x, d.y, d.created_at
		FROM presence p
		JOIN users u ON u.id = p.user_id
		LEFT JOIN desks d ON d.id = p.desk_id`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY u.name, p.user_id"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	details := []persistence.PresenceDetail{}
	for rows.Next() {
		var (
			detail                                   persistence.PresenceDetail
			status, location, lastSeen               string
			deskID, username                         sql.NullString
			role, userCreatedAt, userUpdatedAt       string
			deskRowID, floorID, label, deskCreatedAt sql.NullString
			x, y                                     sql.NullInt64
		)
		err := rows.Scan(
			&detail.UserID, &status, &location, &deskID, &lastSeen,
			&detail.User.ID, &detail.User.OrgID, &detail.User.Name, &detail.User.Email, &username,
			&role, &detail.User.TimeZone, &userCreatedAt, &userUpdatedAt,
			&deskRowID, &floorID, &label, &x, &y, &deskCreatedAt,
		)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		detail.Status = persistence.PresenceStatus(status)
		detail.Location = persistence.WorkLocation(location)
		detail.DeskID = stringPtr(deskID)
		if detail.LastSeen, err = parseTime("last_seen", lastSeen); err != nil {
			return nil, err
		}
		detail.User.Username = username.String
		detail.User.Role = persistence.Role(role)
		if detail.User.CreatedAt, err = parseTime("created_at", userCreatedAt); err != nil {
			return nil, err
		}
		if detail.User.UpdatedAt, err = parseTime("updated_at", userUpdatedAt); err != nil {
			return nil, err
		}
		if deskRowID.Valid {
			desk := persistence.Desk{
				ID:      deskRowID.String,
				FloorID: floorID.String,
				Label:   label.String,
				X:       int(x.Int64),
				Y:       int(y.Int64),
			}
			if desk.CreatedAt, err = parseTime("created_at", deskCreatedAt.String); err != nil {
				return nil, err
			}
			detail.Desk = &desk
		}
		details = append(details, detail)
	}
	return details, r.mapper.MapError(rows.Err())
}
