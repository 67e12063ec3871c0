package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/example/hybrid-work/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite
type UserRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewUserRepository creates a new SQLite user repository
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const userColumns = `id, org_id, name, email, username, password_hash, role, time_zone, created_at, updated_at`

// CreateUser inserts a new user
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		user.ID,
		user.OrgID,
		user.Name,
		normalizeEmail(user.Email),
		nullableUsername(user.Username),
		user.PasswordHash,
		string(user.Role),
		user.TimeZone,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateUser overwrites the mutable fields of a user
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	return r.helper.ExecAffectingOne(ctx, r.mapper, `
		UPDATE users
		SET name = ?, email = ?, username = ?, password_hash = ?, role = ?, time_zone = ?, updated_at = ?
		WHERE id = ?
	`,
		user.Name,
		normalizeEmail(user.Email),
		nullableUsername(user.Username),
		user.PasswordHash,
		string(user.Role),
		user.TimeZone,
		formatTime(user.UpdatedAt),
		user.ID,
	)
}

// GetUser retrieves a user by ID
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return r.scanUser(row)
}

// GetUserByLogin retrieves a user whose email or username matches login
func (r *UserRepository) GetUserByLogin(ctx context.Context, login string) (persistence.User, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = ? COLLATE NOCASE OR username = ? COLLATE NOCASE
		ORDER BY created_at
		LIMIT 1
	`, login, login)
	return r.scanUser(row)
}

// ListUsers returns up to limit users, newest first
func (r *UserRepository) ListUsers(ctx context.Context, limit int) ([]persistence.User, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.helper.Query(ctx, `
		SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	return r.collect(rows)
}

// ListUsersByIDs returns the users with the given IDs ordered by name
func (r *UserRepository) ListUsersByIDs(ctx context.Context, ids []string) ([]persistence.User, error) {
	if len(ids) == 0 {
		return []persistence.User{}, nil
	}
	marks, args := placeholders(ids)
	rows, err := r.helper.Query(ctx, `
		SELECT `+userColumns+` FROM users WHERE id IN (`+marks+`) ORDER BY name, id
	`, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	return r.collect(rows)
}

// DeleteUser removes a user and, through cascades, everything they own
func (r *UserRepository) DeleteUser(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.helper.ExecAffectingOne(ctx, r.mapper, `DELETE FROM users WHERE id = ?`, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scanUser(row rowScanner) (persistence.User, error) {
	var (
		user                 persistence.User
		username             sql.NullString
		role                 string
		createdAt, updatedAt string
	)
	err := row.Scan(
		&user.ID,
		&user.OrgID,
		&user.Name,
		&user.Email,
		&username,
		&user.PasswordHash,
		&role,
		&user.TimeZone,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.User{}, r.mapper.MapError(err)
	}
	user.Username = username.String
	user.Role = persistence.Role(role)
	if user.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

func (r *UserRepository) collect(rows *sql.Rows) ([]persistence.User, error) {
	defer rows.Close()
	users := []persistence.User{}
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, r.mapper.MapError(rows.Err())
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func nullableUsername(username string) sql.NullString {
	username = strings.TrimSpace(username)
	if username == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: username, Valid: true}
}
