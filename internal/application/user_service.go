package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/example/hybrid-work/internal/persistence"
)

const (
	adminUserListLimit = 50
	defaultTimeZone    = "UTC"
	defaultOrgID       = "acme"
)

func memberOnlyError() error {
	return NewValidationError("user", "Only member accounts can be managed.")
}

// UserService orchestrates validation, authorization, and persistence for users.
type UserService struct {
	users        persistence.UserRepository
	hashPassword func(string) (string, error)
	idGenerator  func() string
	now          func() time.Time
	orgID        string
	logger       *slog.Logger
}

// NewUserService wires dependencies for the user service. A nil hashPassword
// uses HashPassword.
func NewUserService(users persistence.UserRepository, hashPassword func(string) (string, error), idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, hashPassword, idGenerator, now, nil)
}

// NewUserServiceWithLogger wires the user service with a specified logger.
func NewUserServiceWithLogger(users persistence.UserRepository, hashPassword func(string) (string, error), idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hashPassword == nil {
		hashPassword = HashPassword
	}
	return &UserService{
		users:        users,
		hashPassword: hashPassword,
		idGenerator:  defaultIDGenerator(idGenerator),
		now:          defaultNow(now),
		orgID:        defaultOrgID,
		logger:       defaultLogger(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// CurrentUser returns the account of the principal.
func (s *UserService) CurrentUser(ctx context.Context, principal Principal) (persistence.User, error) {
	if s == nil {
		return persistence.User{}, nilService("UserService")
	}
	if err := requirePrincipal(principal); err != nil {
		return persistence.User{}, err
	}
	user, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.User{}, ErrUnauthorized
		}
		return persistence.User{}, err
	}
	return user, nil
}

// Directory lists every user by name so members can pick DM and request targets.
func (s *UserService) Directory(ctx context.Context, principal Principal) ([]persistence.User, error) {
	if s == nil {
		return nil, nilService("UserService")
	}
	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	users, err := s.users.ListUsers(ctx, 0)
	if err != nil {
		return nil, mapRepoError(err)
	}
	sort.SliceStable(users, func(i, j int) bool {
		return strings.ToLower(users[i].Name) < strings.ToLower(users[j].Name)
	})
	if users == nil {
		users = []persistence.User{}
	}
	return users, nil
}

// ListUsers returns the newest accounts for administrators.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]persistence.User, error) {
	if s == nil {
		return nil, nilService("UserService")
	}
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	users, err := s.users.ListUsers(ctx, adminUserListLimit)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if users == nil {
		users = []persistence.User{}
	}
	return users, nil
}

// GetUser returns one account for administrators.
func (s *UserService) GetUser(ctx context.Context, principal Principal, userID string) (persistence.User, error) {
	if s == nil {
		return persistence.User{}, nilService("UserService")
	}
	if err := requireAdmin(principal); err != nil {
		return persistence.User{}, err
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return persistence.User{}, mapRepoError(err)
	}
	return user, nil
}

// CreateUser validates input and persists a new member account.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (user persistence.User, err error) {
	if s == nil {
		return persistence.User{}, nilService("UserService")
	}
	logger := s.loggerWith(ctx, "CreateUser", "principal_id", params.Principal.UserID)
	defer func() {
		logOutcome(ctx, logger, err, "user created", "user_id", user.ID)
	}()
	if err := requireAdmin(params.Principal); err != nil {
		return persistence.User{}, err
	}

	input := normalizeUserInput(params.Input)
	vErr := validateUserInput(input)
	vErr.merge(validatePassword("password", input.Password))
	if vErr.HasErrors() {
		return persistence.User{}, vErr
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return persistence.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	created := persistence.User{
		ID:           s.idGenerator(),
		OrgID:        s.orgID,
		Name:         input.Name,
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: hash,
		Role:         persistence.RoleMember,
		TimeZone:     input.TimeZone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, created); err != nil {
		return persistence.User{}, duplicateAsConflict(err)
	}
	return created, nil
}

// UpdateUser applies a patch to a member account.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (persistence.User, error) {
	if s == nil {
		return persistence.User{}, nilService("UserService")
	}
	if err := requireAdmin(params.Principal); err != nil {
		return persistence.User{}, err
	}

	user, err := s.memberAccount(ctx, params.UserID)
	if err != nil {
		return persistence.User{}, err
	}

	patch := params.Patch
	if patch.Name != nil {
		user.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*patch.Email))
	}
	if patch.Username != nil {
		user.Username = strings.TrimSpace(*patch.Username)
	}
	if patch.TimeZone != nil {
		user.TimeZone = strings.TrimSpace(*patch.TimeZone)
	}
	vErr := validateUserInput(UserInput{Name: user.Name, Email: user.Email, Username: user.Username, TimeZone: user.TimeZone})
	if patch.Password != nil {
		vErr.merge(validatePassword("password", *patch.Password))
	}
	if vErr.HasErrors() {
		return persistence.User{}, vErr
	}

	if patch.Password != nil {
		if user.PasswordHash, err = s.hashPassword(*patch.Password); err != nil {
			return persistence.User{}, fmt.Errorf("hash password: %w", err)
		}
	}
	user.UpdatedAt = s.now()
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return persistence.User{}, duplicateAsConflict(err)
	}
	return user, nil
}

// DeleteUser removes a member account.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, userID string) (err error) {
	if s == nil {
		return nilService("UserService")
	}
	logger := s.loggerWith(ctx, "DeleteUser", "principal_id", principal.UserID, "user_id", userID)
	defer func() {
		logOutcome(ctx, logger, err, "user deleted")
	}()
	if err := requireAdmin(principal); err != nil {
		return err
	}
	if _, err := s.memberAccount(ctx, userID); err != nil {
		return err
	}
	return mapRepoError(s.users.DeleteUser(ctx, userID))
}

// ChangeAdminPassword changes the password of the acting administrator after
// verifying the current one.
func (s *UserService) ChangeAdminPassword(ctx context.Context, params ChangePasswordParams) (err error) {
	if s == nil {
		return nilService("UserService")
	}
	logger := s.loggerWith(ctx, "ChangeAdminPassword", "principal_id", params.Principal.UserID)
	defer func() {
		logOutcome(ctx, logger, err, "admin password changed")
	}()
	if err := requireAdmin(params.Principal); err != nil {
		return err
	}

	user, err := s.users.GetUser(ctx, params.Principal.UserID)
	if err != nil {
		return mapRepoError(err)
	}
	if !user.IsAdmin() {
		return ErrForbidden
	}
	if VerifyPassword(user.PasswordHash, params.CurrentPassword) != nil {
		return NewValidationError("currentPassword", "current password is incorrect")
	}
	if vErr := validatePassword("newPassword", params.NewPassword); vErr != nil {
		return vErr
	}

	if user.PasswordHash, err = s.hashPassword(params.NewPassword); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.UpdatedAt = s.now()
	return mapRepoError(s.users.UpdateUser(ctx, user))
}

func (s *UserService) memberAccount(ctx context.Context, userID string) (persistence.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.User{}, memberOnlyError()
		}
		return persistence.User{}, err
	}
	if user.Role != persistence.RoleMember {
		return persistence.User{}, memberOnlyError()
	}
	return user, nil
}

func duplicateAsConflict(err error) error {
	if errors.Is(err, persistence.ErrDuplicate) {
		return fmt.Errorf("%w: email or username already in use", ErrConflict)
	}
	return mapRepoError(err)
}

func normalizeUserInput(input UserInput) UserInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Username = strings.TrimSpace(input.Username)
	input.TimeZone = strings.TrimSpace(input.TimeZone)
	if input.TimeZone == "" {
		input.TimeZone = defaultTimeZone
	}
	return input
}

func validateUserInput(input UserInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	if input.Email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		vErr.add("email", "email must be a valid address")
	}
	if input.Username == "" {
		vErr.add("username", "username is required")
	}
	if input.TimeZone != "" {
		if _, err := time.LoadLocation(input.TimeZone); err != nil {
			vErr.add("timeZone", "timeZone must be an IANA time zone")
		}
	}
	return vErr
}
