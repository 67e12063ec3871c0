package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/hybrid-work/internal/persistence"
)

// DefaultRefreshTokenTTL is the lifetime of a refresh session.
const DefaultRefreshTokenTTL = 7 * 24 * time.Hour

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// AuthServiceDeps lists the collaborators of AuthService.
type AuthServiceDeps struct {
	Users          persistence.UserRepository
	Sessions       persistence.SessionRepository
	Tokens         *TokenIssuer
	VerifyPassword PasswordVerifier
	TokenGenerator func() string
	IDGenerator    func() string
	Now            func() time.Time
	RefreshTTL     time.Duration
}

// AuthService coordinates login, refresh-token rotation and access token validation.
type AuthService struct {
	users          persistence.UserRepository
	sessions       persistence.SessionRepository
	tokens         *TokenIssuer
	verifyPassword PasswordVerifier
	tokenGenerator func() string
	idGenerator    func() string
	now            func() time.Time
	refreshTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(deps AuthServiceDeps) *AuthService {
	return NewAuthServiceWithLogger(deps, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(deps AuthServiceDeps, logger *slog.Logger) *AuthService {
	verify := deps.VerifyPassword
	if verify == nil {
		verify = VerifyPassword
	}
	tokenGenerator := deps.TokenGenerator
	if tokenGenerator == nil {
		tokenGenerator = NewOpaqueToken
	}
	ttl := deps.RefreshTTL
	if ttl <= 0 {
		ttl = DefaultRefreshTokenTTL
	}
	return &AuthService{
		users:          deps.Users,
		sessions:       deps.Sessions,
		tokens:         deps.Tokens,
		verifyPassword: verify,
		tokenGenerator: tokenGenerator,
		idGenerator:    defaultIDGenerator(deps.IDGenerator),
		now:            defaultNow(deps.Now),
		refreshTTL:     ttl,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

func (s *AuthService) configured() error {
	if s == nil {
		return nilService("AuthService")
	}
	if s.users == nil || s.sessions == nil || s.tokens == nil {
		return fmt.Errorf("AuthService is not fully configured")
	}
	return nil
}

// Login verifies a username or email and password and opens a session.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (result AuthResult, err error) {
	if err = s.configured(); err != nil {
		return
	}

	login := strings.TrimSpace(params.Username)
	logger := s.loggerWith(ctx, "Login", "login", login)
	defer func() {
		logOutcome(ctx, logger, err, "login succeeded", "user_id", result.User.ID)
	}()

	if login == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var user persistence.User
	user, err = s.users.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}
	if err = s.verifyPassword(user.PasswordHash, params.Password); err != nil {
		err = ErrInvalidCredentials
		return
	}

	now := s.now()
	if err = s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
		return
	}

	var session persistence.Session
	session, err = s.sessions.CreateSession(ctx, persistence.Session{
		ID:          s.idGenerator(),
		UserID:      user.ID,
		Token:       s.tokenGenerator(),
		Fingerprint: strings.TrimSpace(params.Fingerprint),
		ExpiresAt:   now.Add(s.refreshTTL),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return
	}

	result, err = s.issue(user, session)
	return
}

// Refresh rotates a refresh token and issues a new access token.
func (s *AuthService) Refresh(ctx context.Context, params RefreshParams) (result AuthResult, err error) {
	if err = s.configured(); err != nil {
		return
	}

	token := strings.TrimSpace(params.RefreshToken)
	logger := s.loggerWith(ctx, "Refresh", "token_provided", token != "")
	defer func() {
		logOutcome(ctx, logger, err, "session refreshed", "user_id", result.User.ID)
	}()

	if token == "" {
		err = ErrUnauthorized
		return
	}

	var session persistence.Session
	session, err = s.sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}

	now := s.now()
	if session.RevokedAt != nil {
		err = ErrSessionRevoked
		return
	}
	if !session.ExpiresAt.After(now) {
		err = ErrSessionExpired
		return
	}

	var user persistence.User
	user, err = s.users.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}

	session.Token = s.tokenGenerator()
	session.UpdatedAt = now
	session.ExpiresAt = now.Add(s.refreshTTL)
	if fp := strings.TrimSpace(params.Fingerprint); fp != "" {
		session.Fingerprint = fp
	}
	session, err = s.sessions.UpdateSession(ctx, session)
	if err != nil {
		return
	}

	result, err = s.issue(user, session)
	return
}

// Logout revokes the session behind a refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) (err error) {
	if err = s.configured(); err != nil {
		return err
	}

	token := strings.TrimSpace(refreshToken)
	logger := s.loggerWith(ctx, "Logout", "token_provided", token != "")
	defer func() {
		logOutcome(ctx, logger, err, "session revoked")
	}()

	if token == "" {
		return ErrUnauthorized
	}
	if _, err = s.sessions.RevokeSession(ctx, token, s.now()); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	return nil
}

// ValidateAccessToken verifies an access token and resolves its principal.
// The role is read from the stored user, not from the token.
func (s *AuthService) ValidateAccessToken(ctx context.Context, token string) (principal Principal, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ValidateAccessToken")
	defer func() {
		if err != nil {
			logger.DebugContext(ctx, "access token rejected", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	token = strings.TrimSpace(token)
	if token == "" {
		err = ErrUnauthorized
		return
	}

	claims, parseErr := s.tokens.Parse(token)
	if parseErr != nil {
		err = fmt.Errorf("%w: %v", ErrUnauthorized, parseErr)
		return
	}

	var user persistence.User
	user, err = s.users.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}

	principal = Principal{UserID: user.ID, Role: user.Role}
	return
}

func (s *AuthService) issue(user persistence.User, session persistence.Session) (AuthResult, error) {
	access, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{
		AccessToken:          access,
		AccessTokenExpiresAt: expiresAt,
		RefreshToken:         session.Token,
		User:                 user,
	}, nil
}
