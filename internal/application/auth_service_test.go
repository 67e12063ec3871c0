package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/hybrid-work/internal/persistence"
)

var cheapArgon2 = Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := CreatePasswordHash(password, cheapArgon2)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

type authHarness struct {
	svc      *AuthService
	users    *userRepoStub
	sessions *sessionRepoStub
	clock    *time.Time
}

func newAuthHarness(t *testing.T) *authHarness {
	t.Helper()
	current := time.Date(2025, time.May, 6, 9, 0, 0, 0, time.UTC)
	h := &authHarness{
		users: newUserRepoStub(persistence.User{
			ID:           "alice",
			Name:         "Alice",
			Email:        "alice@acme.com",
			Username:     "alice",
			PasswordHash: mustHash(t, "password123"),
			Role:         persistence.RoleMember,
		}),
		sessions: newSessionRepoStub(),
		clock:    &current,
	}
	now := func() time.Time { return *h.clock }
	issuer, err := NewTokenIssuer("test-secret", 15*time.Minute, now)
	if err != nil {
		t.Fatalf("token issuer: %v", err)
	}
	h.svc = NewAuthService(AuthServiceDeps{
		Users:          h.users,
		Sessions:       h.sessions,
		Tokens:         issuer,
		TokenGenerator: sequentialIDs("refresh"),
		IDGenerator:    sequentialIDs("session"),
		Now:            now,
		RefreshTTL:     time.Hour,
	})
	return h
}

func TestAuthService_Login(t *testing.T) {
	t.Run("accepts username or email case-insensitively", func(t *testing.T) {
		h := newAuthHarness(t)
		for _, login := range []string{"alice", "ALICE@acme.com"} {
			result, err := h.svc.Login(context.Background(), LoginParams{Username: login, Password: "password123"})
			if err != nil {
				t.Fatalf("login %q failed: %v", login, err)
			}
			if result.User.ID != "alice" || result.AccessToken == "" || result.RefreshToken == "" {
				t.Fatalf("unexpected result: %#v", result)
			}
		}
		if len(h.sessions.sessions) != 2 || h.sessions.prunedBefore == nil {
			t.Fatalf("expected two sessions and pruning, got %#v", h.sessions)
		}
	})

	t.Run("rejects bad credentials uniformly", func(t *testing.T) {
		h := newAuthHarness(t)
		cases := []LoginParams{
			{Username: "alice", Password: "wrong"},
			{Username: "nobody", Password: "password123"},
			{Username: "", Password: ""},
		}
		for _, params := range cases {
			if _, err := h.svc.Login(context.Background(), params); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials for %#v, got %v", params, err)
			}
		}
	})
}

func TestAuthService_ValidateAccessToken(t *testing.T) {
	h := newAuthHarness(t)
	result, err := h.svc.Login(context.Background(), LoginParams{Username: "alice", Password: "password123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	principal, err := h.svc.ValidateAccessToken(context.Background(), result.AccessToken)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if principal.UserID != "alice" || principal.Role != persistence.RoleMember {
		t.Fatalf("unexpected principal: %#v", principal)
	}

	if _, err := h.svc.ValidateAccessToken(context.Background(), "not-a-jwt"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	other, _ := NewTokenIssuer("another-secret", time.Minute, func() time.Time { return *h.clock })
	forged, _, err := other.Issue(persistence.User{ID: "alice", Role: persistence.RoleAdmin})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := h.svc.ValidateAccessToken(context.Background(), forged); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected forged token to be rejected, got %v", err)
	}

	*h.clock = h.clock.Add(16 * time.Minute)
	if _, err := h.svc.ValidateAccessToken(context.Background(), result.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestAuthService_RefreshAndLogout(t *testing.T) {
	h := newAuthHarness(t)
	login, err := h.svc.Login(context.Background(), LoginParams{Username: "alice", Password: "password123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	refreshed, err := h.svc.Refresh(context.Background(), RefreshParams{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Fatalf("expected the refresh token to rotate")
	}
	if _, err := h.svc.Refresh(context.Background(), RefreshParams{RefreshToken: login.RefreshToken}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected the old token to be unknown, got %v", err)
	}

	if err := h.svc.Logout(context.Background(), refreshed.RefreshToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := h.svc.Refresh(context.Background(), RefreshParams{RefreshToken: refreshed.RefreshToken}); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
	if err := h.svc.Logout(context.Background(), "unknown"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	second, err := h.svc.Login(context.Background(), LoginParams{Username: "alice", Password: "password123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	*h.clock = h.clock.Add(2 * time.Hour)
	if _, err := h.svc.Refresh(context.Background(), RefreshParams{RefreshToken: second.RefreshToken}); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestPasswordHelpers(t *testing.T) {
	hash := mustHash(t, "secret1")
	if err := VerifyPassword(hash, "secret1"); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if err := VerifyPassword(hash, "secret2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := VerifyPassword("plain", "secret1"); !errors.Is(err, ErrInvalidPasswordHash) {
		t.Fatalf("expected ErrInvalidPasswordHash, got %v", err)
	}
	if a, b := NewOpaqueToken(), NewOpaqueToken(); a == b || len(a) != 43 {
		t.Fatalf("unexpected opaque tokens %q %q", a, b)
	}
	if validatePassword("password", "12345") == nil || validatePassword("password", "123456") != nil {
		t.Fatalf("unexpected minimum length handling")
	}
}
