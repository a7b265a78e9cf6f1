package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"examscore/internal/db"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dbConn, err := db.Open(context.Background(), db.Config{
		Driver: db.DriverSQLite,
		DSN:    "file:" + name + "?mode=memory&cache=shared",
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = dbConn.Close() })
	return NewService(dbConn, ServiceConfig{BcryptCost: bcrypt.MinCost})
}

func TestSignupValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   SignupInput
		want error
	}{
		{name: "bad role", in: SignupInput{Role: "admin", Name: "x", Email: "x@example.com", Password: "secret123"}, want: ErrInvalidRole},
		{name: "missing name", in: SignupInput{Role: RoleStudent, Email: "x@example.com", Password: "secret123"}, want: ErrInvalidInput},
		{name: "bad email", in: SignupInput{Role: RoleStudent, Name: "x", Email: "nope", Password: "secret123"}, want: ErrInvalidInput},
		{name: "short password", in: SignupInput{Role: RoleStudent, Name: "x", Email: "x@example.com", Password: "123"}, want: ErrInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Signup(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestSignupAndAuthenticate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Signup(ctx, SignupInput{Role: " Student ", Name: "Ana", Email: "Ana@Example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if u.ID == "" || u.Role != RoleStudent || u.Email != "ana@example.com" {
		t.Fatalf("unexpected user %+v", u)
	}

	if _, err := svc.Signup(ctx, SignupInput{Role: RoleStudent, Name: "Ana", Email: "ana@example.com", Password: "secret123"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate signup: expected ErrEmailTaken, got %v", err)
	}
	if _, err := svc.Signup(ctx, SignupInput{Role: RoleLecturer, Name: "Ana", Email: "ana@example.com", Password: "secret123"}); err != nil {
		t.Fatalf("same email in the other role should be allowed: %v", err)
	}

	got, err := svc.AuthenticatePassword(ctx, RoleStudent, "ANA@example.com", "secret123")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("expected user %s, got %s", u.ID, got.ID)
	}

	if _, err := svc.AuthenticatePassword(ctx, RoleStudent, "ana@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.AuthenticatePassword(ctx, RoleStudent, "bob@example.com", "secret123"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user: expected ErrUserNotFound, got %v", err)
	}
	if _, err := svc.AuthenticatePassword(ctx, "admin", "ana@example.com", "secret123"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("bad role: expected ErrInvalidRole, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	u, err := svc.Signup(ctx, SignupInput{Role: RoleLecturer, Name: "Lee", Email: "lee@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	token, expiresAt, err := svc.CreateSession(ctx, u.ID, "127.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if !expiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected default 1h ttl, got %v", expiresAt.Sub(now))
	}

	got, err := svc.GetSessionUser(ctx, token)
	if err != nil || got.ID != u.ID {
		t.Fatalf("session user: user=%+v err=%v", got, err)
	}

	if _, err := svc.GetSessionUser(ctx, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("empty token: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.GetSessionUser(ctx, token+"x"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unknown token: expected ErrUnauthorized, got %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := svc.GetSessionUser(ctx, token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expired session: expected ErrUnauthorized, got %v", err)
	}
}

func TestRevokeSession(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Signup(ctx, SignupInput{Role: RoleStudent, Name: "Sam", Email: "sam@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	token, _, err := svc.CreateSession(ctx, u.ID, "", "")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := svc.RevokeSession(ctx, token); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.GetSessionUser(ctx, token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("revoked session: expected ErrUnauthorized, got %v", err)
	}
	if err := svc.RevokeSession(ctx, ""); err != nil {
		t.Fatalf("revoking empty token should be a no-op: %v", err)
	}
}

func TestHashTokenIsStable(t *testing.T) {
	if hashToken("abc") != hashToken("abc") {
		t.Fatalf("hash must be deterministic")
	}
	if hashToken("abc") == hashToken("abd") {
		t.Fatalf("different tokens must hash differently")
	}
	if len(hashToken("abc")) != 64 {
		t.Fatalf("expected hex sha256")
	}
}

func TestInsertUserMapsUniqueViolationToEmailTaken(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u := User{ID: "u-1", Role: RoleStudent, Name: "Ana", Email: "ana@example.com", CreatedAt: time.Now()}
	if err := svc.insertUser(ctx, u, "hash"); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	// Same role and email under a new id, as a concurrent signup would produce
	// after both passed the existence check.
	u.ID = "u-2"
	if err := svc.insertUser(ctx, u, "hash"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	u.ID = "u-3"
	u.Role = RoleLecturer
	if err := svc.insertUser(ctx, u, "hash"); err != nil {
		t.Fatalf("other role should insert: %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if isUniqueViolation(errors.New("boom")) {
		t.Fatalf("plain errors are not unique violations")
	}
	if !isUniqueViolation(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505"})) {
		t.Fatalf("postgres 23505 should be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatalf("foreign key violation is not a unique violation")
	}
}

func TestUserJSONUsesCamelCase(t *testing.T) {
	b, err := json.Marshal(User{ID: "u-1", Role: RoleStudent, CreatedAt: time.UnixMilli(0).UTC()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"createdAt":`) || strings.Contains(string(b), "created_at") {
		t.Fatalf("unexpected user json: %s", b)
	}
}
