package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidInput       = errors.New("invalid input")
)

const (
	RoleStudent  = "student"
	RoleLecturer = "lecturer"
)

const minPasswordLen = 6

type Service struct {
	db         *sql.DB
	sessionTTL time.Duration
	bcryptCost int
	now        func() time.Time
}

type ServiceConfig struct {
	SessionTTL time.Duration
	BcryptCost int
}

type User struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type SignupInput struct {
	Role     string
	Name     string
	Email    string
	Password string
}

func NewService(db *sql.DB, cfg ServiceConfig) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	if cfg.BcryptCost <= 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		db:         db,
		sessionTTL: cfg.SessionTTL,
		bcryptCost: cfg.BcryptCost,
		now:        time.Now,
	}
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (*User, error) {
	role := normalizeRole(in.Role)
	if !isValidRole(role) {
		return nil, ErrInvalidRole
	}
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users WHERE role = $1 AND email = $2
		)
	`, role, email).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := User{
		ID:        uuid.NewString(),
		Role:      role,
		Name:      name,
		Email:     email,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.insertUser(ctx, u, string(hash)); err != nil {
		return nil, err
	}
	return &u, nil
}

// insertUser reports a (role, email) unique violation as ErrEmailTaken so a
// signup racing past the existence check still gets a 409.
func (s *Service) insertUser(ctx context.Context, u User, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, role, name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Role, u.Name, u.Email, passwordHash, u.CreatedAt.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func (s *Service) AuthenticatePassword(ctx context.Context, role, email, password string) (*User, error) {
	role = normalizeRole(role)
	if !isValidRole(role) {
		return nil, ErrInvalidRole
	}
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, role, name, email, created_at, password_hash
		FROM users
		WHERE role = $1 AND email = $2
		LIMIT 1
	`, role, email)

	var u User
	var createdAt int64
	var passwordHash string
	if err := row.Scan(&u.ID, &u.Role, &u.Name, &u.Email, &createdAt, &passwordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	u.CreatedAt = time.UnixMilli(createdAt).UTC()

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

func (s *Service) CreateSession(ctx context.Context, userID, ipAddress, userAgent string) (string, time.Time, error) {
	token, err := generateToken(32)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate session token: %w", err)
	}
	now := s.now()
	expiresAt := now.Add(s.sessionTTL)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO auth_sessions (
			session_token_hash, user_id, expires_at, ip_address, user_agent, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`, hashToken(token), userID, expiresAt.UnixMilli(), nullableString(ipAddress), nullableString(userAgent), now.UnixMilli())
	if err != nil {
		return "", time.Time{}, fmt.Errorf("insert session: %w", err)
	}
	return token, expiresAt, nil
}

func (s *Service) GetSessionUser(ctx context.Context, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthorized
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.role, u.name, u.email, u.created_at
		FROM auth_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.session_token_hash = $1
		  AND s.revoked_at IS NULL
		  AND s.expires_at > $2
		LIMIT 1
	`, hashToken(token), s.now().UnixMilli())

	var u User
	var createdAt int64
	if err := row.Scan(&u.ID, &u.Role, &u.Name, &u.Email, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("query session user: %w", err)
	}
	u.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &u, nil
}

func (s *Service) RevokeSession(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE auth_sessions
		SET revoked_at = $1
		WHERE session_token_hash = $2
		  AND revoked_at IS NULL
	`, s.now().UnixMilli(), hashToken(token))
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func isValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleLecturer:
		return true
	default:
		return false
	}
}

func normalizeRole(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func nullableString(s string) interface{} {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

func generateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
