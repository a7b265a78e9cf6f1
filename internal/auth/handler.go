package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"examscore/internal/app/apiresp"
)

type contextKey string

const userContextKey contextKey = "auth_user"

const SessionCookieName = "examscore_session"

type Handler struct {
	svc          *Service
	secureCookie bool
}

type signupRequest struct {
	Role     string `json:"role"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Role     string `json:"role"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func NewHandler(svc *Service, secureCookie bool) *Handler {
	return &Handler{svc: svc, secureCookie: secureCookie}
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.svc.Signup(r.Context(), SignupInput{
		Role:     req.Role,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRole), errors.Is(err, ErrInvalidInput):
			apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrEmailTaken):
			apiresp.WriteError(w, r, http.StatusConflict, err.Error())
		default:
			log.Printf("signup: %v", err)
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.svc.AuthenticatePassword(r.Context(), req.Role, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRole):
			apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrUserNotFound):
			apiresp.WriteError(w, r, http.StatusNotFound, "no record existed")
		case errors.Is(err, ErrInvalidCredentials):
			apiresp.WriteError(w, r, http.StatusUnauthorized, "the password is incorrect")
		default:
			log.Printf("login: %v", err)
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	if err := h.establishSession(w, r, user); err != nil {
		log.Printf("create session: %v", err)
		apiresp.WriteError(w, r, http.StatusInternalServerError, "cannot create session")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, user)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RevokeSession(r.Context(), readSessionToken(r)); err != nil {
		log.Printf("logout: %v", err)
		apiresp.WriteError(w, r, http.StatusInternalServerError, "error logging out")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	apiresp.WriteOK(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	apiresp.WriteOK(w, r, http.StatusOK, user)
}

func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.svc.GetSessionUser(r.Context(), readSessionToken(r))
		if err != nil {
			if !errors.Is(err, ErrUnauthorized) {
				log.Printf("session lookup: %v", err)
			}
			apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized, please login")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

func (h *Handler) RequireRoles(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := CurrentUser(r.Context())
			if !ok {
				apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}
			if _, exists := allowed[user.Role]; !exists {
				apiresp.WriteError(w, r, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func CurrentUser(ctx context.Context) (*User, bool) {
	v := ctx.Value(userContextKey)
	if v == nil {
		return nil, false
	}
	u, ok := v.(*User)
	return u, ok
}

// ContextWithUser injects an authenticated user into context.
// Useful for tests and internal handlers.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func (h *Handler) establishSession(w http.ResponseWriter, r *http.Request, user *User) error {
	token, expiresAt, err := h.svc.CreateSession(r.Context(), user.ID, readIP(r), r.UserAgent())
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func readSessionToken(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func readIP(r *http.Request) string {
	xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	return strings.TrimSpace(r.RemoteAddr)
}
