package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/rmoldovan/taskgate/internal/metrics"
	"github.com/rmoldovan/taskgate/internal/user"
)

// UserStore is the slice of the user store the HTTP layer consumes.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, in user.CreateUserInput) (*user.User, error)
}

// TokenIssuer issues identity tokens after a successful login.
type TokenIssuer interface {
	Issue(username string, roles []string) (string, error)
}

// authHandler groups authentication HTTP handlers.
type authHandler struct {
	users   UserStore
	tokens  TokenIssuer
	metrics *metrics.Metrics
}

func newAuthHandler(users UserStore, tokens TokenIssuer, m *metrics.Metrics) *authHandler {
	return &authHandler{users: users, tokens: tokens, metrics: m}
}

// Login handles POST /api/auth/login.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse request body")
		return
	}

	u, err := h.users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		h.countFailure("unknown_user")
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !user.CheckPassword(u, req.Password) {
		h.countFailure("bad_password")
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	tokenString, err := h.tokens.Issue(u.Username, u.Roles)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	if h.metrics != nil {
		h.metrics.AuthSuccessesTotal.Inc()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":    tokenString,
		"username": u.Username,
		"roles":    u.Roles,
	})
}

// Register handles POST /api/auth/register.
func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	var roles []string
	if req.Role != "" {
		if !user.ValidRole(req.Role) {
			writeError(w, http.StatusBadRequest, "unknown role: "+req.Role)
			return
		}
		roles = []string{req.Role}
	}

	exists, err := h.users.ExistsByUsername(r.Context(), req.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check username")
		return
	}
	if exists {
		writeError(w, http.StatusBadRequest, "Username already exists")
		return
	}

	u, err := h.users.Create(r.Context(), user.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		Roles:    roles,
	})
	if err != nil {
		// The uniqueness check above races with concurrent registrations;
		// the constraint is authoritative.
		if errors.Is(err, user.ErrUsernameTaken) {
			writeError(w, http.StatusBadRequest, "Username already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "User registered successfully",
		"username": u.Username,
	})
}

func (h *authHandler) countFailure(reason string) {
	if h.metrics != nil {
		h.metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
	}
}
