package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"sixtylens/internal/auth"
	"sixtylens/internal/i18n"
)

type userProfile struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Username         string     `json:"username"`
	EmailConfirmed   bool       `json:"email_confirmed"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

func profileOf(u *auth.User) userProfile {
	return userProfile{
		ID:               u.ID,
		Email:            u.Email,
		Username:         u.Username,
		EmailConfirmed:   u.EmailConfirmed,
		EmailConfirmedAt: u.EmailConfirmedAt,
		CreatedAt:        u.CreatedAt,
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Sixty Lens API"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.Auth.Signup(r.Context(), auth.SignupInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		Locale:   i18n.LocaleFromRequest(r),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Please check your email to confirm your account",
		"email":   user.Email,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, pair, err := s.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.Cookies.Set(w, pair)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":    profileOf(user),
		"message": "Logged in successfully",
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Auth.Logout(r.Context(), s.Cookies.AccessToken(r))
	s.Cookies.Clear(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	_, pair, err := s.Auth.Refresh(r.Context(), s.Cookies.RefreshToken(r))
	if err != nil {
		if auth.KindOf(err) == auth.KindUnauthorized {
			s.Cookies.Clear(w)
		}
		s.writeServiceError(w, r, err)
		return
	}

	s.Cookies.Set(w, pair)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Tokens refreshed successfully"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		s.writeServiceError(w, r, auth.ErrNotAuthenticated)
		return
	}
	writeJSON(w, http.StatusOK, profileOf(user))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          profileOf(user),
	})
}

func (s *Server) handleConfirmEmail(w http.ResponseWriter, r *http.Request) {
	user, err := s.Auth.ConfirmEmail(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Email confirmed successfully. You can now sign in.",
		"user":    profileOf(user),
	})
}

func (s *Server) handleResendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req resendConfirmationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.Auth.ResendConfirmation(r.Context(), req.Email, i18n.LocaleFromRequest(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": res.Message})
}
