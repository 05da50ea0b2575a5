package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	fitAuth "github.com/fitgoal/fitAuth"
	"github.com/fitgoal/fitAuth/middleware"
)

const (
	maxBodyBytes = 1 << 20

	msgLogout       = "Logout successful"
	msgResetRequest = "If the account exists, a password reset email has been sent"
	msgResetConfirm = "Password has been reset"
)

type registerResponse struct {
	fitAuth.Account
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type loginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	User      fitAuth.Account `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req fitAuth.RegisterRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.svc.Register(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	body := registerResponse{Account: res.Account}
	if res.Token != "" {
		body.Token = res.Token
		body.ExpiresAt = &res.ExpiresAt
	}
	writeJSON(w, http.StatusCreated, body)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      res.Account,
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFromContext(r.Context())
	if err := s.svc.Logout(r.Context(), p); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msgLogout})
}

func (s *Server) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msgResetRequest})
}

func (s *Server) confirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token           string `json:"token"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.svc.ConfirmPasswordReset(r.Context(), req.Token, req.Password, req.ConfirmPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msgResetConfirm})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		s.writeError(w, r, fitAuth.ErrNoCredential)
		return
	}
	writeJSON(w, http.StatusOK, p.Account)
}

// decode reads a JSON body into dst. On failure it writes a 400 and
// returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "Request body too large"})
		case errors.Is(err, io.EOF):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Request body is required"})
		default:
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		}
		return false
	}
	return true
}
