package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/middleware"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User             any    `json:"user"`
	AccessExpiresAt  string `json:"accessExpiresAt"`
	RefreshExpiresAt string `json:"refreshExpiresAt"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req sessionauth.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errors.write(w, r, err)
		return
	}

	user, err := h.engine.Register(r.Context(), req)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "User registered successfully", map[string]string{
		"id":    user.ID,
		"email": user.Email,
		"role":  string(user.Role),
	})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errors.write(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		verr := &sessionauth.ValidationError{}
		if req.Email == "" {
			verr.Fields = append(verr.Fields, sessionauth.FieldError{Field: "email", Message: "Email is required"})
		}
		if req.Password == "" {
			verr.Fields = append(verr.Fields, sessionauth.FieldError{Field: "password", Message: "Password is required"})
		}
		h.errors.write(w, r, verr)
		return
	}

	res, err := h.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	h.writeSession(w, "Login successful", res)
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.Refresh(r.Context(), middleware.RefreshToken(r))
	if err != nil {
		if errors.Is(err, sessionauth.ErrTokenInvalid) || errors.Is(err, sessionauth.ErrNotFound) {
			h.cookies.clear(w)
		}
		h.errors.write(w, r, err)
		return
	}
	h.writeSession(w, "Token refreshed successfully", res)
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	err := h.engine.Logout(r.Context(), middleware.RefreshToken(r))
	h.cookies.clear(w)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Logout successful", nil)
}

func (h *handler) writeSession(w http.ResponseWriter, message string, res *sessionauth.LoginResult) {
	h.cookies.setTokens(w, res.Tokens, h.engine.AccessTTL(), h.engine.RefreshTTL())
	writeOK(w, http.StatusOK, message, loginResponse{
		User:             res.User,
		AccessExpiresAt:  res.Tokens.AccessExpiresAt.UTC().Format(time.RFC3339),
		RefreshExpiresAt: res.Tokens.RefreshExpiresAt.UTC().Format(time.RFC3339),
	})
}
