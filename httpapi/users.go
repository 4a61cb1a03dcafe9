package httpapi

import (
	"net/http"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/middleware"
)

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.engine.Profile(r.Context(), claims(r).UserID)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", map[string]any{"user": user})
}

func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req sessionauth.UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errors.write(w, r, err)
		return
	}
	user, err := h.engine.UpdateProfile(r.Context(), claims(r).UserID, req)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Profile updated successfully", map[string]any{"user": user})
}

func (h *handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errors.write(w, r, err)
		return
	}
	n, err := h.engine.ChangePassword(r.Context(), claims(r).UserID, req.CurrentPassword, req.NewPassword, middleware.RefreshToken(r))
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Password changed successfully", map[string]int{"revokedSessions": n})
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.engine.ListUsers(r.Context(), claims(r))
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", map[string]any{
		"count": len(users),
		"users": users,
	})
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.engine.GetUser(r.Context(), claims(r), r.PathValue("userId"))
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", map[string]any{"user": user})
}

func (h *handler) unlockUser(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.UnlockAccount(r.Context(), claims(r), r.PathValue("userId")); err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Account unlocked successfully", nil)
}
