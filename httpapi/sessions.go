package httpapi

import (
	"net/http"

	"github.com/MrEthical07/sessionauth/middleware"
)

func (h *handler) listSessions(w http.ResponseWriter, r *http.Request) {
	caller := claims(r)
	sessions, err := h.engine.ListSessions(r.Context(), caller.UserID, middleware.RefreshToken(r))
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", map[string]any{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

func (h *handler) revokeSession(w http.ResponseWriter, r *http.Request) {
	caller := claims(r)
	if err := h.engine.RevokeSession(r.Context(), caller.UserID, r.PathValue("tokenId")); err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Session revoked successfully", nil)
}

func (h *handler) revokeOtherSessions(w http.ResponseWriter, r *http.Request) {
	caller := claims(r)
	n, err := h.engine.RevokeOtherSessions(r.Context(), caller.UserID, middleware.RefreshToken(r))
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Other sessions revoked successfully", map[string]int{"revokedCount": n})
}

func (h *handler) sweepSessions(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.SweepExpiredSessions(r.Context())
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Expired sessions swept", report)
}
