package httpapi

import (
	"net/http"
	"strconv"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/internal/audit"
)

func (h *handler) auditLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := auditFilter(r)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	filter.UserID = r.URL.Query().Get("userId")
	h.writeAuditPage(w, r, filter)
}

func (h *handler) auditLogsForUser(w http.ResponseWriter, r *http.Request) {
	filter, err := auditFilter(r)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	filter.UserID = r.PathValue("userId")
	h.writeAuditPage(w, r, filter)
}

func (h *handler) writeAuditPage(w http.ResponseWriter, r *http.Request, filter audit.Filter) {
	page, err := h.engine.AuditLogs(r.Context(), claims(r), filter)
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", page)
}

func (h *handler) auditStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.AuditStats(r.Context(), claims(r))
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "", stats)
}

// auditFilter parses page, limit and action. Action validity is checked by
// the engine.
func auditFilter(r *http.Request) (audit.Filter, error) {
	q := r.URL.Query()
	var verr sessionauth.ValidationError
	filter := audit.Filter{Action: audit.Action(q.Get("action"))}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			verr.Fields = append(verr.Fields, sessionauth.FieldError{Field: "page", Message: "page must be a positive integer"})
		}
		filter.Page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			verr.Fields = append(verr.Fields, sessionauth.FieldError{Field: "limit", Message: "limit must be a positive integer"})
		}
		filter.Limit = n
	}

	if len(verr.Fields) > 0 {
		return audit.Filter{}, &verr
	}
	return filter, nil
}
