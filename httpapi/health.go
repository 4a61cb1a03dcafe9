package httpapi

import (
	"net/http"

	"github.com/MrEthical07/sessionauth"
)

func (h *handler) healthDetailed(w http.ResponseWriter, r *http.Request) {
	report := h.engine.Health(r.Context())
	status := http.StatusOK
	if report.Status != sessionauth.HealthOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, envelope{
		Success: status == http.StatusOK,
		Data:    report,
	})
}
