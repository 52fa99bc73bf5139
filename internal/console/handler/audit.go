package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/xela07ax/vehicle-health-pipeline/internal/console/service"
)

type AuditHandler struct {
	service *service.AuditService
}

func NewAuditHandler(s *service.AuditService) *AuditHandler {
	return &AuditHandler{service: s}
}

// GetLogs возвращает последние события аудита
// GET /v1/audit?limit=...
func (h *AuditHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	logs, err := h.service.FetchLogs(r.Context(), limit)
	if err != nil {
		http.Error(w, "Failed to fetch audit logs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(logs)
}

// Clear стирает журнал
// DELETE /v1/audit
func (h *AuditHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context()); err != nil {
		http.Error(w, "Failed to clear audit logs", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
