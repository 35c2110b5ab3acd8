package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tahmid-hossain/clinicflow/services/queue-service/internal/queue"
	"github.com/tahmid-hossain/clinicflow/services/queue-service/internal/storage"
)

type SettingsHandler struct {
	settings *storage.SettingsRepository
	logger   *slog.Logger
}

func NewSettingsHandler(settingsRepo *storage.SettingsRepository, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settingsRepo, logger: logger}
}

type settingsResponse struct {
	ClinicID string `json:"clinic_id"`
	queue.Settings
}

// Handle serves GET and PUT on the clinic's queue settings.
func (h *SettingsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.put(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	clinicID := strings.TrimSpace(r.URL.Query().Get("clinic_id"))
	if clinicID == "" {
		http.Error(w, "clinic_id required", http.StatusBadRequest)
		return
	}

	s, err := h.settings.Get(r.Context(), clinicID)
	if err != nil {
		http.Error(w, "settings lookup failed", http.StatusInternalServerError)
		return
	}
	writeSettings(w, clinicID, s)
}

type putSettingsRequest struct {
	ClinicID string `json:"clinic_id"`
	queue.Settings
}

func (h *SettingsHandler) put(w http.ResponseWriter, r *http.Request) {
	var req putSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ClinicID = strings.TrimSpace(req.ClinicID)
	if req.ClinicID == "" {
		http.Error(w, "clinic_id required", http.StatusBadRequest)
		return
	}

	// Out-of-range values are rejected, never clamped; a typo'd grace
	// period should fail loudly instead of silently reshaping the queue.
	if err := req.Settings.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.settings.Upsert(r.Context(), req.ClinicID, req.Settings); err != nil {
		http.Error(w, "failed to save settings", http.StatusInternalServerError)
		return
	}
	h.logger.Info("queue settings updated", "clinic_id", req.ClinicID)
	writeSettings(w, req.ClinicID, req.Settings)
}

func writeSettings(w http.ResponseWriter, clinicID string, s queue.Settings) {
	body, err := json.Marshal(settingsResponse{ClinicID: clinicID, Settings: s})
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
