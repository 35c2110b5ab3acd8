package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tahmid-hossain/clinicflow/libs/tiering"
	"github.com/tahmid-hossain/clinicflow/services/queue-service/internal/storage"
)

type FeaturesHandler struct {
	subs *storage.SubscriptionRepository
}

func NewFeaturesHandler(subs *storage.SubscriptionRepository) *FeaturesHandler {
	return &FeaturesHandler{subs: subs}
}

type featuresResponse struct {
	ClinicID          string   `json:"clinic_id"`
	Tier              string   `json:"tier"`
	IntelligenceAddon bool     `json:"intelligence_addon"`
	Features          []string `json:"features"`
}

type featureCheckResponse struct {
	ClinicID string `json:"clinic_id"`
	Feature  string `json:"feature"`
	Allowed  bool   `json:"allowed"`
}

// Get returns the clinic's effective tier and enabled feature list. With a
// feature query parameter it answers a single access check instead.
func (h *FeaturesHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clinicID := strings.TrimSpace(r.URL.Query().Get("clinic_id"))
	if clinicID == "" {
		http.Error(w, "clinic_id required", http.StatusBadRequest)
		return
	}

	sub, err := h.subs.Get(r.Context(), clinicID)
	if err != nil {
		http.Error(w, "subscription lookup failed", http.StatusInternalServerError)
		return
	}

	if feature := strings.TrimSpace(r.URL.Query().Get("feature")); feature != "" {
		writeJSON(w, featureCheckResponse{
			ClinicID: clinicID,
			Feature:  feature,
			Allowed:  tiering.CanAccess(sub, tiering.Feature(feature)),
		})
		return
	}

	enabled := tiering.Enabled(sub)
	names := make([]string, 0, len(enabled))
	for _, f := range enabled {
		names = append(names, string(f))
	}
	writeJSON(w, featuresResponse{
		ClinicID:          clinicID,
		Tier:              sub.Tier.String(),
		IntelligenceAddon: sub.Intelligence,
		Features:          names,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
