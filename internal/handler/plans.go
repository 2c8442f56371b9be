package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/mailseat/pkg/config"
)

// PlansHandler returns the available seat plans
type PlansHandler struct {
	config *config.Config
	log    *slog.Logger
}

// NewPlansHandler creates a new plans handler
func NewPlansHandler(cfg *config.Config, log *slog.Logger) *PlansHandler {
	return &PlansHandler{config: cfg, log: log}
}

// ServeHTTP implements the HTTP handler for plans
func (h *PlansHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type PlanResponse struct {
		ID            string  `json:"id"`
		Name          string  `json:"name"`
		MaxUsers      int     `json:"maxUsers"`
		PricePerMonth float64 `json:"pricePerMonth"`
	}

	plans := make([]PlanResponse, 0)
	for id, plan := range h.config.Plans {
		plans = append(plans, PlanResponse{
			ID:            id,
			Name:          plan.Name,
			MaxUsers:      plan.MaxUsers,
			PricePerMonth: plan.PricePerMonth,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"plans": plans,
	})
}
