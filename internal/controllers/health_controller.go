package controllers

import (
	"fmt"
	"net/http"
	"perimeterd/internal/models"
	"perimeterd/internal/store"
	"time"
)

type HealthController struct {
	store     store.StoreInterface
	startTime time.Time
}

type healthResponse struct {
	Status        string              `json:"status"`
	Uptime        string              `json:"uptime"`
	UptimeSeconds float64             `json:"uptime_seconds"`
	Bound         bool                `json:"bound"`
	Posture       models.PostureState `json:"posture"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:        "ok",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		Bound:         hc.store.Binding().Bound,
		Posture:       hc.store.Posture().State(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(st store.StoreInterface) *HealthController {
	return &HealthController{
		store:     st,
		startTime: time.Now(),
	}
}
