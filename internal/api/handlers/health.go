package handlers

import (
	"net/http"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	componentHealthy   = "healthy"
	componentUnhealthy = "unhealthy"
	componentDisabled  = "disabled"
)

type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewHealthHandler(db *gorm.DB, redis *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// Health reports the database and, when background processing is enabled,
// Redis. Without Redis the API applies chain events inline and reports it as
// disabled rather than unhealthy.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: componentHealthy, Services: map[string]string{}}

	resp.Services["database"] = h.databaseStatus(r)

	resp.Services["redis"] = componentDisabled
	if h.redis != nil {
		resp.Services["redis"] = componentHealthy
		if err := h.redis.Ping(r.Context()).Err(); err != nil {
			resp.Services["redis"] = componentUnhealthy
		}
	}

	statusCode := http.StatusOK
	for _, s := range resp.Services {
		if s == componentUnhealthy {
			resp.Status = componentUnhealthy
			statusCode = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, statusCode, resp)
}

// Ready only needs the database; queued work can wait for Redis to recover.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.databaseStatus(r) != componentHealthy {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *HealthHandler) databaseStatus(r *http.Request) string {
	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.PingContext(r.Context()) != nil {
		return componentUnhealthy
	}
	return componentHealthy
}
