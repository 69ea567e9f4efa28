package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger: хранилище, доступность которого проверяет /health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ObserverCounter сообщает число подключённых наблюдателей.
type ObserverCounter interface {
	Count() int
}

// HealthHandler предоставляет endpoint для проверки здоровья сервиса.
type HealthHandler struct {
	db        Pinger
	observers ObserverCounter
}

// NewHealthHandler создаёт health handler. db может быть nil при хранилище в памяти.
func NewHealthHandler(db Pinger, observers ObserverCounter) *HealthHandler {
	return &HealthHandler{db: db, observers: observers}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Health обрабатывает GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.db == nil {
		checks["database"] = "in-memory"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := h.db.PingContext(ctx); err != nil {
			checks["database"] = "unhealthy"
			status = "unhealthy"
		} else {
			checks["database"] = "healthy"
		}
	}

	if h.observers != nil {
		checks["observers"] = strconv.Itoa(h.observers.Count())
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	})
}
