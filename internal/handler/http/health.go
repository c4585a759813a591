package http

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

type HealthHandler struct {
	db      *sql.DB
	redis   *redis.Client
	started time.Time
}

func NewHealthHandler(db *sql.DB, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient, started: time.Now()}
}

// Health handles GET /api/health. A degraded backing store turns the overall
// status to "degraded" but still answers 200; the process itself is up.
func (h *HealthHandler) Health(c *gin.Context) {
	status := "ok"
	dbState := "ok"
	redisState := "ok"

	if h.db != nil {
		if err := h.db.PingContext(c.Request.Context()); err != nil {
			dbState = "unreachable"
			status = "degraded"
		}
	}
	if h.redis != nil {
		if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
			redisState = "unreachable"
			status = "degraded"
		}
	}

	SuccessResponse(c, http.StatusOK, gin.H{
		"status": status,
		"uptime": time.Since(h.started).String(),
		"db":     dbState,
		"redis":  redisState,
	})
}
