package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/MehdiEmrani/wazo-chatd/internal/db"
)

// StatusHandler reports component health: the relational store and the
// bus connection. Load balancers use the cheap /health route; /status
// actively pings both backends.
type StatusHandler struct {
	db    *db.DB
	redis *redis.Client
}

func NewStatusHandler(database *db.DB, redisClient *redis.Client) *StatusHandler {
	return &StatusHandler{db: database, redis: redisClient}
}

func (h *StatusHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *StatusHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()

	dbStatus := "ok"
	if err := h.db.Health(ctx); err != nil {
		dbStatus = "fail"
	}
	busStatus := "ok"
	if err := h.redis.Ping(ctx).Err(); err != nil {
		busStatus = "fail"
	}

	code := http.StatusOK
	if dbStatus != "ok" || busStatus != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"db":  gin.H{"status": dbStatus},
		"bus": gin.H{"status": busStatus},
	})
}
