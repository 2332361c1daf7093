package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MehdiEmrani/wazo-chatd/internal/bus"
	"github.com/MehdiEmrani/wazo-chatd/internal/middleware"
	"github.com/MehdiEmrani/wazo-chatd/internal/models"
	"github.com/MehdiEmrani/wazo-chatd/internal/repository"
)

// PresenceHandler exposes user presence over REST. It never filters by
// anything but the tenant scope resolved from the token; the
// repositories enforce the isolation.
type PresenceHandler struct {
	users     repository.UserRepository
	publisher *bus.Publisher
	logger    *zap.Logger
}

func NewPresenceHandler(users repository.UserRepository, publisher *bus.Publisher, logger *zap.Logger) *PresenceHandler {
	return &PresenceHandler{users: users, publisher: publisher, logger: logger}
}

// List handles GET /v1/users/presences?user_uuid=a,b,c
//
// The filter accepts the comma-joined form and a repeated user_uuid
// parameter interchangeably.
func (h *PresenceHandler) List(c *gin.Context) {
	scope := middleware.GetTenantScope(c)

	var filter repository.UserFilter
	if raw, ok := c.GetQueryArray("user_uuid"); ok {
		uuids, err := parseUserUUIDs(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_uuid parameter"})
			return
		}
		filter.UUIDs = uuids
	}

	users, err := h.users.List(c.Request.Context(), scope, filter)
	if err != nil {
		respondError(c, h.logger, "list presences", err)
		return
	}
	total, err := h.users.Count(c.Request.Context(), scope, repository.UserFilter{})
	if err != nil {
		respondError(c, h.logger, "count presences", err)
		return
	}

	c.JSON(http.StatusOK, listBody(users, total, len(users)))
}

// parseUserUUIDs flattens repeated and comma-joined user_uuid query
// values into uuids.
func parseUserUUIDs(values []string) ([]uuid.UUID, error) {
	uuids := make([]uuid.UUID, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			userUUID, err := uuid.Parse(part)
			if err != nil {
				return nil, err
			}
			uuids = append(uuids, userUUID)
		}
	}
	return uuids, nil
}

// Get handles GET /v1/users/:user_uuid/presences
func (h *PresenceHandler) Get(c *gin.Context) {
	userUUID, err := uuid.Parse(c.Param("user_uuid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user uuid"})
		return
	}

	user, err := h.users.Get(c.Request.Context(), middleware.GetTenantScope(c), userUUID)
	if err != nil {
		respondError(c, h.logger, "get presence", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

type updatePresenceRequest struct {
	State  string `json:"state" binding:"required"`
	Status string `json:"status"`
}

// Update handles PUT /v1/users/:user_uuid/presences
func (h *PresenceHandler) Update(c *gin.Context) {
	userUUID, err := uuid.Parse(c.Param("user_uuid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user uuid"})
		return
	}

	var req updatePresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	state := models.UserState(req.State)
	if !state.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state"})
		return
	}

	// Get first: the update must 404 outside the token's scope, and
	// the publisher needs the full row afterwards.
	user, err := h.users.Get(c.Request.Context(), middleware.GetTenantScope(c), userUUID)
	if err != nil {
		respondError(c, h.logger, "update presence", err)
		return
	}

	user.State = state
	user.Status = req.Status
	if err := h.users.Update(c.Request.Context(), user); err != nil {
		respondError(c, h.logger, "update presence", err)
		return
	}

	if err := h.publisher.PresenceUpdated(c.Request.Context(), user); err != nil {
		h.logger.Error("failed to publish presence update", zap.Error(err))
	}

	c.Status(http.StatusNoContent)
}
