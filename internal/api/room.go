package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MehdiEmrani/wazo-chatd/internal/bus"
	"github.com/MehdiEmrani/wazo-chatd/internal/middleware"
	"github.com/MehdiEmrani/wazo-chatd/internal/models"
	"github.com/MehdiEmrani/wazo-chatd/internal/repository"
)

type RoomHandler struct {
	rooms     repository.RoomRepository
	publisher *bus.Publisher
	wazoUUID  uuid.UUID
	logger    *zap.Logger
}

func NewRoomHandler(rooms repository.RoomRepository, publisher *bus.Publisher, wazoUUID uuid.UUID, logger *zap.Logger) *RoomHandler {
	return &RoomHandler{rooms: rooms, publisher: publisher, wazoUUID: wazoUUID, logger: logger}
}

// List handles GET /v1/users/me/rooms — the rooms the acting user is a
// member of, within the token's tenant scope.
func (h *RoomHandler) List(c *gin.Context) {
	scope := middleware.GetTenantScope(c)
	me := middleware.GetUserID(c)
	filter := repository.RoomFilter{UserUUID: &me}

	rooms, err := h.rooms.List(c.Request.Context(), scope, filter)
	if err != nil {
		respondError(c, h.logger, "list rooms", err)
		return
	}
	total, err := h.rooms.Count(c.Request.Context(), scope, filter)
	if err != nil {
		respondError(c, h.logger, "count rooms", err)
		return
	}

	c.JSON(http.StatusOK, listBody(rooms, total, len(rooms)))
}

type createRoomUser struct {
	UUID       string `json:"uuid" binding:"required"`
	TenantUUID string `json:"tenant_uuid"`
	WazoUUID   string `json:"wazo_uuid"`
}

type createRoomRequest struct {
	Users []createRoomUser `json:"users" binding:"required"`
}

// Create handles POST /v1/users/me/rooms. The acting user is always a
// participant: when absent from the payload, it is added.
func (h *RoomHandler) Create(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	me := middleware.GetUserID(c)
	tenantUUID := middleware.GetTenantID(c)

	room := models.Room{
		TenantUUID: tenantUUID,
		Users:      make([]models.RoomUser, 0, len(req.Users)+1),
	}

	meIncluded := false
	for _, reqUser := range req.Users {
		user, err := h.buildRoomUser(reqUser, tenantUUID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if user.UUID == me {
			meIncluded = true
		}
		room.Users = append(room.Users, user)
	}
	if !meIncluded {
		room.Users = append(room.Users, models.RoomUser{
			UUID:       me,
			TenantUUID: tenantUUID,
			WazoUUID:   h.wazoUUID,
		})
	}

	created, err := h.rooms.Create(c.Request.Context(), &room)
	if err != nil {
		respondError(c, h.logger, "create room", err)
		return
	}

	if err := h.publisher.RoomCreated(c.Request.Context(), created); err != nil {
		h.logger.Error("failed to publish room created", zap.Error(err))
	}

	c.JSON(http.StatusCreated, created)
}

// buildRoomUser fills participant defaults: missing tenant falls back
// to the creator's tenant, missing origin to this stack.
func (h *RoomHandler) buildRoomUser(req createRoomUser, tenantUUID uuid.UUID) (models.RoomUser, error) {
	user := models.RoomUser{
		TenantUUID: tenantUUID,
		WazoUUID:   h.wazoUUID,
	}

	userUUID, err := uuid.Parse(req.UUID)
	if err != nil {
		return user, err
	}
	user.UUID = userUUID

	if req.TenantUUID != "" {
		if user.TenantUUID, err = uuid.Parse(req.TenantUUID); err != nil {
			return user, err
		}
	}
	if req.WazoUUID != "" {
		if user.WazoUUID, err = uuid.Parse(req.WazoUUID); err != nil {
			return user, err
		}
	}
	return user, nil
}
