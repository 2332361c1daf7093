package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MehdiEmrani/wazo-chatd/internal/bus"
	"github.com/MehdiEmrani/wazo-chatd/internal/middleware"
	"github.com/MehdiEmrani/wazo-chatd/internal/models"
	"github.com/MehdiEmrani/wazo-chatd/internal/repository"
)

type MessageHandler struct {
	rooms     repository.RoomRepository
	publisher *bus.Publisher
	wazoUUID  uuid.UUID
	logger    *zap.Logger
}

func NewMessageHandler(rooms repository.RoomRepository, publisher *bus.Publisher, wazoUUID uuid.UUID, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{rooms: rooms, publisher: publisher, wazoUUID: wazoUUID, logger: logger}
}

// List handles GET /v1/users/me/rooms/:room_uuid/messages?direction=asc&limit=50
//
// direction defaults to desc (newest first); limit caps the result
// after ordering, so limit=1 always keeps the newest message on a desc
// read.
func (h *MessageHandler) List(c *gin.Context) {
	room, ok := h.memberRoom(c)
	if !ok {
		return
	}
	filter, ok := h.messageFilter(c)
	if !ok {
		return
	}

	messages, err := h.rooms.ListMessages(c.Request.Context(), room, filter)
	if err != nil {
		respondError(c, h.logger, "list messages", err)
		return
	}
	total, err := h.rooms.CountMessages(c.Request.Context(), room)
	if err != nil {
		respondError(c, h.logger, "count messages", err)
		return
	}

	c.JSON(http.StatusOK, listBody(messages, total, len(messages)))
}

// ListAll handles GET /v1/users/me/rooms/messages — the acting user's
// message history across every room they are a member of, with the same
// direction/limit parameters as the per-room list.
func (h *MessageHandler) ListAll(c *gin.Context) {
	filter, ok := h.messageFilter(c)
	if !ok {
		return
	}

	scope := middleware.GetTenantScope(c)
	me := middleware.GetUserID(c)

	messages, err := h.rooms.ListUserMessages(c.Request.Context(), scope, me, filter)
	if err != nil {
		respondError(c, h.logger, "list user messages", err)
		return
	}
	total, err := h.rooms.CountUserMessages(c.Request.Context(), scope, me)
	if err != nil {
		respondError(c, h.logger, "count user messages", err)
		return
	}

	c.JSON(http.StatusOK, listBody(messages, total, len(messages)))
}

type createMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// Create handles POST /v1/users/me/rooms/:room_uuid/messages
func (h *MessageHandler) Create(c *gin.Context) {
	room, ok := h.memberRoom(c)
	if !ok {
		return
	}

	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message := models.RoomMessage{
		UserUUID:   middleware.GetUserID(c),
		TenantUUID: middleware.GetTenantID(c),
		WazoUUID:   h.wazoUUID,
		Content:    req.Content,
	}
	if err := h.rooms.AddMessage(c.Request.Context(), room, &message); err != nil {
		respondError(c, h.logger, "create message", err)
		return
	}

	if err := h.publisher.MessageCreated(c.Request.Context(), room, &message); err != nil {
		h.logger.Error("failed to publish message created", zap.Error(err))
	}

	c.JSON(http.StatusCreated, message)
}

// messageFilter parses the direction and limit query parameters shared
// by the message list routes. It responds with 400 itself on a bad
// parameter and reports false.
func (h *MessageHandler) messageFilter(c *gin.Context) (repository.MessageFilter, bool) {
	filter := repository.MessageFilter{Direction: repository.Desc}

	switch c.Query("direction") {
	case "", "desc":
	case "asc":
		filter.Direction = repository.Asc
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'direction' parameter"})
		return filter, false
	}

	if l := c.Query("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'limit' parameter"})
			return filter, false
		}
		filter.Limit = limit
	}

	return filter, true
}

// memberRoom resolves :room_uuid within the token's scope and checks
// the acting user is a participant. Non-members get the same 404 as a
// missing room, so they cannot probe which rooms exist.
func (h *MessageHandler) memberRoom(c *gin.Context) (*models.Room, bool) {
	roomUUID, err := uuid.Parse(c.Param("room_uuid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room uuid"})
		return nil, false
	}

	room, err := h.rooms.Get(c.Request.Context(), middleware.GetTenantScope(c), roomUUID)
	if err != nil {
		respondError(c, h.logger, "get room", err)
		return nil, false
	}

	me := middleware.GetUserID(c)
	for _, user := range room.Users {
		if user.UUID == me {
			return room, true
		}
	}
	respondError(c, h.logger, "get room", repository.NewUnknownRoom(roomUUID))
	return nil, false
}
