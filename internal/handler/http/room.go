// Package http exposes the room management API that sits beside the
// websocket transport. Creating a room here gives it a durable record;
// rooms that only ever exist through websocket joins stay ephemeral.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"codecast/internal/service"
)

type RoomHandler struct {
	roomService *service.RoomService
}

func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	if roomService == nil {
		panic("RoomService cannot be nil for RoomHandler")
	}
	return &RoomHandler{roomService: roomService}
}

type CreateRoomRequest struct {
	RoomID string `json:"roomId" binding:"required"`
	Name   string `json:"name"`
	Owner  string `json:"owner"`
}

type RoomResponse struct {
	RoomID     string    `json:"roomId"`
	Name       string    `json:"name"`
	Owner      string    `json:"owner"`
	LastActive time.Time `json:"lastActive"`
	Files      int       `json:"fileCount"`
	Elements   int       `json:"elementCount"`
}

// CreateRoom handles POST /api/rooms.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.CreateRoom: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: roomId is required")
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), req.RoomID, req.Name, req.Owner)
	if err != nil {
		logrus.WithError(err).WithField("room_id", req.RoomID).Warn("Handler.CreateRoom: Failed to create room via service")
		HandleServiceError(c, err)
		return
	}

	logrus.WithFields(logrus.Fields{"room_id": room.RoomID, "owner": room.Owner}).Info("Handler.CreateRoom: Room created successfully")
	SuccessResponse(c, http.StatusCreated, RoomResponse{
		RoomID:     room.RoomID,
		Name:       room.Name,
		Owner:      room.Owner,
		LastActive: room.LastActive,
	})
}

// GetRoom handles GET /api/rooms/:roomId.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID := c.Param("roomId")

	room, err := h.roomService.FindRoom(c.Request.Context(), roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, RoomResponse{
		RoomID:     room.RoomID,
		Name:       room.Name,
		Owner:      room.Owner,
		LastActive: room.LastActive,
		Files:      len(room.Files),
		Elements:   len(room.WhiteboardElements),
	})
}
