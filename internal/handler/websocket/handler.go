// Package websocket upgrades HTTP requests into hub clients.
package websocket

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"codecast/internal/hub"
)

type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
}

func NewWebSocketHandler(h *hub.Hub) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// Rooms are open by design; connections are accepted from any origin
		// and identity is a display name, not a credential.
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	return &WebSocketHandler{upgrader: upgrader, hub: h}
}

// HandleConnection upgrades GET /ws?username=<name>. The connection id is
// minted here and stays unique for the life of the process.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		username = "guest"
	}
	connID := fmt.Sprintf("%s-%d", c.Request.RemoteAddr, time.Now().UnixNano())
	logCtx := logrus.WithFields(logrus.Fields{"conn_id": connID, "username": username})

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		return
	}
	logCtx.Info("WS Handler: Connection upgraded to WebSocket")

	client := hub.NewClient(h.hub, conn, connID, username)
	if !h.hub.Register(client) {
		logCtx.Error("WS Handler: Hub message channel full, failed to register client")
		client.CloseConn()
		return
	}

	client.Run()
}
