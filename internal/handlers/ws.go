package handlers

import (
	"net/http"

	"github.com/pharaohanjay-gif/dado-stream-sub000/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Admin-gated endpoint; the cookie session is the trust boundary.
		return true
	},
}

// DashboardWS joins an authenticated admin to the realtime viewer channel.
// The route sits behind AuthRequired; unauthenticated connections never reach
// the hub.
func (h *Handler) DashboardWS(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Realtime channel not initialized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Websocket upgrade failed", "error", err)
		return
	}

	client := realtime.NewClient(h.hub, conn, h.logger)
	h.hub.Register <- client
	client.Start()
}
