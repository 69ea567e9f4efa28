package handler

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/cityfix-backend/internal/logger"
	"github.com/ignatzorin/cityfix-backend/internal/ws"
)

// WSHandler подключает наблюдателей к хабу событий. Подписка анонимная:
// события не содержат данных, скрытых от публичного API.
type WSHandler struct {
	hub        *ws.Hub
	sendBuffer int
	upgrader   websocket.Upgrader
}

func NewWSHandler(hub *ws.Hub, allowedOrigins []string, sendBuffer int) *WSHandler {
	return &WSHandler{
		hub:        hub,
		sendBuffer: sendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// Handle обслуживает GET /api/ws.
func (h *WSHandler) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ с ошибкой.
		logger.Log.WithError(err).Debug("ws: upgrade не удался")
		return
	}

	client := ws.NewClient(conn, h.hub, h.sendBuffer, logger.Log)
	h.hub.Register(client)

	client.Run(c.Request.Context())
}
