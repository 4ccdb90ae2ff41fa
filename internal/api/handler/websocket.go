package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/qs3c/listing_sub_server/internal/pkg/jwt"
	"github.com/qs3c/listing_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/listing_sub_server/internal/pkg/ws"
)

type WebSocketHandler struct {
	hub       *ws.Hub
	jwtSecret string
	upgrader  websocket.Upgrader
}

// NewWebSocketHandler allowedOrigins 为空时不校验 Origin
func NewWebSocketHandler(hub *ws.Hub, jwtSecret string, allowedOrigins []string) *WebSocketHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	return &WebSocketHandler{
		hub:       hub,
		jwtSecret: jwtSecret,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				_, ok := origins[r.Header.Get("Origin")]
				return ok
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Handle 建立事件推送连接，浏览器无法带 Authorization 头，令牌走 query
// GET /api/v1/ws?token=xxx
func (h *WebSocketHandler) Handle(c *gin.Context) {
	claims, err := jwt.ParseToken(c.Query("token"), h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WS: upgrade for subject %d failed: %v", claims.UserID, err)
		return
	}
	h.hub.Attach(claims.UserID, conn)
}

// PushEvent 把订阅事件推送给对应 subject，系统级事件不推送
func (h *WebSocketHandler) PushEvent(evt *pubsub.Event) {
	if evt.UserID <= 0 {
		return
	}
	if _, err := h.hub.Push(evt.UserID, ws.Envelope{Type: evt.Type, Data: evt}); err != nil {
		log.Printf("WS: push %s to subject %d failed: %v", evt.Type, evt.UserID, err)
	}
}
