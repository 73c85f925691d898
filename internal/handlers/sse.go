package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wsayer1/empathic-weave/internal/logger"
	"github.com/wsayer1/empathic-weave/internal/requestdata"
	"github.com/wsayer1/empathic-weave/internal/sse"
)

type SSEHandler struct {
	log *logger.Logger
	hub *sse.SSEHub

	mu      sync.Mutex
	clients map[uuid.UUID]*sse.SSEClient // key: SessionID
}

func NewSSEHandler(log *logger.Logger, hub *sse.SSEHub) *SSEHandler {
	return &SSEHandler{
		log:     log.With("handler", "SSEHandler"),
		hub:     hub,
		clients: make(map[uuid.UUID]*sse.SSEClient),
	}
}

func (h *SSEHandler) Stream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	if rd.SessionID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session id"})
		return
	}

	h.mu.Lock()
	// One stream per session; a reconnect replaces the old client.
	if existing, ok := h.clients[rd.SessionID]; ok {
		h.hub.CloseClient(existing)
		delete(h.clients, rd.SessionID)
	}
	client := h.hub.NewSSEClient(rd.UserID)
	h.clients[rd.SessionID] = client
	h.mu.Unlock()

	// Every session listens on its user's channel.
	h.hub.AddChannel(client, rd.UserID.String())
	h.log.Info("SSE stream open", "user_id", rd.UserID, "session_id", rd.SessionID)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	delete(h.clients, rd.SessionID)
	h.mu.Unlock()
	h.hub.RemoveClient(client)
}
