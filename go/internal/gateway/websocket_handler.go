package gateway

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// WebSocketHandler exposes the websocket upgrade endpoint.
type WebSocketHandler struct {
	manager *ConnectionManager
}

// NewWebSocketHandler creates a handler over the connection manager.
func NewWebSocketHandler(manager *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{manager: manager}
}

// RegisterRoutes attaches the websocket endpoint to mux. Authentication
// happens per-room inside JoinRoom, not at upgrade time, so the endpoint
// itself is open.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", h.handleWebSocket)
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.UpgradeConnection(w, r); err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		// Upgrade already wrote the HTTP error response
	}
}
