package ws

import (
	"context"
	"net/http"

	"github.com/UKHgit/meet-point/internal/chat"
	"github.com/UKHgit/meet-point/pkg/logger"
)

type WSConfig struct {
	Hub     *chat.Hub
	RootCtx context.Context
}

// RegisterRoutes mounts the websocket endpoint on the given mux.
func RegisterRoutes(mux *http.ServeMux, cfg WSConfig) {
	log := logger.FromContext(cfg.RootCtx).WithModule("websocket")
	mux.HandleFunc("/ws", HandleWebSocket(cfg.Hub, log))
}
