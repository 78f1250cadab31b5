package httpapi

import (
	"context"
	"net/http"

	"github.com/UKHgit/meet-point/internal/chat"
	"github.com/UKHgit/meet-point/pkg/logger"
)

type APIConfig struct {
	Hub     *chat.Hub
	RootCtx context.Context
}

// RegisterRoutes mounts the polling and SSE endpoints on the given mux.
func RegisterRoutes(mux *http.ServeMux, cfg APIConfig) {
	log := logger.FromContext(cfg.RootCtx).WithModule("httpapi")
	mux.HandleFunc("/api/rooms", HandleRooms(cfg.Hub))
	mux.HandleFunc("/api/users", HandleUsers(cfg.Hub, log))
	mux.HandleFunc("/api/chat", HandleChat(cfg.Hub, log))
	mux.HandleFunc("/api/sse", HandleSSE(cfg.Hub, log))
}
